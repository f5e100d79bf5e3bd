// Package billing implements the subscription lifecycle for a SaaS
// application backed by a hosted billing provider.
//
// The package covers four concerns:
//
//   - Checkout: creating hosted checkout sessions while enforcing the
//     one-active-subscription-per-user invariant.
//   - Customer portal: issuing self-service management links for an
//     existing provider customer.
//   - Webhook ingestion: verifying provider-signed payloads and driving
//     the subscription state machine from asynchronous events.
//   - Idempotency: collapsing at-least-once webhook deliveries to
//     at-most-once effect application through a durable event ledger.
//
// The provider integration is abstracted behind the Provider interface;
// a Paddle implementation is included. Persistence is abstracted behind
// SubscriptionStore and EventLedger with PostgreSQL implementations and
// in-memory equivalents for tests and local development.
//
// Usage:
//
//	store := billing.NewPGSubscriptionStore(pool)
//	ledger := billing.NewPGEventLedger(pool)
//	provider, _ := billing.NewPaddleProvider(paddleCfg)
//
//	svc, err := billing.NewService(ctx, cfg,
//		billing.NewYAMLTierSource("tiers.yaml"),
//		provider, store, ledger,
//	)
//
//	r := chi.NewRouter()
//	r.Mount("/billing", svc.Handler())
//
// The host application is responsible for authentication: checkout and
// portal handlers read the caller identity from the request context via
// SetUserToContext, typically injected by an auth middleware.
package billing
