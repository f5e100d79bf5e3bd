package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Service is the front door for the billing module: synchronous,
// user-initiated checkout and portal operations, plus the asynchronous
// provider-initiated webhook pipeline.
type Service struct {
	cfg      Config
	tiers    map[string]Tier
	provider Provider
	store    SubscriptionStore
	ledger   EventLedger
	engine   *Engine
	log      *slog.Logger
}

// NewService creates the billing service. Panics if required
// dependencies are nil to fail fast during initialization; returns an
// error only for tier catalog problems.
func NewService(ctx context.Context, cfg Config, src TierSource, provider Provider, store SubscriptionStore, ledger EventLedger, opts ...ServiceOption) (*Service, error) {
	if src == nil {
		panic("billing: TierSource is required")
	}
	if provider == nil {
		panic("billing: Provider is required")
	}
	if store == nil {
		panic("billing: SubscriptionStore is required")
	}
	if ledger == nil {
		panic("billing: EventLedger is required")
	}

	tiers, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}
	if err := validateTiers(tiers); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		tiers:    tiers,
		provider: provider,
		store:    store,
		ledger:   ledger,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = NewEngine(store, s.log)

	return s, nil
}

// CheckoutRequest is the transient payload of a checkout attempt. The
// caller identity and callback URLs are supplied separately.
type CheckoutRequest struct {
	TierID       string       `json:"tierId"`
	PaymentMode  PaymentMode  `json:"paymentMode"`
	BillingCycle BillingCycle `json:"billingCycle,omitempty"`
}

func (r CheckoutRequest) validate(tiers map[string]Tier) error {
	ve := ValidationError{}

	switch {
	case r.TierID == "":
		ve["tierId"] = append(ve["tierId"], "is required")
	default:
		if _, ok := tiers[r.TierID]; !ok {
			ve["tierId"] = append(ve["tierId"], "is not a known tier")
		}
	}

	switch {
	case r.PaymentMode == "":
		ve["paymentMode"] = append(ve["paymentMode"], "is required")
	case !r.PaymentMode.Valid():
		ve["paymentMode"] = append(ve["paymentMode"], "must be one of: subscription, one_time")
	}

	if r.PaymentMode == PaymentModeSubscription {
		switch {
		case r.BillingCycle == "":
			ve["billingCycle"] = append(ve["billingCycle"], "is required for subscription payments")
		case !r.BillingCycle.Valid():
			ve["billingCycle"] = append(ve["billingCycle"], "must be one of: monthly, yearly")
		}
	}

	if len(ve) > 0 {
		return ve
	}
	return nil
}

// CreateCheckout validates the request, enforces the
// one-active-subscription-per-user invariant, and creates a hosted
// checkout session with the billing provider.
//
// One-time purchases bypass the subscription check entirely: a user may
// buy one-time products regardless of subscription state. Subscription
// checkouts are refused with AlreadySubscribedError while the user's
// subscription is active or trialing; canceled and past-due users may
// start a fresh checkout.
func (s *Service) CreateCheckout(ctx context.Context, user User, req CheckoutRequest) (*CheckoutSession, error) {
	if user.ID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	if err := req.validate(s.tiers); err != nil {
		return nil, err
	}
	tier := s.tiers[req.TierID]

	if req.PaymentMode == PaymentModeSubscription {
		sub, err := s.store.Get(ctx, user.ID)
		switch {
		case err == nil:
			if sub.BlocksCheckout() {
				return nil, &AlreadySubscribedError{ManagementURL: s.managementURL(ctx, sub)}
			}
		case errors.Is(err, ErrSubscriptionNotFound):
			// Never subscribed, eligible for checkout.
		default:
			return nil, errors.Join(ErrCheckoutFailed, err)
		}
	}

	priceID, err := tier.PriceFor(req.PaymentMode, req.BillingCycle)
	if err != nil {
		return nil, errors.Join(ErrCheckoutFailed, err)
	}

	successURL, cancelURL, failureURL, err := s.cfg.callbackURLs()
	if err != nil {
		return nil, errors.Join(ErrCheckoutFailed, err)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		PriceID:    priceID,
		UserID:     user.ID.String(),
		TierID:     req.TierID,
		Mode:       req.PaymentMode,
		Email:      user.Email,
		Name:       user.Name,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		FailureURL: failureURL,
	})
	if err != nil {
		return nil, errors.Join(ErrCheckoutFailed, err)
	}

	s.log.InfoContext(ctx, "checkout session created",
		slog.String("user_id", user.ID.String()),
		slog.String("tier_id", req.TierID),
		slog.String("payment_mode", string(req.PaymentMode)),
	)
	return session, nil
}

// managementURL mints a portal link for the blocking subscription so
// the 409 response can point the user at self-service remediation.
// A portal failure here degrades to an empty URL rather than masking
// the conflict.
func (s *Service) managementURL(ctx context.Context, sub *Subscription) string {
	if sub.CustomerID == "" {
		return ""
	}
	portal, err := s.portalSession(ctx, sub)
	if err != nil {
		s.log.WarnContext(ctx, "failed to create management portal link",
			slog.String("user_id", sub.UserID.String()),
			slog.Any("error", err),
		)
		return ""
	}
	return portal.URL
}

// PortalURL mints a time-limited customer portal link for the user's
// stored provider customer. A user without a provider customer on file
// has nothing to manage and receives ErrNoSubscription.
func (s *Service) PortalURL(ctx context.Context, userID uuid.UUID) (*PortalSession, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthorized
	}

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, err
	}
	if sub.CustomerID == "" {
		return nil, ErrNoSubscription
	}

	return s.portalSession(ctx, sub)
}

func (s *Service) portalSession(ctx context.Context, sub *Subscription) (*PortalSession, error) {
	var subIDs []string
	if sub.ProviderSubID != "" {
		subIDs = append(subIDs, sub.ProviderSubID)
	}

	session, err := s.provider.CreatePortalSession(ctx, sub.CustomerID, subIDs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}
	return session, nil
}

// HandleWebhook runs the full webhook pipeline for one delivery:
// signature gate, verification, idempotency check, state transition,
// ledger commit. It is safe under arbitrary redelivery; duplicates are
// benign no-ops, not errors.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	// The signature header is checked before the payload is touched.
	if strings.TrimSpace(signature) == "" {
		return ErrMissingSignature
	}

	ev, err := s.provider.VerifyWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	eventID := ev.ID()

	processed, err := s.ledger.HasProcessed(ctx, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check failed: %w", err)
	}
	if processed {
		s.log.InfoContext(ctx, "duplicate webhook delivery skipped", slog.String("event_id", eventID))
		return nil
	}

	if err := s.engine.Apply(ctx, ev); err != nil {
		if !errors.Is(err, ErrEventIgnored) {
			return err
		}
		s.log.InfoContext(ctx, "webhook event ignored",
			slog.String("event_id", eventID),
			slog.String("reason", err.Error()),
		)
	}

	// The subscription write above must complete before this commit: if
	// the process crashes between the two, redelivery reapplies the
	// idempotent transition instead of losing it.
	if err := s.ledger.MarkProcessed(ctx, eventID, ev.OccurredAt); err != nil {
		if errors.Is(err, ErrEventAlreadyProcessed) {
			// Lost a race against a concurrent delivery of the same
			// logical event; effects are identical either way.
			return nil
		}
		return fmt.Errorf("idempotency commit failed: %w", err)
	}

	return nil
}

// Subscription returns the user's current subscription, if any.
func (s *Service) Subscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.store.Get(ctx, userID)
}

// Tiers returns the loaded tier catalog.
func (s *Service) Tiers() map[string]Tier {
	return s.tiers
}
