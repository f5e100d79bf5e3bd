package billing

import (
	"context"
	"time"
)

// Provider is the minimal interface a hosted billing provider must
// implement. The provider owns checkout UI, recurring billing, and
// webhook delivery; this package only creates sessions, mints portal
// links, and verifies signed payloads.
type Provider interface {
	// CreateCheckoutSession creates a hosted, single-use checkout flow
	// and returns the URL the user should be redirected to.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)

	// CreatePortalSession mints a time-limited customer portal URL for
	// an existing provider customer.
	CreatePortalSession(ctx context.Context, customerID string, subscriptionIDs ...string) (*PortalSession, error)

	// VerifyWebhook validates a provider-signed payload and returns the
	// parsed event envelope. Verification runs over the exact raw bytes;
	// cryptographic failures are reported as ErrInvalidSignature.
	VerifyWebhook(ctx context.Context, payload []byte, signature string) (*VerifiedEvent, error)

	// SignatureHeader returns the name of the HTTP header carrying the
	// provider's webhook signature.
	SignatureHeader() string
}

// CheckoutParams contains everything needed to create a checkout session.
// UserID, TierID, and Mode are round-tripped through provider metadata so
// webhook events can be attributed without extra lookups.
type CheckoutParams struct {
	PriceID    string // provider's price identifier for the selected tier and cycle
	UserID     string // internal user ID
	TierID     string
	Mode       PaymentMode
	Email      string
	Name       string
	SuccessURL string
	CancelURL  string
	FailureURL string
}

// CheckoutSession represents a hosted checkout flow.
type CheckoutSession struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// PortalSession represents a time-limited customer portal link.
type PortalSession struct {
	URL       string
	ExpiresAt time.Time
}
