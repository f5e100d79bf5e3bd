package billing

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionStore persists subscriptions. Each user has exactly one
// row keyed by UserID; webhook events that carry only the provider's
// customer ID are resolved through GetByCustomerID.
//
// Only the transition engine mutates subscription state. Checkout and
// portal paths read; no row-level locking beyond the storage's own
// single-row upsert semantics is required.
type SubscriptionStore interface {
	// Get retrieves a subscription by user ID.
	// Returns ErrSubscriptionNotFound if no row exists.
	Get(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// GetByCustomerID retrieves a subscription by the billing provider's
	// customer ID. Returns ErrSubscriptionNotFound if no row matches,
	// which happens when a status event outruns the checkout-completed
	// event that creates the row.
	GetByCustomerID(ctx context.Context, customerID string) (*Subscription, error)

	// Upsert creates or updates the subscription row for sub.UserID.
	Upsert(ctx context.Context, sub *Subscription) error
}
