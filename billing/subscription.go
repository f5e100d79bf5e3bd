package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is the single source of truth for a user's current
// subscription. Each user has at most one row; rows are never deleted,
// cancellation is a status transition so the billing history survives.
type Subscription struct {
	UserID           uuid.UUID  // primary key, one subscription per user
	CustomerID       string     // provider's customer ID, stable for the customer lifetime
	ProviderSubID    string     // provider's subscription object ID, used for portal deep links
	Status           Status
	TierID           string
	BillingCycle     BillingCycle
	CurrentPeriodEnd *time.Time
	LastEventAt      *time.Time // occurred_at of the newest applied provider event
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CancelledAt      *time.Time
}

// IsActive returns true if the subscription is active (paid).
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsTrialing returns true if the subscription is in its trial period.
func (s *Subscription) IsTrialing() bool {
	return s.Status == StatusTrialing
}

// BlocksCheckout reports whether this subscription blocks a new
// subscription checkout. Canceled and past-due subscriptions are
// eligible for a fresh checkout.
func (s *Subscription) BlocksCheckout() bool {
	return s.Status.Blocking()
}

// StaleFor reports whether an event that occurred at the given time is
// older than the newest event already applied to this subscription.
// Stale events are ignored so that a redelivered subscription.updated
// cannot resurrect a subscription canceled by a newer event.
func (s *Subscription) StaleFor(occurredAt time.Time) bool {
	if s.LastEventAt == nil || occurredAt.IsZero() {
		return false
	}
	return occurredAt.Before(*s.LastEventAt)
}
