package billing

import "time"

// EventType is the normalized billing event type. Provider
// implementations map their native event names to these values;
// unmapped events keep the provider's name and fall through the
// transition engine as ignored.
type EventType string

const (
	EventCheckoutCompleted    EventType = "checkout.completed"
	EventSubscriptionCreated  EventType = "subscription.created"
	EventSubscriptionUpdated  EventType = "subscription.updated"
	EventSubscriptionRenewed  EventType = "subscription.renewed"
	EventSubscriptionCanceled EventType = "subscription.canceled"
	EventPaymentFailed        EventType = "payment.failed"
)

// VerifiedEvent is a webhook event that passed signature verification.
// Only verified events reach the idempotency ledger and the transition
// engine, so a crafted payload can neither poison the ledger nor force
// a spurious transition.
type VerifiedEvent struct {
	ObjectID         string    // provider's ID of the object the event is about
	Type             EventType // normalized event type
	ProviderEvent    string    // original provider event name
	UserID           string    // internal user ID carried in checkout metadata, may be empty
	CustomerID       string    // provider's customer ID
	SubscriptionID   string    // provider's subscription ID when the event relates to one
	Status           Status    // provider-reported subscription status, may be empty
	TierID           string
	BillingCycle     BillingCycle
	CurrentPeriodEnd *time.Time
	OccurredAt       time.Time // provider's event timestamp, used for stale-event rejection
	Raw              map[string]any
}

// EventID derives the idempotency key for a logical event. It is
// deliberately coarser than the provider's delivery ID: redeliveries of
// the same logical change collapse to one key, while two different
// change types for the same object ("sub_789_subscription.updated" vs
// "sub_789_subscription.canceled") stay independently recorded.
func EventID(objectID string, eventType EventType) string {
	return objectID + "_" + string(eventType)
}

// ID returns the idempotency key for this event.
func (e *VerifiedEvent) ID() string {
	return EventID(e.ObjectID, e.Type)
}
