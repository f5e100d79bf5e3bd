package billing

// Status represents the current state of a user's subscription.
type Status string

const (
	// StatusNone means the user has never had a subscription. It is the
	// implicit status of a missing subscription row; stored rows never
	// carry it.
	StatusNone     Status = "none"
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// Blocking reports whether this status blocks creation of a new
// subscription checkout for the same user.
func (s Status) Blocking() bool {
	return s == StatusActive || s == StatusTrialing
}

// BillingCycle represents the renewal frequency of a subscription.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// Valid reports whether the cycle is one of the supported values.
func (c BillingCycle) Valid() bool {
	return c == BillingCycleMonthly || c == BillingCycleYearly
}

// PaymentMode distinguishes recurring subscription purchases from
// one-time product purchases.
type PaymentMode string

const (
	PaymentModeSubscription PaymentMode = "subscription"
	PaymentModeOneTime      PaymentMode = "one_time"
)

// Valid reports whether the mode is one of the supported values.
func (m PaymentMode) Valid() bool {
	return m == PaymentModeSubscription || m == PaymentModeOneTime
}
