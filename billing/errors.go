package billing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnauthorized = errors.New("billing: unauthorized")

	ErrMissingSignature = errors.New("billing: missing webhook signature")
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")

	ErrSubscriptionNotFound  = errors.New("billing: subscription not found")
	ErrNoSubscription        = errors.New("billing: no subscription on file")
	ErrAlreadySubscribed     = errors.New("billing: active subscription already exists")
	ErrEventAlreadyProcessed = errors.New("billing: webhook event already processed")

	// ErrEventIgnored marks a verified event that the transition engine
	// deliberately does not act on (unknown type, stale delivery, or no
	// transition from the current state). The webhook pipeline records
	// such events in the ledger and acknowledges them so the provider
	// stops retrying.
	ErrEventIgnored = errors.New("billing: event ignored")

	ErrCheckoutFailed  = errors.New("billing: failed to create checkout session")
	ErrProviderFailure = errors.New("billing: provider request failed")

	ErrTierNotFound          = errors.New("billing: tier not found")
	ErrInvalidTierCatalog    = errors.New("billing: invalid tier catalog")
	ErrFailedToLoadTiers     = errors.New("billing: failed to load tier catalog")
	ErrMissingBaseURL        = errors.New("billing: application base URL is not configured")
	ErrMissingAPIKey         = errors.New("billing: provider API key is required")
	ErrMissingWebhookSecret  = errors.New("billing: provider webhook secret is required")
	ErrInvalidEnvironment    = errors.New("billing: invalid provider environment")
	ErrNoCheckoutURL         = errors.New("billing: no checkout URL returned from provider")
	ErrNoPortalURL           = errors.New("billing: no portal URL returned from provider")
	ErrInvalidWebhookPayload = errors.New("billing: invalid webhook payload")
)

// ValidationError carries field-level validation failures for checkout
// requests. The transport layer serializes it into the 400 response body.
type ValidationError map[string][]string

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("validation failed")
	for _, field := range fields {
		b.WriteString(fmt.Sprintf("; %s: %s", field, strings.Join(e[field], ", ")))
	}
	return b.String()
}

// AlreadySubscribedError is returned when a subscription checkout is
// refused because the user already has an active or trialing
// subscription. ManagementURL points at the provider's customer portal
// so the caller can redirect to self-service remediation.
type AlreadySubscribedError struct {
	ManagementURL string
}

func (e *AlreadySubscribedError) Error() string {
	return ErrAlreadySubscribed.Error()
}

func (e *AlreadySubscribedError) Unwrap() error {
	return ErrAlreadySubscribed
}
