package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/statemachine"
)

// Engine computes and persists the new subscription state for a
// verified, de-duplicated webhook event. The allowed transitions are a
// lookup table, so supporting a new event type is a data change rather
// than a control-flow change.
type Engine struct {
	store SubscriptionStore
	log   *slog.Logger
}

// NewEngine creates a transition engine writing to the given store.
func NewEngine(store SubscriptionStore, log *slog.Logger) *Engine {
	if store == nil {
		panic("billing: SubscriptionStore is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, log: log}
}

// creationEvents are the event types that may create the subscription
// row. All other known events require an existing row resolved by the
// provider's customer ID.
var creationEvents = map[EventType]bool{
	EventCheckoutCompleted:   true,
	EventSubscriptionCreated: true,
}

var knownEvents = map[EventType]bool{
	EventCheckoutCompleted:    true,
	EventSubscriptionCreated:  true,
	EventSubscriptionUpdated:  true,
	EventSubscriptionRenewed:  true,
	EventSubscriptionCanceled: true,
	EventPaymentFailed:        true,
}

// Apply runs the state transition for a single event and upserts the
// result. It returns ErrEventIgnored for events the engine deliberately
// does not act on: unknown types, stale deliveries, and events with no
// transition from the current state. Callers record ignored events in
// the ledger and acknowledge them so the provider stops retrying.
func (e *Engine) Apply(ctx context.Context, ev *VerifiedEvent) error {
	if !knownEvents[ev.Type] {
		return fmt.Errorf("%w: unsupported event type %q", ErrEventIgnored, ev.ProviderEvent)
	}

	sub, err := e.resolve(ctx, ev)
	if err != nil {
		return err
	}

	// Reject deliveries older than the newest applied event for this
	// subscription, so a redelivered update cannot undo a newer
	// cancellation.
	if sub.StaleFor(ev.OccurredAt) {
		return fmt.Errorf("%w: %s occurred before last applied event", ErrEventIgnored, ev.ID())
	}

	machine, err := statemachine.New(
		statemachine.StringState(string(sub.Status)),
		statemachine.WithTransitions(transitionTable()),
	)
	if err != nil {
		return fmt.Errorf("failed to build transition table: %w", err)
	}

	if err := machine.Fire(ctx, statemachine.StringEvent(string(ev.Type)), ev); err != nil {
		if statemachine.IsNoTransitionAvailableError(err) || statemachine.IsTransitionRejectedError(err) {
			return fmt.Errorf("%w: no transition from %s on %s", ErrEventIgnored, sub.Status, ev.Type)
		}
		return err
	}

	next := Status(machine.Current().Name())

	// subscription.updated carries the provider-reported status; apply
	// it as long as it does not resurrect or cancel the subscription.
	// Cancellation only ever happens through its own event type.
	if ev.Type == EventSubscriptionUpdated {
		switch ev.Status {
		case StatusTrialing, StatusActive, StatusPastDue:
			next = ev.Status
		}
	}

	e.mutate(sub, ev, next)

	if sub.CustomerID == "" {
		return fmt.Errorf("%w: event %s carries no customer ID", ErrInvalidWebhookPayload, ev.ID())
	}

	if err := e.store.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("failed to persist subscription: %w", err)
	}

	e.log.InfoContext(ctx, "subscription transition applied",
		slog.String("event_id", ev.ID()),
		slog.String("user_id", sub.UserID.String()),
		slog.String("status", string(sub.Status)),
	)
	return nil
}

// resolve loads the subscription the event applies to. Creation events
// resolve by the internal user ID round-tripped through checkout
// metadata and may start from a blank row; all other events resolve by
// the provider's customer ID and require the row to exist.
func (e *Engine) resolve(ctx context.Context, ev *VerifiedEvent) (*Subscription, error) {
	if creationEvents[ev.Type] {
		userID, err := uuid.Parse(ev.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid user ID in event metadata: %w", ErrInvalidWebhookPayload, err)
		}

		sub, err := e.store.Get(ctx, userID)
		switch {
		case err == nil:
			return sub, nil
		case errors.Is(err, ErrSubscriptionNotFound):
			return &Subscription{UserID: userID, Status: StatusNone}, nil
		default:
			return nil, err
		}
	}

	if ev.CustomerID == "" {
		return nil, fmt.Errorf("%w: event %s carries no customer ID", ErrInvalidWebhookPayload, ev.ID())
	}

	// Out-of-order delivery before the originating checkout-completed
	// event surfaces ErrSubscriptionNotFound here; the boundary maps it
	// to a retryable 500 so the provider redelivers later.
	return e.store.GetByCustomerID(ctx, ev.CustomerID)
}

// mutate applies the event payload and the computed status to the
// subscription row.
func (e *Engine) mutate(sub *Subscription, ev *VerifiedEvent, next Status) {
	now := time.Now().UTC()

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.Status = next
	if ev.CustomerID != "" {
		sub.CustomerID = ev.CustomerID
	}
	if ev.SubscriptionID != "" {
		sub.ProviderSubID = ev.SubscriptionID
	}
	if ev.TierID != "" {
		sub.TierID = ev.TierID
	}
	if ev.BillingCycle.Valid() {
		sub.BillingCycle = ev.BillingCycle
	}
	if ev.CurrentPeriodEnd != nil {
		periodEnd := ev.CurrentPeriodEnd.UTC()
		sub.CurrentPeriodEnd = &periodEnd
	}
	if !ev.OccurredAt.IsZero() {
		occurred := ev.OccurredAt.UTC()
		sub.LastEventAt = &occurred
	}

	switch {
	case next == StatusCanceled && sub.CancelledAt == nil:
		sub.CancelledAt = &now
	case next != StatusCanceled:
		// Re-subscription after cancellation clears the tombstone.
		sub.CancelledAt = nil
	}

	sub.UpdatedAt = now
}

var (
	stateNone     = statemachine.StringState(string(StatusNone))
	stateTrialing = statemachine.StringState(string(StatusTrialing))
	stateActive   = statemachine.StringState(string(StatusActive))
	statePastDue  = statemachine.StringState(string(StatusPastDue))
	stateCanceled = statemachine.StringState(string(StatusCanceled))

	eventCheckout = statemachine.StringEvent(string(EventCheckoutCompleted))
	eventCreated  = statemachine.StringEvent(string(EventSubscriptionCreated))
	eventUpdated  = statemachine.StringEvent(string(EventSubscriptionUpdated))
	eventRenewed  = statemachine.StringEvent(string(EventSubscriptionRenewed))
	eventCanceled = statemachine.StringEvent(string(EventSubscriptionCanceled))
	eventPayFail  = statemachine.StringEvent(string(EventPaymentFailed))
)

// startsTrial passes when the provider reports the new subscription in
// its trial period. Ordering matters: the trialing transition is listed
// before the active one, and the first transition with passing guards
// wins.
func startsTrial(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
	ev, ok := data.(*VerifiedEvent)
	return ok && ev.Status == StatusTrialing
}

// transitionTable returns the full subscription lifecycle:
//
//	none|canceled|past_due -> trialing|active   on checkout.completed, subscription.created
//	trialing|past_due      -> active            on subscription.renewed
//	active                 -> active            on subscription.renewed (period rollover)
//	active|trialing        -> past_due          on payment.failed
//	active|trialing|past_due -> canceled        on subscription.canceled
//	trialing|active|past_due self-transition    on subscription.updated
//
// There is deliberately no transition out of canceled on
// subscription.updated: only a fresh checkout revives a canceled
// subscription.
func transitionTable() []statemachine.TransitionDef {
	var defs []statemachine.TransitionDef

	for _, from := range []statemachine.StringState{stateNone, stateCanceled, statePastDue} {
		for _, event := range []statemachine.StringEvent{eventCheckout, eventCreated} {
			defs = append(defs,
				statemachine.TransitionDef{From: from, To: stateTrialing, Event: event, Guards: []statemachine.Guard{startsTrial}},
				statemachine.TransitionDef{From: from, To: stateActive, Event: event},
			)
		}
	}

	defs = append(defs,
		statemachine.TransitionDef{From: stateTrialing, To: stateActive, Event: eventRenewed},
		statemachine.TransitionDef{From: statePastDue, To: stateActive, Event: eventRenewed},
		statemachine.TransitionDef{From: stateActive, To: stateActive, Event: eventRenewed},

		statemachine.TransitionDef{From: stateActive, To: statePastDue, Event: eventPayFail},
		statemachine.TransitionDef{From: stateTrialing, To: statePastDue, Event: eventPayFail},

		statemachine.TransitionDef{From: stateActive, To: stateCanceled, Event: eventCanceled},
		statemachine.TransitionDef{From: stateTrialing, To: stateCanceled, Event: eventCanceled},
		statemachine.TransitionDef{From: statePastDue, To: stateCanceled, Event: eventCanceled},

		statemachine.TransitionDef{From: stateTrialing, To: stateTrialing, Event: eventUpdated},
		statemachine.TransitionDef{From: stateActive, To: stateActive, Event: eventUpdated},
		statemachine.TransitionDef{From: statePastDue, To: statePastDue, Event: eventUpdated},
	)

	return defs
}
