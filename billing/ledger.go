package billing

import (
	"context"
	"time"
)

// EventLedger records which logical provider events have already been
// applied. A row's presence is the sole definition of "already handled".
//
// MarkProcessed must be atomic under concurrent deliveries of the same
// event ID: exactly one caller succeeds, the others receive
// ErrEventAlreadyProcessed and must treat the event as a benign
// duplicate rather than an error.
type EventLedger interface {
	HasProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string, occurredAt time.Time) error
}
