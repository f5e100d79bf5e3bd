package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/billingkit/pkg/pg"
)

// PGEventLedger is the PostgreSQL-backed EventLedger. The primary-key
// constraint on event_id is the concurrency-control primitive: under
// racing deliveries of the same logical event, exactly one insert
// succeeds and every other caller observes the conflict.
type PGEventLedger struct {
	pool *pgxpool.Pool
}

// NewPGEventLedger creates a ledger backed by the given pool.
func NewPGEventLedger(pool *pgxpool.Pool) *PGEventLedger {
	return &PGEventLedger{pool: pool}
}

func (l *PGEventLedger) HasProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_webhook_events WHERE event_id = $1)`, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check event ledger: %w", err)
	}
	return exists, nil
}

func (l *PGEventLedger) MarkProcessed(ctx context.Context, eventID string, occurredAt time.Time) error {
	var occurred *time.Time
	if !occurredAt.IsZero() {
		utc := occurredAt.UTC()
		occurred = &utc
	}

	tag, err := l.pool.Exec(ctx, `
		INSERT INTO processed_webhook_events (event_id, occurred_at, processed_at)
		VALUES ($1, $2, now())
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, occurred,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrEventAlreadyProcessed
		}
		return fmt.Errorf("failed to commit event to ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventAlreadyProcessed
	}
	return nil
}

// Prune deletes ledger rows older than the retention window. Pruning is
// operational hygiene, not a functional requirement; run it from a
// periodic job.
func (l *PGEventLedger) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := l.pool.Exec(ctx,
		`DELETE FROM processed_webhook_events WHERE processed_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int64(olderThan.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune event ledger: %w", err)
	}
	return tag.RowsAffected(), nil
}
