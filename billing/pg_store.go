package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/billingkit/pkg/pg"
)

// PGSubscriptionStore is the PostgreSQL-backed SubscriptionStore.
// user_id is the primary key, so the upsert is a single-row
// INSERT ... ON CONFLICT and needs no explicit locking: only the
// transition engine ever writes here.
type PGSubscriptionStore struct {
	pool *pgxpool.Pool
}

// NewPGSubscriptionStore creates a store backed by the given pool.
func NewPGSubscriptionStore(pool *pgxpool.Pool) *PGSubscriptionStore {
	return &PGSubscriptionStore{pool: pool}
}

const subscriptionColumns = `user_id, customer_id, provider_sub_id, status, tier_id, billing_cycle,
	current_period_end, last_event_at, created_at, updated_at, cancelled_at`

func (s *PGSubscriptionStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID)
	return scanSubscription(row)
}

func (s *PGSubscriptionStore) GetByCustomerID(ctx context.Context, customerID string) (*Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE customer_id = $1`, customerID)
	return scanSubscription(row)
}

func (s *PGSubscriptionStore) Upsert(ctx context.Context, sub *Subscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			customer_id        = EXCLUDED.customer_id,
			provider_sub_id    = EXCLUDED.provider_sub_id,
			status             = EXCLUDED.status,
			tier_id            = EXCLUDED.tier_id,
			billing_cycle      = EXCLUDED.billing_cycle,
			current_period_end = EXCLUDED.current_period_end,
			last_event_at      = EXCLUDED.last_event_at,
			updated_at         = EXCLUDED.updated_at,
			cancelled_at       = EXCLUDED.cancelled_at`,
		sub.UserID, sub.CustomerID, sub.ProviderSubID, string(sub.Status), sub.TierID,
		string(sub.BillingCycle), sub.CurrentPeriodEnd, sub.LastEventAt,
		sub.CreatedAt, sub.UpdatedAt, sub.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	var sub Subscription
	var status, cycle string

	err := row.Scan(
		&sub.UserID, &sub.CustomerID, &sub.ProviderSubID, &status, &sub.TierID, &cycle,
		&sub.CurrentPeriodEnd, &sub.LastEventAt, &sub.CreatedAt, &sub.UpdatedAt, &sub.CancelledAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	sub.Status = Status(status)
	sub.BillingCycle = BillingCycle(cycle)
	return &sub, nil
}
