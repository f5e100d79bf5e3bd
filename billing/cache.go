package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CachedSubscriptionStore is a read-through Redis cache in front of a
// SubscriptionStore. Checkout gating and portal lookups hit Get on
// every request; caching those reads keeps the hot path off the
// database. Writes invalidate, so webhook-driven transitions are
// visible on the next read.
//
// GetByCustomerID is a deliberate passthrough: it only runs on the
// webhook path, where correctness matters more than latency.
type CachedSubscriptionStore struct {
	inner SubscriptionStore
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedSubscriptionStore wraps inner with a Redis read cache.
// A zero ttl defaults to one minute.
func NewCachedSubscriptionStore(inner SubscriptionStore, rdb *redis.Client, ttl time.Duration) *CachedSubscriptionStore {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedSubscriptionStore{inner: inner, rdb: rdb, ttl: ttl}
}

func subscriptionCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("billing:subscription:%s", userID)
}

func (s *CachedSubscriptionStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	key := subscriptionCacheKey(userID)

	if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var sub Subscription
		if err := json.Unmarshal(raw, &sub); err == nil {
			return &sub, nil
		}
		// Corrupt cache entry; fall through to the source of truth.
		s.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		// Cache unavailability must not take down billing reads.
		return s.inner.Get(ctx, userID)
	}

	sub, err := s.inner.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(sub); err == nil {
		s.rdb.Set(ctx, key, raw, s.ttl)
	}
	return sub, nil
}

func (s *CachedSubscriptionStore) GetByCustomerID(ctx context.Context, customerID string) (*Subscription, error) {
	return s.inner.GetByCustomerID(ctx, customerID)
}

func (s *CachedSubscriptionStore) Upsert(ctx context.Context, sub *Subscription) error {
	if err := s.inner.Upsert(ctx, sub); err != nil {
		return err
	}
	s.rdb.Del(ctx, subscriptionCacheKey(sub.UserID))
	return nil
}
