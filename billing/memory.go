package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySubscriptionStore is an in-memory SubscriptionStore for tests
// and local development. It is safe for concurrent use but does not
// survive restarts; production deployments use the PostgreSQL store.
type MemorySubscriptionStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]Subscription
}

// NewMemorySubscriptionStore creates an empty in-memory store.
func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{subs: make(map[uuid.UUID]Subscription)}
}

func (s *MemorySubscriptionStore) Get(_ context.Context, userID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[userID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *MemorySubscriptionStore) GetByCustomerID(_ context.Context, customerID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.CustomerID == customerID {
			copied := sub
			return &copied, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *MemorySubscriptionStore) Upsert(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[sub.UserID] = *sub
	return nil
}

// Len returns the number of stored subscription rows.
func (s *MemorySubscriptionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// MemoryEventLedger is an in-memory EventLedger for tests and local
// development. The map insert under lock mirrors the unique-constraint
// atomicity of the durable ledger.
type MemoryEventLedger struct {
	mu     sync.Mutex
	events map[string]time.Time
}

// NewMemoryEventLedger creates an empty in-memory ledger.
func NewMemoryEventLedger() *MemoryEventLedger {
	return &MemoryEventLedger{events: make(map[string]time.Time)}
}

func (l *MemoryEventLedger) HasProcessed(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.events[eventID]
	return ok, nil
}

func (l *MemoryEventLedger) MarkProcessed(_ context.Context, eventID string, _ time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.events[eventID]; ok {
		return ErrEventAlreadyProcessed
	}
	l.events[eventID] = time.Now().UTC()
	return nil
}

// Len returns the number of recorded events.
func (l *MemoryEventLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
