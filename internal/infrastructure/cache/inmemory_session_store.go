package cache

import (
	"context"
	"sync"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/application/charging"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InMemorySessionStore keeps checkout sessions in process memory. It is
// suitable for single-instance deployments and tests; distributed
// deployments should use the Redis store.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]inMemorySession
}

type inMemorySession struct {
	session   charging.CheckoutSession
	expiresAt time.Time
}

// NewInMemorySessionStore creates an in-memory checkout session store
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[uuid.UUID]inMemorySession)}
}

// Save stores a checkout session with the given TTL
func (s *InMemorySessionStore) Save(ctx context.Context, session *charging.CheckoutSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.OrderID] = inMemorySession{
		session:   *session,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Find returns the checkout session of an order, or ErrNotFound when no
// session is pending or it has expired
func (s *InMemorySessionStore) Find(ctx context.Context, orderID uuid.UUID) (*charging.CheckoutSession, error) {
	s.mu.RLock()
	entry, ok := s.sessions[orderID]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, shared.ErrNotFound
	}
	session := entry.session
	return &session, nil
}

// Delete removes the checkout session of an order
func (s *InMemorySessionStore) Delete(ctx context.Context, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, orderID)
	return nil
}
