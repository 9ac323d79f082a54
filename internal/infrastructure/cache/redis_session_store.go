package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/application/charging"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "charging:session:"

// RedisSessionStore keeps checkout sessions in Redis so any instance can
// re-serve the redirect URL of an in-flight charge. Entries expire with the
// watchdog window; a session that outlived its charge is garbage either way.
type RedisSessionStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisSessionStore creates a Redis-backed checkout session store
func NewRedisSessionStore(cfg RedisConfig) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSessionStore{
		client:    client,
		keyPrefix: sessionKeyPrefix,
	}, nil
}

// NewRedisSessionStoreWithClient creates a store with an existing Redis
// client. This is useful for testing or when sharing a client across
// components.
func NewRedisSessionStoreWithClient(client *redis.Client, keyPrefix string) *RedisSessionStore {
	if keyPrefix == "" {
		keyPrefix = sessionKeyPrefix
	}
	return &RedisSessionStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Save stores a checkout session with the given TTL
func (s *RedisSessionStore) Save(ctx context.Context, session *charging.CheckoutSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout session: %w", err)
	}
	return s.client.Set(ctx, s.key(session.OrderID), payload, ttl).Err()
}

// Find returns the checkout session of an order, or ErrNotFound when no
// session is pending
func (s *RedisSessionStore) Find(ctx context.Context, orderID uuid.UUID) (*charging.CheckoutSession, error) {
	payload, err := s.client.Get(ctx, s.key(orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	var session charging.CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}
	return &session, nil
}

// Delete removes the checkout session of an order
func (s *RedisSessionStore) Delete(ctx context.Context, orderID uuid.UUID) error {
	return s.client.Del(ctx, s.key(orderID)).Err()
}

// Close closes the underlying Redis client
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

func (s *RedisSessionStore) key(orderID uuid.UUID) string {
	return s.keyPrefix + orderID.String()
}
