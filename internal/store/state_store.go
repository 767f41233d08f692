package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mentora/mentora/internal/auth"
)

const statePrefix = "oauth:state:"

// StateStore keeps one-time OAuth state tokens in Redis. Expiry is delegated
// to the key TTL; consumption uses GETDEL so two concurrent callbacks with the
// same state cannot both pass.
type StateStore struct {
	client redis.UniversalClient
}

// NewStateStore returns a Redis-backed state store.
func NewStateStore(client redis.UniversalClient) *StateStore {
	return &StateStore{client: client}
}

// Store records a state token with the given TTL.
func (s *StateStore) Store(ctx context.Context, state string, ttl time.Duration) error {
	if err := s.client.Set(ctx, statePrefix+state, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store oauth state: %w", err)
	}
	return nil
}

// Consume atomically removes a state token, returning ErrStateNotFound when
// it is absent or already consumed.
func (s *StateStore) Consume(ctx context.Context, state string) error {
	if err := s.client.GetDel(ctx, statePrefix+state).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.ErrStateNotFound
		}
		return fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return nil
}
