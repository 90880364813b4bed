package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store handles Redis operations for sessions and the list cache
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Name identifies the backend in /infra
func (s *Store) Name() string { return "redis" }

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveSession stores an encoded session record with a sliding TTL
func (s *Store) SaveSession(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, SessionKey(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession retrieves an encoded session record. A miss returns nil, nil.
func (s *Store) GetSession(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, SessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return data, nil
}

// maxSessionRetries bounds optimistic retries of UpdateSession
const maxSessionRetries = 5

// UpdateSession rewrites a session record in a WATCH/MULTI transaction so
// concurrent requests of one session never drop each other's writes. fn
// receives nil on a miss and may run more than once.
func (s *Store) UpdateSession(ctx context.Context, id string, ttl time.Duration, fn func([]byte) ([]byte, error)) error {
	key := SessionKey(id)
	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				return err
			}
			cur = nil
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxSessionRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("failed to update session: %w", err)
		}
	}
	return fmt.Errorf("failed to update session: %w", redis.TxFailedErr)
}

// DeleteSession removes a session record
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, SessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
