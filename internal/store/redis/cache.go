package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheList stores a list payload
func (s *Store) CacheList(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, CacheKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache list: %w", err)
	}
	return nil
}

// GetCachedList retrieves a cached list payload. A miss returns nil, nil.
func (s *Store) GetCachedList(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, CacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get cached list: %w", err)
	}
	return data, nil
}

// Generation returns the invalidation counter of an entity kind (0 if never bumped)
func (s *Store) Generation(ctx context.Context, kind string) (uint64, error) {
	n, err := s.client.Get(ctx, GenerationKey(kind)).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get generation: %w", err)
	}
	return n, nil
}

// BumpGeneration invalidates every cached list of an entity kind
func (s *Store) BumpGeneration(ctx context.Context, kind string) (uint64, error) {
	n, err := s.client.Incr(ctx, GenerationKey(kind)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump generation: %w", err)
	}
	return uint64(n), nil
}

// FlushCache removes all cached lists. Generations are kept so that a list
// fetched before the flush can never be stored as current afterwards.
func (s *Store) FlushCache(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, KeyPrefixCache+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush cache: %w", err)
	}
	return nil
}
