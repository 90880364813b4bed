package index

import (
	"context"
	"sync"
	"time"
)

// entry is a stored payload with its absolute expiry
type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryIndex keeps sessions and cached lists in process memory.
// It is used when no Redis address is configured; it has the same surface as
// the Redis store so callers do not care which one they got.
type MemoryIndex struct {
	mu        sync.RWMutex
	sessions  map[string]entry  // session ID -> encoded record
	lists     map[string]entry  // cache key -> encoded rows
	gens      map[string]uint64 // entity kind -> invalidation counter
	lastEvict time.Time         // timestamp of last eviction pass
	now       func() time.Time
}

// NewMemoryIndex creates a new memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		sessions: make(map[string]entry),
		lists:    make(map[string]entry),
		gens:     make(map[string]uint64),
		now:      time.Now,
	}
}

// Name identifies the backend in /infra
func (idx *MemoryIndex) Name() string { return "memory" }

// Ping always succeeds
func (idx *MemoryIndex) Ping(context.Context) error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (idx *MemoryIndex) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return idx.now().Add(ttl)
}

// ─────────────────────────────────────────────────────────────────
// Session methods
// ─────────────────────────────────────────────────────────────────

// SaveSession stores or replaces a session record
func (idx *MemoryIndex) SaveSession(_ context.Context, id string, data []byte, ttl time.Duration) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.sessions[id] = entry{data: clone(data), expiresAt: idx.expiry(ttl)}
	return nil
}

// GetSession returns a session record, or nil when absent or expired
func (idx *MemoryIndex) GetSession(_ context.Context, id string) ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	e, ok := idx.sessions[id]
	if !ok || e.expired(idx.now()) {
		return nil, nil
	}
	return clone(e.data), nil
}

// UpdateSession rewrites a session record under the index lock. fn receives
// nil when the record is absent or expired.
func (idx *MemoryIndex) UpdateSession(_ context.Context, id string, ttl time.Duration, fn func([]byte) ([]byte, error)) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var cur []byte
	if e, ok := idx.sessions[id]; ok && !e.expired(idx.now()) {
		cur = clone(e.data)
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	idx.sessions[id] = entry{data: clone(next), expiresAt: idx.expiry(ttl)}
	return nil
}

// DeleteSession removes a session record
func (idx *MemoryIndex) DeleteSession(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.sessions, id)
	return nil
}

// SessionCount returns the number of stored sessions, expired ones included
func (idx *MemoryIndex) SessionCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.sessions)
}

// ─────────────────────────────────────────────────────────────────
// List cache methods
// ─────────────────────────────────────────────────────────────────

// CacheList stores a list payload under its key
func (idx *MemoryIndex) CacheList(_ context.Context, key string, data []byte, ttl time.Duration) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.lists[key] = entry{data: clone(data), expiresAt: idx.expiry(ttl)}
	return nil
}

// GetCachedList returns a cached payload, or nil on miss
func (idx *MemoryIndex) GetCachedList(_ context.Context, key string) ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	e, ok := idx.lists[key]
	if !ok || e.expired(idx.now()) {
		return nil, nil
	}
	return clone(e.data), nil
}

// Generation returns the invalidation counter of an entity kind
func (idx *MemoryIndex) Generation(_ context.Context, kind string) (uint64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.gens[kind], nil
}

// BumpGeneration invalidates every cached list of an entity kind
func (idx *MemoryIndex) BumpGeneration(_ context.Context, kind string) (uint64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.gens[kind]++
	return idx.gens[kind], nil
}

// FlushCache drops all cached lists
func (idx *MemoryIndex) FlushCache(context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.lists = make(map[string]entry)
	return nil
}

// ListCount returns the number of cached lists
func (idx *MemoryIndex) ListCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.lists)
}

// ─────────────────────────────────────────────────────────────────
// Eviction
// ─────────────────────────────────────────────────────────────────

// Evict removes expired sessions and lists and returns how many were removed
func (idx *MemoryIndex) Evict() (sessions, lists int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	now := idx.now()
	for k, e := range idx.sessions {
		if e.expired(now) {
			delete(idx.sessions, k)
			sessions++
		}
	}
	for k, e := range idx.lists {
		if e.expired(now) {
			delete(idx.lists, k)
			lists++
		}
	}
	idx.lastEvict = now
	return sessions, lists
}

// GetLastEvict returns the timestamp of the last eviction pass
func (idx *MemoryIndex) GetLastEvict() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastEvict
}
