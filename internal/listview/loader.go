package listview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/linkdash/internal/domain"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
)

// ErrSuperseded is returned to a request whose session has since asked the
// same screen for a different query. Its rows are never rendered.
var ErrSuperseded = errors.New("query superseded by a newer one")

// Cache stores the last known rows of each list and per-kind invalidation
// counters. A miss is (nil, nil).
type Cache interface {
	GetCachedList(ctx context.Context, key string) ([]byte, error)
	CacheList(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Generation(ctx context.Context, kind string) (uint64, error)
	BumpGeneration(ctx context.Context, kind string) (uint64, error)
	FlushCache(ctx context.Context) error
}

// Observer is told the outcome of every lookup.
type Observer interface {
	ObserveCache(kind, result string)
}

// Load outcomes reported to the Observer.
const (
	ResultFetched    = "fetched"
	ResultStale      = "stale"
	ResultDiscarded  = "discarded"
	ResultSuperseded = "superseded"
	ResultError      = "error"
)

// Status of a list as seen by the renderer. A list still in flight has no
// server-side status: the page is only rendered once the fetch settles.
type Status string

const (
	StatusReady Status = "ready"
	StatusError Status = "error"
)

// Result is what a screen renders.
type Result[T any] struct {
	Query  Query
	Rows   T
	Status Status
	Err    error
	// Stale is set when Rows are not the answer to this fetch: the refresh
	// failed and the last stored rows are shown, or an invalidation raced it.
	Stale bool
}

// Tag binds a load to the session it runs for. Coalescing never crosses
// scopes, so every session reaches the backend with its own token. Screen
// and Latest are set for navigations that record their query.
type Tag struct {
	Scope  string
	Screen string
	Latest func(ctx context.Context) (string, error)
}

func (t *Tag) scope() string {
	if t == nil {
		return ""
	}
	return t.Scope
}

type Options struct {
	TTL           time.Duration
	Invalidations Invalidations
	Observer      Observer
}

// Registry owns the cache, the invalidation map and request coalescing.
type Registry struct {
	cache  Cache
	opts   Options
	logger logger.Logger
	group  singleflight.Group
}

func NewRegistry(cache Cache, opts Options, log logger.Logger) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Invalidations == nil {
		opts.Invalidations = DefaultInvalidations
	}
	return &Registry{cache: cache, opts: opts, logger: log}
}

func (r *Registry) observe(kind domain.EntityKind, result string) {
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveCache(string(kind), result)
	}
}

// entry is the cached envelope: rows plus the generation they were fetched under.
type entry struct {
	Gen  uint64          `json:"gen"`
	Rows json.RawMessage `json:"rows"`
}

// Invalidate marks every list the mutation could affect as stale. It must
// complete before the response that triggers the re-fetch is sent.
func (r *Registry) Invalidate(ctx context.Context, m MutationKind) error {
	kinds, ok := r.opts.Invalidations.Kinds(m)
	if !ok {
		return fmt.Errorf("no invalidation declared for mutation %q", m)
	}
	for _, k := range kinds {
		if _, err := r.cache.BumpGeneration(ctx, string(k)); err != nil {
			return fmt.Errorf("failed to invalidate %s lists: %w", k, err)
		}
	}
	r.logger.Debug("lists invalidated",
		logger.String("mutation", string(m)),
		logger.Int("kinds", len(kinds)))
	return nil
}

// Purge drops every cached list.
func (r *Registry) Purge(ctx context.Context) error {
	return r.cache.FlushCache(ctx)
}

func (r *Registry) lookup(ctx context.Context, key string) *entry {
	data, err := r.cache.GetCachedList(ctx, key)
	if err != nil {
		r.logger.Warn("list cache read failed", logger.String("key", key), logger.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		r.logger.Warn("corrupt list cache entry", logger.String("key", key), logger.Error(err))
		return nil
	}
	return &e
}

// fetched is the coalesced outcome of one backend fetch.
type fetched struct {
	rows      json.RawMessage
	discarded bool
}

// Load fetches the rows of q. Every call reaches fetch, except concurrent
// loads of the same scope, key and generation which share one fetch. The
// stored entry is only the last known answer: it is shown, marked stale,
// when the fetch fails. Load never returns an error on its own: failures are
// carried in the Result so the screen can render prior rows next to the
// message.
func Load[T any](ctx context.Context, r *Registry, q Query, tag *Tag, fetch func(context.Context) (T, error)) Result[T] {
	res := Result[T]{Query: q}
	key := q.Key()

	gen, err := r.cache.Generation(ctx, string(q.Kind))
	if err != nil {
		r.logger.Warn("list generation read failed", logger.String("kind", string(q.Kind)), logger.Error(err))
	}

	v, ferr, _ := r.group.Do(fmt.Sprintf("%s|%s#%d", tag.scope(), key, gen), func() (any, error) {
		rows, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s rows: %w", q.Kind, err)
		}
		return &fetched{rows: raw, discarded: !r.store(ctx, q.Kind, key, gen, raw)}, nil
	})

	if ferr != nil {
		res.Status = StatusError
		res.Err = ferr
		if prior := r.lookup(ctx, key); prior != nil && json.Unmarshal(prior.Rows, &res.Rows) == nil {
			r.observe(q.Kind, ResultStale)
			res.Stale = true
			return res
		}
		r.observe(q.Kind, ResultError)
		return res
	}

	f := v.(*fetched)
	if tag != nil && tag.Latest != nil {
		latest, lerr := tag.Latest(ctx)
		if lerr == nil && latest != "" && latest != key {
			r.observe(q.Kind, ResultSuperseded)
			res.Status = StatusError
			res.Err = ErrSuperseded
			return res
		}
	}

	if err := json.Unmarshal(f.rows, &res.Rows); err != nil {
		res.Status = StatusError
		res.Err = fmt.Errorf("failed to decode %s rows: %w", q.Kind, err)
		r.observe(q.Kind, ResultError)
		return res
	}

	res.Status = StatusReady
	res.Stale = f.discarded
	if f.discarded {
		r.observe(q.Kind, ResultDiscarded)
	} else {
		r.observe(q.Kind, ResultFetched)
	}
	return res
}

// store keeps rows as the last known answer unless an invalidation happened
// while they were being fetched. It reports whether the rows were stored.
func (r *Registry) store(ctx context.Context, kind domain.EntityKind, key string, gen uint64, raw json.RawMessage) bool {
	now, err := r.cache.Generation(ctx, string(kind))
	if err != nil || now != gen {
		return false
	}
	data, err := json.Marshal(entry{Gen: gen, Rows: raw})
	if err != nil {
		return false
	}
	if err := r.cache.CacheList(ctx, key, data, r.opts.TTL); err != nil {
		r.logger.Warn("list cache write failed", logger.String("key", key), logger.Error(err))
	}
	return true
}
