package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkdash/internal/logger"
)

// Evictor is an in-memory store with expiring entries.
type Evictor interface {
	Evict() (sessions, lists int)
	SessionCount() int
}

// SessionGauge receives the live session count after every pass.
type SessionGauge interface {
	SetActiveSessions(n int)
}

// Janitor periodically drops expired sessions and cached lists from the
// in-memory store. Redis expires its own keys.
type Janitor struct {
	store    Evictor
	gauge    SessionGauge
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewJanitor creates a janitor. gauge may be nil.
func NewJanitor(store Evictor, gauge SessionGauge, log logger.Logger, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		store:    store,
		gauge:    gauge,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval.
func (j *Janitor) Start(ctx context.Context) error {
	j.Sweep()

	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.Sweep()
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

// Sweep runs a single eviction pass.
func (j *Janitor) Sweep() (sessions, lists int) {
	sessions, lists = j.store.Evict()
	if j.gauge != nil {
		j.gauge.SetActiveSessions(j.store.SessionCount())
	}

	if sessions+lists > 0 {
		j.logger.Info("evicted expired entries",
			logger.Int("sessions", sessions),
			logger.Int("lists", lists))
	} else {
		j.logger.Debug("nothing to evict")
	}
	return sessions, lists
}
