package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/linkdash/internal/logger"
)

// DefaultDebounce groups the burst of events an editor save produces.
const DefaultDebounce = 500 * time.Millisecond

// Catalog is what the reloader refreshes.
type Catalog interface {
	Reload() error
	OverrideDir() string
}

// LocaleReloader keeps the translation catalog current: once at start, on a
// ticker, on manual trigger and when the override directory changes.
type LocaleReloader struct {
	catalog       Catalog
	logger        logger.Logger
	interval      time.Duration
	debounce      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
	watcher       *fsnotify.Watcher
	wg            sync.WaitGroup
}

func NewLocaleReloader(
	catalog Catalog,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *LocaleReloader {
	return &LocaleReloader{
		catalog:       catalog,
		logger:        log,
		interval:      interval,
		debounce:      DefaultDebounce,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the catalog and starts the refresh loop. A broken override
// directory at start is fatal; later failures keep the previous catalog.
func (lr *LocaleReloader) Start(ctx context.Context) error {
	if err := lr.Reload(); err != nil {
		return fmt.Errorf("initial locale load failed: %w", err)
	}

	var events <-chan fsnotify.Event
	var errs <-chan error
	if dir := lr.catalog.OverrideDir(); dir != "" {
		w, err := watch(dir)
		if err != nil {
			lr.logger.Warn("locale override directory not watched, relying on the ticker",
				logger.String("dir", dir),
				logger.Error(err))
		} else {
			lr.watcher = w
			events, errs = w.Events, w.Errors
		}
	}

	lr.wg.Add(1)
	go func() {
		defer lr.wg.Done()
		var tick <-chan time.Time
		if lr.interval > 0 {
			ticker := time.NewTicker(lr.interval)
			defer ticker.Stop()
			tick = ticker.C
		}
		var debounce <-chan time.Time
		for {
			select {
			case <-tick:
				lr.reloadLogged("periodic")
			case <-lr.manualTrigger:
				lr.logger.Info("manual locale reload triggered")
				lr.reloadLogged("manual")
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if ev.Op&fsnotify.Create != 0 {
					// a new language directory
					if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
						_ = lr.watcher.Add(ev.Name)
					}
				}
				debounce = time.After(lr.debounce)
			case <-debounce:
				debounce = nil
				lr.reloadLogged("override changed")
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				lr.logger.Warn("locale watcher error", logger.Error(err))
			case <-lr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop ends the loop and closes the watcher. Safe to call twice.
func (lr *LocaleReloader) Stop() {
	lr.stopOnce.Do(func() { close(lr.stopCh) })
	lr.wg.Wait()
	if lr.watcher != nil {
		_ = lr.watcher.Close()
	}
}

func (lr *LocaleReloader) Reload() error {
	return lr.catalog.Reload()
}

func (lr *LocaleReloader) reloadLogged(reason string) {
	if err := lr.Reload(); err != nil {
		lr.logger.Error("failed to reload locales, keeping the previous ones",
			logger.String("reason", reason),
			logger.Error(err))
	}
}

// watch adds dir and its language subdirectories to a new watcher.
func watch(dir string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.Add(filepath.Join(dir, e.Name())); err != nil {
				_ = w.Close()
				return nil, err
			}
		}
	}
	return w, nil
}
