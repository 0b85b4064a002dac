package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/strata/pkg/core"
)

// DebounceInterval coalesces bursts of writes to the same group into one event.
const DebounceInterval = 50 * time.Millisecond

// Watch reports group files created, modified or deleted under the store, optionally
// filtered by a doublestar pattern. Bursts on the same group are coalesced.
// The returned channel is closed once ctx is cancelled.
func (s *Store) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := s.recursiveAdd(watcher, s.Path); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	events := make(chan core.Event, 16)
	w := &storeWatcher{
		store:     s,
		pattern:   pattern,
		events:    events,
		watcher:   watcher,
		debouncer: newDebouncer(DebounceInterval),
	}
	s.setWatcherActive(true)

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		if s.config.ErrorHandler != nil {
			s.config.ErrorHandler(fmt.Errorf("watcher: %w", err))
		} else {
			s.logger().Error("watcher stopped", "error", err)
		}
	}))

	return events, nil
}

type storeWatcher struct {
	store     *Store
	pattern   string
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
}

func (w *storeWatcher) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			// Stack traces only when debug logging is on.
			if w.store.logger().Enabled(ctx, slog.LevelDebug) {
				w.store.logger().Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.store.logger().Error("watcher panic", "error", err)
			}
		}
		w.debouncer.stopAndWait(5 * time.Second)
		close(w.events)
		w.store.setWatcherActive(false)
	}()
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.handle(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.store.logger().Error("fsnotify error", "error", wErr)
			if w.store.config.ErrorHandler != nil {
				w.store.config.ErrorHandler(wErr)
			}
		}
	}
}

func (w *storeWatcher) handle(ctx context.Context, event fsnotify.Event) {
	s := w.store
	s.logger().Debug("event received", "name", event.Name, "op", event.Op.String())

	// New directories are watched too so nested groups keep reporting.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := s.recursiveAdd(w.watcher, event.Name); err != nil {
				s.logger().Warn("failed to watch directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	group, ok := s.groupOf(event.Name)
	if !ok {
		return
	}
	if w.pattern != "" {
		if match, _ := doublestar.Match(w.pattern, group); !match {
			return
		}
	}

	var eType core.EventType
	switch {
	case event.Has(fsnotify.Create):
		eType = core.EventCreate
	case event.Has(fsnotify.Write):
		eType = core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eType = core.EventDelete
	default:
		return
	}

	s.recordEvent()
	w.debouncer.add(core.Event{Type: eType, Group: group, Timestamp: time.Now().Unix()}, func(e core.Event) {
		// The channel may already be closed if shutdown timed out.
		defer func() { _ = recover() }()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

// groupOf maps an absolute event path to a group name, rejecting files the store
// does not own (temp files, the system directory, unknown extensions).
func (s *Store) groupOf(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, TempFilePrefix) {
		return "", false
	}
	if _, ok := s.codecs[filepath.Ext(base)]; !ok {
		return "", false
	}

	rel, err := filepath.Rel(s.Path, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	if first, _, _ := strings.Cut(rel, "/"); first == s.config.SystemDir {
		return "", false
	}
	return rel, true
}

func (s *Store) recursiveAdd(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == s.config.SystemDir {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// debouncer delays each event and drops it if a newer one for the same group arrives
// within the window. Only the latest event per group is emitted.
type debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	wg      sync.WaitGroup
	stopped bool
}

func newDebouncer(wait time.Duration) *debouncer {
	return &debouncer{wait: wait, timers: make(map[string]*time.Timer)}
}

func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if t, ok := d.timers[e.Group]; ok && t.Stop() {
		// The pending callback will never run.
		d.wg.Done()
	}

	d.wg.Add(1)
	d.timers[e.Group] = time.AfterFunc(d.wait, func() {
		defer d.wg.Done()
		emit(e)
	})
}

// stopAndWait cancels pending events and waits for callbacks already running.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for group, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, group)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

var _ core.Watchable = (*Store)(nil)
