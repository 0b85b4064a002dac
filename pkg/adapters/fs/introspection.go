package fs

import (
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string     `json:"path"`
	SystemDir     string     `json:"system_dir"`
	DefaultExt    string     `json:"default_ext"`
	IndexSize     int        `json:"index_size"`
	ReadOnly      bool       `json:"read_only"`
	Codecs        []string   `json:"codecs"`
	WatcherActive bool       `json:"watcher_active"`
	LastEvent     *time.Time `json:"last_event,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codecs := make([]string, 0, len(s.codecs))
	for ext := range s.codecs {
		codecs = append(codecs, ext)
	}
	slices.Sort(codecs)

	return StoreState{
		Path:          s.Path,
		SystemDir:     s.config.SystemDir,
		DefaultExt:    s.config.DefaultExt,
		IndexSize:     s.cache.Len(),
		ReadOnly:      s.config.ReadOnly,
		Codecs:        codecs,
		WatcherActive: s.watcherActive,
		LastEvent:     s.lastEvent,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)

func (s *Store) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}

func (s *Store) recordEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.lastEvent = &now
}

func (s *Store) logger() *slog.Logger {
	if s.config.Logger != nil {
		return s.config.Logger
	}
	return slog.New(slog.DiscardHandler)
}
