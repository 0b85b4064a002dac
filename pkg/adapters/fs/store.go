package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/strata/pkg/core"
)

// DefaultSystemDir holds the group index inside the store directory.
const DefaultSystemDir = ".strata"

// Config holds the configuration for the filesystem store.
type Config struct {
	Path         string
	MustExist    bool
	ReadOnly     bool
	Logger       *slog.Logger
	SystemDir    string           // e.g. ".strata"
	DefaultExt   string           // extension used when a group name has none (default ".json")
	Codecs       map[string]Codec // extra or replacement codecs keyed by extension
	ErrorHandler func(error)      // receives watcher errors
}

// Store implements core.Store with one file per group under a directory.
//
// A group name is a slash-separated path relative to the store directory. Its
// extension selects the codec; a name without a known extension gets DefaultExt.
type Store struct {
	Path   string
	config Config
	codecs map[string]Codec
	cache  *cache

	mu            sync.RWMutex
	watcherActive bool
	lastEvent     *time.Time
}

// NewStore creates a new filesystem-backed store.
func NewStore(config Config) *Store {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.DefaultExt == "" {
		config.DefaultExt = ".json"
	}

	codecs := DefaultCodecs()
	for ext, c := range config.Codecs {
		codecs[ext] = c
	}

	return &Store{
		Path:   config.Path,
		config: config,
		codecs: codecs,
		cache:  newCache(config.Path, config.SystemDir),
	}
}

// Initialize creates the store directory unless it must already exist, then removes
// temp files left behind by interrupted writes. Read-only stores are never modified.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist || s.config.ReadOnly {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", s.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", s.Path)
		}
	} else if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if s.config.ReadOnly {
		return nil
	}

	removed, err := removeStaleTemps(s.Path, s.config.SystemDir)
	if err != nil {
		s.logger().Warn("failed to clean interrupted writes", "error", err)
	} else if len(removed) > 0 {
		s.logger().Info("removed interrupted writes", "files", removed)
	}
	return nil
}

// Save encodes records with the group's codec and replaces the group file atomically.
func (s *Store) Save(ctx context.Context, group string, records []core.Record) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}

	rel, codec, err := s.resolve(group)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(s.Path, filepath.FromSlash(rel))

	data, err := codec.Encode(records)
	if err != nil {
		return fmt.Errorf("failed to encode group %s: %w", group, err)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := writeFileAtomic(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if info, err := os.Stat(fullPath); err == nil {
		s.remember(rel, records, info.ModTime())
	}
	return nil
}

// Load reads and decodes the group file.
// It returns core.ErrNotFound when the file does not exist and wraps
// core.ErrCorruptGroup when it cannot be decoded.
func (s *Store) Load(ctx context.Context, group string) ([]core.Record, error) {
	rel, codec, err := s.resolve(group)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.Path, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, group)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := codec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrCorruptGroup, group, err)
	}

	if info, err := f.Stat(); err == nil {
		s.remember(rel, records, info.ModTime())
	}
	return records, nil
}

// List returns the group files under the store, sorted, optionally filtered by a
// doublestar pattern such as "saves/**/*.json".
func (s *Store) List(ctx context.Context, pattern string) ([]string, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	var groups []string
	err := filepath.WalkDir(s.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == s.config.SystemDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), TempFilePrefix) {
			return nil
		}
		if _, ok := s.codecs[filepath.Ext(d.Name())]; !ok {
			return nil
		}

		rel, err := filepath.Rel(s.Path, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, rel); !ok {
				return nil
			}
		}
		groups = append(groups, rel)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	slices.Sort(groups)
	return groups, nil
}

// Delete removes every group file matching pattern. An empty pattern is refused;
// use "**" to clear the store.
func (s *Store) Delete(ctx context.Context, pattern string) ([]string, error) {
	if s.config.ReadOnly {
		return nil, core.ErrReadOnly
	}
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", core.ErrInvalidGroup)
	}

	groups, err := s.List(ctx, pattern)
	if err != nil {
		return nil, err
	}

	var removed []string
	var errs []error
	for _, g := range groups {
		if err := os.Remove(filepath.Join(s.Path, filepath.FromSlash(g))); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		s.cache.Delete(g)
		removed = append(removed, g)
	}

	if err := s.cache.Save(); err != nil && s.config.Logger != nil {
		s.config.Logger.Warn("failed to save group index", "error", err)
	}
	return removed, errors.Join(errs...)
}

// GroupInfo summarizes a stored group.
type GroupInfo struct {
	Group        string
	Records      int
	Owners       []string
	LastModified time.Time
}

// Describe lists groups matching pattern with their record counts and owners.
//
// Strategy:
//  1. Load the group index from disk.
//  2. For each group file, use the index entry when its mtime matches (FAST).
//  3. Otherwise decode the file and refresh the entry.
//  4. Prune vanished groups and save the index back.
func (s *Store) Describe(ctx context.Context, pattern string) ([]GroupInfo, error) {
	if err := s.cache.Load(); err != nil && s.config.Logger != nil {
		s.config.Logger.Warn("failed to load group index", "error", err)
	}

	groups, err := s.List(ctx, pattern)
	if err != nil {
		return nil, err
	}

	infos := make([]GroupInfo, 0, len(groups))
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		seen[g] = true
		info, err := os.Stat(filepath.Join(s.Path, filepath.FromSlash(g)))
		if err != nil {
			return nil, err
		}

		entry, hit := s.cache.Get(g, info.ModTime())
		if !hit {
			if _, err := s.Load(ctx, g); err != nil {
				return nil, err
			}
			entry, _ = s.cache.Get(g, info.ModTime())
		}
		if entry == nil {
			entry = &indexEntry{Group: g, LastModified: info.ModTime()}
		}

		infos = append(infos, GroupInfo{
			Group:        g,
			Records:      entry.Records,
			Owners:       entry.Owners,
			LastModified: entry.LastModified,
		})
	}

	if pattern == "" {
		s.cache.Prune(seen)
	}
	if !s.config.ReadOnly {
		if err := s.cache.Save(); err != nil && s.config.Logger != nil {
			s.config.Logger.Warn("failed to save group index", "error", err)
		}
	}
	return infos, nil
}

// remember records a group summary in the index (in memory; persisted by Describe/Delete).
func (s *Store) remember(rel string, records []core.Record, mtime time.Time) {
	var owners []string
	for _, r := range records {
		if !slices.Contains(owners, r.Owner) {
			owners = append(owners, r.Owner)
		}
	}
	s.cache.Set(rel, &indexEntry{
		Group:        rel,
		Records:      len(records),
		Owners:       owners,
		LastModified: mtime,
	})
}

// resolve maps a group name to a file path relative to the store and its codec.
func (s *Store) resolve(group string) (string, Codec, error) {
	if group == "" {
		return "", nil, fmt.Errorf("%w: empty name", core.ErrInvalidGroup)
	}
	if filepath.IsAbs(group) || strings.HasPrefix(group, "/") {
		return "", nil, fmt.Errorf("%w: %s is absolute", core.ErrInvalidGroup, group)
	}

	rel := filepath.ToSlash(filepath.Clean(filepath.FromSlash(group)))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", nil, fmt.Errorf("%w: %s escapes the store", core.ErrInvalidGroup, group)
	}
	if first, _, _ := strings.Cut(rel, "/"); first == s.config.SystemDir {
		return "", nil, fmt.Errorf("%w: %s is reserved", core.ErrInvalidGroup, group)
	}

	codec, ok := s.codecs[filepath.Ext(rel)]
	if !ok {
		rel += s.config.DefaultExt
		codec, ok = s.codecs[s.config.DefaultExt]
		if !ok {
			return "", nil, fmt.Errorf("no codec for %s", s.config.DefaultExt)
		}
	}
	return rel, codec, nil
}

// Group returns the canonical name of group: cleaned, slash separated and carrying an
// extension. "progress", "./progress.json" and "progress.json" all name one file.
func (s *Store) Group(group string) (string, error) {
	rel, _, err := s.resolve(group)
	return rel, err
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.Path }

var (
	_ core.Store      = (*Store)(nil)
	_ core.GroupNamer = (*Store)(nil)
)
