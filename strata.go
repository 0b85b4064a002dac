package strata

import (
	"log/slog"

	"github.com/aretw0/strata/internal/platform"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/engine"
	"github.com/aretw0/strata/pkg/graph"
)

// --- Types ---

// Engine saves and restores a graph.
type Engine = engine.Engine

// Scene is the default in-memory graph.
type Scene = graph.Scene

// Record is one persisted field.
type Record = core.Record

// Report summarizes a load pass.
type Report = core.Report

// NewScene creates an empty scene.
func NewScene() *Scene {
	return graph.NewScene()
}

// --- Configuration ---

// Option defines a functional option for configuring Strata.
type Option = platform.Option

// WithLogger sets the logger for the engine and the store.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore allows injecting a custom storage adapter.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithAdapter allows specifying the storage adapter to use by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithTag sets the struct tag key scanned for persistable fields.
func WithTag(tag string) Option {
	return platform.WithTag(tag)
}

// WithCodec registers a group file codec for an extension.
func WithCodec(ext string, c any) Option {
	return platform.WithCodec(ext, c)
}

// WithFormat sets the extension used for groups named without one.
func WithFormat(ext string) Option {
	return platform.WithFormat(ext)
}

// WithFactory registers a constructor for asset fields of type T.
func WithFactory[T any](fn func() T) Option {
	return platform.WithFactory(fn)
}

// WithReadOnly enables read-only mode.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist ensures the data directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithSystemDir allows specifying the hidden directory name (e.g. ".strata").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithWatcherErrorHandler registers a callback for watcher errors.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New creates an engine persisting g into the store at path.
func New(g graph.Graph, path string, opts ...Option) (*Engine, error) {
	return platform.New(g, path, opts...)
}

// Open prepares a store without an engine, e.g. for inspection tools.
func Open(path string, opts ...Option) (core.Store, error) {
	return platform.Open(path, opts...)
}

// --- Safety & Utils ---

// ResolveDataDir determines the actual data directory based on safety rules.
func ResolveDataDir(userPath string, forceTemp bool) string {
	return platform.ResolveDataDir(userPath, forceTemp)
}

// DefaultDataDir returns the per-user data directory for an application.
func DefaultDataDir(app string) (string, error) {
	return platform.DefaultDataDir(app)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindRoot looks upwards for a .strata directory or strata.yaml file.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
