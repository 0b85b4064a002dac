package platform

import (
	"log/slog"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/registry"
)

// options holds the internal configuration for a Strata engine.
type options struct {
	store     core.Store
	logger    *slog.Logger
	adapter   string
	config    map[string]any
	codecs    map[string]any
	factories registry.Factories
}

// Option defines a functional option for configuring Strata.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:   "fs",
		config:    make(map[string]any),
		codecs:    make(map[string]any),
		factories: make(registry.Factories),
	}
}

// WithCodec registers a group file codec for a specific extension.
// The codec must implement the adapter's codec interface (e.g. fs.Codec);
// validation happens at runtime during Open.
func WithCodec(ext string, c any) Option {
	return func(o *options) {
		o.codecs[ext] = c
	}
}

// WithFormat sets the extension used for groups named without one (e.g. ".yaml").
func WithFormat(ext string) Option {
	return func(o *options) {
		o.config["default_ext"] = ext
	}
}

// WithTag sets the struct tag key scanned for persistable fields. Defaults to "persist".
func WithTag(tag string) Option {
	return func(o *options) {
		o.config["tag"] = tag
	}
}

// WithFactory registers a constructor for asset fields of type T.
func WithFactory[T any](fn func() T) Option {
	return func(o *options) {
		registry.RegisterFactory(o.factories, fn)
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithMustExist ensures the data directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithLogger sets the logger for the engine and the store.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore allows injecting a custom storage adapter (e.g. an in-memory one for tests).
// If provided, the default filesystem adapter will be skipped.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAdapter allows specifying the storage adapter to use by name (e.g. "fs").
// Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithSystemDir allows specifying the hidden directory name (e.g. ".strata").
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.config["system_dir"] = name
	}
}

// WithWatcherErrorHandler registers a callback for errors raised while watching the store.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. Save and Delete return ErrReadOnly.
// 2. The data directory is never created.
// 3. The dev sandbox is bypassed (uses the real path).
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or `go test`.
// By default (true), Strata re-roots the data directory into a temporary one so a
// development run cannot overwrite real saves.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}
