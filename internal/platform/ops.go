package platform

import (
	"context"
	"fmt"

	"github.com/aretw0/strata/pkg/adapters/fs"
	"github.com/aretw0/strata/pkg/core"
)

// Open prepares the store for the given URI.
// The URI is adapter-specific (a directory for "fs").
func Open(uri string, opts ...Option) (core.Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return open(uri, o)
}

func open(uri string, o *options) (core.Store, error) {
	if o.store != nil {
		return o.store, nil
	}

	var store core.Store
	var err error

	switch o.adapter {
	case "fs":
		store, err = openFS(uri, o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// openFS handles the configuration of the filesystem adapter.
func openFS(path string, o *options) (core.Store, error) {
	tempDir, _ := o.config["temp_dir"].(bool)
	mustExist, _ := o.config["must_exist"].(bool)
	isReadOnly, _ := o.config["read_only"].(bool)
	systemDir, _ := o.config["system_dir"].(string)
	defaultExt, _ := o.config["default_ext"].(string)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))

	devSafety := true
	if val, ok := o.config["dev_safety"].(bool); ok {
		devSafety = val
	}

	// Read-only stores cannot damage anything, so they skip the sandbox.
	bypassSafety := isReadOnly || !devSafety
	useTemp := tempDir || (IsDevRun() && !bypassSafety)
	resolved := ResolveDataDir(path, useTemp)

	if o.logger != nil {
		if useTemp {
			o.logger.Warn("running in SAFE MODE (dev sandbox)", "original_path", path, "resolved_path", resolved)
		} else if IsDevRun() && !isReadOnly {
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
		}
	}

	codecs := make(map[string]fs.Codec, len(o.codecs))
	for ext, c := range o.codecs {
		codec, ok := c.(fs.Codec)
		if !ok {
			if o.logger != nil {
				o.logger.Warn("invalid codec type ignored", "ext", ext, "expected", "fs.Codec")
			}
			return nil, fmt.Errorf("codec for %s must implement fs.Codec", ext)
		}
		codecs[ext] = codec
	}

	return fs.NewStore(fs.Config{
		Path:         resolved,
		MustExist:    mustExist,
		ReadOnly:     isReadOnly,
		Logger:       o.logger,
		SystemDir:    systemDir,
		DefaultExt:   defaultExt,
		Codecs:       codecs,
		ErrorHandler: errorHandler,
	}), nil
}
