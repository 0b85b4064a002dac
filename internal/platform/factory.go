package platform

import (
	"github.com/aretw0/strata/pkg/engine"
	"github.com/aretw0/strata/pkg/graph"
	"github.com/aretw0/strata/pkg/registry"
)

// New opens the store at uri and returns an engine persisting g into it.
//
//	eng, err := strata.New(scene, "./saves", strata.WithLogger(logger))
func New(g graph.Graph, uri string, opts ...Option) (*engine.Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	store, err := open(uri, o)
	if err != nil {
		return nil, err
	}

	tag, _ := o.config["tag"].(string)
	reg := registry.New(
		registry.WithTag(tag),
		registry.WithFactories(o.factories),
	)

	return engine.New(g, store,
		engine.WithLogger(o.logger),
		engine.WithRegistry(reg),
	), nil
}
