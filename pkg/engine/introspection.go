package engine

import (
	"github.com/aretw0/introspection"

	"github.com/aretw0/strata/pkg/core"
)

// EngineState exposes internal state for observability.
type EngineState struct {
	Phase      Phase        `json:"phase"`
	StoreType  string       `json:"store_type"`
	Tag        string       `json:"tag"`
	LastReport *core.Report `json:"last_report,omitempty"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	storeType := "unknown"
	if e.store != nil {
		storeType = "store"
		if comp, ok := e.store.(introspection.Component); ok {
			storeType = comp.ComponentType()
		}
	}

	return EngineState{
		Phase:      e.phase,
		StoreType:  storeType,
		Tag:        e.registry.Tag(),
		LastReport: e.lastReport,
	}
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "engine"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
