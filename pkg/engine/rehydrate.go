package engine

import (
	"fmt"
	"reflect"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/graph"
	"github.com/aretw0/strata/pkg/registry"
)

// Rehydrator puts stored records back onto the live graph.
type Rehydrator struct {
	graph    graph.Graph
	registry *registry.Registry
}

// NewRehydrator creates a Rehydrator resolving owners in g.
func NewRehydrator(g graph.Graph, reg *registry.Registry) *Rehydrator {
	return &Rehydrator{graph: g, registry: reg}
}

// Apply restores one record.
//
// Workflow:
//  1. Resolve the owner (stable ID first, then display name) and its component.
//  2. Resolve the field by name.
//  3. Decode the payload according to the field's strategy.
//
// Every failure comes back as an error; Apply never panics.
func (r *Rehydrator) Apply(rec core.Record) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%s.%s on %q: %v", rec.Component, rec.Field, rec.Owner, recovered)
		}
	}()

	owner, err := r.resolveOwner(rec)
	if err != nil {
		return err
	}

	comp, ok := owner.Component(rec.Component)
	if !ok {
		return fmt.Errorf("%w: %s on %q", core.ErrComponentNotFound, rec.Component, rec.Owner)
	}

	f, err := r.registry.Lookup(reflect.TypeOf(comp), rec.Field)
	if err != nil {
		return fmt.Errorf("%s on %q: %w", rec.Component, rec.Owner, err)
	}

	fv, err := registry.Access(comp, f)
	if err != nil {
		return err
	}

	switch f.Strategy {
	case registry.StrategyAsset:
		err = r.applyAsset(fv, f, rec.Payload)
	case registry.StrategyRef:
		err = r.applyRef(fv, rec.Payload)
	default:
		err = r.applyValue(fv, f, rec.Payload)
	}
	if err != nil {
		return fmt.Errorf("%s.%s on %q: %w", rec.Component, rec.Field, rec.Owner, err)
	}
	return nil
}

func (r *Rehydrator) resolveOwner(rec core.Record) (*graph.Object, error) {
	if rec.OwnerID != "" {
		if obj, ok := r.graph.ByID(rec.OwnerID); ok {
			return obj, nil
		}
	}

	matches := r.graph.ByName(rec.Owner)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %q (id %q)", core.ErrOwnerNotFound, rec.Owner, rec.OwnerID)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %d objects named %q", core.ErrAmbiguousOwner, len(matches), rec.Owner)
	}
}

// applyValue replaces the field with a freshly decoded value.
func (r *Rehydrator) applyValue(fv reflect.Value, f registry.Field, payload string) error {
	n := reflect.New(f.Type)
	if err := r.registry.Codec().Unmarshal([]byte(payload), n.Interface()); err != nil {
		return fmt.Errorf("%w: %w", core.ErrTypeMismatch, err)
	}
	fv.Set(n.Elem())
	return nil
}

// applyAsset builds a new instance, fills it from the payload and assigns it.
func (r *Rehydrator) applyAsset(fv reflect.Value, f registry.Field, payload string) error {
	if payload == "null" {
		fv.Set(reflect.Zero(f.Type))
		return nil
	}

	inst, err := r.registry.Factories().Construct(f.Type, fv)
	if err != nil {
		return err
	}

	target := inst
	if inst.Kind() != reflect.Pointer {
		target = inst.Addr()
	}
	if err := r.registry.Codec().Unmarshal([]byte(payload), target.Interface()); err != nil {
		return fmt.Errorf("%w: %w", core.ErrTypeMismatch, err)
	}
	fv.Set(inst)
	return nil
}

// applyRef fills the instance the field already points at.
func (r *Rehydrator) applyRef(fv reflect.Value, payload string) error {
	if payload == "null" {
		return nil
	}
	if fv.IsNil() {
		return core.ErrNilReference
	}
	if err := r.registry.Codec().Unmarshal([]byte(payload), fv.Interface()); err != nil {
		return fmt.Errorf("%w: %w", core.ErrTypeMismatch, err)
	}
	return nil
}
