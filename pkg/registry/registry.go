// Package registry discovers persistable fields by struct tag and encodes their values
// into records.
//
// A field opts in with a tag naming its destination group and, optionally, how it is
// restored:
//
//	type Player struct {
//		Score    int       `persist:"progress.json"`
//		settings *Settings `persist:"prefs.json,asset"`
//		Target   *Enemy    `persist:"progress.json,ref"`
//	}
//
// Unexported and promoted fields are included.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/graph"
)

// DefaultTag is the struct tag key scanned when none is configured.
const DefaultTag = "persist"

// Registry scans a graph for tagged fields. It caches field layouts per type.
type Registry struct {
	tag       string
	codec     Codec
	factories Factories
	layouts   sync.Map // reflect.Type -> []Field
}

// Option configures a Registry.
type Option func(*Registry)

// WithTag sets the struct tag key to scan for.
func WithTag(tag string) Option {
	return func(r *Registry) {
		if tag != "" {
			r.tag = tag
		}
	}
}

// WithCodec replaces the payload codec.
func WithCodec(c Codec) Option {
	return func(r *Registry) {
		if c != nil {
			r.codec = c
		}
	}
}

// WithFactories sets the constructors used for asset fields.
func WithFactories(f Factories) Option {
	return func(r *Registry) {
		for t, fn := range f {
			r.factories[t] = fn
		}
	}
}

// New creates a Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		tag:       DefaultTag,
		codec:     JSONCodec{},
		factories: make(Factories),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tag returns the struct tag key being scanned.
func (r *Registry) Tag() string { return r.tag }

// Codec returns the payload codec.
func (r *Registry) Codec() Codec { return r.codec }

// Factories returns the constructors used for asset fields.
func (r *Registry) Factories() Factories { return r.factories }

// Scan walks every component of every object in g and returns one record per tagged
// field, in traversal order.
//
// Fields whose value cannot be encoded are skipped and reported in the returned error;
// the records that did encode are still returned.
func (r *Registry) Scan(g graph.Graph) ([]core.Record, error) {
	var (
		records []core.Record
		errs    []error
	)

	for _, obj := range g.Objects() {
		for _, comp := range obj.Components() {
			fields, err := r.Tagged(reflect.TypeOf(comp))
			if err != nil {
				errs = append(errs, fmt.Errorf("object %q: %w", obj.Name, err))
				continue
			}
			typeName := graph.TypeName(comp)

			for _, f := range fields {
				payload, err := r.encode(comp, f)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s.%s on %q: %w", typeName, f.Name, obj.Name, err))
					continue
				}
				records = append(records, core.Record{
					Group:     f.Group,
					OwnerID:   obj.ID,
					Owner:     obj.Name,
					Component: typeName,
					Field:     f.Name,
					Payload:   payload,
				})
			}
		}
	}

	return records, errors.Join(errs...)
}

func (r *Registry) encode(comp any, f Field) (string, error) {
	fv, err := Access(comp, f)
	if err != nil {
		return "", err
	}
	// Marshal through the address so pointer-receiver marshalers are honored.
	v := fv.Interface()
	if fv.CanAddr() {
		v = fv.Addr().Interface()
	}
	data, err := r.codec.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Tagged returns the tagged fields of the struct that t (a pointer type) points at,
// in declaration order.
func (r *Registry) Tagged(t reflect.Type) ([]Field, error) {
	if cached, ok := r.layouts.Load(t); ok {
		return cached.([]Field), nil
	}

	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", t)
	}

	var fields []Field
	for _, sf := range reflect.VisibleFields(st) {
		tag, ok := sf.Tag.Lookup(r.tag)
		if !ok || tag == "-" {
			continue
		}
		group, strategy, err := parseTag(tag, sf.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", st.Name(), sf.Name, err)
		}
		fields = append(fields, Field{
			Name:     sf.Name,
			Group:    group,
			Strategy: strategy,
			Type:     sf.Type,
			Index:    sf.Index,
		})
	}

	r.layouts.Store(t, fields)
	return fields, nil
}

// Lookup finds a field by name on the struct that t points at. Tagged fields keep
// their declared strategy; untagged ones get the default for their type, so data saved
// before a tag was removed can still be restored.
func (r *Registry) Lookup(t reflect.Type, name string) (Field, error) {
	tagged, err := r.Tagged(t)
	if err != nil {
		return Field{}, err
	}
	for _, f := range tagged {
		if f.Name == name {
			return f, nil
		}
	}

	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	sf, ok := st.FieldByName(name)
	if !ok {
		return Field{}, fmt.Errorf("%w: %s.%s", core.ErrFieldNotFound, st.Name(), name)
	}
	return Field{
		Name:     sf.Name,
		Strategy: DefaultStrategy(sf.Type),
		Type:     sf.Type,
		Index:    sf.Index,
	}, nil
}
