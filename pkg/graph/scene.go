// Package graph models the live object graph the engine scans and rehydrates:
// named objects, each hosting an ordered list of components.
package graph

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

var (
	ErrDuplicateID      = errors.New("object id already in use")
	ErrInvalidComponent = errors.New("component must be a non-nil pointer to a struct")
)

// Named lets a component choose the type name it is persisted under.
// Without it the Go type name (package path included) is used.
type Named interface {
	ComponentName() string
}

// Graph is the read side of a live object graph.
type Graph interface {
	// Objects returns every object in traversal order.
	Objects() []*Object
	// ByID returns the object with the given stable identifier.
	ByID(id string) (*Object, bool)
	// ByName returns every object carrying the given display name.
	ByName(name string) []*Object
}

// Object is a node of the graph. ID is stable and unique; Name is for humans and
// may repeat.
type Object struct {
	ID         string
	Name       string
	components []any
}

// Attach adds a component to the object.
func (o *Object) Attach(c any) error {
	v := reflect.ValueOf(c)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %T", ErrInvalidComponent, c)
	}
	o.components = append(o.components, c)
	return nil
}

// Components returns the attached components in attach order.
func (o *Object) Components() []any {
	return append([]any(nil), o.components...)
}

// Component returns the first component persisted under typeName.
func (o *Object) Component(typeName string) (any, bool) {
	for _, c := range o.components {
		if TypeName(c) == typeName {
			return c, true
		}
	}
	return nil, false
}

// TypeName returns the name a component is persisted under.
func TypeName(c any) string {
	if n, ok := c.(Named); ok {
		return n.ComponentName()
	}
	t := reflect.TypeOf(c)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Scene is an in-memory Graph.
type Scene struct {
	objects []*Object
	byID    map[string]*Object
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{byID: make(map[string]*Object)}
}

// Add creates an object with a synthesized identifier and attaches components to it.
func (s *Scene) Add(name string, components ...any) (*Object, error) {
	return s.AddWithID(uuid.NewString(), name, components...)
}

// AddWithID creates an object with a caller-chosen identifier. Persisting owners
// across runs requires the identifier to be stable, so callers that reload data
// should prefer this over Add.
func (s *Scene) AddWithID(id, name string, components ...any) (*Object, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if s.byID == nil {
		s.byID = make(map[string]*Object)
	}
	if _, exists := s.byID[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	obj := &Object{ID: id, Name: name}
	for _, c := range components {
		if err := obj.Attach(c); err != nil {
			return nil, fmt.Errorf("object %q: %w", name, err)
		}
	}

	s.objects = append(s.objects, obj)
	s.byID[id] = obj
	return obj, nil
}

// Remove detaches the object with the given identifier.
func (s *Scene) Remove(id string) bool {
	obj, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	for i, o := range s.objects {
		if o == obj {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			break
		}
	}
	return true
}

func (s *Scene) Objects() []*Object {
	return append([]*Object(nil), s.objects...)
}

func (s *Scene) ByID(id string) (*Object, bool) {
	obj, ok := s.byID[id]
	return obj, ok
}

func (s *Scene) ByName(name string) []*Object {
	var out []*Object
	for _, o := range s.objects {
		if o.Name == name {
			out = append(out, o)
		}
	}
	return out
}

var _ Graph = (*Scene)(nil)
