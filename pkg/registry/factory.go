package registry

import (
	"fmt"
	"reflect"

	"github.com/aretw0/strata/pkg/core"
)

// Factories maps a declared field type to a constructor for a concrete instance.
type Factories map[reflect.Type]func() any

// RegisterFactory registers fn as the constructor for fields declared as T.
func RegisterFactory[T any](f Factories, fn func() T) {
	f[reflect.TypeFor[T]()] = func() any { return fn() }
}

// Construct builds a fresh instance suitable for a field of type t.
//
// A registered factory wins. An interface field otherwise borrows the dynamic type of
// its current value; a pointer field gets a new zero element. Anything else is a new
// zero value of t. Non-pointer results are addressable so payloads can be decoded
// into them.
func (f Factories) Construct(t reflect.Type, current reflect.Value) (reflect.Value, error) {
	if fn, ok := f[t]; ok {
		v := reflect.ValueOf(fn())
		if !v.IsValid() {
			return reflect.Value{}, fmt.Errorf("%w: factory for %s returned nil", core.ErrNotConstructible, t)
		}
		if !v.Type().AssignableTo(t) {
			return reflect.Value{}, fmt.Errorf("%w: factory for %s returned %s", core.ErrNotConstructible, t, v.Type())
		}
		if v.Kind() != reflect.Pointer {
			addr := reflect.New(v.Type()).Elem()
			addr.Set(v)
			return addr, nil
		}
		return v, nil
	}

	switch t.Kind() {
	case reflect.Interface:
		if !current.IsValid() || current.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: no factory for %s and no current value", core.ErrNotConstructible, t)
		}
		dyn := current.Elem().Type()
		if dyn.Kind() == reflect.Pointer {
			return reflect.New(dyn.Elem()), nil
		}
		return reflect.New(dyn).Elem(), nil
	case reflect.Pointer:
		return reflect.New(t.Elem()), nil
	default:
		return reflect.New(t).Elem(), nil
	}
}
