package registry

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"
)

// Strategy tells the rehydrator how a stored payload is put back onto a field.
type Strategy int

const (
	// StrategyValue decodes the payload into a fresh value of the declared type.
	StrategyValue Strategy = iota
	// StrategyAsset constructs a new instance and fills it from the payload.
	StrategyAsset
	// StrategyRef fills the instance the field already points at, in place.
	StrategyRef
)

func (s Strategy) String() string {
	switch s {
	case StrategyValue:
		return "value"
	case StrategyAsset:
		return "asset"
	case StrategyRef:
		return "ref"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses a tag option.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "value":
		return StrategyValue, nil
	case "asset":
		return StrategyAsset, nil
	case "ref":
		return StrategyRef, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", s)
	}
}

// DefaultStrategy derives a strategy from the declared type: interfaces need
// construction, pointers to structs refer to live instances, everything else is a
// plain value.
func DefaultStrategy(t reflect.Type) Strategy {
	switch {
	case t.Kind() == reflect.Interface:
		return StrategyAsset
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return StrategyRef
	default:
		return StrategyValue
	}
}

// Field describes a struct field the engine can read and write.
type Field struct {
	Name     string
	Group    string // empty when the field carries no persistence tag
	Strategy Strategy
	Type     reflect.Type
	Index    []int
}

// parseTag splits `group[,strategy]`.
func parseTag(tag string, t reflect.Type) (group string, strategy Strategy, err error) {
	group, opt, _ := strings.Cut(tag, ",")
	group = strings.TrimSpace(group)
	if group == "" {
		return "", 0, fmt.Errorf("empty group in tag %q", tag)
	}
	opt = strings.TrimSpace(opt)
	if opt == "" {
		return group, DefaultStrategy(t), nil
	}
	strategy, err = ParseStrategy(opt)
	if err != nil {
		return "", 0, err
	}
	if strategy == StrategyRef && t.Kind() != reflect.Pointer {
		return "", 0, fmt.Errorf("ref strategy needs a pointer field, got %s", t)
	}
	return group, strategy, nil
}

// Access returns a settable view of field f on the struct that ptr points at.
// Unexported fields are reached through their address.
func Access(ptr any, f Field) (reflect.Value, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("expected non-nil pointer, got %T", ptr)
	}
	fv, err := rv.Elem().FieldByIndexErr(f.Index)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("field %s: %w", f.Name, err)
	}
	if !fv.CanSet() {
		fv = reflect.NewAt(fv.Type(), unsafe.Pointer(fv.UnsafeAddr())).Elem()
	}
	return fv, nil
}
