package ordered

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes the sequence, duplicates included. It has a value receiver so a
// Map held by value in a struct field encodes the same as one behind a pointer.
func (m Map[K, V]) MarshalJSON() ([]byte, error) {
	pairs := m.pairs
	if pairs == nil {
		pairs = []Pair[K, V]{}
	}
	return sonic.Marshal(pairs)
}

// UnmarshalJSON replaces the sequence with the decoded pairs and rebuilds.
func (m *Map[K, V]) UnmarshalJSON(data []byte) error {
	var pairs []Pair[K, V]
	if err := sonic.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("invalid ordered map: %w", err)
	}
	m.SetPairs(pairs)
	return nil
}

// MarshalYAML encodes the sequence, duplicates included.
func (m Map[K, V]) MarshalYAML() (interface{}, error) {
	if m.pairs == nil {
		return []Pair[K, V]{}, nil
	}
	return m.pairs, nil
}

// UnmarshalYAML replaces the sequence with the decoded pairs and rebuilds.
func (m *Map[K, V]) UnmarshalYAML(value *yaml.Node) error {
	var pairs []Pair[K, V]
	if err := value.Decode(&pairs); err != nil {
		return fmt.Errorf("invalid ordered map: %w", err)
	}
	m.SetPairs(pairs)
	return nil
}

// Stringify returns a copy of the active entries with keys and values converted to
// strings. Distinct keys that render to the same string end up as a collision.
func (m *Map[K, V]) Stringify() *Map[string, string] {
	pairs := make([]Pair[string, string], 0, len(m.values))
	for k, v := range m.All() {
		pairs = append(pairs, Pair[string, string]{Key: toString(k), Value: toString(v)})
	}
	return FromPairs(pairs...)
}

func toString(v any) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
