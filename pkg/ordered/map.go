// Package ordered provides Map, an insertion-ordered keyed container that keeps a pair
// sequence and a hash index in lockstep.
//
// The sequence is what gets persisted and what an editor displays. The index and the
// value map are derived from it. Duplicate keys in the sequence are tolerated: the first
// occurrence is active and later ones are shadowed, with Collision reporting the
// condition instead of refusing it.
package ordered

import (
	"errors"
	"fmt"
	"iter"
)

// ErrDuplicateKey is returned by Add when the key is already present.
var ErrDuplicateKey = errors.New("key already exists")

// Pair is a single entry of the sequence.
type Pair[K comparable, V any] struct {
	Key   K `json:"key" yaml:"key"`
	Value V `json:"value" yaml:"value"`
}

// Map is an ordered key/value container with O(1) lookup.
// The zero value is ready to use. A Map is not safe for concurrent use.
type Map[K comparable, V any] struct {
	pairs     []Pair[K, V]
	index     map[K]int
	values    map[K]V
	collision bool
}

// New creates an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		index:  make(map[K]int),
		values: make(map[K]V),
	}
}

// FromPairs creates a Map whose sequence is pairs, as a loader would.
// Duplicate keys are kept in the sequence and flagged.
func FromPairs[K comparable, V any](pairs ...Pair[K, V]) *Map[K, V] {
	m := New[K, V]()
	m.SetPairs(pairs)
	return m
}

func (m *Map[K, V]) init() {
	if m.index == nil {
		m.index = make(map[K]int)
	}
	if m.values == nil {
		m.values = make(map[K]V)
	}
}

// Get returns the value of the active entry for key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// ContainsKey reports whether key has an active entry.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.values[key]
	return ok
}

// Set replaces the value of an existing key in place or appends a new pair.
func (m *Map[K, V]) Set(key K, value V) {
	m.init()
	m.values[key] = value
	if i, ok := m.index[key]; ok {
		m.mustOwn(i, key)
		m.pairs[i] = Pair[K, V]{Key: key, Value: value}
		return
	}
	m.pairs = append(m.pairs, Pair[K, V]{Key: key, Value: value})
	m.index[key] = len(m.pairs) - 1
}

// Add appends a new pair. It fails if key already has an active entry.
func (m *Map[K, V]) Add(key K, value V) error {
	if m.ContainsKey(key) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, key)
	}
	m.Set(key, value)
	return nil
}

// Remove deletes the active entry for key and its pair in the sequence.
//
// Index entries after the removed position are renumbered. When the sequence carried
// duplicates the structure is rebuilt instead, so the next shadowed occurrence of key
// (if any) becomes the active one.
func (m *Map[K, V]) Remove(key K) bool {
	i, ok := m.index[key]
	if !ok {
		return false
	}
	m.mustOwn(i, key)

	delete(m.values, key)
	delete(m.index, key)
	m.pairs = append(m.pairs[:i], m.pairs[i+1:]...)

	if m.collision {
		m.Rebuild()
		return true
	}
	m.renumber(i)
	return true
}

// ContainsPair reports whether the active entry for p.Key holds p.Value.
func ContainsPair[K, V comparable](m *Map[K, V], p Pair[K, V]) bool {
	v, ok := m.Get(p.Key)
	return ok && v == p.Value
}

// RemovePair removes the active entry for p.Key only when it holds p.Value.
func RemovePair[K, V comparable](m *Map[K, V], p Pair[K, V]) bool {
	if !ContainsPair(m, p) {
		return false
	}
	return m.Remove(p.Key)
}

// renumber shifts index entries that pointed past the removed position.
// Only entries that point at the old slot are touched, so shadowed duplicates
// never steal an index.
func (m *Map[K, V]) renumber(removed int) {
	for i := removed; i < len(m.pairs); i++ {
		k := m.pairs[i].Key
		if j, ok := m.index[k]; ok && j == i+1 {
			m.index[k] = i
		}
	}
}

// Clear empties the sequence, the index and the value map.
func (m *Map[K, V]) Clear() {
	m.pairs = nil
	m.index = make(map[K]int)
	m.values = make(map[K]V)
	m.collision = false
}

// Rebuild derives the index and the value map from the sequence.
// The first occurrence of a key wins; any later one sets the collision flag.
func (m *Map[K, V]) Rebuild() {
	m.index = make(map[K]int, len(m.pairs))
	m.values = make(map[K]V, len(m.pairs))
	m.collision = false

	for i, p := range m.pairs {
		if _, seen := m.index[p.Key]; seen {
			m.collision = true
			continue
		}
		m.index[p.Key] = i
		m.values[p.Key] = p.Value
	}
}

// SetPairs replaces the whole sequence and rebuilds.
func (m *Map[K, V]) SetPairs(pairs []Pair[K, V]) {
	m.pairs = append([]Pair[K, V](nil), pairs...)
	m.Rebuild()
}

// At returns the pair at position i. It panics when i is out of range.
func (m *Map[K, V]) At(i int) Pair[K, V] {
	m.checkPosition(i)
	return m.pairs[i]
}

// SetAt overwrites the pair at position i without touching the index.
// Call SyncAt afterwards to make the change visible to lookups.
func (m *Map[K, V]) SetAt(i int, p Pair[K, V]) {
	m.checkPosition(i)
	m.pairs[i] = p
}

// SyncAt makes lookups reflect the pair at position i.
//
// When the key at i is the active one only its value is refreshed. When the slot now
// holds a different key (the editor renamed it) a full rebuild runs.
func (m *Map[K, V]) SyncAt(i int) {
	m.checkPosition(i)
	m.init()
	p := m.pairs[i]
	if j, ok := m.index[p.Key]; ok && j == i {
		m.values[p.Key] = p.Value
		return
	}
	m.Rebuild()
}

// Len returns the number of active keys.
func (m *Map[K, V]) Len() int { return len(m.values) }

// SeqLen returns the length of the sequence, shadowed duplicates included.
func (m *Map[K, V]) SeqLen() int { return len(m.pairs) }

// Collision reports whether the sequence holds duplicate keys.
func (m *Map[K, V]) Collision() bool { return m.collision }

// IndexOf returns the sequence position of the active entry for key.
func (m *Map[K, V]) IndexOf(key K) (int, bool) {
	i, ok := m.index[key]
	return i, ok
}

// Pairs returns a copy of the sequence.
func (m *Map[K, V]) Pairs() []Pair[K, V] {
	return append([]Pair[K, V](nil), m.pairs...)
}

// All iterates active entries in sequence order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i, p := range m.pairs {
			if j, ok := m.index[p.Key]; !ok || j != i {
				continue
			}
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

// Keys returns the active keys in sequence order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, len(m.values))
	for k := range m.All() {
		keys = append(keys, k)
	}
	return keys
}

// Values returns the active values in sequence order.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, len(m.values))
	for _, v := range m.All() {
		values = append(values, v)
	}
	return values
}

// ForEach calls fn for every active entry in sequence order.
func (m *Map[K, V]) ForEach(fn func(K, V)) {
	for k, v := range m.All() {
		fn(k, v)
	}
}

// Clone returns a structural copy: sequence, duplicates and collision flag included.
// Values are copied shallowly.
func (m *Map[K, V]) Clone() *Map[K, V] {
	c := &Map[K, V]{
		pairs:     m.Pairs(),
		index:     make(map[K]int, len(m.index)),
		values:    make(map[K]V, len(m.values)),
		collision: m.collision,
	}
	for k, i := range m.index {
		c.index[k] = i
	}
	for k, v := range m.values {
		c.values[k] = v
	}
	return c
}

// ToMap returns the active entries as a plain map.
func (m *Map[K, V]) ToMap() map[K]V {
	out := make(map[K]V, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Validate checks that the index, the value map and the sequence agree.
func (m *Map[K, V]) Validate() error {
	if len(m.index) != len(m.values) {
		return fmt.Errorf("index has %d keys, values has %d", len(m.index), len(m.values))
	}
	owners := make(map[int]K, len(m.index))
	for k, i := range m.index {
		if i < 0 || i >= len(m.pairs) {
			return fmt.Errorf("key %v indexed at %d, sequence length %d", k, i, len(m.pairs))
		}
		if m.pairs[i].Key != k {
			return fmt.Errorf("key %v indexed at %d which holds %v", k, i, m.pairs[i].Key)
		}
		if other, dup := owners[i]; dup {
			return fmt.Errorf("keys %v and %v share position %d", other, k, i)
		}
		owners[i] = k
		if _, ok := m.values[k]; !ok {
			return fmt.Errorf("key %v indexed but has no value", k)
		}
	}
	return nil
}

func (m *Map[K, V]) mustOwn(i int, key K) {
	if i < 0 || i >= len(m.pairs) || m.pairs[i].Key != key {
		panic(fmt.Sprintf("ordered: index for %v points at %d, sequence out of sync", key, i))
	}
}

func (m *Map[K, V]) checkPosition(i int) {
	if i < 0 || i >= len(m.pairs) {
		panic(fmt.Sprintf("ordered: position %d out of range [0,%d)", i, len(m.pairs)))
	}
}
