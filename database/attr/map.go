package attr

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Map is an insertion ordered mapping of attribute names to values.
// The zero value is an empty map ready to use. A Map is not safe for
// concurrent use.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns a new empty map.
func NewMap() *Map {
	return &Map{
		values: make(map[string]Value),
	}
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// Get returns the value for key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has returns whether key is set.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// GetString returns the string value of key, or an empty string.
func (m *Map) GetString(key string) string {
	v, _ := m.Get(key)
	s, _ := v.Str()
	return s
}

// Set sets key to v. New keys are appended, existing keys keep their position.
func (m *Map) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// SetInterface converts x and sets it as key.
func (m *Map) SetInterface(key string, x interface{}) error {
	v, err := FromInterface(x)
	if err != nil {
		return err
	}
	m.Set(key, v)
	return nil
}

// Delete removes key.
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	if i := slices.Index(m.keys, key); i >= 0 {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
}

// Range calls fn for every entry in order until fn returns false.
func (m *Map) Range(fn func(key string, v Value) bool) {
	if m == nil {
		return
	}
	for _, key := range m.keys {
		if !fn(key, m.values[key]) {
			return
		}
	}
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	c := NewMap()
	m.Range(func(key string, v Value) bool {
		c.Set(key, v.Clone())
		return true
	})
	return c
}

// Equal returns whether both maps hold equal entries. Order is ignored.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	equal := true
	m.Range(func(key string, v Value) bool {
		o, ok := other.Get(key)
		if !ok || !v.Equal(o) {
			equal = false
		}
		return equal
	})
	return equal
}

// Interface returns the map as plain Go data.
func (m *Map) Interface() map[string]interface{} {
	plain := make(map[string]interface{}, m.Len())
	m.Range(func(key string, v Value) bool {
		plain[key] = v.Interface()
		return true
	})
	return plain
}

// MapFromInterface converts a plain map into a Map with sorted keys.
func MapFromInterface(plain map[string]interface{}) (*Map, error) {
	keys := maps.Keys(plain)
	slices.Sort(keys)

	m := NewMap()
	for _, key := range keys {
		if err := m.SetInterface(key, plain[key]); err != nil {
			return nil, err
		}
	}
	return m, nil
}
