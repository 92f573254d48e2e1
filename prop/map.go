// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package prop

// Key identifies a property either by its built-in 4CC or by an arbitrary
// string name (spec §4.1 "two key spaces"). Exactly one of FourCC/Name is
// meaningful at a time: FourCC != 0 selects the 4CC key space, otherwise
// Name is used.
type Key struct {
	FourCC uint32
	Name   string
}

// FourCCKey builds a built-in-4CC key.
func FourCCKey(code uint32) Key { return Key{FourCC: code} }

// NameKey builds an arbitrary-name key.
func NameKey(name string) Key { return Key{Name: name} }

type entry struct {
	key   Key
	value Value
}

// Map is an insertion-ordered dictionary from Key to Value (spec §4.1).
// The zero Map is ready to use. Map is not safe for concurrent use by
// multiple goroutines without external synchronization; callers that share
// a PID's property map across threads serialize access via the PID's
// single-writer rule (spec §4.4).
type Map struct {
	order []Key
	index map[Key]int
	vals  map[Key]Value
}

func (m *Map) ensure() {
	if m.index == nil {
		m.index = make(map[Key]int)
		m.vals = make(map[Key]Value)
	}
}

// Get returns the value for key, or (zero, false) if absent.
func (m *Map) Get(key Key) (Value, bool) {
	if m.vals == nil {
		return Value{}, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key Key) bool {
	_, ok := m.Get(key)
	return ok
}

// Set installs value under key. Per spec §4.1, if an equivalent value
// already exists under key, the new value is dropped (its heap payload
// released) and Set is a no-op; this is the scheduling optimization that
// avoids spurious PID reconfiguration cascades (spec §4.1 Rationale, and
// the testable property in spec §8 item 4).
//
// Set reports whether the map actually changed.
func (m *Map) Set(key Key, value Value) bool {
	m.ensure()
	if existing, ok := m.vals[key]; ok {
		if Equal(existing, value) {
			value.Release()
			return false
		}
		existing.Release()
		m.vals[key] = value
		return true
	}
	m.vals[key] = value
	m.index[key] = len(m.order)
	m.order = append(m.order, key)
	return true
}

// Remove deletes key from the map, releasing its value's payload
// reference. Reports whether the key was present.
func (m *Map) Remove(key Key) bool {
	if m.vals == nil {
		return false
	}
	v, ok := m.vals[key]
	if !ok {
		return false
	}
	v.Release()
	delete(m.vals, key)
	idx := m.index[key]
	delete(m.index, key)
	m.order = append(m.order[:idx], m.order[idx+1:]...)
	for i := idx; i < len(m.order); i++ {
		m.index[m.order[i]] = i
	}
	return true
}

// Len reports the number of entries.
func (m *Map) Len() int { return len(m.order) }

// Enumerate calls fn for every (key, value) pair in insertion order,
// stopping early if fn returns false.
func (m *Map) Enumerate(fn func(Key, Value) bool) {
	for _, k := range m.order {
		if !fn(k, m.vals[k]) {
			return
		}
	}
}

// Clone returns an independently-mutable copy of m: the entry set is new,
// while each value is Ref'd into the clone, so its payload is shared with
// m by reference.
func (m *Map) Clone() *Map {
	clone := &Map{}
	m.Enumerate(func(k Key, v Value) bool {
		clone.Set(k, v.Ref())
		return true
	})
	return clone
}

// reset releases every entry's payload reference and empties m for reuse
// by a Reservoir, keeping the underlying slice/map storage allocated.
func (m *Map) reset() {
	m.Enumerate(func(k Key, v Value) bool {
		v.Release()
		return true
	})
	m.order = m.order[:0]
	for k := range m.index {
		delete(m.index, k)
	}
	for k := range m.vals {
		delete(m.vals, k)
	}
}

// MapsEqual reports whether two maps hold the same set of keys mapped to
// equal values, irrespective of insertion order.
func MapsEqual(a, b *Map) bool {
	if a.Len() != b.Len() {
		return false
	}
	eq := true
	a.Enumerate(func(k Key, v Value) bool {
		bv, ok := b.Get(k)
		if !ok || !Equal(v, bv) {
			eq = false
			return false
		}
		return true
	})
	return eq
}
