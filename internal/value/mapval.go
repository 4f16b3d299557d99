package value

import (
	"math"

	"github.com/glint-lang/glint/internal/bytecode"
)

// Map is glint's associative value: an insertion-ordered mapping from
// ValueKey (a hashable Value) to Value, plus an optional meta-map of
// operator overloads (spec §3.6). Distinct Values stay distinct keys
// even when they render the same text, e.g. the Int 1 and the String
// "1" never collide.
type Map struct {
	keys    []Value
	entries map[mapKey]Value
	meta    map[bytecode.MetaKey]Value
}

// mapKey is the hashable Go-comparable projection of a Value used as the
// real map key. Only scalar kinds are valid ValueKeys (spec §3.6); any
// other kind falls back to its display rendering, which is enough to
// satisfy Go's comparability requirement even though it isn't a meaningful
// key (containers aren't expected to be used as map keys).
type mapKey struct {
	kind Kind
	i    int64
	s    string
}

func keyFor(v Value) mapKey {
	switch v.Kind() {
	case KindBool:
		if v.AsBool() {
			return mapKey{kind: KindBool, i: 1}
		}
		return mapKey{kind: KindBool, i: 0}
	case KindInt:
		return mapKey{kind: KindInt, i: v.AsInt()}
	case KindFloat:
		return mapKey{kind: KindFloat, i: int64(math.Float64bits(v.AsFloat()))}
	case KindString:
		return mapKey{kind: KindString, s: v.AsString().String()}
	default:
		return mapKey{kind: v.Kind(), s: ToDisplayString(v)}
	}
}

func NewMap() *Map {
	return &Map{entries: map[mapKey]Value{}}
}

// GetValue looks up an entry by its original Value key.
func (m *Map) GetValue(key Value) (Value, bool) {
	v, ok := m.entries[keyFor(key)]
	return v, ok
}

func (m *Map) SetValue(key Value, v Value) {
	k := keyFor(key)
	if _, exists := m.entries[k]; !exists {
		m.keys = append(m.keys, key)
	}
	m.entries[k] = v
}

func (m *Map) DeleteValue(key Value) {
	k := keyFor(key)
	if _, exists := m.entries[k]; !exists {
		return
	}
	delete(m.entries, k)
	for i, existing := range m.keys {
		if keyFor(existing) == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Get, Set, and Delete are the String-keyed convenience used for
// field-style access (`m.foo`), which is just indexing by the String
// ValueKey "foo".
func (m *Map) Get(name string) (Value, bool) { return m.GetValue(NewString(name)) }
func (m *Map) Set(name string, v Value)      { m.SetValue(NewString(name), v) }
func (m *Map) Delete(name string)            { m.DeleteValue(NewString(name)) }

// Keys returns the map's keys in insertion order as their original
// Values (spec §3.6 iteration yields ordered key/value pairs).
func (m *Map) Keys() []Value {
	out := make([]Value, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Map) Len() int { return len(m.keys) }

// Meta returns the value bound to a meta-key (e.g. MetaAdd for `@+`), if
// this map's meta-map defines one.
func (m *Map) Meta(key bytecode.MetaKey) (Value, bool) {
	if m.meta == nil {
		return Nil, false
	}
	v, ok := m.meta[key]
	return v, ok
}

func (m *Map) SetMeta(key bytecode.MetaKey, v Value) {
	if m.meta == nil {
		m.meta = map[bytecode.MetaKey]Value{}
	}
	m.meta[key] = v
}

// Copy returns a shallow copy: a new Map/keys slice sharing the same
// entry values and the same meta-map (spec §9 copy-vs-deep_copy
// distinction).
func (m *Map) Copy() *Map {
	out := &Map{entries: map[mapKey]Value{}, meta: m.meta}
	out.keys = append(out.keys, m.keys...)
	for k, v := range m.entries {
		out.entries[k] = v
	}
	return out
}
