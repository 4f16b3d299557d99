package value

import "github.com/glint-lang/glint/internal/bytecode"

// Captured is one upvalue a closure carries: a named binding captured
// from an enclosing frame at the time the Function value was constructed
// (spec §3.4's closure semantics).
type Captured struct {
	Name  string
	Value Value
}

// Function is a glint-defined closure: a compiled FunctionProto plus the
// captured bindings resolved when the closure literal was evaluated, and
// (for instance methods) the receiver it was bound to.
type Function struct {
	Proto    *bytecode.FunctionProto
	Captures []Captured
	Self     Value // KindNil unless this is a bound instance method
}

func (f *Function) IsGenerator() bool { return f.Proto.Generator }
func (f *Function) IsVariadic() bool  { return f.Proto.Variadic }

// WithSelf returns a copy of this function bound to a receiver, for
// `instance.method` lookups that dispatch through CallChild (spec §9
// supplemented feature).
func (f *Function) WithSelf(self Value) *Function {
	bound := *f
	bound.Self = self
	return &bound
}

// NativeFn is the Go signature a host-provided builtin implements.
type NativeFn func(args []Value) (Value, error)

// ExternalFunction wraps a host-provided Go function so it can be called
// like any other glint value (spec §6.2's embedding facade).
type ExternalFunction struct {
	Name string
	Fn   NativeFn
}

// Iterator is the common interface every iterable kind exposes to the VM
// (spec §3.4): ranges, lists, tuples, map entries, grapheme-indexed
// strings, generator frames, and host-provided external iterators.
type Iterator interface {
	// Next advances the iterator, returning (value, true) or the zero
	// Value and false once exhausted. Implementations that can fail at
	// runtime (generators, external iterators) return a non-nil error.
	Next() (Value, bool, error)
}

type sliceIterator struct {
	items []Value
	pos   int
}

func NewSliceIterator(items []Value) Iterator { return &sliceIterator{items: items} }

func (it *sliceIterator) Next() (Value, bool, error) {
	if it.pos >= len(it.items) {
		return Nil, false, nil
	}
	v := it.items[it.pos]
	it.pos++
	return v, true, nil
}

type rangeIterator struct {
	r   *Range
	pos int
}

func NewRangeIterator(r *Range) Iterator { return &rangeIterator{r: r} }

func (it *rangeIterator) Next() (Value, bool, error) {
	if it.pos >= it.r.Len() {
		return Nil, false, nil
	}
	v := Int(it.r.At(it.pos))
	it.pos++
	return v, true, nil
}

type mapEntryIterator struct {
	m    *Map
	keys []Value
	pos  int
}

func NewMapIterator(m *Map) Iterator { return &mapEntryIterator{m: m, keys: m.Keys()} }

func (it *mapEntryIterator) Next() (Value, bool, error) {
	if it.pos >= len(it.keys) {
		return Nil, false, nil
	}
	k := it.keys[it.pos]
	it.pos++
	v, _ := it.m.GetValue(k)
	return Tuple_(NewTuple([]Value{k, v})), true, nil
}

type graphemeIterator struct {
	s   *Str_
	pos int
	n   int
}

func NewGraphemeIterator(s *Str_) Iterator {
	return &graphemeIterator{s: s, n: s.GraphemeCount()}
}

func (it *graphemeIterator) Next() (Value, bool, error) {
	if it.pos >= it.n {
		return Nil, false, nil
	}
	g, ok := it.s.IndexGrapheme(it.pos)
	it.pos++
	if !ok {
		return Nil, false, nil
	}
	return Str(g), true, nil
}
