package value

import "fmt"

// List is a mutable, growable sequence value.
type List struct {
	items []Value
}

func NewList(items []Value) *List { return &List{items: items} }

func (l *List) Items() []Value { return l.items }
func (l *List) Len() int       { return len(l.items) }
func (l *List) Push(v Value)   { l.items = append(l.items, v) }

func (l *List) Get(i int) (Value, bool) {
	i = normalizeIndex(i, len(l.items))
	if i < 0 || i >= len(l.items) {
		return Nil, false
	}
	return l.items[i], true
}

func (l *List) Set(i int, v Value) bool {
	i = normalizeIndex(i, len(l.items))
	if i < 0 || i >= len(l.items) {
		return false
	}
	l.items[i] = v
	return true
}

// Slice returns a new independent List holding a copy of items[start:end]
// (lists are mutable, so unlike strings this cannot be a shared view).
func (l *List) Slice(start, end int) (*List, bool) {
	n := len(l.items)
	start = normalizeIndex(start, n)
	end = normalizeIndex(end, n)
	if start < 0 || end < start || end > n {
		return nil, false
	}
	out := make([]Value, end-start)
	copy(out, l.items[start:end])
	return &List{items: out}, true
}

func (l *List) Copy() *List {
	out := make([]Value, len(l.items))
	copy(out, l.items)
	return &List{items: out}
}

// Tuple is a shallow-immutable fixed-size sequence value.
type Tuple struct {
	items []Value
}

func NewTuple(items []Value) *Tuple { return &Tuple{items: items} }
func (t *Tuple) Items() []Value     { return t.items }
func (t *Tuple) Len() int           { return len(t.items) }

func (t *Tuple) Get(i int) (Value, bool) {
	i = normalizeIndex(i, len(t.items))
	if i < 0 || i >= len(t.items) {
		return Nil, false
	}
	return t.items[i], true
}

// Range represents `start..end` / `start..=end`; descending ranges
// (start > end) iterate downward, per DESIGN.md's Open Question decision
// that `5..=0` yields 5,4,3,2,1,0 symmetrically with `5..0`'s descent.
type Range struct {
	Start, End int64
	Inclusive  bool
}

func (r *Range) String() string {
	op := ".."
	if r.Inclusive {
		op = "..="
	}
	return fmt.Sprintf("%d%s%d", r.Start, op, r.End)
}

// Len reports how many integers this range produces.
func (r *Range) Len() int {
	if r.Start <= r.End {
		n := r.End - r.Start
		if r.Inclusive {
			n++
		}
		return int(n)
	}
	n := r.Start - r.End
	if r.Inclusive {
		n++
	}
	return int(n)
}

// At returns the ith value this range would produce in iteration order.
func (r *Range) At(i int) int64 {
	if r.Start <= r.End {
		return r.Start + int64(i)
	}
	return r.Start - int64(i)
}

// Num2/Num4 are small fixed-size float vectors (spec §3.2).
type Num2 [2]float64
type Num4 [4]float64

func (n Num2) String() string { return fmt.Sprintf("num2(%g, %g)", n[0], n[1]) }
func (n Num4) String() string {
	return fmt.Sprintf("num4(%g, %g, %g, %g)", n[0], n[1], n[2], n[3])
}
