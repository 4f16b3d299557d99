package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberPromotionEquality(t *testing.T) {
	assert.True(t, Equal(Int(2), Float(2.0), nil))
	assert.False(t, Equal(Int(2), Float(2.5), nil))
}

func TestStringGraphemeSlicing(t *testing.T) {
	s := NewStr("héllo")
	assert.Equal(t, 5, s.GraphemeCount())
	sub, ok := s.Slice(1, 3)
	require.True(t, ok)
	assert.Equal(t, "él", sub.String())
}

func TestStringNegativeIndex(t *testing.T) {
	s := NewStr("abcde")
	g, ok := s.IndexGrapheme(-1)
	require.True(t, ok)
	assert.Equal(t, "e", g.String())
}

func TestRangeDescendingInclusive(t *testing.T) {
	r := &Range{Start: 5, End: 0, Inclusive: true}
	assert.Equal(t, 6, r.Len())
	var got []int64
	for i := 0; i < r.Len(); i++ {
		got = append(got, r.At(i))
	}
	assert.Equal(t, []int64{5, 4, 3, 2, 1, 0}, got)
}

func TestListSliceIsIndependentCopy(t *testing.T) {
	l := NewList([]Value{Int(1), Int(2), Int(3)})
	sub, ok := l.Slice(1, 3)
	require.True(t, ok)
	sub.Set(0, Int(99))
	v, _ := l.Get(1)
	assert.Equal(t, int64(2), v.AsInt(), "slicing a List must copy, not alias")
}

func TestDeepCopyHandlesCycles(t *testing.T) {
	l := NewList(nil)
	lv := List_(l)
	l.Push(Int(1))
	l.Push(lv) // self-reference

	copied := DeepCopy(lv)
	copiedList := copied.AsList()
	assert.Equal(t, int64(1), copiedList.Items()[0].AsInt())
	assert.NotSame(t, l, copiedList.Items()[1].AsList())
	// the cyclic reference inside the copy must point back at the copy
	// itself, not the original.
	assert.Same(t, copiedList, copiedList.Items()[1].AsList())
}

// A Map key is the original Value, not its display rendering: an Int key
// and a String key that render the same text must stay distinct entries
// (spec §3.6's ValueKey model).
func TestMapIntAndStringKeysStayDistinct(t *testing.T) {
	m := NewMap()
	m.SetValue(Int(1), NewString("a"))
	m.SetValue(NewString("1"), NewString("b"))
	assert.Equal(t, 2, m.Len())

	v, ok := m.GetValue(Int(1))
	require.True(t, ok)
	assert.Equal(t, "a", v.AsString().String())

	v, ok = m.GetValue(NewString("1"))
	require.True(t, ok)
	assert.Equal(t, "b", v.AsString().String())
}

// Two maps without an @== meta entry compare structurally over their data
// entries, regardless of insertion order (spec §4.4.2).
func TestMapStructuralEqualityIgnoresInsertionOrder(t *testing.T) {
	m1 := NewMap()
	m1.Set("a", Int(1))
	m1.Set("b", Int(2))

	m2 := NewMap()
	m2.Set("b", Int(2))
	m2.Set("a", Int(1))

	assert.True(t, Equal(Map_(m1), Map_(m2), nil))

	m3 := NewMap()
	m3.Set("a", Int(1))
	m3.Set("b", Int(3))
	assert.False(t, Equal(Map_(m1), Map_(m3), nil))
}

func TestMapMetaEquality(t *testing.T) {
	m1 := NewMap()
	m1.SetMeta(0, FunctionVal(nil)) // presence alone is enough for this test
	v1 := Map_(m1)
	v2 := Map_(NewMap())
	called := false
	metaEq := func(a, b Value) (Value, bool) {
		called = true
		return Bool(true), true
	}
	assert.True(t, Equal(v1, v2, metaEq))
	assert.True(t, called)
}
