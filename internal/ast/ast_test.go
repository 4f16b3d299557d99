package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glint-lang/glint/internal/token"
)

func TestConstantPoolInterning(t *testing.T) {
	p := NewConstantPool()
	a := p.Int(42)
	b := p.Int(42)
	c := p.Int(7)
	assert.Equal(t, a, b, "repeated int literal must share one slot")
	assert.NotEqual(t, a, c)
	assert.Equal(t, int64(42), p.IntAt(a))

	s1 := p.String("hello")
	s2 := p.String("hello")
	assert.Equal(t, s1, s2)
}

func TestArenaAddAndList(t *testing.T) {
	a := NewArena()
	lit := a.Add(Node{Kind: KIntLit, Const: a.Pool.Int(1)}, token.Span{})
	lit2 := a.Add(Node{Kind: KIntLit, Const: a.Pool.Int(2)}, token.Span{})
	extra := a.AddList([]NodeIndex{lit, lit2})
	listNode := a.Add(Node{Kind: KList, Extra: extra}, token.Span{})

	got := a.Get(listNode)
	assert.Equal(t, KList, got.Kind)
	children := a.List(got.Extra)
	assert.Equal(t, []NodeIndex{lit, lit2}, children)
}
