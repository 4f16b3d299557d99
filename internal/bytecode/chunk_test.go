package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glint-lang/glint/internal/token"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := NewChunk("<test>")
	c.ConstWidth = Width8
	c.Ints = append(c.Ints, 42)

	w := NewWriter(c)
	w.Emit(OpLoadNil, token.Span{}, 0)
	w.EmitConst(OpLoadInt, token.Span{}, 1, 0)
	w.Emit(OpAdd, token.Span{}, 2, 0, 1)
	w.Emit(OpReturn, token.Span{}, 2)

	r := NewReader(c)
	assert.Equal(t, OpLoadNil, r.ReadOp())
	assert.Equal(t, byte(0), r.ReadByte())

	assert.Equal(t, OpLoadInt, r.ReadOp())
	assert.Equal(t, byte(1), r.ReadByte())
	assert.Equal(t, uint32(0), r.ReadConstIndex())

	assert.Equal(t, OpAdd, r.ReadOp())
	assert.Equal(t, byte(2), r.ReadByte())
	assert.Equal(t, byte(0), r.ReadByte())
	assert.Equal(t, byte(1), r.ReadByte())

	assert.Equal(t, OpReturn, r.ReadOp())
	assert.Equal(t, byte(2), r.ReadByte())
	assert.True(t, r.AtEnd())
}

func TestJumpPatching(t *testing.T) {
	c := NewChunk("<test>")
	w := NewWriter(c)
	patch := w.EmitJump(OpJumpIfFalse, token.Span{}, 0)
	w.Emit(OpLoadNil, token.Span{}, 1)
	base := patch + 2
	w.PatchJump(patch)

	r := NewReader(c)
	assert.Equal(t, OpJumpIfFalse, r.ReadOp())
	assert.Equal(t, byte(0), r.ReadByte())
	offset := r.ReadI16()
	r.Jump(base, offset)
	assert.True(t, r.AtEnd())
}

func TestWidthSelection(t *testing.T) {
	assert.Equal(t, Width8, WidthFor(10))
	assert.Equal(t, Width16, WidthFor(1000))
	assert.Equal(t, Width24, WidthFor(100000))
}

func TestSpanAtFindsEnclosingInstruction(t *testing.T) {
	c := NewChunk("<test>")
	w := NewWriter(c)
	sp1 := token.Span{Start: token.Position{Line: 1, Column: 1}}
	sp2 := token.Span{Start: token.Position{Line: 2, Column: 1}}
	w.Emit(OpLoadNil, sp1, 0)
	offsetBeforeSecond := w.Offset()
	w.Emit(OpAdd, sp2, 0, 0, 0)

	assert.Equal(t, sp1, c.SpanAt(offsetBeforeSecond-1))
	assert.Equal(t, sp2, c.SpanAt(offsetBeforeSecond))
}
