package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/parser"
)

func compile(t *testing.T, src string) *bytecode.Chunk {
	t.Helper()
	arena, root, err := parser.Parse(src, "<test>")
	require.NoError(t, err)
	c := New(arena, "<test>", src)
	chunk, err := c.CompileModule(root)
	require.NoError(t, err)
	return chunk
}

func TestCompileArithmetic(t *testing.T) {
	chunk := compile(t, "x = 1 + 2 * 3\n")
	assert.NotEmpty(t, chunk.Code)
	assert.Contains(t, chunk.Ints, int64(1))
	assert.Contains(t, chunk.Ints, int64(2))
	assert.Contains(t, chunk.Ints, int64(3))

	r := bytecode.NewReader(chunk)
	var ops []bytecode.OpCode
	for !r.AtEnd() {
		op := r.ReadOp()
		ops = append(ops, op)
		skipOperands(t, chunk, r, op)
	}
	assert.Contains(t, ops, bytecode.OpMul)
	assert.Contains(t, ops, bytecode.OpAdd)
}

func TestCompileFunctionLiteral(t *testing.T) {
	chunk := compile(t, "f = |a, b| a + b\n")
	require.Len(t, chunk.Functions, 1)
	proto := chunk.Functions[0]
	assert.Equal(t, 2, proto.ArgCount)
	assert.False(t, proto.Generator)
}

func TestCompileGeneratorFlag(t *testing.T) {
	chunk := compile(t, "f = |x| yield x\n")
	require.Len(t, chunk.Functions, 1)
	assert.True(t, chunk.Functions[0].Generator)
}

func TestCompileClosureCapture(t *testing.T) {
	chunk := compile(t, "n = 1\nf = |x| x + n\n")
	require.Len(t, chunk.Functions, 1)
	assert.Contains(t, chunk.Functions[0].CaptureNames, "n")
}

// Closures only capture non-locals: a name assigned inside the function
// itself is a local, never a capture, even if a same-named outer binding
// exists (spec §8's closures invariant).
func TestCompileClosureDoesNotCaptureLocallyAssignedName(t *testing.T) {
	chunk := compile(t, "x = 1\nf = |x| x + 1\n")
	require.Len(t, chunk.Functions, 1)
	assert.NotContains(t, chunk.Functions[0].CaptureNames, "x")
}

// A map literal's bare key is a literal name, not a variable reference, so
// it must not force a closure to capture an unrelated outer local that
// happens to share the key's name.
func TestCompileClosureIgnoresMapLiteralKeyAsCapture(t *testing.T) {
	chunk := compile(t, "foo = 1\nf = |x| {foo: x}\n")
	require.Len(t, chunk.Functions, 1)
	assert.NotContains(t, chunk.Functions[0].CaptureNames, "foo")
}

// Constant pool: the same int/string value reused across a module is
// interned once (spec §8's constant-pool invariant).
func TestConstantPoolDeduplicatesRepeatedValues(t *testing.T) {
	chunk := compile(t, "a = 7\nb = 7\nc = \"dup\"\nd = \"dup\"\n")
	count := func(v int64) int {
		n := 0
		for _, existing := range chunk.Ints {
			if existing == v {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, count(7))

	strCount := 0
	for _, s := range chunk.Strings {
		if s == "dup" {
			strCount++
		}
	}
	assert.Equal(t, 1, strCount)
}

// Indented-block bodies (if/while/for/try) compile to a KBlock node;
// compileExpr must accept one directly as an expression.
func TestCompileIndentedIfBlockBody(t *testing.T) {
	chunk := compile(t, "x = 0\nif x == 0\n  x = 1\nelse\n  x = 2\n")
	assert.NotEmpty(t, chunk.Code)
}

func TestCompileForLoopBlockBody(t *testing.T) {
	chunk := compile(t, "total = 0\nfor n in [1, 2, 3]\n  total += n\n")
	r := bytecode.NewReader(chunk)
	var ops []bytecode.OpCode
	for !r.AtEnd() {
		op := r.ReadOp()
		ops = append(ops, op)
		skipOperands(t, chunk, r, op)
	}
	assert.Contains(t, ops, bytecode.OpMakeIterator)
	assert.Contains(t, ops, bytecode.OpIterNext)
}

// skipOperands advances r's cursor past op's fixed-width operands for the
// subset of opcodes this compiler currently emits, by opcode shape rather
// than a real decoder (the VM owns full decoding).
func skipOperands(t *testing.T, chunk *bytecode.Chunk, r *bytecode.Reader, op bytecode.OpCode) {
	t.Helper()
	switch op {
	case bytecode.OpLoadNil, bytecode.OpLoadTrue, bytecode.OpLoadFalse:
		r.ReadByte()
	case bytecode.OpLoadInt, bytecode.OpLoadFloat, bytecode.OpLoadString, bytecode.OpLoadNonLocal:
		r.ReadByte()
		r.ReadConstIndex()
	case bytecode.OpMove, bytecode.OpReturn, bytecode.OpYield, bytecode.OpThrow:
		r.ReadByte()
		if op == bytecode.OpMove {
			r.ReadByte()
		}
	case bytecode.OpNeg, bytecode.OpNot, bytecode.OpToString, bytecode.OpCopy, bytecode.OpDeepCopy:
		r.ReadByte()
		r.ReadByte()
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod,
		bytecode.OpEqual, bytecode.OpNotEqual, bytecode.OpLess, bytecode.OpLessEqual,
		bytecode.OpGreater, bytecode.OpGreaterEqual, bytecode.OpGetIndex:
		r.ReadByte()
		r.ReadByte()
		r.ReadByte()
	case bytecode.OpJump:
		r.ReadI16()
	case bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue:
		r.ReadByte()
		r.ReadI16()
	case bytecode.OpJumpBack:
		r.ReadI16()
	case bytecode.OpMakeList, bytecode.OpMakeTuple, bytecode.OpMakeMap:
		r.ReadByte()
		r.ReadByte()
		r.ReadByte()
	case bytecode.OpMakeRange:
		r.ReadByte()
		r.ReadByte()
		r.ReadByte()
		r.ReadByte()
	case bytecode.OpMakeIterator:
		r.ReadByte()
		r.ReadByte()
	case bytecode.OpIterNext:
		r.ReadByte()
		r.ReadByte()
		r.ReadByte()
	case bytecode.OpFunction:
		r.ReadByte()
		r.ReadConstIndex()
		n := r.ReadByte()
		for i := byte(0); i < n; i++ {
			r.ReadByte()
		}
	case bytecode.OpCall:
		r.ReadByte()
		r.ReadByte()
		r.ReadByte()
		r.ReadByte()
	case bytecode.OpGetField, bytecode.OpSetField:
		r.ReadByte()
		r.ReadConstIndex()
		r.ReadByte()
	case bytecode.OpSetIndex, bytecode.OpSetMeta:
		r.ReadByte()
		r.ReadByte()
		r.ReadByte()
	case bytecode.OpImport:
		r.ReadByte()
		r.ReadConstIndex()
	case bytecode.OpExport:
		r.ReadConstIndex()
		r.ReadByte()
	case bytecode.OpTryStart:
		r.ReadByte()
		r.ReadI16()
	case bytecode.OpTryEnd, bytecode.OpFinallyStart, bytecode.OpFinallyEnd:
		// no operands
	}
}
