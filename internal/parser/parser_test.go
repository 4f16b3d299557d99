package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	glintast "github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/token"
)

func TestParseSimpleAssignment(t *testing.T) {
	arena, root, err := Parse("x = 1 + 2\n", "<test>")
	require.NoError(t, err)
	block := arena.Get(root)
	require.Equal(t, glintast.KBlock, block.Kind)
	stmts := arena.List(block.Extra)
	require.Len(t, stmts, 1)

	assign := arena.Get(stmts[0])
	assert.Equal(t, glintast.KAssign, assign.Kind)

	rhs := arena.Get(assign.B)
	assert.Equal(t, glintast.KBinary, rhs.Kind)
}

func TestParseIfElse(t *testing.T) {
	src := "if x > 0\n  y = 1\nelse\n  y = 2\n"
	arena, root, err := Parse(src, "<test>")
	require.NoError(t, err)
	stmts := arena.List(arena.Get(root).Extra)
	require.Len(t, stmts, 1)
	ifNode := arena.Get(stmts[0])
	assert.Equal(t, glintast.KIf, ifNode.Kind)
	assert.NotEqual(t, glintast.NoNode, ifNode.C)
}

func TestParseFunctionLiteral(t *testing.T) {
	arena, root, err := Parse("f = |a, b| a + b\n", "<test>")
	require.NoError(t, err)
	stmts := arena.List(arena.Get(root).Extra)
	assign := arena.Get(stmts[0])
	fn := arena.Get(assign.B)
	require.Equal(t, glintast.KFunction, fn.Kind)
	args := arena.List(fn.Extra)
	assert.Len(t, args, 2)
}

func TestParseStringInterpolation(t *testing.T) {
	arena, root, err := Parse(`s = "hello $name!"` + "\n", "<test>")
	require.NoError(t, err)
	stmts := arena.List(arena.Get(root).Extra)
	assign := arena.Get(stmts[0])
	str := arena.Get(assign.B)
	require.Equal(t, glintast.KStringLit, str.Kind)
	pieces := arena.List(str.Extra)
	require.Len(t, pieces, 3)
	assert.Equal(t, glintast.KStringPieceExpr, arena.Get(pieces[1]).Kind)
}

func TestParseForLoop(t *testing.T) {
	arena, root, err := Parse("for x in 0..10\n  y = x\n", "<test>")
	require.NoError(t, err)
	stmts := arena.List(arena.Get(root).Extra)
	forNode := arena.Get(stmts[0])
	assert.Equal(t, glintast.KFor, forNode.Kind)
	iter := arena.Get(forNode.A)
	assert.Equal(t, glintast.KRangeExcl, iter.Kind)
}

func TestParseListAndMap(t *testing.T) {
	arena, root, err := Parse("a = [1, 2, 3]\nb = {x: 1, y}\n", "<test>")
	require.NoError(t, err)
	stmts := arena.List(arena.Get(root).Extra)
	require.Len(t, stmts, 2)
	list := arena.Get(arena.Get(stmts[0]).B)
	assert.Equal(t, glintast.KList, list.Kind)
	assert.Len(t, arena.List(list.Extra), 3)

	m := arena.Get(arena.Get(stmts[1]).B)
	assert.Equal(t, glintast.KMapLit, m.Kind)
	assert.Len(t, arena.List(m.Extra), 4) // 2 keys + 2 values
}

func TestParseMapMetaKey(t *testing.T) {
	arena, root, err := Parse("m = {foo: 1, @+: |self, other| self}\n", "<test>")
	require.NoError(t, err)
	stmts := arena.List(arena.Get(root).Extra)
	m := arena.Get(arena.Get(stmts[0]).B)
	require.Equal(t, glintast.KMapLit, m.Kind)

	entries := arena.List(m.Extra)
	require.Len(t, entries, 4)
	metaKey := arena.Get(entries[2])
	assert.Equal(t, glintast.KMetaKeyLit, metaKey.Kind)
	assert.Equal(t, token.Plus, metaKey.Op)
}

func TestParseTryCatchFinally(t *testing.T) {
	src := "try\n  x = 1\ncatch e\n  x = 2\nfinally\n  x = 3\n"
	arena, root, err := Parse(src, "<test>")
	require.NoError(t, err)
	stmts := arena.List(arena.Get(root).Extra)
	tryNode := arena.Get(stmts[0])
	assert.Equal(t, glintast.KTryCatchFinally, tryNode.Kind)
	assert.NotEqual(t, glintast.NoNode, tryNode.B)
	assert.NotEqual(t, glintast.NoNode, tryNode.C)
}

func TestParseCallChain(t *testing.T) {
	arena, root, err := Parse("x.foo()[0].bar\n", "<test>")
	require.NoError(t, err)
	stmts := arena.List(arena.Get(root).Extra)
	outer := arena.Get(stmts[0])
	assert.Equal(t, glintast.KLookupID, outer.Kind)
}

func TestParseSpaceSeparatedCall(t *testing.T) {
	arena, root, err := Parse("io.print 'foo {}', i\n", "<test>")
	require.NoError(t, err)
	stmts := arena.List(arena.Get(root).Extra)
	require.Len(t, stmts, 1)
	call := arena.Get(stmts[0])
	require.Equal(t, glintast.KLookupCall, call.Kind)
	args := arena.List(call.Extra)
	require.Len(t, args, 2)
	assert.Equal(t, glintast.KStringLit, arena.Get(args[0]).Kind)
	assert.Equal(t, glintast.KIdent, arena.Get(args[1]).Kind)

	callee := arena.Get(call.A)
	assert.Equal(t, glintast.KLookupID, callee.Kind)
}

func TestParseSpaceSeparatedCallDoesNotSwallowBinaryMinus(t *testing.T) {
	arena, root, err := Parse("x = a - b\n", "<test>")
	require.NoError(t, err)
	stmts := arena.List(arena.Get(root).Extra)
	rhs := arena.Get(arena.Get(stmts[0]).B)
	assert.Equal(t, glintast.KBinary, rhs.Kind)
}
