package vm

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/compiler"
	"github.com/glint-lang/glint/internal/parser"
	"github.com/glint-lang/glint/internal/value"
)

func run(t *testing.T, src string) (value.Value, *VM) {
	t.Helper()
	arena, root, err := parser.Parse(src, "<test>")
	require.NoError(t, err)
	c := compiler.New(arena, "<test>", src)
	chunk, err := c.CompileModule(root)
	require.NoError(t, err)
	var out bytes.Buffer
	m := New(Settings{Stdout: &out, Stderr: &out})
	m.SetSource("<test>", src)
	result, err := m.RunChunk(chunk)
	require.NoError(t, err)
	return result, m
}

func TestArithmeticPromotion(t *testing.T) {
	_, m := run(t, "result = 1 + 2 * 3\nexport result\n")
	v, ok := m.Global("result")
	require.True(t, ok)
	assert.Equal(t, int64(7), v.AsInt())
}

func TestExportedGlobal(t *testing.T) {
	_, m := run(t, "x = 10\nexport x\n")
	v, ok := m.Global("x")
	require.True(t, ok)
	assert.Equal(t, int64(10), v.AsInt())
}

func TestStringConcatAndInterpolation(t *testing.T) {
	_, m := run(t, "name = \"glint\"\ngreeting = \"hi ${name}\"\nexport greeting\n")
	v, ok := m.Global("greeting")
	require.True(t, ok)
	assert.Equal(t, "hi glint", v.AsString().String())
}

func TestIfExpression(t *testing.T) {
	_, m := run(t, "x = if 1 < 2 then 10 else 20\nexport x\n")
	v, _ := m.Global("x")
	assert.Equal(t, int64(10), v.AsInt())
}

func TestForLoopOverList(t *testing.T) {
	_, m := run(t, "total = 0\nfor n in [1, 2, 3]\n  total += n\nexport total\n")
	v, _ := m.Global("total")
	assert.Equal(t, int64(6), v.AsInt())
}

func TestForLoopOverRangeDescendingInclusive(t *testing.T) {
	_, m := run(t, "total = 0\nfor n in 3..=1\n  total += n\nexport total\n")
	v, _ := m.Global("total")
	assert.Equal(t, int64(6), v.AsInt())
}

func TestClosureCapturesEnclosingLocal(t *testing.T) {
	_, m := run(t, "n = 5\nadd_n = |x| x + n\nresult = add_n(10)\nexport result\n")
	v, _ := m.Global("result")
	assert.Equal(t, int64(15), v.AsInt())
}

func TestTryCatchBindsCaughtValue(t *testing.T) {
	_, m := run(t, "caught = \"none\"\ntry\n  throw \"boom\"\ncatch e\n  caught = e\nexport caught\n")
	v, _ := m.Global("caught")
	assert.Equal(t, "boom", v.AsString().String())
}

// A thrown value is identical by value equality to what `catch` binds,
// not a stringified rendering of it (spec §4.4.5, §8).
func TestTryCatchPreservesThrownValueKind(t *testing.T) {
	_, m := run(t, "caught = 0\ntry\n  throw 42\ncatch e\n  caught = e\nexport caught\n")
	v, ok := m.Global("caught")
	require.True(t, ok)
	require.Equal(t, value.KindInt, v.Kind())
	assert.Equal(t, int64(42), v.AsInt())
}

func TestTryCatchPreservesThrownMapIdentity(t *testing.T) {
	_, m := run(t, "caught = 0\ntry\n  throw {n: 7}\ncatch e\n  caught = e\nexport caught\n")
	v, ok := m.Global("caught")
	require.True(t, ok)
	require.Equal(t, value.KindMap, v.Kind())
	n, ok := v.AsMap().Get("n")
	require.True(t, ok)
	assert.Equal(t, int64(7), n.AsInt())
}

func TestMapMetaAddOverload(t *testing.T) {
	m := value.NewMap()
	m.Set("n", value.Int(1))
	m.SetMeta(bytecode.MetaAdd, value.ExternalFunctionVal(&value.ExternalFunction{
		Name: "add",
		Fn: func(args []value.Value) (value.Value, error) {
			lhs := args[0].AsMap()
			n, _ := lhs.Get("n")
			out := value.NewMap()
			out.Set("n", value.Int(n.AsInt()+args[1].AsInt()))
			return value.Map_(out), nil
		},
	}))

	vmInst := New(DefaultSettings())
	res, err := vmInst.arith(bytecode.OpAdd, value.Map_(m), value.Int(4))
	require.NoError(t, err)
	n, _ := res.AsMap().Get("n")
	assert.Equal(t, int64(5), n.AsInt())
}

// Meta dispatch: a map with no @+ entry errors on `+` rather than
// falling back to some structural behavior (spec §8's meta-dispatch
// invariant).
func TestMapWithoutMetaAddErrorsOnPlus(t *testing.T) {
	m := value.NewMap()
	m.Set("n", value.Int(1))
	vmInst := New(DefaultSettings())
	_, err := vmInst.arith(bytecode.OpAdd, value.Map_(m), value.Int(4))
	assert.Error(t, err)
}

func TestGeneratorYieldsValuesLazily(t *testing.T) {
	_, m := run(t, "gen = |n| yield n\ng = gen(3)\ntotal = 0\nfor v in g\n  total += v\nexport total\n")
	v, _ := m.Global("total")
	assert.Equal(t, int64(3), v.AsInt())
}

// A generator is a suspended frame, not a goroutine: stopping a `for`
// loop over it with `break` after the first of many yields must not
// block or leave anything running in the background (spec §5).
func TestGeneratorAbandonedBeforeExhaustionDoesNotBlock(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(t, "gen = |n| for i in 0..n\n  yield i\nfor v in gen(1000000)\n  break\n")
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("generator loop did not return after break; a suspended frame should not block")
	}
}

// Iteration: a for-loop over a map visits ordered key/value pairs (spec
// §8's iteration invariant).
func TestForLoopOverMapYieldsKeyValuePairs(t *testing.T) {
	_, m := run(t, "total = 0\nfor k, v in {a: 1, b: 2}\n  total += v\nexport total\n")
	v, ok := m.Global("total")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInt())
}

// A map literal's bare keys are literal names, not variable references,
// and `@+` binds the meta-map's add overload rather than a regular field
// (spec §3.6, §8 scenario 4).
func TestMapLiteralKeysAreLiteralNamesAndMetaAddOverloads(t *testing.T) {
	_, m := run(t, "m = {foo: 42, @+: |self, other| {foo: self.foo + other.foo}}\nresult = (m + m).foo\nexport result\n")
	v, ok := m.Global("result")
	require.True(t, ok)
	assert.Equal(t, int64(84), v.AsInt())
}

// Interpolated pieces are stringified before concatenation, not added as
// raw values: a non-string piece (here a Float from `.sqrt()`) must not
// hit the arithmetic type-mismatch error that `String + Float` would
// otherwise raise (spec §8 scenario 5).
func TestStringInterpolationStringifiesNonStringPiece(t *testing.T) {
	_, m := run(t, "x = 99\ngreeting = \"sqrt(x): ${x.sqrt()}\"\nexport greeting\n")
	v, ok := m.Global("greeting")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(v.AsString().String(), "sqrt(x): 9.94987"))
}

// A Map index keyed by the Int 1 and one keyed by the String "1" must not
// collide just because they render the same text (spec §3.6's ValueKey
// model).
func TestMapIndexDistinguishesIntAndStringKeys(t *testing.T) {
	_, m := run(t, "m = {}\nm[1] = \"int-key\"\nm[\"1\"] = \"string-key\"\nexport m\n")
	v, ok := m.Global("m")
	require.True(t, ok)
	mapVal := v.AsMap()
	assert.Equal(t, 2, mapVal.Len())

	intEntry, ok := mapVal.GetValue(value.Int(1))
	require.True(t, ok)
	assert.Equal(t, "int-key", intEntry.AsString().String())

	strEntry, ok := mapVal.GetValue(value.NewString("1"))
	require.True(t, ok)
	assert.Equal(t, "string-key", strEntry.AsString().String())
}

func TestMatchDestructuresNestedTuplePattern(t *testing.T) {
	_, m := run(t, "result = match (1, (2, 3), 4)\n  (1, (x, y), z) then x + y + z\nexport result\n")
	v, ok := m.Global("result")
	require.True(t, ok)
	assert.Equal(t, int64(9), v.AsInt())
}

func TestMatchFallsThroughToNilWhenNoArmMatches(t *testing.T) {
	_, m := run(t, "result = match 5\n  1 then \"one\"\nexport result\n")
	v, ok := m.Global("result")
	require.True(t, ok)
	assert.Equal(t, value.KindNil, v.Kind())
}

func TestListSplitPartitionsByPredicate(t *testing.T) {
	_, m := run(t, "parts = [1, 2, 3, 4].split(|n| n > 2)\nexport parts\n")
	v, ok := m.Global("parts")
	require.True(t, ok)
	parts := v.AsTuple().Items()
	require.Len(t, parts, 2)

	matched := parts[0].AsList().Items()
	require.Len(t, matched, 2)
	assert.Equal(t, int64(3), matched[0].AsInt())
	assert.Equal(t, int64(4), matched[1].AsInt())

	rest := parts[1].AsList().Items()
	require.Len(t, rest, 2)
	assert.Equal(t, int64(1), rest[0].AsInt())
	assert.Equal(t, int64(2), rest[1].AsInt())
}
