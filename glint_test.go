package glint

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glint-lang/glint/internal/value"
)

func TestCompileAndRunReturnsResult(t *testing.T) {
	var out bytes.Buffer
	v := New(Settings{Stdout: &out, Stderr: &out})
	chunk, err := v.Compile("1 + 2\n", "<test>")
	require.NoError(t, err)
	result, err := v.Run(chunk)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.AsInt())
}

func TestExportedGlobalReadableAfterRun(t *testing.T) {
	var out bytes.Buffer
	v := New(Settings{Stdout: &out, Stderr: &out})
	chunk, err := v.Compile("total = 0\nfor n in [1, 2, 3]\n  total += n\nexport total\n", "<test>")
	require.NoError(t, err)
	_, err = v.Run(chunk)
	require.NoError(t, err)
	got, ok := v.Global("total")
	require.True(t, ok)
	assert.Equal(t, int64(6), got.AsInt())
}

func TestIOPrintWritesToConfiguredStdout(t *testing.T) {
	var out bytes.Buffer
	v := New(Settings{Stdout: &out, Stderr: &out})
	chunk, err := v.Compile("for i in 0..5\n  io.print 'foo {}', i\n", "<test>")
	require.NoError(t, err)
	_, err = v.Run(chunk)
	require.NoError(t, err)
	assert.Equal(t, "foo 0\nfoo 1\nfoo 2\nfoo 3\nfoo 4\n", out.String())
}

func TestCompileErrorWithoutRunning(t *testing.T) {
	v := New(Settings{})
	_, err := v.Compile("x = (\n", "<test>")
	assert.Error(t, err)
}

// The remaining tests are the literal end-to-end scenarios from spec §8,
// each exercised through the embedding facade exactly as a host would.

func TestScenarioTryCatchFallthrough(t *testing.T) {
	v := New(Settings{})
	chunk, err := v.Compile("x = 1\ntry\n  x += 1\n  x += y\ncatch _\n  x + 1\n", "<test>")
	require.NoError(t, err)
	result, err := v.Run(chunk)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.AsInt())
}

func TestScenarioGeneratorToTuple(t *testing.T) {
	v := New(Settings{})
	chunk, err := v.Compile("gen = || for x in 1..=3\n  yield x*x\ngen().to_tuple()\n", "<test>")
	require.NoError(t, err)
	result, err := v.Run(chunk)
	require.NoError(t, err)
	items := result.AsTuple().Items()
	require.Len(t, items, 3)
	assert.Equal(t, []int64{1, 4, 9}, []int64{items[0].AsInt(), items[1].AsInt(), items[2].AsInt()})
}

func TestScenarioMapMetaAddOverload(t *testing.T) {
	v := New(Settings{})
	src := "m = {foo: 42, @+: |self, other| {foo: self.foo + other.foo}}\n(m + m).foo\n"
	chunk, err := v.Compile(src, "<test>")
	require.NoError(t, err)
	result, err := v.Run(chunk)
	require.NoError(t, err)
	assert.Equal(t, int64(84), result.AsInt())
}

func TestScenarioStringInterpolatesMethodCall(t *testing.T) {
	v := New(Settings{})
	chunk, err := v.Compile("x = 99\n'sqrt(x): ${x.sqrt()}'\n", "<test>")
	require.NoError(t, err)
	result, err := v.Run(chunk)
	require.NoError(t, err)
	assert.Contains(t, result.AsString().String(), "sqrt(x): 9.94987")
}

func TestScenarioNestedTupleMatch(t *testing.T) {
	v := New(Settings{})
	chunk, err := v.Compile("match (1, (2, 3), 4)\n  (1, (x, y), z) then x + y + z\n", "<test>")
	require.NoError(t, err)
	result, err := v.Run(chunk)
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.AsInt())
}

func TestRegisterPreludeDottedPath(t *testing.T) {
	var out bytes.Buffer
	v := New(Settings{Stdout: &out, Stderr: &out})
	chunk, err := v.Compile("total = 0\nfor n in [1, 2, 3]\n  total += n\nexport total\n", "<test>")
	require.NoError(t, err)
	_, err = v.Run(chunk)
	require.NoError(t, err)

	// io is already registered by New; a second RegisterPrelude under the
	// same root must extend, not clobber, the existing namespace map.
	v.RegisterPrelude("io.flush", value.ExternalFunctionVal(&value.ExternalFunction{
		Name: "flush",
		Fn:   func(args []value.Value) (value.Value, error) { return value.Nil, nil },
	}))
	chunk2, err := v.Compile("io.print 'still here'\n", "<test>")
	require.NoError(t, err)
	_, err = v.Run(chunk2)
	require.NoError(t, err)
	assert.Equal(t, "still here\n", out.String())
}
