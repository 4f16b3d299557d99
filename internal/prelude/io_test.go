package prelude

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glint-lang/glint/internal/value"
)

func TestIOPrintSubstitutesPositionalPlaceholders(t *testing.T) {
	var out bytes.Buffer
	m := IO(strings.NewReader(""), &out)
	fn, ok := m.Get("print")
	require.True(t, ok)

	_, err := fn.AsExternalFunction().Fn([]value.Value{
		value.Str(value.NewStr("foo {}")),
		value.Int(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "foo 3\n", out.String())
}

func TestIOWriteLineIgnoresPlaceholders(t *testing.T) {
	var out bytes.Buffer
	m := IO(strings.NewReader(""), &out)
	fn, ok := m.Get("write_line")
	require.True(t, ok)

	_, err := fn.AsExternalFunction().Fn([]value.Value{value.Str(value.NewStr("{} literal"))})
	require.NoError(t, err)
	assert.Equal(t, "{} literal\n", out.String())
}

func TestIOWriteAddsNoNewline(t *testing.T) {
	var out bytes.Buffer
	m := IO(strings.NewReader(""), &out)
	fn, ok := m.Get("write")
	require.True(t, ok)

	_, err := fn.AsExternalFunction().Fn([]value.Value{value.Str(value.NewStr("ab")), value.Str(value.NewStr("cd"))})
	require.NoError(t, err)
	assert.Equal(t, "abcd", out.String())
}

func TestIOReadLineStripsNewline(t *testing.T) {
	var out bytes.Buffer
	m := IO(strings.NewReader("hello\nworld\n"), &out)
	fn, ok := m.Get("read_line")
	require.True(t, ok)

	v, err := fn.AsExternalFunction().Fn(nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", v.AsString().String())

	v, err = fn.AsExternalFunction().Fn(nil)
	require.NoError(t, err)
	assert.Equal(t, "world", v.AsString().String())
}

func TestIOReadLineAtEOFReturnsNil(t *testing.T) {
	var out bytes.Buffer
	m := IO(strings.NewReader(""), &out)
	fn, ok := m.Get("read_line")
	require.True(t, ok)

	v, err := fn.AsExternalFunction().Fn(nil)
	require.NoError(t, err)
	assert.Equal(t, value.Nil, v)
}

func TestIOFlushOnNonFlusherIsNoop(t *testing.T) {
	var out bytes.Buffer
	m := IO(strings.NewReader(""), &out)
	fn, ok := m.Get("flush")
	require.True(t, ok)

	_, err := fn.AsExternalFunction().Fn(nil)
	assert.NoError(t, err)
}
