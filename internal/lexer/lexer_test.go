package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glint-lang/glint/internal/token"
)

func collect(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New(src, "<test>")
	var toks []token.Token
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestScanOperatorsAndKeywords(t *testing.T) {
	toks := collect(t, "x = 1 + 2..=3 >> foo")
	got := kinds(toks)
	assert.Equal(t, []token.Kind{
		token.Ident, token.Assign, token.Int, token.Plus, token.Int,
		token.RangeIncl, token.Int, token.PipeOp, token.Ident, token.EOF,
	}, got)
}

func TestScanIndentation(t *testing.T) {
	toks := collect(t, "if true\n  x = 1\n")
	got := kinds(toks)
	assert.Contains(t, got, token.NewLineIndented)
}

func TestScanBareTemplateOrder(t *testing.T) {
	toks := collect(t, `"hello $name!"`)
	got := kinds(toks)
	assert.Equal(t, []token.Kind{
		token.Str, token.StrLiteral, token.StrExprStart, token.Ident, token.StrExprEnd,
		token.StrLiteral, token.Str, token.EOF,
	}, got)
}

func TestScanBraceTemplateWithNestedMap(t *testing.T) {
	toks := collect(t, `"${ {x: 1}.x }"`)
	got := kinds(toks)
	assert.Equal(t, token.Str, got[0])
	assert.Equal(t, token.StrExprStart, got[1])
	// nested map braces must not close the template expression early
	assert.Contains(t, got, token.LBrace)
	assert.Equal(t, token.StrExprEnd, got[len(got)-3])
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New("foo bar", "<test>")
	first, err := l.Peek()
	require.NoError(t, err)
	assert.Equal(t, token.Ident, first.Kind)
	assert.Equal(t, "foo", first.Text)

	again, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, first, again)

	second, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, "bar", second.Text)
}

func TestUnterminatedStringErrors(t *testing.T) {
	l := New(`"abc`, "<test>")
	_, err := l.Next() // Str open
	require.NoError(t, err)
	_, err = l.Next()
	assert.Error(t, err)
}

func TestNumberForms(t *testing.T) {
	toks := collect(t, "0x1F 0o17 0b101 3.14 2e10")
	require.Len(t, toks, 6)
	for i := 0; i < 5; i++ {
		assert.True(t, toks[i].Kind == token.Int || toks[i].Kind == token.Float)
	}
	assert.Equal(t, token.Float, toks[3].Kind)
	assert.Equal(t, token.Float, toks[4].Kind)
}
