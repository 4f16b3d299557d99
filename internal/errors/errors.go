// Package errors defines glint's error taxonomy and the span+excerpt+caret
// rendering shared by the lexer, parser, compiler, VM, and loader.
//
// Grounded on sentra's internal/errors/errors.go: same overall shape
// (ErrorType, a message, a location, a rendered excerpt with a caret,
// an optional call stack) generalized from (file, line, column) triples
// to token.Span so one renderer serves every layer.
package errors

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	pkgerrors "github.com/pkg/errors"

	"github.com/glint-lang/glint/internal/token"
	"github.com/glint-lang/glint/internal/value"
)

// Kind distinguishes the layer (and, within parsing, the precise reason)
// an error came from, per spec §7's taxonomy.
type Kind string

const (
	LexError         Kind = "LexError"
	SyntaxError      Kind = "SyntaxError"
	IndentationError Kind = "IndentationError" // "expected more input" shape, for REPLs
	CompileError     Kind = "CompileError"
	RuntimeError     Kind = "RuntimeError"
	LoaderError      Kind = "LoaderError"
)

// StackFrame is one call-site entry in a runtime error's unwind trace.
type StackFrame struct {
	Function string
	Path     string
	Span     token.Span
}

// Error is glint's single error type across all layers.
type Error struct {
	Kind      Kind
	Message   string
	Path      string // source path, empty for REPL input
	Span      token.Span
	Source    string // full source text, for excerpt rendering
	CallStack []StackFrame
	cause     error

	// Thrown holds the original Value passed to a `throw` expression, so
	// a `catch` binding can recover it by value equality rather than a
	// stringified rendering (spec §4.4.5: a thrown value may be any
	// value, and propagation binds that same value). HasThrown
	// distinguishes "threw Nil" from "never threw anything" (a runtime
	// fault like division by zero), since the zero Value is itself Nil.
	Thrown    value.Value
	HasThrown bool
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) WithSpan(sp token.Span) *Error {
	e.Span = sp
	return e
}

func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

func (e *Error) WithSource(src string) *Error {
	e.Source = src
	return e
}

func (e *Error) AddFrame(f StackFrame) *Error {
	e.CallStack = append(e.CallStack, f)
	return e
}

// WithThrown attaches the original Value a `throw` expression raised, so
// a later `catch` can recover it intact instead of its display string.
func (e *Error) WithThrown(v value.Value) *Error {
	e.Thrown = v
	e.HasThrown = true
	return e
}

// Wrap attaches a lower-layer cause (e.g. an I/O failure) with a stack
// trace via github.com/pkg/errors, for loader diagnostics.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: pkgerrors.Wrap(cause, message)}
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", e.Kind, e.Message)

	if e.Path != "" || e.Span != (token.Span{}) {
		loc := e.Path
		if loc == "" {
			loc = "<input>"
		}
		fmt.Fprintf(&sb, "  at %s:%s\n", loc, e.Span.Start)
	}

	if excerpt := e.excerpt(); excerpt != "" {
		sb.WriteString("\n")
		sb.WriteString(excerpt)
		sb.WriteString("\n")
	}

	if len(e.CallStack) > 0 {
		sb.WriteString("\nCall Stack:\n")
		for _, f := range e.CallStack {
			if f.Function != "" {
				fmt.Fprintf(&sb, "  at %s (%s:%s)\n", f.Function, f.Path, f.Span.Start)
			} else {
				fmt.Fprintf(&sb, "  at %s:%s\n", f.Path, f.Span.Start)
			}
		}
	}

	if e.cause != nil {
		fmt.Fprintf(&sb, "\ncaused by: %v\n", e.cause)
	}

	return sb.String()
}

// excerpt renders the offending line with a caret underlining the span,
// matching spec §6.5's "two-line excerpt with a caret" requirement.
// Column offsets are computed in displayed cell widths via go-runewidth
// so wide runes don't misplace the caret.
func (e *Error) excerpt() string {
	if e.Source == "" {
		return ""
	}
	lines := strings.Split(e.Source, "\n")
	lineNo := e.Span.Start.Line
	if lineNo < 1 || lineNo > len(lines) {
		return ""
	}
	line := lines[lineNo-1]

	prefix := fmt.Sprintf("%d | ", lineNo)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s\n", prefix, line)

	col := e.Span.Start.Column
	width := displayWidth(line, col)
	sb.WriteString(strings.Repeat(" ", len(prefix)))
	sb.WriteString(strings.Repeat(" ", width))
	sb.WriteString("^")
	return sb.String()
}

// displayWidth returns the caret's horizontal offset for a span starting
// at display column col (Position.Column counts display cells, not runes):
// the total width of the leading runes of line that end before col.
func displayWidth(line string, col int) int {
	width := 0
	for _, r := range line {
		w := runewidth.RuneWidth(r)
		if width+w > col-1 {
			break
		}
		width += w
	}
	return width
}

// IsIndentation reports whether err signals "the parser needs more
// indented input" — the shape a REPL uses to decide to keep reading
// rather than reporting a hard syntax error.
func IsIndentation(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == IndentationError
}