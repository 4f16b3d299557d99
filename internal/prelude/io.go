// Package prelude builds the host-provided entries a glint VM starts
// with: io.print/io.write_line/io.read_line/io.flush bound to the
// embedder's configured I/O, addressable by dotted path (spec §6.2).
//
// Grounded on the teacher's createIOModule/createMathModule pattern in
// internal/vmregister/vm.go: a module is just a Map of name -> built-in
// ExternalFunction, looked up the same way any other field access is.
package prelude

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/glint-lang/glint/internal/value"
)

// IO builds the `io` prelude map (spec §6.2's read/write/write_line/flush
// capabilities): `print` formats like spec §8 scenario 1 (`'foo {}'` with
// positional `{}` placeholders) and writes a trailing newline;
// `write_line` does the same without format substitution; `write` writes
// bytes with no added newline; `read_line` reads one line from in with
// its trailing newline stripped; `flush` flushes out if it supports
// flushing, and is a no-op otherwise.
func IO(in io.Reader, out io.Writer) *value.Map {
	reader := bufio.NewReader(in)
	m := value.NewMap()
	m.Set("print", value.ExternalFunctionVal(&value.ExternalFunction{
		Name: "print",
		Fn: func(args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Nil, nil
			}
			format := args[0].AsString().String()
			rendered := substitutePlaceholders(format, args[1:])
			if _, err := fmt.Fprintln(out, rendered); err != nil {
				return value.Nil, err
			}
			return value.Nil, nil
		},
	}))
	m.Set("write_line", value.ExternalFunctionVal(&value.ExternalFunction{
		Name: "write_line",
		Fn: func(args []value.Value) (value.Value, error) {
			for _, a := range args {
				if _, err := fmt.Fprintln(out, value.ToDisplayString(a)); err != nil {
					return value.Nil, err
				}
			}
			return value.Nil, nil
		},
	}))
	m.Set("write", value.ExternalFunctionVal(&value.ExternalFunction{
		Name: "write",
		Fn: func(args []value.Value) (value.Value, error) {
			for _, a := range args {
				if _, err := fmt.Fprint(out, value.ToDisplayString(a)); err != nil {
					return value.Nil, err
				}
			}
			return value.Nil, nil
		},
	}))
	m.Set("read_line", value.ExternalFunctionVal(&value.ExternalFunction{
		Name: "read_line",
		Fn: func(args []value.Value) (value.Value, error) {
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				if err == io.EOF {
					return value.Nil, nil
				}
				return value.Nil, err
			}
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			return value.Str(value.NewStr(line)), nil
		},
	}))
	m.Set("flush", value.ExternalFunctionVal(&value.ExternalFunction{
		Name: "flush",
		Fn: func(args []value.Value) (value.Value, error) {
			if f, ok := out.(interface{ Flush() error }); ok {
				return value.Nil, f.Flush()
			}
			return value.Nil, nil
		},
	}))
	return m
}

// substitutePlaceholders replaces successive `{}` occurrences in format
// with the display rendering of args, in order.
func substitutePlaceholders(format string, args []value.Value) string {
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(format, "{}")
		if idx < 0 || i >= len(args) {
			b.WriteString(format)
			break
		}
		b.WriteString(format[:idx])
		b.WriteString(value.ToDisplayString(args[i]))
		format = format[idx+2:]
		i++
	}
	return b.String()
}
