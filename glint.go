// Package glint is the embeddable host facade spec §6.2 requires: a VM
// constructed from Settings, a Compile/Run pair, and dotted-path prelude
// registration, sitting directly on top of internal/vm rather than
// exposing its register/frame machinery to callers.
//
// The teacher (sentra-language-sentra) has no equivalent: cmd/sentra
// wires internal/vmregister directly into a CLI. This package exists
// because spec §6.2 frames the whole system as something hosted inside
// another Go program, not just run from a file.
package glint

import (
	"os"
	"strings"

	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/compiler"
	"github.com/glint-lang/glint/internal/loader"
	"github.com/glint-lang/glint/internal/parser"
	"github.com/glint-lang/glint/internal/prelude"
	"github.com/glint-lang/glint/internal/value"
	"github.com/glint-lang/glint/internal/vm"
)

// VM is one embedded glint program host: a module loader rooted at
// Settings.ModuleDir, a prelude namespace seeded with `io` and
// extensible via RegisterPrelude, and the runtime state Run accumulates
// (module-level globals, exported bindings).
type VM struct {
	inner *vm.VM
}

// New constructs a VM ready to Compile and Run source. Stdout/Stderr
// default to os.Stdout/os.Stderr when left nil.
func New(settings Settings) *VM {
	if settings.Stdout == nil {
		settings.Stdout = os.Stdout
	}
	if settings.Stderr == nil {
		settings.Stderr = os.Stderr
	}
	if settings.Stdin == nil {
		settings.Stdin = os.Stdin
	}

	// Built up as a typed nil interface otherwise: a nil *loader.Loader
	// assigned straight into the ModuleLoader field would compare non-nil,
	// defeating internal/vm's "no loader configured" check.
	var ml vm.ModuleLoader
	if settings.ModuleDir != "" {
		ml = loader.New(settings.ModuleDir)
	}

	v := &VM{inner: vm.New(vm.Settings{
		Stdout: settings.Stdout,
		Stderr: settings.Stderr,
		Loader: ml,
	})}
	v.RegisterPrelude("io", value.Map_(prelude.IO(settings.Stdin, settings.Stdout)))
	return v
}

// Compile parses and lowers source into a Chunk, and attaches path/source
// to the VM so a later runtime error can render a span + excerpt.
func (v *VM) Compile(source, path string) (*bytecode.Chunk, error) {
	arena, root, err := parser.Parse(source, path)
	if err != nil {
		return nil, err
	}
	chunk, err := compiler.New(arena, path, source).CompileModule(root)
	if err != nil {
		return nil, err
	}
	v.inner.SetSource(path, source)
	return chunk, nil
}

// Run executes a compiled Chunk's top-level code and returns its final
// expression value.
func (v *VM) Run(chunk *bytecode.Chunk) (value.Value, error) {
	return v.inner.RunChunk(chunk)
}

// Global reads an exported module-level binding by name after Run (spec
// §6.2's "read exported globals by name").
func (v *VM) Global(name string) (value.Value, bool) {
	return v.inner.Global(name)
}

// RegisterPrelude adds an external function or value addressable by a
// dotted path (spec §6.2), creating intermediate namespace maps as
// needed. Two calls sharing a prefix (`os.args`, then `os.env`) land in
// the same `os` map rather than overwriting one another.
func (v *VM) RegisterPrelude(path string, val value.Value) {
	parts := strings.Split(path, ".")
	if len(parts) == 1 {
		v.inner.SetGlobal(parts[0], val)
		return
	}

	root, ok := v.inner.Global(parts[0])
	var m *value.Map
	if ok && root.Kind() == value.KindMap {
		m = root.AsMap()
	} else {
		m = value.NewMap()
		v.inner.SetGlobal(parts[0], value.Map_(m))
	}

	for _, part := range parts[1 : len(parts)-1] {
		if child, ok := m.Get(part); ok && child.Kind() == value.KindMap {
			m = child.AsMap()
			continue
		}
		next := value.NewMap()
		m.Set(part, value.Map_(next))
		m = next
	}
	m.Set(parts[len(parts)-1], val)
}
