// Package vm executes compiled glint bytecode.
//
// Grounded on the teacher's internal/vmregister/vm.go: the same
// RegisterVM shape (a register file per frame, a frame/call stack,
// ensureRegisters-style sizing, callFunction/callClosure dispatch, and
// the tryStack/OP_TRY/OP_THROW/OP_ENDTRY unwind sequence), re-targeted at
// the variable-length instruction stream internal/bytecode defines and
// the tagged-struct internal/value representation.
package vm

import (
	"fmt"
	"io"
	"os"

	glinterrors "github.com/glint-lang/glint/internal/errors"

	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/value"
)

// ModuleLoader resolves an `import` name to a compiled Chunk; satisfied
// by internal/loader.Loader in the embedding facade. VM-only unit tests
// leave it nil, in which case `import` fails with a runtime error.
type ModuleLoader interface {
	Load(name string) (*bytecode.Chunk, error)
}

// Settings configures a VM instance (spec §6.2's embeddable facade).
type Settings struct {
	Stdout io.Writer
	Stderr io.Writer
	Loader ModuleLoader
}

func DefaultSettings() Settings {
	return Settings{Stdout: os.Stdout, Stderr: os.Stderr}
}

// VM owns the module-level global bindings shared by every frame compiled
// from the same Chunk, plus the host services (stdout/stderr, a module
// loader) the running program can reach.
type VM struct {
	globals map[string]value.Value
	stdout  io.Writer
	stderr  io.Writer
	loader  ModuleLoader

	path string
	src  string
}

func New(settings Settings) *VM {
	if settings.Stdout == nil {
		settings.Stdout = os.Stdout
	}
	if settings.Stderr == nil {
		settings.Stderr = os.Stderr
	}
	return &VM{globals: map[string]value.Value{}, stdout: settings.Stdout, stderr: settings.Stderr, loader: settings.Loader}
}

// SetSource attaches the compiled program's path/text so runtime errors
// can render a source excerpt, matching the lexer/parser/compiler layers.
func (vm *VM) SetSource(path, src string) {
	vm.path = path
	vm.src = src
}

func (vm *VM) Global(name string) (value.Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

func (vm *VM) SetGlobal(name string, v value.Value) { vm.globals[name] = v }

// tryHandler is one active try/catch/finally scope on a frame's unwind
// stack (grounded on the teacher's tryStack entries): catchReg is where
// the caught value is deposited, target is the code offset of the
// compiled catch body the VM jumps to on an unwind.
type tryHandler struct {
	catchReg byte
	target   int
}

// frame is one call's register file, code cursor, and function identity.
type frame struct {
	chunk  *bytecode.Chunk
	reader *bytecode.Reader
	regs   []value.Value
	fn     *value.Function // nil for the module top-level frame
	tries  []tryHandler
}

func (vm *VM) newFrame(chunk *bytecode.Chunk, fn *value.Function, regCount int) *frame {
	f := &frame{chunk: chunk, reader: bytecode.NewReader(chunk), fn: fn}
	if regCount < 8 {
		regCount = 8
	}
	f.regs = make([]value.Value, regCount)
	return f
}

func (f *frame) ensure(i int) {
	for len(f.regs) <= i {
		f.regs = append(f.regs, value.Nil)
	}
}

func (f *frame) get(r byte) value.Value {
	f.ensure(int(r))
	return f.regs[r]
}

func (f *frame) set(r byte, v value.Value) {
	f.ensure(int(r))
	f.regs[r] = v
}

// RunChunk executes a compiled module Chunk's top-level code and returns
// its final expression value.
func (vm *VM) RunChunk(chunk *bytecode.Chunk) (value.Value, error) {
	f := vm.newFrame(chunk, nil, 64)
	result, _, err := vm.runFrame(f)
	return result, err
}

func (vm *VM) rtError(format string, args ...interface{}) error {
	return glinterrors.New(glinterrors.RuntimeError, fmt.Sprintf(format, args...)).
		WithPath(vm.path).WithSource(vm.src)
}

// rtThrow builds the RuntimeError a `throw` expression raises, carrying
// the original Value so a `catch` can bind it back unchanged.
func (vm *VM) rtThrow(v value.Value) error {
	return glinterrors.New(glinterrors.RuntimeError, value.ToDisplayString(v)).
		WithPath(vm.path).WithSource(vm.src).WithThrown(v)
}
