package vm

import "github.com/glint-lang/glint/internal/value"

// generatorIterator adapts a suspended VM frame into a value.Iterator.
// A frame's reader position and register file already persist as
// ordinary Go values between calls, so resuming a generator is just
// calling runFrame again on the same frame from wherever OpYield left
// off (spec §5: generators are cooperatively suspended frames within the
// same VM, not OS threads). A generator dropped before exhaustion has
// nothing parked to clean up — its frame is just an unreferenced value
// like any other.
type generatorIterator struct {
	vm   *VM
	f    *frame
	done bool
}

func (vm *VM) newGenerator(fn *value.Function, args []value.Value) value.Iterator {
	f := vm.newFrame(fn.Proto.Chunk, fn, fn.Proto.RegisterCount)
	for i, a := range args {
		f.set(byte(i), a)
	}
	return &generatorIterator{vm: vm, f: f}
}

func (g *generatorIterator) Next() (value.Value, bool, error) {
	if g.done {
		return value.Nil, false, nil
	}
	result, ctl, err := g.vm.runFrame(g.f)
	if err != nil {
		g.done = true
		return value.Nil, false, err
	}
	if ctl == controlReturn {
		g.done = true
		return value.Nil, false, nil
	}
	return result, true, nil
}
