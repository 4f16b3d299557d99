package vm

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/value"
)

// toIterator wraps v as a value.Iterator for OpMakeIterator/`for`, per
// spec §3.4's iterable kinds: Range, List, Tuple, Map (key/value tuples),
// grapheme-indexed String, and pass-through for an already-built
// Iterator (the result of calling a generator function).
func (vm *VM) toIterator(v value.Value) (value.Iterator, error) {
	switch v.Kind() {
	case value.KindRange:
		return value.NewRangeIterator(v.AsRange()), nil
	case value.KindList:
		return value.NewSliceIterator(v.AsList().Items()), nil
	case value.KindTuple:
		return value.NewSliceIterator(v.AsTuple().Items()), nil
	case value.KindMap:
		return value.NewMapIterator(v.AsMap()), nil
	case value.KindString:
		return value.NewGraphemeIterator(v.AsString()), nil
	case value.KindIterator:
		return v.AsIterator(), nil
	}
	return nil, vm.rtError("%s is not iterable", v.Kind())
}

// getIndex implements `container[idx]` (spec §3.5): positional List/Tuple
// indexing, grapheme-indexed String slicing/indexing, and Map lookup by
// the index Value itself as key, with a Map's @index meta entry checked
// first.
func (vm *VM) getIndex(container, idx value.Value) (value.Value, error) {
	switch container.Kind() {
	case value.KindList:
		if idx.Kind() == value.KindRange {
			r := idx.AsRange()
			end := r.End
			if r.Inclusive {
				end++
			}
			sliced, ok := container.AsList().Slice(int(r.Start), int(end))
			if !ok {
				return value.Nil, vm.rtError("index out of bounds")
			}
			return value.List_(sliced), nil
		}
		v, ok := container.AsList().Get(int(idx.AsInt()))
		if !ok {
			return value.Nil, vm.rtError("index out of bounds")
		}
		return v, nil
	case value.KindTuple:
		v, ok := container.AsTuple().Get(int(idx.AsInt()))
		if !ok {
			return value.Nil, vm.rtError("index out of bounds")
		}
		return v, nil
	case value.KindString:
		s := container.AsString()
		if idx.Kind() == value.KindRange {
			r := idx.AsRange()
			end := r.End
			if r.Inclusive {
				end++
			}
			sliced, ok := s.Slice(int(r.Start), int(end))
			if !ok {
				return value.Nil, vm.rtError("index out of bounds")
			}
			return value.Str(sliced), nil
		}
		g, ok := s.IndexGrapheme(int(idx.AsInt()))
		if !ok {
			return value.Nil, vm.rtError("index out of bounds")
		}
		return value.Str(g), nil
	case value.KindMap:
		m := container.AsMap()
		if fn, ok := m.Meta(bytecode.MetaIndex); ok {
			return vm.call(fn, []value.Value{container, idx})
		}
		v, ok := m.GetValue(idx)
		if !ok {
			return value.Nil, vm.rtError("key not found: %s", value.ToDisplayString(idx))
		}
		return v, nil
	}
	return value.Nil, vm.rtError("%s does not support indexing", container.Kind())
}

// setIndex implements `container[idx] = val`, with a Map's @index_mut
// meta entry checked first.
func (vm *VM) setIndex(container, idx, val value.Value) error {
	switch container.Kind() {
	case value.KindList:
		if !container.AsList().Set(int(idx.AsInt()), val) {
			return vm.rtError("index out of bounds")
		}
		return nil
	case value.KindMap:
		m := container.AsMap()
		if fn, ok := m.Meta(bytecode.MetaIndexMut); ok {
			_, err := vm.call(fn, []value.Value{container, idx, val})
			return err
		}
		m.SetValue(idx, val)
		return nil
	}
	return vm.rtError("%s does not support index assignment", container.Kind())
}

// getField implements `container.name` lookup: Map entries (including a
// bound-method wrap when the stored value is a Function), and the Self
// binding Function values carry for instance methods.
func (vm *VM) getField(container value.Value, name string) (value.Value, error) {
	switch container.Kind() {
	case value.KindMap:
		v, ok := container.AsMap().Get(name)
		if !ok {
			return value.Nil, vm.rtError("no field named %q", name)
		}
		if v.Kind() == value.KindFunction && v.AsFunction().Proto.Instance {
			return value.FunctionVal(v.AsFunction().WithSelf(container)), nil
		}
		return v, nil
	case value.KindFunction:
		if name == "self" {
			return container.AsFunction().Self, nil
		}
	case value.KindInt, value.KindFloat:
		if fn, ok := numberMethod(name, container); ok {
			return value.ExternalFunctionVal(fn), nil
		}
	case value.KindList:
		if fn, ok := vm.listMethod(name, container); ok {
			return value.ExternalFunctionVal(fn), nil
		}
	case value.KindIterator:
		if fn, ok := vm.iteratorMethod(name, container); ok {
			return value.ExternalFunctionVal(fn), nil
		}
	}
	return value.Nil, vm.rtError("%s has no field %q", container.Kind(), name)
}

// iteratorMethod resolves built-in Iterator-draining methods: `to_tuple`
// and `to_list` run the iterator to exhaustion and collect every produced
// value (spec §8 scenario 3's `gen().to_tuple()`).
func (vm *VM) iteratorMethod(name string, container value.Value) (*value.ExternalFunction, bool) {
	drain := func() ([]value.Value, error) {
		it := container.AsIterator()
		var items []value.Value
		for {
			v, ok, err := it.Next()
			if err != nil {
				return nil, err
			}
			if !ok {
				return items, nil
			}
			items = append(items, v)
		}
	}
	switch name {
	case "to_tuple":
		return &value.ExternalFunction{Name: name, Fn: func(args []value.Value) (value.Value, error) {
			items, err := drain()
			if err != nil {
				return value.Nil, err
			}
			return value.Tuple_(value.NewTuple(items)), nil
		}}, true
	case "to_list":
		return &value.ExternalFunction{Name: name, Fn: func(args []value.Value) (value.Value, error) {
			items, err := drain()
			if err != nil {
				return value.Nil, err
			}
			return value.List_(value.NewList(items)), nil
		}}, true
	}
	return nil, false
}

// listMethod resolves built-in List adaptor methods that accept a
// predicate. `split` partitions elements into (matched, rest) by invoking
// the predicate once per element, concurrently, each call running in its
// own sub-VM sharing this VM's globals/loader (spec §5: "iterator
// adaptors that accept a predicate... internally spawn a sub-VM so that
// iterator advancement and predicate invocation do not overlap frame
// state with the owning VM"), fanned out with errgroup so a predicate
// error cancels the remaining calls instead of running them to no
// purpose. A panicking predicate is not recovered.
func (vm *VM) listMethod(name string, container value.Value) (*value.ExternalFunction, bool) {
	switch name {
	case "split":
		return &value.ExternalFunction{Name: name, Fn: func(args []value.Value) (value.Value, error) {
			if len(args) != 1 {
				return value.Nil, vm.rtError("split expects a single predicate argument")
			}
			return vm.splitList(container.AsList().Items(), args[0])
		}}, true
	}
	return nil, false
}

func (vm *VM) splitList(items []value.Value, predicate value.Value) (value.Value, error) {
	matches := make([]bool, len(items))
	g, ctx := errgroup.WithContext(context.Background())
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sub := New(Settings{Stdout: vm.stdout, Stderr: vm.stderr, Loader: vm.loader})
			sub.globals = vm.globals
			result, err := sub.call(predicate, []value.Value{item})
			if err != nil {
				return err
			}
			matches[i] = result.IsTruthy()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return value.Nil, err
	}
	var matched, rest []value.Value
	for i, item := range items {
		if matches[i] {
			matched = append(matched, item)
		} else {
			rest = append(rest, item)
		}
	}
	return value.Tuple_(value.NewTuple([]value.Value{
		value.List_(value.NewList(matched)),
		value.List_(value.NewList(rest)),
	})), nil
}

// numberMethod resolves a built-in numeric method name (spec §10's
// supplemented `x.sqrt()` dotted-call form) to a bound external function
// closing over the receiver, grounded on the teacher's math builtin table
// (abs/sqrt/floor/ceil exposed through createMathModule).
func numberMethod(name string, recv value.Value) (*value.ExternalFunction, bool) {
	unary := func(f func(float64) float64) value.NativeFn {
		return func(args []value.Value) (value.Value, error) {
			return value.Float(f(recv.AsFloat64())), nil
		}
	}
	switch name {
	case "sqrt":
		return &value.ExternalFunction{Name: name, Fn: unary(math.Sqrt)}, true
	case "abs":
		return &value.ExternalFunction{Name: name, Fn: unary(math.Abs)}, true
	case "floor":
		return &value.ExternalFunction{Name: name, Fn: unary(math.Floor)}, true
	case "ceil":
		return &value.ExternalFunction{Name: name, Fn: unary(math.Ceil)}, true
	case "round":
		return &value.ExternalFunction{Name: name, Fn: unary(math.Round)}, true
	case "to_float":
		return &value.ExternalFunction{Name: name, Fn: func(args []value.Value) (value.Value, error) {
			return value.Float(recv.AsFloat64()), nil
		}}, true
	case "to_int":
		return &value.ExternalFunction{Name: name, Fn: func(args []value.Value) (value.Value, error) {
			return value.Int(int64(recv.AsFloat64())), nil
		}}, true
	}
	return nil, false
}

func (vm *VM) setField(container value.Value, name string, val value.Value) error {
	if container.Kind() != value.KindMap {
		return vm.rtError("%s does not support field assignment", container.Kind())
	}
	container.AsMap().Set(name, val)
	return nil
}

var arithMeta = map[bytecode.OpCode]bytecode.MetaKey{
	bytecode.OpAdd: bytecode.MetaAdd,
	bytecode.OpSub: bytecode.MetaSubtract,
	bytecode.OpMul: bytecode.MetaMultiply,
	bytecode.OpDiv: bytecode.MetaDivide,
	bytecode.OpMod: bytecode.MetaModulo,
}

// arith implements Add/Sub/Mul/Div/Mod: a Map's matching meta entry is
// tried first, then the primitive fast path (spec §3.6's dispatch order),
// falling back to a runtime error for unsupported operand kinds.
func (vm *VM) arith(op bytecode.OpCode, lhs, rhs value.Value) (value.Value, error) {
	if lhs.Kind() == value.KindMap {
		if fn, ok := lhs.AsMap().Meta(arithMeta[op]); ok {
			return vm.call(fn, []value.Value{lhs, rhs})
		}
	}
	switch {
	case lhs.IsInt() && rhs.IsInt():
		a, b := lhs.AsInt(), rhs.AsInt()
		switch op {
		case bytecode.OpAdd:
			return value.Int(a + b), nil
		case bytecode.OpSub:
			return value.Int(a - b), nil
		case bytecode.OpMul:
			return value.Int(a * b), nil
		case bytecode.OpDiv:
			if b == 0 {
				return value.Nil, vm.rtError("division by zero")
			}
			return value.Int(a / b), nil
		case bytecode.OpMod:
			if b == 0 {
				return value.Nil, vm.rtError("division by zero")
			}
			return value.Int(a % b), nil
		}
	case lhs.IsNumber() && rhs.IsNumber():
		a, b := lhs.AsFloat64(), rhs.AsFloat64()
		switch op {
		case bytecode.OpAdd:
			return value.Float(a + b), nil
		case bytecode.OpSub:
			return value.Float(a - b), nil
		case bytecode.OpMul:
			return value.Float(a * b), nil
		case bytecode.OpDiv:
			return value.Float(a / b), nil
		case bytecode.OpMod:
			return value.Float(math.Mod(a, b)), nil
		}
	case lhs.IsString() && rhs.IsString() && op == bytecode.OpAdd:
		return value.Str(lhs.AsString().Concat(rhs.AsString())), nil
	case lhs.Kind() == value.KindList && rhs.Kind() == value.KindList && op == bytecode.OpAdd:
		items := append(append([]value.Value{}, lhs.AsList().Items()...), rhs.AsList().Items()...)
		return value.List_(value.NewList(items)), nil
	}
	return value.Nil, vm.rtError("unsupported operand types for %s: %s, %s", op, lhs.Kind(), rhs.Kind())
}

// negate implements unary `-`, checking a Map's @negate meta entry first.
func (vm *VM) negate(v value.Value) (value.Value, error) {
	if v.Kind() == value.KindMap {
		if fn, ok := v.AsMap().Meta(bytecode.MetaNegate); ok {
			return vm.call(fn, []value.Value{v})
		}
	}
	switch v.Kind() {
	case value.KindInt:
		return value.Int(-v.AsInt()), nil
	case value.KindFloat:
		return value.Float(-v.AsFloat()), nil
	}
	return value.Nil, vm.rtError("cannot negate a %s", v.Kind())
}

var compareMeta = map[bytecode.OpCode]bytecode.MetaKey{
	bytecode.OpLess:         bytecode.MetaLess,
	bytecode.OpLessEqual:    bytecode.MetaLessOrEqual,
	bytecode.OpGreater:      bytecode.MetaGreater,
	bytecode.OpGreaterEqual: bytecode.MetaGreaterOrEqual,
}

// compare implements Less/LessEqual/Greater/GreaterEqual over numbers and
// strings, checking a Map's matching meta entry first.
func (vm *VM) compare(op bytecode.OpCode, lhs, rhs value.Value) (value.Value, error) {
	if lhs.Kind() == value.KindMap {
		if fn, ok := lhs.AsMap().Meta(compareMeta[op]); ok {
			return vm.call(fn, []value.Value{lhs, rhs})
		}
	}
	var cmp int
	switch {
	case lhs.IsNumber() && rhs.IsNumber():
		a, b := lhs.AsFloat64(), rhs.AsFloat64()
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	case lhs.IsString() && rhs.IsString():
		a, b := lhs.AsString().String(), rhs.AsString().String()
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	default:
		return value.Nil, vm.rtError("cannot compare %s and %s", lhs.Kind(), rhs.Kind())
	}
	switch op {
	case bytecode.OpLess:
		return value.Bool(cmp < 0), nil
	case bytecode.OpLessEqual:
		return value.Bool(cmp <= 0), nil
	case bytecode.OpGreater:
		return value.Bool(cmp > 0), nil
	case bytecode.OpGreaterEqual:
		return value.Bool(cmp >= 0), nil
	}
	return value.Nil, vm.rtError("unreachable comparison op %s", op)
}

// valuesEqual implements Equal/NotEqual, routing a Map's @== meta entry
// through vm.call via value.Equal's metaEq hook.
func (vm *VM) valuesEqual(lhs, rhs value.Value) bool {
	return value.Equal(lhs, rhs, vm.metaEqual)
}

func (vm *VM) metaEqual(a, b value.Value) (value.Value, bool) {
	if a.Kind() != value.KindMap {
		return value.Nil, false
	}
	fn, ok := a.AsMap().Meta(bytecode.MetaEqual)
	if !ok {
		return value.Nil, false
	}
	v, err := vm.call(fn, []value.Value{a, b})
	if err != nil {
		return value.Nil, false
	}
	return v, true
}

// call dispatches a callee value: a host ExternalFunction, a regular
// glint Function (a fresh frame, args bound to its leading registers), or
// a generator Function (wrapped as an Iterator over a suspended frame,
// see generatorIterator, rather than run to completion).
func (vm *VM) call(callee value.Value, args []value.Value) (value.Value, error) {
	switch callee.Kind() {
	case value.KindExternalFunction:
		return callee.AsExternalFunction().Fn(args)
	case value.KindFunction:
		fn := callee.AsFunction()
		if fn.IsGenerator() {
			return value.IteratorVal(vm.newGenerator(fn, args)), nil
		}
		f := vm.newFrame(fn.Proto.Chunk, fn, fn.Proto.RegisterCount)
		for i, a := range args {
			f.set(byte(i), a)
		}
		result, _, err := vm.runFrame(f)
		return result, err
	}
	return value.Nil, vm.rtError("%s is not callable", callee.Kind())
}

// importModule resolves `import name`: the loader compiles the module's
// Chunk, which runs to completion in its own VM (its own global
// namespace), and its `export`ed globals become the returned Map (spec
// §8's module system).
func (vm *VM) importModule(name string) (value.Value, error) {
	if vm.loader == nil {
		return value.Nil, vm.rtError("no module loader configured, cannot import %q", name)
	}
	chunk, err := vm.loader.Load(name)
	if err != nil {
		return value.Nil, err
	}
	sub := New(Settings{Stdout: vm.stdout, Stderr: vm.stderr, Loader: vm.loader})
	if _, err := sub.RunChunk(chunk); err != nil {
		return value.Nil, err
	}
	m := value.NewMap()
	for k, v := range sub.globals {
		m.Set(k, v)
	}
	return value.Map_(m), nil
}
