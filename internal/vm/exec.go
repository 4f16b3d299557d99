package vm

import (
	"github.com/glint-lang/glint/internal/bytecode"
	glinterrors "github.com/glint-lang/glint/internal/errors"
	"github.com/glint-lang/glint/internal/value"
)

// runFrame resumes f's instruction stream from wherever its reader last
// left off, running until a Return, a Yield, or an unhandled Throw
// propagates out, per the teacher's tryStack/OP_TRY/OP_THROW/OP_ENDTRY
// unwind sequence. f's reader position and register file persist on f
// itself, so a generator suspended by controlYield is resumed simply by
// calling runFrame again on the same frame (spec §5: cooperatively
// suspended frames within the same VM, not OS threads) — there is no
// separate coroutine state to thread through.
func (vm *VM) runFrame(f *frame) (value.Value, control, error) {
	r := f.reader
	for !r.AtEnd() {
		op := r.ReadOp()
		result, control, err := vm.step(f, r, op)
		if err != nil {
			if len(f.tries) > 0 {
				h := f.tries[len(f.tries)-1]
				f.tries = f.tries[:len(f.tries)-1]
				f.set(h.catchReg, caughtValue(err))
				r.Pos = h.target
				continue
			}
			return value.Nil, controlNone, err
		}
		switch control {
		case controlReturn, controlYield:
			return result, control, nil
		case controlNone:
			// keep executing
		}
	}
	return value.Nil, controlReturn, nil
}

type control int

const (
	controlNone control = iota
	controlReturn
	controlYield
)

// caughtValue is what a `catch` binds: the original Value passed to
// `throw`, identical by value equality to what was raised, rather than
// the full Error() rendering (kind, location, source excerpt) meant for a
// human reading a top-level failure. Errors that never carried a thrown
// Value (a runtime fault like division by zero, or any non-throw source)
// fall back to a String of the bare message.
func caughtValue(err error) value.Value {
	e, ok := err.(*glinterrors.Error)
	if !ok {
		return value.NewString(err.Error())
	}
	if e.HasThrown {
		return e.Thrown
	}
	return value.NewString(e.Message)
}

// step executes one instruction and reports whether the frame should
// suspend (and with what value).
func (vm *VM) step(f *frame, r *bytecode.Reader, op bytecode.OpCode) (value.Value, control, error) {
	c := f.chunk
	switch op {
	case bytecode.OpNop:
		return value.Nil, controlNone, nil

	case bytecode.OpLoadNil:
		dst := r.ReadByte()
		f.set(dst, value.Nil)
	case bytecode.OpLoadTrue:
		dst := r.ReadByte()
		f.set(dst, value.Bool(true))
	case bytecode.OpLoadFalse:
		dst := r.ReadByte()
		f.set(dst, value.Bool(false))
	case bytecode.OpLoadInt:
		dst := r.ReadByte()
		idx := r.ReadConstIndex()
		f.set(dst, value.Int(c.Ints[idx]))
	case bytecode.OpLoadFloat:
		dst := r.ReadByte()
		idx := r.ReadConstIndex()
		f.set(dst, value.Float(c.Floats[idx]))
	case bytecode.OpLoadString:
		dst := r.ReadByte()
		idx := r.ReadConstIndex()
		f.set(dst, value.NewString(c.Strings[idx]))
	case bytecode.OpLoadNonLocal:
		dst := r.ReadByte()
		idx := r.ReadConstIndex()
		name := c.Strings[idx]
		f.set(dst, vm.lookupNonLocal(f, name))
	case bytecode.OpMove:
		dst := r.ReadByte()
		src := r.ReadByte()
		f.set(dst, f.get(src))

	case bytecode.OpMakeList:
		dst, first, count := r.ReadByte(), r.ReadByte(), r.ReadByte()
		items := make([]value.Value, count)
		for i := byte(0); i < count; i++ {
			items[i] = f.get(first + i)
		}
		f.set(dst, value.List_(value.NewList(items)))
	case bytecode.OpMakeTuple:
		dst, first, count := r.ReadByte(), r.ReadByte(), r.ReadByte()
		items := make([]value.Value, count)
		for i := byte(0); i < count; i++ {
			items[i] = f.get(first + i)
		}
		f.set(dst, value.Tuple_(value.NewTuple(items)))
	case bytecode.OpMakeMap:
		dst, first, count := r.ReadByte(), r.ReadByte(), r.ReadByte()
		m := value.NewMap()
		for i := byte(0); i < count; i += 2 {
			k := f.get(first + i)
			v := f.get(first + i + 1)
			m.SetValue(k, v)
		}
		f.set(dst, value.Map_(m))
	case bytecode.OpMakeRange:
		dst, startReg, endReg, inclusiveB := r.ReadByte(), r.ReadByte(), r.ReadByte(), r.ReadByte()
		var start, end int64
		if startReg != 0xFF {
			start = f.get(startReg).AsInt()
		}
		if endReg != 0xFF {
			end = f.get(endReg).AsInt()
		}
		f.set(dst, value.RangeVal(&value.Range{Start: start, End: end, Inclusive: inclusiveB != 0}))
	case bytecode.OpMakeIterator:
		dst, src := r.ReadByte(), r.ReadByte()
		it, err := vm.toIterator(f.get(src))
		if err != nil {
			return value.Nil, controlNone, err
		}
		f.set(dst, value.IteratorVal(it))

	case bytecode.OpGetIndex:
		dst, container, idx := r.ReadByte(), r.ReadByte(), r.ReadByte()
		v, err := vm.getIndex(f.get(container), f.get(idx))
		if err != nil {
			return value.Nil, controlNone, err
		}
		f.set(dst, v)
	case bytecode.OpSetIndex:
		container, idx, val := r.ReadByte(), r.ReadByte(), r.ReadByte()
		if err := vm.setIndex(f.get(container), f.get(idx), f.get(val)); err != nil {
			return value.Nil, controlNone, err
		}
	case bytecode.OpGetField:
		dst := r.ReadByte()
		idx := r.ReadConstIndex()
		container := r.ReadByte()
		name := c.Strings[idx]
		v, err := vm.getField(f.get(container), name)
		if err != nil {
			return value.Nil, controlNone, err
		}
		f.set(dst, v)
	case bytecode.OpSetField:
		root := r.ReadByte()
		idx := r.ReadConstIndex()
		rhs := r.ReadByte()
		name := c.Strings[idx]
		if err := vm.setField(f.get(root), name, f.get(rhs)); err != nil {
			return value.Nil, controlNone, err
		}
	case bytecode.OpSetMeta:
		container, key, val := r.ReadByte(), r.ReadByte(), r.ReadByte()
		f.get(container).AsMap().SetMeta(bytecode.MetaKey(key), f.get(val))

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
		dst, lhs, rhs := r.ReadByte(), r.ReadByte(), r.ReadByte()
		v, err := vm.arith(op, f.get(lhs), f.get(rhs))
		if err != nil {
			return value.Nil, controlNone, err
		}
		f.set(dst, v)
	case bytecode.OpNeg:
		dst, src := r.ReadByte(), r.ReadByte()
		v, err := vm.negate(f.get(src))
		if err != nil {
			return value.Nil, controlNone, err
		}
		f.set(dst, v)
	case bytecode.OpNot:
		dst, src := r.ReadByte(), r.ReadByte()
		f.set(dst, value.Bool(!f.get(src).IsTruthy()))
	case bytecode.OpEqual:
		dst, lhs, rhs := r.ReadByte(), r.ReadByte(), r.ReadByte()
		f.set(dst, value.Bool(vm.valuesEqual(f.get(lhs), f.get(rhs))))
	case bytecode.OpNotEqual:
		dst, lhs, rhs := r.ReadByte(), r.ReadByte(), r.ReadByte()
		f.set(dst, value.Bool(!vm.valuesEqual(f.get(lhs), f.get(rhs))))
	case bytecode.OpLess, bytecode.OpLessEqual, bytecode.OpGreater, bytecode.OpGreaterEqual:
		dst, lhs, rhs := r.ReadByte(), r.ReadByte(), r.ReadByte()
		v, err := vm.compare(op, f.get(lhs), f.get(rhs))
		if err != nil {
			return value.Nil, controlNone, err
		}
		f.set(dst, v)

	case bytecode.OpJump:
		off := r.ReadI16()
		base := r.Pos
		r.Jump(base, off)
	case bytecode.OpJumpIfFalse:
		cond := r.ReadByte()
		off := r.ReadI16()
		base := r.Pos
		if !f.get(cond).IsTruthy() {
			r.Jump(base, off)
		}
	case bytecode.OpJumpIfTrue:
		cond := r.ReadByte()
		off := r.ReadI16()
		base := r.Pos
		if f.get(cond).IsTruthy() {
			r.Jump(base, off)
		}
	case bytecode.OpJumpBack:
		off := r.ReadI16()
		base := r.Pos
		r.Jump(base, off)

	case bytecode.OpFunction:
		dst := r.ReadByte()
		idx := r.ReadConstIndex()
		capCount := r.ReadByte()
		proto := c.Functions[idx]
		var captures []value.Captured
		for i := byte(0); i < capCount; i++ {
			reg := r.ReadByte()
			captures = append(captures, value.Captured{Name: proto.CaptureNames[i], Value: f.get(reg)})
		}
		f.set(dst, value.FunctionVal(&value.Function{Proto: proto, Captures: captures}))

	case bytecode.OpCall:
		dst, callee, first, count := r.ReadByte(), r.ReadByte(), r.ReadByte(), r.ReadByte()
		args := make([]value.Value, count)
		for i := byte(0); i < count; i++ {
			args[i] = f.get(first + i)
		}
		v, err := vm.call(f.get(callee), args)
		if err != nil {
			return value.Nil, controlNone, err
		}
		f.set(dst, v)

	case bytecode.OpReturn:
		src := r.ReadByte()
		return f.get(src), controlReturn, nil

	case bytecode.OpYield:
		src := r.ReadByte()
		if f.fn == nil || !f.fn.Proto.Generator {
			return value.Nil, controlNone, vm.rtError("'yield' used outside of a generator function")
		}
		return f.get(src), controlYield, nil

	case bytecode.OpIterNext:
		dst, iterReg, doneReg := r.ReadByte(), r.ReadByte(), r.ReadByte()
		it := f.get(iterReg).AsIterator()
		v, ok, err := it.Next()
		if err != nil {
			return value.Nil, controlNone, err
		}
		f.set(doneReg, value.Bool(!ok))
		if ok {
			f.set(dst, v)
		} else {
			f.set(dst, value.Nil)
		}

	case bytecode.OpTryStart:
		catchReg := r.ReadByte()
		off := r.ReadI16()
		base := r.Pos
		f.tries = append(f.tries, tryHandler{catchReg: catchReg, target: base + int(off)})
		// normal execution falls through into the protected body; the
		// jump target is only taken on an unwind, from runFrame's error
		// handling below.
	case bytecode.OpTryEnd:
		if len(f.tries) > 0 {
			f.tries = f.tries[:len(f.tries)-1]
		}
	case bytecode.OpThrow:
		src := r.ReadByte()
		thrown := f.get(src)
		return value.Nil, controlNone, vm.rtThrow(thrown)
	case bytecode.OpFinallyStart, bytecode.OpFinallyEnd:
		// finally bodies are ordinary compiled statements with no extra
		// runtime bookkeeping beyond always running once reached.

	case bytecode.OpImport:
		dst := r.ReadByte()
		idx := r.ReadConstIndex()
		name := c.Strings[idx]
		v, err := vm.importModule(name)
		if err != nil {
			return value.Nil, controlNone, err
		}
		f.set(dst, v)
	case bytecode.OpExport:
		idx := r.ReadConstIndex()
		src := r.ReadByte()
		vm.SetGlobal(c.Strings[idx], f.get(src))

	case bytecode.OpDebug:
		src := r.ReadByte()
		fmtln(vm.stdout, value.ToDisplayString(f.get(src)))
	case bytecode.OpCopy:
		dst, src := r.ReadByte(), r.ReadByte()
		f.set(dst, value.Copy(f.get(src)))
	case bytecode.OpDeepCopy:
		dst, src := r.ReadByte(), r.ReadByte()
		f.set(dst, value.DeepCopy(f.get(src)))
	case bytecode.OpToString:
		dst, src := r.ReadByte(), r.ReadByte()
		v := f.get(src)
		if v.Kind() == value.KindString {
			f.set(dst, v)
		} else {
			f.set(dst, value.NewString(value.ToDisplayString(v)))
		}

	default:
		return value.Nil, controlNone, vm.rtError("unimplemented opcode %s", op)
	}
	return value.Nil, controlNone, nil
}

func fmtln(w interface{ Write([]byte) (int, error) }, s string) {
	w.Write([]byte(s + "\n"))
}

func (vm *VM) lookupNonLocal(f *frame, name string) value.Value {
	if f.fn != nil {
		for _, cap := range f.fn.Captures {
			if cap.Name == name {
				return cap.Value
			}
		}
		if name == "self" && !f.fn.Self.IsNil() {
			return f.fn.Self
		}
	}
	if v, ok := vm.globals[name]; ok {
		return v
	}
	return value.Nil
}
