package compiler

import (
	glintast "github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/token"
)

func (c *Compiler) compileIf(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	cond, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	w := bytecode.NewWriter(chunk)
	dst := alloc.Alloc()
	elseJump := w.EmitJump(bytecode.OpJumpIfFalse, sp, cond)

	thenReg, err := c.compileExpr(chunk, alloc, s, node.B)
	if err != nil {
		return 0, err
	}
	w.Emit(bytecode.OpMove, sp, dst, thenReg)
	endJump := w.EmitJump(bytecode.OpJump, sp)
	w.PatchJump(elseJump)

	if node.C != glintast.NoNode {
		elseReg, err := c.compileExpr(chunk, alloc, s, node.C)
		if err != nil {
			return 0, err
		}
		w.Emit(bytecode.OpMove, sp, dst, elseReg)
	} else {
		w.Emit(bytecode.OpLoadNil, sp, dst)
	}
	w.PatchJump(endJump)
	return dst, nil
}

// compileMatch compiles each arm as a structural match against the
// scrutinee (spec §3.4 / §4.2's pattern rules), evaluated top to bottom;
// the first arm whose pattern matches runs, falling through to nil if
// none match. Per pattern-kind rule: a wildcard always matches; a bare
// identifier binds the matched (sub)value to a local with no check; a
// literal or lookup pattern compares equal; a tuple/list pattern recurses
// positionally into its elements via OpGetIndex before testing each
// against its corresponding element pattern.
func (c *Compiler) compileMatch(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	subject, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	dst := alloc.Alloc()
	w := bytecode.NewWriter(chunk)
	var endJumps []int

	arms := c.arena.List(node.Extra)
	for _, armIdx := range arms {
		arm := c.arena.Get(armIdx)
		parts := c.arena.List(arm.Extra)
		pattern, result := parts[0], parts[1]

		failJumps, err := c.compilePattern(chunk, alloc, s, subject, pattern)
		if err != nil {
			return 0, err
		}

		resReg, err := c.compileExpr(chunk, alloc, s, result)
		if err != nil {
			return 0, err
		}
		w.Emit(bytecode.OpMove, sp, dst, resReg)
		endJumps = append(endJumps, w.EmitJump(bytecode.OpJump, sp))
		for _, j := range failJumps {
			w.PatchJump(j)
		}
	}
	w.Emit(bytecode.OpLoadNil, sp, dst)
	for _, j := range endJumps {
		w.PatchJump(j)
	}
	return dst, nil
}

// compilePattern emits the checks/bindings for one pattern node matched
// against the value in subjectReg, returning every jump-if-false patch
// site that must target this arm's failure path (the next arm).
func (c *Compiler) compilePattern(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, subjectReg byte, pattern glintast.NodeIndex) ([]int, error) {
	w := bytecode.NewWriter(chunk)
	node := c.arena.Get(pattern)
	sp := c.arena.Span(pattern)

	switch node.Kind {
	case glintast.KWildcard:
		return nil, nil
	case glintast.KIdent:
		name := c.arena.Pool.StringAt(node.Const)
		bound := alloc.Alloc()
		w.Emit(bytecode.OpMove, sp, bound, subjectReg)
		s.locals[name] = bound
		return nil, nil
	case glintast.KTuple, glintast.KList:
		elems := c.arena.List(node.Extra)
		var jumps []int
		for i, elem := range elems {
			elemReg := alloc.Alloc()
			idxReg := byteLiteralIndex(chunk, w, sp, alloc, i)
			w.Emit(bytecode.OpGetIndex, sp, elemReg, subjectReg, idxReg)
			sub, err := c.compilePattern(chunk, alloc, s, elemReg, elem)
			if err != nil {
				return nil, err
			}
			jumps = append(jumps, sub...)
		}
		return jumps, nil
	default:
		// Literal or lookup pattern (spec §4.2 rules 3/5): compare equal.
		patReg, err := c.compileExpr(chunk, alloc, s, pattern)
		if err != nil {
			return nil, err
		}
		eqReg := alloc.Alloc()
		w.Emit(bytecode.OpEqual, sp, eqReg, subjectReg, patReg)
		return []int{w.EmitJump(bytecode.OpJumpIfFalse, sp, eqReg)}, nil
	}
}

// compileSwitch compiles a chain of independent boolean conditions,
// running the first arm whose condition is true (spec §3.4).
func (c *Compiler) compileSwitch(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	dst := alloc.Alloc()
	w := bytecode.NewWriter(chunk)
	var endJumps []int

	arms := c.arena.List(node.Extra)
	for _, armIdx := range arms {
		arm := c.arena.Get(armIdx)
		parts := c.arena.List(arm.Extra)
		cond, result := parts[0], parts[1]

		condReg, err := c.compileExpr(chunk, alloc, s, cond)
		if err != nil {
			return 0, err
		}
		skip := w.EmitJump(bytecode.OpJumpIfFalse, sp, condReg)

		resReg, err := c.compileExpr(chunk, alloc, s, result)
		if err != nil {
			return 0, err
		}
		w.Emit(bytecode.OpMove, sp, dst, resReg)
		endJumps = append(endJumps, w.EmitJump(bytecode.OpJump, sp))
		w.PatchJump(skip)
	}
	w.Emit(bytecode.OpLoadNil, sp, dst)
	for _, j := range endJumps {
		w.PatchJump(j)
	}
	return dst, nil
}

func (c *Compiler) compileWhileUntil(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	w := bytecode.NewWriter(chunk)
	loopStart := w.Offset()
	cond, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	testOp := bytecode.OpJumpIfFalse
	if node.Kind == glintast.KUntil {
		testOp = bytecode.OpJumpIfTrue
	}
	exitJump := w.EmitJump(testOp, sp, cond)

	lc := &loopCtx{continueAt: loopStart}
	s.loops = append(s.loops, lc)
	if err := c.compileStmt(chunk, alloc, s, node.B); err != nil {
		return 0, err
	}
	s.loops = s.loops[:len(s.loops)-1]

	back := w.EmitJump(bytecode.OpJumpBack, sp)
	w.PatchJumpBack(back, loopStart)
	w.PatchJump(exitJump)
	for _, j := range lc.breakPatches {
		w.PatchJump(j)
	}
	dst := alloc.Alloc()
	w.Emit(bytecode.OpLoadNil, sp, dst)
	return dst, nil
}

func (c *Compiler) compileLoop(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	w := bytecode.NewWriter(chunk)
	loopStart := w.Offset()

	lc := &loopCtx{continueAt: loopStart}
	s.loops = append(s.loops, lc)
	if err := c.compileStmt(chunk, alloc, s, node.A); err != nil {
		return 0, err
	}
	s.loops = s.loops[:len(s.loops)-1]

	back := w.EmitJump(bytecode.OpJumpBack, sp)
	w.PatchJumpBack(back, loopStart)
	for _, j := range lc.breakPatches {
		w.PatchJump(j)
	}
	dst := alloc.Alloc()
	w.Emit(bytecode.OpLoadNil, sp, dst)
	return dst, nil
}

// compileFor compiles a for-in loop: the iterable is wrapped once in an
// Iterator value, then IterNext drives each pass, binding the produced
// value(s) to the loop targets before running the body.
func (c *Compiler) compileFor(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	w := bytecode.NewWriter(chunk)
	iterable, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	iterReg := alloc.Alloc()
	alloc.Lock(iterReg)
	w.Emit(bytecode.OpMakeIterator, sp, iterReg, iterable)

	targets := c.arena.List(node.Extra)
	loopStart := w.Offset()
	valReg := alloc.Alloc()
	alloc.Lock(valReg)
	doneReg := alloc.Alloc()
	alloc.Lock(doneReg)
	w.Emit(bytecode.OpIterNext, sp, valReg, iterReg, doneReg)
	exitJump := w.EmitJump(bytecode.OpJumpIfTrue, sp, doneReg)

	if len(targets) == 1 {
		tnode := c.arena.Get(targets[0])
		if tnode.Kind == glintast.KIdent {
			s.locals[c.arena.Pool.StringAt(tnode.Const)] = valReg
		}
	} else {
		for i, t := range targets {
			tnode := c.arena.Get(t)
			if tnode.Kind != glintast.KIdent {
				continue
			}
			elemReg := alloc.Alloc()
			w.Emit(bytecode.OpGetIndex, sp, elemReg, valReg, byteLiteralIndex(chunk, w, sp, alloc, i))
			s.locals[c.arena.Pool.StringAt(tnode.Const)] = elemReg
		}
	}

	lc := &loopCtx{continueAt: loopStart}
	s.loops = append(s.loops, lc)
	if err := c.compileStmt(chunk, alloc, s, node.B); err != nil {
		return 0, err
	}
	s.loops = s.loops[:len(s.loops)-1]

	back := w.EmitJump(bytecode.OpJumpBack, sp)
	w.PatchJumpBack(back, loopStart)
	w.PatchJump(exitJump)
	for _, j := range lc.breakPatches {
		w.PatchJump(j)
	}
	alloc.Unlock(iterReg)
	alloc.Unlock(valReg)
	alloc.Unlock(doneReg)
	dst := alloc.Alloc()
	w.Emit(bytecode.OpLoadNil, sp, dst)
	return dst, nil
}

// byteLiteralIndex loads a small int constant into a fresh register,
// returning that register, for destructuring a tuple target by position.
func byteLiteralIndex(chunk *bytecode.Chunk, w *bytecode.Writer, sp token.Span, alloc *RegisterAllocator, i int) byte {
	dst := alloc.Alloc()
	idx := internInt(chunk, int64(i))
	w.EmitConst(bytecode.OpLoadInt, sp, dst, idx)
	return dst
}

func (c *Compiler) compileBreak(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, sp token.Span) (byte, error) {
	if len(s.loops) == 0 {
		return 0, c.errAt(sp, "'break' outside of a loop")
	}
	w := bytecode.NewWriter(chunk)
	lc := s.loops[len(s.loops)-1]
	lc.breakPatches = append(lc.breakPatches, w.EmitJump(bytecode.OpJump, sp))
	return alloc.Alloc(), nil
}

func (c *Compiler) compileContinue(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, sp token.Span) (byte, error) {
	if len(s.loops) == 0 {
		return 0, c.errAt(sp, "'continue' outside of a loop")
	}
	w := bytecode.NewWriter(chunk)
	lc := s.loops[len(s.loops)-1]
	back := w.EmitJump(bytecode.OpJumpBack, sp)
	w.PatchJumpBack(back, lc.continueAt)
	return alloc.Alloc(), nil
}
