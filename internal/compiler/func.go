package compiler

import (
	glintast "github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/token"
)

// collectIdents walks n's subtree and records the name of every KIdent
// node seen, used to decide which enclosing locals a closure needs to
// capture. A map literal's keys are literal names rather than variable
// references, so KMapLit only contributes its entry values.
func (c *Compiler) collectIdents(n glintast.NodeIndex, into map[string]bool) {
	if n == glintast.NoNode {
		return
	}
	node := c.arena.Get(n)
	if node.Kind == glintast.KIdent {
		into[c.arena.Pool.StringAt(node.Const)] = true
	}
	c.collectIdents(node.A, into)
	c.collectIdents(node.B, into)
	c.collectIdents(node.C, into)
	if node.Kind == glintast.KMapLit {
		entries := c.arena.List(node.Extra)
		for i := 1; i < len(entries); i += 2 {
			c.collectIdents(entries[i], into)
		}
		return
	}
	if node.Kind != glintast.KIdent {
		for _, child := range c.listOrNil(node) {
			c.collectIdents(child, into)
		}
	}
}

func (c *Compiler) listOrNil(node glintast.Node) []glintast.NodeIndex {
	switch node.Kind {
	case glintast.KTuple, glintast.KList, glintast.KMapLit, glintast.KBlock,
		glintast.KFunction, glintast.KFor, glintast.KMatch, glintast.KSwitch,
		glintast.KStringLit, glintast.KTryCatchFinally:
		return c.arena.List(node.Extra)
	}
	return nil
}

// compileFunction compiles a `|args| body` literal into a nested Chunk,
// capturing the enclosing scope's locals that the body actually
// references (spec §3.4).
func (c *Compiler) compileFunction(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	argNames := c.arena.List(node.Extra)
	childChunk := bytecode.NewChunk(c.path)
	childAlloc := NewRegisterAllocator()
	childScope := newScope()

	for _, a := range argNames {
		argNode := c.arena.Get(a)
		reg := childAlloc.Alloc()
		childAlloc.Lock(reg)
		childScope.locals[c.arena.Pool.StringAt(argNode.Const)] = reg
	}

	free := map[string]bool{}
	c.collectIdents(node.A, free)
	var captureNames []string
	var captureRegs []byte
	for name := range free {
		if _, isArg := childScope.locals[name]; isArg {
			continue
		}
		if reg, ok := s.locals[name]; ok {
			captureNames = append(captureNames, name)
			captureRegs = append(captureRegs, reg)
		}
	}

	bodyReg, err := c.compileExpr(childChunk, childAlloc, childScope, node.A)
	if err != nil {
		return 0, err
	}
	bytecode.NewWriter(childChunk).Emit(bytecode.OpReturn, c.arena.Span(node.A), bodyReg)
	childChunk.ConstWidth = bytecode.WidthFor(len(childChunk.Ints) + len(childChunk.Floats) + len(childChunk.Strings))

	proto := &bytecode.FunctionProto{
		Chunk:         childChunk,
		ArgCount:      len(argNames),
		Generator:     node.Flags&glintast.FlagGenerator != 0,
		Variadic:      node.Flags&glintast.FlagVariadic != 0,
		Instance:      node.Flags&glintast.FlagInstanceMethod != 0,
		RegisterCount: childAlloc.HighWaterMark(),
		CaptureNames:  captureNames,
	}
	protoIdx := len(chunk.Functions)
	chunk.Functions = append(chunk.Functions, proto)

	dst := alloc.Alloc()
	w := bytecode.NewWriter(chunk)
	w.EmitConst(bytecode.OpFunction, sp, dst, uint32(protoIdx))
	chunk.Code = append(chunk.Code, byte(len(captureRegs)))
	chunk.Code = append(chunk.Code, captureRegs...)
	return dst, nil
}

func (c *Compiler) compileReturn(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	w := bytecode.NewWriter(chunk)
	if node.A == glintast.NoNode {
		dst := alloc.Alloc()
		w.Emit(bytecode.OpLoadNil, sp, dst)
		w.Emit(bytecode.OpReturn, sp, dst)
		return dst, nil
	}
	reg, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	w.Emit(bytecode.OpReturn, sp, reg)
	return reg, nil
}

func (c *Compiler) compileYield(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	reg, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	bytecode.NewWriter(chunk).Emit(bytecode.OpYield, sp, reg)
	return reg, nil
}

func (c *Compiler) compileThrow(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	reg, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	bytecode.NewWriter(chunk).Emit(bytecode.OpThrow, sp, reg)
	return reg, nil
}

// compileTry compiles try/catch/finally using the TryStart/TryEnd/Throw
// unwind sequence (grounded on the teacher's tryStack/OP_TRY/OP_THROW/
// OP_ENDTRY handling).
func (c *Compiler) compileTry(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	w := bytecode.NewWriter(chunk)
	parts := c.arena.List(node.Extra)
	catchPattern := parts[0]

	catchReg := alloc.Alloc()
	tryPatch := w.EmitJump(bytecode.OpTryStart, sp, catchReg)

	dst := alloc.Alloc()
	tryReg, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	w.Emit(bytecode.OpMove, sp, dst, tryReg)
	w.Emit(bytecode.OpTryEnd, sp)
	doneJump := w.EmitJump(bytecode.OpJump, sp)
	w.PatchJump(tryPatch)

	if node.B != glintast.NoNode {
		if cp := c.arena.Get(catchPattern); cp.Kind == glintast.KIdent {
			s.locals[c.arena.Pool.StringAt(cp.Const)] = catchReg
		}
		catchReg2, err := c.compileExpr(chunk, alloc, s, node.B)
		if err != nil {
			return 0, err
		}
		w.Emit(bytecode.OpMove, sp, dst, catchReg2)
	} else {
		w.Emit(bytecode.OpMove, sp, dst, catchReg)
	}
	w.PatchJump(doneJump)

	if node.C != glintast.NoNode {
		w.Emit(bytecode.OpFinallyStart, sp)
		if err := c.compileStmt(chunk, alloc, s, node.C); err != nil {
			return 0, err
		}
		w.Emit(bytecode.OpFinallyEnd, sp)
	}
	return dst, nil
}

// compileAssign compiles `target = value` and its compound forms
// (`+=`, etc.), supporting identifier, field, and index targets.
func (c *Compiler) compileAssign(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	w := bytecode.NewWriter(chunk)
	rhs, err := c.compileExpr(chunk, alloc, s, node.B)
	if err != nil {
		return 0, err
	}

	if node.Op != token.Assign {
		target, err := c.compileExpr(chunk, alloc, s, node.A)
		if err != nil {
			return 0, err
		}
		op := compoundOps[node.Op]
		combined := alloc.Alloc()
		w.Emit(op, sp, combined, target, rhs)
		rhs = combined
	}

	target := c.arena.Get(node.A)
	switch target.Kind {
	case glintast.KIdent:
		name := c.arena.Pool.StringAt(target.Const)
		if reg, ok := s.locals[name]; ok {
			w.Emit(bytecode.OpMove, sp, reg, rhs)
			return reg, nil
		}
		s.locals[name] = rhs
		return rhs, nil
	case glintast.KLookupID:
		root, err := c.compileExpr(chunk, alloc, s, target.A)
		if err != nil {
			return 0, err
		}
		idx := internString(chunk, c.arena.Pool.StringAt(target.Const))
		w.EmitConst(bytecode.OpSetField, sp, root, idx)
		chunk.Code = append(chunk.Code, rhs)
		return rhs, nil
	case glintast.KLookupIndex:
		root, err := c.compileExpr(chunk, alloc, s, target.A)
		if err != nil {
			return 0, err
		}
		idxReg, err := c.compileExpr(chunk, alloc, s, target.B)
		if err != nil {
			return 0, err
		}
		w.Emit(bytecode.OpSetIndex, sp, root, idxReg, rhs)
		return rhs, nil
	}
	return 0, c.errAt(sp, "invalid assignment target")
}

var compoundOps = map[token.Kind]bytecode.OpCode{
	token.PlusAssign: bytecode.OpAdd, token.MinusAssign: bytecode.OpSub,
	token.StarAssign: bytecode.OpMul, token.SlashAssign: bytecode.OpDiv, token.PercentAssign: bytecode.OpMod,
}

// compileStringLit concatenates each piece of an interpolated string:
// literal pieces become string constants, `${expr}`/`$name` pieces are
// evaluated and converted with ToDisplayString at runtime (spec §4.1/§3.6).
func (c *Compiler) compileStringLit(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	pieces := c.arena.List(node.Extra)
	w := bytecode.NewWriter(chunk)
	if len(pieces) == 0 {
		dst := alloc.Alloc()
		idx := internString(chunk, "")
		w.EmitConst(bytecode.OpLoadString, sp, dst, idx)
		return dst, nil
	}
	var acc byte
	for i, p := range pieces {
		pnode := c.arena.Get(p)
		var reg byte
		if pnode.Kind == glintast.KStringPieceLiteral {
			reg = alloc.Alloc()
			idx := internString(chunk, c.arena.Pool.StringAt(pnode.Const))
			w.EmitConst(bytecode.OpLoadString, sp, reg, idx)
		} else {
			var err error
			reg, err = c.compileExpr(chunk, alloc, s, pnode.A)
			if err != nil {
				return 0, err
			}
			strReg := alloc.Alloc()
			w.Emit(bytecode.OpToString, sp, strReg, reg)
			reg = strReg
		}
		if i == 0 {
			acc = reg
			continue
		}
		next := alloc.Alloc()
		w.Emit(bytecode.OpAdd, sp, next, acc, reg)
		acc = next
	}
	return acc, nil
}
