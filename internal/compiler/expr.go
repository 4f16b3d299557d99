package compiler

import (
	glintast "github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/bytecode"
	"github.com/glint-lang/glint/internal/token"
)

func (c *Compiler) compileContainer(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span, op bytecode.OpCode) (byte, error) {
	elems := c.arena.List(node.Extra)
	first := alloc.findConsecutiveRegisters(len(elems))
	for i, e := range elems {
		reg, err := c.compileExpr(chunk, alloc, s, e)
		if err != nil {
			return 0, err
		}
		if reg != first+byte(i) {
			bytecode.NewWriter(chunk).Emit(bytecode.OpMove, sp, first+byte(i), reg)
		}
	}
	dst := alloc.Alloc()
	bytecode.NewWriter(chunk).Emit(op, sp, dst, first, byte(len(elems)))
	return dst, nil
}

// compileMap builds a map literal. A key is always a bare name (spec
// §3.6), so it compiles to a literal string constant rather than
// through compileExpr (which would otherwise read it as a variable
// reference). A `@op`/`@name` key (KMetaKeyLit) doesn't become a
// regular entry at all: its value is bound onto the built map's
// meta-map via OpSetMeta once OpMakeMap has run.
func (c *Compiler) compileMap(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	entries := c.arena.List(node.Extra)

	type metaEntry struct {
		key   bytecode.MetaKey
		value glintast.NodeIndex
	}
	var regular []glintast.NodeIndex
	var metas []metaEntry

	for i := 0; i < len(entries); i += 2 {
		keyIdx := entries[i]
		keyNode := c.arena.Get(keyIdx)
		if keyNode.Kind == glintast.KMetaKeyLit {
			mk, ok := c.metaKeyFor(keyNode)
			if !ok {
				return 0, c.errAt(c.arena.Span(keyIdx), "unsupported meta key")
			}
			metas = append(metas, metaEntry{key: mk, value: entries[i+1]})
			continue
		}
		regular = append(regular, keyIdx, entries[i+1])
	}

	first := alloc.findConsecutiveRegisters(len(regular))
	for i := 0; i < len(regular); i += 2 {
		keyIdx := regular[i]
		keyNode := c.arena.Get(keyIdx)
		keyReg := alloc.Alloc()
		idx := internString(chunk, c.arena.Pool.StringAt(keyNode.Const))
		bytecode.NewWriter(chunk).EmitConst(bytecode.OpLoadString, c.arena.Span(keyIdx), keyReg, idx)

		valReg, err := c.compileExpr(chunk, alloc, s, regular[i+1])
		if err != nil {
			return 0, err
		}
		w := bytecode.NewWriter(chunk)
		if keyReg != first+byte(i) {
			w.Emit(bytecode.OpMove, sp, first+byte(i), keyReg)
		}
		if valReg != first+byte(i+1) {
			w.Emit(bytecode.OpMove, sp, first+byte(i+1), valReg)
		}
	}
	dst := alloc.Alloc()
	bytecode.NewWriter(chunk).Emit(bytecode.OpMakeMap, sp, dst, first, byte(len(regular)))

	for _, me := range metas {
		valReg, err := c.compileExpr(chunk, alloc, s, me.value)
		if err != nil {
			return 0, err
		}
		bytecode.NewWriter(chunk).Emit(bytecode.OpSetMeta, sp, dst, byte(me.key), valReg)
	}
	return dst, nil
}

// metaKeyFor resolves a KMetaKeyLit node to the MetaKey it names.
func (c *Compiler) metaKeyFor(node glintast.Node) (bytecode.MetaKey, bool) {
	switch node.Op {
	case token.Plus:
		return bytecode.MetaAdd, true
	case token.Minus:
		return bytecode.MetaSubtract, true
	case token.Star:
		return bytecode.MetaMultiply, true
	case token.Slash:
		return bytecode.MetaDivide, true
	case token.Percent:
		return bytecode.MetaModulo, true
	case token.Eq:
		return bytecode.MetaEqual, true
	case token.Less:
		return bytecode.MetaLess, true
	case token.LessEq:
		return bytecode.MetaLessOrEqual, true
	case token.Greater:
		return bytecode.MetaGreater, true
	case token.GreaterEq:
		return bytecode.MetaGreaterOrEqual, true
	case token.Ident:
		switch c.arena.Pool.StringAt(node.Const) {
		case "display":
			return bytecode.MetaDisplay, true
		case "negate":
			return bytecode.MetaNegate, true
		case "call":
			return bytecode.MetaCall, true
		}
	}
	return 0, false
}

func (c *Compiler) compileRange(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	w := bytecode.NewWriter(chunk)
	startReg := byte(0xFF) // sentinel meaning "open range"
	endReg := byte(0xFF)
	if node.A != glintast.NoNode {
		r, err := c.compileExpr(chunk, alloc, s, node.A)
		if err != nil {
			return 0, err
		}
		startReg = r
	}
	if node.B != glintast.NoNode {
		r, err := c.compileExpr(chunk, alloc, s, node.B)
		if err != nil {
			return 0, err
		}
		endReg = r
	}
	dst := alloc.Alloc()
	inclusive := byte(0)
	if node.Kind == glintast.KRangeIncl {
		inclusive = 1
	}
	w.Emit(bytecode.OpMakeRange, sp, dst, startReg, endReg, inclusive)
	return dst, nil
}

var binaryOps = map[token.Kind]bytecode.OpCode{
	token.Plus: bytecode.OpAdd, token.Minus: bytecode.OpSub,
	token.Star: bytecode.OpMul, token.Slash: bytecode.OpDiv, token.Percent: bytecode.OpMod,
	token.Eq: bytecode.OpEqual, token.NotEq: bytecode.OpNotEqual,
	token.Less: bytecode.OpLess, token.LessEq: bytecode.OpLessEqual,
	token.Greater: bytecode.OpGreater, token.GreaterEq: bytecode.OpGreaterEqual,
}

func (c *Compiler) compileBinary(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	lhs, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	rhs, err := c.compileExpr(chunk, alloc, s, node.B)
	if err != nil {
		return 0, err
	}
	op, ok := binaryOps[node.Op]
	if !ok {
		return 0, c.errAt(sp, "unsupported binary operator %s", node.Op)
	}
	dst := alloc.Alloc()
	bytecode.NewWriter(chunk).Emit(op, sp, dst, lhs, rhs)
	return dst, nil
}

func (c *Compiler) compileUnary(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	operand, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	op := bytecode.OpNeg
	if node.Op == token.Not {
		op = bytecode.OpNot
	}
	dst := alloc.Alloc()
	bytecode.NewWriter(chunk).Emit(op, sp, dst, operand)
	return dst, nil
}

// compileLogical compiles `and`/`or` with short-circuit evaluation: the
// right-hand side is only evaluated, and its result moved into the same
// destination register, when the left-hand side didn't already decide
// the outcome (spec §4.3.3).
func (c *Compiler) compileLogical(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	lhs, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	dst := alloc.Alloc()
	w := bytecode.NewWriter(chunk)
	w.Emit(bytecode.OpMove, sp, dst, lhs)

	var patch int
	if node.Op == token.And {
		patch = w.EmitJump(bytecode.OpJumpIfFalse, sp, dst)
	} else {
		patch = w.EmitJump(bytecode.OpJumpIfTrue, sp, dst)
	}
	rhs, err := c.compileExpr(chunk, alloc, s, node.B)
	if err != nil {
		return 0, err
	}
	w.Emit(bytecode.OpMove, sp, dst, rhs)
	w.PatchJump(patch)
	return dst, nil
}

func (c *Compiler) compileLookupID(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	root, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	dst := alloc.Alloc()
	idx := internString(chunk, c.arena.Pool.StringAt(node.Const))
	bytecode.NewWriter(chunk).EmitConst(bytecode.OpGetField, sp, dst, idx)
	// GetField's container operand follows the dst+const-index bytes, so
	// it's appended directly after EmitConst rather than folded into it
	// (the opcode takes (dst, name-idx, container)).
	chunk.Code = append(chunk.Code, root)
	return dst, nil
}

func (c *Compiler) compileLookupIndex(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	root, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	idx, err := c.compileExpr(chunk, alloc, s, node.B)
	if err != nil {
		return 0, err
	}
	dst := alloc.Alloc()
	bytecode.NewWriter(chunk).Emit(bytecode.OpGetIndex, sp, dst, root, idx)
	return dst, nil
}

func (c *Compiler) compileCall(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node, sp token.Span) (byte, error) {
	callee, err := c.compileExpr(chunk, alloc, s, node.A)
	if err != nil {
		return 0, err
	}
	args := c.arena.List(node.Extra)
	first := alloc.findConsecutiveRegisters(len(args))
	for i, a := range args {
		reg, err := c.compileExpr(chunk, alloc, s, a)
		if err != nil {
			return 0, err
		}
		if reg != first+byte(i) {
			bytecode.NewWriter(chunk).Emit(bytecode.OpMove, sp, first+byte(i), reg)
		}
	}
	dst := alloc.Alloc()
	bytecode.NewWriter(chunk).Emit(bytecode.OpCall, sp, dst, callee, first, byte(len(args)))
	return dst, nil
}
