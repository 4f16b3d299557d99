package compiler

import (
	"fmt"
	"strconv"

	glintast "github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/bytecode"
	glinterrors "github.com/glint-lang/glint/internal/errors"
	"github.com/glint-lang/glint/internal/token"
)

// scope tracks the name -> register bindings visible in one function
// frame, plus the loop contexts active for break/continue patching.
type scope struct {
	locals map[string]byte
	loops  []*loopCtx
}

type loopCtx struct {
	breakPatches []int
	continueAt   int
}

func newScope() *scope { return &scope{locals: map[string]byte{}} }

// Compiler lowers one arena (a module body or a single function body)
// into a bytecode.Chunk at a time, recursing into nested Chunks for
// function literals.
type Compiler struct {
	arena *glintast.Arena
	path  string
	src   string
}

func New(arena *glintast.Arena, path, src string) *Compiler {
	return &Compiler{arena: arena, path: path, src: src}
}

// CompileModule compiles the top-level block into a Chunk whose code runs
// with an implicit top-level frame (spec §4.3.1).
// CompileModule compiles the top-level block, retaining the final
// statement's value as an explicit Return so a host running the chunk
// gets the module's last expression back (spec §8's "evaluates to ..."
// scenarios, none of which write an explicit `return`).
func (c *Compiler) CompileModule(root glintast.NodeIndex) (*bytecode.Chunk, error) {
	chunk := bytecode.NewChunk(c.path)
	s := newScope()
	alloc := NewRegisterAllocator()

	node := c.arena.Get(root)
	stmts := c.arena.List(node.Extra)
	w := bytecode.NewWriter(chunk)
	if len(stmts) == 0 {
		dst := alloc.Alloc()
		w.Emit(bytecode.OpLoadNil, c.arena.Span(root), dst)
		w.Emit(bytecode.OpReturn, c.arena.Span(root), dst)
	} else {
		for i, stmt := range stmts {
			last := i == len(stmts)-1
			mark := alloc.Mark()
			if !last {
				if err := c.compileStmt(chunk, alloc, s, stmt); err != nil {
					return nil, err
				}
				alloc.Reset(mark)
				continue
			}
			reg, err := c.compileExpr(chunk, alloc, s, stmt)
			if err != nil {
				return nil, err
			}
			w.Emit(bytecode.OpReturn, c.arena.Span(stmt), reg)
		}
	}
	chunk.ConstWidth = bytecode.WidthFor(len(chunk.Ints) + len(chunk.Floats) + len(chunk.Strings))
	return chunk, nil
}

func (c *Compiler) errAt(sp token.Span, format string, args ...interface{}) error {
	return glinterrors.New(glinterrors.CompileError, fmt.Sprintf(format, args...)).
		WithPath(c.path).WithSource(c.src).WithSpan(sp)
}

// compileStmt compiles a statement node, discarding its result register
// (every node is expression-shaped, so "statement" just means the value
// isn't retained).
func (c *Compiler) compileStmt(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, n glintast.NodeIndex) error {
	node := c.arena.Get(n)
	if node.Kind == glintast.KBlock {
		for _, stmt := range c.arena.List(node.Extra) {
			mark := alloc.Mark()
			if err := c.compileStmt(chunk, alloc, s, stmt); err != nil {
				return err
			}
			alloc.Reset(mark)
		}
		return nil
	}
	_, err := c.compileExpr(chunk, alloc, s, n)
	return err
}

// compileExpr compiles an expression node and returns the register
// holding its result.
func (c *Compiler) compileExpr(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, n glintast.NodeIndex) (byte, error) {
	node := c.arena.Get(n)
	sp := c.arena.Span(n)
	w := bytecode.NewWriter(chunk)

	switch node.Kind {
	case glintast.KIntLit:
		text := c.arena.Pool.StringAt(node.Const)
		v, err := parseIntLiteral(text)
		if err != nil {
			return 0, c.errAt(sp, "invalid integer literal %q", text)
		}
		dst := alloc.Alloc()
		idx := internInt(chunk, v)
		w.EmitConst(bytecode.OpLoadInt, sp, dst, idx)
		return dst, nil

	case glintast.KFloatLit:
		text := c.arena.Pool.StringAt(node.Const)
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, c.errAt(sp, "invalid float literal %q", text)
		}
		dst := alloc.Alloc()
		idx := internFloat(chunk, v)
		w.EmitConst(bytecode.OpLoadFloat, sp, dst, idx)
		return dst, nil

	case glintast.KBoolLit:
		dst := alloc.Alloc()
		op := bytecode.OpLoadFalse
		if node.Const == 1 {
			op = bytecode.OpLoadTrue
		}
		w.Emit(op, sp, dst)
		return dst, nil

	case glintast.KEmptyLit:
		dst := alloc.Alloc()
		w.Emit(bytecode.OpLoadNil, sp, dst)
		return dst, nil

	case glintast.KStringLit:
		return c.compileStringLit(chunk, alloc, s, node, sp)

	case glintast.KIdent:
		name := c.arena.Pool.StringAt(node.Const)
		if reg, ok := s.locals[name]; ok {
			return reg, nil
		}
		dst := alloc.Alloc()
		idx := internString(chunk, name)
		w.EmitConst(bytecode.OpLoadNonLocal, sp, dst, idx)
		return dst, nil

	case glintast.KWildcard:
		dst := alloc.Alloc()
		w.Emit(bytecode.OpLoadNil, sp, dst)
		return dst, nil

	case glintast.KSelf:
		name := "self"
		dst := alloc.Alloc()
		idx := internString(chunk, name)
		w.EmitConst(bytecode.OpLoadNonLocal, sp, dst, idx)
		return dst, nil

	case glintast.KTuple:
		return c.compileContainer(chunk, alloc, s, node, sp, bytecode.OpMakeTuple)
	case glintast.KList:
		return c.compileContainer(chunk, alloc, s, node, sp, bytecode.OpMakeList)

	case glintast.KMapLit:
		return c.compileMap(chunk, alloc, s, node, sp)

	case glintast.KRangeExcl, glintast.KRangeIncl:
		return c.compileRange(chunk, alloc, s, node, sp)

	case glintast.KBinary:
		return c.compileBinary(chunk, alloc, s, node, sp)
	case glintast.KUnary:
		return c.compileUnary(chunk, alloc, s, node, sp)
	case glintast.KLogical:
		return c.compileLogical(chunk, alloc, s, node, sp)

	case glintast.KLookupID:
		return c.compileLookupID(chunk, alloc, s, node, sp)
	case glintast.KLookupIndex:
		return c.compileLookupIndex(chunk, alloc, s, node, sp)
	case glintast.KLookupCall:
		return c.compileCall(chunk, alloc, s, node, sp)

	case glintast.KIf:
		return c.compileIf(chunk, alloc, s, node, sp)
	case glintast.KMatch:
		return c.compileMatch(chunk, alloc, s, node, sp)
	case glintast.KSwitch:
		return c.compileSwitch(chunk, alloc, s, node, sp)

	case glintast.KWhile, glintast.KUntil:
		return c.compileWhileUntil(chunk, alloc, s, node, sp)
	case glintast.KLoop:
		return c.compileLoop(chunk, alloc, s, node, sp)
	case glintast.KFor:
		return c.compileFor(chunk, alloc, s, node, sp)

	case glintast.KBreak:
		return c.compileBreak(chunk, alloc, s, sp)
	case glintast.KContinue:
		return c.compileContinue(chunk, alloc, s, sp)

	case glintast.KReturn:
		return c.compileReturn(chunk, alloc, s, node, sp)
	case glintast.KYield:
		return c.compileYield(chunk, alloc, s, node, sp)
	case glintast.KThrow:
		return c.compileThrow(chunk, alloc, s, node, sp)

	case glintast.KTryCatchFinally:
		return c.compileTry(chunk, alloc, s, node, sp)

	case glintast.KImport:
		dst := alloc.Alloc()
		idx := internString(chunk, c.arena.Pool.StringAt(node.Const))
		w.EmitConst(bytecode.OpImport, sp, dst, idx)
		return dst, nil

	case glintast.KExport:
		val, err := c.compileExpr(chunk, alloc, s, node.A)
		if err != nil {
			return 0, err
		}
		inner := c.arena.Get(node.A)
		name := "export"
		if inner.Kind == glintast.KIdent {
			name = c.arena.Pool.StringAt(inner.Const)
		}
		idx := internString(chunk, name)
		w.EmitConstThenByte(bytecode.OpExport, sp, idx, val)
		return val, nil

	case glintast.KFunction:
		return c.compileFunction(chunk, alloc, s, node, sp)

	case glintast.KAssign:
		return c.compileAssign(chunk, alloc, s, node, sp)
	case glintast.KBlock:
		return c.compileBlockExpr(chunk, alloc, s, node)
	}

	return 0, c.errAt(sp, "compiler: unhandled node kind %d", node.Kind)
}

// compileBlockExpr compiles an indented block as a value: every statement
// but the last discards its result register (matching compileStmt), the
// last one's register is kept live as the block's value, so `if`/`while`/
// `for`/`try` bodies parsed as a KBlock can be used like any other
// expression.
func (c *Compiler) compileBlockExpr(chunk *bytecode.Chunk, alloc *RegisterAllocator, s *scope, node glintast.Node) (byte, error) {
	stmts := c.arena.List(node.Extra)
	if len(stmts) == 0 {
		dst := alloc.Alloc()
		bytecode.NewWriter(chunk).Emit(bytecode.OpLoadNil, token.Span{}, dst)
		return dst, nil
	}
	var last byte
	for i, stmt := range stmts {
		mark := alloc.Mark()
		reg, err := c.compileExpr(chunk, alloc, s, stmt)
		if err != nil {
			return 0, err
		}
		if i == len(stmts)-1 {
			last = reg
		} else {
			alloc.Reset(mark)
		}
	}
	return last, nil
}

func parseIntLiteral(text string) (int64, error) {
	return strconv.ParseInt(text, 0, 64)
}

func internInt(chunk *bytecode.Chunk, v int64) uint32 {
	for i, existing := range chunk.Ints {
		if existing == v {
			return uint32(i)
		}
	}
	chunk.Ints = append(chunk.Ints, v)
	return uint32(len(chunk.Ints) - 1)
}

func internFloat(chunk *bytecode.Chunk, v float64) uint32 {
	for i, existing := range chunk.Floats {
		if existing == v {
			return uint32(i)
		}
	}
	chunk.Floats = append(chunk.Floats, v)
	return uint32(len(chunk.Floats) - 1)
}

func internString(chunk *bytecode.Chunk, v string) uint32 {
	for i, existing := range chunk.Strings {
		if existing == v {
			return uint32(i)
		}
	}
	chunk.Strings = append(chunk.Strings, v)
	return uint32(len(chunk.Strings) - 1)
}
