// Package parser builds a glint.internal/ast arena from a token stream.
//
// Grounded on sentra's internal/parser/parser.go: the same control
// structure (advance/check/match/consume helpers, a precedence-climbing
// expression parser) generalized to an indentation-significant,
// expression-oriented grammar and to the arena AST representation spec
// §3.3/§4.2 require instead of the teacher's pointer/interface nodes.
package parser

import (
	"fmt"

	glintast "github.com/glint-lang/glint/internal/ast"
	glinterrors "github.com/glint-lang/glint/internal/errors"
	"github.com/glint-lang/glint/internal/lexer"
	"github.com/glint-lang/glint/internal/token"
)

// frame tracks one lexical scope's bookkeeping while parsing: which names
// were assigned locally, which were captured from an enclosing frame, and
// whether a yield was seen (making the enclosing function a generator).
type frame struct {
	locals       map[string]bool
	accessedFree map[string]bool
	containsYield bool
}

func newFrame() *frame {
	return &frame{locals: map[string]bool{}, accessedFree: map[string]bool{}}
}

// exprContext threads the indentation/line-break rules spec §4.2 requires
// through expression parsing (e.g. whether a newline-indented continuation
// line is permitted here, and at what minimum indent).
type exprContext struct {
	allowLinebreaks       bool
	allowSpaceSeparatedCall bool
	allowMapBlock         bool
	minIndent             int
}

func defaultContext() exprContext {
	return exprContext{allowLinebreaks: true, allowSpaceSeparatedCall: true, allowMapBlock: true}
}

// Parser is a recursive-descent, precedence-climbing parser over a Lexer,
// producing nodes in an ast.Arena.
type Parser struct {
	lex   *lexer.Lexer
	arena *glintast.Arena
	path  string
	src   string

	frames []*frame
}

func New(src, path string) *Parser {
	return &Parser{
		lex:   lexer.New(src, path),
		arena: glintast.NewArena(),
		path:  path,
		src:   src,
		frames: []*frame{newFrame()},
	}
}

// Parse parses a full module body and returns the arena root block node.
func Parse(src, path string) (*glintast.Arena, glintast.NodeIndex, error) {
	p := New(src, path)
	root, err := p.parseBlock(0)
	if err != nil {
		return nil, glintast.NoNode, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, glintast.NoNode, err
	}
	return p.arena, root, nil
}

func (p *Parser) top() *frame { return p.frames[len(p.frames)-1] }

func (p *Parser) pushFrame() { p.frames = append(p.frames, newFrame()) }
func (p *Parser) popFrame() *frame {
	f := p.top()
	p.frames = p.frames[:len(p.frames)-1]
	return f
}

func (p *Parser) errAt(sp token.Span, format string, args ...interface{}) error {
	return glinterrors.New(glinterrors.SyntaxError, fmt.Sprintf(format, args...)).
		WithPath(p.path).WithSource(p.src).WithSpan(sp)
}

func (p *Parser) peek() token.Token {
	t, err := p.lex.Peek()
	if err != nil {
		return token.Token{Kind: token.Error}
	}
	return t
}

func (p *Parser) peekN(n int) token.Token {
	t, err := p.lex.PeekN(n)
	if err != nil {
		return token.Token{Kind: token.Error}
	}
	return t
}

func (p *Parser) advance() (token.Token, error) { return p.lex.Next() }

func (p *Parser) check(k token.Kind) bool { return p.peek().Kind == k }

func (p *Parser) match(k token.Kind) (token.Token, bool) {
	if p.check(k) {
		t, _ := p.advance()
		return t, true
	}
	return token.Token{}, false
}

func (p *Parser) consume(k token.Kind, context string) (token.Token, error) {
	if p.check(k) {
		return p.advance()
	}
	got := p.peek()
	if got.Kind == token.EOF {
		return token.Token{}, glinterrors.New(glinterrors.IndentationError, fmt.Sprintf("expected %s %s, found end of input", k, context)).
			WithPath(p.path).WithSource(p.src).WithSpan(got.Span)
	}
	return token.Token{}, p.errAt(got.Span, "expected %s %s, found %s", k, context, got.Kind)
}

// skipNewlines consumes any run of NewLine/NewLineIndented tokens.
func (p *Parser) skipNewlines() {
	for p.check(token.NewLine) || p.check(token.NewLineIndented) {
		p.advance()
	}
}

func (p *Parser) expectEOF() error {
	p.skipNewlines()
	if !p.check(token.EOF) {
		t := p.peek()
		return p.errAt(t.Span, "unexpected trailing input %s", t.Kind)
	}
	return nil
}

// parseBlock parses a sequence of statements at the indentation of the
// block's first line (at least indent) until a dedent, an
// `else`/`catch`/`finally` continuation keyword, or EOF is reached.
func (p *Parser) parseBlock(indent int) (glintast.NodeIndex, error) {
	var stmts []glintast.NodeIndex
	startSpan := p.peek().Span
	blockIndent := indent
	if t := p.peek(); t.Kind == token.NewLineIndented && t.Indent > blockIndent {
		blockIndent = t.Indent
	}
	for {
		if t := p.peek(); (t.Kind == token.NewLine || t.Kind == token.NewLineIndented) && t.Indent < blockIndent {
			break
		}
		p.skipNewlines()
		if p.atBlockEnd() {
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return glintast.NoNode, err
		}
		stmts = append(stmts, stmt)
	}
	extra := p.arena.AddList(stmts)
	return p.arena.Add(glintast.Node{Kind: glintast.KBlock, Extra: extra}, startSpan), nil
}

func (p *Parser) atBlockEnd() bool {
	switch p.peek().Kind {
	case token.EOF, token.Else, token.ElseIf, token.Catch, token.Finally:
		return true
	}
	return false
}

// parseStatement parses one top-level-of-block construct: a keyword-led
// statement form, or an expression statement (which also covers
// assignment, since assignment is expression-shaped in this grammar).
func (p *Parser) parseStatement() (glintast.NodeIndex, error) {
	switch p.peek().Kind {
	case token.Return:
		return p.parseReturn()
	case token.Yield:
		return p.parseYield()
	case token.Break:
		t, _ := p.advance()
		return p.arena.Add(glintast.Node{Kind: glintast.KBreak}, t.Span), nil
	case token.Continue:
		t, _ := p.advance()
		return p.arena.Add(glintast.Node{Kind: glintast.KContinue}, t.Span), nil
	case token.Throw:
		return p.parseThrow()
	case token.Import:
		return p.parseImport()
	case token.Export:
		return p.parseExport()
	case token.If:
		return p.parseIf()
	case token.For:
		return p.parseFor()
	case token.While:
		return p.parseWhileUntil(false)
	case token.Until:
		return p.parseWhileUntil(true)
	case token.Loop:
		return p.parseLoop()
	case token.Try:
		return p.parseTry()
	case token.Match:
		return p.parseMatch()
	case token.Switch:
		return p.parseSwitch()
	default:
		return p.parseExprStatement()
	}
}

func (p *Parser) parseReturn() (glintast.NodeIndex, error) {
	t, _ := p.advance()
	if p.atExprEnd() {
		return p.arena.Add(glintast.Node{Kind: glintast.KReturn, A: glintast.NoNode}, t.Span), nil
	}
	v, err := p.parseExpr(defaultContext())
	if err != nil {
		return glintast.NoNode, err
	}
	return p.arena.Add(glintast.Node{Kind: glintast.KReturn, A: v}, token.Join(t.Span, p.arena.Span(v))), nil
}

func (p *Parser) parseYield() (glintast.NodeIndex, error) {
	t, _ := p.advance()
	p.top().containsYield = true
	v, err := p.parseExpr(defaultContext())
	if err != nil {
		return glintast.NoNode, err
	}
	return p.arena.Add(glintast.Node{Kind: glintast.KYield, A: v}, token.Join(t.Span, p.arena.Span(v))), nil
}

func (p *Parser) parseThrow() (glintast.NodeIndex, error) {
	t, _ := p.advance()
	v, err := p.parseExpr(defaultContext())
	if err != nil {
		return glintast.NoNode, err
	}
	return p.arena.Add(glintast.Node{Kind: glintast.KThrow, A: v}, token.Join(t.Span, p.arena.Span(v))), nil
}

func (p *Parser) atExprEnd() bool {
	switch p.peek().Kind {
	case token.NewLine, token.NewLineIndented, token.EOF:
		return true
	}
	return false
}

// parseExprStatement parses an expression, then zero-or-more `=`/compound
// assignment continuations (spec §4.2's "assignment is an expression").
func (p *Parser) parseExprStatement() (glintast.NodeIndex, error) {
	lhs, err := p.parseExpr(defaultContext())
	if err != nil {
		return glintast.NoNode, err
	}
	switch p.peek().Kind {
	case token.Assign, token.PlusAssign, token.MinusAssign, token.StarAssign, token.SlashAssign, token.PercentAssign:
		op, _ := p.advance()
		p.skipNewlines()
		rhs, err := p.parseExpr(defaultContext())
		if err != nil {
			return glintast.NoNode, err
		}
		return p.arena.Add(glintast.Node{Kind: glintast.KAssign, Op: op.Kind, A: lhs, B: rhs}, token.Join(p.arena.Span(lhs), p.arena.Span(rhs))), nil
	}
	return lhs, nil
}

func (p *Parser) parseIf() (glintast.NodeIndex, error) {
	t, _ := p.advance()
	cond, err := p.parseExpr(defaultContext())
	if err != nil {
		return glintast.NoNode, err
	}
	if _, err := p.consume(token.Then, "after if condition (or an indented block)"); err == nil {
		thenExpr, err := p.parseExpr(defaultContext())
		if err != nil {
			return glintast.NoNode, err
		}
		elseNode := glintast.NoNode
		if _, ok := p.match(token.Else); ok {
			elseNode, err = p.parseExpr(defaultContext())
			if err != nil {
				return glintast.NoNode, err
			}
		}
		return p.arena.Add(glintast.Node{Kind: glintast.KIf, A: cond, B: thenExpr, C: elseNode}, t.Span), nil
	}
	body, err := p.parseBlock(0)
	if err != nil {
		return glintast.NoNode, err
	}
	elseNode := glintast.NoNode
	p.skipNewlines()
	switch p.peek().Kind {
	case token.ElseIf:
		elseNode, err = p.parseIf()
		if err != nil {
			return glintast.NoNode, err
		}
	case token.Else:
		p.advance()
		elseNode, err = p.parseBlock(0)
		if err != nil {
			return glintast.NoNode, err
		}
	}
	return p.arena.Add(glintast.Node{Kind: glintast.KIf, A: cond, B: body, C: elseNode}, t.Span), nil
}

func (p *Parser) parseWhileUntil(until bool) (glintast.NodeIndex, error) {
	t, _ := p.advance()
	cond, err := p.parseExpr(defaultContext())
	if err != nil {
		return glintast.NoNode, err
	}
	body, err := p.parseBlock(0)
	if err != nil {
		return glintast.NoNode, err
	}
	kind := glintast.KWhile
	if until {
		kind = glintast.KUntil
	}
	return p.arena.Add(glintast.Node{Kind: kind, A: cond, B: body}, t.Span), nil
}

func (p *Parser) parseLoop() (glintast.NodeIndex, error) {
	t, _ := p.advance()
	body, err := p.parseBlock(0)
	if err != nil {
		return glintast.NoNode, err
	}
	return p.arena.Add(glintast.Node{Kind: glintast.KLoop, A: body}, t.Span), nil
}

// parseFor parses `for a, b in iterable` followed by its body; a trailing
// `, cond` predicate after the iterable is not accepted.
func (p *Parser) parseFor() (glintast.NodeIndex, error) {
	t, _ := p.advance()
	var names []glintast.NodeIndex
	for {
		name, err := p.parseForTarget()
		if err != nil {
			return glintast.NoNode, err
		}
		names = append(names, name)
		if _, ok := p.match(token.Comma); !ok {
			break
		}
	}
	if _, err := p.consume(token.In, "after for-loop targets"); err != nil {
		return glintast.NoNode, err
	}
	iter, err := p.parseExpr(defaultContext())
	if err != nil {
		return glintast.NoNode, err
	}
	body, err := p.parseBlock(0)
	if err != nil {
		return glintast.NoNode, err
	}
	targets := p.arena.AddList(names)
	return p.arena.Add(glintast.Node{Kind: glintast.KFor, A: iter, B: body, Extra: targets}, t.Span), nil
}

func (p *Parser) parseForTarget() (glintast.NodeIndex, error) {
	if t, ok := p.match(token.Wildcard); ok {
		return p.arena.Add(glintast.Node{Kind: glintast.KWildcard}, t.Span), nil
	}
	t, err := p.consume(token.Ident, "for-loop target")
	if err != nil {
		return glintast.NoNode, err
	}
	p.top().locals[t.Text] = true
	return p.arena.Add(glintast.Node{Kind: glintast.KIdent, Const: p.arena.Pool.String(t.Text)}, t.Span), nil
}

// parseTry parses try/catch(-pattern)?/finally, grounded on the
// TryStart/TryEnd/Throw unwind sequence the compiler/VM implement.
func (p *Parser) parseTry() (glintast.NodeIndex, error) {
	t, _ := p.advance()
	tryBody, err := p.parseBlock(0)
	if err != nil {
		return glintast.NoNode, err
	}
	p.skipNewlines()
	catchPattern := glintast.NoNode
	catchBody := glintast.NoNode
	if _, ok := p.match(token.Catch); ok {
		catchPattern, err = p.parseForTarget()
		if err != nil {
			return glintast.NoNode, err
		}
		catchBody, err = p.parseBlock(0)
		if err != nil {
			return glintast.NoNode, err
		}
	}
	p.skipNewlines()
	finallyBody := glintast.NoNode
	if _, ok := p.match(token.Finally); ok {
		finallyBody, err = p.parseBlock(0)
		if err != nil {
			return glintast.NoNode, err
		}
	}
	extra := p.arena.AddList([]glintast.NodeIndex{catchPattern})
	return p.arena.Add(glintast.Node{Kind: glintast.KTryCatchFinally, A: tryBody, B: catchBody, C: finallyBody, Extra: extra}, t.Span), nil
}

// parseMatch parses `match expr` followed by an indented set of
// `pattern then result`/`pattern\n  body` arms.
func (p *Parser) parseMatch() (glintast.NodeIndex, error) {
	t, _ := p.advance()
	subject, err := p.parseExpr(defaultContext())
	if err != nil {
		return glintast.NoNode, err
	}
	var arms []glintast.NodeIndex
	armIndent := p.peek().Indent
	p.skipNewlines()
	for !p.atBlockEnd() && !p.check(token.NewLine) {
		pattern, err := p.parseExpr(exprContext{})
		if err != nil {
			return glintast.NoNode, err
		}
		if _, err := p.consume(token.Then, "after match pattern"); err != nil {
			return glintast.NoNode, err
		}
		result, err := p.parseExpr(defaultContext())
		if err != nil {
			return glintast.NoNode, err
		}
		extra := p.arena.AddList([]glintast.NodeIndex{pattern, result})
		arms = append(arms, p.arena.Add(glintast.Node{Kind: glintast.KBlock, Extra: extra}, token.Join(p.arena.Span(pattern), p.arena.Span(result))))
		if nl := p.peek(); nl.Kind != token.NewLineIndented || nl.Indent < armIndent {
			break
		}
		p.advance()
	}
	extra := p.arena.AddList(arms)
	return p.arena.Add(glintast.Node{Kind: glintast.KMatch, A: subject, Extra: extra}, t.Span), nil
}

func (p *Parser) parseSwitch() (glintast.NodeIndex, error) {
	t, _ := p.advance()
	var arms []glintast.NodeIndex
	armIndent := p.peek().Indent
	p.skipNewlines()
	for !p.atBlockEnd() && !p.check(token.NewLine) {
		cond, err := p.parseExpr(exprContext{})
		if err != nil {
			return glintast.NoNode, err
		}
		if _, err := p.consume(token.Then, "after switch condition"); err != nil {
			return glintast.NoNode, err
		}
		result, err := p.parseExpr(defaultContext())
		if err != nil {
			return glintast.NoNode, err
		}
		extra := p.arena.AddList([]glintast.NodeIndex{cond, result})
		arms = append(arms, p.arena.Add(glintast.Node{Kind: glintast.KBlock, Extra: extra}, token.Join(p.arena.Span(cond), p.arena.Span(result))))
		if nl := p.peek(); nl.Kind != token.NewLineIndented || nl.Indent < armIndent {
			break
		}
		p.advance()
	}
	extra := p.arena.AddList(arms)
	return p.arena.Add(glintast.Node{Kind: glintast.KSwitch, Extra: extra}, t.Span), nil
}

func (p *Parser) parseImport() (glintast.NodeIndex, error) {
	t, _ := p.advance()
	name, err := p.consume(token.Ident, "module name")
	if err != nil {
		return glintast.NoNode, err
	}
	return p.arena.Add(glintast.Node{Kind: glintast.KImport, Const: p.arena.Pool.String(name.Text)}, t.Span), nil
}

func (p *Parser) parseExport() (glintast.NodeIndex, error) {
	t, _ := p.advance()
	v, err := p.parseExpr(defaultContext())
	if err != nil {
		return glintast.NoNode, err
	}
	return p.arena.Add(glintast.Node{Kind: glintast.KExport, A: v}, t.Span), nil
}
