package parser

import (
	glintast "github.com/glint-lang/glint/internal/ast"
	"github.com/glint-lang/glint/internal/token"
)

// precedence table for binary operators, per spec §4.2. Higher binds
// tighter; `or`/`and` are lowest so `a or b and c` reads as `a or (b and c)`.
var binaryPrec = map[token.Kind]int{
	token.Or:  1,
	token.And: 2,
	token.Eq: 3, token.NotEq: 3,
	token.Less: 4, token.LessEq: 4, token.Greater: 4, token.GreaterEq: 4,
	token.RangeExcl: 5, token.RangeIncl: 5,
	token.Plus: 6, token.Minus: 6,
	token.Star: 7, token.Slash: 7, token.Percent: 7,
	token.PipeOp: 8,
}

func isRightAssoc(k token.Kind) bool { return false }

// parseExpr parses a full expression via precedence climbing starting at
// the lowest-precedence `or` level.
func (p *Parser) parseExpr(ctx exprContext) (glintast.NodeIndex, error) {
	return p.parseBinary(ctx, 1)
}

func (p *Parser) parseBinary(ctx exprContext, minPrec int) (glintast.NodeIndex, error) {
	lhs, err := p.parseUnary(ctx)
	if err != nil {
		return glintast.NoNode, err
	}
	for {
		op := p.peek()
		prec, ok := binaryPrec[op.Kind]
		if !ok || prec < minPrec {
			return lhs, nil
		}
		p.advance()
		p.skipOptionalContinuation(ctx)
		nextMin := prec + 1
		if isRightAssoc(op.Kind) {
			nextMin = prec
		}
		rhs, err := p.parseBinary(ctx, nextMin)
		if err != nil {
			return glintast.NoNode, err
		}
		sp := token.Join(p.arena.Span(lhs), p.arena.Span(rhs))
		switch op.Kind {
		case token.And, token.Or:
			lhs = p.arena.Add(glintast.Node{Kind: glintast.KLogical, Op: op.Kind, A: lhs, B: rhs}, sp)
		case token.RangeExcl, token.RangeIncl:
			kind := glintast.KRangeExcl
			if op.Kind == token.RangeIncl {
				kind = glintast.KRangeIncl
			}
			lhs = p.arena.Add(glintast.Node{Kind: kind, A: lhs, B: rhs}, sp)
		default:
			lhs = p.arena.Add(glintast.Node{Kind: glintast.KBinary, Op: op.Kind, A: lhs, B: rhs}, sp)
		}
	}
}

// skipOptionalContinuation permits a binary operator's right-hand side to
// start on the next line when the grammar context allows line breaks
// (spec §4.2's NewLineIndented continuation rule).
func (p *Parser) skipOptionalContinuation(ctx exprContext) {
	if !ctx.allowLinebreaks {
		return
	}
	for p.check(token.NewLineIndented) {
		p.advance()
	}
}

func (p *Parser) parseUnary(ctx exprContext) (glintast.NodeIndex, error) {
	switch p.peek().Kind {
	case token.Not:
		t, _ := p.advance()
		operand, err := p.parseUnary(ctx)
		if err != nil {
			return glintast.NoNode, err
		}
		return p.arena.Add(glintast.Node{Kind: glintast.KUnary, Op: token.Not, A: operand}, token.Join(t.Span, p.arena.Span(operand))), nil
	case token.Minus:
		// distinguished from binary minus by caller always dispatching here
		// only at the start of a unary position.
		t, _ := p.advance()
		operand, err := p.parseUnary(ctx)
		if err != nil {
			return glintast.NoNode, err
		}
		return p.arena.Add(glintast.Node{Kind: glintast.KUnary, Op: token.Minus, A: operand}, token.Join(t.Span, p.arena.Span(operand))), nil
	}
	return p.parseCallOrLookup(ctx)
}

// parseCallOrLookup parses a primary expression followed by zero or more
// lookup-chain links: `.field`, `[index]`, `(args)`, and (when the
// context allows it) a space-separated call's argument list.
func (p *Parser) parseCallOrLookup(ctx exprContext) (glintast.NodeIndex, error) {
	root, err := p.parsePrimary(ctx)
	if err != nil {
		return glintast.NoNode, err
	}
	for {
		switch p.peek().Kind {
		case token.Dot:
			p.advance()
			name, err := p.consume(token.Ident, "after '.'")
			if err != nil {
				return glintast.NoNode, err
			}
			root = p.arena.Add(glintast.Node{Kind: glintast.KLookupID, A: root, Const: p.arena.Pool.String(name.Text)}, token.Join(p.arena.Span(root), name.Span))
		case token.LBracket:
			p.advance()
			idx, err := p.parseExpr(defaultContext())
			if err != nil {
				return glintast.NoNode, err
			}
			end, err := p.consume(token.RBracket, "to close index expression")
			if err != nil {
				return glintast.NoNode, err
			}
			root = p.arena.Add(glintast.Node{Kind: glintast.KLookupIndex, A: root, B: idx}, token.Join(p.arena.Span(root), end.Span))
		case token.LParen:
			args, end, err := p.parseParenArgs()
			if err != nil {
				return glintast.NoNode, err
			}
			extra := p.arena.AddList(args)
			root = p.arena.Add(glintast.Node{Kind: glintast.KLookupCall, A: root, Extra: extra}, token.Join(p.arena.Span(root), end))
		default:
			if ctx.allowSpaceSeparatedCall && startsSpaceSeparatedArg(p.peek().Kind) {
				call, err := p.parseSpaceSeparatedCall(root)
				if err != nil {
					return glintast.NoNode, err
				}
				root = call
				continue
			}
			return root, nil
		}
	}
}

// startsSpaceSeparatedArg reports whether a token kind can open the
// argument list of a parenthesis-free call (`io.print 'foo', x`, spec §8
// scenario 1). Excludes `-`/`not` and every binary operator: those are
// ambiguous with a continuing binary expression at this grammar position
// (`f -1` could be "call f with -1" or "subtract 1 from f"), so a
// parenthesis-free call here only ever starts with a token that cannot
// also continue a binary expression.
func startsSpaceSeparatedArg(k token.Kind) bool {
	switch k {
	case token.Ident, token.Str, token.Int, token.Float, token.True, token.False,
		token.LBracket, token.LBrace, token.Self, token.Wildcard, token.LParen:
		return true
	}
	return false
}

// parseSpaceSeparatedCall parses a comma-separated argument list with no
// enclosing parentheses, immediately following `root` on the same line.
func (p *Parser) parseSpaceSeparatedCall(root glintast.NodeIndex) (glintast.NodeIndex, error) {
	var args []glintast.NodeIndex
	for {
		arg, err := p.parseExpr(defaultContext())
		if err != nil {
			return glintast.NoNode, err
		}
		args = append(args, arg)
		if _, ok := p.match(token.Comma); !ok {
			break
		}
	}
	extra := p.arena.AddList(args)
	last := args[len(args)-1]
	return p.arena.Add(glintast.Node{Kind: glintast.KLookupCall, A: root, Extra: extra}, token.Join(p.arena.Span(root), p.arena.Span(last))), nil
}

func (p *Parser) parseParenArgs() ([]glintast.NodeIndex, token.Span, error) {
	p.advance() // '('
	var args []glintast.NodeIndex
	if !p.check(token.RParen) {
		for {
			arg, err := p.parseExpr(defaultContext())
			if err != nil {
				return nil, token.Span{}, err
			}
			args = append(args, arg)
			if _, ok := p.match(token.Comma); !ok {
				break
			}
			p.skipOptionalContinuation(defaultContext())
		}
	}
	end, err := p.consume(token.RParen, "to close call arguments")
	if err != nil {
		return nil, token.Span{}, err
	}
	return args, end.Span, nil
}

func (p *Parser) parsePrimary(ctx exprContext) (glintast.NodeIndex, error) {
	t := p.peek()
	switch t.Kind {
	case token.Int:
		p.advance()
		return p.arena.Add(glintast.Node{Kind: glintast.KIntLit, Const: p.arena.Pool.String(t.Text)}, t.Span), nil
	case token.Float:
		p.advance()
		return p.arena.Add(glintast.Node{Kind: glintast.KFloatLit, Const: p.arena.Pool.String(t.Text)}, t.Span), nil
	case token.True, token.False:
		p.advance()
		v := uint32(0)
		if t.Kind == token.True {
			v = 1
		}
		return p.arena.Add(glintast.Node{Kind: glintast.KBoolLit, Const: v}, t.Span), nil
	case token.Self:
		p.advance()
		return p.arena.Add(glintast.Node{Kind: glintast.KSelf}, t.Span), nil
	case token.Wildcard:
		p.advance()
		return p.arena.Add(glintast.Node{Kind: glintast.KWildcard}, t.Span), nil
	case token.Ident:
		p.advance()
		return p.arena.Add(glintast.Node{Kind: glintast.KIdent, Const: p.arena.Pool.String(t.Text)}, t.Span), nil
	case token.Str:
		return p.parseString()
	case token.LParen:
		return p.parseParenExprOrTuple()
	case token.LBracket:
		return p.parseList()
	case token.LBrace:
		return p.parseMap()
	case token.Pipe:
		return p.parseFunction()
	case token.If:
		return p.parseIf()
	case token.Match:
		return p.parseMatch()
	case token.Switch:
		return p.parseSwitch()
	case token.Try:
		return p.parseTry()
	}
	return glintast.NoNode, p.errAt(t.Span, "unexpected token %s in expression", t.Kind)
}

// parseParenExprOrTuple parses `(expr)` or `(a, b, ...)`; a trailing comma
// or more than one element makes it a tuple.
func (p *Parser) parseParenExprOrTuple() (glintast.NodeIndex, error) {
	start, _ := p.advance()
	if _, ok := p.match(token.RParen); ok {
		return p.arena.Add(glintast.Node{Kind: glintast.KTuple}, start.Span), nil
	}
	var elems []glintast.NodeIndex
	isTuple := false
	for {
		e, err := p.parseExpr(defaultContext())
		if err != nil {
			return glintast.NoNode, err
		}
		elems = append(elems, e)
		if _, ok := p.match(token.Comma); ok {
			isTuple = true
			p.skipOptionalContinuation(defaultContext())
			if p.check(token.RParen) {
				break
			}
			continue
		}
		break
	}
	end, err := p.consume(token.RParen, "to close parenthesized expression")
	if err != nil {
		return glintast.NoNode, err
	}
	if !isTuple {
		return elems[0], nil
	}
	extra := p.arena.AddList(elems)
	return p.arena.Add(glintast.Node{Kind: glintast.KTuple, Extra: extra}, token.Join(start.Span, end.Span)), nil
}

func (p *Parser) parseList() (glintast.NodeIndex, error) {
	start, _ := p.advance()
	var elems []glintast.NodeIndex
	for !p.check(token.RBracket) {
		p.skipOptionalContinuation(defaultContext())
		e, err := p.parseExpr(defaultContext())
		if err != nil {
			return glintast.NoNode, err
		}
		elems = append(elems, e)
		if _, ok := p.match(token.Comma); !ok {
			break
		}
	}
	p.skipOptionalContinuation(defaultContext())
	end, err := p.consume(token.RBracket, "to close list literal")
	if err != nil {
		return glintast.NoNode, err
	}
	extra := p.arena.AddList(elems)
	return p.arena.Add(glintast.Node{Kind: glintast.KList, Extra: extra}, token.Join(start.Span, end.Span)), nil
}

// parseMap parses `{key: value, ...}`; entries are stored as alternating
// key/value node indices in the extra list.
func (p *Parser) parseMap() (glintast.NodeIndex, error) {
	start, _ := p.advance()
	var entries []glintast.NodeIndex
	for !p.check(token.RBrace) {
		p.skipOptionalContinuation(defaultContext())
		if p.check(token.RBrace) {
			break
		}

		var key glintast.NodeIndex
		var shorthandName string
		if _, ok := p.match(token.At); ok {
			metaKey, err := p.parseMetaKey()
			if err != nil {
				return glintast.NoNode, err
			}
			key = metaKey
		} else {
			keyTok, err := p.consume(token.Ident, "map key")
			if err != nil {
				return glintast.NoNode, err
			}
			key = p.arena.Add(glintast.Node{Kind: glintast.KIdent, Const: p.arena.Pool.String(keyTok.Text)}, keyTok.Span)
			shorthandName = keyTok.Text
		}

		var value glintast.NodeIndex
		if _, ok := p.match(token.Colon); ok {
			var err error
			value, err = p.parseExpr(defaultContext())
			if err != nil {
				return glintast.NoNode, err
			}
		} else if shorthandName != "" {
			// shorthand `{x}` == `{x: x}`
			value = p.arena.Add(glintast.Node{Kind: glintast.KIdent, Const: p.arena.Pool.String(shorthandName)}, p.arena.Span(key))
		} else {
			return glintast.NoNode, p.errAt(p.arena.Span(key), "meta key requires a value")
		}
		entries = append(entries, key, value)
		if _, ok := p.match(token.Comma); !ok {
			break
		}
	}
	p.skipOptionalContinuation(defaultContext())
	end, err := p.consume(token.RBrace, "to close map literal")
	if err != nil {
		return glintast.NoNode, err
	}
	extra := p.arena.AddList(entries)
	return p.arena.Add(glintast.Node{Kind: glintast.KMapLit, Extra: extra}, token.Join(start.Span, end.Span)), nil
}

// parseMetaKey parses the operator or name following an `@` map-key
// prefix (spec §3.6's meta-method map syntax, e.g. `@+`, `@display`).
func (p *Parser) parseMetaKey() (glintast.NodeIndex, error) {
	tok := p.peek()
	switch tok.Kind {
	case token.Plus, token.Minus, token.Star, token.Slash, token.Percent,
		token.Eq, token.Less, token.LessEq, token.Greater, token.GreaterEq:
		if _, err := p.advance(); err != nil {
			return glintast.NoNode, err
		}
		return p.arena.Add(glintast.Node{Kind: glintast.KMetaKeyLit, Op: tok.Kind}, tok.Span), nil
	case token.Ident:
		switch tok.Text {
		case "display", "negate", "call":
			if _, err := p.advance(); err != nil {
				return glintast.NoNode, err
			}
			return p.arena.Add(glintast.Node{Kind: glintast.KMetaKeyLit, Op: token.Ident, Const: p.arena.Pool.String(tok.Text)}, tok.Span), nil
		}
	}
	return glintast.NoNode, p.errAt(tok.Span, "expected a meta operator or name after '@'")
}

// parseFunction parses `|a, b| body` function literals; there is no
// `|a, b| -> body` form. Captures are resolved later by the compiler, which
// compares free identifiers in body against the enclosing scope's locals.
func (p *Parser) parseFunction() (glintast.NodeIndex, error) {
	start, _ := p.advance()
	p.pushFrame()
	var args []glintast.NodeIndex
	for !p.check(token.Pipe) {
		argTok, err := p.consume(token.Ident, "function argument")
		if err != nil {
			return glintast.NoNode, err
		}
		p.top().locals[argTok.Text] = true
		args = append(args, p.arena.Add(glintast.Node{Kind: glintast.KIdent, Const: p.arena.Pool.String(argTok.Text)}, argTok.Span))
		if _, ok := p.match(token.Comma); !ok {
			break
		}
	}
	if _, err := p.consume(token.Pipe, "to close function argument list"); err != nil {
		return glintast.NoNode, err
	}
	// The body is parsed as one statement, not bare parseExpr, so
	// statement-only forms (yield, return, for, while, throw) can
	// stand as a function's entire body, e.g. `|n| yield n`.
	body, err := p.parseStatement()
	if err != nil {
		return glintast.NoNode, err
	}
	f := p.popFrame()
	var flags uint8
	if f.containsYield {
		flags |= glintast.FlagGenerator
	}
	extra := p.arena.AddList(args)
	fn := p.arena.Add(glintast.Node{Kind: glintast.KFunction, A: body, Extra: extra, Flags: flags}, token.Join(start.Span, p.arena.Span(body)))
	return fn, nil
}

// parseString parses a quoted string, possibly containing `$name` and
// `${expr}` interpolation pieces, into a KStringLit node whose children
// are KStringPieceLiteral/KStringPieceExpr nodes.
func (p *Parser) parseString() (glintast.NodeIndex, error) {
	start, err := p.consume(token.Str, "opening quote")
	if err != nil {
		return glintast.NoNode, err
	}
	var pieces []glintast.NodeIndex
	for {
		switch p.peek().Kind {
		case token.StrLiteral:
			t, _ := p.advance()
			pieces = append(pieces, p.arena.Add(glintast.Node{Kind: glintast.KStringPieceLiteral, Const: p.arena.Pool.String(t.Text)}, t.Span))
		case token.StrExprStart:
			p.advance()
			e, err := p.parseExpr(exprContext{})
			if err != nil {
				return glintast.NoNode, err
			}
			if _, err := p.consume(token.StrExprEnd, "to close string interpolation"); err != nil {
				return glintast.NoNode, err
			}
			pieces = append(pieces, p.arena.Add(glintast.Node{Kind: glintast.KStringPieceExpr, A: e}, p.arena.Span(e)))
		case token.Str:
			end, _ := p.advance()
			extra := p.arena.AddList(pieces)
			return p.arena.Add(glintast.Node{Kind: glintast.KStringLit, Extra: extra}, token.Join(start.Span, end.Span)), nil
		default:
			return glintast.NoNode, p.errAt(p.peek().Span, "unterminated string literal")
		}
	}
}
