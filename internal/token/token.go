// Package token defines source positions and the token kinds produced by
// the lexer and consumed by the parser and compiler.
package token

import "fmt"

// Position is a 1-based (line, column) pair. Column is counted in
// displayed character cells so that wide runes and combining marks don't
// shift carets in error excerpts.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is an inclusive-exclusive range [Start, End) over Positions.
type Span struct {
	Start Position
	End   Position
}

// Contains reports whether p falls within the span (inclusive of Start,
// exclusive of End, matching the half-open convention).
func (s Span) Contains(p Position) bool {
	if p.Line < s.Start.Line || (p.Line == s.Start.Line && p.Column < s.Start.Column) {
		return false
	}
	if p.Line > s.End.Line || (p.Line == s.End.Line && p.Column >= s.End.Column) {
		return false
	}
	return true
}

// Join returns the smallest span covering both a and b.
func Join(a, b Span) Span {
	start := a.Start
	if before(b.Start, start) {
		start = b.Start
	}
	end := a.End
	if before(end, b.End) {
		end = b.End
	}
	return Span{Start: start, End: end}
}

func before(a, b Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Column < b.Column)
}

// Kind is the type of a lexical token.
type Kind int

const (
	EOF Kind = iota
	Error

	NewLine          // column-0 newline
	NewLineIndented   // newline followed by positive indent

	Ident
	Int
	Float
	Str        // string literal piece boundary token (quote)
	StrLiteral // literal chunk inside a string
	StrExprStart
	StrExprEnd

	// Keywords
	And
	Break
	Catch
	Continue
	Debug
	Else
	ElseIf
	Export
	False
	Finally
	For
	From
	If
	Import
	In
	Loop
	Match
	Not
	Num2
	Num4
	Or
	Return
	Switch
	Then
	Throw
	True
	Try
	Until
	While
	Yield
	Self
	Wildcard // `_`

	// Punctuation / operators
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Dot
	Colon
	At // meta prefix @

	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign

	Eq
	NotEq
	Less
	LessEq
	Greater
	GreaterEq

	Plus
	Minus
	Star
	Slash
	Percent

	RangeExcl // ..
	RangeIncl // ..=
	Ellipsis  // ...
	Pipe      // | function delimiter
	PipeOp    // >> pipe operator

	Comment
)

var names = map[Kind]string{
	EOF: "eof", Error: "error",
	NewLine: "newline", NewLineIndented: "newline-indented",
	Ident: "identifier", Int: "int", Float: "float",
	Str: "string", StrLiteral: "string-literal", StrExprStart: "${", StrExprEnd: "}",
	And: "and", Break: "break", Catch: "catch", Continue: "continue", Debug: "debug",
	Else: "else", ElseIf: "else_if", Export: "export", False: "false", Finally: "finally",
	For: "for", From: "from", If: "if", Import: "import", In: "in", Loop: "loop",
	Match: "match", Not: "not", Num2: "num2", Num4: "num4", Or: "or", Return: "return",
	Switch: "switch", Then: "then", Throw: "throw", True: "true", Try: "try",
	Until: "until", While: "while", Yield: "yield", Self: "self", Wildcard: "_",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	Comma: ",", Dot: ".", Colon: ":", At: "@",
	Assign: "=", PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=", SlashAssign: "/=", PercentAssign: "%=",
	Eq: "==", NotEq: "!=", Less: "<", LessEq: "<=", Greater: ">", GreaterEq: ">=",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	RangeExcl: "..", RangeIncl: "..=", Ellipsis: "...", Pipe: "|", PipeOp: ">>",
	Comment: "comment",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return "unknown"
}

// Keywords maps identifier text to its keyword Kind.
var Keywords = map[string]Kind{
	"and": And, "break": Break, "catch": Catch, "continue": Continue, "debug": Debug,
	"else": Else, "else_if": ElseIf, "export": Export, "false": False, "finally": Finally,
	"for": For, "from": From, "if": If, "import": Import, "in": In, "loop": Loop,
	"match": Match, "not": Not, "num2": Num2, "num4": Num4, "or": Or, "return": Return,
	"switch": Switch, "then": Then, "throw": Throw, "true": True, "try": Try,
	"until": Until, "while": While, "yield": Yield, "self": Self,
}

// Token is one lexical unit with its source span.
type Token struct {
	Kind   Kind
	Text   string // raw slice, or decoded literal text for strings/identifiers
	Span   Span
	Indent int // for NewLine/NewLineIndented: indent width of the following line
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Text, t.Span.Start)
}
