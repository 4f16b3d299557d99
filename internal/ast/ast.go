// Package ast holds glint's AST arena and constant pool builder.
//
// Spec §3.3 mandates a flat arena of nodes addressed by 32-bit indices
// with a parallel span array. The teacher (internal/parser/ast.go) uses a
// pointer/visitor-interface AST instead (Binary, Literal, CallExpr,
// IfExpr, ArrayExpr, MapExpr, ...); this package keeps those node *names*
// as the tagged-variant's field groupings but stores them in a slice
// arena rather than as separate Go types, since the spec's representation
// is an explicit requirement the teacher's doesn't meet.
package ast

import "github.com/glint-lang/glint/internal/token"

// NodeIndex addresses a node in an Arena. Zero is never a valid index
// (the arena's slot 0 is a sentinel); NoNode is used for "absent" fields.
type NodeIndex uint32

const NoNode NodeIndex = 0

// Kind tags the variant stored in a Node.
type Kind uint8

const (
	KInvalid Kind = iota

	KBoolLit
	KEmptyLit
	KIntLit
	KFloatLit
	KStringLit // interpolated string: A = first piece index, B = piece count
	KStringPieceLiteral
	KStringPieceExpr

	KIdent
	KWildcard
	KSelf

	KTuple // list of child indices via ExtraList
	KList
	KMapLit // entries via Extra (key/value node pairs)
	KMetaKeyLit // `@op`/`@name` map key; Op=operator token kind, or token.Ident with Const=name pool index

	KRangeExcl // A=start(or NoNode) B=end(or NoNode)
	KRangeIncl

	KBinary  // Op, A=left, B=right
	KUnary   // Op, A=operand
	KLogical // Op (and/or), A=left, B=right

	KLookupRoot // A = root expr; B = first LookupNode index (chain head)
	KLookupID   // .id ; A=Name(Const), Next chain link in Extra
	KLookupIndex
	KLookupCall

	KIf     // A=cond, B=then, C=else(or NoNode)
	KMatch
	KSwitch
	KFor
	KWhile
	KUntil
	KLoop

	KTryCatchFinally
	KThrow
	KImport
	KExport

	KFunction // flags, arg pattern list, body
	KReturn
	KYield
	KBreak
	KContinue

	KAssign     // targets..=value ; compound op
	KDestructure // pattern node for args/for-loops/match

	KBlock // sequence of statements, A/B index into ExtraList
)

// Node is a tagged-union AST node. Only the fields relevant to Kind are
// meaningful; unused fields are zero.
type Node struct {
	Kind  Kind
	Op    token.Kind // operator for Binary/Unary/Logical/Assign
	A, B, C NodeIndex
	Const  uint32 // constant pool index, for literals/identifiers
	Extra  uint32 // index into Arena.extra (variable-length child lists)
	Flags  uint8
}

// Function flags.
const (
	FlagInstanceMethod uint8 = 1 << iota
	FlagVariadic
	FlagGenerator
)

// Arena owns all nodes of one compilation unit plus their spans and any
// variable-length child lists ("extra" data) nodes reference by index.
type Arena struct {
	nodes []Node
	spans []token.Span
	extra [][]NodeIndex
	Pool  *ConstantPool
}

func NewArena() *Arena {
	a := &Arena{Pool: NewConstantPool()}
	a.nodes = append(a.nodes, Node{}) // slot 0 = invalid sentinel
	a.spans = append(a.spans, token.Span{})
	return a
}

// Add appends a node with its span and returns its index.
func (a *Arena) Add(n Node, sp token.Span) NodeIndex {
	idx := NodeIndex(len(a.nodes))
	a.nodes = append(a.nodes, n)
	a.spans = append(a.spans, sp)
	return idx
}

func (a *Arena) Get(i NodeIndex) Node { return a.nodes[i] }

func (a *Arena) Span(i NodeIndex) token.Span { return a.spans[i] }

// AddList stores a slice of child indices and returns an Extra handle.
func (a *Arena) AddList(list []NodeIndex) uint32 {
	idx := uint32(len(a.extra))
	a.extra = append(a.extra, list)
	return idx
}

func (a *Arena) List(extra uint32) []NodeIndex { return a.extra[extra] }

func (a *Arena) Len() int { return len(a.nodes) }
