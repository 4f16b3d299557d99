// Package bytecode defines glint's instruction set and the variable-length
// encoding of a compiled Chunk.
//
// Grounded on the opcode-table idiom in the teacher's register-based
// compiler (internal/vmregister/bytecode.go: OpCode uint8, an opNames
// lookup table, banner-commented opcode groups). The encoding itself is a
// rewrite: the teacher packs every instruction into a fixed 32-bit
// iABC/iABx word, whereas spec §4.3.2 requires a variable-length byte
// stream with an 8/16/24-bit constant-index width chosen per chunk.
package bytecode

// OpCode identifies one VM instruction. Values are assigned densely by
// iota; nothing depends on numeric stability since chunks are never
// persisted across builds (spec §9 open question).
type OpCode uint8

const (
	OpNop OpCode = iota

	// Loads
	OpLoadNil
	OpLoadTrue
	OpLoadFalse
	OpLoadInt   // dst, const-idx (width selected by chunk)
	OpLoadFloat // dst, const-idx
	OpLoadString
	OpLoadNonLocal // dst, name const-idx: read a captured/free variable
	OpMove         // dst, src

	// Containers
	OpMakeList  // dst, first-register, count: collects `count` consecutive registers starting at first-register
	OpMakeTuple
	OpMakeMap
	OpMakeRange     // dst, start, end, inclusive flag byte
	OpMakeNum2
	OpMakeNum4
	OpMakeIterator // dst, src: wrap src as an Iterator value

	// Lookup
	OpGetIndex  // dst, container, index
	OpSetIndex  // container, index, value
	OpGetField  // dst, name const-idx, container
	OpSetField  // container, name const-idx, value
	OpGetMeta   // dst, container, meta-key byte (spec §3.6 MetaKey)
	OpSetMeta   // container, meta-key byte, value: binds a map literal's `@op` entry

	// Arithmetic / comparison (operand-type dispatch happens in the VM)
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpNot
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual

	// Control flow
	OpJump        // offset (signed, relative to instruction after this one)
	OpJumpIfFalse // src, offset
	OpJumpIfTrue  // src, offset
	OpJumpBack    // offset, for loop back-edges

	// Calls
	OpFunction // dst, const-idx of a FunctionProto, capture-count byte, then one register byte per capture
	OpCall     // dst, callee, first-arg-register, arg-count
	OpReturn   // src (always present; a bare `return` loads nil into src first)
	OpYield    // src: suspend the current generator frame

	// Iteration
	OpIterNext      // dst, iterator, done-flag-reg: advance; done-flag distinguishes exhaustion from a falsy produced value
	OpIterNextTemp  // dst, iterator, done-flag-reg: like IterNext but the produced value isn't retained past one use
	OpIterNextQuiet // iterator, done-flag-reg: advance without producing a value (for `for` loops that discard)

	// Errors
	OpTryStart // catch-register, catch-target offset
	OpTryEnd
	OpThrow  // src
	OpFinallyStart
	OpFinallyEnd

	// Modules
	OpImport // dst, name const-idx
	OpExport // name const-idx, src

	// Misc
	OpDebug    // src: the `debug` expression form
	OpCopy     // dst, src: shallow copy
	OpDeepCopy // dst, src: deep copy with cycle detection
	OpToString // dst, src: ToDisplayString, for interpolated-string pieces
)

var opNames = map[OpCode]string{
	OpNop: "Nop",
	OpLoadNil: "LoadNil", OpLoadTrue: "LoadTrue", OpLoadFalse: "LoadFalse",
	OpLoadInt: "LoadInt", OpLoadFloat: "LoadFloat", OpLoadString: "LoadString",
	OpLoadNonLocal: "LoadNonLocal", OpMove: "Move",
	OpMakeList: "MakeList", OpMakeTuple: "MakeTuple", OpMakeMap: "MakeMap",
	OpMakeRange: "MakeRange", OpMakeNum2: "MakeNum2", OpMakeNum4: "MakeNum4",
	OpMakeIterator: "MakeIterator",
	OpGetIndex: "GetIndex", OpSetIndex: "SetIndex", OpGetField: "GetField", OpSetField: "SetField",
	OpGetMeta: "GetMeta", OpSetMeta: "SetMeta",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod", OpNeg: "Neg", OpNot: "Not",
	OpEqual: "Equal", OpNotEqual: "NotEqual", OpLess: "Less", OpLessEqual: "LessEqual",
	OpGreater: "Greater", OpGreaterEqual: "GreaterEqual",
	OpJump: "Jump", OpJumpIfFalse: "JumpIfFalse", OpJumpIfTrue: "JumpIfTrue", OpJumpBack: "JumpBack",
	OpFunction: "Function", OpCall: "Call", OpReturn: "Return", OpYield: "Yield",
	OpIterNext: "IterNext", OpIterNextTemp: "IterNextTemp", OpIterNextQuiet: "IterNextQuiet",
	OpTryStart: "TryStart", OpTryEnd: "TryEnd", OpThrow: "Throw",
	OpFinallyStart: "FinallyStart", OpFinallyEnd: "FinallyEnd",
	OpImport: "Import", OpExport: "Export",
	OpDebug: "Debug", OpCopy: "Copy", OpDeepCopy: "DeepCopy", OpToString: "ToString",
}

func (op OpCode) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return "Unknown"
}

// MetaKey is the closed set of operator-overload identifiers a Map value's
// meta-map can define (spec §3.6): @+, @-, @==, @display, etc.
type MetaKey uint8

const (
	MetaAdd MetaKey = iota
	MetaSubtract
	MetaMultiply
	MetaDivide
	MetaModulo
	MetaEqual
	MetaLess
	MetaLessOrEqual
	MetaGreater
	MetaGreaterOrEqual
	MetaIndex
	MetaIndexMut
	MetaIterator
	MetaDisplay
	MetaNegate
	MetaCall
)

var metaKeyNames = map[MetaKey]string{
	MetaAdd: "@+", MetaSubtract: "@-", MetaMultiply: "@*", MetaDivide: "@/", MetaModulo: "@%",
	MetaEqual: "@==", MetaLess: "@<", MetaLessOrEqual: "@<=", MetaGreater: "@>", MetaGreaterOrEqual: "@>=",
	MetaIndex: "@index", MetaIndexMut: "@index_mut", MetaIterator: "@iterator",
	MetaDisplay: "@display", MetaNegate: "@negate", MetaCall: "@call",
}

func (k MetaKey) String() string {
	if n, ok := metaKeyNames[k]; ok {
		return n
	}
	return "@unknown"
}
