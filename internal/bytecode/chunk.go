package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/glint-lang/glint/internal/token"
)

// ConstWidth is the operand width chosen for constant-pool indices in one
// Chunk, selected once the final pool size is known so small chunks don't
// pay a 24-bit tax on every load (spec §4.3.2).
type ConstWidth uint8

const (
	Width8 ConstWidth = iota
	Width16
	Width24
)

func WidthFor(n int) ConstWidth {
	switch {
	case n <= 0xFF:
		return Width8
	case n <= 0xFFFF:
		return Width16
	default:
		return Width24
	}
}

// DebugEntry maps a byte offset in Code to the source span that produced
// the instruction starting there, for runtime error reporting.
type DebugEntry struct {
	Offset int
	Span   token.Span
}

// FunctionProto describes one compiled function: its own Chunk plus the
// argument count/flags the VM needs to set up a call frame.
type FunctionProto struct {
	Chunk      *Chunk
	ArgCount   int
	Variadic   bool
	Generator  bool
	Instance   bool
	RegisterCount int
	Name       string

	// CaptureNames lists, in order, the enclosing-scope locals this
	// closure snapshots at construction time (spec §3.4's capture-at-
	// closure-construction semantics). OpFunction supplies one source
	// register per name, read from the defining frame.
	CaptureNames []string
}

// Chunk is one compiled unit's constant pool, code stream, and debug
// table. Top-level module code and every function body get their own
// Chunk; FunctionProto values reference nested Chunks via the constant
// pool's Functions slice.
type Chunk struct {
	ConstWidth ConstWidth
	Ints       []int64
	Floats     []float64
	Strings    []string
	Functions  []*FunctionProto

	Code  []byte
	Debug []DebugEntry

	SourcePath string
}

func NewChunk(path string) *Chunk {
	return &Chunk{SourcePath: path}
}

// Writer appends encoded instructions to a Chunk's Code stream.
type Writer struct {
	Chunk *Chunk
}

func NewWriter(c *Chunk) *Writer { return &Writer{Chunk: c} }

func (w *Writer) Offset() int { return len(w.Chunk.Code) }

func (w *Writer) mark(sp token.Span) {
	w.Chunk.Debug = append(w.Chunk.Debug, DebugEntry{Offset: w.Offset(), Span: sp})
}

func (w *Writer) emitByte(b byte) { w.Chunk.Code = append(w.Chunk.Code, b) }

func (w *Writer) emitConstIndex(idx uint32) {
	switch w.Chunk.ConstWidth {
	case Width8:
		w.emitByte(byte(idx))
	case Width16:
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(idx))
		w.Chunk.Code = append(w.Chunk.Code, buf[:]...)
	default:
		w.emitByte(byte(idx))
		w.emitByte(byte(idx >> 8))
		w.emitByte(byte(idx >> 16))
	}
}

func (w *Writer) emitI16(v int16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(v))
	w.Chunk.Code = append(w.Chunk.Code, buf[:]...)
}

// Emit writes a single-byte-operand instruction (register/flag operands
// are one byte each, so an operand can name at most 256 registers; the
// compiler's allocator does not check that limit).
func (w *Writer) Emit(op OpCode, sp token.Span, operands ...byte) {
	w.mark(sp)
	w.emitByte(byte(op))
	w.Chunk.Code = append(w.Chunk.Code, operands...)
}

// EmitConst writes an instruction whose last operand is a constant-pool
// index at the chunk's configured width.
func (w *Writer) EmitConst(op OpCode, sp token.Span, dst byte, idx uint32) {
	w.mark(sp)
	w.emitByte(byte(op))
	w.emitByte(dst)
	w.emitConstIndex(idx)
}

// EmitConstThenByte writes an instruction whose operand order is a
// constant-pool index followed by a single register byte (OpExport's
// name-index, value-register shape).
func (w *Writer) EmitConstThenByte(op OpCode, sp token.Span, idx uint32, b byte) {
	w.mark(sp)
	w.emitByte(byte(op))
	w.emitConstIndex(idx)
	w.emitByte(b)
}

// EmitJump writes a jump instruction with a placeholder offset and
// returns the code offset of the 2-byte operand, for later patching.
func (w *Writer) EmitJump(op OpCode, sp token.Span, operands ...byte) int {
	w.mark(sp)
	w.emitByte(byte(op))
	w.Chunk.Code = append(w.Chunk.Code, operands...)
	patchAt := w.Offset()
	w.emitI16(0)
	return patchAt
}

// PatchJump overwrites the placeholder at patchAt with the relative
// offset from just after the 2-byte operand to the current write head.
func (w *Writer) PatchJump(patchAt int) {
	offset := int16(w.Offset() - (patchAt + 2))
	binary.LittleEndian.PutUint16(w.Chunk.Code[patchAt:patchAt+2], uint16(offset))
}

// PatchJumpBack overwrites the placeholder at patchAt with the (negative)
// relative offset back to target, for loop back-edges emitted with
// OpJumpBack.
func (w *Writer) PatchJumpBack(patchAt int, target int) {
	offset := int16(target - (patchAt + 2))
	binary.LittleEndian.PutUint16(w.Chunk.Code[patchAt:patchAt+2], uint16(offset))
}

// Reader decodes instructions from a Chunk's Code stream.
type Reader struct {
	Chunk *Chunk
	Pos   int
}

func NewReader(c *Chunk) *Reader { return &Reader{Chunk: c} }

func (r *Reader) AtEnd() bool { return r.Pos >= len(r.Chunk.Code) }

func (r *Reader) ReadOp() OpCode {
	op := OpCode(r.Chunk.Code[r.Pos])
	r.Pos++
	return op
}

func (r *Reader) ReadByte() byte {
	b := r.Chunk.Code[r.Pos]
	r.Pos++
	return b
}

func (r *Reader) ReadConstIndex() uint32 {
	switch r.Chunk.ConstWidth {
	case Width8:
		return uint32(r.ReadByte())
	case Width16:
		v := binary.LittleEndian.Uint16(r.Chunk.Code[r.Pos : r.Pos+2])
		r.Pos += 2
		return uint32(v)
	default:
		b0 := uint32(r.ReadByte())
		b1 := uint32(r.ReadByte())
		b2 := uint32(r.ReadByte())
		return b0 | b1<<8 | b2<<16
	}
}

func (r *Reader) ReadI16() int16 {
	v := int16(binary.LittleEndian.Uint16(r.Chunk.Code[r.Pos : r.Pos+2]))
	r.Pos += 2
	return v
}

// Jump moves the read cursor by a relative offset captured at the given
// base (the position just after the 2-byte operand).
func (r *Reader) Jump(base int, offset int16) { r.Pos = base + int(offset) }

// SpanAt finds the debug span for the instruction at or most recently
// before offset (runtime errors report the enclosing instruction's span).
func (c *Chunk) SpanAt(offset int) token.Span {
	var found token.Span
	for _, e := range c.Debug {
		if e.Offset > offset {
			break
		}
		found = e.Span
	}
	return found
}

func (c *Chunk) String() string {
	return fmt.Sprintf("Chunk(%s, %d bytes, %d ints, %d floats, %d strings, %d fns)",
		c.SourcePath, len(c.Code), len(c.Ints), len(c.Floats), len(c.Strings), len(c.Functions))
}
