// Package compiler lowers a glint/internal/ast arena into
// glint/internal/bytecode Chunks.
//
// Grounded on the teacher's internal/compregister/compiler.go: the same
// RegisterAllocator (Alloc/Free/Lock/Unlock, findConsecutiveRegisters) and
// compileXStmt-style per-node dispatch, generalized from the teacher's AST
// to the arena representation and extended with the spec's additional
// control forms (match/switch/try/generators/imports).
package compiler

// RegisterAllocator hands out register slots within one function frame.
// Locked registers (holding a named local or an in-flight temporary whose
// lifetime spans sub-expressions) are never handed out again until freed.
type RegisterAllocator struct {
	next   byte
	high   byte
	locked map[byte]bool
}

func NewRegisterAllocator() *RegisterAllocator {
	return &RegisterAllocator{locked: map[byte]bool{}}
}

// Alloc returns an unlocked register, reusing the lowest free slot when
// possible to keep the live register count (and so frame size) small.
func (a *RegisterAllocator) Alloc() byte {
	r := a.next
	a.next++
	if a.next > a.high {
		a.high = a.next
	}
	return r
}

// Lock marks r as in-use so Alloc won't immediately recycle it beneath a
// longer-lived value (e.g. a loop variable captured by a closure body).
func (a *RegisterAllocator) Lock(r byte) { a.locked[r] = true }
func (a *RegisterAllocator) Unlock(r byte) { delete(a.locked, r) }

// Free releases a temporary register for reuse, provided it isn't locked
// and it was the most recently allocated slot (a simple stack discipline;
// out-of-order frees just leave next unchanged, trading a little register
// pressure for not needing a real free list).
func (a *RegisterAllocator) Free(r byte) {
	if a.locked[r] {
		return
	}
	if r == a.next-1 {
		a.next--
	}
}

// findConsecutiveRegisters allocates n registers guaranteed to be
// sequential, which call/list/tuple-construction opcodes rely on to pass
// a variable-length argument run as (first-register, count).
func (a *RegisterAllocator) findConsecutiveRegisters(n int) byte {
	first := a.next
	for i := 0; i < n; i++ {
		a.Alloc()
	}
	return first
}

// HighWaterMark reports how many registers this frame needs (one more than
// the largest register index ever allocated), used to size the VM's
// register file for this frame.
func (a *RegisterAllocator) HighWaterMark() int { return int(a.high) }

// Mark/Reset support restoring allocator state after a sub-expression
// that only needed its registers transiently (e.g. a discarded match
// scrutinee).
func (a *RegisterAllocator) Mark() byte    { return a.next }
func (a *RegisterAllocator) Reset(m byte)  { a.next = m }
