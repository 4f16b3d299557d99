package value

import "github.com/rivo/uniseg"

// Str_ is glint's immutable string value: a shared byte buffer plus a
// byte-range view, so `str[1..3]` is a zero-copy slice of the same
// backing buffer (spec §3.5 "range-as-index" requirement). Indexing is
// grapheme-cluster aware via rivo/uniseg rather than byte or rune aware,
// since the spec's `size`/indexing operations are defined over displayed
// characters.
type Str_ struct {
	buf        string
	start, end int // byte offsets into buf
}

func NewStr(s string) *Str_ { return &Str_{buf: s, start: 0, end: len(s)} }

func (s *Str_) String() string { return s.buf[s.start:s.end] }

// GraphemeCount returns the number of extended grapheme clusters in the
// view, which is what `.size()` reports per spec §3.5.
func (s *Str_) GraphemeCount() int {
	return uniseg.GraphemeClusterCount(s.String())
}

// graphemeByteOffsets returns the byte offset of the start of each
// grapheme cluster in the view, plus a final sentinel at len.
func (s *Str_) graphemeByteOffsets() []int {
	text := s.String()
	offsets := []int{0}
	gr := uniseg.NewGraphemes(text)
	pos := 0
	for gr.Next() {
		_, to := gr.Positions()
		pos = to
		offsets = append(offsets, pos)
	}
	return offsets
}

// Slice returns a zero-copy view over graphemes [start, end) of this
// string, supporting negative indices counted from the end (spec §9
// supplemented feature) and descending/ascending handled by the caller's
// Range value.
func (s *Str_) Slice(start, end int) (*Str_, bool) {
	offsets := s.graphemeByteOffsets()
	n := len(offsets) - 1
	start = normalizeIndex(start, n)
	end = normalizeIndex(end, n)
	if start < 0 || end < start || end > n {
		return nil, false
	}
	return &Str_{buf: s.buf, start: s.start + offsets[start], end: s.start + offsets[end]}, true
}

// IndexGrapheme returns the single-grapheme view at position i (negative
// counts from the end).
func (s *Str_) IndexGrapheme(i int) (*Str_, bool) {
	offsets := s.graphemeByteOffsets()
	n := len(offsets) - 1
	idx := normalizeIndex(i, n)
	if idx < 0 || idx >= n {
		return nil, false
	}
	return &Str_{buf: s.buf, start: s.start + offsets[idx], end: s.start + offsets[idx+1]}, true
}

// normalizeIndex converts a possibly-negative index (counted from the
// end, per spec §9) into a 0-based forward index; out-of-range values are
// returned unclamped so the caller can detect and report them.
func normalizeIndex(i, n int) int {
	if i < 0 {
		return n + i
	}
	return i
}

func (s *Str_) Concat(other *Str_) *Str_ {
	return NewStr(s.String() + other.String())
}
