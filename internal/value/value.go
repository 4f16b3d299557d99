// Package value implements glint's runtime value representation.
//
// Grounded on the API surface of the teacher's internal/vmregister/value.go
// (IsString/AsString/ValuesEqual/ToString-style helpers) but NOT its
// NaN-boxed uint64 representation: see DESIGN.md's "Value representation"
// entry for why a tagged struct replaces the teacher's unsafe.Pointer
// boxing here.
package value

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindRange
	KindNum2
	KindNum4
	KindList
	KindTuple
	KindMap
	KindFunction
	KindExternalFunction
	KindIterator
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindRange:
		return "Range"
	case KindNum2:
		return "Num2"
	case KindNum4:
		return "Num4"
	case KindList:
		return "List"
	case KindTuple:
		return "Tuple"
	case KindMap:
		return "Map"
	case KindFunction:
		return "Function"
	case KindExternalFunction:
		return "ExternalFunction"
	case KindIterator:
		return "Iterator"
	}
	return "Unknown"
}

// Value is glint's tagged runtime value. Scalar kinds (Nil/Bool/Int/
// Float) are stored inline; heap kinds hold a pointer in Obj.
type Value struct {
	kind  Kind
	num   uint64 // Int/Float bit pattern, Bool as 0/1
	Obj   interface{}
}

var Nil = Value{kind: KindNil}

func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

func Int(i int64) Value     { return Value{kind: KindInt, num: uint64(i)} }
func Float(f float64) Value { return Value{kind: KindFloat, num: math.Float64bits(f)} }

func Str(s *Str_) Value { return Value{kind: KindString, Obj: s} }

func NewString(s string) Value { return Str(NewStr(s)) }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNil() bool   { return v.kind == KindNil }
func (v Value) IsBool() bool  { return v.kind == KindBool }
func (v Value) IsInt() bool   { return v.kind == KindInt }
func (v Value) IsFloat() bool { return v.kind == KindFloat }
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsTruthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.num != 0
	default:
		return true
	}
}

func (v Value) AsBool() bool    { return v.num != 0 }
func (v Value) AsInt() int64    { return int64(v.num) }
func (v Value) AsFloat() float64 { return math.Float64frombits(v.num) }

// AsFloat64 promotes an Int or Float value to float64, per spec §3.2's
// numeric-tower promotion rule used by mixed-type arithmetic.
func (v Value) AsFloat64() float64 {
	if v.kind == KindInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

func (v Value) AsString() *Str_ { return v.Obj.(*Str_) }

func (v Value) AsList() *List       { return v.Obj.(*List) }
func (v Value) AsTuple() *Tuple     { return v.Obj.(*Tuple) }
func (v Value) AsMap() *Map         { return v.Obj.(*Map) }
func (v Value) AsRange() *Range     { return v.Obj.(*Range) }
func (v Value) AsFunction() *Function { return v.Obj.(*Function) }
func (v Value) AsExternalFunction() *ExternalFunction { return v.Obj.(*ExternalFunction) }
func (v Value) AsIterator() Iterator { return v.Obj.(Iterator) }
func (v Value) AsNum2() Num2         { return v.Obj.(Num2) }
func (v Value) AsNum4() Num4         { return v.Obj.(Num4) }

func List_(l *List) Value     { return Value{kind: KindList, Obj: l} }
func Tuple_(t *Tuple) Value   { return Value{kind: KindTuple, Obj: t} }
func Map_(m *Map) Value       { return Value{kind: KindMap, Obj: m} }
func RangeVal(r *Range) Value { return Value{kind: KindRange, Obj: r} }
func FunctionVal(f *Function) Value { return Value{kind: KindFunction, Obj: f} }
func ExternalFunctionVal(f *ExternalFunction) Value {
	return Value{kind: KindExternalFunction, Obj: f}
}
func IteratorVal(it Iterator) Value { return Value{kind: KindIterator, Obj: it} }
func Num2Val(n Num2) Value          { return Value{kind: KindNum2, Obj: n} }
func Num4Val(n Num4) Value          { return Value{kind: KindNum4, Obj: n} }

// ToDisplayString renders a value the way `debug`/string-interpolation
// does: respecting a @display meta entry on Map values before falling
// back to a structural rendering (spec §3.6).
func ToDisplayString(v Value) string {
	switch v.kind {
	case KindNil:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.AsBool())
	case KindInt:
		return fmt.Sprintf("%d", v.AsInt())
	case KindFloat:
		return formatFloat(v.AsFloat())
	case KindString:
		return v.AsString().String()
	case KindRange:
		return v.AsRange().String()
	case KindList:
		return displayContainer("[", "]", v.AsList().Items())
	case KindTuple:
		return displayContainer("(", ")", v.AsTuple().Items())
	case KindMap:
		return displayMap(v.AsMap())
	case KindFunction:
		return "||function"
	case KindExternalFunction:
		return "||external function"
	case KindIterator:
		return "Iterator"
	case KindNum2:
		return v.AsNum2().String()
	case KindNum4:
		return v.AsNum4().String()
	}
	return "?"
}

func formatFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func displayContainer(open, close string, items []Value) string {
	var sb strings.Builder
	sb.WriteString(open)
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		if it.Kind() == KindString {
			fmt.Fprintf(&sb, "%q", it.AsString().String())
		} else {
			sb.WriteString(ToDisplayString(it))
		}
	}
	sb.WriteString(close)
	return sb.String()
}

// displayMap renders a map in key-sorted order so repeated calls over the
// same data always produce the same text. A String key renders
// bare (field-style, `foo: 1`); any other ValueKey renders bracketed
// (`[1]: "a"`) so it can't be confused with a same-looking String key.
func displayMap(m *Map) string {
	keys := m.Keys()
	sort.Slice(keys, func(i, j int) bool { return ToDisplayString(keys[i]) < ToDisplayString(keys[j]) })
	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		v, _ := m.GetValue(k)
		if k.Kind() == KindString {
			fmt.Fprintf(&sb, "%s: %s", k.AsString().String(), ToDisplayString(v))
		} else {
			fmt.Fprintf(&sb, "[%s]: %s", ToDisplayString(k), ToDisplayString(v))
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// Equal implements value equality, dispatching to a Map's @== meta entry
// when present before falling back to structural comparison (spec §3.6).
func Equal(a, b Value, metaEq func(a, b Value) (Value, bool)) bool {
	if a.kind == KindMap && metaEq != nil {
		if result, ok := metaEq(a, b); ok {
			return result.IsTruthy()
		}
	}
	if a.kind != b.kind {
		if a.IsNumber() && b.IsNumber() {
			return a.AsFloat64() == b.AsFloat64()
		}
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindInt:
		return a.AsInt() == b.AsInt()
	case KindFloat:
		return a.AsFloat() == b.AsFloat()
	case KindString:
		return a.AsString().String() == b.AsString().String()
	case KindList:
		return equalSlice(a.AsList().Items(), b.AsList().Items(), metaEq)
	case KindTuple:
		return equalSlice(a.AsTuple().Items(), b.AsTuple().Items(), metaEq)
	case KindRange:
		return a.AsRange() == b.AsRange() || *a.AsRange() == *b.AsRange()
	case KindMap:
		return equalMap(a.AsMap(), b.AsMap(), metaEq)
	}
	return a.Obj == b.Obj
}

// equalMap compares two maps structurally over their data entries (spec
// §4.4.2): same key set, and every key's value equal, regardless of
// insertion order. The meta-map itself is never compared.
func equalMap(a, b *Map, metaEq func(a, b Value) (Value, bool)) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.Keys() {
		av, _ := a.GetValue(k)
		bv, ok := b.GetValue(k)
		if !ok || !Equal(av, bv, metaEq) {
			return false
		}
	}
	return true
}

func equalSlice(a, b []Value, metaEq func(a, b Value) (Value, bool)) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i], metaEq) {
			return false
		}
	}
	return true
}
