package value

// Copy performs a shallow copy: containers get a new outer structure but
// share their element values, matching Koto-family `copy()` semantics
// (spec §9 supplemented feature).
func Copy(v Value) Value {
	switch v.kind {
	case KindList:
		return List_(v.AsList().Copy())
	case KindMap:
		return Map_(v.AsMap().Copy())
	case KindTuple:
		// tuples are already shallow-immutable; copying is a no-op.
		return v
	default:
		return v
	}
}

// DeepCopy recursively copies containers, guarding against reference
// cycles with a visited set keyed by the original Obj pointer identity
// (spec §3.5/§9: a cyclic List/Map must deep_copy without looping
// forever, producing an isomorphic cyclic structure rather than erroring).
func DeepCopy(v Value) Value {
	return deepCopy(v, map[interface{}]Value{})
}

func deepCopy(v Value, seen map[interface{}]Value) Value {
	switch v.kind {
	case KindList:
		orig := v.AsList()
		if existing, ok := seen[orig]; ok {
			return existing
		}
		out := NewList(nil)
		result := List_(out)
		seen[orig] = result
		items := orig.Items()
		copied := make([]Value, len(items))
		for i, it := range items {
			copied[i] = deepCopy(it, seen)
		}
		*out = *NewList(copied)
		return result
	case KindMap:
		orig := v.AsMap()
		if existing, ok := seen[orig]; ok {
			return existing
		}
		out := NewMap()
		result := Map_(out)
		seen[orig] = result
		for _, k := range orig.Keys() {
			val, _ := orig.GetValue(k)
			out.SetValue(k, deepCopy(val, seen))
		}
		return result
	case KindTuple:
		orig := v.AsTuple()
		items := orig.Items()
		copied := make([]Value, len(items))
		for i, it := range items {
			copied[i] = deepCopy(it, seen)
		}
		return Tuple_(NewTuple(copied))
	default:
		return v
	}
}
