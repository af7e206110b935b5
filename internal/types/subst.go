package types

// Subst maps archetypes to their replacement types.
type Subst map[*Archetype]Type

// Apply substitutes archetypes throughout t. Archetypes missing from the
// substitution are left in place, so partially-resolved requirement types
// can be substituted incrementally.
func Apply(t Type, s Subst) Type {
	if t == nil || len(s) == 0 {
		return t
	}
	switch typ := t.(type) {
	case *Archetype:
		if replacement, ok := s[typ]; ok {
			return replacement
		}
		return typ
	case Nominal:
		newArgs := make([]Type, len(typ.Args))
		for i, a := range typ.Args {
			newArgs[i] = Apply(a, s)
		}
		var newParent Type
		if typ.Parent != nil {
			newParent = Apply(typ.Parent, s)
		}
		return Nominal{Name: typ.Name, Args: newArgs, Parent: newParent}
	case Func:
		newParams := make([]Param, len(typ.Params))
		for i, p := range typ.Params {
			newParams[i] = Param{Label: p.Label, Type: Apply(p.Type, s), Variadic: p.Variadic}
		}
		return Func{Params: newParams, Result: Apply(typ.Result, s)}
	case Tuple:
		newElems := make([]Type, len(typ.Elems))
		for i, e := range typ.Elems {
			newElems[i] = Apply(e, s)
		}
		return Tuple{Elems: newElems}
	default:
		// Existential and Var contain no archetypes.
		return t
	}
}

// Walk visits t and every type it contains, pre-order. The walk stops early
// when visit returns false; Walk reports whether the walk ran to completion.
func Walk(t Type, visit func(Type) bool) bool {
	if t == nil {
		return true
	}
	if !visit(t) {
		return false
	}
	switch typ := t.(type) {
	case Nominal:
		for _, a := range typ.Args {
			if !Walk(a, visit) {
				return false
			}
		}
		if typ.Parent != nil {
			return Walk(typ.Parent, visit)
		}
	case Func:
		for _, p := range typ.Params {
			if !Walk(p.Type, visit) {
				return false
			}
		}
		return Walk(typ.Result, visit)
	case Tuple:
		for _, e := range typ.Elems {
			if !Walk(e, visit) {
				return false
			}
		}
	}
	return true
}

// ContainsArchetype reports whether target occurs anywhere in t.
func ContainsArchetype(t Type, target *Archetype) bool {
	found := false
	Walk(t, func(inner Type) bool {
		if a, ok := inner.(*Archetype); ok && a == target {
			found = true
			return false
		}
		return true
	})
	return found
}

// Archetypes returns every distinct archetype occurring in t, in first
// occurrence order.
func Archetypes(t Type) []*Archetype {
	var out []*Archetype
	seen := make(map[*Archetype]bool)
	Walk(t, func(inner Type) bool {
		if a, ok := inner.(*Archetype); ok && !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
		return true
	})
	return out
}

// HasFreeVariables reports whether t still mentions a unification variable.
func HasFreeVariables(t Type) bool {
	free := false
	Walk(t, func(inner Type) bool {
		if _, ok := inner.(Var); ok {
			free = true
			return false
		}
		return true
	})
	return free
}
