package types

import "fmt"

// ConstraintSystem accumulates equality constraints over types that may
// contain free unification variables and open archetypes, then solves them
// all at once. It produces one satisfying assignment or fails; it is never
// asked to enumerate alternatives.
type ConstraintSystem struct {
	nextVar     int
	constraints []constraint
}

type constraint struct {
	left, right Type
}

func NewConstraintSystem() *ConstraintSystem {
	return &ConstraintSystem{}
}

// Fresh allocates a new unification variable.
func (cs *ConstraintSystem) Fresh() Var {
	cs.nextVar++
	return Var{ID: cs.nextVar}
}

// Open replaces each occurrence of the listed archetypes in t with a fresh
// unification variable, returning the opened type together with the
// archetype-to-variable assignment.
func (cs *ConstraintSystem) Open(t Type, archetypes []*Archetype) (Type, map[*Archetype]Var) {
	replacements := make(map[*Archetype]Var, len(archetypes))
	subst := make(Subst, len(archetypes))
	for _, a := range archetypes {
		v := cs.Fresh()
		replacements[a] = v
		subst[a] = v
	}
	return Apply(t, subst), replacements
}

// Equal records the constraint that a and b must be the same type.
func (cs *ConstraintSystem) Equal(a, b Type) {
	cs.constraints = append(cs.constraints, constraint{left: a, right: b})
}

// Solve unifies all recorded constraints. Variables left unconstrained stay
// free in the solution; the caller decides whether that matters.
func (cs *ConstraintSystem) Solve() (Solution, error) {
	bindings := make(map[int]Type)
	for _, c := range cs.constraints {
		if err := unify(c.left, c.right, bindings); err != nil {
			return Solution{}, err
		}
	}
	return Solution{bindings: bindings}, nil
}

// Solution is a satisfying assignment of unification variables to types.
type Solution struct {
	bindings map[int]Type
}

// Simplify substitutes every bound variable in t, transitively. Unbound
// variables are left in place.
func (s Solution) Simplify(t Type) Type {
	if t == nil {
		return nil
	}
	switch typ := t.(type) {
	case Var:
		if bound, ok := s.bindings[typ.ID]; ok {
			return s.Simplify(bound)
		}
		return typ
	case Nominal:
		newArgs := make([]Type, len(typ.Args))
		for i, a := range typ.Args {
			newArgs[i] = s.Simplify(a)
		}
		var newParent Type
		if typ.Parent != nil {
			newParent = s.Simplify(typ.Parent)
		}
		return Nominal{Name: typ.Name, Args: newArgs, Parent: newParent}
	case Func:
		newParams := make([]Param, len(typ.Params))
		for i, p := range typ.Params {
			newParams[i] = Param{Label: p.Label, Type: s.Simplify(p.Type), Variadic: p.Variadic}
		}
		return Func{Params: newParams, Result: s.Simplify(typ.Result)}
	case Tuple:
		newElems := make([]Type, len(typ.Elems))
		for i, e := range typ.Elems {
			newElems[i] = s.Simplify(e)
		}
		return Tuple{Elems: newElems}
	default:
		return t
	}
}

// chase follows variable bindings until it reaches a non-variable type or
// an unbound variable. Bindings are acyclic thanks to the occurs check.
func chase(t Type, bindings map[int]Type) Type {
	for {
		v, ok := t.(Var)
		if !ok {
			return t
		}
		bound, ok := bindings[v.ID]
		if !ok {
			return t
		}
		t = bound
	}
}

func unify(a, b Type, bindings map[int]Type) error {
	a = chase(a, bindings)
	b = chase(b, bindings)

	if av, ok := a.(Var); ok {
		return bind(av, b, bindings)
	}
	if bv, ok := b.(Var); ok {
		return bind(bv, a, bindings)
	}

	switch at := a.(type) {
	case *Archetype:
		// Archetypes that were not opened are rigid: only identical to
		// themselves.
		if bt, ok := b.(*Archetype); ok && at == bt {
			return nil
		}
		return errUnify(a, b)
	case Nominal:
		bt, ok := b.(Nominal)
		if !ok {
			return errUnify(a, b)
		}
		if at.Name != bt.Name {
			return errUnifyMsg(a, b, "nominal type mismatch")
		}
		if len(at.Args) != len(bt.Args) {
			return errUnifyMsg(a, b, fmt.Sprintf("type arguments length mismatch: %d vs %d", len(at.Args), len(bt.Args)))
		}
		if (at.Parent == nil) != (bt.Parent == nil) {
			return errUnifyMsg(a, b, "enclosing context mismatch")
		}
		if at.Parent != nil {
			if err := unify(at.Parent, bt.Parent, bindings); err != nil {
				return err
			}
		}
		for i := range at.Args {
			if err := unify(at.Args[i], bt.Args[i], bindings); err != nil {
				return err
			}
		}
		return nil
	case Existential:
		bt, ok := b.(Existential)
		if !ok || at.Canonical() != bt.Canonical() {
			return errUnify(a, b)
		}
		return nil
	case Func:
		bt, ok := b.(Func)
		if !ok {
			return errUnify(a, b)
		}
		if len(at.Params) != len(bt.Params) {
			return errUnifyMsg(a, b, fmt.Sprintf("parameter count mismatch: %d vs %d", len(at.Params), len(bt.Params)))
		}
		for i := range at.Params {
			if at.Params[i].Variadic != bt.Params[i].Variadic {
				return errUnifyMsg(a, b, "variadic parameter mismatch")
			}
			// Argument labels are checked by the caller, which needs to
			// distinguish renames from type errors.
			if err := unify(at.Params[i].Type, bt.Params[i].Type, bindings); err != nil {
				return err
			}
		}
		return unify(at.Result, bt.Result, bindings)
	case Tuple:
		bt, ok := b.(Tuple)
		if !ok {
			return errUnify(a, b)
		}
		if len(at.Elems) != len(bt.Elems) {
			return errUnifyMsg(a, b, fmt.Sprintf("tuple length mismatch: %d vs %d", len(at.Elems), len(bt.Elems)))
		}
		for i := range at.Elems {
			if err := unify(at.Elems[i], bt.Elems[i], bindings); err != nil {
				return err
			}
		}
		return nil
	default:
		return errUnifyMsg(a, b, fmt.Sprintf("unknown type kind %T", a))
	}
}

// bind records v := t, rejecting infinite types via the occurs check.
func bind(v Var, t Type, bindings map[int]Type) error {
	if tv, ok := t.(Var); ok && tv.ID == v.ID {
		return nil
	}
	if occurs(v, t, bindings) {
		return fmt.Errorf("infinite type detected: %s in %s", v, t)
	}
	bindings[v.ID] = t
	return nil
}

func occurs(v Var, t Type, bindings map[int]Type) bool {
	found := false
	Walk(t, func(inner Type) bool {
		iv, ok := inner.(Var)
		if !ok {
			return true
		}
		if iv.ID == v.ID {
			found = true
			return false
		}
		if bound, ok := bindings[iv.ID]; ok && occurs(v, bound, bindings) {
			found = true
			return false
		}
		return true
	})
	return found
}

func errUnify(a, b Type) error {
	return fmt.Errorf("cannot unify %s with %s", a, b)
}

func errUnifyMsg(a, b Type, msg string) error {
	return fmt.Errorf("%s: %s vs %s", msg, a, b)
}
