package types

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the interface for all type representations in the checker.
//
// Canonical returns the normalized spelling used as a cache and identity
// key: structurally equal types canonicalize identically, and two types are
// treated as the same type exactly when their canonical keys are equal.
type Type interface {
	String() string
	Canonical() string
}

// Nominal is a reference to a named nominal declaration, optionally
// specialized with type arguments and optionally nested inside an enclosing
// type instance. Args is empty for an unspecialized reference.
type Nominal struct {
	Name   string
	Args   []Type
	Parent Type
}

func (n Nominal) String() string {
	var sb strings.Builder
	if n.Parent != nil {
		sb.WriteString(n.Parent.String())
		sb.WriteString(".")
	}
	sb.WriteString(n.Name)
	if len(n.Args) > 0 {
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = a.String()
		}
		sb.WriteString("<" + strings.Join(parts, ", ") + ">")
	}
	return sb.String()
}

func (n Nominal) Canonical() string {
	var sb strings.Builder
	if n.Parent != nil {
		sb.WriteString(n.Parent.Canonical())
		sb.WriteString(".")
	}
	sb.WriteString(n.Name)
	if len(n.Args) > 0 {
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = a.Canonical()
		}
		sb.WriteString("<" + strings.Join(parts, ", ") + ">")
	}
	return sb.String()
}

var archetypeID int

// Archetype is an abstract placeholder standing for "the type that will
// satisfy this generic parameter or associated-type requirement". Archetypes
// compare by identity; each carries the names of the protocols its eventual
// replacement must conform to.
type Archetype struct {
	Name     string
	Requires []string
	id       int
}

// NewArchetype creates a fresh archetype. Requires lists the protocols the
// replacement type must satisfy, in declaration order.
func NewArchetype(name string, requires ...string) *Archetype {
	archetypeID++
	return &Archetype{Name: name, Requires: requires, id: archetypeID}
}

func (a *Archetype) String() string { return a.Name }

func (a *Archetype) Canonical() string {
	// Distinct archetypes with the same spelling must not collide as keys.
	return fmt.Sprintf("%s#%d", a.Name, a.id)
}

// Existential is the type "some value conforming to these protocols",
// without naming the concrete conformer.
type Existential struct {
	Protocols []string
}

func (e Existential) String() string {
	return "any " + strings.Join(e.Protocols, " & ")
}

func (e Existential) Canonical() string {
	sorted := append([]string(nil), e.Protocols...)
	sort.Strings(sorted)
	return "any " + strings.Join(sorted, " & ")
}

// Param is one parameter of a function or subscript type.
type Param struct {
	Label    string
	Type     Type
	Variadic bool
}

func (p Param) format(canonical bool) string {
	var sb strings.Builder
	if p.Label != "" {
		sb.WriteString(p.Label)
		sb.WriteString(": ")
	}
	if canonical {
		sb.WriteString(p.Type.Canonical())
	} else {
		sb.WriteString(p.Type.String())
	}
	if p.Variadic {
		sb.WriteString("...")
	}
	return sb.String()
}

// Func is a function or subscript type.
type Func struct {
	Params []Param
	Result Type
}

func (f Func) String() string    { return f.format(false) }
func (f Func) Canonical() string { return f.format(true) }

func (f Func) format(canonical bool) string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.format(canonical)
	}
	res := f.Result.String()
	if canonical {
		res = f.Result.Canonical()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), res)
}

// Tuple is a fixed-arity aggregate of element types.
type Tuple struct {
	Elems []Type
}

func (t Tuple) String() string    { return t.format(false) }
func (t Tuple) Canonical() string { return t.format(true) }

func (t Tuple) format(canonical bool) string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		if canonical {
			parts[i] = e.Canonical()
		} else {
			parts[i] = e.String()
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Var is a unification variable. Vars appear only inside the constraint
// system while matching a witness; they never escape into records.
type Var struct {
	ID int
}

func (v Var) String() string    { return fmt.Sprintf("$T%d", v.ID) }
func (v Var) Canonical() string { return v.String() }

// Identical reports whether two types are structurally the same type.
func Identical(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Canonical() == b.Canonical()
}

// IsSpecialized reports whether t is a generic instantiation, directly or
// through an enclosing context.
func IsSpecialized(t Type) bool {
	n, ok := t.(Nominal)
	if !ok {
		return false
	}
	if len(n.Args) > 0 {
		// Unspecialized generic references carry their own parameters as
		// arguments; those do not count as specialization.
		for _, a := range n.Args {
			if _, isArch := a.(*Archetype); !isArch {
				return true
			}
		}
	}
	if n.Parent != nil {
		return IsSpecialized(n.Parent)
	}
	return false
}
