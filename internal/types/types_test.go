package types

import (
	"testing"
)

func intType() Nominal  { return Nominal{Name: "Int"} }
func boolType() Nominal { return Nominal{Name: "Bool"} }

func TestCanonicalNominal(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want string
	}{
		{
			name: "plain",
			typ:  intType(),
			want: "Int",
		},
		{
			name: "specialized",
			typ:  Nominal{Name: "Box", Args: []Type{intType()}},
			want: "Box<Int>",
		},
		{
			name: "nested",
			typ:  Nominal{Name: "Inner", Parent: Nominal{Name: "Outer", Args: []Type{boolType()}}},
			want: "Outer<Bool>.Inner",
		},
		{
			name: "tuple",
			typ:  Tuple{Elems: []Type{intType(), boolType()}},
			want: "(Int, Bool)",
		},
		{
			name: "function",
			typ:  Func{Params: []Param{{Label: "at", Type: intType()}, {Type: boolType(), Variadic: true}}, Result: intType()},
			want: "(at: Int, Bool...) -> Int",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Canonical(); got != tt.want {
				t.Errorf("Canonical() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalExistentialSortsProtocols(t *testing.T) {
	a := Existential{Protocols: []string{"B", "A"}}
	b := Existential{Protocols: []string{"A", "B"}}
	if a.Canonical() != b.Canonical() {
		t.Errorf("existential canonical keys differ: %q vs %q", a.Canonical(), b.Canonical())
	}
	if a.String() == b.String() {
		t.Errorf("String should preserve written order")
	}
}

func TestArchetypeCanonicalIsUnique(t *testing.T) {
	a := NewArchetype("T")
	b := NewArchetype("T")
	if a.Canonical() == b.Canonical() {
		t.Errorf("distinct archetypes share canonical key %q", a.Canonical())
	}
	if !Identical(a, a) {
		t.Errorf("archetype should be identical to itself")
	}
	if Identical(a, b) {
		t.Errorf("distinct archetypes should not be identical")
	}
}

func TestIsSpecialized(t *testing.T) {
	param := NewArchetype("T")
	tests := []struct {
		name string
		typ  Type
		want bool
	}{
		{
			name: "plain nominal",
			typ:  intType(),
			want: false,
		},
		{
			name: "generic reference carrying its own parameters",
			typ:  Nominal{Name: "Box", Args: []Type{param}},
			want: false,
		},
		{
			name: "instantiated",
			typ:  Nominal{Name: "Box", Args: []Type{intType()}},
			want: true,
		},
		{
			name: "specialized through the parent",
			typ:  Nominal{Name: "Inner", Parent: Nominal{Name: "Outer", Args: []Type{intType()}}},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSpecialized(tt.typ); got != tt.want {
				t.Errorf("IsSpecialized(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestApplyLeavesMissingArchetypes(t *testing.T) {
	a := NewArchetype("A")
	b := NewArchetype("B")
	fn := Func{Params: []Param{{Type: a}, {Type: b}}, Result: a}

	got := Apply(fn, Subst{a: intType()})
	want := "(Int, B) -> Int"
	if got.String() != want {
		t.Errorf("Apply = %s, want %s", got, want)
	}
	// The original must be untouched.
	if fn.Params[0].Type != Type(a) {
		t.Errorf("Apply modified its input")
	}
}

func TestArchetypesFirstOccurrenceOrder(t *testing.T) {
	a := NewArchetype("A")
	b := NewArchetype("B")
	fn := Func{Params: []Param{{Type: b}, {Type: a}, {Type: b}}, Result: a}

	got := Archetypes(fn)
	if len(got) != 2 || got[0] != b || got[1] != a {
		t.Errorf("Archetypes = %v, want [B A]", got)
	}
}

func TestContainsArchetype(t *testing.T) {
	self := NewArchetype("Self")
	other := NewArchetype("T")
	sig := Func{Params: []Param{{Type: self}, {Type: intType()}}, Result: boolType()}

	if !ContainsArchetype(sig, self) {
		t.Errorf("expected Self to be found in %s", sig)
	}
	if ContainsArchetype(sig, other) {
		t.Errorf("did not expect T in %s", sig)
	}
}
