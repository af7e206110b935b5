package conformance

import (
	"testing"

	"github.com/funvibe/lumen/internal/decl"
	"github.com/funvibe/lumen/internal/diagnostics"
	"github.com/funvibe/lumen/internal/token"
	"github.com/funvibe/lumen/internal/types"
)

func TestExistentialSelfConformance(t *testing.T) {
	u, _, c := newTestChecker()

	// No associated types, no Self in any signature: self-conforming.
	p := decl.NewProtocol("Printer")
	p.Requirements = append(p.Requirements, funcReq("print", types.Func{Result: intT()}))
	u.DefineProtocol(p)

	rec, ok := c.ConformsTo(types.Existential{Protocols: []string{"Printer"}}, p)
	if !ok {
		t.Fatalf("any Printer should conform to Printer")
	}
	if _, isAbstract := rec.(*AbstractRecord); !isAbstract {
		t.Errorf("existential conformance should be abstract, got %T", rec)
	}
}

func TestExistentialBlockedByAssociatedType(t *testing.T) {
	u, sink, c := newTestChecker()

	p := decl.NewProtocol("Sequence")
	p.Requirements = append(p.Requirements, &decl.Requirement{
		Kind:      decl.ReqAssociatedType,
		Name:      "Item",
		Archetype: types.NewArchetype("Item"),
	})
	u.DefineProtocol(p)

	ex := types.Existential{Protocols: []string{"Sequence"}}
	if _, ok := c.ConformsTo(ex, p); ok {
		t.Fatalf("a protocol with associated types has no self-conformance")
	}
	if _, ok := c.DiagnoseConformance(ex, p, token.Position{}); ok {
		t.Fatalf("answer flipped under diagnosis")
	}
	if len(sink.ByCode(diagnostics.ErrC009)) != 1 {
		t.Errorf("expected the associated-type note")
	}
}

func TestExistentialBlockedBySelfReference(t *testing.T) {
	u, sink, c := newTestChecker()

	p := decl.NewProtocol("Equatable")
	p.Requirements = append(p.Requirements, &decl.Requirement{
		Kind:   decl.ReqFunc,
		Name:   "==",
		Type:   types.Func{Params: []types.Param{{Type: p.Self}, {Type: p.Self}}, Result: boolT()},
		Static: true,
	})
	u.DefineProtocol(p)

	ex := types.Existential{Protocols: []string{"Equatable"}}
	if _, ok := c.ConformsTo(ex, p); ok {
		t.Fatalf("a Self-referencing requirement blocks self-conformance")
	}
	if _, ok := c.DiagnoseConformance(ex, p, token.Position{}); ok {
		t.Fatalf("answer flipped under diagnosis")
	}
	if len(sink.ByCode(diagnostics.ErrC010)) != 1 {
		t.Errorf("expected the Self-reference note")
	}
}

func TestExistentialBlockedByInheritedProtocol(t *testing.T) {
	u, sink, c := newTestChecker()

	base := decl.NewProtocol("Base")
	base.Requirements = append(base.Requirements, &decl.Requirement{
		Kind:      decl.ReqAssociatedType,
		Name:      "Item",
		Archetype: types.NewArchetype("Item"),
	})
	derived := decl.NewProtocol("Derived", "Base")
	u.DefineProtocol(base)
	u.DefineProtocol(derived)

	ex := types.Existential{Protocols: []string{"Derived"}}
	if _, ok := c.DiagnoseConformance(ex, derived, token.Position{}); ok {
		t.Fatalf("the inherited protocol's associated type blocks self-conformance")
	}
	if len(sink.ByCode(diagnostics.ErrC002)) == 0 {
		t.Errorf("expected the inheritance note")
	}
}

func TestExistentialOfInheritingProtocolConformsToAncestor(t *testing.T) {
	u, _, c := newTestChecker()

	base := decl.NewProtocol("Base")
	base.Requirements = append(base.Requirements, funcReq("id", types.Func{Result: intT()}))
	derived := decl.NewProtocol("Derived", "Base")
	u.DefineProtocol(base)
	u.DefineProtocol(derived)

	ex := types.Existential{Protocols: []string{"Derived"}}
	if _, ok := c.ConformsTo(ex, base); !ok {
		t.Errorf("any Derived should conform to Base")
	}
}

func TestExistentialTriesEveryListedProtocol(t *testing.T) {
	u, _, c := newTestChecker()

	base := decl.NewProtocol("Base")
	bad := decl.NewProtocol("Bad", "Base")
	bad.Requirements = append(bad.Requirements, &decl.Requirement{
		Kind:      decl.ReqAssociatedType,
		Name:      "Item",
		Archetype: types.NewArchetype("Item"),
	})
	good := decl.NewProtocol("Good", "Base")
	u.DefineProtocol(base)
	u.DefineProtocol(bad)
	u.DefineProtocol(good)

	// Bad cannot self-conform, but the second listed protocol can; it
	// answers for Base on its own.
	ex := types.Existential{Protocols: []string{"Bad", "Good"}}
	rec, ok := c.ConformsTo(ex, base)
	if !ok {
		t.Fatalf("any Bad & Good should conform to Base through Good")
	}
	if _, isAbstract := rec.(*AbstractRecord); !isAbstract {
		t.Errorf("existential conformance should be abstract, got %T", rec)
	}
}

func TestExistentialCyclicInheritanceTerminates(t *testing.T) {
	u, _, c := newTestChecker()

	// Both protocols are clean; the cycle must not recurse forever, and
	// in-progress ancestors count as satisfied.
	a := decl.NewProtocol("A", "B")
	b := decl.NewProtocol("B", "A")
	u.DefineProtocol(a)
	u.DefineProtocol(b)

	if _, ok := c.ConformsTo(types.Existential{Protocols: []string{"A"}}, a); !ok {
		t.Errorf("cyclic but clean protocols still self-conform")
	}
	if _, ok := c.ConformsTo(types.Existential{Protocols: []string{"B"}}, b); !ok {
		t.Errorf("the memoized answer should cover the second protocol too")
	}
}

func TestExistentialMemoIsStable(t *testing.T) {
	u, sink, c := newTestChecker()

	p := decl.NewProtocol("Sequence")
	p.Requirements = append(p.Requirements, &decl.Requirement{
		Kind:      decl.ReqAssociatedType,
		Name:      "Item",
		Archetype: types.NewArchetype("Item"),
	})
	u.DefineProtocol(p)

	ex := types.Existential{Protocols: []string{"Sequence"}}
	if _, ok := c.ConformsTo(ex, p); ok {
		t.Fatalf("unexpected self-conformance")
	}
	if len(sink.Diags) != 0 {
		t.Fatalf("silent query diagnosed")
	}

	// A memoized negative is recomputed under diagnosis to explain itself.
	if _, ok := c.DiagnoseConformance(ex, p, token.Position{}); ok {
		t.Fatalf("memo flipped")
	}
	if len(sink.ByCode(diagnostics.ErrC009)) != 1 {
		t.Errorf("diagnosing a memoized negative must still explain it")
	}
}
