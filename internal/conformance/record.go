package conformance

import (
	"github.com/funvibe/lumen/internal/decl"
	"github.com/funvibe/lumen/internal/types"
)

// Substitution binds an archetype to its replacement type, together with
// the conformance proofs that the replacement satisfies every protocol the
// archetype requires.
type Substitution struct {
	Archetype    *types.Archetype
	Replacement  types.Type
	Conformances []Record
}

// Witness is the concrete declaration chosen to satisfy a value
// requirement, plus the substitutions for the declaration's own generic
// parameters.
type Witness struct {
	Decl          *decl.ValueDecl
	Substitutions []Substitution
}

// Record is an immutable proof that a type conforms to a protocol. Records
// are owned by the checking session's cache, created once, and live until
// the session is torn down.
//
// The maps returned by TypeWitnesses are shared with the record and must
// not be modified.
type Record interface {
	// Type is the conforming type.
	Type() types.Type
	// Protocol is the protocol conformed to.
	Protocol() *decl.Protocol
	// Witness returns the witness for a value requirement.
	Witness(req *decl.Requirement) (Witness, bool)
	// TypeWitness returns the substitution bound to the named
	// associated-type requirement.
	TypeWitness(name string) (Substitution, bool)
	// TypeWitnesses returns every bound associated type by name.
	TypeWitnesses() map[string]Substitution
	// Inherited returns the record for a directly inherited protocol.
	Inherited(p *decl.Protocol) (Record, bool)
	// Deduced reports whether the named type witness was deduced from
	// witness matching rather than declared.
	Deduced(name string) bool
}

// NormalRecord is a fully resolved conformance: every requirement of the
// protocol and its ancestors is mapped to a witness and every associated
// type is bound.
type NormalRecord struct {
	typ           types.Type
	proto         *decl.Protocol
	witnesses     map[*decl.Requirement]Witness
	typeWitnesses map[string]Substitution
	inherited     map[*decl.Protocol]Record
	deduced       map[string]bool
	module        *decl.Module
}

func (r *NormalRecord) Type() types.Type         { return r.typ }
func (r *NormalRecord) Protocol() *decl.Protocol { return r.proto }

func (r *NormalRecord) Witness(req *decl.Requirement) (Witness, bool) {
	w, ok := r.witnesses[req]
	return w, ok
}

func (r *NormalRecord) TypeWitness(name string) (Substitution, bool) {
	s, ok := r.typeWitnesses[name]
	return s, ok
}

func (r *NormalRecord) TypeWitnesses() map[string]Substitution { return r.typeWitnesses }

func (r *NormalRecord) Inherited(p *decl.Protocol) (Record, bool) {
	rec, ok := r.inherited[p]
	return rec, ok
}

func (r *NormalRecord) Deduced(name string) bool { return r.deduced[name] }

// Module is the module owning the explicit conformance declaration, nil
// when the conformance was inferred.
func (r *NormalRecord) Module() *decl.Module { return r.module }

// InheritedRecord makes a superclass's conformance available on a subclass
// type: every lookup is forwarded to the superclass's record.
type InheritedRecord struct {
	typ  types.Type
	base Record
}

func (r *InheritedRecord) Type() types.Type         { return r.typ }
func (r *InheritedRecord) Protocol() *decl.Protocol { return r.base.Protocol() }

// Base is the superclass record being forwarded to.
func (r *InheritedRecord) Base() Record { return r.base }

func (r *InheritedRecord) Witness(req *decl.Requirement) (Witness, bool) {
	return r.base.Witness(req)
}

func (r *InheritedRecord) TypeWitness(name string) (Substitution, bool) {
	return r.base.TypeWitness(name)
}

func (r *InheritedRecord) TypeWitnesses() map[string]Substitution { return r.base.TypeWitnesses() }

func (r *InheritedRecord) Inherited(p *decl.Protocol) (Record, bool) { return r.base.Inherited(p) }

func (r *InheritedRecord) Deduced(name string) bool { return r.base.Deduced(name) }

// SpecializedRecord derives a generic instantiation's conformance from the
// generic declaration's record plus the instantiation's substitutions.
// Type witnesses are remapped on first access and frozen afterwards;
// requirement matching is never re-run.
type SpecializedRecord struct {
	typ           types.Type
	generic       Record
	substitutions []Substitution
	checker       *Checker

	specialized map[string]Substitution
}

func (r *SpecializedRecord) Type() types.Type         { return r.typ }
func (r *SpecializedRecord) Protocol() *decl.Protocol { return r.generic.Protocol() }

// Generic is the generic declaration's record this specialization is
// derived from.
func (r *SpecializedRecord) Generic() Record { return r.generic }

// Substitutions returns the archetype-to-argument list gathered from the
// specialized type, innermost context first.
func (r *SpecializedRecord) Substitutions() []Substitution { return r.substitutions }

func (r *SpecializedRecord) Witness(req *decl.Requirement) (Witness, bool) {
	return r.generic.Witness(req)
}

func (r *SpecializedRecord) TypeWitness(name string) (Substitution, bool) {
	s, ok := r.materialize()[name]
	return s, ok
}

func (r *SpecializedRecord) TypeWitnesses() map[string]Substitution { return r.materialize() }

func (r *SpecializedRecord) Inherited(p *decl.Protocol) (Record, bool) {
	return r.generic.Inherited(p)
}

func (r *SpecializedRecord) Deduced(name string) bool { return r.generic.Deduced(name) }

func (r *SpecializedRecord) materialize() map[string]Substitution {
	if r.specialized == nil {
		r.specialized = r.checker.specializeTypeWitnesses(r.generic.TypeWitnesses(), r.substitutions)
	}
	return r.specialized
}

// AbstractRecord represents the conformance of a generic-parameter
// placeholder or of an existential type. These carry no witnesses of their
// own; the record exists so that a positive answer always comes with a
// record.
type AbstractRecord struct {
	typ   types.Type
	proto *decl.Protocol
}

func (r *AbstractRecord) Type() types.Type         { return r.typ }
func (r *AbstractRecord) Protocol() *decl.Protocol { return r.proto }

func (r *AbstractRecord) Witness(req *decl.Requirement) (Witness, bool) {
	return Witness{}, false
}

func (r *AbstractRecord) TypeWitness(name string) (Substitution, bool) {
	return Substitution{}, false
}

func (r *AbstractRecord) TypeWitnesses() map[string]Substitution { return nil }

func (r *AbstractRecord) Inherited(p *decl.Protocol) (Record, bool) { return nil, false }

func (r *AbstractRecord) Deduced(name string) bool { return false }
