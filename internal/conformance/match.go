package conformance

import (
	"fmt"
	"strings"

	"github.com/funvibe/lumen/internal/decl"
	"github.com/funvibe/lumen/internal/diagnostics"
	"github.com/funvibe/lumen/internal/types"
)

// Verdict classifies the outcome of matching one witness candidate against
// one requirement. The order of the constants is the severity ranking used
// to pick the best candidate: lower is better.
type Verdict int

const (
	// ExactMatch is a viable match with identical argument labels.
	ExactMatch Verdict = iota
	// RenamedMatch is a viable match up to argument label renaming.
	RenamedMatch
	// WitnessInvalid rejects a candidate that failed earlier checking.
	WitnessInvalid
	// KindConflict rejects a candidate of the wrong declaration kind.
	KindConflict
	// TypeConflict rejects a candidate whose type cannot unify with the
	// requirement's.
	TypeConflict
	// StaticConflict rejects a static candidate for an instance
	// requirement or vice versa.
	StaticConflict
	// PrefixConflict rejects a non-prefix candidate for a prefix operator
	// requirement.
	PrefixConflict
	// PostfixConflict rejects a non-postfix candidate for a postfix
	// operator requirement.
	PostfixConflict
)

func (v Verdict) String() string {
	switch v {
	case ExactMatch:
		return "exact match"
	case RenamedMatch:
		return "renamed match"
	case WitnessInvalid:
		return "invalid witness"
	case KindConflict:
		return "kind conflict"
	case TypeConflict:
		return "type conflict"
	case StaticConflict:
		return "static conflict"
	case PrefixConflict:
		return "prefix conflict"
	case PostfixConflict:
		return "postfix conflict"
	}
	return "unknown verdict"
}

// Viable reports whether the candidate can actually serve as a witness.
func (v Verdict) Viable() bool {
	return v == ExactMatch || v == RenamedMatch
}

// Deduction records an associated-type binding inferred as a side effect of
// matching a value requirement.
type Deduction struct {
	Requirement *decl.Requirement
	Type        types.Type
}

// RequirementMatch is the result of matching one candidate declaration
// against one requirement.
type RequirementMatch struct {
	Witness *decl.ValueDecl
	Verdict Verdict

	// WitnessType is the candidate's type at the conforming type. Set once
	// screening got far enough to compute it, so viable matches and type
	// conflicts carry it and earlier rejections do not.
	WitnessType types.Type

	// Deductions are associated-type bindings the unifier inferred for
	// requirements that were still unresolved.
	Deductions []Deduction

	// Substitutions bind the witness's own generic parameters.
	Substitutions []Substitution
}

// Viable reports whether this match can serve as the witness.
func (m RequirementMatch) Viable() bool { return m.Verdict.Viable() }

// betterMatch reports whether a is strictly better than b. Ranking is by
// verdict severity alone; finer tie-breaking between two viable candidates
// is not attempted, which surfaces as an ambiguity instead.
func betterMatch(a, b RequirementMatch) bool {
	return a.Verdict < b.Verdict
}

// matchWitness matches one candidate declaration against one requirement of
// proto at the conforming type model. reqType is the requirement's type
// with Self and all bound associated types already substituted; unresolved
// lists the associated-type requirements still awaiting a binding, which
// the unifier may deduce.
//
// Structural screening is fail-fast: the first conflict found determines
// the verdict and no constraint solving happens.
func (c *Checker) matchWitness(proto *decl.Protocol, req *decl.Requirement, reqType types.Type, model types.Type, witness *decl.ValueDecl, unresolved []*decl.Requirement) RequirementMatch {
	if witness.Kind != req.Kind {
		return RequirementMatch{Witness: witness, Verdict: KindConflict}
	}
	if witness.Invalid {
		return RequirementMatch{Witness: witness, Verdict: WitnessInvalid}
	}
	if witness.Static != req.Static {
		return RequirementMatch{Witness: witness, Verdict: StaticConflict}
	}
	if req.Prefix && !witness.Prefix {
		return RequirementMatch{Witness: witness, Verdict: PrefixConflict}
	}
	if req.Postfix && !witness.Postfix {
		return RequirementMatch{Witness: witness, Verdict: PostfixConflict}
	}

	witnessType := witness.Type
	if witness.Owner != nil {
		witnessType = witnessTypeWithBase(witness, model)
	}

	cs := types.NewConstraintSystem()

	openedReq := reqType
	var assocVars map[*types.Archetype]types.Var
	if len(unresolved) > 0 {
		archetypes := make([]*types.Archetype, len(unresolved))
		for i, assoc := range unresolved {
			archetypes[i] = assoc.Archetype
		}
		openedReq, assocVars = cs.Open(reqType, archetypes)
	}
	openedWitness, witnessVars := cs.Open(witnessType, witness.Archetypes)

	conflict := RequirementMatch{Witness: witness, Verdict: TypeConflict, WitnessType: witnessType}

	anyRenaming := false
	if req.Kind == decl.ReqFunc || req.Kind == decl.ReqSubscript {
		// Functions and subscripts are matched piecewise so that label
		// renames can be told apart from type mismatches.
		reqFunc, ok := openedReq.(types.Func)
		if !ok {
			return conflict
		}
		witFunc, ok := openedWitness.(types.Func)
		if !ok {
			return conflict
		}
		if len(witFunc.Params) != len(reqFunc.Params) {
			return conflict
		}
		cs.Equal(witFunc.Result, reqFunc.Result)
		for i := range reqFunc.Params {
			rp, wp := reqFunc.Params[i], witFunc.Params[i]
			if rp.Variadic != wp.Variadic {
				return conflict
			}
			if rp.Label != wp.Label {
				if proto.LabelsSignificant && i > 0 {
					return conflict
				}
				anyRenaming = true
			}
			cs.Equal(wp.Type, rp.Type)
		}
	} else {
		cs.Equal(openedWitness, openedReq)
	}

	solution, err := cs.Solve()
	if err != nil {
		return conflict
	}

	verdict := ExactMatch
	if anyRenaming {
		verdict = RenamedMatch
	}
	result := RequirementMatch{Witness: witness, Verdict: verdict, WitnessType: witnessType}

	// Associated types pinned down to variable-free types become
	// deductions; partially solved ones stay unresolved for a later
	// requirement to settle.
	for _, assoc := range unresolved {
		v, ok := assocVars[assoc.Archetype]
		if !ok {
			continue
		}
		deducedType := solution.Simplify(v)
		if types.HasFreeVariables(deducedType) {
			continue
		}
		result.Deductions = append(result.Deductions, Deduction{Requirement: assoc, Type: deducedType})
	}

	for _, arch := range witness.Archetypes {
		v, ok := witnessVars[arch]
		if !ok {
			continue
		}
		replacement := solution.Simplify(v)
		if types.HasFreeVariables(replacement) {
			// Nothing pinned this parameter down, typically because it does
			// not occur in the candidate's type. Such a candidate cannot be
			// instantiated for the requirement.
			return conflict
		}
		result.Substitutions = append(result.Substitutions, c.archetypeSubstitution(arch, replacement))
	}

	return result
}

// witnessTypeWithBase computes the type at which a member declaration is
// used on model: the owner's generic parameters are replaced by model's
// arguments, walking enclosing contexts outward. Member types carry no
// instance receiver, so nothing needs stripping.
func witnessTypeWithBase(w *decl.ValueDecl, model types.Type) types.Type {
	subst := make(types.Subst)
	owner := w.Owner
	base := model
	for owner != nil {
		n, ok := base.(types.Nominal)
		if !ok || len(n.Args) != len(owner.Params) {
			break
		}
		for i, p := range owner.Params {
			subst[p] = n.Args[i]
		}
		base = n.Parent
		owner = owner.Parent
	}
	return types.Apply(w.Type, subst)
}

// diagnoseMatch emits one candidate note for a failed requirement. prior
// holds associated-type deductions already committed for earlier
// requirements; together with the match's own deductions they are shown as
// a "[with A = T]" suffix so the reader sees which bindings the candidate
// was judged under.
func (c *Checker) diagnoseMatch(req *decl.Requirement, m RequirementMatch, prior []Deduction) {
	suffix := deductionSuffix(prior, m.Deductions)
	var msg string
	switch m.Verdict {
	case ExactMatch:
		msg = "candidate exactly matches" + suffix
	case RenamedMatch:
		msg = "candidate matches after renaming argument labels" + suffix
	case WitnessInvalid:
		// The candidate's own diagnostics already explain it.
		return
	case KindConflict:
		msg = fmt.Sprintf("candidate is a %s, not a %s", m.Witness.Kind, req.Kind)
	case TypeConflict:
		msg = fmt.Sprintf("candidate has non-matching type %s%s", m.WitnessType, suffix)
	case StaticConflict:
		if req.Static {
			msg = "candidate operates on an instance, not the type itself"
		} else {
			msg = "candidate operates on the type itself, not an instance"
		}
	case PrefixConflict:
		msg = "candidate is not a prefix operator"
	case PostfixConflict:
		msg = "candidate is not a postfix operator"
	default:
		return
	}
	c.emit(diagnostics.NewNote(diagnostics.ErrC012, m.Witness.Pos, msg))
}

func deductionSuffix(prior, own []Deduction) string {
	if len(prior) == 0 && len(own) == 0 {
		return ""
	}
	var parts []string
	for _, d := range prior {
		parts = append(parts, fmt.Sprintf("%s = %s", d.Requirement.Name, d.Type))
	}
	for _, d := range own {
		parts = append(parts, fmt.Sprintf("%s = %s", d.Requirement.Name, d.Type))
	}
	return " [with " + strings.Join(parts, ", ") + "]"
}
