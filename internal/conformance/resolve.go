package conformance

import (
	"fmt"

	"github.com/funvibe/lumen/internal/decl"
	"github.com/funvibe/lumen/internal/diagnostics"
	"github.com/funvibe/lumen/internal/token"
	"github.com/funvibe/lumen/internal/types"
)

// resolveConformance performs the full conformance resolution of t against
// proto: inherited protocols first, then associated-type binding, then
// witness matching for every value requirement. It returns nil when the
// type does not conform.
//
// In complain mode resolution keeps going after the first failure to
// report every broken requirement; the top-level "does not conform" error
// is emitted once, before the first detail.
func (c *Checker) resolveConformance(t types.Type, proto *decl.Protocol, anchor *Anchor, complain bool, at token.Position) *NormalRecord {
	tdecl, ok := c.universe.NominalDecl(t)
	if !ok {
		return nil
	}

	complained := false
	complainOnce := func() {
		if !complained {
			c.complainNotConforming(t, proto, at)
			complained = true
		}
	}

	// Conformance to a protocol presumes conformance to everything it
	// inherits.
	inherited := make(map[*decl.Protocol]Record)
	for _, name := range proto.Inherits {
		ip, ok := c.universe.Protocol(name)
		if !ok {
			continue
		}
		rec, ok := c.conformsTo(t, ip, nil, complain, at)
		if !ok {
			if complain {
				c.emit(diagnostics.NewNote(diagnostics.ErrC002, proto.Pos,
					fmt.Sprintf("%s does not satisfy %s, inherited by %s", t, ip.Name, proto.Name)))
			}
			return nil
		}
		inherited[ip] = rec
	}

	if proto.ClassOnly && !tdecl.IsClass {
		if !complain {
			return nil
		}
		complainOnce()
		c.emit(diagnostics.NewNote(diagnostics.ErrC003, tdecl.Pos,
			fmt.Sprintf("protocol %s requires a class, but %s is not one", proto.Name, t)))
		return nil
	}

	// typeMapping accumulates Self plus every associated type bound so far;
	// requirement types are substituted through it before matching.
	typeMapping := types.Subst{proto.Self: t}
	typeWitnesses := make(map[string]Substitution)
	deduced := make(map[string]bool)

	// Associated types with no member candidates at all are deferred: a
	// later value-requirement match may deduce them.
	var unresolved []*decl.Requirement
	for _, req := range proto.Requirements {
		if req.Kind != decl.ReqAssociatedType {
			continue
		}
		candidates := c.universe.LookupTypeMember(tdecl, req.Name)
		if len(candidates) == 0 {
			unresolved = append(unresolved, req)
			continue
		}

		type nonViable struct {
			member   *decl.TypeMember
			protocol string
		}
		var viable []*decl.TypeMember
		var rejected []nonViable
		for _, cand := range candidates {
			satisfied := true
			for _, cname := range req.Constraints {
				cp, found := c.universe.Protocol(cname)
				if !found {
					satisfied = false
					rejected = append(rejected, nonViable{cand, cname})
					break
				}
				if _, conforms := c.conformsTo(cand.Type, cp, nil, false, token.Position{}); !conforms {
					satisfied = false
					rejected = append(rejected, nonViable{cand, cname})
					break
				}
			}
			if satisfied {
				viable = append(viable, cand)
			}
		}

		if len(viable) == 1 {
			typeMapping[req.Archetype] = viable[0].Type
			typeWitnesses[req.Name] = c.archetypeSubstitution(req.Archetype, viable[0].Type)
			continue
		}
		if !complain {
			return nil
		}
		complainOnce()
		switch {
		case len(viable) > 1:
			c.emit(diagnostics.NewError(diagnostics.ErrC007, req.Pos,
				fmt.Sprintf("ambiguous witnesses for associated type %s", req.Name)))
			for _, v := range viable {
				c.emit(diagnostics.NewNote(diagnostics.ErrC012, v.Pos,
					fmt.Sprintf("candidate type %s", v.Type)))
			}
		case len(rejected) > 0:
			c.emit(diagnostics.NewError(diagnostics.ErrC008, req.Pos,
				fmt.Sprintf("no type named %s in %s satisfies the associated type's constraints", req.Name, t)))
			for _, r := range rejected {
				c.emit(diagnostics.NewNote(diagnostics.ErrC012, r.member.Pos,
					fmt.Sprintf("candidate %s does not conform to %s", r.member.Type, r.protocol)))
			}
		default:
			c.emit(diagnostics.NewError(diagnostics.ErrC006, req.Pos,
				fmt.Sprintf("no type witness for associated type %s", req.Name)))
		}
	}
	if complained {
		return nil
	}

	// Value requirements, in declaration order. deducedSoFar feeds the
	// "[with A = T]" suffix on candidate notes.
	witnesses := make(map[*decl.Requirement]Witness)
	var deducedSoFar []Deduction
	for _, req := range proto.Requirements {
		if req.Kind == decl.ReqAssociatedType {
			continue
		}
		reqType := types.Apply(req.Type, typeMapping)

		var candidates []*decl.ValueDecl
		if req.IsOperator() {
			candidates = c.universe.LookupOperator(req.Name)
		} else {
			candidates = c.universe.LookupMember(tdecl, req.Name)
		}

		var matches []RequirementMatch
		numViable := 0
		bestIdx := 0
		for _, cand := range candidates {
			m := c.matchWitness(proto, req, reqType, t, cand, unresolved)
			if m.Viable() {
				numViable++
				bestIdx = len(matches)
			}
			matches = append(matches, m)
		}

		if numViable >= 1 {
			isReallyBest := true
			if numViable > 1 {
				for i, m := range matches {
					if m.Viable() && betterMatch(m, matches[bestIdx]) {
						bestIdx = i
					}
				}
				for i, m := range matches {
					if i != bestIdx && m.Viable() && !betterMatch(matches[bestIdx], m) {
						isReallyBest = false
						break
					}
				}
			}
			if isReallyBest {
				best := matches[bestIdx]
				witnesses[req] = Witness{Decl: best.Witness, Substitutions: best.Substitutions}
				if len(best.Deductions) > 0 {
					for _, d := range best.Deductions {
						typeMapping[d.Requirement.Archetype] = d.Type
						typeWitnesses[d.Requirement.Name] = c.archetypeSubstitution(d.Requirement.Archetype, d.Type)
						deduced[d.Requirement.Name] = true
						deducedSoFar = append(deducedSoFar, d)
					}
					remaining := unresolved[:0]
					for _, assoc := range unresolved {
						if _, bound := typeMapping[assoc.Archetype]; !bound {
							remaining = append(remaining, assoc)
						}
					}
					unresolved = remaining
				}
				continue
			}
		}

		if !complain {
			return nil
		}
		complainOnce()
		if numViable > 0 {
			c.emit(diagnostics.NewError(diagnostics.ErrC005, req.Pos,
				fmt.Sprintf("ambiguous witnesses for %s requirement %q with type %s", req.Kind, req.Name, reqType)))
		} else {
			c.emit(diagnostics.NewError(diagnostics.ErrC004, req.Pos,
				fmt.Sprintf("no witness for %s requirement %q with type %s", req.Kind, req.Name, reqType)))
		}
		for _, m := range matches {
			c.diagnoseMatch(req, m, deducedSoFar)
		}
	}
	if complained {
		return nil
	}

	// Associated types that nothing deduced are a conformance failure.
	if len(unresolved) > 0 {
		if !complain {
			return nil
		}
		complainOnce()
		for _, assoc := range unresolved {
			c.emit(diagnostics.NewError(diagnostics.ErrC006, assoc.Pos,
				fmt.Sprintf("no type witness for associated type %s", assoc.Name)))
		}
		return nil
	}

	var module *decl.Module
	if anchor != nil {
		module = anchor.Module()
	}
	return &NormalRecord{
		typ:           t,
		proto:         proto,
		witnesses:     witnesses,
		typeWitnesses: typeWitnesses,
		inherited:     inherited,
		deduced:       deduced,
		module:        module,
	}
}
