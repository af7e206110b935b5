package conformance

import (
	"fmt"

	"github.com/funvibe/lumen/internal/token"
	"github.com/funvibe/lumen/internal/types"
)

// archetypeSubstitution builds the substitution binding arch to
// replacement, re-deriving the conformance proof for every protocol the
// archetype requires. The proofs were established when the replacement was
// accepted, so a failure here is an internal fault, not a user error.
func (c *Checker) archetypeSubstitution(arch *types.Archetype, replacement types.Type) Substitution {
	sub := Substitution{Archetype: arch, Replacement: replacement}
	for _, name := range arch.Requires {
		proto, ok := c.universe.Protocol(name)
		if !ok {
			panic(fmt.Sprintf("archetype %s requires unknown protocol %s", arch, name))
		}
		rec, ok := c.conformsTo(replacement, proto, nil, false, token.Position{})
		if !ok {
			panic(fmt.Sprintf("conformance of %s to %s should already have been established", replacement, name))
		}
		sub.Conformances = append(sub.Conformances, rec)
	}
	return sub
}

// gatherSubstitutions collects the archetype-to-argument substitutions that
// turn the generic form of t into t, starting with t's own context and
// walking outward through enclosing specialized contexts.
func (c *Checker) gatherSubstitutions(t types.Type) []Substitution {
	if !types.IsSpecialized(t) {
		panic(fmt.Sprintf("gatherSubstitutions on unspecialized type %s", t))
	}
	var out []Substitution
	current := t
	for current != nil {
		n, ok := current.(types.Nominal)
		if !ok {
			break
		}
		if d, ok := c.universe.Type(n.Name); ok && len(n.Args) > 0 && len(n.Args) == len(d.Params) {
			for i, p := range d.Params {
				out = append(out, c.archetypeSubstitution(p, n.Args[i]))
			}
		}
		current = n.Parent
	}
	return out
}

// specializeTypeWitnesses applies substitutions to each generic type
// witness. Witnesses the substitutions leave untouched are shared with the
// generic record; changed witnesses get freshly derived conformance
// proofs.
func (c *Checker) specializeTypeWitnesses(witnesses map[string]Substitution, substitutions []Substitution) map[string]Substitution {
	subst := make(types.Subst, len(substitutions))
	for _, s := range substitutions {
		subst[s.Archetype] = s.Replacement
	}
	out := make(map[string]Substitution, len(witnesses))
	for name, w := range witnesses {
		specialized := types.Apply(w.Replacement, subst)
		if types.Identical(specialized, w.Replacement) {
			out[name] = w
			continue
		}
		out[name] = c.archetypeSubstitution(w.Archetype, specialized)
	}
	return out
}
