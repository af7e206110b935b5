package conformance

import (
	"fmt"

	"github.com/funvibe/lumen/internal/decl"
	"github.com/funvibe/lumen/internal/diagnostics"
	"github.com/funvibe/lumen/internal/token"
	"github.com/funvibe/lumen/internal/types"
)

// existentialSelfConformance decides whether the existential type t
// satisfies proto itself. A protocol self-conforms when neither it nor any
// of its ancestors declares an associated type or mentions Self in a
// requirement signature.
//
// Answers are memoized per protocol for the session; they never flip, so a
// memoized negative is recomputed only to emit diagnostics. checking holds
// the protocols currently on the recursion stack so that cyclic
// inheritance terminates, treating in-progress ancestors as satisfied.
func (c *Checker) existentialSelfConformance(t types.Type, proto *decl.Protocol, complain bool, at token.Position, checking map[*decl.Protocol]bool) bool {
	if known, ok := c.selfConforms[proto]; ok {
		if known || !complain {
			return known
		}
	}

	for _, name := range proto.Inherits {
		inherited, ok := c.universe.Protocol(name)
		if !ok || checking[inherited] {
			continue
		}
		checking[inherited] = true
		if !c.existentialSelfConformance(t, inherited, complain, at, checking) {
			if complain {
				c.emit(diagnostics.NewNote(diagnostics.ErrC002, proto.Pos,
					fmt.Sprintf("protocol %s inherits %s, which %s cannot satisfy", proto.Name, inherited.Name, t)))
			}
			c.selfConforms[proto] = false
			return false
		}
	}

	for _, req := range proto.Requirements {
		if req.Kind == decl.ReqAssociatedType {
			c.selfConforms[proto] = false
			if !complain {
				return false
			}
			c.complainNotConforming(t, proto, at)
			c.emit(diagnostics.NewNote(diagnostics.ErrC009, req.Pos,
				fmt.Sprintf("protocol %s declares associated type %s; only a concrete type can bind it", proto.Name, req.Name)))
			return false
		}
		if req.Type != nil && types.ContainsArchetype(req.Type, proto.Self) {
			c.selfConforms[proto] = false
			if !complain {
				return false
			}
			c.complainNotConforming(t, proto, at)
			c.emit(diagnostics.NewNote(diagnostics.ErrC010, req.Pos,
				fmt.Sprintf("requirement %q refers to Self; only a concrete type can witness it", req.Name)))
			return false
		}
	}

	c.selfConforms[proto] = true
	return true
}
