package conformance

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/funvibe/lumen/internal/decl"
	"github.com/funvibe/lumen/internal/diagnostics"
	"github.com/funvibe/lumen/internal/token"
	"github.com/funvibe/lumen/internal/types"
)

// Checker answers conformance queries for one checking session. All state,
// including the conformance cache and the existential self-conformance
// memo, lives here; two sessions never share answers.
//
// The checker is not safe for concurrent use.
type Checker struct {
	// Session identifies this checking session to drivers that report on
	// multiple sessions, such as the CLI's verbose output.
	Session uuid.UUID

	universe *decl.Universe
	sink     diagnostics.Sink

	// cache is tri-state per (canonical type, protocol) key: absent until
	// first queried, negative while resolution is in progress or after it
	// failed, positive once a record exists. A negative entry during
	// resolution is what breaks conformance cycles.
	cache map[cacheKey]*cacheEntry

	selfConforms map[*decl.Protocol]bool
}

type cacheKey struct {
	typ   string
	proto *decl.Protocol
}

type cacheEntry struct {
	record Record
	// implicit marks records inferred without an explicit conformance
	// declaration. An explicit declaration showing up later supersedes
	// them.
	implicit bool
}

func NewChecker(universe *decl.Universe, sink diagnostics.Sink) *Checker {
	return &Checker{
		Session:      uuid.New(),
		universe:     universe,
		sink:         sink,
		cache:        make(map[cacheKey]*cacheEntry),
		selfConforms: make(map[*decl.Protocol]bool),
	}
}

// Universe returns the declaration set this session checks against.
func (c *Checker) Universe() *decl.Universe { return c.universe }

// Anchor identifies the declaration that states a conformance explicitly:
// the nominal declaration itself or one of its extensions.
type Anchor struct {
	Decl *decl.TypeDecl
	Ext  *decl.Extension
}

// Module is the module owning the anchor declaration.
func (a *Anchor) Module() *decl.Module {
	if a == nil {
		return nil
	}
	if a.Ext != nil && a.Ext.Module != nil {
		return a.Ext.Module
	}
	if a.Decl != nil {
		return a.Decl.Module
	}
	return nil
}

// ConformsTo silently answers whether t conforms to proto. A true answer
// always comes with the record proving it.
func (c *Checker) ConformsTo(t types.Type, proto *decl.Protocol) (Record, bool) {
	return c.conformsTo(t, proto, nil, false, token.Position{})
}

// DiagnoseConformance answers the same question as ConformsTo but emits
// diagnostics at the given position when the answer is negative, or a
// suggestion note when the conformance holds only by inference.
func (c *Checker) DiagnoseConformance(t types.Type, proto *decl.Protocol, at token.Position) (Record, bool) {
	return c.conformsTo(t, proto, nil, true, at)
}

// CheckDeclaredConformance checks the conformance stated by an explicit
// declaration. The anchor attributes the resulting record to the declaring
// module and overrides any previously inferred or negative cached answer
// for the same query.
func (c *Checker) CheckDeclaredConformance(t types.Type, proto *decl.Protocol, anchor *Anchor, at token.Position) (Record, bool) {
	return c.conformsTo(t, proto, anchor, true, at)
}

func (c *Checker) emit(d *diagnostics.Diagnostic) {
	if c.sink != nil {
		c.sink.Emit(d)
	}
}

func (c *Checker) complainNotConforming(t types.Type, proto *decl.Protocol, at token.Position) {
	c.emit(diagnostics.NewError(diagnostics.ErrC001, at,
		fmt.Sprintf("type %s does not conform to protocol %s", t, proto.Name)))
}

// conformsTo is the dispatcher behind every public query. It picks the
// resolution strategy from the shape of t and the state of the cache.
func (c *Checker) conformsTo(t types.Type, proto *decl.Protocol, anchor *Anchor, complain bool, at token.Position) (Record, bool) {
	if t == nil {
		return nil, false
	}
	if arch, ok := t.(*types.Archetype); ok {
		return c.archetypeConformance(arch, proto, complain, at)
	}
	if ex, ok := t.(types.Existential); ok {
		return c.existentialConformance(ex, proto, complain, at)
	}

	key := cacheKey{typ: t.Canonical(), proto: proto}
	if entry, ok := c.cache[key]; ok {
		switch {
		case entry.record == nil && anchor == nil:
			if complain {
				c.complainNotConforming(t, proto, at)
			}
			return nil, false
		case entry.record == nil:
			// An explicit declaration re-opens a memoized negative.
			delete(c.cache, key)
		case entry.implicit && anchor != nil:
			// An explicit declaration supersedes the inferred record so
			// the declaring module gets attributed.
			delete(c.cache, key)
		default:
			if complain && entry.implicit {
				c.suggestExplicit(t, proto, at)
			}
			return entry.record, true
		}
	}

	tdecl, isNominal := c.universe.NominalDecl(t)
	if !isNominal {
		if complain {
			c.complainNotConforming(t, proto, at)
		}
		return nil, false
	}

	owner := tdecl
	if anchor == nil {
		var owning *decl.TypeDecl
		anchor, owning = c.findDeclaredConformance(tdecl, proto)
		if anchor == nil {
			return c.implicitConformance(t, proto, key, complain, at)
		}
		owner = owning
	} else if d := c.anchorDecl(anchor); d != nil {
		owner = d
	}

	if owner != tdecl {
		return c.inheritedConformance(t, proto, owner, key, complain, at)
	}
	if types.IsSpecialized(t) {
		return c.specializedConformance(t, proto, tdecl, anchor, key, complain, at)
	}

	// Direct resolution. The temporary negative entry is what a cyclic
	// query sees; success replaces it.
	c.cache[key] = &cacheEntry{}
	rec := c.resolveConformance(t, proto, anchor, complain, at)
	if rec == nil {
		return nil, false
	}
	c.cache[key] = &cacheEntry{record: rec}
	return rec, true
}

// archetypeConformance answers for generic-parameter placeholders: the
// archetype conforms exactly when its declared constraints include proto
// or a protocol inheriting it. Nothing is cached; the answer is a direct
// function of the declaration.
func (c *Checker) archetypeConformance(arch *types.Archetype, proto *decl.Protocol, complain bool, at token.Position) (Record, bool) {
	for _, name := range arch.Requires {
		p, ok := c.universe.Protocol(name)
		if !ok {
			continue
		}
		if p == proto || c.universe.Inherits(p, proto) {
			return &AbstractRecord{typ: arch, proto: proto}, true
		}
	}
	if complain {
		c.complainNotConforming(arch, proto, at)
	}
	return nil, false
}

// existentialConformance answers for existential types: some protocol of
// the existential must equal or inherit proto, and that protocol must
// self-conform. Every listed protocol is tried before the answer turns
// negative; diagnostics are emitted only once all of them failed.
func (c *Checker) existentialConformance(ex types.Existential, proto *decl.Protocol, complain bool, at token.Position) (Record, bool) {
	var candidates []*decl.Protocol
	for _, name := range ex.Protocols {
		p, ok := c.universe.Protocol(name)
		if !ok {
			continue
		}
		if p != proto && !c.universe.Inherits(p, proto) {
			continue
		}
		candidates = append(candidates, p)
		checking := map[*decl.Protocol]bool{p: true}
		if c.existentialSelfConformance(ex, p, false, at, checking) {
			return &AbstractRecord{typ: ex, proto: proto}, true
		}
	}
	if complain {
		if len(candidates) == 0 {
			c.complainNotConforming(ex, proto, at)
		}
		// Recompute the memoized negatives to explain each failed protocol.
		for _, p := range candidates {
			checking := map[*decl.Protocol]bool{p: true}
			c.existentialSelfConformance(ex, p, true, at, checking)
		}
	}
	return nil, false
}

// findDeclaredConformance searches for a declaration of conformance to
// proto: the nominal's own conformance list, its extensions, the
// superclass chain, and the inheritance closure of every protocol found
// along the way. It returns the anchor declaration and the nominal the
// anchor belongs to; each protocol and each nominal is visited at most
// once, so cyclic inheritance graphs terminate.
func (c *Checker) findDeclaredConformance(d *decl.TypeDecl, proto *decl.Protocol) (*Anchor, *decl.TypeDecl) {
	type frame struct {
		proto   *decl.Protocol
		nominal *decl.TypeDecl
		via     *decl.TypeDecl
		anchor  *Anchor
	}
	visitedProtos := make(map[*decl.Protocol]bool)
	visitedDecls := make(map[*decl.TypeDecl]bool)
	var stack []frame

	// expand pushes the inheritance frontier of a conformance list; it
	// reports a hit when proto itself is named.
	expand := func(names []string, via *decl.TypeDecl, anchor *Anchor) bool {
		for _, name := range names {
			p, ok := c.universe.Protocol(name)
			if !ok {
				continue
			}
			if p == proto {
				return true
			}
			if !visitedProtos[p] {
				visitedProtos[p] = true
				stack = append(stack, frame{proto: p, via: via, anchor: anchor})
			}
		}
		return false
	}

	stack = append(stack, frame{nominal: d})
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.proto != nil {
			if expand(f.proto.Inherits, f.via, f.anchor) {
				return f.anchor, f.via
			}
			continue
		}

		n := f.nominal
		if n == nil || visitedDecls[n] {
			continue
		}
		visitedDecls[n] = true

		if n.Superclass != nil {
			if super, ok := c.universe.NominalDecl(n.Superclass); ok {
				stack = append(stack, frame{nominal: super})
			}
		}
		anchor := &Anchor{Decl: n}
		if expand(n.Conforms, n, anchor) {
			return anchor, n
		}
		for _, ext := range n.Extensions {
			extAnchor := &Anchor{Decl: n, Ext: ext}
			if expand(ext.Conforms, n, extAnchor) {
				return extAnchor, n
			}
		}
	}
	return nil, nil
}

func (c *Checker) anchorDecl(a *Anchor) *decl.TypeDecl {
	if a.Decl != nil {
		return a.Decl
	}
	if a.Ext != nil {
		d, _ := c.universe.Type(a.Ext.Extended)
		return d
	}
	return nil
}

// inheritedConformance resolves a conformance declared on an ancestor
// class and wraps its record for the subclass type t.
func (c *Checker) inheritedConformance(t types.Type, proto *decl.Protocol, owner *decl.TypeDecl, key cacheKey, complain bool, at token.Position) (Record, bool) {
	visited := make(map[*decl.TypeDecl]bool)
	super := c.superclassType(t)
	for super != nil {
		if d, ok := c.universe.NominalDecl(super); ok {
			if d == owner {
				break
			}
			if visited[d] {
				// A cyclic superclass chain never reaches the owner.
				super = nil
				break
			}
			visited[d] = true
		}
		super = c.superclassType(super)
	}
	if super == nil {
		if complain {
			c.complainNotConforming(t, proto, at)
		}
		return nil, false
	}
	base, ok := c.conformsTo(super, proto, nil, complain, at)
	if !ok {
		c.cache[key] = &cacheEntry{}
		return nil, false
	}
	rec := &InheritedRecord{typ: t, base: base}
	c.cache[key] = &cacheEntry{record: rec}
	return rec, true
}

// superclassType computes the superclass of t with t's own type arguments
// substituted into the superclass reference.
func (c *Checker) superclassType(t types.Type) types.Type {
	d, ok := c.universe.NominalDecl(t)
	if !ok || d.Superclass == nil {
		return nil
	}
	n := t.(types.Nominal)
	if len(n.Args) != len(d.Params) {
		return d.Superclass
	}
	subst := make(types.Subst, len(d.Params))
	for i, p := range d.Params {
		subst[p] = n.Args[i]
	}
	return types.Apply(d.Superclass, subst)
}

// specializedConformance derives the record for a generic instantiation
// from the generic declaration's record plus the instantiation's
// substitutions. Requirement matching is not re-run.
func (c *Checker) specializedConformance(t types.Type, proto *decl.Protocol, tdecl *decl.TypeDecl, anchor *Anchor, key cacheKey, complain bool, at token.Position) (Record, bool) {
	generic, ok := c.conformsTo(tdecl.DeclaredType(), proto, anchor, complain, at)
	if !ok {
		c.cache[key] = &cacheEntry{}
		return nil, false
	}
	rec := &SpecializedRecord{
		typ:           t,
		generic:       generic,
		substitutions: c.gatherSubstitutions(t),
		checker:       c,
	}
	c.cache[key] = &cacheEntry{record: rec}
	return rec, true
}

// implicitConformance handles the absence of any declared conformance: a
// successful resolution is remembered as an inferred record together with
// a note suggesting the explicit declaration.
func (c *Checker) implicitConformance(t types.Type, proto *decl.Protocol, key cacheKey, complain bool, at token.Position) (Record, bool) {
	c.cache[key] = &cacheEntry{}
	rec := c.resolveConformance(t, proto, nil, complain, at)
	if rec == nil {
		return nil, false
	}
	c.cache[key] = &cacheEntry{record: rec, implicit: true}
	if complain {
		c.suggestExplicit(t, proto, at)
	}
	return rec, true
}

// suggestExplicit reports that t satisfies proto only by inference and
// offers a fix-it inserting the explicit declaration on the type.
func (c *Checker) suggestExplicit(t types.Type, proto *decl.Protocol, at token.Position) {
	d, ok := c.universe.NominalDecl(t)
	if !ok {
		return
	}
	note := diagnostics.NewNote(diagnostics.ErrC011, at,
		fmt.Sprintf("%s satisfies all requirements of %s; declare the conformance explicitly", t, proto.Name))
	if len(d.Conforms) == 0 {
		note.WithFixIt(d.Pos, " : "+proto.Name)
	} else {
		note.WithFixIt(d.Pos, ", "+proto.Name)
	}
	c.emit(note)
}
