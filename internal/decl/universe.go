package decl

import "github.com/funvibe/lumen/internal/types"

// Universe is the set of declarations visible to one checking session. It
// backs name-based member lookup and the global operator table.
type Universe struct {
	typeDecls map[string]*TypeDecl
	protocols map[string]*Protocol
	operators map[string][]*ValueDecl
}

func NewUniverse() *Universe {
	return &Universe{
		typeDecls: make(map[string]*TypeDecl),
		protocols: make(map[string]*Protocol),
		operators: make(map[string][]*ValueDecl),
	}
}

func (u *Universe) DefineType(d *TypeDecl) {
	u.typeDecls[d.Name] = d
}

func (u *Universe) DefineProtocol(p *Protocol) {
	u.protocols[p.Name] = p
}

// DefineOperator registers a global operator declaration. Declaration order
// of registration is preserved per name.
func (u *Universe) DefineOperator(d *ValueDecl) {
	u.operators[d.Name] = append(u.operators[d.Name], d)
}

func (u *Universe) Type(name string) (*TypeDecl, bool) {
	d, ok := u.typeDecls[name]
	return d, ok
}

func (u *Universe) Protocol(name string) (*Protocol, bool) {
	p, ok := u.protocols[name]
	return p, ok
}

// LookupOperator returns the global operator declarations with the given
// name, in declaration order.
func (u *Universe) LookupOperator(name string) []*ValueDecl {
	return u.operators[name]
}

// LookupMember returns the value members of t with the given name: first
// the type's own members, then each extension's in declaration order, then
// the superclass chain.
func (u *Universe) LookupMember(t *TypeDecl, name string) []*ValueDecl {
	var out []*ValueDecl
	visited := make(map[*TypeDecl]bool)
	for t != nil && !visited[t] {
		visited[t] = true
		for _, m := range t.Members {
			if m.Name == name {
				out = append(out, m)
			}
		}
		for _, ext := range t.Extensions {
			for _, m := range ext.Members {
				if m.Name == name {
					out = append(out, m)
				}
			}
		}
		t = u.superclassDecl(t)
	}
	return out
}

// LookupTypeMember returns the nested types of t with the given name,
// including those declared in extensions and superclasses.
func (u *Universe) LookupTypeMember(t *TypeDecl, name string) []*TypeMember {
	var out []*TypeMember
	visited := make(map[*TypeDecl]bool)
	for t != nil && !visited[t] {
		visited[t] = true
		for _, tm := range t.Types {
			if tm.Name == name {
				out = append(out, tm)
			}
		}
		for _, ext := range t.Extensions {
			for _, tm := range ext.Types {
				if tm.Name == name {
					out = append(out, tm)
				}
			}
		}
		t = u.superclassDecl(t)
	}
	return out
}

func (u *Universe) superclassDecl(t *TypeDecl) *TypeDecl {
	if t.Superclass == nil {
		return nil
	}
	super, ok := u.NominalDecl(t.Superclass)
	if !ok {
		return nil
	}
	return super
}

// NominalDecl resolves a type reference to its nominal declaration.
func (u *Universe) NominalDecl(t types.Type) (*TypeDecl, bool) {
	n, ok := t.(types.Nominal)
	if !ok {
		return nil, false
	}
	d, ok := u.typeDecls[n.Name]
	return d, ok
}

// Inherits reports whether p transitively inherits target. Cyclic
// inheritance graphs terminate: each protocol is visited once.
func (u *Universe) Inherits(p, target *Protocol) bool {
	visited := make(map[*Protocol]bool)
	worklist := []*Protocol{p}
	for len(worklist) > 0 {
		current := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, name := range current.Inherits {
			inherited, ok := u.Protocol(name)
			if !ok {
				continue
			}
			if inherited == target {
				return true
			}
			worklist = append(worklist, inherited)
		}
	}
	return false
}
