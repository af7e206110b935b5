package manifest

import (
	"github.com/pkg/errors"

	"github.com/funvibe/lumen/internal/config"
	"github.com/funvibe/lumen/internal/decl"
	"github.com/funvibe/lumen/internal/token"
	"github.com/funvibe/lumen/internal/types"
)

// Query is one conformance question resolved against the built universe.
type Query struct {
	Type     types.Type
	Protocol *decl.Protocol
	Diagnose bool
	Expect   string
	Pos      token.Position
}

// Build turns a parsed manifest into a declaration universe plus the
// queries to run against it. Declarations are created in two passes so
// that type expressions can reference any declared name regardless of
// order.
func Build(m *Manifest) (*decl.Universe, []*Query, error) {
	b := &builder{
		manifest: m,
		universe: decl.NewUniverse(),
		module:   &decl.Module{Name: m.Module},
	}
	if err := b.declare(); err != nil {
		return nil, nil, err
	}
	if err := b.resolve(); err != nil {
		return nil, nil, err
	}
	queries, err := b.queries()
	if err != nil {
		return nil, nil, err
	}
	return b.universe, queries, nil
}

type builder struct {
	manifest *Manifest
	universe *decl.Universe
	module   *decl.Module

	protocols map[string]*decl.Protocol
	typeDecls map[string]*decl.TypeDecl
	// assocReqs remembers the associated type requirements created in the
	// declaration pass, keyed by protocol name, for scope construction.
	assocReqs map[string][]*decl.Requirement
}

// declare creates every named declaration and its archetypes without
// parsing any type expression.
func (b *builder) declare() error {
	b.protocols = make(map[string]*decl.Protocol)
	b.typeDecls = make(map[string]*decl.TypeDecl)
	b.assocReqs = make(map[string][]*decl.Requirement)

	for _, spec := range b.manifest.Protocols {
		if _, dup := b.protocols[spec.Name]; dup {
			return errors.Errorf("duplicate protocol %s", spec.Name)
		}
		p := decl.NewProtocol(spec.Name, spec.Inherits...)
		p.Module = b.module
		p.Pos = spec.position(b.manifest.File)
		p.ClassOnly = spec.ClassOnly
		p.LabelsSignificant = spec.LabelsSignificant
		for _, assoc := range spec.AssociatedTypes {
			req := &decl.Requirement{
				Kind:        decl.ReqAssociatedType,
				Name:        assoc.Name,
				Pos:         assoc.position(b.manifest.File),
				Archetype:   types.NewArchetype(assoc.Name, assoc.Constraints...),
				Constraints: assoc.Constraints,
			}
			p.Requirements = append(p.Requirements, req)
			b.assocReqs[spec.Name] = append(b.assocReqs[spec.Name], req)
		}
		b.protocols[spec.Name] = p
		b.universe.DefineProtocol(p)
	}

	for _, spec := range b.manifest.Types {
		if _, dup := b.typeDecls[spec.Name]; dup {
			return errors.Errorf("duplicate type %s", spec.Name)
		}
		d := &decl.TypeDecl{
			Name:     spec.Name,
			Module:   b.module,
			Pos:      spec.position(b.manifest.File),
			IsClass:  spec.Class,
			Conforms: spec.Conforms,
		}
		for _, param := range spec.Params {
			d.Params = append(d.Params, types.NewArchetype(param.Name, param.Constraints...))
		}
		b.typeDecls[spec.Name] = d
		b.universe.DefineType(d)
	}
	return nil
}

// resolve parses every type expression now that all names exist.
func (b *builder) resolve() error {
	for _, spec := range b.manifest.Protocols {
		p := b.protocols[spec.Name]
		scope := map[string]types.Type{config.SelfTypeName: p.Self}
		for _, assoc := range b.assocReqs[spec.Name] {
			scope[assoc.Name] = assoc.Archetype
		}
		for _, reqSpec := range spec.Requirements {
			kind, err := reqKind(reqSpec.Kind)
			if err != nil {
				return errors.Wrapf(err, "protocol %s, requirement %s", spec.Name, reqSpec.Name)
			}
			reqType, err := ParseType(reqSpec.Type, scope)
			if err != nil {
				return errors.Wrapf(err, "protocol %s, requirement %s", spec.Name, reqSpec.Name)
			}
			p.Requirements = append(p.Requirements, &decl.Requirement{
				Kind:    kind,
				Name:    reqSpec.Name,
				Pos:     reqSpec.position(b.manifest.File),
				Type:    reqType,
				Static:  reqSpec.Static,
				Prefix:  reqSpec.Prefix,
				Postfix: reqSpec.Postfix,
			})
		}
	}

	for _, spec := range b.manifest.Types {
		d := b.typeDecls[spec.Name]
		scope := make(map[string]types.Type)
		for _, param := range d.Params {
			scope[param.Name] = param
		}
		if spec.Superclass != "" {
			super, err := ParseType(spec.Superclass, scope)
			if err != nil {
				return errors.Wrapf(err, "type %s, superclass", spec.Name)
			}
			d.Superclass = super
		}
		for _, memberSpec := range spec.Members {
			member, err := b.buildMember(memberSpec, d, scope)
			if err != nil {
				return errors.Wrapf(err, "type %s", spec.Name)
			}
			d.Members = append(d.Members, member)
		}
		for _, tmSpec := range spec.TypeMembers {
			tm, err := b.buildTypeMember(tmSpec, scope)
			if err != nil {
				return errors.Wrapf(err, "type %s", spec.Name)
			}
			d.Types = append(d.Types, tm)
		}
		for _, extSpec := range spec.Extensions {
			ext := &decl.Extension{
				Extended: spec.Name,
				Pos:      extSpec.position(b.manifest.File),
				Module:   b.module,
				Conforms: extSpec.Conforms,
			}
			if extSpec.Module != "" {
				ext.Module = &decl.Module{Name: extSpec.Module}
			}
			for _, memberSpec := range extSpec.Members {
				member, err := b.buildMember(memberSpec, d, scope)
				if err != nil {
					return errors.Wrapf(err, "extension of %s", spec.Name)
				}
				member.Module = ext.Module
				ext.Members = append(ext.Members, member)
			}
			for _, tmSpec := range extSpec.TypeMembers {
				tm, err := b.buildTypeMember(tmSpec, scope)
				if err != nil {
					return errors.Wrapf(err, "extension of %s", spec.Name)
				}
				ext.Types = append(ext.Types, tm)
			}
			d.Extensions = append(d.Extensions, ext)
		}
	}

	for _, spec := range b.manifest.Operators {
		scope := make(map[string]types.Type)
		var archetypes []*types.Archetype
		for _, param := range spec.Params {
			arch := types.NewArchetype(param.Name, param.Constraints...)
			scope[param.Name] = arch
			archetypes = append(archetypes, arch)
		}
		opType, err := ParseType(spec.Type, scope)
		if err != nil {
			return errors.Wrapf(err, "operator %s", spec.Name)
		}
		b.universe.DefineOperator(&decl.ValueDecl{
			Kind:       decl.ReqFunc,
			Name:       spec.Name,
			Pos:        spec.position(b.manifest.File),
			Type:       opType,
			Static:     spec.Static,
			Prefix:     spec.Prefix,
			Postfix:    spec.Postfix,
			Module:     b.module,
			Archetypes: archetypes,
		})
	}
	return nil
}

func (b *builder) buildMember(spec *MemberSpec, owner *decl.TypeDecl, outer map[string]types.Type) (*decl.ValueDecl, error) {
	kind, err := reqKind(spec.Kind)
	if err != nil {
		return nil, errors.Wrapf(err, "member %s", spec.Name)
	}
	scope := make(map[string]types.Type, len(outer)+len(spec.Params))
	for name, t := range outer {
		scope[name] = t
	}
	var archetypes []*types.Archetype
	for _, param := range spec.Params {
		arch := types.NewArchetype(param.Name, param.Constraints...)
		scope[param.Name] = arch
		archetypes = append(archetypes, arch)
	}
	memberType, err := ParseType(spec.Type, scope)
	if err != nil {
		return nil, errors.Wrapf(err, "member %s", spec.Name)
	}
	return &decl.ValueDecl{
		Kind:       kind,
		Name:       spec.Name,
		Pos:        spec.position(b.manifest.File),
		Type:       memberType,
		Static:     spec.Static,
		Prefix:     spec.Prefix,
		Postfix:    spec.Postfix,
		Invalid:    spec.Invalid,
		Owner:      owner,
		Module:     owner.Module,
		Archetypes: archetypes,
	}, nil
}

func (b *builder) buildTypeMember(spec *TypeMemberSpec, scope map[string]types.Type) (*decl.TypeMember, error) {
	t, err := ParseType(spec.Type, scope)
	if err != nil {
		return nil, errors.Wrapf(err, "type member %s", spec.Name)
	}
	return &decl.TypeMember{
		Name: spec.Name,
		Pos:  spec.position(b.manifest.File),
		Type: t,
	}, nil
}

func (b *builder) queries() ([]*Query, error) {
	var out []*Query
	for _, spec := range b.manifest.Queries {
		t, err := ParseType(spec.Type, nil)
		if err != nil {
			return nil, errors.Wrap(err, "query")
		}
		p, ok := b.protocols[spec.Protocol]
		if !ok {
			return nil, errors.Errorf("query names unknown protocol %s", spec.Protocol)
		}
		switch spec.Expect {
		case "", config.ExpectConforms, config.ExpectFails:
		default:
			return nil, errors.Errorf("query expectation must be %q or %q, got %q",
				config.ExpectConforms, config.ExpectFails, spec.Expect)
		}
		out = append(out, &Query{
			Type:     t,
			Protocol: p,
			Diagnose: spec.Diagnose,
			Expect:   spec.Expect,
			Pos:      spec.position(b.manifest.File),
		})
	}
	return out, nil
}

func reqKind(s string) (decl.ReqKind, error) {
	switch s {
	case "function":
		return decl.ReqFunc, nil
	case "property":
		return decl.ReqProperty, nil
	case "subscript":
		return decl.ReqSubscript, nil
	default:
		return 0, errors.Errorf("unknown declaration kind %q", s)
	}
}
