package decl

import (
	"unicode"

	"github.com/funvibe/lumen/internal/token"
	"github.com/funvibe/lumen/internal/types"
)

// Module is the compilation unit a declaration belongs to.
type Module struct {
	Name string
}

// ReqKind classifies protocol requirements and witness candidates. The
// checker switches over it exhaustively instead of inspecting runtime
// types.
type ReqKind int

const (
	ReqFunc ReqKind = iota
	ReqProperty
	ReqSubscript
	ReqAssociatedType
)

func (k ReqKind) String() string {
	switch k {
	case ReqFunc:
		return "function"
	case ReqProperty:
		return "property"
	case ReqSubscript:
		return "subscript"
	case ReqAssociatedType:
		return "associated type"
	}
	return "unknown"
}

// Requirement is one obligation a protocol declares. For value requirements
// Type is the declared type and may mention the protocol's implicit Self
// placeholder or other associated-type archetypes. For associated-type
// requirements Type is nil and Archetype/Constraints describe the type to
// be bound.
type Requirement struct {
	Kind ReqKind
	Name string
	Pos  token.Position

	Type    types.Type
	Static  bool
	Prefix  bool
	Postfix bool

	Archetype   *types.Archetype
	Constraints []string
}

// IsOperator reports whether the requirement names an operator, which is
// looked up globally rather than as a member.
func (r *Requirement) IsOperator() bool { return IsOperatorName(r.Name) }

// Protocol declares a named set of requirements. Inherits and Requirements
// preserve declaration order: it governs which candidate is reported first
// in ambiguity diagnostics and which associated type is attempted first.
type Protocol struct {
	Name   string
	Module *Module
	Pos    token.Position

	Inherits     []string
	Requirements []*Requirement

	// ClassOnly restricts conformance to reference types.
	ClassOnly bool
	// LabelsSignificant marks interop protocols whose argument labels
	// beyond the first are load-bearing: renaming them is a type error,
	// not a renamed match.
	LabelsSignificant bool

	// Self is the implicit placeholder for the conforming type.
	Self *types.Archetype
}

// NewProtocol creates a protocol with its implicit Self placeholder, which
// requires conformance to the protocol itself.
func NewProtocol(name string, inherits ...string) *Protocol {
	return &Protocol{
		Name:     name,
		Inherits: inherits,
		Self:     types.NewArchetype("Self", name),
	}
}

// AssociatedTypes returns the associated-type requirements in declaration
// order. The implicit Self placeholder is not among them.
func (p *Protocol) AssociatedTypes() []*Requirement {
	var out []*Requirement
	for _, r := range p.Requirements {
		if r.Kind == ReqAssociatedType {
			out = append(out, r)
		}
	}
	return out
}

// ValueDecl is a declaration that can witness a protocol requirement: a
// member of a nominal type or one of its extensions, or a global operator
// declaration (Owner nil).
type ValueDecl struct {
	Kind ReqKind
	Name string
	Pos  token.Position

	// Type is the declared type without any instance receiver; member
	// function types list only their formal parameters.
	Type types.Type

	Static  bool
	Prefix  bool
	Postfix bool
	// Invalid marks declarations that failed earlier checking; they are
	// rejected as witnesses without further diagnosis.
	Invalid bool

	Owner  *TypeDecl
	Module *Module

	// Archetypes are the declaration's own generic parameters. They are
	// opened to fresh variables when the declaration is matched against a
	// requirement.
	Archetypes []*types.Archetype
}

// TypeMember is a nested type or type alias declared inside a nominal type
// or extension, usable as an associated-type witness.
type TypeMember struct {
	Name string
	Pos  token.Position
	Type types.Type
}

// Extension adds members and declared conformances to an existing nominal
// type.
type Extension struct {
	Extended string
	Pos      token.Position
	Module   *Module

	Conforms []string
	Members  []*ValueDecl
	Types    []*TypeMember
}

// TypeDecl is a nominal type declaration.
type TypeDecl struct {
	Name   string
	Module *Module
	Pos    token.Position

	// IsClass marks reference types.
	IsClass bool
	// Superclass is the inherited class type, nil if none.
	Superclass types.Type
	// Parent is the enclosing declaration for nested types.
	Parent *TypeDecl

	Params   []*types.Archetype
	Conforms []string

	Members    []*ValueDecl
	Types      []*TypeMember
	Extensions []*Extension
}

// DeclaredType is the type of the declaration in its own generic context:
// generic parameters appear as their archetypes.
func (d *TypeDecl) DeclaredType() types.Type {
	args := make([]types.Type, len(d.Params))
	for i, p := range d.Params {
		args[i] = p
	}
	var parent types.Type
	if d.Parent != nil {
		parent = d.Parent.DeclaredType()
	}
	return types.Nominal{Name: d.Name, Args: args, Parent: parent}
}

// IsOperatorName reports whether name is spelled as an operator.
func IsOperatorName(name string) bool {
	if name == "" {
		return false
	}
	first := []rune(name)[0]
	return !unicode.IsLetter(first) && first != '_'
}
