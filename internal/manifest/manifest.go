// Package manifest loads declaration manifests: YAML files describing
// protocols, nominal types, global operators, and the conformance queries
// to run against them. Manifests are the driver's input format; they stand
// in for a real frontend.
package manifest

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/lumen/internal/token"
)

// node remembers where a YAML value was written, for diagnostics.
type node struct {
	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

func (n *node) capture(value *yaml.Node) {
	n.Line = value.Line
	n.Column = value.Column
}

func (n *node) position(file string) token.Position {
	return token.Position{File: file, Line: n.Line, Column: n.Column}
}

// Manifest is the top-level document.
type Manifest struct {
	// File is the path the manifest was loaded from, not a YAML field.
	File string `yaml:"-"`

	Module    string          `yaml:"module"`
	Protocols []*ProtocolSpec `yaml:"protocols"`
	Types     []*TypeSpec     `yaml:"types"`
	Operators []*OperatorSpec `yaml:"operators"`
	Queries   []*QuerySpec    `yaml:"queries"`
}

// ProtocolSpec declares one protocol.
type ProtocolSpec struct {
	node              `yaml:"-"`
	Name              string             `yaml:"name"`
	Inherits          []string           `yaml:"inherits"`
	ClassOnly         bool               `yaml:"class_only"`
	LabelsSignificant bool               `yaml:"labels_significant"`
	AssociatedTypes   []*AssocSpec       `yaml:"associated_types"`
	Requirements      []*RequirementSpec `yaml:"requirements"`
}

func (p *ProtocolSpec) UnmarshalYAML(value *yaml.Node) error {
	type raw ProtocolSpec
	if err := value.Decode((*raw)(p)); err != nil {
		return err
	}
	p.capture(value)
	return nil
}

// AssocSpec declares an associated-type requirement.
type AssocSpec struct {
	node        `yaml:"-"`
	Name        string   `yaml:"name"`
	Constraints []string `yaml:"constraints"`
}

func (a *AssocSpec) UnmarshalYAML(value *yaml.Node) error {
	type raw AssocSpec
	if err := value.Decode((*raw)(a)); err != nil {
		return err
	}
	a.capture(value)
	return nil
}

// RequirementSpec declares a value requirement. Kind is one of "function",
// "property", "subscript".
type RequirementSpec struct {
	node    `yaml:"-"`
	Kind    string `yaml:"kind"`
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Static  bool   `yaml:"static"`
	Prefix  bool   `yaml:"prefix"`
	Postfix bool   `yaml:"postfix"`
}

func (r *RequirementSpec) UnmarshalYAML(value *yaml.Node) error {
	type raw RequirementSpec
	if err := value.Decode((*raw)(r)); err != nil {
		return err
	}
	r.capture(value)
	return nil
}

// ParamSpec declares one generic parameter of a type, member, or operator.
type ParamSpec struct {
	Name        string   `yaml:"name"`
	Constraints []string `yaml:"constraints"`
}

// TypeSpec declares a nominal type.
type TypeSpec struct {
	node        `yaml:"-"`
	Name        string            `yaml:"name"`
	Class       bool              `yaml:"class"`
	Superclass  string            `yaml:"superclass"`
	Params      []*ParamSpec      `yaml:"params"`
	Conforms    []string          `yaml:"conforms"`
	Members     []*MemberSpec     `yaml:"members"`
	TypeMembers []*TypeMemberSpec `yaml:"type_members"`
	Extensions  []*ExtensionSpec  `yaml:"extensions"`
}

func (t *TypeSpec) UnmarshalYAML(value *yaml.Node) error {
	type raw TypeSpec
	if err := value.Decode((*raw)(t)); err != nil {
		return err
	}
	t.capture(value)
	return nil
}

// MemberSpec declares a value member of a type or extension.
type MemberSpec struct {
	node    `yaml:"-"`
	Kind    string       `yaml:"kind"`
	Name    string       `yaml:"name"`
	Type    string       `yaml:"type"`
	Static  bool         `yaml:"static"`
	Prefix  bool         `yaml:"prefix"`
	Postfix bool         `yaml:"postfix"`
	Invalid bool         `yaml:"invalid"`
	Params  []*ParamSpec `yaml:"params"`
}

func (m *MemberSpec) UnmarshalYAML(value *yaml.Node) error {
	type raw MemberSpec
	if err := value.Decode((*raw)(m)); err != nil {
		return err
	}
	m.capture(value)
	return nil
}

// TypeMemberSpec declares a nested type or alias.
type TypeMemberSpec struct {
	node `yaml:"-"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

func (t *TypeMemberSpec) UnmarshalYAML(value *yaml.Node) error {
	type raw TypeMemberSpec
	if err := value.Decode((*raw)(t)); err != nil {
		return err
	}
	t.capture(value)
	return nil
}

// ExtensionSpec adds members and conformances to a declared type.
type ExtensionSpec struct {
	node        `yaml:"-"`
	Module      string            `yaml:"module"`
	Conforms    []string          `yaml:"conforms"`
	Members     []*MemberSpec     `yaml:"members"`
	TypeMembers []*TypeMemberSpec `yaml:"type_members"`
}

func (e *ExtensionSpec) UnmarshalYAML(value *yaml.Node) error {
	type raw ExtensionSpec
	if err := value.Decode((*raw)(e)); err != nil {
		return err
	}
	e.capture(value)
	return nil
}

// OperatorSpec declares a global operator function.
type OperatorSpec struct {
	node    `yaml:"-"`
	Name    string       `yaml:"name"`
	Type    string       `yaml:"type"`
	Static  bool         `yaml:"static"`
	Prefix  bool         `yaml:"prefix"`
	Postfix bool         `yaml:"postfix"`
	Params  []*ParamSpec `yaml:"params"`
}

func (o *OperatorSpec) UnmarshalYAML(value *yaml.Node) error {
	type raw OperatorSpec
	if err := value.Decode((*raw)(o)); err != nil {
		return err
	}
	o.capture(value)
	return nil
}

// QuerySpec is one conformance question to ask, with an optional expected
// answer. Expect is "conforms", "fails", or empty for report-only.
type QuerySpec struct {
	node     `yaml:"-"`
	Type     string `yaml:"type"`
	Protocol string `yaml:"protocol"`
	Diagnose bool   `yaml:"diagnose"`
	Expect   string `yaml:"expect"`
}

func (q *QuerySpec) UnmarshalYAML(value *yaml.Node) error {
	type raw QuerySpec
	if err := value.Decode((*raw)(q)); err != nil {
		return err
	}
	q.capture(value)
	return nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading manifest")
	}
	return Parse(data, path)
}

// Parse parses manifest bytes. file is used in positions only.
func Parse(data []byte, file string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parsing manifest %s", file)
	}
	m.File = file
	return &m, nil
}
