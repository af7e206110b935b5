package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/lumen/internal/conformance"
	"github.com/funvibe/lumen/internal/decl"
	"github.com/funvibe/lumen/internal/diagnostics"
	"github.com/funvibe/lumen/internal/types"
)

const sequenceManifest = `
module: main
protocols:
  - name: Sequence
    associated_types:
      - name: Item
    requirements:
      - kind: function
        name: next
        type: "() -> Item"
types:
  - name: Int
  - name: Counter
    conforms: [Sequence]
    members:
      - kind: function
        name: next
        type: "() -> Int"
queries:
  - type: Counter
    protocol: Sequence
    expect: conforms
`

func TestBuildSequenceManifest(t *testing.T) {
	m, err := Parse([]byte(sequenceManifest), "seq.yaml")
	require.NoError(t, err)
	assert.Equal(t, "main", m.Module)

	universe, queries, err := Build(m)
	require.NoError(t, err)
	require.Len(t, queries, 1)

	p, ok := universe.Protocol("Sequence")
	require.True(t, ok)
	require.Len(t, p.Requirements, 2)
	assert.Equal(t, decl.ReqAssociatedType, p.Requirements[0].Kind)

	// The requirement's result type must be the associated type's
	// archetype, not a fresh nominal.
	next := p.Requirements[1]
	fn, ok := next.Type.(types.Func)
	require.True(t, ok)
	assert.Same(t, p.Requirements[0].Archetype, fn.Result)

	// Positions come from the YAML nodes.
	assert.Equal(t, "seq.yaml", p.Pos.File)
	assert.True(t, p.Pos.Line > 0)

	// The built universe answers the manifest's query.
	sink := &diagnostics.Collector{}
	checker := conformance.NewChecker(universe, sink)
	rec, ok := checker.ConformsTo(queries[0].Type, queries[0].Protocol)
	require.True(t, ok)
	tw, ok := rec.TypeWitness("Item")
	require.True(t, ok)
	assert.Equal(t, "Int", tw.Replacement.String())
	assert.True(t, rec.Deduced("Item"))
}

func TestBuildGenericTypeAndOperator(t *testing.T) {
	src := `
module: main
protocols:
  - name: Equatable
    requirements:
      - kind: function
        name: "=="
        type: "(Self, Self) -> Bool"
        static: true
types:
  - name: Bool
  - name: Box
    params:
      - name: T
    conforms: [Equatable]
    type_members:
      - name: Element
        type: T
operators:
  - name: "=="
    static: true
    params:
      - name: U
    type: "(Box<U>, Box<U>) -> Bool"
`
	m, err := Parse([]byte(src), "box.yaml")
	require.NoError(t, err)
	universe, _, err := Build(m)
	require.NoError(t, err)

	box, ok := universe.Type("Box")
	require.True(t, ok)
	require.Len(t, box.Params, 1)
	// The nested type resolves to the generic parameter's archetype.
	require.Len(t, box.Types, 1)
	assert.Same(t, box.Params[0], box.Types[0].Type)

	ops := universe.LookupOperator("==")
	require.Len(t, ops, 1)
	require.Len(t, ops[0].Archetypes, 1)
	assert.True(t, ops[0].Static)
}

func TestBuildExtensionModuleAttribution(t *testing.T) {
	src := `
module: core
types:
  - name: S
    extensions:
      - module: compat
        conforms: [P]
protocols:
  - name: P
`
	m, err := Parse([]byte(src), "ext.yaml")
	require.NoError(t, err)
	universe, _, err := Build(m)
	require.NoError(t, err)

	s, ok := universe.Type("S")
	require.True(t, ok)
	require.Len(t, s.Extensions, 1)
	assert.Equal(t, "compat", s.Extensions[0].Module.Name)
	assert.Equal(t, "core", s.Module.Name)
}

func TestBuildRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "unknown requirement kind",
			src: `
protocols:
  - name: P
    requirements:
      - kind: method
        name: f
        type: "() -> Int"
`,
		},
		{
			name: "query names unknown protocol",
			src: `
queries:
  - type: Int
    protocol: Nowhere
`,
		},
		{
			name: "bad expectation",
			src: `
protocols:
  - name: P
queries:
  - type: Int
    protocol: P
    expect: maybe
`,
		},
		{
			name: "duplicate protocol",
			src: `
protocols:
  - name: P
  - name: P
`,
		},
		{
			name: "unparsable member type",
			src: `
types:
  - name: S
    members:
      - kind: function
        name: f
        type: "() ->"
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.src), "bad.yaml")
			require.NoError(t, err)
			_, _, err = Build(m)
			assert.Error(t, err)
		})
	}
}
