package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestCheckManifestExpectationsMet(t *testing.T) {
	path := writeManifest(t, `
module: main
protocols:
  - name: Counter
    requirements:
      - kind: function
        name: next
        type: "() -> Int"
types:
  - name: Int
  - name: Clock
    conforms: [Counter]
    members:
      - kind: function
        name: next
        type: "() -> Int"
queries:
  - type: Clock
    protocol: Counter
    expect: conforms
  - type: Int
    protocol: Counter
    expect: fails
`)
	var out bytes.Buffer
	ok, err := checkManifest(&out, path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, out.String())
}

func TestCheckManifestVerbosePrintsSession(t *testing.T) {
	path := writeManifest(t, `
module: main
protocols:
  - name: Counter
    requirements:
      - kind: function
        name: next
        type: "() -> Int"
types:
  - name: Int
  - name: Clock
    conforms: [Counter]
    members:
      - kind: function
        name: next
        type: "() -> Int"
queries:
  - type: Clock
    protocol: Counter
    expect: conforms
`)
	verbose = true
	defer func() { verbose = false }()

	var out bytes.Buffer
	ok, err := checkManifest(&out, path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "session ")
	assert.Contains(t, out.String(), "ok")
}

func TestCheckManifestReportsFailure(t *testing.T) {
	path := writeManifest(t, `
module: main
protocols:
  - name: Counter
    requirements:
      - kind: function
        name: next
        type: "() -> Int"
types:
  - name: Int
  - name: Broken
    conforms: [Counter]
queries:
  - type: Broken
    protocol: Counter
    diagnose: true
    expect: conforms
`)
	var out bytes.Buffer
	ok, err := checkManifest(&out, path)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, out.String(), "FAIL")
	assert.Contains(t, out.String(), "does not conform")
	// The diagnose flag surfaces the checker's diagnostics.
	assert.Contains(t, out.String(), "C004")
}

func TestCheckManifestLoadErrors(t *testing.T) {
	var out bytes.Buffer
	_, err := checkManifest(&out, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeManifest(t, "queries: [")
	_, err = checkManifest(&out, path)
	assert.Error(t, err)
}
