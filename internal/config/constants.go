package config

const ManifestFileExt = ".yaml"

// ManifestFileExtensions are all recognized manifest file extensions
var ManifestFileExtensions = []string{".yaml", ".yml"}

// Names of the implicit declarations every protocol carries.
const (
	SelfTypeName = "Self"
)

// Expectation values a manifest query may carry.
const (
	ExpectConforms = "conforms"
	ExpectFails    = "fails"
)
