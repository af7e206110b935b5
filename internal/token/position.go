package token

import "fmt"

// Position identifies a location in a source file. The zero value is an
// invalid ("unknown") position; diagnostics emitted with it are still
// collected but carry no location.
type Position struct {
	File   string
	Line   int
	Column int
}

// IsValid reports whether the position points at an actual source location.
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if !p.IsValid() {
		return "<unknown>"
	}
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}
