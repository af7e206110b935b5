package diagnostics

import (
	"fmt"

	"github.com/funvibe/lumen/internal/token"
)

// ErrorCode identifies a conformance diagnostic.
type ErrorCode string

const (
	// Top-level conformance failures.
	ErrC001 ErrorCode = "C001" // type does not conform to protocol
	ErrC002 ErrorCode = "C002" // inherited protocol not satisfied
	ErrC003 ErrorCode = "C003" // class-only protocol, non-class type

	// Value requirement failures.
	ErrC004 ErrorCode = "C004" // no viable witness for requirement
	ErrC005 ErrorCode = "C005" // ambiguous witnesses for requirement

	// Associated type failures.
	ErrC006 ErrorCode = "C006" // no type witness for associated type
	ErrC007 ErrorCode = "C007" // ambiguous type witnesses
	ErrC008 ErrorCode = "C008" // candidate type witness violates its constraints

	// Existential self-conformance failures.
	ErrC009 ErrorCode = "C009" // protocol with associated types has no self-conformance
	ErrC010 ErrorCode = "C010" // requirement signature refers to Self

	// Notes.
	ErrC011 ErrorCode = "C011" // suggest declaring inferred conformance explicitly
	ErrC012 ErrorCode = "C012" // describes one attempted witness candidate
)

// Severity distinguishes hard errors from attached notes.
type Severity int

const (
	SeverityError Severity = iota
	SeverityNote
)

func (s Severity) String() string {
	if s == SeverityNote {
		return "note"
	}
	return "error"
}

// Diagnostic is a single emitted message. FixIt, when non-empty, is text to
// insert at FixItPos.
type Diagnostic struct {
	Code     ErrorCode
	Severity Severity
	Pos      token.Position
	Message  string
	FixIt    string
	FixItPos token.Position
}

func (d *Diagnostic) Error() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: %s [%s]: %s", d.Pos, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", d.Severity, d.Code, d.Message)
}

// NewError creates an error-severity diagnostic.
func NewError(code ErrorCode, pos token.Position, message string) *Diagnostic {
	return &Diagnostic{Code: code, Severity: SeverityError, Pos: pos, Message: message}
}

// NewNote creates a note-severity diagnostic.
func NewNote(code ErrorCode, pos token.Position, message string) *Diagnostic {
	return &Diagnostic{Code: code, Severity: SeverityNote, Pos: pos, Message: message}
}

// WithFixIt attaches insertion text to the diagnostic and returns it.
func (d *Diagnostic) WithFixIt(pos token.Position, insert string) *Diagnostic {
	d.FixIt = insert
	d.FixItPos = pos
	return d
}

// Sink receives diagnostics. It is pure reporting: nothing is ever read
// back for control flow.
type Sink interface {
	Emit(*Diagnostic)
}

// Collector is a Sink that accumulates diagnostics in emission order.
type Collector struct {
	Diags []*Diagnostic
}

func (c *Collector) Emit(d *Diagnostic) {
	c.Diags = append(c.Diags, d)
}

// HasErrors reports whether any error-severity diagnostic was collected.
func (c *Collector) HasErrors() bool {
	for _, d := range c.Diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ByCode returns the collected diagnostics carrying the given code.
func (c *Collector) ByCode(code ErrorCode) []*Diagnostic {
	var out []*Diagnostic
	for _, d := range c.Diags {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}
