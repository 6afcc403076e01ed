// Package diag renders source-anchored diagnostics for the five error
// taxonomies spec.md §7 describes: lexing, parsing, semantic, emission and
// runtime. Lexing/parsing/emission errors are fatal (a single sentinel
// result); semantic errors accumulate behind a shared counter.
package diag

import (
	"fmt"
	"strings"

	"fortio.org/log"

	"github.com/f12lang/f12/internal/source"
)

// Kind names which taxonomy a Diagnostic belongs to.
type Kind string

const (
	Lexing    Kind = "lexing"
	Parsing   Kind = "parsing"
	Semantic  Kind = "names resolution"
	TypeError Kind = "type mismatch"
	Include   Kind = "include"
	EntryPt   Kind = "entry point"
)

// Diagnostic is a single rendered error: a taxonomy, a cause and a location.
type Diagnostic struct {
	Kind    Kind
	Message string
	Loc     source.Location
	Prior   string // previous source line, if any
	Current string // current source line
	Next    string // next non-empty source line, if any
}

// Error implements error, rendering file:line:column, cause and a 3-line
// context window with a caret under the offending column.
func (d Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %s: %s\n", d.Loc, d.Kind, d.Message)
	if d.Prior != "" {
		fmt.Fprintf(&b, "  %s\n", d.Prior)
	}
	fmt.Fprintf(&b, "  %s\n", d.Current)
	fmt.Fprintf(&b, "  %s^\n", strings.Repeat(" ", max(0, d.Loc.Column-1)))
	if d.Next != "" {
		fmt.Fprintf(&b, "  %s\n", d.Next)
	}
	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Window renders a 3-line context around loc, given access to the prior and
// current scanned lines (as tracked by source.Input) and the next
// non-empty line of text (empty if not available).
func Window(kind Kind, message string, loc source.Location, prior, current, next string) Diagnostic {
	return Diagnostic{Kind: kind, Message: message, Loc: loc, Prior: prior, Current: current, Next: next}
}

// Fatal wraps a Diagnostic as the single sentinel error a lexer or parser
// entry point returns; the caller unwinds to the driver without attempting
// to recover a partial result. It also logs the diagnostic at Error level
// through fortio.org/log so a headless pipeline run still surfaces it.
func Fatal(d Diagnostic) error {
	log.Errf("%s", d.Error())
	return d
}

// Counter accumulates semantic-phase errors (spec.md §7 taxonomy 3): many
// are reported, but emission is skipped once the count is nonzero.
type Counter struct {
	diags []Diagnostic
}

// Report records a semantic diagnostic and logs it immediately (multiple
// semantic errors are reported together, unlike the fatal taxonomies).
func (c *Counter) Report(kind Kind, message string, loc source.Location) {
	d := Diagnostic{Kind: kind, Message: message, Loc: loc}
	c.diags = append(c.diags, d)
	log.Errf("%s", d.Error())
}

// ReportWindow is like Report but with a full 3-line context window.
func (c *Counter) ReportWindow(d Diagnostic) {
	c.diags = append(c.diags, d)
	log.Errf("%s", d.Error())
}

// Count returns the number of semantic errors accumulated so far.
func (c *Counter) Count() int { return len(c.diags) }

// Diagnostics returns all accumulated semantic diagnostics, in report order.
func (c *Counter) Diagnostics() []Diagnostic { return c.diags }

// EmitError is an internal invariant violation in the bytecode emitter
// (spec.md §7 taxonomy 4): an instruction operand-arity mismatch or an
// undefined instruction. These are bugs, not user errors. The emitter
// itself panics with plain string messages, not with an EmitError;
// internal/panicerr turns any such panic back into a returned error at
// the compile.Compile boundary.
type EmitError struct {
	Message string
}

func (e EmitError) Error() string { return "emit: " + e.Message }

// RuntimeError is a VM execution failure (spec.md §7 taxonomy 5): unknown
// opcode, out-of-memory, division by zero, malformed pointer. The VM does
// not return this type: its Run reports such failures as the plain errors
// its halts carry.
type RuntimeError struct {
	Message string
	IP      uint32
}

func (e RuntimeError) Error() string { return fmt.Sprintf("runtime error @%d: %s", e.IP, e.Message) }
