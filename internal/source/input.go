// Package source provides rune-at-a-time reading over a queue of input
// streams, tracking (file, line, column) locations for diagnostics.
package source

import (
	"bytes"
	"fmt"
	"io"

	"github.com/f12lang/f12/internal/runeio"
)

// Location names a single position within a named input.
type Location struct {
	File   string
	Line   int
	Column int
}

func (loc Location) String() string { return fmt.Sprintf("%v:%v:%v", loc.File, loc.Line, loc.Column) }

// Line combines a Location with the text scanned on that line so far.
type Line struct {
	Location
	bytes.Buffer
}

func (il Line) String() string { return fmt.Sprintf("%v %q", il.Location, il.Buffer.String()) }

// NamedReader is an io.Reader that can also report its own name, used for
// diagnostics (the "file" part of a Location).
type NamedReader interface {
	io.Reader
	Name() string
}

// Input implements sequential rune reading through a Queue of one or more
// input streams, read back to back. Include files are not fed through the
// Queue: include resolution lexes and parses each one through its own
// Input. Both the current and prior scanned lines are tracked to support
// diagnostic context windows.
type Input struct {
	rr    io.RuneReader
	Queue []NamedReader
	Prior Line
	Scan  Line
}

// Push appends r to the back of the input queue.
func (in *Input) Push(r NamedReader) {
	in.Queue = append(in.Queue, r)
}

// ReadRune reads one rune from the current input stream, appending it to
// the current Scan line and rolling Scan over to Prior after a line feed.
// When the current stream is exhausted, the next one in Queue is opened
// transparently, so the lexer sees the queued streams as one input.
func (in *Input) ReadRune() (rune, int, error) {
	if in.rr == nil && !in.nextIn() {
		return 0, 0, io.EOF
	}

	r, n, err := in.rr.ReadRune()
	if err != nil {
		if err == io.EOF && in.nextIn() {
			return in.ReadRune()
		}
		return 0, n, err
	}

	if r == '\n' {
		in.nextLine()
	} else {
		in.Scan.WriteRune(r)
		in.Scan.Column++
	}
	return r, n, nil
}

// Loc returns the location of the rune about to be read next.
func (in *Input) Loc() Location {
	if in.rr == nil {
		in.nextIn()
	}
	return in.Scan.Location
}

func (in *Input) nextLine() {
	in.Prior.Reset()
	in.Prior.File = in.Scan.File
	in.Prior.Line = in.Scan.Line
	in.Prior.Write(in.Scan.Bytes())
	in.Scan.Reset()
	in.Scan.Line++
	in.Scan.Column = 1
}

func (in *Input) nextIn() bool {
	if in.rr != nil {
		if cl, ok := in.rr.(io.Closer); ok {
			cl.Close()
		}
		in.rr = nil
	}
	if len(in.Queue) > 0 {
		r := in.Queue[0]
		in.Queue = in.Queue[1:]
		in.rr = runeio.NewReader(r)
		in.Scan = Line{Location: Location{File: r.Name(), Line: 1, Column: 1}}
		return true
	}
	return false
}

// NamedString is a NamedReader over a fixed string, used to feed include
// files and in-memory source text to the lexer.
type NamedString struct {
	*bytes.Reader
	name string
}

// NewNamedString wraps s with name for diagnostics.
func NewNamedString(name, s string) NamedString {
	return NamedString{bytes.NewReader([]byte(s)), name}
}

// Name implements NamedReader.
func (ns NamedString) Name() string { return ns.name }
