package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"

	"fortio.org/safecast"
)

// Writer appends encoded instructions and operands to an in-memory buffer.
// The emitter embeds one; the VM never writes, only reads, through Reader.
type Writer struct {
	Buf []byte
}

// Len returns the current buffer length, i.e. the byte offset the next
// write will land at.
func (w *Writer) Len() int { return len(w.Buf) }

// Op appends just the 2-byte opcode, for instructions with no operands or
// whose operands are appended separately (labels need their own pending-fixup
// bookkeeping, done by the emitter's Label type, not here).
func (w *Writer) Op(op Op) {
	var b [OpSize]byte
	binary.BigEndian.PutUint16(b[:], uint16(op))
	w.Buf = append(w.Buf, b[:]...)
}

// Int appends a 4-byte signed big-endian integer.
func (w *Writer) Int(v int) {
	n, err := safecast.Convert[int32](v)
	if err != nil {
		panic(fmt.Sprintf("bytecode: int operand out of range: %v", err))
	}
	var b [IntSize]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	w.Buf = append(w.Buf, b[:]...)
}

// Float appends an 8-byte little-endian IEEE-754 float.
func (w *Writer) Float(v float64) {
	var b [FloatSize]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.Buf = append(w.Buf, b[:]...)
}

// Char appends a single byte.
func (w *Writer) Char(v byte) { w.Buf = append(w.Buf, v) }

// Bool appends a single 0/1 byte.
func (w *Writer) Bool(v bool) {
	if v {
		w.Buf = append(w.Buf, 1)
	} else {
		w.Buf = append(w.Buf, 0)
	}
}

// String appends a length-prefixed UTF-8 byte sequence.
func (w *Writer) String(s string) {
	w.Int(len(s))
	w.Buf = append(w.Buf, s...)
}

// PatchInt overwrites the 4-byte int at offset, used by Label to back-patch
// a forward reference once the target address is known.
func (w *Writer) PatchInt(offset int, v int) {
	n, err := safecast.Convert[int32](v)
	if err != nil {
		panic(fmt.Sprintf("bytecode: label offset out of range: %v", err))
	}
	binary.BigEndian.PutUint32(w.Buf[offset:offset+IntSize], uint32(n))
}

// Reader decodes instructions and operands from a fixed byte slice, used by
// both the VM's fetch loop and the disassembler.
type Reader struct {
	Buf []byte
	Pos int
}

func NewReader(buf []byte, pos int) *Reader { return &Reader{Buf: buf, Pos: pos} }

func (r *Reader) Op() Op {
	op := Op(binary.BigEndian.Uint16(r.Buf[r.Pos:]))
	r.Pos += OpSize
	return op
}

func (r *Reader) Int() int {
	v := int32(binary.BigEndian.Uint32(r.Buf[r.Pos:]))
	r.Pos += IntSize
	return int(v)
}

func (r *Reader) Float() float64 {
	bits := binary.LittleEndian.Uint64(r.Buf[r.Pos:])
	r.Pos += FloatSize
	return math.Float64frombits(bits)
}

func (r *Reader) Char() byte {
	v := r.Buf[r.Pos]
	r.Pos++
	return v
}

func (r *Reader) Bool() bool {
	v := r.Buf[r.Pos] != 0
	r.Pos++
	return v
}

func (r *Reader) String() string {
	n := r.Int()
	s := string(r.Buf[r.Pos : r.Pos+n])
	r.Pos += n
	return s
}
