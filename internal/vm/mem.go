// Package vm implements the F12 stack machine (spec.md §4.6): a flat fixed
// byte buffer addressed by ip/fp/sp/gp/hp, a fetch-decode-dispatch loop,
// and a first-fit/coalescing free-list heap allocator.
package vm

import (
	"encoding/binary"
	"fmt"
	"math"

	"fortio.org/safecast"
)

// DefaultSize is the default total memory region size (spec.md §4.6: "a
// single flat byte buffer ... of fixed size (e.g. 1 MiB)").
const DefaultSize = 1 << 20

// LimitError reports an out-of-bounds memory access.
type LimitError struct {
	Op     string
	Addr   int
	Length int
	Size   int
}

func (e LimitError) Error() string {
	return fmt.Sprintf("memory %s out of bounds: addr=%d len=%d size=%d", e.Op, e.Addr, e.Length, e.Size)
}

// Bytes is the VM's flat memory region: a single contiguous buffer sized up
// front, never grown (spec.md §4.6 rules out the teacher's on-demand paged
// core -- REDESIGN notwithstanding, this is a deliberate simplification
// spec.md mandates, not an oversight; see DESIGN.md).
type Bytes struct {
	buf []byte
}

// NewBytes allocates a zeroed region of size bytes.
func NewBytes(size int) *Bytes { return &Bytes{buf: make([]byte, size)} }

func (m *Bytes) Len() int { return len(m.buf) }

func (m *Bytes) bounds(op string, addr, length int) error {
	if addr < 0 || length < 0 || addr+length > len(m.buf) {
		return LimitError{Op: op, Addr: addr, Length: length, Size: len(m.buf)}
	}
	return nil
}

// LoadCode copies code into the low portion of the region; the rest stays
// zeroed (spec.md §4.6: "the bytecode is copied into the low portion of
// memory and then zero-padded up to total size").
func (m *Bytes) LoadCode(code []byte) error {
	if err := m.bounds("load-code", 0, len(code)); err != nil {
		return err
	}
	copy(m.buf, code)
	return nil
}

func (m *Bytes) Get(addr, length int) ([]byte, error) {
	if err := m.bounds("get", addr, length); err != nil {
		return nil, err
	}
	return m.buf[addr : addr+length], nil
}

func (m *Bytes) Set(addr int, data []byte) error {
	if err := m.bounds("set", addr, len(data)); err != nil {
		return err
	}
	copy(m.buf[addr:], data)
	return nil
}

func (m *Bytes) Int32(addr int) (int32, error) {
	b, err := m.Get(addr, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (m *Bytes) SetInt32(addr int, v int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return m.Set(addr, b[:])
}

func (m *Bytes) Int(addr int) (int, error) {
	v, err := m.Int32(addr)
	return int(v), err
}

func (m *Bytes) SetInt(addr int, v int) error {
	n, err := safecast.Convert[int32](v)
	if err != nil {
		return fmt.Errorf("memory: int value out of range: %w", err)
	}
	return m.SetInt32(addr, n)
}

func (m *Bytes) Float64(addr int) (float64, error) {
	b, err := m.Get(addr, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (m *Bytes) SetFloat64(addr int, v float64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return m.Set(addr, b[:])
}

func (m *Bytes) Char(addr int) (byte, error) {
	b, err := m.Get(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *Bytes) SetChar(addr int, v byte) error {
	return m.Set(addr, []byte{v})
}

func (m *Bytes) Bool(addr int) (bool, error) {
	b, err := m.Char(addr)
	return b != 0, err
}

func (m *Bytes) SetBool(addr int, v bool) error {
	if v {
		return m.SetChar(addr, 1)
	}
	return m.SetChar(addr, 0)
}

// String reads a length-prefixed string starting at addr: a 4-byte int
// length followed by that many raw bytes.
func (m *Bytes) String(addr int) (string, error) {
	n, err := m.Int(addr)
	if err != nil {
		return "", err
	}
	b, err := m.Get(addr+4, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
