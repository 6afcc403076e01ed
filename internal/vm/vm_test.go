package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f12lang/f12/internal/bytecode"
)

// runProgram loads and runs a hand-assembled program, returning the VM (for
// memory/heap introspection) and whatever it wrote to stdout.
func runProgram(t *testing.T, code []byte, heapSize int) (*VM, string) {
	t.Helper()
	var out bytes.Buffer
	m := New(WithMemSize(4096), WithStdout(&out))
	require.NoError(t, m.Load(code, heapSize), "must load program")
	require.NoError(t, m.Run(), "must run without error")
	return m, out.String()
}

func TestVM_arithmeticAndOutput(t *testing.T) {
	var w bytecode.Writer
	w.Op(bytecode.OpPushInt)
	w.Int(2)
	w.Op(bytecode.OpPushInt)
	w.Int(3)
	w.Op(bytecode.OpAddInt)
	w.Op(bytecode.OpToStdoutInt)
	w.Op(bytecode.OpExit)

	_, out := runProgram(t, w.Buf, 256)
	assert.Equal(t, "5", out)
}

func TestVM_binaryOperandOrderIsLeftThenRight(t *testing.T) {
	// 10 - 3 must read 7, not -7: the emitter pushes left then right, and
	// the VM must pop right first (it's on top) so it subtracts in the
	// right direction.
	var w bytecode.Writer
	w.Op(bytecode.OpPushInt)
	w.Int(10)
	w.Op(bytecode.OpPushInt)
	w.Int(3)
	w.Op(bytecode.OpSubInt)
	w.Op(bytecode.OpToStdoutInt)
	w.Op(bytecode.OpExit)

	_, out := runProgram(t, w.Buf, 256)
	assert.Equal(t, "7", out)
}

func TestVM_divisionByZeroHalts(t *testing.T) {
	var w bytecode.Writer
	w.Op(bytecode.OpPushInt)
	w.Int(1)
	w.Op(bytecode.OpPushInt)
	w.Int(0)
	w.Op(bytecode.OpDivInt)
	w.Op(bytecode.OpExit)

	var out bytes.Buffer
	m := New(WithMemSize(4096), WithStdout(&out))
	require.NoError(t, m.Load(w.Buf, 256))
	assert.EqualError(t, m.Run(), "division by zero")
}

// TestVM_popPushNDuplicatesForAssignmentResult exercises the corrected
// POP_PUSH_N semantics: pop the top n bytes, then push k copies of them
// back. The emitter uses this to make `v = e` usable as an expression: one
// copy is consumed by the store, the other survives as the result.
func TestVM_popPushNDuplicatesForAssignmentResult(t *testing.T) {
	var w bytecode.Writer
	w.Op(bytecode.OpPushInt)
	w.Int(7)
	w.Op(bytecode.OpPopPushN)
	w.Int(bytecode.IntSize)
	w.Int(2)
	w.Op(bytecode.OpToStdoutInt) // consumes one copy
	w.Op(bytecode.OpToStdoutInt) // consumes the other
	w.Op(bytecode.OpExit)

	_, out := runProgram(t, w.Buf, 256)
	assert.Equal(t, "77", out)
}

// TestVM_memorySetAddressIsPoppedFirst exercises the assignment-lowering
// shape `emit value, duplicate, emit address, MEMORY_SET`: the address is
// computed and pushed last (so it sits on top of the value to store) and
// MEMORY_SET must pop it first, then the value beneath it, leaving the
// other duplicated value copy as the expression's own result.
func TestVM_memorySetAddressIsPoppedFirst(t *testing.T) {
	const heapSize = 256
	var w bytecode.Writer
	w.Op(bytecode.OpPushInt)
	w.Int(42) // value
	w.Op(bytecode.OpPopPushN)
	w.Int(bytecode.IntSize)
	w.Int(2) // [42, 42]
	w.Op(bytecode.OpPushInt)
	w.Int(4)
	w.Op(bytecode.OpMemoryAllocate) // [42, 42, addr]
	w.Op(bytecode.OpMemorySet)
	w.Int(bytecode.IntSize) // pop addr, pop 42; write; leaves [42]
	w.Op(bytecode.OpToStdoutInt)
	w.Op(bytecode.OpExit)

	m, out := runProgram(t, w.Buf, heapSize)
	assert.Equal(t, "42", out, "the preserved duplicate is the expression's result")

	addr := m.heap.base + headerSize
	v, err := m.mem.Int(addr)
	require.NoError(t, err)
	assert.Equal(t, 42, v, "the write landed at the allocated address, not the value 42")
}

// TestVM_memorySetPushWalksARunningAddress exercises the running-address
// idiom the emitter uses to build array literals and units: the address
// sits beneath the value being written (value pushed last, on top), and
// MEMORY_SET_PUSH re-pushes that same address afterward so the next write
// can advance from it without re-duplicating the original base.
func TestVM_memorySetPushWalksARunningAddress(t *testing.T) {
	var w bytecode.Writer
	w.Op(bytecode.OpPushInt)
	w.Int(8)
	w.Op(bytecode.OpMemoryAllocate) // [base]

	w.Op(bytecode.OpPushInt)
	w.Int(10) // [base, 10]
	w.Op(bytecode.OpMemorySetPush)
	w.Int(bytecode.IntSize)
	w.Int(1) // write 10@base, re-push base -> [base]

	w.Op(bytecode.OpPushInt)
	w.Int(4)
	w.Op(bytecode.OpAddInt) // [base+4]
	w.Op(bytecode.OpPushInt)
	w.Int(20) // [base+4, 20]
	w.Op(bytecode.OpMemorySetPush)
	w.Int(bytecode.IntSize)
	w.Int(1) // write 20@base+4, re-push base+4 -> [base+4]

	w.Op(bytecode.OpPushInt)
	w.Int(-4)
	w.Op(bytecode.OpAddInt) // rewind to base -> [base]

	w.Op(bytecode.OpPopPushN)
	w.Int(bytecode.IntSize)
	w.Int(2) // [base, base]
	w.Op(bytecode.OpMemoryGet)
	w.Int(bytecode.IntSize) // [base, 10]
	w.Op(bytecode.OpToStdoutInt)

	w.Op(bytecode.OpPushInt)
	w.Int(4)
	w.Op(bytecode.OpAddInt)
	w.Op(bytecode.OpMemoryGet)
	w.Int(bytecode.IntSize)
	w.Op(bytecode.OpToStdoutInt)
	w.Op(bytecode.OpExit)

	_, out := runProgram(t, w.Buf, 256)
	assert.Equal(t, "1020", out)
}

// TestVM_callingConvention builds a one-argument call by hand (FN_CALL_BEGIN
// reserving the three saved slots, the arg pushed, FN_CALL computing the new
// frame, RET_VALUE unwinding it with a result) and checks the callee sees
// its argument at local slot 0 and the caller sees the returned value.
func TestVM_callingConvention(t *testing.T) {
	var w bytecode.Writer

	w.Op(bytecode.OpFnCallBegin)
	w.Op(bytecode.OpPushInt)
	w.Int(21)
	w.Op(bytecode.OpFnCall)
	targetPos := w.Len()
	w.Int(0) // patched below
	w.Int(bytecode.IntSize)
	w.Op(bytecode.OpToStdoutInt)
	w.Op(bytecode.OpExit)

	funcStart := w.Len()
	w.PatchInt(targetPos, funcStart)
	w.Op(bytecode.OpGetLocal)
	w.Int(0)
	w.Int(bytecode.IntSize)
	w.Op(bytecode.OpPushInt)
	w.Int(2)
	w.Op(bytecode.OpMulInt)
	w.Op(bytecode.OpRetValue)
	w.Int(bytecode.IntSize)

	_, out := runProgram(t, w.Buf, 256)
	assert.Equal(t, "42", out)
}

// TestVM_voidReturnUnwindsFrame checks plain RET (no value) still restores
// the caller's ip/fp/sp and resumes execution right after the call.
func TestVM_voidReturnUnwindsFrame(t *testing.T) {
	var w bytecode.Writer

	w.Op(bytecode.OpFnCallBegin)
	w.Op(bytecode.OpFnCall)
	targetPos := w.Len()
	w.Int(0)
	w.Int(0)
	w.Op(bytecode.OpPushInt)
	w.Int(9)
	w.Op(bytecode.OpToStdoutInt)
	w.Op(bytecode.OpExit)

	funcStart := w.Len()
	w.PatchInt(targetPos, funcStart)
	w.Op(bytecode.OpRet)

	_, out := runProgram(t, w.Buf, 256)
	assert.Equal(t, "9", out)
}

// TestVM_globalsAddressRelativeToGp exercises SET_GLOBAL/GET_GLOBAL's
// addressing directly: slot is 0-based, relative to gp (the byte offset
// right after the program's code, spec.md §4.6), not an absolute address.
// A global left uninitialized must read back zero rather than whatever
// bytes happen to sit at its raw slot number in the code region.
func TestVM_globalsAddressRelativeToGp(t *testing.T) {
	var w bytecode.Writer
	w.Op(bytecode.OpAllocateInStack)
	w.Int(2 * bytecode.IntSize) // two int globals: slot 0, slot 4

	w.Op(bytecode.OpPushInt)
	w.Int(99)
	w.Op(bytecode.OpSetGlobal)
	w.Int(0)
	w.Int(bytecode.IntSize)

	// slot 4 is left uninitialized: no SET_GLOBAL for it.

	w.Op(bytecode.OpGetGlobal)
	w.Int(0)
	w.Int(bytecode.IntSize)
	w.Op(bytecode.OpToStdoutInt)

	w.Op(bytecode.OpGetGlobal)
	w.Int(bytecode.IntSize)
	w.Int(bytecode.IntSize)
	w.Op(bytecode.OpToStdoutInt)
	w.Op(bytecode.OpExit)

	m, out := runProgram(t, w.Buf, 256)
	assert.Equal(t, "990", out, "initialized global reads back its value; uninitialized global reads back zero")

	v, err := m.mem.Int(m.gp)
	require.NoError(t, err)
	assert.Equal(t, 99, v, "SET_GLOBAL at slot 0 must land at gp+0, not raw address 0 in the code region")
}

func TestVM_stdin(t *testing.T) {
	var w bytecode.Writer
	w.Op(bytecode.OpFromStdin)
	w.Op(bytecode.OpToStdoutChar)
	w.Op(bytecode.OpFromStdin) // past EOF
	w.Op(bytecode.OpToStdoutChar)
	w.Op(bytecode.OpExit)

	var out bytes.Buffer
	m := New(WithMemSize(4096), WithStdout(&out), WithStdin(bytes.NewReader([]byte("a"))))
	require.NoError(t, m.Load(w.Buf, 256))
	require.NoError(t, m.Run())
	assert.Equal(t, "a\x00", out.String(), "EOF reads back as char 0")
}
