package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f12lang/f12/internal/bytecode"
)

func TestDisassemble_roundTripsOperands(t *testing.T) {
	var w bytecode.Writer
	w.Op(bytecode.OpPushInt)
	w.Int(2)
	w.Op(bytecode.OpPushInt)
	w.Int(3)
	w.Op(bytecode.OpAddInt)
	w.Op(bytecode.OpMemorySetPush)
	w.Int(4)
	w.Int(1)
	w.Op(bytecode.OpExit)

	insts, err := Disassemble(w.Buf)
	require.NoError(t, err)
	require.Len(t, insts, 5)

	assert.Equal(t, bytecode.OpPushInt, insts[0].Op)
	assert.Equal(t, []interface{}{2}, insts[0].Operands)
	assert.Equal(t, bytecode.OpPushInt, insts[1].Op)
	assert.Equal(t, []interface{}{3}, insts[1].Operands)
	assert.Equal(t, bytecode.OpAddInt, insts[2].Op)
	assert.Empty(t, insts[2].Operands)
	assert.Equal(t, bytecode.OpMemorySetPush, insts[3].Op)
	assert.Equal(t, []interface{}{4, 1}, insts[3].Operands)
	assert.Equal(t, bytecode.OpExit, insts[4].Op)
}

func TestDisassemble_stopsAtStringPoolMarker(t *testing.T) {
	var w bytecode.Writer
	w.Op(bytecode.OpExit)
	poolStart := w.Len()
	w.Op(bytecode.OpMarkerStaticStart)
	stringsStart := w.Len()
	w.String("hello")
	w.String("world")

	insts, err := Disassemble(w.Buf)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.Equal(t, bytecode.OpExit, insts[0].Op)
	assert.Equal(t, bytecode.OpMarkerStaticStart, insts[1].Op)
	assert.Equal(t, poolStart, insts[1].Offset)

	strs, err := DisassembleStrings(w.Buf, stringsStart)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world"}, strs)
}

func TestDisassemble_unknownOpcodeErrors(t *testing.T) {
	var w bytecode.Writer
	w.Op(bytecode.Op(0xffff))

	_, err := Disassemble(w.Buf)
	assert.Error(t, err)
}

func TestDisassemble_truncatedBufferRecoversAsError(t *testing.T) {
	var w bytecode.Writer
	w.Op(bytecode.OpPushInt)
	// no operand bytes written: Reader.Int() will read past the buffer end
	// and panic; Disassemble must recover that into a plain error.

	_, err := Disassemble(w.Buf)
	assert.Error(t, err)
}
