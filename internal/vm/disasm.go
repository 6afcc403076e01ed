package vm

import (
	"fmt"
	"strings"

	"github.com/f12lang/f12/internal/bytecode"
)

// Instruction is one decoded instruction: its byte offset, opcode, and the
// operands in the order bytecode.Schema declares them for that opcode.
type Instruction struct {
	Offset   int
	Op       bytecode.Op
	Operands []interface{}
}

func (in Instruction) String() string {
	if len(in.Operands) == 0 {
		return fmt.Sprintf("@%-6d %v", in.Offset, in.Op)
	}
	parts := make([]string, len(in.Operands))
	for i, v := range in.Operands {
		parts[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("@%-6d %v %s", in.Offset, in.Op, strings.Join(parts, " "))
}

// Disassemble decodes code into its instruction sequence, stopping at the
// first MARKER_STATIC_START (the string pool that follows is data, not
// instructions) or at end of buffer. It is used only by this package's own
// round-trip tests (spec.md §8); the VM itself executes bytecode directly
// via fetchOp/dispatch, never through this path.
func Disassemble(code []byte) (insts []Instruction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("disasm: %v", r)
		}
	}()

	r := bytecode.NewReader(code, 0)
	for r.Pos < len(code) {
		offset := r.Pos
		op := r.Op()
		if op == bytecode.OpMarkerStaticStart {
			insts = append(insts, Instruction{Offset: offset, Op: op})
			break
		}
		schema, ok := bytecode.Schema[op]
		if !ok {
			return insts, fmt.Errorf("disasm: unknown opcode 0x%04x at offset %d", uint16(op), offset)
		}
		operands := make([]interface{}, 0, len(schema))
		for _, kind := range schema {
			switch kind {
			case bytecode.OperandInt, bytecode.OperandLabel:
				operands = append(operands, r.Int())
			case bytecode.OperandFloat:
				operands = append(operands, r.Float())
			case bytecode.OperandChar:
				operands = append(operands, r.Char())
			case bytecode.OperandBool:
				operands = append(operands, r.Bool())
			case bytecode.OperandString:
				operands = append(operands, r.String())
			}
		}
		insts = append(insts, Instruction{Offset: offset, Op: op, Operands: operands})
	}
	return insts, nil
}

// DisassembleStrings decodes the string pool following a MARKER_STATIC_START
// at offset start: a flat sequence of length-prefixed strings running to the
// end of code.
func DisassembleStrings(code []byte, start int) (strs []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("disasm: %v", r)
		}
	}()
	r := bytecode.NewReader(code, start)
	for r.Pos < len(code) {
		strs = append(strs, r.String())
	}
	return strs, nil
}
