// Package bytecode defines the F12 instruction set and its binary encoding
// (spec.md §4.4, §4.5): a 2-byte big-endian opcode followed by a fixed
// operand schema per opcode, shared between the emitter and the VM's
// disassembler so the two never drift apart.
package bytecode

// Op is an instruction opcode.
type Op uint16

const (
	// stack
	OpPop Op = 0x10 + iota
	OpPopPushN
	OpPushInt
	OpPushFloat
	OpPushChar
	OpPushBool
)

const (
	// memory slots
	OpAllocateInStack Op = 0x20 + iota
	OpSetLocal
	OpGetLocal
	OpSetGlobal
	OpGetGlobal
)

const (
	// control flow
	OpFnCallBegin Op = 0x30 + iota
	OpFnCall
	OpRet
	OpRetValue
	OpJz
	OpJmp
)

const (
	// arithmetic: int then float variants, then unary
	OpAddInt Op = 0x40 + iota
	OpSubInt
	OpMulInt
	OpDivInt
	OpModInt
	OpPowInt
	OpAddFloat
	OpSubFloat
	OpMulFloat
	OpDivFloat
	OpModFloat
	OpPowFloat
	OpNegInt
	OpPosInt
	OpNegFloat
	OpPosFloat
)

const (
	// logic, equality, comparison
	OpNot Op = 0x50 + iota
	OpOr
	OpAnd
	OpEq
	OpNe
	OpLtInt
	OpLeInt
	OpGtInt
	OpGeInt
	OpLtFloat
	OpLeFloat
	OpGtFloat
	OpGeFloat
)

const (
	// heap
	OpMemoryAllocate Op = 0x60 + iota
	OpMemoryFree
	OpMemorySet
	OpMemorySetPush
	OpMemoryGet
)

const (
	// I/O
	OpToStdoutInt Op = 0x70 + iota
	OpToStdoutFloat
	OpToStdoutString
	OpToStdoutChar
	OpToStdoutBool
	OpFromStdin
)

const (
	OpMarkerStaticStart Op = 0xE0
	OpExit              Op = 0xE1
)

// OperandKind names the wire shape of one instruction operand.
type OperandKind int

const (
	OperandInt    OperandKind = iota // 4 bytes, signed, big-endian
	OperandFloat                     // 8 bytes, IEEE-754, little-endian
	OperandChar                      // 1 byte
	OperandBool                      // 1 byte, 0 or 1
	OperandString                    // int length prefix + raw bytes
	OperandLabel                     // encoded as OperandInt: a resolved byte offset
)

// Schema is the fixed operand list of one opcode (spec.md §4.4: "Each
// instruction type has a fixed operand schema declared in a table used by
// both emitter and disassembler").
var Schema = map[Op][]OperandKind{
	OpPop:        {OperandInt},
	OpPopPushN:   {OperandInt, OperandInt},
	OpPushInt:    {OperandInt},
	OpPushFloat:  {OperandFloat},
	OpPushChar:   {OperandChar},
	OpPushBool:   {OperandBool},

	OpAllocateInStack: {OperandInt},
	OpSetLocal:        {OperandInt, OperandInt},
	OpGetLocal:        {OperandInt, OperandInt},
	OpSetGlobal:       {OperandInt, OperandInt},
	OpGetGlobal:       {OperandInt, OperandInt},

	OpFnCallBegin: {},
	OpFnCall:      {OperandLabel, OperandInt},
	OpRet:         {},
	OpRetValue:    {OperandInt},
	OpJz:          {OperandLabel},
	OpJmp:         {OperandLabel},

	OpAddInt: {}, OpSubInt: {}, OpMulInt: {}, OpDivInt: {}, OpModInt: {}, OpPowInt: {},
	OpAddFloat: {}, OpSubFloat: {}, OpMulFloat: {}, OpDivFloat: {}, OpModFloat: {}, OpPowFloat: {},
	OpNegInt: {}, OpPosInt: {}, OpNegFloat: {}, OpPosFloat: {},

	OpNot: {}, OpOr: {}, OpAnd: {},
	OpEq: {OperandInt}, OpNe: {OperandInt},
	OpLtInt: {}, OpLeInt: {}, OpGtInt: {}, OpGeInt: {},
	OpLtFloat: {}, OpLeFloat: {}, OpGtFloat: {}, OpGeFloat: {},

	OpMemoryAllocate: {},
	OpMemoryFree:     {},
	OpMemorySet:      {OperandInt},
	OpMemorySetPush:  {OperandInt, OperandInt},
	OpMemoryGet:      {OperandInt},

	OpToStdoutInt: {}, OpToStdoutFloat: {}, OpToStdoutString: {}, OpToStdoutChar: {}, OpToStdoutBool: {},
	OpFromStdin: {},

	OpMarkerStaticStart: {},
	OpExit:               {},
}

var names = map[Op]string{
	OpPop: "POP", OpPopPushN: "POP_PUSH_N", OpPushInt: "PUSH_INT", OpPushFloat: "PUSH_FLOAT",
	OpPushChar: "PUSH_CHAR", OpPushBool: "PUSH_BOOL",
	OpAllocateInStack: "ALLOCATE_IN_STACK", OpSetLocal: "SET_LOCAL", OpGetLocal: "GET_LOCAL",
	OpSetGlobal: "SET_GLOBAL", OpGetGlobal: "GET_GLOBAL",
	OpFnCallBegin: "FN_CALL_BEGIN", OpFnCall: "FN_CALL", OpRet: "RET", OpRetValue: "RET_VALUE",
	OpJz: "JZ", OpJmp: "JMP",
	OpAddInt: "ADD_INT", OpSubInt: "SUB_INT", OpMulInt: "MUL_INT", OpDivInt: "DIV_INT",
	OpModInt: "MOD_INT", OpPowInt: "POW_INT",
	OpAddFloat: "ADD_FLOAT", OpSubFloat: "SUB_FLOAT", OpMulFloat: "MUL_FLOAT", OpDivFloat: "DIV_FLOAT",
	OpModFloat: "MOD_FLOAT", OpPowFloat: "POW_FLOAT",
	OpNegInt: "NEG_INT", OpPosInt: "POS_INT", OpNegFloat: "NEG_FLOAT", OpPosFloat: "POS_FLOAT",
	OpNot: "NOT", OpOr: "OR", OpAnd: "AND", OpEq: "EQ", OpNe: "NE",
	OpLtInt: "LT_INT", OpLeInt: "LE_INT", OpGtInt: "GT_INT", OpGeInt: "GE_INT",
	OpLtFloat: "LT_FLOAT", OpLeFloat: "LE_FLOAT", OpGtFloat: "GT_FLOAT", OpGeFloat: "GE_FLOAT",
	OpMemoryAllocate: "MEMORY_ALLOCATE", OpMemoryFree: "MEMORY_FREE", OpMemorySet: "MEMORY_SET",
	OpMemorySetPush: "MEMORY_SET_PUSH", OpMemoryGet: "MEMORY_GET",
	OpToStdoutInt: "TO_STDOUT_INT", OpToStdoutFloat: "TO_STDOUT_FLOAT", OpToStdoutString: "TO_STDOUT_STRING",
	OpToStdoutChar: "TO_STDOUT_CHAR", OpToStdoutBool: "TO_STDOUT_BOOL", OpFromStdin: "FROM_STDIN",
	OpMarkerStaticStart: "MARKER_STATIC_START", OpExit: "EXIT",
}

func (op Op) String() string {
	if s, ok := names[op]; ok {
		return s
	}
	return "UNKNOWN_OP"
}

// Sizes of fixed-width primitive operand kinds, in bytes. OperandString's
// size is dynamic (length-prefixed) and has no fixed entry here.
const (
	IntSize   = 4
	FloatSize = 8
	CharSize  = 1
	BoolSize  = 1
	OpSize    = 2

	// HeapHeaderSize is the byte size of a heap free-list block header
	// (data_size:int, next:int) -- spec.md §4.6. Shared between the VM's
	// allocator and the emitter's `len` builtin lowering, which reads a
	// live block's data_size directly out of its header.
	HeapHeaderSize = 8
)
