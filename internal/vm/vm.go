package vm

import (
	"fmt"
	"io"
	"math"
	"os"

	"fortio.org/log"

	"github.com/f12lang/f12/internal/bytecode"
	"github.com/f12lang/f12/internal/flushio"
	"github.com/f12lang/f12/internal/panicerr"
	"github.com/f12lang/f12/internal/runeio"
)

// Option configures a VM at construction time (modeled on the teacher's
// VMOption functional-options pattern).
type Option func(*VM)

// WithMemSize overrides the default total memory region size.
func WithMemSize(size int) Option { return func(vm *VM) { vm.memSize = size } }

// WithStdout sets the stream TO_STDOUT_* opcodes write to (default os.Stdout).
func WithStdout(w io.Writer) Option { return func(vm *VM) { vm.out = flushio.NewWriteFlusher(w) } }

// WithStdin sets the stream FROM_STDIN reads from (default os.Stdin).
func WithStdin(r io.Reader) Option { return func(vm *VM) { vm.in = runeio.NewReader(r) } }

// WithTrace enables per-instruction trace logging through fortio.org/log at
// Debug level (the teacher's vm.logfn hook, generalized to a real leveled
// logger instead of an optional raw sink).
func WithTrace(enabled bool) Option { return func(vm *VM) { vm.trace = enabled } }

// vmHaltError wraps the error that stopped execution, mirroring the
// teacher's own halt-via-panic boundary (internals.go's vmHaltError).
type vmHaltError struct{ error }

func (err vmHaltError) Error() string {
	if err.error != nil {
		return fmt.Sprintf("VM halted: %v", err.error)
	}
	return "VM halted"
}
func (err vmHaltError) Unwrap() error { return err.error }

// VM is the F12 stack machine: a flat memory region, a heap allocator over
// its upper portion, and the four pointers the fetch-decode-dispatch loop
// and calling convention operate on (spec.md §4.6).
type VM struct {
	memSize int
	mem     *Bytes
	heap    *Heap

	ip, fp, sp, gp int

	out   flushio.WriteFlusher
	in    runeio.Reader
	trace bool
}

// New constructs a VM ready to load code via Load.
func New(opts ...Option) *VM {
	vm := &VM{memSize: DefaultSize}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.out == nil {
		vm.out = flushio.NewWriteFlusher(os.Stdout)
	}
	if vm.in == nil {
		vm.in = runeio.NewReader(os.Stdin)
	}
	return vm
}

// Load installs code as the program, reserving the remainder of the memory
// region as stack-then-heap (spec.md §4.6: "the stack grows upward from the
// end of the bytecode; the heap occupies the high portion").
func (vm *VM) Load(code []byte, heapSize int) error {
	vm.mem = NewBytes(vm.memSize)
	if err := vm.mem.LoadCode(code); err != nil {
		return err
	}
	vm.gp = len(code)
	vm.ip, vm.fp, vm.sp = 0, vm.gp, vm.gp

	heapBase := vm.memSize - heapSize
	if heapBase < vm.sp {
		return fmt.Errorf("vm: heap size %d leaves no room for program and stack in a %d byte region", heapSize, vm.memSize)
	}
	heap, err := NewHeap(vm.mem, heapBase, heapSize)
	if err != nil {
		return err
	}
	vm.heap = heap
	return nil
}

// Run executes from the current ip until EXIT or a runtime error, returning
// the error (if any) as a normal value rather than letting the halt panic
// escape (spec.md §7 taxonomy 5: runtime errors are printed and the VM run
// loop exits cleanly).
func (vm *VM) Run() error {
	err := panicerr.Recover("vm.Run", func() error {
		for {
			halted, err := vm.step()
			if err != nil {
				return err
			}
			if halted {
				return nil
			}
		}
	})
	if err == nil {
		return nil
	}
	if he, ok := err.(vmHaltError); ok {
		return he.error
	}
	if panicerr.IsPanic(err) {
		return err
	}
	return err
}

func (vm *VM) halt(err error) {
	vm.haltif(vm.out.Flush())
	panic(vmHaltError{err})
}

func (vm *VM) haltif(err error) {
	if err != nil {
		vm.halt(err)
	}
}

// step fetches and executes one instruction, returning halted=true after EXIT.
func (vm *VM) step() (halted bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			if he, ok := r.(vmHaltError); ok {
				err = he
				return
			}
			panic(r)
		}
	}()

	startIP := vm.ip
	op := vm.fetchOp()
	if vm.trace {
		log.Debugf("@%-6d %-20v fp=%d sp=%d", startIP, op, vm.fp, vm.sp)
	}
	vm.dispatch(op)
	return op == bytecode.OpExit, nil
}

func (vm *VM) fetchOp() bytecode.Op {
	b, err := vm.mem.Get(vm.ip, bytecode.OpSize)
	vm.haltif(err)
	op := bytecode.Op(uint16(b[0])<<8 | uint16(b[1]))
	vm.ip += bytecode.OpSize
	return op
}

func (vm *VM) fetchInt() int {
	v, err := vm.mem.Int(vm.ip)
	vm.haltif(err)
	vm.ip += bytecode.IntSize
	return v
}

// dispatch executes the effect of op, having already consumed its opcode
// bytes; operands are read directly off the instruction stream at ip.
func (vm *VM) dispatch(op bytecode.Op) {
	switch op {
	case bytecode.OpPop:
		n := vm.fetchInt()
		vm.sp -= n

	case bytecode.OpPopPushN:
		n := vm.fetchInt()
		k := vm.fetchInt()
		v := vm.popBytes(n)
		for i := 0; i < k; i++ {
			vm.pushBytes(v)
		}

	case bytecode.OpPushInt:
		vm.pushInt(vm.fetchInt())
	case bytecode.OpPushFloat:
		b, err := vm.mem.Get(vm.ip, bytecode.FloatSize)
		vm.haltif(err)
		vm.ip += bytecode.FloatSize
		bits := uint64(0)
		for i := 0; i < 8; i++ {
			bits |= uint64(b[i]) << (8 * i)
		}
		vm.pushFloat(math.Float64frombits(bits))
	case bytecode.OpPushChar:
		c, err := vm.mem.Char(vm.ip)
		vm.haltif(err)
		vm.ip++
		vm.pushChar(c)
	case bytecode.OpPushBool:
		bl, err := vm.mem.Bool(vm.ip)
		vm.haltif(err)
		vm.ip++
		vm.pushBool(bl)

	case bytecode.OpAllocateInStack:
		n := vm.fetchInt()
		vm.sp += n

	case bytecode.OpSetLocal:
		slot := vm.fetchInt()
		size := vm.fetchInt()
		v := vm.popBytes(size)
		vm.haltif(vm.mem.Set(vm.fp+slot, v))
	case bytecode.OpGetLocal:
		slot := vm.fetchInt()
		size := vm.fetchInt()
		v, err := vm.mem.Get(vm.fp+slot, size)
		vm.haltif(err)
		vm.pushBytes(v)
	case bytecode.OpSetGlobal:
		slot := vm.fetchInt()
		size := vm.fetchInt()
		v := vm.popBytes(size)
		vm.haltif(vm.mem.Set(vm.gp+slot, v))
	case bytecode.OpGetGlobal:
		slot := vm.fetchInt()
		size := vm.fetchInt()
		v, err := vm.mem.Get(vm.gp+slot, size)
		vm.haltif(err)
		vm.pushBytes(v)

	case bytecode.OpFnCallBegin:
		vm.fnCallBegin()
	case bytecode.OpFnCall:
		target := vm.fetchInt()
		argsBytes := vm.fetchInt()
		vm.fnCall(target, argsBytes)
	case bytecode.OpRet:
		vm.ret()
	case bytecode.OpRetValue:
		n := vm.fetchInt()
		vm.retValue(n)
	case bytecode.OpJz:
		target := vm.fetchInt()
		if !vm.popBool() {
			vm.ip = target
		}
	case bytecode.OpJmp:
		target := vm.fetchInt()
		vm.ip = target

	case bytecode.OpAddInt, bytecode.OpSubInt, bytecode.OpMulInt, bytecode.OpDivInt, bytecode.OpModInt, bytecode.OpPowInt:
		vm.binaryInt(op)
	case bytecode.OpAddFloat, bytecode.OpSubFloat, bytecode.OpMulFloat, bytecode.OpDivFloat, bytecode.OpModFloat, bytecode.OpPowFloat:
		vm.binaryFloat(op)
	case bytecode.OpNegInt:
		vm.pushInt(-vm.popInt())
	case bytecode.OpPosInt:
		// no-op: value is already on the stack
	case bytecode.OpNegFloat:
		vm.pushFloat(-vm.popFloat())
	case bytecode.OpPosFloat:
		// no-op

	case bytecode.OpNot:
		vm.pushBool(!vm.popBool())
	case bytecode.OpOr:
		r, l := vm.popBool(), vm.popBool()
		vm.pushBool(l || r)
	case bytecode.OpAnd:
		r, l := vm.popBool(), vm.popBool()
		vm.pushBool(l && r)
	case bytecode.OpEq, bytecode.OpNe:
		size := vm.fetchInt()
		r := vm.popBytes(size)
		l := vm.popBytes(size)
		eq := bytesEqual(l, r)
		if op == bytecode.OpNe {
			eq = !eq
		}
		vm.pushBool(eq)
	case bytecode.OpLtInt, bytecode.OpLeInt, bytecode.OpGtInt, bytecode.OpGeInt:
		r, l := vm.popInt(), vm.popInt()
		vm.pushBool(compareInt(op, l, r))
	case bytecode.OpLtFloat, bytecode.OpLeFloat, bytecode.OpGtFloat, bytecode.OpGeFloat:
		r, l := vm.popFloat(), vm.popFloat()
		vm.pushBool(compareFloat(op, l, r))

	case bytecode.OpMemoryAllocate:
		size := vm.popInt()
		addr, err := vm.heap.Allocate(size)
		vm.haltif(err)
		vm.pushInt(addr)
	case bytecode.OpMemoryFree:
		addr := vm.popInt()
		vm.haltif(vm.heap.Free(addr))
	case bytecode.OpMemorySet:
		n := vm.fetchInt()
		addr := vm.popInt()
		data := vm.popBytes(n)
		vm.haltif(vm.mem.Set(addr, data))
	case bytecode.OpMemorySetPush:
		// Unlike MEMORY_SET, the address sits beneath the data here: the
		// emitter uses this op to advance a running base address across a
		// sequence of writes (array/unit construction), so the address
		// must already be on the stack before each element's value is
		// computed and pushed on top of it.
		n := vm.fetchInt()
		k := vm.fetchInt()
		data := vm.popBytes(n)
		addr := vm.popInt()
		vm.haltif(vm.mem.Set(addr, data))
		for i := 0; i < k; i++ {
			vm.pushInt(addr)
		}
	case bytecode.OpMemoryGet:
		n := vm.fetchInt()
		addr := vm.popInt()
		data, err := vm.mem.Get(addr, n)
		vm.haltif(err)
		vm.pushBytes(data)

	case bytecode.OpToStdoutInt:
		vm.writeOut(fmt.Sprintf("%d", vm.popInt()))
	case bytecode.OpToStdoutFloat:
		vm.writeOut(fmt.Sprintf("%v", vm.popFloat()))
	case bytecode.OpToStdoutString:
		addr := vm.popInt()
		s, err := vm.mem.String(addr)
		vm.haltif(err)
		vm.writeOut(s)
	case bytecode.OpToStdoutChar:
		_, werr := runeio.WriteANSIRune(vm.out, rune(vm.popChar()))
		vm.haltif(werr)
	case bytecode.OpToStdoutBool:
		vm.writeOut(fmt.Sprintf("%t", vm.popBool()))
	case bytecode.OpFromStdin:
		r, _, rerr := vm.in.ReadRune()
		if rerr == io.EOF {
			vm.pushChar(0)
		} else {
			vm.haltif(rerr)
			vm.pushChar(byte(r))
		}

	case bytecode.OpMarkerStaticStart:
		// the string pool that follows is data, never executed directly
	case bytecode.OpExit:
		vm.haltif(vm.out.Flush())

	default:
		vm.halt(fmt.Errorf("unknown opcode 0x%04x", uint16(op)))
	}
}

func (vm *VM) writeOut(s string) {
	_, err := vm.out.Write([]byte(s))
	vm.haltif(err)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func compareInt(op bytecode.Op, l, r int) bool {
	switch op {
	case bytecode.OpLtInt:
		return l < r
	case bytecode.OpLeInt:
		return l <= r
	case bytecode.OpGtInt:
		return l > r
	case bytecode.OpGeInt:
		return l >= r
	default:
		return false
	}
}

func compareFloat(op bytecode.Op, l, r float64) bool {
	switch op {
	case bytecode.OpLtFloat:
		return l < r
	case bytecode.OpLeFloat:
		return l <= r
	case bytecode.OpGtFloat:
		return l > r
	case bytecode.OpGeFloat:
		return l >= r
	default:
		return false
	}
}

func (vm *VM) binaryInt(op bytecode.Op) {
	r, l := vm.popInt(), vm.popInt()
	switch op {
	case bytecode.OpAddInt:
		vm.pushInt(l + r)
	case bytecode.OpSubInt:
		vm.pushInt(l - r)
	case bytecode.OpMulInt:
		vm.pushInt(l * r)
	case bytecode.OpDivInt:
		if r == 0 {
			vm.halt(fmt.Errorf("division by zero"))
		}
		vm.pushInt(l / r)
	case bytecode.OpModInt:
		if r == 0 {
			vm.halt(fmt.Errorf("division by zero"))
		}
		vm.pushInt(l % r)
	case bytecode.OpPowInt:
		vm.pushInt(int(math.Pow(float64(l), float64(r))))
	}
}

func (vm *VM) binaryFloat(op bytecode.Op) {
	r, l := vm.popFloat(), vm.popFloat()
	switch op {
	case bytecode.OpAddFloat:
		vm.pushFloat(l + r)
	case bytecode.OpSubFloat:
		vm.pushFloat(l - r)
	case bytecode.OpMulFloat:
		vm.pushFloat(l * r)
	case bytecode.OpDivFloat:
		vm.pushFloat(l / r)
	case bytecode.OpModFloat:
		vm.pushFloat(math.Mod(l, r))
	case bytecode.OpPowFloat:
		vm.pushFloat(math.Pow(l, r))
	}
}
