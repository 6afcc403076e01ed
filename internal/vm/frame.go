package vm

// pushBytes appends data to the top of the stack, growing sp.
func (vm *VM) pushBytes(data []byte) {
	vm.haltif(vm.mem.Set(vm.sp, data))
	vm.sp += len(data)
}

// popBytes removes and returns the top n bytes of the stack.
func (vm *VM) popBytes(n int) []byte {
	vm.sp -= n
	b, err := vm.mem.Get(vm.sp, n)
	vm.haltif(err)
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}

func (vm *VM) pushInt(v int) {
	vm.haltif(vm.mem.SetInt(vm.sp, v))
	vm.sp += 4
}

func (vm *VM) popInt() int {
	vm.sp -= 4
	v, err := vm.mem.Int(vm.sp)
	vm.haltif(err)
	return v
}

func (vm *VM) pushFloat(v float64) {
	vm.haltif(vm.mem.SetFloat64(vm.sp, v))
	vm.sp += 8
}

func (vm *VM) popFloat() float64 {
	vm.sp -= 8
	v, err := vm.mem.Float64(vm.sp)
	vm.haltif(err)
	return v
}

func (vm *VM) pushChar(v byte) {
	vm.haltif(vm.mem.SetChar(vm.sp, v))
	vm.sp++
}

func (vm *VM) popChar() byte {
	vm.sp--
	v, err := vm.mem.Char(vm.sp)
	vm.haltif(err)
	return v
}

func (vm *VM) pushBool(v bool) {
	vm.haltif(vm.mem.SetBool(vm.sp, v))
	vm.sp++
}

func (vm *VM) popBool() bool {
	vm.sp--
	v, err := vm.mem.Bool(vm.sp)
	vm.haltif(err)
	return v
}

// fnCallBegin reserves the three saved-ip/fp/sp slots a subsequent FN_CALL
// will fill in once the target and its arguments are known (spec.md §4.6).
func (vm *VM) fnCallBegin() {
	vm.pushInt(0)
	vm.pushInt(0)
	vm.pushInt(0)
}

// fnCall performs the call: computes the new frame base from the current
// stack top and the just-pushed argument bytes, saves the caller's ip/fp
// and its pre-FN_CALL_BEGIN stack depth, then jumps.
func (vm *VM) fnCall(target, argsBytes int) {
	newFP := vm.sp - argsBytes
	savedIPSlot := newFP - 12
	savedFPSlot := newFP - 8
	savedSPSlot := newFP - 4
	vm.haltif(vm.mem.SetInt(savedIPSlot, vm.ip))
	vm.haltif(vm.mem.SetInt(savedFPSlot, vm.fp))
	vm.haltif(vm.mem.SetInt(savedSPSlot, savedIPSlot))
	vm.ip = target
	vm.fp = newFP
	vm.sp = newFP
}

// ret restores the caller's ip/fp/sp from the current frame's saved slots,
// discarding the whole frame (locals, arguments and the three saved slots).
func (vm *VM) ret() {
	savedIP, err := vm.mem.Int(vm.fp - 12)
	vm.haltif(err)
	savedFP, err := vm.mem.Int(vm.fp - 8)
	vm.haltif(err)
	savedSP, err := vm.mem.Int(vm.fp - 4)
	vm.haltif(err)
	vm.ip, vm.fp, vm.sp = savedIP, savedFP, savedSP
}

// retValue pops an n-byte return value, performs ret, then pushes the value
// back onto the now-restored caller stack.
func (vm *VM) retValue(n int) {
	v := vm.popBytes(n)
	vm.ret()
	vm.pushBytes(v)
}
