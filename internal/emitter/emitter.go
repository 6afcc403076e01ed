package emitter

import (
	"fmt"

	"github.com/f12lang/f12/internal/ast"
	"github.com/f12lang/f12/internal/bytecode"
)

// Emitter lowers a name-resolved, type-checked Program into a finished
// bytecode buffer (spec.md §4.4): program layout, control-flow lowering,
// the calling convention, and string-literal interning all happen here,
// through a single CodeWriter.
type Emitter struct {
	cw         *CodeWriter
	funcLabels map[*ast.DeclFun]*Label
	strLits    []stringLitRef
}

type stringLitRef struct {
	node  *ast.StringLit
	label *Label
}

// Emit lowers prog into bytecode. The caller is responsible for having run
// the semantic passes first and confirmed the error counter is zero;
// Emit does not re-validate the tree (spec.md §4.3: "emission is skipped
// if the counter is nonzero" is the pipeline's job, not the emitter's).
func Emit(prog *ast.Program) ([]byte, error) {
	g := &Emitter{cw: NewCodeWriter(), funcLabels: map[*ast.DeclFun]*Label{}}

	var globals []*ast.DeclVar
	var funcs []*ast.DeclFun
	var mainFn *ast.DeclFun
	for _, d := range prog.Decls {
		switch dd := d.(type) {
		case *ast.DeclVar:
			globals = append(globals, dd)
		case *ast.DeclFun:
			funcs = append(funcs, dd)
			if dd.Name == "main" {
				mainFn = dd
			}
		case *ast.DeclUnit:
			// Units carry no executable code of their own; their field
			// offsets and size are consumed directly by CreateUnit/Access
			// lowering below.
		}
	}
	if mainFn == nil {
		return nil, fmt.Errorf("emitter: no main function found (entry-point check should have caught this)")
	}

	globalsSize := 0
	for _, v := range globals {
		globalsSize += ast.SizeOf(v.Type)
	}
	g.cw.op(bytecode.OpAllocateInStack)
	g.cw.int(globalsSize)
	for _, v := range globals {
		if v.Init == nil {
			continue
		}
		g.emitExpr(v.Init)
		g.cw.op(bytecode.OpSetGlobal)
		g.cw.int(v.Slot)
		g.cw.int(ast.SizeOf(v.Type))
	}

	g.cw.op(bytecode.OpFnCallBegin)
	g.cw.op(bytecode.OpFnCall)
	g.cw.writeLabelRef(g.funcLabel(mainFn))
	g.cw.int(0)
	g.cw.op(bytecode.OpExit)

	for _, fn := range funcs {
		g.emitFunc(fn)
	}

	g.cw.placeStringPool()
	for _, ref := range g.strLits {
		ref.node.Label = ref.label.Offset()
	}

	return g.cw.Bytes(), nil
}

func (g *Emitter) funcLabel(fn *ast.DeclFun) *Label {
	if l, ok := g.funcLabels[fn]; ok {
		return l
	}
	l := NewLabel()
	g.funcLabels[fn] = l
	return l
}

// emitFunc places fn's label, reserves its locals, lowers its body, and
// emits the unconditional trailing RET every function gets regardless of
// whether every path already returned explicitly (spec.md §4.4).
func (g *Emitter) emitFunc(fn *ast.DeclFun) {
	g.cw.Place(g.funcLabel(fn))
	if fn.LocalsSize > 0 {
		g.cw.op(bytecode.OpAllocateInStack)
		g.cw.int(fn.LocalsSize)
	}
	g.emitBlock(fn.Body)
	g.cw.op(bytecode.OpRet)
}

func (g *Emitter) emitBlock(b *ast.Block) {
	for _, s := range b.Stmts {
		g.emitStmt(s)
	}
}

func (g *Emitter) emitStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.StmntEmpty:
		// nothing to emit

	case *ast.StmntDeclVar:
		if st.Init == nil {
			return
		}
		g.emitExpr(st.Init)
		g.cw.op(bytecode.OpSetLocal)
		g.cw.int(st.Slot)
		g.cw.int(ast.SizeOf(st.Type))

	case *ast.StmntIf:
		elseLbl := NewLabel()
		endLbl := NewLabel()
		g.emitExpr(st.Cond)
		g.cw.op(bytecode.OpJz)
		g.cw.writeLabelRef(elseLbl)
		g.emitBlock(st.Then)
		g.cw.op(bytecode.OpJmp)
		g.cw.writeLabelRef(endLbl)
		g.cw.Place(elseLbl)
		if st.Else != nil {
			g.emitStmt(st.Else)
		}
		g.cw.Place(endLbl)

	case *ast.StmntWhile:
		startLbl := NewLabel()
		endLbl := NewLabel()
		g.cw.Place(startLbl)
		g.cw.pushLoop(startLbl, endLbl)
		g.emitExpr(st.Cond)
		g.cw.op(bytecode.OpJz)
		g.cw.writeLabelRef(endLbl)
		g.emitBlock(st.Body)
		g.cw.op(bytecode.OpJmp)
		g.cw.writeLabelRef(startLbl)
		g.cw.Place(endLbl)
		g.cw.popLoop()

	case *ast.StmntBreak:
		loop, _ := g.cw.currentLoop()
		g.cw.op(bytecode.OpJmp)
		g.cw.writeLabelRef(loop.end)

	case *ast.StmntContinue:
		loop, _ := g.cw.currentLoop()
		g.cw.op(bytecode.OpJmp)
		g.cw.writeLabelRef(loop.start)

	case *ast.StmntReturn:
		if st.Value == nil {
			g.cw.op(bytecode.OpRet)
			return
		}
		g.emitExpr(st.Value)
		g.cw.op(bytecode.OpRetValue)
		g.cw.int(ast.SizeOf(st.Value.Type()))

	case *ast.StmntExpr:
		g.emitExpr(st.Expr)
		if size := ast.SizeOf(st.Expr.Type()); size > 0 {
			g.cw.op(bytecode.OpPop)
			g.cw.int(size)
		}

	case *ast.StmntToStdout:
		for _, a := range st.Args {
			g.emitExpr(a)
			g.cw.op(toStdoutOpcode(a.Type()))
		}

	case *ast.StmntFree:
		g.emitExpr(st.Expr)
		g.cw.op(bytecode.OpMemoryFree)

	case *ast.Block:
		g.emitBlock(st)

	default:
		panic(fmt.Sprintf("emitter: unhandled statement %T", s))
	}
}

func toStdoutOpcode(t ast.Type) bytecode.Op {
	p, ok := t.(*ast.PrimitiveType)
	if !ok {
		panic(fmt.Sprintf("emitter: cannot print value of type %v", t))
	}
	switch p.Kind {
	case ast.Int:
		return bytecode.OpToStdoutInt
	case ast.Float:
		return bytecode.OpToStdoutFloat
	case ast.String:
		return bytecode.OpToStdoutString
	case ast.Char:
		return bytecode.OpToStdoutChar
	case ast.Bool:
		return bytecode.OpToStdoutBool
	default:
		panic(fmt.Sprintf("emitter: cannot print value of type %v", t))
	}
}

func (g *Emitter) emitExpr(e ast.Expr) {
	switch ex := e.(type) {
	case *ast.IntLit:
		g.cw.op(bytecode.OpPushInt)
		g.cw.int(int(ex.Value))
	case *ast.FloatLit:
		g.cw.op(bytecode.OpPushFloat)
		g.cw.float(ex.Value)
	case *ast.CharLit:
		g.cw.op(bytecode.OpPushChar)
		g.cw.char(ex.Value)
	case *ast.StringLit:
		g.internStringLit(ex)
	case *ast.BoolLit:
		g.cw.op(bytecode.OpPushBool)
		g.cw.boolean(ex.Value)
	case *ast.ArrayLit:
		g.emitArrayLit(ex)
	case *ast.Binary:
		g.emitBinary(ex)
	case *ast.Unary:
		g.emitUnary(ex)
	case *ast.Var:
		g.emitLoadVar(ex.Decl, ast.SizeOf(ex.Type()))
	case *ast.Access:
		g.emitAccessAddress(ex)
		g.cw.op(bytecode.OpMemoryGet)
		g.cw.int(ast.SizeOf(ex.Type()))
	case *ast.Index:
		g.emitIndexAddress(ex)
		g.cw.op(bytecode.OpMemoryGet)
		g.cw.int(ast.SizeOf(ex.Type()))
	case *ast.Assign:
		g.emitAssign(ex)
	case *ast.Call:
		g.emitCall(ex)
	case *ast.CreateUnit:
		g.emitCreateUnit(ex)
	case *ast.NewArray:
		g.emitNewArray(ex)
	case *ast.FromStdin:
		g.cw.op(bytecode.OpFromStdin)
	default:
		panic(fmt.Sprintf("emitter: unhandled expression %T", e))
	}
}

// internStringLit pushes the literal's pool address. The address itself is
// an ordinary PUSH_INT operand; internString only arranges for that
// operand's placeholder to be patched once the pool is placed.
func (g *Emitter) internStringLit(n *ast.StringLit) {
	g.cw.op(bytecode.OpPushInt)
	l := g.cw.internString(n.Value)
	g.strLits = append(g.strLits, stringLitRef{node: n, label: l})
}

// offsetWrite is one entry of a sequence of writes at known, increasing or
// arbitrary byte offsets from a single base address (see emitOffsetWrites).
type offsetWrite struct {
	offset    int
	size      int
	emitValue func()
}

// emitOffsetWrites writes each entry in turn at base+offset, where base is
// already on the stack as base+from (spec.md's MEMORY_SET_PUSH exists
// exactly for this: "build arrays from a sequence of element writes while
// retaining the base address"). Each step re-derives the running address
// from the previous one rather than re-duplicating the original base, so
// entries need not be in address order. Returns the running offset left on
// the stack (base+returned value) so the caller can walk it back to the
// original base.
func (g *Emitter) emitOffsetWrites(from int, writes []offsetWrite) int {
	cur := from
	for _, w := range writes {
		if delta := w.offset - cur; delta != 0 {
			g.cw.op(bytecode.OpPushInt)
			g.cw.int(delta)
			g.cw.op(bytecode.OpAddInt)
		}
		w.emitValue()
		g.cw.op(bytecode.OpMemorySetPush)
		g.cw.int(w.size)
		g.cw.int(1)
		cur = w.offset
	}
	return cur
}

// emitRewindOffset walks the running address on the stack (currently
// base+cur) back to the plain base address.
func (g *Emitter) emitRewindOffset(cur int) {
	if cur == 0 {
		return
	}
	g.cw.op(bytecode.OpPushInt)
	g.cw.int(-cur)
	g.cw.op(bytecode.OpAddInt)
}

// emitArrayLit lowers a constant array literal by allocating storage for it
// up front and writing each element in turn, walking the base address
// forward element-by-element and back again at the end.
func (g *Emitter) emitArrayLit(n *ast.ArrayLit) {
	arrType, ok := n.Type().(*ast.ArrayType)
	if !ok {
		panic(fmt.Sprintf("emitter: array literal has non-array type %v", n.Type()))
	}
	elemSize := ast.SizeOf(arrType.Inner)
	g.cw.op(bytecode.OpPushInt)
	g.cw.int(len(n.Elems) * elemSize)
	g.cw.op(bytecode.OpMemoryAllocate)

	writes := make([]offsetWrite, len(n.Elems))
	for i, el := range n.Elems {
		el := el
		writes[i] = offsetWrite{offset: i * elemSize, size: elemSize, emitValue: func() { g.emitExpr(el) }}
	}
	g.emitRewindOffset(g.emitOffsetWrites(0, writes))
}

func isFloatType(t ast.Type) bool {
	p, ok := t.(*ast.PrimitiveType)
	return ok && p.Kind == ast.Float
}

func binaryOpcode(op ast.BinaryOp, operandType ast.Type) bytecode.Op {
	f := isFloatType(operandType)
	switch op {
	case ast.OpAdd:
		if f {
			return bytecode.OpAddFloat
		}
		return bytecode.OpAddInt
	case ast.OpSub:
		if f {
			return bytecode.OpSubFloat
		}
		return bytecode.OpSubInt
	case ast.OpMul:
		if f {
			return bytecode.OpMulFloat
		}
		return bytecode.OpMulInt
	case ast.OpDiv:
		if f {
			return bytecode.OpDivFloat
		}
		return bytecode.OpDivInt
	case ast.OpMod:
		if f {
			return bytecode.OpModFloat
		}
		return bytecode.OpModInt
	case ast.OpPow:
		if f {
			return bytecode.OpPowFloat
		}
		return bytecode.OpPowInt
	case ast.OpEq:
		return bytecode.OpEq
	case ast.OpNe:
		return bytecode.OpNe
	case ast.OpLt:
		if f {
			return bytecode.OpLtFloat
		}
		return bytecode.OpLtInt
	case ast.OpLe:
		if f {
			return bytecode.OpLeFloat
		}
		return bytecode.OpLeInt
	case ast.OpGt:
		if f {
			return bytecode.OpGtFloat
		}
		return bytecode.OpGtInt
	case ast.OpGe:
		if f {
			return bytecode.OpGeFloat
		}
		return bytecode.OpGeInt
	case ast.OpAnd:
		return bytecode.OpAnd
	case ast.OpOr:
		return bytecode.OpOr
	default:
		panic(fmt.Sprintf("emitter: unhandled binary operator %v", op))
	}
}

// emitBinary emits left then right (the VM pops right first, then left --
// spec.md §4.6), then the operator. EQ/NE additionally carry the operand
// size, since they compare arbitrary byte ranges rather than one numeric
// representation.
func (g *Emitter) emitBinary(b *ast.Binary) {
	g.emitExpr(b.Left)
	g.emitExpr(b.Right)
	op := binaryOpcode(b.Op, b.Left.Type())
	g.cw.op(op)
	if op == bytecode.OpEq || op == bytecode.OpNe {
		g.cw.int(ast.SizeOf(b.Left.Type()))
	}
}

func (g *Emitter) emitUnary(u *ast.Unary) {
	g.emitExpr(u.Expr)
	f := isFloatType(u.Expr.Type())
	switch u.Op {
	case ast.OpPos:
		if f {
			g.cw.op(bytecode.OpPosFloat)
		} else {
			g.cw.op(bytecode.OpPosInt)
		}
	case ast.OpNeg:
		if f {
			g.cw.op(bytecode.OpNegFloat)
		} else {
			g.cw.op(bytecode.OpNegInt)
		}
	case ast.OpNot:
		g.cw.op(bytecode.OpNot)
	default:
		panic(fmt.Sprintf("emitter: unhandled unary operator %v", u.Op))
	}
}

// emitLoadVar/emitStoreVar dispatch a variable reference to the right
// local-vs-global opcode based on which kind of declaration it resolved to.
func (g *Emitter) emitLoadVar(decl ast.Node, size int) {
	switch d := decl.(type) {
	case *ast.DeclVar:
		g.cw.op(bytecode.OpGetGlobal)
		g.cw.int(d.Slot)
		g.cw.int(size)
	case *ast.Param:
		g.cw.op(bytecode.OpGetLocal)
		g.cw.int(d.Slot)
		g.cw.int(size)
	case *ast.StmntDeclVar:
		g.cw.op(bytecode.OpGetLocal)
		g.cw.int(d.Slot)
		g.cw.int(size)
	default:
		panic(fmt.Sprintf("emitter: variable reference to unexpected declaration %T", decl))
	}
}

func (g *Emitter) emitStoreVar(decl ast.Node, size int) {
	switch d := decl.(type) {
	case *ast.DeclVar:
		g.cw.op(bytecode.OpSetGlobal)
		g.cw.int(d.Slot)
		g.cw.int(size)
	case *ast.Param:
		g.cw.op(bytecode.OpSetLocal)
		g.cw.int(d.Slot)
		g.cw.int(size)
	case *ast.StmntDeclVar:
		g.cw.op(bytecode.OpSetLocal)
		g.cw.int(d.Slot)
		g.cw.int(size)
	default:
		panic(fmt.Sprintf("emitter: assignment to unexpected declaration %T", decl))
	}
}

// emitAccessAddress leaves a unit field's absolute byte address on the
// stack: the unit's own (heap) address plus the field's fixed slot offset.
func (g *Emitter) emitAccessAddress(a *ast.Access) {
	g.emitExpr(a.Base)
	if a.Decl.Slot != 0 {
		g.cw.op(bytecode.OpPushInt)
		g.cw.int(a.Decl.Slot)
		g.cw.op(bytecode.OpAddInt)
	}
}

// emitIndexAddress leaves an array element's absolute byte address on the
// stack: base address plus index*element_size.
func (g *Emitter) emitIndexAddress(idx *ast.Index) {
	arrType, ok := idx.Base.Type().(*ast.ArrayType)
	if !ok {
		panic(fmt.Sprintf("emitter: index base has non-array type %v", idx.Base.Type()))
	}
	elemSize := ast.SizeOf(arrType.Inner)
	g.emitExpr(idx.Base)
	g.emitExpr(idx.Index)
	if elemSize != 1 {
		g.cw.op(bytecode.OpPushInt)
		g.cw.int(elemSize)
		g.cw.op(bytecode.OpMulInt)
	}
	g.cw.op(bytecode.OpAddInt)
}

// emitAssign lowers `target = value` (spec.md §4.4): emit the value, then
// POP_PUSH_N duplicate it so one copy survives as the assignment
// expression's own result, then store the other copy at the target.
func (g *Emitter) emitAssign(a *ast.Assign) {
	size := ast.SizeOf(a.Value.Type())
	g.emitExpr(a.Value)
	g.cw.op(bytecode.OpPopPushN)
	g.cw.int(size)
	g.cw.int(2)

	switch t := a.Target.(type) {
	case *ast.Var:
		g.emitStoreVar(t.Decl, size)
	case *ast.Access:
		g.emitAccessAddress(t)
		g.cw.op(bytecode.OpMemorySet)
		g.cw.int(size)
	case *ast.Index:
		g.emitIndexAddress(t)
		g.cw.op(bytecode.OpMemorySet)
		g.cw.int(size)
	default:
		panic(fmt.Sprintf("emitter: invalid assignment target %T", a.Target))
	}
}

func (g *Emitter) emitCall(c *ast.Call) {
	if c.IsBuiltin {
		g.emitBuiltinCall(c)
		return
	}
	g.cw.op(bytecode.OpFnCallBegin)
	argsBytes := 0
	for _, a := range c.Args {
		g.emitExpr(a)
		argsBytes += ast.SizeOf(a.Type())
	}
	g.cw.op(bytecode.OpFnCall)
	g.cw.writeLabelRef(g.funcLabel(c.Decl))
	g.cw.int(argsBytes)
}

// emitBuiltinCall lowers the standard functions pre-populated into the
// global scope (spec.md §4.3's "built-in standard functions", enumerated
// in internal/sema as len/str_len): both read a length out of the target's
// in-memory layout rather than calling into user code.
func (g *Emitter) emitBuiltinCall(c *ast.Call) {
	switch c.Name {
	case "len":
		g.emitBuiltinLen(c)
	case "str_len":
		g.emitBuiltinStrLen(c)
	default:
		panic(fmt.Sprintf("emitter: unknown builtin function %q", c.Name))
	}
}

// emitBuiltinLen reads the element count of an array by reading its heap
// block's data_size header and dividing by the statically-known element
// size (spec.md §4.6's header layout is the only place the length lives;
// arrays carry no separate length field of their own).
func (g *Emitter) emitBuiltinLen(c *ast.Call) {
	arrType, ok := c.Args[0].Type().(*ast.ArrayType)
	if !ok {
		panic(fmt.Sprintf("emitter: len() argument has non-array type %v", c.Args[0].Type()))
	}
	elemSize := ast.SizeOf(arrType.Inner)
	g.emitExpr(c.Args[0])
	g.cw.op(bytecode.OpPushInt)
	g.cw.int(bytecode.HeapHeaderSize)
	g.cw.op(bytecode.OpSubInt)
	g.cw.op(bytecode.OpMemoryGet)
	g.cw.int(bytecode.IntSize)
	if elemSize != 1 {
		g.cw.op(bytecode.OpPushInt)
		g.cw.int(elemSize)
		g.cw.op(bytecode.OpDivInt)
	}
}

// emitBuiltinStrLen reads a string's length prefix directly: every string
// value, pool-interned or otherwise, is laid out as an int length followed
// by its raw bytes (the same layout Bytes.String and TO_STDOUT_STRING read).
func (g *Emitter) emitBuiltinStrLen(c *ast.Call) {
	g.emitExpr(c.Args[0])
	g.cw.op(bytecode.OpMemoryGet)
	g.cw.int(bytecode.IntSize)
}

// emitCreateUnit lowers `new T|field: v, ...|`: allocate storage sized for
// the whole unit, zero-fill every field in declaration order (so fields
// omitted from the initializer read as zero rather than stale heap bytes),
// then overwrite the named fields with their given values, walking the
// running address across both passes and back to the base at the end.
func (g *Emitter) emitCreateUnit(n *ast.CreateUnit) {
	decl := n.Decl
	g.cw.op(bytecode.OpPushInt)
	g.cw.int(decl.Size)
	g.cw.op(bytecode.OpMemoryAllocate)

	zeroes := make([]offsetWrite, len(decl.Fields))
	for i, f := range decl.Fields {
		f := f
		zeroes[i] = offsetWrite{offset: f.Slot, size: ast.SizeOf(f.Type), emitValue: func() { g.emitZeroValue(f.Type) }}
	}
	cur := g.emitOffsetWrites(0, zeroes)

	named := make([]offsetWrite, len(n.Fields))
	for i, fi := range n.Fields {
		f := fieldByName(decl, fi.Name)
		if f == nil {
			panic(fmt.Sprintf("emitter: unit %q has no field %q", decl.Name, fi.Name))
		}
		value := fi.Value
		named[i] = offsetWrite{offset: f.Slot, size: ast.SizeOf(f.Type), emitValue: func() { g.emitExpr(value) }}
	}
	cur = g.emitOffsetWrites(cur, named)

	g.emitRewindOffset(cur)
}

func fieldByName(decl *ast.DeclUnit, name string) *ast.UnitField {
	for _, f := range decl.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// emitZeroValue pushes a zero/null value whose wire size matches t.
func (g *Emitter) emitZeroValue(t ast.Type) {
	if p, ok := t.(*ast.PrimitiveType); ok {
		switch p.Kind {
		case ast.Float:
			g.cw.op(bytecode.OpPushFloat)
			g.cw.float(0)
			return
		case ast.Char:
			g.cw.op(bytecode.OpPushChar)
			g.cw.char(0)
			return
		case ast.Bool:
			g.cw.op(bytecode.OpPushBool)
			g.cw.boolean(false)
			return
		}
	}
	// Int, String, Pointer, Array, Unit are all address/int-sized; a null
	// address (0) is the correct zero value for each.
	g.cw.op(bytecode.OpPushInt)
	g.cw.int(0)
}

// emitNewArray lowers `new T[size]`: allocate size*sizeof(T) bytes and
// leave the base address. The region is not zero-filled -- spec.md's heap
// allocator makes no such promise, unlike the unit zero-fill above which
// is a deliberate extension (see DESIGN.md).
func (g *Emitter) emitNewArray(n *ast.NewArray) {
	elemSize := ast.SizeOf(n.ElemType)
	g.emitExpr(n.Size)
	if elemSize != 1 {
		g.cw.op(bytecode.OpPushInt)
		g.cw.int(elemSize)
		g.cw.op(bytecode.OpMulInt)
	}
	g.cw.op(bytecode.OpMemoryAllocate)
}
