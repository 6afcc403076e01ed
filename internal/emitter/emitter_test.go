package emitter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f12lang/f12/internal/ast"
	"github.com/f12lang/f12/internal/vm"
)

func intType() *ast.PrimitiveType    { return ast.NewPrimitive(ast.Int) }
func boolType() *ast.PrimitiveType   { return ast.NewPrimitive(ast.Bool) }
func stringType() *ast.PrimitiveType { return ast.NewPrimitive(ast.String) }

func intLit(v int32) *ast.IntLit {
	n := &ast.IntLit{Value: v}
	n.SetType(intType())
	return n
}

func binary(op ast.BinaryOp, l, r ast.Expr, t ast.Type) *ast.Binary {
	n := &ast.Binary{Op: op, Left: l, Right: r}
	n.SetType(t)
	return n
}

func exprStmt(e ast.Expr) *ast.StmntExpr { return &ast.StmntExpr{Expr: e} }

func toStdout(args ...ast.Expr) *ast.StmntToStdout { return &ast.StmntToStdout{Args: args} }

func block(stmts ...ast.Stmt) *ast.Block { return &ast.Block{Stmts: stmts} }

// mainProgram wraps body as the sole `main` function of a program, with no
// other declarations -- enough to drive every scenario below through Emit.
func mainProgram(body *ast.Block) *ast.Program {
	main := &ast.DeclFun{Body: body, ReturnType: ast.NewPrimitive(ast.Void)}
	main.Name = "main"
	return &ast.Program{Decls: []ast.Decl{main}}
}

// runEmitted emits prog and runs the result through the VM, returning
// whatever it wrote to stdout. This is the round-trip: AST -> bytecode ->
// VM execution -> observable output, matching spec.md §8's end-to-end
// scenarios.
func runEmitted(t *testing.T, prog *ast.Program) string {
	t.Helper()
	code, err := Emit(prog)
	require.NoError(t, err, "must emit without error")

	var out bytes.Buffer
	m := vm.New(vm.WithMemSize(4096), vm.WithStdout(&out))
	require.NoError(t, m.Load(code, 256), "must load emitted program")
	require.NoError(t, m.Run(), "must run emitted program without error")
	return out.String()
}

func TestEmit_arithmeticExpression(t *testing.T) {
	// 2 + 3 * 4 -- exercises left/right evaluation order and operator
	// precedence already resolved by the time the AST reaches the emitter
	// (precedence is the parser's job; the tree here is pre-shaped).
	mul := binary(ast.OpMul, intLit(3), intLit(4), intType())
	add := binary(ast.OpAdd, intLit(2), mul, intType())
	prog := mainProgram(block(toStdout(add)))

	out := runEmitted(t, prog)
	assert.Equal(t, "14", out)
}

func TestEmit_whileLoopCountsToFive(t *testing.T) {
	// int i = 0;
	// while i < 5 { --> i; i = i + 1; }
	iDecl := &ast.StmntDeclVar{Name: "i", Type: intType(), Init: intLit(0), Slot: 0}
	iVar := func() *ast.Var {
		v := &ast.Var{Name: "i", Decl: iDecl}
		v.SetType(intType())
		return v
	}

	cond := binary(ast.OpLt, iVar(), intLit(5), boolType())
	incr := binary(ast.OpAdd, iVar(), intLit(1), intType())
	assign := &ast.Assign{Target: iVar(), Value: incr}
	assign.SetType(intType())

	loop := &ast.StmntWhile{
		Cond: cond,
		Body: block(toStdout(iVar()), exprStmt(assign)),
	}

	fn := &ast.DeclFun{Body: block(iDecl, loop), ReturnType: ast.NewPrimitive(ast.Void), LocalsSize: 4}
	fn.Name = "main"
	prog := &ast.Program{Decls: []ast.Decl{fn}}

	out := runEmitted(t, prog)
	assert.Equal(t, "01234", out)
}

func TestEmit_recursiveCallFib(t *testing.T) {
	// fun fib(int n) => int { if n < 2 { ret n; } ret fib(n-1) + fib(n-2); }
	// fun main() { --> fib(10); }
	nParam := &ast.Param{Type: intType(), Slot: 0}
	nParam.Name = "n"
	nVar := func() *ast.Var {
		v := &ast.Var{Name: "n", Decl: nParam}
		v.SetType(intType())
		return v
	}

	// LocalsSize covers the 4-byte param slot, as sema computes it.
	fib := &ast.DeclFun{Params: []*ast.Param{nParam}, ReturnType: intType(), LocalsSize: 4}
	fib.Name = "fib"

	cond := binary(ast.OpLt, nVar(), intLit(2), boolType())
	baseCase := block(&ast.StmntReturn{Value: nVar()})
	ifStmt := &ast.StmntIf{Cond: cond, Then: baseCase}

	callFib := func(arg ast.Expr) *ast.Call {
		c := &ast.Call{Name: "fib", Args: []ast.Expr{arg}, Decl: fib}
		c.SetType(intType())
		return c
	}
	nMinus1 := binary(ast.OpSub, nVar(), intLit(1), intType())
	nMinus2 := binary(ast.OpSub, nVar(), intLit(2), intType())
	sum := binary(ast.OpAdd, callFib(nMinus1), callFib(nMinus2), intType())
	recStmt := &ast.StmntReturn{Value: sum}

	fib.Body = block(ifStmt, recStmt)

	mainCall := callFib(intLit(10))
	main := &ast.DeclFun{Body: block(toStdout(mainCall)), ReturnType: ast.NewPrimitive(ast.Void)}
	main.Name = "main"

	prog := &ast.Program{Decls: []ast.Decl{fib, main}}

	out := runEmitted(t, prog)
	assert.Equal(t, "55", out)
}

func TestEmit_stringLiteralOutput(t *testing.T) {
	lit := &ast.StringLit{Value: "hello"}
	lit.SetType(stringType())
	prog := mainProgram(block(toStdout(lit)))

	out := runEmitted(t, prog)
	assert.Equal(t, "hello", out)
}

func TestEmit_arrayLiteralElementsLandAtCorrectOffsets(t *testing.T) {
	// int[] a = [10, 20, 30]; --> a[0], a[1], a[2];
	arrType := &ast.ArrayType{Inner: intType()}
	lit := &ast.ArrayLit{Elems: []ast.Expr{intLit(10), intLit(20), intLit(30)}}
	lit.SetType(arrType)

	aDecl := &ast.StmntDeclVar{Name: "a", Type: arrType, Init: lit, Slot: 0}
	aVar := func() *ast.Var {
		v := &ast.Var{Name: "a", Decl: aDecl}
		v.SetType(arrType)
		return v
	}
	index := func(i int32) *ast.Index {
		idx := &ast.Index{Base: aVar(), Index: intLit(i)}
		idx.SetType(intType())
		return idx
	}

	fn := &ast.DeclFun{
		Body:       block(aDecl, toStdout(index(0), index(1), index(2))),
		ReturnType: ast.NewPrimitive(ast.Void),
		LocalsSize: 4,
	}
	fn.Name = "main"
	prog := &ast.Program{Decls: []ast.Decl{fn}}

	out := runEmitted(t, prog)
	assert.Equal(t, "102030", out)
}

func TestEmit_allocateAndFreeArray(t *testing.T) {
	// int[] a = new int[4]; free a; -- exercises MEMORY_ALLOCATE then MEMORY_FREE without
	// faulting; nothing is printed, so a successful Run() is the assertion.
	arrType := &ast.ArrayType{Inner: intType()}
	newArr := &ast.NewArray{ElemType: intType(), Size: intLit(4)}
	newArr.SetType(arrType)

	aDecl := &ast.StmntDeclVar{Name: "a", Type: arrType, Init: newArr, Slot: 0}
	aVar := &ast.Var{Name: "a", Decl: aDecl}
	aVar.SetType(arrType)

	free := &ast.StmntFree{Expr: aVar}

	fn := &ast.DeclFun{
		Body:       block(aDecl, free),
		ReturnType: ast.NewPrimitive(ast.Void),
		LocalsSize: 4,
	}
	fn.Name = "main"
	prog := &ast.Program{Decls: []ast.Decl{fn}}

	out := runEmitted(t, prog)
	assert.Equal(t, "", out)
}

func TestEmit_unitConstructionWritesNamedFieldsAndZerosTheRest(t *testing.T) {
	// unit Point { int x; int y; int z; }
	// Point p = new Point|x: 3, y: 4|; --> p.x, p.y, p.z;
	xField := &ast.UnitField{Type: intType(), Slot: 0}
	xField.Name = "x"
	yField := &ast.UnitField{Type: intType(), Slot: 4}
	yField.Name = "y"
	zField := &ast.UnitField{Type: intType(), Slot: 8}
	zField.Name = "z"
	point := &ast.DeclUnit{Fields: []*ast.UnitField{xField, yField, zField}, Size: 12}
	point.Name = "Point"

	unitType := &ast.UnitType{Name: "Point", Decl: point}
	create := &ast.CreateUnit{
		Name:   "Point",
		Fields: []ast.FieldInit{{Name: "x", Value: intLit(3)}, {Name: "y", Value: intLit(4)}},
		Decl:   point,
	}
	create.SetType(unitType)

	pDecl := &ast.StmntDeclVar{Name: "p", Type: unitType, Init: create, Slot: 0}
	pVar := func() *ast.Var {
		v := &ast.Var{Name: "p", Decl: pDecl}
		v.SetType(unitType)
		return v
	}
	access := func(f *ast.UnitField) *ast.Access {
		a := &ast.Access{Base: pVar(), Field: f.Name, Decl: f}
		a.SetType(intType())
		return a
	}

	fn := &ast.DeclFun{
		Body:       block(pDecl, toStdout(access(xField), access(yField), access(zField))),
		ReturnType: ast.NewPrimitive(ast.Void),
		LocalsSize: 4,
	}
	fn.Name = "main"
	prog := &ast.Program{Decls: []ast.Decl{fn}}

	out := runEmitted(t, prog)
	assert.Equal(t, "340", out, "named fields keep their values; the omitted field reads back zero")
}

func TestEmit_noMainIsAnError(t *testing.T) {
	fn := &ast.DeclFun{Body: block(), ReturnType: ast.NewPrimitive(ast.Void)}
	fn.Name = "notMain"
	prog := &ast.Program{Decls: []ast.Decl{fn}}

	_, err := Emit(prog)
	assert.Error(t, err)
}
