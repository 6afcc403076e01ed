package sema

import (
	"github.com/f12lang/f12/internal/ast"
	"github.com/f12lang/f12/internal/diag"
)

// unify reports whether a value of type got may be used where want is
// expected (spec.md §4.3's unify_types): structural comparison by variant,
// with a nil Pointer.Of acting as a null-pointer wildcard that matches any
// pointer type.
func unify(want, got ast.Type) bool {
	switch w := want.(type) {
	case *ast.PrimitiveType:
		g, ok := got.(*ast.PrimitiveType)
		return ok && g.Kind == w.Kind
	case *ast.PointerType:
		g, ok := got.(*ast.PointerType)
		if !ok {
			return false
		}
		if w.Of == nil || g.Of == nil {
			return true
		}
		return unify(w.Of, g.Of)
	case *ast.ArrayType:
		g, ok := got.(*ast.ArrayType)
		return ok && unify(w.Inner, g.Inner)
	case *ast.UnitType:
		g, ok := got.(*ast.UnitType)
		return ok && g.Name == w.Name
	default:
		return false
	}
}

// Checker runs the type-resolution pass: bottom-up expression typing, with
// each use site unifying against its expected type.
type Checker struct {
	errs *diag.Counter
	fn   *ast.DeclFun // enclosing function, for `ret` checking
}

func NewChecker(errs *diag.Counter) *Checker { return &Checker{errs: errs} }

func (c *Checker) Check(prog *ast.Program) {
	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.DeclFun:
			c.fn = decl
			c.checkBlock(decl.Body)
		case *ast.DeclVar:
			if decl.Init != nil {
				t := c.checkExpr(decl.Init)
				c.expect(decl.Type, t, decl.Ref())
			}
		}
	}
}

func (c *Checker) expect(want, got ast.Type, at ast.Node) bool {
	if !unify(want, got) {
		c.errs.Report(diag.TypeError, "expected "+want.String()+", got "+got.String(), at.Ref().Loc)
		return false
	}
	return true
}

func (c *Checker) checkBlock(b *ast.Block) {
	for _, s := range b.Stmts {
		c.checkStmt(s)
	}
}

func (c *Checker) checkStmt(stmt ast.Stmt) {
	switch st := stmt.(type) {
	case *ast.StmntDeclVar:
		if st.Init != nil {
			t := c.checkExpr(st.Init)
			c.expect(st.Type, t, st)
		}
	case *ast.StmntIf:
		cond := c.checkExpr(st.Cond)
		c.expect(ast.NewPrimitive(ast.Bool), cond, st)
		c.checkBlock(st.Then)
		switch e := st.Else.(type) {
		case *ast.Block:
			c.checkBlock(e)
		case *ast.StmntIf:
			c.checkStmt(e)
		}
	case *ast.StmntWhile:
		cond := c.checkExpr(st.Cond)
		c.expect(ast.NewPrimitive(ast.Bool), cond, st)
		c.checkBlock(st.Body)
	case *ast.StmntReturn:
		want := ast.Type(ast.NewPrimitive(ast.Void))
		if c.fn != nil {
			want = c.fn.ReturnType
		}
		if st.Value != nil {
			got := c.checkExpr(st.Value)
			c.expect(want, got, st)
		} else if pt, ok := want.(*ast.PrimitiveType); !ok || pt.Kind != ast.Void {
			c.errs.Report(diag.TypeError, "expected "+want.String()+", got void", st.Ref().Loc)
		}
	case *ast.StmntExpr:
		c.checkExpr(st.Expr)
	case *ast.StmntToStdout:
		for _, a := range st.Args {
			c.checkExpr(a)
		}
	case *ast.StmntFree:
		t := c.checkExpr(st.Expr)
		switch t.(type) {
		case *ast.PointerType, *ast.ArrayType, *ast.UnitType:
		default:
			c.errs.Report(diag.TypeError, "free requires a heap reference, got "+t.String(), st.Ref().Loc)
		}
	case *ast.Block:
		c.checkBlock(st)
	}
}

func declType(n ast.Node) ast.Type {
	switch d := n.(type) {
	case *ast.DeclVar:
		return d.Type
	case *ast.Param:
		return d.Type
	case *ast.StmntDeclVar:
		return d.Type
	default:
		return ast.NewPrimitive(ast.Void)
	}
}

func (c *Checker) checkExpr(e ast.Expr) ast.Type {
	var t ast.Type
	switch ex := e.(type) {
	case *ast.IntLit:
		t = ast.NewPrimitive(ast.Int)
	case *ast.FloatLit:
		t = ast.NewPrimitive(ast.Float)
	case *ast.CharLit:
		t = ast.NewPrimitive(ast.Char)
	case *ast.StringLit:
		t = ast.NewPrimitive(ast.String)
	case *ast.BoolLit:
		t = ast.NewPrimitive(ast.Bool)
	case *ast.FromStdin:
		t = ast.NewPrimitive(ast.Char)
	case *ast.Var:
		t = declType(ex.Decl)
	case *ast.Binary:
		t = c.checkBinary(ex)
	case *ast.Unary:
		t = c.checkUnary(ex)
	case *ast.Access:
		t = c.checkAccess(ex)
	case *ast.Index:
		t = c.checkIndex(ex)
	case *ast.Assign:
		t = c.checkAssign(ex)
	case *ast.Call:
		t = c.checkCall(ex)
	case *ast.CreateUnit:
		t = c.checkCreateUnit(ex)
	case *ast.NewArray:
		size := c.checkExpr(ex.Size)
		c.expect(ast.NewPrimitive(ast.Int), size, ex)
		t = &ast.ArrayType{Inner: ex.ElemType}
	case *ast.ArrayLit:
		var inner ast.Type = ast.NewPrimitive(ast.Void)
		for i, el := range ex.Elems {
			et := c.checkExpr(el)
			if i == 0 {
				inner = et
			} else {
				c.expect(inner, et, el)
			}
		}
		t = &ast.ArrayType{Inner: inner}
	default:
		t = ast.NewPrimitive(ast.Void)
	}
	e.SetType(t)
	return t
}

func (c *Checker) checkBinary(ex *ast.Binary) ast.Type {
	lt := c.checkExpr(ex.Left)
	rt := c.checkExpr(ex.Right)
	switch ex.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod, ast.OpPow:
		if !ast.IsNumeric(lt) {
			c.errs.Report(diag.TypeError, "arithmetic requires int or float, got "+lt.String(), ex.Ref().Loc)
		} else if !unify(lt, rt) {
			c.errs.Report(diag.TypeError, "expected "+lt.String()+", got "+rt.String(), ex.Ref().Loc)
		}
		return lt
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		if !ast.IsNumeric(lt) || !unify(lt, rt) {
			c.errs.Report(diag.TypeError, "comparison requires matching int or float operands", ex.Ref().Loc)
		}
		return ast.NewPrimitive(ast.Bool)
	case ast.OpEq, ast.OpNe:
		if !unify(lt, rt) {
			c.errs.Report(diag.TypeError, "expected "+lt.String()+", got "+rt.String(), ex.Ref().Loc)
		}
		return ast.NewPrimitive(ast.Bool)
	case ast.OpAnd, ast.OpOr:
		boolT := ast.NewPrimitive(ast.Bool)
		c.expect(boolT, lt, ex)
		c.expect(boolT, rt, ex)
		return boolT
	default:
		return ast.NewPrimitive(ast.Void)
	}
}

func (c *Checker) checkUnary(ex *ast.Unary) ast.Type {
	t := c.checkExpr(ex.Expr)
	switch ex.Op {
	case ast.OpNot:
		c.expect(ast.NewPrimitive(ast.Bool), t, ex)
		return ast.NewPrimitive(ast.Bool)
	default:
		if !ast.IsNumeric(t) {
			c.errs.Report(diag.TypeError, "unary +/- requires int or float, got "+t.String(), ex.Ref().Loc)
		}
		return t
	}
}

func (c *Checker) checkAccess(ex *ast.Access) ast.Type {
	base := c.checkExpr(ex.Base)
	u, ok := base.(*ast.UnitType)
	if !ok || u.Decl == nil {
		c.errs.Report(diag.TypeError, "field access requires a unit value, got "+base.String(), ex.Ref().Loc)
		return ast.NewPrimitive(ast.Void)
	}
	for _, f := range u.Decl.Fields {
		if f.Name == ex.Field {
			ex.Decl = f
			return f.Type
		}
	}
	c.errs.Report(diag.TypeError, "unit '"+u.Name+"' has no field '"+ex.Field+"'", ex.Ref().Loc)
	return ast.NewPrimitive(ast.Void)
}

func (c *Checker) checkIndex(ex *ast.Index) ast.Type {
	base := c.checkExpr(ex.Base)
	idx := c.checkExpr(ex.Index)
	c.expect(ast.NewPrimitive(ast.Int), idx, ex)
	arr, ok := base.(*ast.ArrayType)
	if !ok {
		c.errs.Report(diag.TypeError, "indexing requires an array, got "+base.String(), ex.Ref().Loc)
		return ast.NewPrimitive(ast.Void)
	}
	return arr.Inner
}

func (c *Checker) checkAssign(ex *ast.Assign) ast.Type {
	lt := c.checkExpr(ex.Target)
	rt := c.checkExpr(ex.Value)
	switch ex.Target.(type) {
	case *ast.Var, *ast.Access, *ast.Index:
	default:
		c.errs.Report(diag.TypeError, "invalid assignment target", ex.Ref().Loc)
	}
	c.expect(lt, rt, ex)
	return lt
}

func (c *Checker) checkCall(ex *ast.Call) ast.Type {
	argTypes := make([]ast.Type, len(ex.Args))
	for i, a := range ex.Args {
		argTypes[i] = c.checkExpr(a)
	}
	if ex.IsBuiltin {
		return c.checkBuiltinCall(ex, argTypes)
	}
	if ex.Decl == nil {
		return ast.NewPrimitive(ast.Void)
	}
	if len(ex.Args) != len(ex.Decl.Params) {
		c.errs.Report(diag.TypeError, "wrong argument count calling '"+ex.Name+"'", ex.Ref().Loc)
		return ex.Decl.ReturnType
	}
	for i, p := range ex.Decl.Params {
		c.expect(p.Type, argTypes[i], ex.Args[i])
	}
	return ex.Decl.ReturnType
}

// checkBuiltinCall implements the standard functions (SPEC_FULL.md §3):
// `len(arr) => int` for any array type, `str_len(s) => int` for string.
func (c *Checker) checkBuiltinCall(ex *ast.Call, argTypes []ast.Type) ast.Type {
	switch ex.Name {
	case "len":
		if len(argTypes) != 1 {
			c.errs.Report(diag.TypeError, "len takes exactly one argument", ex.Ref().Loc)
		} else if _, ok := argTypes[0].(*ast.ArrayType); !ok {
			c.errs.Report(diag.TypeError, "len requires an array, got "+argTypes[0].String(), ex.Ref().Loc)
		}
		return ast.NewPrimitive(ast.Int)
	case "str_len":
		if len(argTypes) != 1 {
			c.errs.Report(diag.TypeError, "str_len takes exactly one argument", ex.Ref().Loc)
		} else {
			c.expect(ast.NewPrimitive(ast.String), argTypes[0], ex.Args[0])
		}
		return ast.NewPrimitive(ast.Int)
	default:
		c.errs.Report(diag.TypeError, "unknown standard function '"+ex.Name+"'", ex.Ref().Loc)
		return ast.NewPrimitive(ast.Void)
	}
}

func (c *Checker) checkCreateUnit(ex *ast.CreateUnit) ast.Type {
	if ex.Decl == nil {
		for i := range ex.Fields {
			c.checkExpr(ex.Fields[i].Value)
		}
		return ast.NewPrimitive(ast.Void)
	}
	seen := map[string]bool{}
	for i := range ex.Fields {
		fi := &ex.Fields[i]
		vt := c.checkExpr(fi.Value)
		var field *ast.UnitField
		for _, f := range ex.Decl.Fields {
			if f.Name == fi.Name {
				field = f
				break
			}
		}
		if field == nil {
			c.errs.Report(diag.TypeError, "unit '"+ex.Decl.Name+"' has no field '"+fi.Name+"'", ex.Ref().Loc)
			continue
		}
		if seen[fi.Name] {
			c.errs.Report(diag.Semantic, "duplicate field initializer '"+fi.Name+"'", ex.Ref().Loc)
		}
		seen[fi.Name] = true
		c.expect(field.Type, vt, ex)
	}
	// Fields omitted from the initializer list are zero-filled by the
	// emitter (SPEC_FULL.md §3); that's a lowering concern, not a type error.
	return &ast.UnitType{Name: ex.Decl.Name, Decl: ex.Decl}
}
