package sema

import (
	"github.com/samber/lo"

	"github.com/f12lang/f12/internal/ast"
	"github.com/f12lang/f12/internal/diag"
)

// Builtins names the standard functions pre-populated into the root scope
// (spec.md §4.3, SPEC_FULL.md §3: `len`, `str_len`). They have no DeclFun;
// Call.IsBuiltin routes them to special-case type rules instead.
var Builtins = map[string]bool{
	"len":     true,
	"str_len": true,
}

// Resolver runs the name-resolution pass: it builds the global scope,
// registers every top-level declaration, then walks each function body
// assigning slots and binding every reference to its declaration.
type Resolver struct {
	errs    *diag.Counter
	global  *scope
	globals dispenser
	units   map[string]*ast.DeclUnit
}

func NewResolver(errs *diag.Counter) *Resolver {
	return &Resolver{errs: errs, global: newScope(nil), units: map[string]*ast.DeclUnit{}}
}

// Resolve runs name resolution over prog, which must already have its
// includes spliced in (Includes.ResolveProgram).
func (r *Resolver) Resolve(prog *ast.Program) {
	for _, name := range lo.Keys(Builtins) {
		r.global.names[name] = entry{} // reserved; IsBuiltin bypasses lookup on call
	}

	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.DeclFun:
			r.global.declareFun(r.errs, decl.Name, decl, decl.Ref().Loc)
		case *ast.DeclVar:
			slot := r.globals.take(decl.Type)
			decl.Slot = slot
			r.global.declareVar(r.errs, decl.Name, decl, decl.Ref().Loc)
		case *ast.DeclUnit:
			if _, dup := r.units[decl.Name]; dup {
				r.errs.Report(diag.Semantic, "duplicate unit declaration '"+decl.Name+"'", decl.Ref().Loc)
				break
			}
			r.units[decl.Name] = decl
			var fields dispenser
			for _, f := range decl.Fields {
				f.Slot = fields.take(f.Type)
			}
			decl.Size = fields.size()
		}
	}

	for _, d := range prog.Decls {
		if fn, ok := d.(*ast.DeclFun); ok {
			r.resolveUnitType(fn.ReturnType, fn.Ref())
			r.resolveFun(fn)
		}
	}
	for _, d := range prog.Decls {
		if v, ok := d.(*ast.DeclVar); ok {
			r.resolveUnitType(v.Type, v.Ref())
			if v.Init != nil {
				r.resolveExpr(v.Init, r.global)
			}
		}
	}
}

// resolveUnitType binds a UnitType's Decl once its name is known to be a
// declared unit, reporting an unknown-type error otherwise.
func (r *Resolver) resolveUnitType(t ast.Type, at ast.Node) {
	switch tt := t.(type) {
	case *ast.UnitType:
		decl, ok := r.units[tt.Name]
		if !ok {
			r.errs.Report(diag.Semantic, "unknown type '"+tt.Name+"'", at.Ref().Loc)
			return
		}
		tt.Decl = decl
	case *ast.PointerType:
		r.resolveUnitType(tt.Of, at)
	case *ast.ArrayType:
		r.resolveUnitType(tt.Inner, at)
	}
}

func (r *Resolver) resolveFun(fn *ast.DeclFun) {
	fnScope := newScope(r.global)
	var locals dispenser
	for _, p := range fn.Params {
		r.resolveUnitType(p.Type, p)
		p.Slot = locals.take(p.Type)
		fnScope.declareVar(r.errs, p.Name, p, p.Ref().Loc)
	}
	r.resolveBlock(fn.Body, fnScope, &locals)
	fn.LocalsSize = locals.size()
}

func (r *Resolver) resolveBlock(b *ast.Block, parent *scope, locals *dispenser) {
	s := newScope(parent)
	for _, stmt := range b.Stmts {
		r.resolveStmt(stmt, s, locals)
	}
}

func (r *Resolver) resolveStmt(stmt ast.Stmt, s *scope, locals *dispenser) {
	switch st := stmt.(type) {
	case *ast.StmntDeclVar:
		r.resolveUnitType(st.Type, st)
		if st.Init != nil {
			r.resolveExpr(st.Init, s)
		}
		st.Slot = locals.take(st.Type)
		s.declareVar(r.errs, st.Name, st, st.Ref().Loc)
	case *ast.StmntIf:
		r.resolveExpr(st.Cond, s)
		r.resolveBlock(st.Then, s, locals)
		if st.Else != nil {
			switch e := st.Else.(type) {
			case *ast.Block:
				r.resolveBlock(e, s, locals)
			case *ast.StmntIf:
				r.resolveStmt(e, s, locals)
			}
		}
	case *ast.StmntWhile:
		r.resolveExpr(st.Cond, s)
		r.resolveBlock(st.Body, s, locals)
	case *ast.StmntReturn:
		if st.Value != nil {
			r.resolveExpr(st.Value, s)
		}
	case *ast.StmntExpr:
		r.resolveExpr(st.Expr, s)
	case *ast.StmntToStdout:
		for _, a := range st.Args {
			r.resolveExpr(a, s)
		}
	case *ast.StmntFree:
		r.resolveExpr(st.Expr, s)
	case *ast.Block:
		r.resolveBlock(st, s, locals)
	}
}

func (r *Resolver) resolveExpr(e ast.Expr, s *scope) {
	switch ex := e.(type) {
	case *ast.Binary:
		r.resolveExpr(ex.Left, s)
		r.resolveExpr(ex.Right, s)
	case *ast.Unary:
		r.resolveExpr(ex.Expr, s)
	case *ast.Var:
		en, ok := s.lookup(ex.Name)
		if !ok {
			r.errs.Report(diag.Semantic, "unknown name '"+ex.Name+"'", ex.Ref().Loc)
			return
		}
		if en.fun != nil {
			r.errs.Report(diag.Semantic, "'"+ex.Name+"' is a function, not a variable", ex.Ref().Loc)
			return
		}
		ex.Decl = en.varDecl
	case *ast.Access:
		r.resolveExpr(ex.Base, s)
	case *ast.Index:
		r.resolveExpr(ex.Base, s)
		r.resolveExpr(ex.Index, s)
	case *ast.Assign:
		r.resolveExpr(ex.Target, s)
		r.resolveExpr(ex.Value, s)
	case *ast.Call:
		if Builtins[ex.Name] {
			ex.IsBuiltin = true
		} else if en, ok := s.lookup(ex.Name); ok && en.fun != nil {
			ex.Decl = en.fun
		} else {
			r.errs.Report(diag.Semantic, "unknown function '"+ex.Name+"'", ex.Ref().Loc)
		}
		for _, a := range ex.Args {
			r.resolveExpr(a, s)
		}
	case *ast.CreateUnit:
		decl, ok := r.units[ex.Name]
		if !ok {
			r.errs.Report(diag.Semantic, "unknown unit '"+ex.Name+"'", ex.Ref().Loc)
			return
		}
		ex.Decl = decl
		for i := range ex.Fields {
			r.resolveExpr(ex.Fields[i].Value, s)
		}
	case *ast.NewArray:
		r.resolveUnitType(ex.ElemType, ex)
		r.resolveExpr(ex.Size, s)
	case *ast.ArrayLit:
		for _, el := range ex.Elems {
			r.resolveExpr(el, s)
		}
	// literals and FromStdin have no sub-expressions or names to resolve
	case *ast.IntLit, *ast.FloatLit, *ast.CharLit, *ast.StringLit, *ast.BoolLit, *ast.FromStdin:
	}
}
