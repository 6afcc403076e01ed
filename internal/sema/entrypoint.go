package sema

import (
	"github.com/samber/lo"

	"github.com/f12lang/f12/internal/ast"
	"github.com/f12lang/f12/internal/diag"
	"github.com/f12lang/f12/internal/source"
)

// CheckEntryPoint asserts exactly one zero-parameter function named `main`
// exists, returning void (spec.md §4.3: "an entry-point check").
func CheckEntryPoint(prog *ast.Program, errs *diag.Counter) {
	funs := lo.FilterMap(prog.Decls, func(d ast.Decl, _ int) (*ast.DeclFun, bool) {
		fn, ok := d.(*ast.DeclFun)
		return fn, ok
	})
	mains := lo.Filter(funs, func(fn *ast.DeclFun, _ int) bool { return fn.Name == "main" })
	if len(mains) == 0 {
		errs.Report(diag.EntryPt, "no 'main' function declared", source.Location{})
		return
	}
	if len(mains) > 1 {
		for _, fn := range mains[1:] {
			errs.Report(diag.EntryPt, "duplicate 'main' function", fn.Ref().Loc)
		}
	}
	main := mains[0]
	if len(main.Params) != 0 {
		errs.Report(diag.EntryPt, "'main' must take no parameters", main.Ref().Loc)
	}
	if pt, ok := main.ReturnType.(*ast.PrimitiveType); !ok || pt.Kind != ast.Void {
		errs.Report(diag.EntryPt, "'main' must return void", main.Ref().Loc)
	}
}
