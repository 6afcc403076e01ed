package sema

import (
	"github.com/f12lang/f12/internal/ast"
	"github.com/f12lang/f12/internal/diag"
)

// Result is the outcome of Analyze: the fully resolved, type-annotated
// program plus every semantic diagnostic accumulated along the way.
type Result struct {
	Program *ast.Program
	Errors  *diag.Counter
}

// Analyze runs the three semantic passes over prog in order (spec.md
// §4.3): include resolution, name resolution with slot assignment, then
// type resolution, finishing with the entry-point check. Include
// resolution errors are fatal (returned directly); everything from name
// resolution onward accumulates in Result.Errors instead of halting, so
// multiple issues can be reported in one run.
func Analyze(prog *ast.Program, baseDir string, includeDirs []string) (Result, error) {
	inc := &Includes{Dirs: includeDirs}
	if err := inc.ResolveProgram(prog, baseDir); err != nil {
		return Result{}, err
	}

	errs := &diag.Counter{}

	resolver := NewResolver(errs)
	resolver.Resolve(prog)

	checker := NewChecker(errs)
	checker.Check(prog)

	CheckEntryPoint(prog, errs)

	return Result{Program: prog, Errors: errs}, nil
}
