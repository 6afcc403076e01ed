package sema

import (
	"os"
	"path/filepath"

	"github.com/samber/lo"

	"github.com/f12lang/f12/internal/ast"
	"github.com/f12lang/f12/internal/diag"
	"github.com/f12lang/f12/internal/lexer"
	"github.com/f12lang/f12/internal/parser"
	"github.com/f12lang/f12/internal/source"
)

// Includes holds the search path consulted for a `>include "path";`
// directive after the including file's own directory (spec.md §4.3,
// SPEC_FULL.md's include-path supplement): relative paths resolve first
// against the includer's directory, then against each configured dir, in
// order. No cycle detection is performed beyond Go's own runtime stack
// guard -- a cyclic include recurses forever, same as the original
// implementation.
type Includes struct {
	Dirs []string
}

// ResolveProgram walks prog's top-level declarations, recursively
// expanding every Include node in place (spliced at its original position)
// with the included file's own top-level declarations, themselves already
// fully resolved. baseDir is the directory of prog's own source file, used
// to resolve include paths relative to the includer rather than the
// process's working directory.
func (inc *Includes) ResolveProgram(prog *ast.Program, baseDir string) error {
	out, err := inc.resolveDecls(prog.Decls, baseDir)
	if err != nil {
		return err
	}
	prog.Decls = out
	return nil
}

func (inc *Includes) resolveDecls(decls []ast.Decl, baseDir string) ([]ast.Decl, error) {
	var out []ast.Decl
	for _, d := range decls {
		include, ok := d.(*ast.Include)
		if !ok {
			out = append(out, d)
			continue
		}
		spliced, err := inc.resolveOne(include, baseDir)
		if err != nil {
			return nil, err
		}
		out = append(out, spliced...)
	}
	return out, nil
}

func (inc *Includes) resolveOne(include *ast.Include, baseDir string) ([]ast.Decl, error) {
	path, dir, err := inc.locate(include, baseDir)
	if err != nil {
		return nil, err
	}

	text, err := os.ReadFile(path)
	if err != nil {
		d := diag.Window(diag.Include, "cannot read included file: "+err.Error(), include.Ref().Loc, "", "", "")
		return nil, diag.Fatal(d)
	}

	in := &source.Input{}
	in.Push(source.NewNamedString(path, string(text)))
	lx := lexer.New(in)
	p := parser.New(lx, in)
	prog, err := p.ParseProgram()
	if err != nil {
		return nil, err
	}

	return inc.resolveDecls(prog.Decls, dir)
}

func (inc *Includes) locate(include *ast.Include, baseDir string) (path, dir string, err error) {
	candidates := append([]string{filepath.Join(baseDir, include.Path)},
		lo.Map(inc.Dirs, func(d string, _ int) string { return filepath.Join(d, include.Path) })...)
	if filepath.IsAbs(include.Path) {
		candidates = append([]string{include.Path}, candidates...)
	}

	for _, c := range candidates {
		if _, statErr := os.Stat(c); statErr == nil {
			return c, filepath.Dir(c), nil
		}
	}
	d := diag.Window(diag.Include, "include not found: "+include.Path, include.Ref().Loc, "", "", "")
	return "", "", diag.Fatal(d)
}
