// Package sema runs the three analysis passes spec.md §4.3 describes over
// a parsed ast.Program: include resolution, name resolution (with slot
// assignment) and type resolution, followed by an entry-point check.
package sema

import (
	"github.com/f12lang/f12/internal/ast"
	"github.com/f12lang/f12/internal/diag"
	"github.com/f12lang/f12/internal/source"
)

// entry is whatever a name resolves to within a scope: a variable-like
// declaration (global, local, or parameter) or a function.
type entry struct {
	varDecl ast.Node    // *ast.DeclVar, *ast.Param or *ast.StmntDeclVar; nil if this is a function
	fun     *ast.DeclFun // non-nil if this name is a function
}

// scope is one link in the lexical scope chain: global, per-function, or
// per-block. Declarations register themselves here; references climb
// parents until they find a match or run out of scopes.
type scope struct {
	parent *scope
	names  map[string]entry
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: map[string]entry{}}
}

// declareVar registers a variable-like declaration, reporting a duplicate.
func (s *scope) declareVar(c *diag.Counter, name string, node ast.Node, loc source.Location) {
	if _, ok := s.names[name]; ok {
		c.Report(diag.Semantic, "duplicate declaration of '"+name+"'", loc)
		return
	}
	s.names[name] = entry{varDecl: node}
}

func (s *scope) declareFun(c *diag.Counter, name string, fn *ast.DeclFun, loc source.Location) {
	if _, ok := s.names[name]; ok {
		c.Report(diag.Semantic, "duplicate declaration of '"+name+"'", loc)
		return
	}
	s.names[name] = entry{fun: fn}
}

// lookup climbs the scope chain, returning the matching entry and whether
// one was found.
func (s *scope) lookup(name string) (entry, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if e, ok := cur.names[name]; ok {
			return e, true
		}
	}
	return entry{}, false
}
