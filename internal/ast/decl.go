package ast

import "github.com/f12lang/f12/internal/token"

// Decl is the sum type of F12 top-level declarations.
type Decl interface {
	Node
	declNode()
	DeclName() string
}

type declBase struct {
	RefTok token.Token
	Name   string
}

func (d *declBase) Ref() token.Token { return d.RefTok }
func (d *declBase) declNode()        {}
func (d *declBase) DeclName() string { return d.Name }

// Param is one function parameter.
type Param struct {
	declBase
	Type Type
	Slot int // byte offset within the callee's frame, 0-based
}

// DeclFun is a function declaration.
type DeclFun struct {
	declBase
	Params     []*Param
	ReturnType Type // *PrimitiveType{Void} if omitted
	Body       *Block

	Label      int // emitter-assigned code label for the function entry
	LocalsSize int // total byte size of the frame's slots: params first, then locals declared in Body
}

// DeclVar is a global variable declaration.
type DeclVar struct {
	declBase
	Const bool
	Type  Type
	Init  Expr // nil if uninitialized

	Slot int // byte offset from the base of global storage
}

// UnitField is one field of a unit (record) declaration.
type UnitField struct {
	declBase
	Type Type
	Slot int // byte offset within the unit's instances
}

// DeclUnit is a unit (record) declaration.
type DeclUnit struct {
	declBase
	Fields []*UnitField
	Size   int // total byte size of one instance
}

// Include is an `>include "path";` directive. It is resolved away (spliced
// into its parent Program's declaration list) before name resolution runs;
// it never survives into the annotated AST the other passes see.
type Include struct {
	declBase
	Path string
}

// Program is the AST root: an ordered list of top-level declarations.
type Program struct {
	Decls []Decl
}

func (p *Program) Ref() token.Token { return token.Token{} }
