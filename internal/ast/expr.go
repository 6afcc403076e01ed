package ast

import "github.com/f12lang/f12/internal/token"

// Expr is the sum type of F12 expressions.
type Expr interface {
	Node
	exprNode()
	Type() Type
	SetType(Type)
}

type exprBase struct {
	RefTok token.Token
	Typ    Type
}

func (e *exprBase) Ref() token.Token { return e.RefTok }
func (e *exprBase) exprNode()        {}
func (e *exprBase) Type() Type       { return e.Typ }
func (e *exprBase) SetType(t Type)   { e.Typ = t }

// IntLit is an integer literal.
type IntLit struct {
	exprBase
	Value int32
}

// FloatLit is a floating point literal.
type FloatLit struct {
	exprBase
	Value float64
}

// CharLit is a single-byte character literal.
type CharLit struct {
	exprBase
	Value byte
}

// StringLit is a string literal; Label is filled in by the emitter once the
// literal is interned into the string pool (spec.md invariant 4).
type StringLit struct {
	exprBase
	Value string
	Label int // pool label, valid after emission assigns it; 0 until then
}

// BoolLit is a boolean literal.
type BoolLit struct {
	exprBase
	Value bool
}

// ArrayLit is an inline array literal `[e1, e2, ...]`. The parser never
// produces one (the surface grammar builds arrays via `new T[expr]` plus
// element assignment); sema and the emitter handle it when an AST is
// built directly.
type ArrayLit struct {
	exprBase
	Elems []Expr
}

// BinaryOp identifies the binary expression's operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

// Binary is a binary arithmetic/comparison/equality/logic expression.
type Binary struct {
	exprBase
	Op          BinaryOp
	Left, Right Expr
}

// UnaryOp identifies the unary expression's operator.
type UnaryOp int

const (
	OpPos UnaryOp = iota
	OpNeg
	OpNot
)

// Unary is a unary +/-/! expression.
type Unary struct {
	exprBase
	Op   UnaryOp
	Expr Expr
}

// Var references a variable (local, parameter or global) by name; Decl is
// resolved during name resolution.
type Var struct {
	exprBase
	Name string
	Decl Node // *DeclVar, *Param, or *StmntDeclVar
}

// Access is a unit field access `base.field`.
type Access struct {
	exprBase
	Base  Expr
	Field string
	Decl  *UnitField
}

// Index is an array indexed access `base[index]`.
type Index struct {
	exprBase
	Base  Expr
	Index Expr
}

// Assign is an assignment expression `target = value`. F12 only has
// plain assignment (`=`); the target must be Var, Access or Index.
type Assign struct {
	exprBase
	Target Expr
	Value  Expr
}

// Call is a function call `name(args...)`. IsBuiltin marks a reference to
// one of the standard functions (spec.md §4.3: "built-in standard
// functions"), which have no DeclFun and are type-checked by special-case
// rules instead of by matching a parameter list.
type Call struct {
	exprBase
	Name      string
	Args      []Expr
	Decl      *DeclFun
	IsBuiltin bool
}

// FieldInit is one `field: value` initializer inside a unit construction.
type FieldInit struct {
	Name  string
	Value Expr
}

// CreateUnit is a unit construction `new T|field: v, ...|`.
type CreateUnit struct {
	exprBase
	Name   string
	Fields []FieldInit
	Decl   *DeclUnit
}

// NewArray is an array allocation `new T[size]`.
type NewArray struct {
	exprBase
	ElemType Type
	Size     Expr
}

// FromStdin is the `<--` expression, yielding one char from stdin.
type FromStdin struct {
	exprBase
}
