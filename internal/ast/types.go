// Package ast defines the F12 abstract syntax tree: type descriptors,
// expressions, statements and declarations, plus the root Program node.
// Nodes carry no back-pointer to their parent: the tree is owned strictly
// top-down, and the only cross-links are resolution results (such as
// Var.Decl and Call.Decl) that sema fills in.
package ast

import "github.com/f12lang/f12/internal/token"

// PrimitiveKind enumerates the primitive value types.
type PrimitiveKind int

const (
	Int PrimitiveKind = iota
	Float
	Char
	String
	Bool
	Void
)

func (p PrimitiveKind) String() string {
	switch p {
	case Int:
		return "int"
	case Float:
		return "float"
	case Char:
		return "char"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Void:
		return "void"
	default:
		return "?"
	}
}

// Size returns the byte size of a primitive's runtime representation.
func (p PrimitiveKind) Size() int {
	switch p {
	case Int:
		return 4
	case Float:
		return 8
	case Char, Bool:
		return 1
	case String:
		return 4 // a string value is a heap/pool address
	case Void:
		return 0
	default:
		return 0
	}
}

// Type is the sum type of F12 type descriptors: Primitive, Pointer, Array, Unit.
type Type interface {
	typeNode()
	String() string
}

// PrimitiveType is one of the scalar/void primitive types.
type PrimitiveType struct{ Kind PrimitiveKind }

func (*PrimitiveType) typeNode()       {}
func (t *PrimitiveType) String() string { return t.Kind.String() }

// PointerType is a typed pointer, `of` being the pointee type. A null
// pointer's `of` matches any PointerType during unification (spec.md §4.3).
type PointerType struct{ Of Type }

func (*PointerType) typeNode()       {}
func (t *PointerType) String() string { return t.Of.String() + "*" }

// ArrayType is a homogeneous array of Inner-typed elements.
type ArrayType struct{ Inner Type }

func (*ArrayType) typeNode()       {}
func (t *ArrayType) String() string { return t.Inner.String() + "[]" }

// UnitType references a declared record ("unit") by name; Decl is resolved
// during name resolution (nil until then).
type UnitType struct {
	Name string
	Decl *DeclUnit
}

func (*UnitType) typeNode()       {}
func (t *UnitType) String() string { return t.Name }

// NewPrimitive is a convenience constructor for a PrimitiveType.
func NewPrimitive(k PrimitiveKind) *PrimitiveType { return &PrimitiveType{Kind: k} }

// SizeOf returns the byte size of a value of type t as stored in a slot,
// local/global frame, or unit field. Arrays and units are always accessed
// through a heap address (spec.md §4.6), so both occupy one int-sized slot
// regardless of their element/field layout; the layout itself only matters
// once the address is dereferenced.
func SizeOf(t Type) int {
	switch tt := t.(type) {
	case *PrimitiveType:
		return tt.Kind.Size()
	case *PointerType:
		return Int.Size()
	case *ArrayType:
		return Int.Size()
	case *UnitType:
		return Int.Size()
	default:
		return 0
	}
}

// IsNumeric reports whether t is int or float.
func IsNumeric(t Type) bool {
	p, ok := t.(*PrimitiveType)
	return ok && (p.Kind == Int || p.Kind == Float)
}

// Node is implemented by every AST node; Ref returns the node's reference
// token for diagnostics (spec.md invariant 1). Synthetic nodes (e.g. an
// empty statement) may return a zero-value token.
type Node interface {
	Ref() token.Token
}
