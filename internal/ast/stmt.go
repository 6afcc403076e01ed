package ast

import "github.com/f12lang/f12/internal/token"

// Stmt is the sum type of F12 statements.
type Stmt interface {
	Node
	stmtNode()
}

type stmtBase struct{ RefTok token.Token }

func (s *stmtBase) Ref() token.Token { return s.RefTok }
func (s *stmtBase) stmtNode()        {}

// StmntEmpty is the empty statement `;`, synthetic (no useful reference
// token beyond the semicolon itself).
type StmntEmpty struct{ stmtBase }

// StmntDeclVar is a local variable declaration, using the same grammar as
// a global variable declaration (spec.md §4.2).
type StmntDeclVar struct {
	stmtBase
	Const bool
	Type  Type
	Name  string
	Init  Expr // nil if uninitialized
	Slot  int  // byte offset within the enclosing function frame
}

// StmntIf is `if cond { then } [else (if ... | block)]`.
type StmntIf struct {
	stmtBase
	Cond Expr
	Then *Block
	Else Stmt // *StmntIf or *Block, nil if no else clause
}

// StmntWhile is `while cond { body }`.
type StmntWhile struct {
	stmtBase
	Cond Expr
	Body *Block
}

// StmntBreak is `break;`, only valid inside a StmntWhile body.
type StmntBreak struct{ stmtBase }

// StmntContinue is `continue;`, only valid inside a StmntWhile body.
type StmntContinue struct{ stmtBase }

// StmntReturn is `ret [expr];`.
type StmntReturn struct {
	stmtBase
	Value Expr // nil for a bare `ret;`
}

// StmntExpr wraps an expression used as a statement.
type StmntExpr struct {
	stmtBase
	Expr Expr
}

// StmntToStdout is `--> e1, e2, ...;`. Args must be non-empty (spec.md §9
// open question: an empty argument list is rejected at parse time).
type StmntToStdout struct {
	stmtBase
	Args []Expr
}

// StmntFree is `free expr;`, freeing heap memory at the pointer expr.
type StmntFree struct {
	stmtBase
	Expr Expr
}

// Block is an ordered list of statements forming a lexical scope.
type Block struct {
	stmtBase
	Stmts []Stmt
}
