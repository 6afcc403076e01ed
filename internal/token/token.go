// Package token defines the F12 token model: kinds, source locations and
// the keyword/type/constant tables the lexer and parser share.
package token

import (
	"fmt"

	"github.com/f12lang/f12/internal/source"
)

// Kind tags the variant of a Token.
type Kind int

const (
	Invalid Kind = iota
	EOF

	// literals
	IntLit
	FloatLit
	CharLit
	StringLit
	BoolLit

	// identifier
	Ident

	// operators
	Plus
	Minus
	Star
	Slash
	Percent
	Caret
	EqEq
	NotEq
	Gt
	GtEq
	Lt
	LtEq
	AndAnd
	OrOr
	Not
	Assign
	Dot
	FatArrow

	// delimiters
	LBrace
	RBrace
	LParen
	RParen
	LBracket
	RBracket
	Semi
	Colon
	Comma
	Pipe

	// sigils
	ToStdout // -->
	FromStdin // <--

	// keywords
	KwFun
	KwIf
	KwElse
	KwWhile
	KwRet
	KwUnit
	KwConst
	KwContinue
	KwBreak
	KwIn
	KwNew
	KwFree
	KwInclude

	// primitive type keywords
	KwInt
	KwFloat
	KwChar
	KwString
	KwBool
	KwVoid
)

var kindNames = map[Kind]string{
	Invalid: "INVALID", EOF: "EOF",
	IntLit: "int-lit", FloatLit: "float-lit", CharLit: "char-lit", StringLit: "string-lit", BoolLit: "bool-lit",
	Ident: "ident",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", Caret: "^",
	EqEq: "==", NotEq: "!=", Gt: ">", GtEq: ">=", Lt: "<", LtEq: "<=",
	AndAnd: "&&", OrOr: "||", Not: "!", Assign: "=", Dot: ".", FatArrow: "=>",
	LBrace: "{", RBrace: "}", LParen: "(", RParen: ")", LBracket: "[", RBracket: "]",
	Semi: ";", Colon: ":", Comma: ",", Pipe: "|",
	ToStdout: "-->", FromStdin: "<--",
	KwFun: "fun", KwIf: "if", KwElse: "else", KwWhile: "while", KwRet: "ret",
	KwUnit: "unit", KwConst: "const", KwContinue: "continue", KwBreak: "break",
	KwIn: "in", KwNew: "new", KwFree: "free", KwInclude: "include",
	KwInt: "int", KwFloat: "float", KwChar: "char", KwString: "string", KwBool: "bool", KwVoid: "void",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keywords maps reserved words (including primitive type names) to their Kind.
var Keywords = map[string]Kind{
	"fun": KwFun, "if": KwIf, "else": KwElse, "while": KwWhile, "ret": KwRet,
	"unit": KwUnit, "const": KwConst, "continue": KwContinue, "break": KwBreak,
	"in": KwIn, "new": KwNew, "free": KwFree,
	"int": KwInt, "float": KwFloat, "char": KwChar, "string": KwString, "bool": KwBool, "void": KwVoid,
	"true": BoolLit, "false": BoolLit,
}

// Helpers maps the longest-match helper names recognized after a bare '>'.
var Helpers = map[string]Kind{
	"include": KwInclude,
}

// PrimitiveKinds lists the Kind values that name a primitive type.
var PrimitiveKinds = map[Kind]bool{
	KwInt: true, KwFloat: true, KwChar: true, KwString: true, KwBool: true, KwVoid: true,
}

// Token is the tagged variant (kind, location, lexeme) produced by the lexer.
// Lexeme is meaningful only for identifiers and literals.
type Token struct {
	Kind   Kind
	Loc    source.Location
	Lexeme string
}

func (t Token) String() string {
	if t.Lexeme != "" {
		return fmt.Sprintf("%v(%q)@%v", t.Kind, t.Lexeme, t.Loc)
	}
	return fmt.Sprintf("%v@%v", t.Kind, t.Loc)
}

// IsEOF reports whether t is the end-of-file sentinel token.
func (t Token) IsEOF() bool { return t.Kind == EOF }
