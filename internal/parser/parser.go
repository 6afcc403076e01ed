// Package parser implements a recursive-descent parser over the F12
// token stream, producing a typed AST (spec.md §4.2). Lookahead is a
// single token in most places, widened to a few tokens only to
// disambiguate a `type[][] name` local/global declaration from a bare
// expression statement.
package parser

import (
	"fmt"
	"strconv"

	"github.com/f12lang/f12/internal/ast"
	"github.com/f12lang/f12/internal/diag"
	"github.com/f12lang/f12/internal/lexer"
	"github.com/f12lang/f12/internal/source"
	"github.com/f12lang/f12/internal/token"
)

// Parser reads tokens from a lexer.Lexer and renders a source-anchored
// diagnostic on the first error, then halts (spec.md §4.2: "the parser
// renders a source-anchored diagnostic and halts").
type Parser struct {
	lex  *lexer.Lexer
	in   *source.Input
	tok  token.Token
	peek []token.Token // extra lookahead buffer, filled on demand
}

// New creates a Parser over lex, whose diagnostics are rendered against in.
func New(lex *lexer.Lexer, in *source.Input) *Parser {
	p := &Parser{lex: lex, in: in}
	p.advance()
	return p
}

// ParseProgram parses a whole translation unit.
func (p *Parser) ParseProgram() (prog *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(parseError); ok {
				err = pe.err
				return
			}
			panic(r)
		}
	}()

	prog = &ast.Program{}
	for p.tok.Kind != token.EOF {
		prog.Decls = append(prog.Decls, p.parseTopDecl())
	}
	return prog, nil
}

// parseError unwinds the recursive descent to ParseProgram on the first
// syntax error, per spec.md §4.2 ("halts").
type parseError struct{ err error }

func (p *Parser) fail(loc source.Location, message string) {
	d := diag.Window(diag.Parsing, message, loc, p.in.Prior.Buffer.String(), p.in.Scan.Buffer.String(), "")
	panic(parseError{diag.Fatal(d)})
}

func (p *Parser) failTok(message string) {
	p.fail(p.tok.Loc, message)
}

// advance pulls the next token, either from the peek buffer or the lexer,
// halting on a lexer-level fatal error by propagating it as a parse halt.
func (p *Parser) advance() token.Token {
	prev := p.tok
	if len(p.peek) > 0 {
		p.tok = p.peek[0]
		p.peek = p.peek[1:]
	} else {
		tok, err := p.lex.Next()
		if err != nil {
			panic(parseError{err})
		}
		p.tok = tok
	}
	return prev
}

// peekAt returns the token n positions ahead of the current one (0 is the
// current token), buffering as many lexer reads as needed.
func (p *Parser) peekAt(n int) token.Token {
	if n == 0 {
		return p.tok
	}
	for len(p.peek) < n {
		tok, err := p.lex.Next()
		if err != nil {
			panic(parseError{err})
		}
		p.peek = append(p.peek, tok)
	}
	return p.peek[n-1]
}

func (p *Parser) at(k token.Kind) bool { return p.tok.Kind == k }

func (p *Parser) expect(k token.Kind) token.Token {
	if p.tok.Kind != k {
		p.failTok(fmt.Sprintf("expected %v, got %v", k, p.tok.Kind))
	}
	return p.advance()
}

func (p *Parser) accept(k token.Kind) (token.Token, bool) {
	if p.tok.Kind == k {
		return p.advance(), true
	}
	return token.Token{}, false
}

// --- top level -------------------------------------------------------

func (p *Parser) parseTopDecl() ast.Decl {
	switch p.tok.Kind {
	case token.KwInclude:
		return p.parseInclude()
	case token.KwFun:
		return p.parseFunDecl()
	case token.KwUnit:
		return p.parseUnitDecl()
	default:
		return p.parseGlobalVarDecl()
	}
}

func (p *Parser) parseInclude() *ast.Include {
	ref := p.advance() // 'include'
	pathTok := p.expect(token.StringLit)
	p.expect(token.Semi)
	inc := &ast.Include{Path: pathTok.Lexeme}
	inc.RefTok = ref
	return inc
}

func (p *Parser) parseFunDecl() *ast.DeclFun {
	ref := p.advance() // 'fun'
	name := p.expect(token.Ident)

	fn := &ast.DeclFun{}
	fn.RefTok = ref
	fn.Name = name.Lexeme

	p.expect(token.LParen)
	if !p.at(token.RParen) {
		for {
			ptyp := p.parseType()
			pname := p.expect(token.Ident)
			param := &ast.Param{Type: ptyp}
			param.RefTok = pname
			param.Name = pname.Lexeme
			fn.Params = append(fn.Params, param)
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
	}
	p.expect(token.RParen)

	if _, ok := p.accept(token.FatArrow); ok {
		fn.ReturnType = p.parseType()
	} else {
		fn.ReturnType = ast.NewPrimitive(ast.Void)
	}

	fn.Body = p.parseBlock()
	return fn
}

func (p *Parser) parseUnitDecl() *ast.DeclUnit {
	ref := p.advance() // 'unit'
	name := p.expect(token.Ident)
	u := &ast.DeclUnit{}
	u.RefTok = ref
	u.Name = name.Lexeme

	p.expect(token.LBrace)
	for !p.at(token.RBrace) {
		ftype := p.parseType()
		fname := p.expect(token.Ident)
		p.expect(token.Semi)
		f := &ast.UnitField{Type: ftype}
		f.RefTok = fname
		f.Name = fname.Lexeme
		u.Fields = append(u.Fields, f)
	}
	p.expect(token.RBrace)
	return u
}

func (p *Parser) parseGlobalVarDecl() *ast.DeclVar {
	ref := p.tok
	isConst := false
	if _, ok := p.accept(token.KwConst); ok {
		isConst = true
	}
	typ := p.parseType()
	name := p.expect(token.Ident)

	v := &ast.DeclVar{Const: isConst, Type: typ}
	v.RefTok = ref
	v.Name = name.Lexeme

	if _, ok := p.accept(token.Assign); ok {
		v.Init = p.parseExpr()
	}
	p.expect(token.Semi)
	return v
}

// --- types -------------------------------------------------------------

func (p *Parser) parseType() ast.Type {
	var t ast.Type
	switch p.tok.Kind {
	case token.KwInt:
		p.advance()
		t = ast.NewPrimitive(ast.Int)
	case token.KwFloat:
		p.advance()
		t = ast.NewPrimitive(ast.Float)
	case token.KwChar:
		p.advance()
		t = ast.NewPrimitive(ast.Char)
	case token.KwString:
		p.advance()
		t = ast.NewPrimitive(ast.String)
	case token.KwBool:
		p.advance()
		t = ast.NewPrimitive(ast.Bool)
	case token.KwVoid:
		p.advance()
		t = ast.NewPrimitive(ast.Void)
	case token.Ident:
		name := p.advance()
		t = &ast.UnitType{Name: name.Lexeme}
	case token.Star:
		p.advance()
		t = &ast.PointerType{Of: p.parseType()}
	default:
		p.failTok("expected a type")
	}
	for p.at(token.LBracket) && p.peekAt(1).Kind == token.RBracket {
		p.advance()
		p.advance()
		t = &ast.ArrayType{Inner: t}
	}
	return t
}

// looksLikeTypedDecl reports whether the upcoming tokens are a type
// followed by an identifier, i.e. a local variable declaration rather
// than the start of an expression statement. This needs lookahead past
// any number of `[]` array-type suffixes (spec.md §4.2: "occasionally up
// to 4 tokens").
func (p *Parser) looksLikeTypedDecl() bool {
	n := 0
	switch p.peekAt(n).Kind {
	case token.KwInt, token.KwFloat, token.KwChar, token.KwString, token.KwBool, token.KwVoid, token.KwConst, token.Star:
		// primitives, `*type` pointers and const unambiguously start a declaration
		return true
	case token.Ident:
		// a bare identifier could be a unit type name *or* the start of
		// an expression (a variable reference, a call). Only a
		// declaration if followed directly by another identifier, or by
		// `[]`* then an identifier.
		n++
		for p.peekAt(n).Kind == token.LBracket && p.peekAt(n+1).Kind == token.RBracket {
			n += 2
		}
		return p.peekAt(n).Kind == token.Ident
	default:
		return false
	}
}

// --- statements ----------------------------------------------------------

func (p *Parser) parseBlock() *ast.Block {
	ref := p.expect(token.LBrace)
	b := &ast.Block{}
	b.RefTok = ref
	for !p.at(token.RBrace) {
		b.Stmts = append(b.Stmts, p.parseStmt())
	}
	p.expect(token.RBrace)
	return b
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.tok.Kind {
	case token.Semi:
		ref := p.advance()
		s := &ast.StmntEmpty{}
		s.RefTok = ref
		return s
	case token.KwBreak:
		ref := p.advance()
		p.expect(token.Semi)
		s := &ast.StmntBreak{}
		s.RefTok = ref
		return s
	case token.KwContinue:
		ref := p.advance()
		p.expect(token.Semi)
		s := &ast.StmntContinue{}
		s.RefTok = ref
		return s
	case token.KwRet:
		ref := p.advance()
		s := &ast.StmntReturn{}
		s.RefTok = ref
		if !p.at(token.Semi) {
			s.Value = p.parseExpr()
		}
		p.expect(token.Semi)
		return s
	case token.ToStdout:
		ref := p.advance()
		s := &ast.StmntToStdout{}
		s.RefTok = ref
		s.Args = append(s.Args, p.parseExpr())
		for {
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
			s.Args = append(s.Args, p.parseExpr())
		}
		if len(s.Args) == 0 {
			// unreachable (parseExpr would have failed first), kept to
			// document spec.md §9: an empty --> argument list is an error.
			p.fail(ref.Loc, "--> requires at least one value")
		}
		p.expect(token.Semi)
		return s
	case token.KwWhile:
		ref := p.advance()
		s := &ast.StmntWhile{}
		s.RefTok = ref
		s.Cond = p.parseExpr()
		s.Body = p.parseBlock()
		return s
	case token.KwIf:
		return p.parseIf()
	case token.KwFree:
		ref := p.advance()
		s := &ast.StmntFree{}
		s.RefTok = ref
		s.Expr = p.parseExpr()
		p.expect(token.Semi)
		return s
	case token.LBrace:
		return p.parseBlock()
	default:
		if p.looksLikeTypedDecl() {
			return p.parseLocalVarDecl()
		}
		ref := p.tok
		e := p.parseExpr()
		p.expect(token.Semi)
		s := &ast.StmntExpr{Expr: e}
		s.RefTok = ref
		return s
	}
}

func (p *Parser) parseIf() *ast.StmntIf {
	ref := p.advance() // 'if'
	s := &ast.StmntIf{}
	s.RefTok = ref
	s.Cond = p.parseExpr()
	s.Then = p.parseBlock()
	if _, ok := p.accept(token.KwElse); ok {
		if p.at(token.KwIf) {
			s.Else = p.parseIf()
		} else {
			s.Else = p.parseBlock()
		}
	}
	return s
}

func (p *Parser) parseLocalVarDecl() *ast.StmntDeclVar {
	ref := p.tok
	isConst := false
	if _, ok := p.accept(token.KwConst); ok {
		isConst = true
	}
	typ := p.parseType()
	name := p.expect(token.Ident)

	v := &ast.StmntDeclVar{Const: isConst, Type: typ, Name: name.Lexeme}
	v.RefTok = ref
	if _, ok := p.accept(token.Assign); ok {
		v.Init = p.parseExpr()
	}
	p.expect(token.Semi)
	return v
}

// --- expressions: 10 precedence levels ------------------------------------
//
// assign > or > and > eq/ne > rel > add/sub > mul/div/mod > unary > power
// > postfix > primary. Assignment is right-associative; power is
// right-associative; everything else between is left-associative.

func (p *Parser) parseExpr() ast.Expr { return p.parseAssign() }

func (p *Parser) parseAssign() ast.Expr {
	lhs := p.parseOr()
	if ref, ok := p.accept(token.Assign); ok {
		switch lhs.(type) {
		case *ast.Var, *ast.Access, *ast.Index:
		default:
			p.fail(ref.Loc, "invalid assignment target")
		}
		rhs := p.parseAssign() // right-associative
		a := &ast.Assign{Target: lhs, Value: rhs}
		a.RefTok = ref
		return a
	}
	return lhs
}

func (p *Parser) parseOr() ast.Expr {
	e := p.parseAnd()
	for {
		ref, ok := p.accept(token.OrOr)
		if !ok {
			return e
		}
		rhs := p.parseAnd()
		b := &ast.Binary{Op: ast.OpOr, Left: e, Right: rhs}
		b.RefTok = ref
		e = b
	}
}

func (p *Parser) parseAnd() ast.Expr {
	e := p.parseEquality()
	for {
		ref, ok := p.accept(token.AndAnd)
		if !ok {
			return e
		}
		rhs := p.parseEquality()
		b := &ast.Binary{Op: ast.OpAnd, Left: e, Right: rhs}
		b.RefTok = ref
		e = b
	}
}

func (p *Parser) parseEquality() ast.Expr {
	e := p.parseRelational()
	for {
		var op ast.BinaryOp
		switch p.tok.Kind {
		case token.EqEq:
			op = ast.OpEq
		case token.NotEq:
			op = ast.OpNe
		default:
			return e
		}
		ref := p.advance()
		rhs := p.parseRelational()
		b := &ast.Binary{Op: op, Left: e, Right: rhs}
		b.RefTok = ref
		e = b
	}
}

func (p *Parser) parseRelational() ast.Expr {
	e := p.parseAdditive()
	for {
		var op ast.BinaryOp
		switch p.tok.Kind {
		case token.Lt:
			op = ast.OpLt
		case token.LtEq:
			op = ast.OpLe
		case token.Gt:
			op = ast.OpGt
		case token.GtEq:
			op = ast.OpGe
		default:
			return e
		}
		ref := p.advance()
		rhs := p.parseAdditive()
		b := &ast.Binary{Op: op, Left: e, Right: rhs}
		b.RefTok = ref
		e = b
	}
}

func (p *Parser) parseAdditive() ast.Expr {
	e := p.parseMultiplicative()
	for {
		var op ast.BinaryOp
		switch p.tok.Kind {
		case token.Plus:
			op = ast.OpAdd
		case token.Minus:
			op = ast.OpSub
		default:
			return e
		}
		ref := p.advance()
		rhs := p.parseMultiplicative()
		b := &ast.Binary{Op: op, Left: e, Right: rhs}
		b.RefTok = ref
		e = b
	}
}

func (p *Parser) parseMultiplicative() ast.Expr {
	e := p.parseUnary()
	for {
		var op ast.BinaryOp
		switch p.tok.Kind {
		case token.Star:
			op = ast.OpMul
		case token.Slash:
			op = ast.OpDiv
		case token.Percent:
			op = ast.OpMod
		default:
			return e
		}
		ref := p.advance()
		rhs := p.parseUnary()
		b := &ast.Binary{Op: op, Left: e, Right: rhs}
		b.RefTok = ref
		e = b
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.tok.Kind {
	case token.Plus:
		ref := p.advance()
		u := &ast.Unary{Op: ast.OpPos, Expr: p.parseUnary()}
		u.RefTok = ref
		return u
	case token.Minus:
		ref := p.advance()
		u := &ast.Unary{Op: ast.OpNeg, Expr: p.parseUnary()}
		u.RefTok = ref
		return u
	case token.Not:
		ref := p.advance()
		u := &ast.Unary{Op: ast.OpNot, Expr: p.parseUnary()}
		u.RefTok = ref
		return u
	default:
		return p.parsePower()
	}
}

func (p *Parser) parsePower() ast.Expr {
	base := p.parsePostfix()
	if ref, ok := p.accept(token.Caret); ok {
		exp := p.parseUnary() // right-associative: binds as tightly as another unary/power chain
		b := &ast.Binary{Op: ast.OpPow, Left: base, Right: exp}
		b.RefTok = ref
		return b
	}
	return base
}

func (p *Parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for {
		switch p.tok.Kind {
		case token.LBracket:
			ref := p.advance()
			idx := p.parseExpr()
			p.expect(token.RBracket)
			ix := &ast.Index{Base: e, Index: idx}
			ix.RefTok = ref
			e = ix
		case token.Dot:
			ref := p.advance()
			field := p.expect(token.Ident)
			a := &ast.Access{Base: e, Field: field.Lexeme}
			a.RefTok = ref
			e = a
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.tok.Kind {
	case token.IntLit:
		t := p.advance()
		if _, err := strconv.ParseInt(t.Lexeme, 10, 32); err != nil {
			p.fail(t.Loc, "integer literal out of range")
		}
		n := parseInt(t.Lexeme)
		lit := &ast.IntLit{Value: n}
		lit.RefTok = t
		lit.Typ = ast.NewPrimitive(ast.Int)
		return lit
	case token.FloatLit:
		t := p.advance()
		if _, err := strconv.ParseFloat(t.Lexeme, 64); err != nil {
			p.fail(t.Loc, "float literal out of range")
		}
		f := parseFloat(t.Lexeme)
		lit := &ast.FloatLit{Value: f}
		lit.RefTok = t
		lit.Typ = ast.NewPrimitive(ast.Float)
		return lit
	case token.CharLit:
		t := p.advance()
		lit := &ast.CharLit{Value: t.Lexeme[0]}
		lit.RefTok = t
		lit.Typ = ast.NewPrimitive(ast.Char)
		return lit
	case token.StringLit:
		t := p.advance()
		lit := &ast.StringLit{Value: t.Lexeme}
		lit.RefTok = t
		lit.Typ = ast.NewPrimitive(ast.String)
		return lit
	case token.BoolLit:
		t := p.advance()
		lit := &ast.BoolLit{Value: t.Lexeme == "true"}
		lit.RefTok = t
		lit.Typ = ast.NewPrimitive(ast.Bool)
		return lit
	case token.FromStdin:
		t := p.advance()
		e := &ast.FromStdin{}
		e.RefTok = t
		return e
	case token.KwNew:
		return p.parseNew()
	case token.LParen:
		p.advance()
		e := p.parseExpr()
		p.expect(token.RParen)
		return e
	case token.Ident:
		return p.parseIdentExpr()
	default:
		p.failTok("expected an expression")
		return nil
	}
}

func (p *Parser) parseIdentExpr() ast.Expr {
	name := p.advance()
	if p.at(token.LParen) {
		p.advance()
		call := &ast.Call{Name: name.Lexeme}
		call.RefTok = name
		if !p.at(token.RParen) {
			for {
				call.Args = append(call.Args, p.parseExpr())
				if _, ok := p.accept(token.Comma); !ok {
					break
				}
			}
		}
		p.expect(token.RParen)
		return call
	}
	v := &ast.Var{Name: name.Lexeme}
	v.RefTok = name
	return v
}

func (p *Parser) parseNew() ast.Expr {
	ref := p.advance() // 'new'
	if p.at(token.Ident) && p.peekAt(1).Kind == token.Pipe {
		name := p.advance()
		p.advance() // '|'
		cu := &ast.CreateUnit{Name: name.Lexeme}
		cu.RefTok = ref
		if !p.at(token.Pipe) {
			for {
				fname := p.expect(token.Ident)
				p.expect(token.Colon)
				val := p.parseExpr()
				cu.Fields = append(cu.Fields, ast.FieldInit{Name: fname.Lexeme, Value: val})
				if _, ok := p.accept(token.Comma); !ok {
					break
				}
			}
		}
		p.expect(token.Pipe)
		return cu
	}

	elemType := p.parseType()
	p.expect(token.LBracket)
	size := p.parseExpr()
	p.expect(token.RBracket)
	na := &ast.NewArray{ElemType: elemType, Size: size}
	na.RefTok = ref
	return na
}
