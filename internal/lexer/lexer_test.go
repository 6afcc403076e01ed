package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f12lang/f12/internal/source"
	"github.com/f12lang/f12/internal/token"
)

func lexAll(t *testing.T, src string) ([]token.Token, error) {
	t.Helper()
	in := &source.Input{}
	in.Push(source.NewNamedString("test.f12", src))
	lx := New(in)

	var toks []token.Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, tok := range toks {
		ks[i] = tok.Kind
	}
	return ks
}

func Test_simpleTokens(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		want []token.Kind
	}{
		{"empty", "", []token.Kind{token.EOF}},
		{"punctuation", "(){}[];:,.", []token.Kind{
			token.LParen, token.RParen, token.LBrace, token.RBrace,
			token.LBracket, token.RBracket, token.Semi, token.Colon,
			token.Comma, token.Dot, token.EOF,
		}},
		{"operators", "+ - * / % ^ == != <= >= < > && || ! = =>", []token.Kind{
			token.Plus, token.Minus, token.Star, token.Slash, token.Percent, token.Caret,
			token.EqEq, token.NotEq, token.LtEq, token.GtEq, token.Lt, token.Gt,
			token.AndAnd, token.OrOr, token.Not, token.Assign, token.FatArrow, token.EOF,
		}},
		{"sigils", "--> <--", []token.Kind{token.ToStdout, token.FromStdin, token.EOF}},
		{"keywords", "fun if else while ret unit const continue break new free", []token.Kind{
			token.KwFun, token.KwIf, token.KwElse, token.KwWhile, token.KwRet,
			token.KwUnit, token.KwConst, token.KwContinue, token.KwBreak,
			token.KwNew, token.KwFree, token.EOF,
		}},
		{"types", "int float char string bool void", []token.Kind{
			token.KwInt, token.KwFloat, token.KwChar, token.KwString, token.KwBool, token.KwVoid, token.EOF,
		}},
		{"booleans", "true false", []token.Kind{token.BoolLit, token.BoolLit, token.EOF}},
		{"include helper", `>include "a.f12";`, []token.Kind{token.KwInclude, token.StringLit, token.Semi, token.EOF}},
		{"identifier after minus-minus", "a--b", []token.Kind{token.Ident, token.Minus, token.Minus, token.Ident, token.EOF}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			toks, err := lexAll(t, tc.src)
			require.NoError(t, err)
			require.Equal(t, tc.want, kinds(toks))
		})
	}
}

func Test_numberLiterals(t *testing.T) {
	for _, tc := range []struct {
		name    string
		src     string
		wantTok token.Token
	}{
		{"zero", "0", token.Token{Kind: token.IntLit, Lexeme: "0"}},
		{"int", "42", token.Token{Kind: token.IntLit, Lexeme: "42"}},
		{"float", "3.14", token.Token{Kind: token.FloatLit, Lexeme: "3.14"}},
		{"float no fraction digits", "1.", token.Token{Kind: token.FloatLit, Lexeme: "1."}},
		{"float exponent", "1e10", token.Token{Kind: token.FloatLit, Lexeme: "1e10"}},
		{"float exponent signed", "1.5e-3", token.Token{Kind: token.FloatLit, Lexeme: "1.5e-3"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			toks, err := lexAll(t, tc.src)
			require.NoError(t, err)
			require.Len(t, toks, 2)
			require.Equal(t, tc.wantTok.Kind, toks[0].Kind)
			require.Equal(t, tc.wantTok.Lexeme, toks[0].Lexeme)
		})
	}
}

func Test_multiDigitLeadingZeroIsError(t *testing.T) {
	_, err := lexAll(t, "007")
	require.Error(t, err)
	require.Contains(t, err.Error(), "multi digit integer cannot start with 0")
}

func Test_stringLiteralEscapes(t *testing.T) {
	toks, err := lexAll(t, `"a\nb\tc\\d\"e"`)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	require.Equal(t, token.StringLit, toks[0].Kind)
	require.Equal(t, "a\nb\tc\\d\"e", toks[0].Lexeme)
}

func Test_unterminatedStringIsError(t *testing.T) {
	_, err := lexAll(t, `"abc`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated string literal")
}

func Test_unterminatedMultilineCommentIsError(t *testing.T) {
	_, err := lexAll(t, "/* comment never ends")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated multi-line comment")
}

func Test_commentsAreSkipped(t *testing.T) {
	toks, err := lexAll(t, "1 // trailing\n+ /* block */ 2")
	require.NoError(t, err)
	require.Equal(t, []token.Kind{token.IntLit, token.Plus, token.IntLit, token.EOF}, kinds(toks))
}

func Test_charLiteral(t *testing.T) {
	toks, err := lexAll(t, `'a' '\n' '\''`)
	require.NoError(t, err)
	require.Equal(t, []token.Kind{token.CharLit, token.CharLit, token.CharLit, token.EOF}, kinds(toks))
	require.Equal(t, "a", toks[0].Lexeme)
}

func Test_unrecognizedGtHelperFallsBackToGtAndIdent(t *testing.T) {
	toks, err := lexAll(t, ">bogus")
	require.NoError(t, err)
	require.Equal(t, []token.Kind{token.Gt, token.Ident, token.EOF}, kinds(toks))
	require.Equal(t, "bogus", toks[1].Lexeme)
}

func Test_includeHelperStopsAtNonLetterBoundary(t *testing.T) {
	toks, err := lexAll(t, ">include")
	require.NoError(t, err)
	require.Equal(t, []token.Kind{token.KwInclude, token.EOF}, kinds(toks))
}

func Test_fatalErrorIsSticky(t *testing.T) {
	in := &source.Input{}
	in.Push(source.NewNamedString("test.f12", "007"))
	lx := New(in)
	_, err1 := lx.Next()
	require.Error(t, err1)
	_, err2 := lx.Next()
	require.Error(t, err2)
	require.Equal(t, err1, err2)
}

func Test_identifierLooksLikeArrowThenMinus(t *testing.T) {
	// "a-->b" must not be mis-lexed as "a" "--" ">" "b"; "-->" is the
	// to-stdout sigil and greedily wins over plain minus.
	toks, err := lexAll(t, "a-->b")
	require.NoError(t, err)
	require.Equal(t, []token.Kind{token.Ident, token.ToStdout, token.Ident, token.EOF}, kinds(toks))
}
