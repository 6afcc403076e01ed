// Package lexer implements the F12 character-driven lexer state machine
// (spec.md §4.1). It reads one input rune at a time from a source.Input,
// dispatching on (state, character-class) to append to an internal buffer,
// transition state, emit a token, or raise a fatal lexing error. The state
// table is a plain Go switch built once per Lexer, not a per-character
// allocated dispatch table (REDESIGN FLAGS: "Dispatch-table-of-lambdas per
// state").
package lexer

import (
	"io"
	"strconv"
	"strings"

	"github.com/f12lang/f12/internal/diag"
	"github.com/f12lang/f12/internal/runeio"
	"github.com/f12lang/f12/internal/source"
	"github.com/f12lang/f12/internal/token"
)

type state int

const (
	stStart state = iota
	stOpMinus
	stOpMinus2
	stOpDiv
	stSLComment
	stMLComment
	stMLCommentEnd
	stOpNot
	stOpAssign
	stOpAnd
	stOpOr
	stOpLt
	stOpGt
	stAfterGt
	stKwFromStdin
	stOpAccess
	stLitIntFirstZero
	stLitInt
	stLitFloatStart
	stLitFloat
	stLitFloatExp
	stLitFloatPreEnd
	stLitFloatEnd
	stLitStr
	stLitStrEscape
	stIdentifier
)

// runeLoc pairs a rune with the location it was read from, for runes that
// need to be re-fed into the state machine (a one-token lookahead spillover,
// or the tail of a failed `>name` helper match being re-lexed as plain
// tokens).
type runeLoc struct {
	r   rune
	loc source.Location
}

// Lexer is a deterministic finite state machine over an Input, producing a
// token stream. A single lexing error is fatal: Next returns it once and
// every subsequent call returns the same sentinel.
type Lexer struct {
	in    *source.Input
	state state
	buf   strings.Builder
	start source.Location

	requeue     []runeLoc
	virtualSent bool

	fatal error
}

// New creates a Lexer reading from in.
func New(in *source.Input) *Lexer {
	return &Lexer{in: in, state: stStart}
}

// Next returns the next token, or the EOF sentinel token once input is
// exhausted, or a fatal error if the source cannot be tokenized. Once a
// fatal error is returned, every further call returns it again.
func (l *Lexer) Next() (token.Token, error) {
	if l.fatal != nil {
		return token.Token{}, l.fatal
	}

	l.state = stStart
	l.buf.Reset()

	for {
		r, loc, ok := l.nextRune()
		if !ok {
			if l.fatal != nil {
				return token.Token{}, l.fatal
			}
			return token.Token{Kind: token.EOF, Loc: loc}, nil
		}
		if l.state == stStart {
			l.start = loc
		}

		tok, done, consumed, err := l.step(r, loc)
		if err != nil {
			return token.Token{}, err
		}
		if done {
			if !consumed {
				l.requeue = append([]runeLoc{{r, loc}}, l.requeue...)
			}
			return tok, nil
		}
	}
}

// nextRune returns the next input rune, serving any requeued runes first
// (a one-token lookahead spillover, or the tail of a failed `>name` match),
// then transparently appending a single virtual trailing whitespace rune
// once the underlying input is exhausted (spec.md §4.1: "a trailing
// whitespace is virtually appended to force terminal state flushing"). ok
// is false once even the virtual rune has already been consumed.
func (l *Lexer) nextRune() (rune, source.Location, bool) {
	if len(l.requeue) > 0 {
		rl := l.requeue[0]
		l.requeue = l.requeue[1:]
		return rl.r, rl.loc, true
	}

	loc := l.in.Loc()
	r, _, err := l.in.ReadRune()
	if err == nil {
		return r, loc, true
	}
	if err == io.EOF {
		if !l.virtualSent {
			l.virtualSent = true
			return ' ', loc, true
		}
		return 0, loc, false
	}
	l.fail(loc, "I/O error: "+err.Error())
	return 0, loc, false
}

func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isSpace(r rune) bool  { return r == ' ' || r == '\t' || r == '\r' || r == '\n' }

// step advances the state machine by one rune. It returns (token, done,
// consumed, err): done means a token was emitted (tok valid); consumed
// means the rune was folded into that token, so the next call to Next
// should read a fresh rune; !consumed means this rune belongs to the next
// token and is buffered as a one-rune pushback.
func (l *Lexer) step(r rune, loc source.Location) (tok token.Token, done, consumed bool, err error) {
	switch l.state {
	case stStart:
		return l.stepStart(r, loc)
	case stOpMinus:
		return l.stepOpMinus(r, loc)
	case stOpMinus2:
		if r == '>' {
			return l.emit(token.ToStdout, ""), true, true, nil
		}
		// `--` not followed by '>' is two minus operators: emit the first
		// and re-feed the second '-' (one column on) ahead of r.
		second := source.Location{File: l.start.File, Line: l.start.Line, Column: l.start.Column + 1}
		l.requeue = append([]runeLoc{{'-', second}, {r, loc}}, l.requeue...)
		return l.finish(l.simple(token.Minus)), true, true, nil
	case stOpDiv:
		switch r {
		case '/':
			l.state = stSLComment
			return tok, false, true, nil
		case '*':
			l.state = stMLComment
			return tok, false, true, nil
		default:
			return l.finish(l.simple(token.Slash)), true, false, nil
		}
	case stSLComment:
		if r == '\n' {
			l.state = stStart
		}
		return tok, false, true, nil
	case stMLComment:
		if l.virtualSent {
			return l.fail(l.start, "unterminated multi-line comment")
		}
		if r == '*' {
			l.state = stMLCommentEnd
		}
		return tok, false, true, nil
	case stMLCommentEnd:
		if l.virtualSent {
			return l.fail(l.start, "unterminated multi-line comment")
		}
		switch r {
		case '/':
			l.state = stStart
		case '*':
			// stay, another possible terminator follows
		default:
			l.state = stMLComment
		}
		return tok, false, true, nil
	case stOpNot:
		if r == '=' {
			return l.emit(token.NotEq, ""), true, true, nil
		}
		return l.finish(l.simple(token.Not)), true, false, nil
	case stOpAssign:
		if r == '=' {
			return l.emit(token.EqEq, ""), true, true, nil
		}
		if r == '>' {
			return l.emit(token.FatArrow, ""), true, true, nil
		}
		return l.finish(l.simple(token.Assign)), true, false, nil
	case stOpAnd:
		if r == '&' {
			return l.emit(token.AndAnd, ""), true, true, nil
		}
		return l.fail(l.start, "unexpected character '&'")
	case stOpOr:
		if r == '|' {
			return l.emit(token.OrOr, ""), true, true, nil
		}
		return l.finish(l.simple(token.Pipe)), true, false, nil
	case stOpLt:
		switch r {
		case '=':
			return l.emit(token.LtEq, ""), true, true, nil
		case '-':
			l.state = stKwFromStdin
			return tok, false, true, nil
		default:
			return l.finish(l.simple(token.Lt)), true, false, nil
		}
	case stKwFromStdin:
		if r == '-' {
			return l.emit(token.FromStdin, ""), true, true, nil
		}
		return l.fail(l.start, "expected '<--'")
	case stOpGt:
		if r == '=' {
			return l.emit(token.GtEq, ""), true, true, nil
		}
		return l.finish(l.simple(token.Gt)), true, false, nil
	case stAfterGt:
		return l.stepAfterGt(r, loc)
	case stOpAccess:
		return l.finish(l.simple(token.Dot)), true, false, nil
	case stLitIntFirstZero:
		return l.stepLitIntFirstZero(r, loc)
	case stLitInt:
		return l.stepLitInt(r, loc)
	case stLitFloatStart:
		return l.stepLitFloatStart(r, loc)
	case stLitFloat:
		return l.stepLitFloat(r, loc)
	case stLitFloatExp:
		return l.stepLitFloatExp(r, loc)
	case stLitFloatPreEnd:
		return l.stepLitFloatPreEnd(r, loc)
	case stLitFloatEnd:
		return l.stepLitFloatEnd(r, loc)
	case stLitStr:
		return l.stepLitStr(r, loc)
	case stLitStrEscape:
		return l.stepLitStrEscape(r, loc)
	case stIdentifier:
		return l.stepIdentifier(r, loc)
	default:
		return l.fail(loc, "internal: unknown lexer state")
	}
}

func (l *Lexer) stepStart(r rune, loc source.Location) (token.Token, bool, bool, error) {
	switch {
	case isSpace(r):
		return token.Token{}, false, true, nil
	case isDigit(r):
		l.buf.WriteRune(r)
		if r == '0' {
			l.state = stLitIntFirstZero
		} else {
			l.state = stLitInt
		}
		return token.Token{}, false, true, nil
	case isLetter(r):
		l.buf.WriteRune(r)
		l.state = stIdentifier
		return token.Token{}, false, true, nil
	case r == '"':
		l.state = stLitStr
		return token.Token{}, false, true, nil
	case r == '\'':
		return l.scanCharLit(loc)
	case r == '+':
		return l.emit(token.Plus, ""), true, true, nil
	case r == '-':
		l.state = stOpMinus
		return token.Token{}, false, true, nil
	case r == '*':
		return l.emit(token.Star, ""), true, true, nil
	case r == '/':
		l.state = stOpDiv
		return token.Token{}, false, true, nil
	case r == '%':
		return l.emit(token.Percent, ""), true, true, nil
	case r == '^':
		return l.emit(token.Caret, ""), true, true, nil
	case r == '!':
		l.state = stOpNot
		return token.Token{}, false, true, nil
	case r == '=':
		l.state = stOpAssign
		return token.Token{}, false, true, nil
	case r == '&':
		l.state = stOpAnd
		return token.Token{}, false, true, nil
	case r == '|':
		l.state = stOpOr
		return token.Token{}, false, true, nil
	case r == '<':
		l.state = stOpLt
		return token.Token{}, false, true, nil
	case r == '>':
		l.state = stAfterGt
		return token.Token{}, false, true, nil
	case r == '.':
		l.state = stOpAccess
		return token.Token{}, false, true, nil
	case r == '{':
		return l.emit(token.LBrace, ""), true, true, nil
	case r == '}':
		return l.emit(token.RBrace, ""), true, true, nil
	case r == '(':
		return l.emit(token.LParen, ""), true, true, nil
	case r == ')':
		return l.emit(token.RParen, ""), true, true, nil
	case r == '[':
		return l.emit(token.LBracket, ""), true, true, nil
	case r == ']':
		return l.emit(token.RBracket, ""), true, true, nil
	case r == ';':
		return l.emit(token.Semi, ""), true, true, nil
	case r == ':':
		return l.emit(token.Colon, ""), true, true, nil
	case r == ',':
		return l.emit(token.Comma, ""), true, true, nil
	default:
		return l.fail(loc, "unexpected character "+strconv.QuoteRune(r))
	}
}

func (l *Lexer) stepOpMinus(r rune, loc source.Location) (token.Token, bool, bool, error) {
	switch r {
	case '-':
		l.state = stOpMinus2
		return token.Token{}, false, true, nil
	case '>':
		return l.emit(token.ToStdout, ""), true, true, nil
	default:
		return l.finish(l.simple(token.Minus)), true, false, nil
	}
}

func (l *Lexer) stepAfterGt(r rune, loc source.Location) (token.Token, bool, bool, error) {
	if r == '=' {
		return l.emit(token.GtEq, ""), true, true, nil
	}
	if isLetter(r) {
		l.buf.WriteRune('>')
		l.buf.WriteRune(r)
		l.state = stIdentifier
		return token.Token{}, false, true, nil
	}
	return l.finish(l.simple(token.Gt)), true, false, nil
}

func (l *Lexer) stepLitIntFirstZero(r rune, loc source.Location) (token.Token, bool, bool, error) {
	if isDigit(r) {
		return l.fail(l.start, "multi digit integer cannot start with 0")
	}
	if r == '.' {
		l.buf.WriteRune(r)
		l.state = stLitFloatStart
		return token.Token{}, false, true, nil
	}
	return l.finish(l.finishInt()), true, false, nil
}

func (l *Lexer) stepLitInt(r rune, loc source.Location) (token.Token, bool, bool, error) {
	switch {
	case isDigit(r):
		l.buf.WriteRune(r)
		return token.Token{}, false, true, nil
	case r == '.':
		l.buf.WriteRune(r)
		l.state = stLitFloatStart
		return token.Token{}, false, true, nil
	case r == 'e' || r == 'E':
		l.buf.WriteRune(r)
		l.state = stLitFloatExp
		return token.Token{}, false, true, nil
	default:
		return l.finish(l.finishInt()), true, false, nil
	}
}

func (l *Lexer) stepLitFloatStart(r rune, loc source.Location) (token.Token, bool, bool, error) {
	switch {
	case isDigit(r):
		l.buf.WriteRune(r)
		l.state = stLitFloat
		return token.Token{}, false, true, nil
	case r == 'e' || r == 'E':
		l.buf.WriteRune(r)
		l.state = stLitFloatExp
		return token.Token{}, false, true, nil
	default:
		return l.finish(l.finishFloat()), true, false, nil
	}
}

func (l *Lexer) stepLitFloat(r rune, loc source.Location) (token.Token, bool, bool, error) {
	switch {
	case isDigit(r):
		l.buf.WriteRune(r)
		return token.Token{}, false, true, nil
	case r == 'e' || r == 'E':
		l.buf.WriteRune(r)
		l.state = stLitFloatExp
		return token.Token{}, false, true, nil
	default:
		return l.finish(l.finishFloat()), true, false, nil
	}
}

func (l *Lexer) stepLitFloatExp(r rune, loc source.Location) (token.Token, bool, bool, error) {
	if r == '+' || r == '-' {
		l.buf.WriteRune(r)
		l.state = stLitFloatPreEnd
		return token.Token{}, false, true, nil
	}
	if isDigit(r) {
		l.buf.WriteRune(r)
		l.state = stLitFloatEnd
		return token.Token{}, false, true, nil
	}
	return l.fail(l.start, "malformed float exponent")
}

func (l *Lexer) stepLitFloatPreEnd(r rune, loc source.Location) (token.Token, bool, bool, error) {
	if isDigit(r) {
		l.buf.WriteRune(r)
		l.state = stLitFloatEnd
		return token.Token{}, false, true, nil
	}
	return l.fail(l.start, "malformed float exponent")
}

func (l *Lexer) stepLitFloatEnd(r rune, loc source.Location) (token.Token, bool, bool, error) {
	if isDigit(r) {
		l.buf.WriteRune(r)
		return token.Token{}, false, true, nil
	}
	return l.finish(l.finishFloat()), true, false, nil
}

func (l *Lexer) stepLitStr(r rune, loc source.Location) (token.Token, bool, bool, error) {
	switch {
	case l.virtualSent:
		return l.fail(l.start, "unterminated string literal")
	case r == '"':
		return l.emit(token.StringLit, l.buf.String()), true, true, nil
	case r == '\\':
		l.state = stLitStrEscape
		return token.Token{}, false, true, nil
	default:
		l.buf.WriteRune(r)
		return token.Token{}, false, true, nil
	}
}

func (l *Lexer) stepLitStrEscape(r rune, loc source.Location) (token.Token, bool, bool, error) {
	if l.virtualSent {
		return l.fail(l.start, "unterminated string literal")
	}
	switch r {
	case '"':
		l.buf.WriteByte('"')
	case 'n':
		l.buf.WriteByte('\n')
	case 't':
		l.buf.WriteByte('\t')
	case '\\':
		l.buf.WriteByte('\\')
	default:
		return l.fail(loc, "bad escape sequence '\\"+string(r)+"'")
	}
	l.state = stLitStr
	return token.Token{}, false, true, nil
}

func (l *Lexer) stepIdentifier(r rune, loc source.Location) (token.Token, bool, bool, error) {
	if isLetter(r) || isDigit(r) {
		l.buf.WriteRune(r)
		return token.Token{}, false, true, nil
	}
	name := l.buf.String()
	if strings.HasPrefix(name, ">") {
		helper := name[1:]
		if kind, ok := token.Helpers[helper]; ok {
			return l.finish(l.emit(kind, "")), true, false, nil
		}
		// No longest-match helper name: re-lex as a bare '>' followed by an
		// ordinary identifier (spec.md §4.1), by feeding the runes after
		// '>' (plus the one that just ended the scan) back through the
		// state machine. None of these runes can be a newline, so a flat
		// column offset from the '>' is exact.
		gt := l.start
		for i, ch := range helper {
			l.requeue = append(l.requeue, runeLoc{ch, source.Location{File: gt.File, Line: gt.Line, Column: gt.Column + 1 + i}})
		}
		l.requeue = append(l.requeue, runeLoc{r, loc})
		return l.finish(l.simple(token.Gt)), true, true, nil
	}
	if kind, ok := token.Keywords[name]; ok {
		return l.finish(l.emit(kind, name)), true, false, nil
	}
	return l.finish(l.emit(token.Ident, name)), true, false, nil
}

// scanCharLit reads the remainder of a char literal directly (bypassing
// the pending-rune machinery, since a char literal is self-delimiting and
// may contain an escape that itself looks like the closing quote).
func (l *Lexer) scanCharLit(loc source.Location) (token.Token, bool, bool, error) {
	var raw strings.Builder
	raw.WriteByte('\'')
	for raw.Len() < 16 {
		r, _, err := l.in.ReadRune()
		if err != nil {
			return l.fail(l.start, "unterminated char literal")
		}
		raw.WriteRune(r)
		if r == '\\' {
			r2, _, err := l.in.ReadRune()
			if err != nil {
				return l.fail(l.start, "unterminated char literal")
			}
			raw.WriteRune(r2)
			continue
		}
		if r == '\'' {
			break
		}
	}
	v, err := runeio.UnquoteRune(raw.String())
	if err != nil {
		return l.fail(l.start, "malformed char literal: "+err.Error())
	}
	return l.emit(token.CharLit, string(byte(v))), true, true, nil
}

// emit builds a token of kind at the token's start location. It does not
// touch the lexer state; Next() resets that to Start before scanning the
// following token.
func (l *Lexer) emit(kind token.Kind, lexeme string) token.Token {
	return token.Token{Kind: kind, Loc: l.start, Lexeme: lexeme}
}

// simple is a small alias for emit used by the pushback-producing states,
// named separately so those call sites read as "finish with this simple
// token" at a glance.
func (l *Lexer) simple(kind token.Kind) token.Token { return l.emit(kind, "") }

// finish is a no-op pass-through kept for readability at call sites that
// compute a token then immediately return it as done.
func (l *Lexer) finish(tok token.Token) token.Token { return tok }

func (l *Lexer) finishInt() token.Token   { return l.emit(token.IntLit, l.buf.String()) }
func (l *Lexer) finishFloat() token.Token { return l.emit(token.FloatLit, l.buf.String()) }

func (l *Lexer) fail(loc source.Location, message string) (token.Token, bool, bool, error) {
	prior := l.in.Prior.Buffer.String()
	current := l.in.Scan.Buffer.String()
	d := diag.Window(diag.Lexing, message, loc, prior, current, "")
	l.fatal = diag.Fatal(d)
	return token.Token{}, false, false, l.fatal
}
