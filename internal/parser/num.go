package parser

import "strconv"

// parseInt and parseFloat assume the lexer has already validated the
// lexeme's grammar (spec.md §4.1) and that parsePrimary has already
// rejected out-of-range literals with a parse error; a strconv failure
// here would be an internal inconsistency, not a user error.

func parseInt(lexeme string) int32 {
	n, err := strconv.ParseInt(lexeme, 10, 32)
	if err != nil {
		panic("parser: lexer produced an invalid integer lexeme " + strconv.Quote(lexeme))
	}
	return int32(n)
}

func parseFloat(lexeme string) float64 {
	f, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		panic("parser: lexer produced an invalid float lexeme " + strconv.Quote(lexeme))
	}
	return f
}
