package runeio

import (
	"errors"
	"strconv"
)

var errInvalidRune = errors.New(`char literal must be 'X'`)

// UnquoteRune parses an F12 char literal -- a single quoted character or a
// standard Go escape (\n, \t, \\, \', ...), spec.md §4.1 -- via
// strconv.UnquoteChar. Returns the parsed rune, or an error if token isn't
// a well-formed 'X' literal.
func UnquoteRune(token string) (rune, error) {
	runes := []rune(token)
	if len(runes) < 1 || runes[0] != '\'' {
		return 0, errInvalidRune
	}

	switch len(runes) {
	case 3:
		if runes[2] != '\'' {
			return 0, errInvalidRune
		}
	case 4:
		if runes[3] != '\'' {
			return 0, errInvalidRune
		}
	default:
		return 0, errInvalidRune
	}

	value, _, _, err := strconv.UnquoteChar(token[1:], '\'')
	return value, err
}
