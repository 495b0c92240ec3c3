package parser

import (
	"fmt"

	"clc/src/token"
)

// expectedGotError formats the "expected X, got Y" parse diagnostic.
func expectedGotError(want string, got token.Token) error {
	if got.Kind == token.EOF {
		return fmt.Errorf("%s: unexpected end of file, expected %s", got.Loc, want)
	}
	return fmt.Errorf("%s: expected %s, got %s %q", got.Loc, want, got.Kind, got.Data)
}

// unexpectedTokenError formats the parser's second diagnostic kind: a
// token that cannot start any production the parser was about to try.
func unexpectedTokenError(got token.Token) error {
	if got.Kind == token.EOF {
		return fmt.Errorf("%s: unexpected end of file", got.Loc)
	}
	return fmt.Errorf("%s: unexpected token %s %q", got.Loc, got.Kind, got.Data)
}
