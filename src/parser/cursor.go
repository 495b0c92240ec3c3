// Package parser implements a hand-written recursive-descent parser: an
// 18-level precedence-climbing expression grammar over a token cursor.
package parser

import "clc/src/token"

// cursor walks a fixed token slice, advancing in place rather than
// cloning itself at every parse function: nothing in this grammar needs
// to resume from an old position after a sub-parse has committed, so a
// clone-and-return-new style would only add noise.
type cursor struct {
	toks []token.Token
	pos  int
}

func newCursor(toks []token.Token) *cursor {
	return &cursor{toks: toks}
}

// peek returns the token at the cursor without consuming it.
func (c *cursor) peek() token.Token {
	if c.pos >= len(c.toks) {
		return c.toks[len(c.toks)-1] // EOF sentinel, always present.
	}
	return c.toks[c.pos]
}

// peekKind reports whether the next token has kind k.
func (c *cursor) peekKind(k token.Kind) bool {
	return c.peek().Kind == k
}

// advance consumes and returns the next token.
func (c *cursor) advance() token.Token {
	t := c.peek()
	if c.pos < len(c.toks) {
		c.pos++
	}
	return t
}

// expect consumes the next token if it has kind k, else returns a
// diagnostic.
func (c *cursor) expect(k token.Kind) (token.Token, error) {
	t := c.peek()
	if t.Kind != k {
		return t, expectedGotError(k.String(), t)
	}
	return c.advance(), nil
}

// accept consumes and returns true if the next token has kind k, else
// leaves the cursor untouched and returns false.
func (c *cursor) accept(k token.Kind) bool {
	if c.peekKind(k) {
		c.advance()
		return true
	}
	return false
}
