// This scanner is based on, and adapted from, Rob Pike's talk on Go
// scanners (https://talks.golang.org/2011/lex.slide): a stateFunc walking
// the input rune by rune. It emits directly onto a []Token slice rather
// than a channel, since this compiler's parser consumes a plain slice.
package token

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// stateFunc defines one state of the scanner.
type stateFunc func(*lexer) stateFunc

const runeEOF = 0

// lexer walks src rune by rune, accumulating Tokens.
type lexer struct {
	filename string
	input    string
	start    int // Byte offset of the token currently being scanned.
	pos      int // Byte offset of the scan head.
	width    int // Width in bytes of the last rune returned by next.
	line     int
	col      int // Column of l.start on the current line.
	tokens   []Token
	err      error
}

// Scan tokenizes src and returns the resulting token stream, always
// terminated by a token.EOF token. Scanning stops at the first lexical
// error.
func Scan(filename, src string) ([]Token, error) {
	l := &lexer{filename: filename, input: src, line: 1, col: 1}
	for state := stateFunc(lexGlobal); state != nil; {
		state = state(l)
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.tokens, nil
}

func (l *lexer) next() (r rune) {
	if l.pos >= len(l.input) {
		l.width = 0
		return runeEOF
	}
	r, l.width = utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += l.width
	return r
}

func (l *lexer) backup() {
	if l.pos > l.start {
		l.pos -= l.width
	}
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *lexer) ignore() {
	l.col += len(l.input[l.start:l.pos])
	l.start = l.pos
}

func (l *lexer) accept(valid string) bool {
	if strings.IndexRune(valid, l.next()) >= 0 {
		return true
	}
	l.backup()
	return false
}

// emit appends a Token of kind k spanning [l.start, l.pos) to the stream.
func (l *lexer) emit(k Kind) {
	l.tokens = append(l.tokens, Token{
		Kind: k,
		Data: l.input[l.start:l.pos],
		Loc:  Location{Filename: l.filename, Line: l.line, Column: l.col},
	})
	l.col += len(l.input[l.start:l.pos])
	l.start = l.pos
}

// emit2 emits a fixed-text token without reading it back from the input,
// used for multi-rune punctuators already fully consumed.
func (l *lexer) emit2(k Kind, text string) {
	l.tokens = append(l.tokens, Token{
		Kind: k,
		Data: text,
		Loc:  Location{Filename: l.filename, Line: l.line, Column: l.col},
	})
	l.col += len(text)
	l.start = l.pos
}

func (l *lexer) newline() {
	l.line++
	l.col = 1
}

func (l *lexer) errorf(format string, args ...interface{}) stateFunc {
	l.err = fmt.Errorf("%s:%d:%d: %s", l.filename, l.line, l.col, fmt.Sprintf(format, args...))
	return nil
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r'
}
