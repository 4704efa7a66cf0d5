// Package respparse implements the Parser: token sequence → typed
// imap.Response (spec.md §4.2). It consumes one response's worth of tokens
// at a time, as produced by package token, and knows nothing about
// transport or buffering.
package respparse

import (
	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/token"
)

// cursor walks a token slice one response at a time.
type cursor struct {
	toks []token.Token
	pos  int
}

func newCursor(toks []token.Token) *cursor {
	return &cursor{toks: toks}
}

func (c *cursor) peek() token.Token {
	if c.pos >= len(c.toks) {
		return token.Token{Kind: token.CRLF}
	}
	return c.toks[c.pos]
}

func (c *cursor) next() token.Token {
	t := c.peek()
	if c.pos < len(c.toks) {
		c.pos++
	}
	return t
}

func (c *cursor) atCRLF() bool {
	return c.peek().Kind == token.CRLF
}

// ParseError reports a parser-level protocol violation: the tokens were
// well-formed but did not match any recognized response shape.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "respparse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return imap.ErrProtocol }
