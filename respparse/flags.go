package respparse

import (
	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/token"
)

// flagTokenRaw reconstructs a flag token's raw wire spelling for
// imap.NormalizeFlag: backslash flags have their leading '\' restored;
// keyword flags (bare Atom) pass through unchanged.
func flagTokenRaw(t token.Token) string {
	if t.Kind == token.Flag {
		return `\` + t.Str
	}
	return t.Str
}

// parseFlagList parses "(flag flag …)" starting at an LParen token.
func parseFlagList(c *cursor) (imap.FlagSet, error) {
	if c.peek().Kind != token.LParen {
		return nil, &ParseError{Reason: "expected '(' to start a flag list"}
	}
	c.next()
	var raw []string
	for c.peek().Kind != token.RParen {
		t := c.peek()
		if t.Kind != token.Flag && t.Kind != token.Atom {
			return nil, &ParseError{Reason: "expected a flag inside a flag list"}
		}
		raw = append(raw, flagTokenRaw(t))
		c.next()
	}
	c.next() // consume RParen
	return imap.NewFlagSet(raw...), nil
}
