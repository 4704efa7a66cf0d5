package respparse

import (
	"strconv"
	"strings"

	"github.com/HouzuoGuo/imapcore/token"
)

// tokenText renders a single token back to its textual form, used when
// reassembling free-form resp-text and the Unhandled escape hatch.
func tokenText(t token.Token) string {
	switch t.Kind {
	case token.Atom, token.QuotedString:
		return t.Str
	case token.Number:
		return strconv.FormatUint(t.Num, 10)
	case token.NilTok:
		return "NIL"
	case token.Flag:
		return `\` + t.Str
	case token.LParen:
		return "("
	case token.RParen:
		return ")"
	case token.LBracket:
		return "["
	case token.RBracket:
		return "]"
	case token.Star:
		return "*"
	case token.Plus:
		return "+"
	default:
		return ""
	}
}

// restOfLine collects the text form of every remaining token up to (not
// including) CRLF, joined by single spaces.
func restOfLine(c *cursor) string {
	var parts []string
	for !c.atCRLF() {
		parts = append(parts, tokenText(c.next()))
	}
	return strings.Join(parts, " ")
}

// normalizeCodeName lowercases a resp-text-code keyword and maps '-' to '_',
// per spec.md §4.2 "Unrecognized → normalized name (lowercase, '-'→'_')".
func normalizeCodeName(raw string) string {
	return strings.ReplaceAll(strings.ToLower(raw), "-", "_")
}

// collectUIDSet gathers a uid-set's token run starting at a Number token,
// per spec.md §4.2.1: numbers accepted at start/need_more; atoms whose
// first byte is ',' or ':' (and bare '*' tokens) continue the run.
func collectUIDSet(c *cursor) string {
	var sb strings.Builder
	first := c.next()
	switch first.Kind {
	case token.Number:
		sb.WriteString(strconv.FormatUint(first.Num, 10))
	case token.Star:
		sb.WriteString("*")
	default:
		sb.WriteString(tokenText(first))
	}
	for {
		p := c.peek()
		if p.Kind == token.Atom && len(p.Str) > 0 && (p.Str[0] == ',' || p.Str[0] == ':') {
			sb.WriteString(p.Str)
			c.next()
			continue
		}
		if p.Kind == token.Star {
			sb.WriteString("*")
			c.next()
			continue
		}
		break
	}
	return sb.String()
}
