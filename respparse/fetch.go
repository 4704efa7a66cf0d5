package respparse

import (
	"strings"

	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/token"
)

// stringValue renders a token as a plain string for astring/nstring
// positions: quoted strings and atoms by their text, literals by their raw
// bytes, NIL as "" (this module represents nstring absence as empty string
// throughout the data model).
func stringValue(t token.Token) string {
	switch t.Kind {
	case token.QuotedString, token.Atom:
		return t.Str
	case token.LiteralTok:
		return string(t.Lit)
	case token.NilTok:
		return ""
	default:
		return tokenText(t)
	}
}

// skipValue discards one value, balancing nested ( ) / [ ] groups, used for
// fetch/body-structure extension fields this parser chooses not to
// interpret.
func skipValue(c *cursor) {
	t := c.next()
	switch t.Kind {
	case token.LParen:
		depth := 1
		for depth > 0 && c.peek().Kind != token.CRLF {
			n := c.next()
			switch n.Kind {
			case token.LParen:
				depth++
			case token.RParen:
				depth--
			}
		}
	case token.LBracket:
		depth := 1
		for depth > 0 && c.peek().Kind != token.CRLF {
			n := c.next()
			switch n.Kind {
			case token.LBracket:
				depth++
			case token.RBracket:
				depth--
			}
		}
	}
}

// parseFetchAttrs parses "(key value key value …)" for one FETCH response,
// spec.md §4.2.2.
func parseFetchAttrs(c *cursor) (imap.FetchAttrs, error) {
	var attrs imap.FetchAttrs
	if c.peek().Kind != token.LParen {
		return attrs, &ParseError{Reason: "FETCH: expected '(' before attribute list"}
	}
	c.next()
	for c.peek().Kind != token.RParen {
		keyTok := c.next()
		if keyTok.Kind != token.Atom {
			return attrs, &ParseError{Reason: "FETCH: expected an attribute keyword"}
		}
		key := strings.ToUpper(keyTok.Str)
		switch key {
		case "FLAGS":
			fs, err := parseFlagList(c)
			if err != nil {
				return attrs, err
			}
			attrs.Flags = &fs
		case "UID":
			v := c.next().Num
			attrs.UID = &v
		case "RFC822.SIZE":
			v := c.next().Num
			attrs.RFC822Size = &v
		case "INTERNALDATE":
			v := stringValue(c.next())
			attrs.InternalDate = &v
		case "ENVELOPE":
			env, err := parseEnvelope(c)
			if err != nil {
				return attrs, err
			}
			attrs.Envelope = env
		case "BODYSTRUCTURE":
			bs, err := parseBodyStructure(c)
			if err != nil {
				return attrs, err
			}
			attrs.BodyStructure = bs
		case "BODY":
			switch c.peek().Kind {
			case token.LBracket:
				sectionKey, value, err := parseBodySection(c)
				if err != nil {
					return attrs, err
				}
				if attrs.Body == nil {
					attrs.Body = map[string][]byte{}
				}
				attrs.Body[sectionKey] = value
			case token.LParen:
				bs, err := parseBodyStructure(c)
				if err != nil {
					return attrs, err
				}
				attrs.BodyStructure = bs
			default:
				return attrs, &ParseError{Reason: "FETCH: BODY must be followed by '[' or '('"}
			}
		default:
			skipValue(c)
		}
	}
	c.next() // consume ')'
	return attrs, nil
}

// parseBodySection parses "[section]<partial>? nstring|literal", returning
// the dotted section key and its raw value bytes.
func parseBodySection(c *cursor) (string, []byte, error) {
	c.next() // consume '['
	var sb strings.Builder
	if c.peek().Kind != token.RBracket {
		specTok := c.next()
		sb.WriteString(stringValue(specTok))
		if c.peek().Kind == token.LParen {
			c.next()
			var names []string
			for c.peek().Kind != token.RParen {
				names = append(names, stringValue(c.next()))
			}
			c.next() // consume ')'
			sb.WriteString(" (")
			sb.WriteString(strings.Join(names, " "))
			sb.WriteString(")")
		}
	}
	if c.peek().Kind != token.RBracket {
		return "", nil, &ParseError{Reason: "BODY section missing closing ']'"}
	}
	c.next() // consume ']'
	if c.peek().Kind == token.Atom && strings.HasPrefix(c.peek().Str, "<") && strings.HasSuffix(c.peek().Str, ">") {
		sb.WriteString(c.next().Str)
	}
	valueTok := c.next()
	var value []byte
	switch valueTok.Kind {
	case token.NilTok:
		value = nil
	case token.QuotedString:
		value = []byte(valueTok.Str)
	case token.LiteralTok:
		value = valueTok.Lit
	default:
		return "", nil, &ParseError{Reason: "BODY section: expected an nstring or literal value"}
	}
	return sb.String(), value, nil
}
