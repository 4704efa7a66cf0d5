package respparse

import (
	"strings"

	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/mimedecode"
	"github.com/HouzuoGuo/imapcore/token"
)

// parseEnvelope parses the ten-field ENVELOPE value, spec.md §4.2.2.
func parseEnvelope(c *cursor) (*imap.Envelope, error) {
	if c.peek().Kind != token.LParen {
		return nil, &ParseError{Reason: "ENVELOPE: expected '('"}
	}
	c.next()
	env := &imap.Envelope{
		Date:    stringValue(c.next()),
		Subject: mimedecode.DecodeRFC2047(stringValue(c.next())),
	}
	var err error
	if env.From, err = parseAddressList(c); err != nil {
		return nil, err
	}
	if env.Sender, err = parseAddressList(c); err != nil {
		return nil, err
	}
	if env.ReplyTo, err = parseAddressList(c); err != nil {
		return nil, err
	}
	if env.To, err = parseAddressList(c); err != nil {
		return nil, err
	}
	if env.CC, err = parseAddressList(c); err != nil {
		return nil, err
	}
	if env.BCC, err = parseAddressList(c); err != nil {
		return nil, err
	}
	env.InReplyTo = stringValue(c.next())
	env.MessageID = stringValue(c.next())
	if c.peek().Kind != token.RParen {
		return nil, &ParseError{Reason: "ENVELOPE: expected closing ')'"}
	}
	c.next()
	return env, nil
}

// parseAddressList parses an address-list: NIL or "((name adl mailbox
// host) …)".
func parseAddressList(c *cursor) ([]imap.Address, error) {
	if c.peek().Kind == token.NilTok {
		c.next()
		return nil, nil
	}
	if c.peek().Kind != token.LParen {
		return nil, &ParseError{Reason: "address-list: expected '(' or NIL"}
	}
	c.next()
	var addrs []imap.Address
	for c.peek().Kind != token.RParen {
		if c.peek().Kind != token.LParen {
			return nil, &ParseError{Reason: "address-list: expected '(' to start an address"}
		}
		c.next()
		name := mimedecode.DecodeRFC2047(stringValue(c.next()))
		adl := stringValue(c.next())
		mailbox := stringValue(c.next())
		host := stringValue(c.next())
		if c.peek().Kind != token.RParen {
			return nil, &ParseError{Reason: "address: expected closing ')'"}
		}
		c.next()
		addrs = append(addrs, imap.Address{Name: name, ADL: adl, Mailbox: mailbox, Host: host})
	}
	c.next() // consume the outer list's ')'
	return addrs, nil
}

// parseParamList parses NIL or "(key val key val …)".
func parseParamList(c *cursor) (map[string]string, error) {
	if c.peek().Kind == token.NilTok {
		c.next()
		return nil, nil
	}
	if c.peek().Kind != token.LParen {
		return nil, &ParseError{Reason: "param-list: expected '(' or NIL"}
	}
	c.next()
	params := map[string]string{}
	for c.peek().Kind != token.RParen {
		k := stringValue(c.next())
		v := stringValue(c.next())
		params[k] = v
	}
	c.next()
	return params, nil
}

// collectExtensionText gathers the text of every token up to (but not
// including) the RParen that closes the current group, recursively
// preserving nested parenthesization. Used to capture body-structure
// extension data this parser does not interpret field-by-field.
func collectExtensionText(c *cursor) string {
	var parts []string
	for c.peek().Kind != token.RParen && c.peek().Kind != token.CRLF {
		t := c.next()
		if t.Kind == token.LParen {
			inner := collectExtensionText(c)
			if c.peek().Kind == token.RParen {
				c.next()
			}
			parts = append(parts, "("+inner+")")
			continue
		}
		parts = append(parts, tokenText(t))
	}
	return strings.Join(parts, " ")
}

// parseBodyStructure parses a BODY/BODYSTRUCTURE value, recursively,
// spec.md §4.2.2.
func parseBodyStructure(c *cursor) (*imap.BodyStructure, error) {
	if c.peek().Kind != token.LParen {
		return nil, &ParseError{Reason: "BODYSTRUCTURE: expected '('"}
	}
	c.next()

	if c.peek().Kind == token.LParen {
		var parts []imap.BodyStructure
		for c.peek().Kind == token.LParen {
			child, err := parseBodyStructure(c)
			if err != nil {
				return nil, err
			}
			parts = append(parts, *child)
		}
		subtype := stringValue(c.next())
		bs := &imap.BodyStructure{Type: "multipart", Subtype: subtype, Parts: parts}
		bs.Extension = collectExtensionText(c)
		if c.peek().Kind != token.RParen {
			return nil, &ParseError{Reason: "BODYSTRUCTURE: multipart missing closing ')'"}
		}
		c.next()
		return bs, nil
	}

	typ := stringValue(c.next())
	subtype := stringValue(c.next())
	params, err := parseParamList(c)
	if err != nil {
		return nil, err
	}
	id := stringValue(c.next())
	description := stringValue(c.next())
	encoding := stringValue(c.next())
	size := uint32(c.next().Num)
	bs := &imap.BodyStructure{
		Type: typ, Subtype: subtype, Params: params,
		ID: id, Description: description, Encoding: encoding, Size: size,
	}
	if strings.EqualFold(typ, "text") && c.peek().Kind == token.Number {
		lines := uint32(c.next().Num)
		bs.Lines = &lines
	}
	if strings.EqualFold(typ, "message") && strings.EqualFold(subtype, "rfc822") &&
		c.peek().Kind == token.LParen {
		env, err := parseEnvelope(c)
		if err != nil {
			return nil, err
		}
		bs.Envelope = env
		child, err := parseBodyStructure(c)
		if err != nil {
			return nil, err
		}
		bs.Body = child
		if c.peek().Kind == token.Number {
			lines := uint32(c.next().Num)
			bs.Lines = &lines
		}
	}
	bs.Extension = collectExtensionText(c)
	if c.peek().Kind != token.RParen {
		return nil, &ParseError{Reason: "BODYSTRUCTURE: single-part missing closing ')'"}
	}
	c.next()
	return bs, nil
}
