package respparse

import (
	"strings"

	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/token"
)

// parseRespTextCode parses "[code ...]" starting at an LBracket token,
// per spec.md §4.2 "Resp-text-code table".
func parseRespTextCode(c *cursor) (*imap.ResponseCode, error) {
	c.next() // consume '['
	nameTok := c.next()
	if nameTok.Kind != token.Atom {
		return nil, &ParseError{Reason: "expected a resp-text-code keyword"}
	}
	name := strings.ToUpper(nameTok.Str)
	code := &imap.ResponseCode{}

	switch name {
	case "CAPABILITY":
		code.Kind = imap.CodeCapability
		for c.peek().Kind == token.Atom {
			code.Capability = append(code.Capability, c.next().Str)
		}
	case "PERMANENTFLAGS":
		code.Kind = imap.CodePermanentFlags
		flags, err := parseFlagList(c)
		if err != nil {
			return nil, err
		}
		code.PermanentFlags = flags
	case "UIDNEXT":
		code.Kind = imap.CodeUIDNext
		code.UIDNext = uint32(c.next().Num)
	case "UIDVALIDITY":
		code.Kind = imap.CodeUIDValidity
		code.UIDValidity = uint32(c.next().Num)
	case "APPENDUID":
		code.Kind = imap.CodeAppendUID
		code.AppendUIDValid = uint32(c.next().Num)
		code.AppendUID = uint32(c.next().Num)
	case "COPYUID":
		code.Kind = imap.CodeCopyUID
		code.CopyUIDValidity = uint32(c.next().Num)
		code.CopySrcUIDSet = collectUIDSet(c)
		code.CopyDstUIDSet = collectUIDSet(c)
	default:
		if kind, ok := imap.ParameterlessCodeKind(name); ok {
			code.Kind = kind
		} else {
			code.Kind = imap.CodeOther
			code.Name = normalizeCodeName(nameTok.Str)
			var parts []string
			for c.peek().Kind != token.RBracket {
				parts = append(parts, tokenText(c.next()))
			}
			code.OtherText = strings.Join(parts, " ")
		}
	}

	if c.peek().Kind != token.RBracket {
		return nil, &ParseError{Reason: "resp-text-code missing closing ']'"}
	}
	c.next() // consume ']'
	return code, nil
}

// parseRespText parses resp-text: an optional "[code]" followed by
// free-form text, shared by Tagged, BYE, OK/NO/BAD, and PREAUTH.
func parseRespText(c *cursor) (*imap.ResponseCode, string, error) {
	var code *imap.ResponseCode
	if c.peek().Kind == token.LBracket {
		var err error
		code, err = parseRespTextCode(c)
		if err != nil {
			return nil, "", err
		}
	}
	return code, restOfLine(c), nil
}
