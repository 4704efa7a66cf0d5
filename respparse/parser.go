package respparse

import (
	"strings"

	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/token"
)

// Parse consumes one response's worth of tokens (as returned by a single
// token.Tokenize call, including its trailing CRLF token) and produces a
// typed imap.Response, spec.md §4.2.
func Parse(toks []token.Token) (imap.Response, error) {
	c := newCursor(toks)
	switch c.peek().Kind {
	case token.Star:
		return parseUntagged(c)
	case token.Plus:
		return parseContinuation(c)
	default:
		return parseTagged(c)
	}
}

func statusFromAtom(s string) (imap.Status, bool) {
	switch strings.ToUpper(s) {
	case "OK":
		return imap.OK, true
	case "NO":
		return imap.NO, true
	case "BAD":
		return imap.BAD, true
	default:
		return imap.OK, false
	}
}

func parseTagged(c *cursor) (imap.Response, error) {
	tagTok := c.next()
	if tagTok.Kind != token.Atom {
		return imap.Response{}, &ParseError{Reason: "expected a tag at start of response"}
	}
	statusTok := c.next()
	if statusTok.Kind != token.Atom {
		return imap.Response{}, &ParseError{Reason: "expected a status atom after tag"}
	}
	status, ok := statusFromAtom(statusTok.Str)
	if !ok {
		return imap.Response{}, &ParseError{Reason: "unrecognized tagged status: " + statusTok.Str}
	}
	code, text, err := parseRespText(c)
	if err != nil {
		return imap.Response{}, err
	}
	if c.peek().Kind != token.CRLF {
		return imap.Response{}, &ParseError{Reason: "trailing tokens after tagged response text"}
	}
	return imap.Response{
		Kind: imap.RespTagged,
		Tagged: imap.TaggedResponse{
			Tag:    tagTok.Str,
			Status: status,
			Code:   code,
			Text:   text,
		},
	}, nil
}

// isBase64Like matches ^[A-Za-z0-9+/]+=*$, non-empty, per spec.md §4.2.
func isBase64Like(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	for ; i < len(s); i++ {
		b := s[i]
		isB64Char := (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '+' || b == '/'
		if !isB64Char {
			break
		}
	}
	if i == 0 {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] != '=' {
			return false
		}
	}
	return true
}

func parseContinuation(c *cursor) (imap.Response, error) {
	c.next() // consume '+'
	var toks []token.Token
	for !c.atCRLF() {
		toks = append(toks, c.next())
	}
	if c.peek().Kind != token.CRLF {
		return imap.Response{}, &ParseError{Reason: "continuation response missing CRLF"}
	}
	cont := imap.ContinuationResponse{}
	if len(toks) == 1 && toks[0].Kind == token.Atom && isBase64Like(toks[0].Str) {
		cont.Base64 = toks[0].Str
		cont.IsB64 = true
	} else {
		var parts []string
		for _, t := range toks {
			parts = append(parts, tokenText(t))
		}
		cont.Text = strings.Join(parts, " ")
	}
	return imap.Response{Kind: imap.RespContinuation, Continuation: cont}, nil
}
