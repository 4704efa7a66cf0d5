package respparse

import (
	"strings"

	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/token"
)

func parseUntagged(c *cursor) (imap.Response, error) {
	c.next() // consume '*'
	var u imap.Untagged
	var err error

	switch c.peek().Kind {
	case token.Number:
		n := c.next().Num
		kwTok := c.next()
		if kwTok.Kind != token.Atom {
			u = imap.Untagged{Kind: imap.UntaggedUnhandled, Unhandled: []string{tokenText(kwTok)}}
			break
		}
		switch strings.ToUpper(kwTok.Str) {
		case "EXISTS":
			u = imap.Untagged{Kind: imap.UntaggedExists, Number: uint32(n)}
		case "EXPUNGE":
			u = imap.Untagged{Kind: imap.UntaggedExpunge, Number: uint32(n)}
		case "FETCH":
			var attrs imap.FetchAttrs
			attrs, err = parseFetchAttrs(c)
			u = imap.Untagged{Kind: imap.UntaggedFetch, Fetch: imap.FetchResult{Seq: uint32(n), Attrs: attrs}}
		default:
			u = imap.Untagged{Kind: imap.UntaggedUnhandled, Unhandled: []string{tokenText(kwTok)}}
		}
	case token.Atom:
		kwTok := c.next()
		switch strings.ToUpper(kwTok.Str) {
		case "CAPABILITY":
			var caps []string
			for c.peek().Kind == token.Atom {
				caps = append(caps, c.next().Str)
			}
			u = imap.Untagged{Kind: imap.UntaggedCapability, Capability: caps}
		case "FLAGS":
			var flags imap.FlagSet
			flags, err = parseFlagList(c)
			u = imap.Untagged{Kind: imap.UntaggedFlags, Flags: flags}
		case "LIST":
			u, err = parseList(c)
		case "STATUS":
			u, err = parseStatus(c)
		case "ESEARCH":
			u, err = parseESearch(c)
		case "BYE":
			var code *imap.ResponseCode
			var text string
			code, text, err = parseRespText(c)
			u = imap.Untagged{Kind: imap.UntaggedBye, Code: code, Text: text}
		case "OK", "NO", "BAD":
			var code *imap.ResponseCode
			var text string
			code, text, err = parseRespText(c)
			u = imap.Untagged{Kind: imap.UntaggedOkNoBad, Code: code, Text: text}
		case "PREAUTH":
			var code *imap.ResponseCode
			var text string
			code, text, err = parseRespText(c)
			u = imap.Untagged{Kind: imap.UntaggedPreAuth, Code: code, Text: text}
		case "ENABLED":
			var list []string
			for c.peek().Kind == token.Atom {
				list = append(list, c.next().Str)
			}
			u = imap.Untagged{Kind: imap.UntaggedEnabled, Capability: list}
		default:
			rest := []string{kwTok.Str}
			for !c.atCRLF() {
				rest = append(rest, tokenText(c.next()))
			}
			u = imap.Untagged{Kind: imap.UntaggedUnhandled, Unhandled: rest}
		}
	default:
		return imap.Response{}, &ParseError{Reason: "malformed untagged response"}
	}

	if err != nil {
		return imap.Response{}, err
	}
	if c.peek().Kind != token.CRLF {
		return imap.Response{}, &ParseError{Reason: "trailing tokens after untagged response"}
	}
	return imap.Response{Kind: imap.RespUntagged, Untagged: u}, nil
}

func parseList(c *cursor) (imap.Untagged, error) {
	flags, err := parseFlagList(c)
	if err != nil {
		return imap.Untagged{}, err
	}
	delimTok := c.next()
	var delim string
	switch delimTok.Kind {
	case token.NilTok:
		delim = ""
	case token.QuotedString, token.Atom:
		delim = delimTok.Str
	default:
		return imap.Untagged{}, &ParseError{Reason: "LIST: expected hierarchy delimiter"}
	}
	nameTok := c.next()
	name := stringValue(nameTok)
	return imap.Untagged{Kind: imap.UntaggedList, List: imap.ListEntry{Flags: flags, Delim: delim, Name: name}}, nil
}

func parseStatus(c *cursor) (imap.Untagged, error) {
	nameTok := c.next()
	attrs := imap.StatusAttrs{Name: stringValue(nameTok)}
	if c.peek().Kind != token.LParen {
		return imap.Untagged{}, &ParseError{Reason: "STATUS: expected '(' before attribute list"}
	}
	c.next()
	for c.peek().Kind != token.RParen {
		keyTok := c.next()
		if keyTok.Kind != token.Atom {
			return imap.Untagged{}, &ParseError{Reason: "STATUS: expected an attribute keyword"}
		}
		v := c.next().Num
		v32 := uint32(v)
		switch strings.ToUpper(keyTok.Str) {
		case "MESSAGES":
			attrs.Messages = &v32
		case "RECENT":
			attrs.Recent = &v32
		case "UNSEEN":
			attrs.Unseen = &v32
		case "UIDNEXT":
			attrs.UIDNext = &v32
		case "UIDVALIDITY":
			attrs.UIDValidity = &v32
		}
	}
	c.next() // consume ')'
	return imap.Untagged{Kind: imap.UntaggedStatus, Status: attrs}, nil
}

func parseESearch(c *cursor) (imap.Untagged, error) {
	result := imap.ESearchResult{}
	if c.peek().Kind == token.LParen {
		c.next()
		tagKw := c.next() // "TAG"
		_ = tagKw
		tagVal := c.next()
		result.Tag = stringValue(tagVal)
		if c.peek().Kind != token.RParen {
			return imap.Untagged{}, &ParseError{Reason: "ESEARCH: malformed search-correlator"}
		}
		c.next()
	}
	if c.peek().Kind == token.Atom && strings.ToUpper(c.peek().Str) == "UID" {
		c.next()
		result.UID = true
	}
	if c.peek().Kind == token.LParen {
		c.next()
		for c.peek().Kind != token.RParen {
			keyTok := c.next()
			if keyTok.Kind != token.Atom {
				return imap.Untagged{}, &ParseError{Reason: "ESEARCH: expected a return-data keyword"}
			}
			switch strings.ToUpper(keyTok.Str) {
			case "MIN":
				v := uint32(c.next().Num)
				result.Min = &v
			case "MAX":
				v := uint32(c.next().Num)
				result.Max = &v
			case "COUNT":
				v := uint32(c.next().Num)
				result.Count = &v
			case "ALL":
				result.All = collectUIDSet(c)
			default:
				skipValue(c)
			}
		}
		c.next() // consume ')'
	}
	return imap.Untagged{Kind: imap.UntaggedESearch, ESearch: result}, nil
}
