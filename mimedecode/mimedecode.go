// Package mimedecode implements the Content Decoder: transfer-encoding
// decode and charset-to-UTF-8 conversion for fetched MIME parts, and RFC
// 2047 encoded-word decoding for Envelope text fields. It uses only the
// root imap package (for DecodeError) and has no knowledge of IMAP wire
// shapes.
package mimedecode

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/quotedprintable"
	"strings"
	"unicode/utf8"

	imap "github.com/HouzuoGuo/imapcore"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// DecodeTransferEncoding reverses a BodyStructure's Content-Transfer-Encoding,
// spec.md §4.5.
func DecodeTransferEncoding(encoding string, raw []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "7bit", "8bit", "binary":
		return raw, nil
	case "quoted-printable":
		out, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(raw)))
		if err != nil {
			return nil, &imap.DecodeError{Kind: imap.DecodeErrorInvalidQuotedPrintable, Err: err}
		}
		return out, nil
	case "base64":
		stripped := stripBase64Whitespace(raw)
		out := make([]byte, base64.StdEncoding.DecodedLen(len(stripped)))
		n, err := base64.StdEncoding.Decode(out, stripped)
		if err != nil {
			return nil, &imap.DecodeError{Kind: imap.DecodeErrorInvalidBase64, Err: err}
		}
		return out[:n], nil
	default:
		return nil, &imap.DecodeError{Kind: imap.DecodeErrorUnknownEncoding}
	}
}

// stripBase64Whitespace removes the line-wrap whitespace servers commonly
// insert into base64 literals (typically at 76 columns).
func stripBase64Whitespace(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			out = append(out, b)
		}
	}
	return out
}

var charsetAliases = map[string]string{
	"us-ascii":     "us-ascii",
	"ascii":        "us-ascii",
	"utf-8":        "utf-8",
	"utf8":         "utf-8",
	"iso-8859-1":   "iso-8859-1",
	"latin1":       "iso-8859-1",
	"latin-1":      "iso-8859-1",
	"windows-1252": "windows-1252",
	"cp1252":       "windows-1252",
	"win-1252":     "windows-1252",
}

// DecodeCharset converts raw bytes in the named charset to UTF-8, spec.md
// §4.5 / §8 "Content Decoder properties". An unrecognized charset name
// returns raw unchanged with a nil error, per spec.
func DecodeCharset(charsetName string, raw []byte) ([]byte, error) {
	name := strings.ToLower(strings.TrimSpace(charsetName))
	if canonical, ok := charsetAliases[name]; ok {
		name = canonical
	}
	switch name {
	case "", "us-ascii", "utf-8":
		return raw, nil
	case "iso-8859-1":
		return latin1ToUTF8(raw), nil
	case "windows-1252":
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, &imap.DecodeError{Kind: imap.DecodeErrorUnknownCharset, Err: err}
		}
		return out, nil
	}
	if enc, err := htmlindex.Get(name); err == nil {
		out, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, &imap.DecodeError{Kind: imap.DecodeErrorUnknownCharset, Err: err}
		}
		return out, nil
	}
	// Unrecognized: pass through unchanged, per spec.
	return raw, nil
}

// latin1ToUTF8 maps every input byte to its identical Unicode code point
// (ISO-8859-1 is a strict Unicode subset), then encodes as UTF-8.
func latin1ToUTF8(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	var buf [utf8.UTFMax]byte
	for _, b := range raw {
		n := utf8.EncodeRune(buf[:], rune(b))
		out = append(out, buf[:n]...)
	}
	return out
}

// rfc2047CharsetReader bridges stdlib mime.WordDecoder to DecodeCharset for
// any charset the standard library's decoder doesn't already handle
// natively (it only knows utf-8, iso-8859-1, us-ascii out of the box).
func rfc2047CharsetReader(charsetName string, input io.Reader) (io.Reader, error) {
	raw, err := io.ReadAll(input)
	if err != nil {
		return nil, err
	}
	out, err := DecodeCharset(charsetName, raw)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(out), nil
}

var rfc2047Decoder = &mime.WordDecoder{CharsetReader: rfc2047CharsetReader}

// DecodeRFC2047 decodes RFC 2047 encoded words inside a header value, used
// for Envelope.Subject and address Name fields (spec.md §4.2.2). Any
// decoding failure returns s unchanged, since encoded-word decoding is
// best-effort for display text, never a hard parse failure.
func DecodeRFC2047(s string) string {
	if !strings.Contains(s, "=?") {
		return s
	}
	out, err := rfc2047Decoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}
