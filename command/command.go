// Package command implements the Command Serializer: imap.Command → wire
// bytes, including the split output shape a synchronizing literal argument
// requires (spec.md §4.3). It has no knowledge of the transport or the
// connection state machine.
package command

import (
	"fmt"
	"strconv"
	"strings"

	imap "github.com/HouzuoGuo/imapcore"
)

// Done is the standalone wire form that terminates an IDLE flow.
const Done = "DONE\r\n"

// OutputKind discriminates Serialize's two possible shapes.
type OutputKind int

const (
	// Plain is a complete, self-contained command line.
	Plain OutputKind = iota
	// WithLiteral requires a continuation round-trip: send Prefix, await
	// the server's "+", then send LiteralBytes followed by CRLF.
	WithLiteral
)

// Output is the result of serializing one Command.
type Output struct {
	Kind OutputKind
	// Bytes holds the complete line for Kind == Plain.
	Bytes []byte
	// Prefix holds everything up to and including the literal header
	// "{N}\r\n" for Kind == WithLiteral.
	Prefix []byte
	// LiteralBytes is sent verbatim after the server's continuation,
	// followed by a trailing CRLF that belongs to the outer command line.
	LiteralBytes []byte
}

// astringSafe is the printable-ASCII set minus SP ( ) { " \ and C0 controls,
// spec.md §4.3 "astring quoting rule".
func astringSafe(b byte) bool {
	if b < 0x20 || b == 0x7F {
		return false
	}
	switch b {
	case ' ', '(', ')', '{', '"', '\\':
		return false
	}
	return true
}

func isAstringSafe(s string) bool {
	for i := 0; i < len(s); i++ {
		if !astringSafe(s[i]) {
			return false
		}
	}
	return true
}

func quoteAstring(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\\' || b == '"' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(b)
	}
	sb.WriteByte('"')
	return sb.String()
}

// Serialize renders a Command to its wire form, spec.md §4.3. At most one
// ArgLiteral is supported per command; a second is a programming error in
// the caller and returns an error rather than silently dropping a literal.
func Serialize(cmd imap.Command) (Output, error) {
	var head strings.Builder
	head.WriteString(cmd.Tag)
	head.WriteByte(' ')
	head.WriteString(cmd.Name)

	litIndex := -1
	for i, a := range cmd.Args {
		if a.Kind == imap.ArgLiteral {
			if litIndex != -1 {
				return Output{}, fmt.Errorf("command: %s: more than one literal argument is not supported", cmd.Name)
			}
			litIndex = i
		}
	}

	for i, a := range cmd.Args {
		head.WriteByte(' ')
		switch a.Kind {
		case imap.ArgAstring:
			if a.Str == "" {
				head.WriteString(`""`)
			} else if isAstringSafe(a.Str) {
				head.WriteString(a.Str)
			} else {
				head.WriteString(quoteAstring(a.Str))
			}
		case imap.ArgAtom, imap.ArgRaw:
			head.WriteString(a.Str)
		case imap.ArgNumber:
			head.WriteString(strconv.FormatUint(a.Number, 10))
		case imap.ArgLiteral:
			head.WriteString("{")
			head.WriteString(strconv.Itoa(len(a.Literal)))
			head.WriteString("}\r\n")
			if i != len(cmd.Args)-1 {
				return Output{}, fmt.Errorf("command: %s: literal argument must be the last argument", cmd.Name)
			}
			return Output{Kind: WithLiteral, Prefix: []byte(head.String()), LiteralBytes: a.Literal}, nil
		}
	}
	head.WriteString("\r\n")
	return Output{Kind: Plain, Bytes: []byte(head.String())}, nil
}

// Tag renders the n-th command tag, spec.md §3 "tag_counter... renders as
// `A0001` zero-padded to 4 digits; grows beyond as needed" and §8 invariant
// 1 (tag round-trip).
func Tag(n uint32) string {
	return fmt.Sprintf("A%04d", n)
}
