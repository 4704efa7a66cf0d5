package command

import (
	"strings"
	"testing"

	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/token"
)

func TestTagRoundTrip(t *testing.T) {
	cases := map[uint32]string{
		1:     "A0001",
		10:    "A0010",
		9999:  "A9999",
		10000: "A10000",
	}
	for n, want := range cases {
		if got := Tag(n); got != want {
			t.Errorf("Tag(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestSerializePlainCommand(t *testing.T) {
	cmd := imap.Command{Tag: "A0001", Name: "LOGIN", Args: []imap.CommandArg{
		imap.Astring("alice"), imap.Astring("s3cr3t"),
	}}
	out, err := Serialize(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != Plain {
		t.Fatalf("kind = %v, want Plain", out.Kind)
	}
	want := "A0001 LOGIN alice s3cr3t\r\n"
	if string(out.Bytes) != want {
		t.Fatalf("got %q, want %q", out.Bytes, want)
	}
}

func TestSerializeAstringQuoting(t *testing.T) {
	cmd := imap.Command{Tag: "A0002", Name: "LOGIN", Args: []imap.CommandArg{
		imap.Astring(`needs "quotes" and \backslash`), imap.Astring(""),
	}}
	out, err := Serialize(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `A0002 LOGIN "needs \"quotes\" and \\backslash" ""` + "\r\n"
	if string(out.Bytes) != want {
		t.Fatalf("got %q, want %q", out.Bytes, want)
	}
}

// TestAstringQuotingIdempotence exercises testable property 4: an
// atom-safe string is emitted unquoted; any other string round-trips
// through quote -> tokenize -> unquote back to the original.
func TestAstringQuotingIdempotence(t *testing.T) {
	cases := []string{
		"INBOX", "alice", "a.b.c", "",
		`has space`, `has"quote`, `has\backslash`, `both " and \`,
	}
	for _, s := range cases {
		cmd := imap.Command{Tag: "A0001", Name: "X", Args: []imap.CommandArg{imap.Astring(s)}}
		out, err := Serialize(cmd)
		if err != nil {
			t.Fatalf("%q: %v", s, err)
		}
		if isAstringSafe(s) && s != "" {
			if !strings.Contains(string(out.Bytes), s) || strings.Contains(string(out.Bytes), `"`+s+`"`) {
				t.Errorf("%q: atom-safe string should be emitted unquoted, got %q", s, out.Bytes)
			}
			continue
		}
		toks, residual, err := token.Tokenize(out.Bytes)
		if err != nil {
			t.Fatalf("%q: tokenize round-trip: %v", s, err)
		}
		if len(residual) != 0 {
			t.Fatalf("%q: unexpected residual %q", s, residual)
		}
		var got string
		found := false
		for _, tok := range toks {
			if tok.Kind == token.QuotedString {
				got = tok.Str
				found = true
			}
		}
		if !found {
			t.Fatalf("%q: serialized form had no quoted-string token: %q", s, out.Bytes)
		}
		if got != s {
			t.Errorf("round trip: got %q, want %q", got, s)
		}
	}
}

func TestSerializeRawAndNumberAndAtom(t *testing.T) {
	cmd := imap.Command{Tag: "A0003", Name: "STORE", Args: []imap.CommandArg{
		imap.Number(5), imap.Atom("+FLAGS"), imap.Raw(`(\Seen \Deleted)`),
	}}
	out, err := Serialize(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `A0003 STORE 5 +FLAGS (\Seen \Deleted)` + "\r\n"
	if string(out.Bytes) != want {
		t.Fatalf("got %q, want %q", out.Bytes, want)
	}
}

func TestSerializeWithLiteral(t *testing.T) {
	cmd := imap.Command{Tag: "A0002", Name: "APPEND", Args: []imap.CommandArg{
		imap.Astring("INBOX"), imap.Literal([]byte("Subject: hi\r\n\r\nbody")),
	}}
	out, err := Serialize(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != WithLiteral {
		t.Fatalf("kind = %v, want WithLiteral", out.Kind)
	}
	wantPrefix := "A0002 APPEND INBOX {19}\r\n"
	if string(out.Prefix) != wantPrefix {
		t.Fatalf("prefix = %q, want %q", out.Prefix, wantPrefix)
	}
	if string(out.LiteralBytes) != "Subject: hi\r\n\r\nbody" {
		t.Fatalf("literal bytes = %q", out.LiteralBytes)
	}
}

func TestSerializeRejectsMultipleLiterals(t *testing.T) {
	cmd := imap.Command{Tag: "A0001", Name: "X", Args: []imap.CommandArg{
		imap.Literal([]byte("a")), imap.Literal([]byte("b")),
	}}
	if _, err := Serialize(cmd); err == nil {
		t.Fatal("expected an error for two literal arguments")
	}
}

func TestDoneConstant(t *testing.T) {
	if Done != "DONE\r\n" {
		t.Fatalf("Done = %q", Done)
	}
}
