// Package sasl implements the trivial SASL initial-response string
// encoders the Connection Engine's AUTHENTICATE flow needs (spec.md
// §4.4.6). No challenge/response round-trips are required of this core.
package sasl

import "encoding/base64"

// Plain builds the base64-encoded PLAIN initial response:
// base64("\0" + user + "\0" + password).
func Plain(user, password string) string {
	raw := "\x00" + user + "\x00" + password
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// XOAUTH2 builds the base64-encoded XOAUTH2 initial response:
// base64("user=" + user + "\x01auth=Bearer " + token + "\x01\x01").
func XOAUTH2(user, token string) string {
	raw := "user=" + user + "\x01auth=Bearer " + token + "\x01\x01"
	return base64.StdEncoding.EncodeToString([]byte(raw))
}
