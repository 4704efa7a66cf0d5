// Package imap holds the data model shared by the protocol engine: response
// and command shapes, the connection state machine, flag normalization, and
// the sentinel errors every other package in this module builds on.
package imap
