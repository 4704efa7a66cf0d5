package imapclient

import (
	"time"

	imap "github.com/HouzuoGuo/imapcore"
)

// pendingEntry tracks one in-flight command from submission to its tagged
// response, spec.md §4.4.2 "pending". Every field is touched only from the
// connection's event-loop goroutine, except done/idleAckCh which are
// channels safe for the waiting caller goroutine to receive from.
type pendingEntry struct {
	tag       string
	name      string
	mailbox   string // SELECT/EXAMINE target, recorded for the state transition
	submitted time.Time

	cancelled bool

	// pendingLiteral holds a not-yet-sent literal body; cleared once the
	// server's continuation triggers the engine to send it.
	pendingLiteral []byte

	// Untagged accumulators, spec.md §4.4.4.
	fetch      []imap.FetchResult
	list       []imap.ListEntry
	status     imap.StatusAttrs
	hasStatus  bool
	esearch    *imap.ESearchResult
	capability []string
	// copyUID accumulates an untagged "OK [COPYUID ...]" seen before the
	// tagged close, spec.md's accepted MOVE form (untagged COPYUID ahead of
	// the EXPUNGEs). buildResult prefers the tagged response's own code
	// over this when both are present.
	copyUID *CopyUIDResult

	// IDLE-specific fields; nil/false for ordinary commands.
	idleAckCh chan error
	onIdle    func(imap.Untagged)

	done chan *pendingResult
}

// pendingResult is delivered to the caller when the entry's tagged response
// (or a fatal condition) resolves it.
type pendingResult struct {
	tagged imap.TaggedResponse

	fetch      []imap.FetchResult
	list       []imap.ListEntry
	status     imap.StatusAttrs
	hasStatus  bool
	esearch    *imap.ESearchResult
	capability []string
	copyUID    *CopyUIDResult

	err error
}
