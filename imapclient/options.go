package imapclient

import (
	"time"

	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/misc"
)

// DefaultGreetingTimeout mirrors the teacher's IMAPTimeoutSec: a generous,
// single mandated timeout, everything else left to the caller.
const DefaultGreetingTimeout = 30 * time.Second

// Options configures a Connection at construction time.
type Options struct {
	// GreetingTimeout bounds the wait for the server's initial greeting.
	// Zero selects DefaultGreetingTimeout.
	GreetingTimeout time.Duration

	// OnUnsolicited, if set, is invoked from the connection's event loop
	// for every untagged response seen while the connection is not idling,
	// including unrecognized ones delivered as UntaggedUnhandled. It must
	// not block or call back into the Connection.
	OnUnsolicited func(imap.Untagged)

	// Metrics, if non-nil, receives Prometheus instrumentation for command
	// submission and dispatch. Purely observational.
	Metrics *Metrics

	// TraceBufferSize, if greater than zero, allocates a ring buffer that
	// records the last N raw wire lines sent and received, retrievable via
	// Connection.RecentTrace.
	TraceBufferSize int64

	// ReadBufferSize sizes the transport's internal read buffer when the
	// caller dials via DialStream. Zero selects the transport package's
	// own default.
	ReadBufferSize int

	// CommandRateLimit, if set, caps how many commands submitCommand will
	// accept per its configured interval; once initialised it is shared
	// across every command issued on this Connection, keyed by command
	// name so one noisy command class cannot starve the rest. Nil means
	// unlimited.
	CommandRateLimit *misc.RateLimit
}

func (o Options) greetingTimeout() time.Duration {
	if o.GreetingTimeout <= 0 {
		return DefaultGreetingTimeout
	}
	return o.GreetingTimeout
}

// MailboxInfo is a snapshot of the currently selected mailbox, spec.md §3
// "mailbox_info". Zero value describes "no mailbox selected".
type MailboxInfo struct {
	Name        string
	Exists      uint32
	Flags       imap.FlagSet
	UIDNext     uint32
	UIDValidity uint32
	ReadOnly    bool
}

// CopyUIDResult is the APPENDUID/COPYUID payload, spec.md §4.4.4.
type CopyUIDResult struct {
	UIDValidity uint32
	// UID is set only for APPENDUID (a single new message).
	UID uint32
	// SrcUIDSet/DstUIDSet are set only for COPYUID.
	SrcUIDSet string
	DstUIDSet string
}
