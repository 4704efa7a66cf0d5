package imapclient

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/command"
	"github.com/HouzuoGuo/imapcore/datastruct"
	"github.com/HouzuoGuo/imapcore/lalog"
	"github.com/HouzuoGuo/imapcore/respparse"
	"github.com/HouzuoGuo/imapcore/token"
	"github.com/HouzuoGuo/imapcore/transport"
)

// Connection drives one IMAP session over a transport.Transport. It is an
// actor: every piece of mutable state listed below is owned exclusively by
// the run() goroutine; callers communicate through submit, a narrow
// closure-submission channel, per spec.md §5 "Shared-resource policy".
//
// The event loop is a single goroutine per Connection, matching the
// background-reader-goroutine shape common to Go IMAP clients: a dedicated
// pump goroutine turns transport.Recv into channel sends so the loop can
// select between that and caller submissions without ever blocking on the
// network while a caller is trying to submit a new command.
type Connection struct {
	tr     transport.Transport
	opts   Options
	logger *lalog.Logger
	trace  *datastruct.RingBuffer

	submit chan func()
	recvCh chan recvMsg
	closed chan struct{}
	closeOnce sync.Once

	tagCounter uint32

	// loop-owned state; touched only inside run() and the functions it
	// calls directly.
	state          imap.ConnectionState
	capability     []string
	mailbox        MailboxInfo
	pendingOrder   []string
	pendingByTag   map[string]*pendingEntry
	awaitingIdleAck *pendingEntry
	idlingEntry    *pendingEntry
	buf            []byte
	fatalErr       error
}

type recvMsg struct {
	data []byte
	err  error
}

// New takes ownership of tr and performs the greeting handshake, returning
// once an OK/PREAUTH/BYE greeting has been classified or the greeting
// timeout elapses (spec.md §4.4.1). On any error tr is closed.
func New(tr transport.Transport, opts Options) (*Connection, error) {
	c := &Connection{
		tr:           tr,
		opts:         opts,
		logger:       &lalog.Logger{ComponentName: "imapclient"},
		submit:       make(chan func()),
		recvCh:       make(chan recvMsg),
		closed:       make(chan struct{}),
		pendingByTag: make(map[string]*pendingEntry),
		state:        imap.NotAuthenticated,
	}
	if opts.TraceBufferSize > 0 {
		c.trace = datastruct.NewRingBuffer(opts.TraceBufferSize)
	}
	if opts.CommandRateLimit != nil {
		opts.CommandRateLimit.Initialise()
	}

	go c.readPump()

	if err := c.awaitGreeting(); err != nil {
		tr.Close()
		close(c.closed)
		return nil, err
	}

	go c.run()
	return c, nil
}

func (c *Connection) readPump() {
	for {
		b, err := c.tr.Recv()
		select {
		case c.recvCh <- recvMsg{data: b, err: err}:
		case <-c.closed:
			return
		}
		if err != nil {
			return
		}
	}
}

// awaitGreeting blocks until the server's greeting line is fully received
// and classified, or until the greeting timeout fires. It runs before run()
// starts, so it is safe to touch loop-owned state directly.
func (c *Connection) awaitGreeting() error {
	timer := time.NewTimer(c.opts.greetingTimeout())
	defer timer.Stop()
	for {
		select {
		case msg := <-c.recvCh:
			if msg.err != nil {
				return fmt.Errorf("imapclient: connection failed before greeting: %w", msg.err)
			}
			c.traceRecv(msg.data)
			c.buf = append(c.buf, msg.data...)
			resp, ok, err := c.tryParseOne()
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if resp.Kind != imap.RespUntagged {
				return &respparse.ParseError{Reason: "greeting: expected an untagged response"}
			}
			return c.classifyGreeting(resp.Untagged)
		case <-timer.C:
			return imap.ErrGreetingTimeout
		}
	}
}

func (c *Connection) classifyGreeting(u imap.Untagged) error {
	switch u.Kind {
	case imap.UntaggedOkNoBad:
		c.state = imap.NotAuthenticated
		if u.Code != nil && u.Code.Kind == imap.CodeCapability {
			c.capability = u.Code.Capability
		}
		return nil
	case imap.UntaggedPreAuth:
		c.state = imap.Authenticated
		if u.Code != nil && u.Code.Kind == imap.CodeCapability {
			c.capability = u.Code.Capability
		}
		return nil
	case imap.UntaggedBye:
		return imap.ErrConnectionClosed
	default:
		return &respparse.ParseError{Reason: "greeting: unexpected untagged response kind"}
	}
}

// tryParseOne attempts to tokenize and parse exactly one response out of
// c.buf. ok is false if more bytes are needed; c.buf is left untouched in
// that case, matching the tokenizer's restartability contract.
func (c *Connection) tryParseOne() (imap.Response, bool, error) {
	toks, residual, err := token.Tokenize(c.buf)
	if err != nil {
		if token.IsIncomplete(err) {
			return imap.Response{}, false, nil
		}
		return imap.Response{}, false, err
	}
	c.buf = residual
	resp, err := respparse.Parse(toks)
	if err != nil {
		return imap.Response{}, false, err
	}
	return resp, true, nil
}

// run is the connection's single event-loop goroutine, started once the
// greeting has been consumed.
func (c *Connection) run() {
	for {
		select {
		case fn := <-c.submit:
			fn()
		case msg := <-c.recvCh:
			c.handleRecv(msg)
		}
		if c.fatalErr != nil {
			c.teardown()
			return
		}
	}
}

func (c *Connection) handleRecv(msg recvMsg) {
	if msg.err != nil {
		c.fatalErr = fmt.Errorf("imapclient: transport error: %w", imap.ErrConnectionClosed)
		return
	}
	c.traceRecv(msg.data)
	if c.opts.Metrics != nil {
		c.opts.Metrics.BytesRead.Add(float64(len(msg.data)))
	}
	c.buf = append(c.buf, msg.data...)
	for {
		resp, ok, err := c.tryParseOne()
		if err != nil {
			c.fatalErr = fmt.Errorf("imapclient: %w: %v", imap.ErrProtocol, err)
			return
		}
		if !ok {
			return
		}
		c.handleResponse(resp)
		if c.fatalErr != nil {
			return
		}
	}
}

// teardown fails every outstanding pending entry with ErrConnectionClosed,
// closes the transport, and signals closed to unblock any waiting caller.
func (c *Connection) teardown() {
	c.logger.MaybeMinorError(c.fatalErr)
	c.tr.Close()
	for _, tag := range c.pendingOrder {
		e := c.pendingByTag[tag]
		if e == nil || e.cancelled {
			continue
		}
		e.done <- &pendingResult{err: imap.ErrConnectionClosed}
	}
	c.pendingOrder = nil
	c.pendingByTag = nil
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Connection) allocTag() string {
	c.tagCounter++
	return command.Tag(c.tagCounter)
}

func (c *Connection) addPending(e *pendingEntry) {
	c.pendingOrder = append(c.pendingOrder, e.tag)
	c.pendingByTag[e.tag] = e
	if c.opts.Metrics != nil {
		c.opts.Metrics.PendingCommands.Set(float64(len(c.pendingByTag)))
	}
}

func (c *Connection) popPending(tag string) *pendingEntry {
	e, ok := c.pendingByTag[tag]
	if !ok {
		return nil
	}
	delete(c.pendingByTag, tag)
	for i, t := range c.pendingOrder {
		if t == tag {
			c.pendingOrder = append(c.pendingOrder[:i], c.pendingOrder[i+1:]...)
			break
		}
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.PendingCommands.Set(float64(len(c.pendingByTag)))
	}
	return e
}

func (c *Connection) oldestPending() *pendingEntry {
	if len(c.pendingOrder) == 0 {
		return nil
	}
	return c.pendingByTag[c.pendingOrder[0]]
}

func (c *Connection) traceSend(line string) {
	if c.trace != nil {
		c.trace.Push("> " + line)
	}
}

func (c *Connection) traceRecv(b []byte) {
	if c.trace != nil {
		c.trace.Push("< " + lalog.ByteArrayLogString(b))
	}
}

// RecentTrace returns a snapshot of the most recently sent/received raw
// wire lines, oldest first. Empty unless Options.TraceBufferSize > 0.
func (c *Connection) RecentTrace() []string {
	if c.trace == nil {
		return nil
	}
	return c.trace.GetAll()
}

// State snapshots the connection's state machine position.
func (c *Connection) State() imap.ConnectionState {
	result := make(chan imap.ConnectionState, 1)
	select {
	case c.submit <- func() { result <- c.state }:
		return <-result
	case <-c.closed:
		return imap.Logout
	}
}

// CapabilitySnapshot returns the last known capability list without
// issuing a new CAPABILITY command.
func (c *Connection) CapabilitySnapshot() []string {
	result := make(chan []string, 1)
	select {
	case c.submit <- func() {
		out := make([]string, len(c.capability))
		copy(out, c.capability)
		result <- out
	}:
		return <-result
	case <-c.closed:
		return nil
	}
}

// MailboxInfo snapshots the currently selected mailbox, if any.
func (c *Connection) MailboxInfo() MailboxInfo {
	result := make(chan MailboxInfo, 1)
	select {
	case c.submit <- func() { result <- c.mailbox }:
		return <-result
	case <-c.closed:
		return MailboxInfo{}
	}
}

func statusString(st imap.Status) string {
	switch st {
	case imap.OK:
		return "ok"
	case imap.NO:
		return "no"
	case imap.BAD:
		return "bad"
	default:
		return strconv.Itoa(int(st))
	}
}
