package imapclient

import (
	"context"
	"io"
	"strings"
	"time"

	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/command"
	"github.com/HouzuoGuo/imapcore/sasl"
	"github.com/HouzuoGuo/imapcore/transport"
)

// DialStream adapts an already-open io.ReadWriteCloser (a TLS connection,
// typically, mirroring the teacher's clientTLSWrapper) into a Connection,
// performing the greeting handshake before returning.
func DialStream(rwc io.ReadWriteCloser, opts Options) (*Connection, error) {
	return New(transport.NewStream(rwc, opts.ReadBufferSize), opts)
}

// execute is the generic command-submission path shared by every public
// operation: allocate a tag, serialize, send, and await the tagged
// response, spec.md §4.4.2.
func (c *Connection) execute(ctx context.Context, name string, args []imap.CommandArg, mailbox string) (*pendingResult, error) {
	done := make(chan *pendingResult, 1)

	select {
	case c.submit <- func() { c.submitCommand(name, args, mailbox, done) }:
	case <-c.closed:
		return nil, imap.ErrConnectionClosed
	}

	select {
	case res := <-done:
		return res, res.err
	case <-ctx.Done():
		c.cancel(done)
		return nil, imap.ErrCancelled
	case <-c.closed:
		return nil, imap.ErrConnectionClosed
	}
}

// submitCommand runs on the event-loop goroutine: it owns tag allocation
// and the send, so concurrent callers serialize exactly at this point,
// spec.md §4.4.2 "Concurrent callers".
func (c *Connection) submitCommand(name string, args []imap.CommandArg, mailbox string, done chan *pendingResult) {
	if c.state == imap.Logout {
		done <- &pendingResult{err: imap.ErrWrongPhase}
		return
	}
	if c.opts.CommandRateLimit != nil && !c.opts.CommandRateLimit.Add(name, true) {
		done <- &pendingResult{err: imap.ErrRateLimited}
		return
	}
	tag := c.allocTag()
	out, err := command.Serialize(imap.Command{Tag: tag, Name: name, Args: args})
	if err != nil {
		done <- &pendingResult{err: err}
		return
	}
	e := &pendingEntry{tag: tag, name: name, mailbox: mailbox, submitted: time.Now(), done: done}
	c.addPending(e)
	if err := c.sendOutput(out, e); err != nil {
		c.fatalErr = err
		return
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.CommandsSent.WithLabelValues(name).Inc()
	}
}

func (c *Connection) sendOutput(out command.Output, e *pendingEntry) error {
	var sent []byte
	switch out.Kind {
	case command.Plain:
		sent = out.Bytes
	case command.WithLiteral:
		sent = out.Prefix
		e.pendingLiteral = out.LiteralBytes
	}
	if err := c.tr.Send(sent); err != nil {
		return err
	}
	c.traceSend(lalogPreview(sent))
	if c.opts.Metrics != nil {
		c.opts.Metrics.BytesWritten.Add(float64(len(sent)))
	}
	return nil
}

// cancel marks the pending entry identified by its done channel as
// cancelled: the engine keeps the entry and its eventual tagged response is
// discarded silently, spec.md §5 "Cancellation and timeouts".
func (c *Connection) cancel(done chan *pendingResult) {
	select {
	case c.submit <- func() {
		for _, tag := range c.pendingOrder {
			if e := c.pendingByTag[tag]; e != nil && e.done == done {
				e.cancelled = true
				return
			}
		}
	}:
	case <-c.closed:
	}
}

// Capability returns the server's advertised capability list.
func (c *Connection) Capability(ctx context.Context) ([]string, error) {
	res, err := c.execute(ctx, "CAPABILITY", nil, "")
	if err != nil {
		return nil, err
	}
	return res.capability, nil
}

// Noop sends NOOP, a no-op that still drains any pending untagged updates.
func (c *Connection) Noop(ctx context.Context) error {
	_, err := c.execute(ctx, "NOOP", nil, "")
	return err
}

// Logout sends LOGOUT; the connection reaches the terminal Logout state on
// success and accepts no further commands.
func (c *Connection) Logout(ctx context.Context) error {
	_, err := c.execute(ctx, "LOGOUT", nil, "")
	return err
}

// Login authenticates with a plaintext username/password.
func (c *Connection) Login(ctx context.Context, user, password string) error {
	_, err := c.execute(ctx, "LOGIN", []imap.CommandArg{imap.Astring(user), imap.Astring(password)}, "")
	return err
}

func (c *Connection) authenticate(ctx context.Context, mechanism, initialResponse string) error {
	_, err := c.execute(ctx, "AUTHENTICATE", []imap.CommandArg{imap.Atom(mechanism), imap.Astring(initialResponse)}, "")
	return err
}

// AuthenticatePlain performs AUTHENTICATE PLAIN using the initial-response
// form, spec.md §4.4.6.
func (c *Connection) AuthenticatePlain(ctx context.Context, user, password string) error {
	return c.authenticate(ctx, "PLAIN", sasl.Plain(user, password))
}

// AuthenticateXOAUTH2 performs AUTHENTICATE XOAUTH2 using the
// initial-response form, spec.md §4.4.6.
func (c *Connection) AuthenticateXOAUTH2(ctx context.Context, user, token string) error {
	return c.authenticate(ctx, "XOAUTH2", sasl.XOAUTH2(user, token))
}

// Select opens a mailbox read-write.
func (c *Connection) Select(ctx context.Context, mailbox string) error {
	_, err := c.execute(ctx, "SELECT", []imap.CommandArg{imap.Astring(mailbox)}, mailbox)
	return err
}

// Examine opens a mailbox read-only.
func (c *Connection) Examine(ctx context.Context, mailbox string) error {
	_, err := c.execute(ctx, "EXAMINE", []imap.CommandArg{imap.Astring(mailbox)}, mailbox)
	return err
}

// Create creates a mailbox.
func (c *Connection) Create(ctx context.Context, mailbox string) error {
	_, err := c.execute(ctx, "CREATE", []imap.CommandArg{imap.Astring(mailbox)}, "")
	return err
}

// Delete removes a mailbox.
func (c *Connection) Delete(ctx context.Context, mailbox string) error {
	_, err := c.execute(ctx, "DELETE", []imap.CommandArg{imap.Astring(mailbox)}, "")
	return err
}

// List lists mailboxes matching reference/pattern.
func (c *Connection) List(ctx context.Context, reference, pattern string) ([]imap.ListEntry, error) {
	res, err := c.execute(ctx, "LIST", []imap.CommandArg{imap.Astring(reference), imap.Astring(pattern)}, "")
	if err != nil {
		return nil, err
	}
	return res.list, nil
}

// Status queries mailbox attributes without selecting it. items is the
// pre-formed parenthesized attribute list, e.g. "(MESSAGES UIDNEXT)".
func (c *Connection) Status(ctx context.Context, mailbox, items string) (imap.StatusAttrs, error) {
	res, err := c.execute(ctx, "STATUS", []imap.CommandArg{imap.Astring(mailbox), imap.Raw(items)}, "")
	if err != nil {
		return imap.StatusAttrs{}, err
	}
	return res.status, nil
}

// Enable negotiates the given capabilities and returns the set the server
// actually enabled.
func (c *Connection) Enable(ctx context.Context, capabilities ...string) ([]string, error) {
	args := make([]imap.CommandArg, len(capabilities))
	for i, capName := range capabilities {
		args[i] = imap.Atom(capName)
	}
	res, err := c.execute(ctx, "ENABLE", args, "")
	if err != nil {
		return nil, err
	}
	return res.capability, nil
}

// Append uploads a message. flags may be nil; internalDate may be "" to
// omit both optional arguments, spec.md §4.4.6.
func (c *Connection) Append(ctx context.Context, mailbox string, flags []string, internalDate string, message []byte) (*CopyUIDResult, error) {
	args := []imap.CommandArg{imap.Astring(mailbox)}
	if len(flags) > 0 {
		args = append(args, imap.Raw("("+strings.Join(flags, " ")+")"))
	}
	if internalDate != "" {
		args = append(args, imap.Astring(internalDate))
	}
	args = append(args, imap.Literal(message))
	res, err := c.execute(ctx, "APPEND", args, "")
	if err != nil {
		return nil, err
	}
	return res.copyUID, nil
}

// Close closes the selected mailbox, expunging \Deleted messages.
func (c *Connection) Close(ctx context.Context) error {
	_, err := c.execute(ctx, "CLOSE", nil, "")
	return err
}

// Unselect closes the selected mailbox without expunging.
func (c *Connection) Unselect(ctx context.Context) error {
	_, err := c.execute(ctx, "UNSELECT", nil, "")
	return err
}

// Expunge permanently removes \Deleted messages from the selected mailbox.
func (c *Connection) Expunge(ctx context.Context) error {
	_, err := c.execute(ctx, "EXPUNGE", nil, "")
	return err
}

// Search runs a SEARCH; criteria is the pre-formed search-key text.
func (c *Connection) Search(ctx context.Context, criteria string) (*imap.ESearchResult, error) {
	res, err := c.execute(ctx, "SEARCH", []imap.CommandArg{imap.Raw(criteria)}, "")
	if err != nil {
		return nil, err
	}
	return res.esearch, nil
}

// UIDSearch runs a UID SEARCH.
func (c *Connection) UIDSearch(ctx context.Context, criteria string) (*imap.ESearchResult, error) {
	res, err := c.execute(ctx, "UID SEARCH", []imap.CommandArg{imap.Raw(criteria)}, "")
	if err != nil {
		return nil, err
	}
	return res.esearch, nil
}

// Fetch runs a FETCH against a sequence set. items is the pre-formed fetch
// attribute list, e.g. "(FLAGS UID)" or "BODY[]".
func (c *Connection) Fetch(ctx context.Context, seqSet, items string) ([]imap.FetchResult, error) {
	res, err := c.execute(ctx, "FETCH", []imap.CommandArg{imap.Atom(seqSet), imap.Raw(items)}, "")
	if err != nil {
		return nil, err
	}
	return res.fetch, nil
}

// UIDFetch runs a UID FETCH against a UID set.
func (c *Connection) UIDFetch(ctx context.Context, uidSet, items string) ([]imap.FetchResult, error) {
	res, err := c.execute(ctx, "UID FETCH", []imap.CommandArg{imap.Atom(uidSet), imap.Raw(items)}, "")
	if err != nil {
		return nil, err
	}
	return res.fetch, nil
}

// Store updates flags for a sequence set. item is e.g. "+FLAGS" / "-FLAGS" /
// "FLAGS", optionally suffixed ".SILENT"; flags is the pre-formed
// parenthesized flag list.
func (c *Connection) Store(ctx context.Context, seqSet, item, flags string) ([]imap.FetchResult, error) {
	res, err := c.execute(ctx, "STORE", []imap.CommandArg{imap.Atom(seqSet), imap.Raw(item), imap.Raw(flags)}, "")
	if err != nil {
		return nil, err
	}
	return res.fetch, nil
}

// UIDStore updates flags for a UID set.
func (c *Connection) UIDStore(ctx context.Context, uidSet, item, flags string) ([]imap.FetchResult, error) {
	res, err := c.execute(ctx, "UID STORE", []imap.CommandArg{imap.Atom(uidSet), imap.Raw(item), imap.Raw(flags)}, "")
	if err != nil {
		return nil, err
	}
	return res.fetch, nil
}

// Copy copies a sequence set of messages into another mailbox.
func (c *Connection) Copy(ctx context.Context, seqSet, mailbox string) (*CopyUIDResult, error) {
	res, err := c.execute(ctx, "COPY", []imap.CommandArg{imap.Atom(seqSet), imap.Astring(mailbox)}, "")
	if err != nil {
		return nil, err
	}
	return res.copyUID, nil
}

// UIDCopy copies a UID set of messages into another mailbox.
func (c *Connection) UIDCopy(ctx context.Context, uidSet, mailbox string) (*CopyUIDResult, error) {
	res, err := c.execute(ctx, "UID COPY", []imap.CommandArg{imap.Atom(uidSet), imap.Astring(mailbox)}, "")
	if err != nil {
		return nil, err
	}
	return res.copyUID, nil
}

// Move moves a sequence set of messages into another mailbox.
func (c *Connection) Move(ctx context.Context, seqSet, mailbox string) (*CopyUIDResult, error) {
	res, err := c.execute(ctx, "MOVE", []imap.CommandArg{imap.Atom(seqSet), imap.Astring(mailbox)}, "")
	if err != nil {
		return nil, err
	}
	return res.copyUID, nil
}

// UIDMove moves a UID set of messages into another mailbox.
func (c *Connection) UIDMove(ctx context.Context, uidSet, mailbox string) (*CopyUIDResult, error) {
	res, err := c.execute(ctx, "UID MOVE", []imap.CommandArg{imap.Atom(uidSet), imap.Astring(mailbox)}, "")
	if err != nil {
		return nil, err
	}
	return res.copyUID, nil
}
