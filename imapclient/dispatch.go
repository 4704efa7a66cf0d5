package imapclient

import (
	"strings"
	"time"

	imap "github.com/HouzuoGuo/imapcore"
)

// handleResponse dispatches one parsed Response to the tagged,
// continuation, or untagged handler, spec.md §4.4.4.
func (c *Connection) handleResponse(resp imap.Response) {
	switch resp.Kind {
	case imap.RespTagged:
		c.handleTagged(resp.Tagged)
	case imap.RespContinuation:
		c.handleContinuation(resp.Continuation)
	case imap.RespUntagged:
		c.handleUntagged(resp.Untagged)
	}
}

func (c *Connection) handleTagged(t imap.TaggedResponse) {
	e := c.popPending(t.Tag)
	if e == nil {
		return
	}
	if t.Status == imap.OK {
		c.applyStateTransition(e, t)
	} else {
		c.logger.Warning(e.name, nil, "tag %s: %s: %s", t.Tag, t.Status, t.Text)
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.CommandDuration.WithLabelValues(e.name, statusString(t.Status)).Observe(time.Since(e.submitted).Seconds())
	}
	if e.cancelled {
		return
	}
	e.done <- c.buildResult(e, t)
}

func (c *Connection) applyStateTransition(e *pendingEntry, t imap.TaggedResponse) {
	switch strings.ToUpper(e.name) {
	case "LOGIN", "AUTHENTICATE":
		c.state = imap.Authenticated
		if t.Code != nil && t.Code.Kind == imap.CodeCapability {
			c.capability = t.Code.Capability
		}
	case "SELECT", "EXAMINE":
		c.state = imap.Selected
		c.mailbox.Name = e.mailbox
		c.mailbox.ReadOnly = strings.ToUpper(e.name) == "EXAMINE" || (t.Code != nil && t.Code.Kind == imap.CodeReadOnly)
		c.logger.Info(e.mailbox, nil, "mailbox selected, read-only=%v", c.mailbox.ReadOnly)
	case "CLOSE", "UNSELECT":
		c.state = imap.Authenticated
		c.mailbox = MailboxInfo{}
	case "LOGOUT":
		c.state = imap.Logout
	}
}

func (c *Connection) buildResult(e *pendingEntry, t imap.TaggedResponse) *pendingResult {
	res := &pendingResult{tagged: t}
	if t.Status != imap.OK {
		res.err = &imap.TaggedError{Tagged: t}
		return res
	}

	name := strings.ToUpper(e.name)
	switch {
	case strings.HasSuffix(name, "FETCH"):
		res.fetch = e.fetch
	case strings.HasSuffix(name, "SEARCH"):
		if e.esearch != nil {
			res.esearch = e.esearch
		} else {
			res.esearch = &imap.ESearchResult{}
		}
	case name == "LIST":
		res.list = e.list
	case name == "STATUS":
		res.status = e.status
		res.hasStatus = e.hasStatus
	case name == "ENABLE":
		res.capability = e.capability
	case name == "CAPABILITY":
		if t.Code != nil && t.Code.Kind == imap.CodeCapability {
			res.capability = t.Code.Capability
		} else {
			res.capability = e.capability
		}
	case name == "APPEND":
		if t.Code != nil && t.Code.Kind == imap.CodeAppendUID {
			res.copyUID = &CopyUIDResult{UIDValidity: t.Code.AppendUIDValid, UID: t.Code.AppendUID}
		}
	case strings.HasSuffix(name, "COPY") || strings.HasSuffix(name, "MOVE"):
		if t.Code != nil && t.Code.Kind == imap.CodeCopyUID {
			res.copyUID = &CopyUIDResult{
				UIDValidity: t.Code.CopyUIDValidity,
				SrcUIDSet:   t.Code.CopySrcUIDSet,
				DstUIDSet:   t.Code.CopyDstUIDSet,
			}
		} else if e.copyUID != nil {
			res.copyUID = e.copyUID
		}
	}
	return res
}

func (c *Connection) handleContinuation(cont imap.ContinuationResponse) {
	if e := c.awaitingIdleAck; e != nil {
		c.awaitingIdleAck = nil
		c.idlingEntry = e
		if c.opts.Metrics != nil {
			c.opts.Metrics.IdleSessions.Set(1)
		}
		e.idleAckCh <- nil
		return
	}
	if e := c.oldestPending(); e != nil && e.pendingLiteral != nil {
		lit := e.pendingLiteral
		e.pendingLiteral = nil
		if err := c.tr.Send(append(lit, '\r', '\n')); err != nil {
			c.fatalErr = err
			return
		}
		c.traceSend(lalogPreview(lit))
		if c.opts.Metrics != nil {
			c.opts.Metrics.BytesWritten.Add(float64(len(lit) + 2))
		}
		return
	}
	// Unexpected continuation (e.g. an AUTHENTICATE challenge beyond the
	// initial-response style); this core drops it, spec.md §4.4.4.
}

func (c *Connection) handleUntagged(u imap.Untagged) {
	c.applyUntaggedState(u)

	if c.idlingEntry != nil {
		switch u.Kind {
		case imap.UntaggedExists, imap.UntaggedExpunge, imap.UntaggedFetch:
			if c.idlingEntry.onIdle != nil {
				c.idlingEntry.onIdle(u)
			}
		}
		return
	}

	if e := c.oldestPending(); e != nil {
		c.accumulate(e, u)
	}
	if c.opts.OnUnsolicited != nil {
		c.opts.OnUnsolicited(u)
	}
}

func (c *Connection) applyUntaggedState(u imap.Untagged) {
	switch u.Kind {
	case imap.UntaggedCapability:
		c.capability = u.Capability
	case imap.UntaggedExists:
		c.mailbox.Exists = u.Number
	case imap.UntaggedFlags:
		c.mailbox.Flags = u.Flags
	case imap.UntaggedOkNoBad:
		if u.Code != nil {
			switch u.Code.Kind {
			case imap.CodeUIDValidity:
				c.mailbox.UIDValidity = u.Code.UIDValidity
			case imap.CodeUIDNext:
				c.mailbox.UIDNext = u.Code.UIDNext
			}
		}
	case imap.UntaggedBye:
		// An unsolicited BYE moves the connection straight to Logout
		// (state.go), mirroring the greeting BYE rule in spec.md §4.4.1.
		c.state = imap.Logout
	}
}

func (c *Connection) accumulate(e *pendingEntry, u imap.Untagged) {
	switch u.Kind {
	case imap.UntaggedFetch:
		e.fetch = append(e.fetch, u.Fetch)
	case imap.UntaggedList:
		e.list = append(e.list, u.List)
	case imap.UntaggedStatus:
		e.status = u.Status
		e.hasStatus = true
	case imap.UntaggedESearch:
		if e.esearch == nil {
			es := u.ESearch
			e.esearch = &es
		}
	case imap.UntaggedCapability:
		e.capability = u.Capability
	case imap.UntaggedEnabled:
		e.capability = u.Capability
	case imap.UntaggedOkNoBad:
		if u.Code != nil && u.Code.Kind == imap.CodeCopyUID {
			e.copyUID = &CopyUIDResult{
				UIDValidity: u.Code.CopyUIDValidity,
				SrcUIDSet:   u.Code.CopySrcUIDSet,
				DstUIDSet:   u.Code.CopyDstUIDSet,
			}
		}
	}
}

func lalogPreview(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "...(truncated)..."
	}
	return string(b)
}
