package imapclient

import (
	"context"
	"fmt"
	"time"

	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/command"
)

// Idle starts an IDLE flow: it blocks until the server's continuation
// acknowledges the command, then returns. notify is invoked synchronously
// from the connection's event loop for every Exists/Expunge/Fetch untagged
// response received while idling; per spec.md §9 "IDLE control flow" it
// must not block, forwarding to a queue if it needs to do real work.
func (c *Connection) Idle(ctx context.Context, notify func(imap.Untagged)) error {
	ack := make(chan error, 1)
	doneCh := make(chan *pendingResult, 1)

	select {
	case c.submit <- func() { c.submitIdle(notify, ack, doneCh) }:
	case <-c.closed:
		return imap.ErrConnectionClosed
	}

	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return imap.ErrCancelled
	case <-c.closed:
		return imap.ErrConnectionClosed
	}
}

func (c *Connection) submitIdle(notify func(imap.Untagged), ack chan error, doneCh chan *pendingResult) {
	if c.state == imap.Logout {
		ack <- imap.ErrWrongPhase
		return
	}
	if c.awaitingIdleAck != nil || c.idlingEntry != nil {
		ack <- fmt.Errorf("imapclient: an IDLE is already in progress")
		return
	}
	tag := c.allocTag()
	out, err := command.Serialize(imap.Command{Tag: tag, Name: "IDLE"})
	if err != nil {
		ack <- err
		return
	}
	e := &pendingEntry{tag: tag, name: "IDLE", submitted: time.Now(), idleAckCh: ack, onIdle: notify, done: doneCh}
	c.addPending(e)
	c.awaitingIdleAck = e
	if err := c.sendOutput(out, e); err != nil {
		c.fatalErr = err
	}
}

// IdleDone sends DONE and waits for the tagged response that closes the
// IDLE flow started by Idle.
func (c *Connection) IdleDone(ctx context.Context) error {
	result := make(chan error, 1)
	select {
	case c.submit <- func() { c.submitIdleDone(result) }:
	case <-c.closed:
		return imap.ErrConnectionClosed
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return imap.ErrCancelled
	case <-c.closed:
		return imap.ErrConnectionClosed
	}
}

func (c *Connection) submitIdleDone(result chan error) {
	e := c.idlingEntry
	if e == nil {
		result <- fmt.Errorf("imapclient: not idling")
		return
	}
	c.idlingEntry = nil
	if c.opts.Metrics != nil {
		c.opts.Metrics.IdleSessions.Set(0)
	}
	if err := c.tr.Send([]byte(command.Done)); err != nil {
		c.fatalErr = err
		result <- err
		return
	}
	c.traceSend(command.Done)
	if c.opts.Metrics != nil {
		c.opts.Metrics.BytesWritten.Add(float64(len(command.Done)))
	}
	// The tagged OK that closes the flow resolves e.done through the
	// ordinary tagged-response path (handleTagged); forward it here since
	// the event loop itself cannot block waiting for its own output.
	go func() {
		res := <-e.done
		result <- res.err
	}()
}
