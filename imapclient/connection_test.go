package imapclient

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	imap "github.com/HouzuoGuo/imapcore"
	"github.com/HouzuoGuo/imapcore/command"
	"github.com/HouzuoGuo/imapcore/misc"
)

// scriptedTransport is an in-memory transport.Transport: everything written
// by the engine accumulates in toServer; everything queued with push is
// delivered to the engine's reader in order.
type scriptedTransport struct {
	mu         sync.Mutex
	toServer   bytes.Buffer
	fromServer chan []byte
	closed     bool
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{fromServer: make(chan []byte, 256)}
}

func (s *scriptedTransport) Send(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	s.toServer.Write(b)
	return nil
}

func (s *scriptedTransport) Recv() ([]byte, error) {
	b, ok := <-s.fromServer
	if !ok {
		return nil, io.EOF
	}
	return b, nil
}

func (s *scriptedTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *scriptedTransport) push(chunk string) {
	s.fromServer <- []byte(chunk)
}

func (s *scriptedTransport) sent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toServer.String()
}

func dialForTest(t *testing.T, greeting string) (*Connection, *scriptedTransport) {
	t.Helper()
	tr := newScriptedTransport()
	tr.push(greeting)
	c, err := New(tr, Options{GreetingTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, tr
}

// Scenario A: greeting + login.
func TestScenarioGreetingAndLogin(t *testing.T) {
	c, tr := dialForTest(t, "* OK [CAPABILITY IMAP4rev2 AUTH=PLAIN IDLE] Ready\r\n")
	if c.State() != imap.NotAuthenticated {
		t.Fatalf("state after greeting = %v", c.State())
	}
	caps := c.CapabilitySnapshot()
	want := map[string]bool{"IMAP4rev2": true, "AUTH=PLAIN": true, "IDLE": true}
	if len(caps) != len(want) {
		t.Fatalf("capabilities = %v", caps)
	}
	for _, cp := range caps {
		if !want[cp] {
			t.Fatalf("unexpected capability %q", cp)
		}
	}

	tr.push("A0001 OK LOGIN completed\r\n")
	if err := c.Login(context.Background(), "u", "p"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if c.State() != imap.Authenticated {
		t.Fatalf("state after login = %v", c.State())
	}
	if got := tr.sent(); got != "A0001 LOGIN u p\r\n" {
		t.Fatalf("sent = %q", got)
	}
}

// Scenario B: select + fetch + flags.
func TestScenarioSelectFetchFlags(t *testing.T) {
	c, tr := dialForTest(t, "* OK Ready\r\n")

	tr.push("* 172 EXISTS\r\n* FLAGS (\\Answered \\Seen)\r\nA0001 OK [READ-WRITE] SELECT completed\r\n")
	if err := c.Select(context.Background(), "INBOX"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if c.State() != imap.Selected {
		t.Fatalf("state = %v", c.State())
	}
	info := c.MailboxInfo()
	if info.Exists != 172 || info.Name != "INBOX" || info.ReadOnly {
		t.Fatalf("mailbox info = %+v", info)
	}
	if !info.Flags.Has("answered") || !info.Flags.Has("seen") {
		t.Fatalf("flags = %v", info.Flags)
	}

	tr.push("* 12 FETCH (FLAGS (\\Seen) UID 4827)\r\nA0002 OK FETCH completed\r\n")
	results, err := c.Fetch(context.Background(), "1:*", "(FLAGS UID)")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(results) != 1 || results[0].Seq != 12 {
		t.Fatalf("fetch results = %+v", results)
	}
	if results[0].Attrs.UID == nil || *results[0].Attrs.UID != 4827 {
		t.Fatalf("fetch uid = %+v", results[0].Attrs.UID)
	}
	if results[0].Attrs.Flags == nil || !results[0].Attrs.Flags.Has("seen") {
		t.Fatalf("fetch flags = %+v", results[0].Attrs.Flags)
	}
}

// Scenario C: literal containing CRLF, split across reads.
func TestScenarioLiteralContainingCRLF(t *testing.T) {
	c, tr := dialForTest(t, "* OK Ready\r\n")

	full := "* 1 FETCH (BODY[] {11}\r\nHello World)\r\nA0001 OK FETCH completed\r\n"
	tr.push(full[:20])
	tr.push(full[20:])

	results, err := c.Fetch(context.Background(), "1", "BODY[]")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	got, ok := results[0].Attrs.Body[""]
	if !ok || string(got) != "Hello World" {
		t.Fatalf("body = %q", got)
	}
}

// Scenario D: APPEND continuation.
func TestScenarioAppendContinuation(t *testing.T) {
	c, tr := dialForTest(t, "* OK Ready\r\n")
	tr.push("+ Ready\r\n")
	tr.push("A0001 OK [APPENDUID 38505 4001] APPEND completed\r\n")

	message := []byte("0123456789012345678901") // 22 bytes
	message = message[:22]
	res, err := c.Append(context.Background(), "INBOX", nil, "", message)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if res == nil || res.UIDValidity != 38505 || res.UID != 4001 {
		t.Fatalf("append result = %+v", res)
	}
	wantPrefix := "A0001 APPEND INBOX {22}\r\n"
	sent := tr.sent()
	if !bytes.HasPrefix([]byte(sent), []byte(wantPrefix)) {
		t.Fatalf("sent prefix = %q", sent)
	}
	if !bytes.HasSuffix([]byte(sent), append(message, '\r', '\n')) {
		t.Fatalf("sent suffix = %q", sent)
	}
}

// Scenario E: IDLE notification.
func TestScenarioIdleNotification(t *testing.T) {
	c, tr := dialForTest(t, "* OK Ready\r\n")
	tr.push("+ idling\r\n")

	notifyCh := make(chan imap.Untagged, 1)
	if err := c.Idle(context.Background(), func(u imap.Untagged) { notifyCh <- u }); err != nil {
		t.Fatalf("Idle: %v", err)
	}

	tr.push("* 11 EXISTS\r\n")
	select {
	case u := <-notifyCh:
		if u.Kind != imap.UntaggedExists || u.Number != 11 {
			t.Fatalf("notification = %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for IDLE notification")
	}

	tr.push("A0001 OK IDLE terminated\r\n")
	if err := c.IdleDone(context.Background()); err != nil {
		t.Fatalf("IdleDone: %v", err)
	}
	if got := tr.sent(); got != "A0001 IDLE\r\nDONE\r\n" {
		t.Fatalf("sent = %q", got)
	}
}

// MOVE accepts an untagged "OK [COPYUID ...]" arriving before the EXPUNGEs
// it triggers, spec.md's documented equivalent form.
func TestScenarioMoveUntaggedCopyUID(t *testing.T) {
	c, tr := dialForTest(t, "* OK Ready\r\n")
	tr.push("* OK [COPYUID 309 1 101] Done\r\n* 1 EXPUNGE\r\nA0001 OK MOVE completed\r\n")

	res, err := c.Move(context.Background(), "1", "Archive")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if res == nil || res.UIDValidity != 309 || res.SrcUIDSet != "1" || res.DstUIDSet != "101" {
		t.Fatalf("move result = %+v", res)
	}
}

// Options.CommandRateLimit rejects submissions over budget before they ever
// reach the wire.
func TestCommandRateLimit(t *testing.T) {
	tr := newScriptedTransport()
	tr.push("* OK Ready\r\n")
	c, err := New(tr, Options{
		GreetingTimeout:  2 * time.Second,
		CommandRateLimit: &misc.RateLimit{UnitSecs: 60, MaxCount: 1},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tr.push("A0001 OK NOOP completed\r\n")
	if err := c.Noop(context.Background()); err != nil {
		t.Fatalf("first Noop: %v", err)
	}
	if err := c.Noop(context.Background()); err != imap.ErrRateLimited {
		t.Fatalf("second Noop err = %v, want ErrRateLimited", err)
	}
	// The rejected command never allocated a tag or touched the wire; the
	// one pushed reply must not be mistaken for a second command's tag.
	if got := tr.sent(); got != "A0001 NOOP\r\n" {
		t.Fatalf("sent = %q", got)
	}
}

// Options.TraceBufferSize records sent/received wire lines, retrievable via
// RecentTrace.
func TestTraceBuffer(t *testing.T) {
	tr := newScriptedTransport()
	tr.push("* OK Ready\r\n")
	c, err := New(tr, Options{GreetingTimeout: 2 * time.Second, TraceBufferSize: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tr.push("A0001 OK NOOP completed\r\n")
	if err := c.Noop(context.Background()); err != nil {
		t.Fatalf("Noop: %v", err)
	}

	trace := c.RecentTrace()
	if len(trace) == 0 {
		t.Fatal("expected a non-empty trace")
	}
	var sawSend, sawRecv bool
	for _, line := range trace {
		if strings.HasPrefix(line, "> ") {
			sawSend = true
		}
		if strings.HasPrefix(line, "< ") {
			sawRecv = true
		}
	}
	if !sawSend || !sawRecv {
		t.Fatalf("trace = %v", trace)
	}
}

// Invariant 5 (tagged demux): N concurrently issued commands receive N
// tagged OKs in tag order, each caller keyed to its own tag.
func TestInvariantTaggedDemux(t *testing.T) {
	c, tr := dialForTest(t, "* OK Ready\r\n")

	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Noop(context.Background())
		}(i)
	}

	// Give every goroutine a chance to reach the write-side critical
	// section before replying, so tag allocation order cannot be inferred
	// from submission order alone; the server still must reply in tag
	// order for a compliant client.
	time.Sleep(50 * time.Millisecond)
	for i := 1; i <= n; i++ {
		tr.push(command.Tag(uint32(i)) + " OK NOOP completed\r\n")
	}

	wg.Wait()
	for i, err := range results {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
}

// Invariant 6 (state invariant).
func TestInvariantStateTransitions(t *testing.T) {
	c, tr := dialForTest(t, "* OK Ready\r\n")

	tr.push("A0001 OK SELECT completed\r\n")
	if err := c.Select(context.Background(), "INBOX"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if c.State() != imap.Selected {
		t.Fatalf("state = %v", c.State())
	}

	tr.push("A0002 OK CLOSE completed\r\n")
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.State() != imap.Authenticated {
		t.Fatalf("state = %v", c.State())
	}

	tr.push("A0003 OK LOGOUT completed\r\n")
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if c.State() != imap.Logout {
		t.Fatalf("state = %v", c.State())
	}
	if err := c.Noop(context.Background()); err != imap.ErrWrongPhase {
		t.Fatalf("Noop after logout = %v", err)
	}
}

// A NO response surfaces as a TaggedError without perturbing state.
func TestTaggedErrorOnNO(t *testing.T) {
	c, tr := dialForTest(t, "* OK Ready\r\n")
	tr.push("A0001 NO [TRYCREATE] SELECT failed\r\n")
	err := c.Select(context.Background(), "Nonexistent")
	if err == nil {
		t.Fatal("expected an error")
	}
	tagged, ok := err.(*imap.TaggedError)
	if !ok {
		t.Fatalf("err type = %T", err)
	}
	if tagged.Tagged.Status != imap.NO || tagged.Tagged.Code == nil || tagged.Tagged.Code.Kind != imap.CodeTryCreate {
		t.Fatalf("tagged = %+v", tagged.Tagged)
	}
	if c.State() != imap.NotAuthenticated {
		t.Fatalf("state changed on NO: %v", c.State())
	}
}

// Transport closure fails every outstanding caller with ErrConnectionClosed.
func TestTransportClosureFailsPending(t *testing.T) {
	c, tr := dialForTest(t, "* OK Ready\r\n")
	close(tr.fromServer)

	err := c.Noop(context.Background())
	if err != imap.ErrConnectionClosed {
		t.Fatalf("err = %v", err)
	}
}

// Cancellation: the caller unblocks immediately; a late tagged response is
// discarded silently rather than delivered or causing a panic.
func TestCommandCancellation(t *testing.T) {
	c, tr := dialForTest(t, "* OK Ready\r\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Noop(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != imap.ErrCancelled {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cancellation")
	}

	// The eventual (now orphaned) tagged response must not panic or wedge
	// the connection; a subsequent command must still complete normally.
	tr.push("A0001 OK NOOP completed\r\n")
	tr.push("A0002 OK NOOP completed\r\n")
	if err := c.Noop(context.Background()); err != nil {
		t.Fatalf("Noop after cancellation: %v", err)
	}
}
