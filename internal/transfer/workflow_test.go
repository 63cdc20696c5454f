package transfer

import (
    "context"
    "errors"
    "strings"
    "sync"
    "testing"
    "time"

    "voxal/agent/internal/session"
    "voxal/agent/internal/telephony"
)

type fakeSpeaker struct {
    mu    sync.Mutex
    lines []string
}

func (s *fakeSpeaker) Say(ctx context.Context, text string) error {
    s.mu.Lock()
    s.lines = append(s.lines, text)
    s.mu.Unlock()
    return nil
}

func (s *fakeSpeaker) said() []string {
    s.mu.Lock()
    defer s.mu.Unlock()
    return append([]string(nil), s.lines...)
}

type fakeClient struct {
    failFirst int // attempts that fail before one succeeds
    block     bool

    mu    sync.Mutex
    calls []telephony.TransferRequest
}

func (c *fakeClient) TransferParticipant(ctx context.Context, req telephony.TransferRequest) error {
    c.mu.Lock()
    c.calls = append(c.calls, req)
    n := len(c.calls)
    c.mu.Unlock()
    if c.block {
        <-ctx.Done()
        return ctx.Err()
    }
    if n <= c.failFirst {
        return errors.New("sip trunk unavailable")
    }
    return nil
}

func (c *fakeClient) callCount() int {
    c.mu.Lock()
    defer c.mu.Unlock()
    return len(c.calls)
}

func testWorkflow(speaker Speaker, client telephony.Client, retries int) *Workflow {
    return New(speaker, func() (telephony.Client, error) { return client, nil }, Config{
        GraceDelay:     time.Millisecond,
        AttemptTimeout: 50 * time.Millisecond,
        Retries:        retries,
    })
}

func TestSuccessfulTransfer(t *testing.T) {
    sp := &fakeSpeaker{}
    cl := &fakeClient{}
    w := testWorkflow(sp, cl, 1)
    sess := session.New("s1", "room-1", "caller-1", "es")

    out := w.Execute(context.Background(), sess, "sip:5652917934@127.0.0.1:49999", "Agente")
    if !out.Transferred {
        t.Fatalf("expected success, got %+v", out)
    }
    if cl.callCount() != 1 {
        t.Fatalf("expected a single attempt, got %d", cl.callCount())
    }
    lines := sp.said()
    if len(lines) != 1 || !strings.Contains(lines[0], "Agente") {
        t.Fatalf("expected only the announcement, got %v", lines)
    }
    if sess.Context.Department != "Agente" {
        t.Fatalf("department not recorded on session: %q", sess.Context.Department)
    }
    got := cl.calls[0]
    if got.ParticipantIdentity != "caller-1" || got.Room != "room-1" || !got.PlayDialtone {
        t.Fatalf("request = %+v", got)
    }
}

func TestFailedTransferSpeaksFallbackOnce(t *testing.T) {
    sp := &fakeSpeaker{}
    cl := &fakeClient{failFirst: 10}
    w := testWorkflow(sp, cl, 1)
    sess := session.New("s1", "room-1", "caller-1", "es")

    out := w.Execute(context.Background(), sess, "sip:5652917934@127.0.0.1:49999", "Agente")
    if out.Transferred {
        t.Fatal("transfer should have failed")
    }
    if out.Reason == "" {
        t.Fatal("failure outcome must carry a reason")
    }
    if cl.callCount() != 2 {
        t.Fatalf("expected initial attempt plus one retry, got %d", cl.callCount())
    }
    lines := sp.said()
    if len(lines) != 2 || !strings.Contains(lines[1], "no fue posible") {
        t.Fatalf("expected announcement then one fallback, got %v", lines)
    }
}

func TestRetrySucceedsAfterFirstFailure(t *testing.T) {
    sp := &fakeSpeaker{}
    cl := &fakeClient{failFirst: 1}
    w := testWorkflow(sp, cl, 1)
    sess := session.New("s1", "room-1", "caller-1", "es")

    out := w.Execute(context.Background(), sess, "sip:agente@host", "Agente")
    if !out.Transferred {
        t.Fatalf("retry should have succeeded, got %+v", out)
    }
    if cl.callCount() != 2 {
        t.Fatalf("expected two attempts, got %d", cl.callCount())
    }
    if lines := sp.said(); len(lines) != 1 {
        t.Fatalf("no fallback on eventual success, got %v", lines)
    }
}

func TestInvalidRequestNeverReachesTelephony(t *testing.T) {
    sp := &fakeSpeaker{}
    cl := &fakeClient{}
    w := testWorkflow(sp, cl, 1)
    sess := session.New("s1", "room-1", "caller-1", "es")

    out := w.Execute(context.Background(), sess, "", "Agente")
    if out.Transferred {
        t.Fatal("empty destination must not transfer")
    }
    if cl.callCount() != 0 {
        t.Fatalf("invalid request reached the client %d times", cl.callCount())
    }
    if lines := sp.said(); len(lines) != 2 {
        t.Fatalf("expected announcement then fallback, got %v", lines)
    }
}

func TestAttemptTimeoutBoundsBlockedClient(t *testing.T) {
    sp := &fakeSpeaker{}
    cl := &fakeClient{block: true}
    w := testWorkflow(sp, cl, 0)
    sess := session.New("s1", "room-1", "caller-1", "es")

    start := time.Now()
    out := w.Execute(context.Background(), sess, "sip:agente@host", "Agente")
    if out.Transferred {
        t.Fatal("blocked client should time out")
    }
    if elapsed := time.Since(start); elapsed > 2*time.Second {
        t.Fatalf("attempt not bounded by timeout, took %v", elapsed)
    }
}

func TestHandOffSurvivesSessionCancellation(t *testing.T) {
    sp := &fakeSpeaker{}
    cl := &fakeClient{}
    w := testWorkflow(sp, cl, 0)
    sess := session.New("s1", "room-1", "caller-1", "es")

    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    out := w.Execute(ctx, sess, "sip:agente@host", "Agente")
    if !out.Transferred {
        t.Fatalf("in-flight hand-off must not be aborted by session teardown: %+v", out)
    }
}

func TestTelephonyClientBuiltOnce(t *testing.T) {
    sp := &fakeSpeaker{}
    cl := &fakeClient{}
    built := 0
    w := New(sp, func() (telephony.Client, error) {
        built++
        return cl, nil
    }, Config{GraceDelay: time.Millisecond, AttemptTimeout: 50 * time.Millisecond})
    sess := session.New("s1", "room-1", "caller-1", "es")

    w.Execute(context.Background(), sess, "sip:agente@host", "Agente")
    w.Execute(context.Background(), sess, "sip:agente@host", "Agente")
    if built != 1 {
        t.Fatalf("client should be cached on the session, built %d times", built)
    }
}
