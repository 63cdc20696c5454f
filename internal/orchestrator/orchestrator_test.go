package orchestrator

import (
    "context"
    "errors"
    "testing"

    "voxal/agent/internal/pipeline"
    "voxal/agent/internal/llm"
    "voxal/agent/internal/routing"
    "voxal/agent/internal/session"
    "voxal/agent/internal/transfer"
    "voxal/agent/internal/transport"
)

type fakeRoom struct {
    connectErr error
    closed     chan struct{}
}

func newFakeRoom() *fakeRoom { return &fakeRoom{closed: make(chan struct{})} }

func (r *fakeRoom) Connect(ctx context.Context) error { return r.connectErr }
func (r *fakeRoom) WaitForParticipant(ctx context.Context) (string, error) {
    return "caller-1", nil
}
func (r *fakeRoom) AudioIn() <-chan transport.Frame { return nil }
func (r *fakeRoom) Play(ctx context.Context, frames <-chan transport.Frame) error {
    return nil
}
func (r *fakeRoom) Closed() <-chan struct{} { return r.closed }
func (r *fakeRoom) Close() error            { return nil }

type step struct {
    res pipeline.TurnResult
    err error
}

type fakeConv struct {
    steps []step
    said  []string
}

func (c *fakeConv) Start(ctx context.Context) error { return nil }
func (c *fakeConv) Stop()                           {}
func (c *fakeConv) Say(ctx context.Context, text string) error {
    c.said = append(c.said, text)
    return nil
}
func (c *fakeConv) Run(ctx context.Context) (pipeline.TurnResult, error) {
    if len(c.steps) == 0 {
        return pipeline.TurnResult{}, pipeline.ErrCallEnded
    }
    s := c.steps[0]
    c.steps = c.steps[1:]
    return s.res, s.err
}

type fakeTransferrer struct {
    outcome transfer.Outcome
    calls   []struct{ dest, dept string }
}

func (t *fakeTransferrer) Execute(ctx context.Context, sess *session.Session, destination, department string) transfer.Outcome {
    t.calls = append(t.calls, struct{ dest, dept string }{destination, department})
    return t.outcome
}

func testConfig() Config {
    return Config{
        RoomName:    "room-1",
        Language:    "es",
        Greeting:    "Hola, gracias por llamar.",
        DefaultDept: "Agente",
    }
}

func TestGreetingThenCallEnd(t *testing.T) {
    conv := &fakeConv{}
    o := New(newFakeRoom(), conv, &fakeTransferrer{}, routing.Default(), testConfig())
    if err := o.Run(context.Background()); err != nil {
        t.Fatalf("run: %v", err)
    }
    if len(conv.said) != 1 || conv.said[0] != "Hola, gracias por llamar." {
        t.Fatalf("greeting not spoken: %v", conv.said)
    }
    if o.Session() == nil || o.Session().ParticipantIdentity != "caller-1" {
        t.Fatalf("session not built: %+v", o.Session())
    }
}

func TestToolCallRunsTransfer(t *testing.T) {
    conv := &fakeConv{steps: []step{
        {res: pipeline.TurnResult{
            Transcript: "con un agente por favor",
            Tool:       &llm.ToolCall{Name: TransferToolName, Arguments: `{"department":"Agente"}`},
        }},
    }}
    tf := &fakeTransferrer{outcome: transfer.Outcome{Transferred: true, Department: "Agente"}}
    var reported *transfer.Outcome
    o := New(newFakeRoom(), conv, tf, routing.Default(), testConfig())
    o.OnTransfer = func(sess *session.Session, out transfer.Outcome) { reported = &out }

    if err := o.Run(context.Background()); err != nil {
        t.Fatalf("run: %v", err)
    }
    if len(tf.calls) != 1 {
        t.Fatalf("expected one transfer, got %d", len(tf.calls))
    }
    if tf.calls[0].dept != "Agente" || tf.calls[0].dest != "sip:5652917934@127.0.0.1:49999" {
        t.Fatalf("transfer routed wrong: %+v", tf.calls[0])
    }
    if reported == nil || !reported.Transferred {
        t.Fatalf("outcome not reported: %+v", reported)
    }
}

func TestUnknownDepartmentFallsBackToDefault(t *testing.T) {
    conv := &fakeConv{steps: []step{
        {res: pipeline.TurnResult{
            Transcript: "ventas",
            Tool:       &llm.ToolCall{Name: TransferToolName, Arguments: `{"department":"Ventas"}`},
        }},
    }}
    tf := &fakeTransferrer{}
    o := New(newFakeRoom(), conv, tf, routing.Default(), testConfig())
    if err := o.Run(context.Background()); err != nil {
        t.Fatalf("run: %v", err)
    }
    if len(tf.calls) != 1 || tf.calls[0].dept != "Agente" {
        t.Fatalf("expected default department, got %+v", tf.calls)
    }
}

func TestSessionSurvivesInterruptionsAndProviderFailures(t *testing.T) {
    conv := &fakeConv{steps: []step{
        {err: pipeline.ErrInterrupted},
        {err: pipeline.ErrProvider},
        {res: pipeline.TurnResult{Transcript: "hola", Reply: "Hola."}},
    }}
    o := New(newFakeRoom(), conv, &fakeTransferrer{}, routing.Default(), testConfig())
    if err := o.Run(context.Background()); err != nil {
        t.Fatalf("recoverable errors must not end the session: %v", err)
    }
    if len(conv.steps) != 0 {
        t.Fatalf("loop stopped early, %d steps left", len(conv.steps))
    }
}

func TestConnectFailureIsFatal(t *testing.T) {
    room := newFakeRoom()
    room.connectErr = errors.New("dial tcp: refused")
    o := New(room, &fakeConv{}, &fakeTransferrer{}, routing.Default(), testConfig())
    err := o.Run(context.Background())
    if !errors.Is(err, ErrConnect) {
        t.Fatalf("expected ErrConnect, got %v", err)
    }
}
