package orchestrator

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"

    "github.com/google/uuid"

    "voxal/agent/internal/llm"
    "voxal/agent/internal/pipeline"
    "voxal/agent/internal/routing"
    "voxal/agent/internal/session"
    "voxal/agent/internal/transfer"
    "voxal/agent/internal/transport"
)

const TransferToolName = "transfer_call"

// ErrConnect is session-fatal: without a room there is no call.
var ErrConnect = errors.New("room connect failed")

// TransferTool is the function surface the reasoning engine can invoke to
// hand the caller to a human department.
func TransferTool() llm.ToolDef {
    return llm.ToolDef{
        Name:        TransferToolName,
        Description: "Transfiere la llamada a un departamento cuando el usuario lo solicita o cuando no puedes resolver su problema.",
        Parameters: map[string]any{
            "type": "object",
            "properties": map[string]any{
                "department": map[string]any{
                    "type":        "string",
                    "description": "Nombre del departamento al que transferir la llamada.",
                },
            },
            "required": []string{"department"},
        },
    }
}

// Conversation is the turn surface the orchestrator drives; the turn
// pipeline satisfies it.
type Conversation interface {
    Start(ctx context.Context) error
    Run(ctx context.Context) (pipeline.TurnResult, error)
    Say(ctx context.Context, text string) error
    Stop()
}

// Transferrer runs the transfer workflow end to end.
type Transferrer interface {
    Execute(ctx context.Context, sess *session.Session, destination, department string) transfer.Outcome
}

type Config struct {
    RoomName    string
    Language    string
    Greeting    string
    DefaultDept string
}

// Orchestrator owns one call: connect, greet, loop turns, run transfers,
// and tear down when the room closes.
type Orchestrator struct {
    room   transport.Room
    conv   Conversation
    wf     Transferrer
    routes *routing.Table
    cfg    Config

    // OnTransfer, when set, reports each transfer outcome upstream.
    OnTransfer func(sess *session.Session, out transfer.Outcome)

    sess *session.Session
}

func New(room transport.Room, conv Conversation, wf Transferrer, routes *routing.Table, cfg Config) *Orchestrator {
    return &Orchestrator{room: room, conv: conv, wf: wf, routes: routes, cfg: cfg}
}

// Session exposes the active session, once Run has created it.
func (o *Orchestrator) Session() *session.Session { return o.sess }

// Run drives the call to completion. It returns nil when the room ends the
// call, and an error only for session-fatal conditions.
func (o *Orchestrator) Run(ctx context.Context) error {
    metricSessions.Inc()
    if err := o.room.Connect(ctx); err != nil {
        metricSessionFailures.Inc()
        return fmt.Errorf("%w: %v", ErrConnect, err)
    }
    defer o.room.Close()

    identity, err := o.room.WaitForParticipant(ctx)
    if err != nil {
        metricSessionFailures.Inc()
        return fmt.Errorf("wait for participant: %w", err)
    }

    o.sess = session.New(uuid.New().String(), o.cfg.RoomName, identity, o.cfg.Language)
    log.Printf("[orchestrator] session=%s participant=%s", o.sess.ID, identity)

    if err := o.conv.Start(ctx); err != nil {
        metricSessionFailures.Inc()
        return err
    }
    defer o.conv.Stop()

    if o.cfg.Greeting != "" {
        if err := o.conv.Say(ctx, o.cfg.Greeting); err != nil {
            log.Printf("[orchestrator] greeting failed: %v", err)
        }
    }

    for {
        res, err := o.conv.Run(ctx)
        switch {
        case errors.Is(err, pipeline.ErrCallEnded):
            log.Printf("[orchestrator] session=%s call ended", o.sess.ID)
            return nil
        case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
            return err
        case errors.Is(err, pipeline.ErrInterrupted):
            continue
        case errors.Is(err, pipeline.ErrProvider):
            // apology already spoken; keep listening
            continue
        case err != nil:
            metricSessionFailures.Inc()
            return err
        }
        if res.Tool != nil && res.Tool.Name == TransferToolName {
            o.runTransfer(ctx, res.Tool)
        }
    }
}

func (o *Orchestrator) runTransfer(ctx context.Context, call *llm.ToolCall) {
    department := o.parseDepartment(call.Arguments)
    dest, ok := o.routes.Destination(department)
    if !ok {
        log.Printf("[orchestrator] unknown department %q, routing to %q", department, o.cfg.DefaultDept)
        department = o.cfg.DefaultDept
        dest, _ = o.routes.Destination(department)
    }
    out := o.wf.Execute(ctx, o.sess, dest, department)
    metricTransfers.WithLabelValues(resultLabel(out.Transferred)).Inc()
    if o.OnTransfer != nil {
        o.OnTransfer(o.sess, out)
    }
}

func (o *Orchestrator) parseDepartment(rawArgs string) string {
    var args struct {
        Department string `json:"department"`
    }
    if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
        log.Printf("[orchestrator] bad tool arguments %q: %v", rawArgs, err)
    }
    if args.Department == "" {
        return o.cfg.DefaultDept
    }
    return args.Department
}

func resultLabel(ok bool) string {
    if ok {
        return "success"
    }
    return "failure"
}
