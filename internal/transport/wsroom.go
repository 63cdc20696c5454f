package transport

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "net/url"
    "time"

    "nhooyr.io/websocket"
)

// WSRoom joins a room over a websocket signaling+media channel. Text frames
// carry JSON signal envelopes; binary frames carry caller PCM16 audio.
type WSRoom struct {
    baseURL  string
    roomName string
    botName  string
    token    string

    ctx    context.Context
    cancel context.CancelFunc

    ws *websocket.Conn

    audioIn chan Frame
    joined  chan string
    closed  chan struct{}
}

type signalEnvelope struct {
    Type     string         `json:"type"`
    TsMs     int64          `json:"ts_ms"`
    Room     string         `json:"room,omitempty"`
    Identity string         `json:"identity,omitempty"`
    Payload  map[string]any `json:"payload,omitempty"`
}

func NewWSRoom(baseURL, roomName, botName, token string) *WSRoom {
    ctx, cancel := context.WithCancel(context.Background())
    return &WSRoom{
        baseURL:  baseURL,
        roomName: roomName,
        botName:  botName,
        token:    token,
        ctx:      ctx,
        cancel:   cancel,
        audioIn:  make(chan Frame, 32),
        joined:   make(chan string, 1),
        closed:   make(chan struct{}),
    }
}

func (r *WSRoom) Connect(ctx context.Context) error {
    q := url.Values{}
    q.Set("room", r.roomName)
    q.Set("identity", r.botName)
    hdr := make(http.Header)
    hdr.Set("Authorization", "Bearer "+r.token)

    dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    start := time.Now()
    ws, _, err := websocket.Dial(dctx, r.baseURL+"/rtc?"+q.Encode(), &websocket.DialOptions{HTTPHeader: hdr})
    if err != nil {
        return fmt.Errorf("room connect: %w", err)
    }
    log.Printf("[transport] connected room=%s in %dms", r.roomName, time.Since(start).Milliseconds())
    r.ws = ws
    // Large audio frames are fine; default read limit is 32KiB.
    ws.SetReadLimit(1 << 20)
    go r.readLoop()
    return nil
}

func (r *WSRoom) readLoop() {
    defer close(r.closed)
    for {
        typ, data, err := r.ws.Read(r.ctx)
        if err != nil {
            if r.ctx.Err() == nil {
                log.Printf("[transport] read closed room=%s: %v", r.roomName, err)
            }
            return
        }
        switch typ {
        case websocket.MessageBinary:
            select {
            case r.audioIn <- Frame(data):
            default:
                // drop-latest under pressure
            }
        case websocket.MessageText:
            var env signalEnvelope
            if err := json.Unmarshal(data, &env); err != nil {
                log.Printf("[transport] bad signal: %v", err)
                continue
            }
            switch env.Type {
            case "participant_joined":
                select {
                case r.joined <- env.Identity:
                default:
                }
            case "participant_left", "call_end":
                log.Printf("[transport] call end room=%s reason=%s", r.roomName, env.Type)
                return
            }
        }
    }
}

func (r *WSRoom) WaitForParticipant(ctx context.Context) (string, error) {
    select {
    case identity := <-r.joined:
        log.Printf("[transport] participant joined room=%s identity=%s", r.roomName, identity)
        return identity, nil
    case <-r.closed:
        return "", fmt.Errorf("room closed before participant joined")
    case <-ctx.Done():
        return "", ctx.Err()
    }
}

func (r *WSRoom) AudioIn() <-chan Frame { return r.audioIn }

func (r *WSRoom) Play(ctx context.Context, frames <-chan Frame) error {
    for {
        select {
        case <-ctx.Done():
            // Flush whatever the producer still has queued so nothing of the
            // interrupted utterance can reach the caller later.
            go func() {
                for range frames {
                }
            }()
            r.signal(ctx, "playback_cancelled", nil)
            return ctx.Err()
        case <-r.closed:
            return fmt.Errorf("room closed during playback")
        case f, ok := <-frames:
            if !ok {
                return nil
            }
            wctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
            err := r.ws.Write(wctx, websocket.MessageBinary, f)
            cancel()
            if err != nil {
                return fmt.Errorf("playback write: %w", err)
            }
        }
    }
}

// signal sends a best-effort JSON envelope on the signaling channel.
func (r *WSRoom) signal(ctx context.Context, typ string, payload map[string]any) {
    env := signalEnvelope{Type: typ, TsMs: time.Now().UnixMilli(), Room: r.roomName, Payload: payload}
    b, _ := json.Marshal(env)
    wctx, cancel := context.WithTimeout(r.ctx, 2*time.Second)
    defer cancel()
    _ = r.ws.Write(wctx, websocket.MessageText, b)
}

func (r *WSRoom) Closed() <-chan struct{} { return r.closed }

func (r *WSRoom) Close() error {
    r.cancel()
    if r.ws != nil {
        return r.ws.Close(websocket.StatusNormalClosure, "bye")
    }
    return nil
}
