package stt

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "net/url"
    "strings"
    "sync"
    "time"

    "nhooyr.io/websocket"
)

// Config carries the recognizer parameters supplied at session construction.
type Config struct {
    APIKey         string
    Model          string
    Language       string
    BaseURL        string
    EndpointingMs  int
    UtteranceEndMs int
    SocketMaxAge   time.Duration
}

// Deepgram implements Recognizer over the Deepgram live websocket API.
type Deepgram struct {
    cfg Config
}

func NewDeepgram(cfg Config) *Deepgram {
    if cfg.Model == "" {
        cfg.Model = "nova-2"
    }
    if cfg.Language == "" {
        cfg.Language = "es"
    }
    if cfg.BaseURL == "" {
        cfg.BaseURL = "wss://api.deepgram.com/v1/listen"
    }
    if cfg.EndpointingMs == 0 {
        cfg.EndpointingMs = 500
    }
    if cfg.UtteranceEndMs == 0 {
        cfg.UtteranceEndMs = 1000
    }
    if cfg.SocketMaxAge == 0 {
        cfg.SocketMaxAge = 15 * time.Minute
    }
    return &Deepgram{cfg: cfg}
}

func (d *Deepgram) Stream(ctx context.Context) (Stream, error) {
    sctx, cancel := context.WithCancel(ctx)
    q := url.Values{}
    q.Set("model", d.cfg.Model)
    q.Set("language", d.cfg.Language)
    q.Set("smart_format", "true")
    q.Set("endpointing", fmt.Sprintf("%d", d.cfg.EndpointingMs))
    q.Set("interim_results", "true")
    q.Set("utterance_end_ms", fmt.Sprintf("%d", d.cfg.UtteranceEndMs))
    q.Set("vad_events", "true")
    q.Set("encoding", "linear16")
    q.Set("sample_rate", "16000")
    q.Set("channels", "1")

    s := &liveStream{
        ctx:    sctx,
        cancel: cancel,
        apiKey: d.cfg.APIKey,
        url:    d.cfg.BaseURL + "?" + q.Encode(),
        maxAge: d.cfg.SocketMaxAge,
        sendQ:  make(chan []byte, 8),
        events: make(chan Event, 32),
    }
    go s.run()
    return s, nil
}

// liveStream owns one live connection lifecycle, reconnecting with backoff
// and opening a circuit after repeated failures.
type liveStream struct {
    ctx    context.Context
    cancel context.CancelFunc

    apiKey string
    url    string
    maxAge time.Duration

    sendQ  chan []byte
    events chan Event

    mu sync.Mutex
    tr tracker

    fails   []time.Time
    circuit time.Time
}

// tracker keeps the last interim/final text so an UtteranceEnd without a
// preceding final can still produce one.
type tracker struct {
    lastText      string
    lastFinalText string
}

func (s *liveStream) Send(pcm []byte) bool {
    select {
    case s.sendQ <- pcm:
        return true
    default:
        metricDrops.Inc()
        return false
    }
}

func (s *liveStream) Events() <-chan Event { return s.events }

func (s *liveStream) Reset() {
    s.mu.Lock()
    s.tr = tracker{}
    s.mu.Unlock()
}

func (s *liveStream) Close() { s.cancel() }

func (s *liveStream) run() {
    defer close(s.events)
    for {
        if err := s.connectAndPump(); err != nil {
            s.addFailure()
            s.emit(Event{Type: EventError, Text: err.Error()})
        } else {
            s.fails = nil
        }
        if s.ctx.Err() != nil {
            return
        }
        time.Sleep(s.nextBackoff())
    }
}

func (s *liveStream) connectAndPump() error {
    if time.Now().Before(s.circuit) {
        time.Sleep(500 * time.Millisecond)
        return fmt.Errorf("circuit open")
    }

    hdr := make(http.Header)
    if s.apiKey != "" {
        hdr.Set("Authorization", "Token "+s.apiKey)
    }
    dctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
    defer cancel()
    start := time.Now()
    ws, _, err := websocket.Dial(dctx, s.url, &websocket.DialOptions{HTTPHeader: hdr})
    if err != nil {
        log.Printf("[stt] connect error: %v", err)
        return err
    }
    metricConnectMS.Observe(float64(time.Since(start).Milliseconds()))
    metricReconnects.Inc()
    defer ws.Close(websocket.StatusNormalClosure, "bye")

    go func() {
        for {
            select {
            case <-s.ctx.Done():
                return
            case b := <-s.sendQ:
                if b == nil {
                    continue
                }
                wctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
                err := ws.Write(wctx, websocket.MessageBinary, b)
                cancel()
                if err != nil {
                    return
                }
                metricAudioBytes.Add(float64(len(b)))
            }
        }
    }()

    var rotate <-chan time.Time
    if s.maxAge > 0 {
        t := time.NewTimer(s.maxAge)
        defer t.Stop()
        rotate = t.C
    }

    for {
        if s.ctx.Err() != nil {
            return nil
        }
        select {
        case <-rotate:
            return fmt.Errorf("rotate")
        default:
        }
        _, data, err := ws.Read(s.ctx)
        if err != nil {
            if s.ctx.Err() != nil {
                return nil
            }
            return err
        }
        if len(data) == 0 {
            continue
        }
        var m map[string]any
        if err := json.Unmarshal(data, &m); err != nil {
            continue
        }
        s.mu.Lock()
        evs := decodeEvents(m, &s.tr)
        s.mu.Unlock()
        for _, e := range evs {
            if e.Type == EventFinal {
                metricFinals.Inc()
            }
            s.emit(e)
        }
    }
}

// decodeEvents maps one provider message to recognizer events, updating the
// utterance tracker.
func decodeEvents(m map[string]any, tr *tracker) []Event {
    typ := toString(m["type"])
    switch {
    case strings.EqualFold(typ, "Error") || m["error"] != nil:
        msg := toString(m["error"])
        if msg == "" {
            msg = toString(m["message"])
        }
        if msg == "" {
            msg = "provider_error"
        }
        return []Event{{Type: EventError, Text: msg}}

    case strings.EqualFold(typ, "Results") || m["channel"] != nil:
        text := transcriptText(m)
        isFinal := toBool(m["is_final"]) || toBool(m["speech_final"])
        if text != "" {
            tr.lastText = text
        }
        if isFinal {
            if text == "" {
                return nil
            }
            tr.lastFinalText = text
            return []Event{{Type: EventFinal, Text: text}}
        }
        if text == "" {
            return nil
        }
        return []Event{{Type: EventInterim, Text: text}}

    case strings.EqualFold(typ, "UtteranceEnd"):
        // Fallback in case the provider final was missed.
        text := tr.lastFinalText
        if text == "" {
            text = tr.lastText
        }
        tr.lastText = ""
        tr.lastFinalText = ""
        if text == "" {
            return nil
        }
        return []Event{{Type: EventFinal, Text: text}}
    }
    return nil
}

func transcriptText(m map[string]any) string {
    channel, _ := m["channel"].(map[string]any)
    if channel == nil {
        return ""
    }
    alts, _ := channel["alternatives"].([]any)
    if len(alts) == 0 {
        return ""
    }
    a0, _ := alts[0].(map[string]any)
    if a0 == nil {
        return ""
    }
    return strings.TrimSpace(toString(a0["transcript"]))
}

func (s *liveStream) emit(e Event) {
    select {
    case s.events <- e:
    default:
        // drop if slow consumer
    }
}

func (s *liveStream) addFailure() {
    s.fails = append(s.fails, time.Now())
    cutoff := time.Now().Add(-60 * time.Second)
    j := 0
    for _, t := range s.fails {
        if t.After(cutoff) {
            s.fails[j] = t
            j++
        }
    }
    s.fails = s.fails[:j]
    if len(s.fails) >= 3 {
        s.circuit = time.Now().Add(30 * time.Second)
        metricCircuitOpens.Inc()
    }
}

func (s *liveStream) nextBackoff() time.Duration {
    n := len(s.fails)
    if n <= 0 {
        return time.Second
    }
    if n > 5 {
        n = 5
    }
    base := time.Duration(1<<uint(n-1)) * time.Second
    if base > 30*time.Second {
        base = 30 * time.Second
    }
    return base
}

func toString(v any) string {
    if s, ok := v.(string); ok {
        return s
    }
    return ""
}

func toBool(v any) bool {
    switch t := v.(type) {
    case bool:
        return t
    case string:
        return strings.EqualFold(t, "true")
    default:
        return false
    }
}
