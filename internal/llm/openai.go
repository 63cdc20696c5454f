package llm

import (
    "bufio"
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"
)

// Config parameterizes the reasoning engine: model name and sampling
// temperature are fixed at session construction.
type Config struct {
    APIKey      string
    Model       string
    Temperature float64
    BaseURL     string
}

// OpenAI implements Reasoner over the chat-completions streaming API.
type OpenAI struct {
    cfg   Config
    httpc *http.Client
}

func NewOpenAI(cfg Config) *OpenAI {
    if cfg.Model == "" {
        cfg.Model = "gpt-4o-mini"
    }
    if cfg.BaseURL == "" {
        cfg.BaseURL = "https://api.openai.com/v1"
    }
    return &OpenAI{cfg: cfg, httpc: &http.Client{Timeout: 0}}
}

func (o *OpenAI) Complete(ctx context.Context, msgs []Message, profile AgentProfile) (<-chan Event, error) {
    all := make([]Message, 0, len(msgs)+1)
    if profile.Instructions != "" {
        all = append(all, Message{Role: "system", Content: profile.Instructions})
    }
    all = append(all, msgs...)

    body := map[string]any{
        "model":       o.cfg.Model,
        "temperature": o.cfg.Temperature,
        "stream":      true,
        "messages":    all,
    }
    if len(profile.Tools) > 0 {
        body["tools"] = encodeTools(profile.Tools)
    }
    reqBytes, _ := json.Marshal(body)

    req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(o.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(reqBytes))
    if err != nil {
        return nil, err
    }
    req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("Accept", "text/event-stream")

    start := time.Now()
    resp, err := o.httpc.Do(req)
    if err != nil {
        return nil, err
    }
    if resp.StatusCode/100 != 2 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
        resp.Body.Close()
        return nil, fmt.Errorf("llm: status=%d body=%s", resp.StatusCode, string(b))
    }

    out := make(chan Event, 16)
    go func() {
        defer close(out)
        defer resp.Body.Close()
        streamChunks(ctx, bufio.NewReader(resp.Body), out, start)
    }()
    return out, nil
}

// emit delivers one event unless the caller has gone away; the consumer may
// abandon the channel mid-turn, so a plain send could park this goroutine
// forever.
func emit(ctx context.Context, out chan<- Event, e Event) bool {
    select {
    case out <- e:
        return true
    case <-ctx.Done():
        return false
    }
}

// streamChunks reads the SSE stream and emits sentence or tool-call events.
// Once a tool-call delta appears, text output is suppressed so a completed
// turn yields exactly one of the two.
func streamChunks(ctx context.Context, br *bufio.Reader, out chan<- Event, start time.Time) {
    var sentBuf bytes.Buffer
    var tool ToolCall
    var toolArgs strings.Builder
    firstToken := false
    decoder := newSSEDecoder(br)

    for {
        if ctx.Err() != nil {
            return
        }
        _, data, err := decoder.Next()
        if err != nil {
            if err != io.EOF && ctx.Err() == nil {
                emit(ctx, out, Event{Type: EventError, Text: err.Error()})
            }
            break
        }
        if len(data) == 0 {
            continue
        }
        if string(data) == "[DONE]" {
            break
        }
        var m map[string]any
        if err := json.Unmarshal(data, &m); err != nil {
            continue
        }
        choices, _ := m["choices"].([]any)
        if len(choices) == 0 {
            continue
        }
        choice, _ := choices[0].(map[string]any)
        delta, _ := choice["delta"].(map[string]any)

        if tcs, ok := delta["tool_calls"].([]any); ok {
            for _, raw := range tcs {
                tc, _ := raw.(map[string]any)
                fn, _ := tc["function"].(map[string]any)
                if name := toString(fn["name"]); name != "" {
                    tool.Name = name
                }
                toolArgs.WriteString(toString(fn["arguments"]))
            }
            continue
        }

        content := toString(delta["content"])
        if content == "" || tool.Name != "" {
            continue
        }
        if !firstToken {
            metricTTFT.Observe(float64(time.Since(start).Milliseconds()))
            firstToken = true
        }
        sentBuf.WriteString(content)
        if isSentenceBoundary(sentBuf.String()) {
            if !emit(ctx, out, Event{Type: EventSentence, Text: sentBuf.String()}) {
                return
            }
            sentBuf.Reset()
        }
    }

    if tool.Name != "" {
        tool.Arguments = toolArgs.String()
        metricToolCalls.Inc()
        emit(ctx, out, Event{Type: EventToolCall, Tool: &tool})
        return
    }
    if sentBuf.Len() > 0 {
        emit(ctx, out, Event{Type: EventSentence, Text: sentBuf.String()})
    }
}

func encodeTools(tools []ToolDef) []map[string]any {
    out := make([]map[string]any, 0, len(tools))
    for _, t := range tools {
        params := t.Parameters
        if params == nil {
            params = map[string]any{"type": "object", "properties": map[string]any{}}
        }
        out = append(out, map[string]any{
            "type": "function",
            "function": map[string]any{
                "name":        t.Name,
                "description": t.Description,
                "parameters":  params,
            },
        })
    }
    return out
}

func isSentenceBoundary(s string) bool {
    t := strings.TrimSpace(s)
    if t == "" {
        return false
    }
    last := t[len(t)-1]
    return last == '.' || last == '!' || last == '?'
}

func toString(v any) string {
    if v == nil {
        return ""
    }
    if s, ok := v.(string); ok {
        return s
    }
    return ""
}
