package llm

import "context"

// Message is one turn of conversational history.
type Message struct {
    Role    string `json:"role"`
    Content string `json:"content"`
}

// ToolDef describes a callable tool offered to the reasoning engine.
type ToolDef struct {
    Name        string
    Description string
    Parameters  map[string]any
}

// ToolCall is a structured action designated by the reasoning engine in
// place of a plain-text reply.
type ToolCall struct {
    Name      string
    Arguments string // raw JSON
}

// AgentProfile is the data-driven assistant personality: free-text
// instructions plus the registered tools. It replaces subclassing an agent
// base type.
type AgentProfile struct {
    Instructions string
    Tools        []ToolDef
}

type EventType int

const (
    // EventSentence carries a complete sentence of the streamed reply.
    EventSentence EventType = iota
    // EventToolCall carries the designated tool invocation; when present the
    // stream yields no sentences.
    EventToolCall
    // EventError carries a provider failure; the stream ends after it.
    EventError
)

type Event struct {
    Type EventType
    Text string
    Tool *ToolCall
}

// Reasoner streams a reply for the transcript plus history. The returned
// channel is closed when the response is complete or cancelled.
type Reasoner interface {
    Complete(ctx context.Context, msgs []Message, profile AgentProfile) (<-chan Event, error)
}
