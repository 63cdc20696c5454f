package stt

import "context"

// EventType classifies recognizer stream events.
type EventType int

const (
    EventInterim EventType = iota
    EventFinal
    EventError
)

// Event is one transcript update from the recognition engine.
type Event struct {
    Type EventType
    Text string
}

// Stream is a live recognition stream for one call. Send pushes PCM16@16k
// audio; transcript events arrive on Events until Close.
type Stream interface {
    // Send enqueues an audio frame. Returns false when dropped under pressure.
    Send(pcm []byte) bool
    Events() <-chan Event
    // Reset clears per-utterance tracking at a turn boundary.
    Reset()
    Close()
}

// Recognizer opens recognition streams, parameterized by language at
// construction time.
type Recognizer interface {
    Stream(ctx context.Context) (Stream, error)
}
