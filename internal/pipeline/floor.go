package pipeline

import "sync"

// Decision is what the floor manager wants done about caller speech.
type Decision struct {
    ShouldStop bool
    TurnID     string
    Reason     string // e.g., "barge_in"
}

// Floor arbitrates who holds the audio floor. While the assistant is
// speaking, caller speech is a barge-in and playback must stop. The barge-in
// monitor goroutine consults it concurrently, hence the lock.
type Floor struct {
    mu           sync.Mutex
    speaking     bool
    activeTurnID string
}

func NewFloor() *Floor { return &Floor{} }

func (f *Floor) OnAssistantSpeaking(turnID string) {
    f.mu.Lock()
    f.speaking = true
    f.activeTurnID = turnID
    f.mu.Unlock()
}

func (f *Floor) OnAssistantDone() {
    f.mu.Lock()
    f.speaking = false
    f.activeTurnID = ""
    f.mu.Unlock()
}

func (f *Floor) OnCallerSpeech() Decision {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.speaking {
        return Decision{ShouldStop: true, TurnID: f.activeTurnID, Reason: "barge_in"}
    }
    return Decision{}
}

func (f *Floor) Speaking() bool {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.speaking
}
