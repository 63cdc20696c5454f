package pipeline

import "testing"

func TestBargeInTriggersStop(t *testing.T) {
    f := NewFloor()
    f.OnAssistantSpeaking("t1")
    d := f.OnCallerSpeech()
    if !d.ShouldStop || d.Reason != "barge_in" || d.TurnID != "t1" {
        t.Fatalf("expected stop on barge-in, got %+v", d)
    }
}

func TestCallerSpeechWhileIdleDoesNothing(t *testing.T) {
    f := NewFloor()
    if d := f.OnCallerSpeech(); d.ShouldStop {
        t.Fatalf("should not stop when assistant is silent")
    }
}

func TestAssistantDoneClearsFloor(t *testing.T) {
    f := NewFloor()
    f.OnAssistantSpeaking("t1")
    f.OnAssistantDone()
    if d := f.OnCallerSpeech(); d.ShouldStop {
        t.Fatalf("should not request stop after assistant finished")
    }
    if f.Speaking() {
        t.Fatal("floor should be clear")
    }
}
