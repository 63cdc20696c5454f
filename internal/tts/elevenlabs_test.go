package tts

import (
    "bytes"
    "testing"

    "voxal/agent/internal/transport"
)

func TestPCMFramesExact(t *testing.T) {
    buf := make([]byte, transport.FrameBytes*3)
    frames, rem := pcmFrames(buf)
    if len(frames) != 3 {
        t.Fatalf("expected 3 frames, got %d", len(frames))
    }
    if len(rem) != 0 {
        t.Fatalf("expected no remainder, got %d bytes", len(rem))
    }
}

func TestPCMFramesRemainder(t *testing.T) {
    buf := make([]byte, transport.FrameBytes+100)
    for i := range buf {
        buf[i] = byte(i)
    }
    frames, rem := pcmFrames(buf)
    if len(frames) != 1 {
        t.Fatalf("expected 1 frame, got %d", len(frames))
    }
    if len(rem) != 100 {
        t.Fatalf("expected 100 remainder bytes, got %d", len(rem))
    }
    if !bytes.Equal(rem, buf[transport.FrameBytes:]) {
        t.Fatal("remainder should be the trailing bytes")
    }
}

func TestPCMFramesShortInput(t *testing.T) {
    frames, rem := pcmFrames(make([]byte, 10))
    if len(frames) != 0 || len(rem) != 10 {
        t.Fatalf("short input should carry over, got frames=%d rem=%d", len(frames), len(rem))
    }
}

func TestNewElevenLabsDefaults(t *testing.T) {
    e := NewElevenLabs(Config{APIKey: "k", VoiceID: "v"})
    if e.cfg.Model != "eleven_turbo_v2_5" {
        t.Errorf("unexpected default model %q", e.cfg.Model)
    }
    want := []int{80, 120, 200, 260}
    if len(e.cfg.ChunkSchedule) != len(want) {
        t.Fatalf("unexpected chunk schedule %v", e.cfg.ChunkSchedule)
    }
    for i, v := range want {
        if e.cfg.ChunkSchedule[i] != v {
            t.Fatalf("unexpected chunk schedule %v", e.cfg.ChunkSchedule)
        }
    }
}
