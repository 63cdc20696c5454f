package transport

import (
    "context"
    "time"
)

// Frame is 20ms of PCM16 mono audio at 16kHz.
type Frame []byte

const (
    SampleRate    = 16000
    FrameDuration = 20 * time.Millisecond
    // FrameBytes is the byte length of one Frame (16-bit samples).
    FrameBytes = SampleRate / 50 * 2
)

// Room is the audio transport for one call: a signaling channel plus
// bidirectional audio. Implementations deliver caller audio on AudioIn and
// accept assistant audio through Play.
type Room interface {
    // Connect establishes the transport. Failure is fatal to the session.
    Connect(ctx context.Context) error
    // WaitForParticipant blocks until the caller joins and returns their identity.
    WaitForParticipant(ctx context.Context) (string, error)
    // AudioIn delivers caller audio frames for the lifetime of the call.
    AudioIn() <-chan Frame
    // Play streams assistant audio to the caller. It returns when frames is
    // exhausted, or immediately on ctx cancellation with any queued audio
    // discarded.
    Play(ctx context.Context, frames <-chan Frame) error
    // Closed is closed when the transport signals call end.
    Closed() <-chan struct{}
    Close() error
}
