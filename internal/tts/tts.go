package tts

import (
    "context"

    "voxal/agent/internal/transport"
)

// Synthesizer turns text into playable audio frames. The returned channel is
// closed when synthesis finishes; cancelling ctx tears the stream down
// without delivering queued audio.
type Synthesizer interface {
    Synthesize(ctx context.Context, text string) (<-chan transport.Frame, error)
}
