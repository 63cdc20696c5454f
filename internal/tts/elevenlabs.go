package tts

import (
    "context"
    "encoding/base64"
    "encoding/json"
    "fmt"
    "log"
    "net/url"
    "time"

    "nhooyr.io/websocket"

    "voxal/agent/internal/transport"
)

// Config carries the voice parameters supplied at session construction.
type Config struct {
    APIKey     string
    VoiceID    string
    Model      string
    Stability  float64
    Similarity float64
    // ChunkSchedule is forwarded as the provider's chunk_length_schedule.
    ChunkSchedule []int
    BaseURL       string
}

// ElevenLabs implements Synthesizer over the streaming text-to-speech
// websocket endpoint.
type ElevenLabs struct {
    cfg Config
}

func NewElevenLabs(cfg Config) *ElevenLabs {
    if cfg.Model == "" {
        cfg.Model = "eleven_turbo_v2_5"
    }
    if cfg.BaseURL == "" {
        cfg.BaseURL = "wss://api.elevenlabs.io"
    }
    if len(cfg.ChunkSchedule) == 0 {
        cfg.ChunkSchedule = []int{80, 120, 200, 260}
    }
    return &ElevenLabs{cfg: cfg}
}

type synthMessage struct {
    Text                 string          `json:"text"`
    TryTriggerGeneration bool            `json:"try_trigger_generation,omitempty"`
    VoiceSettings        *voiceSettings  `json:"voice_settings,omitempty"`
    GenerationConfig     *generationConf `json:"generation_config,omitempty"`
    APIKey               string          `json:"xi_api_key,omitempty"`
}

type voiceSettings struct {
    Stability       float64 `json:"stability"`
    SimilarityBoost float64 `json:"similarity_boost"`
}

type generationConf struct {
    ChunkLengthSchedule []int `json:"chunk_length_schedule"`
}

type synthChunk struct {
    Audio   string `json:"audio"`
    IsFinal bool   `json:"isFinal"`
    Error   string `json:"error"`
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (<-chan transport.Frame, error) {
    q := url.Values{}
    q.Set("model_id", e.cfg.Model)
    q.Set("output_format", "pcm_16000")
    wsURL := fmt.Sprintf("%s/v1/text-to-speech/%s/stream-input?%s", e.cfg.BaseURL, e.cfg.VoiceID, q.Encode())

    dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    ws, _, err := websocket.Dial(dctx, wsURL, nil)
    if err != nil {
        metricSynthFailures.Inc()
        return nil, fmt.Errorf("tts connect: %w", err)
    }
    ws.SetReadLimit(1 << 22)

    // Init, payload, then the empty-text terminator.
    msgs := []synthMessage{
        {
            Text:             " ",
            VoiceSettings:    &voiceSettings{Stability: e.cfg.Stability, SimilarityBoost: e.cfg.Similarity},
            GenerationConfig: &generationConf{ChunkLengthSchedule: e.cfg.ChunkSchedule},
            APIKey:           e.cfg.APIKey,
        },
        {Text: text + " ", TryTriggerGeneration: true},
        {Text: ""},
    }
    for _, m := range msgs {
        b, _ := json.Marshal(m)
        wctx, wcancel := context.WithTimeout(ctx, 5*time.Second)
        err := ws.Write(wctx, websocket.MessageText, b)
        wcancel()
        if err != nil {
            ws.Close(websocket.StatusNormalClosure, "bye")
            metricSynthFailures.Inc()
            return nil, fmt.Errorf("tts send: %w", err)
        }
    }

    out := make(chan transport.Frame, 8)
    go func() {
        defer close(out)
        defer ws.Close(websocket.StatusNormalClosure, "bye")
        start := time.Now()
        first := true
        var rem []byte
        for {
            if ctx.Err() != nil {
                return
            }
            _, data, err := ws.Read(ctx)
            if err != nil {
                if ctx.Err() == nil {
                    log.Printf("[tts] stream read: %v", err)
                }
                return
            }
            var chunk synthChunk
            if err := json.Unmarshal(data, &chunk); err != nil {
                continue
            }
            if chunk.Error != "" {
                log.Printf("[tts] provider error: %s", chunk.Error)
                metricSynthFailures.Inc()
                return
            }
            if chunk.Audio != "" {
                pcm, err := base64.StdEncoding.DecodeString(chunk.Audio)
                if err != nil {
                    continue
                }
                if first {
                    metricFirstAudioMS.Observe(float64(time.Since(start).Milliseconds()))
                    first = false
                }
                var frames []transport.Frame
                frames, rem = pcmFrames(append(rem, pcm...))
                for _, f := range frames {
                    if !deliver(ctx, out, f) {
                        return
                    }
                }
            }
            if chunk.IsFinal {
                // flush a trailing partial frame padded with silence
                if len(rem) > 0 {
                    f := make(transport.Frame, transport.FrameBytes)
                    copy(f, rem)
                    deliver(ctx, out, f)
                }
                return
            }
        }
    }()
    return out, nil
}

// pcmFrames splits a PCM16 buffer into full 20ms frames, returning the
// remainder for the next chunk.
func pcmFrames(pcm []byte) ([]transport.Frame, []byte) {
    var frames []transport.Frame
    for len(pcm) >= transport.FrameBytes {
        frames = append(frames, transport.Frame(pcm[:transport.FrameBytes]))
        pcm = pcm[transport.FrameBytes:]
    }
    return frames, pcm
}

// deliver paces output at one frame per FrameDuration, honoring cancellation.
func deliver(ctx context.Context, out chan<- transport.Frame, f transport.Frame) bool {
    select {
    case out <- f:
    case <-ctx.Done():
        return false
    }
    t := time.NewTimer(transport.FrameDuration)
    defer t.Stop()
    select {
    case <-t.C:
        return true
    case <-ctx.Done():
        return false
    }
}
