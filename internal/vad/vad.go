package vad

import (
    "log"
    "math"

    "voxal/agent/internal/transport"
)

// Kind is the detector's verdict for one frame.
type Kind int

const (
    None Kind = iota
    SpeechStart
    SpeechEnd
)

// referenceRMS maps raw PCM16 energy onto the [0,1] activation scale; the
// default 0.9 threshold corresponds to ~1200 RMS of speech energy.
const referenceRMS = 1333.0

// Config parameterizes the detector; values are fixed at construction.
type Config struct {
    // ActivationThreshold is the normalized score a frame must reach to
    // count as speech.
    ActivationThreshold float64
    // MinStartFrames consecutive speech frames open an utterance.
    MinStartFrames int
    // HangoverFrames consecutive non-speech frames close it.
    HangoverFrames int
}

// Detector is a per-session energy VAD. It is owned by the session goroutine
// and is not safe for concurrent use.
type Detector struct {
    cfg Config

    speaking  bool
    consec    int
    nonSpeech int
}

func New(cfg Config) *Detector {
    if cfg.ActivationThreshold == 0 {
        cfg.ActivationThreshold = 0.9
    }
    if cfg.MinStartFrames == 0 {
        cfg.MinStartFrames = 2
    }
    if cfg.HangoverFrames == 0 {
        cfg.HangoverFrames = 20
    }
    return &Detector{cfg: cfg}
}

// Prewarm builds a detector ahead of the first call and primes it so the
// first real frame pays no setup cost.
func Prewarm(cfg Config) *Detector {
    d := New(cfg)
    d.Process(make(transport.Frame, transport.FrameBytes))
    d.Reset()
    log.Printf("[vad] prewarmed threshold=%.2f", d.cfg.ActivationThreshold)
    return d
}

// Process consumes one frame and reports a boundary event, if any.
func (d *Detector) Process(f transport.Frame) Kind {
    score := Score(f)
    if !d.speaking {
        if score >= d.cfg.ActivationThreshold {
            d.consec++
            if d.consec >= d.cfg.MinStartFrames {
                d.speaking = true
                d.nonSpeech = 0
                metricStarts.Inc()
                return SpeechStart
            }
        } else {
            d.consec = 0
        }
        return None
    }

    if score < d.cfg.ActivationThreshold {
        d.nonSpeech++
        if d.nonSpeech >= d.cfg.HangoverFrames {
            d.speaking = false
            d.consec = 0
            d.nonSpeech = 0
            metricEnds.Inc()
            return SpeechEnd
        }
    } else {
        d.nonSpeech = 0
    }
    return None
}

// Speaking reports whether the detector currently sees an open utterance.
func (d *Detector) Speaking() bool { return d.speaking }

// Reset clears detector state between turns.
func (d *Detector) Reset() {
    d.speaking = false
    d.consec = 0
    d.nonSpeech = 0
}

// Score computes the normalized speech-energy score of a PCM16 frame.
func Score(f transport.Frame) float64 {
    if len(f) < 2 {
        return 0
    }
    var sum float64
    n := len(f) / 2
    for i := 0; i < n; i++ {
        sample := int16(uint16(f[i*2]) | uint16(f[i*2+1])<<8)
        sum += float64(sample) * float64(sample)
    }
    rms := math.Sqrt(sum / float64(n))
    score := rms / referenceRMS
    if score > 1 {
        score = 1
    }
    return score
}
