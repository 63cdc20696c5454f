package pipeline

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/google/uuid"

    "voxal/agent/internal/llm"
    "voxal/agent/internal/stt"
    "voxal/agent/internal/transport"
    "voxal/agent/internal/tts"
    "voxal/agent/internal/vad"
)

// State names the turn pipeline's position in the
// recognition→reasoning→synthesis chain.
type State string

const (
    StateIdle         State = "IDLE"
    StateListening    State = "LISTENING"
    StateTranscribing State = "TRANSCRIBING"
    StateReasoning    State = "REASONING"
    StateSynthesizing State = "SYNTHESIZING"
    StateSpeaking     State = "SPEAKING"
)

var (
    // ErrInterrupted means the caller barged in while the assistant spoke;
    // the turn is abandoned and a fresh one begins.
    ErrInterrupted = errors.New("turn interrupted by caller speech")
    // ErrCallEnded means the transport closed mid-turn.
    ErrCallEnded = errors.New("call ended")
    // ErrProvider wraps a recoverable engine failure; the apology has
    // already been spoken when it is returned.
    ErrProvider = errors.New("provider failure")
)

const apologyText = "Lo siento, tuve un problema técnico. ¿Puedes repetirlo, por favor?"

// finalDrain bounds how long we wait for a pending provider final after
// silence closes a turn.
const finalDrain = 250 * time.Millisecond

// Config carries the endpointing policy: a turn closes MinSilence after the
// caller stops speaking, and is forced closed at MaxTurn regardless.
type Config struct {
    MinSilence time.Duration
    MaxTurn    time.Duration
}

// Engines groups the external collaborators one pipeline drives.
type Engines struct {
    Recognizer  stt.Recognizer
    Reasoner    llm.Reasoner
    Synthesizer tts.Synthesizer
    Detector    *vad.Detector
}

// TurnResult is the outcome of one completed turn. Exactly one of Reply and
// Tool is set for a non-empty transcript.
type TurnResult struct {
    Transcript string
    Reply      string
    Tool       *llm.ToolCall
}

// Pipeline drives one conversational exchange at a time over a single call.
// It is owned by the session goroutine.
type Pipeline struct {
    room    transport.Room
    eng     Engines
    cfg     Config
    profile llm.AgentProfile

    state   State
    floor   *Floor
    history []llm.Message
    rec     stt.Stream
}

func New(room transport.Room, eng Engines, cfg Config, profile llm.AgentProfile) *Pipeline {
    if cfg.MinSilence == 0 {
        cfg.MinSilence = 500 * time.Millisecond
    }
    if cfg.MaxTurn == 0 {
        cfg.MaxTurn = 5 * time.Second
    }
    return &Pipeline{
        room:    room,
        eng:     eng,
        cfg:     cfg,
        profile: profile,
        state:   StateIdle,
        floor:   NewFloor(),
    }
}

// Start opens the recognition stream that lives for the whole call.
func (p *Pipeline) Start(ctx context.Context) error {
    rec, err := p.eng.Recognizer.Stream(ctx)
    if err != nil {
        return fmt.Errorf("open recognition stream: %w", err)
    }
    p.rec = rec
    return nil
}

func (p *Pipeline) Stop() {
    if p.rec != nil {
        p.rec.Close()
    }
}

// State reports the pipeline's current position, for tests and diagnostics.
func (p *Pipeline) State() State { return p.state }

// Run drives one turn: listen for a caller utterance, reason over it, and
// speak the reply. It returns ErrInterrupted on barge-in, ErrProvider after
// a spoken apology, and a zero TurnResult for a no-op turn.
func (p *Pipeline) Run(ctx context.Context) (TurnResult, error) {
    transcript, err := p.listen(ctx)
    if err != nil {
        p.setState(StateIdle)
        return TurnResult{}, err
    }
    if transcript == "" {
        // Empty or unrecognizable utterance: no-op turn.
        metricNoopTurns.Inc()
        p.setState(StateListening)
        return TurnResult{}, nil
    }
    return p.respond(ctx, transcript)
}

// listen waits for a caller utterance and returns its finalized transcript.
// The turn closes MinSilence after speech ends, or at MaxTurn regardless.
func (p *Pipeline) listen(ctx context.Context) (string, error) {
    p.setState(StateListening)
    p.eng.Detector.Reset()
    p.rec.Reset()
    start := time.Now()

    maxTimer := time.NewTimer(p.cfg.MaxTurn)
    defer maxTimer.Stop()

    var silenceC <-chan time.Time
    var silenceTimer *time.Timer
    defer func() {
        if silenceTimer != nil {
            silenceTimer.Stop()
        }
    }()

    var finalText, lastInterim string
    for {
        select {
        case <-ctx.Done():
            return "", ctx.Err()
        case <-p.room.Closed():
            return "", ErrCallEnded
        case f := <-p.room.AudioIn():
            p.rec.Send(f)
            switch p.eng.Detector.Process(f) {
            case vad.SpeechStart:
                // caller resumed; cancel any pending endpoint close
                if silenceTimer != nil {
                    silenceTimer.Stop()
                    silenceC = nil
                }
            case vad.SpeechEnd:
                silenceTimer = time.NewTimer(p.cfg.MinSilence)
                silenceC = silenceTimer.C
            }
        case e, ok := <-p.rec.Events():
            if !ok {
                return "", fmt.Errorf("%w: recognition stream closed", ErrProvider)
            }
            switch e.Type {
            case stt.EventInterim:
                lastInterim = e.Text
            case stt.EventFinal:
                finalText = joinTranscript(finalText, e.Text)
            case stt.EventError:
                log.Printf("[pipeline] recognition error: %s", e.Text)
                // transient; the stream reconnects on its own
            }
        case <-silenceC:
            metricTurnCloseMS.Observe(float64(time.Since(start).Milliseconds()))
            return p.drainFinal(ctx, finalText, lastInterim), nil
        case <-maxTimer.C:
            // forced closure without silence
            metricTurnCloseMS.Observe(float64(time.Since(start).Milliseconds()))
            return p.drainFinal(ctx, finalText, lastInterim), nil
        }
    }
}

// drainFinal gives the recognizer a short window to deliver a pending final
// before falling back to the last interim text.
func (p *Pipeline) drainFinal(ctx context.Context, finalText, lastInterim string) string {
    p.setState(StateTranscribing)
    if finalText != "" {
        return finalText
    }
    drain := time.NewTimer(finalDrain)
    defer drain.Stop()
    for {
        select {
        case <-ctx.Done():
            return finalText
        case <-drain.C:
            if finalText == "" {
                finalText = lastInterim
            }
            return finalText
        case e, ok := <-p.rec.Events():
            if !ok {
                return lastInterim
            }
            switch e.Type {
            case stt.EventInterim:
                lastInterim = e.Text
            case stt.EventFinal:
                return joinTranscript(finalText, e.Text)
            }
        }
    }
}

// respond streams the reasoned reply and speaks it, sentence by sentence,
// unless the engine designates a tool invocation.
func (p *Pipeline) respond(ctx context.Context, transcript string) (TurnResult, error) {
    p.setState(StateReasoning)
    msgs := append(append([]llm.Message{}, p.history...), llm.Message{Role: "user", Content: transcript})

    events, err := p.eng.Reasoner.Complete(ctx, msgs, p.profile)
    if err != nil {
        return TurnResult{}, p.fail(ctx, "reasoning", err)
    }

    turnID := uuid.New().String()
    speakCtx, cancelSpeak := context.WithCancel(ctx)
    monitorDone := p.watchBargeIn(speakCtx, cancelSpeak)
    defer func() {
        cancelSpeak()
        <-monitorDone
    }()

    result := TurnResult{Transcript: transcript}
    spoken := ""
    for e := range events {
        switch e.Type {
        case llm.EventToolCall:
            result.Tool = e.Tool
            p.history = append(p.history, llm.Message{Role: "user", Content: transcript})
            p.setState(StateIdle)
            metricTurns.Inc()
            return result, nil
        case llm.EventError:
            return TurnResult{}, p.fail(ctx, "reasoning", errors.New(e.Text))
        case llm.EventSentence:
            if err := p.speak(speakCtx, turnID, e.Text); err != nil {
                p.floor.OnAssistantDone()
                if errors.Is(err, context.Canceled) && ctx.Err() == nil {
                    // caller interrupted; remember what was actually said
                    p.pushHistory(transcript, spoken)
                    metricBargeIns.Inc()
                    p.setState(StateListening)
                    return TurnResult{}, ErrInterrupted
                }
                return TurnResult{}, p.fail(ctx, "synthesis", err)
            }
            spoken = joinTranscript(spoken, e.Text)
        }
    }
    p.floor.OnAssistantDone()
    if spoken == "" {
        return TurnResult{}, p.fail(ctx, "reasoning", errors.New("empty response"))
    }
    result.Reply = spoken
    p.pushHistory(transcript, spoken)
    p.setState(StateIdle)
    metricTurns.Inc()
    return result, nil
}

// speak synthesizes one sentence and plays it. ctx is the per-turn token
// that barge-in cancels.
func (p *Pipeline) speak(ctx context.Context, turnID, text string) error {
    p.setState(StateSynthesizing)
    frames, err := p.eng.Synthesizer.Synthesize(ctx, text)
    if err != nil {
        return err
    }
    p.floor.OnAssistantSpeaking(turnID)
    p.setState(StateSpeaking)
    if err := p.room.Play(ctx, frames); err != nil {
        return err
    }
    return nil
}

// watchBargeIn consumes caller audio while the assistant speaks. Detected
// speech cancels the speaking context; audio keeps flowing to the recognizer
// so the interrupting utterance is not lost.
func (p *Pipeline) watchBargeIn(ctx context.Context, cancel context.CancelFunc) <-chan struct{} {
    done := make(chan struct{})
    go func() {
        defer close(done)
        for {
            select {
            case <-ctx.Done():
                return
            case f := <-p.room.AudioIn():
                p.rec.Send(f)
                if p.eng.Detector.Process(f) == vad.SpeechStart {
                    if d := p.floor.OnCallerSpeech(); d.ShouldStop {
                        log.Printf("[pipeline] barge-in turn=%s", d.TurnID)
                        cancel()
                        return
                    }
                }
            }
        }
    }()
    return done
}

// Say speaks a scripted line (greeting, apology, transfer announcement).
// It is not interruptible by design.
func (p *Pipeline) Say(ctx context.Context, text string) error {
    p.setState(StateSynthesizing)
    frames, err := p.eng.Synthesizer.Synthesize(ctx, text)
    if err != nil {
        return err
    }
    p.setState(StateSpeaking)
    err = p.room.Play(ctx, frames)
    p.setState(StateIdle)
    return err
}

// fail reports a recoverable engine failure: log, speak the apology, and
// hand the caller back to listening. Never session-fatal.
func (p *Pipeline) fail(ctx context.Context, stage string, cause error) error {
    log.Printf("[pipeline] %s failure: %v", stage, cause)
    metricProviderFailures.WithLabelValues(stage).Inc()
    if ctx.Err() == nil {
        if err := p.Say(ctx, apologyText); err != nil {
            log.Printf("[pipeline] apology playback failed: %v", err)
        }
    }
    p.setState(StateListening)
    return fmt.Errorf("%w: %s: %v", ErrProvider, stage, cause)
}

func (p *Pipeline) pushHistory(user, assistant string) {
    p.history = append(p.history, llm.Message{Role: "user", Content: user})
    if assistant != "" {
        p.history = append(p.history, llm.Message{Role: "assistant", Content: assistant})
    }
}

// History exposes the conversational history accumulated so far.
func (p *Pipeline) History() []llm.Message { return p.history }

func (p *Pipeline) setState(to State) {
    if p.state == to {
        return
    }
    metricStateTransitions.WithLabelValues(string(p.state), string(to)).Inc()
    p.state = to
}

func joinTranscript(a, b string) string {
    switch {
    case a == "":
        return b
    case b == "":
        return a
    default:
        return a + " " + b
    }
}
