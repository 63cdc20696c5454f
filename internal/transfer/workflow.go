package transfer

import (
    "context"
    "fmt"
    "log"
    "time"

    "voxal/agent/internal/session"
    "voxal/agent/internal/telephony"
)

const (
    announcementText = "En un momento será transferido al departamento de %s. Por favor, no cuelgue la llamada."
    fallbackText     = "Lo sentimos, no fue posible llevar a cabo la transferencia en estos momentos. ¿Hay algo más en lo que te pueda apoyar?"
)

// Speaker plays a scripted line to the caller. The turn pipeline satisfies it.
type Speaker interface {
    Say(ctx context.Context, text string) error
}

// Config bounds the workflow: the on-hold grace delay after the announcement,
// the per-attempt timeout, and how many retries follow a failed attempt.
type Config struct {
    GraceDelay     time.Duration
    AttemptTimeout time.Duration
    Retries        int
}

// Outcome is the single result of one workflow run. On failure the fallback
// line has already been spoken and the session keeps going.
type Outcome struct {
    Transferred bool
    Department  string
    Destination string
    Reason      string
}

// Workflow runs the call-transfer sequence: announce, hold, hand the
// participant to telephony. Once started it does not react to barge-in or
// further caller input.
type Workflow struct {
    speaker Speaker
    factory func() (telephony.Client, error)
    cfg     Config
}

func New(speaker Speaker, factory func() (telephony.Client, error), cfg Config) *Workflow {
    if cfg.GraceDelay == 0 {
        cfg.GraceDelay = 6 * time.Second
    }
    if cfg.AttemptTimeout == 0 {
        cfg.AttemptTimeout = 10 * time.Second
    }
    return &Workflow{speaker: speaker, factory: factory, cfg: cfg}
}

// Execute transfers the session's participant to destination. It always
// returns exactly one Outcome; a failed transfer is reported to the caller
// with the fallback line, never as an error to the session.
func (w *Workflow) Execute(ctx context.Context, sess *session.Session, destination, department string) Outcome {
    log.Printf("[transfer] session=%s dept=%s dest=%s", sess.ID, department, destination)
    metricStarted.Inc()

    if err := w.speaker.Say(ctx, fmt.Sprintf(announcementText, department)); err != nil {
        // keep going; the hand-off matters more than the announcement
        log.Printf("[transfer] announcement failed: %v", err)
    }

    // give the caller a moment on hold before the line switches
    time.Sleep(w.cfg.GraceDelay)

    req := telephony.TransferRequest{
        ParticipantIdentity: sess.ParticipantIdentity,
        Room:                sess.Room,
        Destination:         destination,
        Department:          department,
        PlayDialtone:        true,
    }
    if err := req.Validate(); err != nil {
        return w.fail(ctx, department, destination, err)
    }

    client, err := sess.Context.Telephony(w.factory)
    if err != nil {
        return w.fail(ctx, department, destination, err)
    }

    // Cancelling the session must not abort a hand-off already in flight;
    // attempts run against their own timeout only.
    base := context.WithoutCancel(ctx)
    var lastErr error
    for attempt := 0; attempt <= w.cfg.Retries; attempt++ {
        attemptCtx, cancel := context.WithTimeout(base, w.cfg.AttemptTimeout)
        err := client.TransferParticipant(attemptCtx, req)
        cancel()
        metricAttempts.Inc()
        if err == nil {
            sess.Context.Department = department
            metricSucceeded.Inc()
            log.Printf("[transfer] session=%s transferred attempt=%d", sess.ID, attempt+1)
            return Outcome{Transferred: true, Department: department, Destination: destination}
        }
        lastErr = err
        log.Printf("[transfer] session=%s attempt=%d failed: %v", sess.ID, attempt+1, err)
    }
    return w.fail(ctx, department, destination, lastErr)
}

func (w *Workflow) fail(ctx context.Context, department, destination string, cause error) Outcome {
    metricFailed.Inc()
    log.Printf("[transfer] giving up: %v", cause)
    if ctx.Err() == nil {
        if err := w.speaker.Say(ctx, fallbackText); err != nil {
            log.Printf("[transfer] fallback line failed: %v", err)
        }
    }
    return Outcome{Department: department, Destination: destination, Reason: cause.Error()}
}
