package session

import (
    "time"

    "voxal/agent/internal/telephony"
)

// Session is the per-call state container. It is owned by the single session
// goroutine; no locking is needed.
type Session struct {
    ID                  string
    Room                string
    ParticipantIdentity string
    Language            string
    Context             ParticipantContext
}

// ParticipantContext holds the per-call fields the assistant accumulates
// while the call runs.
type ParticipantContext struct {
    StartTime  time.Time
    Language   string
    Department string

    telephony telephony.Client
}

func New(id, room, identity, language string) *Session {
    return &Session{
        ID:                  id,
        Room:                room,
        ParticipantIdentity: identity,
        Language:            language,
        Context: ParticipantContext{
            StartTime: time.Now().UTC(),
            Language:  language,
        },
    }
}

// Telephony returns the session's telephony client, building it on first use
// and caching it for the rest of the call.
func (c *ParticipantContext) Telephony(factory func() (telephony.Client, error)) (telephony.Client, error) {
    if c.telephony != nil {
        return c.telephony, nil
    }
    cl, err := factory()
    if err != nil {
        return nil, err
    }
    c.telephony = cl
    return cl, nil
}
