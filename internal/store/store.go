package store

import (
    "errors"
    "sync"
    "time"

    "voxal/agent/internal/types"
)

var ErrCallExists = errors.New("call already exists")

// maxEvents caps the per-call event log; older entries are dropped and the
// truncation is recorded as an event of its own.
const maxEvents = 200

// Store is the in-memory control-plane state: call records, their event
// logs, and worker liveness.
type Store struct {
    mu            sync.RWMutex
    calls         map[string]*types.Call
    events        map[string][]types.Event
    workerRunning map[string]bool
}

func New() *Store {
    return &Store{
        calls:         make(map[string]*types.Call),
        events:        make(map[string][]types.Event),
        workerRunning: make(map[string]bool),
    }
}

func (s *Store) CreateCall(c *types.Call) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.calls[c.ID]; ok {
        return ErrCallExists
    }
    s.calls[c.ID] = c
    s.events[c.ID] = []types.Event{}
    return nil
}

func (s *Store) GetCall(id string) *types.Call {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return s.calls[id]
}

func (s *Store) AppendEvent(callID, typ string, payload map[string]any) types.Event {
    evt := types.Event{Type: typ, Ts: time.Now().UTC(), Payload: payload}
    s.mu.Lock()
    defer s.mu.Unlock()
    s.events[callID] = append(s.events[callID], evt)
    if l := len(s.events[callID]); l > maxEvents {
        keep := maxEvents - 1
        dropped := l - keep
        s.events[callID] = append([]types.Event(nil), s.events[callID][l-keep:]...)
        warn := types.Event{Type: "events_truncated", Ts: time.Now().UTC(), Payload: map[string]any{"call_id": callID, "dropped": dropped, "kept": keep}}
        s.events[callID] = append(s.events[callID], warn)
    }
    return evt
}

func (s *Store) ListEvents(callID string) []types.Event {
    s.mu.RLock()
    defer s.mu.RUnlock()
    src := s.events[callID]
    out := make([]types.Event, len(src))
    copy(out, src)
    return out
}

func (s *Store) SetWorkerRunning(callID string, running bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.workerRunning[callID] = running
}

func (s *Store) IsWorkerRunning(callID string) bool {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return s.workerRunning[callID]
}

func (s *Store) SetWorkerPID(callID string, pid int) {
    s.mu.Lock()
    if c, ok := s.calls[callID]; ok {
        c.WorkerPID = pid
    }
    s.mu.Unlock()
}

func (s *Store) SetWorkerExit(callID string, code int, at time.Time) {
    s.mu.Lock()
    if c, ok := s.calls[callID]; ok {
        c.WorkerLastExitCode = code
        c.WorkerLastExitAt = &at
    }
    s.mu.Unlock()
}

// RecordTransfer marks the call's transfer outcome on its record.
func (s *Store) RecordTransfer(callID, department string, ok bool) {
    s.mu.Lock()
    if c, ok2 := s.calls[callID]; ok2 {
        c.Transferred = ok
        c.TransferDepartment = department
    }
    s.mu.Unlock()
}

func (s *Store) ListCallIDs() []string {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]string, 0, len(s.calls))
    for id := range s.calls {
        out = append(out, id)
    }
    return out
}
