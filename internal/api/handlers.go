package api

import (
    "encoding/json"
    "net/http"
    "time"

    "github.com/google/uuid"

    "voxal/agent/internal/auth"
    "voxal/agent/internal/config"
    "voxal/agent/internal/store"
    "voxal/agent/internal/types"
    "voxal/agent/internal/worker"
)

type Handlers struct {
    cfg    config.Config
    store  *store.Store
    runner worker.Runner
}

func NewHandlers(cfg config.Config, st *store.Store, r worker.Runner) *Handlers {
    return &Handlers{cfg: cfg, store: st, runner: r}
}

func (h *Handlers) HandleCreateCall(w http.ResponseWriter, r *http.Request) {
    if h.cfg.Room.URL == "" || h.cfg.Room.APIKey == "" || h.cfg.Room.APISecret == "" {
        http.Error(w, "missing room configuration", http.StatusBadRequest)
        return
    }
    id := uuid.New().String()
    roomName := "call-" + id

    token, err := auth.AccessToken(h.cfg.Room.APIKey, h.cfg.Room.APISecret, roomName, h.cfg.Room.BotName, h.cfg.Room.TokenTTL)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    c := &types.Call{
        ID:        id,
        RoomName:  roomName,
        RoomURL:   h.cfg.Room.URL,
        BotToken:  token,
        Language:  h.cfg.Deepgram.Language,
        CreatedAt: time.Now().UTC(),
        Status:    "created",
    }
    _ = h.store.CreateCall(c)
    h.store.AppendEvent(id, "call_created", map[string]any{"room_name": roomName})

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusOK)
    _ = json.NewEncoder(w).Encode(map[string]any{
        "call_id":   id,
        "room_name": roomName,
        "room_url":  c.RoomURL,
        "bot_token": token,
    })
}

func (h *Handlers) HandleStartCall(w http.ResponseWriter, r *http.Request, id string) {
    c := h.store.GetCall(id)
    if c == nil {
        http.NotFound(w, r)
        return
    }
    if h.store.IsWorkerRunning(id) {
        h.store.AppendEvent(id, "worker_start_requested", map[string]any{"noop": true})
        w.Header().Set("Content-Type", "application/json")
        _ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "running": true})
        return
    }
    h.store.AppendEvent(id, "worker_start_requested", nil)

    env := map[string]string{
        "CALL_ID":             id,
        "CALL_ROOM":           c.RoomName,
        "ROOM_URL":            c.RoomURL,
        "ROOM_TOKEN":          c.BotToken,
        "ROOM_API_KEY":        h.cfg.Room.APIKey,
        "ROOM_API_SECRET":     h.cfg.Room.APISecret,
        "DEEPGRAM_API_KEY":    h.cfg.Deepgram.APIKey,
        "DEEPGRAM_LANGUAGE":   c.Language,
        "OPENAI_API_KEY":      h.cfg.OpenAI.APIKey,
        "ELEVENLABS_API_KEY":  h.cfg.Eleven.APIKey,
        "ELEVENLABS_VOICE_ID": h.cfg.Eleven.VoiceID,
    }
    if err := h.runner.Start(id, env); err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }
    h.store.SetWorkerRunning(id, true)
    h.store.AppendEvent(id, "worker_started", nil)

    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "running": true})
}

func (h *Handlers) HandleEndCall(w http.ResponseWriter, r *http.Request, id string) {
    c := h.store.GetCall(id)
    if c == nil {
        http.NotFound(w, r)
        return
    }
    if !h.runner.IsRunning(id) {
        h.store.AppendEvent(id, "worker_stop_requested", map[string]any{"noop": true})
        w.Header().Set("Content-Type", "application/json")
        _ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "running": false})
        return
    }
    h.store.AppendEvent(id, "worker_stop_requested", nil)
    _ = h.runner.Stop(id)
    h.store.SetWorkerRunning(id, false)
    h.store.AppendEvent(id, "worker_stopped", nil)

    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "running": false})
}

func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request, id string) {
    if h.store.GetCall(id) == nil {
        http.NotFound(w, r)
        return
    }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(map[string]any{
        "call_id": id,
        "events":  h.store.ListEvents(id),
    })
}

// HandleRecordTransfer lets a worker report its transfer outcome so the call
// record reflects where the caller ended up.
func (h *Handlers) HandleRecordTransfer(w http.ResponseWriter, r *http.Request, id string) {
    if h.store.GetCall(id) == nil {
        http.NotFound(w, r)
        return
    }
    var body struct {
        Transferred bool   `json:"transferred"`
        Department  string `json:"department"`
        Reason      string `json:"reason,omitempty"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }
    h.store.RecordTransfer(id, body.Department, body.Transferred)
    h.store.AppendEvent(id, "transfer_recorded", map[string]any{
        "transferred": body.Transferred,
        "department":  body.Department,
        "reason":      body.Reason,
    })
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}
