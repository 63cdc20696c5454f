package api

import (
    "bytes"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "voxal/agent/internal/config"
    "voxal/agent/internal/store"
    "voxal/agent/internal/types"
    "voxal/agent/internal/worker"
)

type mockRunner struct{ started, stopped int }

func (m *mockRunner) Start(callID string, env map[string]string) error { m.started++; return nil }
func (m *mockRunner) Stop(callID string) error                         { m.stopped++; return nil }
func (m *mockRunner) IsRunning(callID string) bool                     { return false }

func testHandlers(st *store.Store) *Handlers {
    var cfg config.Config
    cfg.Room.URL = "wss://rooms.example.com"
    cfg.Room.APIKey = "key"
    cfg.Room.APISecret = "secret"
    cfg.Room.BotName = "Asistente"
    cfg.Room.TokenTTL = time.Hour
    var r worker.Runner = &mockRunner{}
    return NewHandlers(cfg, st, r)
}

func TestStartEndUnknownCall404(t *testing.T) {
    srv := httptest.NewServer(NewRouter(testHandlers(store.New())))
    defer srv.Close()

    resp, err := http.Post(srv.URL+"/calls/unknown/start", "application/json", nil)
    if err != nil {
        t.Fatalf("request: %v", err)
    }
    if resp.StatusCode != http.StatusNotFound {
        t.Fatalf("expected 404, got %d", resp.StatusCode)
    }

    resp, err = http.Post(srv.URL+"/calls/unknown/end", "application/json", nil)
    if err != nil {
        t.Fatalf("request: %v", err)
    }
    if resp.StatusCode != http.StatusNotFound {
        t.Fatalf("expected 404, got %d", resp.StatusCode)
    }
}

func TestCreateCallReturnsTokenAndRoom(t *testing.T) {
    srv := httptest.NewServer(NewRouter(testHandlers(store.New())))
    defer srv.Close()

    resp, err := http.Post(srv.URL+"/calls", "application/json", nil)
    if err != nil {
        t.Fatalf("request: %v", err)
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        t.Fatalf("expected 200, got %d", resp.StatusCode)
    }
    var body map[string]any
    if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
        t.Fatalf("decode: %v", err)
    }
    for _, k := range []string{"call_id", "room_name", "room_url", "bot_token"} {
        if s, _ := body[k].(string); s == "" {
            t.Fatalf("missing %q in response: %v", k, body)
        }
    }
}

func TestRecordTransferUpdatesCall(t *testing.T) {
    st := store.New()
    _ = st.CreateCall(&types.Call{ID: "c1"})
    srv := httptest.NewServer(NewRouter(testHandlers(st)))
    defer srv.Close()

    payload, _ := json.Marshal(map[string]any{"transferred": true, "department": "Agente"})
    resp, err := http.Post(srv.URL+"/calls/c1/transfer", "application/json", bytes.NewReader(payload))
    if err != nil {
        t.Fatalf("request: %v", err)
    }
    if resp.StatusCode != http.StatusOK {
        t.Fatalf("expected 200, got %d", resp.StatusCode)
    }
    c := st.GetCall("c1")
    if !c.Transferred || c.TransferDepartment != "Agente" {
        t.Fatalf("transfer not recorded: %+v", c)
    }
    events := st.ListEvents("c1")
    if len(events) == 0 || events[len(events)-1].Type != "transfer_recorded" {
        t.Fatalf("expected transfer_recorded event, got %+v", events)
    }
}

func TestMethodNotAllowed(t *testing.T) {
    st := store.New()
    _ = st.CreateCall(&types.Call{ID: "c1"})
    srv := httptest.NewServer(NewRouter(testHandlers(st)))
    defer srv.Close()

    resp, err := http.Get(srv.URL + "/calls/c1/start")
    if err != nil {
        t.Fatalf("request: %v", err)
    }
    if resp.StatusCode != http.StatusMethodNotAllowed {
        t.Fatalf("expected 405, got %d", resp.StatusCode)
    }
}
