package api

import (
    "net/http"
    "strings"
)

func NewRouter(h *Handlers) http.Handler {
    mux := http.NewServeMux()

    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        w.Write([]byte("ok"))
    })

    mux.HandleFunc("/calls", func(w http.ResponseWriter, r *http.Request) {
        if r.Method == http.MethodPost {
            h.HandleCreateCall(w, r)
            return
        }
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
    })

    mux.HandleFunc("/calls/", func(w http.ResponseWriter, r *http.Request) {
        // /calls/{id}/start | /end | /events | /transfer
        path := strings.TrimSuffix(r.URL.Path, "/")
        const prefix = "/calls/"
        if !strings.HasPrefix(path, prefix) {
            http.NotFound(w, r)
            return
        }
        parts := strings.Split(strings.TrimPrefix(path, prefix), "/")
        if len(parts) == 0 || parts[0] == "" {
            http.NotFound(w, r)
            return
        }
        id := parts[0]
        tail := ""
        if len(parts) > 1 {
            tail = parts[1]
        }

        switch tail {
        case "start":
            if r.Method != http.MethodPost {
                http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
                return
            }
            h.HandleStartCall(w, r, id)
        case "end":
            if r.Method != http.MethodPost {
                http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
                return
            }
            h.HandleEndCall(w, r, id)
        case "events":
            if r.Method != http.MethodGet {
                http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
                return
            }
            h.HandleListEvents(w, r, id)
        case "transfer":
            if r.Method != http.MethodPost {
                http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
                return
            }
            h.HandleRecordTransfer(w, r, id)
        default:
            http.NotFound(w, r)
        }
    })

    return mux
}
