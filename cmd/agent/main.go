package main

import (
    "bytes"
    "context"
    "encoding/json"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/google/uuid"
    "github.com/joho/godotenv"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "voxal/agent/internal/auth"
    "voxal/agent/internal/config"
    "voxal/agent/internal/health"
    "voxal/agent/internal/llm"
    "voxal/agent/internal/orchestrator"
    "voxal/agent/internal/pipeline"
    "voxal/agent/internal/routing"
    "voxal/agent/internal/session"
    "voxal/agent/internal/stt"
    "voxal/agent/internal/telephony"
    "voxal/agent/internal/transfer"
    "voxal/agent/internal/transport"
    "voxal/agent/internal/tts"
    "voxal/agent/internal/vad"
)

func main() {
    _ = godotenv.Load()

    cfg := config.Load()
    if err := cfg.Validate(); err != nil {
        log.Fatalf("agent: %v", err)
    }

    callID := os.Getenv("CALL_ID")
    roomName := os.Getenv("CALL_ROOM")
    if roomName == "" {
        roomName = "dev-" + uuid.New().String()
        log.Printf("agent: CALL_ROOM not set, using %s", roomName)
    }
    token := os.Getenv("ROOM_TOKEN")
    if token == "" {
        var err error
        token, err = auth.AccessToken(cfg.Room.APIKey, cfg.Room.APISecret, roomName, cfg.Room.BotName, cfg.Room.TokenTTL)
        if err != nil {
            log.Fatalf("agent: mint room token: %v", err)
        }
    }

    detector := vad.Prewarm(vad.Config{
        ActivationThreshold: cfg.VAD.ActivationThreshold,
        MinStartFrames:      cfg.VAD.MinStartFrames,
        HangoverFrames:      cfg.VAD.HangoverFrames,
    })

    go serveProbes(cfg)

    room := transport.NewWSRoom(cfg.Room.URL, roomName, cfg.Room.BotName, token)
    eng := pipeline.Engines{
        Recognizer: stt.NewDeepgram(stt.Config{
            APIKey:       cfg.Deepgram.APIKey,
            Model:        cfg.Deepgram.Model,
            Language:     cfg.Deepgram.Language,
            BaseURL:      cfg.Deepgram.BaseURL,
            SocketMaxAge: cfg.Deepgram.SocketMaxAge,
        }),
        Reasoner: llm.NewOpenAI(llm.Config{
            APIKey:      cfg.OpenAI.APIKey,
            Model:       cfg.OpenAI.Model,
            Temperature: cfg.OpenAI.Temperature,
            BaseURL:     cfg.OpenAI.BaseURL,
        }),
        Synthesizer: tts.NewElevenLabs(tts.Config{
            APIKey:        cfg.Eleven.APIKey,
            VoiceID:       cfg.Eleven.VoiceID,
            Model:         cfg.Eleven.Model,
            Stability:     cfg.Eleven.Stability,
            Similarity:    cfg.Eleven.Similarity,
            ChunkSchedule: cfg.Eleven.ChunkSchedule,
        }),
        Detector: detector,
    }
    profile := llm.AgentProfile{
        Instructions: cfg.Agent.Instructions,
        Tools:        []llm.ToolDef{orchestrator.TransferTool()},
    }
    pipe := pipeline.New(room, eng, pipeline.Config{
        MinSilence: cfg.Endpointing.MinSilence,
        MaxTurn:    cfg.Endpointing.MaxTurn,
    }, profile)

    routes, err := routing.LoadOrDefault(cfg.Transfer.RoutingFile)
    if err != nil {
        log.Fatalf("agent: %v", err)
    }

    factory := func() (telephony.Client, error) {
        tok, err := auth.AccessToken(cfg.Room.APIKey, cfg.Room.APISecret, roomName, cfg.Room.BotName, cfg.Room.TokenTTL)
        if err != nil {
            return nil, err
        }
        return telephony.NewHTTPClient(cfg.Transfer.ControlURL, tok), nil
    }
    wf := transfer.New(pipe, factory, transfer.Config{
        GraceDelay:     cfg.Transfer.GraceDelay,
        AttemptTimeout: cfg.Transfer.AttemptTimeout,
        Retries:        cfg.Transfer.Retries,
    })

    o := orchestrator.New(room, pipe, wf, routes, orchestrator.Config{
        RoomName:    roomName,
        Language:    cfg.Deepgram.Language,
        Greeting:    cfg.Agent.Greeting,
        DefaultDept: cfg.Transfer.DefaultDept,
    })
    if callID != "" {
        o.OnTransfer = func(sess *session.Session, out transfer.Outcome) {
            reportTransfer(cfg.Transfer.ControlURL, callID, out)
        }
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if err := o.Run(ctx); err != nil && ctx.Err() == nil {
        log.Fatalf("agent: %v", err)
    }
    log.Printf("agent: done")
}

func serveProbes(cfg config.Config) {
    mux := http.NewServeMux()
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.Write([]byte("ok\n"))
    })
    mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
        ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
        defer cancel()
        status := health.CheckAll(ctx, cfg)
        if !status.OK {
            w.WriteHeader(http.StatusServiceUnavailable)
        }
        w.Write([]byte(status.String()))
    })
    mux.Handle("/metrics", promhttp.Handler())
    addr := ":" + cfg.Server.ProbePort
    log.Printf("agent probes/metrics on %s", addr)
    _ = http.ListenAndServe(addr, mux)
}

func reportTransfer(controlURL, callID string, out transfer.Outcome) {
    payload, _ := json.Marshal(map[string]any{
        "transferred": out.Transferred,
        "department":  out.Department,
        "reason":      out.Reason,
    })
    resp, err := http.Post(controlURL+"/calls/"+callID+"/transfer", "application/json", bytes.NewReader(payload))
    if err != nil {
        log.Printf("agent: report transfer: %v", err)
        return
    }
    resp.Body.Close()
}
