package main

import (
    "context"
    "errors"
    "log"
    "net/http"
    "os"
    "os/exec"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "voxal/agent/internal/api"
    "voxal/agent/internal/config"
    "voxal/agent/internal/health"
    "voxal/agent/internal/store"
    "voxal/agent/internal/worker"
)

func main() {
    _ = godotenv.Load()

    cfg := config.Load()

    st := store.New()

    runner := worker.NewLocalRunner(cfg.Agent.WorkerCmd, func(callID string, err error) {
        st.SetWorkerRunning(callID, false)
        st.SetWorkerExit(callID, exitCodeFromErr(err), time.Now().UTC())
        st.AppendEvent(callID, "worker_exit", map[string]any{
            "error": errString(err),
        })
    }, func(callID, stream, line string) {
        st.AppendEvent(callID, "worker_log", map[string]any{"stream": stream, "line": line})
    }, func(callID string, pid int) {
        st.SetWorkerPID(callID, pid)
    })

    h := api.NewHandlers(cfg, st, runner)
    mux := http.NewServeMux()
    mux.Handle("/", api.NewRouter(h))
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

    addr := ":" + cfg.Server.Port
    srv := &http.Server{
        Addr:              addr,
        Handler:           logMiddleware(mux),
        ReadHeaderTimeout: 5 * time.Second,
    }

    sigc := make(chan os.Signal, 1)
    signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
    go func() {
        <-sigc
        log.Printf("shutdown signal received; stopping server...")
        // Stop running workers before draining HTTP
        for _, id := range st.ListCallIDs() {
            if runner.IsRunning(id) {
                _ = runner.Stop(id)
            }
        }
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = srv.Shutdown(ctx)
    }()

    log.Printf("server starting on %s", addr)
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.Println("server error:", err)
        os.Exit(1)
    }
}

func errString(err error) string {
    if err == nil {
        return ""
    }
    return err.Error()
}

func exitCodeFromErr(err error) int {
    if err == nil {
        return 0
    }
    var ee *exec.ExitError
    if errors.As(err, &ee) {
        return ee.ExitCode()
    }
    return 1
}

func logMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        next.ServeHTTP(w, r)
        log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
    })
}
