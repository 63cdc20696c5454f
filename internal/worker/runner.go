package worker

import (
    "bufio"
    "context"
    "errors"
    "io"
    "log"
    "os"
    "os/exec"
    "strings"
    "sync"
    "time"
)

// stopGrace is how long Stop waits for a clean exit before killing.
const stopGrace = 3 * time.Second

// Runner starts and stops per-call agent workers.
type Runner interface {
    Start(callID string, env map[string]string) error
    Stop(callID string) error
    IsRunning(callID string) bool
}

// ExitCallback fires when a call's worker process exits, naturally or killed.
type ExitCallback func(callID string, err error)
type LogCallback func(callID string, stream string, line string)
type StartCallback func(callID string, pid int)

// LocalRunner spawns the worker command as a child process per call and
// streams its output into the call's event log.
type LocalRunner struct {
    workerCmd string
    onExit    ExitCallback
    onLog     LogCallback
    onStart   StartCallback

    mu    sync.Mutex
    procs map[string]*proc
}

type proc struct {
    cmd    *exec.Cmd
    cancel context.CancelFunc
}

func NewLocalRunner(workerCmd string, onExit ExitCallback, onLog LogCallback, onStart StartCallback) *LocalRunner {
    return &LocalRunner{
        workerCmd: workerCmd,
        onExit:    onExit,
        onLog:     onLog,
        onStart:   onStart,
        procs:     make(map[string]*proc),
    }
}

func (r *LocalRunner) IsRunning(callID string) bool {
    r.mu.Lock()
    defer r.mu.Unlock()
    _, ok := r.procs[callID]
    return ok
}

func (r *LocalRunner) Start(callID string, env map[string]string) error {
    if strings.TrimSpace(r.workerCmd) == "" {
        return errors.New("worker command not configured")
    }

    parts := strings.Fields(r.workerCmd)
    name, args := parts[0], parts[1:]
    ctx, cancel := context.WithCancel(context.Background())
    cmd := exec.CommandContext(ctx, name, args...)

    // Reserve the slot up front so two starts cannot race
    r.mu.Lock()
    if _, exists := r.procs[callID]; exists {
        r.mu.Unlock()
        cancel()
        return errors.New("worker already running for call")
    }
    r.procs[callID] = &proc{cmd: nil, cancel: cancel}
    r.mu.Unlock()

    cleanup := func() {
        r.mu.Lock()
        delete(r.procs, callID)
        r.mu.Unlock()
        cancel()
    }

    cmd.Env = append(os.Environ(), envToList(env)...)

    stdout, err := cmd.StdoutPipe()
    if err != nil {
        cleanup()
        return err
    }
    stderr, err := cmd.StderrPipe()
    if err != nil {
        cleanup()
        return err
    }

    if err := cmd.Start(); err != nil {
        cleanup()
        return err
    }

    r.mu.Lock()
    r.procs[callID] = &proc{cmd: cmd, cancel: cancel}
    r.mu.Unlock()

    if r.onStart != nil && cmd.Process != nil {
        r.onStart(callID, cmd.Process.Pid)
    }

    go r.stream(callID, "stdout", stdout)
    go r.stream(callID, "stderr", stderr)

    go func() {
        err := cmd.Wait()
        r.mu.Lock()
        delete(r.procs, callID)
        r.mu.Unlock()
        if r.onExit != nil {
            r.onExit(callID, err)
        }
    }()

    return nil
}

func (r *LocalRunner) Stop(callID string) error {
    r.mu.Lock()
    p, ok := r.procs[callID]
    r.mu.Unlock()
    if !ok {
        return errors.New("worker not running for call")
    }
    // ask nicely via context cancel, then force kill after the grace window
    p.cancel()
    done := make(chan struct{})
    go func() {
        _ = p.cmd.Wait()
        close(done)
    }()
    select {
    case <-done:
        return nil
    case <-time.After(stopGrace):
        _ = p.cmd.Process.Kill()
        return nil
    }
}

func envToList(env map[string]string) []string {
    out := make([]string, 0, len(env))
    for k, v := range env {
        out = append(out, k+"="+v)
    }
    return out
}

func (r *LocalRunner) stream(callID, stream string, rdr io.Reader) {
    scanner := bufio.NewScanner(rdr)
    for scanner.Scan() {
        line := scanner.Text()
        log.Printf("worker[%s] %s: %s", callID, stream, line)
        if r.onLog != nil {
            r.onLog(callID, stream, line)
        }
    }
}
