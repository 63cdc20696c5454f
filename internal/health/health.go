package health

import (
    "context"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "voxal/agent/internal/config"
)

type CheckResult struct {
    Name    string        `json:"name"`
    OK      bool          `json:"ok"`
    Latency time.Duration `json:"latency_ms"`
    Error   string        `json:"error,omitempty"`
}

type HealthStatus struct {
    OK        bool          `json:"ok"`
    Checks    []CheckResult `json:"checks"`
    CheckedAt time.Time     `json:"checked_at"`
}

func (h HealthStatus) String() string {
    status := "OK"
    if !h.OK {
        status = "FAIL"
    }
    s := fmt.Sprintf("Health: %s\n", status)
    for _, c := range h.Checks {
        mark := "✓"
        if !c.OK {
            mark = "✗"
        }
        s += fmt.Sprintf("  %s %s (%dms)", mark, c.Name, c.Latency.Milliseconds())
        if c.Error != "" {
            s += fmt.Sprintf(" - %s", c.Error)
        }
        s += "\n"
    }
    return s
}

// CheckAll probes every provider the worker depends on.
func CheckAll(ctx context.Context, cfg config.Config) HealthStatus {
    checks := []CheckResult{
        checkDeepgram(ctx, cfg),
        checkOpenAI(ctx, cfg),
        checkElevenLabs(ctx, cfg),
        checkControlAPI(ctx, cfg),
    }

    allOK := true
    for _, c := range checks {
        if !c.OK {
            allOK = false
        }
    }

    return HealthStatus{
        OK:        allOK,
        Checks:    checks,
        CheckedAt: time.Now().UTC(),
    }
}

func checkDeepgram(ctx context.Context, cfg config.Config) CheckResult {
    start := time.Now()
    result := CheckResult{Name: "deepgram"}

    if cfg.Deepgram.APIKey == "" {
        result.Error = "DEEPGRAM_API_KEY not set"
        result.Latency = time.Since(start)
        return result
    }

    req, err := http.NewRequestWithContext(ctx, "GET", "https://api.deepgram.com/v1/projects", nil)
    if err != nil {
        result.Error = fmt.Sprintf("request build failed: %v", err)
        result.Latency = time.Since(start)
        return result
    }
    req.Header.Set("Authorization", "Token "+cfg.Deepgram.APIKey)

    resp, err := http.DefaultClient.Do(req)
    if err != nil {
        result.Error = fmt.Sprintf("request failed: %v", err)
        result.Latency = time.Since(start)
        return result
    }
    defer resp.Body.Close()

    result.Latency = time.Since(start)

    if resp.StatusCode == 401 {
        result.Error = "invalid API key (401)"
        return result
    }
    if resp.StatusCode != 200 {
        body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
        result.Error = fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body))
        return result
    }

    result.OK = true
    return result
}

func checkOpenAI(ctx context.Context, cfg config.Config) CheckResult {
    start := time.Now()
    result := CheckResult{Name: "openai"}

    if cfg.OpenAI.APIKey == "" {
        result.Error = "OPENAI_API_KEY not set"
        result.Latency = time.Since(start)
        return result
    }

    base := cfg.OpenAI.BaseURL
    if base == "" {
        base = "https://api.openai.com/v1"
    }
    req, err := http.NewRequestWithContext(ctx, "GET", base+"/models/"+cfg.OpenAI.Model, nil)
    if err != nil {
        result.Error = fmt.Sprintf("request build failed: %v", err)
        result.Latency = time.Since(start)
        return result
    }
    req.Header.Set("Authorization", "Bearer "+cfg.OpenAI.APIKey)

    resp, err := http.DefaultClient.Do(req)
    if err != nil {
        result.Error = fmt.Sprintf("request failed: %v", err)
        result.Latency = time.Since(start)
        return result
    }
    defer resp.Body.Close()

    result.Latency = time.Since(start)

    if resp.StatusCode == 401 {
        result.Error = "invalid API key (401)"
        return result
    }
    if resp.StatusCode == 404 {
        result.Error = fmt.Sprintf("model %q not found", cfg.OpenAI.Model)
        return result
    }
    if resp.StatusCode != 200 {
        body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
        result.Error = fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body))
        return result
    }

    result.OK = true
    return result
}

func checkControlAPI(ctx context.Context, cfg config.Config) CheckResult {
    start := time.Now()
    result := CheckResult{Name: "control_api"}

    if cfg.Transfer.ControlURL == "" {
        result.Error = "TRANSFER_CONTROL_URL not set"
        result.Latency = time.Since(start)
        return result
    }

    req, err := http.NewRequestWithContext(ctx, "GET", cfg.Transfer.ControlURL+"/healthz", nil)
    if err != nil {
        result.Error = fmt.Sprintf("request build failed: %v", err)
        result.Latency = time.Since(start)
        return result
    }

    resp, err := http.DefaultClient.Do(req)
    if err != nil {
        result.Error = fmt.Sprintf("request failed: %v", err)
        result.Latency = time.Since(start)
        return result
    }
    defer resp.Body.Close()

    result.Latency = time.Since(start)

    if resp.StatusCode != 200 {
        result.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
        return result
    }

    result.OK = true
    return result
}

func checkElevenLabs(ctx context.Context, cfg config.Config) CheckResult {
    start := time.Now()
    result := CheckResult{Name: "elevenlabs"}

    if cfg.Eleven.APIKey == "" {
        result.Error = "ELEVENLABS_API_KEY not set"
        result.Latency = time.Since(start)
        return result
    }
    if cfg.Eleven.VoiceID == "" {
        result.Error = "ELEVENLABS_VOICE_ID not set"
        result.Latency = time.Since(start)
        return result
    }

    // A one-character synthesis works with TTS-only keys that lack
    // user_read permission.
    url := fmt.Sprintf("https://api.elevenlabs.io/v1/text-to-speech/%s/stream", cfg.Eleven.VoiceID)
    body := `{"text":"."}`
    req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(body))
    if err != nil {
        result.Error = fmt.Sprintf("request build failed: %v", err)
        result.Latency = time.Since(start)
        return result
    }
    req.Header.Set("xi-api-key", cfg.Eleven.APIKey)
    req.Header.Set("Content-Type", "application/json")

    resp, err := http.DefaultClient.Do(req)
    if err != nil {
        result.Error = fmt.Sprintf("request failed: %v", err)
        result.Latency = time.Since(start)
        return result
    }
    defer resp.Body.Close()

    result.Latency = time.Since(start)

    if resp.StatusCode == 401 {
        bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
        result.Error = fmt.Sprintf("invalid API key (401): %s", string(bodyBytes))
        return result
    }
    if resp.StatusCode == 404 {
        result.Error = fmt.Sprintf("voice ID %q not found", cfg.Eleven.VoiceID)
        return result
    }
    if resp.StatusCode != 200 {
        bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
        result.Error = fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
        return result
    }

    io.Copy(io.Discard, resp.Body)

    result.OK = true
    return result
}
