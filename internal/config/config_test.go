package config

import (
    "os"
    "strings"
    "testing"
    "time"
)

func TestLoadDefaults(t *testing.T) {
    // Clear relevant envs
    os.Unsetenv("PORT")
    os.Unsetenv("DEEPGRAM_LANGUAGE")
    os.Unsetenv("OPENAI_MODEL")
    os.Unsetenv("VAD_ACTIVATION_THRESHOLD")
    os.Unsetenv("ENDPOINTING_MIN_SILENCE_MS")
    os.Unsetenv("ENDPOINTING_MAX_TURN_MS")
    os.Unsetenv("TRANSFER_GRACE_DELAY_S")

    c := Load()

    if c.Server.Port != "8080" {
        t.Fatalf("expected default port 8080, got %q", c.Server.Port)
    }
    if c.Deepgram.Language != "es" {
        t.Fatalf("expected default language es, got %q", c.Deepgram.Language)
    }
    if c.OpenAI.Model != "gpt-4o-mini" {
        t.Fatalf("expected default model gpt-4o-mini, got %q", c.OpenAI.Model)
    }
    if c.OpenAI.Temperature != 0.7 {
        t.Fatalf("expected default temperature 0.7, got %v", c.OpenAI.Temperature)
    }
    if c.VAD.ActivationThreshold != 0.9 {
        t.Fatalf("expected default activation threshold 0.9, got %v", c.VAD.ActivationThreshold)
    }
    if c.Endpointing.MinSilence != 500*time.Millisecond {
        t.Fatalf("expected min silence 500ms, got %v", c.Endpointing.MinSilence)
    }
    if c.Endpointing.MaxTurn != 5*time.Second {
        t.Fatalf("expected max turn 5s, got %v", c.Endpointing.MaxTurn)
    }
    if c.Transfer.GraceDelay != 6*time.Second {
        t.Fatalf("expected grace delay 6s, got %v", c.Transfer.GraceDelay)
    }
    if len(c.Eleven.ChunkSchedule) != 4 || c.Eleven.ChunkSchedule[0] != 80 {
        t.Fatalf("unexpected chunk schedule %v", c.Eleven.ChunkSchedule)
    }
}

func TestLoadEnvOverride(t *testing.T) {
    os.Setenv("DEEPGRAM_LANGUAGE", "en-US")
    os.Setenv("ENDPOINTING_MAX_TURN_MS", "7000")
    defer os.Unsetenv("DEEPGRAM_LANGUAGE")
    defer os.Unsetenv("ENDPOINTING_MAX_TURN_MS")

    c := Load()
    if c.Deepgram.Language != "en-US" {
        t.Fatalf("expected language override, got %q", c.Deepgram.Language)
    }
    if c.Endpointing.MaxTurn != 7*time.Second {
        t.Fatalf("expected max turn override 7s, got %v", c.Endpointing.MaxTurn)
    }
}

func TestValidateReportsAllMissing(t *testing.T) {
    for _, k := range []string{"DEEPGRAM_API_KEY", "OPENAI_API_KEY", "ELEVENLABS_API_KEY", "ELEVENLABS_VOICE_ID", "ROOM_URL", "ROOM_API_KEY", "ROOM_API_SECRET"} {
        os.Unsetenv(k)
    }
    c := Load()
    err := c.Validate()
    if err == nil {
        t.Fatal("expected validation error with no credentials set")
    }
    for _, k := range []string{"DEEPGRAM_API_KEY", "OPENAI_API_KEY", "ELEVENLABS_API_KEY", "ROOM_URL"} {
        if !strings.Contains(err.Error(), k) {
            t.Errorf("error should name %s: %v", k, err)
        }
    }
}

func TestValidateOK(t *testing.T) {
    set := map[string]string{
        "DEEPGRAM_API_KEY":    "dg",
        "OPENAI_API_KEY":      "oa",
        "ELEVENLABS_API_KEY":  "el",
        "ELEVENLABS_VOICE_ID": "YKUjKbMlejgvkOZlnnvt",
        "ROOM_URL":            "wss://rooms.example.com",
        "ROOM_API_KEY":        "key",
        "ROOM_API_SECRET":     "secret",
    }
    for k, v := range set {
        os.Setenv(k, v)
        defer os.Unsetenv(k)
    }
    c := Load()
    if err := c.Validate(); err != nil {
        t.Fatalf("expected valid config, got %v", err)
    }
}
