package config

import (
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/spf13/viper"
)

type Config struct {
    Server struct {
        Port      string
        ProbePort string
        LogLevel  string
    }
    Room struct {
        URL       string
        APIKey    string
        APISecret string
        BotName   string
        TokenTTL  time.Duration
    }
    Deepgram struct {
        APIKey       string
        Model        string
        Language     string
        BaseURL      string
        SocketMaxAge time.Duration
    }
    OpenAI struct {
        APIKey      string
        Model       string
        Temperature float64
        BaseURL     string
    }
    Eleven struct {
        APIKey     string
        VoiceID    string
        Model      string
        Stability  float64
        Similarity float64
        // Chunk length schedule forwarded to the streaming synth endpoint.
        ChunkSchedule []int
    }
    VAD struct {
        ActivationThreshold float64
        MinStartFrames      int
        HangoverFrames      int
    }
    Endpointing struct {
        MinSilence time.Duration
        MaxTurn    time.Duration
    }
    Transfer struct {
        GraceDelay     time.Duration
        AttemptTimeout time.Duration
        Retries        int
        RoutingFile    string
        DefaultDept    string
        // Telephony control API serving the SIP transfer endpoint.
        ControlURL string
    }
    Agent struct {
        Instructions string
        Greeting     string
        WorkerCmd    string
    }
}

func Load() Config {
    v := viper.New()
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    v.AutomaticEnv()

    // Defaults
    v.SetDefault("server.port", 8080)
    v.SetDefault("server.probe_port", 8082)
    v.SetDefault("server.log_level", "info")

    v.SetDefault("room.bot_name", "Asistente")
    v.SetDefault("room.token_ttl_min", 120)

    v.SetDefault("deepgram.model", "nova-2")
    v.SetDefault("deepgram.language", "es")
    v.SetDefault("deepgram.socket_max_age_s", 900)

    v.SetDefault("openai.model", "gpt-4o-mini")
    v.SetDefault("openai.temperature", 0.7)
    v.SetDefault("openai.base_url", "https://api.openai.com/v1")

    v.SetDefault("elevenlabs.model", "eleven_turbo_v2_5")
    v.SetDefault("elevenlabs.stability", 1.0)
    v.SetDefault("elevenlabs.similarity", 1.0)

    v.SetDefault("vad.activation_threshold", 0.9)
    v.SetDefault("vad.min_start_frames", 2)
    v.SetDefault("vad.hangover_frames", 20)

    v.SetDefault("endpointing.min_silence_ms", 500)
    v.SetDefault("endpointing.max_turn_ms", 5000)

    v.SetDefault("transfer.grace_delay_s", 6)
    v.SetDefault("transfer.attempt_timeout_s", 10)
    v.SetDefault("transfer.retries", 1)
    v.SetDefault("transfer.default_dept", "Agente")
    v.SetDefault("transfer.control_url", "http://127.0.0.1:8080")

    v.SetDefault("agent.instructions", "Eres un asistente amable y respondes preguntas en español de forma clara y concisa. Proporcionas información útil y mantienes un tono cordial en todo momento.")
    v.SetDefault("agent.greeting", "Hola, gracias por llamar. ¿En qué puedo ayudarte?")

    // Map envs
    v.BindEnv("server.port", "PORT")
    v.BindEnv("server.probe_port", "PROBE_PORT")
    v.BindEnv("server.log_level", "LOG_LEVEL")

    v.BindEnv("room.url", "ROOM_URL")
    v.BindEnv("room.api_key", "ROOM_API_KEY")
    v.BindEnv("room.api_secret", "ROOM_API_SECRET")
    v.BindEnv("room.bot_name", "ROOM_BOT_NAME")
    v.BindEnv("room.token_ttl_min", "ROOM_TOKEN_TTL_MIN")

    v.BindEnv("deepgram.api_key", "DEEPGRAM_API_KEY")
    v.BindEnv("deepgram.model", "DEEPGRAM_MODEL")
    v.BindEnv("deepgram.language", "DEEPGRAM_LANGUAGE")
    v.BindEnv("deepgram.base_url", "DEEPGRAM_WS_URL")
    v.BindEnv("deepgram.socket_max_age_s", "DEEPGRAM_SOCKET_MAX_AGE_S")

    v.BindEnv("openai.api_key", "OPENAI_API_KEY")
    v.BindEnv("openai.model", "OPENAI_MODEL")
    v.BindEnv("openai.temperature", "OPENAI_TEMPERATURE")
    v.BindEnv("openai.base_url", "OPENAI_BASE_URL")

    v.BindEnv("elevenlabs.api_key", "ELEVENLABS_API_KEY")
    v.BindEnv("elevenlabs.voice_id", "ELEVENLABS_VOICE_ID")
    v.BindEnv("elevenlabs.model", "ELEVENLABS_MODEL")
    v.BindEnv("elevenlabs.stability", "ELEVENLABS_STABILITY")
    v.BindEnv("elevenlabs.similarity", "ELEVENLABS_SIMILARITY")

    v.BindEnv("vad.activation_threshold", "VAD_ACTIVATION_THRESHOLD")
    v.BindEnv("vad.min_start_frames", "VAD_MIN_START_FRAMES")
    v.BindEnv("vad.hangover_frames", "VAD_HANGOVER_FRAMES")

    v.BindEnv("endpointing.min_silence_ms", "ENDPOINTING_MIN_SILENCE_MS")
    v.BindEnv("endpointing.max_turn_ms", "ENDPOINTING_MAX_TURN_MS")

    v.BindEnv("transfer.grace_delay_s", "TRANSFER_GRACE_DELAY_S")
    v.BindEnv("transfer.attempt_timeout_s", "TRANSFER_ATTEMPT_TIMEOUT_S")
    v.BindEnv("transfer.retries", "TRANSFER_RETRIES")
    v.BindEnv("transfer.routing_file", "TRANSFER_ROUTING_FILE")
    v.BindEnv("transfer.default_dept", "TRANSFER_DEFAULT_DEPT")
    v.BindEnv("transfer.control_url", "TRANSFER_CONTROL_URL")

    v.BindEnv("agent.instructions", "AGENT_INSTRUCTIONS")
    v.BindEnv("agent.greeting", "AGENT_GREETING")
    v.BindEnv("agent.worker_cmd", "AGENT_WORKER_CMD")

    var c Config
    c.Server.Port = toString(v.Get("server.port"))
    c.Server.ProbePort = toString(v.Get("server.probe_port"))
    c.Server.LogLevel = v.GetString("server.log_level")

    c.Room.URL = v.GetString("room.url")
    c.Room.APIKey = v.GetString("room.api_key")
    c.Room.APISecret = v.GetString("room.api_secret")
    c.Room.BotName = v.GetString("room.bot_name")
    c.Room.TokenTTL = time.Duration(v.GetInt("room.token_ttl_min")) * time.Minute

    c.Deepgram.APIKey = v.GetString("deepgram.api_key")
    c.Deepgram.Model = v.GetString("deepgram.model")
    c.Deepgram.Language = v.GetString("deepgram.language")
    c.Deepgram.BaseURL = v.GetString("deepgram.base_url")
    c.Deepgram.SocketMaxAge = time.Duration(v.GetInt("deepgram.socket_max_age_s")) * time.Second

    c.OpenAI.APIKey = v.GetString("openai.api_key")
    c.OpenAI.Model = v.GetString("openai.model")
    c.OpenAI.Temperature = v.GetFloat64("openai.temperature")
    c.OpenAI.BaseURL = v.GetString("openai.base_url")

    c.Eleven.APIKey = v.GetString("elevenlabs.api_key")
    c.Eleven.VoiceID = v.GetString("elevenlabs.voice_id")
    c.Eleven.Model = v.GetString("elevenlabs.model")
    c.Eleven.Stability = v.GetFloat64("elevenlabs.stability")
    c.Eleven.Similarity = v.GetFloat64("elevenlabs.similarity")
    c.Eleven.ChunkSchedule = []int{80, 120, 200, 260}

    c.VAD.ActivationThreshold = v.GetFloat64("vad.activation_threshold")
    c.VAD.MinStartFrames = v.GetInt("vad.min_start_frames")
    c.VAD.HangoverFrames = v.GetInt("vad.hangover_frames")

    c.Endpointing.MinSilence = time.Duration(v.GetInt("endpointing.min_silence_ms")) * time.Millisecond
    c.Endpointing.MaxTurn = time.Duration(v.GetInt("endpointing.max_turn_ms")) * time.Millisecond

    c.Transfer.GraceDelay = time.Duration(v.GetInt("transfer.grace_delay_s")) * time.Second
    c.Transfer.AttemptTimeout = time.Duration(v.GetInt("transfer.attempt_timeout_s")) * time.Second
    c.Transfer.Retries = v.GetInt("transfer.retries")
    c.Transfer.RoutingFile = v.GetString("transfer.routing_file")
    c.Transfer.DefaultDept = v.GetString("transfer.default_dept")
    c.Transfer.ControlURL = v.GetString("transfer.control_url")

    c.Agent.Instructions = v.GetString("agent.instructions")
    c.Agent.Greeting = v.GetString("agent.greeting")
    c.Agent.WorkerCmd = v.GetString("agent.worker_cmd")

    log.Printf("config loaded: port=%s lang=%s llm=%s voice=%s", c.Server.Port, c.Deepgram.Language, c.OpenAI.Model, c.Eleven.VoiceID)
    return c
}

// Validate checks every credential the worker needs before any call logic
// runs. All missing keys are reported at once.
func (c Config) Validate() error {
    var missing []string
    if c.Deepgram.APIKey == "" {
        missing = append(missing, "DEEPGRAM_API_KEY")
    }
    if c.OpenAI.APIKey == "" {
        missing = append(missing, "OPENAI_API_KEY")
    }
    if c.Eleven.APIKey == "" {
        missing = append(missing, "ELEVENLABS_API_KEY")
    }
    if c.Eleven.VoiceID == "" {
        missing = append(missing, "ELEVENLABS_VOICE_ID")
    }
    if c.Room.URL == "" {
        missing = append(missing, "ROOM_URL")
    }
    if c.Room.APIKey == "" {
        missing = append(missing, "ROOM_API_KEY")
    }
    if c.Room.APISecret == "" {
        missing = append(missing, "ROOM_API_SECRET")
    }
    if len(missing) > 0 {
        return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
    }
    return nil
}

func toString(v any) string { return fmt.Sprint(v) }
