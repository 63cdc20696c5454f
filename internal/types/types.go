package types

import "time"

// Event is one timestamped entry in a call's event log.
type Event struct {
    Type    string         `json:"type"`
    Ts      time.Time      `json:"timestamp"`
    Payload map[string]any `json:"payload,omitempty"`
}

// Call is the control-plane record of one phone call handled by a worker.
type Call struct {
    ID        string    `json:"call_id"`
    RoomName  string    `json:"room_name"`
    RoomURL   string    `json:"room_url"`
    BotToken  string    `json:"bot_token"`
    Language  string    `json:"language"`
    CreatedAt time.Time `json:"created_at"`
    Status    string    `json:"status"`

    WorkerPID          int        `json:"worker_pid,omitempty"`
    WorkerLastExitCode int        `json:"worker_last_exit_code,omitempty"`
    WorkerLastExitAt   *time.Time `json:"worker_last_exit_at,omitempty"`

    Transferred        bool   `json:"transferred,omitempty"`
    TransferDepartment string `json:"transfer_department,omitempty"`
}
