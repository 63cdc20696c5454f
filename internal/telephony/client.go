package telephony

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
)

var (
    ErrEmptyIdentity    = errors.New("telephony: participant identity is empty")
    ErrEmptyDestination = errors.New("telephony: destination is empty")
)

// TransferRequest asks the control API to move a participant to a SIP
// destination. Department is informational only.
type TransferRequest struct {
    ParticipantIdentity string `json:"participant_identity"`
    Room                string `json:"room_name"`
    Destination         string `json:"transfer_to"`
    Department          string `json:"department,omitempty"`
    PlayDialtone        bool   `json:"play_dialtone"`
}

func (r TransferRequest) Validate() error {
    if r.ParticipantIdentity == "" {
        return ErrEmptyIdentity
    }
    if r.Destination == "" {
        return ErrEmptyDestination
    }
    return nil
}

// Client is the telephony control surface consumed by the transfer workflow.
type Client interface {
    TransferParticipant(ctx context.Context, req TransferRequest) error
}

// HTTPClient talks to the telephony control API.
type HTTPClient struct {
    http  *http.Client
    base  string
    token string
}

func NewHTTPClient(base, token string) *HTTPClient {
    return &HTTPClient{
        http:  &http.Client{},
        base:  base,
        token: token,
    }
}

func (c *HTTPClient) TransferParticipant(ctx context.Context, req TransferRequest) error {
    if err := req.Validate(); err != nil {
        return err
    }
    var body bytes.Buffer
    if err := json.NewEncoder(&body).Encode(req); err != nil {
        return err
    }
    hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/sip/transfer", &body)
    if err != nil {
        return err
    }
    hreq.Header.Set("Authorization", "Bearer "+c.token)
    hreq.Header.Set("Content-Type", "application/json")
    resp, err := c.http.Do(hreq)
    if err != nil {
        return err
    }
    defer resp.Body.Close()
    if resp.StatusCode/100 != 2 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
        return fmt.Errorf("telephony TransferParticipant: %s: %s", resp.Status, string(b))
    }
    return nil
}
