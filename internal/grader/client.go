package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// The grader returns a human-readable status line. Its contract is opaque:
// acceptance is detected by the same substring markers the scoreboard always
// used, everything else is a rejection.
const (
	acceptedMarker         = "✅"
	alreadySubmittedMarker = "Already submitted"

	// TransportErrorMessage is surfaced when the grader cannot be reached.
	TransportErrorMessage = "⚠️ Error submitting flag!"
)

const defaultTimeout = 10 * time.Second

// maxResponseBytes bounds how much of a grader reply is read.
const maxResponseBytes = 4 << 10

// Accepted reports whether a grader message counts as a successful submission.
func Accepted(message string) bool {
	return strings.Contains(message, acceptedMarker) ||
		strings.Contains(message, alreadySubmittedMarker)
}

// Config describes how to reach the remote flag validator.
type Config struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the remote submit_flag_v2 procedure. Flag validation and
// scoring live entirely on the remote side; this client only relays the
// submission and returns the status message verbatim.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient validates the configuration and builds a grader client.
func NewClient(cfg Config) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("grader: url is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{url: url, httpClient: httpClient}, nil
}

type submitRequest struct {
	PlayerID  string `json:"p_player_id"`
	MachineID string `json:"p_machine_id"`
	Flag      string `json:"p_flag"`
}

// SubmitFlag relays one submission attempt. Exactly one request is made per
// call; there is no retry. The returned string is the grader's message.
func (c *Client) SubmitFlag(ctx context.Context, playerID, machineID, flag string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(submitRequest{
		PlayerID:  playerID,
		MachineID: machineID,
		Flag:      strings.TrimSpace(flag),
	})
	if err != nil {
		return "", fmt.Errorf("grader: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("grader: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("grader: call submit_flag_v2: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("grader: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("grader: unexpected status %d", resp.StatusCode)
	}

	return decodeMessage(body), nil
}

// decodeMessage unwraps a JSON-encoded string reply, falling back to the raw
// body for plain-text graders.
func decodeMessage(body []byte) string {
	var message string
	if err := json.Unmarshal(body, &message); err == nil {
		return strings.TrimSpace(message)
	}
	return strings.TrimSpace(string(body))
}
