package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StreamGrant is the backend's answer to a session admission request.
type StreamGrant struct {
	SessionID string `json:"sessionId"`
	StreamURL string `json:"streamUrl"`
}

// APIError is a failed backend call with its HTTP status and the structured
// message the backend attached, when it attached one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// SessionAPI is the session-issuing collaborator. The gateway consumes it,
// it never implements it.
type SessionAPI interface {
	// GetStreamSession allocates or returns the streaming session for a
	// camera. Failures carry an HTTP-style status via *APIError.
	GetStreamSession(ctx context.Context, cameraID int) (*StreamGrant, error)

	// StopStreamSession tears down a session. Best effort: callers must not
	// let a failure here block local cleanup.
	StopStreamSession(ctx context.Context, sessionID string) error
}

// Client talks to the recognition backend's stream session endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetStreamSession(ctx context.Context, cameraID int) (*StreamGrant, error) {
	url := fmt.Sprintf("%s/api/cameras/%d/stream-session", c.baseURL, cameraID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiErrorFrom(resp)
	}

	var grant StreamGrant
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	return &grant, nil
}

func (c *Client) StopStreamSession(ctx context.Context, sessionID string) error {
	url := fmt.Sprintf("%s/api/stream-sessions/%s", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("teardown request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiErrorFrom(resp)
	}
	return nil
}

// apiErrorFrom drains the error body looking for a structured message under
// the keys the backend uses ("message" or "error").
func apiErrorFrom(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return apiErr
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	if payload.Message != "" {
		apiErr.Message = payload.Message
	} else if payload.Error != "" {
		apiErr.Message = payload.Error
	}
	return apiErr
}
