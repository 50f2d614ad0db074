package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Retry settings for backpressure answers.
const (
	maxAttempts  = 5
	retryBackoff = 20 * time.Millisecond
)

// ErrBackpressure means the service kept answering 429 after every retry.
var ErrBackpressure = errors.New("service kept rejecting with backpressure")

// StatusError is a non-success answer from the API.
type StatusError struct {
	Status int
	Code   string
	Msg    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Msg)
}

// Client is a small typed client for the recicla HTTP API.
type Client struct {
	base string
	http *http.Client

	// onRetry is called before each retry of a 429 answer.
	onRetry func()
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base:    baseURL,
		http:    &http.Client{Timeout: timeout},
		onRetry: func() {},
	}
}

// Health checks that /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// CreateTeam registers a team.
func (c *Client) CreateTeam(ctx context.Context, name string) (Team, error) {
	var t Team
	err := c.do(ctx, http.MethodPost, "/teams", map[string]string{"name": name}, &t)
	return t, err
}

// DeleteAllTeams removes every team and the event history.
func (c *Client) DeleteAllTeams(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/teams", nil, nil)
}

// Teams lists teams in ranking order.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var ts []Team
	err := c.do(ctx, http.MethodGet, "/teams", nil, &ts)
	return ts, err
}

// Materials lists the selectable materials.
func (c *Client) Materials(ctx context.Context) ([]Material, error) {
	var ms []Material
	err := c.do(ctx, http.MethodGet, "/materials", nil, &ms)
	return ms, err
}

// Recent returns up to limit recent events.
func (c *Client) Recent(ctx context.Context, limit int) ([]Event, error) {
	var evs []Event
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/recent?limit=%d", limit), nil, &evs)
	return evs, err
}

// RecordEvent registers material for teamID. A non-empty requestID makes the
// call idempotent.
func (c *Client) RecordEvent(ctx context.Context, requestID, teamID, material string) (Event, bool, error) {
	var ack eventAck
	err := c.do(ctx, http.MethodPost, "/events", eventRequest{
		RequestID: requestID,
		TeamID:    teamID,
		Material:  material,
	}, &ack)
	return ack.Event, ack.Duplicate, err
}

// do sends one request, retrying on 429, and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = b
	}

	for attempt := 1; ; attempt++ {
		err := c.once(ctx, method, path, payload, out)
		var se *StatusError
		if !errors.As(err, &se) || se.Status != http.StatusTooManyRequests {
			return err
		}
		if attempt == maxAttempts {
			return fmt.Errorf("%s %s: %w", method, path, ErrBackpressure)
		}
		c.onRetry()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if out != nil {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var ae apiError
		_ = json.Unmarshal(data, &ae)
		return &StatusError{Status: resp.StatusCode, Code: ae.Code, Msg: ae.Message}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
