// Package api is the REST side of the backend: escalation snapshots,
// session summaries, agent roster and health. The real-time side lives
// in internal/transport; this client is a read source whose results flow
// into the reconcilers, never a direct state mutator.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/relaydesk/relaydesk/pkg/models"
)

const defaultTimeout = 10 * time.Second

// Client talks to the backend REST API under its /api base path.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for the given base URL, e.g.
// "http://localhost:5000". The "/api" prefix is appended here, not by
// callers.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// envelope is the common {success, error} wrapper the backend puts
// around every response body.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (e envelope) check(path string) error {
	if e.Success {
		return nil
	}
	if e.Error != "" {
		return fmt.Errorf("request %s failed: %s", path, e.Error)
	}
	return fmt.Errorf("request %s failed", path)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, path, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			return fmt.Errorf("request %s failed: %s (read body: %w)", path, resp.Status, readErr)
		}
		if msg := backendError(body); msg != "" {
			return fmt.Errorf("request %s failed: %s (%s)", path, resp.Status, msg)
		}
		return fmt.Errorf("request %s failed: %s", path, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// backendError pulls the backend's error string out of a failure body,
// falling back to the raw text.
func backendError(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		return env.Error
	}
	return strings.TrimSpace(string(body))
}

// GetEscalations fetches the pending-escalation snapshot. Empty status
// or non-positive limit omit the respective query parameter.
func (c *Client) GetEscalations(ctx context.Context, status string, limit int) ([]models.EscalationRecord, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/escalations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		envelope
		Escalations []models.EscalationRecord `json:"escalations"`
	}
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("/escalations"); err != nil {
		return nil, err
	}
	return resp.Escalations, nil
}

// AssignEscalation claims an escalation for an agent by escalation id.
func (c *Client) AssignEscalation(ctx context.Context, escalationID, agentID string) error {
	path := "/escalations/" + url.PathEscape(escalationID) + "/assign"
	var resp envelope
	payload := map[string]string{"agent_id": agentID}
	if err := c.sendJSON(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return err
	}
	return resp.check(path)
}

// AssignEscalationBySession claims an escalation when only the session
// id is known, e.g. from a legacy escalation notice.
func (c *Client) AssignEscalationBySession(ctx context.Context, sessionID, agentID string) error {
	const path = "/escalations/assign-by-session"
	var resp envelope
	payload := map[string]string{"session_id": sessionID, "agent_id": agentID}
	if err := c.sendJSON(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return err
	}
	return resp.check(path)
}

// Session is a backend chat session as listed by GET /sessions.
type Session struct {
	ID        models.FlexID `json:"id"`
	RoomID    string        `json:"room_id,omitempty"`
	UserID    string        `json:"user_id,omitempty"`
	Status    string        `json:"status,omitempty"`
	CreatedAt string        `json:"created_at,omitempty"`
	UpdatedAt string        `json:"updated_at,omitempty"`
}

// GetSessions lists chat sessions, optionally filtered by status.
func (c *Client) GetSessions(ctx context.Context, status string, limit int) ([]Session, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		envelope
		Sessions []Session `json:"sessions"`
	}
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("/sessions"); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// GetSessionSummary fetches the generated overview for a session.
func (c *Client) GetSessionSummary(ctx context.Context, sessionID string) (models.SessionSummary, error) {
	path := "/sessions/" + url.PathEscape(sessionID) + "/summary"
	var resp struct {
		envelope
		Summary models.SessionSummary `json:"summary"`
	}
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return models.SessionSummary{}, err
	}
	if err := resp.check(path); err != nil {
		return models.SessionSummary{}, err
	}
	return resp.Summary, nil
}

// GetAgents lists the agent roster with availability.
func (c *Client) GetAgents(ctx context.Context) ([]models.Agent, error) {
	var resp struct {
		envelope
		Agents []models.Agent `json:"agents"`
	}
	if err := c.getJSON(ctx, "/agents", &resp); err != nil {
		return nil, err
	}
	if err := resp.check("/agents"); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// UpdateAgentAvailability flips an agent's availability flag.
func (c *Client) UpdateAgentAvailability(ctx context.Context, agentID string, available bool) error {
	path := "/agents/" + url.PathEscape(agentID) + "/availability"
	var resp envelope
	payload := map[string]bool{"is_available": available}
	if err := c.sendJSON(ctx, http.MethodPut, path, payload, &resp); err != nil {
		return err
	}
	return resp.check(path)
}

// HealthStatus is the backend liveness report.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Health checks backend liveness.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var resp HealthStatus
	if err := c.getJSON(ctx, "/health", &resp); err != nil {
		return HealthStatus{}, err
	}
	return resp, nil
}
