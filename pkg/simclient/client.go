// Package simclient is a Go client for the simulation server's HTTP API,
// used by simctl and by integration tests.
package simclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/invisible-tech/warsim/internal/types"
)

// Client talks to a running simulation server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config for the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New creates a client. Timeout defaults to 30s.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// ActionResponse is the result of applying a tactical action.
type ActionResponse struct {
	Success bool        `json:"success"`
	Asset   types.Asset `json:"asset"`
}

// ScanResponse is the result of a port scan; Results holds open ports only.
type ScanResponse struct {
	Target    string             `json:"target"`
	Timestamp string             `json:"timestamp"`
	Results   []types.ScanResult `json:"results"`
}

// State fetches the full session snapshot.
func (c *Client) State(ctx context.Context) (*types.Snapshot, error) {
	var snap types.Snapshot
	if err := c.get(ctx, "/state", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Action applies a tactical action to an asset.
func (c *Client) Action(ctx context.Context, assetID, action string, faction types.Faction) (*ActionResponse, error) {
	var resp ActionResponse
	payload := map[string]interface{}{
		"assetId": assetID,
		"action":  action,
		"faction": faction,
	}
	if err := c.post(ctx, "/action", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AppendLog records a manual event.
func (c *Client) AppendLog(ctx context.Context, source, message string, kind types.EventKind) error {
	payload := map[string]interface{}{
		"message": message,
		"source":  source,
		"type":    kind,
	}
	return c.post(ctx, "/log", payload, nil)
}

// SetOpponent toggles the autonomous opponent.
func (c *Client) SetOpponent(ctx context.Context, enabled bool, role types.Faction) (*types.AIState, error) {
	var state types.AIState
	payload := map[string]interface{}{"enabled": enabled}
	if role.Valid() {
		payload["role"] = role
	}
	if err := c.post(ctx, "/ai", payload, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Reset restores the session baseline.
func (c *Client) Reset(ctx context.Context) error {
	return c.post(ctx, "/reset", map[string]interface{}{}, nil)
}

// Scripts lists all stored scripts.
func (c *Client) Scripts(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string)
	if err := c.get(ctx, "/scripts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveScript stores a named command sequence.
func (c *Client) SaveScript(ctx context.Context, name string, commands []string) error {
	payload := map[string]interface{}{"name": name, "commands": commands}
	return c.post(ctx, "/scripts", payload, nil)
}

// RunScript starts replay of a stored script.
func (c *Client) RunScript(ctx context.Context, name string, faction types.Faction) error {
	payload := map[string]interface{}{"script": name, "faction": faction}
	return c.post(ctx, "/run", payload, nil)
}

// Scan runs a port scan against target over [start,end].
func (c *Client) Scan(ctx context.Context, target string, start, end int) (*ScanResponse, error) {
	q := url.Values{}
	q.Set("target", target)
	q.Set("start", strconv.Itoa(start))
	q.Set("end", strconv.Itoa(end))
	var resp ScanResponse
	if err := c.get(ctx, "/scan?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
