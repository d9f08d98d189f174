package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Remote delegates execution to an isolated execution service over HTTP. This
// is the preferred tier and the only one permitted in production.
type Remote struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRemote builds a remote sandbox client.
func NewRemote(baseURL, apiKey string) *Remote {
	return &Remote{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// Name implements Sandbox.
func (r *Remote) Name() string { return "remote" }

type remoteRequest struct {
	Code           string `json:"code"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxOutputBytes int    `json:"max_output_bytes"`
	MaxMemoryBytes int    `json:"max_memory_bytes"`
}

type remoteResponse struct {
	Status string `json:"status"`
	Stdout string `json:"stdout"`
	Value  any    `json:"value"`
	Error  string `json:"error"`
}

// Run implements Sandbox. Transport failures are setup errors; execution
// failures reported by the service map onto Execution statuses.
func (r *Remote) Run(ctx context.Context, code string, limits Limits) (*Execution, error) {
	if r.BaseURL == "" {
		return nil, fmt.Errorf("sandbox: remote tier has no base URL configured")
	}
	if limits.Timeout <= 0 {
		limits.Timeout = DefaultLimits().Timeout
	}
	if limits.MaxOutputBytes <= 0 {
		limits.MaxOutputBytes = DefaultLimits().MaxOutputBytes
	}
	if limits.MaxMemoryMB <= 0 {
		limits.MaxMemoryMB = DefaultLimits().MaxMemoryMB
	}

	body, err := json.Marshal(remoteRequest{
		Code:           code,
		TimeoutSeconds: int(limits.Timeout.Seconds()),
		MaxOutputBytes: limits.MaxOutputBytes,
		MaxMemoryBytes: limits.MaxMemoryMB * 1024 * 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("sandbox: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sandbox: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	start := time.Now()
	resp, err := r.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("sandbox: execution service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sandbox: execution service returned %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("sandbox: decode response: %w", err)
	}

	exec := &Execution{
		Stdout:   out.Stdout,
		Duration: time.Since(start),
		Err:      out.Error,
	}
	switch out.Status {
	case "completed", "":
		exec.Status = StatusCompleted
		exec.Value = out.Value
	case "timed_out":
		exec.Status = StatusTimedOut
	case "resource_exceeded":
		exec.Status = StatusResourceExceeded
	default:
		exec.Status = StatusErrored
	}
	return exec, nil
}

func (r *Remote) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return http.DefaultClient
}
