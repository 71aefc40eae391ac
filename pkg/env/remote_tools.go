package env

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

// ToolBackend executes the environment's tools and scores the final state.
type ToolBackend interface {
	Tools(ctx context.Context) ([]go_openai.Tool, error)
	Reset(ctx context.Context, task Task) error
	Invoke(ctx context.Context, action Action) (string, error)
	Reward(ctx context.Context) (float64, map[string]any, error)
}

// RemoteTools talks to a tool server over JSON:
//
//	GET  /tools   -> [{"type": "function", "function": {...}}]
//	POST /reset   {"task": {...}}
//	POST /invoke  {"name": ..., "arguments": {...}} -> {"observation": ...}
//	GET  /reward  -> {"reward": 1.0, "info": {...}}
type RemoteTools struct {
	BaseURL string
	Client  *http.Client
}

func NewRemoteTools(baseURL string, timeout time.Duration) *RemoteTools {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &RemoteTools{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (r *RemoteTools) Tools(ctx context.Context) ([]go_openai.Tool, error) {
	var tools []go_openai.Tool
	if err := r.do(ctx, http.MethodGet, "/tools", nil, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

func (r *RemoteTools) Reset(ctx context.Context, task Task) error {
	return r.do(ctx, http.MethodPost, "/reset", map[string]any{"task": task}, nil)
}

func (r *RemoteTools) Invoke(ctx context.Context, action Action) (string, error) {
	var resp struct {
		Observation string `json:"observation"`
	}
	if err := r.do(ctx, http.MethodPost, "/invoke", action, &resp); err != nil {
		return "", err
	}
	return resp.Observation, nil
}

func (r *RemoteTools) Reward(ctx context.Context) (float64, map[string]any, error) {
	var resp struct {
		Reward float64        `json:"reward"`
		Info   map[string]any `json:"info"`
	}
	if err := r.do(ctx, http.MethodGet, "/reward", nil, &resp); err != nil {
		return 0, nil, err
	}
	return resp.Reward, resp.Info, nil
}

func (r *RemoteTools) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "tool server: marshal %s body", path)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "tool server: create %s request", path)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "tool server: call %s", path)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "tool server: read %s response", path)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("tool server: %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "tool server: parse %s response", path)
	}
	return nil
}

var _ ToolBackend = (*RemoteTools)(nil)
