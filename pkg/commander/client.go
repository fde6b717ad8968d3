// Package commander is a client for the mur-commander daemon, which executes
// workflows and keeps an audit log of every action it takes.
package commander

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	// DefaultURL is where a local mur-commander listens
	DefaultURL = "http://localhost:3939"

	// DefaultHealthTimeout bounds the Detect probe
	DefaultHealthTimeout = 2 * time.Second
)

// ErrUnavailable is wrapped by errors caused by a transport failure.
var ErrUnavailable = errors.New("commander unavailable")

// StatusError is returned when the commander answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Commander API error: %d", e.Code)
}

// Client talks to a mur-commander daemon. It is safe for concurrent use.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	healthTimeout time.Duration
	logger        *zap.Logger
	connected     atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the commander address.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithHealthTimeout overrides the Detect probe deadline.
func WithHealthTimeout(d time.Duration) Option {
	return func(c *Client) { c.healthTimeout = d }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a commander client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:       DefaultURL,
		httpClient:    http.DefaultClient,
		healthTimeout: DefaultHealthTimeout,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the commander address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Detect probes /health and records whether the commander answered with a 2xx.
// It never fails.
func (c *Client) Detect(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	_, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		c.logger.Debug("Commander not detected", zap.String("url", c.baseURL), zap.Error(err))
	}
	c.connected.Store(err == nil)
	return err == nil
}

// Connected reports the result of the last Detect.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Health returns the commander's health report.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.getJSON(ctx, "/health", &h); err != nil {
		return Health{}, fmt.Errorf("failed to get commander health: %w", err)
	}
	return h, nil
}

// Workflows lists every commander workflow.
func (c *Client) Workflows(ctx context.Context) ([]Workflow, error) {
	workflows := []Workflow{}
	if err := c.getJSON(ctx, "/api/workflows", &workflows); err != nil {
		return nil, fmt.Errorf("failed to list commander workflows: %w", err)
	}
	return workflows, nil
}

// CreateWorkflow stores a new workflow.
func (c *Client) CreateWorkflow(ctx context.Context, draft WorkflowDraft) (Workflow, error) {
	var w Workflow
	if err := c.sendJSON(ctx, http.MethodPost, "/api/editor/workflows", draft, &w); err != nil {
		return Workflow{}, fmt.Errorf("failed to create commander workflow: %w", err)
	}
	return w, nil
}

// UpdateWorkflow applies a partial update to a workflow.
func (c *Client) UpdateWorkflow(ctx context.Context, id string, update WorkflowUpdate) (Workflow, error) {
	var w Workflow
	if err := c.sendJSON(ctx, http.MethodPut, "/api/editor/workflows/"+url.PathEscape(id), update, &w); err != nil {
		return Workflow{}, fmt.Errorf("failed to update commander workflow %s: %w", id, err)
	}
	return w, nil
}

// DeleteWorkflow removes a workflow.
func (c *Client) DeleteWorkflow(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/api/editor/workflows/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("failed to delete commander workflow %s: %w", id, err)
	}
	return nil
}

// RunWorkflow executes a workflow and waits for its result.
func (c *Client) RunWorkflow(ctx context.Context, id string, opts RunOptions) (ExecutionResult, error) {
	params := url.Values{}
	if opts.Shadow {
		params.Set("shadow", "true")
	}
	if len(opts.Vars) > 0 {
		keys := lo.Keys(opts.Vars)
		slices.Sort(keys)
		pairs := lo.Map(keys, func(k string, _ int) string { return k + "=" + opts.Vars[k] })
		params.Set("vars", strings.Join(pairs, ","))
	}

	path := "/workflows/" + url.PathEscape(id) + "/run"
	if qs := params.Encode(); qs != "" {
		path += "?" + qs
	}

	var result ExecutionResult
	if err := c.sendJSON(ctx, http.MethodPost, path, nil, &result); err != nil {
		return ExecutionResult{}, fmt.Errorf("failed to run workflow %s: %w", id, err)
	}
	return result, nil
}

// SearchAudit queries the audit log. An empty query returns recent entries.
func (c *Client) SearchAudit(ctx context.Context, query string) ([]AuditEntry, error) {
	path := "/api/audit/search"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}

	entries := []AuditEntry{}
	if err := c.getJSON(ctx, path, &entries); err != nil {
		return nil, fmt.Errorf("failed to search audit log: %w", err)
	}
	return entries, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.sendJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload, out any) error {
	body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return body, nil
}
