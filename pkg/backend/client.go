// Package backend is the murdash backend client.
//
// A Client routes every read and write either to the in-memory demo dataset or to a
// remote mur backend (a local daemon or the hosted cloud service), depending on its
// current DataSource. Remote responses are normalized through pkg/adapter, so callers
// always see the domain model regardless of which wire dialect the backend speaks.
//
// Demo mode is sticky: a failing remote read returns an error and never silently
// switches the client into demo mode. Only SetDataSource and DetectBackend change the
// mode.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/murdash/pkg/adapter"
	"github.com/dyluth/murdash/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultLocalURL is where a local mur serve daemon listens
	DefaultLocalURL = "http://localhost:3847"

	// DefaultCloudURL is the hosted mur service
	DefaultCloudURL = "https://mur-server.fly.dev"

	// DefaultHealthTimeout bounds the local health probe in DetectBackend
	DefaultHealthTimeout = 2 * time.Second

	// APIPrefix is prepended to every resource path
	APIPrefix = "/api/v1"
)

// Request outcomes reported to a Recorder.
const (
	OutcomeOK      = "ok"
	OutcomeStatus  = "status"
	OutcomeNetwork = "network"
)

// Recorder observes completed remote API requests.
type Recorder interface {
	APIRequest(method, outcome string)
}

// Client talks to the demo dataset or a remote backend.
// It is safe for concurrent use.
type Client struct {
	mu      sync.RWMutex
	mode    model.DataSource
	baseURL string
	demo    *demoData

	localURL      string
	cloudURL      string
	httpClient    *http.Client
	healthTimeout time.Duration
	logger        *zap.Logger
	recorder      Recorder
	now           func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLocalURL overrides the local daemon base URL.
func WithLocalURL(u string) Option {
	return func(c *Client) { c.localURL = strings.TrimRight(u, "/") }
}

// WithCloudURL overrides the cloud service base URL.
func WithCloudURL(u string) Option {
	return func(c *Client) { c.cloudURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client used for remote requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithHealthTimeout overrides the DetectBackend probe deadline.
func WithHealthTimeout(d time.Duration) Option {
	return func(c *Client) { c.healthTimeout = d }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRecorder sets a request metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithClock overrides the time source used for demo timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client in demo mode with its own copy of the demo dataset.
func NewClient(opts ...Option) *Client {
	c := &Client{
		mode:          model.DataSourceDemo,
		demo:          newDemoData(),
		localURL:      DefaultLocalURL,
		cloudURL:      DefaultCloudURL,
		httpClient:    http.DefaultClient,
		healthTimeout: DefaultHealthTimeout,
		logger:        zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DataSource returns the current mode.
func (c *Client) DataSource() model.DataSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// BaseURL returns the base URL of the current mode, or "" in demo mode.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetDataSource switches the mode and its base URL together.
func (c *Client) SetDataSource(mode model.DataSource) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = mode
	switch mode {
	case model.DataSourceLocal:
		c.baseURL = c.localURL
	case model.DataSourceCloud:
		c.baseURL = c.cloudURL
	default:
		c.mode = model.DataSourceDemo
		c.baseURL = ""
	}
}

// DetectBackend probes the local daemon's health endpoint and switches to local mode
// on a 2xx answer, otherwise to demo mode. It never fails: an unreachable, slow or
// unhealthy daemon all mean demo.
func (c *Client) DetectBackend(ctx context.Context) model.DataSource {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	detected := model.DataSourceDemo
	if c.probe(ctx, c.localURL+APIPrefix+"/health") {
		detected = model.DataSourceLocal
	}

	c.SetDataSource(detected)
	c.logger.Info("Backend detected", zap.String("mode", string(detected)), zap.String("probe", c.localURL))
	return detected
}

func (c *Client) probe(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Health probe failed", zap.String("url", target), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// GetPatterns returns every pattern.
// In demo mode the returned slice is shared and must not be modified.
func (c *Client) GetPatterns(ctx context.Context) ([]model.Pattern, error) {
	if c.isDemo() {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.demo.patterns, nil
	}

	body, err := c.do(ctx, http.MethodGet, "/patterns", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}

	patterns, skipped := adapter.DecodePatterns(body)
	for _, skipErr := range skipped {
		c.logger.Warn("Skipping malformed pattern", zap.Error(skipErr))
	}
	return patterns, nil
}

// GetPattern returns the pattern with the given id.
// In demo mode an unknown id yields (nil, nil); a remote backend reports it as a 404
// *StatusError.
func (c *Client) GetPattern(ctx context.Context, id string) (*model.Pattern, error) {
	if c.isDemo() {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if p, ok := c.demo.findPattern(id); ok {
			return &p, nil
		}
		return nil, nil
	}

	body, err := c.do(ctx, http.MethodGet, "/patterns/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern %s: %w", id, err)
	}

	p, err := adapter.DecodePattern(body)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePattern stores a new pattern and returns it with its assigned id and stats.
func (c *Client) CreatePattern(ctx context.Context, draft model.PatternDraft) (model.Pattern, error) {
	if c.isDemo() {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.demo.createPattern(draft, c.now()), nil
	}

	body, err := c.do(ctx, http.MethodPost, "/patterns", draft)
	if err != nil {
		return model.Pattern{}, fmt.Errorf("failed to create pattern: %w", err)
	}
	return adapter.DecodePattern(body)
}

// UpdatePattern applies a partial update to an existing pattern.
// In demo mode an unknown id returns an error wrapping ErrNotFound.
func (c *Client) UpdatePattern(ctx context.Context, id string, update model.PatternUpdate) (model.Pattern, error) {
	if c.isDemo() {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.demo.updatePattern(id, update, c.now())
	}

	body, err := c.do(ctx, http.MethodPut, "/patterns/"+url.PathEscape(id), update)
	if err != nil {
		return model.Pattern{}, fmt.Errorf("failed to update pattern %s: %w", id, err)
	}
	return adapter.DecodePattern(body)
}

// DeletePattern removes a pattern. Deleting an unknown id in demo mode is a no-op.
func (c *Client) DeletePattern(ctx context.Context, id string) error {
	if c.isDemo() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.demo.deletePattern(id)
		return nil
	}

	if _, err := c.do(ctx, http.MethodDelete, "/patterns/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("failed to delete pattern %s: %w", id, err)
	}
	return nil
}

// GetWorkflows returns every workflow.
// In demo mode the returned slice is shared and must not be modified.
func (c *Client) GetWorkflows(ctx context.Context) ([]model.Workflow, error) {
	if c.isDemo() {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.demo.workflows, nil
	}

	body, err := c.do(ctx, http.MethodGet, "/workflows", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows, skipped := adapter.DecodeWorkflows(body)
	for _, skipErr := range skipped {
		c.logger.Warn("Skipping malformed workflow", zap.Error(skipErr))
	}
	return workflows, nil
}

// GetWorkflow returns the workflow with the given id, or (nil, nil) for an unknown id
// in demo mode.
func (c *Client) GetWorkflow(ctx context.Context, id string) (*model.Workflow, error) {
	if c.isDemo() {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if w, ok := c.demo.findWorkflow(id); ok {
			return &w, nil
		}
		return nil, nil
	}

	body, err := c.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow %s: %w", id, err)
	}

	w, err := adapter.DecodeWorkflow(body)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateWorkflow stores a new workflow and returns it with its assigned id.
func (c *Client) CreateWorkflow(ctx context.Context, draft model.WorkflowDraft) (model.Workflow, error) {
	if c.isDemo() {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.demo.createWorkflow(draft, c.now()), nil
	}

	body, err := c.do(ctx, http.MethodPost, "/workflows", draft)
	if err != nil {
		return model.Workflow{}, fmt.Errorf("failed to create workflow: %w", err)
	}
	return adapter.DecodeWorkflow(body)
}

// UpdateWorkflow applies a partial update to an existing workflow.
func (c *Client) UpdateWorkflow(ctx context.Context, id string, update model.WorkflowUpdate) (model.Workflow, error) {
	if c.isDemo() {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.demo.updateWorkflow(id, update, c.now())
	}

	body, err := c.do(ctx, http.MethodPut, "/workflows/"+url.PathEscape(id), update)
	if err != nil {
		return model.Workflow{}, fmt.Errorf("failed to update workflow %s: %w", id, err)
	}
	return adapter.DecodeWorkflow(body)
}

// DeleteWorkflow removes a workflow. Deleting an unknown id in demo mode is a no-op.
func (c *Client) DeleteWorkflow(ctx context.Context, id string) error {
	if c.isDemo() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.demo.deleteWorkflow(id)
		return nil
	}

	if _, err := c.do(ctx, http.MethodDelete, "/workflows/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}
	return nil
}

// GetDashboardStats reads both collections concurrently and derives statistics.
// Any read failure fails the whole call.
func (c *Client) GetDashboardStats(ctx context.Context) (model.DashboardStats, error) {
	var (
		patterns  []model.Pattern
		workflows []model.Workflow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		patterns, err = c.GetPatterns(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		workflows, err = c.GetWorkflows(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.DashboardStats{}, err
	}

	return ComputeStats(patterns, workflows), nil
}

func (c *Client) isDemo() bool {
	return c.DataSource() == model.DataSourceDemo
}

// do performs a remote request against the current base URL and returns the body of a
// 2xx response.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	target := c.BaseURL() + APIPrefix + path
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(method, OutcomeNetwork)
		return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(method, OutcomeNetwork)
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrNetworkUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.record(method, OutcomeStatus)
		c.logger.Debug("API request rejected",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	c.record(method, OutcomeOK)
	return body, nil
}

func (c *Client) record(method, outcome string) {
	if c.recorder != nil {
		c.recorder.APIRequest(method, outcome)
	}
}
