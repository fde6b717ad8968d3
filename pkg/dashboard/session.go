// Package dashboard composes a backend client, a store and a realtime channel into one
// session: the explicit context every murdash view works against.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dyluth/murdash/pkg/backend"
	"github.com/dyluth/murdash/pkg/model"
	"github.com/dyluth/murdash/pkg/realtime"
	"github.com/dyluth/murdash/pkg/store"
	"go.uber.org/zap"
)

// ModeAuto detects a local daemon and falls back to demo.
const ModeAuto = "auto"

// Config selects how a session finds its backend.
type Config struct {
	Mode           string // auto, demo, local or cloud
	LocalURL       string
	CloudURL       string
	HealthTimeout  time.Duration
	ReconnectDelay time.Duration

	// Live connects the event stream for remote backends. One-shot reads leave it off.
	Live bool
}

// Option configures a Session.
type Option func(*settings)

type settings struct {
	logger         *zap.Logger
	backendOpts    []backend.Option
	realtimeOpts   []realtime.Option
	refreshTimeout time.Duration
}

// WithLogger sets the logger shared by every component of the session.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithBackendOptions passes extra options to the backend client.
func WithBackendOptions(opts ...backend.Option) Option {
	return func(s *settings) { s.backendOpts = append(s.backendOpts, opts...) }
}

// WithRealtimeOptions passes extra options to the realtime channel.
func WithRealtimeOptions(opts ...realtime.Option) Option {
	return func(s *settings) { s.realtimeOpts = append(s.realtimeOpts, opts...) }
}

// WithRefreshTimeout bounds each event-triggered store refresh. Defaults to 10s.
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *settings) { s.refreshTimeout = d }
}

// Session owns one client, one store and one channel.
type Session struct {
	cfg            Config
	logger         *zap.Logger
	refreshTimeout time.Duration

	client  *backend.Client
	store   *store.Store
	channel *realtime.Channel

	mu          sync.Mutex
	started     bool
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
}

// New builds a session. Nothing touches the network until Start.
func New(cfg Config, opts ...Option) *Session {
	s := &settings{
		logger:         zap.NewNop(),
		refreshTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	backendOpts := []backend.Option{backend.WithLogger(s.logger.Named("backend"))}
	if cfg.LocalURL != "" {
		backendOpts = append(backendOpts, backend.WithLocalURL(cfg.LocalURL))
	}
	if cfg.CloudURL != "" {
		backendOpts = append(backendOpts, backend.WithCloudURL(cfg.CloudURL))
	}
	if cfg.HealthTimeout > 0 {
		backendOpts = append(backendOpts, backend.WithHealthTimeout(cfg.HealthTimeout))
	}
	backendOpts = append(backendOpts, s.backendOpts...)

	realtimeOpts := []realtime.Option{realtime.WithLogger(s.logger.Named("realtime"))}
	if cfg.ReconnectDelay > 0 {
		realtimeOpts = append(realtimeOpts, realtime.WithReconnectDelay(cfg.ReconnectDelay))
	}
	realtimeOpts = append(realtimeOpts, s.realtimeOpts...)

	client := backend.NewClient(backendOpts...)
	return &Session{
		cfg:            cfg,
		logger:         s.logger,
		refreshTimeout: s.refreshTimeout,
		client:         client,
		store:          store.New(client, store.WithLogger(s.logger.Named("store"))),
		channel:        realtime.NewChannel(realtimeOpts...),
	}
}

// Start selects the backend and loads the store. For a remote backend in a live
// session it also connects the event stream so that every event refreshes the store.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("session already started")
	}

	mode, err := s.selectMode(ctx)
	if err != nil {
		return err
	}

	if err := s.store.Load(ctx); err != nil {
		return fmt.Errorf("failed to load dashboard data from %s backend: %w", mode, err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	if mode != model.DataSourceDemo && s.cfg.Live {
		s.unsubscribe = s.channel.OnEvent(s.handleEvent)
		s.channel.Connect(s.client.BaseURL())
	}

	s.started = true
	s.logger.Info("Dashboard session started",
		zap.String("mode", string(mode)),
		zap.Int("patterns", len(s.store.Patterns())),
		zap.Int("workflows", len(s.store.Workflows())))
	return nil
}

// Close disconnects the event stream and stops event-driven refreshes.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.channel.Disconnect()
	if s.cancel != nil {
		s.cancel()
	}
}

// Client returns the session's backend client.
func (s *Session) Client() *backend.Client {
	return s.client
}

// Store returns the session's store.
func (s *Session) Store() *store.Store {
	return s.store
}

// Channel returns the session's realtime channel.
func (s *Session) Channel() *realtime.Channel {
	return s.channel
}

func (s *Session) selectMode(ctx context.Context) (model.DataSource, error) {
	if s.cfg.Mode == "" || s.cfg.Mode == ModeAuto {
		return s.client.DetectBackend(ctx), nil
	}

	mode, err := model.ParseDataSource(s.cfg.Mode)
	if err != nil {
		return "", err
	}
	s.client.SetDataSource(mode)
	return mode, nil
}

func (s *Session) handleEvent(e realtime.Event) {
	ctx, cancel := context.WithTimeout(s.ctx, s.refreshTimeout)
	defer cancel()

	if err := s.store.Refresh(ctx); err != nil {
		s.logger.Warn("Refresh after event failed",
			zap.String("event", e.Type),
			zap.String("id", e.ID),
			zap.Error(err))
	}
}
