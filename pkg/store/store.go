// Package store is the process-wide cache of patterns and workflows.
//
// A Store is the single source of truth that views read from. Writes go through the
// backend first and only touch the cache once the backend has accepted them. Every
// cache change replaces a whole collection, so a slice returned by Patterns or
// Workflows is never modified afterwards, and listeners are told about each change
// exactly once.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dyluth/murdash/pkg/backend"
	"github.com/dyluth/murdash/pkg/model"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Backend is the data source a Store caches. *backend.Client satisfies it.
type Backend interface {
	GetPatterns(ctx context.Context) ([]model.Pattern, error)
	GetWorkflows(ctx context.Context) ([]model.Workflow, error)
	CreatePattern(ctx context.Context, draft model.PatternDraft) (model.Pattern, error)
	UpdatePattern(ctx context.Context, id string, update model.PatternUpdate) (model.Pattern, error)
	DeletePattern(ctx context.Context, id string) error
	CreateWorkflow(ctx context.Context, draft model.WorkflowDraft) (model.Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, update model.WorkflowUpdate) (model.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

var _ Backend = (*backend.Client)(nil)

// Listener is called after every cache change. It receives no arguments; it reads the
// new state through the Store's accessors.
type Listener func()

type listenerEntry struct {
	id int
	fn Listener
}

// Store caches patterns and workflows and notifies listeners of changes.
// It is safe for concurrent use.
type Store struct {
	backend Backend
	logger  *zap.Logger

	mu        sync.RWMutex
	patterns  []model.Pattern
	workflows []model.Workflow
	loaded    bool

	listenersMu sync.Mutex
	listeners   []listenerEntry
	nextID      int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty, unloaded store over b.
func New(b Backend, opts ...Option) *Store {
	s := &Store{
		backend:   b,
		logger:    zap.NewNop(),
		patterns:  []model.Pattern{},
		workflows: []model.Workflow{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches both collections concurrently and replaces the cache in one step.
// If either fetch fails the cache is left untouched and no listener is notified.
func (s *Store) Load(ctx context.Context) error {
	var (
		patterns  []model.Pattern
		workflows []model.Workflow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		patterns, err = s.backend.GetPatterns(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		workflows, err = s.backend.GetWorkflows(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}

	s.mu.Lock()
	s.patterns = patterns
	s.workflows = workflows
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug("Store loaded",
		zap.Int("patterns", len(patterns)),
		zap.Int("workflows", len(workflows)))
	s.notify()
	return nil
}

// Refresh reloads both collections. It is equivalent to Load.
func (s *Store) Refresh(ctx context.Context) error {
	return s.Load(ctx)
}

// Subscribe registers a listener and returns a function that removes it.
// The returned function may be called any number of times, including from inside a
// notification.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			defer s.listenersMu.Unlock()
			s.listeners = lo.Reject(s.listeners, func(l listenerEntry, _ int) bool { return l.id == id })
		})
	}
}

// Patterns returns the cached patterns. The slice must not be modified.
func (s *Store) Patterns() []model.Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.patterns
}

// Workflows returns the cached workflows. The slice must not be modified.
func (s *Store) Workflows() []model.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workflows
}

// IsLoaded reports whether at least one Load has succeeded.
func (s *Store) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Stats derives dashboard statistics from the cache without touching the backend.
func (s *Store) Stats() model.DashboardStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return backend.ComputeStats(s.patterns, s.workflows)
}

// FindPattern looks a pattern up in the cache.
func (s *Store) FindPattern(id string) (model.Pattern, bool) {
	return lo.Find(s.Patterns(), func(p model.Pattern) bool { return p.ID == id })
}

// FindWorkflow looks a workflow up in the cache.
func (s *Store) FindWorkflow(id string) (model.Workflow, bool) {
	return lo.Find(s.Workflows(), func(w model.Workflow) bool { return w.ID == id })
}

// CreatePattern creates a pattern through the backend and appends it to the cache.
func (s *Store) CreatePattern(ctx context.Context, draft model.PatternDraft) (model.Pattern, error) {
	created, err := s.backend.CreatePattern(ctx, draft)
	if err != nil {
		return model.Pattern{}, err
	}

	s.mu.Lock()
	s.patterns = append(slices.Clip(s.patterns), created)
	s.mu.Unlock()

	s.notify()
	return created, nil
}

// UpdatePattern updates a pattern through the backend and replaces it in the cache.
func (s *Store) UpdatePattern(ctx context.Context, id string, update model.PatternUpdate) (model.Pattern, error) {
	updated, err := s.backend.UpdatePattern(ctx, id, update)
	if err != nil {
		return model.Pattern{}, err
	}

	s.mu.Lock()
	s.patterns = lo.Map(s.patterns, func(p model.Pattern, _ int) model.Pattern {
		return lo.Ternary(p.ID == id, updated, p)
	})
	s.mu.Unlock()

	s.notify()
	return updated, nil
}

// DeletePattern deletes a pattern through the backend and drops it from the cache.
func (s *Store) DeletePattern(ctx context.Context, id string) error {
	if err := s.backend.DeletePattern(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	s.patterns = lo.Reject(s.patterns, func(p model.Pattern, _ int) bool { return p.ID == id })
	s.mu.Unlock()

	s.notify()
	return nil
}

// CreateWorkflow creates a workflow through the backend and appends it to the cache.
func (s *Store) CreateWorkflow(ctx context.Context, draft model.WorkflowDraft) (model.Workflow, error) {
	created, err := s.backend.CreateWorkflow(ctx, draft)
	if err != nil {
		return model.Workflow{}, err
	}

	s.mu.Lock()
	s.workflows = append(slices.Clip(s.workflows), created)
	s.mu.Unlock()

	s.notify()
	return created, nil
}

// UpdateWorkflow updates a workflow through the backend and replaces it in the cache.
func (s *Store) UpdateWorkflow(ctx context.Context, id string, update model.WorkflowUpdate) (model.Workflow, error) {
	updated, err := s.backend.UpdateWorkflow(ctx, id, update)
	if err != nil {
		return model.Workflow{}, err
	}

	s.mu.Lock()
	s.workflows = lo.Map(s.workflows, func(w model.Workflow, _ int) model.Workflow {
		return lo.Ternary(w.ID == id, updated, w)
	})
	s.mu.Unlock()

	s.notify()
	return updated, nil
}

// DeleteWorkflow deletes a workflow through the backend and drops it from the cache.
func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	if err := s.backend.DeleteWorkflow(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	s.workflows = lo.Reject(s.workflows, func(w model.Workflow, _ int) bool { return w.ID == id })
	s.mu.Unlock()

	s.notify()
	return nil
}

// notify calls every listener registered at the time of the call, outside any lock.
func (s *Store) notify() {
	s.listenersMu.Lock()
	snapshot := make([]listenerEntry, len(s.listeners))
	copy(snapshot, s.listeners)
	s.listenersMu.Unlock()

	for _, l := range snapshot {
		l.fn()
	}
}
