package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dyluth/murdash/pkg/backend"
	"github.com/dyluth/murdash/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingBackend wraps a demo client and fails selected operations.
type failingBackend struct {
	*backend.Client
	failPatterns  bool
	failWorkflows bool
	failWrites    bool
}

var errBoom = errors.New("boom")

func (f *failingBackend) GetPatterns(ctx context.Context) ([]model.Pattern, error) {
	if f.failPatterns {
		return nil, errBoom
	}
	return f.Client.GetPatterns(ctx)
}

func (f *failingBackend) GetWorkflows(ctx context.Context) ([]model.Workflow, error) {
	if f.failWorkflows {
		return nil, errBoom
	}
	return f.Client.GetWorkflows(ctx)
}

func (f *failingBackend) CreatePattern(ctx context.Context, d model.PatternDraft) (model.Pattern, error) {
	if f.failWrites {
		return model.Pattern{}, errBoom
	}
	return f.Client.CreatePattern(ctx, d)
}

func (f *failingBackend) DeleteWorkflow(ctx context.Context, id string) error {
	if f.failWrites {
		return errBoom
	}
	return f.Client.DeleteWorkflow(ctx, id)
}

func setupStore(t *testing.T) (*Store, *int) {
	t.Helper()
	s := New(backend.NewClient())
	notifications := 0
	s.Subscribe(func() { notifications++ })
	require.NoError(t, s.Load(context.Background()))
	notifications = 0
	return s, &notifications
}

func TestNewStore(t *testing.T) {
	s := New(backend.NewClient())
	assert.False(t, s.IsLoaded())
	assert.Empty(t, s.Patterns())
	assert.Empty(t, s.Workflows())
}

func TestLoad(t *testing.T) {
	t.Run("replaces both collections and notifies once", func(t *testing.T) {
		s := New(backend.NewClient())
		calls := 0
		s.Subscribe(func() {
			calls++
			assert.True(t, s.IsLoaded())
			assert.Len(t, s.Patterns(), 10)
		})

		require.NoError(t, s.Load(context.Background()))

		assert.Equal(t, 1, calls)
		assert.True(t, s.IsLoaded())
		assert.Len(t, s.Workflows(), 3)
	})

	t.Run("partial failure leaves the cache untouched", func(t *testing.T) {
		b := &failingBackend{Client: backend.NewClient()}
		s := New(b)
		require.NoError(t, s.Load(context.Background()))
		before := s.Patterns()

		calls := 0
		s.Subscribe(func() { calls++ })

		b.failWorkflows = true
		err := s.Refresh(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 0, calls)
		assert.Equal(t, before, s.Patterns())
		assert.Len(t, s.Workflows(), 3)
	})

	t.Run("failed first load stays unloaded", func(t *testing.T) {
		s := New(&failingBackend{Client: backend.NewClient(), failPatterns: true})
		assert.Error(t, s.Load(context.Background()))
		assert.False(t, s.IsLoaded())
	})
}

func TestPatternMutations(t *testing.T) {
	ctx := context.Background()
	s, notifications := setupStore(t)

	created, err := s.CreatePattern(ctx, model.PatternDraft{Description: "fresh"})
	require.NoError(t, err)
	assert.Equal(t, 1, *notifications)
	assert.Len(t, s.Patterns(), 11)
	assert.Equal(t, created.ID, s.Patterns()[10].ID)

	before := s.Patterns()
	conf := 0.3
	updated, err := s.UpdatePattern(ctx, created.ID, model.PatternUpdate{Confidence: &conf})
	require.NoError(t, err)
	assert.Equal(t, 0.3, updated.Confidence)
	assert.Equal(t, 2, *notifications)

	found, ok := s.FindPattern(created.ID)
	require.True(t, ok)
	assert.Equal(t, 0.3, found.Confidence)

	// earlier snapshot is not modified in place
	assert.Equal(t, 0.0, before[10].Confidence)

	require.NoError(t, s.DeletePattern(ctx, created.ID))
	assert.Equal(t, 3, *notifications)
	_, ok = s.FindPattern(created.ID)
	assert.False(t, ok)
	assert.Len(t, s.Patterns(), 10)
}

func TestWorkflowMutations(t *testing.T) {
	ctx := context.Background()
	s, notifications := setupStore(t)

	created, err := s.CreateWorkflow(ctx, model.WorkflowDraft{Name: "Release"})
	require.NoError(t, err)
	assert.Len(t, s.Workflows(), 4)

	name := "Release v2"
	_, err = s.UpdateWorkflow(ctx, created.ID, model.WorkflowUpdate{Name: &name})
	require.NoError(t, err)
	w, ok := s.FindWorkflow(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Release v2", w.Name)

	require.NoError(t, s.DeleteWorkflow(ctx, created.ID))
	assert.Len(t, s.Workflows(), 3)
	assert.Equal(t, 3, *notifications)
}

func TestFailedMutationLeavesCache(t *testing.T) {
	ctx := context.Background()
	b := &failingBackend{Client: backend.NewClient()}
	s := New(b)
	require.NoError(t, s.Load(ctx))

	calls := 0
	s.Subscribe(func() { calls++ })
	b.failWrites = true

	_, err := s.CreatePattern(ctx, model.PatternDraft{Description: "x"})
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, s.DeleteWorkflow(ctx, "deploy-pipeline"), errBoom)

	_, err = s.UpdatePattern(ctx, "ghost", model.PatternUpdate{})
	assert.True(t, backend.IsNotFound(err))

	assert.Equal(t, 0, calls)
	assert.Len(t, s.Patterns(), 10)
	assert.Len(t, s.Workflows(), 3)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		s := New(backend.NewClient())
		a, b := 0, 0
		unsubscribeA := s.Subscribe(func() { a++ })
		s.Subscribe(func() { b++ })

		require.NoError(t, s.Load(ctx))
		unsubscribeA()
		unsubscribeA()
		require.NoError(t, s.Refresh(ctx))

		assert.Equal(t, 1, a)
		assert.Equal(t, 2, b)
	})

	t.Run("unsubscribe inside a notification", func(t *testing.T) {
		s := New(backend.NewClient())
		calls, other := 0, 0
		var unsubscribe func()
		unsubscribe = s.Subscribe(func() {
			calls++
			unsubscribe()
		})
		s.Subscribe(func() { other++ })

		require.NoError(t, s.Load(ctx))
		require.NoError(t, s.Load(ctx))

		assert.Equal(t, 1, calls)
		assert.Equal(t, 2, other)
	})
}

func TestStats(t *testing.T) {
	s, _ := setupStore(t)
	stats := s.Stats()
	assert.Equal(t, 10, stats.TotalPatterns)
	assert.Equal(t, 9, stats.ActivePatterns)
	assert.Equal(t, 0.81, stats.AvgConfidence)
}
