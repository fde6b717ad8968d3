package relay

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/murdash/pkg/realtime"
)

// setupRelay creates a relay connected to a miniredis instance
func setupRelay(t *testing.T) (*Relay, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	r, err := NewWithOptions(&redis.Options{Addr: mr.Addr()}, "murdash:events")
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	return r, mr
}

func receive(t *testing.T, sub *Subscription) realtime.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relayed event")
		return realtime.Event{}
	}
}

func TestNew(t *testing.T) {
	t.Run("parses redis URL", func(t *testing.T) {
		mr := miniredis.RunT(t)
		r, err := New("redis://"+mr.Addr()+"/0", "events")
		require.NoError(t, err)
		defer r.Close()

		assert.Equal(t, "events", r.Channel())
		assert.NoError(t, r.Ping(context.Background()))
	})

	t.Run("rejects bad URL", func(t *testing.T) {
		_, err := New("http://localhost", "events")
		assert.Error(t, err)
	})

	t.Run("rejects empty channel", func(t *testing.T) {
		_, err := NewWithOptions(&redis.Options{Addr: "localhost:6379"}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "relay channel cannot be empty")
	})
}

func TestPublishSubscribe(t *testing.T) {
	r, _ := setupRelay(t)
	ctx := context.Background()

	sub, err := r.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	t.Run("forwards the raw frame", func(t *testing.T) {
		ev, ok := realtime.ParseEvent([]byte(`{"type":"pattern.updated","id":"p1","ts":"2026-01-01T00:00:00Z","extra":1}`))
		require.True(t, ok)

		n, err := r.Publish(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got := receive(t, sub)
		assert.Equal(t, "pattern.updated", got.Type)
		assert.Equal(t, "p1", got.ID)
		assert.JSONEq(t, string(ev.Raw), string(got.Raw))
	})

	t.Run("marshals events without a raw frame", func(t *testing.T) {
		_, err := r.Publish(ctx, realtime.Event{Type: "workflow.deleted", ID: "w1"})
		require.NoError(t, err)

		got := receive(t, sub)
		assert.Equal(t, "workflow.deleted", got.Type)
		assert.Equal(t, "w1", got.ID)
	})

	t.Run("handler republishes", func(t *testing.T) {
		r.Handler()(realtime.Event{Type: "pattern.created", ID: "p2"})
		assert.Equal(t, "p2", receive(t, sub).ID)
	})
}

func TestSubscribeMalformed(t *testing.T) {
	r, mr := setupRelay(t)

	sub, err := r.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish("murdash:events", "not json")
	select {
	case err := <-sub.Errors():
		assert.Contains(t, err.Error(), "malformed relayed event")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}

	mr.Publish("murdash:events", `{"type":"ok","id":"x"}`)
	assert.Equal(t, "x", receive(t, sub).ID)
}

func TestSubscriptionClose(t *testing.T) {
	r, _ := setupRelay(t)

	sub, err := r.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestHandlerSwallowsErrors(t *testing.T) {
	r, mr := setupRelay(t)
	mr.Close()

	assert.NotPanics(t, func() {
		r.Handler()(realtime.Event{Type: "pattern.updated"})
	})
}
