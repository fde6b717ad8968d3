package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dyluth/murdash/pkg/model"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon serves a tiny mur backend whose pattern count can be bumped, and pushes
// one event to each event stream client after bump is signalled.
type fakeDaemon struct {
	*httptest.Server
	patterns atomic.Int32
	streams  atomic.Int32
	bump     chan struct{}
}

func setupDaemon(t *testing.T) *fakeDaemon {
	t.Helper()

	d := &fakeDaemon{bump: make(chan struct{}, 1)}
	d.patterns.Store(1)
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/patterns", func(w http.ResponseWriter, r *http.Request) {
		n := int(d.patterns.Load())
		body := `{"data":[`
		for i := 0; i < n; i++ {
			if i > 0 {
				body += ","
			}
			body += fmt.Sprintf(`{"name":"p%d","tier":"project","confidence":0.5}`, i)
		}
		body += `]}`
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/api/v1/workflows", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/api/v1/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		d.streams.Add(1)

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		select {
		case <-d.bump:
			d.patterns.Add(1)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pattern.created","id":"p1"}`))
		case <-closed:
			return
		}
		<-closed
	})

	d.Server = httptest.NewServer(mux)
	t.Cleanup(d.Close)
	return d
}

func TestStartDemo(t *testing.T) {
	s := New(Config{Mode: "demo"})
	t.Cleanup(s.Close)

	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, model.DataSourceDemo, s.Client().DataSource())
	assert.True(t, s.Store().IsLoaded())
	assert.Len(t, s.Store().Patterns(), 10)
	assert.False(t, s.Channel().IsConnected())

	assert.Error(t, s.Start(context.Background()))
}

func TestStartAutoFallsBackToDemo(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	s := New(Config{Mode: ModeAuto, LocalURL: dead.URL, HealthTimeout: 200 * time.Millisecond})
	t.Cleanup(s.Close)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, model.DataSourceDemo, s.Client().DataSource())
	assert.Len(t, s.Store().Workflows(), 3)
}

func TestStartRejectsUnknownMode(t *testing.T) {
	s := New(Config{Mode: "offline"})
	assert.Error(t, s.Start(context.Background()))
}

func TestEventsRefreshStore(t *testing.T) {
	daemon := setupDaemon(t)

	s := New(Config{Mode: ModeAuto, LocalURL: daemon.URL, ReconnectDelay: 50 * time.Millisecond, Live: true})
	t.Cleanup(s.Close)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, model.DataSourceLocal, s.Client().DataSource())
	require.Len(t, s.Store().Patterns(), 1)

	notified := make(chan struct{}, 4)
	s.Store().Subscribe(func() { notified <- struct{}{} })

	require.Eventually(t, s.Channel().IsConnected, 2*time.Second, 10*time.Millisecond)
	daemon.bump <- struct{}{}

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("store was not refreshed after event")
	}
	assert.Len(t, s.Store().Patterns(), 2)
}

func TestOneShotSessionSkipsEventStream(t *testing.T) {
	daemon := setupDaemon(t)

	s := New(Config{Mode: "local", LocalURL: daemon.URL, ReconnectDelay: 10 * time.Millisecond})
	t.Cleanup(s.Close)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, model.DataSourceLocal, s.Client().DataSource())
	assert.Len(t, s.Store().Patterns(), 1)

	time.Sleep(100 * time.Millisecond)
	assert.False(t, s.Channel().IsConnected())
	assert.Equal(t, int32(0), daemon.streams.Load())
}

func TestCloseStopsChannel(t *testing.T) {
	daemon := setupDaemon(t)

	s := New(Config{Mode: "local", LocalURL: daemon.URL, Live: true})
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, s.Channel().IsConnected, 2*time.Second, 10*time.Millisecond)

	s.Close()
	assert.False(t, s.Channel().IsConnected())
}

func TestStartFailsWhenBackendFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	s := New(Config{Mode: "local", LocalURL: server.URL})
	t.Cleanup(s.Close)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error: 500")
	assert.False(t, s.Store().IsLoaded())
}
