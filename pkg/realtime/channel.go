// Package realtime keeps a self-reconnecting WebSocket subscription to a backend's
// event stream and fans inbound events out to registered handlers.
//
// A Channel holds at most one live connection and at most one pending reconnect timer.
// Every Connect and Disconnect starts a new generation; sockets and timers belonging
// to an older generation are inert, so a superseded connection can never trigger a
// reconnect or deliver events.
package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultReconnectDelay is the wait between losing a connection and redialing.
const DefaultReconnectDelay = 5 * time.Second

// Frame results reported to a Recorder.
const (
	FrameOK        = "ok"
	FrameMalformed = "malformed"
)

// State is the connection state of a Channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler receives events in arrival order.
type Handler func(Event)

// Recorder observes channel activity.
type Recorder interface {
	Reconnect()
	Frame(result string)
}

type handlerEntry struct {
	id int
	fn Handler
}

// Channel is a self-reconnecting event stream subscription.
// It is safe for concurrent use.
type Channel struct {
	mu      sync.Mutex
	gen     uint64
	state   State
	baseURL string
	conn    *websocket.Conn
	timer   *time.Timer
	cancel  context.CancelFunc

	handlersMu sync.Mutex
	handlers   []handlerEntry
	nextID     int

	dialer   *websocket.Dialer
	delay    time.Duration
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Channel.
type Option func(*Channel)

// WithReconnectDelay overrides the delay before a lost connection is redialed.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Channel) { c.delay = d }
}

// WithDialer sets the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Channel) { c.dialer = d }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Channel) { c.logger = l }
}

// WithRecorder sets a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Channel) { c.recorder = r }
}

// NewChannel creates a disconnected channel.
func NewChannel(opts ...Option) *Channel {
	c := &Channel{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		delay:  DefaultReconnectDelay,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect tears down any existing connection or pending reconnect and dials the event
// stream of baseURL in the background. A failed dial is handled like a lost connection.
func (c *Channel) Connect(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked(baseURL)
}

// Disconnect closes the connection and cancels any pending reconnect.
// The channel stays disconnected until the next Connect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(250*time.Millisecond))
	}
	c.teardownLocked()
}

// OnEvent registers a handler and returns a function that removes it.
// The returned function may be called any number of times.
func (c *Channel) OnEvent(fn Handler) (unsubscribe func()) {
	c.handlersMu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers = append(c.handlers, handlerEntry{id: id, fn: fn})
	c.handlersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.handlersMu.Lock()
			defer c.handlersMu.Unlock()
			for i, h := range c.handlers {
				if h.id == id {
					c.handlers = append(c.handlers[:i:i], c.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// IsConnected reports whether a connection is currently open.
func (c *Channel) IsConnected() bool {
	return c.State() == StateConnected
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) connectLocked(baseURL string) {
	c.teardownLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.baseURL = baseURL
	c.state = StateConnecting

	go c.run(ctx, c.gen, URL(baseURL))
}

// teardownLocked invalidates the current generation and releases its socket and timer.
func (c *Channel) teardownLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
}

func (c *Channel) run(ctx context.Context, gen uint64, target string) {
	conn, resp, err := c.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.logger.Warn("Event stream dial failed", zap.String("url", target), zap.Error(err))
		c.lost(gen, nil)
		return
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Info("Event stream connected", zap.String("url", target))

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.logger.Info("Event stream lost", zap.String("url", target), zap.Error(err))
			c.lost(gen, conn)
			return
		}
		if !c.current(gen) {
			return
		}
		c.dispatch(frame)
	}
}

// lost handles the end of a connection attempt or connection. It is a no-op for a
// superseded generation.
func (c *Channel) lost(gen uint64, conn *websocket.Conn) {
	if conn != nil {
		_ = conn.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.conn = nil
	c.state = StateDisconnected
	c.timer = time.AfterFunc(c.delay, func() { c.reconnect(gen) })
}

func (c *Channel) reconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return
	}
	if c.recorder != nil {
		c.recorder.Reconnect()
	}
	c.logger.Info("Reconnecting event stream", zap.String("base_url", c.baseURL))
	c.connectLocked(c.baseURL)
}

func (c *Channel) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

func (c *Channel) dispatch(frame []byte) {
	event, ok := ParseEvent(frame)
	if !ok {
		c.logger.Debug("Ignoring malformed event frame", zap.Int("bytes", len(frame)))
		c.recordFrame(FrameMalformed)
		return
	}
	c.recordFrame(FrameOK)

	c.handlersMu.Lock()
	handlers := make([]handlerEntry, len(c.handlers))
	copy(handlers, c.handlers)
	c.handlersMu.Unlock()

	for _, h := range handlers {
		h.fn(event)
	}
}

func (c *Channel) recordFrame(result string) {
	if c.recorder != nil {
		c.recorder.Frame(result)
	}
}
