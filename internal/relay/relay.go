// Package relay republishes realtime events on a Redis Pub/Sub channel so that consumers
// on other hosts can follow the same change stream without their own WebSocket.
//
// Delivery is at-most-once: Redis Pub/Sub drops messages for subscribers that are not
// connected at publish time.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dyluth/murdash/pkg/realtime"
)

// DefaultPublishTimeout bounds a publish issued from an event handler
const DefaultPublishTimeout = 2 * time.Second

// Relay publishes and subscribes to realtime events on one Redis channel.
// The relay is thread-safe and can be used concurrently from multiple goroutines.
type Relay struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
	timeout time.Duration
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger used for publish failures in Handler.
func WithLogger(l *zap.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

// WithPublishTimeout bounds each publish issued from Handler.
func WithPublishTimeout(d time.Duration) Option {
	return func(r *Relay) { r.timeout = d }
}

// New creates a relay from a redis:// or rediss:// URL.
func New(redisURL, channel string, opts ...Option) (*Relay, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return NewWithOptions(redisOpts, channel, opts...)
}

// NewWithOptions creates a relay from explicit connection options.
// Returns an error if channel is empty.
func NewWithOptions(redisOpts *redis.Options, channel string, opts ...Option) (*Relay, error) {
	if channel == "" {
		return nil, fmt.Errorf("relay channel cannot be empty")
	}

	r := &Relay{
		rdb:     redis.NewClient(redisOpts),
		channel: channel,
		logger:  zap.NewNop(),
		timeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Channel returns the Redis channel name.
func (r *Relay) Channel() string {
	return r.channel
}

// Close closes the Redis connection. Implements io.Closer.
func (r *Relay) Close() error {
	return r.rdb.Close()
}

// Ping verifies Redis connectivity.
func (r *Relay) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Publish sends one event. The original frame is forwarded verbatim when available.
// Returns the number of subscribers that received it.
func (r *Relay) Publish(ctx context.Context, ev realtime.Event) (int64, error) {
	payload := []byte(ev.Raw)
	if len(payload) == 0 {
		var err error
		payload, err = json.Marshal(ev)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal event: %w", err)
		}
	}

	n, err := r.rdb.Publish(ctx, r.channel, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}
	return n, nil
}

// Handler returns a realtime.Handler that republishes every event.
// Publish failures are logged and never interrupt the event stream.
func (r *Relay) Handler() realtime.Handler {
	return func(ev realtime.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if _, err := r.Publish(ctx, ev); err != nil {
			r.logger.Warn("relay publish failed",
				zap.String("channel", r.channel),
				zap.String("type", ev.Type),
				zap.Error(err))
		}
	}
}

// Subscription represents an active subscription to relayed events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan realtime.Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of relayed events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan realtime.Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// Malformed messages are reported here and skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe subscribes to relayed events. It returns once Redis has confirmed the
// subscription, so events published afterwards are not missed.
//
// Events are delivered on a buffered channel (size 10).
func (r *Relay) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	eventsChan := make(chan realtime.Event, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				ev, ok := realtime.ParseEvent([]byte(msg.Payload))
				if !ok {
					select {
					case errorsChan <- fmt.Errorf("malformed relayed event on %s", msg.Channel):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
