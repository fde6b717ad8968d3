// Package watch streams live change events to a terminal, either straight from a
// realtime channel or from a Redis relay.
package watch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/murdash/pkg/realtime"
)

// Source is anything that delivers realtime events to subscribed handlers.
// *realtime.Channel satisfies it.
type Source interface {
	OnEvent(fn realtime.Handler) (unsubscribe func())
}

// Options configures a stream.
type Options struct {
	Format OutputFormat
	Filter func(realtime.Event) bool // Nil passes every event
	Now    func() time.Time          // Nil uses time.Now
}

// StreamActivity writes every event from src until ctx is cancelled.
// Returns nil on cancellation and the first write error otherwise.
func StreamActivity(ctx context.Context, src Source, opts Options, w io.Writer) error {
	f, err := newFormatter(opts.Format, w, clock(opts.Now))
	if err != nil {
		return err
	}

	var (
		mu       sync.Mutex
		writeErr error
		failed   = make(chan struct{})
	)

	unsubscribe := src.OnEvent(func(ev realtime.Event) {
		if opts.Filter != nil && !opts.Filter(ev) {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if writeErr != nil {
			return
		}
		if err := f.FormatEvent(ev); err != nil {
			writeErr = fmt.Errorf("failed to write event: %w", err)
			close(failed)
		}
	})
	defer unsubscribe()

	select {
	case <-ctx.Done():
		return nil
	case <-failed:
		mu.Lock()
		defer mu.Unlock()
		return writeErr
	}
}

// StreamChannel writes every event received on events until ctx is cancelled or
// events is closed. Errors received on errs are passed to onError and do not stop the stream.
func StreamChannel(ctx context.Context, events <-chan realtime.Event, errs <-chan error, onError func(error), opts Options, w io.Writer) error {
	f, err := newFormatter(opts.Format, w, clock(opts.Now))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if onError != nil {
				onError(err)
			}

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if opts.Filter != nil && !opts.Filter(ev) {
				continue
			}
			if err := f.FormatEvent(ev); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
		}
	}
}

// TypeFilter returns a filter accepting events whose type starts with any of the
// given prefixes, e.g. "pattern." or "workflow.deleted". No prefixes accepts everything.
func TypeFilter(prefixes ...string) func(realtime.Event) bool {
	if len(prefixes) == 0 {
		return nil
	}
	return func(ev realtime.Event) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(ev.Type, p) {
				return true
			}
		}
		return false
	}
}

func clock(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
