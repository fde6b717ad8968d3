package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/murdash/pkg/realtime"
)

// OutputFormat specifies how to format watch output.
type OutputFormat string

const (
	// OutputFormatDefault prints one human-readable line per event
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON prints each event frame as line-delimited JSON
	OutputFormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a user-supplied --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputFormatDefault:
		return OutputFormatDefault, nil
	case OutputFormatJSON:
		return OutputFormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (must be 'default' or 'json')", s)
	}
}

// formatter renders events to a writer. Implementations are not safe for concurrent use.
type formatter interface {
	FormatEvent(ev realtime.Event) error
}

func newFormatter(format OutputFormat, w io.Writer, now func() time.Time) (formatter, error) {
	switch format {
	case OutputFormatDefault, "":
		return &defaultFormatter{writer: w, now: now}, nil
	case OutputFormatJSON:
		return &jsonFormatter{writer: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// defaultFormatter prints "[HH:MM:SS] <icon> <Entity> <action>: id=<id>".
type defaultFormatter struct {
	writer io.Writer
	now    func() time.Time
}

func (f *defaultFormatter) FormatEvent(ev realtime.Event) error {
	entity, action := splitType(ev.Type)

	line := fmt.Sprintf("[%s] %s %s", f.timestamp(ev), icon(action), describe(entity, action))
	if ev.ID != "" {
		line += fmt.Sprintf(": id=%s", ev.ID)
	}

	_, err := fmt.Fprintln(f.writer, line)
	return err
}

// timestamp prefers the event's own time and falls back to the local clock.
func (f *defaultFormatter) timestamp(ev realtime.Event) string {
	if ts, err := time.Parse(time.RFC3339Nano, ev.TS); err == nil {
		return ts.Local().Format(time.TimeOnly)
	}
	return f.now().Format(time.TimeOnly)
}

// jsonFormatter forwards the original frame verbatim, one per line.
type jsonFormatter struct {
	writer io.Writer
}

func (f *jsonFormatter) FormatEvent(ev realtime.Event) error {
	payload := []byte(ev.Raw)
	if len(payload) == 0 {
		var err error
		payload, err = json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
	}

	if _, err := fmt.Fprintf(f.writer, "%s\n", payload); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}

// splitType splits "pattern.updated" into ("pattern", "updated").
func splitType(eventType string) (string, string) {
	entity, action, found := strings.Cut(eventType, ".")
	if !found {
		return "", eventType
	}
	return entity, action
}

func icon(action string) string {
	switch action {
	case "created":
		return "✨"
	case "updated":
		return "✏️ "
	case "deleted":
		return "🗑️ "
	case "archived":
		return "📦"
	default:
		return "📡"
	}
}

func describe(entity, action string) string {
	if action == "" {
		action = "event"
	}
	if entity == "" {
		return capitalize(action)
	}
	return capitalize(entity) + " " + action
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
