package realtime

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Event is a change notification pushed by the backend.
// Type is free text such as "pattern.updated"; ID names the changed entity.
type Event struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`
	TS   string          `json:"ts"`
	Raw  json.RawMessage `json:"-"`
}

// ParseEvent decodes one inbound frame. Frames that are not a JSON object are rejected.
func ParseEvent(frame []byte) (Event, bool) {
	if !gjson.ValidBytes(frame) {
		return Event{}, false
	}
	root := gjson.ParseBytes(frame)
	if !root.IsObject() {
		return Event{}, false
	}

	return Event{
		Type: root.Get("type").String(),
		ID:   root.Get("id").String(),
		TS:   root.Get("ts").String(),
		Raw:  json.RawMessage(root.Raw),
	}, true
}

// URL derives the event stream address from a backend base URL:
// http becomes ws, https becomes wss, and /api/v1/ws is appended.
func URL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if strings.HasPrefix(base, "http") {
		base = "ws" + strings.TrimPrefix(base, "http")
	}
	return base + "/api/v1/ws"
}
