package adapter

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// UnwrapList returns the elements of a list response in either dialect.
// A bare array yields its elements; an object whose "data" is an array yields those.
// Anything else, including malformed JSON, yields an empty, non-nil slice.
func UnwrapList(body []byte) []json.RawMessage {
	items := []json.RawMessage{}
	if !gjson.ValidBytes(body) {
		return items
	}

	list := gjson.ParseBytes(body)
	if list.IsObject() {
		list = list.Get("data")
	}
	if !list.IsArray() {
		return items
	}

	list.ForEach(func(_, value gjson.Result) bool {
		items = append(items, json.RawMessage(value.Raw))
		return true
	})
	return items
}

// UnwrapOne returns the "data" member of an enveloped response when it is truthy,
// otherwise the body itself. Truthiness follows the usual loose rules: null, false,
// 0 and "" are falsy.
func UnwrapOne(body []byte) json.RawMessage {
	if !gjson.ValidBytes(body) {
		return body
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return body
	}

	data := root.Get("data")
	if !truthy(data) {
		return body
	}
	return json.RawMessage(data.Raw)
}

// Envelope reports whether body uses the {data, meta} envelope.
func Envelope(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	root := gjson.ParseBytes(body)
	return root.IsObject() && root.Get("data").Exists()
}

// ReadMeta extracts the metadata block of an enveloped response, if any.
func ReadMeta(body []byte) (Meta, bool) {
	if !gjson.ValidBytes(body) {
		return Meta{}, false
	}
	meta := gjson.GetBytes(body, "meta")
	if !meta.IsObject() {
		return Meta{}, false
	}
	return Meta{
		Source:       meta.Get("source").String(),
		Version:      meta.Get("version").String(),
		PatternCount: int(meta.Get("pattern_count").Int()),
	}, true
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	default:
		return true
	}
}
