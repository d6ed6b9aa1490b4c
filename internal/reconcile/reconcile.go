// Package reconcile extracts lists from backend payloads whose shape is not fixed.
//
// A payload is probed with an ordered list of strategies. The first strategy that
// finds a structurally valid list wins; when none does, the result is an empty list.
// Probing never fails: malformed JSON and unknown shapes both reconcile to nothing.
package reconcile

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Strategy locates a list inside a payload.
type Strategy struct {
	Name    string
	Extract func(payload gjson.Result) (gjson.Result, bool)
}

// BareList matches a payload that is itself a JSON array.
func BareList() Strategy {
	return Strategy{
		Name: "list",
		Extract: func(payload gjson.Result) (gjson.Result, bool) {
			return payload, payload.IsArray()
		},
	}
}

// Field matches a top-level object field holding a JSON array.
func Field(key string) Strategy {
	return Strategy{
		Name: key,
		Extract: func(payload gjson.Result) (gjson.Result, bool) {
			if !payload.IsObject() {
				return gjson.Result{}, false
			}
			v, ok := payload.Map()[key]
			return v, ok && v.IsArray()
		},
	}
}

// SearchShapes is the probing order for search responses.
func SearchShapes() []Strategy {
	return []Strategy{BareList(), Field("results"), Field("matches"), Field("data")}
}

// ListShapes is the probing order for admin lists keyed by lifecycle state.
func ListShapes(key string) []Strategy {
	return []Strategy{Field(key), BareList()}
}

// Result describes what a probe found.
type Result struct {
	Items    []json.RawMessage
	Strategy string // name of the winning strategy, empty when nothing matched
}

// Probe runs strategies in order against the payload.
func Probe(payload []byte, strategies ...Strategy) Result {
	if !gjson.ValidBytes(payload) {
		return Result{Items: []json.RawMessage{}}
	}
	parsed := gjson.ParseBytes(payload)
	for _, s := range strategies {
		list, ok := s.Extract(parsed)
		if !ok {
			continue
		}
		items := make([]json.RawMessage, 0, len(list.Array()))
		for _, item := range list.Array() {
			items = append(items, json.RawMessage(item.Raw))
		}
		return Result{Items: items, Strategy: s.Name}
	}
	return Result{Items: []json.RawMessage{}}
}

// Items returns the list found by the first matching strategy, or an empty list.
func Items(payload []byte, strategies ...Strategy) []json.RawMessage {
	return Probe(payload, strategies...).Items
}

// Decode reconciles the payload and unmarshals each item into T.
// Items that do not decode into T are skipped and counted.
func Decode[T any](payload []byte, strategies ...Strategy) (items []T, skipped int) {
	raw := Items(payload, strategies...)
	items = make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			skipped++
			continue
		}
		items = append(items, v)
	}
	return items, skipped
}
