package adapter

import (
	"encoding/json"
	"errors"
)

// RawEvent is an event as emitted by the host runtime. The schema belongs to
// the host; every field may be missing or of the wrong type.
type RawEvent struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// Kind is the closed set of raw event types the adapter understands.
type Kind int

// Kind constants. KindUnrecognized covers every other type string.
const (
	KindUnrecognized Kind = iota
	KindSessionIdle
	KindSessionError
	KindSessionStatus
	KindSessionCreated
	KindPermissionUpdated
	KindPermissionAsked
	KindPermissionReplied
	KindQuestionAsked
	KindQuestionReplied
	KindQuestionRejected
)

var kindByType = map[string]Kind{ //nolint:gochecknoglobals // read-only mapping table
	"session.idle":       KindSessionIdle,
	"session.error":      KindSessionError,
	"session.status":     KindSessionStatus,
	"session.created":    KindSessionCreated,
	"permission.updated": KindPermissionUpdated,
	"permission.asked":   KindPermissionAsked,
	"permission.replied": KindPermissionReplied,
	"question.asked":     KindQuestionAsked,
	"question.replied":   KindQuestionReplied,
	"question.rejected":  KindQuestionRejected,
}

// Classify maps a raw type string onto its Kind.
func Classify(eventType string) Kind {
	if k, ok := kindByType[eventType]; ok {
		return k
	}
	return KindUnrecognized
}

// String returns the raw type string for the kind.
func (k Kind) String() string {
	for name, v := range kindByType {
		if v == k {
			return name
		}
	}
	return "unrecognized"
}

var errNotObject = errors.New("raw event is not a JSON object")

// DecodeRawEvent parses one JSON-encoded host event. Only input that is not a
// JSON object at all is an error; a mistyped type or properties field
// degrades to an empty value.
func DecodeRawEvent(data []byte) (RawEvent, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return RawEvent{}, errors.Join(errNotObject, err)
	}
	if envelope == nil {
		return RawEvent{}, errNotObject
	}

	var ev RawEvent
	if t, ok := envelope["type"]; ok {
		_ = json.Unmarshal(t, &ev.Type)
	}
	if p, ok := envelope["properties"]; ok {
		_ = json.Unmarshal(p, &ev.Properties)
	}
	if ev.Properties == nil {
		ev.Properties = map[string]any{}
	}
	return ev, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func obj(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func first(v any) map[string]any {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	return obj(items[0])
}
