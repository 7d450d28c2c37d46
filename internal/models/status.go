package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownStatus is returned when a status string is outside the closed vocabulary.
var ErrUnknownStatus = errors.New("unknown status")

// Status is what an instance is doing right now.
type Status string

// Status constants. No other values are valid downstream of the adapter.
const (
	StatusIdle      Status = "idle"
	StatusBusy      Status = "busy"
	StatusPrompting Status = "prompting"
	StatusError     Status = "error"
)

// AllStatuses lists the vocabulary in display order.
var AllStatuses = []Status{StatusIdle, StatusBusy, StatusPrompting, StatusError} //nolint:gochecknoglobals // read-only vocabulary table

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusBusy, StatusPrompting, StatusError:
		return true
	default:
		return false
	}
}

// NeedsAttention is true for statuses that want a human: prompting or error.
func (s Status) NeedsAttention() bool {
	return s == StatusPrompting || s == StatusError
}

// ParseStatus converts a string to a Status, rejecting unknown values.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

// UnmarshalJSON rejects values outside the vocabulary so corrupt records fail to parse.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Source identifies which event feed produced a DomainEvent.
type Source string

// Source constants.
const (
	SourcePlugin  Source = "plugin"
	SourceStream  Source = "stream"
	SourceRunbook Source = "runbook"
)
