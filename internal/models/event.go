package models

import "time"

// DomainEvent is a raw host event translated into the status vocabulary.
// It is built fresh per raw event; only IsSubtask is set after construction.
type DomainEvent struct {
	Source          Source    `json:"source"`
	Status          Status    `json:"status"`
	Directory       string    `json:"directory"`
	Project         string    `json:"project"`
	PID             int       `json:"pid"`
	SessionID       string    `json:"session_id,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	PermissionTitle string    `json:"permission_title,omitempty"`
	QuestionTitle   string    `json:"question_title,omitempty"`
	IsSubtask       bool      `json:"is_subtask,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// InstanceState is the persisted record of one running instance.
// The JSON shape is consumed by external status tooling and must stay stable.
type InstanceState struct {
	PID            int       `json:"pid"`
	Directory      string    `json:"directory"`
	Project        string    `json:"project"`
	Status         Status    `json:"status"`
	LastTransition time.Time `json:"last_transition"`
	SessionID      string    `json:"session_id,omitempty"`
}

// Transition is one status change recorded in the history journal.
type Transition struct {
	ID         int64     `json:"id"`
	InstanceID string    `json:"instance_id"`
	PID        int       `json:"pid"`
	Project    string    `json:"project"`
	Directory  string    `json:"directory"`
	SessionID  string    `json:"session_id,omitempty"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Subtask    bool      `json:"subtask"`
	Source     Source    `json:"source"`
	At         time.Time `json:"at"`
}
