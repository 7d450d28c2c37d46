// Package adapter turns loosely typed host runtime events into DomainEvents
// and tags events that belong to nested sub-sessions.
package adapter

import (
	"time"

	"github.com/dotcommander/ocn/internal/models"
)

// Context describes the instance the events come from.
type Context struct {
	Directory   string
	ProjectName string
	PID         int
	Source      models.Source
}

// Adapter maps raw events onto the status vocabulary. It owns the session
// registry, so one Adapter serves one event stream. It is not safe for
// concurrent use; events are expected one at a time.
type Adapter struct {
	registry *SessionRegistry
	now      func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New returns an Adapter with an empty session registry.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		registry: NewSessionRegistry(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry exposes the child-session registry.
func (a *Adapter) Registry() *SessionRegistry {
	return a.registry
}

// Adapt translates raw into a DomainEvent. It returns nil for session.created
// (registration only), unknown types, and unknown session.status values.
// Malformed fields are treated as missing; Adapt never fails.
func (a *Adapter) Adapt(raw RawEvent, ctx Context) *models.DomainEvent {
	kind := Classify(raw.Type)
	props := raw.Properties
	if props == nil {
		props = map[string]any{}
	}

	if kind == KindSessionCreated {
		a.registry.observeCreated(props)
		return nil
	}

	ev := a.translate(kind, props, ctx)
	if ev == nil {
		return nil
	}
	if a.registry.Contains(ev.SessionID) {
		ev.IsSubtask = true
	}
	return ev
}

func (a *Adapter) translate(kind Kind, p map[string]any, ctx Context) *models.DomainEvent {
	var (
		status models.Status
		ev     models.DomainEvent
	)

	switch kind {
	case KindSessionIdle:
		status = models.StatusIdle
	case KindSessionError:
		status = models.StatusError
		errObj := obj(p["error"])
		ev.ErrorMessage = str(errObj["message"])
		if ev.ErrorMessage == "" {
			ev.ErrorMessage = str(obj(errObj["data"])["message"])
		}
	case KindPermissionUpdated:
		status = models.StatusPrompting
		ev.PermissionTitle = str(p["title"])
	case KindPermissionAsked:
		status = models.StatusPrompting
		ev.PermissionTitle = str(p["title"])
		if ev.PermissionTitle == "" {
			ev.PermissionTitle = str(p["permission"])
		}
	case KindQuestionAsked:
		status = models.StatusPrompting
		ev.QuestionTitle = str(first(p["questions"])["header"])
	case KindPermissionReplied, KindQuestionReplied, KindQuestionRejected:
		status = models.StatusBusy
	case KindSessionStatus:
		switch str(obj(p["status"])["type"]) {
		case "busy", "retry":
			status = models.StatusBusy
		case "idle":
			status = models.StatusIdle
		default:
			return nil
		}
	case KindSessionCreated, KindUnrecognized:
		return nil
	default:
		return nil
	}

	source := ctx.Source
	if source == "" {
		source = models.SourcePlugin
	}

	ev.Source = source
	ev.Status = status
	ev.Directory = ctx.Directory
	ev.Project = ctx.ProjectName
	ev.PID = ctx.PID
	ev.SessionID = str(p["sessionID"])
	ev.Timestamp = a.now().UTC()
	return &ev
}
