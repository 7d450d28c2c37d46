// Package monitor drives one instance: it adapts raw events, persists the
// instance record, journals transitions and hands changes to the notifier hub.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dotcommander/ocn/internal/adapter"
	"github.com/dotcommander/ocn/internal/models"
	"github.com/dotcommander/ocn/internal/state"
)

// disposedType is the host event announcing the instance is going away.
const disposedType = "server.instance.disposed"

// Dispatcher receives status changes. *notify.Hub implements it.
type Dispatcher interface {
	Notify(ctx context.Context, ev models.DomainEvent)
}

// Recorder stores transitions. *journal.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, t models.Transition) (int64, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type clearer interface {
	Clear(ctx context.Context)
}

// Options wires a Monitor. InstanceID, Store and Hub are required; Journal is optional.
type Options struct {
	InstanceID string
	Context    adapter.Context
	Store      *state.Store
	Hub        Dispatcher
	Journal    Recorder
	// Retention prunes journal rows older than this on Start. Zero keeps everything.
	Retention time.Duration
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Monitor is the per-instance controller. Handle must be called from a
// single goroutine; events are processed one at a time.
type Monitor struct {
	opts    Options
	adapter *adapter.Adapter
	log     *slog.Logger
	now     func() time.Time

	current models.Status
}

// New validates opts and returns a Monitor whose status starts at idle.
func New(opts Options) (*Monitor, error) {
	if opts.InstanceID == "" {
		return nil, errors.New("monitor requires an instance id")
	}
	if opts.Store == nil {
		return nil, errors.New("monitor requires a state store")
	}
	if opts.Hub == nil {
		return nil, errors.New("monitor requires a notifier hub")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Monitor{
		opts:    opts,
		adapter: adapter.New(adapter.WithClock(opts.Clock)),
		log:     opts.Logger.With("instance", opts.InstanceID, "project", opts.Context.ProjectName),
		now:     opts.Clock,
		current: models.StatusIdle,
	}, nil
}

// Current returns the last recorded status.
func (m *Monitor) Current() models.Status {
	return m.current
}

// Start prunes records of dead instances and old journal rows. Failures are logged.
func (m *Monitor) Start(ctx context.Context) {
	if removed, err := m.opts.Store.CleanupStale(); err != nil {
		m.log.Warn("cleanup stale state failed", "error", err)
	} else if removed > 0 {
		m.log.Debug("removed stale state", "count", removed)
	}

	if m.opts.Journal != nil && m.opts.Retention > 0 {
		cutoff := m.now().Add(-m.opts.Retention)
		if n, err := m.opts.Journal.Prune(ctx, cutoff); err != nil {
			m.log.Warn("prune history failed", "error", err)
		} else if n > 0 {
			m.log.Debug("pruned history", "rows", n)
		}
	}

	m.log.Info("initialized", "pid", m.opts.Context.PID, "directory", m.opts.Context.Directory)
}

// Handle processes one raw event. It never fails; I/O errors are logged.
func (m *Monitor) Handle(ctx context.Context, raw adapter.RawEvent) {
	if raw.Type == disposedType {
		m.removeState()
		m.log.Info("disposed, removed state file")
		return
	}

	ev := m.adapter.Adapt(raw, m.opts.Context)
	if ev == nil {
		return
	}

	previous := m.current
	m.current = ev.Status

	record := models.InstanceState{
		PID:            m.opts.Context.PID,
		Directory:      m.opts.Context.Directory,
		Project:        m.opts.Context.ProjectName,
		Status:         m.current,
		LastTransition: m.now().UTC(),
		SessionID:      ev.SessionID,
	}
	if err := m.opts.Store.Write(m.opts.InstanceID, record); err != nil {
		m.log.Warn("write state failed", "error", err)
	}

	if previous == m.current {
		return
	}

	m.log.Debug("transition", "from", previous, "to", m.current, "subtask", ev.IsSubtask)
	m.journal(ctx, previous, *ev)
	m.opts.Hub.Notify(ctx, *ev)
}

// Close removes the instance record and clears notifier state such as the
// tmux pane badge.
func (m *Monitor) Close(ctx context.Context) {
	m.removeState()
	if c, ok := m.opts.Hub.(clearer); ok {
		c.Clear(ctx)
	}
}

func (m *Monitor) journal(ctx context.Context, from models.Status, ev models.DomainEvent) {
	if m.opts.Journal == nil {
		return
	}
	_, err := m.opts.Journal.Record(ctx, models.Transition{
		InstanceID: m.opts.InstanceID,
		PID:        ev.PID,
		Project:    ev.Project,
		Directory:  ev.Directory,
		SessionID:  ev.SessionID,
		From:       from,
		To:         ev.Status,
		Subtask:    ev.IsSubtask,
		Source:     ev.Source,
		At:         ev.Timestamp,
	})
	if err != nil {
		m.log.Warn("record transition failed", "error", err)
	}
}

func (m *Monitor) removeState() {
	if err := m.opts.Store.Remove(m.opts.InstanceID); err != nil {
		m.log.Warn("remove state failed", "error", err)
	}
}
