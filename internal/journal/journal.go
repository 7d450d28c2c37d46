package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dotcommander/ocn/internal/models"
)

// ErrClosed is returned by operations on a closed Journal.
var ErrClosed = errors.New("journal closed")

// List limits. A zero or negative limit means DefaultListLimit.
const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// Journal is the transition history store. It is safe for concurrent use.
type Journal struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// ListParams filters List. Zero values mean all instances and the default limit.
type ListParams struct {
	InstanceID string
	Limit      int
}

// Open opens (creating if needed) the journal at path and migrates it.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := openDB(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Journal{path: path, db: db}, nil
}

// Path returns the database path.
func (j *Journal) Path() string {
	return j.path
}

// Close releases the database. Closing twice is a no-op.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func (j *Journal) conn() (*sql.DB, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return nil, ErrClosed
	}
	return j.db, nil
}

// Record appends a transition and returns its id. At defaults to now.
func (j *Journal) Record(ctx context.Context, t models.Transition) (int64, error) {
	db, err := j.conn()
	if err != nil {
		return 0, err
	}
	if t.InstanceID == "" {
		return 0, errors.New("transition requires an instance id")
	}
	if !t.To.Valid() {
		return 0, fmt.Errorf("%w: to=%q", models.ErrUnknownStatus, t.To)
	}
	if t.At.IsZero() {
		t.At = time.Now()
	}
	if t.Source == "" {
		t.Source = models.SourcePlugin
	}

	var id int64
	err = retryWithBackoff(ctx, func() error {
		res, execErr := db.ExecContext(ctx, `
			INSERT INTO transitions
				(instance_id, pid, project, directory, session_id, from_status, to_status, subtask, source, at_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.InstanceID, t.PID, t.Project, t.Directory, t.SessionID,
			string(t.From), string(t.To), boolToInt(t.Subtask), string(t.Source), t.At.UnixMilli())
		if execErr != nil {
			return execErr
		}
		id, execErr = res.LastInsertId()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("record transition: %w", err)
	}
	return id, nil
}

// List returns transitions newest first.
func (j *Journal) List(ctx context.Context, p ListParams) ([]models.Transition, error) {
	db, err := j.conn()
	if err != nil {
		return nil, err
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT id, instance_id, pid, project, directory, session_id, from_status, to_status, subtask, source, at_ms
		FROM transitions`
	args := []any{}
	if p.InstanceID != "" {
		query += ` WHERE instance_id = ?`
		args = append(args, p.InstanceID)
	}
	query += ` ORDER BY at_ms DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []models.Transition{}
	for rows.Next() {
		t, scanErr := scanTransition(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan transition: %w", scanErr)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}

// Prune deletes transitions recorded before cutoff and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	db, err := j.conn()
	if err != nil {
		return 0, err
	}

	var n int64
	err = retryWithBackoff(ctx, func() error {
		res, execErr := db.ExecContext(ctx, `DELETE FROM transitions WHERE at_ms < ?`, before.UnixMilli())
		if execErr != nil {
			return execErr
		}
		n, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune transitions: %w", err)
	}
	return n, nil
}

func scanTransition(rows *sql.Rows) (models.Transition, error) {
	var (
		t             models.Transition
		from, to, src string
		subtask, atMS int64
	)
	if err := rows.Scan(&t.ID, &t.InstanceID, &t.PID, &t.Project, &t.Directory, &t.SessionID,
		&from, &to, &subtask, &src, &atMS); err != nil {
		return models.Transition{}, err
	}
	t.From = models.Status(from)
	t.To = models.Status(to)
	t.Subtask = subtask != 0
	t.Source = models.Source(src)
	t.At = time.UnixMilli(atMS).UTC()
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
