// Package state persists one status record per running instance as a JSON
// file in a shared directory, and prunes records whose process has exited.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dotcommander/ocn/internal/models"
)

const recordExt = ".json"

// ErrInvalidInstanceID is returned for ids that cannot name a file in the state directory.
var ErrInvalidInstanceID = errors.New("invalid instance id")

// Store reads and writes instance records under a single directory.
// Each instance writes only its own file; there is no cross-process locking.
type Store struct {
	dir   string
	alive func(pid int) bool
	log   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLiveness replaces the process liveness check used by CleanupStale.
func WithLiveness(alive func(pid int) bool) Option {
	return func(s *Store) { s.alive = alive }
}

// WithLogger sets the logger used for skipped and removed records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns a Store rooted at dir. The directory is created on first write.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:   dir,
		alive: ProcessAlive,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the state directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the record path for an instance id.
func (s *Store) Path(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id+recordExt), nil
}

// Write overwrites the record for id. Last write wins; records are never merged.
// The file is replaced by rename so concurrent readers see either the old or
// the new content.
func (s *Store) Write(id string, st models.InstanceState) error {
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("chmod state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// ReadAll returns every parseable record in the directory, ordered by file
// name. Unreadable or corrupt files are skipped. A missing directory yields
// an empty result.
func (s *Store) ReadAll() ([]models.InstanceState, error) {
	names, err := s.recordNames()
	if err != nil {
		return nil, err
	}

	states := make([]models.InstanceState, 0, len(names))
	for _, name := range names {
		st, err := readRecord(filepath.Join(s.dir, name))
		if err != nil {
			s.log.Debug("skipping state record", "file", name, "error", err)
			continue
		}
		states = append(states, st)
	}
	return states, nil
}

// CleanupStale deletes records whose pid is no longer alive, as well as
// records that cannot be parsed. It returns the number of files removed.
func (s *Store) CleanupStale() (int, error) {
	names, err := s.recordNames()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		st, err := readRecord(path)
		if err == nil && s.alive(st.PID) {
			continue
		}

		if rmErr := os.Remove(path); rmErr != nil {
			if !errors.Is(rmErr, os.ErrNotExist) {
				s.log.Warn("remove stale state failed", "file", name, "error", rmErr)
			}
			continue
		}
		removed++
		if err != nil {
			s.log.Debug("removed unparseable state", "file", name, "error", err)
		} else {
			s.log.Debug("removed stale state", "file", name, "pid", st.PID)
		}
	}
	return removed, nil
}

// Remove deletes the record for id. A missing record is not an error.
func (s *Store) Remove(id string) error {
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove state: %w", err)
	}
	return nil
}

func (s *Store) recordNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func readRecord(path string) (models.InstanceState, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is built from the state dir listing
	if err != nil {
		return models.InstanceState{}, err
	}
	var st models.InstanceState
	if err := json.Unmarshal(data, &st); err != nil {
		return models.InstanceState{}, err
	}
	if !st.Status.Valid() {
		return models.InstanceState{}, fmt.Errorf("%w: %q", models.ErrUnknownStatus, st.Status)
	}
	return st, nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidInstanceID, id)
	}
	return nil
}
