package journal

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// schemaLockSuffix names the file, next to the history database, that
// guards migrations.
const schemaLockSuffix = ".migrate.lock"

// schemaLock is held while migrating. Every instance opens the shared
// history database at startup, so only one of them may run goose at a time.
type schemaLock struct {
	f *os.File
}

// acquireSchemaLock blocks until the exclusive lock for dbPath is held.
// The database directory must already exist.
func acquireSchemaLock(dbPath string) (*schemaLock, error) {
	path := dbPath + schemaLockSuffix
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // G304: derived from the history path
	if err != nil {
		return nil, fmt.Errorf("open history schema lock: %w", err)
	}

	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock history schema %s: %w", path, err)
	}
	return &schemaLock{f: f}, nil
}

// release drops the lock. Safe on a nil lock.
func (l *schemaLock) release() {
	if l == nil || l.f == nil {
		return
	}
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	_ = l.f.Close()
	l.f = nil
}
