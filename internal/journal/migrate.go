package journal

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// gooseMu serializes access to goose's package-level configuration.
var gooseMu sync.Mutex //nolint:gochecknoglobals // guards goose globals

// migrateDB runs pending migrations holding the file lock, so instances that
// start together do not race on the schema. In-memory databases skip the lock.
func migrateDB(db *sql.DB, path string) error {
	if !isInMemory(path) {
		lock, err := acquireSchemaLock(path)
		if err != nil {
			return err
		}
		defer lock.release()
	}
	return runMigrations(db)
}

func runMigrations(db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetVerbose(false)
	goose.SetLogger(goose.NopLogger())

	// goose uses "sqlite3" as its dialect name regardless of the underlying driver.
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// SchemaVersion returns the applied migration version.
func (j *Journal) SchemaVersion() (int64, error) {
	db, err := j.conn()
	if err != nil {
		return 0, err
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}
	return goose.GetDBVersion(db)
}
