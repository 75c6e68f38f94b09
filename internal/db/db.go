package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const defaultDBName = "testbuilder.db"

type Config struct {
	Workdir string
}

func dbPath(workdir string) string {
	if workdir == "" {
		workdir = "."
	}
	return filepath.Join(workdir, ".testbuilder", defaultDBName)
}

// EnsureStateDir creates the run-log directory if missing.
func EnsureStateDir(workdir string) (string, error) {
	if workdir == "" {
		workdir = "."
	}
	path := filepath.Join(workdir, ".testbuilder")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// Open opens the run-log SQLite database for a working directory.
func Open(cfg Config) (*sql.DB, error) {
	if _, err := EnsureStateDir(cfg.Workdir); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", dbPath(cfg.Workdir))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Path returns the db path for the working directory.
func Path(workdir string) string {
	return dbPath(workdir)
}
