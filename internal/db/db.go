package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	workspaceDir = ".bob"
	fileName     = "bob.db"

	defaultBusyTimeout = 5 * time.Second
)

// Config locates the database. File, when set, wins over the workspace
// layout. A relative File is resolved against the workspace.
type Config struct {
	Workspace   string
	File        string
	BusyTimeout time.Duration
}

func (c Config) file() string {
	if c.File != "" {
		if filepath.IsAbs(c.File) || c.Workspace == "" {
			return c.File
		}
		return filepath.Join(c.Workspace, c.File)
	}
	return Path(c.Workspace)
}

// EnsureWorkspace creates <workspace>/.bob and returns its path.
func EnsureWorkspace(workspace string) (string, error) {
	if workspace == "" {
		workspace = "."
	}
	dir := filepath.Join(workspace, workspaceDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace %s: %w", dir, err)
	}
	return dir, nil
}

// Open opens the SQLite database and checks it answers. Foreign keys are
// enforced and writers wait up to BusyTimeout for a lock.
func Open(cfg Config) (*sql.DB, error) {
	file := cfg.file()
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", file, busy.Milliseconds())
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), busy)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open %s: %w", file, err)
	}
	return conn, nil
}

// Path returns where the database of a workspace lives.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, workspaceDir, fileName)
}
