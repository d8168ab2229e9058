// Package sqlite implements the primary storage engine on a single SQLite
// table. One row per key; values are opaque JSON blobs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/barflowtrack/barflow/pkg/core"
)

// Config holds the configuration for the sqlite engine.
type Config struct {
	Path   string // database file; parent directories are created as needed
	Logger *slog.Logger
}

// Engine implements core.Engine backed by SQLite.
type Engine struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the database and runs the schema migration.
func New(config Config) (*Engine, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("sqlite engine requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+config.Path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	engine := &Engine{db: db, logger: config.Logger}
	if err := engine.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return engine, nil
}

func (e *Engine) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		timestamp DATETIME NOT NULL
	);
	`
	_, err := e.db.Exec(schema)
	return err
}

// Get returns the stored bytes for a key. An absent key is not an error.
func (e *Engine) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := e.db.QueryRowContext(ctx, "SELECT value FROM records WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the value for a key. The row replace is atomic; readers never
// observe a half-written value.
func (e *Engine) Set(ctx context.Context, key string, value []byte, ts time.Time) error {
	_, err := e.db.ExecContext(ctx,
		"INSERT INTO records (key, value, timestamp) VALUES (?, ?, ?) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value, timestamp = excluded.timestamp",
		key, value, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Remove deletes a key. Removing a non-existent key is not an error.
func (e *Engine) Remove(ctx context.Context, key string) error {
	if _, err := e.db.ExecContext(ctx, "DELETE FROM records WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// SetBatch applies all writes in one transaction. Unlike the file engine this
// happens to be all-or-nothing, but callers must not rely on it: the Engine
// contract only promises best effort.
func (e *Engine) SetBatch(ctx context.Context, records []core.Record) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}

	for _, rec := range records {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO records (key, value, timestamp) VALUES (?, ?, ?) "+
				"ON CONFLICT(key) DO UPDATE SET value = excluded.value, timestamp = excluded.timestamp",
			rec.Key, rec.Value, rec.Timestamp,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("batch stopped at %s: %w", rec.Key, err)
		}
	}

	return tx.Commit()
}

// Keys lists every stored key in sorted order.
func (e *Engine) Keys(ctx context.Context) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, "SELECT key FROM records ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the underlying database.
func (e *Engine) Close() error {
	return e.db.Close()
}

var _ core.Engine = (*Engine)(nil)
