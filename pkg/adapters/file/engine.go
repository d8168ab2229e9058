// Package file implements the flat-file storage engine: one JSON envelope per
// key, written atomically. It doubles as the cold-start migration source when a
// fresh SQLite engine opens next to a legacy file dataset.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/barflowtrack/barflow/pkg/core"
)

const envelopeExt = ".json"

// envelope is the on-disk shape of a record. Keeping the write timestamp next
// to the raw value lets imports and migrations preserve it.
type envelope struct {
	Value     json.RawMessage `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

// Config holds the configuration for the file engine.
type Config struct {
	Path   string // data directory, one file per key
	Logger *slog.Logger
}

// Engine implements core.Engine on a directory of JSON files.
type Engine struct {
	path   string
	logger *slog.Logger

	// Guards read-modify-write cycles across goroutines of this process.
	// Atomic rename already protects readers from torn files.
	mu sync.Mutex
}

// New creates a file engine rooted at the configured directory, creating it
// if needed.
func New(config Config) (*Engine, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("file engine requires a path")
	}
	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Engine{path: config.Path, logger: config.Logger}, nil
}

// Get returns the stored bytes for a key. A missing or unreadable envelope is
// reported as absent, never as an error: the caller's fallback path covers it.
func (e *Engine) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	filename, err := e.filename(key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Corrupt entry: self-heal by treating it as absent.
		if e.logger != nil {
			e.logger.Warn("corrupt envelope, treating as absent", "key", key, "error", err)
		}
		return nil, false, nil
	}

	return env.Value, true, nil
}

// Set stores the value under the key, overwriting atomically.
func (e *Engine) Set(ctx context.Context, key string, value []byte, ts time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filename, err := e.filename(key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope{Value: value, Timestamp: ts})
	if err != nil {
		return fmt.Errorf("failed to serialize envelope: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := writeFileAtomic(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Remove deletes a key. Removing a non-existent key is not an error.
func (e *Engine) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filename, err := e.filename(key)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// SetBatch applies writes one file at a time. A mid-batch failure leaves the
// already-applied files in place; there is no rollback.
func (e *Engine) SetBatch(ctx context.Context, records []core.Record) error {
	for _, rec := range records {
		if err := e.Set(ctx, rec.Key, rec.Value, rec.Timestamp); err != nil {
			return fmt.Errorf("batch stopped at %s: %w", rec.Key, err)
		}
	}
	return nil
}

// Keys lists every stored key, skipping temp files and foreign content.
func (e *Engine) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(e.path)
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, TempFilePrefix) || filepath.Ext(name) != envelopeExt {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, envelopeExt))
	}
	return keys, nil
}

// Close is a no-op; the engine holds no open handles between calls.
func (e *Engine) Close() error {
	return nil
}

// filename maps a key to its envelope path, rejecting keys that would escape
// the data directory.
func (e *Engine) filename(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key: %s", key)
	}
	return filepath.Join(e.path, key+envelopeExt), nil
}

var _ core.Engine = (*Engine)(nil)
