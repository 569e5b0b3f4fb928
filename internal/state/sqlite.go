package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

// SQLiteStore keeps the serialized document in a single-row SQLite
// table. It is the alternative durable backend for deployments where a
// shared JSON file on disk is too fragile; the registry's transaction
// logic is identical over either backend.
type SQLiteStore struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// OpenSQLite opens (and if necessary creates) the database at path.
// Parent directories are created and WAL mode is enabled for
// concurrent readers.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// One writer at a time keeps SQLITE_BUSY out of the write path.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.conn.Exec(`
	CREATE TABLE IF NOT EXISTS state_document (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		doc TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

// Read loads the current document.
func (s *SQLiteStore) Read(ctx context.Context) (*models.StateDocument, error) {
	var raw string
	err := s.conn.QueryRowContext(ctx, `SELECT doc FROM state_document WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query state document: %w", err)
	}

	var doc models.StateDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.path, err)
	}
	if doc.Tasks == nil {
		doc.Tasks = make(map[string]*models.Task)
	}
	return &doc, nil
}

// Write replaces the stored document. The stored updated_at column is
// the version token: the write is rejected when it no longer matches
// the LastUpdated the caller's document was read at.
func (s *SQLiteStore) Write(ctx context.Context, doc *models.StateDocument) bool {
	if doc == nil || ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current string
	err := s.conn.QueryRowContext(ctx, `SELECT updated_at FROM state_document WHERE id = 1`).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First write.
	case err != nil:
		return false
	case current != doc.LastUpdated.UTC().Format(time.RFC3339Nano):
		return false
	}

	doc.LastUpdated = nextVersion(doc.LastUpdated)
	data, err := json.Marshal(doc)
	if err != nil {
		return false
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO state_document (id, doc, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		string(data), doc.LastUpdated.UTC().Format(time.RFC3339Nano),
	)
	return err == nil
}
