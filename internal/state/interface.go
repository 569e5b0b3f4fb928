// Package state provides atomic persistence for the shared project
// state document. The canonical backend is a JSON file mutated only by
// whole-document read-modify-write; an in-memory double and a SQLite
// backend sit behind the same interface.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

// ErrNotFound indicates the backing state does not exist yet (first run).
var ErrNotFound = errors.New("state document not found")

// ErrCorruptState indicates the document could not be parsed after all
// retries. This is fatal and requires operator intervention.
var ErrCorruptState = errors.New("state document is corrupt")

// Store defines atomic read/write access to one state document.
//
// Read returns ErrNotFound when no document exists and ErrCorruptState
// when parsing keeps failing past the retry budget.
//
// Write is conditional: the document's LastUpdated field carries the
// version observed at read time, and the write is rejected when the
// stored version has moved on. Success is reported as a boolean;
// callers that lose the race re-read and retry rather than treating a
// false return as fatal.
type Store interface {
	Read(ctx context.Context) (*models.StateDocument, error)
	Write(ctx context.Context, doc *models.StateDocument) bool
}

// nextVersion stamps a new LastUpdated that is strictly later than the
// version being replaced, so a successful write is always observable as
// a version change even under a coarse clock.
func nextVersion(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

// Compile-time verification of the Store implementations.
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
