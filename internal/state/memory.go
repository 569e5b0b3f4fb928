package state

import (
	"context"
	"sync"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

// MemoryStore keeps the document in memory. It is the test double for
// the registry and runtime; documents are deep-copied on both sides so
// callers cannot mutate stored state without going through Write.
type MemoryStore struct {
	mu        sync.Mutex
	doc       *models.StateDocument
	failLeft  int
	writeHook func(*models.StateDocument)
}

// NewMemoryStore creates an empty MemoryStore. Read returns ErrNotFound
// until the first successful Write.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Read returns a deep copy of the stored document.
func (s *MemoryStore) Read(ctx context.Context) (*models.StateDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrNotFound
	}
	return s.doc.Clone(), nil
}

// Write stores a deep copy of the document. Like the file backend it
// rejects the write when the stored version no longer matches the one
// the caller read.
func (s *MemoryStore) Write(ctx context.Context, doc *models.StateDocument) bool {
	if doc == nil || ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLeft > 0 {
		s.failLeft--
		return false
	}
	if s.doc != nil && !s.doc.LastUpdated.Equal(doc.LastUpdated) {
		return false
	}
	doc.LastUpdated = nextVersion(doc.LastUpdated)
	s.doc = doc.Clone()
	if s.writeHook != nil {
		s.writeHook(s.doc)
	}
	return true
}

// FailWrites makes the next n Write calls report failure. Tests use
// this to exercise the optimistic-concurrency retry paths.
func (s *MemoryStore) FailWrites(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLeft = n
}

// OnWrite registers a hook invoked with the stored copy after each
// successful Write. Tests use it to interleave racing mutations.
func (s *MemoryStore) OnWrite(hook func(*models.StateDocument)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeHook = hook
}
