package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

const (
	// maxReadAttempts bounds parse retries when a racing writer leaves
	// a momentarily unreadable file behind.
	maxReadAttempts = 10
	// readBackoff is the base delay between read attempts; the actual
	// delay grows linearly with the attempt count.
	readBackoff = 10 * time.Millisecond
	// lockPoll is the spin interval while a writer's lock marker exists.
	lockPoll = 10 * time.Millisecond
	// maxLockWait bounds the spin so a stale marker from a killed
	// writer cannot block readers forever.
	maxLockWait = 2 * time.Second

	lockSuffix = ".lock"
	tmpSuffix  = ".tmp"
)

// FileStore persists the state document as one JSON file, writable by
// several OS processes on a shared filesystem.
//
// Writes serialize through an in-process mutex, then signal intent to
// other processes with a sibling lock-marker file, and land via an
// atomic rename of a temp file in the same directory. Before renaming,
// the writer re-reads the on-disk version and rejects the write if it
// no longer matches the version the caller read; the marker file is
// only a contention-reduction heuristic on top of that check.
type FileStore struct {
	fs       afero.Fs
	path     string
	lockPath string
	mu       sync.Mutex
}

// NewFileStore creates a FileStore over the OS filesystem.
func NewFileStore(path string) *FileStore {
	return NewFileStoreFS(afero.NewOsFs(), path)
}

// NewFileStoreFS creates a FileStore over an arbitrary filesystem.
// Tests use this with an in-memory fs.
func NewFileStoreFS(fs afero.Fs, path string) *FileStore {
	return &FileStore{
		fs:       fs,
		path:     path,
		lockPath: path + lockSuffix,
	}
}

// Path returns the canonical document path.
func (s *FileStore) Path() string {
	return s.path
}

// Read loads the current document. It waits out an active writer's lock
// marker, then parses the file, retrying with linear backoff if a
// partial write from a racing process makes the content unreadable.
func (s *FileStore) Read(ctx context.Context) (*models.StateDocument, error) {
	var lastErr error
	for attempt := 0; attempt < maxReadAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, time.Duration(attempt)*readBackoff); err != nil {
				return nil, err
			}
		}

		if err := s.waitForWriter(ctx); err != nil {
			return nil, err
		}

		exists, err := afero.Exists(s.fs, s.path)
		if err != nil {
			lastErr = err
			continue
		}
		if !exists {
			return nil, ErrNotFound
		}

		data, err := afero.ReadFile(s.fs, s.path)
		if err != nil {
			lastErr = err
			continue
		}

		var doc models.StateDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			lastErr = err
			continue
		}
		if doc.Tasks == nil {
			doc.Tasks = make(map[string]*models.Task)
		}
		return &doc, nil
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.path, lastErr)
}

// Write persists the document atomically. It returns false instead of
// an error so callers decide whether to re-read and retry; a false
// return also covers losing the optimistic race, detected by comparing
// the stored LastUpdated against the one the caller read.
func (s *FileStore) Write(ctx context.Context, doc *models.StateDocument) bool {
	if doc == nil || ctx.Err() != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Best-effort cross-process signal that a write is underway.
	_ = afero.WriteFile(s.fs, s.lockPath, nil, 0o644)
	defer func() {
		_ = s.fs.Remove(s.lockPath)
	}()

	if !s.versionMatches(doc.LastUpdated) {
		return false
	}

	doc.LastUpdated = nextVersion(doc.LastUpdated)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return false
	}

	tmpPath := s.path + tmpSuffix
	if err := afero.WriteFile(s.fs, tmpPath, data, 0o644); err != nil {
		_ = s.fs.Remove(tmpPath)
		return false
	}
	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return false
	}
	return true
}

// versionMatches re-reads the stored LastUpdated and compares it to the
// version the caller's document was read at. A missing or unreadable
// file matches anything so first writes and crash recovery can proceed.
func (s *FileStore) versionMatches(expected time.Time) bool {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return true
	}
	var current struct {
		LastUpdated time.Time `json:"last_updated"`
	}
	if err := json.Unmarshal(data, &current); err != nil {
		return true
	}
	return current.LastUpdated.Equal(expected)
}

// waitForWriter spins while another process's lock marker exists.
// The wait is bounded: a marker that outlives maxLockWait is treated as
// stale debris from a killed writer and ignored.
func (s *FileStore) waitForWriter(ctx context.Context) error {
	deadline := time.Now().Add(maxLockWait)
	for time.Now().Before(deadline) {
		locked, err := afero.Exists(s.fs, s.lockPath)
		if err != nil || !locked {
			return nil
		}
		if err := sleepCtx(ctx, lockPoll); err != nil {
			return err
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
