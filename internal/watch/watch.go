// Package watch wakes a work loop when the shared state document
// changes on disk. It exists because writers land via atomic rename:
// polling the file works, but reacting to rename events keeps idle
// agents cheap.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes one state document and invokes a callback after
// changes, debounced to collapse write bursts.
type Watcher struct {
	path     string
	debounce time.Duration
}

// New creates a Watcher for the given document path.
func New(path string, debounce time.Duration) *Watcher {
	return &Watcher{path: path, debounce: debounce}
}

// Run watches until the context is cancelled. onChange is invoked once
// at startup and then after every debounced change to the document.
// The watch is on the parent directory: atomic renames replace the
// file, so watching the file itself would go stale after one write.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	name := filepath.Base(w.path)
	var timer *time.Timer
	var fire <-chan time.Time

	onChange(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}
