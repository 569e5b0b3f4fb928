package registry

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

const (
	tasksViewFile = "TASKS.md"
	logViewFile   = "COLLABORATION_LOG.md"
)

// ViewWriter renders the human-readable projections of the state
// document: a checkbox task list and the collaboration log. Both are
// derived artifacts, rewritten wholesale after each state change, and
// never read back by the system.
type ViewWriter struct {
	fs  afero.Fs
	dir string
}

// NewViewWriter creates a ViewWriter targeting the given directory.
func NewViewWriter(dir string) *ViewWriter {
	return NewViewWriterFS(afero.NewOsFs(), dir)
}

// NewViewWriterFS creates a ViewWriter over an arbitrary filesystem.
func NewViewWriterFS(fs afero.Fs, dir string) *ViewWriter {
	return &ViewWriter{fs: fs, dir: dir}
}

// Render writes both projection files from the document.
func (w *ViewWriter) Render(doc *models.StateDocument) error {
	if err := afero.WriteFile(w.fs, filepath.Join(w.dir, tasksViewFile), []byte(renderTasks(doc)), 0o644); err != nil {
		return fmt.Errorf("write task view: %w", err)
	}
	if err := afero.WriteFile(w.fs, filepath.Join(w.dir, logViewFile), []byte(renderLog(doc)), 0o644); err != nil {
		return fmt.Errorf("write log view: %w", err)
	}
	return nil
}

func renderTasks(doc *models.StateDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Tasks - %s\n\n", doc.ProjectName)

	b.WriteString("## Completed\n")
	for _, id := range doc.CurrentState.CompletedTasks {
		t, ok := doc.Tasks[id]
		if !ok {
			continue
		}
		completed := ""
		if t.CompletedAt != nil {
			completed = t.CompletedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(&b, "- [x] %s (%s)\n", t.Description, completed)
	}

	b.WriteString("\n## Pending\n")
	for _, id := range doc.CurrentState.PendingTasks {
		t, ok := doc.Tasks[id]
		if !ok {
			continue
		}
		suffix := ""
		if t.AssignedTo != "" {
			suffix = fmt.Sprintf(" (assigned: %s)", t.AssignedTo)
		}
		fmt.Fprintf(&b, "- [ ] %s%s\n", t.Description, suffix)
	}
	return b.String()
}

func renderLog(doc *models.StateDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Collaboration Log - %s\n\n", doc.ProjectName)
	for _, entry := range doc.CollaborationHistory {
		agent := entry.Agent
		if agent == "" {
			agent = "system"
		}
		fmt.Fprintf(&b, "[%s] [%s] %s\n", entry.Timestamp.Format("2006-01-02T15:04:05Z07:00"), agent, entry.Message)
	}
	return b.String()
}
