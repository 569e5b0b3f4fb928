package registry

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

func TestViewWriterRender(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewViewWriterFS(fs, "project")

	now := time.Now().UTC()
	doc := models.NewStateDocument("demo")
	doc.Tasks["a"] = &models.Task{ID: "a", Description: "analyze the data", Status: models.TaskStatusCompleted, CompletedAt: &now}
	doc.Tasks["b"] = &models.Task{ID: "b", Description: "write the tests", Status: models.TaskStatusPending, AssignedTo: "codebuddy"}
	doc.Tasks["c"] = &models.Task{ID: "c", Description: "translate the docs", Status: models.TaskStatusPending}
	doc.CurrentState.CompletedTasks = []string{"a"}
	doc.CurrentState.PendingTasks = []string{"b", "c"}
	doc.AppendLog("claude", "completed task a")

	if err := w.Render(doc); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	tasks, err := afero.ReadFile(fs, "project/TASKS.md")
	if err != nil {
		t.Fatalf("read tasks view: %v", err)
	}
	content := string(tasks)
	if !strings.Contains(content, "- [x] analyze the data") {
		t.Errorf("completed task missing:\n%s", content)
	}
	if !strings.Contains(content, "- [ ] write the tests (assigned: codebuddy)") {
		t.Errorf("assigned pending task missing:\n%s", content)
	}
	if !strings.Contains(content, "- [ ] translate the docs\n") {
		t.Errorf("unassigned pending task missing:\n%s", content)
	}

	log, err := afero.ReadFile(fs, "project/COLLABORATION_LOG.md")
	if err != nil {
		t.Fatalf("read log view: %v", err)
	}
	if !strings.Contains(string(log), "[claude] completed task a") {
		t.Errorf("log entry missing:\n%s", log)
	}
}

func TestViewWriterSkipsDanglingIndexEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewViewWriterFS(fs, ".")

	doc := models.NewStateDocument("demo")
	doc.CurrentState.PendingTasks = []string{"ghost"}

	if err := w.Render(doc); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	tasks, _ := afero.ReadFile(fs, "TASKS.md")
	if strings.Contains(string(tasks), "ghost") {
		t.Errorf("dangling reference rendered:\n%s", tasks)
	}
}
