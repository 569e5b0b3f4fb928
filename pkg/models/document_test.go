package models

import (
	"testing"
	"time"
)

func TestNewStateDocument(t *testing.T) {
	doc := NewStateDocument("demo")

	if doc.ProjectName != "demo" || doc.Status != ProjectActive {
		t.Errorf("unexpected defaults: %+v", doc)
	}
	if doc.Tasks == nil || doc.CollaborationHistory == nil {
		t.Error("collections not initialized")
	}
	if doc.CurrentState.PendingTasks == nil || doc.CurrentState.CompletedTasks == nil {
		t.Error("indices not initialized")
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("fresh document invalid: %v", err)
	}
}

func TestStateDocumentCloneIsDeep(t *testing.T) {
	doc := NewStateDocument("demo")
	doc.Tasks["t1"] = &Task{ID: "t1", Status: TaskStatusPending, CreatedAt: time.Now()}
	doc.CurrentState.PendingTasks = []string{"t1"}
	doc.AppendLog("claude", "first entry")

	c := doc.Clone()
	c.Tasks["t1"].Status = TaskStatusCompleted
	c.Tasks["t2"] = &Task{ID: "t2"}
	c.CurrentState.PendingTasks[0] = "other"
	c.CollaborationHistory[0].Message = "rewritten"

	if doc.Tasks["t1"].Status != TaskStatusPending {
		t.Error("clone shares task pointers")
	}
	if _, ok := doc.Tasks["t2"]; ok {
		t.Error("clone shares the task map")
	}
	if doc.CurrentState.PendingTasks[0] != "t1" {
		t.Error("clone shares the pending index")
	}
	if doc.CollaborationHistory[0].Message != "first entry" {
		t.Error("clone shares the history slice")
	}
}

func TestAppendLog(t *testing.T) {
	doc := NewStateDocument("demo")
	doc.AppendLog("claude", "claimed something")

	if len(doc.CollaborationHistory) != 1 {
		t.Fatalf("history length = %d", len(doc.CollaborationHistory))
	}
	entry := doc.CollaborationHistory[0]
	if entry.Agent != "claude" || entry.Message != "claimed something" {
		t.Errorf("entry mismatch: %+v", entry)
	}
	if entry.Timestamp.IsZero() {
		t.Error("entry not timestamped")
	}
}

func TestValidateCatchesBrokenInvariants(t *testing.T) {
	doc := NewStateDocument("demo")
	doc.CurrentState.PendingTasks = []string{"ghost"}
	if err := doc.Validate(); err == nil {
		t.Error("dangling pending reference accepted")
	}

	doc = NewStateDocument("demo")
	doc.CurrentState.CompletedTasks = []string{"ghost"}
	if err := doc.Validate(); err == nil {
		t.Error("dangling completed reference accepted")
	}

	doc = NewStateDocument("demo")
	doc.Tasks["t1"] = &Task{ID: "t1", Status: TaskStatusInProgress}
	if err := doc.Validate(); err == nil {
		t.Error("in_progress task without assignee accepted")
	}

	doc = NewStateDocument("demo")
	doc.Tasks["t1"] = &Task{ID: "t1", Status: TaskStatus("bogus")}
	if err := doc.Validate(); err == nil {
		t.Error("unknown status accepted")
	}
}
