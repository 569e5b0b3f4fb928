package models

import (
	"testing"
	"time"
)

func TestTaskStatusValid(t *testing.T) {
	for _, s := range []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if TaskStatus("cancelled").Valid() {
		t.Error("unknown status accepted")
	}
}

func TestTaskStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskStatusPending, TaskStatusInProgress, true},
		{TaskStatusPending, TaskStatusCompleted, false},
		{TaskStatusPending, TaskStatusFailed, false},
		{TaskStatusInProgress, TaskStatusCompleted, true},
		{TaskStatusInProgress, TaskStatusFailed, true},
		{TaskStatusInProgress, TaskStatusPending, false},
		{TaskStatusCompleted, TaskStatusInProgress, false},
		{TaskStatusCompleted, TaskStatusPending, false},
		{TaskStatusFailed, TaskStatusPending, true},
		{TaskStatusFailed, TaskStatusInProgress, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	if !TaskStatusCompleted.Terminal() || !TaskStatusFailed.Terminal() {
		t.Error("completed and failed should be terminal")
	}
	if TaskStatusPending.Terminal() || TaskStatusInProgress.Terminal() {
		t.Error("pending and in_progress should not be terminal")
	}
}

func TestTaskClone(t *testing.T) {
	now := time.Now().UTC()
	orig := &Task{
		ID:           "t1",
		Type:         "analysis",
		Description:  "analyze",
		Status:       TaskStatusCompleted,
		CompletedAt:  &now,
		Dependencies: []string{"t0"},
	}

	c := orig.Clone()
	c.Description = "changed"
	*c.CompletedAt = now.Add(time.Hour)
	c.Dependencies[0] = "other"

	if orig.Description != "analyze" {
		t.Error("clone shares Description")
	}
	if !orig.CompletedAt.Equal(now) {
		t.Error("clone shares CompletedAt pointer")
	}
	if orig.Dependencies[0] != "t0" {
		t.Error("clone shares Dependencies slice")
	}

	var nilTask *Task
	if nilTask.Clone() != nil {
		t.Error("nil Clone should return nil")
	}
}
