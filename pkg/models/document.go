// Package models defines the shared domain types for stigmergy
// coordination: the state document, tasks, and the collaboration log.
package models

import (
	"fmt"
	"time"
)

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectPaused   ProjectStatus = "paused"
	ProjectArchived ProjectStatus = "archived"
)

// Valid returns true if the status is a known value.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectPaused, ProjectArchived:
		return true
	default:
		return false
	}
}

// LogEntry is one line of the append-only collaboration history.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent,omitempty"`
	Message   string    `json:"message"`
}

// CurrentState holds the derived indices over the task map.
type CurrentState struct {
	// ActiveTask is the task ID claimed by the most recent claim call, if any.
	ActiveTask string `json:"active_task,omitempty"`
	// CompletedTasks lists task IDs in completion order.
	CompletedTasks []string `json:"completed_tasks"`
	// PendingTasks lists task IDs awaiting a claim.
	PendingTasks []string `json:"pending_tasks"`
}

// StateDocument is the single shared artifact all agents coordinate
// through. It is always read and written as a whole.
type StateDocument struct {
	ProjectName          string           `json:"project_name"`
	CreatedAt            time.Time        `json:"created_at"`
	Status               ProjectStatus    `json:"status"`
	Tasks                map[string]*Task `json:"tasks"`
	CollaborationHistory []LogEntry       `json:"collaboration_history"`
	CurrentState         CurrentState     `json:"current_state"`
	LastUpdated          time.Time        `json:"last_updated"`
}

// NewStateDocument creates an empty active document for a project.
func NewStateDocument(projectName string) *StateDocument {
	now := time.Now().UTC()
	return &StateDocument{
		ProjectName:          projectName,
		CreatedAt:            now,
		Status:               ProjectActive,
		Tasks:                make(map[string]*Task),
		CollaborationHistory: []LogEntry{},
		CurrentState: CurrentState{
			CompletedTasks: []string{},
			PendingTasks:   []string{},
		},
		LastUpdated: now,
	}
}

// Clone returns a deep copy of the document. Mutation paths copy before
// modifying so a failed write never leaves a half-mutated document behind.
func (d *StateDocument) Clone() *StateDocument {
	if d == nil {
		return nil
	}
	c := *d
	c.Tasks = make(map[string]*Task, len(d.Tasks))
	for id, t := range d.Tasks {
		c.Tasks[id] = t.Clone()
	}
	c.CollaborationHistory = append([]LogEntry(nil), d.CollaborationHistory...)
	c.CurrentState.CompletedTasks = append([]string(nil), d.CurrentState.CompletedTasks...)
	c.CurrentState.PendingTasks = append([]string(nil), d.CurrentState.PendingTasks...)
	return &c
}

// AppendLog adds an entry to the collaboration history. The caller is
// responsible for writing the document afterwards; the entry rides the
// same atomic write as the state change it describes.
func (d *StateDocument) AppendLog(agent, message string) {
	d.CollaborationHistory = append(d.CollaborationHistory, LogEntry{
		Timestamp: time.Now().UTC(),
		Agent:     agent,
		Message:   message,
	})
}

// Validate checks the cross-reference invariants that must hold after
// every successful write.
func (d *StateDocument) Validate() error {
	for _, id := range d.CurrentState.PendingTasks {
		if _, ok := d.Tasks[id]; !ok {
			return fmt.Errorf("pending_tasks references unknown task %s", id)
		}
	}
	for _, id := range d.CurrentState.CompletedTasks {
		if _, ok := d.Tasks[id]; !ok {
			return fmt.Errorf("completed_tasks references unknown task %s", id)
		}
	}
	for id, t := range d.Tasks {
		if t.Status == TaskStatusInProgress && t.AssignedTo == "" {
			return fmt.Errorf("task %s is in_progress without an assignee", id)
		}
		if !t.Status.Valid() {
			return fmt.Errorf("task %s has unknown status %q", id, t.Status)
		}
	}
	return nil
}
