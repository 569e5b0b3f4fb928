package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is waiting to be claimed.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates an agent has claimed the task.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transition is expected from the
// status. A failed task may still be requeued explicitly.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransition reports whether a task may move from s to next.
// Legal flow: pending -> in_progress -> {completed, failed}.
// failed -> pending is the explicit requeue path used by delegation.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusInProgress
	case TaskStatusInProgress:
		return next == TaskStatusCompleted || next == TaskStatusFailed
	case TaskStatusFailed:
		return next == TaskStatusPending
	default:
		return false
	}
}

// TaskPriority represents the urgency of a task.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityNormal   TaskPriority = "normal"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Task represents a unit of work shared between agents.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Type classifies the task (code_generation, review, testing, ...).
	Type string `json:"type"`
	// Description is the work to be done, also used for capability matching.
	Description string `json:"description"`
	// AssignedTo is the agent identity holding the task, empty if unclaimed.
	AssignedTo string `json:"assigned_to,omitempty"`
	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`
	// Priority is the urgency of the task.
	Priority TaskPriority `json:"priority"`
	// CreatedBy is the identity that created the task.
	CreatedBy string `json:"created_by,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task was last mutated.
	UpdatedAt time.Time `json:"updated_at"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Result holds the tool output on completion or the error text on failure.
	Result string `json:"result,omitempty"`
	// CompletedBy is the agent that reported the terminal state.
	CompletedBy string `json:"completed_by,omitempty"`
	// Dependencies lists prerequisite task IDs. Informational only.
	Dependencies []string `json:"dependencies,omitempty"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	if t.Dependencies != nil {
		c.Dependencies = append([]string(nil), t.Dependencies...)
	}
	return &c
}
