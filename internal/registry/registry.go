// Package registry layers the task lifecycle on the atomic state store.
// Every operation is an optimistic read-mutate-write transaction: read
// the latest document, re-validate preconditions, apply the mutation to
// a copy, and write. A failed write means a racing writer won; the
// whole transaction restarts from a fresh read, which is what makes
// claims exactly-once.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/router"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/state"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

const (
	// maxAttempts bounds the read-mutate-write retry loop.
	maxAttempts = 5
	// retryBackoff is the base delay between attempts; the actual delay
	// grows linearly with the attempt count.
	retryBackoff = 10 * time.Millisecond
)

// ErrWriteContention indicates every transaction attempt lost an
// optimistic race. Callers may simply run the operation again; the
// document itself is never left half-mutated.
var ErrWriteContention = errors.New("state write contention not resolved within retry budget")

// TaskSpec describes a task to create.
type TaskSpec struct {
	Type         string
	Description  string
	AssignedTo   string
	Priority     models.TaskPriority
	CreatedBy    string
	Dependencies []string
}

// Registry exposes task lifecycle operations over a state.Store.
type Registry struct {
	store       state.Store
	router      *router.Router
	projectName string
	views       *ViewWriter
}

// Option configures a Registry.
type Option func(*Registry)

// WithViews makes the registry re-render the human-readable TASKS.md
// and COLLABORATION_LOG.md projections after each successful write.
func WithViews(v *ViewWriter) Option {
	return func(r *Registry) { r.views = v }
}

// New creates a Registry. projectName is used when bootstrapping a
// document that does not exist yet.
func New(store state.Store, rt *router.Router, projectName string, opts ...Option) *Registry {
	r := &Registry{
		store:       store,
		router:      rt,
		projectName: projectName,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init creates the default active document if none exists. It is a
// no-op when a document is already present.
func (r *Registry) Init(ctx context.Context) error {
	_, err := r.store.Read(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, state.ErrNotFound) {
		return err
	}
	doc := models.NewStateDocument(r.projectName)
	if !r.store.Write(ctx, doc) {
		return ErrWriteContention
	}
	r.renderViews(doc)
	return nil
}

// Snapshot returns the current document for read-only inspection.
func (r *Registry) Snapshot(ctx context.Context) (*models.StateDocument, error) {
	return r.store.Read(ctx)
}

// CreateTask appends a new pending task and returns its ID. The ID is
// generated inside the transaction from the task type, coarse creation
// time, and current task count, so two same-millisecond creators cannot
// collide: the loser's write fails and it regenerates against the
// winner's document.
func (r *Registry) CreateTask(ctx context.Context, spec TaskSpec) (string, error) {
	if spec.Priority == "" {
		spec.Priority = models.PriorityNormal
	}
	if !spec.Priority.Valid() {
		return "", fmt.Errorf("unknown priority %q", spec.Priority)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := r.backoff(ctx, attempt); err != nil {
			return "", err
		}

		doc, err := r.store.Read(ctx)
		if errors.Is(err, state.ErrNotFound) {
			doc = models.NewStateDocument(r.projectName)
		} else if err != nil {
			return "", err
		} else {
			doc = doc.Clone()
		}

		now := time.Now().UTC()
		id := fmt.Sprintf("%s_%d_%d", spec.Type, now.Unix(), len(doc.Tasks))
		task := &models.Task{
			ID:           id,
			Type:         spec.Type,
			Description:  spec.Description,
			AssignedTo:   spec.AssignedTo,
			Status:       models.TaskStatusPending,
			Priority:     spec.Priority,
			CreatedBy:    spec.CreatedBy,
			CreatedAt:    now,
			UpdatedAt:    now,
			Dependencies: spec.Dependencies,
		}

		doc.Tasks[id] = task
		doc.CurrentState.PendingTasks = append(doc.CurrentState.PendingTasks, id)
		doc.AppendLog(spec.CreatedBy, fmt.Sprintf("created task %s (%s): %s", id, spec.Type, spec.Description))

		if r.store.Write(ctx, doc) {
			r.renderViews(doc)
			return id, nil
		}
	}
	return "", ErrWriteContention
}

// ClaimTask finds a claimable task for the agent and atomically
// transitions it to in_progress. It returns ("", nil, nil) when no
// candidate exists. A lost race restarts the scan from a fresh read, so
// the second claimant observes in_progress and skips the task.
//
// Candidates are scanned in three passes: tasks already assigned to the
// agent, unassigned tasks the capability table accepts, and completed
// tasks whose result asks for a review.
func (r *Registry) ClaimTask(ctx context.Context, agent string) (string, *models.Task, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := r.backoff(ctx, attempt); err != nil {
			return "", nil, err
		}

		doc, err := r.store.Read(ctx)
		if errors.Is(err, state.ErrNotFound) {
			return "", nil, nil
		}
		if err != nil {
			return "", nil, err
		}
		doc = doc.Clone()

		id := r.findCandidate(doc, agent)
		if id == "" {
			if reviewID, ok := r.synthesizeReviewTask(doc, agent); ok {
				id = reviewID
			} else {
				return "", nil, nil
			}
		}

		task := doc.Tasks[id]
		task.Status = models.TaskStatusInProgress
		task.AssignedTo = agent
		task.UpdatedAt = time.Now().UTC()
		doc.CurrentState.ActiveTask = id
		doc.AppendLog(agent, fmt.Sprintf("claimed task %s: %s", id, task.Description))

		if r.store.Write(ctx, doc) {
			r.renderViews(doc)
			return id, task.Clone(), nil
		}
	}
	return "", nil, ErrWriteContention
}

// findCandidate scans the document for the first task the agent should
// pick up. Tasks are visited oldest first so scan order is stable
// across processes.
func (r *Registry) findCandidate(doc *models.StateDocument, agent string) string {
	ids := sortedTaskIDs(doc)

	// Direct assignments are honored before capability matching.
	for _, id := range ids {
		t := doc.Tasks[id]
		if t.Status == models.TaskStatusPending && t.AssignedTo == agent {
			return id
		}
	}
	for _, id := range ids {
		t := doc.Tasks[id]
		if t.Status == models.TaskStatusPending && t.AssignedTo == "" && r.router.CanHandle(t, agent) {
			return id
		}
	}
	return ""
}

// synthesizeReviewTask creates a high-priority review task for a
// completed task whose result flags review_needed, claimed by the
// calling agent in the same transaction. Returns false when nothing
// needs review.
func (r *Registry) synthesizeReviewTask(doc *models.StateDocument, agent string) (string, bool) {
	for _, id := range sortedTaskIDs(doc) {
		t := doc.Tasks[id]
		if t.Status != models.TaskStatusCompleted || !strings.Contains(strings.ToLower(t.Result), "review_needed") {
			continue
		}
		if hasReviewFor(doc, id) {
			continue
		}
		now := time.Now().UTC()
		reviewID := fmt.Sprintf("review_%d_%d", now.Unix(), len(doc.Tasks))
		doc.Tasks[reviewID] = &models.Task{
			ID:          reviewID,
			Type:        "review",
			Description: fmt.Sprintf("review result of task %s: %s", id, truncate(t.Result, 200)),
			AssignedTo:  agent,
			Status:      models.TaskStatusPending,
			Priority:    models.PriorityHigh,
			CreatedBy:   agent,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		doc.CurrentState.PendingTasks = append(doc.CurrentState.PendingTasks, reviewID)
		doc.AppendLog(agent, fmt.Sprintf("created review task %s for task %s", reviewID, id))
		return reviewID, true
	}
	return "", false
}

// hasReviewFor reports whether a review task referencing the given task
// already exists, so repeated claim scans do not pile up duplicates.
func hasReviewFor(doc *models.StateDocument, taskID string) bool {
	for _, t := range doc.Tasks {
		if t.Type == "review" && strings.Contains(t.Description, taskID) {
			return true
		}
	}
	return false
}

// UpdateStatus records a lifecycle transition. It returns false without
// an error when the task is unknown, the transition is illegal, or the
// retry budget is exhausted; failures here are expected conditions the
// caller reacts to, not exceptions.
func (r *Registry) UpdateStatus(ctx context.Context, taskID string, status models.TaskStatus, result, completedBy string) bool {
	if !status.Valid() {
		return false
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := r.backoff(ctx, attempt); err != nil {
			return false
		}

		doc, err := r.store.Read(ctx)
		if err != nil {
			return false
		}
		doc = doc.Clone()

		task, ok := doc.Tasks[taskID]
		if !ok {
			return false
		}
		// Same-status updates are idempotent; anything else must follow
		// the lifecycle.
		if task.Status != status && !task.Status.CanTransition(status) {
			return false
		}

		now := time.Now().UTC()
		task.Status = status
		task.UpdatedAt = now
		switch status {
		case models.TaskStatusCompleted:
			task.CompletedAt = &now
			task.Result = result
			task.CompletedBy = completedBy
			doc.CurrentState.PendingTasks = removeID(doc.CurrentState.PendingTasks, taskID)
			doc.CurrentState.CompletedTasks = appendUnique(doc.CurrentState.CompletedTasks, taskID)
			if doc.CurrentState.ActiveTask == taskID {
				doc.CurrentState.ActiveTask = ""
			}
			doc.AppendLog(completedBy, fmt.Sprintf("task %s completed: %s", taskID, truncate(task.Description, 100)))
		case models.TaskStatusFailed:
			task.CompletedAt = &now
			task.Result = result
			task.CompletedBy = completedBy
			doc.CurrentState.PendingTasks = removeID(doc.CurrentState.PendingTasks, taskID)
			if doc.CurrentState.ActiveTask == taskID {
				doc.CurrentState.ActiveTask = ""
			}
			doc.AppendLog(completedBy, fmt.Sprintf("task %s failed: %s", taskID, truncate(result, 100)))
		case models.TaskStatusInProgress:
			if task.AssignedTo == "" {
				task.AssignedTo = completedBy
			}
			doc.AppendLog(completedBy, fmt.Sprintf("task %s in progress", taskID))
		case models.TaskStatusPending:
			doc.AppendLog(completedBy, fmt.Sprintf("task %s requeued", taskID))
		}

		if r.store.Write(ctx, doc) {
			r.renderViews(doc)
			return true
		}
	}
	return false
}

// Requeue moves a failed task back to pending, optionally reassigning
// it to another agent. This is the explicit delegation path.
func (r *Registry) Requeue(ctx context.Context, taskID, newAgent, byAgent string) bool {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := r.backoff(ctx, attempt); err != nil {
			return false
		}

		doc, err := r.store.Read(ctx)
		if err != nil {
			return false
		}
		doc = doc.Clone()

		task, ok := doc.Tasks[taskID]
		if !ok || task.Status != models.TaskStatusFailed {
			return false
		}

		task.Status = models.TaskStatusPending
		task.AssignedTo = newAgent
		task.CompletedAt = nil
		task.UpdatedAt = time.Now().UTC()
		doc.CurrentState.PendingTasks = appendUnique(doc.CurrentState.PendingTasks, taskID)
		if newAgent != "" {
			doc.AppendLog(byAgent, fmt.Sprintf("delegated task %s to %s", taskID, newAgent))
		} else {
			doc.AppendLog(byAgent, fmt.Sprintf("requeued task %s", taskID))
		}

		if r.store.Write(ctx, doc) {
			r.renderViews(doc)
			return true
		}
	}
	return false
}

// AppendLog records a standalone collaboration-log entry.
func (r *Registry) AppendLog(ctx context.Context, agent, message string) bool {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := r.backoff(ctx, attempt); err != nil {
			return false
		}
		doc, err := r.store.Read(ctx)
		if err != nil {
			return false
		}
		doc = doc.Clone()
		doc.AppendLog(agent, message)
		if r.store.Write(ctx, doc) {
			r.renderViews(doc)
			return true
		}
	}
	return false
}

func (r *Registry) renderViews(doc *models.StateDocument) {
	if r.views != nil {
		// Best effort: a failed view render never fails the transaction.
		_ = r.views.Render(doc)
	}
}

func (r *Registry) backoff(ctx context.Context, attempt int) error {
	if attempt == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(attempt) * retryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// sortedTaskIDs returns task IDs ordered by creation time, oldest
// first, with the ID as tie-breaker.
func sortedTaskIDs(doc *models.StateDocument) []string {
	ids := make([]string, 0, len(doc.Tasks))
	for id := range doc.Tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := doc.Tasks[ids[i]], doc.Tasks[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return ids[i] < ids[j]
	})
	return ids
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func appendUnique(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
