// Package agent implements the per-agent work loop over the shared
// state document. One Runtime wraps one agent identity; several
// independently launched processes coordinate only through the
// registry's atomic transactions.
package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/exec"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/registry"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/router"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

// followUpMinOutput is the minimum tool output size that makes a
// code-producing task worth a follow-up testing task.
const followUpMinOutput = 100

// Discovery configures opportunistic work: when no task is claimable,
// the agent scans project files and synthesizes review work for large
// ones.
type Discovery struct {
	// Dir is the directory to scan.
	Dir string
	// Pattern is the file glob within Dir.
	Pattern string
	// MinSize is the minimum file size in bytes worth reviewing.
	MinSize int64
}

// Runtime is the work loop for one agent identity.
type Runtime struct {
	identity  string
	registry  *registry.Registry
	router    *router.Router
	executor  exec.Executor
	logger    *Logger
	discovery *Discovery
	// testerIdentity receives synthesized testing tasks.
	testerIdentity string
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger attaches a local debug logger.
func WithLogger(l *Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithDiscovery enables opportunistic work discovery.
func WithDiscovery(d Discovery) Option {
	return func(r *Runtime) { r.discovery = &d }
}

// WithTester overrides the identity that receives synthesized testing
// tasks. Defaults to the code-capable agent.
func WithTester(identity string) Option {
	return func(r *Runtime) { r.testerIdentity = identity }
}

// New creates a Runtime for the given agent identity.
func New(identity string, reg *registry.Registry, rt *router.Router, executor exec.Executor, opts ...Option) *Runtime {
	r := &Runtime{
		identity:       identity,
		registry:       reg,
		router:         rt,
		executor:       executor,
		testerIdentity: "codebuddy",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Identity returns the agent identity this runtime works as.
func (a *Runtime) Identity() string {
	return a.identity
}

// WorkCycle runs one claim-execute-record cycle. It returns true only
// when a task was found and completed successfully. Store-level
// contention is absorbed inside the registry; corrupt state or
// filesystem errors are logged here and end the cycle without crashing
// the host process.
func (a *Runtime) WorkCycle(ctx context.Context) bool {
	return a.cycle(ctx, true)
}

func (a *Runtime) cycle(ctx context.Context, allowDiscovery bool) bool {
	cycleID := uuid.NewString()[:8]

	taskID, task, err := a.registry.ClaimTask(ctx, a.identity)
	if err != nil {
		a.logger.Log("cycle %s: claim failed: %v", cycleID, err)
		return false
	}
	if taskID == "" {
		if allowDiscovery && a.discoverWork(ctx) {
			// One recursion: work the task just synthesized.
			return a.cycle(ctx, false)
		}
		a.logger.Log("cycle %s: nothing to do", cycleID)
		return false
	}

	a.logger.Log("cycle %s: claimed task %s (%s)", cycleID, taskID, task.Type)
	a.registry.UpdateStatus(ctx, taskID, models.TaskStatusInProgress, "", a.identity)

	res := a.executor.Run(ctx, a.identity, task)

	if res.Success {
		a.registry.UpdateStatus(ctx, taskID, models.TaskStatusCompleted, res.Output, a.identity)
		a.logger.Log("cycle %s: task %s completed", cycleID, taskID)
		a.synthesizeFollowUps(ctx, task, res.Output)
		return true
	}

	a.registry.UpdateStatus(ctx, taskID, models.TaskStatusFailed, res.Error, a.identity)
	a.logger.Log("cycle %s: task %s failed: %s", cycleID, taskID, res.Error)
	a.delegateFailure(ctx, taskID, res.Error)
	return false
}

// delegateFailure asks the router for a better-suited agent and, when
// one exists, requeues the failed task to it.
func (a *Runtime) delegateFailure(ctx context.Context, taskID, errText string) {
	suggestion := a.router.SuggestDelegate(errText)
	if suggestion == "" || suggestion == a.identity {
		return
	}
	if a.registry.Requeue(ctx, taskID, suggestion, a.identity) {
		a.logger.Log("delegated task %s to %s", taskID, suggestion)
	}
}

// synthesizeFollowUps creates derived tasks from a completed task's
// output: code results get a testing task for the code-capable agent,
// analysis results get an unassigned visualization task.
func (a *Runtime) synthesizeFollowUps(ctx context.Context, task *models.Task, output string) {
	if strings.Contains(strings.ToLower(task.Description), "code") && len(output) > followUpMinOutput {
		id, err := a.registry.CreateTask(ctx, registry.TaskSpec{
			Type:         "testing",
			Description:  fmt.Sprintf("write unit tests for the result of %s: %s", task.ID, head(output, 300)),
			AssignedTo:   a.testerIdentity,
			Priority:     models.PriorityNormal,
			CreatedBy:    a.identity,
			Dependencies: []string{task.ID},
		})
		if err == nil {
			a.logger.Log("created follow-up testing task %s from %s", id, task.ID)
		}
	}

	if strings.Contains(strings.ToLower(task.Type), "analysis") {
		id, err := a.registry.CreateTask(ctx, registry.TaskSpec{
			Type:         "visualization",
			Description:  fmt.Sprintf("visualize the analysis result of %s: %s", task.ID, head(output, 200)),
			Priority:     models.PriorityLow,
			CreatedBy:    a.identity,
			Dependencies: []string{task.ID},
		})
		if err == nil {
			a.logger.Log("created follow-up visualization task %s from %s", id, task.ID)
		}
	}
}

// discoverWork scans the project for files large enough to deserve a
// review and synthesizes a self-assigned low-priority task for the
// first new one. Returns true when a task was created.
func (a *Runtime) discoverWork(ctx context.Context) bool {
	if a.discovery == nil {
		return false
	}

	doc, err := a.registry.Snapshot(ctx)
	if err != nil {
		doc = nil
	}

	matches, err := filepath.Glob(filepath.Join(a.discovery.Dir, a.discovery.Pattern))
	if err != nil {
		return false
	}
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.Size() <= a.discovery.MinSize {
			continue
		}
		name := filepath.Base(path)
		if doc != nil && hasReviewTaskFor(doc, name) {
			continue
		}
		id, err := a.registry.CreateTask(ctx, registry.TaskSpec{
			Type:        "code_review",
			Description: fmt.Sprintf("review file %s", name),
			AssignedTo:  a.identity,
			Priority:    models.PriorityLow,
			CreatedBy:   a.identity,
		})
		if err != nil {
			return false
		}
		a.logger.Log("discovered opportunistic work: %s (task %s)", name, id)
		return true
	}
	return false
}

// hasReviewTaskFor reports whether a code_review task for the file
// already exists, so repeated idle cycles do not pile up duplicates.
func hasReviewTaskFor(doc *models.StateDocument, filename string) bool {
	for _, t := range doc.Tasks {
		if t.Type == "code_review" && strings.Contains(t.Description, filename) {
			return true
		}
	}
	return false
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
