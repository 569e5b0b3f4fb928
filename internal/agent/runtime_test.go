package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/exec"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/registry"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/router"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/state"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

// fakeExecutor returns a canned result and records what it ran.
type fakeExecutor struct {
	result exec.Result
	ran    []string
}

func (f *fakeExecutor) Run(ctx context.Context, agent string, task *models.Task) exec.Result {
	f.ran = append(f.ran, task.ID)
	return f.result
}

func setupRuntime(t *testing.T, identity string, executor exec.Executor, opts ...Option) (*Runtime, *registry.Registry, *state.MemoryStore) {
	t.Helper()
	store := state.NewMemoryStore()
	reg := registry.New(store, router.New(), "test-project")
	if err := reg.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return New(identity, reg, router.New(), executor, opts...), reg, store
}

func TestWorkCycleCompletesTask(t *testing.T) {
	fake := &fakeExecutor{result: exec.Result{Success: true, Output: "all done"}}
	rt, reg, store := setupRuntime(t, "claude", fake)
	ctx := context.Background()

	id, err := reg.CreateTask(ctx, registry.TaskSpec{
		Type:        "analysis",
		Description: "analyze the numbers",
		AssignedTo:  "claude",
		CreatedBy:   "cli",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if !rt.WorkCycle(ctx) {
		t.Fatal("WorkCycle reported no work done")
	}
	if len(fake.ran) != 1 || fake.ran[0] != id {
		t.Errorf("executor ran %v, want [%s]", fake.ran, id)
	}

	doc, _ := store.Read(ctx)
	task := doc.Tasks[id]
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", task.Status)
	}
	if task.Result != "all done" || task.CompletedBy != "claude" {
		t.Errorf("outcome not recorded: %+v", task)
	}
}

func TestWorkCycleNothingToDo(t *testing.T) {
	fake := &fakeExecutor{result: exec.Result{Success: true}}
	rt, _, _ := setupRuntime(t, "claude", fake)

	if rt.WorkCycle(context.Background()) {
		t.Error("WorkCycle reported work on an empty backlog")
	}
	if len(fake.ran) != 0 {
		t.Errorf("executor ran %v on an empty backlog", fake.ran)
	}
}

func TestWorkCycleFailureDelegates(t *testing.T) {
	fake := &fakeExecutor{result: exec.Result{Success: false, Error: "code compile error"}}
	rt, reg, store := setupRuntime(t, "claude", fake)
	ctx := context.Background()

	id, err := reg.CreateTask(ctx, registry.TaskSpec{
		Type:        "code_generation",
		Description: "build the widget",
		AssignedTo:  "claude",
		CreatedBy:   "cli",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if rt.WorkCycle(ctx) {
		t.Error("WorkCycle reported success for a failed task")
	}

	// The failure's error text names code work, so the task lands on the
	// code-capable agent as pending.
	doc, _ := store.Read(ctx)
	task := doc.Tasks[id]
	if task.Status != models.TaskStatusPending {
		t.Errorf("status = %s, want pending after delegation", task.Status)
	}
	if task.AssignedTo != "codebuddy" {
		t.Errorf("assigned_to = %q, want codebuddy", task.AssignedTo)
	}
}

func TestWorkCycleFailureWithoutDelegateStaysFailed(t *testing.T) {
	fake := &fakeExecutor{result: exec.Result{Success: false, Error: "disk quota exceeded"}}
	rt, reg, store := setupRuntime(t, "claude", fake)
	ctx := context.Background()

	id, err := reg.CreateTask(ctx, registry.TaskSpec{
		Type:        "misc",
		Description: "archive the artifacts",
		AssignedTo:  "claude",
		CreatedBy:   "cli",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	rt.WorkCycle(ctx)

	doc, _ := store.Read(ctx)
	task := doc.Tasks[id]
	if task.Status != models.TaskStatusFailed {
		t.Errorf("status = %s, want failed", task.Status)
	}
	if task.Result != "disk quota exceeded" {
		t.Errorf("error text not preserved: %q", task.Result)
	}
}

func TestWorkCycleSynthesizesTestingFollowUp(t *testing.T) {
	longOutput := strings.Repeat("func generated() {}\n", 10)
	fake := &fakeExecutor{result: exec.Result{Success: true, Output: longOutput}}
	rt, reg, store := setupRuntime(t, "claude", fake)
	ctx := context.Background()

	id, err := reg.CreateTask(ctx, registry.TaskSpec{
		Type:        "code_generation",
		Description: "write code for the CSV parser",
		AssignedTo:  "claude",
		CreatedBy:   "cli",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if !rt.WorkCycle(ctx) {
		t.Fatal("WorkCycle failed")
	}

	doc, _ := store.Read(ctx)
	var followUp *models.Task
	for _, task := range doc.Tasks {
		if task.Type == "testing" {
			followUp = task
		}
	}
	if followUp == nil {
		t.Fatal("no testing follow-up synthesized from code output")
	}
	if followUp.AssignedTo != "codebuddy" {
		t.Errorf("follow-up assigned to %q, want codebuddy", followUp.AssignedTo)
	}
	if len(followUp.Dependencies) != 1 || followUp.Dependencies[0] != id {
		t.Errorf("follow-up dependencies = %v, want [%s]", followUp.Dependencies, id)
	}
}

func TestWorkCycleSkipsFollowUpForShortOutput(t *testing.T) {
	fake := &fakeExecutor{result: exec.Result{Success: true, Output: "ok"}}
	rt, reg, store := setupRuntime(t, "claude", fake)
	ctx := context.Background()

	if _, err := reg.CreateTask(ctx, registry.TaskSpec{
		Type:        "code_generation",
		Description: "write code for the CSV parser",
		AssignedTo:  "claude",
		CreatedBy:   "cli",
	}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	rt.WorkCycle(ctx)

	doc, _ := store.Read(ctx)
	for _, task := range doc.Tasks {
		if task.Type == "testing" {
			t.Errorf("follow-up synthesized for trivial output: %+v", task)
		}
	}
}

func TestWorkCycleSynthesizesVisualizationFollowUp(t *testing.T) {
	fake := &fakeExecutor{result: exec.Result{Success: true, Output: "mean is 42, median is 40"}}
	rt, reg, store := setupRuntime(t, "claude", fake)
	ctx := context.Background()

	if _, err := reg.CreateTask(ctx, registry.TaskSpec{
		Type:        "analysis",
		Description: "analyze the benchmark data",
		AssignedTo:  "claude",
		CreatedBy:   "cli",
	}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	rt.WorkCycle(ctx)

	doc, _ := store.Read(ctx)
	var followUp *models.Task
	for _, task := range doc.Tasks {
		if task.Type == "visualization" {
			followUp = task
		}
	}
	if followUp == nil {
		t.Fatal("no visualization follow-up synthesized from analysis output")
	}
	if followUp.AssignedTo != "" {
		t.Errorf("visualization follow-up should be unassigned, got %q", followUp.AssignedTo)
	}
	if followUp.Priority != models.PriorityLow {
		t.Errorf("priority = %s, want low", followUp.Priority)
	}
}

func TestWorkCycleDiscoversOpportunisticWork(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("def handler():\n    pass\n", 20)
	if err := os.WriteFile(filepath.Join(dir, "service.py"), []byte(content), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	fake := &fakeExecutor{result: exec.Result{Success: true, Output: "looks fine"}}
	rt, _, store := setupRuntime(t, "claude", fake, WithDiscovery(Discovery{
		Dir:     dir,
		Pattern: "*.py",
		MinSize: 100,
	}))
	ctx := context.Background()

	// Empty backlog: the cycle discovers the file and works the
	// synthesized review in the same invocation.
	if !rt.WorkCycle(ctx) {
		t.Fatal("WorkCycle did not work the discovered task")
	}

	doc, _ := store.Read(ctx)
	var review *models.Task
	for _, task := range doc.Tasks {
		if task.Type == "code_review" {
			review = task
		}
	}
	if review == nil {
		t.Fatal("no code_review task synthesized")
	}
	if review.Status != models.TaskStatusCompleted {
		t.Errorf("discovered task status = %s, want completed", review.Status)
	}
	if !strings.Contains(review.Description, "service.py") {
		t.Errorf("review description %q does not name the file", review.Description)
	}

	// A second idle cycle must not re-review the same file.
	if rt.WorkCycle(ctx) {
		t.Error("second cycle re-discovered an already reviewed file")
	}
}

func TestWorkCycleIgnoresSmallFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tiny.py"), []byte("pass\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	fake := &fakeExecutor{result: exec.Result{Success: true}}
	rt, _, _ := setupRuntime(t, "claude", fake, WithDiscovery(Discovery{
		Dir:     dir,
		Pattern: "*.py",
		MinSize: 100,
	}))

	if rt.WorkCycle(context.Background()) {
		t.Error("cycle synthesized work for a file below the size threshold")
	}
}
