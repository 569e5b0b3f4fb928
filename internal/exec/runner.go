package exec

import (
	"bytes"
	"context"
	"fmt"
	osexec "os/exec"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

// toolCommands maps agent identities to the executables they wrap.
// Identities not listed here run a tool of the same name.
var toolCommands = map[string]string{
	"claude":    "claude",
	"gemini":    "gemini",
	"kimi":      "kimi",
	"qwen":      "qwen",
	"ollama":    "ollama",
	"codebuddy": "codebuddy",
	"qodercli":  "qodercli",
	"iflow":     "iflow",
}

// ToolRunner implements Executor by spawning the agent's CLI tool.
type ToolRunner struct {
	// WorkDir is the working directory for spawned tools; empty means
	// the current directory.
	WorkDir string
}

// NewToolRunner creates a ToolRunner rooted at workDir.
func NewToolRunner(workDir string) *ToolRunner {
	return &ToolRunner{WorkDir: workDir}
}

// CommandFor returns the executable name for an agent identity.
func CommandFor(agent string) string {
	if cmd, ok := toolCommands[strings.ToLower(agent)]; ok {
		return cmd
	}
	return agent
}

// Run spawns the agent's tool with arguments shaped from the task and
// captures its output. It never returns an error: spawn failures are
// reported through the Result like any tool failure.
func (r *ToolRunner) Run(ctx context.Context, agent string, task *models.Task) Result {
	args := promptFor(task)
	cmd := osexec.CommandContext(ctx, CommandFor(agent), args...)
	if r.WorkDir != "" {
		cmd.Dir = r.WorkDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if errText == "" {
			errText = err.Error()
		}
		return Result{Success: false, Output: stdout.String(), Error: errText}
	}
	return Result{Success: true, Output: stdout.String(), Error: stderr.String()}
}

// promptFor shapes the tool's arguments from the task type. Command
// execution tasks pass their description through verbatim; generation
// tasks get a directive prefix.
func promptFor(task *models.Task) []string {
	switch task.Type {
	case "command_execution":
		// Shell-style splitting so quoted arguments survive.
		if args, err := shellquote.Split(task.Description); err == nil {
			return args
		}
		return strings.Fields(task.Description)
	case "code_generation":
		return []string{fmt.Sprintf("generate code: %s", task.Description)}
	case "review", "code_review":
		return []string{fmt.Sprintf("review and optimize: %s", task.Description)}
	case "documentation":
		return []string{fmt.Sprintf("write documentation: %s", task.Description)}
	case "testing":
		return []string{fmt.Sprintf("write unit tests: %s", task.Description)}
	default:
		return []string{task.Description}
	}
}

// Verify ToolRunner implements Executor at compile time.
var _ Executor = (*ToolRunner)(nil)
