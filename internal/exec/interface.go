// Package exec invokes the external CLI tools that back each agent
// identity. The coordination core treats tool invocation as opaque:
// a task goes in, success plus captured output comes out.
package exec

import (
	"context"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

// Result is the outcome of one tool invocation.
type Result struct {
	// Success is true when the tool exited zero.
	Success bool
	// Output is the captured stdout.
	Output string
	// Error is the captured stderr, or the spawn error text.
	Error string
}

// Executor runs a task through an agent's external tool.
// This abstraction allows mocking tool execution in tests.
//
// Run may block for the tool's full runtime; any timeout comes from the
// caller's context, the core imposes none.
type Executor interface {
	Run(ctx context.Context, agent string, task *models.Task) Result
}
