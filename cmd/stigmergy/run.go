package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/exec"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/registry"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

var runCmd = &cobra.Command{
	Use:   "run <agent> [prompt...]",
	Short: "Invoke an agent's CLI tool directly, recorded as a task",
	Long: `Run invokes the named agent's CLI tool with the given prompt. The
invocation is recorded in the shared state as a command_execution task
so other agents see what happened, including failures they may be able
to pick up.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	agentName := args[0]
	prompt := strings.Join(args[1:], " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, closeFn, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	taskID, err := reg.CreateTask(ctx, registry.TaskSpec{
		Type:        "command_execution",
		Description: prompt,
		AssignedTo:  agentName,
		Priority:    models.PriorityNormal,
		CreatedBy:   "cli",
	})
	if err != nil {
		return fmt.Errorf("record task: %w", err)
	}
	reg.UpdateStatus(ctx, taskID, models.TaskStatusInProgress, "", agentName)

	runner := exec.NewToolRunner(cfg.Project.Dir)
	res := runner.Run(ctx, agentName, &models.Task{
		ID:          taskID,
		Type:        "command_execution",
		Description: prompt,
	})

	if !res.Success {
		reg.UpdateStatus(ctx, taskID, models.TaskStatusFailed, res.Error, agentName)
		fmt.Print(res.Output)
		return fmt.Errorf("%s failed: %s", agentName, res.Error)
	}

	reg.UpdateStatus(ctx, taskID, models.TaskStatusCompleted, res.Output, agentName)
	fmt.Print(res.Output)
	color.Green("✓ recorded as task %s", taskID)
	return nil
}
