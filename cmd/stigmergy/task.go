package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/registry"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

var (
	taskType       string
	taskAssignee   string
	taskPriority   string
	taskCreatedBy  string
	taskDependsOn  []string
	taskListStatus string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create and inspect shared tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <description>",
	Short: "Add a task to the shared backlog",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskCreate,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in the shared state",
	RunE:  runTaskList,
}

var taskRequeueCmd = &cobra.Command{
	Use:   "requeue <task-id>",
	Short: "Move a failed task back to pending",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRequeue,
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskType, "type", "command_execution", "task type")
	taskCreateCmd.Flags().StringVar(&taskAssignee, "assign", "", "assign directly to an agent identity")
	taskCreateCmd.Flags().StringVar(&taskPriority, "priority", string(models.PriorityNormal), "priority: low, normal, high, critical")
	taskCreateCmd.Flags().StringVar(&taskCreatedBy, "by", "cli", "creator identity recorded on the task")
	taskCreateCmd.Flags().StringSliceVar(&taskDependsOn, "depends-on", nil, "prerequisite task IDs")

	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "filter by status")

	taskRequeueCmd.Flags().StringVar(&taskAssignee, "assign", "", "reassign to an agent identity")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskRequeueCmd)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, closeFn, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	id, err := reg.CreateTask(cmd.Context(), registry.TaskSpec{
		Type:         taskType,
		Description:  strings.Join(args, " "),
		AssignedTo:   taskAssignee,
		Priority:     models.TaskPriority(taskPriority),
		CreatedBy:    taskCreatedBy,
		Dependencies: taskDependsOn,
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	color.Green("✓ created task %s", id)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, closeFn, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	doc, err := reg.Snapshot(cmd.Context())
	if err != nil {
		return err
	}

	count := 0
	for _, t := range doc.Tasks {
		if taskListStatus != "" && string(t.Status) != taskListStatus {
			continue
		}
		count++
		fmt.Printf("%s  %-12s %-10s %-10s %s\n",
			statusColor(t.Status).Sprintf("%-11s", t.Status),
			t.Type, t.Priority, orDash(t.AssignedTo), t.Description)
		fmt.Printf("            id: %s\n", t.ID)
	}
	if count == 0 {
		fmt.Println("no tasks")
	}
	return nil
}

func runTaskRequeue(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, closeFn, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if !reg.Requeue(cmd.Context(), args[0], taskAssignee, "cli") {
		return fmt.Errorf("task %s was not requeued (not found, or not failed)", args[0])
	}
	color.Green("✓ requeued task %s", args[0])
	return nil
}

func statusColor(s models.TaskStatus) *color.Color {
	switch s {
	case models.TaskStatusCompleted:
		return color.New(color.FgGreen)
	case models.TaskStatusFailed:
		return color.New(color.FgRed)
	case models.TaskStatusInProgress:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
