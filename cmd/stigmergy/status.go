package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/state"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the shared project state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
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
	if errors.Is(err, state.ErrNotFound) {
		fmt.Println("no project state found; run `stigmergy init` first")
		return nil
	}
	if err != nil {
		return err
	}

	counts := map[models.TaskStatus]int{}
	for _, t := range doc.Tasks {
		counts[t.Status]++
	}

	color.New(color.Bold).Printf("%s (%s)\n", doc.ProjectName, doc.Status)
	fmt.Printf("  updated:     %s\n", doc.LastUpdated.Format("2006-01-02 15:04:05"))
	fmt.Printf("  pending:     %d\n", counts[models.TaskStatusPending])
	fmt.Printf("  in progress: %d\n", counts[models.TaskStatusInProgress])
	fmt.Printf("  completed:   %d\n", counts[models.TaskStatusCompleted])
	fmt.Printf("  failed:      %d\n", counts[models.TaskStatusFailed])

	if active := doc.CurrentState.ActiveTask; active != "" {
		if t, ok := doc.Tasks[active]; ok {
			color.Yellow("  active:      %s [%s] %s", t.ID, t.AssignedTo, truncateLine(t.Description, 60))
		}
	}
	return nil
}

func truncateLine(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
