package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	workAgent  string
	workCycles int
)

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Run claim-execute-record cycles as an agent",
	Long: `Work claims the next eligible task from the shared state, runs the
matching CLI tool against it, and records the outcome. Each cycle is a
full claim-execute-record round; agents started in separate terminals
coordinate purely through the state document.`,
	RunE: runWork,
}

func init() {
	workCmd.Flags().StringVar(&workAgent, "agent", "", "agent identity (overrides config)")
	workCmd.Flags().IntVar(&workCycles, "cycles", 1, "number of work cycles to run")
}

func runWork(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	identity, err := resolveIdentity(workAgent, cfg)
	if err != nil {
		return err
	}
	runtime, closeFn, err := buildRuntime(cfg, identity)
	if err != nil {
		return err
	}
	defer closeFn()

	worked := 0
	for i := 0; i < workCycles; i++ {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		if runtime.WorkCycle(cmd.Context()) {
			worked++
		}
	}

	if worked == 0 {
		fmt.Printf("agent %s: no tasks completed\n", identity)
		return nil
	}
	color.Green("✓ agent %s completed %d task(s)", identity, worked)
	return nil
}
