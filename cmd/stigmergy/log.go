package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/state"
)

var logTail int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the collaboration history",
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVar(&logTail, "tail", 0, "show only the last N entries")
}

func runLog(cmd *cobra.Command, args []string) error {
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

	entries := doc.CollaborationHistory
	if logTail > 0 && len(entries) > logTail {
		entries = entries[len(entries)-logTail:]
	}
	for _, e := range entries {
		if e.Agent != "" {
			fmt.Printf("[%s] [%s] %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Agent, e.Message)
			continue
		}
		fmt.Printf("[%s] %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Message)
	}
	return nil
}
