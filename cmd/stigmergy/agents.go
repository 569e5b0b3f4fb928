package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/exec"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List known agents, their CLI tools, and capabilities",
	RunE:  runAgents,
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := buildRouter(cfg)
	if err != nil {
		return err
	}

	for _, ts := range exec.Detect() {
		mark := color.RedString("✗ not installed")
		if ts.Installed {
			mark = color.GreenString("✓ %s", ts.Path)
		}
		fmt.Printf("%-10s %-12s %s\n", ts.Agent, ts.Command, mark)
		if kw := rt.Keywords(ts.Agent); len(kw) > 0 {
			fmt.Printf("           handles: %s\n", strings.Join(kw, ", "))
		}
	}
	return nil
}
