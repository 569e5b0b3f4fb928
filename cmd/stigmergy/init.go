package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the shared project state document",
	Long: `Create the shared state document for this project if it does not
exist yet. Running init twice is harmless.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, closeFn, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := reg.Init(cmd.Context()); err != nil {
		return fmt.Errorf("initialize project state: %w", err)
	}

	color.Green("✓ project %q initialized", cfg.Project.Name)
	fmt.Printf("  state: %s\n", cfg.StatePath())
	return nil
}
