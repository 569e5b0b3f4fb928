package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/agent"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/config"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/exec"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/registry"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/router"
	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/state"
)

var projectDir string

var rootCmd = &cobra.Command{
	Use:   "stigmergy",
	Short: "Indirect multi-agent coordination over a shared project state",
	Long: `Stigmergy coordinates independently launched CLI agent processes
through one shared, atomically-updated state document. Agents never talk
to each other: they claim tasks from the document, run their external
tool, and write results back, and that environment alone decides what
happens next.

Typical flow:
  stigmergy init                      # create the project state
  stigmergy task create --type code_generation "write an adder in go"
  stigmergy work --agent codebuddy    # run one work cycle as codebuddy`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", ".", "project directory holding the shared state")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(workCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the project directory and loads its config.
func loadConfig() (*config.Config, error) {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	return config.Load(dir)
}

// openStore builds the configured state backend.
func openStore(cfg *config.Config) (state.Store, func() error, error) {
	switch cfg.Project.Backend {
	case "", "file":
		return state.NewFileStore(cfg.StatePath()), func() error { return nil }, nil
	case "sqlite":
		s, err := state.OpenSQLite(filepath.Join(cfg.Project.Dir, ".stigmergy", "state.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.Project.Backend)
	}
}

// buildRouter loads the project capability table, falling back to the
// compiled defaults.
func buildRouter(cfg *config.Config) (*router.Router, error) {
	if cfg.Agent.CapabilitiesFile == "" {
		return router.New(), nil
	}
	caps, err := router.LoadCapabilities(cfg.Agent.CapabilitiesFile)
	if err != nil {
		return nil, err
	}
	return router.NewWithCapabilities(caps), nil
}

// buildRegistry wires the store, router, and derived views together.
func buildRegistry(cfg *config.Config) (*registry.Registry, func() error, error) {
	store, closeFn, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	rt, err := buildRouter(cfg)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	reg := registry.New(store, rt, cfg.Project.Name,
		registry.WithViews(registry.NewViewWriter(cfg.Project.Dir)))
	return reg, closeFn, nil
}

// buildRuntime assembles a full agent runtime for the given identity.
func buildRuntime(cfg *config.Config, identity string) (*agent.Runtime, func() error, error) {
	reg, closeStore, err := buildRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	rt, err := buildRouter(cfg)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	logger, err := agent.NewLogger(cfg.Agent.LogPath)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}

	opts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithTester(cfg.Agent.Tester),
	}
	if cfg.Discovery.Enabled {
		opts = append(opts, agent.WithDiscovery(agent.Discovery{
			Dir:     cfg.Project.Dir,
			Pattern: cfg.Discovery.Pattern,
			MinSize: cfg.Discovery.MinSizeBytes,
		}))
	}

	runtime := agent.New(identity, reg, rt, exec.NewToolRunner(cfg.Project.Dir), opts...)
	closeAll := func() error {
		err := logger.Close()
		if cerr := closeStore(); cerr != nil {
			err = cerr
		}
		return err
	}
	return runtime, closeAll, nil
}

// resolveIdentity picks the agent identity: flag first, then config.
func resolveIdentity(flagValue string, cfg *config.Config) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if cfg.Agent.Identity != "" {
		return cfg.Agent.Identity, nil
	}
	return "", fmt.Errorf("no agent identity: pass --agent or set agent.identity in .stigmergy.yaml")
}
