package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/internal/watch"
)

var watchAgent string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "React to state changes by running work cycles",
	Long: `Watch observes the shared state document and runs a work cycle each
time another agent updates it. This turns a one-shot agent into a
resident collaborator: as soon as new tasks land, the agent claims the
ones it can handle. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAgent, "agent", "", "agent identity (overrides config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	identity, err := resolveIdentity(watchAgent, cfg)
	if err != nil {
		return err
	}
	runtime, closeFn, err := buildRuntime(cfg, identity)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("agent %s watching %s\n", identity, cfg.StatePath())

	w := watch.New(cfg.StatePath(), time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond)
	return w.Run(ctx, func(ctx context.Context) {
		// Drain everything claimable before going back to sleep so a
		// burst of new tasks is not serviced one notification at a time.
		for runtime.WorkCycle(ctx) {
			if ctx.Err() != nil {
				return
			}
		}
	})
}
