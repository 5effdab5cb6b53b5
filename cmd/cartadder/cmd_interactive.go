package main

import (
	"context"
	"fmt"

	"cartadder/internal/logging"
	"cartadder/internal/submitter"
	"cartadder/internal/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runInteractive shows the list editor. Runs are not bounded by --timeout.
func runInteractive(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mgr := newSessionManager(ws, "")
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	defer shutdownManager(mgr)

	coord, err := newCoordinator(cfg.Automation(), browserResolver(mgr))
	if err != nil {
		return err
	}
	log := logging.Get(logging.CategoryUI)
	log.Info("starting list editor", zap.String("origin", cfg.Site.Origin))

	err = ui.Run(ctx, cfg.Site.Origin, func(d submitter.Display) *submitter.Submitter {
		return submitter.New(coord, d, logging.Get(logging.CategorySubmitter))
	})
	// Quitting mid-run stops the routine.
	cancel()
	coord.Wait()
	return err
}
