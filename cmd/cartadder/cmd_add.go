package main

import (
	"fmt"

	"cartadder/internal/logging"
	"cartadder/internal/submitter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	addFile        string
	addOpen        bool
	addDebuggerURL string
	addNoSummary   bool
	addStyle       string
)

var addCmd = &cobra.Command{
	Use:   "add [items...]",
	Short: "Add items to the cart in the focused browser tab",
	Long: `Adds every item to the cart, in order. Items come from the arguments
(each argument may hold several lines), from --file, or from stdin.

The focused Chrome tab must be on the configured site. Status lines are
printed as they arrive and a summary table is printed at the end.

Examples:
  cartadder add milk eggs "sharp cheddar"
  cartadder add --file list.txt
  pbpaste | cartadder add`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addFile, "file", "f", "", "Read the list from a file (- for stdin)")
	addCmd.Flags().BoolVar(&addOpen, "open", false, "Open the site in a new tab first")
	addCmd.Flags().StringVar(&addDebuggerURL, "debugger-url", "", "DevTools WebSocket URL of a running Chrome")
	addCmd.Flags().BoolVar(&addNoSummary, "no-summary", false, "Do not print the summary table")
	addCmd.Flags().StringVar(&addStyle, "style", "", "Summary style (dark, light, notty; default: auto)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	items, err := readItems(args, addFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	ctx, cancel := runContext()
	defer cancel()

	mgr := newSessionManager(ws, addDebuggerURL)
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	defer shutdownManager(mgr)

	if addOpen {
		if _, err := mgr.Open(ctx, cfg.Site.Origin); err != nil {
			return fmt.Errorf("failed to open %s: %w", cfg.Site.Origin, err)
		}
	}

	coord, err := newCoordinator(cfg.Automation(), browserResolver(mgr))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	sub := submitter.New(coord, lineDisplay(out), logging.Get(logging.CategorySubmitter))
	summary, err := sub.SubmitItems(ctx, items)
	coord.Wait()
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		logger.Warn("run interrupted", zap.Error(ctx.Err()))
	}

	if addNoSummary {
		return nil
	}
	return printSummary(out, summary, addStyle)
}
