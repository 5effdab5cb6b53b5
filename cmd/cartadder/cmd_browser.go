package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"cartadder/internal/browser"
	"cartadder/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// browserCmd manages the Chrome instance the routine drives
var browserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Chrome session commands",
}

var browserLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch Chrome on the site and keep it running",
	Long: `Launches a visible Chrome window on the configured site and publishes its
DevTools URL in .cartadder/browser/control.txt, where "add" and the list
editor pick it up. Sign in to the store in that window. Press Ctrl+C to
close Chrome.`,
	RunE: browserLaunch,
}

var browserTabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List open tabs and the one a run would use",
	RunE:  browserTabs,
}

func init() {
	browserCmd.AddCommand(browserLaunchCmd)
	browserCmd.AddCommand(browserTabsCmd)
}

// browserLaunch launches the browser instance
func browserLaunch(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	logger.Info("launching browser")

	bcfg := cfg.Browser
	bcfg.DebuggerURL = ""
	mgr := browser.NewSessionManager(bcfg, logging.Get(logging.CategoryBrowser))
	if err := mgr.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := mgr.Open(ctx, cfg.Site.Origin); err != nil {
		logging.BootWarn("failed to open site", zap.String("origin", cfg.Site.Origin), zap.Error(err))
	}

	// Write control URL to file for other commands to use
	file := controlFile(ws)
	publishControlURL(file, mgr.ControlURL())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Browser launched. Control URL: %s\n", mgr.ControlURL())
	fmt.Fprintf(out, "Control file: %s\n", file)
	fmt.Fprintln(out, "Press Ctrl+C to shutdown")

	<-ctx.Done()

	if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
		logging.BootWarn("failed to remove browser control file", zap.Error(err))
	}
	shutdownManager(mgr)
	return nil
}

func browserTabs(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	ctx, cancel := runContext()
	defer cancel()

	mgr := newSessionManager(ws, "")
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	defer shutdownManager(mgr)

	tabs, err := mgr.Tabs(ctx)
	if err != nil {
		return err
	}
	active, err := mgr.ActiveTab(ctx)
	if err != nil {
		logger.Debug("no active tab", zap.Error(err))
	}

	out := cmd.OutOrStdout()
	for _, tab := range tabs {
		mark := " "
		if active != nil && tab.URL() == active.URL() {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %s\n", mark, tab.URL())
	}
	if active == nil {
		fmt.Fprintln(out, "No focused or visible tab.")
	}
	return nil
}

// publishControlURL writes url to file, warning when it cannot.
func publishControlURL(file, url string) bool {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		logging.BootWarn("failed to create browser control directory", zap.String("dir", filepath.Dir(file)), zap.Error(err))
		return false
	}
	if err := os.WriteFile(file, []byte(url), 0o644); err != nil {
		logging.BootWarn("failed to write browser control file", zap.String("file", file), zap.Error(err))
		return false
	}
	return true
}

// shutdownManager releases the session, warning on failure.
func shutdownManager(mgr *browser.SessionManager) {
	if err := mgr.Shutdown(context.Background()); err != nil {
		logging.BootWarn("failed to shutdown browser manager", zap.Error(err))
	}
}
