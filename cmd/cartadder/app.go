package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cartadder/internal/automation"
	"cartadder/internal/browser"
	"cartadder/internal/config"
	"cartadder/internal/coordinator"
	"cartadder/internal/grocery"
	"cartadder/internal/logging"
	"cartadder/internal/report"
	"cartadder/internal/submitter"
)

// controlFile is where "browser launch" publishes its DevTools URL.
func controlFile(ws string) string {
	return filepath.Join(config.StateDir(ws), "browser", "control.txt")
}

func readControlURL(ws string) (string, error) {
	data, err := os.ReadFile(controlFile(ws))
	if err != nil {
		return "", err
	}
	url := strings.TrimSpace(string(data))
	if url == "" {
		return "", fmt.Errorf("%s is empty", controlFile(ws))
	}
	return url, nil
}

// newSessionManager prefers, in order: debuggerURL, the configured
// debugger_url, and the control file of a running "browser launch".
// With none of them a new Chrome is launched.
func newSessionManager(ws, debuggerURL string) *browser.SessionManager {
	bcfg := cfg.Browser
	switch {
	case debuggerURL != "":
		bcfg.DebuggerURL = debuggerURL
	case bcfg.DebuggerURL == "":
		if url, err := readControlURL(ws); err == nil {
			bcfg.DebuggerURL = url
		}
	}
	return browser.NewSessionManager(bcfg, logging.Get(logging.CategoryBrowser))
}

func browserResolver(mgr *browser.SessionManager) coordinator.TabResolver {
	return coordinator.ResolverFunc(func(ctx context.Context) (coordinator.Tab, error) {
		tab, err := mgr.ActiveTab(ctx)
		if err != nil {
			return nil, err
		}
		return tab, nil
	})
}

func newCoordinator(acfg automation.Config, tabs coordinator.TabResolver) (*coordinator.Coordinator, error) {
	routine := automation.New(acfg, logging.Get(logging.CategoryAutomation))
	return coordinator.New(cfg.Site.Origin, tabs, routine, logging.Get(logging.CategoryCoordinator))
}

// readItems takes the list from --file ("-" for stdin), the arguments, or
// stdin when neither is given.
func readItems(args []string, file string, stdin io.Reader) (grocery.List, error) {
	var items grocery.List
	switch {
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		items = grocery.Parse(string(data))
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read list: %w", err)
		}
		items = grocery.Parse(string(data))
	case len(args) > 0:
		items = grocery.FromArgs(args)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		items = grocery.Parse(string(data))
	}
	if len(items) == 0 {
		return nil, grocery.ErrEmptyList
	}
	return items, nil
}

// lineDisplay prints every status on its own line.
func lineDisplay(w io.Writer) submitter.Display {
	return submitter.DisplayFunc(func(s submitter.Status) {
		if s.Index >= 0 && s.Total > 0 {
			fmt.Fprintf(w, "[%d/%d] %s\n", s.Index+1, s.Total, s.Message)
			return
		}
		fmt.Fprintln(w, s.Message)
	})
}

func printSummary(w io.Writer, summary automation.Summary, style string) error {
	out, err := report.Render(summary, report.Options{Width: 100, Style: style})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
