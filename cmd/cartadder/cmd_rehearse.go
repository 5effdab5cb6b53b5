package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"cartadder/internal/automation"
	"cartadder/internal/coordinator"
	"cartadder/internal/logging"
	"cartadder/internal/page"
	"cartadder/internal/page/htmlpage"
	"cartadder/internal/submitter"

	"github.com/spf13/cobra"
)

// rehearsalWait caps every wait; a saved page never changes.
const rehearsalWait = 200 * time.Millisecond

var (
	rehearsePage  string
	rehearseFile  string
	rehearseStyle string
)

var rehearseCmd = &cobra.Command{
	Use:   "rehearse [items...]",
	Short: "Run the list against a saved results page",
	Long: `Runs the full per-item procedure against an HTML snapshot of the
retailer's search results page instead of a live tab. Nothing is added to a
real cart; the clicks the routine would make are listed at the end.

Use it to check selectors and product matching after the site changes:
save a results page from Chrome ("Save page as", HTML only) and run

  cartadder rehearse --page results.html milk eggs`,
	RunE: runRehearse,
}

func init() {
	rehearseCmd.Flags().StringVarP(&rehearsePage, "page", "p", "", "Saved HTML page (required)")
	rehearseCmd.Flags().StringVarP(&rehearseFile, "file", "f", "", "Read the list from a file (- for stdin)")
	rehearseCmd.Flags().StringVar(&rehearseStyle, "style", "", "Summary style (dark, light, notty; default: auto)")
	_ = rehearseCmd.MarkFlagRequired("page")
}

// snapshotTab presents a saved page as a tab on the configured site.
type snapshotTab struct {
	url  string
	page page.Page
}

func (t snapshotTab) URL() string                  { return t.url }
func (t snapshotTab) Inject(context.Context) error { return nil }
func (t snapshotTab) Page() page.Page              { return t.page }

func runRehearse(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	items, err := readItems(args, rehearseFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	f, err := os.Open(rehearsePage)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	snapshot, err := htmlpage.NewFromReader(f)
	f.Close()
	if err != nil {
		return err
	}

	tab := snapshotTab{url: strings.TrimRight(cfg.Site.Origin, "/") + "/", page: snapshot}
	coord, err := newCoordinator(rehearsalConfig(cfg.Automation()),
		coordinator.ResolverFunc(func(context.Context) (coordinator.Tab, error) { return tab, nil }))
	if err != nil {
		return err
	}

	ctx, cancel := runContext()
	defer cancel()

	out := cmd.OutOrStdout()
	sub := submitter.New(coord, lineDisplay(out), logging.Get(logging.CategorySubmitter))
	summary, err := sub.SubmitItems(ctx, items)
	coord.Wait()
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Clicks:")
	for _, c := range snapshot.Clicks() {
		fmt.Fprintf(out, "  %s\n", c.Target)
	}
	return printSummary(out, summary, rehearseStyle)
}

// rehearsalConfig drops pacing and settle delays and caps the waits.
func rehearsalConfig(c automation.Config) automation.Config {
	t := &c.Timings
	clamp := func(d *time.Duration) {
		if *d > rehearsalWait {
			*d = rehearsalWait
		}
	}
	clamp(&t.SearchInputTimeout)
	clamp(&t.SearchButtonTimeout)
	t.PollInterval = min(t.PollInterval, 10*time.Millisecond)
	t.ResultsTimeout = 0
	t.InputSettle = 0
	t.ScrollSettle = 0
	t.AddSettle = 0
	t.PacingMin = 0
	t.PacingMax = 0
	return c
}
