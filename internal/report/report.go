// Package report renders a finished run as a markdown summary.
package report

import (
	"fmt"
	"strings"
	"time"

	"cartadder/internal/automation"

	"github.com/charmbracelet/glamour"
)

// Markdown returns the run summary as a markdown document.
func Markdown(s automation.Summary) string {
	var sb strings.Builder
	sb.WriteString("# Cart run\n\n")
	sb.WriteString(fmt.Sprintf("Added **%d** of **%d** items in %s.\n\n",
		s.Added(), len(s.Results), s.Elapsed.Round(100*time.Millisecond)))
	if len(s.Results) == 0 {
		return sb.String()
	}

	sb.WriteString("| # | Item | Outcome | Product | Status |\n")
	sb.WriteString("|---|------|---------|---------|--------|\n")
	for _, r := range s.Results {
		outcome := string(r.Outcome)
		if r.Degraded {
			outcome += " (degraded)"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			r.Index+1, cell(r.Item), outcome, cell(r.Product), cell(r.Message)))
	}
	if s.RunID != "" {
		sb.WriteString(fmt.Sprintf("\nRun `%s`\n", s.RunID))
	}
	return sb.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

// Options controls terminal rendering.
type Options struct {
	Width int    // word wrap width, 80 when zero
	Style string // glamour standard style name; auto-detected when empty
}

// Render renders the summary for a terminal.
func Render(s automation.Summary, opts Options) (string, error) {
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if opts.Style != "" {
		styleOpt = glamour.WithStandardStyle(opts.Style)
	}
	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := renderer.Render(Markdown(s))
	if err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return out, nil
}
