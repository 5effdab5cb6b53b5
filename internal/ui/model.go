package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cartadder/internal/automation"
	"cartadder/internal/submitter"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// StatusMsg replaces the displayed status.
type StatusMsg submitter.Status

// RunFinishedMsg is sent when a submission returns.
type RunFinishedMsg struct {
	Summary automation.Summary
	Err     error
}

// SubmitFunc starts processing text and returns the command that waits for it.
type SubmitFunc func(text string) tea.Cmd

// Model is the list entry screen.
type Model struct {
	textarea textarea.Model
	styles   Styles
	origin   string
	submit   SubmitFunc

	status    submitter.Status
	hasStatus bool
	running   bool
	last      *automation.Summary
	width     int
}

// NewModel creates the screen for origin. submit is called on ctrl+s.
func NewModel(origin string, styles Styles, submit SubmitFunc) Model {
	ta := textarea.New()
	ta.Placeholder = "One item per line"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(60)
	ta.SetHeight(10)
	ta.Focus()

	return Model{textarea: ta, styles: styles, origin: origin, submit: submit}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > 8 {
			m.textarea.SetWidth(msg.Width - 6)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+s":
			if m.running || m.submit == nil {
				return m, nil
			}
			m.running = true
			return m, m.submit(m.textarea.Value())
		}

	case StatusMsg:
		m.status = submitter.Status(msg)
		m.hasStatus = true
		return m, nil

	case RunFinishedMsg:
		m.running = false
		if msg.Err == nil {
			summary := msg.Summary
			m.last = &summary
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Header.Render("cartadder"))
	b.WriteString(" ")
	b.WriteString(m.styles.Muted.Render(m.origin))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Input.Render(m.textarea.View()))
	b.WriteString("\n")

	if m.hasStatus {
		line := m.status.Message
		if m.running && m.status.Index >= 0 && m.status.Total > 0 {
			line = fmt.Sprintf("[%d/%d] %s", m.status.Index+1, m.status.Total, line)
		}
		b.WriteString(m.styles.ForLevel(m.status.Level).Render(line))
		b.WriteString("\n")
	}
	if m.last != nil && !m.running {
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("Last run: %d of %d added in %s",
			m.last.Added(), len(m.last.Results), m.last.Elapsed.Round(100*time.Millisecond))))
		b.WriteString("\n")
	}

	help := "ctrl+s add to cart • esc quit"
	if m.running {
		help = "processing… • esc quit"
	}
	b.WriteString(m.styles.Footer.Render(help))
	return b.String()
}

// Running reports whether a submission is in flight.
func (m Model) Running() bool {
	return m.running
}

// Status returns the displayed status.
func (m Model) Status() (submitter.Status, bool) {
	return m.status, m.hasStatus
}

// Run shows the screen until the user quits. newSubmitter receives the
// display that feeds the status line.
func Run(ctx context.Context, origin string, newSubmitter func(submitter.Display) *submitter.Submitter) error {
	var sub *submitter.Submitter
	submit := func(text string) tea.Cmd {
		return func() tea.Msg {
			summary, err := sub.Submit(ctx, text)
			return RunFinishedMsg{Summary: summary, Err: err}
		}
	}

	p := tea.NewProgram(NewModel(origin, DefaultStyles(), submit), tea.WithContext(ctx), tea.WithAltScreen())
	sub = newSubmitter(submitter.DisplayFunc(func(s submitter.Status) {
		p.Send(StatusMsg(s))
	}))

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
