// Package ui is the interactive list entry screen: a textarea for the
// grocery list and a status line that always shows the latest update.
package ui

import (
	"os"
	"strconv"
	"strings"

	"cartadder/internal/submitter"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light mode
	LightForeground = lipgloss.Color("#101F38")
	LightPrimary    = lipgloss.Color("#1B5E20")
	LightMuted      = lipgloss.Color("#6B7280")
	LightBorder     = lipgloss.Color("#D6DAE0")

	// Dark mode
	DarkForeground = lipgloss.Color("#F2F2F2")
	DarkPrimary    = lipgloss.Color("#8BC34A")
	DarkMuted      = lipgloss.Color("#9CA3AF")
	DarkBorder     = lipgloss.Color("#2A3850")

	// Semantic colors, same in both modes
	Destructive = lipgloss.Color("#E53935")
	Success     = lipgloss.Color("#43A047")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")
)

// Theme holds the current color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

func LightTheme() Theme {
	return Theme{Foreground: LightForeground, Primary: LightPrimary, Muted: LightMuted, Border: LightBorder}
}

func DarkTheme() Theme {
	return Theme{Foreground: DarkForeground, Primary: DarkPrimary, Muted: DarkMuted, Border: DarkBorder, IsDark: true}
}

// DetectTheme picks dark mode from CARTADDER_DARK_MODE=1 or a dark
// COLORFGBG background, light mode otherwise.
func DetectTheme() Theme {
	if os.Getenv("CARTADDER_DARK_MODE") == "1" {
		return DarkTheme()
	}
	// COLORFGBG is "foreground;background"; ANSI 0-6 and 8 are dark.
	parts := strings.Split(os.Getenv("COLORFGBG"), ";")
	if len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil && ((bg >= 0 && bg <= 6) || bg == 8) {
			return DarkTheme()
		}
	}
	return LightTheme()
}

// Styles holds the styled components of the screen.
type Styles struct {
	Theme Theme

	Header lipgloss.Style
	Footer lipgloss.Style
	Input  lipgloss.Style
	Muted  lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
}

// NewStyles creates the styles for theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Muted: lipgloss.NewStyle().Foreground(theme.Muted),

		Success: lipgloss.NewStyle().Foreground(Success).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(Destructive).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(Warning),
		Info:    lipgloss.NewStyle().Foreground(Info),
	}
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// ForLevel returns the status style for a status level.
func (s Styles) ForLevel(level submitter.Level) lipgloss.Style {
	switch level {
	case submitter.LevelSuccess:
		return s.Success
	case submitter.LevelWarn:
		return s.Warning
	case submitter.LevelError:
		return s.Error
	default:
		return s.Info
	}
}
