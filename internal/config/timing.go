package config

import (
	"time"

	"cartadder/internal/automation"
)

// TimingConfig holds the per-item waits as duration strings.
type TimingConfig struct {
	PollInterval        string  `yaml:"poll_interval"`
	SearchInputTimeout  string  `yaml:"search_input_timeout"`
	InputSettle         string  `yaml:"input_settle"`
	SearchButtonTimeout string  `yaml:"search_button_timeout"`
	ResultsTimeout      string  `yaml:"results_timeout"`
	ResultsBackoff      float64 `yaml:"results_backoff"`
	ResultsMaxInterval  string  `yaml:"results_max_interval"`
	ScrollSettle        string  `yaml:"scroll_settle"`
	AddSettle           string  `yaml:"add_settle"`
	PacingMin           string  `yaml:"pacing_min"`
	PacingMax           string  `yaml:"pacing_max"`
}

// DefaultTimingConfig mirrors automation.DefaultTimings.
func DefaultTimingConfig() TimingConfig {
	d := automation.DefaultTimings()
	return TimingConfig{
		PollInterval:        d.PollInterval.String(),
		SearchInputTimeout:  d.SearchInputTimeout.String(),
		InputSettle:         d.InputSettle.String(),
		SearchButtonTimeout: d.SearchButtonTimeout.String(),
		ResultsTimeout:      d.ResultsTimeout.String(),
		ResultsBackoff:      d.ResultsBackoff,
		ResultsMaxInterval:  d.ResultsMaxInterval.String(),
		ScrollSettle:        d.ScrollSettle.String(),
		AddSettle:           d.AddSettle.String(),
		PacingMin:           d.PacingMin.String(),
		PacingMax:           d.PacingMax.String(),
	}
}

// Timings parses every field, falling back to the default for unset or
// malformed values.
func (t TimingConfig) Timings() automation.Timings {
	d := automation.DefaultTimings()
	backoff := t.ResultsBackoff
	if backoff <= 0 {
		backoff = d.ResultsBackoff
	}
	return automation.Timings{
		PollInterval:        parseDuration(t.PollInterval, d.PollInterval),
		SearchInputTimeout:  parseDuration(t.SearchInputTimeout, d.SearchInputTimeout),
		InputSettle:         parseDuration(t.InputSettle, d.InputSettle),
		SearchButtonTimeout: parseDuration(t.SearchButtonTimeout, d.SearchButtonTimeout),
		ResultsTimeout:      parseDuration(t.ResultsTimeout, d.ResultsTimeout),
		ResultsBackoff:      backoff,
		ResultsMaxInterval:  parseDuration(t.ResultsMaxInterval, d.ResultsMaxInterval),
		ScrollSettle:        parseDuration(t.ScrollSettle, d.ScrollSettle),
		AddSettle:           parseDuration(t.AddSettle, d.AddSettle),
		PacingMin:           parseDuration(t.PacingMin, d.PacingMin),
		PacingMax:           parseDuration(t.PacingMax, d.PacingMax),
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
