// Package config loads cartadder configuration from YAML with environment
// overrides. A missing file yields the defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"cartadder/internal/automation"
	"cartadder/internal/browser"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the workspace-relative config location.
const DefaultPath = ".cartadder/config.yaml"

// Config holds all cartadder configuration.
type Config struct {
	// Target retailer
	Site SiteConfig `yaml:"site"`

	// Page contract selectors
	Selectors automation.Selectors `yaml:"selectors"`

	// Per-item waits
	Timing TimingConfig `yaml:"timing"`

	// Chrome connection
	Browser browser.Config `yaml:"browser"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SiteConfig describes the retailer the automation is allowed to run on.
type SiteConfig struct {
	Name              string `yaml:"name"`
	Origin            string `yaml:"origin"`
	RequireSearchForm bool   `yaml:"require_search_form"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Name:              "Harris Teeter",
			Origin:            "https://www.harristeeter.com",
			RequireSearchForm: true,
		},
		Selectors: automation.DefaultSelectors(),
		Timing:    DefaultTimingConfig(),
		Browser:   browser.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if origin := os.Getenv("CARTADDER_ORIGIN"); origin != "" {
		c.Site.Origin = origin
	}
	if u := os.Getenv("CARTADDER_DEBUGGER_URL"); u != "" {
		c.Browser.DebuggerURL = u
	}
	if v := os.Getenv("CARTADDER_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if lvl := os.Getenv("CARTADDER_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Site.Origin)
	if err != nil {
		return fmt.Errorf("invalid site origin %q: %w", c.Site.Origin, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid site origin %q: want http(s)://host", c.Site.Origin)
	}

	var missing []string
	for name, sel := range map[string]string{
		"search_input":     c.Selectors.SearchInput,
		"search_button":    c.Selectors.SearchButton,
		"result_card":      c.Selectors.ResultCard,
		"card_description": c.Selectors.CardDescription,
		"add_to_cart":      c.Selectors.AddToCart,
	} {
		if strings.TrimSpace(sel) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing selectors: %s", strings.Join(missing, ", "))
	}

	t := c.Timing.Timings()
	if t.PacingMax < t.PacingMin {
		return fmt.Errorf("timing.pacing_max (%s) must be >= timing.pacing_min (%s)", t.PacingMax, t.PacingMin)
	}
	return nil
}

// Automation returns the routine configuration.
func (c *Config) Automation() automation.Config {
	return automation.Config{
		Selectors:         c.Selectors,
		Timings:           c.Timing.Timings(),
		RequireSearchForm: c.Site.RequireSearchForm,
	}
}

// StateDir returns the workspace directory for runtime files.
func StateDir(workspace string) string {
	return filepath.Join(workspace, ".cartadder")
}
