package config

import "cartadder/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"`           // debug, info, warn, error
	Format     string          `yaml:"format" json:"format,omitempty"`         // json, text
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"` // Also write JSON files to .cartadder/logs
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"` // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories that are not listed are enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// Options converts the config for logging.Initialize.
func (c *LoggingConfig) Options(console bool) logging.Options {
	return logging.Options{
		Level:      c.Level,
		DebugMode:  c.DebugMode,
		JSONFormat: c.Format == "json",
		Categories: c.Categories,
		Console:    console,
	}
}
