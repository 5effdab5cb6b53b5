// Package logging provides categorized zap loggers for cartadder.
// Console output goes to stderr at the configured level. In debug mode a
// JSON log file per day is also written to .cartadder/logs/.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot        Category = "boot"        // Startup, config loading
	CategoryBrowser     Category = "browser"     // Chrome connection, tab resolution, injection
	CategoryCoordinator Category = "coordinator" // Precondition checks, dispatch
	CategoryAutomation  Category = "automation"  // Per-item search and add
	CategorySubmitter   Category = "submitter"   // List parsing and status display
	CategoryUI          Category = "ui"          // Interactive list editor
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string          // debug, info, warn, error
	DebugMode  bool            // write JSON files under <workspace>/.cartadder/logs
	JSONFormat bool            // JSON console output instead of the console encoder
	Categories map[string]bool // per-category toggles; nil enables all
	Console    bool            // write to stderr
}

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	opts    Options
	logFile *os.File
	logsDir string
)

// Initialize builds the root logger. It can be called again to reconfigure.
func Initialize(workspace string, o Options) error {
	level, err := zapcore.ParseLevel(o.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var cores []zapcore.Core
	if o.Console {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.TimeKey = ""
		var enc zapcore.Encoder
		if o.JSONFormat {
			enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		} else {
			enc = zapcore.NewConsoleEncoder(encCfg)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level))
	}

	var file *os.File
	var dir string
	if o.DebugMode {
		if workspace == "" {
			return fmt.Errorf("workspace path required for debug logging")
		}
		dir = filepath.Join(workspace, ".cartadder", "logs")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		name := fmt.Sprintf("%s_cartadder.log", time.Now().Format("2006-01-02"))
		file, err = os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(file),
			zapcore.DebugLevel,
		))
	}

	mu.Lock()
	defer mu.Unlock()
	closeFileLocked()
	opts = o
	logFile = file
	logsDir = dir
	if len(cores) == 0 {
		root = zap.NewNop()
	} else {
		root = zap.New(zapcore.NewTee(cores...))
	}

	root.Named(string(CategoryBoot)).Debug("logging initialized",
		zap.String("level", level.String()),
		zap.Bool("debug_mode", o.DebugMode),
		zap.String("logs_dir", dir))
	return nil
}

// SetRoot replaces the root logger, e.g. with an observer in tests.
func SetRoot(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns the named logger for category; disabled categories are no-ops.
func Get(category Category) *zap.Logger {
	if !IsCategoryEnabled(category) {
		return zap.NewNop()
	}
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(string(category))
}

// LogsDir returns the debug log directory, empty when debug mode is off.
func LogsDir() string {
	mu.RLock()
	defer mu.RUnlock()
	return logsDir
}

// CloseAll flushes the root logger and closes the log file (call at shutdown).
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	_ = root.Sync()
	closeFileLocked()
	root = zap.NewNop()
	opts = Options{}
	logsDir = ""
}

func closeFileLocked() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// Boot logs to the boot category
func Boot(msg string, fields ...zap.Field) {
	Get(CategoryBoot).Info(msg, fields...)
}

// BootWarn logs a warning to the boot category
func BootWarn(msg string, fields ...zap.Field) {
	Get(CategoryBoot).Warn(msg, fields...)
}
