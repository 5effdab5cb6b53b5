package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cartadder/internal/automation"
	"cartadder/internal/browser"
	"cartadder/internal/config"
	"cartadder/internal/grocery"
	"cartadder/internal/logging"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const snapshotHTML = `<html><body>
<form><input id="SearchBar-input" /><button aria-label="search" id="go">Search</button></form>
<div data-testid="product-card-0"><span data-testid="cart-page-item-description">Organic Bananas</span>
  <button data-testid="kds-QuantityStepper-ctaButton" id="add-0">Add</button></div>
<div data-testid="product-card-1"><span data-testid="cart-page-item-description">Whole Milk, 1 gal</span>
  <button data-testid="kds-QuantityStepper-ctaButton" id="add-1">Add</button></div>
</body></html>`

func setupGlobals(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()
	workspace = ws
	cfg = config.DefaultConfig()
	logger = zap.NewNop()
	t.Cleanup(func() {
		workspace = ""
		cfg = nil
		rehearsePage = ""
		rehearseFile = ""
		rehearseStyle = ""
		configForce = false
	})
	return ws
}

func TestReadItems(t *testing.T) {
	dir := t.TempDir()
	listFile := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(listFile, []byte("milk\r\n\r\n eggs \n"), 0o644))

	tests := []struct {
		name  string
		args  []string
		file  string
		stdin string
		want  grocery.List
	}{
		{"args", []string{"milk", "sharp cheddar"}, "", "ignored", grocery.List{"milk", "sharp cheddar"}},
		{"multiline arg", []string{"milk\neggs"}, "", "", grocery.List{"milk", "eggs"}},
		{"file", nil, listFile, "", grocery.List{"milk", "eggs"}},
		{"file beats args", []string{"bread"}, listFile, "", grocery.List{"milk", "eggs"}},
		{"stdin dash", nil, "-", "apples\npears\n", grocery.List{"apples", "pears"}},
		{"stdin default", nil, "", "apples\n", grocery.List{"apples"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readItems(tt.args, tt.file, strings.NewReader(tt.stdin))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := readItems(nil, "", strings.NewReader("\n  \n"))
	assert.ErrorIs(t, err, grocery.ErrEmptyList)
}

func TestReadControlURL(t *testing.T) {
	ws := t.TempDir()
	_, err := readControlURL(ws)
	assert.Error(t, err)

	file := controlFile(ws)
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte("ws://127.0.0.1:9222/devtools/browser/x\n"), 0o644))
	url, err := readControlURL(ws)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/x", url)
}

func TestRehearsalConfig(t *testing.T) {
	c := rehearsalConfig(automation.DefaultConfig())
	assert.Equal(t, rehearsalWait, c.Timings.SearchInputTimeout)
	assert.Equal(t, rehearsalWait, c.Timings.SearchButtonTimeout)
	assert.Zero(t, c.Timings.ResultsTimeout)
	assert.Zero(t, c.Timings.PacingMax)
	assert.Zero(t, c.Timings.MinItemDelay())
	assert.LessOrEqual(t, c.Timings.PollInterval, 10*time.Millisecond)
	assert.Equal(t, automation.DefaultSelectors(), c.Selectors)
}

func TestRunRehearse(t *testing.T) {
	ws := setupGlobals(t)
	rehearsePage = filepath.Join(ws, "results.html")
	require.NoError(t, os.WriteFile(rehearsePage, []byte(snapshotHTML), 0o644))
	rehearseStyle = "notty"

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(""))

	require.NoError(t, runRehearse(cmd, []string{"milk", "bananas", "kale"}))

	got := out.String()
	assert.Contains(t, got, "Items sent to be processed.")
	assert.Contains(t, got, "[1/3] Added Whole Milk, 1 gal to cart.")
	assert.Contains(t, got, "[2/3] Added Organic Bananas to cart.")
	assert.Contains(t, got, "[3/3] Added Organic Bananas to cart.")
	assert.Contains(t, got, "All items processed!")
	assert.Contains(t, got, "button#add-1")
	assert.Contains(t, got, "Cart run")
}

func TestRunRehearse_EmptyList(t *testing.T) {
	ws := setupGlobals(t)
	rehearsePage = filepath.Join(ws, "results.html")
	require.NoError(t, os.WriteFile(rehearsePage, []byte(snapshotHTML), 0o644))

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("\n\n"))
	assert.ErrorIs(t, runRehearse(cmd, nil), grocery.ErrEmptyList)
}

func TestConfigInitAndShow(t *testing.T) {
	ws := setupGlobals(t)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, configInit(cmd, nil))
	path := filepath.Join(ws, config.DefaultPath)
	assert.FileExists(t, path)

	assert.Error(t, configInit(cmd, nil), "second init without --force")
	configForce = true
	assert.NoError(t, configInit(cmd, nil))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Site, loaded.Site)

	out.Reset()
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, configShow(cmd, nil))
	assert.Contains(t, out.String(), "origin: https://www.harristeeter.com")
}

func TestRunContext_NoDeadlineByDefault(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("timeout")
	require.NotNil(t, flag)
	assert.Equal(t, "0s", flag.DefValue)

	ctx, cancel := runContext()
	defer cancel()
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
	assert.NoError(t, ctx.Err())
}

func TestRunContext_TimeoutFlag(t *testing.T) {
	timeout = time.Hour
	defer func() { timeout = 0 }()

	ctx, cancel := runContext()
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), deadline, time.Minute)

	cancel()
	assert.Error(t, ctx.Err())
}

func observeBoot(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	logging.SetRoot(zap.New(core))
	t.Cleanup(func() { logging.SetRoot(zap.NewNop()) })
	return logs
}

func TestPublishControlURL(t *testing.T) {
	logs := observeBoot(t)
	file := controlFile(t.TempDir())

	require.True(t, publishControlURL(file, "ws://127.0.0.1:9222/devtools/browser/x"))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/x", string(data))
	assert.Zero(t, logs.Len())
}

func TestPublishControlURL_WarnsWhenDirectoryCannotBeCreated(t *testing.T) {
	logs := observeBoot(t)
	ws := t.TempDir()
	// A regular file where the state directory should be.
	require.NoError(t, os.WriteFile(config.StateDir(ws), []byte("x"), 0o644))

	assert.False(t, publishControlURL(controlFile(ws), "ws://x"))
	assert.Equal(t, 1, logs.FilterMessage("failed to create browser control directory").Len())
	assert.NoFileExists(t, controlFile(ws))
}

func TestShutdownManager_NotConnected(t *testing.T) {
	logs := observeBoot(t)
	shutdownManager(browser.NewSessionManager(browser.DefaultConfig(), nil))
	assert.Zero(t, logs.Len())
}
