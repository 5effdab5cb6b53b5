// Package browser connects to Chrome over the DevTools protocol with go-rod,
// resolves the tab the user is looking at and exposes it as a page.Page.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoActiveTab is returned when no open tab is focused or visible.
var ErrNoActiveTab = errors.New("no active tab")

// SessionManager owns the Chrome connection.
type SessionManager struct {
	cfg        Config
	log        *zap.Logger
	mu         sync.RWMutex
	browser    *rod.Browser
	controlURL string // WebSocket URL for DevTools
	launched   bool   // we started the process and may close it
}

// NewSessionManager creates a new session manager. A nil logger disables logging.
func NewSessionManager(cfg Config, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{cfg: cfg, log: logger}
}

// Start connects to an existing Chrome or launches a new one.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// If we already have a browser, verify it's still alive
	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		m.log.Warn("stale browser connection detected, reconnecting")
		m.dropLocked()
	}

	controlURL := m.cfg.DebuggerURL
	launched := false
	if controlURL == "" {
		url, err := m.launchLocked()
		if err != nil {
			return err
		}
		controlURL = url
		launched = true
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.browser = browser
	m.controlURL = controlURL
	m.launched = launched
	m.log.Info("connected to chrome", zap.String("control_url", controlURL), zap.Bool("launched", launched))
	return nil
}

func (m *SessionManager) launchLocked() (string, error) {
	if len(m.cfg.Launch) == 0 {
		url, err := launcher.New().Headless(m.cfg.IsHeadless()).Launch()
		if err != nil {
			return "", fmt.Errorf("no debugger_url and failed to launch: %w", err)
		}
		return url, nil
	}

	bin := m.cfg.Launch[0]
	launch := launcher.New().Bin(bin).Headless(m.cfg.IsHeadless())
	for _, rawFlag := range m.cfg.Launch[1:] {
		flagStr := strings.TrimLeft(rawFlag, "-")
		name, val, hasVal := strings.Cut(flagStr, "=")
		if hasVal {
			launch = launch.Set(flags.Flag(name), val)
		} else {
			launch = launch.Set(flags.Flag(name))
		}
	}
	url, err := launch.Launch()
	if err == nil {
		return url, nil
	}
	// Fallback without the extra flags
	fallback := launcher.New().Bin(bin).Headless(m.cfg.IsHeadless())
	alt, altErr := fallback.Launch()
	if altErr != nil {
		return "", fmt.Errorf("launch chrome: %w (fallback: %v)", err, altErr)
	}
	return alt, nil
}

func (m *SessionManager) ensureStarted(ctx context.Context) (*rod.Browser, error) {
	m.mu.RLock()
	b := m.browser
	m.mu.RUnlock()
	if b != nil {
		return b, nil
	}
	if err := m.Start(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.browser == nil {
		return nil, errors.New("browser not connected")
	}
	return m.browser, nil
}

// ControlURL returns the WebSocket debugger URL.
func (m *SessionManager) ControlURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlURL
}

// IsConnected returns whether the browser is connected.
func (m *SessionManager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// Shutdown closes Chrome if this manager launched it, otherwise it only
// forgets the connection so the user's browser keeps running.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.browser != nil && m.launched {
		err = m.browser.Close()
	}
	m.browser = nil
	m.controlURL = ""
	m.launched = false
	return err
}

func (m *SessionManager) dropLocked() {
	if m.launched && m.browser != nil {
		_ = m.browser.Close()
	}
	m.browser = nil
	m.controlURL = ""
	m.launched = false
}

// Open creates a new tab on url and waits for it to load.
func (m *SessionManager) Open(ctx context.Context, url string) (*Tab, error) {
	b, err := m.ensureStarted(ctx)
	if err != nil {
		return nil, err
	}

	p, err := b.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.GetViewportWidth(),
		Height:            m.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(p); err != nil {
		m.log.Warn("failed to set viewport", zap.Error(err))
	}

	if err := p.Context(ctx).Timeout(m.cfg.NavigationTimeout()).WaitLoad(); err != nil {
		m.log.Warn("page did not finish loading", zap.String("url", url), zap.Error(err))
	}
	if _, err := p.Activate(); err != nil {
		m.log.Warn("failed to activate tab", zap.Error(err))
	}
	return newTab(p, url, m.log), nil
}

// Tabs lists the open page targets.
func (m *SessionManager) Tabs(ctx context.Context) ([]*Tab, error) {
	b, err := m.ensureStarted(ctx)
	if err != nil {
		return nil, err
	}
	pages, err := b.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	tabs := make([]*Tab, 0, len(pages))
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			m.log.Debug("skipping target without info", zap.Error(err))
			continue
		}
		if info.Type != proto.TargetTargetInfoTypePage {
			continue
		}
		tabs = append(tabs, newTab(p, info.URL, m.log))
	}
	return tabs, nil
}

type focusState struct {
	focused bool
	visible bool
}

const focusProbeJS = `() => ({focused: document.hasFocus(), visible: document.visibilityState === 'visible'})`

// ActiveTab returns the focused tab, or the first visible one when no tab
// reports focus. Tabs are probed concurrently.
func (m *SessionManager) ActiveTab(ctx context.Context) (*Tab, error) {
	tabs, err := m.Tabs(ctx)
	if err != nil {
		return nil, err
	}
	if len(tabs) == 0 {
		return nil, ErrNoActiveTab
	}

	states := make([]focusState, len(tabs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.GetProbeConcurrency())
	for i, tab := range tabs {
		g.Go(func() error {
			res, err := tab.page.Context(gctx).Eval(focusProbeJS)
			if err != nil {
				// Crashed or detached tabs are not candidates.
				m.log.Debug("focus probe failed", zap.String("url", tab.url), zap.Error(err))
				return nil
			}
			states[i] = focusState{
				focused: res.Value.Get("focused").Bool(),
				visible: res.Value.Get("visible").Bool(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return pickActive(tabs, states)
}

func pickActive(tabs []*Tab, states []focusState) (*Tab, error) {
	for i, s := range states {
		if s.focused {
			return tabs[i], nil
		}
	}
	for i, s := range states {
		if s.visible {
			return tabs[i], nil
		}
	}
	return nil, ErrNoActiveTab
}
