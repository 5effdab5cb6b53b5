// Package coordinator bridges the list submitter and the automation routine.
// It only forwards a list when the focused tab is on the configured site.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"cartadder/internal/automation"
	"cartadder/internal/grocery"
	"cartadder/internal/page"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrPrecondition marks a dispatch refused before anything touched the page.
	ErrPrecondition = errors.New("precondition failed")
	// ErrNoActiveTab is wrapped when no focused tab could be resolved.
	ErrNoActiveTab = errors.New("no active tab")
)

// PreconditionError explains why a dispatch was refused.
type PreconditionError struct {
	Origin string // required site origin
	TabURL string // empty when no tab was resolved
	Err    error  // resolver error, if any
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("Please navigate to %s", e.Origin)
}

// Is makes errors.Is(err, ErrPrecondition) hold.
func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

func (e *PreconditionError) Unwrap() error { return e.Err }

// Tab is a browser tab the routine can run in.
type Tab interface {
	URL() string
	// Inject makes the automation helpers available; safe to repeat.
	Inject(ctx context.Context) error
	Page() page.Page
}

// TabResolver finds the tab the user is looking at.
type TabResolver interface {
	ActiveTab(ctx context.Context) (Tab, error)
}

// ResolverFunc adapts a function to TabResolver.
type ResolverFunc func(ctx context.Context) (Tab, error)

// ActiveTab implements TabResolver.
func (f ResolverFunc) ActiveTab(ctx context.Context) (Tab, error) { return f(ctx) }

// Runner executes a grocery list against a page.
type Runner interface {
	Run(ctx context.Context, runID string, p page.Page, items []string, events chan<- automation.Event) automation.Summary
}

// Coordinator validates dispatch requests and starts runs.
type Coordinator struct {
	origin string
	scheme string
	host   string
	tabs   TabResolver
	runner Runner
	log    *zap.Logger
	wg     sync.WaitGroup
}

// New creates a Coordinator for origin (scheme://host[:port]).
func New(origin string, tabs TabResolver, runner Runner, logger *zap.Logger) (*Coordinator, error) {
	scheme, host, err := splitOrigin(origin)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		origin: strings.TrimRight(origin, "/"),
		scheme: scheme,
		host:   host,
		tabs:   tabs,
		runner: runner,
		log:    logger,
	}, nil
}

// Origin returns the required site origin.
func (c *Coordinator) Origin() string {
	return c.origin
}

// Dispatch checks the focused tab, injects the helpers and starts the run.
// It returns as soon as the run has been handed to the routine; ctx bounds
// the whole run, not just the dispatch. A *PreconditionError means nothing
// was injected.
func (c *Coordinator) Dispatch(ctx context.Context, items []string) (*Run, error) {
	if len(items) == 0 {
		return nil, grocery.ErrEmptyList
	}

	tab, err := c.tabs.ActiveTab(ctx)
	if err != nil || tab == nil {
		c.log.Warn("no active tab found", zap.Error(err))
		cause := ErrNoActiveTab
		if err != nil {
			cause = fmt.Errorf("%w: %w", ErrNoActiveTab, err)
		}
		return nil, &PreconditionError{Origin: c.origin, Err: cause}
	}
	if !c.Matches(tab.URL()) {
		c.log.Warn("active tab is not on the target site",
			zap.String("tab_url", tab.URL()),
			zap.String("origin", c.origin))
		return nil, &PreconditionError{Origin: c.origin, TabURL: tab.URL()}
	}

	if err := tab.Inject(ctx); err != nil {
		return nil, fmt.Errorf("inject automation into tab: %w", err)
	}

	r := newRun(uuid.NewString(), items)
	c.log.Info("forwarding grocery list",
		zap.String("run_id", r.ID),
		zap.String("tab_url", tab.URL()),
		zap.Int("items", len(r.Items)))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(r.done)
		defer close(r.events)
		r.summary = c.runner.Run(ctx, r.ID, tab.Page(), r.Items, r.events)
	}()
	return r, nil
}

// Wait blocks until every started run has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Matches reports whether rawURL is on the coordinator's origin.
func (c *Coordinator) Matches(rawURL string) bool {
	scheme, host, err := splitOrigin(rawURL)
	if err != nil {
		return false
	}
	return scheme == c.scheme && host == c.host
}

// splitOrigin returns the lowercased scheme and host of an http(s) URL with
// default ports removed.
func splitOrigin(raw string) (scheme, host string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse %q: %w", raw, err)
	}
	scheme = strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", "", fmt.Errorf("%q is not an http(s) URL", raw)
	}
	host = strings.ToLower(u.Hostname())
	if host == "" {
		return "", "", fmt.Errorf("%q has no host", raw)
	}
	if port := u.Port(); port != "" && !(scheme == "https" && port == "443") && !(scheme == "http" && port == "80") {
		host += ":" + port
	}
	return scheme, host, nil
}
