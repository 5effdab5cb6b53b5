// Package htmlpage implements page.Page over an in-memory HTML document.
//
// It backs the offline rehearsal command and the automation tests. Actions
// that would have side effects in a browser (value changes, events, clicks,
// scrolls) are recorded, and click hooks can rewrite the document to imitate
// a retailer that renders new search results.
package htmlpage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"cartadder/internal/page"

	"github.com/PuerkitoBio/goquery"
)

// ActionType names a recorded interaction.
type ActionType string

const (
	ActionSetValue ActionType = "set_value"
	ActionDispatch ActionType = "dispatch"
	ActionScroll   ActionType = "scroll"
	ActionClick    ActionType = "click"
)

// Action is one recorded interaction with the document.
type Action struct {
	Type   ActionType
	Target string // tag#id or tag[data-testid=...]
	ID     string
	TestID string
	Value  string // new value for set_value, event type for dispatch
}

// ClickHook runs after an element matching its selector is clicked.
type ClickHook func(p *Page) error

type hook struct {
	selector string
	fn       ClickHook
}

// Page is a mutable HTML document. It is safe for concurrent use.
type Page struct {
	mu      sync.Mutex
	doc     *goquery.Document
	actions []Action
	hooks   []hook
}

var _ page.Page = (*Page)(nil)

// New parses html into a Page.
func New(html string) (*Page, error) {
	return NewFromReader(strings.NewReader(html))
}

// NewFromReader parses an HTML document from r.
func NewFromReader(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Page{doc: doc}, nil
}

// OnClick registers fn to run after any element matching selector is clicked.
func (p *Page) OnClick(selector string, fn ClickHook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, hook{selector: selector, fn: fn})
}

// SetInnerHTML replaces the children of every element matching selector.
func (p *Page) SetInnerHTML(selector, html string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := p.doc.Find(selector)
	if sel.Length() == 0 {
		return fmt.Errorf("%s: %w", selector, page.ErrNotFound)
	}
	sel.SetHtml(html)
	return nil
}

// Value returns the value attribute of the first element matching selector.
func (p *Page) Value(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, _ := p.doc.Find(selector).First().Attr("value")
	return v
}

// Actions returns a copy of every recorded interaction, oldest first.
func (p *Page) Actions() []Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Action, len(p.actions))
	copy(out, p.actions)
	return out
}

// Clicks returns only the recorded clicks.
func (p *Page) Clicks() []Action {
	var clicks []Action
	for _, a := range p.Actions() {
		if a.Type == ActionClick {
			clicks = append(clicks, a)
		}
	}
	return clicks
}

// HTML renders the current document.
func (p *Page) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Html()
}

// Find implements page.Page.
func (p *Page) Find(ctx context.Context, selector string) (page.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%s: %w", selector, page.ErrNotFound)
	}
	return &element{page: p, sel: sel}, nil
}

// FindAll implements page.Page.
func (p *Page) FindAll(ctx context.Context, selector string) ([]page.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []page.Element
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{page: p, sel: s})
	})
	return out, nil
}

func (p *Page) record(sel *goquery.Selection, typ ActionType, value string) {
	id, _ := sel.Attr("id")
	testID, _ := sel.Attr("data-testid")
	p.actions = append(p.actions, Action{
		Type:   typ,
		Target: describe(sel),
		ID:     id,
		TestID: testID,
		Value:  value,
	})
}

func describe(sel *goquery.Selection) string {
	tag := goquery.NodeName(sel)
	if id, ok := sel.Attr("id"); ok && id != "" {
		return tag + "#" + id
	}
	if testID, ok := sel.Attr("data-testid"); ok && testID != "" {
		return fmt.Sprintf("%s[data-testid=%s]", tag, testID)
	}
	return tag
}

type element struct {
	page *Page
	sel  *goquery.Selection
}

func (e *element) Find(ctx context.Context, selector string) (page.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	sel := e.sel.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%s: %w", selector, page.ErrNotFound)
	}
	return &element{page: e.page, sel: sel}, nil
}

func (e *element) Closest(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.sel.Closest(selector).Length() > 0, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.sel.Text(), nil
}

func (e *element) SetValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.sel.SetAttr("value", value)
	e.page.record(e.sel, ActionSetValue, value)
	return nil
}

func (e *element) Dispatch(ctx context.Context, eventType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.record(e.sel, ActionDispatch, eventType)
	return nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.record(e.sel, ActionScroll, "")
	return nil
}

// Click records the click and then runs matching hooks outside the lock so
// they can call back into the page.
func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	e.page.record(e.sel, ActionClick, "")
	var matched []ClickHook
	for _, h := range e.page.hooks {
		if e.sel.Is(h.selector) {
			matched = append(matched, h.fn)
		}
	}
	e.page.mu.Unlock()

	for _, fn := range matched {
		if err := fn(e.page); err != nil {
			return fmt.Errorf("click hook: %w", err)
		}
	}
	return nil
}
