package browser

import (
	"context"
	"fmt"

	"cartadder/internal/page"

	"github.com/go-rod/rod"
)

// rodPage adapts a rod page to page.Page. Queries never wait; polling is the
// caller's job.
type rodPage struct {
	page *rod.Page
}

var _ page.Page = (*rodPage)(nil)

func (p *rodPage) Find(ctx context.Context, selector string) (page.Element, error) {
	has, el, err := p.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	if !has {
		return nil, fmt.Errorf("%s: %w", selector, page.ErrNotFound)
	}
	return &rodElement{el: el}, nil
}

func (p *rodPage) FindAll(ctx context.Context, selector string) ([]page.Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	out := make([]page.Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Find(ctx context.Context, selector string) (page.Element, error) {
	has, child, err := e.el.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	if !has {
		return nil, fmt.Errorf("%s: %w", selector, page.ErrNotFound)
	}
	return &rodElement{el: child}, nil
}

func (e *rodElement) Closest(ctx context.Context, selector string) (bool, error) {
	res, err := e.el.Context(ctx).Eval(`(s) => this.closest(s) !== null`, selector)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(`() => this.textContent || ''`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *rodElement) SetValue(ctx context.Context, value string) error {
	_, err := e.el.Context(ctx).Eval(`(v) => {
  if (window.__cartadder) { window.__cartadder.setValue(this, v); } else { this.value = v; }
}`, value)
	return err
}

func (e *rodElement) Dispatch(ctx context.Context, eventType string) error {
	_, err := e.el.Context(ctx).Eval(`(t) => this.dispatchEvent(new Event(t, { bubbles: true }))`, eventType)
	return err
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => this.scrollIntoView({ behavior: 'smooth', block: 'center' })`)
	return err
}

// Click uses the DOM click() so covered or off-screen controls still fire,
// matching what a script running in the page would do.
func (e *rodElement) Click(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => this.click()`)
	return err
}
