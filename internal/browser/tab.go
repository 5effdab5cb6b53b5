package browser

import (
	"context"
	"fmt"

	"cartadder/internal/page"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

// helperJS installs window.__cartadder once per document. setValue goes
// through the native value setter so framework-controlled inputs see it.
const helperJS = `() => {
  if (window.__cartadder) { return false; }
  const nativeSetter = Object.getOwnPropertyDescriptor(HTMLInputElement.prototype, 'value').set;
  window.__cartadder = {
    version: 1,
    setValue(el, value) {
      if (el instanceof HTMLInputElement) { nativeSetter.call(el, value); } else { el.value = value; }
    },
    fire(el, type) { el.dispatchEvent(new Event(type, { bubbles: true })); },
  };
  return true;
}`

// Tab is one page target.
type Tab struct {
	page *rod.Page
	url  string
	log  *zap.Logger
}

func newTab(p *rod.Page, url string, logger *zap.Logger) *Tab {
	return &Tab{page: p, url: url, log: logger}
}

// URL returns the location the tab reported when it was listed.
func (t *Tab) URL() string {
	return t.url
}

// Inject installs the automation helpers in the current document and on
// every new document of the tab. Calling it again is harmless.
func (t *Tab) Inject(ctx context.Context) error {
	p := t.page.Context(ctx)
	res, err := p.Eval(helperJS)
	if err != nil {
		return fmt.Errorf("inject helpers: %w", err)
	}
	installed := res.Value.Bool()
	if installed {
		// Survive full navigations triggered by a search submit.
		if _, err := p.EvalOnNewDocument("(" + helperJS + ")()"); err != nil {
			return fmt.Errorf("register helpers on new document: %w", err)
		}
	}
	t.log.Debug("automation helpers ready", zap.String("url", t.url), zap.Bool("installed", installed))
	return nil
}

// Page returns the tab as a page.Page.
func (t *Tab) Page() page.Page {
	return &rodPage{page: t.page}
}

// Activate brings the tab to the front.
func (t *Tab) Activate() error {
	_, err := t.page.Activate()
	return err
}
