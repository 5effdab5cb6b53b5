// Package page defines the capabilities the automation routine needs from a
// live retailer page. Implementations exist for a real browser tab (rod) and
// for an in-memory HTML document (goquery).
package page

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a selector matches nothing.
var ErrNotFound = errors.New("element not found")

// Event names dispatched after a value change.
const (
	EventInput  = "input"
	EventChange = "change"
)

// Page is a queryable document.
type Page interface {
	// Find returns the first element matching selector, or ErrNotFound.
	Find(ctx context.Context, selector string) (Element, error)
	// FindAll returns all matching elements in document order. An empty
	// result is not an error.
	FindAll(ctx context.Context, selector string) ([]Element, error)
}

// Element is a single node of a Page.
type Element interface {
	// Find returns the first descendant matching selector, or ErrNotFound.
	Find(ctx context.Context, selector string) (Element, error)
	// Closest reports whether the element or one of its ancestors matches selector.
	Closest(ctx context.Context, selector string) (bool, error)
	// Text returns the element's text content.
	Text(ctx context.Context) (string, error)
	// SetValue assigns the value property of a form control.
	SetValue(ctx context.Context, value string) error
	// Dispatch fires a bubbling DOM event of the given type.
	Dispatch(ctx context.Context, eventType string) error
	// ScrollIntoView smoothly scrolls the element to the viewport center.
	ScrollIntoView(ctx context.Context) error
	// Click activates the element.
	Click(ctx context.Context) error
}

// IsNotFound reports whether err means a selector matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
