// Package grocery turns free-form grocery list text into the ordered item
// sequence processed by the automation routine.
package grocery

import (
	"errors"
	"strings"
)

// ErrEmptyList is returned when the input contains no usable item lines.
var ErrEmptyList = errors.New("grocery list is empty")

// List is an ordered sequence of trimmed, non-empty item names.
// Order is processing order; duplicates are kept.
type List []string

// Parse splits text on line breaks, trims every line and drops blank ones.
// The returned slice is never shared with the caller's input.
func Parse(text string) List {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	items := make(List, 0, len(lines))
	for _, line := range lines {
		item := strings.TrimSpace(line)
		if item == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// ParseNonEmpty is Parse that fails with ErrEmptyList when nothing survives.
func ParseNonEmpty(text string) (List, error) {
	items := Parse(text)
	if len(items) == 0 {
		return nil, ErrEmptyList
	}
	return items, nil
}

// FromArgs builds a list from command-line arguments. Each argument may
// itself hold several lines.
func FromArgs(args []string) List {
	return Parse(strings.Join(args, "\n"))
}

// FirstToken returns the lowercased first whitespace-delimited token of an
// item name, the key used to match result card descriptions.
func FirstToken(item string) string {
	fields := strings.Fields(item)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Strings returns a copy of the list as a plain string slice.
func (l List) Strings() []string {
	out := make([]string, len(l))
	copy(out, l)
	return out
}
