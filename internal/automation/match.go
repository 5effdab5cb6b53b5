package automation

import (
	"strings"

	"cartadder/internal/grocery"
)

// SelectCard picks the result card for item from the card descriptions in
// page order. It returns the first card whose description contains the
// item's first token, case-insensitively, with matched=true. Without a match
// it falls back to card 0 with matched=false. An empty slice yields -1.
func SelectCard(item string, descriptions []string) (index int, matched bool) {
	if len(descriptions) == 0 {
		return -1, false
	}
	token := grocery.FirstToken(item)
	if token != "" {
		for i, desc := range descriptions {
			if strings.Contains(strings.ToLower(desc), token) {
				return i, true
			}
		}
	}
	return 0, false
}
