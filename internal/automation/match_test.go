package automation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectCard(t *testing.T) {
	tests := []struct {
		name        string
		item        string
		descs       []string
		wantIndex   int
		wantMatched bool
	}{
		{name: "no cards", item: "milk", descs: nil, wantIndex: -1},
		{name: "first matches", item: "milk", descs: []string{"Whole Milk", "Milk Chocolate"}, wantIndex: 0, wantMatched: true},
		{name: "later card matches", item: "eggs", descs: []string{"Whole Milk", "Large Brown Eggs"}, wantIndex: 1, wantMatched: true},
		{name: "case insensitive", item: "BREAD", descs: []string{"Milk", "sourdough bread"}, wantIndex: 1, wantMatched: true},
		{name: "first token only", item: "peanut butter", descs: []string{"Butter Sticks", "Peanut Oil"}, wantIndex: 1, wantMatched: true},
		{name: "substring match", item: "egg", descs: []string{"Milk", "Eggplant"}, wantIndex: 1, wantMatched: true},
		{name: "no match falls back to first", item: "kale", descs: []string{"Whole Milk", "Eggs"}, wantIndex: 0},
		{name: "empty descriptions", item: "kale", descs: []string{"", ""}, wantIndex: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, matched := SelectCard(tt.item, tt.descs)
			assert.Equal(t, tt.wantIndex, idx)
			assert.Equal(t, tt.wantMatched, matched)
		})
	}
}

func TestSelectCard_OnlyKMatches(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for k := 0; k < n; k++ {
			descs := make([]string, n)
			for i := range descs {
				descs[i] = fmt.Sprintf("Product %d", i)
			}
			descs[k] = "Fresh Strawberries"

			idx, matched := SelectCard("strawberries 1lb", descs)
			assert.True(t, matched, "n=%d k=%d", n, k)
			assert.Equal(t, k, idx, "n=%d k=%d", n, k)
		}
	}
}
