package automation_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cartadder/internal/automation"
	"cartadder/internal/page"
	"cartadder/internal/page/htmlpage"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const storeShell = `<html><body>
<form id="search"><input id="SearchBar-input" /><button aria-label="search" id="search-btn">Search</button></form>
<div id="results">%s</div>
</body></html>`

type product struct {
	desc   string
	noAdd  bool
	noDesc bool
}

func renderCards(products []product) string {
	var b strings.Builder
	for i, p := range products {
		fmt.Fprintf(&b, `<div data-testid="product-card-%d">`, i)
		if !p.noDesc {
			fmt.Fprintf(&b, `<span data-testid="cart-page-item-description">%s</span>`, p.desc)
		}
		if !p.noAdd {
			fmt.Fprintf(&b, `<button data-testid="kds-QuantityStepper-ctaButton" id="add-%d">Add to Cart</button>`, i)
		}
		b.WriteString(`</div>`)
	}
	return b.String()
}

// newStore builds a page that renders catalog[query] when searched.
func newStore(t *testing.T, catalog map[string][]product) *htmlpage.Page {
	t.Helper()
	p, err := htmlpage.New(fmt.Sprintf(storeShell, ""))
	require.NoError(t, err)
	sel := automation.DefaultSelectors()
	p.SimulateSearch("#search-btn", sel.SearchInput, "#results", func(q string) string {
		return renderCards(catalog[q])
	})
	return p
}

func fastConfig() automation.Config {
	cfg := automation.DefaultConfig()
	cfg.Timings = automation.Timings{
		PollInterval:        time.Millisecond,
		SearchInputTimeout:  20 * time.Millisecond,
		InputSettle:         time.Millisecond,
		SearchButtonTimeout: 20 * time.Millisecond,
		ResultsTimeout:      20 * time.Millisecond,
		ResultsBackoff:      1.5,
		ResultsMaxInterval:  5 * time.Millisecond,
		ScrollSettle:        time.Millisecond,
		AddSettle:           2 * time.Millisecond,
		PacingMin:           3 * time.Millisecond,
		PacingMax:           4 * time.Millisecond,
	}
	return cfg
}

func runRoutine(t *testing.T, ctx context.Context, r *automation.Routine, p page.Page, items []string) ([]automation.Event, automation.Summary) {
	t.Helper()
	events := make(chan automation.Event, 256)
	summary := r.Run(ctx, "run-1", p, items, events)
	close(events)
	var out []automation.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out, summary
}

func messages(events []automation.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Message
	}
	return out
}

func results(events []automation.Event) []automation.Event {
	var out []automation.Event
	for _, ev := range events {
		if ev.Kind == automation.KindItemResult {
			out = append(out, ev)
		}
	}
	return out
}

func clickIDs(p *htmlpage.Page) []string {
	var ids []string
	for _, c := range p.Clicks() {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestRoutine_AddsBestMatch(t *testing.T) {
	store := newStore(t, map[string][]product{
		"eggs": {{desc: "Whole Milk"}, {desc: "Large Brown Eggs"}, {desc: "Egg Noodles"}},
	})
	r := automation.New(fastConfig(), nil)

	events, summary := runRoutine(t, context.Background(), r, store, []string{"eggs"})

	want := []string{
		"Starting to process list...",
		"Searching for eggs...",
		"Adding Large Brown Eggs to cart...",
		"Added Large Brown Eggs to cart.",
		"All items processed!",
	}
	if diff := cmp.Diff(want, messages(events)); diff != "" {
		t.Errorf("status stream mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"search-btn", "add-1"}, clickIDs(store))
	assert.Equal(t, "eggs", store.Value("input#SearchBar-input"))

	require.Len(t, summary.Results, 1)
	res := summary.Results[0]
	assert.Equal(t, automation.OutcomeAdded, res.Outcome)
	assert.Equal(t, "Large Brown Eggs", res.Product)
	assert.False(t, res.Degraded)
	assert.Equal(t, "run-1", res.RunID)

	for _, ev := range events {
		assert.Equal(t, "run-1", ev.RunID)
		assert.False(t, ev.Time.IsZero())
	}
}

func TestRoutine_SummaryMatchesStreamedResults(t *testing.T) {
	store := newStore(t, map[string][]product{
		"milk": {{desc: "Whole Milk"}},
		"eggs": {{desc: "Large Eggs"}},
	})
	r := automation.New(fastConfig(), nil)

	events, summary := runRoutine(t, context.Background(), r, store, []string{"milk", "tofu", "eggs"})

	streamed := results(events)
	require.Len(t, streamed, 3)
	if diff := cmp.Diff(streamed, summary.Results, cmp.Comparer(func(a, b error) bool { return (a == nil) == (b == nil) })); diff != "" {
		t.Errorf("summary results differ from streamed results (-stream +summary):\n%s", diff)
	}
	for _, res := range summary.Results {
		assert.Equal(t, "run-1", res.RunID)
		assert.False(t, res.Time.IsZero())
	}
}

func TestRoutine_DispatchesValueEvents(t *testing.T) {
	store := newStore(t, map[string][]product{"milk": {{desc: "Milk"}}})
	r := automation.New(fastConfig(), nil)

	_, _ = runRoutine(t, context.Background(), r, store, []string{"milk"})

	var dispatched []string
	for _, a := range store.Actions() {
		if a.Type == htmlpage.ActionDispatch {
			dispatched = append(dispatched, a.Value)
		}
	}
	assert.Equal(t, []string{page.EventInput, page.EventChange}, dispatched)
}

func TestRoutine_SelectsOnlyMatchingCard(t *testing.T) {
	for n := 1; n <= 4; n++ {
		for k := 0; k < n; k++ {
			t.Run(fmt.Sprintf("n=%d/k=%d", n, k), func(t *testing.T) {
				products := make([]product, n)
				for i := range products {
					products[i] = product{desc: fmt.Sprintf("Filler %d", i)}
				}
				products[k] = product{desc: "Honeycrisp Apples"}
				store := newStore(t, map[string][]product{"apples": products})

				_, summary := runRoutine(t, context.Background(), automation.New(fastConfig(), nil), store, []string{"apples"})

				assert.Equal(t, []string{"search-btn", fmt.Sprintf("add-%d", k)}, clickIDs(store))
				assert.Equal(t, "Honeycrisp Apples", summary.Results[0].Product)
			})
		}
	}
}

func TestRoutine_NoMatchFallsBackToFirstCard(t *testing.T) {
	store := newStore(t, map[string][]product{
		"kale": {{desc: "Spinach"}, {desc: "Romaine"}},
	})
	core, logs := observer.New(zapcore.WarnLevel)
	r := automation.New(fastConfig(), zap.New(core))

	events, summary := runRoutine(t, context.Background(), r, store, []string{"kale"})

	assert.Equal(t, []string{"search-btn", "add-0"}, clickIDs(store))
	res := summary.Results[0]
	assert.Equal(t, automation.OutcomeAdded, res.Outcome)
	assert.True(t, res.Degraded)
	assert.Contains(t, messages(events), `Could not find a highly relevant card for "kale", using the first result.`)
	assert.Equal(t, 1, logs.FilterMessage("no relevant card, using the first result").Len())
}

func TestRoutine_NoResultsContinues(t *testing.T) {
	store := newStore(t, map[string][]product{
		"milk": {{desc: "Whole Milk"}},
	})
	r := automation.New(fastConfig(), nil)

	events, _ := runRoutine(t, context.Background(), r, store, []string{"unobtainium", "milk"})

	res := results(events)
	require.Len(t, res, 2)
	assert.Equal(t, automation.OutcomeNoResults, res[0].Outcome)
	assert.Equal(t, "No results for unobtainium.", res[0].Message)
	assert.Equal(t, automation.OutcomeAdded, res[1].Outcome)
	assert.Equal(t, automation.KindRunComplete, events[len(events)-1].Kind)
}

func TestRoutine_MissingAddButton(t *testing.T) {
	store := newStore(t, map[string][]product{
		"bread": {{desc: "Sourdough Bread", noAdd: true}},
	})

	_, summary := runRoutine(t, context.Background(), automation.New(fastConfig(), nil), store, []string{"bread"})

	res := summary.Results[0]
	assert.Equal(t, automation.OutcomeMissingControl, res.Outcome)
	assert.Equal(t, "Add button not found for bread.", res.Message)
	assert.Equal(t, []string{"search-btn"}, clickIDs(store))
}

func TestRoutine_UnknownProductName(t *testing.T) {
	store := newStore(t, map[string][]product{
		"rice": {{noDesc: true}},
	})

	_, summary := runRoutine(t, context.Background(), automation.New(fastConfig(), nil), store, []string{"rice"})

	res := summary.Results[0]
	assert.Equal(t, automation.OutcomeAdded, res.Outcome)
	assert.Equal(t, "Unknown Product", res.Product)
	assert.True(t, res.Degraded)
}

func TestRoutine_SearchInputTimeout(t *testing.T) {
	p, err := htmlpage.New(`<html><body><p>maintenance</p></body></html>`)
	require.NoError(t, err)

	events, summary := runRoutine(t, context.Background(), automation.New(fastConfig(), nil), p, []string{"milk", "eggs"})

	require.Len(t, summary.Results, 2)
	for _, res := range summary.Results {
		assert.Equal(t, automation.OutcomeTimeout, res.Outcome)
		assert.ErrorIs(t, res.Err, automation.ErrTimeout)
		assert.True(t, strings.HasPrefix(res.Message, "Error with "+res.Item+": "), res.Message)
	}
	assert.Equal(t, "All items processed!", events[len(events)-1].Message)
}

func TestRoutine_SearchFormRequired(t *testing.T) {
	p, err := htmlpage.New(`<html><body><input id="SearchBar-input"/></body></html>`)
	require.NoError(t, err)

	_, summary := runRoutine(t, context.Background(), automation.New(fastConfig(), nil), p, []string{"milk"})
	res := summary.Results[0]
	assert.Equal(t, automation.OutcomeMissingControl, res.Outcome)
	assert.Equal(t, "Error: Search form not found for milk.", res.Message)
}

func TestRoutine_NoSearchButtonProceedsDegraded(t *testing.T) {
	html := fmt.Sprintf(`<html><body><form><input id="SearchBar-input"/></form><div id="results">%s</div></body></html>`,
		renderCards([]product{{desc: "Cheddar Cheese"}}))
	p, err := htmlpage.New(html)
	require.NoError(t, err)
	core, logs := observer.New(zapcore.WarnLevel)

	events, summary := runRoutine(t, context.Background(), automation.New(fastConfig(), zap.New(core)), p, []string{"cheese"})

	res := summary.Results[0]
	assert.Equal(t, automation.OutcomeAdded, res.Outcome)
	assert.True(t, res.Degraded)
	assert.Contains(t, messages(events), "Search button not found for cheese, relying on input change.")
	assert.Equal(t, 1, logs.FilterMessage("results did not change before timeout, using current cards").Len())
	assert.Equal(t, []string{"add-0"}, clickIDs(p))
}

func TestRoutine_StreamShapeAndPacing(t *testing.T) {
	items := []string{"milk", "eggs", "bread", "butter"}
	catalog := map[string][]product{}
	for _, it := range items {
		catalog[it] = []product{{desc: "Store Brand " + it}}
	}
	store := newStore(t, catalog)
	cfg := fastConfig()
	r := automation.New(cfg, nil)

	start := time.Now()
	events, summary := runRoutine(t, context.Background(), r, store, items)
	elapsed := time.Since(start)

	res := results(events)
	require.Len(t, res, len(items))
	for i, ev := range res {
		assert.Equal(t, i, ev.Index)
		assert.Equal(t, items[i], ev.Item)
		assert.Equal(t, automation.OutcomeAdded, ev.Outcome)
	}

	last := events[len(events)-1]
	assert.Equal(t, automation.KindRunComplete, last.Kind)
	for _, ev := range events[:len(events)-1] {
		assert.NotEqual(t, automation.KindRunComplete, ev.Kind)
	}

	minimum := time.Duration(len(items))*cfg.Timings.MinItemDelay() +
		time.Duration(len(items)-1)*cfg.Timings.PacingMin
	assert.GreaterOrEqual(t, elapsed, minimum)
	assert.GreaterOrEqual(t, summary.Elapsed, minimum)
	assert.Equal(t, len(items), summary.Added())
	assert.Equal(t, 0, summary.Failed())
}

func TestRoutine_ItemResultsPrecedeNextItem(t *testing.T) {
	store := newStore(t, map[string][]product{
		"milk": {{desc: "Milk"}},
		"eggs": {{desc: "Eggs"}},
	})

	events, _ := runRoutine(t, context.Background(), automation.New(fastConfig(), nil), store, []string{"milk", "eggs"})

	lastIndex := -1
	finished := map[int]bool{}
	for _, ev := range events {
		if ev.Index < 0 {
			continue
		}
		assert.GreaterOrEqual(t, ev.Index, lastIndex, "events for item %d after item %d", ev.Index, lastIndex)
		assert.False(t, finished[ev.Index], "event after item %d finished", ev.Index)
		lastIndex = ev.Index
		if ev.Kind == automation.KindItemResult {
			finished[ev.Index] = true
		}
	}
}

func TestRoutine_CanceledContextFailsRemainingItems(t *testing.T) {
	store := newStore(t, map[string][]product{"milk": {{desc: "Milk"}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, summary := runRoutine(t, ctx, automation.New(automation.DefaultConfig(), nil), store, []string{"milk", "eggs", "bread"})

	require.Len(t, summary.Results, 3)
	for _, res := range summary.Results {
		assert.Equal(t, automation.OutcomeFailed, res.Outcome)
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
	assert.Equal(t, automation.KindRunComplete, events[len(events)-1].Kind)
	assert.Less(t, summary.Elapsed, time.Second)
}

type brokenPage struct{ err error }

func (b brokenPage) Find(context.Context, string) (page.Element, error)      { return nil, b.err }
func (b brokenPage) FindAll(context.Context, string) ([]page.Element, error) { return nil, b.err }

func TestRoutine_UnexpectedErrorIsIsolated(t *testing.T) {
	boom := errors.New("target closed")

	_, summary := runRoutine(t, context.Background(), automation.New(fastConfig(), nil), brokenPage{err: boom}, []string{"milk", "eggs"})

	require.Len(t, summary.Results, 2)
	for _, res := range summary.Results {
		assert.Equal(t, automation.OutcomeFailed, res.Outcome)
		assert.ErrorIs(t, res.Err, boom)
		assert.Equal(t, "Error with "+res.Item+": target closed", res.Message)
	}
}
