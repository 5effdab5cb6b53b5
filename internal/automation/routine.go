// Package automation implements the per-item search-and-add procedure that
// runs against a retailer page.
//
// A Routine processes a grocery list strictly in order. Every item ends in
// exactly one item_result event, failures included, and the run ends with
// one run_complete event. Item failures never abort the rest of the list.
package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"cartadder/internal/page"

	"go.uber.org/zap"
)

const unknownProduct = "Unknown Product"

// itemError is an expected per-item failure with its own status text.
type itemError struct {
	outcome Outcome
	message string
}

func (e *itemError) Error() string { return e.message }

// Routine drives one page through a grocery list.
type Routine struct {
	cfg    Config
	log    *zap.Logger
	jitter func(n int64) int64
}

// New creates a Routine. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Routine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Routine{cfg: cfg, log: logger, jitter: rand.Int64N}
}

// Config returns the routine configuration.
func (r *Routine) Config() Config {
	return r.cfg
}

// run carries the per-run state shared by the steps.
type run struct {
	id     string
	page   page.Page
	events chan<- Event
	log    *zap.Logger
}

// Run processes items against p and sends every status event to events.
// The caller must drain events until Run returns; Run does not close it.
// A done ctx makes each remaining item fail fast, so the stream shape holds.
func (r *Routine) Run(ctx context.Context, runID string, p page.Page, items []string, events chan<- Event) Summary {
	start := time.Now()
	rn := &run{id: runID, page: p, events: events, log: r.log.With(zap.String("run_id", runID))}
	rn.log.Info("grocery list received", zap.Int("items", len(items)))
	rn.emit(Event{Kind: KindProgress, Index: -1, Message: "Starting to process list..."})

	summary := Summary{RunID: runID, Results: make([]Event, 0, len(items))}
	for i, item := range items {
		result := rn.emit(r.processItem(ctx, rn, i, item))
		summary.Results = append(summary.Results, result)

		if i < len(items)-1 {
			_ = Sleep(ctx, r.pace())
		}
	}

	summary.Elapsed = time.Since(start)
	rn.log.Info("finished processing grocery list",
		zap.Int("added", summary.Added()),
		zap.Int("failed", summary.Failed()),
		zap.Duration("elapsed", summary.Elapsed))
	rn.emit(Event{Kind: KindRunComplete, Index: -1, Message: "All items processed!"})
	return summary
}

// pace returns the randomized delay between two items, uniform in [min, max).
func (r *Routine) pace() time.Duration {
	t := r.cfg.Timings
	if t.PacingMax <= t.PacingMin {
		return t.PacingMin
	}
	return t.PacingMin + time.Duration(r.jitter(int64(t.PacingMax-t.PacingMin)))
}

// emit stamps ev with the run ID and time, sends it and returns the sent copy.
func (rn *run) emit(ev Event) Event {
	ev.RunID = rn.id
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	rn.events <- ev
	return ev
}

func (rn *run) progress(index int, item, msg string, degraded bool) {
	rn.emit(Event{Kind: KindProgress, Index: index, Item: item, Message: msg, Degraded: degraded})
}

// processItem runs the procedure for one item and converts any failure into
// its terminal item_result event.
func (r *Routine) processItem(ctx context.Context, rn *run, index int, item string) Event {
	log := rn.log.With(zap.Int("index", index), zap.String("item", item))
	log.Info("processing item")

	result := Event{Kind: KindItemResult, Index: index, Item: item}
	product, degraded, err := r.searchAndAdd(ctx, rn, log, index, item)
	result.Degraded = degraded
	if err == nil {
		log.Info("clicked add to cart", zap.String("product", product))
		result.Outcome = OutcomeAdded
		result.Product = product
		result.Message = fmt.Sprintf("Added %s to cart.", product)
		return result
	}

	result.Err = err
	var ie *itemError
	switch {
	case errors.As(err, &ie):
		result.Outcome = ie.outcome
		result.Message = ie.message
		log.Warn("item not added", zap.String("outcome", string(ie.outcome)), zap.String("status", ie.message))
	case errors.Is(err, ErrTimeout):
		result.Outcome = OutcomeTimeout
		result.Message = fmt.Sprintf("Error with %s: %v", item, err)
		log.Error("error processing item", zap.Error(err))
	default:
		result.Outcome = OutcomeFailed
		result.Message = fmt.Sprintf("Error with %s: %v", item, err)
		log.Error("error processing item", zap.Error(err))
	}
	return result
}

func (r *Routine) searchAndAdd(ctx context.Context, rn *run, log *zap.Logger, index int, item string) (product string, degraded bool, err error) {
	sel := r.cfg.Selectors
	t := r.cfg.Timings
	rn.progress(index, item, fmt.Sprintf("Searching for %s...", item), false)

	input, err := r.waitForElement(ctx, rn.page, sel.SearchInput, t.SearchInputTimeout)
	if err != nil {
		return "", false, err
	}
	if r.cfg.RequireSearchForm {
		inForm, err := input.Closest(ctx, "form")
		if err != nil {
			return "", false, fmt.Errorf("locate search form: %w", err)
		}
		if !inForm {
			return "", false, &itemError{
				outcome: OutcomeMissingControl,
				message: fmt.Sprintf("Error: Search form not found for %s.", item),
			}
		}
	}

	before, err := r.fingerprint(ctx, rn.page)
	if err != nil {
		return "", false, err
	}

	if err := input.SetValue(ctx, item); err != nil {
		return "", false, fmt.Errorf("set search value: %w", err)
	}
	for _, evt := range []string{page.EventInput, page.EventChange} {
		if err := input.Dispatch(ctx, evt); err != nil {
			return "", false, fmt.Errorf("dispatch %s: %w", evt, err)
		}
	}
	if err := Sleep(ctx, t.InputSettle); err != nil {
		return "", false, err
	}

	button, err := r.waitForElement(ctx, rn.page, sel.SearchButton, t.SearchButtonTimeout)
	switch {
	case err == nil:
		if err := button.Click(ctx); err != nil {
			return "", false, fmt.Errorf("click search button: %w", err)
		}
	case errors.Is(err, ErrTimeout):
		degraded = true
		log.Warn("search button not found, relying on input change", zap.String("selector", sel.SearchButton))
		rn.progress(index, item, fmt.Sprintf("Search button not found for %s, relying on input change.", item), true)
	default:
		return "", false, err
	}

	cards, stale, err := r.waitForResults(ctx, rn.page, before)
	if err != nil {
		return "", degraded, err
	}
	if stale {
		degraded = true
		log.Warn("results did not change before timeout, using current cards")
	}
	if len(cards) == 0 {
		log.Info("no product cards found")
		return "", degraded, &itemError{outcome: OutcomeNoResults, message: fmt.Sprintf("No results for %s.", item)}
	}

	descriptions, err := r.describe(ctx, cards)
	if err != nil {
		return "", degraded, err
	}
	idx, matched := SelectCard(item, descriptions)
	if !matched {
		degraded = true
		log.Warn("no relevant card, using the first result", zap.Int("cards", len(cards)))
		rn.progress(index, item, fmt.Sprintf("Could not find a highly relevant card for %q, using the first result.", item), true)
	}
	card := cards[idx]
	product = strings.TrimSpace(descriptions[idx])
	if product == "" {
		product = unknownProduct
	}

	add, err := card.Find(ctx, sel.AddToCart)
	if err != nil {
		if page.IsNotFound(err) {
			return "", degraded, &itemError{
				outcome: OutcomeMissingControl,
				message: fmt.Sprintf("Add button not found for %s.", item),
			}
		}
		return "", degraded, fmt.Errorf("locate add button: %w", err)
	}

	log.Info("attempting to add to cart", zap.String("product", product), zap.Int("card", idx))
	rn.progress(index, item, fmt.Sprintf("Adding %s to cart...", product), false)
	if err := add.ScrollIntoView(ctx); err != nil {
		return "", degraded, fmt.Errorf("scroll to add button: %w", err)
	}
	if err := Sleep(ctx, t.ScrollSettle); err != nil {
		return "", degraded, err
	}
	if err := add.Click(ctx); err != nil {
		return "", degraded, fmt.Errorf("click add button: %w", err)
	}
	if err := Sleep(ctx, t.AddSettle); err != nil {
		return "", degraded, err
	}
	return product, degraded, nil
}

// waitForElement polls at the fixed poll interval until selector matches.
func (r *Routine) waitForElement(ctx context.Context, p page.Page, selector string, timeout time.Duration) (page.Element, error) {
	opts := PollOptions{Interval: r.cfg.Timings.PollInterval, Timeout: timeout}
	el, err := PollFor(ctx, opts, func(ctx context.Context) (page.Element, bool, error) {
		el, err := p.Find(ctx, selector)
		if err != nil {
			if page.IsNotFound(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
		return el, true, nil
	})
	if errors.Is(err, ErrTimeout) {
		return nil, fmt.Errorf("waiting for element %s: %w", selector, err)
	}
	return el, err
}

// cardSet identifies what the results area showed at one moment by the
// card count and the text of the first and last cards.
type cardSet struct {
	count int
	first string
	last  string
}

func (r *Routine) fingerprint(ctx context.Context, p page.Page) (cardSet, error) {
	cards, err := p.FindAll(ctx, r.cfg.Selectors.ResultCard)
	if err != nil {
		return cardSet{}, fmt.Errorf("query result cards: %w", err)
	}
	return fingerprintOf(ctx, cards)
}

func fingerprintOf(ctx context.Context, cards []page.Element) (cardSet, error) {
	fp := cardSet{count: len(cards)}
	if len(cards) == 0 {
		return fp, nil
	}
	var err error
	if fp.first, err = cards[0].Text(ctx); err != nil {
		return cardSet{}, fmt.Errorf("read result card: %w", err)
	}
	if fp.last, err = cards[len(cards)-1].Text(ctx); err != nil {
		return cardSet{}, fmt.Errorf("read result card: %w", err)
	}
	return fp, nil
}

// waitForResults polls with backoff until result cards exist and differ from
// the set seen before the search. When the window expires with unchanged
// cards still present those are returned with stale=true.
func (r *Routine) waitForResults(ctx context.Context, p page.Page, before cardSet) (cards []page.Element, stale bool, err error) {
	t := r.cfg.Timings
	opts := PollOptions{
		Interval:    t.PollInterval,
		Timeout:     t.ResultsTimeout,
		Backoff:     t.ResultsBackoff,
		MaxInterval: t.ResultsMaxInterval,
	}
	cards, err = PollFor(ctx, opts, func(ctx context.Context) ([]page.Element, bool, error) {
		cards, err := p.FindAll(ctx, r.cfg.Selectors.ResultCard)
		if err != nil {
			return nil, false, fmt.Errorf("query result cards: %w", err)
		}
		if len(cards) == 0 {
			return nil, false, nil
		}
		fp, err := fingerprintOf(ctx, cards)
		if err != nil {
			return nil, false, err
		}
		return cards, before.count == 0 || fp != before, nil
	})
	if err == nil {
		return cards, false, nil
	}
	if !errors.Is(err, ErrTimeout) {
		return nil, false, err
	}

	cards, err = p.FindAll(ctx, r.cfg.Selectors.ResultCard)
	if err != nil {
		return nil, false, fmt.Errorf("query result cards: %w", err)
	}
	return cards, len(cards) > 0, nil
}

// describe reads the description text of every card. A card without a
// description element yields "".
func (r *Routine) describe(ctx context.Context, cards []page.Element) ([]string, error) {
	out := make([]string, len(cards))
	for i, card := range cards {
		desc, err := card.Find(ctx, r.cfg.Selectors.CardDescription)
		if err != nil {
			if page.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("read card %d description: %w", i, err)
		}
		text, err := desc.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("read card %d description: %w", i, err)
		}
		out[i] = text
	}
	return out, nil
}
