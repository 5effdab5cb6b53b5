package automation

import "time"

// Kind classifies an Event.
type Kind string

const (
	KindProgress    Kind = "progress"
	KindItemResult  Kind = "item_result"
	KindRunComplete Kind = "run_complete"
)

// Outcome is the terminal state of one item.
type Outcome string

const (
	OutcomeAdded          Outcome = "added"
	OutcomeNoResults      Outcome = "no_results"
	OutcomeMissingControl Outcome = "missing_control"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeFailed         Outcome = "failed"
)

// Event is one element of a run's ordered status stream.
type Event struct {
	RunID    string    `json:"run_id"`
	Kind     Kind      `json:"kind"`
	Index    int       `json:"index"` // -1 for run-level events
	Item     string    `json:"item,omitempty"`
	Outcome  Outcome   `json:"outcome,omitempty"`
	Product  string    `json:"product,omitempty"`
	Degraded bool      `json:"degraded,omitempty"`
	Message  string    `json:"message"`
	Err      error     `json:"-"`
	Time     time.Time `json:"time"`
}

// Succeeded reports whether the event is an item result that added a product.
func (e Event) Succeeded() bool {
	return e.Kind == KindItemResult && e.Outcome == OutcomeAdded
}

// Summary aggregates a finished run.
type Summary struct {
	RunID   string
	Results []Event // one item_result per item, in order
	Elapsed time.Duration
}

// Added counts successful items.
func (s Summary) Added() int {
	n := 0
	for _, r := range s.Results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// Failed counts unsuccessful items.
func (s Summary) Failed() int {
	return len(s.Results) - s.Added()
}
