package coordinator

import "cartadder/internal/automation"

const eventBuffer = 32

// Run is the acknowledgement of a dispatched list. Events must be drained
// until it is closed; it closes after the run_complete event.
type Run struct {
	ID    string
	Items []string

	events  chan automation.Event
	done    chan struct{}
	summary automation.Summary
}

func newRun(id string, items []string) *Run {
	return &Run{
		ID:     id,
		Items:  append([]string(nil), items...),
		events: make(chan automation.Event, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Events returns the run's ordered status stream.
func (r *Run) Events() <-chan automation.Event {
	return r.events
}

// Done is closed once the routine has returned and Events is closed.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Summary returns the run summary; it blocks until the run is done.
func (r *Run) Summary() automation.Summary {
	<-r.done
	return r.summary
}
