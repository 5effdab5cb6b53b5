// Package submitter turns a typed grocery list into a dispatched run and
// keeps a display showing the latest status message.
package submitter

import (
	"context"
	"errors"

	"cartadder/internal/automation"
	"cartadder/internal/coordinator"
	"cartadder/internal/grocery"

	"go.uber.org/zap"
)

const (
	MsgEmptyList  = "Please enter some items."
	MsgProcessing = "Processing..."
	MsgSent       = "Items sent to be processed."
)

// Level classifies a status message for display.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

// Status is one displayed status line. Each one replaces the previous.
type Status struct {
	Message string
	Level   Level
	Index   int  // item index, -1 when not about an item
	Total   int  // items in the run, 0 before dispatch
	Done    bool // the run finished
}

// Display shows the latest status.
type Display interface {
	Show(Status)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(Status)

// Show implements Display.
func (f DisplayFunc) Show(s Status) { f(s) }

// Dispatcher starts runs. *coordinator.Coordinator implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, items []string) (*coordinator.Run, error)
}

// Submitter is the list entry surface.
type Submitter struct {
	dispatcher Dispatcher
	display    Display
	log        *zap.Logger
}

// New creates a Submitter. A nil logger disables logging.
func New(d Dispatcher, display Display, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{dispatcher: d, display: display, log: logger}
}

// Submit parses text, dispatches the list and follows the run until it
// completes, showing every status update. An empty list is never dispatched
// and yields grocery.ErrEmptyList.
func (s *Submitter) Submit(ctx context.Context, text string) (automation.Summary, error) {
	items, err := grocery.ParseNonEmpty(text)
	if err != nil {
		s.display.Show(Status{Message: MsgEmptyList, Level: LevelWarn, Index: -1})
		return automation.Summary{}, err
	}
	return s.SubmitItems(ctx, items)
}

// SubmitItems dispatches an already parsed list.
func (s *Submitter) SubmitItems(ctx context.Context, items grocery.List) (automation.Summary, error) {
	if len(items) == 0 {
		s.display.Show(Status{Message: MsgEmptyList, Level: LevelWarn, Index: -1})
		return automation.Summary{}, grocery.ErrEmptyList
	}

	total := len(items)
	s.display.Show(Status{Message: MsgProcessing, Level: LevelInfo, Index: -1, Total: total})
	run, err := s.dispatcher.Dispatch(ctx, items.Strings())
	if err != nil {
		level := LevelError
		if errors.Is(err, coordinator.ErrPrecondition) {
			level = LevelWarn
		}
		s.log.Warn("dispatch failed", zap.Error(err))
		s.display.Show(Status{Message: err.Error(), Level: level, Index: -1, Total: total})
		return automation.Summary{}, err
	}
	s.log.Info("items sent", zap.String("run_id", run.ID), zap.Int("items", total))
	s.display.Show(Status{Message: MsgSent, Level: LevelSuccess, Index: -1, Total: total})

	for ev := range run.Events() {
		s.display.Show(StatusOf(ev, total))
	}
	return run.Summary(), nil
}

// StatusOf converts a run event into a display status.
func StatusOf(ev automation.Event, total int) Status {
	st := Status{Message: ev.Message, Level: LevelInfo, Index: ev.Index, Total: total}
	switch ev.Kind {
	case automation.KindRunComplete:
		st.Level = LevelSuccess
		st.Done = true
	case automation.KindItemResult:
		switch ev.Outcome {
		case automation.OutcomeAdded:
			st.Level = LevelSuccess
		case automation.OutcomeNoResults, automation.OutcomeMissingControl:
			st.Level = LevelWarn
		default:
			st.Level = LevelError
		}
	default:
		if ev.Degraded {
			st.Level = LevelWarn
		}
	}
	return st
}
