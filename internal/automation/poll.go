package automation

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a bounded wait expires.
var ErrTimeout = errors.New("timed out")

// PollOptions bounds a readiness wait.
type PollOptions struct {
	Interval    time.Duration // first delay between probes
	Timeout     time.Duration // total budget
	Backoff     float64       // interval multiplier; <= 1 keeps it fixed
	MaxInterval time.Duration // cap for a growing interval; 0 = none
}

// Probe checks a condition once. ok=false means "not yet".
type Probe[T any] func(ctx context.Context) (value T, ok bool, err error)

// PollFor runs probe until it reports ok, returns an error, the timeout
// expires (ErrTimeout) or ctx is done. The probe always runs at least once
// and once more at the deadline.
func PollFor[T any](ctx context.Context, opts PollOptions, probe Probe[T]) (T, error) {
	var zero T
	interval := opts.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	deadline := time.Now().Add(opts.Timeout)

	for {
		v, ok, err := probe(ctx)
		if err != nil {
			return zero, err
		}
		if ok {
			return v, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, ErrTimeout
		}
		if err := Sleep(ctx, min(interval, remaining)); err != nil {
			return zero, err
		}

		if opts.Backoff > 1 {
			interval = time.Duration(float64(interval) * opts.Backoff)
			if opts.MaxInterval > 0 && interval > opts.MaxInterval {
				interval = opts.MaxInterval
			}
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
