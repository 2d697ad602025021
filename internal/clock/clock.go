// Package clock lets the polling loops wait without calling time.Sleep
// directly, so tests can replace waits with a recorder.
package clock

import (
	"context"
	"sync"
	"time"
)

// Sleeper waits for d or until ctx is done, returning ctx.Err() in the latter case
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Recorder is a Sleeper for tests. It returns immediately and remembers
// every requested duration. When Cancel is set it is called after Limit
// sleeps, which lets tests stop infinite loops.
type Recorder struct {
	mu     sync.Mutex
	Slept  []time.Duration
	Limit  int
	Cancel context.CancelFunc
}

// Sleep records d and honours ctx cancellation
func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.Slept = append(r.Slept, d)
	n := len(r.Slept)
	r.mu.Unlock()

	if r.Cancel != nil && r.Limit > 0 && n >= r.Limit {
		r.Cancel()
	}
	return ctx.Err()
}

// Durations returns a copy of the recorded sleeps
func (r *Recorder) Durations() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.Slept...)
}
