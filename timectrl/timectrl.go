package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the TimeController paces ticks.
type Mode int

const (
	// RealTime waits one Tick of wall-clock time between ticks.
	RealTime Mode = iota
	// Accelerated fires ticks back to back.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// TimeController drives simulation ticks and notifies registered listeners
// with the 1-based tick index.
type TimeController struct {
	mu   sync.RWMutex
	Tick time.Duration
	Mode Mode

	ticks     int
	listeners []func(tick int)
}

// NewTimeController constructs a controller.
func NewTimeController(tick time.Duration, mode Mode) *TimeController {
	return &TimeController{Tick: tick, Mode: mode}
}

// Ticks returns how many ticks have fired since the last Run began.
func (tc *TimeController) Ticks() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.ticks
}

// AddListener registers a callback invoked on every tick. Listeners run on
// the controller goroutine in registration order.
func (tc *TimeController) AddListener(fn func(tick int)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Run fires ticks in a separate goroutine until n ticks have fired (n <= 0
// means unbounded) or ctx is cancelled. It returns a channel that is closed
// when the controller finishes.
func (tc *TimeController) Run(ctx context.Context, n int) <-chan struct{} {
	done := make(chan struct{})

	tc.mu.Lock()
	tc.ticks = 0
	listeners := append([]func(int){}, tc.listeners...)
	tc.mu.Unlock()

	go func() {
		defer close(done)

		var wait <-chan time.Time
		if tc.Mode == RealTime && tc.Tick > 0 {
			ticker := time.NewTicker(tc.Tick)
			defer ticker.Stop()
			wait = ticker.C
		}

		for i := 1; n <= 0 || i <= n; i++ {
			if ctx.Err() != nil {
				return
			}
			if wait != nil {
				select {
				case <-ctx.Done():
					return
				case <-wait:
				}
			}

			tc.mu.Lock()
			tc.ticks = i
			tc.mu.Unlock()

			for _, fn := range listeners {
				fn(i)
			}
		}
	}()
	return done
}
