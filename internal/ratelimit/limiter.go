// Package ratelimit provides the shared call-rate governor for all
// upstream data-source requests.
package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Window enforces at most max calls per rolling window across all callers.
//
// It keeps a mutex-guarded log of issue timestamps, pruned on every acquire.
// When the log is full the caller sleeps until the oldest entry leaves the
// window, after which the log is cleared and restarted. The reset is coarse
// rather than a precise leaky bucket; call volume is moderate and burstiness
// tolerance is not a requirement here.
type Window struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	calls  []time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewWindow returns a governor allowing max calls per window.
func NewWindow(max int, window time.Duration) *Window {
	return &Window{
		max:    max,
		window: window,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Acquire blocks until issuing one more call stays within the window budget.
// Safe for concurrent acquisition from multiple workers.
func (w *Window) Acquire() {
	for {
		w.mu.Lock()
		now := w.now()

		kept := w.calls[:0]
		for _, t := range w.calls {
			if now.Sub(t) < w.window {
				kept = append(kept, t)
			}
		}
		w.calls = kept

		if len(w.calls) < w.max {
			w.calls = append(w.calls, now)
			w.mu.Unlock()
			return
		}

		wait := w.window - now.Sub(w.calls[0])
		// Coarse reset: after the oldest entry rolls out, start a fresh log.
		w.calls = w.calls[:0]
		w.mu.Unlock()

		if wait > 0 {
			log.Debug().Dur("wait", wait).Int("max", w.max).Msg("rate limit reached, sleeping")
			w.sleep(wait)
		}
	}
}

// InFlight reports how many calls are currently logged inside the window.
func (w *Window) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	n := 0
	for _, t := range w.calls {
		if now.Sub(t) < w.window {
			n++
		}
	}
	return n
}
