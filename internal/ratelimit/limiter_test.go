package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_AllowsUpToMax(t *testing.T) {
	w := NewWindow(3, 200*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		w.Acquire()
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond, "calls within budget must not block")
	assert.Equal(t, 3, w.InFlight())
}

func TestWindow_BlocksOverMax(t *testing.T) {
	w := NewWindow(2, 150*time.Millisecond)

	w.Acquire()
	w.Acquire()

	// The third call must block until the window rolls over.
	start := time.Now()
	w.Acquire()
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond, "over-budget call should wait for the window")
}

func TestWindow_NeverExceedsBudgetWithinWindow(t *testing.T) {
	const max = 4
	w := NewWindow(max, 100*time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Acquire()
			require.LessOrEqual(t, w.InFlight(), max)
		}()
	}
	wg.Wait()
}

func TestWindow_RefillsAfterWindow(t *testing.T) {
	w := NewWindow(1, 80*time.Millisecond)

	w.Acquire()
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	w.Acquire()
	assert.Less(t, time.Since(start), 30*time.Millisecond, "budget should refill once the window passes")
}
