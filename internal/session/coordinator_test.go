package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuhaojin/astock-screener/internal/screen"
)

// blockingRunner parks each run on a per-criterion channel so tests can
// release runs in a chosen order.
type blockingRunner struct {
	gates map[screen.CriterionID]chan *screen.Report
}

func newBlockingRunner(ids ...screen.CriterionID) *blockingRunner {
	gates := make(map[screen.CriterionID]chan *screen.Report, len(ids))
	for _, id := range ids {
		gates[id] = make(chan *screen.Report)
	}
	return &blockingRunner{gates: gates}
}

func (b *blockingRunner) run(_ context.Context, criteria []screen.CriterionID, progress screen.ProgressFunc) (*screen.Report, error) {
	progress(screen.Progress{Message: "working", Stage: criteria[0].Label()})
	report := <-b.gates[criteria[0]]
	// A write landing after this run was superseded must be inert.
	progress(screen.Progress{Message: "late write", Stage: criteria[0].Label()})
	if report == nil {
		return nil, errors.New("无法获取股票列表")
	}
	return report, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestCoordinator_CompletedRunExposesResult(t *testing.T) {
	runner := newBlockingRunner(screen.CriterionStateOwned)
	coord := New(runner.run)

	token := coord.Start([]screen.CriterionID{screen.CriterionStateOwned})
	require.NotEmpty(t, token)
	waitFor(t, func() bool { return coord.Progress().Progress.Message == "working" })

	_, ok := coord.Result(token)
	assert.False(t, ok, "result is absent before completion, which is normal")

	runner.gates[screen.CriterionStateOwned] <- &screen.Report{FinalCount: 7}
	waitFor(t, func() bool { return !coord.Progress().Running })

	report, ok := coord.Result(token)
	require.True(t, ok)
	assert.Equal(t, 7, report.FinalCount)

	// Empty token addresses the current session.
	report, ok = coord.Result("")
	require.True(t, ok)
	assert.Equal(t, 7, report.FinalCount)
}

func TestCoordinator_SupersededRunIsDiscarded(t *testing.T) {
	runner := newBlockingRunner(screen.CriterionStateOwned, screen.CriterionBuyback)
	coord := New(runner.run)

	tokenA := coord.Start([]screen.CriterionID{screen.CriterionStateOwned})
	waitFor(t, func() bool { return coord.Progress().Progress.Message == "working" })

	tokenB := coord.Start([]screen.CriterionID{screen.CriterionBuyback})
	require.NotEqual(t, tokenA, tokenB)
	waitFor(t, func() bool { return coord.Progress().Progress.Message == "working" })

	// Let A finish after B has taken over: its result and its late
	// progress write must both be dropped.
	runner.gates[screen.CriterionStateOwned] <- &screen.Report{FinalCount: 99}
	time.Sleep(50 * time.Millisecond)

	view := coord.Progress()
	assert.True(t, view.Running, "B is still running")
	assert.NotEqual(t, "late write", view.Progress.Message)
	_, ok := coord.Result(tokenA)
	assert.False(t, ok, "stale token never resolves")

	runner.gates[screen.CriterionBuyback] <- &screen.Report{FinalCount: 3}
	waitFor(t, func() bool { return !coord.Progress().Running })

	report, ok := coord.Result(tokenB)
	require.True(t, ok)
	assert.Equal(t, 3, report.FinalCount)
	_, ok = coord.Result(tokenA)
	assert.False(t, ok)
}

func TestCoordinator_FailedRunSurfacesError(t *testing.T) {
	runner := newBlockingRunner(screen.CriterionStateOwned)
	coord := New(runner.run)

	token := coord.Start([]screen.CriterionID{screen.CriterionStateOwned})
	waitFor(t, func() bool { return coord.Progress().Progress.Message == "working" })

	runner.gates[screen.CriterionStateOwned] <- nil
	waitFor(t, func() bool { return !coord.Progress().Running })

	view := coord.Progress()
	assert.Contains(t, view.Error, "股票列表")
	_, ok := coord.Result(token)
	assert.False(t, ok)
}
