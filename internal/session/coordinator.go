// Package session coordinates screening runs. Exactly one session is
// current at a time; starting a new run supersedes the old one without
// cancelling its goroutine, and any progress/result/error write tagged
// with a stale token is silently discarded. No stale result can ever
// surface, at the cost of the superseded run's wasted background work.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/yuhaojin/astock-screener/internal/metrics"
	"github.com/yuhaojin/astock-screener/internal/screen"
)

// Runner executes one screening run, reporting progress through the
// callback. The pipeline's Run method satisfies this.
type Runner func(ctx context.Context, criteria []screen.CriterionID, progress screen.ProgressFunc) (*screen.Report, error)

// View is the caller-facing snapshot of the current session.
type View struct {
	Token    string          `json:"token"`
	Running  bool            `json:"is_running"`
	Progress screen.Progress `json:"progress"`
	Error    string          `json:"error,omitempty"`
}

// Coordinator owns the single current-session record. One mutex guards the
// token comparison and all three mutable fields together; every write is a
// check-and-set under that lock.
type Coordinator struct {
	mu       sync.Mutex
	runner   Runner
	current  string
	running  bool
	progress screen.Progress
	report   *screen.Report
	errMsg   string
}

// New builds a coordinator around the given runner.
func New(runner Runner) *Coordinator {
	return &Coordinator{runner: runner}
}

// Start begins a new screening run and returns its session token. A run
// already in flight is not cancelled; it is superseded, and its later
// writes become inert.
func (c *Coordinator) Start(criteria []screen.CriterionID) string {
	token := uuid.NewString()[:8]

	c.mu.Lock()
	if c.running {
		log.Info().Str("old", c.current).Str("new", token).Msg("superseding running session")
	}
	c.current = token
	c.running = true
	c.progress = screen.Progress{Message: "初始化...", Stage: "init"}
	c.report = nil
	c.errMsg = ""
	c.mu.Unlock()

	go c.run(token, criteria)
	return token
}

func (c *Coordinator) run(token string, criteria []screen.CriterionID) {
	report, err := c.runner(context.Background(), criteria, func(p screen.Progress) {
		c.setProgress(token, p)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != token {
		// Superseded while running: drop the result on the floor.
		metrics.ScreeningRuns.WithLabelValues("superseded").Inc()
		log.Info().Str("token", token).Msg("stale session finished, result discarded")
		return
	}
	c.running = false
	if err != nil {
		c.errMsg = err.Error()
		metrics.ScreeningRuns.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("token", token).Msg("screening run failed")
		return
	}
	c.report = report
	metrics.ScreeningRuns.WithLabelValues("completed").Inc()
	log.Info().Str("token", token).Int("final", report.FinalCount).Msg("screening run completed")
}

func (c *Coordinator) setProgress(token string, p screen.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != token {
		return
	}
	c.progress = p
}

// Progress returns the current session snapshot.
func (c *Coordinator) Progress() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Token:    c.current,
		Running:  c.running,
		Progress: c.progress,
		Error:    c.errMsg,
	}
}

// Result returns the funnel report for token. Absent before completion and
// for superseded tokens; both are normal, not errors.
func (c *Coordinator) Result(token string) (*screen.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != "" && token != c.current {
		return nil, false
	}
	if c.report == nil {
		return nil, false
	}
	return c.report, true
}
