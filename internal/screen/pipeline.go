package screen

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yuhaojin/astock-screener/internal/provider"
)

// DataSource is the slice of the fetch layer the pipeline needs. Fetch
// degrades to an empty table on unavailability; only StockList can fail.
type DataSource interface {
	StockList(ctx context.Context) (*provider.Table, error)
	Fetch(ctx context.Context, ds provider.Dataset, args ...string) *provider.Table
	LastModified(ds provider.Dataset, args ...string) (time.Time, bool)
}

const (
	defaultMaxWorkers    = 16
	defaultProgressEvery = 20
)

// Exchange-board code prefixes kept in the universe: Shanghai/Shenzhen main
// board, ChiNext and STAR. Beijing and B-shares stay out.
var keptCodePrefixes = []string{"00", "60", "30", "68"}

// Name markers that exclude a listing outright.
const (
	markerST     = "ST"
	markerDelist = "退"
)

// Options configures a Pipeline.
type Options struct {
	MaxWorkers    int          // per-entity evaluation pool cap
	ProgressEvery int          // report progress every N completions
	Progress      ProgressFunc // optional progress sink
}

// Pipeline evaluates the criterion battery over the screening universe.
type Pipeline struct {
	src           DataSource
	maxWorkers    int
	progressEvery int
	progress      ProgressFunc

	now func() time.Time
}

// NewPipeline builds a screening pipeline over the given data source.
func NewPipeline(src DataSource, opts Options) *Pipeline {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = defaultMaxWorkers
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaultProgressEvery
	}
	return &Pipeline{
		src:           src,
		maxWorkers:    opts.MaxWorkers,
		progressEvery: opts.ProgressEvery,
		progress:      opts.Progress,
		now:           time.Now,
	}
}

func (p *Pipeline) report(msg, stage string, remaining int) {
	if p.progress != nil {
		p.progress(Progress{Message: msg, Stage: stage, Remaining: remaining})
	}
	log.Info().Str("stage", stage).Int("remaining", remaining).Msg(msg)
}

type batchStep struct {
	id    CriterionID
	label string
	fn    func(context.Context, []string) []string
}

type entityStep struct {
	id    CriterionID
	label string
	fn    func(context.Context, string) Outcome
}

// Run executes the full screening flow for the selected criteria and
// returns the funnel report. It fails only when the universe itself cannot
// be derived.
func (p *Pipeline) Run(ctx context.Context, selected []CriterionID) (*Report, error) {
	criteria := NormalizeSelection(selected)
	selectedSet := make(map[CriterionID]bool, len(criteria))
	for _, id := range criteria {
		selectedSet[id] = true
	}
	log.Info().Interface("criteria", criteria).Msg("screening run starting")

	list, err := p.src.StockList(ctx)
	if err != nil {
		return nil, err
	}

	codes, names := p.universe(list)
	report := &Report{
		TotalInitial:     len(codes),
		Stages:           []StageResult{},
		Passed:           codes,
		StockNames:       names,
		SelectedCriteria: criteria,
		DataDates:        p.dataDates(ctx, codes),
	}
	p.report(fmt.Sprintf("共获取 %d 只A股（排除ST/退市）", len(codes)), "init", len(codes))

	// Phase 1: batch elimination, strictly in declared order. Several
	// criteria fall out of a single bulk dataset; evaluating them set-wise
	// is far cheaper than per-entity endpoints.
	batchSteps := []batchStep{
		{CriterionStateOwned, "央国企控股", p.filterStateOwned},
		{CriterionDividendRecord, "连续5年现金分红", p.filterDividendRecord},
		{CriterionDividendRecord, "无增发/发债", p.filterNoIssuance},
		{CriterionBuyback, "大股东回购", p.filterBuyback},
	}
	for _, step := range batchSteps {
		if !selectedSet[step.id] {
			continue
		}
		before := len(report.Passed)
		p.report(fmt.Sprintf("正在检查: %s", step.label), step.label, before)

		report.Passed = step.fn(ctx, report.Passed)
		after := len(report.Passed)
		report.Stages = append(report.Stages, StageResult{
			Criterion:  step.label,
			Before:     before,
			After:      after,
			Eliminated: before - after,
		})
		p.report(fmt.Sprintf("%s: %d → %d", step.label, before, after), step.label, after)
		if after == 0 {
			break
		}
	}

	// Phase 2: concurrent per-entity predicates over the survivors.
	entitySteps := []entityStep{
		{CriterionDividendYield, "股息率>4%", p.checkDividendYield},
		{CriterionAnnualGrowth, "3年年报营收净利增长", p.checkAnnualGrowth},
		{CriterionQuarterlyGrowth, "季度同比环比增长", p.checkQuarterlyGrowth},
		{CriterionControllerStable, "实控人稳定", p.checkControllerStable},
		{CriterionCashOverDebt, "现金>负债", p.checkCashOverDebt},
	}
	for _, step := range entitySteps {
		if !selectedSet[step.id] || len(report.Passed) == 0 {
			continue
		}
		before := len(report.Passed)
		p.report(fmt.Sprintf("逐只检查: %s", step.label), step.label, before)

		report.Passed = p.runEntityStage(ctx, report.Passed, step.label, step.fn)
		after := len(report.Passed)
		report.Stages = append(report.Stages, StageResult{
			Criterion:  step.label,
			Before:     before,
			After:      after,
			Eliminated: before - after,
		})
		p.report(fmt.Sprintf("%s: %d → %d", step.label, before, after), step.label, after)
	}

	report.FinalCount = len(report.Passed)
	p.report(fmt.Sprintf("筛选完成（%d项条件），共 %d 只符合条件", len(criteria), report.FinalCount), "done", report.FinalCount)
	return report, nil
}

// universe derives the session's entity set from the stock list: ST and
// delisting names are dropped, and only the kept board prefixes survive.
// The name map covers the full listing for report rendering.
func (p *Pipeline) universe(list *provider.Table) ([]string, map[string]string) {
	codes := make([]string, 0, list.Len())
	names := make(map[string]string, list.Len())
	for _, row := range list.Rows {
		code := row[provider.FieldCode]
		name := row[provider.FieldName]
		if code == "" {
			continue
		}
		names[code] = name
		if strings.Contains(name, markerST) || strings.Contains(name, markerDelist) {
			continue
		}
		for _, prefix := range keptCodePrefixes {
			if strings.HasPrefix(code, prefix) {
				codes = append(codes, code)
				break
			}
		}
	}
	return codes, names
}

// dataDates collects freshness stamps for the report: run time, stock-list
// cache age, and the latest report date sampled from one surviving code.
func (p *Pipeline) dataDates(ctx context.Context, codes []string) map[string]string {
	dates := map[string]string{
		"screening_time": p.now().Format("2006-01-02 15:04:05"),
	}
	if mod, ok := p.src.LastModified(provider.DatasetStockList); ok {
		dates["stock_list_update"] = mod.Format("2006-01-02 15:04")
	}
	if len(codes) > 0 {
		sample := p.src.Fetch(ctx, provider.DatasetProfitStatement, codes[0])
		if !sample.Empty() {
			if d, ok := parseDate(sample.Rows[0][provider.FieldReportDate]); ok {
				dates["latest_financial_report"] = d.Format("2006-01-02")
			}
		}
	}
	return dates
}

type entityResult struct {
	code    string
	outcome Outcome
}

// runEntityStage fans the surviving codes out to a bounded worker pool and
// collects outcomes on a channel, owned by this single aggregating loop.
// Indeterminate outcomes and predicate panics both retain the entity.
func (p *Pipeline) runEntityStage(ctx context.Context, codes []string, label string, check func(context.Context, string) Outcome) []string {
	workers := min(p.maxWorkers, len(codes))
	jobs := make(chan string)
	results := make(chan entityResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range jobs {
				results <- entityResult{code: code, outcome: p.evaluate(ctx, label, code, check)}
			}
		}()
	}
	go func() {
		for _, code := range codes {
			jobs <- code
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	passed := make([]string, 0, len(codes))
	done := 0
	skipped := 0
	for r := range results {
		done++
		if done%p.progressEvery == 0 || done == len(codes) {
			p.report(fmt.Sprintf("%s: 已检查 %d/%d", label, done, len(codes)), label, len(codes)-done)
		}
		switch r.outcome {
		case Pass:
			passed = append(passed, r.code)
		case Indeterminate:
			// Retained: data unavailability is not disqualification.
			skipped++
			passed = append(passed, r.code)
		case Fail:
		}
	}
	if skipped > 0 {
		log.Info().Str("stage", label).Int("skipped", skipped).Msg("entities retained on unavailable data")
	}
	return passed
}

// evaluate runs one predicate, folding panics into Indeterminate so a bad
// record can never take the whole run down.
func (p *Pipeline) evaluate(ctx context.Context, label, code string, check func(context.Context, string) Outcome) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("stage", label).Str("code", code).Interface("panic", r).Msg("predicate panicked, retaining entity")
			out = Indeterminate
		}
	}()
	return check(ctx, code)
}
