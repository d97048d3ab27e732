package screen

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/yuhaojin/astock-screener/internal/provider"
)

// Keywords marking a state-owned (央企/国企) controlling entity.
var soeKeywords = []string{
	"国有", "国资", "财政局", "财政厅", "国投", "中央", "省人民政府",
	"市人民政府", "国家", "央企", "国企", "人民政府", "管理委员会",
	"国有资产", "SASAC", "财政部", "国务院", "中国人民", "省国资",
	"市国资", "区国资", "县国资", "经济开发区", "高新区管委会",
}

// Buyback progress states that count as an active or completed buyback.
var buybackAcceptedStates = []string{
	"完成", "实施中", "实施", "董事会预案", "股东大会通过",
}

func isStateOwned(name string) bool {
	if name == "" {
		return false
	}
	for _, kw := range soeKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// intersectKeeping returns the codes present in keep, preserving order.
func intersectKeeping(codes []string, keep map[string]bool) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if keep[c] {
			out = append(out, c)
		}
	}
	return out
}

// filterStateOwned keeps codes whose actual controller is a state-owned
// entity, judged from the bulk controller dataset. An unavailable dataset
// is a no-op: unavailability must never look like universal disqualification.
func (p *Pipeline) filterStateOwned(ctx context.Context, codes []string) []string {
	controllers := p.src.Fetch(ctx, provider.DatasetControllers)
	if controllers.Empty() {
		log.Warn().Msg("controller dataset unavailable, state-owned filter skipped")
		return codes
	}

	soe := make(map[string]bool)
	for _, row := range controllers.Rows {
		code := row[provider.FieldCode]
		if code == "" {
			continue
		}
		if isStateOwned(row[provider.FieldController]) || strings.Contains(row[provider.FieldControlType], "国有") {
			soe[code] = true
		}
	}
	return intersectKeeping(codes, soe)
}

// filterDividendRecord keeps codes with a cash dividend in each of the last
// five complete calendar years. This step needs the per-entity dividend
// history, so it reports progress as it walks the surviving set.
func (p *Pipeline) filterDividendRecord(ctx context.Context, codes []string) []string {
	currentYear := p.now().Year()
	required := make([]int, 0, 5)
	for y := currentYear - 5; y < currentYear; y++ {
		required = append(required, y)
	}

	passed := make([]string, 0, len(codes))
	for i, code := range codes {
		if i%p.progressEvery == 0 {
			p.report(fmt.Sprintf("检查分红: %d/%d", i, len(codes)), "分红", len(codes)-i)
		}
		dividends := p.src.Fetch(ctx, provider.DatasetDividends, code)
		if dividends.Empty() {
			continue
		}
		cashYears := make(map[int]bool)
		for _, row := range dividends.Rows {
			year := reportYear(row[provider.FieldPeriod])
			if year == 0 {
				continue
			}
			if row.Float(provider.FieldDividendPerShare, 0) > 0 {
				cashYears[year] = true
			}
		}
		ok := true
		for _, y := range required {
			if !cashYears[y] {
				ok = false
				break
			}
		}
		if ok {
			passed = append(passed, code)
		}
	}
	return passed
}

// filterNoIssuance drops codes with an additional share issuance or a
// convertible bond issue inside the trailing five years. Field names are
// pinned by the provider adapter, never guessed from column headers.
func (p *Pipeline) filterNoIssuance(ctx context.Context, codes []string) []string {
	cutoff := p.now().AddDate(-5, 0, 0)
	recent := make(map[string]bool)

	collect := func(table *provider.Table) {
		for _, row := range table.Rows {
			code := row[provider.FieldCode]
			if code == "" {
				continue
			}
			when, ok := parseDate(row[provider.FieldAnnounceDate])
			if !ok || when.Before(cutoff) {
				continue
			}
			recent[code] = true
		}
	}

	issuance := p.src.Fetch(ctx, provider.DatasetIssuance)
	if issuance.Empty() {
		log.Warn().Msg("issuance dataset unavailable, skipping issuance check")
	} else {
		collect(issuance)
	}

	bonds := p.src.Fetch(ctx, provider.DatasetConvertibleBonds)
	if bonds.Empty() {
		log.Warn().Msg("convertible bond dataset unavailable, skipping bond check")
	} else {
		collect(bonds)
	}

	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if !recent[c] {
			out = append(out, c)
		}
	}
	return out
}

// filterBuyback keeps codes with at least one buyback record in an accepted
// progress state. An unavailable dataset is a no-op.
func (p *Pipeline) filterBuyback(ctx context.Context, codes []string) []string {
	buybacks := p.src.Fetch(ctx, provider.DatasetBuybacks)
	if buybacks.Empty() {
		log.Warn().Msg("buyback dataset unavailable, buyback filter skipped")
		return codes
	}

	active := make(map[string]bool)
	for _, row := range buybacks.Rows {
		code := row[provider.FieldCode]
		if code == "" {
			continue
		}
		progress := row[provider.FieldProgress]
		for _, state := range buybackAcceptedStates {
			if strings.Contains(progress, state) {
				active[code] = true
				break
			}
		}
	}
	return intersectKeeping(codes, active)
}
