package screen

import (
	"context"

	"github.com/yuhaojin/astock-screener/internal/provider"
)

const (
	minDividendYieldPct = 4.0
	maxPledgeRatioPct   = 30.0
	growthYearPairs     = 3
	minQuarterRows      = 6
)

// checkDividendYield: trailing-12-month cash dividends over the latest
// price must yield at least 4%. No dividend record is a real Fail; a
// missing price is Indeterminate, because we cannot judge without it.
func (p *Pipeline) checkDividendYield(ctx context.Context, code string) Outcome {
	quote := p.src.Fetch(ctx, provider.DatasetQuote, code)
	if quote.Empty() {
		return Indeterminate
	}
	price := quote.Rows[0].Float(provider.FieldPrice, 0)
	if price <= 0 {
		return Indeterminate
	}

	dividends := p.src.Fetch(ctx, provider.DatasetDividends, code)
	if dividends.Empty() {
		return Fail
	}

	cutoff := p.now().AddDate(-1, 0, 0)
	total := 0.0
	for _, row := range dividends.Rows {
		when, ok := parseDate(row[provider.FieldPeriod])
		if !ok || when.Before(cutoff) {
			continue
		}
		if per := row.Float(provider.FieldDividendPerShare, 0); per > 0 {
			total += per
		}
	}
	if total <= 0 {
		return Fail
	}
	if total/price*100 >= minDividendYieldPct {
		return Pass
	}
	return Fail
}

// checkAnnualGrowth: revenue and net profit strictly increasing across the
// three most recent year pairs, with strictly positive bases. Fewer than
// four annual statements is a Fail -- missing history is a real
// disqualifier, unlike a transient fetch failure.
func (p *Pipeline) checkAnnualGrowth(ctx context.Context, code string) Outcome {
	profit := p.src.Fetch(ctx, provider.DatasetProfitStatement, code)
	if profit.Empty() {
		return Indeterminate
	}

	annual := make([]provider.Row, 0, growthYearPairs+1)
	for _, row := range profit.Rows {
		if isAnnual(row[provider.FieldReportDate]) {
			annual = append(annual, row)
			if len(annual) == growthYearPairs+1 {
				break
			}
		}
	}
	if len(annual) < growthYearPairs+1 {
		return Fail
	}

	for i := 0; i < growthYearPairs; i++ {
		currRev := annual[i].Float(provider.FieldRevenue, 0)
		prevRev := annual[i+1].Float(provider.FieldRevenue, 0)
		currProfit := annual[i].Float(provider.FieldNetProfit, 0)
		prevProfit := annual[i+1].Float(provider.FieldNetProfit, 0)

		// Positive bases only: a loss-to-profit swing is not growth.
		if prevRev <= 0 || prevProfit <= 0 {
			return Fail
		}
		if currRev <= prevRev || currProfit <= prevProfit {
			return Fail
		}
	}
	return Pass
}

// checkQuarterlyGrowth: the latest quarter must beat both the prior quarter
// and the same quarter last year on revenue and net profit.
func (p *Pipeline) checkQuarterlyGrowth(ctx context.Context, code string) Outcome {
	profit := p.src.Fetch(ctx, provider.DatasetProfitStatement, code)
	if profit.Len() < minQuarterRows {
		return Indeterminate
	}

	latest := profit.Rows[0]
	prevQ := profit.Rows[1]

	latestDate := compactDate(latest[provider.FieldReportDate])
	if len(latestDate) != 8 {
		return Indeterminate
	}
	quarterSuffix := latestDate[4:]

	var yoy provider.Row
	for _, row := range profit.Rows[1:] {
		d := compactDate(row[provider.FieldReportDate])
		if len(d) == 8 && d[4:] == quarterSuffix && d[:4] != latestDate[:4] {
			yoy = row
			break
		}
	}
	if yoy == nil {
		return Fail
	}

	currRev := latest.Float(provider.FieldRevenue, 0)
	currProfit := latest.Float(provider.FieldNetProfit, 0)
	yoyRev := yoy.Float(provider.FieldRevenue, 0)
	yoyProfit := yoy.Float(provider.FieldNetProfit, 0)
	prevQRev := prevQ.Float(provider.FieldRevenue, 0)
	prevQProfit := prevQ.Float(provider.FieldNetProfit, 0)

	if yoyRev <= 0 || yoyProfit <= 0 || currRev <= yoyRev || currProfit <= yoyProfit {
		return Fail
	}
	if prevQRev <= 0 || prevQProfit <= 0 || currRev <= prevQRev || currProfit <= prevQProfit {
		return Fail
	}
	return Pass
}

// checkControllerStable: more than one distinct actual controller on record
// means a change of control. No record at all counts as stable.
func (p *Pipeline) checkControllerStable(ctx context.Context, code string) Outcome {
	controllers := p.src.Fetch(ctx, provider.DatasetControllers)
	if controllers.Empty() {
		return Pass
	}

	distinct := make(map[string]bool)
	for _, row := range controllers.Rows {
		if row[provider.FieldCode] != code {
			continue
		}
		if name := row[provider.FieldController]; name != "" {
			distinct[name] = true
		}
	}
	if len(distinct) > 1 {
		return Fail
	}
	return Pass
}

// checkCashOverDebt: monetary funds must exceed interest-bearing debt
// (short-term + long-term borrowings + bonds payable). A pledge ratio above
// 30% fails outright.
func (p *Pipeline) checkCashOverDebt(ctx context.Context, code string) Outcome {
	balance := p.src.Fetch(ctx, provider.DatasetBalanceSheet, code)
	if balance.Empty() {
		return Indeterminate
	}

	latest := balance.Rows[0]
	cash := latest.Float(provider.FieldCash, 0)
	debt := latest.Float(provider.FieldShortDebt, 0) +
		latest.Float(provider.FieldLongDebt, 0) +
		latest.Float(provider.FieldBondsPayable, 0)

	pledges := p.src.Fetch(ctx, provider.DatasetPledges)
	for _, row := range pledges.Rows {
		if row[provider.FieldCode] != code {
			continue
		}
		if row.Float(provider.FieldPledgeRatio, 0) > maxPledgeRatioPct {
			return Fail
		}
		break
	}

	if cash > debt {
		return Pass
	}
	return Fail
}
