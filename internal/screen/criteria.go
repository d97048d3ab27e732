// Package screen implements the progressive two-phase screening pipeline:
// batch set-based elimination over bulk datasets, then concurrent per-entity
// predicate evaluation over the survivors.
package screen

import "sort"

// CriterionID identifies one of the eight fixed screening criteria.
type CriterionID int

const (
	CriterionAnnualGrowth     CriterionID = 1 // 连续3年年报营收净利增长
	CriterionQuarterlyGrowth  CriterionID = 2 // 季报同比环比增长
	CriterionDividendRecord   CriterionID = 3 // 连续5年现金分红且无增发发债
	CriterionDividendYield    CriterionID = 4 // 股息率 > 4%
	CriterionStateOwned       CriterionID = 5 // 央国企控股
	CriterionBuyback          CriterionID = 6 // 大股东回购
	CriterionControllerStable CriterionID = 7 // 实控人稳定
	CriterionCashOverDebt     CriterionID = 8 // 货币资金 > 有息负债
)

var criterionLabels = map[CriterionID]string{
	CriterionAnnualGrowth:     "3年年报营收净利增长",
	CriterionQuarterlyGrowth:  "季度同比环比增长",
	CriterionDividendRecord:   "连续5年现金分红+无增发发债",
	CriterionDividendYield:    "股息率>4%",
	CriterionStateOwned:       "央国企控股",
	CriterionBuyback:          "大股东回购",
	CriterionControllerStable: "实控人稳定",
	CriterionCashOverDebt:     "现金>负债",
}

// Label returns the human-readable name bound to the criterion.
func (c CriterionID) Label() string {
	if label, ok := criterionLabels[c]; ok {
		return label
	}
	return "未知条件"
}

// Valid reports whether the id maps to a known criterion.
func (c CriterionID) Valid() bool {
	_, ok := criterionLabels[c]
	return ok
}

// AllCriteria returns the full criterion set in id order.
func AllCriteria() []CriterionID {
	return []CriterionID{
		CriterionAnnualGrowth,
		CriterionQuarterlyGrowth,
		CriterionDividendRecord,
		CriterionDividendYield,
		CriterionStateOwned,
		CriterionBuyback,
		CriterionControllerStable,
		CriterionCashOverDebt,
	}
}

// NormalizeSelection deduplicates and sorts a caller-supplied criterion
// selection, dropping unknown ids. An empty selection means all criteria.
func NormalizeSelection(selected []CriterionID) []CriterionID {
	if len(selected) == 0 {
		return AllCriteria()
	}
	seen := make(map[CriterionID]bool, len(selected))
	out := make([]CriterionID, 0, len(selected))
	for _, id := range selected {
		if !id.Valid() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return AllCriteria()
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
