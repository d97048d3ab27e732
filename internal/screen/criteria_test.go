package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSelection(t *testing.T) {
	assert.Equal(t, AllCriteria(), NormalizeSelection(nil), "empty selection means everything")
	assert.Equal(t, AllCriteria(), NormalizeSelection([]CriterionID{42}), "only unknown ids falls back to everything")

	got := NormalizeSelection([]CriterionID{
		CriterionBuyback,
		CriterionAnnualGrowth,
		CriterionBuyback, // duplicate
		99,               // unknown
		CriterionStateOwned,
	})
	assert.Equal(t, []CriterionID{CriterionAnnualGrowth, CriterionStateOwned, CriterionBuyback}, got)
}

func TestCriterionLabel(t *testing.T) {
	assert.Equal(t, "央国企控股", CriterionStateOwned.Label())
	assert.Equal(t, "未知条件", CriterionID(42).Label())
	assert.True(t, CriterionCashOverDebt.Valid())
	assert.False(t, CriterionID(0).Valid())
}
