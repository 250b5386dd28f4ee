package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pagos/internal/core"
)

func TestMonthlyEquivalent(t *testing.T) {
	tpl := []core.TemplateItem{
		{ID: 1, Name: "Rent", Amount: d("500"), Day: 1, AccountID: 1, Kind: core.KindFixed},
		{ID: 201, Name: "Telegram", Amount: d("36.00"), Day: 25, AccountID: 2, Kind: core.KindSubAnnual, AnnualMonth: 9},
	}
	assert.Equal(t, "3.00", MonthlyEquivalent(tpl).StringFixed(2))
}

func TestMonthlyEquivalentKeepsFullPrecision(t *testing.T) {
	tpl := []core.TemplateItem{
		{ID: 201, Name: "InShot", Amount: d("15.99"), Day: 8, AccountID: 2, Kind: core.KindSubAnnual, AnnualMonth: 5},
		{ID: 202, Name: "Telegram", Amount: d("33.99"), Day: 25, AccountID: 2, Kind: core.KindSubAnnual, AnnualMonth: 9},
		{ID: 203, Name: "Domain", Amount: d("10"), Day: 1, AccountID: 3, Kind: core.KindSubAnnual, AnnualMonth: 1},
	}
	total := MonthlyEquivalent(tpl)
	assert.True(t, total.Round(4).Equal(d("4.9983")), "got %s", total)

	byAcc := MonthlyEquivalentByAccount(tpl)
	assert.Len(t, byAcc, 2)
	assert.True(t, byAcc[2].Equal(d("4.165")))
	assert.True(t, byAcc[3].Round(6).Equal(d("0.833333")))
}

func TestMonthlyEquivalentIgnoresNonAnnual(t *testing.T) {
	tpl := testLedger().Template[:2]
	assert.True(t, MonthlyEquivalent(tpl).IsZero())
	assert.Empty(t, MonthlyEquivalentByAccount(tpl))
}
