package services

import (
	"github.com/shopspring/decimal"

	"pagos/internal/core"
)

var monthsPerYear = decimal.NewFromInt(12)

// MonthlyEquivalent spreads every annual subscription over twelve months.
// The result is not rounded.
func MonthlyEquivalent(template []core.TemplateItem) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range template {
		if t.Kind == core.KindSubAnnual {
			sum = sum.Add(t.Amount.Div(monthsPerYear))
		}
	}
	return sum
}

// MonthlyEquivalentByAccount is MonthlyEquivalent grouped by account.
func MonthlyEquivalentByAccount(template []core.TemplateItem) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal)
	for _, t := range template {
		if t.Kind == core.KindSubAnnual {
			out[t.AccountID] = out[t.AccountID].Add(t.Amount.Div(monthsPerYear))
		}
	}
	return out
}
