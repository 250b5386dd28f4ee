// Package services provides the ledger operations.
//
// This file expands the recurring template into the charges of one month.
// Each charge kind has an inclusion rule deciding in which months a template
// item produces a charge.
package services

import (
	"fmt"

	"pagos/internal/core"
)

// InclusionRule decides whether a template item is charged in a month.
type InclusionRule interface {
	Includes(item core.TemplateItem, month int) bool
}

// EveryMonth charges the item in every month.
type EveryMonth struct{}

func (EveryMonth) Includes(core.TemplateItem, int) bool { return true }

// AnnualMonth charges the item only in its annual_month.
type AnnualMonth struct{}

func (AnnualMonth) Includes(item core.TemplateItem, month int) bool {
	return item.AnnualMonth == month
}

var inclusionRules = map[core.ChargeKind]InclusionRule{
	core.KindFixed:      EveryMonth{},
	core.KindSubMonthly: EveryMonth{},
	core.KindAdhoc:      EveryMonth{},
	core.KindSubAnnual:  AnnualMonth{},
}

// GetInclusionRule returns the rule for a charge kind.
func GetInclusionRule(kind core.ChargeKind) (InclusionRule, error) {
	rule, ok := inclusionRules[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no inclusion rule for %q", core.ErrInvalidKind, kind)
	}
	return rule, nil
}

// Expand produces the charges of (year, month) from the template, in template
// order. It is pure: the same template always yields equal charges.
func Expand(template []core.TemplateItem, year, month int) ([]core.ChargeInstance, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}

	items := make([]core.ChargeInstance, 0, len(template))
	for _, t := range template {
		rule, err := GetInclusionRule(t.Kind)
		if err != nil {
			return nil, &core.TemplateItemError{ID: t.ID, Name: t.Name, Reason: err}
		}
		if !rule.Includes(t, month) {
			continue
		}
		tid := t.ID
		items = append(items, core.ChargeInstance{
			ID:               t.ID,
			SourceTemplateID: &tid,
			Name:             t.Name,
			Amount:           core.RoundAmount(t.Amount),
			AccountID:        t.AccountID,
			Category:         t.Category,
			Due:              core.ClampDate(year, month, t.Day),
			Kind:             t.Kind,
		})
	}
	return items, nil
}
