package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"pagos/internal/audit"
	"pagos/internal/core"
	"pagos/internal/log"
)

// PendingByAccount sums the unpaid amounts per account.
func PendingByAccount(items []core.ChargeInstance) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal)
	for _, it := range items {
		if it.Paid {
			continue
		}
		out[it.AccountID] = out[it.AccountID].Add(it.Amount)
	}
	return out
}

// Totals returns the month total and the unpaid part of it.
func Totals(items []core.ChargeInstance) (total, pending decimal.Decimal) {
	for _, it := range items {
		total = total.Add(it.Amount)
		if !it.Paid {
			pending = pending.Add(it.Amount)
		}
	}
	return total, pending
}

func deficit(balance, pending decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, pending.Sub(balance))
}

// RedistributionFeasible reports whether the combined surplus of all accounts
// covers the combined deficit. It never moves funds.
func RedistributionFeasible(items []core.ChargeInstance, balances map[int]decimal.Decimal) bool {
	pending := PendingByAccount(items)
	ids := make(map[int]bool, len(balances)+len(pending))
	for id := range balances {
		ids[id] = true
	}
	for id := range pending {
		ids[id] = true
	}
	surplus, shortfall := decimal.Zero, decimal.Zero
	for id := range ids {
		b, p := balances[id], pending[id]
		surplus = surplus.Add(decimal.Max(decimal.Zero, b.Sub(p)))
		shortfall = shortfall.Add(deficit(b, p))
	}
	return surplus.GreaterThanOrEqual(shortfall)
}

// AccountStatus reports every ledger account against the pending charges of
// items. Accounts referenced by items but missing from the ledger get a row
// with Known=false.
func AccountStatus(l *core.Ledger, items []core.ChargeInstance) []core.AccountStatus {
	pending := PendingByAccount(items)
	prorated := MonthlyEquivalentByAccount(l.Template)

	rows := make([]core.AccountStatus, 0, len(l.Accounts))
	known := make(map[int]bool, len(l.Accounts))
	for _, a := range l.Accounts {
		known[a.ID] = true
		rows = append(rows, statusRow(a, true, l.Balance(a.ID), pending[a.ID], prorated[a.ID]))
	}

	var orphans []int
	for id := range pending {
		if !known[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Ints(orphans)
	for _, id := range orphans {
		a := core.Account{ID: id, Name: l.AccountName(id)}
		rows = append(rows, statusRow(a, false, l.Balance(id), pending[id], prorated[id]))
	}
	return rows
}

func statusRow(a core.Account, known bool, balance, pending, prorated decimal.Decimal) core.AccountStatus {
	d := deficit(balance, pending)
	return core.AccountStatus{
		Account:    a,
		Known:      known,
		Balance:    balance,
		Pending:    pending,
		Deficit:    d,
		OK:         d.IsZero(),
		Prorated:   prorated,
		Structural: pending.Add(prorated),
	}
}

// GlobalOK is true when no account has a deficit.
func GlobalOK(rows []core.AccountStatus) bool {
	for _, r := range rows {
		if !r.OK {
			return false
		}
	}
	return true
}

// Report builds the full status of a month. A month that does not exist yet
// reports no charges.
func Report(l *core.Ledger, year, month int) core.StatusReport {
	var items []core.ChargeInstance
	if m := l.Month(year, month); m != nil {
		items = m.Items
	}
	rows := AccountStatus(l, items)
	total, pending := Totals(items)

	r := core.StatusReport{
		Year:                   year,
		Month:                  month,
		Total:                  total,
		Pending:                pending,
		Prorated:               MonthlyEquivalent(l.Template),
		Accounts:               rows,
		GlobalOK:               GlobalOK(rows),
		RedistributionFeasible: RedistributionFeasible(items, l.Balances),
	}
	for _, a := range l.Accounts {
		b := l.Balance(a.ID)
		r.BalanceSum = r.BalanceSum.Add(b)
		if b.IsNegative() {
			r.NegativeBalances = append(r.NegativeBalances, a.ID)
		}
	}
	return r
}

// SetPaid flips the paid flag of a charge. With autoDeduct the charge amount
// is taken from (paid) or given back to (unpaid) its account balance. A
// request matching the current state, or an unknown charge, changes nothing
// and reports false.
func (s *LedgerService) SetPaid(ctx context.Context, l *core.Ledger, year, month, id int, paid, autoDeduct bool) (bool, error) {
	changed, err := s.MarkPaid(ctx, l, year, month, map[int]bool{id: paid}, autoDeduct)
	return changed > 0, err
}

// MarkPaid applies several paid flags in one save. Ids not in the month are
// skipped. It returns the number of charges that changed.
func (s *LedgerService) MarkPaid(ctx context.Context, l *core.Ledger, year, month int, flags map[int]bool, autoDeduct bool) (int, error) {
	m := l.Month(year, month)
	if m == nil || len(flags) == 0 {
		return 0, nil
	}

	before := make(map[int]decimal.Decimal, len(l.Balances))
	for id, b := range l.Balances {
		before[id] = b
	}
	snapshot := append([]core.ChargeInstance(nil), m.Items...)

	changed := 0
	today := core.DateOf(s.now())
	for i := range m.Items {
		it := &m.Items[i]
		paid, ok := flags[it.ID]
		if !ok || it.Paid == paid {
			continue
		}
		it.Paid = paid
		if paid {
			d := today
			it.PaidDate = &d
		} else {
			it.PaidDate = nil
		}
		if autoDeduct {
			if l.Balances == nil {
				l.Balances = make(map[int]decimal.Decimal)
			}
			delta := it.Amount
			if paid {
				delta = delta.Neg()
			}
			l.Balances[it.AccountID] = l.Balance(it.AccountID).Add(delta)
		}
		changed++
	}
	if changed == 0 {
		return 0, nil
	}

	if err := s.Save(ctx, l); err != nil {
		m.Items = snapshot
		l.Balances = before
		return 0, err
	}
	s.record(ctx, audit.ActionPaidUpdate, m.Key(), "Month %s: %d changes", m.Key(), changed)
	slog.InfoContext(ctx, "Paid flags updated",
		log.FieldComponent, log.ComponentLedger,
		log.FieldMonth, m.Key(),
		"changes", changed,
		"auto_deduct", autoDeduct)
	return changed, nil
}

// UpdateBalances sets account balances, rounded to cents. Negative balances
// are accepted. Unknown accounts are rejected before anything changes.
func (s *LedgerService) UpdateBalances(ctx context.Context, l *core.Ledger, balances map[int]decimal.Decimal) error {
	for id := range balances {
		if _, ok := l.Account(id); !ok {
			return fmt.Errorf("%w: %d", core.ErrUnknownAccount, id)
		}
	}
	if l.Balances == nil {
		l.Balances = make(map[int]decimal.Decimal)
	}
	before := make(map[int]decimal.Decimal, len(l.Balances))
	for id, b := range l.Balances {
		before[id] = b
	}
	for id, b := range balances {
		l.Balances[id] = core.RoundAmount(b)
	}
	if err := s.Save(ctx, l); err != nil {
		l.Balances = before
		return err
	}
	s.record(ctx, audit.ActionBalances, "", "Updated %d balances", len(balances))
	return nil
}
