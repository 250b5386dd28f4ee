package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagos/internal/audit"
	"pagos/internal/core"
)

func singleChargeLedger() *core.Ledger {
	return &core.Ledger{
		SchemaVersion: core.CurrentSchemaVersion,
		Year:          2026,
		ControlDay:    29,
		NextID:        300,
		Balances:      map[int]decimal.Decimal{1: d("100.00")},
		Accounts:      []core.Account{{ID: 1, Name: "Main"}},
		Template:      []core.TemplateItem{{ID: 1, Name: "Phone", Amount: d("80.00"), Day: 8, AccountID: 1, Kind: core.KindFixed}},
		Months:        map[string]*core.Month{},
	}
}

func TestStatusThenPaidWithAutoDeduct(t *testing.T) {
	f := newFixture(t, singleChargeLedger())
	ctx := context.Background()
	l := f.load(t)
	m, err := f.svc.EnsureMonth(ctx, l, 2026, 4)
	require.NoError(t, err)

	rows := AccountStatus(l, m.Items)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Pending.Equal(d("80")))
	assert.True(t, rows[0].Deficit.IsZero())
	assert.True(t, rows[0].OK)
	assert.True(t, GlobalOK(rows))

	changed, err := f.svc.SetPaid(ctx, l, 2026, 4, 1, true, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "20.00", l.Balance(1).StringFixed(2))

	persisted := f.load(t)
	assert.Equal(t, "20.00", persisted.Balance(1).StringFixed(2))
	it := persisted.Month(2026, 4).Items[0]
	assert.True(t, it.Paid)
	require.NotNil(t, it.PaidDate)
	assert.Equal(t, "2026-04-10", it.PaidDate.String())
}

func TestSetPaidIsSymmetric(t *testing.T) {
	f := newFixture(t, testLedger())
	ctx := context.Background()
	l := f.load(t)
	_, err := f.svc.AddAdhocItem(ctx, l, 2026, 4, AdhocInput{Name: "Odd", Amount: d("33.33"), Day: 3, AccountID: 2})
	require.NoError(t, err)
	before := l.Balance(2)

	for _, id := range []int{101, 300} {
		_, err := f.svc.SetPaid(ctx, l, 2026, 4, id, true, true)
		require.NoError(t, err)
		_, err = f.svc.SetPaid(ctx, l, 2026, 4, id, false, true)
		require.NoError(t, err)
		_, err = f.svc.SetPaid(ctx, l, 2026, 4, id, true, true)
		require.NoError(t, err)
		_, err = f.svc.SetPaid(ctx, l, 2026, 4, id, false, true)
		require.NoError(t, err)
	}
	assert.True(t, before.Equal(l.Balance(2)), "balance %s after toggles, want %s", l.Balance(2), before)
	assert.Nil(t, l.Month(2026, 4).Items[1].PaidDate)
}

func TestSetPaidNoChange(t *testing.T) {
	f := newFixture(t, singleChargeLedger())
	ctx := context.Background()
	l := f.load(t)
	_, err := f.svc.EnsureMonth(ctx, l, 2026, 4)
	require.NoError(t, err)
	saves := f.store.Saves()

	changed, err := f.svc.SetPaid(ctx, l, 2026, 4, 1, false, true)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = f.svc.SetPaid(ctx, l, 2026, 4, 42, true, true)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = f.svc.SetPaid(ctx, l, 2026, 6, 1, true, true)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.True(t, l.Balance(1).Equal(d("100")))
	assert.Equal(t, saves, f.store.Saves())
}

func TestSetPaidWithoutAutoDeduct(t *testing.T) {
	f := newFixture(t, singleChargeLedger())
	ctx := context.Background()
	l := f.load(t)
	_, err := f.svc.EnsureMonth(ctx, l, 2026, 4)
	require.NoError(t, err)

	_, err = f.svc.SetPaid(ctx, l, 2026, 4, 1, true, false)
	require.NoError(t, err)
	assert.True(t, l.Balance(1).Equal(d("100")))
	assert.True(t, l.Month(2026, 4).Items[0].Paid)
}

func TestMarkPaidRollsBackOnSaveFailure(t *testing.T) {
	f := newFixture(t, singleChargeLedger())
	ctx := context.Background()
	l := f.load(t)
	_, err := f.svc.EnsureMonth(ctx, l, 2026, 4)
	require.NoError(t, err)

	broken := NewLedgerService(failingStore{f.store}, f.svc.codec, nil)
	_, err = broken.MarkPaid(ctx, l, 2026, 4, map[int]bool{1: true}, true)
	assert.Error(t, err)
	assert.False(t, l.Month(2026, 4).Items[0].Paid)
	assert.True(t, l.Balance(1).Equal(d("100")))
}

func TestMarkPaidBulk(t *testing.T) {
	f := newFixture(t, testLedger())
	ctx := context.Background()
	l := f.load(t)
	_, err := f.svc.EnsureMonth(ctx, l, 2026, 9)
	require.NoError(t, err)

	n, err := f.svc.MarkPaid(ctx, l, 2026, 9, map[int]bool{1: true, 101: true, 201: true, 7: true}, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, l.Balance(1).Equal(d("-400")), "negative balances are allowed")
	assert.True(t, l.Balance(2).Equal(d("-52")))

	last := f.rec.entries[len(f.rec.entries)-1]
	assert.Equal(t, audit.ActionPaidUpdate, last.Action)
	assert.Equal(t, "Month 2026-09: 3 changes", last.Detail)
	assert.Equal(t, "2026-09", last.Month)
}

func TestAccountStatusDeficitNeverNegative(t *testing.T) {
	l := testLedger()
	l.Balances = map[int]decimal.Decimal{1: d("1000"), 2: d("-5")}
	items, err := Expand(l.Template, 2026, 9)
	require.NoError(t, err)

	rows := AccountStatus(l, items)
	allOK := true
	for _, r := range rows {
		assert.False(t, r.Deficit.IsNegative())
		assert.Equal(t, r.Deficit.IsZero(), r.OK)
		allOK = allOK && r.OK
	}
	assert.Equal(t, allOK, GlobalOK(rows))
	assert.False(t, GlobalOK(rows))

	cards := rows[1]
	assert.True(t, cards.Pending.Equal(d("52")))
	assert.True(t, cards.Deficit.Equal(d("57")))
	assert.True(t, cards.Prorated.Equal(d("3")))
	assert.True(t, cards.Structural.Equal(d("55")))
}

func TestAccountStatusUnknownAccount(t *testing.T) {
	l := testLedger()
	items := []core.ChargeInstance{{ID: 1, Name: "Ghost", Amount: d("10"), AccountID: 77}}

	rows := AccountStatus(l, items)
	require.Len(t, rows, 3)
	ghost := rows[2]
	assert.False(t, ghost.Known)
	assert.Equal(t, 77, ghost.Account.ID)
	assert.Equal(t, "#77", ghost.Account.Name)
	assert.True(t, ghost.Deficit.Equal(d("10")))
}

func TestRedistributionFeasible(t *testing.T) {
	items := []core.ChargeInstance{
		{AccountID: 1, Amount: d("80")},
		{AccountID: 2, Amount: d("50")},
		{AccountID: 2, Amount: d("999"), Paid: true},
	}
	tests := []struct {
		name     string
		balances map[int]decimal.Decimal
		want     bool
	}{
		{"all covered", map[int]decimal.Decimal{1: d("100"), 2: d("50")}, true},
		{"surplus covers deficit", map[int]decimal.Decimal{1: d("130"), 2: d("0")}, true},
		{"surplus short", map[int]decimal.Decimal{1: d("129.99"), 2: d("0")}, false},
		{"missing balances read as zero", map[int]decimal.Decimal{}, false},
		{"extra account surplus", map[int]decimal.Decimal{3: d("130")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedistributionFeasible(items, tt.balances))
		})
	}
}

func TestTotalsAndPendingByAccount(t *testing.T) {
	items := []core.ChargeInstance{
		{AccountID: 1, Amount: d("10.10")},
		{AccountID: 1, Amount: d("5"), Paid: true},
		{AccountID: 2, Amount: d("0.01")},
	}
	total, pending := Totals(items)
	assert.True(t, total.Equal(d("15.11")))
	assert.True(t, pending.Equal(d("10.11")))

	byAcc := PendingByAccount(items)
	assert.True(t, byAcc[1].Equal(d("10.10")))
	assert.True(t, byAcc[2].Equal(d("0.01")))
}

func TestReport(t *testing.T) {
	l := testLedger()
	l.Balances[2] = d("-3")
	items, err := Expand(l.Template, 2026, 9)
	require.NoError(t, err)
	l.Months["2026-09"] = &core.Month{Year: 2026, Month: 9, Items: items}

	r := Report(l, 2026, 9)
	assert.True(t, r.Total.Equal(d("552")))
	assert.True(t, r.Pending.Equal(d("552")))
	assert.True(t, r.Prorated.Equal(d("3")))
	assert.True(t, r.BalanceSum.Equal(d("97")))
	assert.Equal(t, []int{2}, r.NegativeBalances)
	assert.False(t, r.GlobalOK)
	assert.False(t, r.RedistributionFeasible)

	empty := Report(l, 2026, 1)
	assert.True(t, empty.Total.IsZero())
	assert.False(t, empty.GlobalOK, "a negative balance is a deficit even with nothing pending")
}

func TestUpdateBalances(t *testing.T) {
	f := newFixture(t, testLedger())
	ctx := context.Background()
	l := f.load(t)

	err := f.svc.UpdateBalances(ctx, l, map[int]decimal.Decimal{1: d("12.345"), 2: d("-7")})
	require.NoError(t, err)
	persisted := f.load(t)
	assert.True(t, persisted.Balance(1).Equal(d("12.35")))
	assert.True(t, persisted.Balance(2).Equal(d("-7")))

	err = f.svc.UpdateBalances(ctx, l, map[int]decimal.Decimal{1: d("1"), 9: d("1")})
	assert.ErrorIs(t, err, core.ErrUnknownAccount)
	assert.True(t, l.Balance(1).Equal(d("12.35")), "rejected update changes nothing")
}
