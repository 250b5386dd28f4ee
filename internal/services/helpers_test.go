package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pagos/internal/audit"
	"pagos/internal/core"
	"pagos/internal/seed"
	"pagos/internal/storage"
	"pagos/internal/storage/memory"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recorderStub struct {
	entries []audit.Entry
}

func (r *recorderStub) Record(_ context.Context, e audit.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *recorderStub) actions() []audit.Action {
	out := make([]audit.Action, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// failingStore loads from an inner store but refuses to save.
type failingStore struct {
	storage.Store
}

func (failingStore) Save(context.Context, *core.Ledger) error {
	return errors.New("disk full")
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func testLedger() *core.Ledger {
	return &core.Ledger{
		SchemaVersion: core.CurrentSchemaVersion,
		Year:          2026,
		ControlDay:    29,
		NextID:        300,
		Balances:      map[int]decimal.Decimal{1: d("100"), 2: d("0")},
		Accounts:      []core.Account{{ID: 1, Name: "Main"}, {ID: 2, Name: "Cards"}},
		Categories:    []string{"Vivienda"},
		Template: []core.TemplateItem{
			{ID: 1, Name: "Rent", Amount: d("500"), Day: 31, AccountID: 1, Category: "Vivienda", Kind: core.KindFixed},
			{ID: 101, Name: "Netflix", Amount: d("16"), Day: 2, AccountID: 2, Kind: core.KindSubMonthly},
			{ID: 201, Name: "Telegram", Amount: d("36"), Day: 25, AccountID: 2, Kind: core.KindSubAnnual, AnnualMonth: 9},
		},
		Months: map[string]*core.Month{},
	}
}

type fixture struct {
	svc   *LedgerService
	store *memory.Store
	rec   *recorderStub
	clock *clock
}

func newFixture(t *testing.T, l *core.Ledger) *fixture {
	t.Helper()
	store := memory.New(storage.Codec{})
	if l != nil {
		require.NoError(t, store.Save(context.Background(), l))
	}
	sd, err := seed.Default()
	require.NoError(t, err)

	f := &fixture{
		store: store,
		rec:   &recorderStub{},
		clock: &clock{now: time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)},
	}
	f.svc = NewLedgerService(store, storage.Codec{}, sd, WithRecorder(f.rec), WithClock(f.clock.Now))
	return f
}

// load returns the ledger as currently persisted.
func (f *fixture) load(t *testing.T) *core.Ledger {
	t.Helper()
	l, err := f.store.Load(context.Background())
	require.NoError(t, err)
	return l
}
