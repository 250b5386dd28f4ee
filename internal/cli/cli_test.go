package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagos/internal/config"
	"pagos/internal/core"
	"pagos/internal/export"
	"pagos/internal/log"
	"pagos/internal/seed"
	"pagos/internal/services"
	"pagos/internal/storage"
	"pagos/internal/storage/memory"
)

var testNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func testLedger() *core.Ledger {
	d := decimal.RequireFromString
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

type fakeWriter struct {
	month int
	rows  []export.Row
}

func (f *fakeWriter) WritePending(_ context.Context, _ int, month int, rows []export.Row, _ decimal.Decimal) (string, error) {
	f.month = month
	f.rows = rows
	return "Pendientes!A1:D3", nil
}

type harness struct {
	app     *App
	out     *bytes.Buffer
	store   *memory.Store
	env     *Env
	asked   []string
	confirm bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New(storage.Codec{})
	require.NoError(t, store.Save(context.Background(), testLedger()))

	sd, err := seed.Default()
	require.NoError(t, err)
	now := func() time.Time { return testNow }
	svc := services.NewLedgerService(store, storage.Codec{}, sd, services.WithClock(now))

	h := &harness{
		out:   &bytes.Buffer{},
		store: store,
		env: &Env{
			Config:  &config.Config{DataBackend: "file", Port: "8080"},
			Logger:  log.New(log.Config{Output: io.Discard}),
			Session: services.NewSession(svc),
		},
	}
	h.app = NewApp(&Globals{}, h.out, io.Discard)
	h.app.Now = now
	h.app.Confirm = func(q string) (bool, error) {
		h.asked = append(h.asked, q)
		return h.confirm, nil
	}
	h.app.open = func(context.Context) (*Env, error) { return h.env, nil }
	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.out.Reset()
	var root Commands
	return Execute(h.app, &root, args, kong.Exit(func(int) { t.Fatalf("unexpected exit for %v", args) }))
}

func (h *harness) ledger(t *testing.T) *core.Ledger {
	t.Helper()
	l, err := h.store.Load(context.Background())
	require.NoError(t, err)
	return l
}

func TestStatusGeneratesMonth(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "status"))
	out := h.out.String()
	assert.Contains(t, out, "Estado 2026-04")
	assert.Contains(t, out, "Main")
	assert.Contains(t, out, "Cards")
	assert.Contains(t, out, "do not cover")

	m := h.ledger(t).Month(2026, 4)
	require.NotNil(t, m)
	assert.Len(t, m.Items, 2)
}

func TestItemsPendingFilter(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "items", "-m", "2026-04"))
	assert.Contains(t, h.out.String(), "Netflix")

	require.NoError(t, h.run(t, "pay", "-m", "2026-04", "101"))
	require.NoError(t, h.run(t, "items", "-m", "2026-04", "--pending"))
	assert.NotContains(t, h.out.String(), "Netflix")
	assert.Contains(t, h.out.String(), "Rent")
}

func TestPayAndUnpay(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "items", "-m", "2026-04"))

	require.NoError(t, h.run(t, "pay", "-m", "2026-04", "--deduct", "yes", "1"))
	assert.Contains(t, h.out.String(), "1 of 1 charges marked paid")
	l := h.ledger(t)
	assert.True(t, l.Balance(1).Equal(decimal.RequireFromString("-400")))
	it := l.Month(2026, 4).Items[l.Month(2026, 4).Find(1)]
	assert.True(t, it.Paid)

	require.NoError(t, h.run(t, "unpay", "-m", "2026-04", "--deduct", "yes", "1"))
	l = h.ledger(t)
	assert.True(t, l.Balance(1).Equal(decimal.RequireFromString("100")))
}

func TestPayDefaultsToConfiguredDeduct(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "items", "-m", "2026-04"))

	require.NoError(t, h.run(t, "pay", "-m", "2026-04", "1"))
	assert.True(t, h.ledger(t).Balance(1).Equal(decimal.RequireFromString("100")), "AUTO_DEDUCT is off")
}

func TestPayErrors(t *testing.T) {
	h := newHarness(t)

	err := h.run(t, "pay", "-m", "2026-05", "1")
	assert.ErrorIs(t, err, core.ErrNotFound, "month was never generated")

	err = h.run(t, "pay", "-m", "2026-13", "1")
	assert.Error(t, err)
}

func TestPaySkipsStaleIDs(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "items", "-m", "2026-04"))

	require.NoError(t, h.run(t, "pay", "-m", "2026-04", "--deduct", "yes", "999", "1"))
	out := h.out.String()
	assert.Contains(t, out, "Charge 999 not found in 2026-04")
	assert.Contains(t, out, "1 of 2 charges marked paid")

	l := h.ledger(t)
	m := l.Month(2026, 4)
	assert.True(t, m.Items[m.Find(1)].Paid, "the valid id is still applied")
	assert.True(t, l.Balance(1).Equal(decimal.RequireFromString("-400")))

	require.NoError(t, h.run(t, "unpay", "-m", "2026-04", "999"))
	assert.Contains(t, h.out.String(), "0 of 1 charges marked pending")
}

func TestAddEditDelete(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "add", "-m", "2026-04", "-a", "2", "-d", "3", "Gift", "12,50"))
	assert.Contains(t, h.out.String(), "#300 Gift")

	m := h.ledger(t).Month(2026, 4)
	require.NotNil(t, m, "adding to a missing month creates it")
	idx := m.Find(300)
	require.GreaterOrEqual(t, idx, 0)
	assert.True(t, m.Items[idx].Amount.Equal(decimal.RequireFromString("12.5")))

	require.NoError(t, h.run(t, "edit", "-m", "2026-04", "300", "--amount", "20", "--name", "Present"))
	m = h.ledger(t).Month(2026, 4)
	it := m.Items[m.Find(300)]
	assert.Equal(t, "Present", it.Name)
	assert.True(t, it.Amount.Equal(decimal.RequireFromString("20")))
	assert.Equal(t, 2, it.AccountID, "unset flags keep their value")

	assert.ErrorIs(t, h.run(t, "edit", "-m", "2026-04", "999", "--name", "x"), core.ErrNotFound)

	require.NoError(t, h.run(t, "delete", "-m", "2026-04", "300", "999"))
	assert.Contains(t, h.out.String(), "Deleted charge 300")
	assert.Contains(t, h.out.String(), "Charge 999 not found")
	assert.Less(t, h.ledger(t).Month(2026, 4).Find(300), 0)
}

func TestAddRejectsBadAmount(t *testing.T) {
	h := newHarness(t)
	err := h.run(t, "add", "-m", "2026-04", "-a", "1", "Gift", "abc")
	assert.Error(t, err)
	assert.Nil(t, h.ledger(t).Month(2026, 4))
}

func TestCleanupRemovesPaidAdhoc(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "add", "-m", "2026-04", "-a", "1", "Gift", "10"))
	require.NoError(t, h.run(t, "add", "-m", "2026-04", "-a", "1", "Taxi", "5"))
	require.NoError(t, h.run(t, "pay", "-m", "2026-04", "300", "1"))

	require.NoError(t, h.run(t, "cleanup", "-m", "2026-04"))
	assert.Contains(t, h.out.String(), "Removed 1 paid ad-hoc charges")

	m := h.ledger(t).Month(2026, 4)
	assert.Less(t, m.Find(300), 0)
	assert.GreaterOrEqual(t, m.Find(301), 0, "unpaid ad-hoc charge stays")
	assert.GreaterOrEqual(t, m.Find(1), 0, "template charges are never cleaned up")
}

func TestRegenerateAsksForConfirmation(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "add", "-m", "2026-04", "-a", "1", "Gift", "10"))

	require.NoError(t, h.run(t, "regenerate", "-m", "2026-04"))
	require.Len(t, h.asked, 1)
	assert.Contains(t, h.asked[0], "3 charges")
	assert.Contains(t, h.out.String(), "cancelled")
	assert.GreaterOrEqual(t, h.ledger(t).Month(2026, 4).Find(300), 0)
	assert.False(t, h.env.Service().RegeneratePending(2026, 4))

	h.confirm = true
	require.NoError(t, h.run(t, "regenerate", "-m", "2026-04"))
	assert.Contains(t, h.out.String(), "Regenerated 2026-04 with 2 charges")
	assert.Less(t, h.ledger(t).Month(2026, 4).Find(300), 0)
}

func TestRegenerateWithYesSkipsPrompt(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "items", "-m", "2026-04"))

	require.NoError(t, h.run(t, "--yes", "regenerate", "-m", "2026-04"))
	assert.Empty(t, h.asked)
	assert.Contains(t, h.out.String(), "Regenerated 2026-04")
}

func TestRollCreatesCurrentMonth(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "roll"))
	assert.Contains(t, h.out.String(), "Created 2026-04")
	assert.NotNil(t, h.ledger(t).Month(2026, 4))

	require.NoError(t, h.run(t, "roll"))
	assert.Contains(t, h.out.String(), "Nothing to create")
}

func TestBalances(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "balances"))
	assert.Contains(t, h.out.String(), "Main")

	require.NoError(t, h.run(t, "balances", "set", "1=250", "2=-10,5"))
	l := h.ledger(t)
	assert.True(t, l.Balance(1).Equal(decimal.RequireFromString("250")))
	assert.True(t, l.Balance(2).Equal(decimal.RequireFromString("-10.5")))

	assert.Error(t, h.run(t, "balances", "set", "oops"))
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    map[int]string
		wantErr bool
	}{
		{name: "dot and comma", in: []string{"1=10.5", "2=3,25"}, want: map[int]string{1: "10.5", 2: "3.25"}},
		{name: "negative", in: []string{"3=-7"}, want: map[int]string{3: "-7"}},
		{name: "spaces", in: []string{" 4 = 1 "}, want: map[int]string{4: "1"}},
		{name: "missing equals", in: []string{"1"}, wantErr: true},
		{name: "bad id", in: []string{"x=1"}, wantErr: true},
		{name: "bad amount", in: []string{"1=abc"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for id, v := range tt.want {
				assert.True(t, got[id].Equal(decimal.RequireFromString(v)), "account %d: %s", id, got[id])
			}
		})
	}
}

func TestTemplateCommands(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "template", "add", "Gym", "30", "-d", "5", "-a", "1", "-c", "Salud"))
	assert.Contains(t, h.out.String(), "#300 Gym")

	l := h.ledger(t)
	assert.Contains(t, l.Categories, "Salud", "new categories are registered")

	require.NoError(t, h.run(t, "template"))
	assert.Contains(t, h.out.String(), "Gym")
	assert.Contains(t, h.out.String(), "de mes 9")

	require.NoError(t, h.run(t, "template", "delete", "300"))
	assert.ErrorIs(t, h.run(t, "template", "delete", "300"), core.ErrNotFound)

	assert.Error(t, h.run(t, "template", "add", "Bad", "10", "-d", "40", "-a", "1"))
}

func TestCategoryAndAccountCommands(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "category", "add", "Ocio"))
	assert.Contains(t, h.out.String(), "Added category")
	require.NoError(t, h.run(t, "category", "add", "Ocio"))
	assert.Contains(t, h.out.String(), "already exists")
	require.NoError(t, h.run(t, "category", "remove", "Ocio"))
	assert.ErrorIs(t, h.run(t, "category", "remove", "Ocio"), core.ErrNotFound)

	require.NoError(t, h.run(t, "account", "add", "Savings"))
	assert.Contains(t, h.out.String(), "Added account #3 Savings")
	require.NoError(t, h.run(t, "account", "rename", "3", "Ahorro"))
	assert.Equal(t, "Ahorro", h.ledger(t).AccountName(3))
}

func TestProration(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "proration"))
	assert.Contains(t, h.out.String(), "Telegram")
	assert.Contains(t, h.out.String(), "3,00")
}

func TestExportWritesPendingFile(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	require.NoError(t, h.run(t, "items", "-m", "2026-04"))

	require.NoError(t, h.run(t, "export", "-m", "2026-04", "--dir", dir))
	data, err := os.ReadFile(filepath.Join(dir, export.FileName(2026, 4)))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Netflix")
	assert.Contains(t, string(data), "TOTAL PENDIENTE")
}

func TestSheetsExport(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "items", "-m", "2026-04"))

	assert.Error(t, h.run(t, "sheets-export", "-m", "2026-04"), "not configured")

	w := &fakeWriter{}
	h.env.Sheets = w
	require.NoError(t, h.run(t, "sheets-export", "-m", "2026-04"))
	assert.Contains(t, h.out.String(), "Published Pendientes!A1:D3")
	assert.Equal(t, 4, w.month)
	assert.Len(t, w.rows, 2)
}

func TestBackupAndImport(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "items", "-m", "2026-04"))

	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, h.run(t, "backup", "-o", path))
	assert.Contains(t, h.out.String(), "Backup written")

	require.NoError(t, h.run(t, "backup"))
	assert.Contains(t, h.out.String(), `"control_day"`)

	require.NoError(t, h.run(t, "balances", "set", "1=999"))

	require.NoError(t, h.run(t, "import", path))
	assert.Contains(t, h.out.String(), "cancelled", "declined prompt")
	assert.True(t, h.ledger(t).Balance(1).Equal(decimal.RequireFromString("999")))

	require.NoError(t, h.run(t, "--yes", "import", path))
	assert.Contains(t, h.out.String(), "Imported ledger 2026 with 1 months")
	assert.True(t, h.ledger(t).Balance(1).Equal(decimal.RequireFromString("100")))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"year": 2026}`), 0o600))
	assert.Error(t, h.run(t, "--yes", "import", bad))
}

func TestInitReplacesLedgerFromSeed(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "init"))
	assert.Contains(t, h.out.String(), "cancelled")
	assert.Equal(t, "Main", h.ledger(t).AccountName(1))

	require.NoError(t, h.run(t, "-y", "init"))
	assert.Contains(t, h.out.String(), "initialized")
	assert.Empty(t, h.ledger(t).Months)
}

func TestMonthFlagResolve(t *testing.T) {
	y, m, err := MonthFlag{}.resolve(testNow)
	require.NoError(t, err)
	assert.Equal(t, [2]int{2026, 4}, [2]int{y, m})

	y, m, err = MonthFlag{Month: " 2025-12 "}.resolve(testNow)
	require.NoError(t, err)
	assert.Equal(t, [2]int{2025, 12}, [2]int{y, m})

	_, _, err = MonthFlag{Month: "12-2025"}.resolve(testNow)
	assert.Error(t, err)
}

func TestDeductFlagResolve(t *testing.T) {
	on := &config.Config{AutoDeduct: true}
	off := &config.Config{}
	assert.True(t, DeductFlag{Deduct: "auto"}.resolve(on))
	assert.False(t, DeductFlag{Deduct: "auto"}.resolve(off))
	assert.True(t, DeductFlag{Deduct: "yes"}.resolve(off))
	assert.False(t, DeductFlag{Deduct: "no"}.resolve(on))
}
