package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagos/internal/core"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ledgerWithApril() *core.Ledger {
	tid := 1
	return &core.Ledger{
		Year:       2026,
		ControlDay: 29,
		Accounts:   []core.Account{{ID: 1, Name: "Main"}, {ID: 2, Name: "Cards"}},
		Months: map[string]*core.Month{
			"2026-04": {Year: 2026, Month: 4, Items: []core.ChargeInstance{
				{ID: 1, SourceTemplateID: &tid, Name: "Rent", Amount: d("500"), AccountID: 1, Due: core.NewDate(2026, 4, 30)},
				{ID: 101, Name: "Netflix", Amount: d("15.99"), AccountID: 2, Due: core.NewDate(2026, 4, 2)},
				{ID: 102, Name: "Gym", Amount: d("30"), AccountID: 2, Due: core.NewDate(2026, 4, 5), Paid: true},
				{ID: 300, Name: "Plumber", Amount: d("80.5"), AccountID: 9, Due: core.NewDate(2026, 4, 12)},
			}},
		},
	}
}

func TestPendingRows(t *testing.T) {
	rows, total := PendingRows(ledgerWithApril(), 2026, 4)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Netflix", "Plumber", "Rent"}, []string{rows[0].Name, rows[1].Name, rows[2].Name})
	assert.Equal(t, "#9", rows[1].Account)
	assert.True(t, total.Equal(d("596.49")))

	rows, total = PendingRows(ledgerWithApril(), 2026, 5)
	assert.Empty(t, rows)
	assert.True(t, total.IsZero())
}

func TestText(t *testing.T) {
	want := "Pendientes del mes 2026-04 (corte día 29)\n" +
		rule + "\n" +
		"2026-04-02 | 15.99€ | Netflix | Cards\n" +
		"2026-04-12 | 80.50€ | Plumber | #9\n" +
		"2026-04-30 | 500.00€ | Rent | Main\n" +
		rule + "\n" +
		"TOTAL PENDIENTE: 596.49€\n"
	assert.Equal(t, want, Text(ledgerWithApril(), 2026, 4))
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, n, err := WriteFile(dir, ledgerWithApril(), 2026, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, filepath.Join(dir, "pendientes_2026-04.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Text(ledgerWithApril(), 2026, 4), string(data))
}
