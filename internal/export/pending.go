// Package export renders the unpaid charges of a month for people and
// spreadsheets.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"pagos/internal/core"
)

const rule = "------------------------------------------------------------"

// Row is one unpaid charge as exported.
type Row struct {
	ID       int
	Due      core.Date
	Amount   decimal.Decimal
	Name     string
	Account  string
	Category string
}

// PendingRows returns the unpaid charges of a month ordered by due date,
// with their total. A month that does not exist yields no rows.
func PendingRows(l *core.Ledger, year, month int) ([]Row, decimal.Decimal) {
	m := l.Month(year, month)
	if m == nil {
		return nil, decimal.Zero
	}
	var rows []Row
	total := decimal.Zero
	for _, it := range m.SortedByDue() {
		if it.Paid {
			continue
		}
		rows = append(rows, Row{
			ID:       it.ID,
			Due:      it.Due,
			Amount:   it.Amount,
			Name:     it.Name,
			Account:  l.AccountName(it.AccountID),
			Category: it.Category,
		})
		total = total.Add(it.Amount)
	}
	return rows, total
}

// FileName is the name of the pending list file for a month.
func FileName(year, month int) string {
	return fmt.Sprintf("pendientes_%s.txt", core.MonthKey(year, month))
}

// WriteText writes the pending list of a month and returns how many charges
// it listed.
//
//	Pendientes del mes 2026-04 (corte día 29)
//	------------------------------------------------------------
//	2026-04-02 | 16.00€ | Netflix | Cards
//	------------------------------------------------------------
//	TOTAL PENDIENTE: 16.00€
func WriteText(w io.Writer, l *core.Ledger, year, month int) (int, error) {
	rows, total := PendingRows(l, year, month)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Pendientes del mes %s (corte día %d)\n", core.MonthKey(year, month), l.ControlDay)
	fmt.Fprintln(bw, rule)
	for _, r := range rows {
		fmt.Fprintf(bw, "%s | %s€ | %s | %s\n", r.Due, r.Amount.StringFixed(core.AmountPlaces), r.Name, r.Account)
	}
	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "TOTAL PENDIENTE: %s€\n", total.StringFixed(core.AmountPlaces))
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("write pending list: %w", err)
	}
	return len(rows), nil
}

// Text returns the pending list as a string.
func Text(l *core.Ledger, year, month int) string {
	var b strings.Builder
	_, _ = WriteText(&b, l, year, month)
	return b.String()
}

// WriteFile writes the pending list into dir and returns the file path and
// the number of charges listed. An existing file for the month is replaced.
func WriteFile(dir string, l *core.Ledger, year, month int) (string, int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(year, month))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := WriteText(f, l, year, month)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", path, cerr)
	}
	if err != nil {
		return "", 0, err
	}
	return path, n, nil
}
