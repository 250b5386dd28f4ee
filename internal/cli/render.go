package cli

import (
	"fmt"
	"io"
	"strings"

	"pagos/internal/core"
	"pagos/internal/services"
)

func renderStatus(w io.Writer, l *core.Ledger, r core.StatusReport) {
	printTitle(w, fmt.Sprintf("Estado %s (corte día %d)", core.MonthKey(r.Year, r.Month), l.ControlDay))

	rows := make([][]string, 0, len(r.Accounts))
	for _, a := range r.Accounts {
		name := a.Account.Name
		if !a.Known {
			name += " (unknown)"
		}
		rows = append(rows, []string{
			name,
			core.FormatEuro(a.Balance),
			core.FormatEuro(a.Pending),
			core.FormatEuro(a.Deficit),
			core.FormatEuro(a.Prorated),
			core.FormatEuro(a.Structural),
			okMark(a.OK),
		})
	}
	printTable(w, []string{"Cuenta", "Saldo", "Pendiente", "Déficit", "Prorrateo", "Estructural", "OK"}, rows)

	printInfof(w, "Total del mes %s, pendiente %s", core.FormatEuro(r.Total), core.FormatEuro(r.Pending))
	printInfof(w, "Suma de saldos %s, prorrateo anual %s/mes", core.FormatEuro(r.BalanceSum), core.FormatEuro(r.Prorated))
	for _, id := range r.NegativeBalances {
		printWarn(w, "%s has a negative balance (%s)", l.AccountName(id), core.FormatEuro(l.Balance(id)))
	}
	switch {
	case r.GlobalOK:
		printSuccess(w, "Every account covers its pending charges")
	case r.RedistributionFeasible:
		printWarn(w, "Some accounts fall short, but moving funds between accounts would cover them")
	default:
		printError(w, "Combined balances do not cover the pending charges")
	}
}

func renderItems(w io.Writer, l *core.Ledger, m *core.Month, pendingOnly bool) {
	printTitle(w, "Cargos "+m.Key())

	rows := [][]string{}
	for _, it := range m.SortedByDue() {
		if pendingOnly && it.Paid {
			continue
		}
		paid := ""
		if it.Paid {
			paid = okMark(true)
			if it.PaidDate != nil {
				paid += " " + it.PaidDate.String()
			}
		}
		rows = append(rows, []string{
			itoa(it.ID),
			it.Due.String(),
			it.Name,
			core.FormatEuro(it.Amount),
			l.AccountName(it.AccountID),
			it.Category,
			it.Kind.String(),
			paid,
		})
	}
	printTable(w, []string{"ID", "Vence", "Nombre", "Importe", "Cuenta", "Categoría", "Tipo", "Pagado"}, rows)

	total, pending := services.Totals(m.Items)
	printInfof(w, "Total %s, pendiente %s", core.FormatEuro(total), core.FormatEuro(pending))
}

func renderBalances(w io.Writer, l *core.Ledger) {
	rows := make([][]string, 0, len(l.Accounts))
	for _, a := range l.Accounts {
		rows = append(rows, []string{itoa(a.ID), a.Name, core.FormatEuro(l.Balance(a.ID))})
	}
	printTable(w, []string{"ID", "Cuenta", "Saldo"}, rows)
}

func renderTemplate(w io.Writer, l *core.Ledger) {
	rows := make([][]string, 0, len(l.Template))
	for _, t := range l.Template {
		when := fmt.Sprintf("día %d", t.Day)
		if t.Kind == core.KindSubAnnual {
			when += fmt.Sprintf(" de mes %d", t.AnnualMonth)
		}
		rows = append(rows, []string{
			itoa(t.ID),
			t.Name,
			core.FormatEuro(t.Amount),
			when,
			l.AccountName(t.AccountID),
			t.Category,
			t.Kind.String(),
		})
	}
	printTable(w, []string{"ID", "Nombre", "Importe", "Cuándo", "Cuenta", "Categoría", "Tipo"}, rows)
}

func renderProration(w io.Writer, l *core.Ledger) {
	byAccount := services.MonthlyEquivalentByAccount(l.Template)
	var rows [][]string
	for _, t := range l.Template {
		if t.Kind != core.KindSubAnnual {
			continue
		}
		rows = append(rows, []string{t.Name, core.FormatEuro(t.Amount), itoa(t.AnnualMonth), l.AccountName(t.AccountID)})
	}
	printTable(w, []string{"Suscripción anual", "Importe", "Mes", "Cuenta"}, rows)

	parts := make([]string, 0, len(l.Accounts))
	for _, a := range l.Accounts {
		if v, ok := byAccount[a.ID]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", a.Name, core.FormatEuro(v)))
		}
	}
	printInfof(w, "Equivalente mensual %s", core.FormatEuro(services.MonthlyEquivalent(l.Template)))
	if len(parts) > 0 {
		printInfof(w, "Por cuenta: %s", strings.Join(parts, ", "))
	}
}
