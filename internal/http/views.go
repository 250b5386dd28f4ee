package http

import (
	"sort"

	"github.com/shopspring/decimal"

	"pagos/internal/core"
	"pagos/internal/services"
)

// Amounts leave the API as fixed two-place strings so clients never see
// binary floating point.
func fixed(d decimal.Decimal) string {
	return d.StringFixed(core.AmountPlaces)
}

type accountView struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type balanceView struct {
	AccountID int    `json:"account_id"`
	Account   string `json:"account"`
	Balance   string `json:"balance"`
}

type chargeView struct {
	ID               int    `json:"id"`
	SourceTemplateID *int   `json:"source_template_id,omitempty"`
	Name             string `json:"name"`
	Amount           string `json:"amount"`
	AccountID        int    `json:"account_id"`
	Account          string `json:"account"`
	Category         string `json:"category,omitempty"`
	Due              string `json:"due"`
	Paid             bool   `json:"paid"`
	PaidDate         string `json:"paid_date,omitempty"`
	Kind             string `json:"kind"`
	Notes            string `json:"notes,omitempty"`
}

type monthView struct {
	Key               string       `json:"key"`
	Total             string       `json:"total"`
	Pending           string       `json:"pending"`
	RegeneratePending bool         `json:"regenerate_pending"`
	Items             []chargeView `json:"items"`
}

type accountStatusView struct {
	Account    accountView `json:"account"`
	Known      bool        `json:"known"`
	Balance    string      `json:"balance"`
	Pending    string      `json:"pending"`
	Deficit    string      `json:"deficit"`
	OK         bool        `json:"ok"`
	Prorated   string      `json:"prorated"`
	Structural string      `json:"structural"`
}

type statusView struct {
	Key                    string              `json:"key"`
	Total                  string              `json:"total"`
	Pending                string              `json:"pending"`
	Prorated               string              `json:"prorated"`
	BalanceSum             string              `json:"balance_sum"`
	GlobalOK               bool                `json:"global_ok"`
	RedistributionFeasible bool                `json:"redistribution_feasible"`
	NegativeBalances       []int               `json:"negative_balances"`
	Accounts               []accountStatusView `json:"accounts"`
}

type templateItemView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	Day         int    `json:"day"`
	AccountID   int    `json:"account_id"`
	Category    string `json:"category,omitempty"`
	Kind        string `json:"kind"`
	AnnualMonth int    `json:"annual_month,omitempty"`
}

type ledgerView struct {
	Year       int                `json:"year"`
	ControlDay int                `json:"control_day"`
	Accounts   []accountView      `json:"accounts"`
	Categories []string           `json:"categories"`
	Balances   []balanceView      `json:"balances"`
	Months     []string           `json:"months"`
	Template   []templateItemView `json:"template"`
}

type prorationView struct {
	Monthly   string             `json:"monthly"`
	ByAccount []balanceView      `json:"by_account"`
	Items     []templateItemView `json:"items"`
}

func newAccountView(a core.Account) accountView {
	return accountView{ID: a.ID, Name: a.Name, Color: a.Color}
}

func newChargeView(l *core.Ledger, c core.ChargeInstance) chargeView {
	v := chargeView{
		ID:               c.ID,
		SourceTemplateID: c.SourceTemplateID,
		Name:             c.Name,
		Amount:           fixed(c.Amount),
		AccountID:        c.AccountID,
		Account:          l.AccountName(c.AccountID),
		Category:         c.Category,
		Due:              c.Due.String(),
		Paid:             c.Paid,
		Kind:             c.Kind.String(),
		Notes:            c.Notes,
	}
	if c.PaidDate != nil {
		v.PaidDate = c.PaidDate.String()
	}
	return v
}

func newMonthView(l *core.Ledger, m *core.Month, regenerating bool) monthView {
	total, pending := services.Totals(m.Items)
	v := monthView{
		Key:               m.Key(),
		Total:             fixed(total),
		Pending:           fixed(pending),
		RegeneratePending: regenerating,
		Items:             make([]chargeView, 0, len(m.Items)),
	}
	for _, c := range m.SortedByDue() {
		v.Items = append(v.Items, newChargeView(l, c))
	}
	return v
}

func newStatusView(r core.StatusReport) statusView {
	v := statusView{
		Key:                    core.MonthKey(r.Year, r.Month),
		Total:                  fixed(r.Total),
		Pending:                fixed(r.Pending),
		Prorated:               fixed(r.Prorated),
		BalanceSum:             fixed(r.BalanceSum),
		GlobalOK:               r.GlobalOK,
		RedistributionFeasible: r.RedistributionFeasible,
		NegativeBalances:       append([]int{}, r.NegativeBalances...),
		Accounts:               make([]accountStatusView, 0, len(r.Accounts)),
	}
	for _, a := range r.Accounts {
		v.Accounts = append(v.Accounts, accountStatusView{
			Account:    newAccountView(a.Account),
			Known:      a.Known,
			Balance:    fixed(a.Balance),
			Pending:    fixed(a.Pending),
			Deficit:    fixed(a.Deficit),
			OK:         a.OK,
			Prorated:   fixed(a.Prorated),
			Structural: fixed(a.Structural),
		})
	}
	return v
}

func newTemplateItemView(t core.TemplateItem) templateItemView {
	return templateItemView{
		ID:          t.ID,
		Name:        t.Name,
		Amount:      fixed(t.Amount),
		Day:         t.Day,
		AccountID:   t.AccountID,
		Category:    t.Category,
		Kind:        t.Kind.String(),
		AnnualMonth: t.AnnualMonth,
	}
}

func newTemplateView(items []core.TemplateItem) []templateItemView {
	out := make([]templateItemView, 0, len(items))
	for _, t := range items {
		out = append(out, newTemplateItemView(t))
	}
	return out
}

func newBalancesView(l *core.Ledger) []balanceView {
	out := make([]balanceView, 0, len(l.Accounts))
	for _, a := range l.Accounts {
		out = append(out, balanceView{AccountID: a.ID, Account: a.Name, Balance: fixed(l.Balance(a.ID))})
	}
	return out
}

func newLedgerView(l *core.Ledger) ledgerView {
	v := ledgerView{
		Year:       l.Year,
		ControlDay: l.ControlDay,
		Accounts:   make([]accountView, 0, len(l.Accounts)),
		Categories: append([]string{}, l.Categories...),
		Balances:   newBalancesView(l),
		Months:     make([]string, 0, len(l.Months)),
		Template:   newTemplateView(l.Template),
	}
	for _, a := range l.Accounts {
		v.Accounts = append(v.Accounts, newAccountView(a))
	}
	for key := range l.Months {
		v.Months = append(v.Months, key)
	}
	sort.Strings(v.Months)
	return v
}

func newProrationView(l *core.Ledger) prorationView {
	v := prorationView{
		Monthly: fixed(services.MonthlyEquivalent(l.Template)),
		Items:   []templateItemView{},
	}
	byAccount := services.MonthlyEquivalentByAccount(l.Template)
	ids := make([]int, 0, len(byAccount))
	for id := range byAccount {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		v.ByAccount = append(v.ByAccount, balanceView{AccountID: id, Account: l.AccountName(id), Balance: fixed(byAccount[id])})
	}
	for _, t := range l.Template {
		if t.Kind == core.KindSubAnnual {
			v.Items = append(v.Items, newTemplateItemView(t))
		}
	}
	return v
}
