package core

import "github.com/shopspring/decimal"

// AccountStatus is the per-account reconciliation row for one month.
type AccountStatus struct {
	Account Account
	Known   bool // false when a charge references an account not in the ledger
	Balance decimal.Decimal
	Pending decimal.Decimal
	Deficit decimal.Decimal // max(0, pending - balance)
	OK      bool
	// Prorated is the monthly share of annual subscriptions billed to the
	// account; Structural = Pending + Prorated.
	Prorated   decimal.Decimal
	Structural decimal.Decimal
}

// StatusReport summarizes a month against the current balances.
type StatusReport struct {
	Year                   int
	Month                  int
	Total                  decimal.Decimal
	Pending                decimal.Decimal
	Prorated               decimal.Decimal
	Accounts               []AccountStatus
	BalanceSum             decimal.Decimal
	GlobalOK               bool
	RedistributionFeasible bool
	NegativeBalances       []int // account ids with a balance below zero
}
