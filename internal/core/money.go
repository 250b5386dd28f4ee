// Package core provides the ledger domain model.
//
// This file contains helpers for parsing, rounding and formatting monetary
// amounts. Amounts are decimals; stored values carry two decimal places.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of decimal places kept on stored amounts.
const AmountPlaces = 2

// RoundAmount rounds d half away from zero to two decimal places. It is
// applied at the point of entry; aggregates are never rounded here.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// ParseAmount converts a non-negative decimal string to an amount rounded to
// cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil (half-up)
//	ParseAmount("-1")     -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s, false)
	if err != nil {
		return decimal.Zero, err
	}
	return RoundAmount(d), nil
}

// ParseBalance is like ParseAmount but accepts a leading minus sign, since
// account balances may go negative.
func ParseBalance(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s, true)
	if err != nil {
		return decimal.Zero, err
	}
	return RoundAmount(d), nil
}

func parseDecimal(s string, signed bool) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	neg := false
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		if !signed {
			return decimal.Zero, ErrInvalidAmount
		}
		neg = true
		s = s[1:]
	}
	if strings.Count(s, ".") > 1 || s == "" || s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// FormatEuro renders an amount the way the household reads it:
// thousands separated by dots, decimals by a comma ("1.234,56 €").
func FormatEuro(d decimal.Decimal) string {
	s := d.StringFixed(AmountPlaces)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "," + frac + " €"
}
