package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pagos/internal/core"
)

// MonthRoller makes sure the current month exists in the ledger. From the
// control day on it also prepares the following month, as long as it belongs
// to the ledger year.
type MonthRoller struct {
	session *Session
}

func NewMonthRoller(session *Session) *MonthRoller {
	return &MonthRoller{session: session}
}

// Roll ensures the months due at now and returns the keys it created.
func (r *MonthRoller) Roll(ctx context.Context, now time.Time) ([]string, error) {
	if r.session == nil {
		return nil, fmt.Errorf("roller not properly initialized")
	}

	var created []string
	err := r.session.Do(ctx, func(l *core.Ledger) error {
		for _, ym := range r.dueMonths(l, now) {
			if l.Month(ym[0], ym[1]) != nil {
				continue
			}
			m, err := r.session.Service().EnsureMonth(ctx, l, ym[0], ym[1])
			if err != nil {
				return fmt.Errorf("ensure month %s: %w", core.MonthKey(ym[0], ym[1]), err)
			}
			created = append(created, m.Key())
		}
		return nil
	})
	if err != nil {
		return created, err
	}

	slog.InfoContext(ctx, "Month roll complete",
		"created", len(created),
		"processing_date", now.Format(core.DateLayout))
	return created, nil
}

func (r *MonthRoller) dueMonths(l *core.Ledger, now time.Time) [][2]int {
	year, month := now.Year(), int(now.Month())
	if year != l.Year {
		slog.Debug("Outside ledger year, nothing to roll", "ledger_year", l.Year, "year", year)
		return nil
	}
	due := [][2]int{{year, month}}

	controlDay := core.ClampDate(year, month, l.ControlDay).Day()
	if now.Day() >= controlDay && month < 12 {
		due = append(due, [2]int{year, month + 1})
	}
	return due
}
