// Package worker keeps the published Google Sheets pending list in step with
// the ledger by reacting to ledger events.
package worker

import (
	"context"
	"time"

	"pagos/internal/amqp"
	"pagos/internal/audit"
	"pagos/internal/core"
	"pagos/internal/log"
	"pagos/internal/services"
	"pagos/internal/sheets"
)

// SheetsSync republishes a month's pending list whenever an event says the
// month may have changed.
type SheetsSync struct {
	session *services.Session
	writer  sheets.PendingWriter
	now     func() time.Time
	log     *log.Logger
}

func NewSheetsSync(session *services.Session, writer sheets.PendingWriter, now func() time.Time, logger *log.Logger) *SheetsSync {
	if now == nil {
		now = time.Now
	}
	return &SheetsSync{
		session: session,
		writer:  writer,
		now:     now,
		log:     logger.WithComponent(log.ComponentSheets),
	}
}

// changesPending lists the actions that can alter a month's pending list.
// EXPORT is left out, publishing would otherwise trigger itself.
var changesPending = map[audit.Action]bool{
	audit.ActionNewMonth:   true,
	audit.ActionPaidUpdate: true,
	audit.ActionAdhocAdd:   true,
	audit.ActionEdit:       true,
	audit.ActionDelete:     true,
	audit.ActionRegenerate: true,
	audit.ActionAccount:    true,
	audit.ActionImport:     true,
	audit.ActionInit:       true,
}

// ledgerWide actions carry no month; they touch every pending list, so the
// current month is republished.
var ledgerWide = map[audit.Action]bool{
	audit.ActionAccount: true,
	audit.ActionImport:  true,
	audit.ActionInit:    true,
}

// HandleEvent is the consumer callback. Events that do not touch a pending
// list are acknowledged without work. Account changes, a whole-ledger import
// or a reset republish the current month.
func (w *SheetsSync) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	action := audit.Action(ev.Action)
	key := ev.Month
	switch {
	case !changesPending[action]:
		return nil
	case ledgerWide[action]:
		now := w.now()
		key = core.MonthKey(now.Year(), int(now.Month()))
	case key == "":
		return nil
	}

	year, month, err := core.ParseMonthKey(key)
	if err != nil {
		w.log.WarnContext(ctx, "Ignoring event with a bad month",
			log.FieldAction, ev.Action,
			log.FieldMonth, ev.Month)
		return nil
	}
	return w.publish(ctx, year, month, ev.Action)
}

// StartupSync publishes the current month so a sheet that missed events
// while the worker was down is brought up to date.
func (w *SheetsSync) StartupSync(ctx context.Context) error {
	now := w.now()
	return w.publish(ctx, now.Year(), int(now.Month()), "startup")
}

// publish skips months that do not exist yet; creating them belongs to the
// month roll.
func (w *SheetsSync) publish(ctx context.Context, year, month int, cause string) error {
	return w.session.Do(ctx, func(l *core.Ledger) error {
		if l.Month(year, month) == nil {
			return nil
		}
		ref, err := w.session.Service().PublishPending(ctx, w.writer, l, year, month)
		if err != nil {
			return err
		}
		w.log.InfoContext(ctx, "Pending list synced",
			log.FieldOperation, log.OpSync,
			log.FieldMonth, core.MonthKey(year, month),
			"range", ref,
			"cause", cause)
		return nil
	})
}
