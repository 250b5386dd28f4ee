// Package audit records one line per mutating ledger operation. Entries are
// write-only: nothing in the ledger reads them back.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Action tags the kind of operation in an entry.
type Action string

const (
	ActionInit       Action = "INIT"
	ActionNewMonth   Action = "NEW_MONTH"
	ActionBalances   Action = "BALANCES"
	ActionPaidUpdate Action = "PAID_UPDATE"
	ActionAdhocAdd   Action = "ADHOC_ADD"
	ActionEdit       Action = "EDIT"
	ActionDelete     Action = "DELETE"
	ActionRegenerate Action = "REGENERATE"
	ActionTemplate   Action = "TEMPLATE"
	ActionCategory   Action = "CATEGORY"
	ActionAccount    Action = "ACCOUNT"
	ActionExport     Action = "EXPORT"
	ActionImport     Action = "IMPORT"
)

// TimeLayout is the timestamp format of a log line.
const TimeLayout = "2006-01-02 15:04:05"

type Entry struct {
	Time   time.Time
	Action Action
	Detail string
	// Month is the "YYYY-MM" key the operation touched, empty for
	// ledger-wide operations.
	Month string
}

// Line renders the entry as "[YYYY-MM-DD HH:MM:SS] ACTION: detail".
func (e Entry) Line() string {
	return fmt.Sprintf("[%s] %s: %s", e.Time.Format(TimeLayout), e.Action, e.Detail)
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Multi fans an entry out to several recorders. Every recorder is tried; the
// errors are joined.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Entry) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
