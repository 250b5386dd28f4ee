package sheets

import (
	"context"

	"github.com/shopspring/decimal"

	"pagos/internal/export"
)

// Ports for outbound adapters.
type (
	// PendingWriter publishes the pending list of a month to a spreadsheet.
	PendingWriter interface {
		// WritePending replaces the month's pending list and returns a
		// reference to the written range.
		WritePending(ctx context.Context, year, month int, rows []export.Row, total decimal.Decimal) (rangeRef string, err error)
	}
)
