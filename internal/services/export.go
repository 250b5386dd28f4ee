package services

import (
	"context"
	"fmt"
	"path/filepath"

	"pagos/internal/audit"
	"pagos/internal/core"
	"pagos/internal/export"
	"pagos/internal/sheets"
)

// ExportPending writes the pending list of a month into dir and records it.
func (s *LedgerService) ExportPending(ctx context.Context, l *core.Ledger, year, month int, dir string) (string, error) {
	path, n, err := export.WriteFile(dir, l, year, month)
	if err != nil {
		return "", err
	}
	s.record(ctx, audit.ActionExport, core.MonthKey(year, month), "%s generado (%d items)", filepath.Base(path), n)
	return path, nil
}

// PublishPending writes the pending list of a month through w and records
// it.
func (s *LedgerService) PublishPending(ctx context.Context, w sheets.PendingWriter, l *core.Ledger, year, month int) (string, error) {
	rows, total := export.PendingRows(l, year, month)
	ref, err := w.WritePending(ctx, year, month, rows, total)
	if err != nil {
		return "", fmt.Errorf("publish pending list: %w", err)
	}
	s.record(ctx, audit.ActionExport, core.MonthKey(year, month), "%s publicado (%d items)", ref, len(rows))
	return ref, nil
}
