package http

import (
	"context"
	"fmt"
	"net/http"

	"pagos/internal/core"
	"pagos/internal/export"
	"pagos/internal/log"
	"pagos/internal/services"
)

// monthAction parses the month key and runs fn inside the session.
func (s *Server) monthAction(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, svc *services.LedgerService, l *core.Ledger, year, month int) (any, error)) {
	year, month, err := monthParam(r)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	var out any
	err = s.session.Do(r.Context(), func(l *core.Ledger) error {
		var err error
		out, err = fn(r.Context(), s.session.Service(), l, year, month)
		return err
	})
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func findCharge(l *core.Ledger, year, month, id int) (*core.Month, int, error) {
	m := l.Month(year, month)
	if m == nil {
		return nil, -1, fmt.Errorf("month %s: %w", core.MonthKey(year, month), core.ErrNotFound)
	}
	i := m.Find(id)
	if i < 0 {
		return nil, -1, fmt.Errorf("charge %d in %s: %w", id, m.Key(), core.ErrNotFound)
	}
	return m, i, nil
}

// handleMonth returns the month, generating it from the template on first
// access.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	s.monthAction(w, r, log.OpEnsureMonth, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger, year, month int) (any, error) {
		m, err := svc.EnsureMonth(ctx, l, year, month)
		if err != nil {
			return nil, err
		}
		return newMonthView(l, m, svc.RegeneratePending(year, month)), nil
	})
}

// handleStatus reports the month against current balances without creating
// it.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.monthAction(w, r, log.OpBalances, func(_ context.Context, _ *services.LedgerService, l *core.Ledger, year, month int) (any, error) {
		return newStatusView(services.Report(l, year, month)), nil
	})
}

func (s *Server) handleAddAdhoc(w http.ResponseWriter, r *http.Request) {
	var req adhocRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpAddAdhoc, err)
		return
	}
	amount, err := req.Amount.amount()
	if err != nil {
		s.writeError(w, r, log.OpAddAdhoc, err)
		return
	}
	s.monthAction(w, r, log.OpAddAdhoc, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger, year, month int) (any, error) {
		it, err := svc.AddAdhocItem(ctx, l, year, month, services.AdhocInput{
			Name:      req.Name,
			Amount:    amount,
			Day:       req.Day,
			AccountID: req.AccountID,
			Category:  req.Category,
			Notes:     req.Notes,
		})
		if err != nil {
			return nil, err
		}
		return newChargeView(l, it), nil
	})
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpEdit, err)
		return
	}
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpEdit, err)
		return
	}
	edit, err := req.toEdit()
	if err != nil {
		s.writeError(w, r, log.OpEdit, err)
		return
	}
	s.monthAction(w, r, log.OpEdit, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger, year, month int) (any, error) {
		if _, _, err := findCharge(l, year, month, id); err != nil {
			return nil, err
		}
		if _, err := svc.EditCharge(ctx, l, year, month, id, edit); err != nil {
			return nil, err
		}
		m, i, err := findCharge(l, year, month, id)
		if err != nil {
			return nil, err
		}
		return newChargeView(l, m.Items[i]), nil
	})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	s.monthAction(w, r, log.OpDelete, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger, year, month int) (any, error) {
		if l.Month(year, month) == nil {
			return nil, fmt.Errorf("month %s: %w", core.MonthKey(year, month), core.ErrNotFound)
		}
		ok, err := svc.DeleteItem(ctx, l, year, month, id)
		if err != nil {
			return nil, err
		}
		return struct {
			ID      int  `json:"id"`
			Deleted bool `json:"deleted"`
		}{id, ok}, nil
	})
}

func (s *Server) autoDeduct(override *bool) bool {
	if override != nil {
		return *override
	}
	return s.opts.AutoDeduct
}

// paidResponse omits item and balance when the charge no longer exists.
type paidResponse struct {
	Changed bool        `json:"changed"`
	Item    *chargeView `json:"item,omitempty"`
	Balance string      `json:"balance,omitempty"`
}

// handleSetPaid toggles one charge. Repeating the current state, or naming a
// charge that is gone, is accepted and reported as unchanged.
func (s *Server) handleSetPaid(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpPaid, err)
		return
	}
	var req paidRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpPaid, err)
		return
	}
	s.monthAction(w, r, log.OpPaid, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger, year, month int) (any, error) {
		m := l.Month(year, month)
		if m == nil {
			return nil, fmt.Errorf("month %s: %w", core.MonthKey(year, month), core.ErrNotFound)
		}
		changed, err := svc.SetPaid(ctx, l, year, month, id, req.Paid, s.autoDeduct(req.AutoDeduct))
		if err != nil {
			return nil, err
		}
		i := m.Find(id)
		if i < 0 {
			return paidResponse{}, nil
		}
		it := newChargeView(l, m.Items[i])
		return paidResponse{Changed: changed, Item: &it, Balance: fixed(l.Balance(m.Items[i].AccountID))}, nil
	})
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	var req bulkPaidRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpPaid, err)
		return
	}
	s.monthAction(w, r, log.OpPaid, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger, year, month int) (any, error) {
		if l.Month(year, month) == nil {
			return nil, fmt.Errorf("month %s: %w", core.MonthKey(year, month), core.ErrNotFound)
		}
		n, err := svc.MarkPaid(ctx, l, year, month, req.Paid, s.autoDeduct(req.AutoDeduct))
		if err != nil {
			return nil, err
		}
		return map[string]int{"changed": n}, nil
	})
}

// handleDeletePaidAdhoc removes the listed ad-hoc charges that are paid.
func (s *Server) handleDeletePaidAdhoc(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	s.monthAction(w, r, log.OpDelete, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger, year, month int) (any, error) {
		n, err := svc.DeletePaidAdhoc(ctx, l, year, month, req.IDs)
		if err != nil {
			return nil, err
		}
		return map[string]int{"deleted": n}, nil
	})
}

// handleRegenerate answers 409 on the first call and rebuilds the month when
// repeated within the confirmation window.
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	s.monthAction(w, r, log.OpRegenerate, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger, year, month int) (any, error) {
		m, err := svc.RegenerateMonth(ctx, l, year, month)
		if err != nil {
			return nil, err
		}
		return newMonthView(l, m, false), nil
	})
}

func (s *Server) handleCancelRegenerate(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParam(r)
	if err != nil {
		s.writeError(w, r, log.OpRegenerate, err)
		return
	}
	s.session.Service().CancelRegenerate(year, month)
	w.WriteHeader(http.StatusNoContent)
}

// handlePendingText serves the plain-text pending list of a month.
func (s *Server) handlePendingText(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParam(r)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	var text string
	err = s.session.Do(r.Context(), func(l *core.Ledger) error {
		text = export.Text(l, year, month)
		return nil
	})
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", export.FileName(year, month)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if s.opts.Sheets == nil {
		s.writeError(w, r, log.OpExport, errSheetsDisabled)
		return
	}
	s.monthAction(w, r, log.OpExport, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger, year, month int) (any, error) {
		ref, err := svc.PublishPending(ctx, s.opts.Sheets, l, year, month)
		if err != nil {
			return nil, err
		}
		return map[string]string{"published": ref}, nil
	})
}
