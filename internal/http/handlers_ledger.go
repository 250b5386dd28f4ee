package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pagos/internal/core"
	"pagos/internal/log"
	"pagos/internal/services"
)

// ledgerAction runs fn inside the session and writes its result as JSON.
func (s *Server) ledgerAction(w http.ResponseWriter, r *http.Request, op string, status int, fn func(ctx context.Context, svc *services.LedgerService, l *core.Ledger) (any, error)) {
	var out any
	err := s.session.Do(r.Context(), func(l *core.Ledger) error {
		var err error
		out, err = fn(r.Context(), s.session.Service(), l)
		return err
	})
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	writeJSON(w, status, out)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	s.ledgerAction(w, r, log.OpLedger, http.StatusOK, func(_ context.Context, _ *services.LedgerService, l *core.Ledger) (any, error) {
		return newLedgerView(l), nil
	})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	s.ledgerAction(w, r, log.OpBalances, http.StatusOK, func(_ context.Context, _ *services.LedgerService, l *core.Ledger) (any, error) {
		return newBalancesView(l), nil
	})
}

func (s *Server) handleUpdateBalances(w http.ResponseWriter, r *http.Request) {
	var req balancesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpBalances, err)
		return
	}
	balances, err := req.toMap()
	if err != nil {
		s.writeError(w, r, log.OpBalances, err)
		return
	}
	s.ledgerAction(w, r, log.OpBalances, http.StatusOK, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger) (any, error) {
		if err := svc.UpdateBalances(ctx, l, balances); err != nil {
			return nil, err
		}
		return newBalancesView(l), nil
	})
}

func (s *Server) handleProration(w http.ResponseWriter, r *http.Request) {
	s.ledgerAction(w, r, log.OpTemplate, http.StatusOK, func(_ context.Context, _ *services.LedgerService, l *core.Ledger) (any, error) {
		return newProrationView(l), nil
	})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	s.ledgerAction(w, r, log.OpTemplate, http.StatusOK, func(_ context.Context, _ *services.LedgerService, l *core.Ledger) (any, error) {
		return newTemplateView(l.Template), nil
	})
}

// handleReplaceTemplate swaps the whole template. Every invalid item is
// reported in one response.
func (s *Server) handleReplaceTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpTemplate, err)
		return
	}
	items := make([]core.TemplateItem, 0, len(req.Items))
	var errs []error
	for _, in := range req.Items {
		it, err := in.toItem()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, it)
	}
	if err := errors.Join(errs...); err != nil {
		s.writeError(w, r, log.OpTemplate, err)
		return
	}
	s.ledgerAction(w, r, log.OpTemplate, http.StatusOK, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger) (any, error) {
		if err := svc.ReplaceTemplate(ctx, l, items); err != nil {
			return nil, err
		}
		return newTemplateView(l.Template), nil
	})
}

func (s *Server) handleAddTemplateItem(w http.ResponseWriter, r *http.Request) {
	var req templateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpTemplate, err)
		return
	}
	item, err := req.toItem()
	if err != nil {
		s.writeError(w, r, log.OpTemplate, err)
		return
	}
	s.ledgerAction(w, r, log.OpTemplate, http.StatusCreated, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger) (any, error) {
		added, err := svc.AddTemplateItem(ctx, l, item)
		if err != nil {
			return nil, err
		}
		return newTemplateItemView(added), nil
	})
}

func (s *Server) handleUpdateTemplateItem(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpTemplate, err)
		return
	}
	var req templateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpTemplate, err)
		return
	}
	req.ID = id
	item, err := req.toItem()
	if err != nil {
		s.writeError(w, r, log.OpTemplate, err)
		return
	}
	s.ledgerAction(w, r, log.OpTemplate, http.StatusOK, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger) (any, error) {
		if err := svc.UpdateTemplateItem(ctx, l, item); err != nil {
			return nil, err
		}
		return newTemplateItemView(l.Template[l.TemplateIndex(id)]), nil
	})
}

func (s *Server) handleDeleteTemplateItem(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpTemplate, err)
		return
	}
	s.ledgerAction(w, r, log.OpTemplate, http.StatusOK, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger) (any, error) {
		ok, err := svc.DeleteTemplateItem(ctx, l, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("template item %d: %w", id, core.ErrNotFound)
		}
		return map[string]int{"deleted": id}, nil
	})
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpTemplate, err)
		return
	}
	s.ledgerAction(w, r, log.OpTemplate, http.StatusOK, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger) (any, error) {
		added, err := svc.AddCategory(ctx, l, req.Name)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"added": added}, nil
	})
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.ledgerAction(w, r, log.OpTemplate, http.StatusOK, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger) (any, error) {
		removed, err := svc.RemoveCategory(ctx, l, name)
		if err != nil {
			return nil, err
		}
		if !removed {
			return nil, fmt.Errorf("category %q: %w", name, core.ErrNotFound)
		}
		return map[string]string{"removed": name}, nil
	})
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpBalances, err)
		return
	}
	s.ledgerAction(w, r, log.OpBalances, http.StatusCreated, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger) (any, error) {
		a, err := svc.AddAccount(ctx, l, req.Name, req.Color)
		if err != nil {
			return nil, err
		}
		return newAccountView(a), nil
	})
}

func (s *Server) handleRenameAccount(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpBalances, err)
		return
	}
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpBalances, err)
		return
	}
	s.ledgerAction(w, r, log.OpBalances, http.StatusOK, func(ctx context.Context, svc *services.LedgerService, l *core.Ledger) (any, error) {
		if err := svc.RenameAccount(ctx, l, id, req.Name, req.Color); err != nil {
			return nil, err
		}
		a, _ := l.Account(id)
		return newAccountView(a), nil
	})
}

// handleBackup downloads the full ledger document.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	var data []byte
	var year int
	err := s.session.Do(r.Context(), func(l *core.Ledger) error {
		var err error
		data, err = s.session.Service().Backup(l)
		year = l.Year
		return err
	})
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("pagos_%d.json", year)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImport replaces the stored ledger with the uploaded document. It
// does not load the current ledger first, so it also recovers a store whose
// document no longer decodes.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, log.OpImport, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	var l *core.Ledger
	err = s.session.Exclusive(func(svc *services.LedgerService) error {
		var err error
		l, err = svc.Import(r.Context(), data)
		return err
	})
	switch {
	case errors.Is(err, core.ErrMalformedDocument), errors.Is(err, core.ErrMissingKeys):
		s.writeErrorStatus(w, r, log.OpImport, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		s.writeError(w, r, log.OpImport, err)
		return
	}
	writeJSON(w, http.StatusOK, newLedgerView(l))
}
