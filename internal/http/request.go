package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"pagos/internal/core"
	"pagos/internal/services"
)

// decodeJSON reads a single JSON object from the body. Unknown fields are
// rejected so typos do not silently drop changes.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// monthParam parses the {key} path segment.
func monthParam(r *http.Request) (year, month int, err error) {
	return core.ParseMonthKey(chi.URLParam(r, "key"))
}

func intParam(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return v, nil
}

// amountInput accepts amounts as JSON numbers or strings, with either a dot
// or a comma as decimal separator.
type amountInput struct {
	raw string
}

func (a *amountInput) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &a.raw)
	}
	a.raw = strings.TrimSpace(string(b))
	return nil
}

func (a amountInput) amount() (decimal.Decimal, error) {
	return core.ParseAmount(a.raw)
}

func (a amountInput) balance() (decimal.Decimal, error) {
	return core.ParseBalance(a.raw)
}

type adhocRequest struct {
	Name      string      `json:"name"`
	Amount    amountInput `json:"amount"`
	Day       int         `json:"day"`
	AccountID int         `json:"account_id"`
	Category  string      `json:"category"`
	Notes     string      `json:"notes"`
}

type editRequest struct {
	Name      *string      `json:"name"`
	Amount    *amountInput `json:"amount"`
	AccountID *int         `json:"account_id"`
	Category  *string      `json:"category"`
	Notes     *string      `json:"notes"`
	Day       *int         `json:"day"`
}

type paidRequest struct {
	Paid       bool  `json:"paid"`
	AutoDeduct *bool `json:"auto_deduct"`
}

type bulkPaidRequest struct {
	Paid       map[int]bool `json:"paid"`
	AutoDeduct *bool        `json:"auto_deduct"`
}

type idsRequest struct {
	IDs []int `json:"ids"`
}

type balancesRequest struct {
	Balances map[int]amountInput `json:"balances"`
}

type templateItemRequest struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Amount      amountInput `json:"amount"`
	Day         int         `json:"day"`
	AccountID   int         `json:"account_id"`
	Category    string      `json:"category"`
	Kind        string      `json:"kind"`
	AnnualMonth int         `json:"annual_month"`
}

type templateRequest struct {
	Items []templateItemRequest `json:"items"`
}

type nameRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (e editRequest) toEdit() (edit services.ChargeEdit, err error) {
	edit.Name, edit.AccountID, edit.Category, edit.Notes, edit.Day = e.Name, e.AccountID, e.Category, e.Notes, e.Day
	if e.Amount != nil {
		a, err := e.Amount.amount()
		if err != nil {
			return edit, err
		}
		edit.Amount = &a
	}
	return edit, nil
}

// toItem converts the request; an empty kind means a fixed charge.
func (t templateItemRequest) toItem() (core.TemplateItem, error) {
	amount, err := t.Amount.amount()
	if err != nil {
		return core.TemplateItem{}, &core.TemplateItemError{ID: t.ID, Name: t.Name, Reason: err}
	}
	kind := core.KindFixed
	if strings.TrimSpace(t.Kind) != "" {
		if kind, err = core.ParseChargeKind(t.Kind); err != nil {
			return core.TemplateItem{}, &core.TemplateItemError{ID: t.ID, Name: t.Name, Reason: err}
		}
	}
	return core.TemplateItem{
		ID:          t.ID,
		Name:        t.Name,
		Amount:      amount,
		Day:         t.Day,
		AccountID:   t.AccountID,
		Category:    t.Category,
		Kind:        kind,
		AnnualMonth: t.AnnualMonth,
	}, nil
}

func (b balancesRequest) toMap() (map[int]decimal.Decimal, error) {
	if len(b.Balances) == 0 {
		return nil, fmt.Errorf("%w: no balances given", errBadRequest)
	}
	out := make(map[int]decimal.Decimal, len(b.Balances))
	var errs []error
	for id, raw := range b.Balances {
		v, err := raw.balance()
		if err != nil {
			errs = append(errs, fmt.Errorf("account %d: %w", id, err))
			continue
		}
		out[id] = v
	}
	return out, errors.Join(errs...)
}
