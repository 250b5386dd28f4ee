package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"pagos/internal/core"
)

// requiredKeys must be present at the top level of any document we accept.
var requiredKeys = []string{"year", "balances", "template", "months"}

// number serializes a decimal as a bare JSON number.
type number struct {
	decimal.Decimal
}

func (n number) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

type (
	accountDoc struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color,omitempty"`
	}

	templateDoc struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		Amount      number `json:"amount"`
		Day         int    `json:"day"`
		AccountID   int    `json:"account_id"`
		Category    string `json:"category,omitempty"`
		Type        string `json:"type"`
		AnnualMonth int    `json:"annual_month,omitempty"`
	}

	itemDoc struct {
		ID        *int    `json:"id,omitempty"`
		TID       *int    `json:"tid"`
		Name      string  `json:"name"`
		Amount    number  `json:"amount"`
		AccountID int     `json:"account_id"`
		Category  string  `json:"category,omitempty"`
		Due       string  `json:"due"`
		Paid      bool    `json:"paid"`
		PaidDate  *string `json:"paid_date"`
		Type      string  `json:"type"`
		IsAdhoc   bool    `json:"is_adhoc"`
		Notes     string  `json:"notes,omitempty"`
	}

	monthDoc struct {
		Year  int       `json:"year"`
		Month int       `json:"month"`
		Items []itemDoc `json:"items"`
	}

	document struct {
		SchemaVersion int                  `json:"schema_version,omitempty"`
		Year          int                  `json:"year"`
		ControlDay    int                  `json:"control_day"`
		NextID        int                  `json:"next_id"`
		Balances      map[string]number    `json:"balances"`
		Accounts      []accountDoc         `json:"accounts,omitempty"`
		Categories    []string             `json:"categories"`
		Template      []templateDoc        `json:"template"`
		Months        map[string]*monthDoc `json:"months"`
	}
)

// Codec converts between the persisted JSON document and the ledger.
// Accounts is used for legacy documents that predate configurable accounts.
type Codec struct {
	Accounts []core.Account
}

// Encode renders the ledger as an indented JSON document at the current
// schema version.
func (c Codec) Encode(l *core.Ledger) ([]byte, error) {
	doc := toDocument(l)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return data, nil
}

// Decode parses, migrates and validates a document. Every failure wraps
// core.ErrMalformedDocument.
func (c Codec) Decode(data []byte) (*core.Ledger, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedDocument, err)
	}
	var missing []string
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %w: %v", core.ErrMalformedDocument, core.ErrMissingKeys, missing)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedDocument, err)
	}
	_, hasAccounts := keys["accounts"]
	doc.SchemaVersion = detectVersion(doc.SchemaVersion, hasAccounts)

	if err := c.migrate(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrMalformedDocument, err)
	}

	l, err := fromDocument(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrMalformedDocument, err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func toDocument(l *core.Ledger) *document {
	doc := &document{
		SchemaVersion: core.CurrentSchemaVersion,
		Year:          l.Year,
		ControlDay:    l.ControlDay,
		NextID:        l.NextID,
		Balances:      make(map[string]number, len(l.Balances)),
		Categories:    append([]string{}, l.Categories...),
		Template:      make([]templateDoc, 0, len(l.Template)),
		Months:        make(map[string]*monthDoc, len(l.Months)),
	}
	for id, b := range l.Balances {
		doc.Balances[strconv.Itoa(id)] = number{b}
	}
	for _, a := range l.Accounts {
		doc.Accounts = append(doc.Accounts, accountDoc{ID: a.ID, Name: a.Name, Color: a.Color})
	}
	for _, t := range l.Template {
		doc.Template = append(doc.Template, templateDoc{
			ID:          t.ID,
			Name:        t.Name,
			Amount:      number{t.Amount},
			Day:         t.Day,
			AccountID:   t.AccountID,
			Category:    t.Category,
			Type:        t.Kind.String(),
			AnnualMonth: t.AnnualMonth,
		})
	}
	for key, m := range l.Months {
		md := &monthDoc{Year: m.Year, Month: m.Month, Items: make([]itemDoc, 0, len(m.Items))}
		for _, it := range m.Items {
			id := it.ID
			d := itemDoc{
				ID:        &id,
				TID:       it.SourceTemplateID,
				Name:      it.Name,
				Amount:    number{it.Amount},
				AccountID: it.AccountID,
				Category:  it.Category,
				Due:       it.Due.String(),
				Paid:      it.Paid,
				Type:      it.Kind.String(),
				IsAdhoc:   it.IsAdhoc(),
				Notes:     it.Notes,
			}
			if it.PaidDate != nil {
				s := it.PaidDate.String()
				d.PaidDate = &s
			}
			md.Items = append(md.Items, d)
		}
		doc.Months[key] = md
	}
	return doc
}

func fromDocument(doc *document) (*core.Ledger, error) {
	l := &core.Ledger{
		SchemaVersion: doc.SchemaVersion,
		Year:          doc.Year,
		ControlDay:    doc.ControlDay,
		NextID:        doc.NextID,
		Balances:      make(map[int]decimal.Decimal, len(doc.Balances)),
		Categories:    append([]string{}, doc.Categories...),
		Months:        make(map[string]*core.Month, len(doc.Months)),
	}
	for key, b := range doc.Balances {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("balance key %q is not an account id", key)
		}
		l.Balances[id] = b.Decimal
	}
	for _, a := range doc.Accounts {
		l.Accounts = append(l.Accounts, core.Account{ID: a.ID, Name: a.Name, Color: a.Color})
		if _, ok := l.Balances[a.ID]; !ok {
			l.Balances[a.ID] = decimal.Zero
		}
	}
	for _, t := range doc.Template {
		kind, err := core.ParseChargeKind(t.Type)
		if err != nil {
			return nil, &core.TemplateItemError{ID: t.ID, Name: t.Name, Reason: err}
		}
		l.Template = append(l.Template, core.TemplateItem{
			ID:          t.ID,
			Name:        t.Name,
			Amount:      core.RoundAmount(t.Amount.Decimal),
			Day:         t.Day,
			AccountID:   t.AccountID,
			Category:    t.Category,
			Kind:        kind,
			AnnualMonth: t.AnnualMonth,
		})
	}
	for key, md := range doc.Months {
		if md == nil {
			return nil, fmt.Errorf("month %s is null", key)
		}
		m := &core.Month{Year: md.Year, Month: md.Month, Items: make([]core.ChargeInstance, 0, len(md.Items))}
		for i, d := range md.Items {
			it, err := fromItemDoc(d)
			if err != nil {
				return nil, fmt.Errorf("month %s item %d: %w", key, i, err)
			}
			m.Items = append(m.Items, it)
		}
		l.Months[key] = m
	}
	return l, nil
}

func fromItemDoc(d itemDoc) (core.ChargeInstance, error) {
	if d.ID == nil {
		return core.ChargeInstance{}, errors.New("missing id")
	}
	kind, err := core.ParseChargeKind(d.Type)
	if err != nil {
		return core.ChargeInstance{}, err
	}
	due, err := core.ParseDate(d.Due)
	if err != nil {
		return core.ChargeInstance{}, err
	}
	it := core.ChargeInstance{
		ID:        *d.ID,
		Name:      d.Name,
		Amount:    core.RoundAmount(d.Amount.Decimal),
		AccountID: d.AccountID,
		Category:  d.Category,
		Due:       due,
		Paid:      d.Paid,
		Kind:      kind,
		Notes:     d.Notes,
	}
	if !d.IsAdhoc && d.TID != nil {
		tid := *d.TID
		it.SourceTemplateID = &tid
	}
	if d.PaidDate != nil && *d.PaidDate != "" {
		pd, err := core.ParseDate(*d.PaidDate)
		if err != nil {
			return core.ChargeInstance{}, err
		}
		it.PaidDate = &pd
	}
	return it, nil
}

// sortedMonthKeys returns the month keys of doc in calendar order.
func sortedMonthKeys(doc *document) []string {
	keys := make([]string, 0, len(doc.Months))
	for k := range doc.Months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
