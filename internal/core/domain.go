package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CurrentSchemaVersion is the document version written by this program.
const CurrentSchemaVersion = 3

const (
	KindFixed      ChargeKind = "fixed"
	KindSubMonthly ChargeKind = "sub_monthly"
	KindSubAnnual  ChargeKind = "sub_annual"
	KindAdhoc      ChargeKind = "adhoc"
)

type (
	// ChargeKind is the closed set of charge variants.
	ChargeKind string

	Account struct {
		ID    int
		Name  string
		Color string
	}

	// TemplateItem is a recurring charge definition.
	TemplateItem struct {
		ID          int
		Name        string
		Amount      decimal.Decimal
		Day         int
		AccountID   int
		Category    string
		Kind        ChargeKind
		AnnualMonth int // 1-12, only for KindSubAnnual
	}

	// ChargeInstance is a concrete obligation inside one month.
	ChargeInstance struct {
		ID               int
		SourceTemplateID *int // nil for ad-hoc charges
		Name             string
		Amount           decimal.Decimal
		AccountID        int
		Category         string
		Due              Date
		Paid             bool
		PaidDate         *Date
		Kind             ChargeKind
		Notes            string
	}

	Month struct {
		Year  int
		Month int // 1-12
		Items []ChargeInstance
	}

	// Ledger is the root aggregate persisted as a single document.
	Ledger struct {
		SchemaVersion int
		Year          int
		ControlDay    int
		NextID        int
		Balances      map[int]decimal.Decimal
		Accounts      []Account
		Categories    []string
		Template      []TemplateItem
		Months        map[string]*Month
	}
)

var (
	ErrInvalidDay           = errors.New("invalid day")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidKind          = errors.New("invalid charge kind")
	ErrEmptyName            = errors.New("empty name")
	ErrUnknownAccount       = errors.New("unknown account")
	ErrInvalidTemplateItem  = errors.New("invalid template item")
	ErrMalformedDocument    = errors.New("malformed ledger document")
	ErrMissingKeys          = errors.New("missing required keys")
	ErrNotFound             = errors.New("not found")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Valid reports whether k is one of the known charge kinds.
func (k ChargeKind) Valid() bool {
	switch k {
	case KindFixed, KindSubMonthly, KindSubAnnual, KindAdhoc:
		return true
	default:
		return false
	}
}

func (k ChargeKind) String() string {
	return string(k)
}

// ParseChargeKind converts a persisted type tag into a ChargeKind.
func ParseChargeKind(s string) (ChargeKind, error) {
	k := ChargeKind(strings.TrimSpace(s))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// TemplateItemError explains why a template item was rejected.
type TemplateItemError struct {
	ID     int
	Name   string
	Reason error
}

func (e *TemplateItemError) Error() string {
	return fmt.Sprintf("template item %d (%q): %v", e.ID, e.Name, e.Reason)
}

func (e *TemplateItemError) Unwrap() []error {
	return []error{ErrInvalidTemplateItem, e.Reason}
}

// Validate checks a template item in isolation. Account existence is checked
// by Ledger.ValidateTemplateItem.
func (t TemplateItem) Validate() error {
	var reason error
	switch {
	case strings.TrimSpace(t.Name) == "":
		reason = ErrEmptyName
	case len(t.Name) > 200:
		reason = errors.New("name too long (max 200 characters)")
	case t.Amount.IsNegative():
		reason = ErrInvalidAmount
	case t.Day < 1 || t.Day > 31:
		reason = fmt.Errorf("%w: day %d must be between 1 and 31", ErrInvalidDay, t.Day)
	case !t.Kind.Valid():
		reason = fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	case t.Kind == KindSubAnnual && (t.AnnualMonth < 1 || t.AnnualMonth > 12):
		reason = fmt.Errorf("%w: annual subscription needs annual_month 1-12, got %d", ErrInvalidMonth, t.AnnualMonth)
	case t.Kind != KindSubAnnual && t.AnnualMonth != 0:
		reason = fmt.Errorf("%w: annual_month only applies to %s items", ErrInvalidMonth, KindSubAnnual)
	}
	if reason != nil {
		return &TemplateItemError{ID: t.ID, Name: t.Name, Reason: reason}
	}
	return nil
}

// IsAdhoc reports whether the charge was added directly to its month.
func (c ChargeInstance) IsAdhoc() bool {
	return c.SourceTemplateID == nil
}

// Key returns the "YYYY-MM" key of the month.
func (m *Month) Key() string {
	return MonthKey(m.Year, m.Month)
}

// Find returns the index of the charge with the given id, or -1.
func (m *Month) Find(id int) int {
	for i := range m.Items {
		if m.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// SortedByDue returns a copy of the items ordered by due date. Ties keep
// template order.
func (m *Month) SortedByDue() []ChargeInstance {
	out := append([]ChargeInstance(nil), m.Items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Due.Before(out[j].Due.Time)
	})
	return out
}

// MonthKey formats the month key used in the document.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParseMonthKey parses a "YYYY-MM" key.
func ParseMonthKey(key string) (int, int, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad month key %q", ErrInvalidMonth, key)
	}
	return t.Year(), int(t.Month()), nil
}

// Balance returns the stored balance for an account, zero when absent.
func (l *Ledger) Balance(accountID int) decimal.Decimal {
	if b, ok := l.Balances[accountID]; ok {
		return b
	}
	return decimal.Zero
}

// Account looks up an account by id.
func (l *Ledger) Account(id int) (Account, bool) {
	for _, a := range l.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// AccountName returns the account name, or the raw id when the account is
// unknown.
func (l *Ledger) AccountName(id int) string {
	if a, ok := l.Account(id); ok {
		return a.Name
	}
	return fmt.Sprintf("#%d", id)
}

// Month returns the month for key, or nil.
func (l *Ledger) Month(year, month int) *Month {
	if l.Months == nil {
		return nil
	}
	return l.Months[MonthKey(year, month)]
}

// AllocateID hands out the next identifier. Identifiers are never reused.
func (l *Ledger) AllocateID() int {
	id := l.NextID
	l.NextID++
	return id
}

// TemplateIndex returns the position of the template item with id, or -1.
func (l *Ledger) TemplateIndex(id int) int {
	for i := range l.Template {
		if l.Template[i].ID == id {
			return i
		}
	}
	return -1
}

// HasCategory reports whether name is a known category.
func (l *Ledger) HasCategory(name string) bool {
	for _, c := range l.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// ValidateTemplateItem validates t against this ledger's accounts.
func (l *Ledger) ValidateTemplateItem(t TemplateItem) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, ok := l.Account(t.AccountID); !ok {
		return &TemplateItemError{ID: t.ID, Name: t.Name, Reason: fmt.Errorf("%w: %d", ErrUnknownAccount, t.AccountID)}
	}
	return nil
}

// Validate checks the structural invariants of a loaded document.
func (l *Ledger) Validate() error {
	var problems []string

	if l.Year < 1 {
		problems = append(problems, fmt.Sprintf("invalid year %d", l.Year))
	}
	if l.ControlDay < 1 || l.ControlDay > 31 {
		problems = append(problems, fmt.Sprintf("invalid control_day %d", l.ControlDay))
	}

	seenAcc := map[int]bool{}
	for _, a := range l.Accounts {
		if seenAcc[a.ID] {
			problems = append(problems, fmt.Sprintf("duplicate account id %d", a.ID))
		}
		seenAcc[a.ID] = true
	}

	maxID := 0
	seenTpl := map[int]bool{}
	for _, t := range l.Template {
		if err := t.Validate(); err != nil {
			problems = append(problems, err.Error())
		}
		if seenTpl[t.ID] {
			problems = append(problems, fmt.Sprintf("duplicate template id %d", t.ID))
		}
		seenTpl[t.ID] = true
		maxID = max(maxID, t.ID)
	}

	for key, m := range l.Months {
		if m == nil {
			problems = append(problems, fmt.Sprintf("month %s is empty", key))
			continue
		}
		if key != m.Key() {
			problems = append(problems, fmt.Sprintf("month %s holds data for %s", key, m.Key()))
		}
		seen := map[int]bool{}
		for _, it := range m.Items {
			if seen[it.ID] {
				problems = append(problems, fmt.Sprintf("month %s: duplicate charge id %d", key, it.ID))
			}
			seen[it.ID] = true
			if !it.Kind.Valid() {
				problems = append(problems, fmt.Sprintf("month %s: charge %d has invalid kind %q", key, it.ID, it.Kind))
			}
			if it.Due.Year() != m.Year || it.Due.Month() != m.Month {
				problems = append(problems, fmt.Sprintf("month %s: charge %d due %s outside month", key, it.ID, it.Due))
			}
			if it.IsAdhoc() {
				maxID = max(maxID, it.ID)
			}
		}
	}

	if l.NextID <= maxID {
		problems = append(problems, fmt.Sprintf("next_id %d not above highest id %d", l.NextID, maxID))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n- %s", ErrMalformedDocument, strings.Join(problems, "\n- "))
	}
	return nil
}
