// Package seed builds fresh ledgers from a YAML description of the
// household: accounts, categories and the recurring template.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"

	"pagos/internal/core"
)

//go:embed default.yaml
var defaultYAML []byte

type (
	fileAccount struct {
		ID    int    `yaml:"id"`
		Name  string `yaml:"name"`
		Color string `yaml:"color,omitempty"`
	}

	fileTemplateItem struct {
		ID          int     `yaml:"id"`
		Name        string  `yaml:"name"`
		Amount      float64 `yaml:"amount"`
		Day         int     `yaml:"day"`
		AccountID   int     `yaml:"account_id"`
		Category    string  `yaml:"category,omitempty"`
		Type        string  `yaml:"type"`
		AnnualMonth int     `yaml:"annual_month,omitempty"`
	}

	file struct {
		Year       int                `yaml:"year"`
		ControlDay int                `yaml:"control_day"`
		NextID     int                `yaml:"next_id"`
		Accounts   []fileAccount      `yaml:"accounts"`
		Categories []string           `yaml:"categories"`
		Template   []fileTemplateItem `yaml:"template"`
	}
)

// Seed is the starting point of a fresh ledger.
type Seed struct {
	Year       int
	ControlDay int
	NextID     int
	Accounts   []core.Account
	Categories []string
	Template   []core.TemplateItem
}

// Default returns the embedded household seed.
func Default() (*Seed, error) {
	return Parse(defaultYAML)
}

// Load reads a seed from path, or the embedded default when path is empty.
func Load(path string) (*Seed, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a YAML seed.
func Parse(data []byte) (*Seed, error) {
	var f file
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	s := &Seed{
		Year:       f.Year,
		ControlDay: f.ControlDay,
		NextID:     f.NextID,
		Categories: f.Categories,
	}
	for _, a := range f.Accounts {
		s.Accounts = append(s.Accounts, core.Account{ID: a.ID, Name: a.Name, Color: a.Color})
	}
	for _, t := range f.Template {
		kind, err := core.ParseChargeKind(t.Type)
		if err != nil {
			return nil, &core.TemplateItemError{ID: t.ID, Name: t.Name, Reason: err}
		}
		s.Template = append(s.Template, core.TemplateItem{
			ID:          t.ID,
			Name:        t.Name,
			Amount:      core.RoundAmount(decimal.NewFromFloat(t.Amount)),
			Day:         t.Day,
			AccountID:   t.AccountID,
			Category:    t.Category,
			Kind:        kind,
			AnnualMonth: t.AnnualMonth,
		})
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the seed produces a consistent ledger.
func (s *Seed) Validate() error {
	if s.Year < 1 {
		return fmt.Errorf("invalid seed year %d", s.Year)
	}
	if s.ControlDay < 1 || s.ControlDay > 31 {
		return fmt.Errorf("invalid seed control_day %d", s.ControlDay)
	}
	if len(s.Accounts) == 0 {
		return fmt.Errorf("seed has no accounts")
	}
	l := s.NewLedger()
	for _, t := range s.Template {
		if err := l.ValidateTemplateItem(t); err != nil {
			return err
		}
		if t.ID >= s.NextID {
			return fmt.Errorf("seed next_id %d must exceed template id %d", s.NextID, t.ID)
		}
	}
	return nil
}

// NewLedger builds a fresh ledger: zero balances, seed template, no months.
func (s *Seed) NewLedger() *core.Ledger {
	l := &core.Ledger{
		SchemaVersion: core.CurrentSchemaVersion,
		Year:          s.Year,
		ControlDay:    s.ControlDay,
		NextID:        s.NextID,
		Balances:      make(map[int]decimal.Decimal, len(s.Accounts)),
		Accounts:      append([]core.Account(nil), s.Accounts...),
		Categories:    append([]string(nil), s.Categories...),
		Template:      append([]core.TemplateItem(nil), s.Template...),
		Months:        map[string]*core.Month{},
	}
	for _, a := range s.Accounts {
		l.Balances[a.ID] = decimal.Zero
	}
	return l
}
