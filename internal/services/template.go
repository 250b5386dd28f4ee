package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"pagos/internal/audit"
	"pagos/internal/core"
)

// Template edits never touch months that already exist.

// AddTemplateItem validates the item, gives it a fresh id and appends it.
// Unknown categories are registered.
func (s *LedgerService) AddTemplateItem(ctx context.Context, l *core.Ledger, item core.TemplateItem) (core.TemplateItem, error) {
	item = normalizeTemplateItem(item)
	if err := l.ValidateTemplateItem(item); err != nil {
		return core.TemplateItem{}, err
	}

	prevNext, prevCats := l.NextID, l.Categories
	item.ID = l.AllocateID()
	l.Template = append(l.Template, item)
	registerCategory(l, item.Category)

	if err := s.Save(ctx, l); err != nil {
		l.Template = l.Template[:len(l.Template)-1]
		l.NextID, l.Categories = prevNext, prevCats
		return core.TemplateItem{}, err
	}
	s.record(ctx, audit.ActionTemplate, "", "Added template item %d %q", item.ID, item.Name)
	return item, nil
}

// UpdateTemplateItem replaces the template item with the same id.
func (s *LedgerService) UpdateTemplateItem(ctx context.Context, l *core.Ledger, item core.TemplateItem) error {
	i := l.TemplateIndex(item.ID)
	if i < 0 {
		return fmt.Errorf("template item %d: %w", item.ID, core.ErrNotFound)
	}
	item = normalizeTemplateItem(item)
	if err := l.ValidateTemplateItem(item); err != nil {
		return err
	}

	prev, prevCats := l.Template[i], l.Categories
	l.Template[i] = item
	registerCategory(l, item.Category)
	if err := s.Save(ctx, l); err != nil {
		l.Template[i], l.Categories = prev, prevCats
		return err
	}
	s.record(ctx, audit.ActionTemplate, "", "Updated template item %d %q", item.ID, item.Name)
	return nil
}

// DeleteTemplateItem removes a template item. Unknown ids report false.
func (s *LedgerService) DeleteTemplateItem(ctx context.Context, l *core.Ledger, id int) (bool, error) {
	i := l.TemplateIndex(id)
	if i < 0 {
		return false, nil
	}
	prev := l.Template
	removed := l.Template[i]
	l.Template = slices.Delete(slices.Clone(l.Template), i, i+1)
	if err := s.Save(ctx, l); err != nil {
		l.Template = prev
		return false, err
	}
	s.record(ctx, audit.ActionTemplate, "", "Deleted template item %d %q", removed.ID, removed.Name)
	return true, nil
}

// ReplaceTemplate swaps the whole template. Items with id 0 get fresh ids;
// any other id must name an item of the current template.
// Every invalid item is reported and nothing changes unless all are valid.
func (s *LedgerService) ReplaceTemplate(ctx context.Context, l *core.Ledger, items []core.TemplateItem) error {
	var errs []error
	seen := make(map[int]bool, len(items))
	for i := range items {
		items[i] = normalizeTemplateItem(items[i])
		if err := l.ValidateTemplateItem(items[i]); err != nil {
			errs = append(errs, err)
		}
		if id := items[i].ID; id != 0 {
			if seen[id] {
				errs = append(errs, &core.TemplateItemError{ID: id, Name: items[i].Name, Reason: errors.New("duplicate id")})
			}
			if l.TemplateIndex(id) < 0 {
				errs = append(errs, &core.TemplateItemError{ID: id, Name: items[i].Name, Reason: errors.New("id is not in the current template")})
			}
			seen[id] = true
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	prev, prevNext, prevCats := l.Template, l.NextID, l.Categories
	next := make([]core.TemplateItem, len(items))
	for i, it := range items {
		if it.ID == 0 {
			it.ID = l.AllocateID()
		}
		next[i] = it
		registerCategory(l, it.Category)
	}
	l.Template = next
	if err := s.Save(ctx, l); err != nil {
		l.Template, l.NextID, l.Categories = prev, prevNext, prevCats
		return err
	}
	s.record(ctx, audit.ActionTemplate, "", "Template replaced with %d items", len(next))
	return nil
}

// AddCategory registers a category name. Existing names are a no-op.
func (s *LedgerService) AddCategory(ctx context.Context, l *core.Ledger, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, core.ErrEmptyName
	}
	if l.HasCategory(name) {
		return false, nil
	}
	prev := l.Categories
	registerCategory(l, name)
	if err := s.Save(ctx, l); err != nil {
		l.Categories = prev
		return false, err
	}
	s.record(ctx, audit.ActionCategory, "", "Added category %q", name)
	return true, nil
}

// RemoveCategory drops a category name. Charges and template items keep the
// text they already carry.
func (s *LedgerService) RemoveCategory(ctx context.Context, l *core.Ledger, name string) (bool, error) {
	i := slices.Index(l.Categories, strings.TrimSpace(name))
	if i < 0 {
		return false, nil
	}
	prev := l.Categories
	l.Categories = slices.Delete(slices.Clone(l.Categories), i, i+1)
	if err := s.Save(ctx, l); err != nil {
		l.Categories = prev
		return false, err
	}
	s.record(ctx, audit.ActionCategory, "", "Removed category %q", name)
	return true, nil
}

// AddAccount creates an account with a zero balance.
func (s *LedgerService) AddAccount(ctx context.Context, l *core.Ledger, name, color string) (core.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Account{}, core.ErrEmptyName
	}
	id := 1
	for _, a := range l.Accounts {
		id = max(id, a.ID+1)
	}
	a := core.Account{ID: id, Name: name, Color: strings.TrimSpace(color)}

	prev := l.Accounts
	l.Accounts = append(slices.Clone(l.Accounts), a)
	if l.Balances == nil {
		l.Balances = make(map[int]decimal.Decimal)
	}
	_, hadBalance := l.Balances[id]
	if !hadBalance {
		l.Balances[id] = decimal.Zero
	}
	if err := s.Save(ctx, l); err != nil {
		l.Accounts = prev
		if !hadBalance {
			delete(l.Balances, id)
		}
		return core.Account{}, err
	}
	s.record(ctx, audit.ActionAccount, "", "Added account %d %q", a.ID, a.Name)
	return a, nil
}

// RenameAccount changes the name, and the color when one is given.
func (s *LedgerService) RenameAccount(ctx context.Context, l *core.Ledger, id int, name, color string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	i := slices.IndexFunc(l.Accounts, func(a core.Account) bool { return a.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %d", core.ErrUnknownAccount, id)
	}
	prev := l.Accounts[i]
	l.Accounts[i].Name = name
	if c := strings.TrimSpace(color); c != "" {
		l.Accounts[i].Color = c
	}
	if err := s.Save(ctx, l); err != nil {
		l.Accounts[i] = prev
		return err
	}
	s.record(ctx, audit.ActionAccount, "", "Renamed account %d to %q", id, name)
	return nil
}

func normalizeTemplateItem(t core.TemplateItem) core.TemplateItem {
	t.Name = strings.TrimSpace(t.Name)
	t.Category = strings.TrimSpace(t.Category)
	t.Amount = core.RoundAmount(t.Amount)
	return t
}

// registerCategory adds name to the category set without aliasing the
// previous slice.
func registerCategory(l *core.Ledger, name string) {
	if name == "" || l.HasCategory(name) {
		return
	}
	l.Categories = append(slices.Clone(l.Categories), name)
}
