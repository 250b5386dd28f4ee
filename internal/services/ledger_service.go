package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pagos/internal/audit"
	"pagos/internal/core"
	"pagos/internal/log"
	"pagos/internal/seed"
	"pagos/internal/storage"
)

// DefaultConfirmationTTL is how long an armed regeneration waits for its
// confirming call.
const DefaultConfirmationTTL = 2 * time.Minute

// LedgerService runs every ledger operation as load, mutate, save. The
// ledger is always passed in by the caller; the service holds no document.
type LedgerService struct {
	store      storage.Store
	codec      storage.Codec
	seed       *seed.Seed
	recorder   audit.Recorder
	now        func() time.Time
	confirmTTL time.Duration
	// reinitialize instead of failing when the stored document is malformed
	fallbackOnCorrupt bool

	mu    sync.Mutex
	armed map[string]time.Time
}

type Option func(*LedgerService)

func WithRecorder(r audit.Recorder) Option {
	return func(s *LedgerService) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithConfirmationTTL(d time.Duration) Option {
	return func(s *LedgerService) {
		if d > 0 {
			s.confirmTTL = d
		}
	}
}

// WithFallbackOnCorrupt makes LoadOrInitialize replace a malformed document
// with a fresh ledger.
func WithFallbackOnCorrupt(enabled bool) Option {
	return func(s *LedgerService) {
		s.fallbackOnCorrupt = enabled
	}
}

func NewLedgerService(store storage.Store, codec storage.Codec, sd *seed.Seed, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:      store,
		codec:      codec,
		seed:       sd,
		recorder:   audit.Nop{},
		now:        time.Now,
		confirmTTL: DefaultConfirmationTTL,
		armed:      make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AdhocInput describes a one-off charge.
type AdhocInput struct {
	Name      string
	Amount    decimal.Decimal
	Day       int
	AccountID int
	Category  string
	Notes     string
}

// LoadOrInitialize returns the stored ledger, creating and persisting a fresh
// one from the seed when none exists. A malformed document is returned as an
// error wrapping core.ErrMalformedDocument unless the service was built with
// WithFallbackOnCorrupt.
func (s *LedgerService) LoadOrInitialize(ctx context.Context) (*core.Ledger, error) {
	l, err := s.store.Load(ctx)
	switch {
	case err == nil:
		return l, nil
	case errors.Is(err, core.ErrNotFound):
		return s.Reinitialize(ctx)
	case errors.Is(err, core.ErrMalformedDocument) && s.fallbackOnCorrupt:
		slog.WarnContext(ctx, "Stored ledger is malformed, reinitializing", "error", err)
		return s.Reinitialize(ctx)
	default:
		return nil, fmt.Errorf("load ledger: %w", err)
	}
}

// Reinitialize replaces whatever is stored with a fresh ledger.
func (s *LedgerService) Reinitialize(ctx context.Context) (*core.Ledger, error) {
	if s.seed == nil {
		return nil, errors.New("no seed configured")
	}
	l := s.seed.NewLedger()
	if err := s.Save(ctx, l); err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionInit, "", "Initialized %d with %d template items", l.Year, len(l.Template))
	slog.InfoContext(ctx, "Ledger initialized",
		"year", l.Year,
		"accounts", len(l.Accounts),
		"template_items", len(l.Template))
	return l, nil
}

// Save replaces the persisted document with l.
func (s *LedgerService) Save(ctx context.Context, l *core.Ledger) error {
	if err := s.store.Save(ctx, l); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// EnsureMonth creates the month from the template if it does not exist yet.
// An existing month is returned untouched.
func (s *LedgerService) EnsureMonth(ctx context.Context, l *core.Ledger, year, month int) (*core.Month, error) {
	if m := l.Month(year, month); m != nil {
		return m, nil
	}
	m, err := s.buildMonth(l, year, month)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, l); err != nil {
		delete(l.Months, m.Key())
		return nil, err
	}
	s.record(ctx, audit.ActionNewMonth, m.Key(), "Created %s with %d charges", m.Key(), len(m.Items))
	slog.InfoContext(ctx, "Month created",
		log.FieldComponent, log.ComponentLedger,
		log.FieldMonth, m.Key(),
		"charges", len(m.Items))
	return m, nil
}

func (s *LedgerService) buildMonth(l *core.Ledger, year, month int) (*core.Month, error) {
	items, err := Expand(l.Template, year, month)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", core.MonthKey(year, month), err)
	}
	m := &core.Month{Year: year, Month: month, Items: items}
	if l.Months == nil {
		l.Months = make(map[string]*core.Month)
	}
	l.Months[m.Key()] = m
	return m, nil
}

// AddAdhocItem appends a one-off charge to the month, creating the month
// first when needed.
func (s *LedgerService) AddAdhocItem(ctx context.Context, l *core.Ledger, year, month int, in AdhocInput) (core.ChargeInstance, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return core.ChargeInstance{}, core.ErrEmptyName
	}
	if in.Amount.IsNegative() {
		return core.ChargeInstance{}, fmt.Errorf("%w: %s", core.ErrInvalidAmount, in.Amount)
	}
	if _, ok := l.Account(in.AccountID); !ok {
		return core.ChargeInstance{}, fmt.Errorf("%w: %d", core.ErrUnknownAccount, in.AccountID)
	}

	m, err := s.EnsureMonth(ctx, l, year, month)
	if err != nil {
		return core.ChargeInstance{}, err
	}

	item := core.ChargeInstance{
		ID:        l.AllocateID(),
		Name:      name,
		Amount:    core.RoundAmount(in.Amount),
		AccountID: in.AccountID,
		Category:  strings.TrimSpace(in.Category),
		Due:       core.ClampDate(year, month, in.Day),
		Kind:      core.KindAdhoc,
		Notes:     strings.TrimSpace(in.Notes),
	}
	prevItems := m.Items
	m.Items = append(m.Items[:len(m.Items):len(m.Items)], item)
	if err := s.Save(ctx, l); err != nil {
		m.Items = prevItems
		l.NextID = item.ID
		return core.ChargeInstance{}, err
	}

	s.record(ctx, audit.ActionAdhocAdd, m.Key(), "%s: %s %s (%s)", m.Key(), item.Name, item.Amount.StringFixed(2), l.AccountName(item.AccountID))
	slog.InfoContext(ctx, "Ad-hoc charge added",
		log.FieldComponent, log.ComponentLedger,
		log.FieldMonth, m.Key(),
		log.FieldChargeID, item.ID,
		log.FieldAccountID, item.AccountID,
		log.FieldAmount, item.Amount.String())
	return item, nil
}

// DeleteItem removes a charge from the month. Unknown months or ids are a
// no-op and report false.
func (s *LedgerService) DeleteItem(ctx context.Context, l *core.Ledger, year, month, id int) (bool, error) {
	m := l.Month(year, month)
	if m == nil {
		return false, nil
	}
	i := m.Find(id)
	if i < 0 {
		return false, nil
	}
	prev := m.Items
	removed := m.Items[i]
	m.Items = append(m.Items[:i:i], m.Items[i+1:]...)
	if err := s.Save(ctx, l); err != nil {
		m.Items = prev
		return false, err
	}
	s.record(ctx, audit.ActionDelete, m.Key(), "%s: deleted %q", m.Key(), removed.Name)
	slog.InfoContext(ctx, "Charge deleted",
		log.FieldComponent, log.ComponentLedger,
		log.FieldMonth, m.Key(),
		log.FieldChargeID, removed.ID,
		log.FieldAccountID, removed.AccountID,
		log.FieldAmount, removed.Amount.String())
	return true, nil
}

// DeletePaidAdhoc removes the listed charges that are both ad-hoc and paid.
// Other ids are skipped.
func (s *LedgerService) DeletePaidAdhoc(ctx context.Context, l *core.Ledger, year, month int, ids []int) (int, error) {
	m := l.Month(year, month)
	if m == nil || len(ids) == 0 {
		return 0, nil
	}
	target := make(map[int]bool, len(ids))
	for _, id := range ids {
		target[id] = true
	}
	kept := m.Items[:0:0]
	removed := 0
	for _, it := range m.Items {
		if target[it.ID] && it.IsAdhoc() && it.Paid {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	if removed == 0 {
		return 0, nil
	}
	m.Items = kept
	if err := s.Save(ctx, l); err != nil {
		return 0, err
	}
	s.record(ctx, audit.ActionDelete, m.Key(), "%s: deleted %d paid ad-hoc charges", m.Key(), removed)
	return removed, nil
}

// RegenerateMonth discards the month and rebuilds it from the current
// template, losing ad-hoc charges and paid flags. The first call only arms the
// operation and returns core.ErrConfirmationRequired; a second call for the
// same month within the confirmation window executes it.
func (s *LedgerService) RegenerateMonth(ctx context.Context, l *core.Ledger, year, month int) (*core.Month, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}
	key := core.MonthKey(year, month)
	if !s.consumeConfirmation(key) {
		return nil, fmt.Errorf("regenerate %s: %w", key, core.ErrConfirmationRequired)
	}

	previous := l.Months[key]
	delete(l.Months, key)
	restore := func() {
		if previous != nil {
			l.Months[key] = previous
		} else {
			delete(l.Months, key)
		}
	}
	m, err := s.buildMonth(l, year, month)
	if err != nil {
		restore()
		return nil, err
	}
	if err := s.Save(ctx, l); err != nil {
		restore()
		return nil, err
	}

	lost := 0
	if previous != nil {
		lost = len(previous.Items)
	}
	s.record(ctx, audit.ActionRegenerate, key, "Regenerated %s: %d charges replaced by %d", key, lost, len(m.Items))
	slog.InfoContext(ctx, "Month regenerated",
		log.FieldComponent, log.ComponentLedger,
		log.FieldMonth, key,
		"discarded", lost,
		"charges", len(m.Items))
	return m, nil
}

// CancelRegenerate disarms a pending regeneration.
func (s *LedgerService) CancelRegenerate(year, month int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.armed, core.MonthKey(year, month))
}

// RegeneratePending reports whether a regeneration is armed for the month.
func (s *LedgerService) RegeneratePending(year, month int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.armed[core.MonthKey(year, month)]
	return ok && s.now().Sub(at) <= s.confirmTTL
}

// consumeConfirmation arms key on the first call and reports true, clearing
// the flag, on a confirming call within the window.
func (s *LedgerService) consumeConfirmation(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if at, ok := s.armed[key]; ok && now.Sub(at) <= s.confirmTTL {
		delete(s.armed, key)
		return true
	}
	s.armed[key] = now
	return false
}

// EditCharge updates the given fields of a charge. Changing the amount of a
// paid charge does not touch balances. Unknown ids report false.
func (s *LedgerService) EditCharge(ctx context.Context, l *core.Ledger, year, month, id int, edit ChargeEdit) (bool, error) {
	m := l.Month(year, month)
	if m == nil {
		return false, nil
	}
	i := m.Find(id)
	if i < 0 {
		return false, nil
	}
	it := m.Items[i]
	if err := edit.apply(l, &it); err != nil {
		return false, err
	}
	prev := m.Items[i]
	m.Items[i] = it
	if err := s.Save(ctx, l); err != nil {
		m.Items[i] = prev
		return false, err
	}
	s.record(ctx, audit.ActionEdit, m.Key(), "%s: edited %q", m.Key(), it.Name)
	slog.InfoContext(ctx, "Charge edited",
		log.FieldComponent, log.ComponentLedger,
		log.FieldMonth, m.Key(),
		log.FieldChargeID, it.ID,
		log.FieldAccountID, it.AccountID,
		log.FieldAmount, it.Amount.String())
	return true, nil
}

// ChargeEdit carries optional field changes; nil fields are left alone.
type ChargeEdit struct {
	Name      *string
	Amount    *decimal.Decimal
	AccountID *int
	Category  *string
	Notes     *string
	Day       *int
}

func (e ChargeEdit) apply(l *core.Ledger, it *core.ChargeInstance) error {
	if e.Name != nil {
		name := strings.TrimSpace(*e.Name)
		if name == "" {
			return core.ErrEmptyName
		}
		it.Name = name
	}
	if e.Amount != nil {
		if e.Amount.IsNegative() {
			return fmt.Errorf("%w: %s", core.ErrInvalidAmount, e.Amount)
		}
		it.Amount = core.RoundAmount(*e.Amount)
	}
	if e.AccountID != nil {
		if _, ok := l.Account(*e.AccountID); !ok {
			return fmt.Errorf("%w: %d", core.ErrUnknownAccount, *e.AccountID)
		}
		it.AccountID = *e.AccountID
	}
	if e.Category != nil {
		it.Category = strings.TrimSpace(*e.Category)
	}
	if e.Notes != nil {
		it.Notes = strings.TrimSpace(*e.Notes)
	}
	if e.Day != nil {
		it.Due = core.ClampDate(it.Due.Year(), it.Due.Month(), *e.Day)
	}
	return nil
}

// Import validates a full backup document and replaces the stored ledger
// with it. A rejected document leaves the stored ledger untouched.
func (s *LedgerService) Import(ctx context.Context, data []byte) (*core.Ledger, error) {
	l, err := s.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	if err := s.Save(ctx, l); err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionImport, "", "Imported ledger %d with %d months", l.Year, len(l.Months))
	return l, nil
}

// Backup encodes the ledger as a full document.
func (s *LedgerService) Backup(l *core.Ledger) ([]byte, error) {
	return s.codec.Encode(l)
}

// Record writes an audit entry on behalf of collaborators such as exporters.
func (s *LedgerService) Record(ctx context.Context, action audit.Action, month, detail string) {
	s.record(ctx, action, month, "%s", detail)
}

func (s *LedgerService) record(ctx context.Context, action audit.Action, month, format string, args ...any) {
	e := audit.Entry{
		Time:   s.now(),
		Action: action,
		Detail: fmt.Sprintf(format, args...),
		Month:  month,
	}
	if err := s.recorder.Record(ctx, e); err != nil {
		slog.WarnContext(ctx, "Failed to record audit entry",
			"action", string(action),
			"error", err)
	}
}
