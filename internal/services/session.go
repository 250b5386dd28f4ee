package services

import (
	"context"
	"sync"

	"pagos/internal/core"
)

// Session serializes actions within one process. Each action reloads the
// document, so changes saved by another process since the last action are
// picked up. Two processes saving at the same time still race and the last
// save wins.
type Session struct {
	mu     sync.Mutex
	ledger *LedgerService
}

func NewSession(ledger *LedgerService) *Session {
	return &Session{ledger: ledger}
}

// Service returns the ledger service behind the session.
func (s *Session) Service() *LedgerService {
	return s.ledger
}

// Do loads the ledger and runs fn while holding the session lock.
func (s *Session) Do(ctx context.Context, fn func(l *core.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.ledger.LoadOrInitialize(ctx)
	if err != nil {
		return err
	}
	return fn(l)
}

// Exclusive runs fn under the session lock without loading the ledger. It
// serves actions that replace the document wholesale, which must work even
// when the stored document no longer decodes.
func (s *Session) Exclusive(fn func(svc *LedgerService) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ledger)
}
