package memory

import (
	"context"
	"fmt"
	"sync"

	"pagos/internal/core"
	"pagos/internal/storage"
)

// Store keeps the encoded ledger in memory. Documents go through the codec on
// every call, so callers never share state with the store.
type Store struct {
	mu    sync.Mutex
	codec storage.Codec
	doc   []byte
	saves int
}

func New(codec storage.Codec) *Store {
	return &Store{codec: codec}
}

// NewWithDocument starts the store with an existing encoded document.
func NewWithDocument(codec storage.Codec, doc []byte) *Store {
	return &Store{codec: codec, doc: append([]byte(nil), doc...)}
}

func (s *Store) LoadRaw(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, fmt.Errorf("memory ledger: %w", core.ErrNotFound)
	}
	return append([]byte(nil), s.doc...), nil
}

func (s *Store) Load(ctx context.Context) (*core.Ledger, error) {
	data, err := s.LoadRaw(ctx)
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(data)
}

func (s *Store) Save(_ context.Context, l *core.Ledger) error {
	data, err := s.codec.Encode(l)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = data
	s.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
