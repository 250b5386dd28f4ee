package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"pagos/internal/core"
	"pagos/internal/log"
)

// FileStore keeps the ledger in one JSON file.
type FileStore struct {
	path  string
	codec Codec
}

func NewFileStore(path string, codec Codec) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("ledger path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	return &FileStore{path: path, codec: codec}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) LoadRaw(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ledger %s: %w", s.path, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return data, nil
}

func (s *FileStore) Load(ctx context.Context) (*core.Ledger, error) {
	data, err := s.LoadRaw(ctx)
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(data)
}

// Save writes to a temporary file in the same directory and renames it over
// the ledger, so readers never observe a partial document.
func (s *FileStore) Save(ctx context.Context, l *core.Ledger) error {
	data, err := s.codec.Encode(l)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}

	slog.DebugContext(ctx, "Ledger saved to file",
		log.FieldComponent, log.ComponentStorage,
		"path", s.path,
		"bytes", len(data),
		"months", len(l.Months))
	return nil
}
