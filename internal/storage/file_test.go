package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagos/internal/core"
)

func TestFileStoreLoadMissing(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "ledger.json"), Codec{})
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFileStoreSaveReplacesDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")
	s, err := NewFileStore(path, Codec{})
	require.NoError(t, err)
	ctx := context.Background()

	l := sampleLedger()
	require.NoError(t, s.Save(ctx, l))

	l.NextID = 400
	delete(l.Months, "2026-04")
	require.NoError(t, s.Save(ctx, l))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 400, got.NextID)
	assert.Empty(t, got.Months)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStoreMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	s, err := NewFileStore(path, Codec{})
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrMalformedDocument)

	raw, err := s.LoadRaw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not json", string(raw))
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	_, err := NewFileStore("", Codec{})
	assert.Error(t, err)
}
