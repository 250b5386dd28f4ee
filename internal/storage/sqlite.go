package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pagos/internal/core"
	"pagos/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the ledger document in a single-row table.
type SQLiteStore struct {
	db    *sql.DB
	codec Codec
}

func NewSQLiteStore(dbPath string, codec Codec) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps the read-modify-write of the document serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, codec: codec}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) LoadRaw(ctx context.Context) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM ledger_documents WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger document: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query ledger document: %w", err)
	}
	return []byte(body), nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*core.Ledger, error) {
	data, err := s.LoadRaw(ctx)
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(data)
}

func (s *SQLiteStore) Save(ctx context.Context, l *core.Ledger) error {
	data, err := s.codec.Encode(l)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledger_documents (id, schema_version, body, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		core.CurrentSchemaVersion, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save ledger document: %w", err)
	}

	slog.DebugContext(ctx, "Ledger saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		"bytes", len(data),
		"months", len(l.Months))
	return nil
}
