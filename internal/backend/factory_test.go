package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagos/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "memory"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "x.db",
		LedgerYear:   2027,
		AMQPURL:      "amqp://localhost",
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, 2027, cfg.LedgerYear)
	assert.Equal(t, "amqp://localhost", cfg.AMQPURL)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{Type: "sheets"}.Validate())
	assert.Error(t, Config{Type: FileBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.NoError(t, Config{Type: FileBackend, LedgerPath: "l.json"}.Validate())
}

func TestCreateBackend(t *testing.T) {
	for _, typ := range GetBackendTypes() {
		t.Run(typ.String(), func(t *testing.T) {
			dir := t.TempDir()
			cfg := Config{
				Type:         typ,
				LedgerPath:   filepath.Join(dir, "control_pagos.json"),
				SQLiteDBPath: filepath.Join(dir, "pagos.db"),
				AuditLogPath: filepath.Join(dir, "operaciones.txt"),
				LedgerYear:   2027,
				ControlDay:   25,
			}
			ctx := context.Background()

			res, err := NewFactory(nil).CreateBackend(ctx, cfg)
			require.NoError(t, err)
			defer func() { require.NoError(t, res.Cleanup()) }()

			l, err := res.Service.LoadOrInitialize(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2027, l.Year)
			assert.Equal(t, 25, l.ControlDay)
			assert.Len(t, l.Accounts, 5)

			_, err = res.Service.EnsureMonth(ctx, l, 2027, 1)
			require.NoError(t, err)

			reloaded, err := res.Store.Load(ctx)
			require.NoError(t, err)
			assert.NotNil(t, reloaded.Month(2027, 1))

			logData, err := os.ReadFile(cfg.AuditLogPath)
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(string(logData)), "\n")
			require.Len(t, lines, 2)
			assert.Contains(t, lines[0], "] INIT: ")
			assert.Contains(t, lines[1], "] NEW_MONTH: ")
		})
	}
}

func TestCreateBackendBadSeed(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte("year: [oops"), 0o644))

	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:       FileBackend,
		LedgerPath: filepath.Join(dir, "l.json"),
		SeedFile:   seedPath,
	})
	assert.ErrorContains(t, err, "load seed")
}
