package backend

import (
	"context"

	"pagos/internal/audit"
	"pagos/internal/seed"
	"pagos/internal/services"
	"pagos/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired ledger stack and a cleanup function that
// releases its resources.
type BackendResult struct {
	Store    storage.Store
	Codec    storage.Codec
	Seed     *seed.Seed
	Recorder audit.Recorder
	Service  *services.LedgerService
	Session  *services.Session
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	LedgerPath   string
	SQLiteDBPath string
	AuditLogPath string

	SeedFile          string
	LedgerYear        int
	ControlDay        int
	FallbackOnCorrupt bool

	// Optional event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of document store
type BackendType string

const (
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
