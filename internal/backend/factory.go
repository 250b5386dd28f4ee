package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pagos/internal/amqp"
	"pagos/internal/audit"
	"pagos/internal/seed"
	"pagos/internal/services"
	"pagos/internal/storage"
)

const amqpConnectAttempts = 3

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	opts   []services.Option
}

// NewFactory creates a new backend factory. Extra service options are
// applied after the ones derived from the config.
func NewFactory(logger *slog.Logger, opts ...services.Option) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		opts:   opts,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	sd, err := seed.Load(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	if config.LedgerYear > 0 {
		sd.Year = config.LedgerYear
	}
	if config.ControlDay > 0 {
		sd.ControlDay = config.ControlDay
	}
	codec := storage.Codec{Accounts: sd.Accounts}

	var cleanups []CleanupFunc
	cleanup := func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			errs = append(errs, cleanups[i]())
		}
		return errors.Join(errs...)
	}

	store, closeStore, err := f.createStore(config, codec)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		cleanups = append(cleanups, closeStore)
	}

	recorder, closeRecorder, err := f.createRecorder(ctx, config)
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	if closeRecorder != nil {
		cleanups = append(cleanups, closeRecorder)
	}

	opts := append([]services.Option{
		services.WithRecorder(recorder),
		services.WithFallbackOnCorrupt(config.FallbackOnCorrupt),
	}, f.opts...)
	svc := services.NewLedgerService(store, codec, sd, opts...)

	f.logger.Info("Initialized ledger backend",
		"type", config.Type.String(),
		"year", sd.Year,
		"control_day", sd.ControlDay,
		"amqp_enabled", config.AMQPURL != "")

	return &BackendResult{
		Store:    store,
		Codec:    codec,
		Seed:     sd,
		Recorder: recorder,
		Service:  svc,
		Session:  services.NewSession(svc),
		Cleanup:  cleanup,
	}, nil
}

func (f *DefaultFactory) createStore(config Config, codec storage.Codec) (storage.Store, CleanupFunc, error) {
	switch config.Type {
	case FileBackend:
		store, err := storage.NewFileStore(config.LedgerPath, codec)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		return store, nil, nil
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath, codec)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// createRecorder always writes the audit file. AMQP publishing is added when
// configured; a broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) createRecorder(ctx context.Context, config Config) (audit.Recorder, CleanupFunc, error) {
	var recorders audit.Multi
	if config.AuditLogPath != "" {
		fileRec, err := audit.NewFileRecorder(config.AuditLogPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize audit log: %w", err)
		}
		recorders = append(recorders, fileRec)
	}

	if config.AMQPURL == "" {
		return recorders, nil, nil
	}
	client, err := amqp.Connect(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue, amqpConnectAttempts)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return recorders, nil, nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return append(recorders, client.Recorder()), client.Close, nil
}
