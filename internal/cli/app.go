package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"pagos/internal/backend"
	"pagos/internal/config"
	"pagos/internal/core"
	"pagos/internal/log"
	"pagos/internal/services"
	"pagos/internal/sheets"
	"pagos/internal/sheets/google"
)

// Globals defines global flags available to all commands.
type Globals struct {
	EnvFile string `help:"Load environment variables from this file." default:".env" name:"env-file"`
	Backend string `help:"Storage backend, file or sqlite. Overrides DATA_BACKEND."`
	Ledger  string `help:"Ledger document path. Overrides LEDGER_PATH." type:"path"`
	Yes     bool   `help:"Answer yes to confirmation prompts." short:"y"`
}

// apply lets command-line flags win over the environment.
func (g *Globals) apply(cfg *config.Config) {
	if g.Backend != "" {
		cfg.DataBackend = g.Backend
	}
	if g.Ledger != "" {
		cfg.LedgerPath = g.Ledger
	}
}

// Env is an opened ledger backend.
type Env struct {
	Config  *config.Config
	Logger  *log.Logger
	Session *services.Session
	// Sheets overrides the Google Sheets client built from the config.
	Sheets  sheets.PendingWriter
	Cleanup func() error
}

// Service returns the ledger service behind the session.
func (e *Env) Service() *services.LedgerService {
	return e.Session.Service()
}

// PendingWriter returns the configured Google Sheets client.
func (e *Env) PendingWriter(ctx context.Context) (sheets.PendingWriter, error) {
	if e.Sheets != nil {
		return e.Sheets, nil
	}
	if !e.Config.SheetsEnabled() {
		return nil, errors.New("google sheets export is not configured: set GOOGLE_SPREADSHEET_ID")
	}
	client, err := google.New(ctx, google.Options{
		SpreadsheetID:      e.Config.GoogleSpreadsheetID,
		PendingSheetName:   e.Config.GooglePendingSheetName,
		ServiceAccountJSON: e.Config.GoogleServiceAccountJSON,
		ServiceAccountFile: e.Config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	e.Sheets = client
	return client, nil
}

func (e *Env) close() {
	if e.Cleanup == nil {
		return
	}
	if err := e.Cleanup(); err != nil {
		e.Logger.Warn("Failed to release backend", log.FieldError, err.Error())
	}
}

// App carries what every command needs. It is bound into kong so Run
// methods receive it.
type App struct {
	Globals *Globals
	Out     io.Writer
	Err     io.Writer
	Now     func() time.Time
	Confirm func(question string) (bool, error)

	open func(ctx context.Context) (*Env, error)
}

// NewApp returns an App that opens the backend described by the
// environment and the global flags.
func NewApp(globals *Globals, out, errOut io.Writer) *App {
	a := &App{
		Globals: globals,
		Out:     out,
		Err:     errOut,
		Now:     time.Now,
		Confirm: promptYesNo,
	}
	a.open = a.openBackend
	return a
}

func (a *App) openBackend(ctx context.Context) (*Env, error) {
	LoadEnvFile(a.Globals.EnvFile)
	cfg := config.Load()
	a.Globals.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := SetupLogger(cfg, a.Err)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger, services.WithClock(a.Now)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	return &Env{
		Config:  cfg,
		Logger:  logger,
		Session: res.Session,
		Cleanup: res.Cleanup,
	}, nil
}

// withEnv opens the backend, runs fn and releases the backend.
func (a *App) withEnv(fn func(ctx context.Context, env *Env) error) error {
	ctx := context.Background()
	env, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer env.close()
	return fn(ctx, env)
}

// do opens the backend and runs fn on the loaded ledger.
func (a *App) do(fn func(ctx context.Context, env *Env, l *core.Ledger) error) error {
	return a.withEnv(func(ctx context.Context, env *Env) error {
		return env.Session.Do(ctx, func(l *core.Ledger) error {
			return fn(ctx, env, l)
		})
	})
}

// confirm asks before destructive actions unless --yes was given.
func (a *App) confirm(question string) (bool, error) {
	if a.Globals.Yes {
		return true, nil
	}
	return a.Confirm(question)
}

// MonthFlag selects a month; empty means the current one.
type MonthFlag struct {
	Month string `help:"Month as YYYY-MM. Defaults to the current month." short:"m"`
}

func (f MonthFlag) resolve(now time.Time) (int, int, error) {
	if strings.TrimSpace(f.Month) == "" {
		return now.Year(), int(now.Month()), nil
	}
	return core.ParseMonthKey(strings.TrimSpace(f.Month))
}

// DeductFlag chooses whether paid toggles move account balances.
type DeductFlag struct {
	Deduct string `help:"Adjust the account balance: auto uses AUTO_DEDUCT." enum:"auto,yes,no" default:"auto"`
}

func (f DeductFlag) resolve(cfg *config.Config) bool {
	switch f.Deduct {
	case "yes":
		return true
	case "no":
		return false
	default:
		return cfg.AutoDeduct
	}
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), core.ErrNotFound)
}
