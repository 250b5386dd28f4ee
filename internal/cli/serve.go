package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	apphttp "pagos/internal/http"
	"pagos/internal/log"
	"pagos/internal/scheduler"
	"pagos/internal/services"
	"pagos/internal/sheets"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd runs the JSON API and, unless disabled, the month roll scheduler.
type ServeCmd struct {
	Addr        string `help:"Listen address. Defaults to :PORT."`
	NoScheduler bool   `help:"Do not run the month roll scheduler in this process." name:"no-scheduler"`
}

func (c *ServeCmd) Run(app *App) error {
	return app.withEnv(func(_ context.Context, env *Env) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return c.serve(ctx, app, env)
	})
}

func (c *ServeCmd) serve(ctx context.Context, app *App, env *Env) error {
	logger := env.Logger
	addr := c.Addr
	if addr == "" {
		addr = ":" + env.Config.Port
	}

	var writer sheets.PendingWriter
	if env.Sheets != nil || env.Config.SheetsEnabled() {
		w, err := env.PendingWriter(ctx)
		if err != nil {
			logger.Warn("Google Sheets unavailable, publishing disabled", log.FieldError, err.Error())
		} else {
			writer = w
		}
	}

	srv := apphttp.NewServer(addr, env.Session, apphttp.Options{
		AutoDeduct: env.Config.AutoDeduct,
		Sheets:     writer,
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if !c.NoScheduler {
		sched := scheduler.New(gctx, logger, time.Minute)
		roll := scheduler.NewMonthRollJob(services.NewMonthRoller(env.Session), app.Now, logger)
		if err := sched.AddJob(env.Config.MonthRollSchedule, roll); err != nil {
			return err
		}
		// Catch up on months missed while nothing was running.
		_ = sched.RunNow(roll)
		sched.Start()
		g.Go(func() error {
			<-gctx.Done()
			sched.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
