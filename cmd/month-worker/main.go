package main

import (
	"context"
	"errors"
	"os"
	"time"

	"pagos/internal/amqp"
	"pagos/internal/backend"
	"pagos/internal/cli"
	"pagos/internal/log"
	"pagos/internal/scheduler"
	"pagos/internal/services"
	"pagos/internal/sheets/google"
	"pagos/internal/worker"
)

const (
	jobTimeout          = 2 * time.Minute
	shutdownTimeout     = 30 * time.Second
	amqpConnectAttempts = 5
)

func main() {
	cli.LoadEnvFile(".env")

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.ReportError(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := cli.SetupLogger(cfg, os.Stdout)
	if err != nil {
		cli.ReportError(os.Stderr, err)
		os.Exit(1)
	}
	logger.Info("Starting month-worker", log.FieldOperation, log.OpStartup)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to open ledger backend", log.FieldError, err.Error())
		os.Exit(1)
	}

	var (
		sched    *scheduler.Scheduler
		consumer *amqp.Client
	)
	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(context.Context) {
		if sched != nil {
			sched.Stop()
		}
		if consumer != nil {
			_ = consumer.Close()
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Failed to release backend", log.FieldError, err.Error())
		}
	})

	sched = scheduler.New(ctx, logger, jobTimeout)
	roll := scheduler.NewMonthRollJob(services.NewMonthRoller(res.Session), time.Now, logger)
	if err := sched.AddJob(cfg.MonthRollSchedule, roll); err != nil {
		logger.Error("Failed to schedule month roll", log.FieldError, err.Error())
		os.Exit(1)
	}
	// Catch up on months missed while the worker was down. Failures are
	// logged by the scheduler.
	_ = sched.RunNow(roll)

	if cfg.SheetsEnabled() {
		client, err := google.New(ctx, google.Options{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			PendingSheetName:   cfg.GooglePendingSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
			os.Exit(1)
		}

		if cfg.PendingPublishSchedule != "" {
			publish := scheduler.NewPendingPublishJob(res.Session, client, time.Now)
			if err := sched.AddJob(cfg.PendingPublishSchedule, publish); err != nil {
				logger.Error("Failed to schedule pending publish", log.FieldError, err.Error())
				os.Exit(1)
			}
		}

		syncer := worker.NewSheetsSync(res.Session, client, time.Now, logger)
		if err := syncer.StartupSync(ctx); err != nil {
			logger.Error("Startup sync failed", log.FieldError, err.Error())
		}

		if cfg.AMQPEnabled() {
			consumer, err = amqp.Connect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqpConnectAttempts)
			if err != nil {
				logger.Warn("AMQP unavailable, relying on the scheduled publish", log.FieldError, err.Error())
			} else {
				go func() {
					err := consumer.ConsumeLedgerEvents(ctx, syncer.HandleEvent)
					if err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("Ledger event consumption stopped", log.FieldError, err.Error())
					}
				}()
			}
		}
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	sched.Start()
	cli.WaitForShutdown(ctx, done)
}
