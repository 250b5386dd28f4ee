package scheduler

import (
	"context"
	"time"

	"pagos/internal/core"
	"pagos/internal/log"
	"pagos/internal/services"
	"pagos/internal/sheets"
)

// MonthRollJob makes sure the months due today exist.
type MonthRollJob struct {
	roller *services.MonthRoller
	now    func() time.Time
	log    *log.Logger
}

func NewMonthRollJob(roller *services.MonthRoller, now func() time.Time, logger *log.Logger) *MonthRollJob {
	if now == nil {
		now = time.Now
	}
	return &MonthRollJob{roller: roller, now: now, log: logger.WithComponent(log.ComponentScheduler)}
}

func (j *MonthRollJob) Name() string {
	return "month_roll"
}

func (j *MonthRollJob) Run(ctx context.Context) error {
	created, err := j.roller.Roll(ctx, j.now())
	if err != nil {
		return err
	}
	if len(created) > 0 {
		j.log.InfoContext(ctx, "Months created",
			log.FieldOperation, log.OpRoll,
			"months", created)
	}
	return nil
}

// PendingPublishJob pushes the current month's pending list to a sheet.
type PendingPublishJob struct {
	session *services.Session
	writer  sheets.PendingWriter
	now     func() time.Time
}

func NewPendingPublishJob(session *services.Session, writer sheets.PendingWriter, now func() time.Time) *PendingPublishJob {
	if now == nil {
		now = time.Now
	}
	return &PendingPublishJob{session: session, writer: writer, now: now}
}

func (j *PendingPublishJob) Name() string {
	return "pending_publish"
}

// Run publishes only months that already exist; creating them is the roll
// job's business.
func (j *PendingPublishJob) Run(ctx context.Context) error {
	now := j.now()
	year, month := now.Year(), int(now.Month())
	return j.session.Do(ctx, func(l *core.Ledger) error {
		if l.Month(year, month) == nil {
			return nil
		}
		_, err := j.session.Service().PublishPending(ctx, j.writer, l, year, month)
		return err
	})
}
