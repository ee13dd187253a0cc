// Package jobs runs the periodic maintenance work of the server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/config"
	"carenest-server/internal/events"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 2 * time.Minute

// Scheduler owns the cron instance the jobs are registered on.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// NewScheduler registers the sweeper and the reminder on their configured
// schedules. Nothing runs until Start is called.
func NewScheduler(cfg config.JobsConfig, db *gorm.DB, publisher events.Publisher, log *zap.Logger) (*Scheduler, error) {
	clog := cronLogger{log: log.Named("cron")}
	c := cron.New(cron.WithLogger(clog), cron.WithChain(
		cron.Recover(clog),
		cron.SkipIfStillRunning(clog),
	))
	s := &Scheduler{cron: c, log: log}

	sweeper := NewSweeper(db, log)
	if _, err := c.AddFunc(cfg.SweepSchedule, s.wrap("sweep", sweeper.Run)); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
	}

	reminder := NewReminder(db, publisher, log)
	if _, err := c.AddFunc(cfg.ReminderSchedule, s.wrap("reminder", reminder.Run)); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", cfg.ReminderSchedule, err)
	}
	return s, nil
}

func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := run(ctx); err != nil {
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.log.Debug("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Background jobs started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Background jobs did not finish before shutdown")
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
