package trigger

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/bartekus/cadence/internal/logging"
)

// RunFunc is one pipeline run started by the scheduler.
type RunFunc func(ctx context.Context) error

// Scheduler fires RunFunc on a cron schedule, one run at a time. A tick that
// arrives while a run is in progress is skipped.
type Scheduler struct {
	spec string
	log  *log.Logger
}

func NewScheduler(spec string, logger *log.Logger) *Scheduler {
	return &Scheduler{spec: spec, log: logging.OrDiscard(logger)}
}

// Run blocks until ctx is cancelled, then waits for an in-flight run.
func (s *Scheduler) Run(ctx context.Context, fn RunFunc) error {
	if _, err := ParseSchedule(s.spec); err != nil {
		return err
	}

	cl := cronLogger{s.log}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(s.spec, func() {
		s.log.Info("scheduled run starting", "trigger", Schedule)
		if err := fn(ctx); err != nil {
			s.log.Error("scheduled run failed", "error", err)
			return
		}
		s.log.Info("scheduled run finished")
	}); err != nil {
		return err
	}

	c.Start()
	if next, err := NextScheduled(s.spec, time.Now()); err == nil {
		s.log.Info("scheduler started", "cron", s.spec, "next", next.Format(time.RFC3339))
	}

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

// cronLogger routes cron's internal logging through the process logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
