// Package schedule runs fixed-cadence tasks on a cron runner. Ticks of one
// task never overlap: a tick that comes due while the previous one is still
// running is skipped.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Task func(ctx context.Context)

type Runner struct {
	cron   *cron.Cron
	logger *zap.Logger
	jobs   []cron.EntryID
}

func New(logger *zap.Logger) *Runner {
	cl := cronLogger{logger: logger.Sugar()}
	return &Runner{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// Every registers task to run each interval. Cron schedules have one second
// resolution, so interval must be at least a second.
func (r *Runner) Every(ctx context.Context, name string, interval time.Duration, task Task) error {
	if interval < time.Second {
		return fmt.Errorf("unable to schedule %s: interval %s below 1s", name, interval)
	}

	id, err := r.cron.AddFunc("@every "+interval.String(), func() {
		if ctx.Err() != nil {
			return
		}
		task(ctx)
	})
	if err != nil {
		return fmt.Errorf("unable to schedule %s: %w", name, err)
	}
	r.jobs = append(r.jobs, id)

	r.logger.Debug("scheduled task",
		zap.String("task", name),
		zap.Duration("interval", interval),
	)
	return nil
}

// Run fires every task once, then on its cadence until ctx is done. It returns
// without waiting for running ticks to finish.
func (r *Runner) Run(ctx context.Context) {
	r.cron.Start()
	for _, id := range r.jobs {
		go r.cron.Entry(id).WrappedJob.Run()
	}

	<-ctx.Done()
	r.cron.Stop()
	r.logger.Debug("stopped scheduled tasks")
}

type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
