package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"swellwatch/internal/types"
)

// Daemon triggers jobs on a cron schedule when running outside Lambda.
type Daemon struct {
	cron    *cron.Cron
	service *Service
	logger  *slog.Logger
}

// NewDaemon schedules the warm-up and the daily alert fan-out on spec, a
// standard five-field cron expression evaluated in UTC. Scores are warmed
// first so the fan-out finds them stored.
func NewDaemon(spec string, service *Service, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Daemon{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		service: service,
		logger:  logger,
	}
	_, err := d.cron.AddFunc(spec, func() {
		if service.warmer != nil {
			d.runOnce(context.Background(), TaskWarmScores)
		}
		d.runOnce(context.Background(), TaskDailyAlerts)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return d, nil
}

func (d *Daemon) runOnce(ctx context.Context, task TaskType) {
	ctx = types.WithRunID(ctx, uuid.NewString())
	d.logger.InfoContext(ctx, "scheduled job starting", "task", string(task), "run_id", types.GetRunID(ctx))
	if err := d.service.Handle(ctx, JobPayload{Task: task}); err != nil {
		d.logger.ErrorContext(ctx, "scheduled job failed", "task", string(task), "error", err)
	}
}

// Run blocks until ctx is cancelled, then waits for a running job.
func (d *Daemon) Run(ctx context.Context) {
	d.cron.Start()
	for _, e := range d.cron.Entries() {
		d.logger.InfoContext(ctx, "scheduler daemon started", "next_run", e.Next)
	}
	<-ctx.Done()
	stopped := d.cron.Stop()
	<-stopped.Done()
	d.logger.InfoContext(ctx, "scheduler daemon stopped")
}
