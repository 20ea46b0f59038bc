package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"swellwatch/internal/config"
	"swellwatch/internal/queue"
	"swellwatch/internal/types"
)

// UserLister pages through users that own active alerts.
type UserLister interface {
	ListUsersWithActiveAlerts(ctx context.Context, cursor string, limit int) ([]string, error)
}

// Enqueuer is satisfied by *queue.AlertRunProducer.
type Enqueuer interface {
	EnqueueBatch(ctx context.Context, msgs []types.AlertRunMessage, reason string) (int, error)
}

// UserRunner is satisfied by *alerts.Runner.
type UserRunner interface {
	RunAlertsForUser(ctx context.Context, userID string, date time.Time) (types.RunStats, error)
}

// FanoutMetrics records how many users a fan-out reached.
type FanoutMetrics interface {
	RecordFanout(ctx context.Context, mode string, users int)
}

// FanoutResult summarises one daily fan-out.
type FanoutResult struct {
	Users    int
	Enqueued int
	// FailedUsers counts users whose inline run could not load alerts, or
	// whose message was rejected by the queue.
	FailedUsers int
	// Stats aggregates inline runs. It stays zero in enqueue mode.
	Stats types.RunStats
}

// DailyFanout starts one alert run per user.
type DailyFanout struct {
	users       UserLister
	enqueuer    Enqueuer
	runner      UserRunner
	metrics     FanoutMetrics
	mode        string
	concurrency int
	pageSize    int
	logger      *slog.Logger
}

// FanoutConfig wires a DailyFanout. Enqueuer is required in enqueue mode
// and Runner in inline mode.
type FanoutConfig struct {
	Users     UserLister
	Enqueuer  Enqueuer
	Runner    UserRunner
	Metrics   FanoutMetrics
	Scheduler config.SchedulerConfig
	Logger    *slog.Logger
}

func NewDailyFanout(cfg FanoutConfig) *DailyFanout {
	f := &DailyFanout{
		users:       cfg.Users,
		enqueuer:    cfg.Enqueuer,
		runner:      cfg.Runner,
		metrics:     cfg.Metrics,
		mode:        cfg.Scheduler.Mode,
		concurrency: cfg.Scheduler.Concurrency,
		pageSize:    cfg.Scheduler.PageSize,
		logger:      cfg.Logger,
	}
	if f.mode == "" {
		f.mode = config.ModeEnqueue
	}
	if f.concurrency < 1 {
		f.concurrency = 1
	}
	if f.pageSize < 1 {
		f.pageSize = 500
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Run fans out every user with active alerts for day. Listing failures
// abort; individual user failures are counted and logged.
func (f *DailyFanout) Run(ctx context.Context, day time.Time) (FanoutResult, error) {
	day = types.Day(day)
	var res FanoutResult

	cursor := ""
	for {
		page, err := f.users.ListUsersWithActiveAlerts(ctx, cursor, f.pageSize)
		if err != nil {
			return res, fmt.Errorf("list users after %q: %w", cursor, err)
		}
		if len(page) == 0 {
			break
		}
		res.Users += len(page)

		switch f.mode {
		case config.ModeInline:
			f.runInline(ctx, page, day, &res)
		default:
			if err := f.enqueue(ctx, page, day, &res); err != nil {
				return res, err
			}
		}

		if len(page) < f.pageSize {
			break
		}
		cursor = page[len(page)-1]
	}

	f.logger.InfoContext(ctx, "daily fan-out complete",
		"mode", f.mode,
		"date", day.Format(types.DateLayout),
		"users", res.Users,
		"enqueued", res.Enqueued,
		"failed_users", res.FailedUsers,
		"alerts_checked", res.Stats.AlertsChecked,
		"notifications_sent", res.Stats.NotificationsSent,
		"errors", res.Stats.Errors,
	)
	if f.metrics != nil {
		f.metrics.RecordFanout(ctx, f.mode, res.Users)
	}
	return res, nil
}

func (f *DailyFanout) enqueue(ctx context.Context, users []string, day time.Time, res *FanoutResult) error {
	if f.enqueuer == nil {
		return fmt.Errorf("enqueue mode needs a queue producer")
	}
	msgs := make([]types.AlertRunMessage, 0, len(users))
	for _, u := range users {
		msgs = append(msgs, queue.NewMessage(ctx, u, day))
	}
	sent, err := f.enqueuer.EnqueueBatch(ctx, msgs, string(TaskDailyAlerts))
	res.Enqueued += sent
	if err != nil {
		if sent == 0 {
			return err
		}
		res.FailedUsers += len(msgs) - sent
		f.logger.WarnContext(ctx, "some alert runs were not enqueued", "error", err)
	}
	return nil
}

func (f *DailyFanout) runInline(ctx context.Context, users []string, day time.Time, res *FanoutResult) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for _, u := range users {
		g.Go(func() error {
			stats, err := f.runner.RunAlertsForUser(gctx, u, day)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.FailedUsers++
				f.logger.ErrorContext(ctx, "user alert run failed", "user_id", u, "error", err)
				return nil
			}
			res.Stats.Add(stats)
			return nil
		})
	}
	_ = g.Wait()
}
