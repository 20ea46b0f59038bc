package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"time"

	"github.com/google/uuid"

	"swellwatch/internal/types"
)

// AlertLister loads a user's active alerts.
type AlertLister interface {
	ListActiveByUser(ctx context.Context, userID string) ([]types.Alert, error)
}

// CheckStore reads and writes the per-day evaluation record.
type CheckStore interface {
	ExistsForDay(ctx context.Context, alertID string, day time.Time) (bool, error)
	Record(ctx context.Context, c *types.AlertCheck, comparisons []types.PropertyComparison) error
}

// AlertDispatcher is satisfied by *Dispatcher.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert *types.Alert, result *types.MatchResult, today time.Time) (bool, error)
}

// RunMetrics receives the outcome of a run. Implementations log their own
// failures.
type RunMetrics interface {
	RecordRun(ctx context.Context, stats types.RunStats, duration time.Duration)
}

// Runner processes all of one user's alerts for one day.
type Runner struct {
	alerts     AlertLister
	checks     CheckStore
	forecasts  ForecastSource
	scores     ScoreSource
	matcher    *Matcher
	dispatcher AlertDispatcher
	metrics    RunMetrics
	clock      types.Clock
	logger     *slog.Logger
}

// RunnerConfig wires a Runner. Metrics is optional.
type RunnerConfig struct {
	Alerts     AlertLister
	Checks     CheckStore
	Forecasts  ForecastSource
	Scores     ScoreSource
	Dispatcher AlertDispatcher
	Metrics    RunMetrics
	Clock      types.Clock
	Logger     *slog.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{
		alerts:     cfg.Alerts,
		checks:     cfg.Checks,
		forecasts:  cfg.Forecasts,
		scores:     cfg.Scores,
		matcher:    NewMatcher(),
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
	if r.clock == nil {
		r.clock = types.RealClock{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// RunAlertsForUser evaluates every active alert of the user for date (today
// when zero). Only a failure to load the alert list is returned as an
// error; per-alert failures are counted in Errors.
func (r *Runner) RunAlertsForUser(ctx context.Context, userID string, date time.Time) (types.RunStats, error) {
	if date.IsZero() {
		date = r.clock.Now()
	}
	day := types.Day(date)

	if types.GetRunID(ctx) == "" {
		ctx = types.WithRunID(ctx, uuid.NewString())
	}
	ctx = types.WithUserID(ctx, userID)
	logger := r.logger.With("user_id", userID, "run_id", types.GetRunID(ctx), "date", day.Format(types.DateLayout))

	start := time.Now()
	var stats types.RunStats

	alerts, err := r.alerts.ListActiveByUser(ctx, userID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load alerts", "error", err)
		return stats, fmt.Errorf("load alerts for user %s: %w", userID, err)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].RegionID != alerts[j].RegionID {
			return alerts[i].RegionID < alerts[j].RegionID
		}
		return alerts[i].ID < alerts[j].ID
	})

	cache := NewRunCache()
	for i := range alerts {
		if err := ctx.Err(); err != nil {
			logger.WarnContext(ctx, "run cancelled",
				"processed", i,
				"remaining", len(alerts)-i,
				"error", err,
			)
			break
		}

		alert := &alerts[i]
		state, matched, err := r.processAlert(ctx, logger, cache, alert, day)
		if matched {
			stats.Matched++
		}
		switch state {
		case types.AlertStateSkipped:
			stats.Skipped++
		case types.AlertStateNotMatched:
			stats.AlertsChecked++
		case types.AlertStateDispatched:
			stats.AlertsChecked++
			stats.NotificationsSent++
		case types.AlertStateErrored:
			// A failed dispatch still went through evaluation.
			if matched {
				stats.AlertsChecked++
			}
			logger.ErrorContext(ctx, "alert processing failed",
				"alert_id", alert.ID,
				"region_id", alert.RegionID,
				"kind", string(types.KindOf(err)),
				"error", err,
			)
			stats.Errors++
		}
	}

	duration := time.Since(start)
	logger.InfoContext(ctx, "alert run complete",
		"alerts_total", len(alerts),
		"alerts_checked", stats.AlertsChecked,
		"alerts_skipped", stats.Skipped,
		"alerts_matched", stats.Matched,
		"notifications_sent", stats.NotificationsSent,
		"errors", stats.Errors,
		"region_loads", cache.Loads,
		"duration_ms", duration.Milliseconds(),
	)
	if r.metrics != nil {
		r.metrics.RecordRun(ctx, stats, duration)
	}
	return stats, nil
}

// Run is an alias of RunAlertsForUser.
func (r *Runner) Run(ctx context.Context, userID string, today time.Time) (types.RunStats, error) {
	return r.RunAlertsForUser(ctx, userID, today)
}

// processAlert moves one alert from Pending to a terminal state. matched is
// true when the alert matched, even if the dispatch then failed.
func (r *Runner) processAlert(
	ctx context.Context,
	logger *slog.Logger,
	cache *RunCache,
	alert *types.Alert,
	day time.Time,
) (state types.AlertState, matched bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorContext(ctx, "panic while processing alert",
				"alert_id", alert.ID,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			state = types.AlertStateErrored
			err = types.NewAppError(types.ErrCodeInternalPanic, fmt.Sprintf("panic: %v", rec), nil)
		}
	}()

	done, err := r.checks.ExistsForDay(ctx, alert.ID, day)
	if err != nil {
		return types.AlertStateErrored, false, err
	}
	if done {
		logger.DebugContext(ctx, "alert already checked today", "alert_id", alert.ID)
		return types.AlertStateSkipped, false, nil
	}

	if err := types.ValidateAlert(alert); err != nil {
		r.recordFailure(ctx, logger, alert, day, err)
		return types.AlertStateErrored, false, err
	}

	result, err := r.evaluate(ctx, logger, cache, alert, day)
	if err != nil {
		r.recordFailure(ctx, logger, alert, day, err)
		return types.AlertStateErrored, false, err
	}

	if err := r.checks.Record(ctx, &types.AlertCheck{
		AlertID:   alert.ID,
		CheckedOn: day,
		Success:   true,
		Details:   result.Explanation,
		CreatedAt: r.clock.Now().UTC(),
	}, result.ComparedProperties); err != nil {
		return types.AlertStateErrored, false, err
	}

	if !result.Matched {
		logger.DebugContext(ctx, "alert not matched",
			"alert_id", alert.ID,
			"missing_input", result.MissingInput,
			"explanation", result.Explanation,
		)
		return types.AlertStateNotMatched, false, nil
	}

	ok, err := r.dispatcher.Dispatch(ctx, alert, &result, day)
	if err != nil || !ok {
		if err == nil {
			err = types.NewAppError(types.ErrCodeInternalUnexpected, "dispatch reported failure", nil)
		}
		return types.AlertStateErrored, true, err
	}
	return types.AlertStateDispatched, true, nil
}

func (r *Runner) evaluate(
	ctx context.Context,
	logger *slog.Logger,
	cache *RunCache,
	alert *types.Alert,
	day time.Time,
) (types.MatchResult, error) {
	forecast, err := cache.Forecast(ctx, alert.RegionID, func(ctx context.Context) (*types.ForecastSnapshot, error) {
		f, err := r.forecasts.GetForecast(ctx, alert.RegionID, day)
		if err != nil {
			// An unreachable provider is treated as an absent forecast.
			logger.WarnContext(ctx, "forecast unavailable",
				"region_id", alert.RegionID,
				"error", err,
			)
			return nil, nil
		}
		return f, nil
	})
	if err != nil {
		return types.MatchResult{}, err
	}

	var score *types.DailyScore
	if alert.Type == types.AlertTypeRating {
		scores, err := cache.Scores(ctx, alert.RegionID, func(ctx context.Context) (map[string]types.DailyScore, error) {
			return r.scores.GetOrComputeWithForecast(ctx, alert.RegionID, day, forecast)
		})
		if err != nil {
			return types.MatchResult{}, err
		}
		score = TargetScore(alert, scores)
	}

	return r.matcher.Evaluate(alert, forecast, score), nil
}

// recordFailure marks the day as checked with an unsuccessful evaluation.
func (r *Runner) recordFailure(ctx context.Context, logger *slog.Logger, alert *types.Alert, day time.Time, cause error) {
	err := r.checks.Record(ctx, &types.AlertCheck{
		AlertID:   alert.ID,
		CheckedOn: day,
		Success:   false,
		Details:   cause.Error(),
		CreatedAt: r.clock.Now().UTC(),
	}, nil)
	if err != nil {
		logger.WarnContext(ctx, "failed to record alert check", "alert_id", alert.ID, "error", err)
	}
}
