// Package scores keeps one computed score per location per day, computing a
// region's scores at most once per day and persisting them idempotently.
package scores

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"swellwatch/internal/scoring"
	"swellwatch/internal/types"
)

// ScoreRepo persists daily scores keyed by (location, day).
type ScoreRepo interface {
	ListByRegionDate(ctx context.Context, regionID string, date time.Time) ([]types.DailyScore, error)
	Upsert(ctx context.Context, s *types.DailyScore) error
}

// LocationRepo is the read-only location catalog.
type LocationRepo interface {
	ListByRegion(ctx context.Context, regionID string) ([]types.LocationProfile, error)
}

// ForecastSource yields the region's snapshot or nil when absent.
type ForecastSource interface {
	GetForecast(ctx context.Context, regionID string, date time.Time) (*types.ForecastSnapshot, error)
}

// Scorer is satisfied by *scoring.Engine.
type Scorer interface {
	TryScore(profile *types.LocationProfile, forecast *types.ForecastSnapshot) (int, error)
}

// Store implements get-or-compute over the score table.
type Store struct {
	scores    ScoreRepo
	locations LocationRepo
	forecasts ForecastSource
	engine    Scorer
	clock     types.Clock
	logger    *slog.Logger
}

// Config wires a Store.
type Config struct {
	Scores    ScoreRepo
	Locations LocationRepo
	Forecasts ForecastSource
	Engine    Scorer
	Clock     types.Clock
	Logger    *slog.Logger
}

func NewStore(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	engine := cfg.Engine
	if engine == nil {
		engine = scoring.NewEngine(logger)
	}
	return &Store{
		scores:    cfg.Scores,
		locations: cfg.Locations,
		forecasts: cfg.Forecasts,
		engine:    engine,
		clock:     clock,
		logger:    logger,
	}
}

// GetOrCompute returns the region's scores for date keyed by location ID.
// Stored scores are reused unless none exist or they are all zero without
// every row being flagged as successfully computed. With no forecast for
// the day the result is empty and nothing is written.
func (s *Store) GetOrCompute(ctx context.Context, regionID string, date time.Time) (map[string]types.DailyScore, error) {
	return s.getOrCompute(ctx, regionID, date, nil)
}

// GetOrComputeWithForecast is GetOrCompute with the forecast already
// resolved by the caller. A nil forecast means absent.
func (s *Store) GetOrComputeWithForecast(ctx context.Context, regionID string, date time.Time, forecast *types.ForecastSnapshot) (map[string]types.DailyScore, error) {
	return s.getOrCompute(ctx, regionID, date, func(context.Context) (*types.ForecastSnapshot, error) {
		return forecast, nil
	})
}

// ComputeDailyScores is the presentation-facing view: location ID to score.
func (s *Store) ComputeDailyScores(ctx context.Context, regionID string, date time.Time) (map[string]int, error) {
	all, err := s.GetOrCompute(ctx, regionID, date)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(all))
	for id, ds := range all {
		out[id] = ds.Score
	}
	return out, nil
}

func (s *Store) getOrCompute(
	ctx context.Context,
	regionID string,
	date time.Time,
	forecastFn func(context.Context) (*types.ForecastSnapshot, error),
) (map[string]types.DailyScore, error) {
	day := types.Day(date)

	stored, err := s.scores.ListByRegionDate(ctx, regionID, day)
	if err != nil {
		return nil, fmt.Errorf("load daily scores for %s: %w", regionID, err)
	}
	if isFresh(stored) {
		return index(stored), nil
	}

	if forecastFn == nil {
		forecastFn = func(ctx context.Context) (*types.ForecastSnapshot, error) {
			return s.forecasts.GetForecast(ctx, regionID, day)
		}
	}
	forecast, err := forecastFn(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve forecast for %s: %w", regionID, err)
	}
	if forecast == nil {
		s.logger.InfoContext(ctx, "no forecast, daily scores not computed",
			"region_id", regionID,
			"date", day.Format(types.DateLayout),
		)
		return map[string]types.DailyScore{}, nil
	}

	locations, err := s.locations.ListByRegion(ctx, regionID)
	if err != nil {
		return nil, fmt.Errorf("load locations for %s: %w", regionID, err)
	}

	now := s.clock.Now()
	out := make(map[string]types.DailyScore, len(locations))
	for i := range locations {
		loc := &locations[i]
		ds := types.DailyScore{
			LocationID: loc.ID,
			RegionID:   regionID,
			Date:       day,
			Computed:   true,
			ComputedAt: now,
		}
		score, err := s.engine.TryScore(loc, forecast)
		if err != nil {
			s.logger.ErrorContext(ctx, "score computation failed, defaulting to 0",
				"location_id", loc.ID,
				"region_id", regionID,
				"error", err,
			)
			score = 0
			ds.Computed = false
		}
		ds.Score = score
		ds.StarRating = scoring.StarRating(score)

		if err := s.scores.Upsert(ctx, &ds); err != nil {
			return nil, fmt.Errorf("store daily score for %s: %w", loc.ID, err)
		}
		out[loc.ID] = ds
	}

	s.logger.InfoContext(ctx, "daily scores computed",
		"region_id", regionID,
		"date", day.Format(types.DateLayout),
		"locations", len(out),
	)
	return out, nil
}

// isFresh decides whether stored scores can be reused. Any non-zero score
// means a successful run. An all-zero set is reused only when every row is
// flagged computed, which separates a genuinely flat day from a failed run.
func isFresh(stored []types.DailyScore) bool {
	if len(stored) == 0 {
		return false
	}
	allComputed := true
	for _, ds := range stored {
		if ds.Score != 0 {
			return true
		}
		if !ds.Computed {
			allComputed = false
		}
	}
	return allComputed
}

func index(list []types.DailyScore) map[string]types.DailyScore {
	out := make(map[string]types.DailyScore, len(list))
	for _, ds := range list {
		out[ds.LocationID] = ds
	}
	return out
}
