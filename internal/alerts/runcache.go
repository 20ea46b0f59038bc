package alerts

import (
	"context"
	"time"

	"swellwatch/internal/types"
)

// RunCache memoizes per-region inputs for a single run. A new cache is made
// for every run and never shared, so stale data cannot leak between days or
// users. Failed lookups are cached too and not retried within the run.
type RunCache struct {
	forecasts map[string]forecastEntry
	scores    map[string]scoresEntry

	// Loads counts calls that reached the underlying source.
	Loads int
}

type forecastEntry struct {
	forecast *types.ForecastSnapshot
	err      error
}

type scoresEntry struct {
	scores map[string]types.DailyScore
	err    error
}

func NewRunCache() *RunCache {
	return &RunCache{
		forecasts: make(map[string]forecastEntry),
		scores:    make(map[string]scoresEntry),
	}
}

// Forecast returns the region's forecast, calling load on first use.
func (c *RunCache) Forecast(
	ctx context.Context,
	regionID string,
	load func(ctx context.Context) (*types.ForecastSnapshot, error),
) (*types.ForecastSnapshot, error) {
	if e, ok := c.forecasts[regionID]; ok {
		return e.forecast, e.err
	}
	c.Loads++
	f, err := load(ctx)
	c.forecasts[regionID] = forecastEntry{forecast: f, err: err}
	return f, err
}

// Scores returns the region's daily scores, calling load on first use.
func (c *RunCache) Scores(
	ctx context.Context,
	regionID string,
	load func(ctx context.Context) (map[string]types.DailyScore, error),
) (map[string]types.DailyScore, error) {
	if e, ok := c.scores[regionID]; ok {
		return e.scores, e.err
	}
	c.Loads++
	s, err := load(ctx)
	c.scores[regionID] = scoresEntry{scores: s, err: err}
	return s, err
}

// ForecastSource yields a region's snapshot or nil when absent.
type ForecastSource interface {
	GetForecast(ctx context.Context, regionID string, date time.Time) (*types.ForecastSnapshot, error)
}

// ScoreSource is satisfied by *scores.Store.
type ScoreSource interface {
	GetOrComputeWithForecast(ctx context.Context, regionID string, date time.Time, forecast *types.ForecastSnapshot) (map[string]types.DailyScore, error)
}
