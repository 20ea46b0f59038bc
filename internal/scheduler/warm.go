package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"swellwatch/internal/types"
)

// RegionLister lists regions with locations.
type RegionLister interface {
	ListRegions(ctx context.Context) ([]string, error)
}

// ScoreComputer is satisfied by *scores.Store.
type ScoreComputer interface {
	ComputeDailyScores(ctx context.Context, regionID string, date time.Time) (map[string]int, error)
}

// ScoreWarmer precomputes daily scores for every region so presentation
// reads and the first alert run of the day find them stored.
type ScoreWarmer struct {
	regions RegionLister
	scores  ScoreComputer
	logger  *slog.Logger
}

func NewScoreWarmer(regions RegionLister, scores ScoreComputer, logger *slog.Logger) *ScoreWarmer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoreWarmer{regions: regions, scores: scores, logger: logger}
}

// WarmScores returns the number of regions processed. A failing region is
// logged and skipped.
func (w *ScoreWarmer) WarmScores(ctx context.Context, day time.Time) (int, error) {
	regions, err := w.regions.ListRegions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list regions: %w", err)
	}
	done := 0
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		scores, err := w.scores.ComputeDailyScores(ctx, region, day)
		if err != nil {
			w.logger.ErrorContext(ctx, "failed to warm daily scores", "region_id", region, "error", err)
			continue
		}
		done++
		w.logger.DebugContext(ctx, "daily scores warmed", "region_id", region, "locations", len(scores))
	}
	w.logger.InfoContext(ctx, "score warm-up complete",
		"date", types.Day(day).Format(types.DateLayout),
		"regions", len(regions),
		"succeeded", done,
	)
	return done, nil
}
