package db

import (
	"context"
	"time"

	"swellwatch/internal/types"
)

// ScoreRepository stores daily scores keyed by (location_id, score_date).
type ScoreRepository struct {
	db DBTX
}

func NewScoreRepository(db DBTX) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// ListByRegionDate returns the stored scores for a region's day.
func (r *ScoreRepository) ListByRegionDate(ctx context.Context, regionID string, date time.Time) ([]types.DailyScore, error) {
	rows, err := r.db.Query(ctx,
		`SELECT location_id, region_id, score_date, score, star_rating, computed, computed_at
		 FROM daily_scores
		 WHERE region_id = $1 AND score_date = $2
		 ORDER BY location_id`,
		regionID, dateOnly(date),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list daily scores", err)
	}
	defer rows.Close()

	var out []types.DailyScore
	for rows.Next() {
		var s types.DailyScore
		if err := rows.Scan(
			&s.LocationID,
			&s.RegionID,
			&s.Date,
			&s.Score,
			&s.StarRating,
			&s.Computed,
			&s.ComputedAt,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan daily score", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate daily scores", err)
	}
	return out, nil
}

// Upsert writes one score. Re-running with identical values leaves the row
// unchanged apart from computed_at.
func (r *ScoreRepository) Upsert(ctx context.Context, s *types.DailyScore) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO daily_scores
		 (location_id, region_id, score_date, score, star_rating, computed, computed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
		 ON CONFLICT (location_id, score_date) DO UPDATE SET
		   score       = EXCLUDED.score,
		   star_rating = EXCLUDED.star_rating,
		   computed    = EXCLUDED.computed,
		   computed_at = EXCLUDED.computed_at`,
		s.LocationID,
		s.RegionID,
		dateOnly(s.Date),
		s.Score,
		s.StarRating,
		s.Computed,
		nilIfZeroTime(s.ComputedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert daily score", err)
	}
	return nil
}
