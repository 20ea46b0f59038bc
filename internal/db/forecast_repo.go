package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"swellwatch/internal/types"
)

// ForecastRepository persists one snapshot per region per day.
type ForecastRepository struct {
	db DBTX
}

func NewForecastRepository(db DBTX) *ForecastRepository {
	return &ForecastRepository{db: db}
}

// Get returns nil, nil when no snapshot is stored for the day.
func (r *ForecastRepository) Get(ctx context.Context, regionID string, date time.Time) (*types.ForecastSnapshot, error) {
	var (
		f      types.ForecastSnapshot
		source *string
	)
	err := r.db.QueryRow(ctx,
		`SELECT region_id, forecast_date, wind_speed_knots, wind_direction_deg,
		        swell_height_m, swell_period_s, swell_direction_deg, source, fetched_at
		 FROM forecast_snapshots
		 WHERE region_id = $1 AND forecast_date = $2`,
		regionID, dateOnly(date),
	).Scan(
		&f.RegionID,
		&f.Date,
		&f.WindSpeedKnots,
		&f.WindDirectionDeg,
		&f.SwellHeightM,
		&f.SwellPeriodS,
		&f.SwellDirectionDeg,
		&source,
		&f.FetchedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get forecast snapshot", err)
	}
	f.Source = derefString(source)
	return &f, nil
}

// Upsert stores the snapshot, replacing any earlier one for the same day.
func (r *ForecastRepository) Upsert(ctx context.Context, f *types.ForecastSnapshot) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO forecast_snapshots
		 (region_id, forecast_date, wind_speed_knots, wind_direction_deg,
		  swell_height_m, swell_period_s, swell_direction_deg, source, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
		 ON CONFLICT (region_id, forecast_date) DO UPDATE SET
		   wind_speed_knots    = EXCLUDED.wind_speed_knots,
		   wind_direction_deg  = EXCLUDED.wind_direction_deg,
		   swell_height_m      = EXCLUDED.swell_height_m,
		   swell_period_s      = EXCLUDED.swell_period_s,
		   swell_direction_deg = EXCLUDED.swell_direction_deg,
		   source              = EXCLUDED.source,
		   fetched_at          = EXCLUDED.fetched_at`,
		f.RegionID,
		dateOnly(f.Date),
		f.WindSpeedKnots,
		f.WindDirectionDeg,
		f.SwellHeightM,
		f.SwellPeriodS,
		f.SwellDirectionDeg,
		nilIfEmpty(f.Source),
		nilIfZeroTime(f.FetchedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert forecast snapshot", err)
	}
	return nil
}
