package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"swellwatch/internal/types"
)

// LocationRepository reads the read-only location catalog.
type LocationRepository struct {
	db DBTX
}

func NewLocationRepository(db DBTX) *LocationRepository {
	return &LocationRepository{db: db}
}

const locationColumns = `id, region_id, name, optimal_wind_directions, sheltered,
	optimal_swell_direction, swell_size, ideal_swell_period`

func scanLocation(row pgx.Row) (types.LocationProfile, error) {
	var (
		p     types.LocationProfile
		winds types.CardinalSet
	)
	err := row.Scan(
		&p.ID,
		&p.RegionID,
		&p.Name,
		&winds,
		&p.Sheltered,
		&p.OptimalSwellDirection,
		&p.SwellSize,
		&p.IdealSwellPeriod,
	)
	p.OptimalWindDirections = winds
	return p, err
}

// ListByRegion returns every location in a region ordered by ID.
func (r *LocationRepository) ListByRegion(ctx context.Context, regionID string) ([]types.LocationProfile, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE region_id = $1 ORDER BY id`,
		regionID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list locations", err)
	}
	defer rows.Close()

	var out []types.LocationProfile
	for rows.Next() {
		p, err := scanLocation(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan location", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate locations", err)
	}
	return out, nil
}

// GetByID returns nil, nil when the location does not exist.
func (r *LocationRepository) GetByID(ctx context.Context, id string) (*types.LocationProfile, error) {
	p, err := scanLocation(r.db.QueryRow(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get location", err)
	}
	return &p, nil
}

// ListRegions returns the distinct region IDs that have locations.
func (r *LocationRepository) ListRegions(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT region_id FROM locations ORDER BY region_id`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list regions", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan region", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate regions", err)
	}
	return out, nil
}
