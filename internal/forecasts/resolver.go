package forecasts

import (
	"context"
	"log/slog"
	"time"

	"swellwatch/internal/types"
)

// Provider is the external forecast source.
type Provider interface {
	GetForecast(ctx context.Context, regionID string, date time.Time) (*types.ForecastSnapshot, error)
}

// Store is the persisted snapshot table.
type Store interface {
	Get(ctx context.Context, regionID string, date time.Time) (*types.ForecastSnapshot, error)
	Upsert(ctx context.Context, f *types.ForecastSnapshot) error
}

// Cache is an optional shared cache in front of the store.
type Cache interface {
	Get(ctx context.Context, regionID string, date time.Time) (*types.ForecastSnapshot, error)
	Put(ctx context.Context, f *types.ForecastSnapshot) error
}

// Resolver looks a snapshot up in the cache, then the store, then the
// provider, writing back to the earlier layers on a miss. Cache and store
// failures are logged and skipped; only a provider failure is returned.
type Resolver struct {
	cache           Cache
	store           Store
	provider        Provider
	providerTimeout time.Duration
	logger          *slog.Logger
}

// ResolverConfig wires a Resolver. Cache may be nil.
type ResolverConfig struct {
	Cache           Cache
	Store           Store
	Provider        Provider
	ProviderTimeout time.Duration
	Logger          *slog.Logger
}

func NewResolver(cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		cache:           cfg.Cache,
		store:           cfg.Store,
		provider:        cfg.Provider,
		providerTimeout: timeout,
		logger:          logger,
	}
}

// GetForecast returns nil, nil when no layer has a forecast for the day.
func (r *Resolver) GetForecast(ctx context.Context, regionID string, date time.Time) (*types.ForecastSnapshot, error) {
	day := types.Day(date)

	if r.cache != nil {
		f, err := r.cache.Get(ctx, regionID, day)
		if err != nil {
			r.logger.WarnContext(ctx, "forecast cache read failed", "region_id", regionID, "error", err)
		} else if f != nil {
			return f, nil
		}
	}

	if r.store != nil {
		f, err := r.store.Get(ctx, regionID, day)
		if err != nil {
			r.logger.WarnContext(ctx, "forecast store read failed", "region_id", regionID, "error", err)
		} else if f != nil {
			r.fill(ctx, f, false)
			return f, nil
		}
	}

	if r.provider == nil {
		return nil, nil
	}
	pctx, cancel := context.WithTimeout(ctx, r.providerTimeout)
	defer cancel()
	f, err := r.provider.GetForecast(pctx, regionID, day)
	if err != nil {
		return nil, err
	}
	if f == nil {
		r.logger.InfoContext(ctx, "no forecast available", "region_id", regionID, "date", day.Format(types.DateLayout))
		return nil, nil
	}
	r.fill(ctx, f, true)
	return f, nil
}

func (r *Resolver) fill(ctx context.Context, f *types.ForecastSnapshot, toStore bool) {
	if toStore && r.store != nil {
		if err := r.store.Upsert(ctx, f); err != nil {
			r.logger.WarnContext(ctx, "forecast store write failed", "region_id", f.RegionID, "error", err)
		}
	}
	if r.cache != nil {
		if err := r.cache.Put(ctx, f); err != nil {
			r.logger.WarnContext(ctx, "forecast cache write failed", "region_id", f.RegionID, "error", err)
		}
	}
}
