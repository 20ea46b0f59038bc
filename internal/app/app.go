// Package app assembles the alert pipeline from configuration. Each binary
// builds one App at startup and closes it on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"swellwatch/internal/alerts"
	"swellwatch/internal/config"
	"swellwatch/internal/db"
	"swellwatch/internal/external"
	"swellwatch/internal/forecasts"
	"swellwatch/internal/notifications"
	"swellwatch/internal/scores"
	"swellwatch/internal/scoring"
	"swellwatch/internal/types"
)

// App holds the long-lived clients and the services built on them.
type App struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client

	Tx            *db.TxManager
	Alerts        *db.AlertRepository
	Locations     *db.LocationRepository
	Notifications *db.NotificationRepository

	Forecasts *forecasts.Resolver
	Scores    *scores.Store
	Runner    *alerts.Runner
	Engine    *scoring.Engine

	Logger *slog.Logger
}

// Options carries pieces that differ per binary.
type Options struct {
	// Metrics receives per-run counters. Nil disables.
	Metrics alerts.RunMetrics
	Clock   types.Clock
}

// NewLogger builds the JSON logger used by every binary.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// New connects to Postgres (and Redis when configured) and wires the
// forecast resolver, score store, dispatcher and runner.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = types.RealClock{}
	}

	pool, err := NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &App{
		Pool:          pool,
		Tx:            db.NewTxManager(pool),
		Alerts:        db.NewAlertRepository(pool),
		Locations:     db.NewLocationRepository(pool),
		Notifications: db.NewNotificationRepository(pool),
		Engine:        scoring.NewEngine(logger),
		Logger:        logger,
	}

	resolverCfg := forecasts.ResolverConfig{
		Store:           db.NewForecastRepository(pool),
		ProviderTimeout: cfg.Forecast.Timeout,
		Logger:          logger,
	}
	if cfg.Redis.Addr != "" {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password.Unmask(),
			DB:       cfg.Redis.DB,
		})
		resolverCfg.Cache = forecasts.NewRedisCache(a.Redis, cfg.Redis.TTL)
	}
	if cfg.Forecast.APIURL != "" {
		resolverCfg.Provider = forecasts.NewHTTPProvider(
			&http.Client{Timeout: cfg.Forecast.Timeout},
			forecasts.ProviderConfig{BaseURL: cfg.Forecast.APIURL, APIKey: cfg.Forecast.APIKey, Logger: logger},
		)
	} else {
		logger.Warn("FORECAST_API_URL not set, only stored forecasts are used")
	}
	a.Forecasts = forecasts.NewResolver(resolverCfg)

	a.Scores = scores.NewStore(scores.Config{
		Scores:    db.NewScoreRepository(pool),
		Locations: a.Locations,
		Forecasts: a.Forecasts,
		Engine:    a.Engine,
		Clock:     clock,
		Logger:    logger,
	})

	router := notifications.NewRouter(notifications.RouterConfig{
		Email:   emailSender(cfg, logger),
		SMS:     smsSender(cfg, logger),
		Clock:   clock,
		Timeout: cfg.ChannelTimeout,
		Logger:  logger,
	})
	dispatcher := alerts.NewDispatcher(alerts.DispatcherConfig{
		Gate:      a.Notifications,
		Tx:        a.Tx,
		Sender:    router,
		Locations: a.Locations,
		Clock:     clock,
		Logger:    logger,
	})
	a.Runner = alerts.NewRunner(alerts.RunnerConfig{
		Alerts:     a.Alerts,
		Checks:     db.NewCheckRepository(pool),
		Forecasts:  a.Forecasts,
		Scores:     a.Scores,
		Dispatcher: dispatcher,
		Metrics:    opts.Metrics,
		Clock:      clock,
		Logger:     logger,
	})
	return a, nil
}

// NewPool opens and pings a pgx pool.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func emailSender(cfg *config.Config, logger *slog.Logger) external.EmailSender {
	if cfg.Email.SendGridAPIKey.IsZero() {
		logger.Warn("SENDGRID_API_KEY not set, emails are logged only")
		return external.NewLogEmailSender(logger)
	}
	return external.NewSendGridClient(
		&http.Client{Timeout: cfg.ChannelTimeout},
		external.SendGridClientConfig{
			APIKey:    cfg.Email.SendGridAPIKey,
			FromEmail: cfg.Email.FromAddress,
			FromName:  cfg.Email.FromName,
			BaseURL:   cfg.Email.BaseURL,
			Logger:    logger,
		},
	)
}

func smsSender(cfg *config.Config, logger *slog.Logger) external.SMSSender {
	if cfg.SMS.AccountSID == "" {
		logger.Warn("TWILIO_ACCOUNT_SID not set, SMS messages are logged only")
		return external.NewLogSMSSender(logger)
	}
	return external.NewTwilioClient(
		&http.Client{Timeout: cfg.ChannelTimeout},
		external.TwilioClientConfig{
			AccountSID: cfg.SMS.AccountSID,
			AuthToken:  cfg.SMS.AuthToken,
			FromNumber: cfg.SMS.FromNumber,
			BaseURL:    cfg.SMS.BaseURL,
			Logger:     logger,
		},
	)
}

// Close releases the pool and the Redis client.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", "error", err)
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
