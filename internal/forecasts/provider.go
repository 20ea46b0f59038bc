// Package forecasts resolves a region's daily forecast snapshot from, in
// order, a shared redis cache, the postgres snapshot store and the external
// forecast provider.
package forecasts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"swellwatch/internal/external"
	"swellwatch/internal/types"
)

// maxResponseBytes bounds a decoded provider response.
const maxResponseBytes = 1 << 20

// ProviderConfig configures the HTTP forecast provider.
type ProviderConfig struct {
	BaseURL string
	APIKey  types.SecretString
	Logger  *slog.Logger
}

// HTTPProvider fetches daily region forecasts from the provider's REST API:
// GET {base}/v1/regions/{region}/forecast?date=YYYY-MM-DD.
type HTTPProvider struct {
	base    *external.BaseClient
	baseURL string
	apiKey  types.SecretString
	logger  *slog.Logger
	now     func() time.Time
}

func NewHTTPProvider(httpClient *http.Client, cfg ProviderConfig, opts ...external.BaseClientOption) *HTTPProvider {
	opts = append([]external.BaseClientOption{external.WithUpstreamCode(types.ErrCodeUpstreamForecast)}, opts...)
	base := external.NewBaseClient(
		httpClient,
		"forecast-provider",
		external.RetryPolicy{MaxRetries: 2, MinWait: 250 * time.Millisecond, MaxWait: 2 * time.Second},
		"SwellWatch/1.0",
		opts...,
	)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPProvider{
		base:    base,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type providerResponse struct {
	RegionID string `json:"region_id"`
	Date     string `json:"date"`
	Wind     struct {
		SpeedKnots   *float64 `json:"speed_kt"`
		DirectionDeg *float64 `json:"direction_deg"`
	} `json:"wind"`
	Swell struct {
		HeightM      *float64 `json:"height_m"`
		PeriodS      *float64 `json:"period_s"`
		DirectionDeg *float64 `json:"direction_deg"`
	} `json:"swell"`
}

// GetForecast returns nil, nil when the provider has no forecast for the day.
func (p *HTTPProvider) GetForecast(ctx context.Context, regionID string, date time.Time) (*types.ForecastSnapshot, error) {
	day := types.Day(date)
	endpoint := fmt.Sprintf("%s/v1/regions/%s/forecast?date=%s",
		p.baseURL, url.PathEscape(regionID), day.Format(types.DateLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create forecast request", err)
	}
	req.Header.Set("Accept", "application/json")
	// Setting Accept-Encoding disables net/http's transparent gzip, so the
	// body is decoded below.
	req.Header.Set("Accept-Encoding", "zstd, gzip")
	if !p.apiKey.IsZero() {
		req.Header.Set("X-API-Key", p.apiKey.Unmask())
	}

	resp, err := p.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast,
			fmt.Sprintf("forecast provider returned %d", resp.StatusCode), nil)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "failed to decode forecast response", err)
	}
	defer body.Close()

	var pr providerResponse
	if err := json.NewDecoder(io.LimitReader(body, maxResponseBytes)).Decode(&pr); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "malformed forecast response", err)
	}
	return p.toSnapshot(regionID, day, &pr)
}

func (p *HTTPProvider) toSnapshot(regionID string, day time.Time, pr *providerResponse) (*types.ForecastSnapshot, error) {
	fields := []*float64{pr.Wind.SpeedKnots, pr.Wind.DirectionDeg, pr.Swell.HeightM, pr.Swell.PeriodS, pr.Swell.DirectionDeg}
	for _, f := range fields {
		if f == nil {
			return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "forecast response is missing fields", nil).
				WithDetails(map[string]any{"region_id": regionID})
		}
	}
	if pr.Date != "" && pr.Date != day.Format(types.DateLayout) {
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast,
			fmt.Sprintf("forecast response is for %s, requested %s", pr.Date, day.Format(types.DateLayout)), nil)
	}
	return &types.ForecastSnapshot{
		RegionID:          regionID,
		Date:              day,
		WindSpeedKnots:    *pr.Wind.SpeedKnots,
		WindDirectionDeg:  *pr.Wind.DirectionDeg,
		SwellHeightM:      *pr.Swell.HeightM,
		SwellPeriodS:      *pr.Swell.PeriodS,
		SwellDirectionDeg: *pr.Swell.DirectionDeg,
		Source:            "provider",
		FetchedAt:         p.now(),
	}, nil
}

func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "zstd":
		d, err := zstd.NewReader(resp.Body, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}
