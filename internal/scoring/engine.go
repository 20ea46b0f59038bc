// Package scoring turns a location profile and a day's forecast into a 0..5
// surf quality score by accumulating deductions from a perfect 5.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"swellwatch/internal/direction"
	"swellwatch/internal/types"
)

const (
	MaxScore = 5
	MinScore = 0

	strongWindKnots   = 35.0
	moderateWindKnots = 25.0
)

// Breakdown itemises the deductions behind a score.
type Breakdown struct {
	WindDirection  float64 `json:"wind_direction"`
	WindSpeed      float64 `json:"wind_speed"`
	WaveSize       float64 `json:"wave_size"`
	SwellDirection float64 `json:"swell_direction"`
	SwellPeriod    float64 `json:"swell_period"`
}

// Total is the sum of all deductions.
func (b Breakdown) Total() float64 {
	return b.WindDirection + b.WindSpeed + b.WaveSize + b.SwellDirection + b.SwellPeriod
}

// Score converts the deductions to the final integer score.
func (b Breakdown) Score() int {
	s := int(math.Round(MaxScore - b.Total()))
	return clamp(s, MinScore, MaxScore)
}

// Engine computes scores. It is stateless apart from its logger and safe for
// concurrent use.
type Engine struct {
	logger *slog.Logger
}

// NewEngine returns an Engine. A nil logger falls back to slog.Default.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Score returns the 0..5 score for one location. Malformed profile or
// forecast data is logged and scores 0; it never fails.
func (e *Engine) Score(ctx context.Context, profile *types.LocationProfile, forecast *types.ForecastSnapshot) int {
	score, err := e.TryScore(profile, forecast)
	if err != nil {
		e.logger.ErrorContext(ctx, "score computation failed, defaulting to 0",
			"location_id", locationID(profile),
			"error", err,
		)
		return MinScore
	}
	return score
}

// TryScore is Score with the computation fault surfaced to the caller.
func (e *Engine) TryScore(profile *types.LocationProfile, forecast *types.ForecastSnapshot) (int, error) {
	b, err := e.Breakdown(profile, forecast)
	if err != nil {
		return MinScore, err
	}
	return b.Score(), nil
}

// Breakdown computes every deduction. It returns a computation AppError when
// the inputs cannot be scored.
func (e *Engine) Breakdown(profile *types.LocationProfile, forecast *types.ForecastSnapshot) (Breakdown, error) {
	if err := checkProfile(profile); err != nil {
		return Breakdown{}, err
	}
	if err := checkForecast(forecast); err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{
		WindDirection:  windDirectionDeduction(profile.OptimalWindDirections, forecast.WindDirectionDeg),
		WaveSize:       waveSizeDeduction(profile.SwellSize.DistanceOutside(forecast.SwellHeightM)),
		SwellDirection: swellDirectionDeduction(profile.OptimalSwellDirection.DistanceOutside(direction.Normalize(forecast.SwellDirectionDeg))),
		SwellPeriod:    swellPeriodDeduction(profile.IdealSwellPeriod.DistanceOutside(forecast.SwellPeriodS)),
	}
	if !profile.Sheltered {
		b.WindSpeed = windSpeedDeduction(forecast.WindSpeedKnots)
	}
	return b, nil
}

func windDirectionDeduction(optimal []direction.Cardinal, windDeg float64) float64 {
	actual := direction.FromDegrees(windDeg)
	minDist := math.Inf(1)
	for _, c := range optimal {
		if c == actual {
			return 0
		}
		if d := direction.AngularDistance(windDeg, c.Degrees()); d < minDist {
			minDist = d
		}
	}
	switch {
	case minDist <= 22.5:
		return 1
	case minDist <= 45:
		return 2
	case minDist <= 90:
		return 3
	default:
		return 4
	}
}

func windSpeedDeduction(knots float64) float64 {
	switch {
	case knots > strongWindKnots:
		return 2
	case knots > moderateWindKnots:
		return 1.5
	default:
		return 0
	}
}

func waveSizeDeduction(dist float64) float64 {
	switch {
	case dist == 0:
		return 0
	case dist <= 0.5:
		return 1
	case dist <= 1:
		return 2
	default:
		return 3
	}
}

func swellDirectionDeduction(dist float64) float64 {
	switch {
	case dist == 0:
		return 0
	case dist <= 10:
		return 1
	case dist <= 20:
		return 2
	case dist <= 30:
		return 3
	default:
		return 4
	}
}

func swellPeriodDeduction(dist float64) float64 {
	switch {
	case dist == 0:
		return 0
	case dist <= 2:
		return 1
	default:
		return 2
	}
}

func checkProfile(p *types.LocationProfile) error {
	if p == nil {
		return types.NewAppError(types.ErrCodeComputationProfile, "location profile is nil", nil)
	}
	fault := func(msg string) error {
		return types.NewAppError(types.ErrCodeComputationProfile, msg, nil).
			WithDetails(map[string]any{"location_id": p.ID})
	}
	if len(p.OptimalWindDirections) == 0 {
		return fault("no optimal wind directions")
	}
	for _, c := range p.OptimalWindDirections {
		if !c.Valid() {
			return fault(fmt.Sprintf("unknown wind direction %q", c))
		}
	}
	if !p.SwellSize.Valid() {
		return fault("invalid swell size range")
	}
	if !p.OptimalSwellDirection.Valid() {
		return fault("invalid swell direction range")
	}
	if !p.IdealSwellPeriod.Valid() {
		return fault("invalid swell period range")
	}
	return nil
}

func checkForecast(f *types.ForecastSnapshot) error {
	if f == nil {
		return types.NewAppError(types.ErrCodeComputationForecast, "forecast is nil", nil)
	}
	for _, v := range []float64{f.WindSpeedKnots, f.WindDirectionDeg, f.SwellHeightM, f.SwellPeriodS, f.SwellDirectionDeg} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return types.NewAppError(types.ErrCodeComputationForecast, "forecast has non-finite values", nil).
				WithDetails(map[string]any{"region_id": f.RegionID})
		}
	}
	return nil
}

func locationID(p *types.LocationProfile) string {
	if p == nil {
		return ""
	}
	return p.ID
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
