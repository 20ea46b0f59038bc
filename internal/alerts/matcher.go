// Package alerts evaluates users' standing alerts against the day's
// forecast and scores, and fires at most one notification per alert per day.
package alerts

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"swellwatch/internal/direction"
	"swellwatch/internal/scoring"
	"swellwatch/internal/types"
)

// Explanations for non-matches caused by absent data.
const (
	ExplainNoForecast          = "no forecast available"
	ExplainNoReferenceForecast = "no reference forecast available"
	ExplainNoDailyScore        = "no daily score available"
)

// Matcher decides whether an alert fires. It holds no state and never
// writes anything.
type Matcher struct{}

func NewMatcher() *Matcher { return &Matcher{} }

// Evaluate dispatches on the payload variant. forecast is the region's
// snapshot for the day; score is the daily score of the alert's target
// location. Either may be nil.
func (m *Matcher) Evaluate(alert *types.Alert, forecast *types.ForecastSnapshot, score *types.DailyScore) types.MatchResult {
	switch p := alert.Payload.(type) {
	case types.VariablesPayload:
		return m.evaluateVariables(p, forecast)
	case types.RatingPayload:
		return m.evaluateRating(p, score)
	default:
		return types.MatchResult{Explanation: fmt.Sprintf("unsupported alert type %q", alert.Type)}
	}
}

func (m *Matcher) evaluateVariables(p types.VariablesPayload, forecast *types.ForecastSnapshot) types.MatchResult {
	if forecast == nil {
		return types.MatchResult{Explanation: ExplainNoForecast, MissingInput: true}
	}
	if p.ReferenceForecast == nil {
		return types.MatchResult{Explanation: ExplainNoReferenceForecast, MissingInput: true}
	}
	if len(p.Properties) == 0 {
		return types.MatchResult{Explanation: "no properties configured"}
	}

	comparisons := make([]types.PropertyComparison, 0, len(p.Properties))
	var failed []string
	for _, tol := range p.Properties {
		c := compare(tol, forecast, p.ReferenceForecast)
		comparisons = append(comparisons, c)
		if !c.Matched {
			failed = append(failed, fmt.Sprintf("%s off by %s (allowed %s)",
				tol.Property, trimFloat(c.Difference), trimFloat(c.Range)))
		}
	}

	res := types.MatchResult{ComparedProperties: comparisons}
	if len(failed) == 0 {
		res.Matched = true
		res.Explanation = fmt.Sprintf("all %d properties within range", len(comparisons))
	} else {
		res.Explanation = strings.Join(failed, "; ")
	}
	return res
}

func compare(tol types.PropertyTolerance, forecast, reference *types.ForecastSnapshot) types.PropertyComparison {
	c := types.PropertyComparison{Property: tol.Property, Range: tol.Range}
	fv, ok := forecast.Value(tol.Property)
	if !ok {
		c.Difference = math.Inf(1)
		return c
	}
	rv, _ := reference.Value(tol.Property)
	c.ForecastValue = fv
	c.ReferenceValue = rv
	if tol.Property.IsDirectional() {
		c.Difference = direction.AngularDistance(fv, rv)
	} else {
		c.Difference = math.Abs(fv - rv)
	}
	c.Matched = c.Difference <= tol.Range
	return c
}

func (m *Matcher) evaluateRating(p types.RatingPayload, score *types.DailyScore) types.MatchResult {
	if score == nil {
		return types.MatchResult{Explanation: ExplainNoDailyScore, MissingInput: true}
	}
	stars := CurrentStars(score)
	res := types.MatchResult{
		StarRating: &stars,
		LocationID: score.LocationID,
		Matched:    stars >= p.MinStarRating,
	}
	if res.Matched {
		res.Explanation = fmt.Sprintf("%d stars meets minimum of %d", stars, p.MinStarRating)
	} else {
		res.Explanation = fmt.Sprintf("%d stars below minimum of %d", stars, p.MinStarRating)
	}
	return res
}

// CurrentStars prefers the stored star rating and derives it from the score
// when the stored value is out of range.
func CurrentStars(score *types.DailyScore) int {
	if score.StarRating >= 1 && score.StarRating <= 5 {
		return score.StarRating
	}
	return scoring.StarRating(score.Score)
}

// TargetScore picks the score a Rating alert is judged on: the alert's own
// location, or the region's best location when the alert names none.
func TargetScore(alert *types.Alert, scores map[string]types.DailyScore) *types.DailyScore {
	if alert.LocationID != "" {
		ds, ok := scores[alert.LocationID]
		if !ok {
			return nil
		}
		return &ds
	}
	return BestScore(scores)
}

// BestScore returns the highest scoring location, ties broken by location
// ID so the choice is stable.
func BestScore(scores map[string]types.DailyScore) *types.DailyScore {
	if len(scores) == 0 {
		return nil
	}
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	best := scores[ids[0]]
	for _, id := range ids[1:] {
		if ds := scores[id]; ds.Score > best.Score {
			best = ds
		}
	}
	return &best
}

func trimFloat(v float64) string {
	if math.IsInf(v, 0) {
		return "n/a"
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
