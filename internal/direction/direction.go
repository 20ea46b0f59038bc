// Package direction converts between compass bearings in degrees and the
// 16-point cardinal rose used by location profiles and forecasts.
package direction

import (
	"fmt"
	"math"
	"strings"
)

// Cardinal is one of the 16 named compass points.
type Cardinal string

const (
	N   Cardinal = "N"
	NNE Cardinal = "NNE"
	NE  Cardinal = "NE"
	ENE Cardinal = "ENE"
	E   Cardinal = "E"
	ESE Cardinal = "ESE"
	SE  Cardinal = "SE"
	SSE Cardinal = "SSE"
	S   Cardinal = "S"
	SSW Cardinal = "SSW"
	SW  Cardinal = "SW"
	WSW Cardinal = "WSW"
	W   Cardinal = "W"
	WNW Cardinal = "WNW"
	NW  Cardinal = "NW"
	NNW Cardinal = "NNW"
)

// Step is the angular spacing between adjacent points.
const Step = 22.5

// points is the iteration order. FromDegrees relies on it for tie-breaking,
// so it must not be reordered.
var points = [16]Cardinal{N, NNE, NE, ENE, E, ESE, SE, SSE, S, SSW, SW, WSW, W, WNW, NW, NNW}

var index = func() map[Cardinal]int {
	m := make(map[Cardinal]int, len(points))
	for i, p := range points {
		m[p] = i
	}
	return m
}()

// All returns the 16 points in iteration order.
func All() []Cardinal {
	out := make([]Cardinal, len(points))
	copy(out, points[:])
	return out
}

// Valid reports whether c is one of the 16 points.
func (c Cardinal) Valid() bool {
	_, ok := index[c]
	return ok
}

// Degrees returns the canonical bearing of the point (N=0, E=90, ...).
// Unknown values return NaN.
func (c Cardinal) Degrees() float64 {
	i, ok := index[c]
	if !ok {
		return math.NaN()
	}
	return float64(i) * Step
}

// Parse accepts a cardinal name in any case.
func Parse(s string) (Cardinal, error) {
	c := Cardinal(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("direction: unknown cardinal %q", s)
	}
	return c, nil
}

// Normalize folds any bearing into [0, 360).
func Normalize(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// AngularDistance is the shortest arc between two bearings, in [0, 180].
func AngularDistance(a, b float64) float64 {
	d := math.Abs(Normalize(a) - Normalize(b))
	return math.Min(d, 360-d)
}

// FromDegrees maps a bearing to the nearest point by circular distance.
// On an exact tie the earlier point in iteration order wins.
func FromDegrees(deg float64) Cardinal {
	best := points[0]
	bestDist := math.Inf(1)
	for i, p := range points {
		d := AngularDistance(deg, float64(i)*Step)
		if d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}
