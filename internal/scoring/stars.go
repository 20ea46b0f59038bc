package scoring

import "math"

// starScale converts the halved 0..5 score back onto the five-star scale.
const starScale = 2.0

const (
	MinStars = 1
	MaxStars = 5
)

// StarRating derives the 1..5 star value from a 0..5 score. It is the only
// place this conversion happens.
func StarRating(score int) int {
	stars := int(math.Round(float64(score) / 2 * starScale))
	return clamp(stars, MinStars, MaxStars)
}
