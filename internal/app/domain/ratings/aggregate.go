// Package ratings owns route ratings and the rating aggregate stored on
// each route. The aggregate is computed here and nowhere else.
package ratings

import (
	"fmt"
	"math"

	"github.com/FACorreiaa/gurume/internal/app/models"
)

const (
	MinScore = 1.0
	MaxScore = 5.0
)

// Aggregate is the mean score and number of ratings of a route.
type Aggregate struct {
	Average float64
	Count   int
}

// Add folds one accepted score into the aggregate. The first rating sets
// the average directly.
func (a Aggregate) Add(score float64) Aggregate {
	if a.Count <= 0 {
		return Aggregate{Average: score, Count: 1}
	}
	n := a.Count + 1
	return Aggregate{
		Average: (a.Average*float64(a.Count) + score) / float64(n),
		Count:   n,
	}
}

// Recompute derives the aggregate from the full set of scores. Updates and
// deletes use it instead of adjusting the running mean.
func Recompute(scores []float64) Aggregate {
	if len(scores) == 0 {
		return Aggregate{}
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return Aggregate{Average: sum / float64(len(scores)), Count: len(scores)}
}

// Summary attaches the aggregate to a route id.
func (a Aggregate) Summary(routeID string) models.RatingSummary {
	return models.RatingSummary{RouteID: routeID, AverageRating: a.Average, RatingCount: a.Count}
}

// ValidateScore accepts whole and half scores from 1 to 5.
func ValidateScore(score float64) error {
	if math.IsNaN(score) || score < MinScore || score > MaxScore {
		return fmt.Errorf("%w: got %v", models.ErrInvalidScore, score)
	}
	if doubled := score * 2; doubled != math.Trunc(doubled) {
		return fmt.Errorf("%w: got %v", models.ErrInvalidScore, score)
	}
	return nil
}
