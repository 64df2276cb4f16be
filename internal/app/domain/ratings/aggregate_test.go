package ratings

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/gurume/internal/app/models"
)

func TestAggregate_Add(t *testing.T) {
	tests := []struct {
		name  string
		start Aggregate
		score float64
		want  Aggregate
	}{
		{"first rating", Aggregate{}, 4, Aggregate{Average: 4, Count: 1}},
		{"stale average ignored when empty", Aggregate{Average: 4.5}, 2, Aggregate{Average: 2, Count: 1}},
		{"running mean", Aggregate{Average: 4, Count: 3}, 2, Aggregate{Average: 3.5, Count: 4}},
		{"half score", Aggregate{Average: 5, Count: 1}, 4.5, Aggregate{Average: 4.75, Count: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.Add(tt.score)
			assert.Equal(t, tt.want.Count, got.Count)
			assert.InDelta(t, tt.want.Average, got.Average, 1e-9)
		})
	}
}

func TestRecompute(t *testing.T) {
	assert.Equal(t, Aggregate{}, Recompute(nil))

	got := Recompute([]float64{5, 4, 3.5, 1.5})
	assert.Equal(t, 4, got.Count)
	assert.InDelta(t, 3.5, got.Average, 1e-9)

	// Incremental adds agree with a full recompute.
	var inc Aggregate
	scores := []float64{3, 4.5, 5, 1, 2.5, 4}
	for _, s := range scores {
		inc = inc.Add(s)
	}
	full := Recompute(scores)
	assert.Equal(t, full.Count, inc.Count)
	assert.InDelta(t, full.Average, inc.Average, 1e-9)
}

func TestAggregate_Summary(t *testing.T) {
	assert.Equal(t,
		models.RatingSummary{RouteID: "r1", AverageRating: 3.5, RatingCount: 2},
		Aggregate{Average: 3.5, Count: 2}.Summary("r1"))
}

func TestValidateScore(t *testing.T) {
	tests := []struct {
		score float64
		ok    bool
	}{
		{1, true},
		{1.5, true},
		{3, true},
		{4.5, true},
		{5, true},
		{0, false},
		{0.5, false},
		{5.5, false},
		{3.3, false},
		{4.25, false},
		{-1, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	}
	for _, tt := range tests {
		err := ValidateScore(tt.score)
		if tt.ok {
			assert.NoError(t, err, "score %v", tt.score)
		} else {
			assert.ErrorIs(t, err, models.ErrInvalidScore, "score %v", tt.score)
			assert.ErrorIs(t, err, models.ErrValidation)
		}
	}
}
