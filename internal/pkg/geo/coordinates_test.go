package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/gurume/internal/app/models"
)

func TestHasValidCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		want     bool
	}{
		{"istanbul", 41.0082, 28.9784, true},
		{"zero placeholder", 0, 0, false},
		{"latitude too high", 91, 10, false},
		{"longitude too low", 10, -181, false},
		{"equator is fine", 0, 32.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasValidCoordinates(tt.lat, tt.lng))
		})
	}
}

func TestHaversineKm(t *testing.T) {
	istanbul := models.Coordinates{Latitude: 41.0082, Longitude: 28.9784}
	ankara := models.Coordinates{Latitude: 39.9334, Longitude: 32.8597}

	assert.InDelta(t, 350, HaversineKm(istanbul, ankara), 5)
	assert.Zero(t, HaversineKm(istanbul, istanbul))
}

func TestPathDistanceKm(t *testing.T) {
	t.Run("needs two valid points", func(t *testing.T) {
		_, ok := PathDistanceKm([]models.Coordinates{{Latitude: 41, Longitude: 29}, {}})
		assert.False(t, ok)
	})

	t.Run("sums legs and skips invalid", func(t *testing.T) {
		a := models.Coordinates{Latitude: 41.0340, Longitude: 28.9770}
		b := models.Coordinates{Latitude: 41.0369, Longitude: 28.9850}
		c := models.Coordinates{Latitude: 41.0422, Longitude: 28.9870}
		km, ok := PathDistanceKm([]models.Coordinates{a, {}, b, c})
		assert.True(t, ok)
		want := HaversineKm(a, b) + HaversineKm(b, c)
		assert.InDelta(t, want, km, 0.06)
	})
}
