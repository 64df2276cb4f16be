package geo

import (
	"math"

	"github.com/FACorreiaa/gurume/internal/app/models"
)

const earthRadiusKm = 6371.0

// InRange checks latitude is within [-90, 90] and longitude within [-180, 180].
func InRange(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// HasValidCoordinates rejects out of range points and the 0,0 placeholder
// that usually means missing data.
func HasValidCoordinates(lat, lng float64) bool {
	if lat == 0 && lng == 0 {
		return false
	}
	return InRange(lat, lng)
}

// HaversineKm is the great-circle distance between two points.
func HaversineKm(a, b models.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// PathDistanceKm sums the legs between consecutive valid points, rounded to
// one decimal. ok is false when fewer than two valid points exist.
func PathDistanceKm(points []models.Coordinates) (km float64, ok bool) {
	var prev *models.Coordinates
	legs := 0
	for i := range points {
		p := points[i]
		if !HasValidCoordinates(p.Latitude, p.Longitude) {
			continue
		}
		if prev != nil {
			km += HaversineKm(*prev, p)
			legs++
		}
		prev = &p
	}
	if legs == 0 {
		return 0, false
	}
	return math.Round(km*10) / 10, true
}
