package models

import (
	"fmt"
	"math"
)

// GeoPoint is a WGS84 latitude/longitude pair. Every point stored or
// broadcast by the system goes through NewGeoPoint first.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// NewGeoPoint validates coordinate ranges. Out-of-range input is rejected,
// never clamped.
func NewGeoPoint(latitude, longitude float64) (GeoPoint, error) {
	if math.IsNaN(latitude) || latitude < -90 || latitude > 90 {
		return GeoPoint{}, fmt.Errorf("latitude must be between -90 and 90, got %v", latitude)
	}
	if math.IsNaN(longitude) || longitude < -180 || longitude > 180 {
		return GeoPoint{}, fmt.Errorf("longitude must be between -180 and 180, got %v", longitude)
	}
	return GeoPoint{Latitude: latitude, Longitude: longitude}, nil
}

// HaversineKm calculates the great-circle distance between two GPS
// coordinates in kilometers.
func HaversineKm(from, to GeoPoint) float64 {
	const earthRadius = 6371.0 // Earth's radius in kilometers

	lat1Rad := from.Latitude * math.Pi / 180
	lat2Rad := to.Latitude * math.Pi / 180
	deltaLat := (to.Latitude - from.Latitude) * math.Pi / 180
	deltaLon := (to.Longitude - from.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
