package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGeoPoint(t *testing.T) {
	t.Run("accepts in-range coordinates", func(t *testing.T) {
		cases := []struct {
			lat, lng float64
		}{
			{0, 0},
			{12.9716, 77.5946},
			{-90, -180},
			{90, 180},
			{-45.5, 120.25},
		}
		for _, tc := range cases {
			point, err := NewGeoPoint(tc.lat, tc.lng)
			require.NoError(t, err)
			require.Equal(t, tc.lat, point.Latitude)
			require.Equal(t, tc.lng, point.Longitude)
		}
	})

	t.Run("rejects out-of-range coordinates", func(t *testing.T) {
		cases := []struct {
			name     string
			lat, lng float64
		}{
			{"latitude too high", 91, 0},
			{"latitude too low", -90.01, 0},
			{"longitude too high", 0, 180.5},
			{"longitude too low", 0, -181},
			{"both out of range", 100, 200},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewGeoPoint(tc.lat, tc.lng)
				require.Error(t, err)
			})
		}
	})
}

func TestHaversineKm(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		p := GeoPoint{Latitude: 12.9716, Longitude: 77.5946}
		require.Equal(t, 0.0, HaversineKm(p, p))
	})

	t.Run("known distance within tolerance", func(t *testing.T) {
		// Central Bangalore to Whitefield, roughly 17 km
		from := GeoPoint{Latitude: 12.9716, Longitude: 77.5946}
		to := GeoPoint{Latitude: 12.9698, Longitude: 77.7500}
		distance := HaversineKm(from, to)
		require.InDelta(t, 16.9, distance, 1.0)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := GeoPoint{Latitude: 12.9279, Longitude: 77.6271}
		b := GeoPoint{Latitude: 13.0355, Longitude: 77.5986}
		require.InDelta(t, HaversineKm(a, b), HaversineKm(b, a), 1e-9)
	})
}
