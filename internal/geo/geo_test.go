package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		d := Haversine(12.9, 77.5, 12.9, 77.5)
		assert.InDelta(t, 0.0, d, 1e-6)
	})

	t.Run("symmetric", func(t *testing.T) {
		d1 := Haversine(0, 0, 0, 0.01)
		d2 := Haversine(0, 0.01, 0, 0)
		assert.InDelta(t, d1, d2, 1e-9)
	})

	t.Run("known one-hundredth-degree longitude spacing near equator", func(t *testing.T) {
		// ~1111.95m for 0.01 deg of longitude at the equator with R = 6371 km.
		d := Haversine(0, 0, 0, 0.01)
		assert.InDelta(t, 1111.95, d, 1.0)
	})
}

func TestProjectPointOntoPolyline(t *testing.T) {
	polyline := []LatLng{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 0.01},
		{Lat: 0, Lng: 0.02},
	}

	t.Run("exact match on first vertex", func(t *testing.T) {
		idx, cum := ProjectPointOntoPolyline(LatLng{Lat: 0, Lng: 0}, polyline)
		assert.Equal(t, 0, idx)
		assert.InDelta(t, 0.0, cum, 1e-6)
	})

	t.Run("nearest vertex with cumulative distance", func(t *testing.T) {
		idx, cum := ProjectPointOntoPolyline(LatLng{Lat: 0.0001, Lng: 0.02}, polyline)
		assert.Equal(t, 2, idx)
		assert.InDelta(t, Haversine(0, 0, 0, 0.02), cum, 1.0)
	})

	t.Run("empty polyline", func(t *testing.T) {
		idx, cum := ProjectPointOntoPolyline(LatLng{Lat: 0, Lng: 0}, nil)
		assert.Equal(t, 0, idx)
		assert.Equal(t, 0.0, cum)
	})
}
