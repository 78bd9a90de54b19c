package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKM_Zero(t *testing.T) {
	assert.Equal(t, 0.0, HaversineKM(37.748, 14.999, 37.748, 14.999))
}

func TestHaversineKM_Symmetric(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
	}{
		{name: "mid latitude", lat1: 37.748, lon1: 14.999, lat2: 40.821, lon2: 14.426},
		{name: "across equator", lat1: -1.467, lon1: 29.25, lat2: 0.52, lon2: 29.45},
		{name: "across antimeridian", lat1: 52.825, lon1: 178.006, lat2: 51.93, lon2: -178.146},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab := HaversineKM(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			ba := HaversineKM(tt.lat2, tt.lon2, tt.lat1, tt.lon1)
			assert.Equal(t, ab, ba)
			assert.Greater(t, ab, 0.0)
		})
	}
}

func TestHaversineKM_KnownDistances(t *testing.T) {
	// One degree of latitude is R * pi / 180 everywhere.
	oneDegree := 6371.0 * 3.141592653589793 / 180
	assert.InDelta(t, oneDegree, HaversineKM(0, 0, 1, 0), 0.01)

	// Etna to Vesuvius, roughly 360 km.
	assert.InDelta(t, 360, HaversineKM(37.748, 14.999, 40.821, 14.426), 15)
}

func TestHaversineKM_AntipodalClamp(t *testing.T) {
	// Antipodal points must not produce NaN from acos rounding.
	d := HaversineKM(0, 0, 0, 180)
	assert.False(t, d != d, "distance is NaN")
	assert.InDelta(t, 6371.0*3.141592653589793, d, 1)
}
