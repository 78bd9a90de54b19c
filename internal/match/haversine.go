// Package match associates sample coordinates with catalog volcanoes using
// great-circle proximity and an adaptively shrinking search radius.
package match

import "math"

// earthRadiusKM is the mean Earth radius.
const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance in kilometers between two
// coordinates given in decimal degrees.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	cosine := math.Sin(rlat1)*math.Sin(rlat2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Cos(dlon)
	// Float error can push the dot product marginally outside [-1, 1].
	cosine = math.Min(1, math.Max(-1, cosine))

	return earthRadiusKM * math.Acos(cosine)
}
