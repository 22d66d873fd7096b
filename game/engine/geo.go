package engine

import "github.com/tidwall/geodesic"

// DistanceFunc returns the distance in kilometres between two coordinates
type DistanceFunc func(a, b Coordinates) float64

// DistanceKm returns the geodesic distance in kilometres between two points on
// the WGS-84 ellipsoid, solved with Karney's inverse method.
func DistanceKm(a, b Coordinates) float64 {
	if a == b {
		return 0
	}
	var meters float64
	geodesic.WGS84.Inverse(a.Latitude, a.Longitude, b.Latitude, b.Longitude, &meters, nil, nil)
	return meters / 1000
}
