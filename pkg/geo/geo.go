// Package geo provides great-circle distance math used to corroborate
// client-reported GPS samples against a target address.
package geo

import "math"

// EarthRadiusM is Earth's mean radius in meters.
const EarthRadiusM = 6371000.0

// DefaultProximityM is the design-default threshold for considering a sample
// "nearby" a target. Advisory only; GPS accuracy varies too much for this to
// act as a hard gate.
const DefaultProximityM = 100.0

// Point is a coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// DistanceM returns the haversine distance between two points in meters.
func DistanceM(a, b Point) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusM * c
}

// Nearby reports whether a is within thresholdM meters of b. A threshold
// <= 0 falls back to DefaultProximityM.
func Nearby(a, b Point, thresholdM float64) bool {
	if thresholdM <= 0 {
		thresholdM = DefaultProximityM
	}
	return DistanceM(a, b) <= thresholdM
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
