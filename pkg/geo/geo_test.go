package geo

import (
	"math"
	"testing"
)

func TestDistanceIdenticalPointsIsZero(t *testing.T) {
	p := Point{Lat: 37.7749, Lon: -122.4194}
	if d := DistanceM(p, p); d != 0 {
		t.Fatalf("expected 0 distance between identical points, got %f", d)
	}
}

func TestDistanceOneDegreeLatitude(t *testing.T) {
	// One degree of latitude is ~111,195 m on a sphere of Earth's mean
	// radius. Allow 1%.
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 1, Lon: 0}
	d := DistanceM(a, b)
	const want = 111195.0
	if math.Abs(d-want)/want > 0.01 {
		t.Fatalf("expected ~%f m for 1 degree of latitude, got %f", want, d)
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := Point{Lat: 40.7128, Lon: -74.0060}
	b := Point{Lat: 40.7130, Lon: -74.0100}
	if DistanceM(a, b) != DistanceM(b, a) {
		t.Fatal("distance should be symmetric")
	}
}

func TestNearby(t *testing.T) {
	base := Point{Lat: 51.5007, Lon: -0.1246}
	// ~0.0005 degrees latitude is roughly 55 m.
	close := Point{Lat: 51.5012, Lon: -0.1246}
	far := Point{Lat: 51.5107, Lon: -0.1246} // ~1.1 km

	if !Nearby(base, close, 100) {
		t.Errorf("expected %v to be within 100m of %v", close, base)
	}
	if Nearby(base, far, 100) {
		t.Errorf("expected %v to be outside 100m of %v", far, base)
	}
	// Zero threshold falls back to the default.
	if !Nearby(base, close, 0) {
		t.Error("zero threshold should use the 100m default")
	}
}
