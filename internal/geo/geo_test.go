package geo

import (
	"math"
	"testing"
)

func TestDistanceZeroAndSymmetric(t *testing.T) {
	a := Point{ID: 1, Lat: 35.6895, Lng: 139.6917}
	b := Point{ID: 2, Lat: 34.6937, Lng: 135.5023}
	if d := DistanceKm(a, a); d != 0 {
		t.Fatalf("distance(a,a) = %f, want 0", d)
	}
	ab := DistanceKm(a, b)
	ba := DistanceKm(b, a)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("asymmetric distance: %f vs %f", ab, ba)
	}
	// Tokyo to Osaka is roughly 400 km.
	if ab < 390 || ab > 410 {
		t.Fatalf("unexpected Tokyo-Osaka distance %f", ab)
	}
}

func TestOrderNearestNeighborSmallInputsUnchanged(t *testing.T) {
	cases := [][]Point{
		nil,
		{},
		{{ID: 1, Lat: 1, Lng: 1}},
		{{ID: 1, Lat: 1, Lng: 1}, {ID: 2, Lat: 2, Lng: 2}},
	}
	for _, points := range cases {
		got := OrderNearestNeighbor(points)
		if len(got) != len(points) {
			t.Fatalf("length changed: %d -> %d", len(points), len(got))
		}
		for i := range points {
			if got[i].ID != points[i].ID {
				t.Fatalf("order changed for %d points", len(points))
			}
		}
	}
}

func TestOrderNearestNeighborGreedy(t *testing.T) {
	points := []Point{
		{ID: 1, Lat: 0, Lng: 0},
		{ID: 2, Lat: 0, Lng: 3},
		{ID: 3, Lat: 0, Lng: 1},
		{ID: 4, Lat: 0, Lng: 2},
		{ID: 5, Lat: 1, Lng: 0},
	}
	got := OrderNearestNeighbor(points)

	if got[0].ID != 1 {
		t.Fatalf("expected to start from first input point, got %d", got[0].ID)
	}

	// Permutation check.
	if len(got) != len(points) {
		t.Fatalf("expected %d points, got %d", len(points), len(got))
	}
	seen := map[int64]bool{}
	for _, p := range got {
		if seen[p.ID] {
			t.Fatalf("duplicate point %d", p.ID)
		}
		seen[p.ID] = true
	}
	for _, p := range points {
		if !seen[p.ID] {
			t.Fatalf("dropped point %d", p.ID)
		}
	}

	// Every chosen point must be a minimum-distance unvisited point from the
	// previous one; re-check by brute force.
	for i := 1; i < len(got); i++ {
		chosen := DistanceKm(got[i-1], got[i])
		for j := i; j < len(got); j++ {
			if d := DistanceKm(got[i-1], got[j]); d < chosen-1e-12 {
				t.Fatalf("step %d chose %d (%.6f km) but %d is closer (%.6f km)",
					i, got[i].ID, chosen, got[j].ID, d)
			}
		}
	}
}

func TestOrderNearestNeighborStableTieBreak(t *testing.T) {
	// Points 2 and 3 are equidistant from point 1; the earlier input wins.
	points := []Point{
		{ID: 1, Lat: 0, Lng: 0},
		{ID: 2, Lat: 0, Lng: 1},
		{ID: 3, Lat: 0, Lng: -1},
	}
	got := OrderNearestNeighbor(points)
	if got[1].ID != 2 {
		t.Fatalf("tie break not stable: got %d second, want 2", got[1].ID)
	}
}

func TestPathDistance(t *testing.T) {
	if d := PathDistanceKm(nil); d != 0 {
		t.Fatalf("empty path distance %f", d)
	}
	if d := PathDistanceKm([]Point{{Lat: 1, Lng: 1}}); d != 0 {
		t.Fatalf("single point distance %f", d)
	}
	a := Point{Lat: 0, Lng: 0}
	b := Point{Lat: 0, Lng: 1}
	c := Point{Lat: 0, Lng: 2}
	sum := DistanceKm(a, b) + DistanceKm(b, c)
	if d := PathDistanceKm([]Point{a, b, c}); math.Abs(d-sum) > 1e-9 {
		t.Fatalf("path distance %f, want %f", d, sum)
	}
}
