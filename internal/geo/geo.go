package geo

import "math"

const earthRadiusKm = 6371

// Point is a geographic coordinate tagged with the id of its source entity.
type Point struct {
	ID  int64
	Lat float64
	Lng float64
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm returns the great-circle distance between two points using the
// haversine formula.
func DistanceKm(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// OrderNearestNeighbor orders points greedily: starting from the first point
// in input order, it repeatedly appends the closest unvisited point. Ties go
// to the earliest remaining point, so the result is deterministic for a given
// input order. This is a heuristic, not an optimal tour.
func OrderNearestNeighbor(points []Point) []Point {
	if len(points) <= 2 {
		return points
	}

	remaining := make([]Point, len(points))
	copy(remaining, points)

	ordered := make([]Point, 0, len(points))
	ordered = append(ordered, remaining[0])
	remaining = remaining[1:]

	for len(remaining) > 0 {
		current := ordered[len(ordered)-1]
		nearestIndex := 0
		nearestDistance := math.Inf(1)
		for i, candidate := range remaining {
			d := DistanceKm(current, candidate)
			if d < nearestDistance {
				nearestDistance = d
				nearestIndex = i
			}
		}
		ordered = append(ordered, remaining[nearestIndex])
		remaining = append(remaining[:nearestIndex], remaining[nearestIndex+1:]...)
	}

	return ordered
}

// PathDistanceKm sums pairwise distances along consecutive points. It is the
// fallback estimate when the road-network routing service is unavailable.
func PathDistanceKm(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += DistanceKm(points[i-1], points[i])
	}
	return total
}
