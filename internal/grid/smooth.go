package grid

import (
	"math"

	"github.com/gabe/mobwatch/internal/models"
)

const collinearEpsilon = 1e-9

// SmoothPath drops interior waypoints whose incoming and outgoing directions
// are identical. Endpoints are always kept. The input is not modified.
func SmoothPath(path []models.Vec2) []models.Vec2 {
	if len(path) <= 2 {
		out := make([]models.Vec2, len(path))
		copy(out, path)
		return out
	}

	out := make([]models.Vec2, 0, len(path))
	out = append(out, path[0])
	for i := 1; i < len(path)-1; i++ {
		in := path[i].Sub(path[i-1])
		next := path[i+1].Sub(path[i])
		if sameDirection(in, next) {
			continue
		}
		out = append(out, path[i])
	}
	return append(out, path[len(path)-1])
}

// sameDirection treats a zero-length leg as continuing straight so
// duplicate points collapse as well.
func sameDirection(a, b models.Vec2) bool {
	la, lb := a.Len(), b.Len()
	if la < collinearEpsilon || lb < collinearEpsilon {
		return true
	}
	cross := a.X*b.Y - a.Y*b.X
	dot := a.X*b.X + a.Y*b.Y
	return math.Abs(cross) <= collinearEpsilon*la*lb && dot > 0
}

// PathLength sums the Euclidean length of every leg
func PathLength(path []models.Vec2) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i].Dist(path[i-1])
	}
	return total
}
