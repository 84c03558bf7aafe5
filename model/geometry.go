package model

import (
	"math"
	"sort"
)

// Point is a map position in game units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Towards moves d units from p in the direction of q. Returns p when the
// two points coincide.
func (p Point) Towards(q Point, d float64) Point {
	dist := p.Distance(q)
	if dist == 0 {
		return p
	}
	return Point{X: p.X + (q.X-p.X)*d/dist, Y: p.Y + (q.Y-p.Y)*d/dist}
}

// Rect is the playable area reported by the host.
type Rect struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Clamp restricts p to r. A zero rect leaves p untouched.
func (r Rect) Clamp(p Point) Point {
	if r == (Rect{}) {
		return p
	}
	return Point{
		X: math.Max(r.MinX, math.Min(r.MaxX, p.X)),
		Y: math.Max(r.MinY, math.Min(r.MaxY, p.Y)),
	}
}

// Centroid averages the positions of units. ok is false for an empty slice.
func Centroid(units []Unit) (Point, bool) {
	if len(units) == 0 {
		return Point{}, false
	}
	var sx, sy float64
	for _, u := range units {
		sx += u.Pos.X
		sy += u.Pos.Y
	}
	n := float64(len(units))
	return Point{X: sx / n, Y: sy / n}, true
}

// SortByDistance orders units nearest-first from p. Ties keep tag order so
// selection is deterministic across ticks.
func SortByDistance(units []Unit, p Point) {
	sort.SliceStable(units, func(i, j int) bool {
		di, dj := units[i].Pos.Distance(p), units[j].Pos.Distance(p)
		if di != dj {
			return di < dj
		}
		return units[i].Tag < units[j].Tag
	})
}

// Closest returns the unit nearest to p.
func Closest(units []Unit, p Point) (Unit, bool) {
	if len(units) == 0 {
		return Unit{}, false
	}
	best := units[0]
	bestDist := best.Pos.Distance(p)
	for _, u := range units[1:] {
		if d := u.Pos.Distance(p); d < bestDist || (d == bestDist && u.Tag < best.Tag) {
			best, bestDist = u, d
		}
	}
	return best, true
}

// Within returns the units no farther than r from p.
func Within(units []Unit, p Point, r float64) []Unit {
	var out []Unit
	for _, u := range units {
		if u.Pos.Distance(p) <= r {
			out = append(out, u)
		}
	}
	return out
}
