// Package cloud holds the core point-cloud types and the nearest-neighbour
// spatial index used by the diff engine. Coordinates are treated purely as
// metric Euclidean values; any axis-convention transform happens at the
// ingestion boundary before data reaches this package.
package cloud

import "math"

// Point is a single 3D sample in a shared metric coordinate frame.
type Point struct {
	X, Y, Z float64
}

// Finite reports whether all three coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// PointSet is an ordered sequence of points. The diff engine treats it with
// set semantics but preserves order so output artifacts are deterministic.
type PointSet []Point

// Clone returns an independent copy of the set.
func (ps PointSet) Clone() PointSet {
	if ps == nil {
		return nil
	}
	out := make(PointSet, len(ps))
	copy(out, ps)
	return out
}

// Bounds returns the per-axis minimum and maximum over the set.
// Both are the zero point when the set is empty.
func (ps PointSet) Bounds() (min, max Point) {
	if len(ps) == 0 {
		return Point{}, Point{}
	}
	min, max = ps[0], ps[0]
	for _, p := range ps[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		min.Z = math.Min(min.Z, p.Z)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
		max.Z = math.Max(max.Z, p.Z)
	}
	return min, max
}
