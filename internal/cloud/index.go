package cloud

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// ErrBadPoint is returned by NewIndex when a coordinate is NaN or infinite.
var ErrBadPoint = errors.New("non-finite coordinate")

// treePoint adapts a Point for gonum's kd-tree, carrying its position in the
// original set so queries can report which indexed point was closest.
type treePoint struct {
	Point
	id int
}

func (p treePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(treePoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		return p.Z - q.Z
	}
}

func (p treePoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance, per the kdtree contract.
func (p treePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(treePoint)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

type treePoints []treePoint

func (p treePoints) Index(i int) kdtree.Comparable { return p[i] }
func (p treePoints) Len() int                      { return len(p) }
func (p treePoints) Pivot(d kdtree.Dim) int        { return plane{Dim: d, treePoints: p}.Pivot() }
func (p treePoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// plane is a sorting helper over a single dimension, used during tree build.
type plane struct {
	kdtree.Dim
	treePoints
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.treePoints[i].X < p.treePoints[j].X
	case 1:
		return p.treePoints[i].Y < p.treePoints[j].Y
	default:
		return p.treePoints[i].Z < p.treePoints[j].Z
	}
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.treePoints = p.treePoints[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.treePoints[i], p.treePoints[j] = p.treePoints[j], p.treePoints[i]
}

// Neighbor is the result of a single 1-nearest-neighbour query.
type Neighbor struct {
	// Dist is the Euclidean distance to the nearest indexed point,
	// +Inf when the index is empty.
	Dist float64
	// Index is the position of that point in the set the index was built
	// from, -1 when the index is empty.
	Index int
}

// Index is an immutable nearest-neighbour index over one point set.
// Build cost is O(N log N); a single query costs O(log N).
type Index struct {
	tree *kdtree.Tree
	n    int
}

// NewIndex builds an index over pts. The input is copied, never mutated, and
// may be empty: queries against an empty index report the Neighbor sentinel
// (+Inf, -1). Points with non-finite coordinates are rejected with ErrBadPoint.
func NewIndex(pts PointSet) (*Index, error) {
	tp := make(treePoints, len(pts))
	for i, p := range pts {
		if !p.Finite() {
			return nil, fmt.Errorf("%w at point %d (%v, %v, %v)", ErrBadPoint, i, p.X, p.Y, p.Z)
		}
		tp[i] = treePoint{Point: p, id: i}
	}
	return &Index{tree: kdtree.New(tp, false), n: len(tp)}, nil
}

// Len returns the number of indexed points.
func (ix *Index) Len() int { return ix.n }

// Nearest returns the Euclidean distance to and index of the single closest
// indexed point. An empty index reports (+Inf, -1).
func (ix *Index) Nearest(q Point) (dist float64, index int) {
	if ix.n == 0 {
		return math.Inf(1), -1
	}
	got, d2 := ix.tree.Nearest(treePoint{Point: q, id: -1})
	if got == nil {
		return math.Inf(1), -1
	}
	return math.Sqrt(d2), got.(treePoint).id
}

// NearestAll runs Nearest for every query point, in query order.
func (ix *Index) NearestAll(qs PointSet) []Neighbor {
	out := make([]Neighbor, len(qs))
	for i, q := range qs {
		out[i].Dist, out[i].Index = ix.Nearest(q)
	}
	return out
}
