// Package diff implements the spatial diff engine: it classifies every point
// of two clouds of the same scene as matched or extra under a distance
// tolerance, and encodes the resulting subsets as colored LAS artifacts.
package diff

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/mapdiff/internal/cloud"
)

// ErrInvalidTolerance is returned when epsilon is negative, NaN or infinite.
var ErrInvalidTolerance = errors.New("invalid tolerance")

// StageError wraps a failure with the pipeline stage it occurred in, so a
// single run error still identifies whether classification or a specific
// encode step failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Result partitions both input clouds. BaseMatched and ExtraInBase together
// hold every base point exactly once, in input order; GenMatched and
// ExtraInGen do the same for gen. The two directions are independent: a base
// point being matched does not imply its nearest gen point is matched too.
type Result struct {
	BaseMatched cloud.PointSet
	GenMatched  cloud.PointSet
	ExtraInBase cloud.PointSet
	ExtraInGen  cloud.PointSet
}

// Classify runs two independent nearest-neighbour passes: gen points against
// an index over base, and base points against an index over gen. A point is
// extra iff its nearest neighbour in the other cloud is strictly farther than
// epsilon; a distance of exactly epsilon counts as matched. Either input may
// be empty, in which case every point of the other input is extra.
//
// Inputs are never mutated and the function is pure: identical inputs always
// produce identical subset membership.
func Classify(base, gen cloud.PointSet, epsilon float64) (*Result, error) {
	if epsilon < 0 || math.IsNaN(epsilon) || math.IsInf(epsilon, 0) {
		return nil, fmt.Errorf("%w: epsilon %v must be finite and non-negative", ErrInvalidTolerance, epsilon)
	}

	baseIndex, err := cloud.NewIndex(base)
	if err != nil {
		return nil, fmt.Errorf("index over base: %w", err)
	}
	genIndex, err := cloud.NewIndex(gen)
	if err != nil {
		return nil, fmt.Errorf("index over gen: %w", err)
	}

	res := &Result{}
	res.GenMatched, res.ExtraInGen = splitByDistance(gen, baseIndex, epsilon)
	res.BaseMatched, res.ExtraInBase = splitByDistance(base, genIndex, epsilon)
	return res, nil
}

// splitByDistance partitions pts by nearest-neighbour distance against other,
// preserving input order. Queries against an empty index report +Inf, so
// every point lands in extra.
func splitByDistance(pts cloud.PointSet, other *cloud.Index, epsilon float64) (matched, extra cloud.PointSet) {
	matched = cloud.PointSet{}
	extra = cloud.PointSet{}
	neighbors := other.NearestAll(pts)
	for i, p := range pts {
		if neighbors[i].Dist > epsilon {
			extra = append(extra, p)
		} else {
			matched = append(matched, p)
		}
	}
	return matched, extra
}
