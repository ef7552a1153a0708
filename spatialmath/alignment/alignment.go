// Package alignment recovers the rigid transform that best maps one set of corresponding points
// onto another. It holds the closed form Umeyama solver, a rotation-averaging solver constrained to
// rotations about the vertical axis, and a linear least squares solver for the ground plane.
package alignment

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrDegenerateGeometry is the parent of every error caused by point sets that cannot determine
// a transform.
var ErrDegenerateGeometry = errors.New("degenerate point geometry")

var (
	// ErrTooFewPoints is returned when fewer than MinPoints correspondences are given.
	ErrTooFewPoints = errors.Wrap(ErrDegenerateGeometry, "too few points")
	// ErrCardinalityMismatch is returned when the two point sets differ in size.
	ErrCardinalityMismatch = errors.Wrap(ErrDegenerateGeometry, "point sets need to have the same size")
	// ErrColinearPoints is returned when the centred points span too few dimensions to fix a
	// rotation: a line or less in 3D, a single point in 2D.
	ErrColinearPoints = errors.Wrap(ErrDegenerateGeometry, "points cannot be colinear")
)

// MinPoints is the smallest number of correspondences any solver accepts.
const MinPoints = 3

// rankTolerance is the singular value cutoff relative to the largest one.
const rankTolerance = 1e-10

func checkCounts(from, to int) error {
	if from != to {
		return errors.Wrapf(ErrCardinalityMismatch, "%d vs %d", from, to)
	}
	if from < MinPoints {
		return errors.Wrapf(ErrTooFewPoints, "need at least %d, got %d", MinPoints, from)
	}
	return nil
}

// columnMeans returns the centroid of the rows of m.
func columnMeans(m mat.Matrix) *mat.VecDense {
	_, c := m.Dims()
	means := mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		means.SetVec(j, stat.Mean(mat.Col(nil, j, m), nil))
	}
	return means
}

// demean subtracts mean from every row of m.
func demean(m mat.Matrix, mean *mat.VecDense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, v float64) float64 { return v - mean.AtVec(j) }, m)
	return out
}

// minRank is the smallest covariance rank that still pins down a proper rotation in d dimensions:
// a plane in 3D, a line in 2D.
func minRank(d int) int {
	if d <= 2 {
		return 1
	}
	return d - 1
}

// effectiveRank counts the singular values above rankTolerance times the largest one.
func effectiveRank(values []float64) int {
	if len(values) == 0 || values[0] == 0 {
		return 0
	}
	rank := 0
	for _, v := range values {
		if v > rankTolerance*values[0] {
			rank++
		}
	}
	return rank
}

func r3Rows(points []r3.Vector) *mat.Dense {
	out := mat.NewDense(len(points), 3, nil)
	for i, p := range points {
		out.SetRow(i, []float64{p.X, p.Y, p.Z})
	}
	return out
}

func r2Rows(points []r2.Point) *mat.Dense {
	out := mat.NewDense(len(points), 2, nil)
	for i, p := range points {
		out.SetRow(i, []float64{p.X, p.Y})
	}
	return out
}
