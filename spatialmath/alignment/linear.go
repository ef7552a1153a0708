package alignment

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posebench/spatialmath"
)

// minHomogeneousTerm bounds the fitted A22 below which the linear solution is rejected.
const minHomogeneousTerm = 1e-9

// Quality describes how far the unconstrained linear fit was from a rotation before it was
// repaired. Both are zero for noiseless data.
type Quality struct {
	// ScaleDrift is the largest |sigma_i - 1| over the singular values of the fitted 2x2 block.
	ScaleDrift float64
	// Anisotropy is sigma_max/sigma_min - 1, infinite if the block is singular.
	Anisotropy float64
}

// Planar is a ground-plane rigid transform acting on (x, z) pairs, stored as r2 points.
type Planar struct {
	Rotation    *mat.Dense
	Translation r2.Point
	Quality     Quality
}

// Pose embeds the planar transform into 3D, leaving y untouched.
func (p *Planar) Pose() *spatialmath.Pose {
	return spatialmath.NewPlanarPose(p.Rotation, p.Translation)
}

// Heading is the rotation angle of the transform.
func (p *Planar) Heading() float64 {
	return spatialmath.Angle2D(p.Rotation)
}

// LinearLeastSquares2D fits an unconstrained 2D affine map A with A*(from, 1) ~ (to, 1) by
// least squares, normalizes it by its homogeneous term and then replaces the 2x2 block with the
// rotation through its angle. heading, when non-nil, replaces the rotation; the translation is
// always the one from the affine fit.
//
// When from is colinear the minimum norm solution is used, which recovers the rotation only if
// the line runs along the from x axis, as a planar target seen edge-on does.
func LinearLeastSquares2D(from, to []r2.Point, heading *float64) (*Planar, error) {
	if err := checkCounts(len(from), len(to)); err != nil {
		return nil, err
	}
	xt := homogeneousRows(from)
	bt := homogeneousRows(to)

	var svd mat.SVD
	if ok := svd.Factorize(xt, mat.SVDThin); !ok {
		return nil, errors.Wrap(ErrColinearPoints, "least squares factorization failed")
	}
	rank := svd.Rank(rankTolerance)
	if rank < 2 {
		return nil, errors.Wrapf(ErrColinearPoints, "design matrix has rank %d", rank)
	}
	var at mat.Dense
	svd.SolveTo(&at, bt, rank)

	a := mat.DenseCopyOf(at.T())
	if math.Abs(a.At(2, 2)) < minHomogeneousTerm {
		return nil, errors.Wrapf(ErrDegenerateGeometry, "homogeneous term %g", a.At(2, 2))
	}
	a.Scale(1/a.At(2, 2), a)

	block := a.Slice(0, 2, 0, 2)
	quality := blockQuality(block)

	theta := spatialmath.Angle2D(block)
	if heading != nil {
		theta = *heading
	}
	return &Planar{
		Rotation:    spatialmath.NewRotation2D(theta),
		Translation: r2.Point{X: a.At(0, 2), Y: a.At(1, 2)},
		Quality:     quality,
	}, nil
}

func blockQuality(block mat.Matrix) Quality {
	var svd mat.SVD
	if ok := svd.Factorize(block, mat.SVDNone); !ok {
		return Quality{ScaleDrift: math.Inf(1), Anisotropy: math.Inf(1)}
	}
	values := svd.Values(nil)
	q := Quality{ScaleDrift: math.Max(math.Abs(values[0]-1), math.Abs(values[1]-1))}
	if values[1] == 0 {
		q.Anisotropy = math.Inf(1)
	} else {
		q.Anisotropy = values[0]/values[1] - 1
	}
	return q
}

// homogeneousRows stacks (x, y, 1) rows.
func homogeneousRows(points []r2.Point) *mat.Dense {
	out := mat.NewDense(len(points), 3, nil)
	for i, p := range points {
		out.SetRow(i, []float64{p.X, p.Y, 1})
	}
	return out
}
