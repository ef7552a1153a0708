package alignment

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posebench/spatialmath"
)

// Options tune Umeyama.
type Options struct {
	// ForceRotation flips the weakest singular direction when the best orthogonal fit is a
	// reflection, so the result always has determinant +1.
	ForceRotation bool
	// WithScale also estimates a uniform scale factor. Without it the scale is 1.
	WithScale bool
}

// Result is a similarity transform to = Scale * Rotation * from + Translation.
type Result struct {
	Rotation    *mat.Dense
	Translation *mat.VecDense
	Scale       float64
}

// Apply maps a single point, given as a slice of length d.
func (r *Result) Apply(p []float64) []float64 {
	var out mat.VecDense
	out.MulVec(r.Rotation, mat.NewVecDense(len(p), append([]float64(nil), p...)))
	out.ScaleVec(r.Scale, &out)
	out.AddVec(&out, r.Translation)
	return out.RawVector().Data
}

// Umeyama finds the least squares similarity transform taking the rows of from onto the rows of
// to. Both matrices hold one point per row and must have the same shape with at least MinPoints
// rows.
func Umeyama(from, to mat.Matrix, opts Options) (*Result, error) {
	n, d := from.Dims()
	tn, td := to.Dims()
	if td != d {
		return nil, errors.Wrapf(ErrCardinalityMismatch, "dimension %d vs %d", d, td)
	}
	if err := checkCounts(n, tn); err != nil {
		return nil, err
	}

	fromMean := columnMeans(from)
	toMean := columnMeans(to)
	fromCentered := demean(from, fromMean)
	toCentered := demean(to, toMean)

	var cov mat.Dense
	cov.Mul(toCentered.T(), fromCentered)
	cov.Scale(1/float64(n), &cov)

	var svd mat.SVD
	if ok := svd.Factorize(&cov, mat.SVDFull); !ok {
		return nil, errors.Wrap(ErrColinearPoints, "covariance factorization failed")
	}
	values := svd.Values(nil)
	if rank := effectiveRank(values); rank < minRank(d) {
		return nil, errors.Wrapf(ErrColinearPoints, "covariance has rank %d in %d dimensions", rank, d)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	s := make([]float64, d)
	for i := range s {
		s[i] = 1
	}
	if opts.ForceRotation && mat.Det(&u)*mat.Det(&v) < 0 {
		s[d-1] = -1
	}

	var us, rotation mat.Dense
	us.Mul(&u, mat.NewDiagDense(d, s))
	rotation.Mul(&us, v.T())

	scale := 1.0
	if opts.WithScale {
		variance := 0.0
		for i := 0; i < n; i++ {
			row := fromCentered.RawRowView(i)
			variance += mat.Dot(mat.NewVecDense(d, row), mat.NewVecDense(d, row))
		}
		variance /= float64(n)
		if variance == 0 {
			return nil, ErrColinearPoints
		}
		trace := 0.0
		for i, sv := range values {
			trace += sv * s[i]
		}
		scale = trace / variance
	}

	var translation mat.VecDense
	translation.MulVec(&rotation, fromMean)
	translation.ScaleVec(-scale, &translation)
	translation.AddVec(toMean, &translation)

	return &Result{Rotation: &rotation, Translation: &translation, Scale: scale}, nil
}

// Rigid3D returns the proper rigid transform taking from onto to.
func Rigid3D(from, to []r3.Vector) (*spatialmath.Pose, error) {
	if err := checkCounts(len(from), len(to)); err != nil {
		return nil, err
	}
	res, err := Umeyama(r3Rows(from), r3Rows(to), Options{ForceRotation: true})
	if err != nil {
		return nil, err
	}
	rm, err := spatialmath.RotationMatrixFromDense(res.Rotation)
	if err != nil {
		return nil, errors.Wrap(ErrDegenerateGeometry, err.Error())
	}
	t := res.Translation
	return spatialmath.NewPose(r3.Vector{X: t.AtVec(0), Y: t.AtVec(1), Z: t.AtVec(2)}, rm), nil
}

// Rigid2D returns the proper rigid transform taking the ground-plane points from onto to. When
// heading is non-nil the rotation is replaced by the rotation through *heading and only the
// translation is fitted.
func Rigid2D(from, to []r2.Point, heading *float64) (*Planar, error) {
	if err := checkCounts(len(from), len(to)); err != nil {
		return nil, err
	}
	fromRows, toRows := r2Rows(from), r2Rows(to)
	var rotation *mat.Dense
	if heading != nil {
		rotation = spatialmath.NewRotation2D(*heading)
	} else {
		res, err := Umeyama(fromRows, toRows, Options{ForceRotation: true})
		if err != nil {
			return nil, err
		}
		rotation = res.Rotation
	}
	return &Planar{
		Rotation:    rotation,
		Translation: translationFor(rotation, columnMeans(fromRows), columnMeans(toRows)),
	}, nil
}

// translationFor returns toMean - R*fromMean for a 2x2 R.
func translationFor(rotation mat.Matrix, fromMean, toMean *mat.VecDense) r2.Point {
	var moved mat.VecDense
	moved.MulVec(rotation, fromMean)
	return r2.Point{X: toMean.AtVec(0) - moved.AtVec(0), Y: toMean.AtVec(1) - moved.AtVec(1)}
}
