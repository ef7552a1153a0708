package poseestimation

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"go.viam.com/posebench/rimage/transform"
	"go.viam.com/posebench/spatialmath"
	"go.viam.com/posebench/spatialmath/alignment"
)

const (
	// minPnPPoints is the smallest number of planar correspondences that fix a homography.
	minPnPPoints = 4
	// planarTolerance bounds |z| of target points treated as lying on the z = 0 plane.
	planarTolerance = 1e-9
	// homographyRankTolerance is the relative singular value below which the DLT system is
	// rank deficient.
	homographyRankTolerance = 1e-12
	// refineIterations caps the Nelder-Mead refinement.
	refineIterations = 2000
	// behindCameraCost is the reprojection cost assigned to poses that put a point behind the
	// camera.
	behindCameraCost = 1e12
)

func checkPlanarTarget(target []r3.Vector, pixels []r2.Point) error {
	if len(target) != len(pixels) {
		return errors.Wrapf(alignment.ErrCardinalityMismatch, "%d target points and %d pixels", len(target), len(pixels))
	}
	if len(target) < minPnPPoints {
		return errors.Wrapf(alignment.ErrTooFewPoints, "planar pose needs %d points, got %d", minPnPPoints, len(target))
	}
	for i, p := range target {
		if math.Abs(p.Z) > planarTolerance {
			return errors.Wrapf(ErrContractViolation, "target point %d is off the z = 0 plane", i)
		}
	}
	return nil
}

// SolvePlanarPnP finds the world-to-camera pose that projects the planar target (all z = 0) onto
// the given undistorted pixels. A DLT homography gives the starting pose, which is then refined
// by minimizing the squared reprojection error.
func SolvePlanarPnP(target []r3.Vector, pixels []r2.Point, intr *transform.PinholeCameraIntrinsics) (*spatialmath.Pose, error) {
	if err := checkPlanarTarget(target, pixels); err != nil {
		return nil, err
	}
	normalized := make([]r2.Point, len(pixels))
	for i, p := range pixels {
		normalized[i] = intr.Normalize(p)
	}
	h, err := planarHomography(target, normalized)
	if err != nil {
		return nil, err
	}
	initial, err := decomposeHomography(h)
	if err != nil {
		return nil, err
	}
	return refinePose(initial, target, pixels, intr), nil
}

// planarHomography solves for H with (x, y, 1) ~ H (X, Y, 1) by the direct linear transform.
func planarHomography(target []r3.Vector, normalized []r2.Point) (*mat.Dense, error) {
	a := mat.NewDense(2*len(target), 9, nil)
	for i, p := range target {
		x, y := normalized[i].X, normalized[i].Y
		a.SetRow(2*i, []float64{p.X, p.Y, 1, 0, 0, 0, -x * p.X, -x * p.Y, -x})
		a.SetRow(2*i+1, []float64{0, 0, 0, p.X, p.Y, 1, -y * p.X, -y * p.Y, -y})
	}
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, errors.Wrap(alignment.ErrDegenerateGeometry, "homography factorization failed")
	}
	values := svd.Values(nil)
	if values[0] == 0 || values[7] < homographyRankTolerance*values[0] {
		return nil, errors.Wrap(alignment.ErrColinearPoints, "homography is not determined by the points")
	}
	var v mat.Dense
	svd.VTo(&v)
	return mat.NewDense(3, 3, mat.Col(nil, 8, &v)), nil
}

// decomposeHomography reads [r1 r2 t] off a homography between the z = 0 plane and normalized
// image coordinates, choosing the sign that puts the target in front of the camera.
func decomposeHomography(h *mat.Dense) (*spatialmath.Pose, error) {
	col := func(j int) r3.Vector {
		return r3.Vector{X: h.At(0, j), Y: h.At(1, j), Z: h.At(2, j)}
	}
	h1, h2, h3 := col(0), col(1), col(2)
	norms := h1.Norm() + h2.Norm()
	if norms == 0 {
		return nil, errors.Wrap(alignment.ErrDegenerateGeometry, "homography has a zero rotation block")
	}
	lambda := 2 / norms
	if h3.Z < 0 {
		lambda = -lambda
	}
	r1, r2 := h1.Mul(lambda), h2.Mul(lambda)
	r3v := r1.Cross(r2)
	approx := mat.NewDense(3, 3, []float64{
		r1.X, r2.X, r3v.X,
		r1.Y, r2.Y, r3v.Y,
		r1.Z, r2.Z, r3v.Z,
	})
	rotation, err := nearestRotation(approx)
	if err != nil {
		return nil, err
	}
	return spatialmath.NewPose(h3.Mul(lambda), rotation), nil
}

// nearestRotation projects m onto SO(3) in the Frobenius sense.
func nearestRotation(m mat.Matrix) (*spatialmath.RotationMatrix, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return nil, errors.Wrap(alignment.ErrDegenerateGeometry, "rotation factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := []float64{1, 1, 1}
	if mat.Det(&u)*mat.Det(&v) < 0 {
		s[2] = -1
	}
	var us, r mat.Dense
	us.Mul(&u, mat.NewDiagDense(3, s))
	r.Mul(&us, v.T())
	rm, err := spatialmath.RotationMatrixFromDense(&r)
	if err != nil {
		return nil, errors.Wrap(alignment.ErrDegenerateGeometry, err.Error())
	}
	return rm, nil
}

func reprojectionCost(pose *spatialmath.Pose, target []r3.Vector, pixels []r2.Point, intr *transform.PinholeCameraIntrinsics) float64 {
	cost := 0.0
	for i, p := range target {
		c := pose.Transform(p)
		if c.Z <= 0 {
			return behindCameraCost
		}
		u, v := intr.PointToPixel(c.X, c.Y, c.Z)
		cost += (u-pixels[i].X)*(u-pixels[i].X) + (v-pixels[i].Y)*(v-pixels[i].Y)
	}
	return cost
}

func poseFromParams(x []float64) *spatialmath.Pose {
	rv := r3.Vector{X: x[0], Y: x[1], Z: x[2]}
	return spatialmath.NewPose(r3.Vector{X: x[3], Y: x[4], Z: x[5]}, spatialmath.R3ToR4(rv))
}

// refinePose polishes initial with Nelder-Mead over the rotation vector and translation. The
// initial pose is kept whenever the optimizer does not improve on it.
func refinePose(initial *spatialmath.Pose, target []r3.Vector, pixels []r2.Point, intr *transform.PinholeCameraIntrinsics) *spatialmath.Pose {
	rv := spatialmath.RotationVector(initial.Rotation())
	t := initial.Point()
	x0 := []float64{rv.X, rv.Y, rv.Z, t.X, t.Y, t.Z}
	startCost := reprojectionCost(initial, target, pixels, intr)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return reprojectionCost(poseFromParams(x), target, pixels, intr)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: refineIterations,
		Converger:       &optimize.FunctionConverge{Absolute: 1e-12, Iterations: 50},
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{SimplexSize: 0.01})
	if err != nil || !(result.F < startCost) {
		return initial
	}
	return poseFromParams(result.X)
}

// SolveTranslation returns the translation that best projects target onto pixels for a fixed
// world-to-camera rotation, by linear least squares on the normalized projection equations.
func SolveTranslation(
	rotation spatialmath.Orientation,
	target []r3.Vector,
	pixels []r2.Point,
	intr *transform.PinholeCameraIntrinsics,
) (r3.Vector, error) {
	if len(target) != len(pixels) {
		return r3.Vector{}, errors.Wrapf(alignment.ErrCardinalityMismatch, "%d target points and %d pixels", len(target), len(pixels))
	}
	if len(target) < 2 {
		return r3.Vector{}, errors.Wrapf(alignment.ErrTooFewPoints, "translation needs 2 points, got %d", len(target))
	}
	rm := rotation.RotationMatrix()
	a := mat.NewDense(2*len(target), 3, nil)
	b := mat.NewVecDense(2*len(target), nil)
	for i, p := range target {
		n := intr.Normalize(pixels[i])
		rp := rm.MulVec(p)
		a.SetRow(2*i, []float64{1, 0, -n.X})
		b.SetVec(2*i, n.X*rp.Z-rp.X)
		a.SetRow(2*i+1, []float64{0, 1, -n.Y})
		b.SetVec(2*i+1, n.Y*rp.Z-rp.Y)
	}
	var t mat.VecDense
	if err := t.SolveVec(a, b); err != nil {
		return r3.Vector{}, errors.Wrap(alignment.ErrDegenerateGeometry, err.Error())
	}
	return r3.Vector{X: t.AtVec(0), Y: t.AtVec(1), Z: t.AtVec(2)}, nil
}
