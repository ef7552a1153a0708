package poseestimation

import (
	"math/rand/v2"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/posebench/rimage/transform"
	"go.viam.com/posebench/spatialmath"
	"go.viam.com/posebench/spatialmath/alignment"
)

func project(t *testing.T, intr *transform.PinholeCameraIntrinsics, pose *spatialmath.Pose, pts []r3.Vector) []r2.Point {
	t.Helper()
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		c := pose.Transform(p)
		test.That(t, c.Z, test.ShouldBeGreaterThan, 0)
		u, v := intr.PointToPixel(c.X, c.Y, c.Z)
		out[i] = r2.Point{X: u, Y: v}
	}
	return out
}

func TestSolvePlanarPnP(t *testing.T) {
	intr := transform.NewPinholeCameraIntrinsics(985, 1280, 800)
	for _, tc := range []struct {
		pan float64
		pos r3.Vector
	}{
		{0, r3.Vector{0, 0, -3}},
		{0.4, r3.Vector{1, 0.2, -4}},
		{-0.2, r3.Vector{-0.5, -0.1, -2}},
	} {
		truth, err := spatialmath.NewPoseFromMatrix(spatialmath.WorldToCamera(tc.pan, tc.pos))
		test.That(t, err, test.ShouldBeNil)
		pixels := project(t, intr, truth, target)

		pose, err := SolvePlanarPnP(target, pixels, intr)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, spatialmath.PoseAlmostEqual(pose, truth, 1e-6), test.ShouldBeTrue)

		tr, err := SolveTranslation(truth.Orientation(), target, pixels, intr)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tr.Sub(truth.Point()).Norm(), test.ShouldBeLessThan, 1e-9)
	}
}

func TestSolvePlanarPnPNoisy(t *testing.T) {
	intr := transform.NewPinholeCameraIntrinsics(985, 1280, 800)
	truth, err := spatialmath.NewPoseFromMatrix(spatialmath.WorldToCamera(0.1, r3.Vector{0.3, 0, -2}))
	test.That(t, err, test.ShouldBeNil)
	pixels := project(t, intr, truth, target)
	rng := rand.New(rand.NewPCG(42, 0))
	for i := range pixels {
		pixels[i].X += rng.NormFloat64() * 0.5
		pixels[i].Y += rng.NormFloat64() * 0.5
	}

	pose, err := SolvePlanarPnP(target, pixels, intr)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Point().Sub(truth.Point()).Norm(), test.ShouldBeLessThan, 0.05)
	// the refined pose reprojects at least as well as the linear one
	h, err := planarHomography(target, normalizeAll(intr, pixels))
	test.That(t, err, test.ShouldBeNil)
	initial, err := decomposeHomography(h)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reprojectionCost(pose, target, pixels, intr), test.ShouldBeLessThanOrEqualTo,
		reprojectionCost(initial, target, pixels, intr))
}

func normalizeAll(intr *transform.PinholeCameraIntrinsics, pixels []r2.Point) []r2.Point {
	out := make([]r2.Point, len(pixels))
	for i, p := range pixels {
		out[i] = intr.Normalize(p)
	}
	return out
}

func TestSolvePlanarPnPDegenerate(t *testing.T) {
	intr := transform.NewPinholeCameraIntrinsics(985, 1280, 800)
	pixels := []r2.Point{{1, 1}, {2, 2}, {3, 3}, {4, 4}}

	_, err := SolvePlanarPnP(target[:3], pixels[:3], intr)
	test.That(t, errors.Is(err, alignment.ErrTooFewPoints), test.ShouldBeTrue)

	_, err = SolvePlanarPnP(target, pixels[:3], intr)
	test.That(t, errors.Is(err, alignment.ErrCardinalityMismatch), test.ShouldBeTrue)

	lifted := append([]r3.Vector{}, target...)
	lifted[0].Z = 0.1
	_, err = SolvePlanarPnP(lifted, pixels, intr)
	test.That(t, errors.Is(err, ErrContractViolation), test.ShouldBeTrue)

	// every target point on a line leaves the homography undetermined
	line := []r3.Vector{{X: 0}, {X: 1}, {X: 2}, {X: 3}}
	_, err = SolvePlanarPnP(line, pixels, intr)
	test.That(t, errors.Is(err, alignment.ErrDegenerateGeometry), test.ShouldBeTrue)

	_, err = SolveTranslation(spatialmath.NewZeroPose().Orientation(), target[:1], pixels[:1], intr)
	test.That(t, errors.Is(err, alignment.ErrTooFewPoints), test.ShouldBeTrue)
}
