package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestPoseFromMatrix(t *testing.T) {
	m := WorldToCamera(0.3, r3.Vector{1, 0, -6})
	p, err := NewPoseFromMatrix(m)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Heading(), test.ShouldAlmostEqual, 0.3)

	pos := p.CameraPosition()
	test.That(t, pos.X, test.ShouldAlmostEqual, 1)
	test.That(t, pos.Y, test.ShouldAlmostEqual, 0)
	test.That(t, pos.Z, test.ShouldAlmostEqual, -6)

	threeByFour := p.Matrix()
	r, c := threeByFour.Dims()
	test.That(t, r, test.ShouldEqual, 3)
	test.That(t, c, test.ShouldEqual, 4)
	test.That(t, mat.EqualApprox(threeByFour, m.Slice(0, 3, 0, 4), 1e-12), test.ShouldBeTrue)

	// mutating the returned matrix must not touch the pose.
	threeByFour.Set(0, 3, 100)
	test.That(t, p.Point().X, test.ShouldNotEqual, 100)

	_, err = NewPoseFromMatrix(mat.NewDense(3, 3, nil))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPoseFromMatrix(mat.NewDense(3, 4, []float64{2, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0}))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlanarPose(t *testing.T) {
	p := NewPlanarPose(NewRotation2D(0.25), r2.Point{X: 0.5, Y: 4})
	test.That(t, p.Heading(), test.ShouldAlmostEqual, 0.25)
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{X: 0.5, Z: 4})
	test.That(t, OrientationAlmostEqual(p.Rotation(), NewPlanarRotation(0.25)), test.ShouldBeTrue)
	test.That(t, p.Rotation().IsOrthonormal(1e-12), test.ShouldBeTrue)

	m := p.Matrix()
	test.That(t, m.At(1, 1), test.ShouldEqual, 1.)
	test.That(t, m.At(1, 3), test.ShouldEqual, 0.)
	test.That(t, m.At(2, 0), test.ShouldAlmostEqual, math.Sin(0.25))
}

func TestPoseInvert(t *testing.T) {
	p := NewPose(r3.Vector{1, 2, 3}, &R4AA{Theta: 0.7, RX: 0.2, RY: 1, RZ: -0.3})
	identity := p.Invert()
	v := r3.Vector{-0.4, 0.9, 2}
	back := identity.Transform(p.Transform(v))
	test.That(t, back.Sub(v).Norm(), test.ShouldBeLessThan, 1e-12)
	test.That(t, PoseAlmostEqual(p.Invert().Invert(), p, 1e-9), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(NewZeroPose(), p, 1e-9), test.ShouldBeFalse)
}
