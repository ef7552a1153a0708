package transform

import (
	"testing"

	"go.viam.com/test"
)

func TestNewDistorter(t *testing.T) {
	d, err := NewDistorter(BrownConradyDistortionType, []float64{0.1, 0.01})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ModelType(), test.ShouldEqual, BrownConradyDistortionType)
	test.That(t, d.Parameters(), test.ShouldResemble, []float64{0.1, 0.01, 0, 0, 0})
	test.That(t, d.CheckValid(), test.ShouldBeNil)

	inv, err := NewDistorter(InverseBrownConradyDistortionType, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, inv.ModelType(), test.ShouldEqual, InverseBrownConradyDistortionType)
	test.That(t, isIdentity(inv), test.ShouldBeTrue)
	test.That(t, isIdentity(d), test.ShouldBeFalse)
	test.That(t, isIdentity(nil), test.ShouldBeTrue)

	_, err = NewDistorter(BrownConradyDistortionType, make([]float64, 6))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDistorter("fisheye", nil)
	test.That(t, err, test.ShouldNotBeNil)

	var nilBC *BrownConrady
	test.That(t, nilBC.CheckValid(), test.ShouldNotBeNil)
	test.That(t, nilBC.Parameters(), test.ShouldResemble, []float64{})
	x, y := nilBC.Transform(0.3, 0.2)
	test.That(t, x, test.ShouldEqual, 0.3)
	test.That(t, y, test.ShouldEqual, 0.2)
}

func TestBrownConradyZeroIsIdentity(t *testing.T) {
	bc, err := NewBrownConrady(nil)
	test.That(t, err, test.ShouldBeNil)
	x, y := bc.Transform(-0.41, 0.27)
	test.That(t, x, test.ShouldEqual, -0.41)
	test.That(t, y, test.ShouldEqual, 0.27)
}

func TestBrownConradyRoundTrip(t *testing.T) {
	bc := &BrownConrady{RadialK1: -0.12, RadialK2: 0.03, RadialK3: -0.002, TangentialP1: 0.001, TangentialP2: -0.0007}
	inverse := bc.Inverse()
	test.That(t, inverse.CheckValid(), test.ShouldBeNil)
	test.That(t, inverse.Parameters(), test.ShouldResemble, bc.Parameters())
	for _, p := range [][2]float64{{0, 0}, {0.1, -0.2}, {-0.45, 0.3}, {0.6, 0.4}} {
		xd, yd := bc.Transform(p[0], p[1])
		xu, yu := inverse.Transform(xd, yd)
		test.That(t, xu, test.ShouldAlmostEqual, p[0], 1e-9)
		test.That(t, yu, test.ShouldAlmostEqual, p[1], 1e-9)
	}
	// radial distortion with negative k1 pulls points toward the centre
	xd, _ := bc.Transform(0.5, 0)
	test.That(t, xd, test.ShouldBeLessThan, 0.5)
}
