package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// CombineRotations applies the rotation vector first and then second, returning the rotation
// vector of the result. As matrices the result is second * first, since the rightmost factor acts
// on a point first.
func CombineRotations(first, second r3.Vector) r3.Vector {
	firstM := R3ToR4(first).RotationMatrix()
	secondM := R3ToR4(second).RotationMatrix()
	return RotationVector(secondM.Mul(firstM))
}

// PanTilt returns the rotation vector of a pan about y followed by a tilt about x, both in
// radians.
func PanTilt(pan, tilt float64) r3.Vector {
	return CombineRotations(r3.Vector{Y: pan}, r3.Vector{X: tilt})
}

// NewRotationX returns a rotation of theta radians about the x axis.
func NewRotationX(theta float64) *RotationMatrix {
	return (&R4AA{Theta: theta, RX: 1}).RotationMatrix()
}

// NewRotationY returns a rotation of theta radians about the y axis.
func NewRotationY(theta float64) *RotationMatrix {
	return (&R4AA{Theta: theta, RY: 1}).RotationMatrix()
}

// NewPlanarRotation returns the 3D rotation that turns the x-z plane by theta, measured the way
// atan2(z, x) measures angles:
//
//	[ c 0 -s ]
//	[ 0 1  0 ]
//	[ s 0  c ]
//
// For a camera panned by theta about y this is its world-to-camera rotation.
func NewPlanarRotation(theta float64) *RotationMatrix {
	s, c := math.Sincos(theta)
	return &RotationMatrix{[9]float64{
		c, 0, -s,
		0, 1, 0,
		s, 0, c,
	}}
}

// NewRotation2D returns the 2x2 rotation [[c, -s], [s, c]].
func NewRotation2D(theta float64) *mat.Dense {
	s, c := math.Sincos(theta)
	return mat.NewDense(2, 2, []float64{c, -s, s, c})
}

// Angle2D returns the angle of the leading 2x2 block of r, atan2(r10, r00).
func Angle2D(r mat.Matrix) float64 {
	return math.Atan2(r.At(1, 0), r.At(0, 0))
}

// WrapAngle maps theta into (-pi, pi].
func WrapAngle(theta float64) float64 {
	wrapped := math.Mod(theta, 2*math.Pi)
	switch {
	case wrapped > math.Pi:
		wrapped -= 2 * math.Pi
	case wrapped <= -math.Pi:
		wrapped += 2 * math.Pi
	}
	return wrapped
}
