package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// See here for a thorough explanation: https://en.wikipedia.org/wiki/Axis%E2%80%93angle_representation
// Basic explanation: Imagine a 3d cartesian grid centered at 0,0,0, and a sphere of radius 1 centered at
// that same point. An orientation can be expressed by first specifying an axis, i.e. a line from the origin
// to a point on that sphere, represented by (rx, ry, rz), and a rotation around that axis, theta.
// These four numbers can be used as-is (R4), or they can be converted to R3, where theta is multiplied by each of
// the unit sphere components to give a vector whose length is theta and whose direction is the original axis.
// The R3 form is what camera code calls a Rodrigues rotation vector.

// R4AA represents an R4 axis angle.
type R4AA struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// NewR4AA creates an empty R4AA struct.
func NewR4AA() *R4AA {
	return &R4AA{Theta: 0, RX: 0, RY: 0, RZ: 1}
}

// AxisAngles returns the orientation in axis angle representation.
func (r4 *R4AA) AxisAngles() *R4AA {
	return r4
}

// Quaternion returns orientation in quaternion representation.
func (r4 *R4AA) Quaternion() quat.Number {
	return r4.ToQuat()
}

// EulerAngles returns orientation in Euler angle representation.
func (r4 *R4AA) EulerAngles() *EulerAngles {
	return RotationMatrixToEulerAngles(r4.RotationMatrix())
}

// RotationMatrix returns the orientation in rotation matrix representation, using the Rodrigues
// formula R = I + sin(theta)K + (1-cos(theta))K^2 where K is the cross-product matrix of the axis.
func (r4 *R4AA) RotationMatrix() *RotationMatrix {
	if r4.Theta == 0 {
		return NewIdentityRotationMatrix()
	}
	axis := r3.Vector{r4.RX, r4.RY, r4.RZ}.Normalize()
	x, y, z := axis.X, axis.Y, axis.Z
	s, c := math.Sincos(r4.Theta)
	v := 1 - c
	return &RotationMatrix{[9]float64{
		c + x*x*v, x*y*v - z*s, x*z*v + y*s,
		y*x*v + z*s, c + y*y*v, y*z*v - x*s,
		z*x*v - y*s, z*y*v + x*s, c + z*z*v,
	}}
}

// ToR3 converts an R4 angle axis to R3.
func (r4 *R4AA) ToR3() r3.Vector {
	return r3.Vector{r4.RX * r4.Theta, r4.RY * r4.Theta, r4.RZ * r4.Theta}
}

// ToQuat converts an R4 axis angle to a unit quaternion
// See: https://www.euclideanspace.com/maths/geometry/rotations/conversions/angleToQuaternion/index.htm
func (r4 *R4AA) ToQuat() quat.Number {
	if r4.Theta == 0 {
		return quat.Number{Real: 1}
	}
	sinA, cosA := math.Sincos(r4.Theta / 2)
	axis := r3.Vector{r4.RX, r4.RY, r4.RZ}.Normalize()
	return quat.Number{Real: cosA, Imag: axis.X * sinA, Jmag: axis.Y * sinA, Kmag: axis.Z * sinA}
}

// Normalize scales the x, y, and z components of a R4 axis angle to be on the unit sphere.
func (r4 *R4AA) Normalize() {
	norm := math.Sqrt(r4.RX*r4.RX + r4.RY*r4.RY + r4.RZ*r4.RZ)
	if norm == 0.0 { // prevent division by 0
		panic("cannot normalize R4AA, divide by zero")
	}
	r4.RX /= norm
	r4.RY /= norm
	r4.RZ /= norm
}

// R3ToR4 converts an R3 angle axis to R4.
func R3ToR4(aa r3.Vector) *R4AA {
	theta := aa.Norm()
	if theta == 0 {
		return NewR4AA()
	}
	return &R4AA{theta, aa.X / theta, aa.Y / theta, aa.Z / theta}
}

// RotationVector returns the R3 (Rodrigues) form of rm, the inverse of R3ToR4(v).RotationMatrix().
func RotationVector(rm *RotationMatrix) r3.Vector {
	cosTheta := (rm.At(0, 0) + rm.At(1, 1) + rm.At(2, 2) - 1) / 2
	theta := math.Acos(math.Max(-1, math.Min(1, cosTheta)))
	const eps = 1e-9
	switch {
	case theta < eps:
		return r3.Vector{}
	case math.Pi-theta < 1e-6:
		// sin(theta) vanishes; read the axis off the symmetric part instead.
		x := math.Sqrt(math.Max(0, (rm.At(0, 0)+1)/2))
		y := math.Sqrt(math.Max(0, (rm.At(1, 1)+1)/2))
		z := math.Sqrt(math.Max(0, (rm.At(2, 2)+1)/2))
		switch {
		case x >= y && x >= z:
			y = math.Copysign(y, rm.At(0, 1))
			z = math.Copysign(z, rm.At(0, 2))
		case y >= z:
			x = math.Copysign(x, rm.At(0, 1))
			z = math.Copysign(z, rm.At(1, 2))
		default:
			x = math.Copysign(x, rm.At(0, 2))
			y = math.Copysign(y, rm.At(1, 2))
		}
		return r3.Vector{x, y, z}.Normalize().Mul(theta)
	}
	axis := r3.Vector{
		rm.At(2, 1) - rm.At(1, 2),
		rm.At(0, 2) - rm.At(2, 0),
		rm.At(1, 0) - rm.At(0, 1),
	}
	return axis.Mul(theta / (2 * math.Sin(theta)))
}
