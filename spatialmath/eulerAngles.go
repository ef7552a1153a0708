package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// gimbalThreshold is the value of sqrt(r00^2 + r10^2) below which the pitch is treated as +-90
// degrees and roll and yaw are no longer separable.
const gimbalThreshold = 1e-6

// EulerAngles are three angles (in radians) used to represent the rotation of an object in 3D
// Euclidean space. The Tait-Bryan angle formalism is used, with rotations around (z, y', x'') in
// that order, i.e. R = Rz(Yaw) * Ry(Pitch) * Rx(Roll).
type EulerAngles struct {
	Roll  float64 `json:"roll"`  // phi, about x
	Pitch float64 `json:"pitch"` // theta, about y
	Yaw   float64 `json:"yaw"`   // psi, about z
}

// NewEulerAngles creates an empty EulerAngles struct.
func NewEulerAngles() *EulerAngles {
	return &EulerAngles{Roll: 0, Pitch: 0, Yaw: 0}
}

// EulerAngles returns orientation in Euler angle representation.
func (ea *EulerAngles) EulerAngles() *EulerAngles {
	return ea
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (ea *EulerAngles) RotationMatrix() *RotationMatrix {
	sr, cr := math.Sincos(ea.Roll)
	sp, cp := math.Sincos(ea.Pitch)
	sy, cy := math.Sincos(ea.Yaw)
	return &RotationMatrix{[9]float64{
		cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr,
		sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr,
		-sp, cp * sr, cp * cr,
	}}
}

// Quaternion returns orientation in quaternion representation.
func (ea *EulerAngles) Quaternion() quat.Number {
	return ea.RotationMatrix().Quaternion()
}

// AxisAngles returns the orientation in axis angle representation.
func (ea *EulerAngles) AxisAngles() *R4AA {
	return ea.RotationMatrix().AxisAngles()
}

// RotationMatrixToEulerAngles decomposes rm into ZYX Tait-Bryan angles. Near gimbal lock the yaw
// is pinned to zero and the remaining rotation is attributed to roll.
func RotationMatrixToEulerAngles(rm *RotationMatrix) *EulerAngles {
	sy := math.Sqrt(rm.At(0, 0)*rm.At(0, 0) + rm.At(1, 0)*rm.At(1, 0))
	if sy > gimbalThreshold {
		return &EulerAngles{
			Roll:  math.Atan2(rm.At(2, 1), rm.At(2, 2)),
			Pitch: math.Atan2(-rm.At(2, 0), sy),
			Yaw:   math.Atan2(rm.At(1, 0), rm.At(0, 0)),
		}
	}
	return &EulerAngles{
		Roll:  math.Atan2(-rm.At(1, 2), rm.At(1, 1)),
		Pitch: math.Atan2(-rm.At(2, 0), sy),
		Yaw:   0,
	}
}
