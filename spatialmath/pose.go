package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Pose is a rigid transform [R | t] mapping points of one frame into another: p' = R*p + t.
// A Pose is immutable; every accessor returns a copy.
type Pose struct {
	rotation RotationMatrix
	point    r3.Vector
}

// NewPose builds a pose from a translation and any orientation.
func NewPose(point r3.Vector, o Orientation) *Pose {
	return &Pose{rotation: *o.RotationMatrix(), point: point}
}

// NewZeroPose returns the identity pose [I | 0].
func NewZeroPose() *Pose {
	return &Pose{rotation: *NewIdentityRotationMatrix()}
}

// NewPoseFromMatrix reads a 3x4 or 4x4 [R | t] matrix. The rotation block must be orthonormal.
func NewPoseFromMatrix(m mat.Matrix) (*Pose, error) {
	r, c := m.Dims()
	if (r != 3 && r != 4) || c != 4 {
		return nil, errors.Errorf("pose matrix must be 3x4 or 4x4, got %dx%d", r, c)
	}
	rm, err := RotationMatrixFromDense(m)
	if err != nil {
		return nil, err
	}
	return &Pose{rotation: *rm, point: r3.Vector{m.At(0, 3), m.At(1, 3), m.At(2, 3)}}, nil
}

// NewPlanarPose embeds a ground-plane pose, a 2x2 rotation acting on (x, z) and a translation
// (x, z), into the 3x4 layout
//
//	[ r00 0 r01 tx ]
//	[  0  1  0   0 ]
//	[ r10 0 r11 tz ]
func NewPlanarPose(rotation mat.Matrix, t r2.Point) *Pose {
	checkDims(rotation, 2, 2)
	return &Pose{
		rotation: RotationMatrix{[9]float64{
			rotation.At(0, 0), 0, rotation.At(0, 1),
			0, 1, 0,
			rotation.At(1, 0), 0, rotation.At(1, 1),
		}},
		point: r3.Vector{X: t.X, Z: t.Y},
	}
}

// Rotation returns a copy of the rotation block.
func (p *Pose) Rotation() *RotationMatrix {
	rm := p.rotation
	return &rm
}

// Orientation returns the rotation block as an Orientation.
func (p *Pose) Orientation() Orientation {
	return p.Rotation()
}

// Point returns the translation column.
func (p *Pose) Point() r3.Vector {
	return p.point
}

// Matrix returns a fresh 3x4 [R | t].
func (p *Pose) Matrix() *mat.Dense {
	out := mat.NewDense(3, 4, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.Set(r, c, p.rotation.At(r, c))
		}
	}
	out.Set(0, 3, p.point.X)
	out.Set(1, 3, p.point.Y)
	out.Set(2, 3, p.point.Z)
	return out
}

// Homogeneous returns a fresh 4x4 [R t; 0 1].
func (p *Pose) Homogeneous() *mat.Dense {
	return HomogeneousRigidTransform(&p.rotation, p.point)
}

// Transform applies the pose to a point.
func (p *Pose) Transform(v r3.Vector) r3.Vector {
	return p.rotation.MulVec(v).Add(p.point)
}

// Invert returns the inverse pose [R^T | -R^T t].
func (p *Pose) Invert() *Pose {
	rt := p.rotation.Transpose()
	return &Pose{rotation: *rt, point: rt.MulVec(p.point).Mul(-1)}
}

// CameraPosition treats the pose as world-to-camera and returns the camera's position in the
// world, -R^T t.
func (p *Pose) CameraPosition() r3.Vector {
	return p.Invert().point
}

// Heading is the pan about y encoded by a world-to-camera rotation, atan2(R20, R00).
func (p *Pose) Heading() float64 {
	return math.Atan2(p.rotation.At(2, 0), p.rotation.At(0, 0))
}

func (p *Pose) String() string {
	return fmt.Sprintf("{R: %v, t: (%.6f, %.6f, %.6f)}", &p.rotation, p.point.X, p.point.Y, p.point.Z)
}

// PoseAlmostEqual reports whether both poses agree within tol on translation and within tol
// radians on rotation.
func PoseAlmostEqual(a, b *Pose, tol float64) bool {
	return a.point.Sub(b.point).Norm() <= tol && AngularDistance(&a.rotation, &b.rotation) <= tol
}
