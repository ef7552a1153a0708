package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// NewIntrinsicMatrix builds a pinhole camera matrix with focal length f (pixels) and the principal
// point in the centre of a width x height image.
func NewIntrinsicMatrix(f float64, width, height int) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		f, 0, float64(width) / 2,
		0, f, float64(height) / 2,
		0, 0, 1,
	})
}

// HomogeneousRigidTransform builds the 4x4 [R t; 0 1].
func HomogeneousRigidTransform(rm *RotationMatrix, t r3.Vector) *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		rm.At(0, 0), rm.At(0, 1), rm.At(0, 2), t.X,
		rm.At(1, 0), rm.At(1, 1), rm.At(1, 2), t.Y,
		rm.At(2, 0), rm.At(2, 1), rm.At(2, 2), t.Z,
		0, 0, 0, 1,
	})
}

// WorldToCamera returns the 4x4 transform taking world points into the frame of a camera at pos
// that is panned by pan radians about the world y axis. It is the inverse of the camera-to-world
// transform [Ry(pan) pos; 0 1].
func WorldToCamera(pan float64, pos r3.Vector) *mat.Dense {
	worldToCameraR := NewRotationY(pan).Transpose()
	return HomogeneousRigidTransform(worldToCameraR, worldToCameraR.MulVec(pos).Mul(-1))
}

// TranslateX shifts the output frame of a 4x4 transform by dx along x, returning T(dx) * m.
func TranslateX(m mat.Matrix, dx float64) *mat.Dense {
	checkDims(m, 4, 4)
	translation := mat.NewDense(4, 4, []float64{
		1, 0, 0, dx,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	var out mat.Dense
	out.Mul(translation, m)
	return &out
}

// TransformPoint applies a 4x4 or 3x4 rigid transform to p.
func TransformPoint(m mat.Matrix, p r3.Vector) r3.Vector {
	r, c := m.Dims()
	if (r != 3 && r != 4) || c != 4 {
		panic(fmt.Sprintf("need a 3x4 or 4x4 transform, got %dx%d", r, c))
	}
	row := func(i int) float64 {
		return m.At(i, 0)*p.X + m.At(i, 1)*p.Y + m.At(i, 2)*p.Z + m.At(i, 3)
	}
	return r3.Vector{row(0), row(1), row(2)}
}

func checkDims(m mat.Matrix, rows, cols int) {
	r, c := m.Dims()
	if r != rows || c != cols {
		panic(fmt.Sprintf("need a %dx%d matrix, got %dx%d", rows, cols, r, c))
	}
}
