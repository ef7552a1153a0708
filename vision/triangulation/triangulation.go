// Package triangulation recovers rig-frame points from matched pixel observations of a horizontal
// stereo pair.
//
// The forward model for an eye at lateral offset ±b/2 is U = M * T * X / Z, where T stacks the two
// eye translations and M the shared pinhole projection. Triangulation applies T^-1 * M^-1 to the
// stacked observations and re-homogenizes the result.
package triangulation

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MinHomogeneousScale is the smallest homogeneous scale accepted when re-homogenizing. The scale of
// a triangulated point is 1/Z, so anything smaller means a point at or beyond about 1e9 units, which
// is zero disparity for any real rig.
const MinHomogeneousScale = 1e-9

var (
	// ErrCorrespondenceMismatch is returned when the eyes report different numbers of points.
	ErrCorrespondenceMismatch = errors.New("left and right observations do not correspond")
	// ErrDegenerateTriangulation is returned when a point's homogeneous scale is too close to zero.
	ErrDegenerateTriangulation = errors.New("degenerate triangulation")
)

// Rig describes a horizontal stereo pair: a shared focal length and principal point, and the
// distance between the eyes. The left eye sits at +Baseline/2.
type Rig struct {
	FocalLength float64
	Cx          float64
	Cy          float64
	Baseline    float64
}

// Validate checks that the rig can be inverted.
func (rig Rig) Validate() error {
	if rig.FocalLength <= 0 {
		return errors.Errorf("focal length must be positive, got %v", rig.FocalLength)
	}
	if rig.Baseline == 0 {
		return errors.New("baseline must not be zero")
	}
	return nil
}

func invert(m *mat.Dense) *mat.Dense {
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		// Validate rules this out; reaching it is a programming error.
		panic(err)
	}
	return &inv
}

// inverseCamera3D is M^-1 for the stacked observation (u, u', v, 1).
func inverseCamera3D(rig Rig) *mat.Dense {
	f, cx, cy := rig.FocalLength, rig.Cx, rig.Cy
	return invert(mat.NewDense(4, 4, []float64{
		f, 0, 0, cx,
		0, f, 0, cx,
		0, 0, f, cy,
		0, 0, 0, 1,
	}))
}

// inverseBaseline3D is T^-1, T taking (X, Y, Z, 1) to (X+b/2, X-b/2, Y, Z).
func inverseBaseline3D(rig Rig) *mat.Dense {
	b := rig.Baseline
	return invert(mat.NewDense(4, 4, []float64{
		1, 0, 0, b / 2,
		1, 0, 0, -b / 2,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}))
}

func inverseCamera2D(rig Rig) *mat.Dense {
	f, cx := rig.FocalLength, rig.Cx
	return invert(mat.NewDense(3, 3, []float64{
		f, 0, cx,
		0, f, cx,
		0, 0, 1,
	}))
}

func inverseBaseline2D(rig Rig) *mat.Dense {
	b := rig.Baseline
	return invert(mat.NewDense(3, 3, []float64{
		1, 0, b / 2,
		1, 0, -b / 2,
		0, 1, 0,
	}))
}

func checkCorrespondence(left, right []r2.Point) error {
	if len(left) != len(right) {
		return errors.Wrapf(ErrCorrespondenceMismatch, "%d left points and %d right points", len(left), len(right))
	}
	if len(left) == 0 {
		return errors.Wrap(ErrCorrespondenceMismatch, "no points observed")
	}
	return nil
}

// Triangulate3D returns a 4xN matrix whose columns are the homogeneous rig-frame points (X, Y, Z, 1)
// seen at left[i] and right[i]. The vertical pixel coordinate is the mean of both eyes.
func Triangulate3D(left, right []r2.Point, rig Rig) (*mat.Dense, error) {
	if err := checkCorrespondence(left, right); err != nil {
		return nil, err
	}
	if err := rig.Validate(); err != nil {
		return nil, err
	}
	u := mat.NewDense(4, len(left), nil)
	for i := range left {
		u.Set(0, i, left[i].X)
		u.Set(1, i, right[i].X)
		u.Set(2, i, (left[i].Y+right[i].Y)/2)
		u.Set(3, i, 1)
	}
	var b mat.Dense
	b.Product(inverseBaseline3D(rig), inverseCamera3D(rig), u)
	return Rehomogenize(&b)
}

// Triangulate2D is the ground-plane version of Triangulate3D: it ignores vertical pixel coordinates
// and returns a 3xN matrix of homogeneous (X, Z, 1) columns.
func Triangulate2D(left, right []r2.Point, rig Rig) (*mat.Dense, error) {
	if err := checkCorrespondence(left, right); err != nil {
		return nil, err
	}
	if err := rig.Validate(); err != nil {
		return nil, err
	}
	u := mat.NewDense(3, len(left), nil)
	for i := range left {
		u.Set(0, i, left[i].X)
		u.Set(1, i, right[i].X)
		u.Set(2, i, 1)
	}
	var b mat.Dense
	b.Product(inverseBaseline2D(rig), inverseCamera2D(rig), u)
	return Rehomogenize(&b)
}

// Rehomogenize returns a copy of m with every column divided by its last entry, so that the last
// row is all ones. A column whose last entry is smaller in magnitude than MinHomogeneousScale is
// rejected with ErrDegenerateTriangulation.
func Rehomogenize(m mat.Matrix) (*mat.Dense, error) {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for c := 0; c < cols; c++ {
		w := m.At(rows-1, c)
		if math.Abs(w) < MinHomogeneousScale || math.IsNaN(w) {
			return nil, errors.Wrapf(ErrDegenerateTriangulation, "column %d has homogeneous scale %g", c, w)
		}
		for r := 0; r < rows-1; r++ {
			out.Set(r, c, m.At(r, c)/w)
		}
		out.Set(rows-1, c, 1)
	}
	return out, nil
}

// Points3D reads the columns of a 4xN homogeneous matrix as points.
func Points3D(m mat.Matrix) []r3.Vector {
	checkRows(m, 4)
	_, cols := m.Dims()
	out := make([]r3.Vector, cols)
	for c := range out {
		out[c] = r3.Vector{X: m.At(0, c), Y: m.At(1, c), Z: m.At(2, c)}
	}
	return out
}

// Points2D reads the columns of a 3xN homogeneous matrix as ground-plane (X, Z) points.
func Points2D(m mat.Matrix) []r2.Point {
	checkRows(m, 3)
	_, cols := m.Dims()
	out := make([]r2.Point, cols)
	for c := range out {
		out[c] = r2.Point{X: m.At(0, c), Y: m.At(1, c)}
	}
	return out
}

func checkRows(m mat.Matrix, rows int) {
	if r, _ := m.Dims(); r != rows {
		panic(errors.Errorf("need a %dxN homogeneous matrix, got %d rows", rows, r))
	}
}
