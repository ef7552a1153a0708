package alignment

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/posebench/spatialmath"
)

// Constrained fits a transform whose rotation is restricted to the vertical axis. The rotation
// angle is the mean of the per-point angular differences between the centred to and from
// points, measured in the x-z plane; heading, when non-nil, is used instead. The translation
// moves the rotated centroid of from onto the centroid of to.
func Constrained(from, to []r3.Vector, heading *float64) (*spatialmath.Pose, error) {
	if err := checkCounts(len(from), len(to)); err != nil {
		return nil, err
	}
	fromMean, toMean := centroid(from), centroid(to)

	var theta float64
	if heading != nil {
		theta = *heading
	} else {
		var err error
		if theta, err = AverageAngularDifference(centered(to, toMean), centered(from, fromMean)); err != nil {
			return nil, err
		}
	}

	rotation := spatialmath.NewPlanarRotation(theta)
	return spatialmath.NewPose(toMean.Sub(rotation.MulVec(fromMean)), rotation), nil
}

// AverageAngularDifference returns the arithmetic mean over i of angle(a[i]) - angle(b[i]),
// where angle is atan2(z, x) and each difference is wrapped into (-pi, pi].
func AverageAngularDifference(a, b []r3.Vector) (float64, error) {
	if err := checkCounts(len(a), len(b)); err != nil {
		return 0, err
	}
	spread := 0.0
	sum := 0.0
	for i := range a {
		spread = math.Max(spread, math.Max(math.Hypot(a[i].X, a[i].Z), math.Hypot(b[i].X, b[i].Z)))
		sum += spatialmath.WrapAngle(math.Atan2(a[i].Z, a[i].X) - math.Atan2(b[i].Z, b[i].X))
	}
	if spread == 0 {
		return 0, ErrColinearPoints
	}
	return sum / float64(len(a)), nil
}

func centroid(points []r3.Vector) r3.Vector {
	var sum r3.Vector
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(points)))
}

func centered(points []r3.Vector, mean r3.Vector) []r3.Vector {
	out := make([]r3.Vector, len(points))
	for i, p := range points {
		out[i] = p.Sub(mean)
	}
	return out
}
