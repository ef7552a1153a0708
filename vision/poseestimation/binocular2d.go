package poseestimation

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/posebench/spatialmath"
	"go.viam.com/posebench/spatialmath/alignment"
	"go.viam.com/posebench/vision/triangulation"
)

const (
	// Binocular2dSVDModel triangulates on the ground plane and fits an affine map by linear
	// least squares.
	Binocular2dSVDModel = "Binocular2dSVD"
	// Binocular2dUmeyamaModel triangulates on the ground plane and fits a rigid transform with
	// Umeyama's method.
	Binocular2dUmeyamaModel = "Binocular2dUmeyama"
)

type planarSolver func(from, to []r2.Point, heading *float64) (*alignment.Planar, error)

func init() {
	Register(Binocular2dSVDModel, func(useIMU bool) Estimator {
		return newBinocular2d("Binocular2dSVDPoseEstimator", "SVD solve 2d only", alignment.LinearLeastSquares2D, useIMU)
	})
	Register(Binocular2dUmeyamaModel, func(useIMU bool) Estimator {
		return newBinocular2d("Binocular2dUmeyamaPoseEstimator", "Umeyama solve adapted to 2d", alignment.Rigid2D, useIMU)
	})
}

// binocular2d ignores the vertical pixel coordinate entirely.
type binocular2d struct {
	name, description string
	solve             planarSolver
	rig               triangulation.Rig
	width, height     int
	useIMU            bool
}

func newBinocular2d(name, description string, solve planarSolver, useIMU bool) *binocular2d {
	return &binocular2d{
		name:        name,
		description: description,
		solve:       solve,
		rig:         triangulation.Rig{FocalLength: 914, Cx: 640, Cy: 400, Baseline: 0.8},
		width:       1280,
		height:      800,
		useIMU:      useIMU,
	}
}

func (b *binocular2d) Name() string {
	return b.name + suffix(b.useIMU)
}

func (b *binocular2d) Description() string {
	return b.description
}

func (b *binocular2d) Cameras() []Camera {
	return binocularCameras(b.rig.FocalLength, b.width, b.height, b.rig.Baseline)
}

func (b *binocular2d) PoseFromPoints(heading float64, target []r3.Vector, imagePoints [][]r2.Point) (*spatialmath.Pose, error) {
	if err := checkEyes(b, target, imagePoints); err != nil {
		return nil, err
	}
	seen, err := triangulation.Triangulate2D(imagePoints[0], imagePoints[1], b.rig)
	if err != nil {
		return nil, err
	}
	var imu *float64
	if b.useIMU {
		imu = &heading
	}
	planar, err := b.solve(ForwardPoints(target), triangulation.Points2D(seen), imu)
	if err != nil {
		return nil, err
	}
	return planar.Pose(), nil
}
