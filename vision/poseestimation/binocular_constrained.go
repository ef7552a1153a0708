package poseestimation

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/posebench/spatialmath"
	"go.viam.com/posebench/spatialmath/alignment"
	"go.viam.com/posebench/vision/triangulation"
)

// BinocularConstrainedModel triangulates in 3D and fits a rotation about the vertical axis only.
const BinocularConstrainedModel = "BinocularConstrained"

func init() {
	Register(BinocularConstrainedModel, func(useIMU bool) Estimator {
		return &binocularConstrained{
			rig:    triangulation.Rig{FocalLength: 985, Cx: 640, Cy: 400, Baseline: 0.8},
			width:  1280,
			height: 800,
			useIMU: useIMU,
		}
	})
}

// binocularConstrained is a stereo rig with 2.8mm lenses.
type binocularConstrained struct {
	rig           triangulation.Rig
	width, height int
	useIMU        bool
}

func (b *binocularConstrained) Name() string {
	return "BinocularConstrainedPoseEstimator" + suffix(b.useIMU)
}

func (b *binocularConstrained) Description() string {
	return "3d triangulation, rotation about y only"
}

func (b *binocularConstrained) Cameras() []Camera {
	return binocularCameras(b.rig.FocalLength, b.width, b.height, b.rig.Baseline)
}

func (b *binocularConstrained) PoseFromPoints(
	heading float64,
	target []r3.Vector,
	imagePoints [][]r2.Point,
) (*spatialmath.Pose, error) {
	if err := checkEyes(b, target, imagePoints); err != nil {
		return nil, err
	}
	seen, err := triangulation.Triangulate3D(imagePoints[0], imagePoints[1], b.rig)
	if err != nil {
		return nil, err
	}
	var imu *float64
	if b.useIMU {
		imu = &heading
	}
	return alignment.Constrained(target, triangulation.Points3D(seen), imu)
}
