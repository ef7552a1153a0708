package poseestimation

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/posebench/rimage/transform"
	"go.viam.com/posebench/spatialmath"
)

// ConstantModel always answers with the origin, as a floor for the other strategies.
const ConstantModel = "Constant"

func init() {
	Register(ConstantModel, func(bool) Estimator { return &constant{} })
}

type constant struct{}

func (c *constant) Name() string {
	return "ConstantPoseEstimator"
}

func (c *constant) Description() string {
	return "Always returns the origin."
}

func (c *constant) Cameras() []Camera {
	return []Camera{{
		Intrinsics: transform.NewPinholeCameraIntrinsics(985, 1280, 800),
		Distortion: &transform.BrownConrady{},
	}}
}

func (c *constant) PoseFromPoints(_ float64, target []r3.Vector, imagePoints [][]r2.Point) (*spatialmath.Pose, error) {
	if err := checkEyes(c, target, imagePoints); err != nil {
		return nil, err
	}
	return spatialmath.NewZeroPose(), nil
}
