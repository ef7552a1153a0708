package poseestimation

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/posebench/rimage/transform"
	"go.viam.com/posebench/spatialmath"
)

// MonocularModel solves the perspective-n-point problem from a single camera.
const MonocularModel = "Monocular"

func init() {
	Register(MonocularModel, func(useIMU bool) Estimator {
		return &monocular{intrinsics: transform.NewPinholeCameraIntrinsics(985, 1280, 800), useIMU: useIMU}
	})
}

// monocular uses one 2.8mm lens.
type monocular struct {
	intrinsics *transform.PinholeCameraIntrinsics
	useIMU     bool
}

func (m *monocular) Name() string {
	return "MonocularPoseEstimator" + suffix(m.useIMU)
}

func (m *monocular) Description() string {
	return "Planar PnP: DLT homography refined by Nelder-Mead"
}

func (m *monocular) Cameras() []Camera {
	return []Camera{{Intrinsics: m.intrinsics, Distortion: &transform.BrownConrady{}}}
}

func (m *monocular) PoseFromPoints(heading float64, target []r3.Vector, imagePoints [][]r2.Point) (*spatialmath.Pose, error) {
	if err := checkEyes(m, target, imagePoints); err != nil {
		return nil, err
	}
	if !m.useIMU {
		return SolvePlanarPnP(target, imagePoints[0], m.intrinsics)
	}
	// the rotation vector (0, -heading, 0)
	rotation := spatialmath.R3ToR4(r3.Vector{Y: -heading})
	t, err := SolveTranslation(rotation, target, imagePoints[0], m.intrinsics)
	if err != nil {
		return nil, err
	}
	return spatialmath.NewPose(t, rotation), nil
}
