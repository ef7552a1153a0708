// Package poseestimation turns camera images of a known planar target into the pose of the camera
// rig. Every strategy shares the same image pipeline and differs only in how it solves for a pose
// from the extracted corners.
package poseestimation

import (
	"fmt"
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/posebench/logging"
	"go.viam.com/posebench/rimage"
	"go.viam.com/posebench/rimage/transform"
	"go.viam.com/posebench/spatialmath"
	"go.viam.com/posebench/spatialmath/alignment"
	"go.viam.com/posebench/vision/fiducial"
	"go.viam.com/posebench/vision/triangulation"
)

const (
	// CornerThreshold is the binarization level used to find the bright target.
	CornerThreshold = 200
	// MedianKernelSize is the salt and pepper filter window.
	MedianKernelSize = 3
	// GaussianKernelSize is the smoothing window applied before corner extraction.
	GaussianKernelSize = 3
)

var (
	// ErrNoPose means a frame produced no estimate. It is expected with noisy or adversarial
	// input and is not fatal.
	ErrNoPose = errors.New("no pose for this frame")
	// ErrContractViolation means the caller broke the estimator's input contract, e.g. by
	// passing the wrong number of images.
	ErrContractViolation = errors.New("estimator contract violation")
)

// Camera describes one eye of a rig.
type Camera struct {
	Intrinsics *transform.PinholeCameraIntrinsics
	Distortion transform.Distorter
	// Tilt is the downward rotation about the camera x axis, in radians.
	Tilt float64
	// XOffset is the eye's displacement from the rig centre along x, in metres.
	XOffset float64
}

// Model returns the pinhole model of the eye.
func (c Camera) Model() (*transform.PinholeCameraModel, error) {
	return transform.NewPinholeCameraModel(c.Intrinsics, c.Distortion)
}

// Estimator is a pose estimation strategy.
type Estimator interface {
	// Name identifies the strategy, with an IMU suffix when it fuses a heading.
	Name() string
	Description() string
	// Cameras lists the eyes in the order images and point sets must be given.
	Cameras() []Camera
	// PoseFromPoints returns the world-to-rig transform given the target corners in world
	// coordinates and the matching pixel coordinates seen by each eye.
	PoseFromPoints(heading float64, target []r3.Vector, imagePoints [][]r2.Point) (*spatialmath.Pose, error)
}

// Diagnostics controls what PoseFromImages reports about a frame. The zero value is silent.
type Diagnostics struct {
	Logger logging.Logger
	Sink   rimage.DebugImageSink
	// Frame numbers the debug images.
	Frame int
}

func (d Diagnostics) debug(msg string, keysAndValues ...interface{}) {
	if d.Logger != nil {
		d.Logger.Debugw(msg, keysAndValues...)
	}
}

func (d Diagnostics) image(img image.Image, name string) {
	if d.Sink != nil {
		d.Sink.GotDebugImage(img, name)
	}
}

// noPoseError marks a frame-level failure while keeping its cause inspectable.
type noPoseError struct {
	cause error
}

func (e *noPoseError) Error() string {
	return ErrNoPose.Error() + ": " + e.cause.Error()
}

func (e *noPoseError) Unwrap() error {
	return e.cause
}

func (e *noPoseError) Is(target error) bool {
	return target == ErrNoPose
}

func noPose(cause error) error {
	return &noPoseError{cause: cause}
}

// isDegenerate reports whether err is an expected numeric failure rather than a caller bug.
func isDegenerate(err error) bool {
	return errors.Is(err, alignment.ErrDegenerateGeometry) ||
		errors.Is(err, triangulation.ErrDegenerateTriangulation) ||
		errors.Is(err, fiducial.ErrExtractionFailed)
}

// PoseFromImages runs the shared pipeline on one image per camera: undistort, remove tilt, median
// blur, Gaussian blur and corner extraction. The corners are then handed to PoseFromPoints.
// Any eye without a target, and any degenerate solve, yields an error matching ErrNoPose.
func PoseFromImages(
	est Estimator,
	heading float64,
	target []r3.Vector,
	images []image.Image,
	diag Diagnostics,
) (*spatialmath.Pose, error) {
	cameras := est.Cameras()
	if len(images) != len(cameras) {
		return nil, errors.Wrapf(ErrContractViolation, "%s needs %d images, got %d", est.Name(), len(cameras), len(images))
	}
	imagePoints := make([][]r2.Point, len(images))
	for i, img := range images {
		name := fmt.Sprintf("frame-%d-%s-eye%d", diag.Frame, est.Name(), i)
		corners, err := eyeCorners(cameras[i], img, name, diag)
		if err != nil {
			if isDegenerate(err) {
				diag.debug("no target corners", "estimator", est.Name(), "eye", i, "error", err)
				return nil, noPose(err)
			}
			return nil, err
		}
		imagePoints[i] = corners
	}
	pose, err := est.PoseFromPoints(heading, target, imagePoints)
	if err != nil {
		if isDegenerate(err) {
			diag.debug("degenerate solve", "estimator", est.Name(), "error", err)
			return nil, noPose(err)
		}
		return nil, err
	}
	return pose, nil
}

func eyeCorners(cam Camera, img image.Image, name string, diag Diagnostics) ([]r2.Point, error) {
	model, err := cam.Model()
	if err != nil {
		return nil, err
	}
	gray := rimage.MakeGray(img)
	undistorted, err := model.UndistortGray(gray)
	if err != nil {
		return nil, err
	}
	diag.image(undistorted, name+"-undistorted")

	size := image.Point{cam.Intrinsics.Width, cam.Intrinsics.Height}
	untilted, err := transform.RemoveTilt(undistorted, cam.Intrinsics, cam.Tilt, size)
	if err != nil {
		return nil, err
	}
	diag.image(untilted, name+"-untilted")

	denoised, err := rimage.MedianBlurGray(untilted, MedianKernelSize)
	if err != nil {
		return nil, err
	}
	diag.image(denoised, name+"-nosalt")

	smoothed, err := rimage.GaussianBlurGray(denoised, GaussianKernelSize)
	if err != nil {
		return nil, err
	}
	diag.image(smoothed, name+"-degauss")

	opts := []fiducial.Option{}
	if diag.Sink != nil {
		opts = append(opts, fiducial.WithDebugSink(diag.Sink, name))
	}
	if diag.Logger != nil {
		opts = append(opts, fiducial.WithLogger(diag.Logger))
	}
	return fiducial.FindTargetCorners(smoothed, CornerThreshold, opts...)
}

// checkEyes validates the shape of PoseFromPoints input.
func checkEyes(est Estimator, target []r3.Vector, imagePoints [][]r2.Point) error {
	if want := len(est.Cameras()); len(imagePoints) != want {
		return errors.Wrapf(ErrContractViolation, "%s needs points from %d eyes, got %d", est.Name(), want, len(imagePoints))
	}
	for i, pts := range imagePoints {
		if len(pts) != len(target) {
			return errors.Wrapf(ErrContractViolation, "eye %d has %d points for %d target points", i, len(pts), len(target))
		}
	}
	return nil
}

// ForwardPoints returns the target's ground-plane footprint as (x, z) pairs.
func ForwardPoints(target []r3.Vector) []r2.Point {
	out := make([]r2.Point, len(target))
	for i, p := range target {
		out[i] = r2.Point{X: p.X, Y: p.Z}
	}
	return out
}

// TargetGeometry returns the corners of a width x height target centred on the origin in the
// z = 0 plane, in the order the corner extractor reports them.
func TargetGeometry(width, height float64) []r3.Vector {
	return []r3.Vector{
		{X: -width / 2, Y: -height / 2},
		{X: -width / 2, Y: height / 2},
		{X: width / 2, Y: height / 2},
		{X: width / 2, Y: -height / 2},
	}
}

func binocularCameras(f float64, width, height int, baseline float64) []Camera {
	intr := transform.NewPinholeCameraIntrinsics(f, width, height)
	return []Camera{
		{Intrinsics: intr, Distortion: &transform.BrownConrady{}, XOffset: baseline / 2},
		{Intrinsics: intr, Distortion: &transform.BrownConrady{}, XOffset: -baseline / 2},
	}
}

func suffix(useIMU bool) string {
	if useIMU {
		return "IMU"
	}
	return ""
}
