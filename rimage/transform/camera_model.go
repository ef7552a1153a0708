package transform

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posebench/rimage"
	"go.viam.com/posebench/spatialmath"
)

// ErrBehindCamera is returned when a projected point is not in front of the camera.
var ErrBehindCamera = errors.New("point is not in front of the camera")

// PinholeCameraModel is the model of a pinhole camera.
type PinholeCameraModel struct {
	*PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion               Distorter `json:"distortion"`
}

// NewPinholeCameraModel pairs intrinsics with a distortion model; a nil distortion is the identity.
func NewPinholeCameraModel(intrinsics *PinholeCameraIntrinsics, distortion Distorter) (*PinholeCameraModel, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	if distortion != nil {
		if err := distortion.CheckValid(); err != nil {
			return nil, err
		}
	}
	return &PinholeCameraModel{PinholeCameraIntrinsics: intrinsics, Distortion: distortion}, nil
}

// DistortionMap is a function that transforms the undistorted input points (u,v) to the distorted points (x,y)
// according to the model in PinholeCameraModel.Distortion.
func (params *PinholeCameraModel) DistortionMap() func(u, v float64) (float64, float64) {
	return func(u, v float64) (float64, float64) {
		if params.Distortion == nil {
			return u, v
		}
		x := (u - params.Ppx) / params.Fx
		y := (v - params.Ppy) / params.Fy
		x, y = params.Distortion.Transform(x, y)
		return x*params.Fx + params.Ppx, y*params.Fy + params.Ppy
	}
}

// UndistortGray takes an input image and creates a new image the same size with the same camera parameters
// as the original image, but undistorted according to the distortion model in PinholeCameraModel. A bilinear
// interpolation is used to interpolate values between image pixels. The result never aliases img.
func (params *PinholeCameraModel) UndistortGray(img *image.Gray) (*image.Gray, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	size := img.Bounds().Size()
	if params.Width != size.X || params.Height != size.Y {
		return nil, errors.Errorf("img dimension and intrinsics don't match Image(%d,%d) != Intrinsics(%d,%d)",
			size.X, size.Y, params.Width, params.Height)
	}
	if isIdentity(params.Distortion) {
		return rimage.MakeGray(img), nil
	}
	return rimage.RemapGray(img, size, params.DistortionMap()), nil
}

// ProjectPoints maps world points through a 3x4 or 4x4 world-to-camera transform, the distortion
// model and the intrinsics into pixel coordinates.
func (params *PinholeCameraModel) ProjectPoints(points []r3.Vector, worldToCamera mat.Matrix) ([]r2.Point, error) {
	pixels := make([]r2.Point, len(points))
	for i, p := range points {
		c := spatialmath.TransformPoint(worldToCamera, p)
		if c.Z <= 0 {
			return nil, errors.Wrapf(ErrBehindCamera, "point %d at depth %.3f", i, c.Z)
		}
		x, y := c.X/c.Z, c.Y/c.Z
		if params.Distortion != nil {
			x, y = params.Distortion.Transform(x, y)
		}
		pixels[i] = params.Denormalize(r2.Point{X: x, Y: y})
	}
	return pixels, nil
}

// UntiltHomography returns the 3x3 homography K_new * Rx(tilt) * K^-1 that re-renders an image
// taken by a camera tilted about its x axis as if the camera were level. K_new has the same focal
// length as intr with the principal point in the centre of newSize.
func UntiltHomography(intr *PinholeCameraIntrinsics, tilt float64, newSize image.Point) *mat.Dense {
	var kInv mat.Dense
	if err := kInv.Inverse(intr.GetCameraMatrix()); err != nil {
		// only reachable with a zero focal length, which CheckValid rejects.
		panic(err)
	}
	untilt := spatialmath.NewRotationX(tilt).Dense()
	kNew := spatialmath.NewIntrinsicMatrix(intr.Fx, newSize.X, newSize.Y)
	var out mat.Dense
	out.Product(kNew, untilt, &kInv)
	return &out
}

// RemoveTilt warps img by UntiltHomography into an image of newSize. A zero tilt with an unchanged
// size is a copy.
func RemoveTilt(img *image.Gray, intr *PinholeCameraIntrinsics, tilt float64, newSize image.Point) (*image.Gray, error) {
	if tilt == 0 && img.Bounds().Size() == newSize &&
		math.Abs(intr.Ppx-float64(newSize.X)/2) < 1e-9 && math.Abs(intr.Ppy-float64(newSize.Y)/2) < 1e-9 &&
		intr.Fx == intr.Fy {
		return rimage.MakeGray(img), nil
	}
	return rimage.WarpPerspectiveGray(img, UntiltHomography(intr, tilt, newSize), newSize)
}
