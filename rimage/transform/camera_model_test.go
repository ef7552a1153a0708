package transform

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/posebench/rimage"
	"go.viam.com/posebench/spatialmath"
)

func TestPinholeCameraIntrinsics(t *testing.T) {
	intr := NewPinholeCameraIntrinsics(985, 1280, 800)
	test.That(t, intr.CheckValid(), test.ShouldBeNil)
	test.That(t, intr.Ppx, test.ShouldEqual, 640.)
	test.That(t, intr.Ppy, test.ShouldEqual, 400.)

	k := intr.GetCameraMatrix()
	test.That(t, k.At(0, 0), test.ShouldEqual, 985.)
	test.That(t, k.At(1, 2), test.ShouldEqual, 400.)

	x, y, z := intr.PixelToPoint(640+98.5, 400-197, 2)
	test.That(t, x, test.ShouldAlmostEqual, 0.2)
	test.That(t, y, test.ShouldAlmostEqual, -0.4)
	test.That(t, z, test.ShouldEqual, 2.)
	u, v := intr.PointToPixel(x, y, z)
	test.That(t, u, test.ShouldAlmostEqual, 738.5)
	test.That(t, v, test.ShouldAlmostEqual, 203)
	u, v = intr.PointToPixel(1, 1, 0)
	test.That(t, u, test.ShouldEqual, -1.)
	test.That(t, v, test.ShouldEqual, -1.)

	p := r2.Point{X: 12.5, Y: 700}
	back := intr.Denormalize(intr.Normalize(p))
	test.That(t, back.X, test.ShouldAlmostEqual, p.X)
	test.That(t, back.Y, test.ShouldAlmostEqual, p.Y)

	var missing *PinholeCameraIntrinsics
	test.That(t, errors.Is(missing.CheckValid(), ErrNoIntrinsics), test.ShouldBeTrue)
	test.That(t, (&PinholeCameraIntrinsics{Width: 10, Height: 10}).CheckValid(), test.ShouldNotBeNil)
	test.That(t, (&PinholeCameraIntrinsics{Width: 10, Height: 10, Fx: 1, Fy: 1, Ppx: -1}).CheckValid(), test.ShouldNotBeNil)
}

func TestProjectPoints(t *testing.T) {
	model, err := NewPinholeCameraModel(NewPinholeCameraIntrinsics(985, 1280, 800), &BrownConrady{})
	test.That(t, err, test.ShouldBeNil)

	worldToCamera := spatialmath.WorldToCamera(0, r3.Vector{0, 0, -5})
	pixels, err := model.ProjectPoints([]r3.Vector{{0, 0, 0}, {0.25, -0.25, 0}}, worldToCamera)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pixels[0].X, test.ShouldAlmostEqual, 640)
	test.That(t, pixels[0].Y, test.ShouldAlmostEqual, 400)
	test.That(t, pixels[1].X, test.ShouldAlmostEqual, 640+985*0.05)
	test.That(t, pixels[1].Y, test.ShouldAlmostEqual, 400-985*0.05)

	// a camera looking away from the point
	_, err = model.ProjectPoints([]r3.Vector{{0, 0, -10}}, worldToCamera)
	test.That(t, errors.Is(err, ErrBehindCamera), test.ShouldBeTrue)

	_, err = NewPinholeCameraModel(&PinholeCameraIntrinsics{}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPinholeCameraModel(NewPinholeCameraIntrinsics(1, 2, 2), (*BrownConrady)(nil))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestUndistortGray(t *testing.T) {
	img := rimage.ConstantGray(image.Point{64, 48}, 10)
	img.Pix[24*img.Stride+32] = 250

	model, err := NewPinholeCameraModel(NewPinholeCameraIntrinsics(60, 64, 48), &BrownConrady{})
	test.That(t, err, test.ShouldBeNil)
	same, err := model.UndistortGray(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same.Pix, test.ShouldResemble, img.Pix)
	same.Pix[0] = 0
	test.That(t, img.Pix[0], test.ShouldEqual, uint8(10))

	// the principal point is a fixed point of any radial model
	model.Distortion = &BrownConrady{RadialK1: 0.2}
	undistorted, err := model.UndistortGray(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, undistorted.GrayAt(32, 24).Y, test.ShouldEqual, uint8(250))

	_, err = model.UndistortGray(image.NewGray(image.Rect(0, 0, 10, 10)))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = model.UndistortGray(nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestUntiltHomography(t *testing.T) {
	intr := NewPinholeCameraIntrinsics(985, 1280, 800)
	h := UntiltHomography(intr, 0, image.Point{1280, 800})
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := 0.
			if r == c {
				want = 1
			}
			test.That(t, h.At(r, c), test.ShouldAlmostEqual, want)
		}
	}

	// a pixel on the optical axis of a camera tilted by theta lands where the level camera sees the
	// ray rotated by theta about x.
	const tilt = 0.2
	h = UntiltHomography(intr, tilt, image.Point{1280, 800})
	center := rimage.WarpPoint(h, r2.Point{X: 640, Y: 400})
	test.That(t, center.X, test.ShouldAlmostEqual, 640)
	test.That(t, center.Y, test.ShouldAlmostEqual, 400-985*math.Tan(tilt))

	img := rimage.ConstantGray(image.Point{1280, 800}, 0)
	level, err := RemoveTilt(img, intr, 0, image.Point{1280, 800})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level.Bounds().Size(), test.ShouldResemble, image.Point{1280, 800})
	tall, err := RemoveTilt(img, intr, tilt, image.Point{1280, 1000})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tall.Bounds().Size(), test.ShouldResemble, image.Point{1280, 1000})
}
