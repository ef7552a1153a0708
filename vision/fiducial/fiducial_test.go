package fiducial

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/posebench/logging"
)

func fillRect(img *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{v})
		}
	}
}

type recordingSink struct {
	mu    sync.Mutex
	names []string
}

func (s *recordingSink) GotDebugImage(_ image.Image, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
}

func TestFindTargetCornersRectangle(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 512, 512))
	fillRect(img, image.Rect(100, 200, 301, 401), 255)

	corners, err := FindTargetCorners(img, 200)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(corners), test.ShouldEqual, 4)
	test.That(t, corners[0], test.ShouldResemble, r2.Point{X: 100, Y: 200})
	for _, want := range []r2.Point{{100, 400}, {300, 400}, {300, 200}} {
		test.That(t, corners, test.ShouldContain, want)
	}

	// pixels below the threshold are background.
	dim := image.NewGray(img.Bounds())
	fillRect(dim, image.Rect(100, 200, 301, 401), 199)
	_, err = FindTargetCorners(dim, 200)
	test.That(t, errors.Is(err, ErrAmbiguousTarget), test.ShouldBeTrue)
}

func TestFindTargetCornersIgnoresSpecks(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 256, 256))
	fillRect(img, image.Rect(60, 60, 180, 150), 240)
	fillRect(img, image.Rect(10, 10, 13, 13), 255)
	fillRect(img, image.Rect(220, 30, 221, 40), 255)

	corners, err := FindTargetCorners(img, 200)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corners[0], test.ShouldResemble, r2.Point{X: 60, Y: 60})
}

func TestFindTargetCornersFailures(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 128, 128))
	_, err := FindTargetCorners(blank, 200)
	test.That(t, errors.Is(err, ErrAmbiguousTarget), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrExtractionFailed), test.ShouldBeTrue)

	two := image.NewGray(image.Rect(0, 0, 256, 256))
	fillRect(two, image.Rect(10, 10, 60, 60), 255)
	fillRect(two, image.Rect(120, 120, 200, 200), 255)
	_, err = FindTargetCorners(two, 200)
	test.That(t, errors.Is(err, ErrAmbiguousTarget), test.ShouldBeTrue)

	triangle := image.NewGray(image.Rect(0, 0, 512, 512))
	for y := 100; y < 400; y++ {
		for x := 100; x <= y; x++ {
			triangle.SetGray(x, y, color.Gray{255})
		}
	}
	_, err = FindTargetCorners(triangle, 200)
	test.That(t, errors.Is(err, ErrNotQuadrilateral), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrExtractionFailed), test.ShouldBeTrue)
}

func TestFindTargetCornersDebugOutput(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	fillRect(img, image.Rect(50, 40, 150, 170), 255)

	plain, err := FindTargetCorners(img, 200)
	test.That(t, err, test.ShouldBeNil)

	sink := &recordingSink{}
	logger, logs := logging.NewObservedTestLogger(t)
	debugged, err := FindTargetCorners(img, 200, WithDebugSink(sink, "left"), WithLogger(logger))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, debugged, test.ShouldResemble, plain)
	test.That(t, sink.names, test.ShouldResemble,
		[]string{"left-thresholded", "left-contours", "left-polygon", "left-corners"})
	test.That(t, logs.FilterMessage("found target corners").Len(), test.ShouldEqual, 1)
}
