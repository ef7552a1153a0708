// Package fiducial finds the four corners of a single bright quadrilateral target in an image.
package fiducial

import (
	"image"
	"image/color"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/posebench/logging"
	"go.viam.com/posebench/rimage"
)

// ErrExtractionFailed is the parent of every reason the corners could not be found.
var ErrExtractionFailed = errors.New("target extraction failed")

var (
	// ErrAmbiguousTarget is returned when there is not exactly one candidate blob.
	ErrAmbiguousTarget = errors.Wrap(ErrExtractionFailed, "expected exactly one target contour")
	// ErrNotQuadrilateral is returned when the blob does not simplify to four vertices.
	ErrNotQuadrilateral = errors.Wrap(ErrExtractionFailed, "target contour is not a quadrilateral")
)

const (
	// MinContourArea is the area at or below which a contour is treated as noise.
	MinContourArea = 10
	// ApproxEpsilonFraction scales the contour perimeter into the polygon simplification
	// tolerance.
	ApproxEpsilonFraction = 0.04
)

type options struct {
	sink   rimage.DebugImageSink
	name   string
	logger logging.Logger
}

// debugImage renders and emits a debug image only when a sink is configured.
func (o *options) debugImage(stage string, render func() image.Image) {
	if o.sink == nil {
		return
	}
	o.sink.GotDebugImage(render(), o.name+"-"+stage)
}

// Option configures FindTargetCorners.
type Option interface {
	apply(*options)
}

type funcOption struct {
	f func(*options)
}

func (fo *funcOption) apply(o *options) {
	fo.f(o)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{f: f}
}

// WithDebugSink sends the intermediate images to sink, named after name.
func WithDebugSink(sink rimage.DebugImageSink, name string) Option {
	return newFuncOption(func(o *options) {
		o.sink = sink
		o.name = name
	})
}

// WithLogger logs what the extraction found.
func WithLogger(logger logging.Logger) Option {
	return newFuncOption(func(o *options) {
		o.logger = logger
	})
}

// FindTargetCorners binarizes img at threshold, finds the one outer contour of meaningful size
// and simplifies it to a quadrilateral. The corners are returned in contour order starting from
// the one nearest the image origin (smallest x+y).
func FindTargetCorners(img image.Image, threshold uint8, opts ...Option) ([]r2.Point, error) {
	o := options{logger: logging.NewBlankLogger("fiducial")}
	for _, opt := range opts {
		opt.apply(&o)
	}

	binary := rimage.Threshold(rimage.MakeGray(img), threshold)
	o.debugImage("thresholded", func() image.Image { return binary })

	var contours [][]image.Point
	for _, c := range rimage.FindExternalContours(binary) {
		if rimage.ContourArea(c) > MinContourArea {
			contours = append(contours, c)
		}
	}
	o.debugImage("contours", func() image.Image { return rimage.DrawContours(binary, contours) })
	if len(contours) != 1 {
		o.logger.Debugw("wrong number of target contours", "image", o.name, "count", len(contours))
		return nil, errors.Wrapf(ErrAmbiguousTarget, "found %d", len(contours))
	}

	contour := contours[0]
	polygon := rimage.ApproxPolyDP(contour, ApproxEpsilonFraction*rimage.ArcLength(contour, true), true)
	vertices := rimage.ContourToR2(polygon)
	o.debugImage("polygon", func() image.Image {
		return rimage.DrawPolygon(binary, vertices, color.RGBA{R: 255, A: 255}, 2)
	})
	if len(polygon) != 4 {
		o.logger.Debugw("target is not a quadrilateral", "image", o.name, "vertices", len(polygon))
		return nil, errors.Wrapf(ErrNotQuadrilateral, "found %d vertices", len(polygon))
	}

	corners := rimage.RotateToMinSum(vertices)
	o.debugImage("corners", func() image.Image { return rimage.DrawPoints(binary, corners, 4) })
	o.logger.Debugw("found target corners", "image", o.name, "corners", corners)
	return corners, nil
}
