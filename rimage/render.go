package rimage

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// patchSide is the side, in pixels, of the flat patch that FillQuadrilateral maps onto the image.
const patchSide = 500

// FillQuadrilateral renders a black image of the given size containing a flat patch of the given
// brightness, perspective-mapped so that its top-left, bottom-left, bottom-right and top-right
// corners land on quad[0..3]. Edges are anti-aliased by the bilinear sampling of the warp.
func FillQuadrilateral(size image.Point, quad []r2.Point, brightness uint8) (*image.Gray, error) {
	if len(quad) != 4 {
		return nil, errors.Errorf("need 4 corners to render a quadrilateral, got %d", len(quad))
	}
	patch := ConstantGray(image.Point{patchSide, patchSide}, brightness)
	corners := []r2.Point{{X: 0, Y: 0}, {X: 0, Y: patchSide}, {X: patchSide, Y: patchSide}, {X: patchSide, Y: 0}}
	m, err := GetPerspectiveTransform(corners, quad)
	if err != nil {
		return nil, err
	}
	return WarpPerspectiveGray(patch, m, size)
}
