package rimage

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
)

// PointDistance is the euclidean distance between two pixels.
func PointDistance(a, b image.Point) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}

// BoundingBox returns the smallest rectangle containing all the points, with Max inclusive.
func BoundingBox(pts []r2.Point) r2.Rect {
	return r2.RectFromPoints(pts...)
}

// AllPointsIn reports whether every point lies inside the [0, size.X) x [0, size.Y) viewport.
func AllPointsIn(size image.Point, pts []r2.Point) bool {
	for _, p := range pts {
		if p.X < 0 || p.Y < 0 {
			return false
		}
		if p.X >= float64(size.X) || p.Y >= float64(size.Y) {
			return false
		}
	}
	return true
}

// RotateToMinSum cyclically rotates pts so that the point with the smallest x+y comes first,
// keeping the winding. The input is not modified.
func RotateToMinSum(pts []r2.Point) []r2.Point {
	if len(pts) == 0 {
		return nil
	}
	first := 0
	for i, p := range pts {
		if p.X+p.Y < pts[first].X+pts[first].Y {
			first = i
		}
	}
	out := make([]r2.Point, 0, len(pts))
	out = append(out, pts[first:]...)
	return append(out, pts[:first]...)
}
