package rimage

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
)

// perpendicularDistance is the distance from p to the infinite line through a and b, or to a when
// a and b coincide.
func perpendicularDistance(p, a, b r2.Point) float64 {
	d := b.Sub(a)
	if d.Norm() == 0 {
		return p.Sub(a).Norm()
	}
	return math.Abs(p.Sub(a).Cross(d)) / d.Norm()
}

// ApproxContourDP simplifies an open curve with the Ramer-Douglas-Peucker algorithm: points closer
// than epsilon to the chord of their section are dropped. Both end points are always kept.
func ApproxContourDP(contour []r2.Point, epsilon float64) []r2.Point {
	if len(contour) < 3 {
		return append([]r2.Point(nil), contour...)
	}
	keep := make([]bool, len(contour))
	keep[0] = true
	keep[len(contour)-1] = true
	rdp(contour, 0, len(contour)-1, epsilon, keep)
	out := make([]r2.Point, 0, len(contour))
	for i, k := range keep {
		if k {
			out = append(out, contour[i])
		}
	}
	return out
}

// rdp marks the points to keep strictly between first and last.
func rdp(points []r2.Point, first, last int, epsilon float64, keep []bool) {
	if last-first < 2 {
		return
	}
	maxDist := -1.
	index := first
	for i := first + 1; i < last; i++ {
		d := perpendicularDistance(points[i], points[first], points[last])
		if d > maxDist {
			maxDist = d
			index = i
		}
	}
	if maxDist <= epsilon {
		return
	}
	keep[index] = true
	rdp(points, first, index, epsilon, keep)
	rdp(points, index, last, epsilon, keep)
}

// ApproxPolyDP approximates a contour with a polygon whose vertices are a subset of the contour
// points and whose edges stay within epsilon of it. For closed curves the two starting vertices are
// picked by repeatedly jumping to the point farthest from the current one, so the result does not
// depend on where the tracing started; nearly collinear leftovers are merged in a final pass.
func ApproxPolyDP(contour []image.Point, epsilon float64, closed bool) []image.Point {
	points := ContourToR2(contour)
	if !closed {
		return toImagePoints(ApproxContourDP(points, epsilon))
	}
	n := len(points)
	if n < 3 {
		return append([]image.Point(nil), contour...)
	}

	const initIters = 3
	pos, far := 0, 0
	maxDist := 0.
	for i := 0; i < initIters; i++ {
		pos = far
		maxDist = 0
		for j := 1; j < n; j++ {
			d := points[(pos+j)%n].Sub(points[pos]).Norm()
			if d > maxDist {
				maxDist = d
				far = (pos + j) % n
			}
		}
	}
	if maxDist <= epsilon {
		return []image.Point{contour[pos]}
	}

	// walk both halves of the loop, pos -> far and far -> pos.
	var vertices []int
	vertices = append(vertices, closedSection(points, pos, far, epsilon)...)
	vertices = append(vertices, closedSection(points, far, pos, epsilon)...)
	vertices = mergeCollinear(points, vertices, epsilon)

	out := make([]image.Point, len(vertices))
	for i, idx := range vertices {
		out[i] = contour[idx]
	}
	return out
}

// closedSection simplifies the cyclic run of points from start up to (not including) end and
// returns the indices of the vertices it keeps, start first.
func closedSection(points []r2.Point, start, end int, epsilon float64) []int {
	n := len(points)
	length := (end - start + n) % n
	run := make([]r2.Point, length+1)
	for i := range run {
		run[i] = points[(start+i)%n]
	}
	keep := make([]bool, len(run))
	keep[0] = true
	rdp(run, 0, len(run)-1, epsilon, keep)
	var out []int
	for i := 0; i < len(run)-1; i++ {
		if keep[i] {
			out = append(out, (start+i)%n)
		}
	}
	return out
}

// mergeCollinear drops vertices that lie within epsilon of the line through their neighbours and
// between them.
func mergeCollinear(points []r2.Point, vertices []int, epsilon float64) []int {
	if len(vertices) <= 2 {
		return vertices
	}
	out := append([]int(nil), vertices...)
	for i := 0; len(out) > 2 && i < len(out); {
		prev := points[out[(i-1+len(out))%len(out)]]
		pt := points[out[i]]
		next := points[out[(i+1)%len(out)]]
		d := next.Sub(prev)
		dist := math.Abs(pt.Sub(prev).Cross(d))
		inner := pt.Sub(prev).Dot(next.Sub(pt))
		if dist*dist <= 0.5*epsilon*epsilon*d.Dot(d) && d.X != 0 && d.Y != 0 && inner >= 0 {
			out = append(out[:i], out[i+1:]...)
			continue
		}
		i++
	}
	return out
}

func toImagePoints(points []r2.Point) []image.Point {
	out := make([]image.Point, len(points))
	for i, p := range points {
		out[i] = image.Point{int(math.Round(p.X)), int(math.Round(p.Y))}
	}
	return out
}
