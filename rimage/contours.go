package rimage

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
)

// BorderType distinguishes the outer border of a connected component from the border of a hole
// inside it.
type BorderType int

// The border types; a zero BorderType is unset.
const (
	Hole BorderType = iota + 1
	Outer
)

// Border is a traced border with its sequential number in the labelling.
type Border struct {
	segNum     int
	borderType BorderType
}

// CreateHoleBorder returns the border of the image frame, which acts as the root hole.
func CreateHoleBorder() Border {
	return Border{segNum: 1, borderType: Hole}
}

// PointMat is a pixel position in matrix (row, column) order.
type PointMat struct {
	Row int
	Col int
}

// Set sets the row and column.
func (p *PointMat) Set(r, c int) {
	p.Row = r
	p.Col = c
}

// SamePoint reports whether both positions are equal.
func (p *PointMat) SamePoint(q *PointMat) bool {
	return p.Row == q.Row && p.Col == q.Col
}

func isPointOutOfBounds(p *PointMat, nRows, nCols int) bool {
	return p.Row < 0 || p.Col < 0 || p.Row >= nRows || p.Col >= nCols
}

// Node is an entry of the border tree.
type Node struct {
	parent      int
	firstChild  int
	nextSibling int
	border      Border
}

func (n *Node) reset() {
	n.parent = -1
	n.firstChild = -1
	n.nextSibling = -1
}

// Hierarchy links a contour to its parent, first child and next sibling; -1 marks absence and a
// Parent of -1 means the contour sits directly inside the image frame.
type Hierarchy struct {
	Parent      int
	FirstChild  int
	NextSibling int
	BorderType  BorderType
}

// clockwise neighbour offsets in (row, col), starting to the right.
var neighbours8 = [8]PointMat{
	{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1},
}

func neighbourIndex(center, p PointMat) int {
	dr, dc := p.Row-center.Row, p.Col-center.Col
	for i, n := range neighbours8 {
		if n.Row == dr && n.Col == dc {
			return i
		}
	}
	return -1
}

// markExamined records that mark, a 4-neighbour of center, was looked at while searching around
// center. Slots are right, down, left and up.
func markExamined(mark, center PointMat, checked []bool) {
	switch {
	case mark.Row == center.Row && mark.Col == center.Col+1:
		checked[0] = true
	case mark.Row == center.Row+1 && mark.Col == center.Col:
		checked[1] = true
	case mark.Row == center.Row && mark.Col == center.Col-1:
		checked[2] = true
	case mark.Row == center.Row-1 && mark.Col == center.Col:
		checked[3] = true
	}
}

// isExamined reports whether the right-hand neighbour was examined.
func isExamined(checked []bool) bool {
	return checked[0]
}

// labelGrid is the working copy of the binary image with one pixel of zero padding on each side.
type labelGrid struct {
	data  []int
	nRows int
	nCols int
}

func (g *labelGrid) at(p PointMat) int {
	if isPointOutOfBounds(&p, g.nRows, g.nCols) {
		return 0
	}
	return g.data[p.Row*g.nCols+p.Col]
}

func (g *labelGrid) set(p PointMat, v int) {
	g.data[p.Row*g.nCols+p.Col] = v
}

// followBorder traces one border starting at start, whose zero neighbour is from, labelling it with
// nbd, and returns the border pixels in padded coordinates.
func (g *labelGrid) followBorder(start, from PointMat, nbd int) []PointMat {
	// 3.1: clockwise search around start for a non-zero pixel, beginning at from.
	fromIdx := neighbourIndex(start, from)
	found := false
	var p1 PointMat
	for k := 0; k < 8; k++ {
		n := neighbours8[(fromIdx+k)%8]
		candidate := PointMat{start.Row + n.Row, start.Col + n.Col}
		if g.at(candidate) != 0 {
			p1 = candidate
			found = true
			break
		}
	}
	if !found {
		g.set(start, -nbd)
		return []PointMat{start}
	}

	points := []PointMat{}
	p2, p3 := p1, start
	for {
		points = append(points, p3)
		// 3.3: counter-clockwise search around p3, starting just after p2.
		checked := make([]bool, 4)
		idx := neighbourIndex(p3, p2)
		var p4 PointMat
		for k := 1; k <= 8; k++ {
			n := neighbours8[(idx-k+16)%8]
			candidate := PointMat{p3.Row + n.Row, p3.Col + n.Col}
			if g.at(candidate) != 0 {
				p4 = candidate
				break
			}
			markExamined(candidate, p3, checked)
		}
		// 3.4
		if isExamined(checked) {
			g.set(p3, -nbd)
		} else if g.at(p3) == 1 {
			g.set(p3, nbd)
		}
		// 3.5
		if p4.SamePoint(&start) && p3.SamePoint(&p1) {
			return points
		}
		p2, p3 = p3, p4
	}
}

// FindContours traces every border of the non-zero pixels of img with the Suzuki-Abe border
// following algorithm. It returns each border's pixels in tracing order together with the border
// tree; contours and hierarchy share indices.
func FindContours(img *image.Gray) ([][]image.Point, []Hierarchy) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	grid := &labelGrid{data: make([]int, (w+2)*(h+2)), nRows: h + 2, nCols: w + 2}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if img.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y != 0 {
				grid.set(PointMat{y + 1, x + 1}, 1)
			}
		}
	}

	// node 0 is the frame; node k (k >= 1) is the border labelled k+1.
	frame := Node{border: CreateHoleBorder()}
	frame.reset()
	nodes := []Node{frame}
	var traced [][]PointMat

	nbd := 1
	for r := 1; r < grid.nRows-1; r++ {
		lnbd := 1
		for c := 1; c < grid.nCols-1; c++ {
			here := PointMat{r, c}
			v := grid.at(here)
			var from PointMat
			var borderType BorderType
			switch {
			case v == 1 && grid.at(PointMat{r, c - 1}) == 0:
				borderType = Outer
				from.Set(r, c-1)
			case v >= 1 && grid.at(PointMat{r, c + 1}) == 0:
				borderType = Hole
				from.Set(r, c+1)
				if v > 1 {
					lnbd = v
				}
			}
			if borderType != 0 {
				nbd++
				node := Node{border: Border{segNum: nbd, borderType: borderType}}
				node.reset()
				last := nodes[lnbd-1]
				if (borderType == Outer) == (last.border.borderType == Outer) {
					node.parent = last.parent
				} else {
					node.parent = lnbd - 1
				}
				nodes = append(nodes, node)
				linkChild(nodes, len(nodes)-1)
				traced = append(traced, grid.followBorder(here, from, nbd))
			}
			// 4
			if cur := grid.at(here); cur != 1 && cur != 0 {
				lnbd = absInt(cur)
			}
		}
	}

	contours := make([][]image.Point, len(traced))
	for i, border := range traced {
		contour := make([]image.Point, len(border))
		for j, p := range border {
			contour[j] = image.Point{bounds.Min.X + p.Col - 1, bounds.Min.Y + p.Row - 1}
		}
		contours[i] = contour
	}
	hierarchy := make([]Hierarchy, len(traced))
	for i := range hierarchy {
		n := nodes[i+1]
		hierarchy[i] = Hierarchy{
			Parent:      n.parent - 1,
			FirstChild:  nodeToContour(n.firstChild),
			NextSibling: nodeToContour(n.nextSibling),
			BorderType:  n.border.borderType,
		}
	}
	return contours, hierarchy
}

func nodeToContour(idx int) int {
	if idx <= 0 {
		return -1
	}
	return idx - 1
}

func linkChild(nodes []Node, child int) {
	parent := nodes[child].parent
	if parent < 0 {
		return
	}
	if nodes[parent].firstChild == -1 {
		nodes[parent].firstChild = child
		return
	}
	sibling := nodes[parent].firstChild
	for nodes[sibling].nextSibling != -1 {
		sibling = nodes[sibling].nextSibling
	}
	nodes[sibling].nextSibling = child
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// FindExternalContours returns only the outermost borders of img, with straight horizontal,
// vertical and diagonal runs compressed to their end points.
func FindExternalContours(img *image.Gray) [][]image.Point {
	contours, hierarchy := FindContours(img)
	var external [][]image.Point
	for i, c := range contours {
		if hierarchy[i].BorderType == Outer && hierarchy[i].Parent == -1 {
			external = append(external, CompressChain(c))
		}
	}
	return external
}

// CompressChain drops every point of a closed pixel chain that continues the step direction of the
// point before it. The first point is always kept.
func CompressChain(chain []image.Point) []image.Point {
	n := len(chain)
	if n <= 2 {
		return append([]image.Point(nil), chain...)
	}
	out := []image.Point{chain[0]}
	for i := 1; i < n; i++ {
		in := chain[i].Sub(chain[i-1])
		next := chain[(i+1)%n].Sub(chain[i])
		if in != next {
			out = append(out, chain[i])
		}
	}
	return out
}

// ContourArea is the absolute area enclosed by the closed polygon through the contour points.
func ContourArea(contour []image.Point) float64 {
	n := len(contour)
	if n < 3 {
		return 0
	}
	sum := 0
	for i := 0; i < n; i++ {
		a, b := contour[i], contour[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(float64(sum)) / 2
}

// ArcLength is the length of the polyline through the contour points, closed back to the first
// point when closed is set.
func ArcLength(contour []image.Point, closed bool) float64 {
	length := 0.
	for i := 1; i < len(contour); i++ {
		length += PointDistance(contour[i-1], contour[i])
	}
	if closed && len(contour) > 1 {
		length += PointDistance(contour[len(contour)-1], contour[0])
	}
	return length
}

// ContourToR2 converts integer contour points to floating point ones.
func ContourToR2(contour []image.Point) []r2.Point {
	out := make([]r2.Point, len(contour))
	for i, p := range contour {
		out[i] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}
