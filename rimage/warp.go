package rimage

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posebench/utils"
)

// GetPerspectiveTransform returns the 3x3 homography mapping the four src points onto the four
// dst points, normalized so that its bottom-right entry is 1.
func GetPerspectiveTransform(src, dst []r2.Point) (*mat.Dense, error) {
	if len(src) != 4 || len(dst) != 4 {
		return nil, errors.Errorf("perspective transform needs exactly 4 point pairs, got %d and %d", len(src), len(dst))
	}
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(i, []float64{x, y, 1, 0, 0, 0, -x * u, -y * u})
		a.SetRow(i+4, []float64{0, 0, 0, x, y, 1, -x * v, -y * v})
		b.SetVec(i, u)
		b.SetVec(i+4, v)
	}
	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return nil, errors.Wrap(err, "perspective transform points are degenerate")
	}
	return mat.NewDense(3, 3, []float64{
		h.AtVec(0), h.AtVec(1), h.AtVec(2),
		h.AtVec(3), h.AtVec(4), h.AtVec(5),
		h.AtVec(6), h.AtVec(7), 1,
	}), nil
}

// WarpPoint applies a 3x3 homography to a single point.
func WarpPoint(m mat.Matrix, p r2.Point) r2.Point {
	w := m.At(2, 0)*p.X + m.At(2, 1)*p.Y + m.At(2, 2)
	return r2.Point{
		X: (m.At(0, 0)*p.X + m.At(0, 1)*p.Y + m.At(0, 2)) / w,
		Y: (m.At(1, 0)*p.X + m.At(1, 1)*p.Y + m.At(1, 2)) / w,
	}
}

// bilinearGray samples img at a sub-pixel location, reading pixels outside the image as 0.
func bilinearGray(img *image.Gray, x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0
	ix, iy := int(x0), int(y0)
	v00 := grayAtBorder(img, ix, iy, BorderConstant)
	v10 := grayAtBorder(img, ix+1, iy, BorderConstant)
	v01 := grayAtBorder(img, ix, iy+1, BorderConstant)
	v11 := grayAtBorder(img, ix+1, iy+1, BorderConstant)
	return (v00*(1-fx)+v10*fx)*(1-fy) + (v01*(1-fx)+v11*fx)*fy
}

// WarpPerspectiveGray maps img through the homography m into a new image of the given size.
// Each output pixel is pulled from the source through the inverse of m with bilinear sampling;
// anything that lands outside the source is 0.
func WarpPerspectiveGray(img *image.Gray, m mat.Matrix, size image.Point) (*image.Gray, error) {
	r, c := m.Dims()
	if r != 3 || c != 3 {
		return nil, errors.Errorf("warp needs a 3x3 homography, got %dx%d", r, c)
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, errors.Wrap(err, "homography is not invertible")
	}
	src := MakeGray(img)
	srcSize := src.Bounds().Size()
	out := image.NewGray(image.Rectangle{Max: size})
	utils.ParallelForEachPixel(size, func(x, y int) {
		fx, fy := float64(x), float64(y)
		w := inv.At(2, 0)*fx + inv.At(2, 1)*fy + inv.At(2, 2)
		if w <= 0 {
			return
		}
		sx := (inv.At(0, 0)*fx + inv.At(0, 1)*fy + inv.At(0, 2)) / w
		sy := (inv.At(1, 0)*fx + inv.At(1, 1)*fy + inv.At(1, 2)) / w
		if sx <= -1 || sy <= -1 || sx >= float64(srcSize.X) || sy >= float64(srcSize.Y) {
			return
		}
		out.Pix[y*out.Stride+x] = uint8(utils.ClampF64(math.Round(bilinearGray(src, sx, sy)), 0, 255))
	})
	return out, nil
}

// RemapGray builds an image of the given size where every pixel (x, y) is sampled from img at
// mapping(x, y), bilinearly, with 0 outside the source.
func RemapGray(img *image.Gray, size image.Point, mapping func(x, y float64) (float64, float64)) *image.Gray {
	src := MakeGray(img)
	out := image.NewGray(image.Rectangle{Max: size})
	utils.ParallelForEachPixel(size, func(x, y int) {
		sx, sy := mapping(float64(x), float64(y))
		out.Pix[y*out.Stride+x] = uint8(utils.ClampF64(math.Round(bilinearGray(src, sx, sy)), 0, 255))
	})
	return out
}
