package rimage

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/posebench/utils"
)

// BorderPad is used to decide how pixels outside of an image are read by a filter.
type BorderPad int

const (
	// BorderConstant reads every outside pixel as 0.
	BorderConstant BorderPad = iota
	// BorderReplicate repeats the nearest edge pixel: aaa|abcd|ddd.
	BorderReplicate
	// BorderReflect101 mirrors around the edge pixel without repeating it: cb|abcd|cb.
	BorderReflect101
)

// Kernel is a convolution kernel stored row by row.
type Kernel struct {
	Content [][]float64
	Height  int
	Width   int
}

// NewKernel wraps a rectangular slice of rows as a Kernel.
func NewKernel(content [][]float64) (*Kernel, error) {
	if len(content) == 0 || len(content[0]) == 0 {
		return nil, errors.New("kernel must have at least one element")
	}
	for _, row := range content {
		if len(row) != len(content[0]) {
			return nil, errors.New("kernel rows must all have the same length")
		}
	}
	return &Kernel{Content: content, Height: len(content), Width: len(content[0])}, nil
}

// Size returns the kernel's width and height.
func (k *Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// At returns the weight at column x, row y.
func (k *Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// Normalize returns a copy of the kernel whose weights sum to 1.
func (k *Kernel) Normalize() *Kernel {
	sum := 0.
	for _, row := range k.Content {
		for _, v := range row {
			sum += v
		}
	}
	out := make([][]float64, k.Height)
	for y, row := range k.Content {
		out[y] = make([]float64, k.Width)
		for x, v := range row {
			if sum != 0 {
				out[y][x] = v / sum
			} else {
				out[y][x] = v
			}
		}
	}
	return &Kernel{Content: out, Height: k.Height, Width: k.Width}
}

// borderIndex maps a possibly out-of-range index into [0, n) according to the border mode. The
// boolean is false when the pixel should be read as 0.
func borderIndex(i, n int, border BorderPad) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch border {
	case BorderReplicate:
		return utils.ClampInt(i, 0, n-1), true
	case BorderReflect101:
		if n == 1 {
			return 0, true
		}
		period := 2 * (n - 1)
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - i
		}
		return i, true
	default:
		return 0, false
	}
}

func grayAtBorder(img *image.Gray, x, y int, border BorderPad) float64 {
	size := img.Bounds().Size()
	xx, okX := borderIndex(x, size.X, border)
	yy, okY := borderIndex(y, size.Y, border)
	if !okX || !okY {
		return 0
	}
	return float64(img.Pix[yy*img.Stride+xx])
}

// ConvolveGray applies a convolution matrix (Kernel) to a grayscale image. The anchor is the
// kernel cell that lands on the output pixel; results are rounded and clamped to [0, 255].
//
//	res, err := ConvolveGray(img, kernel, image.Point{1, 1}, BorderReflect101)
func ConvolveGray(img *image.Gray, kernel *Kernel, anchor image.Point, border BorderPad) (*image.Gray, error) {
	kernelSize := kernel.Size()
	if !anchor.In(image.Rectangle{Max: kernelSize}) {
		return nil, errors.Errorf("anchor %v is outside of the %dx%d kernel", anchor, kernelSize.X, kernelSize.Y)
	}
	src := MakeGray(img)
	size := src.Bounds().Size()
	result := image.NewGray(src.Bounds())
	utils.ParallelForEachPixel(size, func(x, y int) {
		sum := 0.
		for ky := 0; ky < kernelSize.Y; ky++ {
			for kx := 0; kx < kernelSize.X; kx++ {
				sum += grayAtBorder(src, x+kx-anchor.X, y+ky-anchor.Y, border) * kernel.At(kx, ky)
			}
		}
		result.Pix[y*result.Stride+x] = uint8(utils.ClampF64(math.Round(sum), 0, 255))
	})
	return result, nil
}
