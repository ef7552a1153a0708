package rimage

import (
	"image"
	"math"
	"slices"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"go.viam.com/posebench/utils"
)

// Helper function for convolving matrices together, When used with i, dx := range makeRangeArray(n)
// i is the position within the kernel and dx gives the offset within the image.
// if length is even, then the origin is to the right of middle i.e. 4 -> {-2, -1, 0, 1}.
func makeRangeArray(length int) []int {
	if length <= 0 {
		return make([]int, 0)
	}
	rangeArray := make([]int, length)
	span := length / 2
	for i := range rangeArray {
		rangeArray[i] = i - span
	}
	return rangeArray
}

// GaussianFunction1D takes in a sigma and returns a gaussian function useful for weighing averages or blurring.
func GaussianFunction1D(sigma float64) func(p float64) float64 {
	if sigma <= 0. {
		return func(p float64) float64 {
			return 1.
		}
	}
	return func(p float64) float64 {
		return math.Exp(-0.5*p*p/(sigma*sigma)) / (sigma * math.Sqrt(2.*math.Pi))
	}
}

// smallGaussianTabs are the binomial kernels used for odd sizes up to 7 when no sigma is given.
var smallGaussianTabs = map[int][]float64{
	1: {1},
	3: {0.25, 0.5, 0.25},
	5: {0.0625, 0.25, 0.375, 0.25, 0.0625},
	7: {0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// GaussianSigmaForSize is the sigma implied by a kernel size when none is given.
func GaussianSigmaForSize(ksize int) float64 {
	return 0.3*((float64(ksize)-1)*0.5-1) + 0.8
}

// GetGaussianKernel1D returns ksize normalized gaussian weights. With sigma <= 0 the sigma is
// derived from ksize, and the fixed binomial tables are used for sizes 1, 3, 5 and 7.
func GetGaussianKernel1D(ksize int, sigma float64) ([]float64, error) {
	if ksize <= 0 || ksize%2 == 0 {
		return nil, errors.Errorf("gaussian kernel size must be odd and positive, got %d", ksize)
	}
	if tab, ok := smallGaussianTabs[ksize]; ok && sigma <= 0 {
		return slices.Clone(tab), nil
	}
	if sigma <= 0 {
		sigma = GaussianSigmaForSize(ksize)
	}
	gaus := GaussianFunction1D(sigma)
	weights := make([]float64, ksize)
	sum := 0.
	for i, x := range makeRangeArray(ksize) {
		weights[i] = gaus(float64(x))
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights, nil
}

// GaussianKernel returns the separable ksize x ksize gaussian kernel as a single 2D Kernel.
func GaussianKernel(ksize int, sigma float64) (*Kernel, error) {
	weights, err := GetGaussianKernel1D(ksize, sigma)
	if err != nil {
		return nil, err
	}
	content := make([][]float64, ksize)
	for y := range content {
		content[y] = make([]float64, ksize)
		for x := range content[y] {
			content[y][x] = weights[y] * weights[x]
		}
	}
	return NewKernel(content)
}

// GaussianBlurGray smooths img with a ksize x ksize gaussian whose sigma is derived from the size.
// Borders are mirrored without repeating the edge pixel.
func GaussianBlurGray(img *image.Gray, ksize int) (*image.Gray, error) {
	kernel, err := GaussianKernel(ksize, 0)
	if err != nil {
		return nil, err
	}
	return ConvolveGray(img, kernel, image.Point{ksize / 2, ksize / 2}, BorderReflect101)
}

// MedianBlurGray replaces every pixel by the median of its ksize x ksize neighbourhood, replicating
// edge pixels outside the image.
func MedianBlurGray(img *image.Gray, ksize int) (*image.Gray, error) {
	if ksize <= 1 || ksize%2 == 0 {
		return nil, errors.Errorf("median kernel size must be odd and greater than 1, got %d", ksize)
	}
	src := MakeGray(img)
	size := src.Bounds().Size()
	out := image.NewGray(src.Bounds())
	offsets := makeRangeArray(ksize)
	utils.ParallelForEachPixel(size, func(x, y int) {
		var stack [49]uint8
		window := stack[:0]
		for _, dy := range offsets {
			for _, dx := range offsets {
				window = append(window, uint8(grayAtBorder(src, x+dx, y+dy, BorderReplicate)))
			}
		}
		slices.Sort(window)
		out.Pix[y*out.Stride+x] = window[len(window)/2]
	})
	return out, nil
}

// BlurGray applies an optical-style gaussian blur of the given sigma (in pixels).
func BlurGray(img image.Image, sigma float64) *image.Gray {
	if sigma <= 0 {
		return MakeGray(img)
	}
	return MakeGray(imaging.Blur(img, sigma))
}
