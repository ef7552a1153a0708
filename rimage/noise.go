package rimage

import (
	"image"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"go.viam.com/posebench/utils"
)

const (
	saltPepperLow  = 30
	saltPepperHigh = 225
)

// AddSaltAndPepper returns a copy of img with impulse noise: a uniform draw u in [0, 255) per pixel
// forces the pixel to 0 when u <= 30 and to 255 when u > 225.
func AddSaltAndPepper(img *image.Gray, rng *rand.Rand) *image.Gray {
	out := MakeGray(img)
	dist := distuv.Uniform{Min: 0, Max: 255, Src: rng}
	for i := range out.Pix {
		u := math.Floor(dist.Rand())
		switch {
		case u <= saltPepperLow:
			out.Pix[i] = 0
		case u > saltPepperHigh:
			out.Pix[i] = 255
		}
	}
	return out
}

// AddGaussianNoise returns a copy of img with a per-pixel N(mean, stddev) sample, itself rounded
// into [0, 255], added with saturation.
func AddGaussianNoise(img *image.Gray, rng *rand.Rand, mean, stddev float64) *image.Gray {
	out := MakeGray(img)
	dist := distuv.Normal{Mu: mean, Sigma: stddev, Src: rng}
	for i, v := range out.Pix {
		noise := utils.ClampF64(math.Round(dist.Rand()), 0, 255)
		out.Pix[i] = uint8(utils.ClampF64(float64(v)+noise, 0, 255))
	}
	return out
}
