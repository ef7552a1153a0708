package rimage

import (
	"image"
	"image/color"
	"image/draw"
)

// SameImgSize compares images to see if they're the same size.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Size() == g2.Bounds().Size()
}

// MakeGray converts any image into a freshly allocated *image.Gray anchored at the origin.
// A *image.Gray input is copied, never aliased.
func MakeGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	result := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < bounds.Dy(); y++ {
			srcRow := g.Pix[g.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			copy(result.Pix[y*result.Stride:(y+1)*result.Stride], srcRow[:bounds.Dx()])
		}
		return result
	}
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)
	return result
}

// Threshold binarizes a gray image: values at or above t become 255, everything else 0.
func Threshold(img *image.Gray, t uint8) *image.Gray {
	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		if v >= t {
			out.Pix[i] = 255
		}
	}
	return out
}

// ConstantGray returns a size.X by size.Y image filled with v.
func ConstantGray(size image.Point, v uint8) *image.Gray {
	img := image.NewGray(image.Rectangle{Max: size})
	if v != 0 {
		draw.Draw(img, img.Bounds(), &image.Uniform{color.Gray{Y: v}}, image.Point{}, draw.Src)
	}
	return img
}
