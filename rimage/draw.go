package rimage

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// Palette returns n evenly spaced, saturated colours.
func Palette(n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		out[i] = colorful.Hsv(360*float64(i)/float64(max(n, 1)), 0.85, 1).Clamped()
	}
	return out
}

// DrawString writes a string to the given context at a particular point.
func DrawString(dc *gg.Context, text string, p r2.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawString(text, p.X, p.Y)
}

// DrawContours draws every contour over img, each in its own colour.
func DrawContours(img image.Image, contours [][]image.Point) image.Image {
	dc := gg.NewContextForImage(img)
	colors := Palette(len(contours))
	for i, contour := range contours {
		if len(contour) == 0 {
			continue
		}
		dc.SetColor(colors[i])
		for _, p := range contour {
			dc.LineTo(float64(p.X)+0.5, float64(p.Y)+0.5)
		}
		dc.ClosePath()
		dc.SetLineWidth(1)
		dc.Stroke()
	}
	return dc.Image()
}

// DrawPolygon outlines the closed polygon through pts over img.
func DrawPolygon(img image.Image, pts []r2.Point, c color.Color, width float64) image.Image {
	dc := gg.NewContextForImage(img)
	for _, p := range pts {
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.Stroke()
	return dc.Image()
}

// DrawPoints marks each point with a filled circle and its index.
func DrawPoints(img image.Image, pts []r2.Point, radius float64) image.Image {
	dc := gg.NewContextForImage(img)
	colors := Palette(len(pts))
	for i, p := range pts {
		dc.DrawCircle(p.X, p.Y, radius)
		dc.SetColor(colors[i])
		dc.Fill()
		DrawString(dc, fmt.Sprintf("%d", i), r2.Point{X: p.X + radius + 2, Y: p.Y - radius - 2}, colors[i], 3*radius+6)
	}
	return dc.Image()
}
