// Package render composites cached label overlays onto the host canvas.
package render

import (
	"image"
	"math"

	"golang.org/x/image/math/f64"

	"labelbrush/internal/models"
)

// Mapper converts image-space points to canvas-space points. Hosts that
// own their own camera implement it directly.
type Mapper interface {
	PixelToCanvas(p models.Point) models.Point
}

// MapperFunc adapts a function to Mapper
type MapperFunc func(p models.Point) models.Point

// PixelToCanvas calls f(p)
func (f MapperFunc) PixelToCanvas(p models.Point) models.Point { return f(p) }

// ViewportTransform returns the image-to-canvas affine for an image shown
// centered on the canvas, scaled by vp.Scale, panned by vp.Translation
// (in image pixels) and rotated clockwise by vp.Rotation degrees about
// the image center.
func ViewportTransform(canvas image.Rectangle, info models.ImageInfo, vp models.Viewport) f64.Aff3 {
	cx := float64(canvas.Min.X) + float64(canvas.Dx())/2
	cy := float64(canvas.Min.Y) + float64(canvas.Dy())/2

	s := vp.Scale
	theta := vp.Rotation * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)

	// image point p maps to center + R * S * (p - imageCenter + translation)
	ox := -float64(info.Columns)/2 + vp.Translation.X
	oy := -float64(info.Rows)/2 + vp.Translation.Y

	return f64.Aff3{
		s * cos, -s * sin, cx + s*(cos*ox-sin*oy),
		s * sin, s * cos, cy + s*(sin*ox+cos*oy),
	}
}

// Apply maps p through m
func Apply(m f64.Aff3, p models.Point) models.Point {
	return models.Point{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

// ViewportMapper returns a Mapper for the centered viewport camera
func ViewportMapper(canvas image.Rectangle, info models.ImageInfo, vp models.Viewport) Mapper {
	m := ViewportTransform(canvas, info, vp)
	return MapperFunc(func(p models.Point) models.Point { return Apply(m, p) })
}

// AffineFromMapper recovers the image-to-canvas affine from three corners
// of a rows x cols image mapped through m.
func AffineFromMapper(m Mapper, info models.ImageInfo) f64.Aff3 {
	w, h := float64(info.Columns), float64(info.Rows)
	origin := m.PixelToCanvas(models.Point{})
	right := m.PixelToCanvas(models.Point{X: w})
	down := m.PixelToCanvas(models.Point{Y: h})

	return f64.Aff3{
		(right.X - origin.X) / w, (down.X - origin.X) / h, origin.X,
		(right.Y - origin.Y) / w, (down.Y - origin.Y) / h, origin.Y,
	}
}

// Scale returns the length one image pixel has on the canvas
func Scale(m f64.Aff3) float64 {
	return math.Hypot(m[0], m[3])
}
