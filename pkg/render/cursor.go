package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"labelbrush/internal/models"
)

// cursorSegments is the number of polygon edges approximating the ring
const cursorSegments = 64

// DrawCursor strokes a circle of the given canvas radius around center,
// lineWidth pixels wide, in color c.
func DrawCursor(dst draw.Image, center models.Point, radius, lineWidth float64, c color.Color) {
	b := dst.Bounds()
	if b.Empty() || !(radius > 0) || !(lineWidth > 0) {
		return
	}
	outer := radius + lineWidth/2
	inner := math.Max(radius-lineWidth/2, 0)

	cx := float32(center.X - float64(b.Min.X))
	cy := float32(center.Y - float64(b.Min.Y))

	z := vector.NewRasterizer(b.Dx(), b.Dy())
	circlePath(z, cx, cy, float32(outer), false)
	if inner > 0 {
		// opposite winding cuts the hole
		circlePath(z, cx, cy, float32(inner), true)
	}
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func circlePath(z *vector.Rasterizer, cx, cy, r float32, reverse bool) {
	for i := 0; i <= cursorSegments; i++ {
		t := 2 * math.Pi * float64(i) / cursorSegments
		if reverse {
			t = -t
		}
		x := cx + r*float32(math.Cos(t))
		y := cy + r*float32(math.Sin(t))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}
