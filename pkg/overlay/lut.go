// Package overlay turns label slices into colored RGBA rasters and caches
// one raster per label volume, regenerating it in the background when stale.
package overlay

import (
	"image/color"
	"math"
)

// ColorLUT maps a label id to its display color. Colors are alpha-premultiplied
// like color.RGBA. Label 0 is always fully transparent.
// A ColorLUT is read-only once built and may be shared by every volume.
type ColorLUT struct {
	colors [256]color.RGBA
}

// NewColorLUT builds a table from non-premultiplied colors; labels missing
// from colors are transparent.
func NewColorLUT(colors map[uint8]color.NRGBA) *ColorLUT {
	lut := &ColorLUT{}
	for label, c := range colors {
		if label == 0 {
			continue
		}
		lut.colors[label] = color.RGBAModel.Convert(c).(color.RGBA)
	}
	return lut
}

// DefaultColorLUT returns a table with a distinct opaque hue for every label 1-255
func DefaultColorLUT() *ColorLUT {
	lut := &ColorLUT{}
	// golden-angle hue steps keep neighbouring ids visually apart
	const goldenAngle = 137.50776405003785
	for label := 1; label < 256; label++ {
		hue := math.Mod(float64(label-1)*goldenAngle, 360)
		lightness := 0.5
		if label%2 == 0 {
			lightness = 0.4
		}
		lut.colors[label] = hslToRGBA(hue, 0.85, lightness)
	}
	return lut
}

// With returns a copy of the table with label set to c (non-premultiplied)
func (l *ColorLUT) With(label uint8, c color.NRGBA) *ColorLUT {
	out := *l
	if label != 0 {
		out.colors[label] = color.RGBAModel.Convert(c).(color.RGBA)
	}
	return &out
}

// Color returns the premultiplied color of label
func (l *ColorLUT) Color(label uint8) color.RGBA {
	return l.colors[label]
}

func hslToRGBA(h, s, l float64) color.RGBA {
	c := (1 - math.Abs(2*l-1)) * s
	hp := h / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := l - c/2
	to8 := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v+m)) * 255))
	}
	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}
}
