package main

import (
	"image"
	"image/color"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/image/draw"

	"labelbrush/internal/models"
	"labelbrush/pkg/paint"
	"labelbrush/pkg/render"
)

// headlessHost stands in for a viewer: it owns the camera of a single
// element and counts the redraws the tool asks for.
type headlessHost struct {
	mapper render.Mapper

	updates atomic.Int64

	mu       sync.Mutex
	modified []paint.ModifiedEvent
}

func newHeadlessHost(canvas image.Rectangle, info models.ImageInfo, vp models.Viewport) *headlessHost {
	return &headlessHost{mapper: render.ViewportMapper(canvas, info, vp)}
}

func (h *headlessHost) PixelToCanvas(_ models.Element, p models.Point) models.Point {
	return h.mapper.PixelToCanvas(p)
}

func (h *headlessHost) UpdateImage(models.Element) {
	h.updates.Add(1)
}

func (h *headlessHost) MeasurementModified(_ models.Element, ev paint.ModifiedEvent) {
	h.mu.Lock()
	h.modified = append(h.modified, ev)
	h.mu.Unlock()
}

func (h *headlessHost) modifiedCount() (events, pixels int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ev := range h.modified {
		pixels += ev.Changed
	}
	return len(h.modified), pixels
}

// phantomSlice renders a synthetic grayscale slice: a bright ellipse with a
// darker core, varying slightly with the slice index.
func phantomSlice(rows, cols, index, frames int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	cx, cy := float64(cols)/2, float64(rows)/2
	phase := float64(index) / float64(max(frames, 1))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			dx := (float64(x) + 0.5 - cx) / (0.45 * float64(cols))
			dy := (float64(y) + 0.5 - cy) / (0.4 * float64(rows))
			d := math.Hypot(dx, dy)
			var v float64
			switch {
			case d > 1:
				v = 0.05
			case d > 0.35+0.1*phase:
				v = 0.75 - 0.3*d
			default:
				v = 0.3
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v * 255)})
		}
	}
	return img
}

// newCanvas returns a canvas showing background through the viewport
func (h *headlessHost) newCanvas(bounds image.Rectangle, background image.Image, info models.ImageInfo) *image.RGBA {
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, image.Black, image.Point{}, draw.Src)
	m := render.AffineFromMapper(h.mapper, info)
	render.Composite(canvas, background, m, 1)
	return canvas
}
