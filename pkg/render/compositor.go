package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"labelbrush/internal/logx"
	"labelbrush/pkg/config"
	"labelbrush/pkg/labelmap"
	"labelbrush/pkg/overlay"
)

// Frame reports what one RenderFrame call did
type Frame struct {
	// Drawn is true when a cached bitmap was composited
	Drawn bool

	// Stale is true when the drawn bitmap is older than the slice's labels
	Stale bool

	// Regenerating is true when this call started a regeneration
	Regenerating bool

	// Bitmap is the bitmap that was drawn, if any
	Bitmap *overlay.Bitmap
}

// Compositor draws the cached overlay of a volume every frame and keeps
// the cache fresh without ever waiting for it.
type Compositor struct {
	cache *overlay.Cache
}

// NewCompositor creates a compositor reading from cache
func NewCompositor(cache *overlay.Cache) *Compositor {
	return &Compositor{cache: cache}
}

// RenderFrame composites the cached bitmap of vol onto canvas through the
// image-to-canvas transform m, then asks the cache to regenerate sliceIndex
// in the background if needed.
//
// Rendering a slice makes it the displayed slice of vol, so edits deferred
// while it was off-screen are regenerated now.
//
// A bitmap cached for a different slice is only drawn when the session
// allows it; otherwise nothing is drawn until the slice's own bitmap exists.
func (c *Compositor) RenderFrame(sess *config.Session, vol *labelmap.Volume, sliceIndex int, m f64.Aff3, canvas draw.Image) Frame {
	var frame Frame

	if err := vol.SetDisplayedSlice(sliceIndex); err != nil {
		logx.Logger().Debug("frame skipped", "stack", vol.StackID(), "err", err)
		return frame
	}

	view, hasView := vol.LookupSliceView(sliceIndex)

	if bm := c.cache.CachedBitmap(vol); bm != nil && (bm.Slice == sliceIndex || sess.DrawForeignSlice) {
		Composite(canvas, bm.Image, m, sess.Opacity)
		frame.Drawn = true
		frame.Bitmap = bm
		frame.Stale = bm.Slice != sliceIndex || (hasView && (view.Invalidated() || view.Version() != bm.Version))
	}

	// slices that were never painted have nothing to show
	if hasView {
		frame.Regenerating = c.cache.RegenerateIfNeeded(vol, sliceIndex, view, sess.LUT)
	}

	logx.Logger().Debug("frame rendered",
		"stack", vol.StackID(), "slice", sliceIndex,
		"drawn", frame.Drawn, "stale", frame.Stale, "regenerating", frame.Regenerating)
	return frame
}

// Composite draws src over dst through the src-to-dst affine m at the given
// opacity, sampling nearest neighbours so label edges stay crisp.
func Composite(dst draw.Image, src image.Image, m f64.Aff3, opacity float64) {
	if !(opacity > 0) {
		return
	}
	var opts *draw.Options
	if opacity < 1 {
		a := uint16(math.Round(opacity * 0xffff))
		opts = &draw.Options{SrcMask: image.NewUniform(color.Alpha16{A: a})}
	}
	draw.NearestNeighbor.Transform(dst, m, src, src.Bounds(), draw.Over, opts)
}
