// Package tool exposes the segmentation brush to a host rendering engine.
//
// The host feeds pointer and render events from its event loop; the tool
// paints into the label store, composites the cached overlay and asks the
// host to redraw when new pixels are ready.
package tool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"labelbrush/internal/logx"
	"labelbrush/internal/models"
	"labelbrush/pkg/config"
	"labelbrush/pkg/labelmap"
	"labelbrush/pkg/overlay"
	"labelbrush/pkg/paint"
	"labelbrush/pkg/render"
)

// Host is the rendering engine the tool is attached to
type Host interface {
	// PixelToCanvas maps an image point of element to canvas coordinates
	PixelToCanvas(element models.Element, p models.Point) models.Point

	// UpdateImage requests a redraw of element. It may be called from a
	// regeneration goroutine.
	UpdateImage(element models.Element)

	// MeasurementModified reports an applied stroke
	MeasurementModified(element models.Element, ev paint.ModifiedEvent)
}

// Paintable accepts pointer input
type Paintable interface {
	HandlePointer(ev models.PointerPaintEvent) (paint.Result, error)
}

// Renderable draws on render requests
type Renderable interface {
	HandleRender(ev models.RenderRequestEvent) (render.Frame, error)
}

var (
	_ Paintable  = (*BrushTool)(nil)
	_ Renderable = (*BrushTool)(nil)
)

// BrushTool paints segmentation labels and renders their overlay
type BrushTool struct {
	session atomic.Pointer[config.Session]
	host    Host

	store      *labelmap.Store
	engine     *paint.Engine
	cache      *overlay.Cache
	compositor *render.Compositor

	mu       sync.Mutex
	elements map[string]models.Element
	cursors  map[models.Element]models.Point
}

// New creates a brush tool for one display session
func New(sess *config.Session, host Host) *BrushTool {
	t := &BrushTool{
		host:     host,
		store:    labelmap.NewStore(),
		engine:   paint.NewEngine(),
		elements: make(map[string]models.Element),
		cursors:  make(map[models.Element]models.Point),
	}
	t.session.Store(sess)

	t.cache = overlay.NewCache(
		overlay.WithMaxPixels(sess.MaxRasterPixels),
		overlay.WithWorkers(sess.Workers),
		overlay.WithOnComplete(t.regenerated),
	)
	t.compositor = render.NewCompositor(t.cache)
	t.engine.OnModified(t.modified)
	return t
}

// Session returns the active session configuration
func (t *BrushTool) Session() *config.Session {
	return t.session.Load()
}

// SetSession swaps the session configuration, e.g. after the user picks
// another label or radius.
func (t *BrushTool) SetSession(sess *config.Session) {
	t.session.Store(sess)
}

// Store returns the label store
func (t *BrushTool) Store() *labelmap.Store { return t.store }

// Cache returns the overlay cache
func (t *BrushTool) Cache() *overlay.Cache { return t.cache }

// HandlePointer applies a stroke at the event's point, or only moves the
// cursor for hover events. Ctrl selects erasing.
func (t *BrushTool) HandlePointer(ev models.PointerPaintEvent) (paint.Result, error) {
	if err := ev.Validate(); err != nil {
		return paint.Result{}, err
	}

	t.mu.Lock()
	t.cursors[ev.Element] = ev.Point
	t.mu.Unlock()

	if ev.Kind == models.PointerHover {
		return paint.Result{}, nil
	}

	sess := t.Session()
	stack := ev.Stack

	vol, err := t.store.EnsureVolume(stack.ID, stack.Rows, stack.Columns, stack.FrameCount)
	if err != nil {
		return paint.Result{}, fmt.Errorf("brush: %w", err)
	}
	if err := vol.SetDisplayedSlice(stack.CurrentIndex); err != nil {
		return paint.Result{}, fmt.Errorf("brush: %w", err)
	}

	t.mu.Lock()
	t.elements[stack.ID] = ev.Element
	t.mu.Unlock()

	res, err := t.engine.Paint(vol, paint.Stroke{
		SliceIndex: stack.CurrentIndex,
		Center:     ev.Point,
		Radius:     sess.Radius,
		LabelID:    sess.ActiveLabel,
		Erase:      ev.CtrlPressed,
		EraseAny:   sess.EraseAny,
	})
	if err != nil {
		return res, fmt.Errorf("brush: %w", err)
	}

	if res.Invalidated {
		t.host.UpdateImage(ev.Element)
	}
	return res, nil
}

// HandleRender composites the stack's overlay and the brush cursor
func (t *BrushTool) HandleRender(ev models.RenderRequestEvent) (render.Frame, error) {
	if err := ev.Validate(); err != nil {
		return render.Frame{}, err
	}

	sess := t.Session()
	m := render.AffineFromMapper(render.MapperFunc(func(p models.Point) models.Point {
		return t.host.PixelToCanvas(ev.Element, p)
	}), ev.Image)

	var frame render.Frame
	if vol, ok := t.store.Volume(ev.Stack.ID); ok {
		if err := vol.SetDisplayedSlice(ev.Stack.CurrentIndex); err != nil {
			return frame, fmt.Errorf("brush: %w", err)
		}
		t.mu.Lock()
		t.elements[ev.Stack.ID] = ev.Element
		t.mu.Unlock()

		frame = t.compositor.RenderFrame(sess, vol, ev.Stack.CurrentIndex, m, ev.Canvas)
	}

	if sess.ShowCursor {
		t.drawCursor(sess, ev, render.Scale(m))
	}
	return frame, nil
}

// Unload releases the labels and overlay of a stack that left the display
func (t *BrushTool) Unload(stackID string) bool {
	vol, ok := t.store.Volume(stackID)
	if !ok {
		return false
	}
	t.cache.Drop(vol)
	t.store.Remove(stackID)

	t.mu.Lock()
	delete(t.elements, stackID)
	t.mu.Unlock()
	return true
}

// Close waits for running regenerations to finish
func (t *BrushTool) Close() {
	t.cache.Wait()
}

func (t *BrushTool) drawCursor(sess *config.Session, ev models.RenderRequestEvent, scale float64) {
	t.mu.Lock()
	p, ok := t.cursors[ev.Element]
	t.mu.Unlock()
	if !ok || !p.InImage(ev.Image.Rows, ev.Image.Columns) {
		return
	}

	center := t.host.PixelToCanvas(ev.Element, p)
	render.DrawCursor(ev.Canvas, center, sess.Radius*scale, 1, sess.LUT.Color(sess.ActiveLabel))
}

func (t *BrushTool) elementFor(stackID string) (models.Element, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.elements[stackID]
	return el, ok
}

func (t *BrushTool) modified(ev paint.ModifiedEvent) {
	if el, ok := t.elementFor(ev.StackID); ok {
		t.host.MeasurementModified(el, ev)
	}
}

// regenerated runs on the cache's goroutine
func (t *BrushTool) regenerated(c overlay.Completion) {
	el, ok := t.elementFor(c.Volume.StackID())
	if !ok {
		logx.Logger().Debug("regenerated overlay has no element", "stack", c.Volume.StackID())
		return
	}
	t.host.UpdateImage(el)
}
