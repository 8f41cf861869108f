package tool

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelbrush/internal/models"
	"labelbrush/pkg/config"
	"labelbrush/pkg/labelmap"
	"labelbrush/pkg/paint"
	"labelbrush/pkg/render"
)

// fakeHost shows every image unscaled at the canvas origin
type fakeHost struct {
	mu       sync.Mutex
	updates  map[models.Element]int
	modified []paint.ModifiedEvent
}

func newFakeHost() *fakeHost {
	return &fakeHost{updates: make(map[models.Element]int)}
}

func (h *fakeHost) PixelToCanvas(_ models.Element, p models.Point) models.Point { return p }

func (h *fakeHost) UpdateImage(el models.Element) {
	h.mu.Lock()
	h.updates[el]++
	h.mu.Unlock()
}

func (h *fakeHost) MeasurementModified(_ models.Element, ev paint.ModifiedEvent) {
	h.mu.Lock()
	h.modified = append(h.modified, ev)
	h.mu.Unlock()
}

func (h *fakeHost) updateCount(el models.Element) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updates[el]
}

func newSession(t *testing.T, mutate func(*config.Config)) *config.Session {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Brush.Radius = 1
	cfg.Overlay.Opacity = 1
	cfg.Render.ShowCursor = false
	cfg.Overlay.Colors = []config.ColorEntry{{Label: 1, RGBA: [4]uint8{255, 0, 0, 255}}}
	if mutate != nil {
		mutate(cfg)
	}
	sess, err := config.NewSession(cfg)
	require.NoError(t, err)
	return sess
}

func stack4x4() models.Stack {
	return models.Stack{ID: "series-1", Rows: 4, Columns: 4, FrameCount: 2}
}

func renderEvent(stack models.Stack, canvas *image.RGBA) models.RenderRequestEvent {
	return models.RenderRequestEvent{
		Element:  "viewport-1",
		Stack:    stack,
		Image:    models.ImageInfo{Rows: stack.Rows, Columns: stack.Columns},
		Viewport: models.Viewport{Scale: 1},
		Canvas:   canvas,
	}
}

func TestPaintThenRender(t *testing.T) {
	host := newFakeHost()
	brush := New(newSession(t, nil), host)
	defer brush.Close()

	res, err := brush.HandlePointer(models.PointerPaintEvent{
		Element: "viewport-1",
		Stack:   stack4x4(),
		Point:   models.Point{X: 2, Y: 2},
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 5, res.Changed)
	assert.Equal(t, 1, host.updateCount("viewport-1"), "paint on the displayed slice requests a redraw")
	require.Len(t, host.modified, 1)

	canvas := image.NewRGBA(image.Rect(0, 0, 4, 4))
	frame, err := brush.HandleRender(renderEvent(stack4x4(), canvas))
	require.NoError(t, err)
	assert.False(t, frame.Drawn, "first frame has nothing cached")
	assert.True(t, frame.Regenerating)

	brush.Close()
	assert.Equal(t, 2, host.updateCount("viewport-1"), "completed regeneration requests a redraw")

	frame, err = brush.HandleRender(renderEvent(stack4x4(), canvas))
	require.NoError(t, err)
	assert.True(t, frame.Drawn)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, canvas.RGBAAt(2, 2))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, canvas.RGBAAt(2, 1))
	assert.Equal(t, color.RGBA{}, canvas.RGBAAt(0, 0))
}

func TestEraseWithCtrl(t *testing.T) {
	host := newFakeHost()
	brush := New(newSession(t, nil), host)
	defer brush.Close()

	ev := models.PointerPaintEvent{Element: "viewport-1", Stack: stack4x4(), Point: models.Point{X: 1, Y: 1}}
	_, err := brush.HandlePointer(ev)
	require.NoError(t, err)

	ev.CtrlPressed = true
	res, err := brush.HandlePointer(ev)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Changed)

	vol, ok := brush.Store().Volume("series-1")
	require.True(t, ok)
	view, err := vol.SliceView(0)
	require.NoError(t, err)
	data, _ := view.Snapshot()
	for i, b := range data {
		assert.Zero(t, b, "pixel %d", i)
	}
}

func TestHoverDoesNotPaint(t *testing.T) {
	host := newFakeHost()
	brush := New(newSession(t, func(c *config.Config) { c.Render.ShowCursor = true; c.Brush.Radius = 3 }), host)
	defer brush.Close()

	res, err := brush.HandlePointer(models.PointerPaintEvent{
		Element: "viewport-1",
		Stack:   models.Stack{ID: "series-1", Rows: 32, Columns: 32, FrameCount: 1},
		Point:   models.Point{X: 16, Y: 16},
		Kind:    models.PointerHover,
	})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Zero(t, brush.Store().Len(), "hover never creates a volume")

	canvas := image.NewRGBA(image.Rect(0, 0, 32, 32))
	stack := models.Stack{ID: "series-1", Rows: 32, Columns: 32, FrameCount: 1}
	frame, err := brush.HandleRender(renderEvent(stack, canvas))
	require.NoError(t, err)
	assert.False(t, frame.Drawn)

	ring := canvas.RGBAAt(19, 16)
	assert.NotZero(t, ring.A, "cursor ring drawn around the pointer")
	assert.Zero(t, canvas.RGBAAt(16, 16).A, "cursor ring is hollow")
}

func TestSliceSwitching(t *testing.T) {
	host := newFakeHost()
	brush := New(newSession(t, nil), host)
	defer brush.Close()

	stack := stack4x4()
	_, err := brush.HandlePointer(models.PointerPaintEvent{Element: "viewport-1", Stack: stack, Point: models.Point{X: 1, Y: 1}})
	require.NoError(t, err)

	canvas := image.NewRGBA(image.Rect(0, 0, 4, 4))
	_, err = brush.HandleRender(renderEvent(stack, canvas))
	require.NoError(t, err)
	brush.Close()

	// the host scrolls to slice 1 and the user paints there
	stack.CurrentIndex = 1
	_, err = brush.HandlePointer(models.PointerPaintEvent{Element: "viewport-1", Stack: stack, Point: models.Point{X: 3, Y: 3}})
	require.NoError(t, err)

	vol, _ := brush.Store().Volume("series-1")
	first, _ := vol.LookupSliceView(0)
	assert.False(t, first.Invalidated(), "slice 0 keeps its fresh bitmap state")

	canvas = image.NewRGBA(image.Rect(0, 0, 4, 4))
	frame, err := brush.HandleRender(renderEvent(stack, canvas))
	require.NoError(t, err)
	assert.False(t, frame.Drawn, "bitmap of slice 0 is not drawn over slice 1")
	assert.True(t, frame.Regenerating)
	brush.Close()
	assert.Equal(t, 1, brush.Cache().CachedBitmap(vol).Slice)

	// back to slice 0: its bitmap was replaced, so it is rebuilt
	stack.CurrentIndex = 0
	frame, err = brush.HandleRender(renderEvent(stack, canvas))
	require.NoError(t, err)
	assert.False(t, frame.Drawn)
	assert.True(t, frame.Regenerating)
	brush.Close()
	assert.Equal(t, 0, brush.Cache().CachedBitmap(vol).Slice)
}

func TestValidationAndErrors(t *testing.T) {
	brush := New(newSession(t, nil), newFakeHost())
	defer brush.Close()

	var verr *models.ValidationError
	_, err := brush.HandlePointer(models.PointerPaintEvent{Stack: stack4x4()})
	assert.True(t, errors.As(err, &verr), "missing element")

	_, err = brush.HandleRender(models.RenderRequestEvent{Element: "viewport-1", Stack: stack4x4()})
	assert.True(t, errors.As(err, &verr), "missing canvas and scale")

	_, err = brush.HandlePointer(models.PointerPaintEvent{Element: "viewport-1", Stack: stack4x4(), Point: models.Point{X: 1, Y: 1}})
	require.NoError(t, err)

	grown := stack4x4()
	grown.FrameCount = 3
	_, err = brush.HandlePointer(models.PointerPaintEvent{Element: "viewport-1", Stack: grown, Point: models.Point{X: 1, Y: 1}})
	assert.ErrorIs(t, err, labelmap.ErrSizeMismatch)

	res, err := brush.HandlePointer(models.PointerPaintEvent{Element: "viewport-1", Stack: stack4x4(), Point: models.Point{X: 9, Y: 1}})
	assert.NoError(t, err)
	assert.False(t, res.Applied)
}

func TestUnload(t *testing.T) {
	host := newFakeHost()
	brush := New(newSession(t, nil), host)
	defer brush.Close()

	_, err := brush.HandlePointer(models.PointerPaintEvent{Element: "viewport-1", Stack: stack4x4(), Point: models.Point{X: 1, Y: 1}})
	require.NoError(t, err)
	_, err = brush.HandleRender(renderEvent(stack4x4(), image.NewRGBA(image.Rect(0, 0, 4, 4))))
	require.NoError(t, err)
	brush.Close()

	vol, _ := brush.Store().Volume("series-1")
	require.NotNil(t, brush.Cache().CachedBitmap(vol))

	assert.True(t, brush.Unload("series-1"))
	assert.False(t, brush.Unload("series-1"))
	assert.Nil(t, brush.Cache().CachedBitmap(vol))
	assert.True(t, vol.Released())
}

func TestSetSession(t *testing.T) {
	brush := New(newSession(t, nil), newFakeHost())
	defer brush.Close()

	brush.SetSession(brush.Session().WithActiveLabel(7).WithRadius(0))
	_, err := brush.HandlePointer(models.PointerPaintEvent{Element: "viewport-1", Stack: stack4x4(), Point: models.Point{X: 2.5, Y: 0.5}})
	require.NoError(t, err)

	vol, _ := brush.Store().Volume("series-1")
	view, _ := vol.SliceView(0)
	assert.Equal(t, uint8(7), view.At(0, 2))
	assert.Equal(t, 1, labelmap.SliceStats(view).Labels[0].Pixels)
}

func TestRenderUsesHostMapping(t *testing.T) {
	host := newFakeHost()
	brush := New(newSession(t, nil), host)
	defer brush.Close()

	m := render.AffineFromMapper(render.MapperFunc(func(p models.Point) models.Point {
		return host.PixelToCanvas("viewport-1", p)
	}), models.ImageInfo{Rows: 4, Columns: 4})
	assert.Equal(t, 1.0, render.Scale(m))
}
