// Package paint applies brush strokes to label volumes.
package paint

import (
	"fmt"
	"sync"

	"labelbrush/internal/logx"
	"labelbrush/internal/models"
	"labelbrush/pkg/brush"
	"labelbrush/pkg/labelmap"
)

// Stroke is one brush application
type Stroke struct {
	// SliceIndex selects the slice to paint
	SliceIndex int

	// Center is the brush position in image space
	Center models.Point

	// Radius is the brush radius in pixels
	Radius float64

	// LabelID is the label drawn, or the label erased in active erase mode
	LabelID uint8

	// Erase clears labels instead of drawing LabelID
	Erase bool

	// EraseAny clears every label under the brush, not only LabelID
	EraseAny bool
}

// Result describes what a paint call did
type Result struct {
	// Applied is false when the point was outside the image (a no-op)
	Applied bool

	// Changed counts the labels that actually changed value
	Changed int

	// Stamp is the set of pixels the brush covered
	Stamp brush.Stamp

	// Invalidated is true when the displayed slice was flagged for redraw
	Invalidated bool
}

// ModifiedEvent is emitted after every applied stroke
type ModifiedEvent struct {
	StackID    string
	SliceIndex int
	Stroke     Stroke
	Changed    int
}

// Listener receives modification notifications
type Listener func(ModifiedEvent)

// Engine applies strokes and notifies listeners. Strokes for one volume
// are expected to arrive one at a time from the host event loop.
type Engine struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewEngine creates a paint engine with no listeners
func NewEngine() *Engine {
	return &Engine{}
}

// OnModified registers a listener for applied strokes
func (e *Engine) OnModified(l Listener) {
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()
}

// Paint draws or erases the brush stamp on one slice of vol.
//
// An invalid slice index fails with labelmap.ErrIndexOutOfRange. A center
// outside the image is a no-op that reports success with Applied=false.
// Only the displayed slice is invalidated; edits to other slices are
// deferred until they are displayed.
func (e *Engine) Paint(vol *labelmap.Volume, stroke Stroke) (Result, error) {
	if stroke.SliceIndex < 0 || stroke.SliceIndex >= vol.FrameCount() {
		return Result{}, fmt.Errorf("paint stack %q: %w: %d not in [0, %d)",
			vol.StackID(), labelmap.ErrIndexOutOfRange, stroke.SliceIndex, vol.FrameCount())
	}
	if !stroke.Erase && stroke.LabelID == 0 {
		return Result{}, &models.ValidationError{Field: "labelId", Reason: "drawing requires a positive label"}
	}

	if !stroke.Center.InImage(vol.Rows(), vol.Cols()) {
		return Result{}, nil
	}

	view, err := vol.SliceView(stroke.SliceIndex)
	if err != nil {
		return Result{}, fmt.Errorf("paint stack %q: %w", vol.StackID(), err)
	}

	stamp := brush.ComputeStamp(stroke.Center, stroke.Radius, vol.Rows(), vol.Cols())
	changed := view.Update(stamp, stroke.apply)

	res := Result{Applied: true, Changed: changed, Stamp: stamp}
	if stroke.SliceIndex == vol.DisplayedSlice() {
		view.MarkInvalidated()
		res.Invalidated = true
	} else if changed > 0 {
		view.MarkDeferred()
	}

	logx.Logger().Debug("stroke applied",
		"stack", vol.StackID(), "slice", stroke.SliceIndex, "erase", stroke.Erase,
		"pixels", len(stamp), "changed", changed)

	e.notify(ModifiedEvent{
		StackID:    vol.StackID(),
		SliceIndex: stroke.SliceIndex,
		Stroke:     stroke,
		Changed:    changed,
	})
	return res, nil
}

func (s Stroke) apply(old uint8) uint8 {
	switch {
	case !s.Erase:
		return s.LabelID
	case s.EraseAny || old == s.LabelID:
		return 0
	default:
		return old
	}
}

func (e *Engine) notify(ev ModifiedEvent) {
	e.mu.RLock()
	listeners := e.listeners
	e.mu.RUnlock()
	for _, l := range listeners {
		l(ev)
	}
}
