package models

import (
	"fmt"
	"image/draw"
	"math"
)

// ValidationError reports a malformed event payload or configuration value
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PointerKind distinguishes strokes from plain cursor motion
type PointerKind int

const (
	// PointerPaint applies the brush at the point (button down or drag)
	PointerPaint PointerKind = iota

	// PointerHover only moves the brush cursor
	PointerHover
)

func (k PointerKind) String() string {
	switch k {
	case PointerPaint:
		return "paint"
	case PointerHover:
		return "hover"
	default:
		return "unknown"
	}
}

// PointerPaintEvent is a validated pointer input in image space
type PointerPaintEvent struct {
	Element     Element
	Stack       Stack
	Point       Point
	CtrlPressed bool
	Kind        PointerKind
}

// Validate checks that the event can be applied
func (e PointerPaintEvent) Validate() error {
	if e.Element == "" {
		return &ValidationError{Field: "element", Reason: "must not be empty"}
	}
	if err := e.Stack.Validate(); err != nil {
		return err
	}
	if math.IsNaN(e.Point.X) || math.IsNaN(e.Point.Y) || math.IsInf(e.Point.X, 0) || math.IsInf(e.Point.Y, 0) {
		return &ValidationError{Field: "point", Reason: "coordinates must be finite"}
	}
	return nil
}

// RenderRequestEvent asks the core to composite its overlay into Canvas
type RenderRequestEvent struct {
	Element  Element
	Stack    Stack
	Image    ImageInfo
	Viewport Viewport
	Canvas   draw.Image
}

// Validate checks that the render request is complete
func (e RenderRequestEvent) Validate() error {
	if e.Element == "" {
		return &ValidationError{Field: "element", Reason: "must not be empty"}
	}
	if err := e.Stack.Validate(); err != nil {
		return err
	}
	if e.Image.Rows != e.Stack.Rows || e.Image.Columns != e.Stack.Columns {
		return &ValidationError{
			Field:  "image",
			Reason: fmt.Sprintf("image %dx%d does not match stack %dx%d", e.Image.Columns, e.Image.Rows, e.Stack.Columns, e.Stack.Rows),
		}
	}
	if !(e.Viewport.Scale > 0) || math.IsInf(e.Viewport.Scale, 0) {
		return &ValidationError{Field: "viewport.scale", Reason: "must be a positive finite number"}
	}
	if e.Canvas == nil {
		return &ValidationError{Field: "canvas", Reason: "must not be nil"}
	}
	return nil
}
