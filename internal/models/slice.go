package models

import (
	"fmt"
	"math"
)

// Element identifies the host display surface a stack is shown in.
// It is opaque to the label core and only handed back to the host.
type Element string

// Stack describes an externally-owned image stack
type Stack struct {
	// ID uniquely identifies the stack within a display session
	ID string

	// Rows is the height of every slice in pixels
	Rows int

	// Columns is the width of every slice in pixels
	Columns int

	// FrameCount is the number of slices in the stack
	FrameCount int

	// CurrentIndex is the slice currently displayed by the host
	CurrentIndex int
}

// SliceSize returns the number of pixels in one slice of the stack
func (s Stack) SliceSize() int {
	return s.Rows * s.Columns
}

// Validate checks the stack dimensions and the current slice index
func (s Stack) Validate() error {
	if s.ID == "" {
		return &ValidationError{Field: "stack.id", Reason: "must not be empty"}
	}
	if s.Rows <= 0 || s.Columns <= 0 {
		return &ValidationError{Field: "stack.size", Reason: fmt.Sprintf("invalid dimensions %dx%d", s.Columns, s.Rows)}
	}
	if s.FrameCount <= 0 {
		return &ValidationError{Field: "stack.frameCount", Reason: "must be positive"}
	}
	if s.CurrentIndex < 0 || s.CurrentIndex >= s.FrameCount {
		return &ValidationError{Field: "stack.currentIndex", Reason: fmt.Sprintf("%d outside [0, %d)", s.CurrentIndex, s.FrameCount)}
	}
	return nil
}

// Point is a position in image space (x = column axis, y = row axis).
// Pixel (r, c) covers the area [c, c+1) x [r, r+1).
type Point struct {
	X, Y float64
}

// Pixel returns the pixel containing the point
func (p Point) Pixel() Pixel {
	return Pixel{Row: int(math.Floor(p.Y)), Col: int(math.Floor(p.X))}
}

// InImage reports whether the point lies inside [0, cols) x [0, rows)
func (p Point) InImage(rows, cols int) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < float64(cols) && p.Y < float64(rows)
}

// Pixel addresses one label byte within a slice
type Pixel struct {
	Row, Col int
}

// Viewport is the host's camera state for one element
type Viewport struct {
	// Scale maps one image pixel to Scale canvas pixels
	Scale float64

	// Translation is the pan offset in image pixels
	Translation Point

	// Rotation is the clockwise rotation in degrees
	Rotation float64
}

// ImageInfo is the per-image metadata supplied by the host on render
type ImageInfo struct {
	Rows    int
	Columns int
}
