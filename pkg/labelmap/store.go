// Package labelmap stores per-pixel segmentation labels for image stacks.
//
// Each stack owns one Volume: a single contiguous byte buffer of
// rows*columns*frameCount labels laid out slice after slice in row-major
// order. SliceViews are offset/length descriptors into that buffer and are
// never allocated or freed on their own.
package labelmap

import (
	"fmt"
	"math"
	"sync"

	"labelbrush/internal/logx"
)

// Store owns the label volumes of every loaded stack
type Store struct {
	mu      sync.Mutex
	volumes map[string]*Volume
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{volumes: make(map[string]*Volume)}
}

// EnsureVolume returns the volume for stackID, creating it on first use.
// Later calls must use the same dimensions or ErrSizeMismatch is returned.
func (s *Store) EnsureVolume(stackID string, rows, cols, frameCount int) (*Volume, error) {
	if rows <= 0 || cols <= 0 || frameCount <= 0 {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrInvalidDimensions, cols, rows, frameCount)
	}
	if rows > math.MaxInt/cols || rows*cols > math.MaxInt/frameCount {
		return nil, fmt.Errorf("%w: %dx%dx%d overflows", ErrInvalidDimensions, cols, rows, frameCount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if vol, ok := s.volumes[stackID]; ok {
		if vol.rows != rows || vol.cols != cols || vol.frames != frameCount {
			return nil, fmt.Errorf("%w: stack %q is %dx%dx%d, requested %dx%dx%d",
				ErrSizeMismatch, stackID, vol.cols, vol.rows, vol.frames, cols, rows, frameCount)
		}
		return vol, nil
	}

	vol := newVolume(stackID, rows, cols, frameCount)
	s.volumes[stackID] = vol
	logx.Logger().Info("label volume created", "stack", stackID, "rows", rows, "cols", cols, "frames", frameCount)
	return vol, nil
}

// Volume returns the volume for stackID if one exists
func (s *Store) Volume(stackID string) (*Volume, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vol, ok := s.volumes[stackID]
	return vol, ok
}

// SliceView returns the memoized view of one slice of vol
func (s *Store) SliceView(vol *Volume, sliceIndex int) (*SliceView, error) {
	return vol.SliceView(sliceIndex)
}

// MarkInvalidated flags the view's cached overlay as stale. It is idempotent.
func (s *Store) MarkInvalidated(view *SliceView) {
	view.MarkInvalidated()
}

// Remove drops the volume of an unloaded stack. Views into it must not be
// used afterwards.
func (s *Store) Remove(stackID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	vol, ok := s.volumes[stackID]
	if !ok {
		return false
	}
	delete(s.volumes, stackID)
	vol.release()
	logx.Logger().Info("label volume released", "stack", stackID)
	return true
}

// Len returns the number of live volumes
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.volumes)
}
