package labelmap

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Volume holds the labels of one stack
type Volume struct {
	stackID string

	// dimensions are fixed at creation
	rows   int
	cols   int
	frames int

	// bufMu serializes writes by paint against snapshots taken for
	// overlay regeneration
	bufMu  sync.RWMutex
	buffer []byte

	viewsMu sync.Mutex
	views   []*SliceView

	displayed atomic.Int64
	released  atomic.Bool
}

func newVolume(stackID string, rows, cols, frames int) *Volume {
	return &Volume{
		stackID: stackID,
		rows:    rows,
		cols:    cols,
		frames:  frames,
		buffer:  make([]byte, rows*cols*frames),
		views:   make([]*SliceView, frames),
	}
}

// StackID returns the id of the owning stack
func (v *Volume) StackID() string { return v.stackID }

// Rows returns the slice height
func (v *Volume) Rows() int { return v.rows }

// Cols returns the slice width
func (v *Volume) Cols() int { return v.cols }

// FrameCount returns the number of slices
func (v *Volume) FrameCount() int { return v.frames }

// Len returns the buffer length, rows*cols*frameCount
func (v *Volume) Len() int { return v.rows * v.cols * v.frames }

// Released reports whether the owning stack was unloaded
func (v *Volume) Released() bool { return v.released.Load() }

// SliceView returns the view of sliceIndex, creating it on first access.
// A freshly created view starts invalidated so its first display regenerates.
func (v *Volume) SliceView(sliceIndex int) (*SliceView, error) {
	if sliceIndex < 0 || sliceIndex >= v.frames {
		return nil, fmt.Errorf("%w: %d not in [0, %d) for stack %q", ErrIndexOutOfRange, sliceIndex, v.frames, v.stackID)
	}

	v.viewsMu.Lock()
	defer v.viewsMu.Unlock()

	if view := v.views[sliceIndex]; view != nil {
		return view, nil
	}
	size := v.rows * v.cols
	view := &SliceView{
		vol:         v,
		index:       sliceIndex,
		offset:      sliceIndex * size,
		length:      size,
		invalidated: true,
	}
	v.views[sliceIndex] = view
	return view, nil
}

// LookupSliceView returns the view of sliceIndex only if it was already created
func (v *Volume) LookupSliceView(sliceIndex int) (*SliceView, bool) {
	if sliceIndex < 0 || sliceIndex >= v.frames {
		return nil, false
	}
	v.viewsMu.Lock()
	defer v.viewsMu.Unlock()
	view := v.views[sliceIndex]
	return view, view != nil
}

// DisplayedSlice returns the slice the host currently shows
func (v *Volume) DisplayedSlice() int {
	return int(v.displayed.Load())
}

// SetDisplayedSlice records the slice the host shows. Edits deferred while
// the slice was off-screen are turned into an invalidation.
func (v *Volume) SetDisplayedSlice(sliceIndex int) error {
	if sliceIndex < 0 || sliceIndex >= v.frames {
		return fmt.Errorf("%w: %d not in [0, %d) for stack %q", ErrIndexOutOfRange, sliceIndex, v.frames, v.stackID)
	}
	v.displayed.Store(int64(sliceIndex))
	if view, ok := v.LookupSliceView(sliceIndex); ok {
		view.promoteDeferred()
	}
	return nil
}

func (v *Volume) release() {
	v.released.Store(true)

	v.bufMu.Lock()
	v.buffer = nil
	v.bufMu.Unlock()

	v.viewsMu.Lock()
	v.views = nil
	v.viewsMu.Unlock()
}

// Snapshot copies the whole label buffer, slice-major. It returns nil once
// the volume is released.
func (v *Volume) Snapshot() []byte {
	v.bufMu.RLock()
	defer v.bufMu.RUnlock()
	if v.buffer == nil {
		return nil
	}
	out := make([]byte, len(v.buffer))
	copy(out, v.buffer)
	return out
}
