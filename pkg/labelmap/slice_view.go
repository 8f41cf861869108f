package labelmap

import (
	"sync"

	"labelbrush/internal/models"
)

// SliceView is a window onto one slice of a Volume's buffer.
// It references the volume's memory and never owns it.
type SliceView struct {
	vol    *Volume
	index  int
	offset int
	length int

	mu          sync.Mutex
	invalidated bool
	deferred    bool
	version     uint64
}

// Index returns the slice index within the stack
func (s *SliceView) Index() int { return s.index }

// Rows returns the slice height
func (s *SliceView) Rows() int { return s.vol.rows }

// Cols returns the slice width
func (s *SliceView) Cols() int { return s.vol.cols }

// Volume returns the owning volume
func (s *SliceView) Volume() *Volume { return s.vol }

// At returns the label at (row, col); out-of-range positions read as 0
func (s *SliceView) At(row, col int) uint8 {
	if row < 0 || col < 0 || row >= s.vol.rows || col >= s.vol.cols {
		return 0
	}
	s.vol.bufMu.RLock()
	defer s.vol.bufMu.RUnlock()
	if s.vol.buffer == nil {
		return 0
	}
	return s.vol.buffer[s.offset+row*s.vol.cols+col]
}

// Update rewrites the label of every in-bounds pixel through fn and
// returns how many labels changed.
func (s *SliceView) Update(pixels []models.Pixel, fn func(old uint8) uint8) int {
	s.vol.bufMu.Lock()
	buf := s.vol.buffer
	changed := 0
	if buf != nil {
		data := buf[s.offset : s.offset+s.length]
		for _, p := range pixels {
			if p.Row < 0 || p.Col < 0 || p.Row >= s.vol.rows || p.Col >= s.vol.cols {
				continue
			}
			idx := p.Row*s.vol.cols + p.Col
			if next := fn(data[idx]); next != data[idx] {
				data[idx] = next
				changed++
			}
		}
	}
	s.vol.bufMu.Unlock()

	if changed > 0 {
		s.mu.Lock()
		s.version++
		s.mu.Unlock()
	}
	return changed
}

// Snapshot copies the slice's labels and returns them with the modification
// version they correspond to. It returns nil once the volume is released.
func (s *SliceView) Snapshot() ([]byte, uint64) {
	s.mu.Lock()
	version := s.version
	s.mu.Unlock()

	s.vol.bufMu.RLock()
	defer s.vol.bufMu.RUnlock()
	if s.vol.buffer == nil {
		return nil, version
	}
	out := make([]byte, s.length)
	copy(out, s.vol.buffer[s.offset:s.offset+s.length])
	return out, version
}

// Version increases every time a paint changes at least one label
func (s *SliceView) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Invalidated reports whether the cached overlay no longer matches the labels
func (s *SliceView) Invalidated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}

// MarkInvalidated flags the cached overlay as stale. Calling it again is a no-op.
func (s *SliceView) MarkInvalidated() {
	s.mu.Lock()
	s.invalidated = true
	s.deferred = false
	s.mu.Unlock()
}

// MarkDeferred records an edit made while the slice was not displayed
func (s *SliceView) MarkDeferred() {
	s.mu.Lock()
	if !s.invalidated {
		s.deferred = true
	}
	s.mu.Unlock()
}

// Deferred reports whether an off-screen edit is waiting for display
func (s *SliceView) Deferred() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deferred
}

// ClearInvalidated clears the flag if no paint changed the slice since the
// snapshot taken at version. It reports whether the flag was cleared.
func (s *SliceView) ClearInvalidated(version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return false
	}
	s.invalidated = false
	s.deferred = false
	return true
}

func (s *SliceView) promoteDeferred() {
	s.mu.Lock()
	if s.deferred {
		s.invalidated = true
		s.deferred = false
	}
	s.mu.Unlock()
}
