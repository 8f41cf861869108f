package labelmap

import (
	"errors"
	"math"
	"testing"

	"labelbrush/internal/models"
)

// TestEnsureVolume verifies lazy creation and dimension checks
func TestEnsureVolume(t *testing.T) {
	store := NewStore()

	vol, err := store.EnsureVolume("series-1", 10, 10, 3)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}

	if vol.Len() != 10*10*3 {
		t.Errorf("Expected buffer length %d, got %d", 10*10*3, vol.Len())
	}

	again, err := store.EnsureVolume("series-1", 10, 10, 3)
	if err != nil {
		t.Fatalf("Expected existing volume, got error: %v", err)
	}
	if again != vol {
		t.Error("Expected the same volume for the same stack")
	}

	_, err = store.EnsureVolume("series-1", 10, 10, 4)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("Expected ErrSizeMismatch, got %v", err)
	}

	// The original volume is untouched by the failed call
	if vol.FrameCount() != 3 {
		t.Errorf("Expected frame count 3 after mismatch, got %d", vol.FrameCount())
	}

	for _, dims := range [][3]int{{0, 10, 1}, {10, -1, 1}, {10, 10, 0}, {math.MaxInt / 2, 4, 1}} {
		if _, err := store.EnsureVolume("bad", dims[0], dims[1], dims[2]); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("Expected ErrInvalidDimensions for %v, got %v", dims, err)
		}
	}

	if store.Len() != 1 {
		t.Errorf("Expected 1 volume, got %d", store.Len())
	}
}

// TestSliceView verifies lazy, memoized view creation and index checks
func TestSliceView(t *testing.T) {
	store := NewStore()
	vol, _ := store.EnsureVolume("series-1", 4, 5, 3)

	if _, ok := vol.LookupSliceView(1); ok {
		t.Error("Expected no view before first access")
	}

	view, err := store.SliceView(vol, 1)
	if err != nil {
		t.Fatalf("Failed to get slice view: %v", err)
	}

	same, _ := store.SliceView(vol, 1)
	if same != view {
		t.Error("Expected memoized view on second access")
	}

	if !view.Invalidated() {
		t.Error("Expected a new view to start invalidated")
	}

	for _, idx := range []int{-1, 3, 100} {
		if _, err := store.SliceView(vol, idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Expected ErrIndexOutOfRange for index %d, got %v", idx, err)
		}
	}
}

// TestSliceViewsShareBuffer verifies each view addresses its own slice of one buffer
func TestSliceViewsShareBuffer(t *testing.T) {
	store := NewStore()
	vol, _ := store.EnsureVolume("series-1", 3, 3, 2)

	first, _ := vol.SliceView(0)
	second, _ := vol.SliceView(1)

	second.Update([]models.Pixel{{Row: 1, Col: 1}}, func(uint8) uint8 { return 7 })

	if got := second.At(1, 1); got != 7 {
		t.Errorf("Expected label 7 in slice 1, got %d", got)
	}
	if got := first.At(1, 1); got != 0 {
		t.Errorf("Expected slice 0 untouched, got %d", got)
	}

	vol.bufMu.RLock()
	raw := vol.buffer[9+4]
	vol.bufMu.RUnlock()
	if raw != 7 {
		t.Errorf("Expected buffer offset 13 to hold 7, got %d", raw)
	}
}

// TestInvalidationFlags verifies idempotent invalidation and version-checked clearing
func TestInvalidationFlags(t *testing.T) {
	store := NewStore()
	vol, _ := store.EnsureVolume("series-1", 2, 2, 1)
	view, _ := vol.SliceView(0)

	_, version := view.Snapshot()
	if !view.ClearInvalidated(version) {
		t.Fatal("Expected clear to succeed without intervening paint")
	}

	store.MarkInvalidated(view)
	store.MarkInvalidated(view)
	if !view.Invalidated() {
		t.Error("Expected view to be invalidated")
	}

	_, version = view.Snapshot()
	view.Update([]models.Pixel{{Row: 0, Col: 0}}, func(uint8) uint8 { return 1 })

	if view.ClearInvalidated(version) {
		t.Error("Expected clear to fail after a paint changed the slice")
	}
	if !view.Invalidated() {
		t.Error("Expected view to stay invalidated")
	}

	// Writing the same value again changes nothing and keeps the version
	before := view.Version()
	if n := view.Update([]models.Pixel{{Row: 0, Col: 0}}, func(uint8) uint8 { return 1 }); n != 0 {
		t.Errorf("Expected 0 changed pixels, got %d", n)
	}
	if view.Version() != before {
		t.Errorf("Expected version %d, got %d", before, view.Version())
	}
}

// TestDeferredInvalidation verifies off-screen edits are promoted on display
func TestDeferredInvalidation(t *testing.T) {
	store := NewStore()
	vol, _ := store.EnsureVolume("series-1", 2, 2, 3)
	view, _ := vol.SliceView(2)

	_, version := view.Snapshot()
	view.ClearInvalidated(version)

	view.MarkDeferred()
	if view.Invalidated() {
		t.Error("Deferred edit must not invalidate an off-screen slice")
	}
	if !view.Deferred() {
		t.Error("Expected deferred flag")
	}

	if err := vol.SetDisplayedSlice(2); err != nil {
		t.Fatalf("Failed to set displayed slice: %v", err)
	}
	if !view.Invalidated() {
		t.Error("Expected deferred edit to invalidate once displayed")
	}
	if view.Deferred() {
		t.Error("Expected deferred flag to be consumed")
	}

	if err := vol.SetDisplayedSlice(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}
}

// TestRemove verifies unloading a stack releases its buffer
func TestRemove(t *testing.T) {
	store := NewStore()
	vol, _ := store.EnsureVolume("series-1", 2, 2, 1)
	view, _ := vol.SliceView(0)

	if !store.Remove("series-1") {
		t.Fatal("Expected remove to report an existing volume")
	}
	if store.Remove("series-1") {
		t.Error("Expected second remove to report nothing removed")
	}
	if !vol.Released() {
		t.Error("Expected volume to be released")
	}
	if data, _ := view.Snapshot(); data != nil {
		t.Errorf("Expected nil snapshot after release, got %v", data)
	}
	if n := view.Update([]models.Pixel{{Row: 0, Col: 0}}, func(uint8) uint8 { return 1 }); n != 0 {
		t.Errorf("Expected no writes after release, got %d", n)
	}

	// A new volume with other dimensions is allowed after unload
	if _, err := store.EnsureVolume("series-1", 4, 4, 2); err != nil {
		t.Errorf("Expected re-creation after unload, got %v", err)
	}
}
