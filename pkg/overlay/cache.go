package overlay

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"labelbrush/internal/logx"
	"labelbrush/pkg/labelmap"
)

// ErrAllocationFailure is reported when a regeneration cannot obtain its raster.
// It never reaches paint or render callers; the previous bitmap is kept.
var ErrAllocationFailure = errors.New("overlay raster allocation failed")

// Allocator returns a zeroed cols x rows raster
type Allocator func(cols, rows int) (*image.RGBA, error)

// Completion describes a finished regeneration
type Completion struct {
	Volume *labelmap.Volume
	Bitmap *Bitmap

	// Superseded is true when a request for another slice arrived while
	// this regeneration was running. The bitmap is cached regardless.
	Superseded bool
}

// Stats counts cache activity since creation
type Stats struct {
	Started   uint64
	Completed uint64
	Failed    uint64
	Coalesced uint64
	Deferred  uint64
	Dropped   uint64
}

type request struct {
	view  *labelmap.SliceView
	slice int
	lut   *ColorLUT
}

// slot is the cache state of one volume
type slot struct {
	bitmap atomic.Pointer[Bitmap]

	// guarded by Cache.mu
	inFlight      bool
	inFlightSlice int
	pending       *request
	generation    uint64
}

// Cache keeps at most one Bitmap per volume. Readers get whatever is cached,
// even if stale, while at most one regeneration per volume runs on its own
// goroutine. A request for the slice being regenerated is coalesced; a request
// for another slice waits and only the most recent one runs afterwards.
type Cache struct {
	mu    sync.Mutex
	slots map[*labelmap.Volume]*slot

	alloc      Allocator
	maxPixels  int
	workers    int
	onComplete func(Completion)

	wg sync.WaitGroup

	started   atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	coalesced atomic.Uint64
	deferred  atomic.Uint64
	dropped   atomic.Uint64
}

// Option configures a Cache
type Option func(*Cache)

// WithAllocator replaces the raster allocator
func WithAllocator(a Allocator) Option {
	return func(c *Cache) { c.alloc = a }
}

// WithMaxPixels caps the raster size accepted by the default allocator
func WithMaxPixels(n int) Option {
	return func(c *Cache) { c.maxPixels = n }
}

// WithWorkers sets how many goroutines share the color mapping of one raster
func WithWorkers(n int) Option {
	return func(c *Cache) { c.workers = n }
}

// WithOnComplete registers a callback run on the regeneration goroutine
// after each new bitmap is published.
func WithOnComplete(fn func(Completion)) Option {
	return func(c *Cache) { c.onComplete = fn }
}

// NewCache creates an empty cache
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		slots:     make(map[*labelmap.Volume]*slot),
		maxPixels: 8192 * 8192,
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.alloc == nil {
		c.alloc = c.defaultAlloc
	}
	return c
}

// CachedBitmap returns the bitmap cached for vol, or nil if none was ever built.
// The result may be stale or belong to another slice.
func (c *Cache) CachedBitmap(vol *labelmap.Volume) *Bitmap {
	c.mu.Lock()
	s := c.slots[vol]
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.bitmap.Load()
}

// RegenerateIfNeeded starts a background regeneration of sliceIndex when the
// slice is invalidated or the cached bitmap shows another slice. It never
// blocks on a running regeneration and reports whether one was started.
func (c *Cache) RegenerateIfNeeded(vol *labelmap.Volume, sliceIndex int, view *labelmap.SliceView, lut *ColorLUT) bool {
	if view == nil || lut == nil || view.Volume() != vol || view.Index() != sliceIndex || vol.Released() {
		logx.Logger().Warn("overlay regeneration skipped: view does not match request",
			"stack", vol.StackID(), "slice", sliceIndex)
		return false
	}
	req := &request{view: view, slice: sliceIndex, lut: lut}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.slots[vol]
	if s == nil {
		s = &slot{}
		c.slots[vol] = s
	}

	if s.inFlight {
		if sliceIndex == s.inFlightSlice {
			// the running slice is the most recent request again
			if s.pending != nil {
				s.pending = nil
				c.dropped.Add(1)
			}
			c.coalesced.Add(1)
			return false
		}
		if s.pending != nil {
			c.dropped.Add(1)
		}
		s.pending = req
		c.deferred.Add(1)
		return false
	}

	if !needsRegeneration(s, req) {
		return false
	}

	s.inFlight = true
	s.inFlightSlice = sliceIndex
	s.generation++
	c.started.Add(1)
	c.wg.Add(1)
	go c.run(vol, s, req, s.generation)
	return true
}

// Drop forgets the bitmap of an unloaded volume. A regeneration still running
// for it finishes without publishing.
func (c *Cache) Drop(vol *labelmap.Volume) {
	c.mu.Lock()
	delete(c.slots, vol)
	c.mu.Unlock()
}

// Wait blocks until no regeneration is running
func (c *Cache) Wait() {
	c.wg.Wait()
}

// Stats returns activity counters
func (c *Cache) Stats() Stats {
	return Stats{
		Started:   c.started.Load(),
		Completed: c.completed.Load(),
		Failed:    c.failed.Load(),
		Coalesced: c.coalesced.Load(),
		Deferred:  c.deferred.Load(),
		Dropped:   c.dropped.Load(),
	}
}

func needsRegeneration(s *slot, req *request) bool {
	if req.view.Invalidated() {
		return true
	}
	bm := s.bitmap.Load()
	return bm == nil || bm.Slice != req.slice
}

// run regenerates req and then whatever request was deferred meanwhile
func (c *Cache) run(vol *labelmap.Volume, s *slot, req *request, generation uint64) {
	defer c.wg.Done()

	for req != nil {
		c.regenerate(vol, s, req, generation)

		c.mu.Lock()
		next := s.pending
		s.pending = nil
		req = nil
		if next != nil && c.slots[vol] == s && !vol.Released() && needsRegeneration(s, next) {
			s.generation++
			s.inFlightSlice = next.slice
			generation = s.generation
			c.started.Add(1)
			req = next
		} else {
			s.inFlight = false
		}
		c.mu.Unlock()
	}
}

func (c *Cache) regenerate(vol *labelmap.Volume, s *slot, req *request, generation uint64) {
	log := logx.Logger().With("stack", vol.StackID(), "slice", req.slice, "generation", generation)
	start := time.Now()

	labels, version := req.view.Snapshot()
	if labels == nil {
		log.Debug("overlay regeneration abandoned: volume released")
		return
	}

	img, err := c.alloc(vol.Cols(), vol.Rows())
	if err == nil && (img == nil || img.Bounds() != image.Rect(0, 0, vol.Cols(), vol.Rows())) {
		err = fmt.Errorf("%w: allocator returned wrong raster size", ErrAllocationFailure)
	}
	if err != nil {
		if !errors.Is(err, ErrAllocationFailure) {
			err = fmt.Errorf("%w: %v", ErrAllocationFailure, err)
		}
		c.failed.Add(1)
		log.Warn("overlay regeneration failed, keeping previous bitmap", "err", err)
		return
	}

	Colorize(labels, vol.Cols(), req.lut, img, c.workers)

	bm := &Bitmap{
		Image:      img,
		Slice:      req.slice,
		Generation: generation,
		Version:    version,
		CreatedAt:  time.Now(),
	}

	c.mu.Lock()
	if c.slots[vol] != s {
		c.mu.Unlock()
		log.Debug("overlay regeneration discarded: volume dropped")
		return
	}
	s.bitmap.Store(bm)
	superseded := s.pending != nil && s.pending.slice != req.slice
	c.mu.Unlock()

	req.view.ClearInvalidated(version)
	c.completed.Add(1)
	log.Debug("overlay regenerated", "elapsed", time.Since(start), "superseded", superseded)

	if c.onComplete != nil {
		c.onComplete(Completion{Volume: vol, Bitmap: bm, Superseded: superseded})
	}
}

func (c *Cache) defaultAlloc(cols, rows int) (img *image.RGBA, err error) {
	if cols <= 0 || rows <= 0 || cols > c.maxPixels/rows {
		return nil, fmt.Errorf("%w: %dx%d raster exceeds %d pixels", ErrAllocationFailure, cols, rows, c.maxPixels)
	}
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("%w: %v", ErrAllocationFailure, r)
		}
	}()
	return image.NewRGBA(image.Rect(0, 0, cols, rows)), nil
}
