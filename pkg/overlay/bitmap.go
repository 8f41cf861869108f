package overlay

import (
	"image"
	"sync"
	"time"
)

// Bitmap is a colored snapshot of one slice's labels. It is never modified
// after it is published; a regeneration replaces it with a new Bitmap.
type Bitmap struct {
	// Image holds rows x columns RGBA pixels
	Image *image.RGBA

	// Slice is the slice index the raster was built from
	Slice int

	// Generation increases with every regeneration started for the volume
	Generation uint64

	// Version is the slice modification version the raster reflects
	Version uint64

	// CreatedAt records when the regeneration finished
	CreatedAt time.Time
}

// minParallelPixels is the raster size above which Colorize splits the
// work into row bands
const minParallelPixels = 256 * 256

// Colorize maps every label of a row-major slice through lut into dst.
// dst must be cols x rows; label 0 becomes fully transparent.
func Colorize(labels []byte, cols int, lut *ColorLUT, dst *image.RGBA, workers int) {
	if cols <= 0 || len(labels) == 0 {
		return
	}
	rows := len(labels) / cols

	if workers <= 1 || len(labels) < minParallelPixels || rows < workers {
		colorizeRows(labels, cols, 0, rows, lut, dst)
		return
	}

	band := (rows + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < rows; start += band {
		end := min(start+band, rows)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			colorizeRows(labels, cols, start, end, lut, dst)
		}(start, end)
	}
	wg.Wait()
}

func colorizeRows(labels []byte, cols, start, end int, lut *ColorLUT, dst *image.RGBA) {
	for y := start; y < end; y++ {
		src := labels[y*cols : (y+1)*cols]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+cols*4]
		for x, label := range src {
			c := lut.colors[label]
			i := x * 4
			row[i+0] = c.R
			row[i+1] = c.G
			row[i+2] = c.B
			row[i+3] = c.A
		}
	}
}
