package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"labelbrush/pkg/labelmap"
	"labelbrush/pkg/overlay"
)

// ErrReleased is returned when the viewed volume was unloaded
var ErrReleased = errors.New("label volume released")

// Viewer renders colored overlay planes of a label volume for visual review.
// The images are not meant to be read back as labels.
type Viewer struct {
	vol *labelmap.Volume
	lut *overlay.ColorLUT

	// workers share one color mapping pass
	workers int
}

// NewViewer creates a viewer over vol colored with lut
func NewViewer(vol *labelmap.Volume, lut *overlay.ColorLUT, workers int) *Viewer {
	return &Viewer{
		vol:     vol,
		lut:     lut,
		workers: workers,
	}
}

// ExtractSlice extracts one plane of the volume along the given axis:
// "z" is a painted slice, "x" and "y" are orthogonal reslices with the
// slice index on the horizontal or vertical image axis.
func (v *Viewer) ExtractSlice(axis string, position int) (*image.RGBA, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	rows, cols, frames := v.vol.Rows(), v.vol.Cols(), v.vol.FrameCount()
	buffer := v.vol.Snapshot()
	if buffer == nil {
		return nil, ErrReleased
	}

	var plane []byte
	var width, height int

	switch axis {
	case "x", "X":
		// YZ plane: one column per slice
		if position >= cols {
			return nil, fmt.Errorf("position %d exceeds width %d", position, cols)
		}
		width, height = frames, rows
		plane = make([]byte, width*height)
		for y := 0; y < rows; y++ {
			for z := 0; z < frames; z++ {
				plane[y*width+z] = buffer[z*rows*cols+y*cols+position]
			}
		}

	case "y", "Y":
		// XZ plane: one row per slice
		if position >= rows {
			return nil, fmt.Errorf("position %d exceeds height %d", position, rows)
		}
		width, height = cols, frames
		plane = make([]byte, width*height)
		for z := 0; z < frames; z++ {
			copy(plane[z*width:(z+1)*width], buffer[z*rows*cols+position*cols:])
		}

	case "z", "Z":
		if position >= frames {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, frames)
		}
		width, height = cols, rows
		plane = buffer[position*rows*cols : (position+1)*rows*cols]

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	overlay.Colorize(plane, width, v.lut, img, v.workers)
	return img, nil
}

// SaveSlice saves an image as PNG, creating the parent directory
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	return SavePNG(img, filename)
}

// SaveSliceSequence extracts and saves every plane along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.vol.Cols()
	case "y", "Y":
		maxPos = v.vol.Rows()
	case "z", "Z":
		maxPos = v.vol.FrameCount()
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("labels_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// SavePNG encodes img to filename
func SavePNG(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("error encoding %s: %w", filename, err)
	}
	return file.Close()
}
