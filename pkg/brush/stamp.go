// Package brush turns a brush position and radius into the set of pixels it covers.
package brush

import (
	"math"

	"labelbrush/internal/models"
)

// Stamp is the set of pixels touched by one brush application, in
// row-major order. Stamps are transient and never cached.
type Stamp []models.Pixel

// ComputeStamp returns the pixels whose center lies within radius of the
// center of the pixel containing center, clipped to a rows x cols image.
//
// Distances are measured between pixel centers, so the disk is symmetric
// about the row and column through its center pixel.
// A radius below 1 (or NaN) selects only the pixel containing center,
// or nothing when that pixel is outside the image.
func ComputeStamp(center models.Point, radius float64, rows, cols int) Stamp {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	if math.IsNaN(center.X) || math.IsNaN(center.Y) {
		return nil
	}
	// a radius past the image diagonal covers nothing more
	limit := float64(rows+cols) + 1
	if radius > limit {
		radius = limit
	}
	reachF := max(radius, 0) + 1
	if center.X < -reachF || center.Y < -reachF || center.X > float64(cols)+reachF || center.Y > float64(rows)+reachF {
		return nil
	}
	origin := center.Pixel()

	if !(radius >= 1) {
		if origin.Row < 0 || origin.Col < 0 || origin.Row >= rows || origin.Col >= cols {
			return nil
		}
		return Stamp{origin}
	}

	// Integer radius bounds the search box; r2 keeps the comparison exact
	// for integral distances.
	reach := int(math.Floor(radius))
	r2 := radius * radius

	minRow := max(origin.Row-reach, 0)
	maxRow := min(origin.Row+reach, rows-1)
	minCol := max(origin.Col-reach, 0)
	maxCol := min(origin.Col+reach, cols-1)
	if minRow > maxRow || minCol > maxCol {
		return nil
	}

	stamp := make(Stamp, 0, (maxRow-minRow+1)*(maxCol-minCol+1))
	for r := minRow; r <= maxRow; r++ {
		dr := float64(r - origin.Row)
		for c := minCol; c <= maxCol; c++ {
			dc := float64(c - origin.Col)
			if dr*dr+dc*dc <= r2 {
				stamp = append(stamp, models.Pixel{Row: r, Col: c})
			}
		}
	}
	return stamp
}

// Contains reports whether the stamp covers (row, col)
func (s Stamp) Contains(row, col int) bool {
	for _, p := range s {
		if p.Row == row && p.Col == col {
			return true
		}
	}
	return false
}
