package labelmap

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LabelStats summarizes the pixels carrying one label in a slice
type LabelStats struct {
	// Label is the segment id
	Label uint8

	// Pixels is the number of pixels carrying the label
	Pixels int

	// Coverage is Pixels divided by the slice area
	Coverage float64

	// CentroidRow and CentroidCol locate the mean pixel center
	CentroidRow float64
	CentroidCol float64

	// StdRow and StdCol measure the spread around the centroid
	StdRow float64
	StdCol float64

	// MajorAxis and MinorAxis are the lengths (4 sigma) of the segment's
	// principal axes; both are 0 for a single pixel
	MajorAxis float64
	MinorAxis float64

	// Orientation is the angle of the major axis in degrees, measured from
	// the column axis towards increasing rows, in (-90, 90]
	Orientation float64

	// Bounds is the bounding box in (x = col, y = row) pixel coordinates
	Bounds image.Rectangle
}

// SliceSummary describes every label present in one slice
type SliceSummary struct {
	SliceIndex int
	Labels     []LabelStats

	// LabelledFraction is the share of pixels carrying any non-zero label
	LabelledFraction float64
}

// SliceStats computes per-label statistics for the view, ordered by label id
func SliceStats(view *SliceView) SliceSummary {
	data, _ := view.Snapshot()
	summary := SliceSummary{SliceIndex: view.Index()}
	if len(data) == 0 {
		return summary
	}

	cols := view.Cols()
	rowsByLabel := make(map[uint8][]float64)
	colsByLabel := make(map[uint8][]float64)
	bounds := make(map[uint8]image.Rectangle)

	for idx, label := range data {
		if label == 0 {
			continue
		}
		r, c := idx/cols, idx%cols
		// pixel centers
		rowsByLabel[label] = append(rowsByLabel[label], float64(r)+0.5)
		colsByLabel[label] = append(colsByLabel[label], float64(c)+0.5)
		px := image.Rect(c, r, c+1, r+1)
		if b, ok := bounds[label]; ok {
			bounds[label] = b.Union(px)
		} else {
			bounds[label] = px
		}
	}

	area := float64(len(data))
	coverage := make([]float64, 0, len(rowsByLabel))
	for label, rows := range rowsByLabel {
		ls := LabelStats{
			Label:    label,
			Pixels:   len(rows),
			Coverage: float64(len(rows)) / area,
			Bounds:   bounds[label],
		}
		ls.CentroidRow, ls.StdRow = meanStd(rows)
		ls.CentroidCol, ls.StdCol = meanStd(colsByLabel[label])
		principalAxes(&ls, colsByLabel[label], rows)
		summary.Labels = append(summary.Labels, ls)
		coverage = append(coverage, ls.Coverage)
	}

	sort.Slice(summary.Labels, func(i, j int) bool {
		return summary.Labels[i].Label < summary.Labels[j].Label
	})
	if len(coverage) > 0 {
		summary.LabelledFraction = floats.Sum(coverage)
	}
	return summary
}

func meanStd(values []float64) (float64, float64) {
	if len(values) < 2 {
		return stat.Mean(values, nil), 0
	}
	return stat.MeanStdDev(values, nil)
}

// principalAxes fills the axis lengths and orientation from the eigen
// decomposition of the (col, row) covariance
func principalAxes(ls *LabelStats, cols, rows []float64) {
	if len(rows) < 2 {
		return
	}
	points := mat.NewDense(len(rows), 2, nil)
	for i := range rows {
		points.Set(i, 0, cols[i])
		points.Set(i, 1, rows[i])
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, points, nil)

	var eig mat.EigenSym
	if !eig.Factorize(&cov, true) {
		return
	}
	values := eig.Values(nil) // ascending
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	ls.MajorAxis = 4 * math.Sqrt(math.Max(values[1], 0))
	ls.MinorAxis = 4 * math.Sqrt(math.Max(values[0], 0))

	angle := math.Atan2(vectors.At(1, 1), vectors.At(0, 1)) * 180 / math.Pi
	switch {
	case angle <= -90:
		angle += 180
	case angle > 90:
		angle -= 180
	}
	if values[1]-values[0] < 1e-12 {
		// isotropic segments have no preferred direction
		angle = 0
	}
	ls.Orientation = angle
}
