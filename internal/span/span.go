// Package span computes grid-column spans for timeline assets. A row is
// rowWidth (4) units wide and every asset claims between 1 and 4 units
// depending on its aspect ratio.
package span

const rowWidth = 4

// Ratio returns width/height, treating unknown dimensions as square.
func Ratio(width, height int) float64 {
	if width <= 0 || height <= 0 {
		return 1.0
	}
	return float64(width) / float64(height)
}

// FromRatio maps an aspect ratio to a span. The thresholds are tuned for
// visual parity with the reference grid and must not be adjusted.
func FromRatio(ratio float64) int {
	switch {
	case ratio >= 1.5:
		return 4
	case ratio >= 1.35:
		return 3
	case ratio >= 1.0:
		return 2
	default:
		return 1
	}
}

// Pack fits a sequence of spans into rows of width 4, truncating the span of
// an item that would overflow its row so the row is filled exactly. A
// truncation that leaves no width starts the next row with the item at span 1
// instead of emitting a zero-width cell.
func Pack(spans []int) []int {
	result := make([]int, 0, len(spans))
	sum := 0
	for _, s := range spans {
		sum += s
		switch {
		case sum == rowWidth:
			result = append(result, s)
			sum = 0
		case sum < rowWidth:
			result = append(result, s)
		default:
			adjusted := s - (sum - rowWidth)
			if adjusted == 0 {
				result = append(result, 1)
				sum = 1
			} else {
				result = append(result, adjusted)
				sum = 0
			}
		}
	}
	return result
}

// Rows returns the number of grid rows a packed span sequence occupies.
func Rows(spans []int) int {
	total := 0
	for _, s := range spans {
		total += s
	}
	return (total + rowWidth - 1) / rowWidth
}

// RowSizes describes a placeholder layout: how many rows to render with
// 1-wide, 2-wide and 4-wide cells before real aspect ratios are known.
type RowSizes struct {
	Single    int
	Double    int
	Quadruple int
}

// Estimate back-solves a mix of row widths so that itemCount placeholder
// items occupy exactly targetRows grid rows. It picks the finest granularity
// band (all-single, all-double, all-quadruple) whose row count still reaches
// targetRows and interpolates the remainder with integer difference math.
func Estimate(targetRows, itemCount int) RowSizes {
	singleRows := itemCount
	doubleRows := itemCount / 2
	quadrupleRows := itemCount / 4

	switch {
	case singleRows-targetRows <= 0:
		return RowSizes{Single: singleRows}
	case doubleRows-targetRows <= 0:
		difference := targetRows - doubleRows
		return RowSizes{
			Single: difference * 2,
			Double: doubleRows - difference,
		}
	default:
		difference := targetRows - quadrupleRows
		quadruple := quadrupleRows - difference
		double := difference * 2
		single := itemCount - (quadruple*4 + double*2)
		if single < 0 {
			single = 0
		}
		return RowSizes{
			Single:    single,
			Double:    double,
			Quadruple: quadruple,
		}
	}
}
