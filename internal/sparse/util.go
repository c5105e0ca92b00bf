package sparse

import (
	"math"

	"golang.org/x/exp/constraints"
)

func abs[T constraints.Float](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

func markowitzProduct[T ~int | ~int64](rowCount, colCount T) T {
	const largest = math.MaxInt32
	if rowCount > 0 && colCount > largest/rowCount {
		return largest
	}
	return rowCount * colCount
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
