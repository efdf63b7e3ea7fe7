package model

import (
	"fmt"
	"math"

	"digitnet/internal/matrix"
)

const probFloor = 1e-12

// CrossEntropy returns the mean cross-entropy of the predicted distributions
// a against the one-hot targets y, averaged over the batch columns.
func CrossEntropy(a, y *matrix.Dense) float64 {
	if !a.SameShape(y) {
		panic(&matrix.DimensionError{
			Op:   "CrossEntropy",
			Want: fmt.Sprintf("%dx%d", y.Rows(), y.Cols()),
			Got:  fmt.Sprintf("%dx%d", a.Rows(), a.Cols()),
			Err:  matrix.ErrDimensionMismatch,
		})
	}
	if a.Cols() == 0 {
		return 0
	}
	ad, yd := a.RawData(), y.RawData()
	var total float64
	for i, t := range yd {
		if t == 0 {
			continue
		}
		total -= t * math.Log(math.Max(ad[i], probFloor))
	}
	return total / float64(a.Cols())
}

// BatchAccuracy returns the fraction of columns whose true class, the first
// row where y is 1, received a predicted probability of at least 0.5.
func BatchAccuracy(a, y *matrix.Dense) float64 {
	if a.Cols() == 0 {
		return 0
	}
	hits := 0
	for j := 0; j < y.Cols(); j++ {
		k := trueClass(y, j)
		if k >= 0 && a.At(k, j) >= 0.5 {
			hits++
		}
	}
	return float64(hits) / float64(a.Cols())
}

// Accuracy returns the fraction of columns whose arg-max prediction equals
// the true class.
func Accuracy(a, y *matrix.Dense) float64 {
	if a.Cols() == 0 {
		return 0
	}
	hits := 0
	for j := 0; j < y.Cols(); j++ {
		if a.ArgMaxCol(j) == trueClass(y, j) {
			hits++
		}
	}
	return float64(hits) / float64(a.Cols())
}

func trueClass(y *matrix.Dense, j int) int {
	for k := 0; k < y.Rows(); k++ {
		if y.At(k, j) == 1 {
			return k
		}
	}
	return -1
}
