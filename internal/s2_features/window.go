package s2_features

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// lagAt returns sales[t-k]; ok is false before the series start
func lagAt(sales []float64, t, k int) (float64, bool) {
	if t-k < 0 {
		return 0, false
	}
	return sales[t-k], true
}

// rollingStats returns mean and sample std of sales[t-w : t].
// Day t itself is never included.
func rollingStats(sales []float64, t, w int) (mean, std float64, ok bool) {
	if w <= 0 || t-w < 0 {
		return 0, 0, false
	}
	window := sales[t-w : t]
	if w == 1 {
		return window[0], 0, true
	}
	mean, std = stat.MeanStdDev(window, nil)
	return mean, std, true
}

// trailingMean averages up to b days before t, clipped at the series start
func trailingMean(sales []float64, t, b int) (float64, int) {
	start := t - b
	if start < 0 {
		start = 0
	}
	n := t - start
	if n <= 0 {
		return 0, 0
	}
	return floats.Sum(sales[start:t]) / float64(n), n
}
