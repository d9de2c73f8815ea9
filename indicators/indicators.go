// Package indicators provides technical analysis kernels over close-price
// slices: rolling statistics, exponential smoothing, RSI, and MACD.
//
// Series-wide functions return one value per input element and use NaN where
// a window is incomplete, so positions stay aligned with the source series.
package indicators

import "math"

// Mean returns the arithmetic mean of xs, or NaN for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleStd returns the sample standard deviation of xs (n-1 denominator),
// or NaN when fewer than two values are given.
func SampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	mean := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// RollingMean returns the n-element moving average of xs. The first n-1
// positions are NaN, as is any window containing a NaN input.
func RollingMean(xs []float64, n int) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	nans := 0
	for i, x := range xs {
		if math.IsNaN(x) {
			nans++
		} else {
			sum += x
		}
		if i >= n {
			if prev := xs[i-n]; math.IsNaN(prev) {
				nans--
			} else {
				sum -= prev
			}
		}
		if i < n-1 || nans > 0 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA returns the exponential moving average of xs with the given span:
// alpha = 2/(span+1), seeded with the first element.
func EMA(xs []float64, span int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// PctChange returns the fractional change between consecutive elements. The
// first position is NaN.
func PctChange(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (xs[i] - xs[i-1]) / xs[i-1]
	}
	return out
}

// RSI returns the Relative Strength Index of xs over the given period:
// 100 - 100/(1+RS), where RS is the rolling mean of upward deltas divided by
// the rolling mean of downward delta magnitudes. Zero deltas contribute zero
// to both sides. Positions without a full window of deltas are NaN, and a
// window with neither gains nor losses yields NaN (0/0).
func RSI(xs []float64, period int) []float64 {
	gains := make([]float64, len(xs))
	losses := make([]float64, len(xs))
	for i := range xs {
		if i == 0 {
			gains[i] = math.NaN()
			losses[i] = math.NaN()
			continue
		}
		delta := xs[i] - xs[i-1]
		if delta > 0 {
			gains[i] = delta
		}
		if delta < 0 {
			losses[i] = -delta
		}
	}

	// Rolling means over the deltas; the leading NaN keeps the first full
	// window at index `period`, one later than a plain rolling mean.
	avgGain := RollingMean(gains, period)
	avgLoss := RollingMean(losses, period)

	out := make([]float64, len(xs))
	for i := range xs {
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACD returns the Moving Average Convergence Divergence line and its signal
// line: EMA(short) - EMA(long) of xs, smoothed again with EMA(signal).
func MACD(xs []float64, short, long, signal int) (macd, macdSignal []float64) {
	shortEMA := EMA(xs, short)
	longEMA := EMA(xs, long)

	macd = make([]float64, len(xs))
	for i := range xs {
		macd[i] = shortEMA[i] - longEMA[i]
	}
	return macd, EMA(macd, signal)
}
