package regression

import (
	"errors"
	"fmt"
	"math"
)

// Scaler standardizes feature columns to zero mean and unit variance using
// statistics taken from the data it was fit on. Fitting on the training
// split and transforming both splits keeps scoring rows from leaking into
// the training statistics.
type Scaler struct {
	mean []float64
	std  []float64
}

// Fit computes per-column mean and population standard deviation from x.
func (s *Scaler) Fit(x [][]float64) error {
	if len(x) == 0 {
		return ErrEmptyTrainingSet
	}
	cols := len(x[0])
	s.mean = make([]float64, cols)
	s.std = make([]float64, cols)

	for _, row := range x {
		if len(row) != cols {
			return errors.New("ragged feature matrix")
		}
		for j, v := range row {
			s.mean[j] += v
		}
	}
	n := float64(len(x))
	for j := range s.mean {
		s.mean[j] /= n
	}
	for _, row := range x {
		for j, v := range row {
			d := v - s.mean[j]
			s.std[j] += d * d
		}
	}
	for j := range s.std {
		s.std[j] = math.Sqrt(s.std[j] / n)
		if s.std[j] == 0 {
			// Constant column: pass through centered rather than divide by 0.
			s.std[j] = 1
		}
	}
	return nil
}

// Transform returns a standardized copy of x using the fitted statistics.
func (s *Scaler) Transform(x [][]float64) ([][]float64, error) {
	if s.mean == nil {
		return nil, errors.New("scaler not fitted")
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		if len(row) != len(s.mean) {
			return nil, fmt.Errorf("row %d has %d features, scaler fitted on %d",
				i, len(row), len(s.mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.mean[j]) / s.std[j]
		}
		out[i] = scaled
	}
	return out, nil
}
