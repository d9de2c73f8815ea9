// Package regression provides the fit/predict capability used by the
// machine-learning strategies: ordinary least squares, a linear
// epsilon-insensitive support vector regressor, and a feature standardizer.
//
// Both regressors are deterministic: identical inputs always produce
// identical models.
package regression

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrEmptyTrainingSet is returned by Fit when no rows are supplied.
var ErrEmptyTrainingSet = errors.New("empty training set")

// Model scores feature rows with a fitted regressor.
type Model interface {
	// Predict returns one score per row of x.
	Predict(x [][]float64) []float64
}

// Regressor fits a Model to a feature matrix and target vector.
type Regressor interface {
	Fit(x [][]float64, y []float64) (Model, error)
}

func checkTrainingSet(x [][]float64, y []float64) (cols int, err error) {
	if len(x) == 0 {
		return 0, ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("feature rows (%d) and targets (%d) differ", len(x), len(y))
	}
	cols = len(x[0])
	if cols == 0 {
		return 0, errors.New("feature rows are empty")
	}
	for i, row := range x {
		if len(row) != cols {
			return 0, fmt.Errorf("row %d has %d features, want %d", i, len(row), cols)
		}
	}
	return cols, nil
}

// linearModel is a fitted linear predictor: score = w·x + b.
type linearModel struct {
	weights []float64
	bias    float64
}

func (m *linearModel) Predict(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		score := m.bias
		for j, w := range m.weights {
			score += w * row[j]
		}
		out[i] = score
	}
	return out
}

// LeastSquares fits an ordinary least squares linear regression with an
// intercept term.
type LeastSquares struct{}

// Fit solves min ||Xw - y|| over the rows of x via QR decomposition.
func (LeastSquares) Fit(x [][]float64, y []float64) (Model, error) {
	cols, err := checkTrainingSet(x, y)
	if err != nil {
		return nil, err
	}

	// Design matrix with a leading column of ones for the intercept.
	rows := len(x)
	a := mat.NewDense(rows, cols+1, nil)
	for i, row := range x {
		a.Set(i, 0, 1)
		for j, v := range row {
			a.Set(i, j+1, v)
		}
	}
	b := mat.NewVecDense(rows, append([]float64(nil), y...))

	var qr mat.QR
	qr.Factorize(a)

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, b); err != nil {
		return nil, fmt.Errorf("least squares solve: %w", err)
	}

	weights := make([]float64, cols)
	for j := 0; j < cols; j++ {
		weights[j] = beta.AtVec(j + 1)
	}
	return &linearModel{weights: weights, bias: beta.AtVec(0)}, nil
}

// LinearSVR fits a linear support vector regressor with an
// epsilon-insensitive loss: residuals within Epsilon of the target are not
// penalized, larger ones cost C per unit.
//
// Training runs full-batch projected subgradient descent with a fixed epoch
// count, zero initialization, and a 1/t step schedule, so the fit is
// reproducible. Inputs are expected to be standardized (see Scaler).
type LinearSVR struct {
	C       float64
	Epsilon float64
}

const (
	svrEpochs   = 2000
	svrBaseStep = 0.1
)

// Fit trains the regressor on the rows of x.
func (r LinearSVR) Fit(x [][]float64, y []float64) (Model, error) {
	cols, err := checkTrainingSet(x, y)
	if err != nil {
		return nil, err
	}
	c := r.C
	if c <= 0 {
		c = 1
	}
	eps := r.Epsilon
	if eps < 0 {
		eps = 0
	}

	w := make([]float64, cols)
	grad := make([]float64, cols)
	var bias float64
	n := float64(len(x))

	for epoch := 0; epoch < svrEpochs; epoch++ {
		for j := range grad {
			grad[j] = w[j] // regularization term of 0.5*||w||^2
		}
		gradBias := 0.0

		for i, row := range x {
			pred := bias
			for j, wj := range w {
				pred += wj * row[j]
			}
			resid := pred - y[i]
			switch {
			case resid > eps:
				for j, v := range row {
					grad[j] += c * v / n
				}
				gradBias += c / n
			case resid < -eps:
				for j, v := range row {
					grad[j] -= c * v / n
				}
				gradBias -= c / n
			}
		}

		step := svrBaseStep / (1 + svrBaseStep*float64(epoch))
		for j := range w {
			w[j] -= step * grad[j]
		}
		bias -= step * gradBias
	}

	return &linearModel{weights: w, bias: bias}, nil
}
