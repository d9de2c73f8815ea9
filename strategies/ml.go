package strategies

import (
	"context"
	"fmt"
	"math"
	"time"

	"stocksim/indicators"
	"stocksim/market"
	"stocksim/marketdata"
	"stocksim/regression"
)

// featureBufferDays pads the training extension so rolling feature windows
// (the 50-day SMA is the widest) are complete by the first training row.
const featureBufferDays = 70

// Feature names accepted in a strategy_config features list.
const (
	FeatureSMA10 = "SMA_10"
	FeatureSMA50 = "SMA_50"
	FeatureRSI   = "RSI"
	FeatureMACD  = "MACD"
)

// mlStrategy is the shared machinery of the regression-based variants: it
// engineers feature columns from the close series, binarizes the next-day
// return as the target, fits the regression capability on rows before the
// requested start date, and scores the rest.
type mlStrategy struct {
	name         string
	trainingDays int
	features     []string
	regressor    regression.Regressor
	standardize  bool

	series      *market.Series
	predictions map[time.Time]float64
}

func newMLStrategy(name string, cfg Config, regressor regression.Regressor, standardize bool) (*mlStrategy, error) {
	training, err := cfg.IntDays("training_period")
	if err != nil {
		return nil, err
	}
	features, err := cfg.FeatureNames("features")
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("at least one feature is required")
	}
	for _, f := range features {
		switch f {
		case FeatureSMA10, FeatureSMA50, FeatureRSI, FeatureMACD:
		default:
			return nil, fmt.Errorf("unknown feature %q", f)
		}
	}
	return &mlStrategy{
		name:         name,
		trainingDays: training,
		features:     features,
		regressor:    regressor,
		standardize:  standardize,
	}, nil
}

func (s *mlStrategy) Name() string { return s.name }

// Prepare fetches history extended by the training period plus the feature
// buffer, engineers features and targets, fits the model on rows strictly
// before start, and precomputes a score per remaining date.
func (s *mlStrategy) Prepare(ctx context.Context, provider marketdata.Provider, symbol string, start, end time.Time) (*market.Series, error) {
	series, err := fetch(ctx, provider, symbol,
		start.AddDate(0, 0, -(s.trainingDays+featureBufferDays)), end)
	if err != nil {
		return nil, err
	}
	s.series = series

	dates, rows, targets := engineerFeatures(series, s.features)
	if err := s.trainAndPredict(start, dates, rows, targets); err != nil {
		return nil, err
	}
	return series, nil
}

func (s *mlStrategy) trainAndPredict(start time.Time, dates []time.Time, rows [][]float64, targets []float64) error {
	startDay := market.Day(start)

	var (
		trainX, scoreX [][]float64
		trainY         []float64
		scoreDates     []time.Time
	)
	for i, d := range dates {
		if d.Before(startDay) {
			trainX = append(trainX, rows[i])
			trainY = append(trainY, targets[i])
		} else {
			scoreX = append(scoreX, rows[i])
			scoreDates = append(scoreDates, d)
		}
	}
	if len(trainX) == 0 {
		return fmt.Errorf("%w: no complete feature rows before the requested start", ErrDegenerateStatistics)
	}
	if len(scoreX) == 0 {
		return fmt.Errorf("%w: no complete feature rows to score", ErrDegenerateStatistics)
	}

	if s.standardize {
		// Scale with training-split statistics only; the scored rows see
		// the same transform but never influence it.
		var scaler regression.Scaler
		if err := scaler.Fit(trainX); err != nil {
			return fmt.Errorf("fit scaler: %w", err)
		}
		var err error
		if trainX, err = scaler.Transform(trainX); err != nil {
			return fmt.Errorf("scale training rows: %w", err)
		}
		if scoreX, err = scaler.Transform(scoreX); err != nil {
			return fmt.Errorf("scale scored rows: %w", err)
		}
	}

	model, err := s.regressor.Fit(trainX, trainY)
	if err != nil {
		return fmt.Errorf("fit model: %w", err)
	}

	scores := model.Predict(scoreX)
	s.predictions = make(map[time.Time]float64, len(scores))
	for i, d := range scoreDates {
		s.predictions[d] = scores[i]
	}
	return nil
}

// Execute returns the precomputed score for date, or 0 when the date was
// not scored (absent from the series, or dropped for incomplete features).
func (s *mlStrategy) Execute(date time.Time) float64 {
	if _, ok := s.series.Index(date); !ok {
		return 0
	}
	return s.predictions[market.Day(date)]
}

// engineerFeatures derives the requested feature columns plus the binary
// next-day-return target, dropping rows where any feature or the target is
// incomplete. Requesting MACD also adds its signal line as a column.
func engineerFeatures(series *market.Series, features []string) (dates []time.Time, rows [][]float64, targets []float64) {
	closes := series.Closes()

	var columns [][]float64
	for _, f := range features {
		switch f {
		case FeatureSMA10:
			columns = append(columns, indicators.RollingMean(closes, 10))
		case FeatureSMA50:
			columns = append(columns, indicators.RollingMean(closes, 50))
		case FeatureRSI:
			columns = append(columns, indicators.RSI(closes, 14))
		case FeatureMACD:
			macd, signal := indicators.MACD(closes, 12, 26, 9)
			columns = append(columns, macd, signal)
		}
	}

	returns := indicators.PctChange(closes)

	for i := 0; i < series.Len(); i++ {
		// Target: 1 when the next day's return is positive. The final row
		// has no next-day return and is dropped.
		if i+1 >= len(returns) || math.IsNaN(returns[i+1]) {
			continue
		}
		row := make([]float64, len(columns))
		complete := true
		for j, col := range columns {
			if math.IsNaN(col[i]) {
				complete = false
				break
			}
			row[j] = col[i]
		}
		if !complete {
			continue
		}

		target := 0.0
		if returns[i+1] > 0 {
			target = 1
		}
		dates = append(dates, series.At(i).Date)
		rows = append(rows, row)
		targets = append(targets, target)
	}
	return dates, rows, targets
}

// NewLinearRegressionML builds the ordinary-least-squares variant from
// training_period (days) and a features list.
func NewLinearRegressionML(cfg Config) (Strategy, error) {
	return newMLStrategy("LinearRegressionMachineLearning", cfg, regression.LeastSquares{}, false)
}

// NewSupportVectorRegressionML builds the linear SVR variant from
// training_period (days), a features list, and the c and epsilon
// hyperparameters. Features are standardized on the training split.
func NewSupportVectorRegressionML(cfg Config) (Strategy, error) {
	c, err := cfg.Float("c")
	if err != nil {
		return nil, err
	}
	epsilon, err := cfg.Float("epsilon")
	if err != nil {
		return nil, err
	}
	return newMLStrategy("SupportedVectorRegressionMachineLearning", cfg,
		regression.LinearSVR{C: c, Epsilon: epsilon}, true)
}
