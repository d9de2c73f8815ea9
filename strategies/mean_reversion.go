package strategies

import (
	"context"
	"time"

	"stocksim/indicators"
	"stocksim/market"
	"stocksim/marketdata"
)

// MeanReversion signals against price extremes: when the close sits more
// than zThreshold sample standard deviations above the trailing-window mean
// it sells, and below it buys.
type MeanReversion struct {
	lookbackDays int
	zThreshold   float64

	series *market.Series
}

// NewMeanReversion builds a MeanReversion from lookback_period (days) and
// z_threshold.
func NewMeanReversion(cfg Config) (Strategy, error) {
	lookback, err := cfg.IntDays("lookback_period")
	if err != nil {
		return nil, err
	}
	z, err := cfg.Float("z_threshold")
	if err != nil {
		return nil, err
	}
	return &MeanReversion{lookbackDays: lookback, zThreshold: z}, nil
}

func (s *MeanReversion) Name() string { return "MeanReversion" }

// Prepare fetches history starting lookback_period days before start so the
// first trading date already has a full window behind it.
func (s *MeanReversion) Prepare(ctx context.Context, provider marketdata.Provider, symbol string, start, end time.Time) (*market.Series, error) {
	series, err := fetch(ctx, provider, symbol, start.AddDate(0, 0, -s.lookbackDays), end)
	if err != nil {
		return nil, err
	}
	s.series = series
	return series, nil
}

// Execute computes the z-score of the close on date against the trailing
// lookback window (calendar days, endpoints inclusive). A window too small
// or too flat to define a z-score yields no signal.
func (s *MeanReversion) Execute(date time.Time) float64 {
	current, ok := s.series.Close(date)
	if !ok {
		return 0
	}

	window := s.series.SliceRange(market.Day(date).AddDate(0, 0, -s.lookbackDays), date)
	closes := make([]float64, len(window))
	for i, b := range window {
		closes[i] = b.Close
	}

	std := indicators.SampleStd(closes)
	if std == 0 || std != std { // zero or NaN: z-score undefined
		return 0
	}
	z := (current - indicators.Mean(closes)) / std

	switch {
	case z > s.zThreshold:
		return -1
	case z < -s.zThreshold:
		return 1
	default:
		return 0
	}
}
