package strategies

import (
	"context"
	"time"

	"stocksim/indicators"
	"stocksim/market"
	"stocksim/marketdata"
)

// SimpleMovingAverageCrossover compares the mean close over a long trailing
// window against a short one.
//
// Note the direction: the signal is +1 (buy) when the long-term mean is
// above the short-term mean, the opposite of the classic golden-cross rule.
type SimpleMovingAverageCrossover struct {
	longDays  int
	shortDays int

	series *market.Series
}

// NewSimpleMovingAverageCrossover builds the strategy from
// longterm_avg_period and shortterm_avg_period (days).
func NewSimpleMovingAverageCrossover(cfg Config) (Strategy, error) {
	long, err := cfg.IntDays("longterm_avg_period")
	if err != nil {
		return nil, err
	}
	short, err := cfg.IntDays("shortterm_avg_period")
	if err != nil {
		return nil, err
	}
	return &SimpleMovingAverageCrossover{longDays: long, shortDays: short}, nil
}

func (s *SimpleMovingAverageCrossover) Name() string { return "SimpleMovingAverageCrossover" }

// Prepare fetches history starting longterm_avg_period days before start.
func (s *SimpleMovingAverageCrossover) Prepare(ctx context.Context, provider marketdata.Provider, symbol string, start, end time.Time) (*market.Series, error) {
	series, err := fetch(ctx, provider, symbol, start.AddDate(0, 0, -s.longDays), end)
	if err != nil {
		return nil, err
	}
	s.series = series
	return series, nil
}

// Execute compares the two trailing calendar-day window means ending at
// date.
func (s *SimpleMovingAverageCrossover) Execute(date time.Time) float64 {
	if _, ok := s.series.Index(date); !ok {
		return 0
	}

	d := market.Day(date)
	longMean := windowMean(s.series, d, s.longDays)
	shortMean := windowMean(s.series, d, s.shortDays)

	if longMean > shortMean {
		return 1
	}
	return -1
}

func windowMean(series *market.Series, date time.Time, days int) float64 {
	window := series.SliceRange(date.AddDate(0, 0, -days), date)
	closes := make([]float64, len(window))
	for i, b := range window {
		closes[i] = b.Close
	}
	return indicators.Mean(closes)
}
