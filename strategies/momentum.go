package strategies

import (
	"context"
	"time"

	"stocksim/market"
	"stocksim/marketdata"
)

// Momentum signals on the percentage move between the latest close and the
// second element of the trailing window.
//
// The sell branch tests -change < threshold, which is not the mirror image
// of the buy branch's change > threshold: with a positive threshold both
// can hold at once (a flat move still sells), and with a negative one a
// move can satisfy neither. The comparison is kept exactly as defined.
type Momentum struct {
	periodDays int
	threshold  float64

	series *market.Series
}

// NewMomentum builds a Momentum from momentum_period (days) and
// momentum_threshold (percent).
func NewMomentum(cfg Config) (Strategy, error) {
	period, err := cfg.IntDays("momentum_period")
	if err != nil {
		return nil, err
	}
	threshold, err := cfg.Float("momentum_threshold")
	if err != nil {
		return nil, err
	}
	return &Momentum{periodDays: period, threshold: threshold}, nil
}

func (s *Momentum) Name() string { return "Momentum" }

// Prepare fetches history starting momentum_period days before start.
func (s *Momentum) Prepare(ctx context.Context, provider marketdata.Provider, symbol string, start, end time.Time) (*market.Series, error) {
	series, err := fetch(ctx, provider, symbol, start.AddDate(0, 0, -s.periodDays), end)
	if err != nil {
		return nil, err
	}
	s.series = series
	return series, nil
}

// Execute measures the percentage change from the second bar of the
// trailing window to the latest close. Windows of fewer than two bars
// cannot define a change and yield no signal.
func (s *Momentum) Execute(date time.Time) float64 {
	if _, ok := s.series.Index(date); !ok {
		return 0
	}

	d := market.Day(date)
	window := s.series.SliceRange(d.AddDate(0, 0, -s.periodDays), d)
	if len(window) < 2 {
		return 0
	}

	current := window[len(window)-1].Close
	previous := window[1].Close
	change := 100 * (current - previous) / previous

	if change > s.threshold {
		return 1
	}
	if -change < s.threshold {
		return -1
	}
	return 0
}
