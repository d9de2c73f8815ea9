package strategies

import (
	"context"
	"time"

	"stocksim/indicators"
	"stocksim/market"
	"stocksim/marketdata"
)

// ExponentialMovingAverageCrossover compares full-series exponential moving
// averages with long and short spans, precomputed once during Prepare. Like
// the simple crossover, +1 means the long EMA is above the short EMA.
type ExponentialMovingAverageCrossover struct {
	longSpan  int
	shortSpan int
	decaySpan float64 // accepted but unused

	series   *market.Series
	longEMA  []float64
	shortEMA []float64
}

// NewExponentialMovingAverageCrossover builds the strategy from
// longterm_avg_period and shortterm_avg_period (days).
// exponential_decay_span is accepted for compatibility and ignored.
func NewExponentialMovingAverageCrossover(cfg Config) (Strategy, error) {
	long, err := cfg.IntDays("longterm_avg_period")
	if err != nil {
		return nil, err
	}
	short, err := cfg.IntDays("shortterm_avg_period")
	if err != nil {
		return nil, err
	}
	s := &ExponentialMovingAverageCrossover{longSpan: long, shortSpan: short}
	if decay, err := cfg.Float("exponential_decay_span"); err == nil {
		s.decaySpan = decay
	}
	return s, nil
}

func (s *ExponentialMovingAverageCrossover) Name() string {
	return "ExponentialMovingAverageCrossover"
}

// Prepare fetches history starting longterm_avg_period days before start
// and precomputes both EMAs over the whole extended series.
func (s *ExponentialMovingAverageCrossover) Prepare(ctx context.Context, provider marketdata.Provider, symbol string, start, end time.Time) (*market.Series, error) {
	series, err := fetch(ctx, provider, symbol, start.AddDate(0, 0, -s.longSpan), end)
	if err != nil {
		return nil, err
	}
	s.series = series

	closes := series.Closes()
	s.longEMA = indicators.EMA(closes, s.longSpan)
	s.shortEMA = indicators.EMA(closes, s.shortSpan)
	return series, nil
}

// Execute compares the precomputed EMAs at date.
func (s *ExponentialMovingAverageCrossover) Execute(date time.Time) float64 {
	i, ok := s.series.Index(date)
	if !ok {
		return 0
	}
	if s.longEMA[i] > s.shortEMA[i] {
		return 1
	}
	return -1
}
