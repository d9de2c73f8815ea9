// Package strategies implements the trading signal generators the
// simulation engine drives: statistical (mean reversion, momentum),
// averaging-crossover (simple and exponential), and regression-based
// (least squares and support vector) variants.
//
// A Strategy is built fresh for every simulation run, prepares its own
// price series (extending the requested start backward to cover lookback
// or training windows), and then answers Execute for each trading date.
package strategies

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"stocksim/market"
	"stocksim/marketdata"
)

var (
	// ErrUnknownStrategy is returned for a name outside the registry.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrDegenerateStatistics is returned when a strategy cannot form a
	// usable statistic from the prepared data, e.g. an empty training split.
	ErrDegenerateStatistics = errors.New("degenerate statistics")
)

// Strategy converts a prepared price history into a per-date trading
// signal. Instances are single-run and not safe for concurrent use.
type Strategy interface {
	// Name returns the registry name of the strategy.
	Name() string

	// Prepare fetches the price history for the run, extending start
	// backward as far as the strategy's warm-up needs, and retains it. The
	// returned series covers the extended start through end.
	Prepare(ctx context.Context, provider marketdata.Provider, symbol string, start, end time.Time) (*market.Series, error)

	// Execute returns the signal for date: magnitude encodes direction and
	// intensity, and 0 means no trade. Dates absent from the prepared
	// series yield 0.
	Execute(date time.Time) float64
}

// Config carries the caller-supplied strategy parameters. Values come from
// a decoded JSON object, so numbers are float64 and feature lists are
// []any of {"value": name} objects. Unrecognized keys are ignored.
type Config map[string]any

// IntDays returns the named parameter as a whole number of days.
func (c Config) IntDays(key string) (int, error) {
	v, ok := c[key]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("parameter %q must be a whole number of days, got %v", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("parameter %q must be a number, got %T", key, v)
	}
}

// Float returns the named parameter as a float64.
func (c Config) Float(key string) (float64, error) {
	v, ok := c[key]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", key)
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("parameter %q must be a number, got %T", key, v)
	}
}

// FeatureNames returns the named parameter as the list of feature names in
// a [{"value": name}, ...] sequence.
func (c Config) FeatureNames(key string) ([]string, error) {
	v, ok := c[key]
	if !ok {
		return nil, fmt.Errorf("missing parameter %q", key)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("parameter %q must be a list of feature objects, got %T", key, v)
	}
	names := make([]string, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parameter %q item %d must be an object, got %T", key, i, item)
		}
		name, ok := obj["value"].(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q item %d is missing a string \"value\"", key, i)
		}
		names = append(names, name)
	}
	return names, nil
}

// Factory builds a configured Strategy instance.
type Factory func(cfg Config) (Strategy, error)

var registry = map[string]Factory{
	"MeanReversion":                            NewMeanReversion,
	"SimpleMovingAverageCrossover":             NewSimpleMovingAverageCrossover,
	"ExponentialMovingAverageCrossover":        NewExponentialMovingAverageCrossover,
	"Momentum":                                 NewMomentum,
	"LinearRegressionMachineLearning":          NewLinearRegressionML,
	"SupportedVectorRegressionMachineLearning": NewSupportVectorRegressionML,
}

// New builds the named strategy from cfg. An unregistered name yields
// ErrUnknownStrategy.
func New(name string, cfg Config) (Strategy, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return factory(cfg)
}

// Known reports whether name is a registered strategy.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns the registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fetch pulls the daily series for [start, end] so each variant's Prepare
// reports provider failures the same way.
func fetch(ctx context.Context, provider marketdata.Provider, symbol string, start, end time.Time) (*market.Series, error) {
	series, err := provider.DailyHistory(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", symbol, err)
	}
	return series, nil
}
