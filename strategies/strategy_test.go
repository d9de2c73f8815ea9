package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksim/market"
	"stocksim/marketdata"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// stubProvider serves a fixed bar history, sliced to the requested range
// like a real provider.
type stubProvider struct {
	bars []market.Bar
}

func (p stubProvider) DailyHistory(_ context.Context, _ string, start, end time.Time) (*market.Series, error) {
	s, err := market.NewSeries(p.bars)
	if err != nil {
		return nil, err
	}
	window := s.SliceRange(start, end)
	if len(window) == 0 {
		return nil, marketdata.ErrNoData
	}
	return market.NewSeries(window)
}

// dailyCloses builds consecutive calendar-day bars starting at start.
func dailyCloses(start string, closes []float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	d := day(start)
	for i, c := range closes {
		bars[i] = market.Bar{Date: d, Close: c}
		d = d.AddDate(0, 0, 1)
	}
	return bars
}

func prepare(t *testing.T, s Strategy, bars []market.Bar, start, end string) {
	t.Helper()
	_, err := s.Prepare(context.Background(), stubProvider{bars: bars}, "TEST", day(start), day(end))
	require.NoError(t, err)
}

func TestNewUnknownStrategy(t *testing.T) {
	_, err := New("DoesNotExist", Config{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{
		"ExponentialMovingAverageCrossover",
		"LinearRegressionMachineLearning",
		"MeanReversion",
		"Momentum",
		"SimpleMovingAverageCrossover",
		"SupportedVectorRegressionMachineLearning",
	}, names)
	for _, n := range names {
		assert.True(t, Known(n))
	}
	assert.False(t, Known("Martingale"))
}

func TestConfigGetters(t *testing.T) {
	cfg := Config{
		"lookback_period": float64(20), // JSON numbers decode as float64
		"z_threshold":     1.5,
		"features":        []any{map[string]any{"value": "RSI"}},
	}

	days, err := cfg.IntDays("lookback_period")
	require.NoError(t, err)
	assert.Equal(t, 20, days)

	f, err := cfg.Float("z_threshold")
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	names, err := cfg.FeatureNames("features")
	require.NoError(t, err)
	assert.Equal(t, []string{"RSI"}, names)

	_, err = cfg.IntDays("missing")
	assert.Error(t, err)
	_, err = cfg.IntDays("z_threshold") // 1.5 is not whole days
	assert.Error(t, err)
}

func TestMeanReversionConstantSeriesIsFlat(t *testing.T) {
	s, err := New("MeanReversion", Config{"lookback_period": 5.0, "z_threshold": 2.0})
	require.NoError(t, err)

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	bars := dailyCloses("2023-01-01", closes)
	prepare(t, s, bars, "2023-01-10", "2023-01-30")

	// Zero standard deviation every day: the z-score is undefined and the
	// fallback is no signal.
	for _, b := range bars[9:] {
		assert.Equal(t, 0.0, s.Execute(b.Date), b.Date.Format("2006-01-02"))
	}
}

func TestMeanReversionSignalsAgainstExtremes(t *testing.T) {
	s, err := New("MeanReversion", Config{"lookback_period": 10.0, "z_threshold": 2.0})
	require.NoError(t, err)

	closes := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 110}
	bars := dailyCloses("2023-01-01", closes)
	spike := bars[10].Date
	prepare(t, s, bars, "2023-01-11", "2023-01-11")

	// Price far above the window mean: overextended, sell.
	assert.Equal(t, -1.0, s.Execute(spike))

	// Mirror the spike downward: oversold, buy.
	closes[10] = 90
	s2, err := New("MeanReversion", Config{"lookback_period": 10.0, "z_threshold": 2.0})
	require.NoError(t, err)
	prepare(t, s2, dailyCloses("2023-01-01", closes), "2023-01-11", "2023-01-11")
	assert.Equal(t, 1.0, s2.Execute(spike))
}

func TestMeanReversionAbsentDate(t *testing.T) {
	s, err := New("MeanReversion", Config{"lookback_period": 5.0, "z_threshold": 2.0})
	require.NoError(t, err)
	prepare(t, s, dailyCloses("2023-01-01", []float64{1, 2, 3, 4, 5, 6, 7, 8}), "2023-01-05", "2023-01-08")

	assert.Equal(t, 0.0, s.Execute(day("2023-03-01")))
}

func TestSMACrossoverDirection(t *testing.T) {
	rising := make([]float64, 30)
	falling := make([]float64, 30)
	for i := range rising {
		rising[i] = 100 + float64(i)
		falling[i] = 100 - float64(i)
	}

	s, err := New("SimpleMovingAverageCrossover", Config{
		"longterm_avg_period": 10.0, "shortterm_avg_period": 3.0,
	})
	require.NoError(t, err)
	prepare(t, s, dailyCloses("2023-01-01", rising), "2023-01-15", "2023-01-30")
	// Rising prices: short mean above long mean => sell.
	assert.Equal(t, -1.0, s.Execute(day("2023-01-20")))

	s2, err := New("SimpleMovingAverageCrossover", Config{
		"longterm_avg_period": 10.0, "shortterm_avg_period": 3.0,
	})
	require.NoError(t, err)
	prepare(t, s2, dailyCloses("2023-01-01", falling), "2023-01-15", "2023-01-30")
	// Falling prices: long mean above short mean => buy.
	assert.Equal(t, 1.0, s2.Execute(day("2023-01-20")))
}

func TestEMACrossoverDirection(t *testing.T) {
	rising := make([]float64, 40)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}

	s, err := New("ExponentialMovingAverageCrossover", Config{
		"longterm_avg_period":    20.0,
		"shortterm_avg_period":   5.0,
		"exponential_decay_span": 10.0,
	})
	require.NoError(t, err)
	prepare(t, s, dailyCloses("2023-01-01", rising), "2023-01-25", "2023-02-09")

	// The short-span EMA tracks a rising series faster, so it sits above
	// the long-span EMA and the signal is sell.
	assert.Equal(t, -1.0, s.Execute(day("2023-02-01")))
	assert.Equal(t, 0.0, s.Execute(day("2023-06-01")))
}

func TestMomentumDoublingSeriesBuys(t *testing.T) {
	closes := []float64{1, 2, 4, 8, 16, 32, 64, 128}
	s, err := New("Momentum", Config{"momentum_period": 2.0, "momentum_threshold": 1.0})
	require.NoError(t, err)
	prepare(t, s, dailyCloses("2023-01-01", closes), "2023-01-03", "2023-01-08")

	for _, d := range []string{"2023-01-04", "2023-01-06", "2023-01-08"} {
		assert.Equal(t, 1.0, s.Execute(day(d)), d)
	}
}

func TestMomentumFlatSeriesSells(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 100}
	s, err := New("Momentum", Config{"momentum_period": 2.0, "momentum_threshold": 1.0})
	require.NoError(t, err)
	prepare(t, s, dailyCloses("2023-01-01", closes), "2023-01-03", "2023-01-06")

	// A flat series has zero change, and -0 < 1 satisfies the sell branch.
	assert.Equal(t, -1.0, s.Execute(day("2023-01-05")))
}

func TestMomentumShortWindowIsFlat(t *testing.T) {
	// One bar inside the trailing window: no previous element to compare.
	bars := []market.Bar{
		{Date: day("2023-01-01"), Close: 100},
		{Date: day("2023-01-10"), Close: 200},
	}
	s, err := New("Momentum", Config{"momentum_period": 2.0, "momentum_threshold": 1.0})
	require.NoError(t, err)

	_, err = s.Prepare(context.Background(), stubProvider{bars: bars}, "TEST", day("2023-01-09"), day("2023-01-10"))
	require.NoError(t, err)

	assert.Equal(t, 0.0, s.Execute(day("2023-01-10")))
}
