package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksim/market"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// chartPayload builds a minimal v8 chart response for consecutive weekdays
// starting at startDate with the given closes.
func chartPayload(startDate time.Time, closes []float64) string {
	ts := ""
	cs := ""
	d := startDate
	for i, c := range closes {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		if i > 0 {
			ts += ","
			cs += ","
		}
		ts += fmt.Sprintf("%d", d.Unix())
		cs += fmt.Sprintf("%g", c)
		d = d.AddDate(0, 0, 1)
	}
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],
		"indicators":{"quote":[{"open":[%s],"high":[%s],"low":[%s],"close":[%s],"volume":[%s]}]}}],
		"error":null}}`, ts, cs, cs, cs, cs, cs)
}

func TestYahooDailyHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/ACME")
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		fmt.Fprint(w, chartPayload(day("2023-01-02"), []float64{100, 101, 102}))
	}))
	defer srv.Close()

	client := NewYahooClient(srv.URL, 600)
	series, err := client.DailyHistory(context.Background(), "ACME", day("2023-01-02"), day("2023-01-04"))
	require.NoError(t, err)

	require.Equal(t, 3, series.Len())
	assert.Equal(t, day("2023-01-02"), series.At(0).Date)
	assert.Equal(t, 102.0, series.At(2).Close)
}

func TestYahooDailyHistorySymbolNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewYahooClient(srv.URL, 600)
	_, err := client.DailyHistory(context.Background(), "NOPE", day("2023-01-02"), day("2023-01-04"))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestYahooDailyHistorySkipsNullBars(t *testing.T) {
	payload := fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%d,%d],
		"indicators":{"quote":[{"open":[1,null],"high":[1,null],"low":[1,null],"close":[1,null],"volume":[1,null]}]}}],
		"error":null}}`, day("2023-01-02").Unix(), day("2023-01-03").Unix())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	client := NewYahooClient(srv.URL, 600)
	series, err := client.DailyHistory(context.Background(), "ACME", day("2023-01-02"), day("2023-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 1, series.Len())
}

// countingProvider counts upstream fetches for cache tests.
type countingProvider struct {
	calls int
	bars  []market.Bar
}

func (p *countingProvider) DailyHistory(_ context.Context, _ string, start, end time.Time) (*market.Series, error) {
	p.calls++
	s, err := market.NewSeries(p.bars)
	if err != nil {
		return nil, err
	}
	window := s.SliceRange(start, end)
	if len(window) == 0 {
		return nil, ErrNoData
	}
	return market.NewSeries(window)
}

func weekdayBars(start string, closes []float64) []market.Bar {
	bars := make([]market.Bar, 0, len(closes))
	d := day(start)
	for _, c := range closes {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		bars = append(bars, market.Bar{Date: d, Open: c, High: c, Low: c, Close: c, Volume: 1000})
		d = d.AddDate(0, 0, 1)
	}
	return bars
}

func TestCacheReadThrough(t *testing.T) {
	upstream := &countingProvider{bars: weekdayBars("2023-01-02", []float64{100, 101, 102, 103, 104})}

	cache, err := NewCache(filepath.Join(t.TempDir(), "bars.sqlite"), upstream)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	first, err := cache.DailyHistory(ctx, "ACME", day("2023-01-02"), day("2023-01-06"))
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls)

	// Identical range is served from disk.
	second, err := cache.DailyHistory(ctx, "ACME", day("2023-01-02"), day("2023-01-06"))
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls, "second request must not hit upstream")
	assert.Equal(t, first.Closes(), second.Closes())
	assert.Equal(t, first.Dates(), second.Dates())

	// Sub-range of a covered span is also served from disk.
	sub, err := cache.DailyHistory(ctx, "ACME", day("2023-01-03"), day("2023-01-05"))
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls)
	assert.Equal(t, 3, sub.Len())

	// A wider range misses and goes upstream.
	_, err = cache.DailyHistory(ctx, "ACME", day("2023-01-01"), day("2023-01-06"))
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}

func TestCacheSeparatesSymbols(t *testing.T) {
	upstream := &countingProvider{bars: weekdayBars("2023-01-02", []float64{100, 101})}

	cache, err := NewCache(filepath.Join(t.TempDir(), "bars.sqlite"), upstream)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	_, err = cache.DailyHistory(ctx, "AAA", day("2023-01-02"), day("2023-01-03"))
	require.NoError(t, err)

	// Different symbol over the same range is a miss.
	_, err = cache.DailyHistory(ctx, "BBB", day("2023-01-02"), day("2023-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}

const testCSV = `Date,Open,High,Low,Close,Volume
2023-01-02,99,101,98,100,5000
2023-01-03,100,102,99,101,6000
2023-01-04,101,103,100,102,7000
`

func TestFileProviderCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o644))

	p := NewFileProvider(path)
	series, err := p.DailyHistory(context.Background(), "ACME", day("2023-01-02"), day("2023-01-03"))
	require.NoError(t, err)

	require.Equal(t, 2, series.Len())
	assert.Equal(t, 100.0, series.At(0).Close)
	assert.Equal(t, 6000.0, series.At(1).Volume)
}

func TestFileProviderRangeMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o644))

	p := NewFileProvider(path)
	_, err := p.DailyHistory(context.Background(), "ACME", day("2024-01-01"), day("2024-02-01"))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestFileProviderBadRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Open,High,Low,Close\n2023-01-02,1,2\n"), 0o644))

	p := NewFileProvider(path)
	_, err := p.DailyHistory(context.Background(), "X", day("2023-01-01"), day("2023-12-31"))
	assert.Error(t, err)
}
