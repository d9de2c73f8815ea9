// Package market defines the daily OHLC bar and the date-indexed Series that
// strategies and the simulation engine operate on.
package market

import (
	"fmt"
	"sort"
	"time"
)

// Bar represents one trading day of OHLC data.
type Bar struct {
	Date   time.Time // UTC midnight
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is an ordered, date-indexed sequence of daily bars. Dates are
// strictly increasing with one bar per trading day; the series is not
// mutated after construction.
type Series struct {
	bars []Bar
}

// Day truncates t to UTC midnight. All series dates and lookup arguments are
// normalized through it.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewSeries builds a Series from bars, normalizing dates to UTC midnight.
// It fails if the dates are not strictly increasing.
func NewSeries(bars []Bar) (*Series, error) {
	out := make([]Bar, len(bars))
	for i, b := range bars {
		b.Date = Day(b.Date)
		if i > 0 && !b.Date.After(out[i-1].Date) {
			return nil, fmt.Errorf("bar %d (%s) not after previous (%s)",
				i, b.Date.Format("2006-01-02"), out[i-1].Date.Format("2006-01-02"))
		}
		out[i] = b
	}
	return &Series{bars: out}, nil
}

// Len returns the number of bars.
func (s *Series) Len() int {
	return len(s.bars)
}

// At returns the bar at index i.
func (s *Series) At(i int) Bar {
	return s.bars[i]
}

// Bars returns the underlying bars. Callers must not modify the slice.
func (s *Series) Bars() []Bar {
	return s.bars
}

// Index returns the position of the bar on the given date, and whether such
// a bar exists.
func (s *Series) Index(date time.Time) (int, bool) {
	d := Day(date)
	i := s.SearchDate(d)
	if i < len(s.bars) && s.bars[i].Date.Equal(d) {
		return i, true
	}
	return 0, false
}

// SearchDate returns the index of the first bar on or after date, or Len()
// if every bar is earlier.
func (s *Series) SearchDate(date time.Time) int {
	d := Day(date)
	return sort.Search(len(s.bars), func(i int) bool {
		return !s.bars[i].Date.Before(d)
	})
}

// SliceRange returns the bars with from <= Date <= to. Both endpoints are
// inclusive, matching label-based date slicing: a trailing window of N
// calendar days ending at d is SliceRange(d.AddDate(0,0,-N), d).
func (s *Series) SliceRange(from, to time.Time) []Bar {
	lo := s.SearchDate(from)
	hi := s.SearchDate(Day(to).AddDate(0, 0, 1))
	if lo >= hi {
		return nil
	}
	return s.bars[lo:hi]
}

// Closes returns the close prices of every bar, in date order.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Close
	}
	return out
}

// Dates returns the date of every bar, in order.
func (s *Series) Dates() []time.Time {
	out := make([]time.Time, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Date
	}
	return out
}

// Close returns the close price on the given date, and whether the date is
// present in the series.
func (s *Series) Close(date time.Time) (float64, bool) {
	i, ok := s.Index(date)
	if !ok {
		return 0, false
	}
	return s.bars[i].Close, true
}
