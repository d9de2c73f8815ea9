// Package marketdata supplies historical daily OHLC price series, either
// from the Yahoo Finance chart API, from local CSV exports, or through a
// read-through sqlite cache in front of another provider.
package marketdata

import (
	"context"
	"errors"
	"time"

	"stocksim/market"
)

// ErrNoData is returned when a provider has no bars for the requested
// symbol and range.
var ErrNoData = errors.New("no price data available")

// Provider supplies daily price history for a symbol. Implementations must
// return bars inclusive of start, covering through end, in date order, and
// must be safe for concurrent use.
type Provider interface {
	DailyHistory(ctx context.Context, symbol string, start, end time.Time) (*market.Series, error)
}
