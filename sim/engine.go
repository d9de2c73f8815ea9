// Package sim runs trading strategy backtests: it replays a daily price
// history through a strategy, executes the resulting signals against a
// capital/position ledger, and assembles the output tables.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stocksim/marketdata"
	"stocksim/strategies"
)

// Request describes one simulation run.
type Request struct {
	Symbol   string
	Start    time.Time
	End      time.Time
	Strategy string
	Config   strategies.Config
}

// Engine executes simulation runs. It holds no per-run state: every Run
// builds a fresh strategy and ledger, so concurrent runs are independent.
type Engine struct {
	provider marketdata.Provider
	log      *slog.Logger
}

// NewEngine creates an Engine fetching price data from provider.
func NewEngine(provider marketdata.Provider, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{provider: provider, log: log}
}

// ledger is the run-scoped capital/position pair. Both quantities are
// mutated once per trading day, in date order, and never go negative.
type ledger struct {
	initialCapital float64
	capital        float64
	position       float64
}

// buy spends min(signal x initial capital, remaining capital) at price and
// returns the cash amount spent, 0 when no capital remains.
func (l *ledger) buy(signal, price float64) float64 {
	if l.capital <= 0 {
		return 0
	}
	cost := signal * l.initialCapital
	if cost > l.capital {
		cost = l.capital
	}
	l.position += cost / price
	l.capital -= cost
	return cost
}

// sell liquidates min(-signal x position, position) at price and returns
// the cash proceeds, 0 when no position is held.
func (l *ledger) sell(signal, price float64) float64 {
	if l.position <= 0 {
		return 0
	}
	qty := -signal * l.position
	if qty > l.position {
		qty = l.position
	}
	proceeds := qty * price
	l.position -= qty
	l.capital += proceeds
	return proceeds
}

// value is the mark-to-market portfolio value at price.
func (l *ledger) value(price float64) float64 {
	return l.capital + l.position*price
}

// Run executes one simulation: it builds the named strategy, lets it
// prepare (and possibly backward-extend) the price series, replays the
// requested trading range day by day, and returns the assembled tables.
//
// Unknown strategy names surface strategies.ErrUnknownStrategy; an empty or
// insufficient price series surfaces marketdata.ErrNoData; strategy
// preparation faults are wrapped with their cause.
func (e *Engine) Run(ctx context.Context, req Request) (*Output, error) {
	strategy, err := strategies.New(req.Strategy, req.Config)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	e.log.Info("simulation starting",
		"symbol", req.Symbol,
		"strategy", req.Strategy,
		"start", req.Start.Format("2006-01-02"),
		"end", req.End.Format("2006-01-02"),
	)

	series, err := strategy.Prepare(ctx, e.provider, req.Symbol, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: empty series for %q", marketdata.ErrNoData, req.Symbol)
	}

	// One unit of initial capital is the close on the first trading date of
	// the requested range.
	first := series.SearchDate(req.Start)
	if first >= series.Len() {
		return nil, fmt.Errorf("%w: no bars at or after %s for %q",
			marketdata.ErrNoData, req.Start.Format("2006-01-02"), req.Symbol)
	}

	book := &ledger{
		initialCapital: series.At(first).Close,
		capital:        series.At(first).Close,
	}

	out := &Output{
		ID:    uuid.New().String(),
		Buys:  []BuyPoint{},
		Sells: []SellPoint{},
	}

	for i := first; i < series.Len(); i++ {
		bar := series.At(i)
		if bar.Date.After(req.End) {
			break
		}

		signal := strategy.Execute(bar.Date)

		var bought, sold float64
		switch {
		case signal >= 1:
			bought = book.buy(signal, bar.Close)
		case signal <= -1:
			sold = book.sell(signal, bar.Close)
		}

		out.Values = append(out.Values, ValuePoint{
			Date:   bar.Date,
			Stock:  round2(bar.Close),
			Signal: signal,
			Value:  round2(book.value(bar.Close)),
		})
		if bought != 0 {
			out.Buys = append(out.Buys, BuyPoint{
				Date:     bar.Date,
				Bought:   round2(bought),
				BuyPrice: round2(bar.Close),
			})
		}
		if sold != 0 {
			out.Sells = append(out.Sells, SellPoint{
				Date:      bar.Date,
				Sells:     round2(sold),
				SellPrice: round2(bar.Close),
			})
		}
	}

	e.log.Info("simulation finished",
		"id", out.ID,
		"days", len(out.Values),
		"buys", len(out.Buys),
		"sells", len(out.Sells),
		"elapsed", time.Since(start),
	)
	return out, nil
}
