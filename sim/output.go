package sim

import (
	"math"
	"time"
)

// ValuePoint is one row of the Values table: the stock close, the raw
// strategy signal, and the portfolio value on a trading date.
type ValuePoint struct {
	Date   time.Time `json:"Date"`
	Stock  float64   `json:"Stock"`
	Signal float64   `json:"Signal"`
	Value  float64   `json:"Value"`
}

// BuyPoint is one row of the Buys table: the cash amount spent and the
// strike price on a date a buy executed.
type BuyPoint struct {
	Date     time.Time `json:"Date"`
	Bought   float64   `json:"Bought"`
	BuyPrice float64   `json:"BuyPrice"`
}

// SellPoint is one row of the Sells table: the cash proceeds and the strike
// price on a date a sell executed.
type SellPoint struct {
	Date      time.Time `json:"Date"`
	Sells     float64   `json:"Sells"`
	SellPrice float64   `json:"SellPrice"`
}

// Output is the complete result of one simulation run: a run identifier and
// three date-keyed tables. It is assembled once at the end of the run and
// not mutated afterwards.
type Output struct {
	ID     string       `json:"Id"`
	Values []ValuePoint `json:"Values"`
	Buys   []BuyPoint   `json:"Buys"`
	Sells  []SellPoint  `json:"Sells"`
}

// round2 rounds to two decimal places for display values.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
