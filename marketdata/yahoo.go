package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"stocksim/market"
)

// DefaultYahooBaseURL is the public Yahoo Finance chart API endpoint.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo rejects requests without a browser-ish user agent.
const yahooUserAgent = "Mozilla/5.0 (compatible; stocksim/1.0)"

// YahooClient fetches daily OHLC history from the Yahoo Finance v8 chart
// API. Requests are rate limited to stay under Yahoo's unauthenticated
// quota.
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewYahooClient creates a client against baseURL (the production endpoint
// when empty) allowing perMinute requests per minute.
func NewYahooClient(baseURL string, perMinute int) *YahooClient {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if perMinute <= 0 {
		perMinute = 60
	}
	return &YahooClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
	}
}

// chartResponse mirrors the subset of the v8 chart payload we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyHistory fetches 1d-interval bars for symbol covering [start, end].
func (c *YahooClient) DailyHistory(ctx context.Context, symbol string, start, end time.Time) (*market.Series, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// period2 is exclusive in the chart API; push it past end-of-day so the
	// final trading day is included.
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", fmt.Sprintf("%d", market.Day(start).Unix()))
	params.Set("period2", fmt.Sprintf("%d", market.Day(end).AddDate(0, 0, 1).Unix()))

	apiURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: symbol %q not found", ErrNoData, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chart API status %d: %s", resp.StatusCode, string(body))
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("decode chart response: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error %s: %s",
			chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: empty result for %q", ErrNoData, symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]market.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Null quote entries mark halted or not-yet-settled days.
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bar := market.Bar{
			Date:  market.Day(time.Unix(ts, 0)),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			bar.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			bar.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			bar.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %q in range", ErrNoData, symbol)
	}

	series, err := market.NewSeries(bars)
	if err != nil {
		return nil, fmt.Errorf("chart response out of order: %w", err)
	}
	return series, nil
}
