package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksim/market"
	"stocksim/marketdata"
	"stocksim/sim"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

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

func doublingBars() []market.Bar {
	closes := []float64{1, 2, 4, 8, 16, 32, 64, 128}
	bars := make([]market.Bar, len(closes))
	d := day("2023-01-01")
	for i, c := range closes {
		bars[i] = market.Bar{Date: d, Close: c}
		d = d.AddDate(0, 0, 1)
	}
	return bars
}

func testServer(bars []market.Bar) *Server {
	engine := sim.NewEngine(stubProvider{bars: bars}, nil)
	return NewServer("127.0.0.1:0", engine, nil, 5*time.Second)
}

func post(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/simulate", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

const momentumBody = `{
	"start_date": "2023-01-03",
	"end_date": "2023-01-08",
	"symbol": "ACME",
	"strategy": "Momentum",
	"strategy_config": {"momentum_period": 2, "momentum_threshold": 1.0}
}`

func TestSimulateSuccess(t *testing.T) {
	rec := post(t, testServer(doublingBars()), momentumBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var out sim.Output
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	assert.NotEmpty(t, out.ID)
	require.Len(t, out.Values, 6)
	require.Len(t, out.Buys, 1)
	assert.Empty(t, out.Sells)
	assert.Equal(t, 4.0, out.Buys[0].Bought)
	assert.Equal(t, 4.0, out.Buys[0].BuyPrice)

	// Wire keys match the published format.
	body := rec.Body.String()
	for _, key := range []string{`"Id"`, `"Values"`, `"Buys"`, `"Sells"`, `"Date"`, `"Stock"`, `"Signal"`, `"Value"`, `"Bought"`, `"BuyPrice"`} {
		assert.Contains(t, body, key)
	}
}

func TestSimulateOutputRoundTrip(t *testing.T) {
	rec := post(t, testServer(doublingBars()), momentumBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var first sim.Output
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	encoded, err := json.Marshal(first)
	require.NoError(t, err)

	var second sim.Output
	require.NoError(t, json.Unmarshal(encoded, &second))
	assert.Equal(t, first, second)
}

func TestSimulateInvalidStrategyName(t *testing.T) {
	body := `{
		"start_date": "2023-01-03",
		"end_date": "2023-01-08",
		"symbol": "ACME",
		"strategy": "DoesNotExist",
		"strategy_config": {}
	}`
	rec := post(t, testServer(doublingBars()), body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "Invalid strategy name"}`, rec.Body.String())
}

func TestSimulateFieldValidation(t *testing.T) {
	rec := post(t, testServer(doublingBars()), `{"start_date": "not-a-date"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errs map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errs))

	assert.Contains(t, errs, "start_date")
	assert.Contains(t, errs, "end_date")
	assert.Contains(t, errs, "symbol")
	assert.Contains(t, errs, "strategy")
}

func TestSimulateMalformedBody(t *testing.T) {
	rec := post(t, testServer(doublingBars()), `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Malformed request body")
}

func TestSimulateRunFailure(t *testing.T) {
	body := `{
		"start_date": "2024-06-01",
		"end_date": "2024-06-30",
		"symbol": "ACME",
		"strategy": "Momentum",
		"strategy_config": {"momentum_period": 2, "momentum_threshold": 1.0}
	}`
	rec := post(t, testServer(doublingBars()), body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "no price data")
}

func TestSimulateMissingStrategyParameter(t *testing.T) {
	body := `{
		"start_date": "2023-01-03",
		"end_date": "2023-01-08",
		"symbol": "ACME",
		"strategy": "Momentum",
		"strategy_config": {}
	}`
	rec := post(t, testServer(doublingBars()), body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "momentum_period")
}

func TestListStrategies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/strategies", nil)
	rec := httptest.NewRecorder()
	testServer(doublingBars()).Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["strategies"], "MeanReversion")
	assert.Contains(t, resp["strategies"], "SupportedVectorRegressionMachineLearning")
}

func TestHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	testServer(nil).Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
