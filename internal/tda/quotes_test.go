package tda

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/STTM-NSU/options-tracker/internal/config"
	"github.com/STTM-NSU/options-tracker/internal/logger"
	"github.com/STTM-NSU/options-tracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, h http.HandlerFunc) *QuoteService {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.QuotesConfig{Address: srv.URL, APIKey: "key", RequestsPerMinute: 6000}
	require.NoError(t, cfg.Setup())

	s := NewQuoteService(cfg, logger.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetQuote(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, _quotesURL, r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		symbol := r.URL.Query().Get("symbol")
		if symbol != "XYZ_031524P50" {
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			symbol: map[string]any{
				"assetType": "OPTION", "symbol": symbol, "bidPrice": 4.9, "askPrice": 5.1, "lastPrice": 4.95,
				"mark": 5.0, "delta": -0.4, "gamma": 0.05, "theta": -0.02, "vega": 0.1, "volatility": 31.5,
				"daysToExpiration": 12, "underlyingPrice": 48.3,
			},
		})
	})
	ctx := context.Background()

	quotes, err := s.GetQuote(ctx, "XYZ_031524P50")
	require.NoError(t, err)
	q, ok := quotes.Lookup("XYZ_031524P50")
	require.True(t, ok)
	assert.Equal(t, 5.0, q.Mark)
	assert.Equal(t, 4.9, q.Bid)
	assert.Equal(t, -0.4, q.Delta)
	assert.Equal(t, 12.0, q.DaysToExpiration)
	assert.Equal(t, 48.3, q.UnderlyingPrice)

	quotes, err = s.GetQuote(ctx, "XYZ_031524C50")
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestGetQuotePartialFields(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		writeJSON(w, http.StatusOK, map[string]any{
			symbol: map[string]any{"symbol": symbol, "mark": 5.0},
		})
	})

	quotes, err := s.GetQuote(context.Background(), "XYZ_031524P50")
	require.NoError(t, err)
	q, ok := quotes.Lookup("XYZ_031524P50")
	require.True(t, ok)
	assert.Equal(t, 5.0, q.Mark)
	assert.True(t, math.IsNaN(q.Delta))
	assert.True(t, math.IsNaN(q.LastPrice))

	a := model.ComputeAnalytics(-2, 2.5, q)
	assert.True(t, a.PosDelta.IsNaN())
	assert.True(t, a.NetLiq.IsNaN())
}

func TestGetQuoteErrors(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid ApiKey"})
	})
	ctx := context.Background()

	_, err := s.GetQuote(ctx, "XYZ_031524P50")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid ApiKey")

	_, err = s.GetQuote(ctx, "")
	assert.ErrorIs(t, err, ErrEmptySymbol)
}
