package robinhood

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/STTM-NSU/options-tracker/internal/config"
	"github.com/STTM-NSU/options-tracker/internal/logger"
	"github.com/STTM-NSU/options-tracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRobinhood struct {
	logins      atomic.Int32
	instruments atomic.Int32
	rejectToken atomic.Bool
	mfa         bool
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// serve starts the fake API and returns its base url.
func (f *fakeRobinhood) serve(t *testing.T) string {
	mux := http.NewServeMux()
	var baseURL string

	mux.HandleFunc("POST /oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		f.logins.Add(1)
		var req tokenRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if f.mfa {
			writeJSON(w, http.StatusBadRequest, map[string]any{"mfa_required": true, "mfa_type": "sms"})
			return
		}
		if req.Username != "user" || req.Password != "secret" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Unable to log in with provided credentials."})
			return
		}
		assert.Equal(t, "password", req.GrantType)
		assert.NotEmpty(t, req.DeviceToken)
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "token-1", "expires_in": 86400, "token_type": "Bearer"})
	})

	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if f.rejectToken.Load() || r.Header.Get("Authorization") != "Bearer token-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid token."})
			return false
		}
		return true
	}

	mux.HandleFunc("GET /accounts/", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"next": nil,
			"results": []map[string]any{
				{"account_number": "5QR12345", "type": "margin", "buying_power": "1250.5000", "cash": "1000.0000"},
			},
		})
	})

	mux.HandleFunc("GET /options/orders/", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"next": nil,
			"results": []map[string]any{
				{"id": "ord-1", "chain_symbol": "XYZ", "direction": "credit", "state": "filled", "premium": "250.00000000",
					"legs": []map[string]any{{"option": "https://api.robinhood.com/options/instruments/ins-1/", "side": "sell", "position_effect": "open", "ratio_quantity": 1}}},
			},
		})
	})

	mux.HandleFunc("GET /options/positions/", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if r.URL.Query().Get("cursor") == "" {
			next := baseURL + "/options/positions/?cursor=page2"
			writeJSON(w, http.StatusOK, map[string]any{
				"next": next,
				"results": []map[string]any{
					{"id": "pos-1", "option": baseURL + "/options/instruments/ins-1/", "chain_symbol": "XYZ", "type": "short", "quantity": "2.0000", "average_price": "-250.0000"},
				},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"next": nil,
			"results": []map[string]any{
				{"id": "pos-2", "option": baseURL + "/options/instruments/ins-2/", "chain_symbol": "XYZ", "type": "long", "quantity": "0.0000", "average_price": "120.0000"},
			},
		})
	})

	mux.HandleFunc("GET /options/instruments/{id}/", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		f.instruments.Add(1)
		if r.PathValue("id") != "ins-1" {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "ins-1", "url": baseURL + "/options/instruments/ins-1/", "chain_symbol": "XYZ", "type": "put",
			"strike_price": "50.0000", "expiration_date": "2024-03-15", "state": "active", "tradability": "tradable",
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	baseURL = srv.URL

	return srv.URL
}

func newTestClient(t *testing.T, f *fakeRobinhood, creds config.Credentials) *Client {
	t.Helper()
	cfg := config.BrokerConfig{Address: f.serve(t), RequestsPerMinute: 6000}
	require.NoError(t, cfg.Setup())

	c := NewClient(cfg, creds, logger.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

var _testCreds = config.Credentials{Username: "user", Password: "secret"}

func TestLoginReusesToken(t *testing.T) {
	f := &fakeRobinhood{}
	c := newTestClient(t, f, _testCreds)
	ctx := context.Background()

	s1, err := c.Login(ctx)
	require.NoError(t, err)
	s2, err := c.Login(ctx)
	require.NoError(t, err)

	assert.Equal(t, "token-1", s1.token)
	assert.Equal(t, s1.token, s2.token)
	assert.Equal(t, int32(1), f.logins.Load())
}

func TestLoginBadCredentials(t *testing.T) {
	f := &fakeRobinhood{}
	c := newTestClient(t, f, config.Credentials{Username: "user", Password: "wrong"})

	_, err := c.Login(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoginMFARequired(t *testing.T) {
	f := &fakeRobinhood{mfa: true}
	c := newTestClient(t, f, _testCreds)

	_, err := c.Login(context.Background())
	assert.ErrorIs(t, err, ErrMFARequired)
}

func TestAccountsAndOrders(t *testing.T) {
	c := newTestClient(t, &fakeRobinhood{}, _testCreds)
	ctx := context.Background()

	s, err := c.Login(ctx)
	require.NoError(t, err)

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "5QR12345", accounts[0].AccountNumber)
	assert.Equal(t, "1250.5", accounts[0].BuyingPower.String())

	orders, err := s.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ord-1", orders[0].ID)
	require.Len(t, orders[0].Legs, 1)
	assert.Equal(t, "sell", orders[0].Legs[0].Side)
}

func TestOptionsPositionsFollowsNext(t *testing.T) {
	c := newTestClient(t, &fakeRobinhood{}, _testCreds)
	ctx := context.Background()

	s, err := c.Login(ctx)
	require.NoError(t, err)

	positions, err := s.OptionsPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "pos-1", positions[0].ID)
	assert.Equal(t, model.Short, positions[0].Type)
	assert.Equal(t, "2", positions[0].Quantity.String())
	assert.Equal(t, "-250", positions[0].AveragePrice.String())
	assert.Equal(t, "pos-2", positions[1].ID)
	assert.True(t, positions[1].Quantity.IsZero())
}

func TestOptionsInstrumentCached(t *testing.T) {
	f := &fakeRobinhood{}
	c := newTestClient(t, f, _testCreds)
	ctx := context.Background()

	s, err := c.Login(ctx)
	require.NoError(t, err)
	positions, err := s.OptionsPositions(ctx)
	require.NoError(t, err)

	i1, err := s.OptionsInstrument(ctx, positions[0].Option)
	require.NoError(t, err)
	i2, err := s.OptionsInstrument(ctx, positions[0].Option)
	require.NoError(t, err)

	assert.Equal(t, i1, i2)
	assert.Equal(t, model.Put, i1.Type)
	assert.Equal(t, "2024-03-15", i1.ExpirationDate)
	assert.Equal(t, "50", i1.StrikePrice.String())
	assert.Equal(t, int32(1), f.instruments.Load())

	_, err = s.OptionsInstrument(ctx, positions[1].Option)
	assert.Error(t, err)

	_, err = s.OptionsInstrument(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyInstrumentURL)
}

func TestUnauthorizedInvalidatesToken(t *testing.T) {
	f := &fakeRobinhood{}
	c := newTestClient(t, f, _testCreds)
	ctx := context.Background()

	s, err := c.Login(ctx)
	require.NoError(t, err)

	f.rejectToken.Store(true)
	_, err = s.Accounts(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	f.rejectToken.Store(false)
	_, err = c.Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.logins.Load())
}
