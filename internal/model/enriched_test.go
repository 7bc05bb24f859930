package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeInstrumentWins(t *testing.T) {
	p := OptionPosition{
		ID:           "pos-1",
		URL:          "https://api.robinhood.com/options/positions/pos-1/",
		Option:       "https://api.robinhood.com/options/instruments/ins-1/",
		ChainSymbol:  "XYZ",
		Type:         Short,
		Quantity:     decimal.NewFromInt(-2),
		AveragePrice: decimal.NewFromInt(-250),
	}
	i := OptionInstrument{
		ID:             "ins-1",
		URL:            "https://api.robinhood.com/options/instruments/ins-1/",
		ChainSymbol:    "XYZ",
		Type:           Put,
		StrikePrice:    decimal.RequireFromString("50.0000"),
		ExpirationDate: "2024-03-15",
	}

	e := Merge(p, i)
	assert.Equal(t, "pos-1", e.PositionID)
	assert.Equal(t, "ins-1", e.ID)
	assert.Equal(t, i.URL, e.URL)
	assert.Equal(t, "put", e.Type)
	assert.Equal(t, Short, e.Side)
	assert.Equal(t, -2.0, e.Quantity)
	assert.Equal(t, -250.0, e.AveragePrice)
	assert.Equal(t, "2024-03-15", e.ExpirationDate)
	assert.Equal(t, "pos-1", e.Key())
}

func TestMergeKeepsPositionValuesWhenInstrumentEmpty(t *testing.T) {
	p := OptionPosition{ID: "pos-1", ChainSymbol: "XYZ", Type: Long}
	e := Merge(p, OptionInstrument{})
	assert.Equal(t, "XYZ", e.ChainSymbol)
	assert.Equal(t, "long", e.Type)
	assert.Equal(t, "pos-1", e.ID)
}

func TestComputeAnalytics(t *testing.T) {
	q := Quote{
		Mark:             5,
		LastPrice:        4.9,
		Delta:            0.4,
		Gamma:            0.05,
		Theta:            -0.02,
		Vega:             0.1,
		Volatility:       31.5,
		DaysToExpiration: 12,
		UnderlyingPrice:  48.3,
	}

	a := ComputeAnalytics(-2, 2.5, q)
	assert.InDelta(t, -80, float64(a.PosDelta), 1e-9)
	assert.InDelta(t, -500, float64(a.GainLoss), 1e-9)
	assert.InDelta(t, -500, float64(a.CostBasis), 1e-9)
	assert.InDelta(t, -980, float64(a.NetLiq), 1e-9)
	assert.InDelta(t, -10, float64(a.PosGamma), 1e-9)
	assert.InDelta(t, 4, float64(a.PosTheta), 1e-9)
	assert.InDelta(t, -20, float64(a.PosVega), 1e-9)
	assert.Equal(t, Number(5), a.Price)
	assert.Equal(t, Number(31.5), a.ImpVol)
	assert.Equal(t, Number(12), a.DaysToExpiration)
	assert.Equal(t, Number(48.3), a.UnderlyingPrice)
}

func TestComputeAnalyticsMissingQuote(t *testing.T) {
	a := ComputeAnalytics(-2, 2.5, MissingQuote("XYZ_031524P50"))
	assert.True(t, a.Price.IsNaN())
	assert.True(t, a.PosDelta.IsNaN())
	assert.True(t, a.GainLoss.IsNaN())
	assert.True(t, a.NetLiq.IsNaN())
	assert.True(t, a.DaysToExpiration.IsNaN())
	assert.InDelta(t, -500, float64(a.CostBasis), 1e-9)
}

func TestQuotesLookup(t *testing.T) {
	quotes := Quotes{"XYZ_031524P50": {Symbol: "XYZ_031524P50", Mark: 5}}

	q, ok := quotes.Lookup("XYZ_031524P50")
	assert.True(t, ok)
	assert.Equal(t, 5.0, q.Mark)

	q, ok = quotes.Lookup("XYZ_031524C50")
	assert.False(t, ok)
	assert.True(t, math.IsNaN(q.Mark))
}

func TestNumberJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}{A: Number(-80), B: Number(math.NaN())})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":-80,"b":null}`, string(b))

	var n Number
	require.NoError(t, json.Unmarshal([]byte("null"), &n))
	assert.True(t, n.IsNaN())
	require.NoError(t, json.Unmarshal([]byte("2.5"), &n))
	assert.Equal(t, Number(2.5), n)
}

func TestWithQuoteSymbol(t *testing.T) {
	e := EnrichedPosition{
		ChainSymbol:    "XYZ",
		Type:           "put",
		StrikePrice:    decimal.NewFromInt(50),
		ExpirationDate: "2024-03-15",
		AveragePrice:   -250,
		Quantity:       -2,
	}

	keyed := e.WithQuoteSymbol()
	assert.Equal(t, "XYZ_031524P50", keyed.TDAPI)
	assert.Equal(t, "P", keyed.Type)
	assert.Equal(t, 2.5, keyed.AveragePrice)
	assert.Equal(t, -2.0, keyed.Quantity)

	assert.Equal(t, "put", e.Type)
	assert.Empty(t, e.TDAPI)
}
