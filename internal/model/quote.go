package model

import (
	"math"

	"github.com/bytedance/sonic"
)

// Quote is a single TD Ameritrade option quote. Only the fields used for
// analytics are decoded.
type Quote struct {
	Symbol           string  `json:"symbol"`
	AssetType        string  `json:"assetType"`
	Mark             float64 `json:"mark"`
	Bid              float64 `json:"bidPrice"`
	Ask              float64 `json:"askPrice"`
	LastPrice        float64 `json:"lastPrice"`
	Delta            float64 `json:"delta"`
	Gamma            float64 `json:"gamma"`
	Theta            float64 `json:"theta"`
	Vega             float64 `json:"vega"`
	Volatility       float64 `json:"volatility"`
	DaysToExpiration float64 `json:"daysToExpiration"`
	UnderlyingPrice  float64 `json:"underlyingPrice"`
}

// Quotes is the provider response keyed by quote symbol.
type Quotes map[string]Quote

// MissingQuote stands in for a symbol the provider didn't return.
func MissingQuote(symbol string) Quote {
	nan := math.NaN()
	return Quote{
		Symbol:           symbol,
		Mark:             nan,
		Bid:              nan,
		Ask:              nan,
		LastPrice:        nan,
		Delta:            nan,
		Gamma:            nan,
		Theta:            nan,
		Vega:             nan,
		Volatility:       nan,
		DaysToExpiration: nan,
		UnderlyingPrice:  nan,
	}
}

// Lookup returns the quote for symbol and whether the provider had it.
func (q Quotes) Lookup(symbol string) (Quote, bool) {
	v, ok := q[symbol]
	if !ok {
		return MissingQuote(symbol), false
	}
	return v, true
}

// quoteJSON is the wire form of Quote. Number fields turn null into NaN on
// decode and NaN into null on encode.
type quoteJSON struct {
	Symbol           string `json:"symbol"`
	AssetType        string `json:"assetType"`
	Mark             Number `json:"mark"`
	Bid              Number `json:"bidPrice"`
	Ask              Number `json:"askPrice"`
	LastPrice        Number `json:"lastPrice"`
	Delta            Number `json:"delta"`
	Gamma            Number `json:"gamma"`
	Theta            Number `json:"theta"`
	Vega             Number `json:"vega"`
	Volatility       Number `json:"volatility"`
	DaysToExpiration Number `json:"daysToExpiration"`
	UnderlyingPrice  Number `json:"underlyingPrice"`
}

// UnmarshalJSON leaves every field the provider left out as NaN.
func (q *Quote) UnmarshalJSON(b []byte) error {
	v := toQuoteJSON(MissingQuote(""))
	if err := sonic.Unmarshal(b, &v); err != nil {
		return err
	}

	*q = Quote{
		Symbol:           v.Symbol,
		AssetType:        v.AssetType,
		Mark:             float64(v.Mark),
		Bid:              float64(v.Bid),
		Ask:              float64(v.Ask),
		LastPrice:        float64(v.LastPrice),
		Delta:            float64(v.Delta),
		Gamma:            float64(v.Gamma),
		Theta:            float64(v.Theta),
		Vega:             float64(v.Vega),
		Volatility:       float64(v.Volatility),
		DaysToExpiration: float64(v.DaysToExpiration),
		UnderlyingPrice:  float64(v.UnderlyingPrice),
	}
	return nil
}

func (q Quote) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(toQuoteJSON(q))
}

func toQuoteJSON(q Quote) quoteJSON {
	return quoteJSON{
		Symbol:           q.Symbol,
		AssetType:        q.AssetType,
		Mark:             Number(q.Mark),
		Bid:              Number(q.Bid),
		Ask:              Number(q.Ask),
		LastPrice:        Number(q.LastPrice),
		Delta:            Number(q.Delta),
		Gamma:            Number(q.Gamma),
		Theta:            Number(q.Theta),
		Vega:             Number(q.Vega),
		Volatility:       Number(q.Volatility),
		DaysToExpiration: Number(q.DaysToExpiration),
		UnderlyingPrice:  Number(q.UnderlyingPrice),
	}
}
