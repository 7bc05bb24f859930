package model

import (
	"github.com/shopspring/decimal"
)

type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// OptionPosition is one leg as returned by options/positions. Type carries the side.
type OptionPosition struct {
	ID                   string          `json:"id"`
	URL                  string          `json:"url"`
	Account              string          `json:"account"`
	Option               string          `json:"option"`
	ChainID              string          `json:"chain_id"`
	ChainSymbol          string          `json:"chain_symbol"`
	Type                 Side            `json:"type"`
	Quantity             decimal.Decimal `json:"quantity"`
	AveragePrice         decimal.Decimal `json:"average_price"`
	IntradayQuantity     decimal.Decimal `json:"intraday_quantity"`
	PendingBuyQuantity   decimal.Decimal `json:"pending_buy_quantity"`
	PendingSellQuantity  decimal.Decimal `json:"pending_sell_quantity"`
	TradeValueMultiplier decimal.Decimal `json:"trade_value_multiplier"`
	CreatedAt            string          `json:"created_at"`
	UpdatedAt            string          `json:"updated_at"`
}

var (
	_shortMultiplier = decimal.NewFromFloat(-1.0)
	_longMultiplier  = decimal.NewFromFloat(1.0)
)

// Normalize makes quantity negative for short legs. Robinhood reports short
// quantities as positive numbers.
func (p *OptionPosition) Normalize() {
	if p.Type == Short {
		p.Quantity = p.Quantity.Mul(_shortMultiplier)
	} else {
		p.Quantity = p.Quantity.Mul(_longMultiplier)
	}
}

// FilterOpen drops closed and expired legs, which keep coming back with zero quantity.
func FilterOpen(positions []OptionPosition) []OptionPosition {
	open := make([]OptionPosition, 0, len(positions))
	for _, p := range positions {
		if p.Quantity.IsZero() {
			continue
		}
		open = append(open, p)
	}
	return open
}
