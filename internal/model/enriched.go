package model

import (
	"github.com/shopspring/decimal"
)

// ContractMultiplier is the number of shares one option contract covers.
const ContractMultiplier = 100

type Analytics struct {
	Price            Number `json:"price" db:"price"`
	Delta            Number `json:"delta" db:"delta"`
	Gamma            Number `json:"gamma" db:"gamma"`
	Theta            Number `json:"theta" db:"theta"`
	Vega             Number `json:"vega" db:"vega"`
	ImpVol           Number `json:"impVol" db:"imp_vol"`
	PosDelta         Number `json:"posDelta" db:"pos_delta"`
	PosGamma         Number `json:"posGamma" db:"pos_gamma"`
	PosTheta         Number `json:"posTheta" db:"pos_theta"`
	PosVega          Number `json:"posVega" db:"pos_vega"`
	NetLiq           Number `json:"netliq" db:"netliq"`
	GainLoss         Number `json:"gainloss" db:"gainloss"`
	CostBasis        Number `json:"costbasis" db:"costbasis"`
	DaysToExpiration Number `json:"daystoexpiration" db:"days_to_expiration"`
	UnderlyingPrice  Number `json:"underlyingprice" db:"underlying_price"`
}

// EnrichedPosition is a position merged with its instrument, keyed for the
// quote provider and carrying analytics once a quote arrived.
type EnrichedPosition struct {
	PositionID     string          `json:"position_id" db:"position_id"`
	ID             string          `json:"id" db:"id"`
	URL            string          `json:"url" db:"url"`
	Account        string          `json:"account" db:"account"`
	Option         string          `json:"option" db:"option"`
	ChainID        string          `json:"chain_id" db:"chain_id"`
	ChainSymbol    string          `json:"chain_symbol" db:"chain_symbol"`
	Side           Side            `json:"side" db:"side"`
	Type           string          `json:"type" db:"type"`
	Quantity       float64         `json:"quantity" db:"quantity"`
	AveragePrice   float64         `json:"average_price" db:"average_price"`
	StrikePrice    decimal.Decimal `json:"strike_price" db:"strike_price"`
	ExpirationDate string          `json:"expiration_date" db:"expiration_date"`
	State          string          `json:"state" db:"state"`
	Tradability    string          `json:"tradability" db:"tradability"`
	CreatedAt      string          `json:"created_at" db:"created_at"`
	UpdatedAt      string          `json:"updated_at" db:"updated_at"`

	TDAPI string `json:"TDAPI" db:"tdapi"`

	Analytics
}

// Merge overlays the instrument on the position. Instrument values win on
// every field both carry, type included: the position's type is its side and
// is kept in Side.
func Merge(p OptionPosition, i OptionInstrument) EnrichedPosition {
	e := EnrichedPosition{
		PositionID:   p.ID,
		ID:           p.ID,
		URL:          p.URL,
		Account:      p.Account,
		Option:       p.Option,
		ChainID:      p.ChainID,
		ChainSymbol:  p.ChainSymbol,
		Side:         p.Type,
		Type:         string(p.Type),
		Quantity:     p.Quantity.InexactFloat64(),
		AveragePrice: p.AveragePrice.InexactFloat64(),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}

	e.ID = overlay(e.ID, i.ID)
	e.URL = overlay(e.URL, i.URL)
	e.ChainID = overlay(e.ChainID, i.ChainID)
	e.ChainSymbol = overlay(e.ChainSymbol, i.ChainSymbol)
	e.Type = overlay(e.Type, string(i.Type))
	e.CreatedAt = overlay(e.CreatedAt, i.CreatedAt)
	e.UpdatedAt = overlay(e.UpdatedAt, i.UpdatedAt)
	e.StrikePrice = i.StrikePrice
	e.ExpirationDate = i.ExpirationDate
	e.State = i.State
	e.Tradability = i.Tradability

	return e
}

func overlay(base, v string) string {
	if v != "" {
		return v
	}
	return base
}

// Key identifies the record in the store: the position id, falling back to
// the quote symbol for records built without one.
func (e EnrichedPosition) Key() string {
	if e.PositionID != "" {
		return e.PositionID
	}
	return e.TDAPI
}

// ComputeAnalytics applies the quote to a signed quantity and per-share
// average price. A NaN quote propagates into every quote-derived field.
func ComputeAnalytics(quantity, averagePrice float64, q Quote) Analytics {
	return Analytics{
		CostBasis:        Number(ContractMultiplier * quantity * averagePrice),
		Price:            Number(q.Mark),
		Delta:            Number(q.Delta),
		Gamma:            Number(q.Gamma),
		Vega:             Number(q.Vega),
		Theta:            Number(q.Theta),
		ImpVol:           Number(q.Volatility),
		PosDelta:         Number(q.Delta * quantity * ContractMultiplier),
		PosGamma:         Number(q.Gamma * quantity * ContractMultiplier),
		PosTheta:         Number(q.Theta * quantity * ContractMultiplier),
		PosVega:          Number(q.Vega * quantity * ContractMultiplier),
		NetLiq:           Number(q.LastPrice * quantity * ContractMultiplier),
		GainLoss:         Number((q.Mark - averagePrice) * ContractMultiplier * quantity),
		DaysToExpiration: Number(q.DaysToExpiration),
		UnderlyingPrice:  Number(q.UnderlyingPrice),
	}
}

// WithQuoteSymbol prepares a merged position for the quote provider: the
// option type collapses to C/P, TDAPI is derived and the average price is
// rescaled to per share.
func (e EnrichedPosition) WithQuoteSymbol() EnrichedPosition {
	e.Type = OptionTypeCode(OptionType(e.Type))
	e.TDAPI = QuoteSymbol(e.ChainSymbol, e.ExpirationDate, e.Type, e.StrikePrice)
	e.AveragePrice = NormalizeAveragePrice(e.AveragePrice)
	return e
}
