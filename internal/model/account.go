package model

import (
	"github.com/shopspring/decimal"
)

// Page is the envelope Robinhood wraps every list endpoint in.
type Page[T any] struct {
	Previous *string `json:"previous"`
	Next     *string `json:"next"`
	Results  []T     `json:"results"`
}

type MarginBalances struct {
	Cash                       decimal.Decimal `json:"cash"`
	CashAvailableForWithdrawal decimal.Decimal `json:"cash_available_for_withdrawal"`
	UnsettledFunds             decimal.Decimal `json:"unsettled_funds"`
	DayTradeBuyingPower        decimal.Decimal `json:"day_trade_buying_power"`
	OvernightBuyingPower       decimal.Decimal `json:"overnight_buying_power"`
}

type Account struct {
	URL            string          `json:"url" db:"url"`
	AccountNumber  string          `json:"account_number" db:"account_number"`
	Type           string          `json:"type" db:"type"`
	Cash           decimal.Decimal `json:"cash" db:"cash"`
	BuyingPower    decimal.Decimal `json:"buying_power" db:"buying_power"`
	PortfolioCash  decimal.Decimal `json:"portfolio_cash" db:"portfolio_cash"`
	UnsettledFunds decimal.Decimal `json:"unsettled_funds" db:"unsettled_funds"`
	OptionLevel    string          `json:"option_level" db:"option_level"`
	Deactivated    bool            `json:"deactivated" db:"deactivated"`
	MarginBalances *MarginBalances `json:"margin_balances,omitempty" db:"-"`
	CreatedAt      string          `json:"created_at" db:"created_at"`
	UpdatedAt      string          `json:"updated_at" db:"updated_at"`
}

type OrderLeg struct {
	Option         string `json:"option"`
	Side           string `json:"side"`
	PositionEffect string `json:"position_effect"`
	RatioQuantity  int    `json:"ratio_quantity"`
}

type Order struct {
	ID                string          `json:"id"`
	ChainSymbol       string          `json:"chain_symbol"`
	Direction         string          `json:"direction"`
	Type              string          `json:"type"`
	State             string          `json:"state"`
	Price             decimal.Decimal `json:"price"`
	Premium           decimal.Decimal `json:"premium"`
	Quantity          decimal.Decimal `json:"quantity"`
	ProcessedQuantity decimal.Decimal `json:"processed_quantity"`
	OpeningStrategy   *string         `json:"opening_strategy"`
	ClosingStrategy   *string         `json:"closing_strategy"`
	Legs              []OrderLeg      `json:"legs"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}
