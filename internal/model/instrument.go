package model

import (
	"github.com/shopspring/decimal"
)

type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// OptionInstrument is the options/instruments/{id}/ resource a position points to.
type OptionInstrument struct {
	ID             string          `json:"id"`
	URL            string          `json:"url"`
	ChainID        string          `json:"chain_id"`
	ChainSymbol    string          `json:"chain_symbol"`
	Type           OptionType      `json:"type"`
	StrikePrice    decimal.Decimal `json:"strike_price"`
	ExpirationDate string          `json:"expiration_date"`
	IssueDate      string          `json:"issue_date"`
	State          string          `json:"state"`
	Tradability    string          `json:"tradability"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}
