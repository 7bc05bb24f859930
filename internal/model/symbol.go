package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// OptionTypeCode collapses call/put to the single letter used in quote
// symbols. Anything else is returned as is.
func OptionTypeCode(t OptionType) string {
	switch t {
	case Call:
		return "C"
	case Put:
		return "P"
	default:
		return string(t)
	}
}

// QuoteSymbol builds the TD Ameritrade option symbol, e.g. XYZ_031524P50 for
// the 2024-03-15 50 put. The date is read at fixed offsets of YYYY-MM-DD.
func QuoteSymbol(chainSymbol, expirationDate, typeCode string, strike decimal.Decimal) string {
	year := substr(expirationDate, 2, 2)
	month := substr(expirationDate, 5, 2)
	day := substr(expirationDate, 8, 2)

	return chainSymbol + "_" + month + day + year + typeCode + strike.String()
}

// NormalizeAveragePrice turns Robinhood's signed per-contract average price
// into a per-share price.
func NormalizeAveragePrice(p float64) float64 {
	return math.Abs(p / 100)
}

func substr(s string, start, length int) string {
	if start >= len(s) {
		return ""
	}
	end := start + length
	if end > len(s) {
		end = len(s)
	}
	return s[start:end]
}
