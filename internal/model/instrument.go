package model

import "github.com/shopspring/decimal"

// Instrument is a tradable security from the catalog. Values are never mutated after load.
type Instrument struct {
	Symbol        string
	Description   string
	Sector        string
	Country       string
	MarketCap     decimal.Decimal
	DividendYield decimal.Decimal
}
