package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSnapshot is a point-in-time view of the brokerage account.
// It is fetched fresh for every decision and never cached across ticks.
type AccountSnapshot struct {
	BuyingPower decimal.Decimal `json:"buying_power"`
	TotalEquity decimal.Decimal `json:"total_equity"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// LiquidityRatio returns buying power divided by total equity, or zero when equity is not positive.
func (a AccountSnapshot) LiquidityRatio() decimal.Decimal {
	if !a.TotalEquity.IsPositive() {
		return decimal.Zero
	}
	return a.BuyingPower.DivRound(a.TotalEquity, 8)
}

// Holding is a position owned by the account as reported by the backend.
type Holding struct {
	InstrumentID string          `json:"instrument_id"`
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Quote is the latest top of book for a symbol.
type Quote struct {
	Symbol   string          `json:"symbol"`
	AskPrice decimal.Decimal `json:"ask_price"`
	BidPrice decimal.Decimal `json:"bid_price"`
}
