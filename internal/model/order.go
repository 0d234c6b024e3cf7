package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TimeInForce controls how long a submitted order stays working.
type TimeInForce string

// TimeInForceGFD keeps the order alive for the current trading day only.
const TimeInForceGFD TimeInForce = "gfd"

// OrderRequest is a market order submitted to the brokerage backend.
type OrderRequest struct {
	ClientOrderID string          `json:"client_order_id"`
	Side          Side            `json:"side"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	TimeInForce   TimeInForce     `json:"time_in_force"`
}

// OrderStatus is the backend's view of an order after submission.
type OrderStatus string

const (
	OrderAccepted OrderStatus = "accepted"
	OrderFilled   OrderStatus = "filled"
	OrderRejected OrderStatus = "rejected"
)

// OrderResult is the acknowledgement returned for a submitted order.
type OrderResult struct {
	OrderID        string          `json:"id"`
	ClientOrderID  string          `json:"client_order_id"`
	Side           Side            `json:"side"`
	Symbol         string          `json:"symbol"`
	Quantity       decimal.Decimal `json:"quantity"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	FilledPrice    decimal.Decimal `json:"filled_avg_price"`
	Status         OrderStatus     `json:"status"`
	Reason         string          `json:"reason,omitempty"`
	SubmittedAt    time.Time       `json:"submitted_at"`
}
