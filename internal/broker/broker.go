// Package broker talks to the brokerage backend.
package broker

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"PresenceTrader/internal/model"
)

var (
	// ErrTransient covers timeouts, 5xx responses, throttling and an open circuit.
	ErrTransient = errors.New("transient broker error")
	// ErrAuth covers rejected credentials. Callers treat it like ErrTransient.
	ErrAuth = errors.New("broker authentication failed")
	// ErrRejected is returned when the backend refuses an order.
	ErrRejected = errors.New("order rejected")
	// ErrNoQuote is returned when no price is available for a symbol.
	ErrNoQuote = errors.New("no quote available")
)

// Broker is the brokerage backend. All calls are blocking remote calls.
type Broker interface {
	Account(ctx context.Context) (model.AccountSnapshot, error)
	Quote(ctx context.Context, symbol string) (model.Quote, error)
	Holdings(ctx context.Context) ([]model.Holding, error)
	SubmitMarketOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error)
}

// Recoverable reports whether err should abort only the current tick.
func Recoverable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrAuth)
}

// NewMarketOrder builds a good-for-day market order with a fresh client order id.
func NewMarketOrder(side model.Side, symbol string, qty decimal.Decimal) model.OrderRequest {
	return model.OrderRequest{
		ClientOrderID: uuid.NewString(),
		Side:          side,
		Symbol:        symbol,
		Quantity:      qty,
		TimeInForce:   model.TimeInForceGFD,
	}
}

type freshQuoteKey struct{}

// WithFreshQuote marks ctx so that caching quote sources fetch a live price.
func WithFreshQuote(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshQuoteKey{}, true)
}

// FreshQuoteRequested reports whether ctx was marked by WithFreshQuote.
func FreshQuoteRequested(ctx context.Context) bool {
	fresh, _ := ctx.Value(freshQuoteKey{}).(bool)
	return fresh
}
