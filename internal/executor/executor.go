// Package executor submits buy and sell market orders after checking solvency
// and ownership against fresh account state.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"PresenceTrader/internal/broker"
	"PresenceTrader/internal/model"
)

var log = logrus.WithField("component", "executor")

const (
	DefaultPrecision = 5
	MaxPrecision     = 9
)

var (
	// ErrNegativeQuantity signals a pricing fault: a computed or requested quantity below zero.
	ErrNegativeQuantity = errors.New("negative order quantity")
	// ErrInvalidPrecision is returned for a precision outside [0, MaxPrecision].
	ErrInvalidPrecision = errors.New("quantity precision out of range")
)

// Outcome classifies an Execution.
type Outcome int

const (
	Submitted Outcome = iota
	Skipped
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Submitted:
		return "submitted"
	case Skipped:
		return "skipped"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Skip reasons.
const (
	ReasonInsufficientFunds = "insufficient funds"
	ReasonSolvencyRecheck   = "cost exceeds buying power on recheck"
	ReasonNotOwned          = "instrument not owned"
	ReasonZeroQuantity      = "zero quantity"
)

// Execution is the result of a buy or sell attempt. Account is the snapshot
// fetched after submission and is zero when the order was skipped or the
// refresh failed.
type Execution struct {
	Outcome Outcome
	Side    model.Side
	Symbol  string
	Order   model.OrderResult
	Account model.AccountSnapshot
	Reason  string
}

// Executor wraps a broker with solvency and ownership checks. It keeps no
// account or quote state between calls.
type Executor struct {
	broker    broker.Broker
	precision int32
}

// New creates an executor truncating buy quantities to precision decimal places.
func New(b broker.Broker, precision int) (*Executor, error) {
	if precision < 0 || precision > MaxPrecision {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPrecision, precision)
	}
	return &Executor{broker: b, precision: int32(precision)}, nil
}

// Precision returns the number of decimal places kept in buy quantities.
func (e *Executor) Precision() int { return int(e.precision) }

// Affordable returns buyingPower / ask truncated (never rounded up) to precision places.
func Affordable(buyingPower, ask decimal.Decimal, precision int32) decimal.Decimal {
	if !ask.IsPositive() {
		return decimal.Zero
	}
	q, _ := buyingPower.QuoRem(ask, precision)
	return q
}

// BuyWithAvailableFunds spends the whole buying power on inst at market.
//
// The quantity is sized from one account read and re-verified against a second,
// fresh account read and quote right before submission. Insufficient funds on
// either read skip the order without error.
func (e *Executor) BuyWithAvailableFunds(ctx context.Context, inst model.Instrument) (Execution, error) {
	exec := Execution{Side: model.SideBuy, Symbol: inst.Symbol}

	acct, err := e.broker.Account(ctx)
	if err != nil {
		return exec, fmt.Errorf("buy %s: account: %w", inst.Symbol, err)
	}
	quote, err := e.broker.Quote(ctx, inst.Symbol)
	if err != nil {
		return exec, fmt.Errorf("buy %s: quote: %w", inst.Symbol, err)
	}

	qty := Affordable(acct.BuyingPower, quote.AskPrice, e.precision)
	if qty.IsNegative() {
		log.Errorf("buy %s: buying power %s at ask %s gives quantity %s", inst.Symbol, acct.BuyingPower, quote.AskPrice, qty)
		return exec, fmt.Errorf("%w: buy %s quantity %s", ErrNegativeQuantity, inst.Symbol, qty)
	}
	if qty.IsZero() {
		log.Warnf("buy %s skipped: buying power %s below ask %s", inst.Symbol, acct.BuyingPower, quote.AskPrice)
		return skip(exec, ReasonInsufficientFunds), nil
	}

	fresh, err := e.broker.Account(ctx)
	if err != nil {
		return exec, fmt.Errorf("buy %s: recheck account: %w", inst.Symbol, err)
	}
	freshQuote, err := e.broker.Quote(broker.WithFreshQuote(ctx), inst.Symbol)
	if err != nil {
		return exec, fmt.Errorf("buy %s: recheck quote: %w", inst.Symbol, err)
	}
	cost := freshQuote.AskPrice.Mul(qty)
	if cost.GreaterThan(fresh.BuyingPower) {
		log.Warnf("buy %s skipped: %s x %s = %s exceeds buying power %s", inst.Symbol, qty, freshQuote.AskPrice, cost, fresh.BuyingPower)
		return skip(exec, ReasonSolvencyRecheck), nil
	}

	return e.submit(ctx, exec, qty)
}

// SellQuantity sells qty of the holding identified by target.InstrumentID,
// capped at the quantity currently held. A holding the account no longer owns
// is skipped without error.
func (e *Executor) SellQuantity(ctx context.Context, target model.Holding, qty decimal.Decimal) (Execution, error) {
	exec := Execution{Side: model.SideSell, Symbol: target.Symbol}

	if qty.IsNegative() {
		log.Errorf("sell %s: negative quantity %s", target.Symbol, qty)
		return exec, fmt.Errorf("%w: sell %s quantity %s", ErrNegativeQuantity, target.Symbol, qty)
	}
	if qty.IsZero() {
		log.Warnf("sell %s skipped: zero quantity", target.Symbol)
		return skip(exec, ReasonZeroQuantity), nil
	}

	holdings, err := e.broker.Holdings(ctx)
	if err != nil {
		return exec, fmt.Errorf("sell %s: holdings: %w", target.Symbol, err)
	}
	held, ok := findHolding(holdings, target.InstrumentID)
	if !ok {
		log.Warnf("sell %s skipped: instrument %s not in holdings", target.Symbol, target.InstrumentID)
		return skip(exec, ReasonNotOwned), nil
	}
	if held.Symbol != "" {
		exec.Symbol = held.Symbol
	}
	if !held.Quantity.IsPositive() {
		log.Warnf("sell %s skipped: position is empty", exec.Symbol)
		return skip(exec, ReasonNotOwned), nil
	}
	if qty.GreaterThan(held.Quantity) {
		log.Warnf("sell %s: requested %s exceeds held %s, selling held", exec.Symbol, qty, held.Quantity)
		qty = held.Quantity
	}

	return e.submit(ctx, exec, qty)
}

func (e *Executor) submit(ctx context.Context, exec Execution, qty decimal.Decimal) (Execution, error) {
	req := broker.NewMarketOrder(exec.Side, exec.Symbol, qty)
	res, err := e.broker.SubmitMarketOrder(ctx, req)
	exec.Order = res
	switch {
	case errors.Is(err, broker.ErrRejected):
		exec.Outcome = Rejected
		exec.Reason = res.Reason
		log.Warnf("%s %s %s rejected: %v", exec.Side, qty, exec.Symbol, err)
		exec.Account = e.refresh(ctx)
		return exec, fmt.Errorf("%s %s: %w", exec.Side, exec.Symbol, err)
	case err != nil:
		return exec, fmt.Errorf("%s %s: submit: %w", exec.Side, exec.Symbol, err)
	}

	exec.Outcome = Submitted
	log.Infof("%s %s %s submitted, order %s status %s", exec.Side, qty, exec.Symbol, res.OrderID, res.Status)
	exec.Account = e.refresh(ctx)
	return exec, nil
}

// refresh reads the account after a submission. Errors are logged and
// swallowed; the order itself has already been placed.
func (e *Executor) refresh(ctx context.Context) model.AccountSnapshot {
	acct, err := e.broker.Account(ctx)
	if err != nil {
		log.Warnf("account refresh after order: %v", err)
		return model.AccountSnapshot{}
	}
	return acct
}

func skip(exec Execution, reason string) Execution {
	exec.Outcome = Skipped
	exec.Reason = reason
	return exec
}

func findHolding(holdings []model.Holding, instrumentID string) (model.Holding, bool) {
	for _, h := range holdings {
		if h.InstrumentID == instrumentID {
			return h, true
		}
	}
	return model.Holding{}, false
}
