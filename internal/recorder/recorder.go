// Package recorder keeps an append-only journal of rotations, trade decisions,
// executions and account snapshots. The journal is an audit trail only and is
// never read back to restore controller state.
package recorder

import "github.com/shopspring/decimal"

// RotationEvent records the selector moving to the next instrument.
type RotationEvent struct {
	FromIndex  int
	FromSymbol string
	ToIndex    int
	ToSymbol   string
}

// DecisionEvent records one consultation of the rotation policy.
type DecisionEvent struct {
	Symbol             string
	Kind               string // "PROCEED", "EVICT_THEN_PROCEED" or "BLOCKED"
	VictimSymbol       string
	VictimInstrumentID string
	Reason             string
	BuyingPower        decimal.Decimal
	TotalEquity        decimal.Decimal
}

// ExecutionEvent records a buy or sell attempt and its outcome.
type ExecutionEvent struct {
	Side             string
	Symbol           string
	Outcome          string // "submitted", "skipped" or "rejected"
	OrderID          string
	ClientOrderID    string
	Quantity         decimal.Decimal
	FilledPrice      decimal.Decimal
	Status           string
	Reason           string
	BuyingPowerAfter decimal.Decimal
}

// AccountEvent records a periodic account snapshot.
type AccountEvent struct {
	BuyingPower decimal.Decimal
	TotalEquity decimal.Decimal
	Holdings    int
}

// Recorder persists the trade journal.
type Recorder interface {
	RecordRotation(evt *RotationEvent) error
	RecordDecision(evt *DecisionEvent) error
	RecordExecution(evt *ExecutionEvent) error
	RecordAccount(evt *AccountEvent) error
	Close() error
}
