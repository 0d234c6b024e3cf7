// Package portfolio decides whether a holding must be sold before a purchase.
package portfolio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"PresenceTrader/internal/model"
)

var (
	// ErrInvalidCapacity is returned for a capacity below one position.
	ErrInvalidCapacity = errors.New("portfolio capacity must be at least 1")
	// ErrInvalidEquity is returned when the account reports non-positive equity or negative buying power.
	ErrInvalidEquity = errors.New("account snapshot out of range")
)

// DecisionKind enumerates the policy outcomes.
type DecisionKind int

const (
	ProceedDirectly DecisionKind = iota
	EvictThenProceed
	Blocked
)

func (k DecisionKind) String() string {
	switch k {
	case ProceedDirectly:
		return "PROCEED"
	case EvictThenProceed:
		return "EVICT_THEN_PROCEED"
	case Blocked:
		return "BLOCKED"
	default:
		return fmt.Sprintf("DecisionKind(%d)", int(k))
	}
}

// ReasonNoHoldings is the Blocked reason when liquidity is short and nothing can be sold.
const ReasonNoHoldings = "no holdings to evict"

// Decision is the outcome of Policy.Decide. Victim is set only for EvictThenProceed.
type Decision struct {
	Kind   DecisionKind
	Victim *model.Holding
	Reason string
}

// Policy keeps roughly Capacity equally sized positions by freeing cash from
// the least recently touched holding whenever liquidity drops below one slot.
type Policy struct {
	Capacity int
}

// NewPolicy validates capacity.
func NewPolicy(capacity int) (*Policy, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Policy{Capacity: capacity}, nil
}

// Decide compares the liquidity ratio against 1/Capacity and, when it falls
// short, picks the holding with the oldest update timestamp (lowest
// instrument id on ties). Zero-quantity holdings cannot free cash and are ignored.
func (p *Policy) Decide(acct model.AccountSnapshot, holdings []model.Holding) (Decision, error) {
	if p.Capacity < 1 {
		return Decision{}, fmt.Errorf("%w: %d", ErrInvalidCapacity, p.Capacity)
	}
	if !acct.TotalEquity.IsPositive() || acct.BuyingPower.IsNegative() {
		return Decision{}, fmt.Errorf("%w: buying power %s, equity %s", ErrInvalidEquity, acct.BuyingPower, acct.TotalEquity)
	}

	// buyingPower/equity >= 1/capacity, kept exact by cross-multiplying.
	if acct.BuyingPower.Mul(decimal.NewFromInt(int64(p.Capacity))).GreaterThanOrEqual(acct.TotalEquity) {
		return Decision{Kind: ProceedDirectly}, nil
	}

	victim, ok := LeastRecentlyTouched(holdings)
	if !ok {
		return Decision{Kind: Blocked, Reason: ReasonNoHoldings}, nil
	}
	return Decision{Kind: EvictThenProceed, Victim: &victim}, nil
}

// LeastRecentlyTouched returns the sellable holding with the oldest update time.
func LeastRecentlyTouched(holdings []model.Holding) (model.Holding, bool) {
	candidates := make([]model.Holding, 0, len(holdings))
	for _, h := range holdings {
		if h.Quantity.IsPositive() {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) == 0 {
		return model.Holding{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return a.InstrumentID < b.InstrumentID
	})
	return candidates[0], true
}
