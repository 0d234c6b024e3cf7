package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PresenceTrader/internal/model"
)

func acct(bp, eq int64) model.AccountSnapshot {
	return model.AccountSnapshot{BuyingPower: decimal.NewFromInt(bp), TotalEquity: decimal.NewFromInt(eq)}
}

func holding(id, sym string, qty string, at time.Time) model.Holding {
	return model.Holding{InstrumentID: id, Symbol: sym, Quantity: decimal.RequireFromString(qty), UpdatedAt: at}
}

var t0 = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func TestDecide_EvictsOldestHolding(t *testing.T) {
	p, err := NewPolicy(10)
	require.NoError(t, err)

	holdings := []model.Holding{
		holding("id-2", "MSFT", "1.5", t0.Add(time.Hour)),
		holding("id-1", "AAPL", "2", t0),
	}
	d, err := p.Decide(acct(5, 100), holdings)
	require.NoError(t, err)
	assert.Equal(t, EvictThenProceed, d.Kind)
	require.NotNil(t, d.Victim)
	assert.Equal(t, "AAPL", d.Victim.Symbol)
}

func TestDecide_BlockedWithoutHoldings(t *testing.T) {
	p, err := NewPolicy(10)
	require.NoError(t, err)

	d, err := p.Decide(acct(5, 100), nil)
	require.NoError(t, err)
	assert.Equal(t, Blocked, d.Kind)
	assert.Equal(t, ReasonNoHoldings, d.Reason)
	assert.Nil(t, d.Victim)

	d, err = p.Decide(acct(5, 100), []model.Holding{holding("id-1", "AAPL", "0", t0)})
	require.NoError(t, err)
	assert.Equal(t, Blocked, d.Kind, "zero-quantity holdings cannot be evicted")
}

func TestDecide_ProceedsWhenLiquid(t *testing.T) {
	p, err := NewPolicy(10)
	require.NoError(t, err)

	tests := []struct {
		name   string
		bp, eq int64
	}{
		{"exactly one slot", 10, 100},
		{"above one slot", 50, 100},
		{"all cash", 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := p.Decide(acct(tt.bp, tt.eq), nil)
			require.NoError(t, err)
			assert.Equal(t, ProceedDirectly, d.Kind)
		})
	}
}

func TestDecide_TieBreaksOnInstrumentID(t *testing.T) {
	p, err := NewPolicy(4)
	require.NoError(t, err)

	holdings := []model.Holding{
		holding("c", "CCC", "1", t0),
		holding("a", "AAA", "1", t0),
		holding("b", "BBB", "1", t0),
	}
	d, err := p.Decide(acct(1, 100), holdings)
	require.NoError(t, err)
	require.Equal(t, EvictThenProceed, d.Kind)
	assert.Equal(t, "a", d.Victim.InstrumentID)
}

func TestDecide_InvalidInputs(t *testing.T) {
	_, err := NewPolicy(0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	p := &Policy{Capacity: 10}
	_, err = p.Decide(acct(5, 0), nil)
	assert.ErrorIs(t, err, ErrInvalidEquity)

	_, err = p.Decide(acct(-1, 100), nil)
	assert.ErrorIs(t, err, ErrInvalidEquity)
}

func TestDecisionKind_String(t *testing.T) {
	assert.Equal(t, "PROCEED", ProceedDirectly.String())
	assert.Equal(t, "EVICT_THEN_PROCEED", EvictThenProceed.String())
	assert.Equal(t, "BLOCKED", Blocked.String())
}
