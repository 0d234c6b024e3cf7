package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PresenceTrader/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPaper_BuySellRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	p := NewPaper(d("1000"), WithClock(func() time.Time { return now }))
	p.SetQuote("AAPL", d("100"), d("99"))
	ctx := context.Background()

	res, err := p.SubmitMarketOrder(ctx, NewMarketOrder(model.SideBuy, "AAPL", d("2.5")))
	require.NoError(t, err)
	assert.Equal(t, model.OrderFilled, res.Status)

	acct, err := p.Account(ctx)
	require.NoError(t, err)
	assert.True(t, acct.BuyingPower.Equal(d("750")))
	assert.True(t, acct.TotalEquity.Equal(d("997.5")))

	hs, err := p.Holdings(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, PaperInstrumentID("AAPL"), hs[0].InstrumentID)
	assert.Equal(t, now, hs[0].UpdatedAt)

	_, err = p.SubmitMarketOrder(ctx, NewMarketOrder(model.SideSell, "AAPL", d("2.5")))
	require.NoError(t, err)
	hs, _ = p.Holdings(ctx)
	assert.Empty(t, hs)

	acct, _ = p.Account(ctx)
	assert.True(t, acct.BuyingPower.Equal(d("997.5")))
}

func TestPaper_Rejections(t *testing.T) {
	p := NewPaper(d("10"), WithDefaultPrice(d("20")))
	ctx := context.Background()

	res, err := p.SubmitMarketOrder(ctx, NewMarketOrder(model.SideBuy, "MSFT", d("1")))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, model.OrderRejected, res.Status)

	_, err = p.SubmitMarketOrder(ctx, NewMarketOrder(model.SideSell, "MSFT", d("1")))
	assert.ErrorIs(t, err, ErrRejected)

	_, err = p.SubmitMarketOrder(ctx, NewMarketOrder(model.SideBuy, "MSFT", d("0")))
	assert.ErrorIs(t, err, ErrRejected)
}

func TestPaper_NoQuote(t *testing.T) {
	p := NewPaper(d("10"))
	_, err := p.Quote(context.Background(), "ZZZ")
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestPaper_FailNext(t *testing.T) {
	p := NewPaper(d("10"), WithDefaultPrice(d("1")))
	boom := errors.New("boom")
	p.FailNext(ErrTransient, boom)

	_, err := p.Account(context.Background())
	assert.ErrorIs(t, err, ErrTransient)
	_, err = p.Holdings(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = p.Account(context.Background())
	assert.NoError(t, err)
}

func TestPaper_SeededHoldingCanBeSold(t *testing.T) {
	p := NewPaper(d("0"), WithDefaultPrice(d("10")))
	p.AddHolding(model.Holding{InstrumentID: "custom-id", Symbol: "KO", Quantity: d("3")})

	_, err := p.SubmitMarketOrder(context.Background(), NewMarketOrder(model.SideSell, "KO", d("3")))
	require.NoError(t, err)
	acct, _ := p.Account(context.Background())
	assert.True(t, acct.BuyingPower.Equal(d("30")))
}
