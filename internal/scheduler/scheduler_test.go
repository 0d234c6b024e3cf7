package scheduler

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PresenceTrader/internal/broker"
	"PresenceTrader/internal/controller"
	"PresenceTrader/internal/model"
	"PresenceTrader/internal/recorder"
)

type fakeSummary struct {
	accounts []model.AccountSnapshot
	holdings [][]model.Holding
}

func (f *fakeSummary) NotifySummary(_ context.Context, acct model.AccountSnapshot, holdings []model.Holding) error {
	f.accounts = append(f.accounts, acct)
	f.holdings = append(f.holdings, holdings)
	return nil
}

type fakeJournal struct {
	recorder.NoopRecorder
	accounts []recorder.AccountEvent
}

func (j *fakeJournal) RecordAccount(evt *recorder.AccountEvent) error {
	j.accounts = append(j.accounts, *evt)
	return nil
}

type fixedStatus controller.Status

func (f fixedStatus) Status() controller.Status { return controller.Status(f) }

func newPaper() *broker.Paper {
	p := broker.NewPaper(decimal.NewFromInt(50), broker.WithDefaultPrice(decimal.NewFromInt(10)))
	p.AddHolding(model.Holding{Symbol: "KO", Quantity: decimal.NewFromInt(5)})
	return p
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), newPaper(), nil, nil, nil)
	require.NoError(t, s.RegisterAll(""))
	assert.Len(t, s.Cron.Entries(), 1)

	assert.Error(t, NewScheduler(context.Background(), newPaper(), nil, nil, nil).RegisterAll("not a cron"))
}

func TestSummaryTask(t *testing.T) {
	sn := &fakeSummary{}
	j := &fakeJournal{}
	s := NewScheduler(context.Background(), newPaper(), sn, j, nil)

	s.RunSummaryNow()

	require.Len(t, j.accounts, 1)
	assert.True(t, j.accounts[0].BuyingPower.Equal(decimal.NewFromInt(50)))
	assert.True(t, j.accounts[0].TotalEquity.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, j.accounts[0].Holdings)
	require.Len(t, sn.accounts, 1)
	assert.Len(t, sn.holdings[0], 1)
}

func TestSummaryTask_BrokerFailure(t *testing.T) {
	p := newPaper()
	p.FailNext(broker.ErrTransient)
	sn := &fakeSummary{}
	j := &fakeJournal{}
	s := NewScheduler(context.Background(), p, sn, j, nil)

	s.RunSummaryNow()
	assert.Empty(t, j.accounts)
	assert.Empty(t, sn.accounts)
}

func TestHandleCommand(t *testing.T) {
	st := fixedStatus{Symbol: "AAPL", Description: "Apple Inc.", RotationProgress: 10, TriggerProgress: 20, State: "idle"}
	s := NewScheduler(context.Background(), newPaper(), nil, nil, st)
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "status"), "<b>AAPL</b>")
	assert.Contains(t, s.HandleCommand(ctx, "account"), "Holdings (1)")
	assert.Contains(t, s.HandleCommand(ctx, "help"), "/status")

	noStatus := NewScheduler(ctx, newPaper(), nil, nil, nil)
	assert.Equal(t, "Controller not running", noStatus.HandleCommand(ctx, "status"))
}
