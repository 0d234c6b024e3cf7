// Package scheduler runs the periodic account summary and answers chat commands.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"PresenceTrader/internal/broker"
	"PresenceTrader/internal/controller"
	"PresenceTrader/internal/metrics"
	"PresenceTrader/internal/model"
	"PresenceTrader/internal/notifier"
	"PresenceTrader/internal/recorder"
)

var log = logrus.WithField("component", "scheduler")

// DefaultSummaryCron runs the summary at the top of every hour.
const DefaultSummaryCron = "0 0 * * * *"

// SummaryNotifier delivers the periodic summary.
type SummaryNotifier interface {
	NotifySummary(ctx context.Context, acct model.AccountSnapshot, holdings []model.Holding) error
}

// StatusSource reports the controller's display state.
type StatusSource interface {
	Status() controller.Status
}

// Scheduler manages the cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Broker   broker.Broker
	Notifier SummaryNotifier
	Recorder recorder.Recorder
	Status   StatusSource
	Metrics  *metrics.Registry
	Timeout  time.Duration
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler. Notifier may be nil.
func NewScheduler(ctx context.Context, b broker.Broker, sn SummaryNotifier, rec recorder.Recorder, status StatusSource) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Broker:   b,
		Notifier: sn,
		Recorder: rec,
		Status:   status,
		Timeout:  controller.DefaultBrokerTimeout,
		Ctx:      ctx,
	}
}

// RegisterAll registers the summary task.
func (s *Scheduler) RegisterAll(summaryCron string) error {
	if summaryCron == "" {
		summaryCron = DefaultSummaryCron
	}
	if _, err := s.Cron.AddFunc(summaryCron, s.summaryTask); err != nil {
		return fmt.Errorf("register summary task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info("scheduler stopped")
}

// RunSummaryNow executes the summary task immediately.
func (s *Scheduler) RunSummaryNow() {
	s.summaryTask()
}

func (s *Scheduler) summaryTask() {
	log.Info("running summary task")
	acct, holdings, err := s.fetch(s.Ctx)
	if err != nil {
		log.Errorf("summary: %v", err)
		return
	}

	s.Metrics.Account(acct.BuyingPower)
	if err := s.Recorder.RecordAccount(&recorder.AccountEvent{
		BuyingPower: acct.BuyingPower,
		TotalEquity: acct.TotalEquity,
		Holdings:    len(holdings),
	}); err != nil {
		log.Errorf("record account: %v", err)
	}

	if s.Notifier != nil {
		if err := s.Notifier.NotifySummary(s.Ctx, acct, holdings); err != nil {
			log.Errorf("send summary: %v", err)
		}
	}
}

func (s *Scheduler) fetch(ctx context.Context) (model.AccountSnapshot, []model.Holding, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	acct, err := s.Broker.Account(ctx)
	if err != nil {
		return model.AccountSnapshot{}, nil, fmt.Errorf("account: %w", err)
	}
	holdings, err := s.Broker.Holdings(ctx)
	if err != nil {
		return model.AccountSnapshot{}, nil, fmt.Errorf("holdings: %w", err)
	}
	return acct, holdings, nil
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "status":
		if s.Status == nil {
			return "Controller not running"
		}
		st := s.Status.Status()
		return notifier.FormatStatus(st.Symbol, st.Description, st.Sector, st.RotationProgress, st.TriggerProgress, st.State)
	case "account":
		acct, holdings, err := s.fetch(ctx)
		if err != nil {
			return notifier.FormatError(err)
		}
		return notifier.FormatAccount(acct, holdings)
	case "summary":
		s.summaryTask()
		return ""
	default:
		return "Commands:\n/status - current instrument and progress\n/account - buying power and holdings\n/summary - send the account summary"
	}
}
