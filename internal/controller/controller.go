// Package controller runs the presence-triggered trading loop.
//
// Each tick samples the presence source into the debounce counter. Once the
// counter is due, the rotation policy is consulted, a holding is evicted if
// liquidity requires it, and the selected instrument is bought with all
// available funds. A rotation timer hit then advances the selected instrument
// and clears the counter.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"PresenceTrader/internal/broker"
	"PresenceTrader/internal/debounce"
	"PresenceTrader/internal/detector"
	"PresenceTrader/internal/executor"
	"PresenceTrader/internal/metrics"
	"PresenceTrader/internal/model"
	"PresenceTrader/internal/portfolio"
	"PresenceTrader/internal/recorder"
	"PresenceTrader/internal/rotation"
	"PresenceTrader/internal/timer"
)

var log = logrus.WithField("component", "controller")

// ErrTradeInFlight is returned when a trade decision is requested while another is running.
var ErrTradeInFlight = errors.New("trade decision already in flight")

const (
	DefaultTickInterval  = 100 * time.Millisecond
	DefaultBrokerTimeout = 10 * time.Second
)

// State is the controller's position in the per-tick state machine.
type State int

const (
	Idle State = iota
	Rotating
	Deciding
	Trading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rotating:
		return "rotating"
	case Deciding:
		return "deciding"
	case Trading:
		return "trading"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Notifier receives trade outcomes and the first error of a failure streak.
type Notifier interface {
	NotifyExecution(exec executor.Execution) error
	NotifyError(err error) error
}

// Deps are the components the controller drives. All are required.
type Deps struct {
	Timer    timer.Cycle
	Counter  *debounce.Counter
	Selector *rotation.Selector
	Policy   *portfolio.Policy
	Executor *executor.Executor
	Broker   broker.Broker
	Source   detector.Source
}

// Options are optional collaborators and tuning.
type Options struct {
	Journal       recorder.Recorder
	Notifier      Notifier
	Metrics       *metrics.Registry
	TickInterval  time.Duration
	BrokerTimeout time.Duration
}

// TickResult describes what a single tick did.
type TickResult struct {
	Present    bool
	Rotated    bool
	Decision   *portfolio.Decision
	Executions []executor.Execution
}

// Status is a point-in-time view for display surfaces.
type Status struct {
	Symbol           string `json:"symbol"`
	Description      string `json:"description"`
	Sector           string `json:"sector"`
	Index            int    `json:"index"`
	RotationProgress int    `json:"rotation_progress"`
	TriggerProgress  int    `json:"trigger_progress"`
	State            string `json:"state"`
}

// Controller owns the timer, counter, selector, policy and executor.
type Controller struct {
	timer    timer.Cycle
	counter  *debounce.Counter
	selector *rotation.Selector
	policy   *portfolio.Policy
	executor *executor.Executor
	broker   broker.Broker
	source   detector.Source

	journal       recorder.Recorder
	notifier      Notifier
	metrics       *metrics.Registry
	tickInterval  time.Duration
	brokerTimeout time.Duration

	trade sync.Mutex

	mu               sync.RWMutex
	state            State
	rotationProgress int
	failStreak       int
}

// New wires a controller. Missing optional collaborators are replaced by no-ops.
func New(d Deps, opts Options) (*Controller, error) {
	switch {
	case d.Timer == nil:
		return nil, errors.New("controller: timer is required")
	case d.Counter == nil:
		return nil, errors.New("controller: debounce counter is required")
	case d.Selector == nil:
		return nil, errors.New("controller: selector is required")
	case d.Policy == nil:
		return nil, errors.New("controller: policy is required")
	case d.Executor == nil:
		return nil, errors.New("controller: executor is required")
	case d.Broker == nil:
		return nil, errors.New("controller: broker is required")
	case d.Source == nil:
		return nil, errors.New("controller: presence source is required")
	}
	if opts.Journal == nil {
		opts.Journal = recorder.NewNoopRecorder()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.BrokerTimeout <= 0 {
		opts.BrokerTimeout = DefaultBrokerTimeout
	}
	return &Controller{
		timer:         d.Timer,
		counter:       d.Counter,
		selector:      d.Selector,
		policy:        d.Policy,
		executor:      d.Executor,
		broker:        d.Broker,
		source:        d.Source,
		journal:       opts.Journal,
		notifier:      opts.Notifier,
		metrics:       opts.Metrics,
		tickInterval:  opts.TickInterval,
		brokerTimeout: opts.BrokerTimeout,
	}, nil
}

// Run ticks until ctx is cancelled. Tick errors are logged and never stop the loop.
func (c *Controller) Run(ctx context.Context) error {
	log.Infof("control loop started: tick %s, offering %s", c.tickInterval, c.selector.Current().Symbol)
	t := time.NewTicker(c.tickInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("control loop stopped")
			return nil
		case <-t.C:
			if _, err := c.Tick(ctx); err != nil {
				if broker.Recoverable(err) || errors.Is(err, ErrTradeInFlight) {
					log.Warnf("tick abandoned: %v", err)
				} else {
					log.Errorf("tick failed: %v", err)
				}
			}
		}
	}
}

// Tick evaluates one iteration of the control loop.
func (c *Controller) Tick(ctx context.Context) (TickResult, error) {
	var res TickResult
	c.metrics.Tick()

	present, err := c.source.Present(ctx)
	if err != nil {
		log.Warnf("presence sample failed, counted as absent: %v", err)
		present = false
	}
	res.Present = present
	c.counter.Tick(present)

	progress, err := c.timer.Progress()
	if err != nil {
		c.metrics.TickError("fault")
		log.Errorf("rotation timer: %v", err)
		return res, err
	}
	c.mu.Lock()
	c.rotationProgress = progress
	c.mu.Unlock()
	defer func() { c.metrics.Progress(c.RotationProgress(), c.counter.Progress()) }()

	// A trigger that is due when the period ends still buys the instrument
	// it was earned on; rotation follows in the same tick.
	var tradeErr error
	if c.counter.Due() {
		res, tradeErr = c.decide(ctx, res)
		if errors.Is(tradeErr, ErrTradeInFlight) || broker.Recoverable(tradeErr) {
			return res, tradeErr
		}
	}

	if c.timer.Hit() {
		if err := c.rotate(); err != nil {
			c.metrics.TickError("fault")
			return res, err
		}
		res.Rotated = true
	}
	return res, tradeErr
}

func (c *Controller) rotate() error {
	c.setState(Rotating)
	defer c.setState(Idle)

	if err := c.timer.Restart(); err != nil {
		return fmt.Errorf("restart rotation timer: %w", err)
	}
	from := c.selector.Current()
	fromIndex := c.selector.Index()
	next, err := c.selector.Advance()
	if err != nil {
		return fmt.Errorf("advance selector: %w", err)
	}
	c.counter.Reset()

	log.Infof("rotated %s -> %s (%s)", from.Symbol, next.Symbol, next.Sector)
	c.metrics.Rotation(c.selector.Index())
	c.journalErr("rotation", c.journal.RecordRotation(&recorder.RotationEvent{
		FromIndex:  fromIndex,
		FromSymbol: from.Symbol,
		ToIndex:    c.selector.Index(),
		ToSymbol:   next.Symbol,
	}))
	return nil
}

// decide runs one trade decision. The counter is left untouched when a
// recoverable broker error abandons the tick, so the next tick retries.
// Every other outcome consumes the trigger.
func (c *Controller) decide(ctx context.Context, res TickResult) (TickResult, error) {
	if !c.trade.TryLock() {
		return res, ErrTradeInFlight
	}
	defer c.trade.Unlock()
	defer c.setState(Idle)

	ctx, cancel := context.WithTimeout(ctx, c.brokerTimeout)
	defer cancel()

	c.setState(Deciding)
	inst := c.selector.Current()

	acct, err := c.broker.Account(ctx)
	if err != nil {
		return res, c.tradeFailed(fmt.Errorf("account: %w", err), false)
	}
	holdings, err := c.broker.Holdings(ctx)
	if err != nil {
		return res, c.tradeFailed(fmt.Errorf("holdings: %w", err), false)
	}
	c.metrics.Account(acct.BuyingPower)

	decision, err := c.policy.Decide(acct, holdings)
	if errors.Is(err, portfolio.ErrInvalidEquity) {
		decision = portfolio.Decision{Kind: portfolio.Blocked, Reason: err.Error()}
	} else if err != nil {
		c.counter.Reset()
		return res, c.fail(err, false)
	}
	res.Decision = &decision
	c.recordDecision(inst, acct, decision)

	if decision.Kind == portfolio.Blocked {
		log.Warnf("buy %s blocked: %s", inst.Symbol, decision.Reason)
		c.counter.Reset()
		c.succeed()
		return res, nil
	}

	c.setState(Trading)
	if decision.Kind == portfolio.EvictThenProceed {
		victim := *decision.Victim
		log.Infof("liquidity %s below 1/%d, evicting %s", acct.LiquidityRatio(), c.policy.Capacity, victim.Symbol)
		exec, err := c.executor.SellQuantity(ctx, victim, victim.Quantity)
		res.Executions = append(res.Executions, exec)
		c.recordExecution(exec, err)
		if err != nil {
			return res, c.tradeFailed(err, true)
		}
	}

	exec, err := c.executor.BuyWithAvailableFunds(ctx, inst)
	res.Executions = append(res.Executions, exec)
	c.recordExecution(exec, err)
	if err != nil {
		return res, c.tradeFailed(err, true)
	}

	c.counter.Reset()
	c.succeed()
	return res, nil
}

// tradeFailed consumes the trigger unless err is a recoverable broker error.
// fromExecutor marks errors whose outcome was already journaled and notified.
func (c *Controller) tradeFailed(err error, fromExecutor bool) error {
	if !broker.Recoverable(err) {
		c.counter.Reset()
	}
	return c.fail(err, fromExecutor && errors.Is(err, broker.ErrRejected))
}

// fail counts the error and notifies the first error of a failure streak.
// A rejection already reported as an execution is not notified again.
func (c *Controller) fail(err error, reported bool) error {
	kind := "fault"
	switch {
	case errors.Is(err, broker.ErrAuth):
		kind = "auth"
	case errors.Is(err, broker.ErrTransient):
		kind = "transient"
	case errors.Is(err, broker.ErrRejected):
		kind = "rejected"
	}
	c.metrics.TickError(kind)

	c.mu.Lock()
	c.failStreak++
	first := c.failStreak == 1
	c.mu.Unlock()
	if first && c.notifier != nil && !reported {
		if nerr := c.notifier.NotifyError(err); nerr != nil {
			log.Warnf("notify error: %v", nerr)
		}
	}
	return err
}

func (c *Controller) succeed() {
	c.mu.Lock()
	c.failStreak = 0
	c.mu.Unlock()
}

func (c *Controller) recordDecision(inst model.Instrument, acct model.AccountSnapshot, d portfolio.Decision) {
	c.metrics.Decision(d.Kind.String())
	evt := &recorder.DecisionEvent{
		Symbol:      inst.Symbol,
		Kind:        d.Kind.String(),
		Reason:      d.Reason,
		BuyingPower: acct.BuyingPower,
		TotalEquity: acct.TotalEquity,
	}
	if d.Victim != nil {
		evt.VictimSymbol = d.Victim.Symbol
		evt.VictimInstrumentID = d.Victim.InstrumentID
	}
	c.journalErr("decision", c.journal.RecordDecision(evt))
}

// recordExecution journals attempts that produced an outcome. Broker failures
// before an outcome are reported through fail instead.
func (c *Controller) recordExecution(exec executor.Execution, err error) {
	if err != nil && !errors.Is(err, broker.ErrRejected) {
		return
	}
	c.metrics.Order(string(exec.Side), exec.Outcome.String())
	if !exec.Account.FetchedAt.IsZero() {
		c.metrics.Account(exec.Account.BuyingPower)
	}
	c.journalErr("execution", c.journal.RecordExecution(&recorder.ExecutionEvent{
		Side:             string(exec.Side),
		Symbol:           exec.Symbol,
		Outcome:          exec.Outcome.String(),
		OrderID:          exec.Order.OrderID,
		ClientOrderID:    exec.Order.ClientOrderID,
		Quantity:         exec.Order.Quantity,
		FilledPrice:      exec.Order.FilledPrice,
		Status:           string(exec.Order.Status),
		Reason:           exec.Reason,
		BuyingPowerAfter: exec.Account.BuyingPower,
	}))
	if c.notifier != nil && exec.Outcome != executor.Skipped {
		if err := c.notifier.NotifyExecution(exec); err != nil {
			log.Warnf("notify execution: %v", err)
		}
	}
}

func (c *Controller) journalErr(what string, err error) {
	if err != nil {
		log.Warnf("journal %s: %v", what, err)
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the current state machine position.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// CurrentInstrument returns the instrument currently offered for purchase.
func (c *Controller) CurrentInstrument() model.Instrument { return c.selector.Current() }

// RotationProgress returns the rotation timer progress observed by the last tick.
func (c *Controller) RotationProgress() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rotationProgress
}

// TriggerProgress returns the presence counter progress towards a trade.
func (c *Controller) TriggerProgress() int { return c.counter.Progress() }

// Status collects the display gauges in one value.
func (c *Controller) Status() Status {
	inst := c.selector.Current()
	return Status{
		Symbol:           inst.Symbol,
		Description:      inst.Description,
		Sector:           inst.Sector,
		Index:            c.selector.Index(),
		RotationProgress: c.RotationProgress(),
		TriggerProgress:  c.TriggerProgress(),
		State:            c.State().String(),
	}
}
