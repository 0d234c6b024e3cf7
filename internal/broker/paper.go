package broker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"PresenceTrader/internal/model"
)

var paperLog = logrus.WithField("component", "broker_paper")

// Quoter supplies prices to the paper broker.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (model.Quote, error)
}

// PaperOption configures a Paper broker.
type PaperOption func(*Paper)

// WithClock sets the clock used for holding timestamps.
func WithClock(now func() time.Time) PaperOption {
	return func(p *Paper) { p.now = now }
}

// WithDefaultPrice quotes every symbol without an explicit quote at price.
func WithDefaultPrice(price decimal.Decimal) PaperOption {
	return func(p *Paper) { p.defaultPrice = price }
}

// WithQuoter takes prices from a live source, e.g. the REST client.
func WithQuoter(q Quoter) PaperOption {
	return func(p *Paper) { p.quoter = q }
}

// Paper is an in-memory simulated account. Market orders fill immediately
// at the current ask (buys) or bid (sells).
type Paper struct {
	mu           sync.Mutex
	cash         decimal.Decimal
	positions    map[string]*model.Holding
	quotes       map[string]model.Quote
	defaultPrice decimal.Decimal
	quoter       Quoter
	now          func() time.Time
	failures     []error
	orderSeq     int
}

// NewPaper creates a paper account funded with cash.
func NewPaper(cash decimal.Decimal, opts ...PaperOption) *Paper {
	p := &Paper{
		cash:      cash,
		positions: make(map[string]*model.Holding),
		quotes:    make(map[string]model.Quote),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PaperInstrumentID derives the stable id the paper broker assigns to symbol.
func PaperInstrumentID(symbol string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("paper:"+strings.ToUpper(symbol))).String()
}

// SetQuote fixes the ask and bid for symbol.
func (p *Paper) SetQuote(symbol string, ask, bid decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[strings.ToUpper(symbol)] = model.Quote{Symbol: strings.ToUpper(symbol), AskPrice: ask, BidPrice: bid}
}

// SetCash overrides the cash balance.
func (p *Paper) SetCash(cash decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cash = cash
}

// AddHolding seeds a position. An empty InstrumentID is derived from the symbol.
func (p *Paper) AddHolding(h model.Holding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h.InstrumentID == "" {
		h.InstrumentID = PaperInstrumentID(h.Symbol)
	}
	p.positions[h.InstrumentID] = &h
}

// FailNext queues errors returned by the next calls, one per call.
func (p *Paper) FailNext(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, errs...)
}

func (p *Paper) popFailure() error {
	if len(p.failures) == 0 {
		return nil
	}
	err := p.failures[0]
	p.failures = p.failures[1:]
	return err
}

// Account returns cash as buying power and cash plus positions at bid as equity.
func (p *Paper) Account(ctx context.Context) (model.AccountSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.popFailure(); err != nil {
		return model.AccountSnapshot{}, err
	}

	equity := p.cash
	for _, h := range p.positions {
		q, err := p.quoteLocked(ctx, h.Symbol)
		if err != nil {
			return model.AccountSnapshot{}, err
		}
		equity = equity.Add(h.Quantity.Mul(q.BidPrice))
	}
	return model.AccountSnapshot{BuyingPower: p.cash, TotalEquity: equity, FetchedAt: p.now()}, nil
}

// Quote returns the configured, live or default price for symbol.
func (p *Paper) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.popFailure(); err != nil {
		return model.Quote{}, err
	}
	return p.quoteLocked(ctx, symbol)
}

func (p *Paper) quoteLocked(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = strings.ToUpper(symbol)
	if q, ok := p.quotes[symbol]; ok {
		return q, nil
	}
	if p.quoter != nil {
		return p.quoter.Quote(ctx, symbol)
	}
	if p.defaultPrice.IsPositive() {
		return model.Quote{Symbol: symbol, AskPrice: p.defaultPrice, BidPrice: p.defaultPrice}, nil
	}
	return model.Quote{}, fmt.Errorf("%w: %s", ErrNoQuote, symbol)
}

// Holdings lists positions ordered by instrument id.
func (p *Paper) Holdings(ctx context.Context) ([]model.Holding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.popFailure(); err != nil {
		return nil, err
	}

	out := make([]model.Holding, 0, len(p.positions))
	for _, h := range p.positions {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstrumentID < out[j].InstrumentID })
	return out, nil
}

// SubmitMarketOrder fills the order in full or rejects it.
func (p *Paper) SubmitMarketOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.popFailure(); err != nil {
		return model.OrderResult{}, err
	}

	p.orderSeq++
	res := model.OrderResult{
		OrderID:       fmt.Sprintf("paper-%d", p.orderSeq),
		ClientOrderID: req.ClientOrderID,
		Side:          req.Side,
		Symbol:        strings.ToUpper(req.Symbol),
		Quantity:      req.Quantity,
		SubmittedAt:   p.now(),
	}
	reject := func(reason string) (model.OrderResult, error) {
		res.Status = model.OrderRejected
		res.Reason = reason
		paperLog.Warnf("rejected %s %s %s: %s", req.Side, req.Quantity, res.Symbol, reason)
		return res, fmt.Errorf("%w: %s", ErrRejected, reason)
	}

	if !req.Quantity.IsPositive() {
		return reject("quantity must be positive")
	}
	q, err := p.quoteLocked(ctx, res.Symbol)
	if err != nil {
		return model.OrderResult{}, err
	}
	h := p.findLocked(res.Symbol)

	switch req.Side {
	case model.SideBuy:
		cost := q.AskPrice.Mul(req.Quantity)
		if cost.GreaterThan(p.cash) {
			return reject(fmt.Sprintf("cost %s exceeds cash %s", cost, p.cash))
		}
		p.cash = p.cash.Sub(cost)
		if h == nil {
			h = &model.Holding{InstrumentID: PaperInstrumentID(res.Symbol), Symbol: res.Symbol}
			p.positions[h.InstrumentID] = h
		}
		h.Quantity = h.Quantity.Add(req.Quantity)
		h.UpdatedAt = p.now()
		res.FilledPrice = q.AskPrice
	case model.SideSell:
		if h == nil || h.Quantity.LessThan(req.Quantity) {
			return reject("insufficient position")
		}
		p.cash = p.cash.Add(q.BidPrice.Mul(req.Quantity))
		h.Quantity = h.Quantity.Sub(req.Quantity)
		h.UpdatedAt = p.now()
		if h.Quantity.IsZero() {
			delete(p.positions, h.InstrumentID)
		}
		res.FilledPrice = q.BidPrice
	default:
		return reject(fmt.Sprintf("unknown side %q", req.Side))
	}

	res.Status = model.OrderFilled
	res.FilledQuantity = req.Quantity
	paperLog.Infof("filled %s %s %s @ %s", req.Side, req.Quantity, res.Symbol, res.FilledPrice)
	return res, nil
}

func (p *Paper) findLocked(symbol string) *model.Holding {
	for _, h := range p.positions {
		if strings.EqualFold(h.Symbol, symbol) {
			return h
		}
	}
	return nil
}
