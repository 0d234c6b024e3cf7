package broker

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"PresenceTrader/internal/model"
)

var restLog = logrus.WithField("component", "broker_rest")

// RESTConfig configures the HTTP brokerage client.
type RESTConfig struct {
	BaseURL                string
	APIKey                 string
	Timeout                time.Duration
	RatePerSecond          float64
	Burst                  int
	MaxConsecutiveFailures uint32
	BreakerTimeout         time.Duration
}

// RESTClient is a JSON-over-HTTP brokerage client. Calls are rate limited and
// run behind a circuit breaker that opens after consecutive transient failures.
// Nothing is retried: a failed call is reported to the caller as-is.
type RESTClient struct {
	http    *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type accountPayload struct {
	BuyingPower decimal.Decimal `json:"buying_power"`
	Equity      decimal.Decimal `json:"equity"`
}

type orderPayload struct {
	model.OrderRequest
	Type string `json:"type"`
}

// NewRESTClient builds a client, filling zero config values with defaults.
func NewRESTClient(cfg RESTConfig) *RESTClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.MaxConsecutiveFailures == 0 {
		cfg.MaxConsecutiveFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	maxFailures := cfg.MaxConsecutiveFailures
	st := gobreaker.Settings{
		Name:    "broker",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrTransient)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			restLog.Warnf("circuit %s: %s -> %s", name, from, to)
		},
	}

	return &RESTClient{
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

// Account fetches the current buying power and equity.
func (c *RESTClient) Account(ctx context.Context) (model.AccountSnapshot, error) {
	var out accountPayload
	err := c.do(ctx, "get account", func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&out).Get("/v1/account")
	})
	if err != nil {
		return model.AccountSnapshot{}, err
	}
	return model.AccountSnapshot{
		BuyingPower: out.BuyingPower,
		TotalEquity: out.Equity,
		FetchedAt:   time.Now(),
	}, nil
}

// Quote fetches the latest ask and bid for symbol.
func (c *RESTClient) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	var out model.Quote
	err := c.do(ctx, "get quote", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("symbol", symbol).SetResult(&out).Get("/v1/quotes/{symbol}")
	})
	if err != nil {
		return model.Quote{}, err
	}
	if !out.AskPrice.IsPositive() {
		return model.Quote{}, errors.Wrapf(ErrNoQuote, "%s ask %s", symbol, out.AskPrice)
	}
	if out.Symbol == "" {
		out.Symbol = symbol
	}
	return out, nil
}

// Holdings lists the positions the account owns.
func (c *RESTClient) Holdings(ctx context.Context) ([]model.Holding, error) {
	var out []model.Holding
	err := c.do(ctx, "list positions", func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&out).Get("/v1/positions")
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitMarketOrder places a market order. A refused order yields ErrRejected.
func (c *RESTClient) SubmitMarketOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error) {
	var out model.OrderResult
	err := c.do(ctx, "submit order", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(orderPayload{OrderRequest: req, Type: "market"}).SetResult(&out).Post("/v1/orders")
	})
	if err != nil {
		return model.OrderResult{}, err
	}
	if out.Status == model.OrderRejected {
		return out, errors.Wrapf(ErrRejected, "%s %s: %s", req.Side, req.Symbol, out.Reason)
	}
	return out, nil
}

func (c *RESTClient) do(ctx context.Context, op string, send func(*resty.Request) (*resty.Response, error)) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrapf(ErrTransient, "%s: rate limit wait: %v", op, err)
		}
		resp, err := send(c.http.R().SetContext(ctx).SetError(&apiError{}))
		if err != nil {
			return nil, errors.Wrapf(ErrTransient, "%s: %v", op, err)
		}
		return nil, classify(op, resp)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrapf(ErrTransient, "%s: %v", op, err)
	}
	return err
}

func classify(op string, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	msg := strings.TrimSpace(resp.String())
	if e, ok := resp.Error().(*apiError); ok && e.Message != "" {
		msg = e.Message
	}

	code := resp.StatusCode()
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.Wrapf(ErrAuth, "%s: status %d: %s", op, code, msg)
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return errors.Wrapf(ErrTransient, "%s: status %d: %s", op, code, msg)
	default:
		return errors.Wrapf(ErrRejected, "%s: status %d: %s", op, code, msg)
	}
}
