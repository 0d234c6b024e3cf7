package broker

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"PresenceTrader/internal/model"
)

var yahooLog = logrus.WithField("component", "quotes_yahoo")

const (
	yahooBaseURL       = "https://query1.finance.yahoo.com"
	defaultYahooMaxAge = 15 * time.Second
)

// YahooQuoter prices symbols from the public Yahoo Finance chart API. It has
// no bid/ask, so both sides of the quote carry the last traded price.
type YahooQuoter struct {
	http   *resty.Client
	maxAge time.Duration
	now    func() time.Time

	// SymbolMap translates catalog symbols to Yahoo tickers, e.g. BRK.B -> BRK-B.
	SymbolMap map[string]string

	mu    sync.Mutex
	cache map[string]cachedQuote
}

type cachedQuote struct {
	quote model.Quote
	at    time.Time
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// NewYahooQuoter creates a quoter. An empty baseURL targets Yahoo itself.
func NewYahooQuoter(baseURL, proxyURL string) *YahooQuoter {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &YahooQuoter{
		http:   client,
		maxAge: defaultYahooMaxAge,
		now:    time.Now,
		cache:  make(map[string]cachedQuote),
	}
}

func (y *YahooQuoter) ticker(symbol string) string {
	if mapped, ok := y.SymbolMap[symbol]; ok {
		return mapped
	}
	return strings.ReplaceAll(symbol, ".", "-")
}

// Quote returns the latest price for symbol, reusing a cached price younger
// than the quoter's max age unless ctx was marked by WithFreshQuote.
func (y *YahooQuoter) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = strings.ToUpper(symbol)

	if !FreshQuoteRequested(ctx) {
		y.mu.Lock()
		if c, ok := y.cache[symbol]; ok && y.now().Sub(c.at) < y.maxAge {
			y.mu.Unlock()
			return c.quote, nil
		}
		y.mu.Unlock()
	}

	var chart yahooChart
	resp, err := y.http.R().
		SetContext(ctx).
		SetPathParam("ticker", y.ticker(symbol)).
		SetQueryParams(map[string]string{"interval": "1m", "range": "1d"}).
		SetResult(&chart).
		Get("/v8/finance/chart/{ticker}")
	if err != nil {
		return model.Quote{}, errors.Wrapf(ErrTransient, "yahoo %s: %v", symbol, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return model.Quote{}, errors.Wrapf(ErrNoQuote, "yahoo %s: unknown ticker", symbol)
	case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500:
		return model.Quote{}, errors.Wrapf(ErrTransient, "yahoo %s: status %d", symbol, resp.StatusCode())
	case !resp.IsSuccess():
		return model.Quote{}, errors.Errorf("yahoo %s: status %d", symbol, resp.StatusCode())
	}
	if chart.Chart.Error != nil {
		return model.Quote{}, errors.Wrapf(ErrNoQuote, "yahoo %s: %s", symbol, chart.Chart.Error.Description)
	}

	price := lastPrice(chart)
	if !price.IsPositive() {
		return model.Quote{}, errors.Wrapf(ErrNoQuote, "yahoo %s", symbol)
	}

	q := model.Quote{Symbol: symbol, AskPrice: price, BidPrice: price}
	y.mu.Lock()
	y.cache[symbol] = cachedQuote{quote: q, at: y.now()}
	y.mu.Unlock()
	yahooLog.Debugf("%s last %s", symbol, price)
	return q, nil
}

// lastPrice prefers the regular market price and falls back to the most
// recent non-null close.
func lastPrice(chart yahooChart) decimal.Decimal {
	if len(chart.Chart.Result) == 0 {
		return decimal.Zero
	}
	r := chart.Chart.Result[0]
	if r.Meta.RegularMarketPrice > 0 {
		return decimal.NewFromFloat(r.Meta.RegularMarketPrice)
	}
	if len(r.Indicators.Quote) == 0 {
		return decimal.Zero
	}
	closes := r.Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil && *closes[i] > 0 {
			return decimal.NewFromFloat(*closes[i])
		}
	}
	return decimal.Zero
}
