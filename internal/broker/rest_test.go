package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PresenceTrader/internal/model"
)

func newTestClient(t *testing.T, h http.Handler) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewRESTClient(RESTConfig{
		BaseURL:                srv.URL,
		APIKey:                 "secret",
		Timeout:                2 * time.Second,
		RatePerSecond:          1000,
		Burst:                  100,
		MaxConsecutiveFailures: 3,
		BreakerTimeout:         time.Minute,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRESTClient_AccountQuoteHoldings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/account", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]string{"buying_power": "250.50", "equity": "1000"})
	})
	mux.HandleFunc("/v1/quotes/AAPL", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"symbol": "AAPL", "ask_price": "189.12", "bid_price": "189.05"})
	})
	mux.HandleFunc("/v1/positions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]string{
			{"instrument_id": "i-1", "symbol": "AAPL", "quantity": "1.25", "updated_at": "2024-05-01T13:30:00Z"},
		})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	acct, err := c.Account(ctx)
	require.NoError(t, err)
	assert.True(t, acct.BuyingPower.Equal(decimal.RequireFromString("250.50")))
	assert.True(t, acct.TotalEquity.Equal(decimal.NewFromInt(1000)))

	q, err := c.Quote(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, q.AskPrice.Equal(decimal.RequireFromString("189.12")))

	hs, err := c.Holdings(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, "i-1", hs[0].InstrumentID)
	assert.Equal(t, time.Date(2024, 5, 1, 13, 30, 0, 0, time.UTC), hs[0].UpdatedAt.UTC())
}

func TestRESTClient_SubmitOrder(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]string{"id": "o-1", "status": "accepted", "symbol": "AAPL", "side": "buy"})
	})
	c := newTestClient(t, mux)

	req := NewMarketOrder(model.SideBuy, "AAPL", decimal.RequireFromString("0.52873"))
	res, err := c.SubmitMarketOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "o-1", res.OrderID)
	assert.Equal(t, model.OrderAccepted, res.Status)

	assert.Equal(t, "market", got["type"])
	assert.Equal(t, "gfd", got["time_in_force"])
	assert.Equal(t, "buy", got["side"])
	assert.Equal(t, "0.52873", got["quantity"])
	assert.Equal(t, req.ClientOrderID, got["client_order_id"])
}

func TestRESTClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, map[string]string{"message": "bad token"}, ErrAuth},
		{"forbidden", http.StatusForbidden, map[string]string{"message": "nope"}, ErrAuth},
		{"throttled", http.StatusTooManyRequests, map[string]string{"message": "slow down"}, ErrTransient},
		{"server error", http.StatusBadGateway, map[string]string{"message": "upstream"}, ErrTransient},
		{"unprocessable", http.StatusUnprocessableEntity, map[string]string{"message": "market closed"}, ErrRejected},
		{"rejected status", http.StatusOK, map[string]string{"id": "o-2", "status": "rejected", "reason": "halted"}, ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))
			_, err := c.SubmitMarketOrder(context.Background(), NewMarketOrder(model.SideSell, "AAPL", decimal.NewFromInt(1)))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRESTClient_TimeoutIsTransient(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Account(ctx)
	assert.ErrorIs(t, err, ErrTransient)
	assert.True(t, Recoverable(err))
}

func TestRESTClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "down"})
	}))

	for i := 0; i < 3; i++ {
		_, err := c.Account(context.Background())
		require.ErrorIs(t, err, ErrTransient)
	}
	_, err := c.Account(context.Background())
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, int32(3), calls.Load(), "open circuit must not reach the server")
}

func TestRESTClient_RejectionsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "closed"})
	}))

	for i := 0; i < 5; i++ {
		_, err := c.SubmitMarketOrder(context.Background(), NewMarketOrder(model.SideBuy, "AAPL", decimal.NewFromInt(1)))
		require.ErrorIs(t, err, ErrRejected)
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestRESTClient_QuoteWithoutAsk(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"symbol": "XYZ", "ask_price": "0", "bid_price": "0"})
	}))
	_, err := c.Quote(context.Background(), "XYZ")
	assert.ErrorIs(t, err, ErrNoQuote)
}
