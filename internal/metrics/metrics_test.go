package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Records(t *testing.T) {
	r := New()
	r.Tick()
	r.Tick()
	r.TickError("transient")
	r.Rotation(4)
	r.Decision("PROCEED")
	r.Order("buy", "submitted")
	r.Progress(35, 80)
	r.Account(decimal.RequireFromString("12.5"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.TickErrors.WithLabelValues("transient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Rotations))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.CatalogIndex))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Orders.WithLabelValues("buy", "submitted")))
	assert.Equal(t, 35.0, testutil.ToFloat64(r.RotationProgress))
	assert.Equal(t, 80.0, testutil.ToFloat64(r.TriggerProgress))
	assert.Equal(t, 12.5, testutil.ToFloat64(r.BuyingPower))
}

func TestRegistry_Handler(t *testing.T) {
	r := New()
	r.Decision("BLOCKED")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `presence_trader_decisions_total{kind="BLOCKED"} 1`)
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.Tick()
		r.TickError("x")
		r.Rotation(1)
		r.Decision("x")
		r.Order("buy", "x")
		r.Progress(1, 2)
		r.Account(decimal.Zero)
		_ = r.Handler()
	})
}
