// Package metrics exposes controller activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "presence_trader"

// Registry holds the trader's metrics on a private Prometheus registry.
// A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	Ticks            prometheus.Counter
	TickErrors       *prometheus.CounterVec
	Rotations        prometheus.Counter
	Decisions        *prometheus.CounterVec
	Orders           *prometheus.CounterVec
	RotationProgress prometheus.Gauge
	TriggerProgress  prometheus.Gauge
	BuyingPower      prometheus.Gauge
	CatalogIndex     prometheus.Gauge
}

// New creates the registry with Go runtime and process collectors attached.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Control loop ticks evaluated",
		}),
		TickErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_errors_total",
			Help:      "Ticks abandoned by error kind",
		}, []string{"kind"}),
		Rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rotations_total",
			Help:      "Instrument rotations triggered by the cyclic timer",
		}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Rotation policy decisions by kind",
		}, []string{"kind"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Order attempts by side and outcome",
		}, []string{"side", "outcome"}),
		RotationProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rotation_progress_percent",
			Help:      "Progress of the current rotation period",
		}),
		TriggerProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trigger_progress_percent",
			Help:      "Presence counter progress towards the trade threshold",
		}),
		BuyingPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buying_power",
			Help:      "Buying power from the most recent account snapshot",
		}),
		CatalogIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_index",
			Help:      "Catalog index of the currently selected instrument",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Ticks, r.TickErrors, r.Rotations, r.Decisions, r.Orders,
		r.RotationProgress, r.TriggerProgress, r.BuyingPower, r.CatalogIndex,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

func (r *Registry) Tick() {
	if r == nil {
		return
	}
	r.Ticks.Inc()
}

func (r *Registry) TickError(kind string) {
	if r == nil {
		return
	}
	r.TickErrors.WithLabelValues(kind).Inc()
}

func (r *Registry) Rotation(index int) {
	if r == nil {
		return
	}
	r.Rotations.Inc()
	r.CatalogIndex.Set(float64(index))
}

func (r *Registry) Decision(kind string) {
	if r == nil {
		return
	}
	r.Decisions.WithLabelValues(kind).Inc()
}

func (r *Registry) Order(side, outcome string) {
	if r == nil {
		return
	}
	r.Orders.WithLabelValues(side, outcome).Inc()
}

// Progress updates both display gauges.
func (r *Registry) Progress(rotation, trigger int) {
	if r == nil {
		return
	}
	r.RotationProgress.Set(float64(rotation))
	r.TriggerProgress.Set(float64(trigger))
}

func (r *Registry) Account(buyingPower decimal.Decimal) {
	if r == nil {
		return
	}
	r.BuyingPower.Set(buyingPower.InexactFloat64())
}
