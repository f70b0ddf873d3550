package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics: счётчики бота в собственном реестре.
type Metrics struct {
	reg *prometheus.Registry

	cycles        *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	orders        *prometheus.CounterVec
	openPositions prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_cycles_total",
			Help: "Control loop passes by run state.",
		}, []string{"state"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_decisions_total",
			Help: "Fusion decisions by instrument and signal.",
		}, []string{"instrument", "signal"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Orders sent to the exchange by kind and result.",
		}, []string{"kind", "result"}),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_open_positions",
			Help: "Positions currently tracked.",
		}),
	}
	m.reg.MustRegister(
		m.cycles, m.decisions, m.orders, m.openPositions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Cycle(state string) { m.cycles.WithLabelValues(state).Inc() }

func (m *Metrics) Decision(instrument, signal string) {
	m.decisions.WithLabelValues(instrument, signal).Inc()
}

// Order считает ордер с result "ok" или "error".
func (m *Metrics) Order(kind string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.orders.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) OpenPositions(n int) { m.openPositions.Set(float64(n)) }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
