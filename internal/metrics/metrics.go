// Package metrics exposes prometheus instrumentation for the issuance engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the engine's metric families. Registration happens against
// an injected registerer so tests can run isolated collectors.
type Collector struct {
	tradesTotal      *prometheus.CounterVec
	tradeDuration    *prometheus.HistogramVec
	graduationsTotal *prometheus.CounterVec
	curveSupply      *prometheus.GaugeVec
	curveReserves    *prometheus.GaugeVec
	tokensLaunched   prometheus.Counter
}

// NewCollector builds and registers all metric families.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "curvelaunch",
				Name:      "trades_total",
				Help:      "Total number of curve trades processed",
			},
			[]string{"direction", "status"},
		),
		tradeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "curvelaunch",
				Name:      "trade_duration_seconds",
				Help:      "Trade execution duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
			[]string{"direction"},
		),
		graduationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "curvelaunch",
				Name:      "graduations_total",
				Help:      "Graduation attempts by outcome",
			},
			[]string{"status"},
		),
		curveSupply: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "curvelaunch",
				Name:      "curve_supply",
				Help:      "Current minted supply per token",
			},
			[]string{"mint"},
		),
		curveReserves: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "curvelaunch",
				Name:      "curve_reserves",
				Help:      "Current base-currency reserves per token",
			},
			[]string{"mint"},
		),
		tokensLaunched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "curvelaunch",
				Name:      "tokens_launched_total",
				Help:      "Total number of tokens deployed by the factory",
			},
		),
	}

	reg.MustRegister(
		c.tradesTotal,
		c.tradeDuration,
		c.graduationsTotal,
		c.curveSupply,
		c.curveReserves,
		c.tokensLaunched,
	)
	return c
}

// RecordTrade records one trade attempt.
func (c *Collector) RecordTrade(direction string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	c.tradesTotal.WithLabelValues(direction, status).Inc()
	c.tradeDuration.WithLabelValues(direction).Observe(duration.Seconds())
}

// RecordGraduation records one graduation attempt.
func (c *Collector) RecordGraduation(success bool) {
	if c == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	c.graduationsTotal.WithLabelValues(status).Inc()
}

// SetCurveState updates the per-token gauges after a trade settles.
func (c *Collector) SetCurveState(mint string, supply, reserves float64) {
	if c == nil {
		return
	}
	c.curveSupply.WithLabelValues(mint).Set(supply)
	c.curveReserves.WithLabelValues(mint).Set(reserves)
}

// RecordLaunch counts a factory deployment.
func (c *Collector) RecordLaunch() {
	if c == nil {
		return
	}
	c.tokensLaunched.Inc()
}
