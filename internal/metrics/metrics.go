// Package metrics exposes Prometheus instrumentation for simulations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignalsTotal counts signals emitted by strategies.
	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simcore_signals_total",
		Help: "Signals emitted by strategies.",
	}, []string{"symbol", "strategy"})

	// FillsTotal counts executed fills.
	FillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simcore_fills_total",
		Help: "Orders filled by the matching engine.",
	}, []string{"symbol", "strategy"})

	// RejectionsTotal counts rejected orders.
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simcore_order_rejections_total",
		Help: "Orders rejected for invalid quantity or insufficient cash.",
	}, []string{"symbol", "strategy"})

	// FaultsTotal counts strategy faults.
	FaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simcore_strategy_faults_total",
		Help: "Strategy calls that panicked, errored, timed out or emitted invalid signals.",
	}, []string{"symbol", "strategy"})

	// EquityCurrent tracks the latest equity per session symbol.
	EquityCurrent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simcore_equity",
		Help: "Current portfolio equity.",
	}, []string{"symbol", "strategy"})

	// DrawdownCurrent tracks the live drawdown from the running peak.
	DrawdownCurrent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simcore_drawdown",
		Help: "Current drawdown from the equity high-water mark.",
	}, []string{"symbol", "strategy"})

	// StrategyLatency observes per-bar strategy decision time.
	StrategyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simcore_strategy_latency_seconds",
		Help:    "Per-bar strategy decision latency.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"strategy"})
)
