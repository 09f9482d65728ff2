package metrics

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recorder feeds simulation events into the Prometheus collectors. It
// implements the replay driver's Observer interface for one session.
type Recorder struct {
	symbol   string
	strategy string
}

// NewRecorder creates a recorder labelled with the session's symbol and
// strategy name.
func NewRecorder(symbol, strategy string) *Recorder {
	return &Recorder{symbol: symbol, strategy: strategy}
}

// SignalsEmitted counts signals that passed validation.
func (r *Recorder) SignalsEmitted(n int) {
	if n > 0 {
		SignalsTotal.WithLabelValues(r.symbol, r.strategy).Add(float64(n))
	}
}

// FillsExecuted counts fills settled into the ledger.
func (r *Recorder) FillsExecuted(n int) {
	if n > 0 {
		FillsTotal.WithLabelValues(r.symbol, r.strategy).Add(float64(n))
	}
}

// OrdersRejected counts rejected orders.
func (r *Recorder) OrdersRejected(n int) {
	if n > 0 {
		RejectionsTotal.WithLabelValues(r.symbol, r.strategy).Add(float64(n))
	}
}

// FaultsRecorded counts strategy faults.
func (r *Recorder) FaultsRecorded(n int) {
	if n > 0 {
		FaultsTotal.WithLabelValues(r.symbol, r.strategy).Add(float64(n))
	}
}

// EquityUpdated sets the equity and drawdown gauges.
func (r *Recorder) EquityUpdated(equity, drawdown decimal.Decimal) {
	EquityCurrent.WithLabelValues(r.symbol, r.strategy).Set(equity.InexactFloat64())
	DrawdownCurrent.WithLabelValues(r.symbol, r.strategy).Set(drawdown.InexactFloat64())
}

// StrategyLatency observes one decision's duration.
func (r *Recorder) StrategyLatency(d time.Duration) {
	StrategyLatency.WithLabelValues(r.strategy).Observe(d.Seconds())
}
