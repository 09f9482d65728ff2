package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder("TESTSYM1", "smacross")

	r.SignalsEmitted(2)
	r.SignalsEmitted(0) // no-op
	r.FillsExecuted(1)
	r.OrdersRejected(3)
	r.FaultsRecorded(1)

	if got := testutil.ToFloat64(SignalsTotal.WithLabelValues("TESTSYM1", "smacross")); got != 2 {
		t.Errorf("signals = %v, want 2", got)
	}
	if got := testutil.ToFloat64(FillsTotal.WithLabelValues("TESTSYM1", "smacross")); got != 1 {
		t.Errorf("fills = %v, want 1", got)
	}
	if got := testutil.ToFloat64(RejectionsTotal.WithLabelValues("TESTSYM1", "smacross")); got != 3 {
		t.Errorf("rejections = %v, want 3", got)
	}
	if got := testutil.ToFloat64(FaultsTotal.WithLabelValues("TESTSYM1", "smacross")); got != 1 {
		t.Errorf("faults = %v, want 1", got)
	}
}

func TestRecorder_Gauges(t *testing.T) {
	r := NewRecorder("TESTSYM2", "rsireversion")

	r.EquityUpdated(decimal.NewFromInt(10500), decimal.NewFromFloat(0.045))

	if got := testutil.ToFloat64(EquityCurrent.WithLabelValues("TESTSYM2", "rsireversion")); got != 10500 {
		t.Errorf("equity gauge = %v, want 10500", got)
	}
	if got := testutil.ToFloat64(DrawdownCurrent.WithLabelValues("TESTSYM2", "rsireversion")); got != 0.045 {
		t.Errorf("drawdown gauge = %v, want 0.045", got)
	}
}

func TestRecorder_Latency(t *testing.T) {
	r := NewRecorder("TESTSYM3", "smacross")

	// Histograms cannot be read back as a single value; exercising the
	// observation path is enough to catch label mistakes.
	r.StrategyLatency(500 * time.Microsecond)
}

func TestMetricsRegistered(t *testing.T) {
	collectors := []prometheus.Collector{
		SignalsTotal,
		FillsTotal,
		RejectionsTotal,
		FaultsTotal,
		EquityCurrent,
		DrawdownCurrent,
		StrategyLatency,
	}
	for i, c := range collectors {
		if c == nil {
			t.Errorf("collector %d is nil", i)
		}
	}
}
