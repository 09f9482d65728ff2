package indicator

import (
	"github.com/shopspring/decimal"
)

// MACDResult holds the three MACD series, aligned to each other. The first
// value of each series corresponds to input index
// slowPeriod + signalPeriod - 2.
type MACDResult struct {
	MACD      []decimal.Decimal
	Signal    []decimal.Decimal
	Histogram []decimal.Decimal
}

// MACD calculates moving average convergence divergence: the fast EMA minus
// the slow EMA, a signal line (EMA of the MACD line over signalPeriod) and the
// histogram (MACD minus signal).
func MACD(values []decimal.Decimal, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	if fastPeriod < 1 || slowPeriod < fastPeriod || signalPeriod < 1 {
		return MACDResult{}
	}
	if len(values) < slowPeriod+signalPeriod-1 {
		return MACDResult{}
	}

	fast := EMA(values, fastPeriod)
	slow := EMA(values, slowPeriod)

	// The slow EMA starts slowPeriod-fastPeriod values later than the fast.
	line := make([]decimal.Decimal, len(slow))
	offset := slowPeriod - fastPeriod
	for i := range slow {
		line[i] = fast[i+offset].Sub(slow[i])
	}

	signal := EMA(line, signalPeriod)

	// Trim the MACD line so all three series share the same start offset.
	line = line[signalPeriod-1:]

	histogram := make([]decimal.Decimal, len(signal))
	for i := range signal {
		histogram[i] = line[i].Sub(signal[i])
	}

	return MACDResult{MACD: line, Signal: signal, Histogram: histogram}
}
