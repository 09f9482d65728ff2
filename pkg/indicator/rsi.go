package indicator

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RSI calculates the Wilder relative strength index over the given period.
// The lookback is period+1 bars (period price changes). When the average loss
// over a window is zero the RSI is 100.
func RSI(values []decimal.Decimal, period int) []decimal.Decimal {
	if period < 1 || len(values) < period+1 {
		return nil
	}

	gains := make([]decimal.Decimal, len(values)-1)
	losses := make([]decimal.Decimal, len(values)-1)
	for i := 1; i < len(values); i++ {
		delta := values[i].Sub(values[i-1])
		if delta.IsPositive() {
			gains[i-1] = delta
			losses[i-1] = decimal.Zero
		} else {
			gains[i-1] = decimal.Zero
			losses[i-1] = delta.Neg()
		}
	}

	out := make([]decimal.Decimal, 0, len(values)-period)
	one := decimal.NewFromInt(1)

	for i := period - 1; i < len(gains); i++ {
		avgGain := Mean(gains[i-period+1 : i+1])
		avgLoss := Mean(losses[i-period+1 : i+1])

		if avgLoss.IsZero() {
			out = append(out, hundred)
			continue
		}

		rs := avgGain.Div(avgLoss)
		rsi := hundred.Sub(hundred.Div(one.Add(rs)))
		out = append(out, rsi)
	}

	return out
}
