// Package indicator provides technical indicator calculations over price
// sequences. All functions are pure: given an input of n closes and a lookback
// of L, they return n-L+1 values aligned to the end of each window, or an
// empty slice when the input is shorter than the lookback. Callers map
// outputs back to bar timestamps with an index offset of L-1.
package indicator

import (
	"github.com/shopspring/decimal"
)

// SMA calculates the simple moving average over the given period.
func SMA(values []decimal.Decimal, period int) []decimal.Decimal {
	if period < 1 || len(values) < period {
		return nil
	}

	out := make([]decimal.Decimal, 0, len(values)-period+1)
	periodDec := decimal.NewFromInt(int64(period))

	sum := decimal.Zero
	for i, v := range values {
		sum = sum.Add(v)
		if i >= period {
			sum = sum.Sub(values[i-period])
		}
		if i >= period-1 {
			out = append(out, sum.Div(periodDec))
		}
	}

	return out
}

// Mean returns the arithmetic mean of the values, or zero for empty input.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}

	return sum.Div(decimal.NewFromInt(int64(len(values))))
}
