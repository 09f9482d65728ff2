package indicator

import (
	"github.com/shopspring/decimal"
)

// EMA calculates the exponential moving average over the given period.
// The first output is seeded with the SMA of the first period values, after
// which each value is smoothed recursively with multiplier 2/(period+1).
func EMA(values []decimal.Decimal, period int) []decimal.Decimal {
	if period < 1 || len(values) < period {
		return nil
	}

	out := make([]decimal.Decimal, 0, len(values)-period+1)

	seed := Mean(values[:period])
	out = append(out, seed)

	multiplier := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period) + 1))
	one := decimal.NewFromInt(1)

	prev := seed
	for _, v := range values[period:] {
		prev = v.Mul(multiplier).Add(prev.Mul(one.Sub(multiplier)))
		out = append(out, prev)
	}

	return out
}
