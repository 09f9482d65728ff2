package indicator

import (
	"math"

	"github.com/shopspring/decimal"
)

// BollingerResult holds the three Bollinger band series, aligned to each
// other with start offset period-1.
type BollingerResult struct {
	Upper  []decimal.Decimal
	Middle []decimal.Decimal
	Lower  []decimal.Decimal
}

// Bollinger calculates Bollinger bands: the SMA of the window plus and minus
// k population standard deviations of the same window.
func Bollinger(values []decimal.Decimal, period int, k decimal.Decimal) BollingerResult {
	if period < 1 || len(values) < period {
		return BollingerResult{}
	}

	middle := SMA(values, period)
	upper := make([]decimal.Decimal, len(middle))
	lower := make([]decimal.Decimal, len(middle))

	for i := range middle {
		sd := StdDev(values[i : i+period])
		band := sd.Mul(k)
		upper[i] = middle[i].Add(band)
		lower[i] = middle[i].Sub(band)
	}

	return BollingerResult{Upper: upper, Middle: middle, Lower: lower}
}

// StdDev returns the population standard deviation of the values.
// The square root goes through float64, matching the precision the rest of
// the metrics pipeline carries.
func StdDev(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	m := Mean(values)
	sumSquares := decimal.Zero
	for _, v := range values {
		diff := v.Sub(m)
		sumSquares = sumSquares.Add(diff.Mul(diff))
	}

	variance := sumSquares.Div(decimal.NewFromInt(int64(len(values))))
	f := variance.InexactFloat64()
	if f <= 0 {
		return decimal.Zero
	}

	return decimal.NewFromFloat(math.Sqrt(f))
}
