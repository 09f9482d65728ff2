package datafeed

import (
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"
)

// SyntheticConfig controls the generated random walk.
type SyntheticConfig struct {
	Bars       int
	StartPrice decimal.Decimal
	Volatility float64       // per-bar stdev of returns, e.g. 0.02
	Drift      float64       // per-bar mean return
	Start      time.Time     // first bar time
	Interval   time.Duration // bar spacing
	Seed       int64
}

// DefaultSyntheticConfig returns a daily walk resembling the demo data the
// CLI ships with.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Bars:       252,
		StartPrice: decimal.NewFromInt(100),
		Volatility: 0.02,
		Drift:      0.0005,
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:   24 * time.Hour,
		Seed:       42,
	}
}

// Synthetic generates a deterministic bar sequence from a seeded random
// walk. The same config always yields the same bars, so demo backtests are
// reproducible.
func Synthetic(cfg SyntheticConfig) []types.Bar {
	if cfg.Bars <= 0 {
		return nil
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	bars := make([]types.Bar, cfg.Bars)
	price := cfg.StartPrice.InexactFloat64()

	for i := range bars {
		open := price
		ret := cfg.Drift + rng.NormFloat64()*cfg.Volatility
		close := open * (1 + ret)
		if close < 0.01 {
			close = 0.01
		}

		// Wicks extend a fraction of the bar's own range beyond the body.
		wick := math.Abs(close-open) * rng.Float64()
		high := math.Max(open, close) + wick
		low := math.Min(open, close) - wick
		if low < 0.01 {
			low = 0.01
		}

		bars[i] = types.Bar{
			Time:   cfg.Start.Add(time.Duration(i) * cfg.Interval),
			Open:   round4(open),
			High:   round4(high),
			Low:    round4(low),
			Close:  round4(close),
			Volume: decimal.NewFromInt(1000 + rng.Int63n(9000)),
		}
		price = close
	}

	return bars
}

func round4(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(4)
}
