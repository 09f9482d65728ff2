package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"
	"github.com/marketforge/simcore/pkg/indicator"
)

// SMACrossConfig holds configuration for the moving-average cross strategy.
type SMACrossConfig struct {
	Symbol     string
	Quantity   decimal.Decimal
	FastPeriod int // short moving-average window
	SlowPeriod int // long moving-average window
}

// DefaultSMACrossConfig returns sensible defaults.
func DefaultSMACrossConfig() SMACrossConfig {
	return SMACrossConfig{
		FastPeriod: 20,
		SlowPeriod: 50,
		Quantity:   decimal.NewFromInt(1),
	}
}

// SMACross trades moving-average crossovers.
// Generates a market buy when the fast average crosses above the slow one,
// and a market sell when it crosses back below.
type SMACross struct {
	cfg SMACrossConfig
}

// NewSMACross creates a moving-average cross strategy.
func NewSMACross(cfg SMACrossConfig) (*SMACross, error) {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= cfg.FastPeriod {
		return nil, fmt.Errorf("%w: smacross needs 0 < fast_period < slow_period", types.ErrInvalidConfig)
	}
	if !cfg.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: smacross quantity must be positive", types.ErrInvalidConfig)
	}
	return &SMACross{cfg: cfg}, nil
}

func newSMACrossFromParams(p Params) (Strategy, error) {
	def := DefaultSMACrossConfig()
	return NewSMACross(SMACrossConfig{
		Symbol:     p.Symbol,
		Quantity:   p.Quantity,
		FastPeriod: p.intOption("fast_period", def.FastPeriod),
		SlowPeriod: p.intOption("slow_period", def.SlowPeriod),
	})
}

// Name returns the strategy name.
func (s *SMACross) Name() string {
	return "smacross"
}

// Decide emits a signal when the fast and slow averages cross between the
// previous bar and the current one. It needs slow_period+1 bars of history
// before it can compare two consecutive average values.
func (s *SMACross) Decide(ctx context.Context, history []types.Bar) ([]types.Signal, error) {
	if len(history) < s.cfg.SlowPeriod+1 {
		return nil, nil
	}

	closes := make([]decimal.Decimal, len(history))
	for i, bar := range history {
		closes[i] = bar.Close
	}

	fast := indicator.SMA(closes, s.cfg.FastPeriod)
	slow := indicator.SMA(closes, s.cfg.SlowPeriod)

	fastPrev, fastCur := fast[len(fast)-2], fast[len(fast)-1]
	slowPrev, slowCur := slow[len(slow)-2], slow[len(slow)-1]
	bar := history[len(history)-1]

	switch {
	case fastPrev.LessThanOrEqual(slowPrev) && fastCur.GreaterThan(slowCur):
		return []types.Signal{{
			Time:     bar.Time,
			Symbol:   s.cfg.Symbol,
			Side:     types.SideBuy,
			Quantity: s.cfg.Quantity,
			Type:     types.OrderTypeMarket,
			Reason: fmt.Sprintf("fast sma %.2f crossed above slow sma %.2f",
				fastCur.InexactFloat64(), slowCur.InexactFloat64()),
		}}, nil

	case fastPrev.GreaterThanOrEqual(slowPrev) && fastCur.LessThan(slowCur):
		return []types.Signal{{
			Time:     bar.Time,
			Symbol:   s.cfg.Symbol,
			Side:     types.SideSell,
			Quantity: s.cfg.Quantity,
			Type:     types.OrderTypeMarket,
			Reason: fmt.Sprintf("fast sma %.2f crossed below slow sma %.2f",
				fastCur.InexactFloat64(), slowCur.InexactFloat64()),
		}}, nil
	}

	return nil, nil
}
