package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"
	"github.com/marketforge/simcore/pkg/indicator"
)

// RSIReversionConfig holds configuration for the RSI reversion strategy.
type RSIReversionConfig struct {
	Symbol     string
	Quantity   decimal.Decimal
	Period     int             // RSI lookback
	Oversold   decimal.Decimal // buy when RSI drops through this level
	Overbought decimal.Decimal // sell when RSI rises through this level
}

// DefaultRSIReversionConfig returns sensible defaults.
func DefaultRSIReversionConfig() RSIReversionConfig {
	return RSIReversionConfig{
		Period:     14,
		Oversold:   decimal.NewFromInt(30),
		Overbought: decimal.NewFromInt(70),
		Quantity:   decimal.NewFromInt(1),
	}
}

// RSIReversion trades oversold and overbought RSI extremes.
// Signals fire on the threshold crossing, not while the level holds, so a
// prolonged oversold stretch produces one entry rather than one per bar.
type RSIReversion struct {
	cfg RSIReversionConfig
}

// NewRSIReversion creates an RSI reversion strategy.
func NewRSIReversion(cfg RSIReversionConfig) (*RSIReversion, error) {
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("%w: rsireversion period must be positive", types.ErrInvalidConfig)
	}
	if cfg.Oversold.GreaterThanOrEqual(cfg.Overbought) {
		return nil, fmt.Errorf("%w: rsireversion needs oversold < overbought", types.ErrInvalidConfig)
	}
	if !cfg.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: rsireversion quantity must be positive", types.ErrInvalidConfig)
	}
	return &RSIReversion{cfg: cfg}, nil
}

func newRSIReversionFromParams(p Params) (Strategy, error) {
	def := DefaultRSIReversionConfig()
	return NewRSIReversion(RSIReversionConfig{
		Symbol:     p.Symbol,
		Quantity:   p.Quantity,
		Period:     p.intOption("period", def.Period),
		Oversold:   p.decimalOption("oversold", def.Oversold),
		Overbought: p.decimalOption("overbought", def.Overbought),
	})
}

// Name returns the strategy name.
func (r *RSIReversion) Name() string {
	return "rsireversion"
}

// Decide compares the last two RSI values and emits a signal on a threshold
// crossing. It needs period+2 bars before two RSI values exist.
func (r *RSIReversion) Decide(ctx context.Context, history []types.Bar) ([]types.Signal, error) {
	if len(history) < r.cfg.Period+2 {
		return nil, nil
	}

	closes := make([]decimal.Decimal, len(history))
	for i, bar := range history {
		closes[i] = bar.Close
	}

	rsi := indicator.RSI(closes, r.cfg.Period)
	prev, cur := rsi[len(rsi)-2], rsi[len(rsi)-1]
	bar := history[len(history)-1]

	switch {
	case prev.GreaterThanOrEqual(r.cfg.Oversold) && cur.LessThan(r.cfg.Oversold):
		return []types.Signal{{
			Time:     bar.Time,
			Symbol:   r.cfg.Symbol,
			Side:     types.SideBuy,
			Quantity: r.cfg.Quantity,
			Type:     types.OrderTypeMarket,
			Reason: fmt.Sprintf("rsi %.2f dropped below %.2f",
				cur.InexactFloat64(), r.cfg.Oversold.InexactFloat64()),
		}}, nil

	case prev.LessThanOrEqual(r.cfg.Overbought) && cur.GreaterThan(r.cfg.Overbought):
		return []types.Signal{{
			Time:     bar.Time,
			Symbol:   r.cfg.Symbol,
			Side:     types.SideSell,
			Quantity: r.cfg.Quantity,
			Type:     types.OrderTypeMarket,
			Reason: fmt.Sprintf("rsi %.2f rose above %.2f",
				cur.InexactFloat64(), r.cfg.Overbought.InexactFloat64()),
		}}, nil
	}

	return nil, nil
}
