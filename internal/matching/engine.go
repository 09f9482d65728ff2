// Package matching decides which pending orders fill against an incoming bar.
//
// The engine applies a single-full-fill policy: an order either fills
// completely on a bar or stays pending. There are no partial fills, so
// callers must not assume partial-fill semantics.
package matching

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"
)

// Config holds fill simulation parameters.
type Config struct {
	// FeeRate is charged on every fill as feeRate * price * quantity,
	// deducted from cash on buys and from proceeds on sells.
	FeeRate decimal.Decimal

	// Slippage is the price fraction market orders pay against their side:
	// buys fill at open*(1+slippage), sells at open*(1-slippage).
	Slippage decimal.Decimal
}

// Engine matches pending orders against bars.
type Engine struct {
	cfg Config
}

// NewEngine creates a matching engine with the given fee and slippage policy.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Result holds the outcome of matching one bar.
type Result struct {
	Fills    []types.Trade
	Pending  []types.Order
	Rejected []types.Order
}

// Match runs all pending orders against the bar, in insertion order.
//
// Market orders always fill at the bar open adjusted by slippage. Limit
// orders fill only when the bar's [low, high] range crosses the limit price.
// A buy is rejected at match time when the available cash cannot cover the
// prospective fill cost including fees; cash committed by earlier buy fills
// within the same bar is no longer available to later orders. Sell proceeds
// do not free up cash until the bar is settled by the ledger.
func (e *Engine) Match(pending []types.Order, bar types.Bar, cash decimal.Decimal) Result {
	result := Result{}
	available := cash

	for _, order := range pending {
		if !order.Quantity.IsPositive() {
			order.Status = types.OrderStatusRejected
			result.Rejected = append(result.Rejected, order)
			continue
		}

		price, crossed := e.fillPrice(order, bar)
		if !crossed {
			result.Pending = append(result.Pending, order)
			continue
		}

		fee := e.cfg.FeeRate.Mul(price).Mul(order.Quantity)

		if order.Side == types.SideBuy {
			cost := price.Mul(order.Quantity).Add(fee)
			if available.LessThan(cost) {
				order.Status = types.OrderStatusRejected
				result.Rejected = append(result.Rejected, order)
				continue
			}
			available = available.Sub(cost)
		}

		order.Status = types.OrderStatusFilled
		result.Fills = append(result.Fills, types.Trade{
			ID:       uuid.New().String(),
			OrderID:  order.ID,
			Symbol:   order.Symbol,
			Time:     bar.Time,
			Side:     order.Side,
			Price:    price,
			Quantity: order.Quantity,
			Fee:      fee,
		})
	}

	return result
}

// fillPrice returns the execution price for the order against the bar and
// whether the order fills at all.
func (e *Engine) fillPrice(order types.Order, bar types.Bar) (decimal.Decimal, bool) {
	switch order.Type {
	case types.OrderTypeMarket:
		one := decimal.NewFromInt(1)
		if order.Side == types.SideBuy {
			return bar.Open.Mul(one.Add(e.cfg.Slippage)), true
		}
		return bar.Open.Mul(one.Sub(e.cfg.Slippage)), true

	case types.OrderTypeLimit:
		if order.Side == types.SideBuy {
			if bar.Low.LessThanOrEqual(order.LimitPrice) {
				return decimal.Min(order.LimitPrice, bar.Open), true
			}
			return decimal.Zero, false
		}
		if bar.High.GreaterThanOrEqual(order.LimitPrice) {
			return decimal.Max(order.LimitPrice, bar.Open), true
		}
		return decimal.Zero, false

	default:
		// Unknown order types never fill; callers validate types upstream.
		return decimal.Zero, false
	}
}

// NewOrder builds a pending order from a strategy signal.
func NewOrder(signal types.Signal) types.Order {
	return types.Order{
		ID:         uuid.New().String(),
		Symbol:     signal.Symbol,
		Side:       signal.Side,
		Type:       signal.Type,
		Quantity:   signal.Quantity,
		LimitPrice: signal.LimitPrice,
		Status:     types.OrderStatusPending,
		CreatedAt:  signal.Time,
	}
}

// Validate checks the engine configuration.
func (c Config) Validate() error {
	if c.FeeRate.IsNegative() || c.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: fee_rate must be in [0, 1)", types.ErrInvalidConfig)
	}
	if c.Slippage.IsNegative() || c.Slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: slippage must be in [0, 1)", types.ErrInvalidConfig)
	}
	return nil
}
