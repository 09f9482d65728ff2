// Package types defines shared types used across the simulation core.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the direction of an order or fill.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// SideFromString parses the string form produced by String.
func SideFromString(s string) Side {
	if s == "SELL" {
		return SideSell
	}
	return SideBuy
}

// Sign returns +1 for buys and -1 for sells, as a decimal multiplier.
func (s Side) Sign() decimal.Decimal {
	if s == SideSell {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// OrderType represents how an order is priced.
type OrderType int

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
)

func (t OrderType) String() string {
	if t == OrderTypeLimit {
		return "LIMIT"
	}
	return "MARKET"
}

// OrderStatus represents the state of an order.
// Transitions only move forward: pending orders become filled, cancelled or
// rejected, and terminal states are final.
type OrderStatus int

const (
	OrderStatusPending OrderStatus = iota
	OrderStatusFilled
	OrderStatusCancelled
	OrderStatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusCancelled:
		return "CANCELLED"
	case OrderStatusRejected:
		return "REJECTED"
	default:
		return "PENDING"
	}
}

// IsFinal returns true if the order is in a terminal state.
func (s OrderStatus) IsFinal() bool {
	return s != OrderStatusPending
}

// Bar is one OHLCV sample for a time interval. Bars are immutable once
// produced and sequences are strictly time ordered with no duplicates.
type Bar struct {
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// Signal is a trading instruction emitted by a strategy for a given bar.
// Signals are never mutated after creation.
type Signal struct {
	Time       time.Time
	Symbol     string
	Side       Side
	Quantity   decimal.Decimal
	Type       OrderType
	LimitPrice decimal.Decimal // zero for market orders
	Reason     string
}

// Order is a pending or settled trading instruction.
type Order struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Type       OrderType       `json:"type"`
	Quantity   decimal.Decimal `json:"quantity"`
	LimitPrice decimal.Decimal `json:"limit_price"`
	Status     OrderStatus     `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Trade records the execution of an order. One order maps to exactly one
// trade: the matching engine fills orders completely or not at all, never
// partially. RealizedPnL and ClosedQty are filled in by the ledger when the
// fill reduces an existing position.
type Trade struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	Symbol      string          `json:"symbol"`
	Time        time.Time       `json:"time"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Fee         decimal.Decimal `json:"fee"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	ClosedQty   decimal.Decimal `json:"closed_qty"`
}

// Position is the net holding in one symbol. Quantity is signed: positive for
// long, negative for short. AvgEntryPrice is defined iff Quantity is nonzero.
type Position struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
}

// IsOpen returns true if the position has a nonzero quantity.
func (p Position) IsOpen() bool {
	return !p.Quantity.IsZero()
}

// UnrealizedPnL returns the open profit at the given mark price.
func (p Position) UnrealizedPnL(mark decimal.Decimal) decimal.Decimal {
	if p.Quantity.IsZero() {
		return decimal.Zero
	}
	return p.Quantity.Mul(mark.Sub(p.AvgEntryPrice))
}

// EquityPoint is one sample of the portfolio value time series.
type EquityPoint struct {
	Time   time.Time       `json:"time"`
	Equity decimal.Decimal `json:"equity"`
}
