// Package ledger tracks cash and positions and applies fills with
// weighted-average cost accounting.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"
)

// Ledger owns the cash balance and the net position per symbol. Positions are
// stored in a map keyed by symbol; trades reference positions by symbol and
// positions never hold references back to trades.
type Ledger struct {
	cash      decimal.Decimal
	positions map[string]*types.Position
}

// New creates a ledger with the given starting cash.
func New(initialCash decimal.Decimal) *Ledger {
	return &Ledger{
		cash:      initialCash,
		positions: make(map[string]*types.Position),
	}
}

// FillResult describes the effect of applying one fill.
type FillResult struct {
	Position  types.Position
	Realized  decimal.Decimal // P&L realized by the closed portion, if any
	ClosedQty decimal.Decimal // absolute quantity closed by this fill
}

// ApplyFill applies a fill to the ledger: cash moves by the fill value plus
// fee, and the position for the fill's symbol is recomputed. A fill that
// extends a same-direction position updates the weighted-average entry price;
// a fill that reduces or reverses a position realizes P&L for the closed
// portion, and any excess quantity re-opens the position at the fill price.
func (l *Ledger) ApplyFill(fill types.Trade) FillResult {
	value := fill.Price.Mul(fill.Quantity)
	if fill.Side == types.SideBuy {
		l.cash = l.cash.Sub(value).Sub(fill.Fee)
	} else {
		l.cash = l.cash.Add(value).Sub(fill.Fee)
	}

	pos, ok := l.positions[fill.Symbol]
	if !ok {
		pos = &types.Position{Symbol: fill.Symbol}
		l.positions[fill.Symbol] = pos
	}

	signedQty := fill.Quantity.Mul(fill.Side.Sign())
	result := FillResult{}

	switch {
	case pos.Quantity.IsZero() || pos.Quantity.Sign() == signedQty.Sign():
		// Opening or extending: recompute the weighted-average entry price.
		newQty := pos.Quantity.Add(signedQty)
		pos.AvgEntryPrice = pos.Quantity.Mul(pos.AvgEntryPrice).
			Add(signedQty.Mul(fill.Price)).
			Div(newQty)
		pos.Quantity = newQty

	default:
		closed := decimal.Min(pos.Quantity.Abs(), signedQty.Abs())
		direction := decimal.NewFromInt(int64(pos.Quantity.Sign()))
		realized := closed.Mul(fill.Price.Sub(pos.AvgEntryPrice)).Mul(direction)

		pos.RealizedPnL = pos.RealizedPnL.Add(realized)
		result.Realized = realized
		result.ClosedQty = closed

		remaining := pos.Quantity.Add(signedQty)
		if remaining.IsZero() {
			// Flat: the average entry price is undefined.
			pos.Quantity = decimal.Zero
			pos.AvgEntryPrice = decimal.Zero
		} else if remaining.Sign() == pos.Quantity.Sign() {
			pos.Quantity = remaining
		} else {
			// Reversal: the excess starts a new position at the fill price.
			pos.Quantity = remaining
			pos.AvgEntryPrice = fill.Price
		}
	}

	result.Position = *pos
	return result
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() decimal.Decimal {
	return l.cash
}

// Position returns the position for a symbol and whether one exists.
func (l *Ledger) Position(symbol string) (types.Position, bool) {
	pos, ok := l.positions[symbol]
	if !ok {
		return types.Position{}, false
	}
	return *pos, true
}

// OpenPositions returns all positions with nonzero quantity, sorted by
// symbol for deterministic iteration.
func (l *Ledger) OpenPositions() []types.Position {
	out := make([]types.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		if pos.IsOpen() {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Equity returns the portfolio value at the given mark prices:
// cash plus quantity times mark across open positions. Positions without a
// mark are valued at their entry price.
func (l *Ledger) Equity(marks map[string]decimal.Decimal) decimal.Decimal {
	equity := l.cash
	for symbol, pos := range l.positions {
		if !pos.IsOpen() {
			continue
		}
		mark, ok := marks[symbol]
		if !ok {
			mark = pos.AvgEntryPrice
		}
		equity = equity.Add(pos.Quantity.Mul(mark))
	}
	return equity
}

// UnrealizedPnL returns the open profit across positions at the given marks.
func (l *Ledger) UnrealizedPnL(marks map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for symbol, pos := range l.positions {
		if !pos.IsOpen() {
			continue
		}
		if mark, ok := marks[symbol]; ok {
			total = total.Add(pos.UnrealizedPnL(mark))
		}
	}
	return total
}

// Snapshot returns a copy of all positions, including flat ones that carry
// realized P&L history.
func (l *Ledger) Snapshot() []types.Position {
	out := make([]types.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Restore rebuilds a ledger from a persisted snapshot.
func Restore(cash decimal.Decimal, positions []types.Position) *Ledger {
	l := New(cash)
	for _, pos := range positions {
		p := pos
		l.positions[pos.Symbol] = &p
	}
	return l
}
