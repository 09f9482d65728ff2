package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"
)

func fill(side types.Side, price, qty, fee float64) types.Trade {
	return types.Trade{
		ID:       "t1",
		Symbol:   "BTCUSDT",
		Time:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Side:     side,
		Price:    decimal.NewFromFloat(price),
		Quantity: decimal.NewFromFloat(qty),
		Fee:      decimal.NewFromFloat(fee),
	}
}

func TestApplyFill_OpenLong(t *testing.T) {
	l := New(decimal.NewFromInt(10000))

	result := l.ApplyFill(fill(types.SideBuy, 100, 1, 0))

	if !l.Cash().Equal(decimal.NewFromInt(9900)) {
		t.Errorf("cash = %s, want 9900", l.Cash())
	}
	if !result.Position.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("quantity = %s, want 1", result.Position.Quantity)
	}
	if !result.Position.AvgEntryPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("avg entry = %s, want 100", result.Position.AvgEntryPrice)
	}
	if !result.Realized.IsZero() {
		t.Errorf("realized = %s, want 0 (opening fill)", result.Realized)
	}
}

func TestApplyFill_AverageUp(t *testing.T) {
	l := New(decimal.NewFromInt(10000))

	l.ApplyFill(fill(types.SideBuy, 100, 1, 0))
	result := l.ApplyFill(fill(types.SideBuy, 110, 1, 0))

	// avg = (1*100 + 1*110) / 2 = 105
	if !result.Position.AvgEntryPrice.Equal(decimal.NewFromInt(105)) {
		t.Errorf("avg entry = %s, want 105", result.Position.AvgEntryPrice)
	}
	if !result.Position.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("quantity = %s, want 2", result.Position.Quantity)
	}
}

func TestApplyFill_CloseRealizes(t *testing.T) {
	l := New(decimal.NewFromInt(10000))

	l.ApplyFill(fill(types.SideBuy, 100, 1, 0))
	result := l.ApplyFill(fill(types.SideSell, 110, 1, 0))

	if !result.Realized.Equal(decimal.NewFromInt(10)) {
		t.Errorf("realized = %s, want 10", result.Realized)
	}
	if !result.ClosedQty.Equal(decimal.NewFromInt(1)) {
		t.Errorf("closed qty = %s, want 1", result.ClosedQty)
	}
	if result.Position.IsOpen() {
		t.Error("position should be flat after full close")
	}
	if !result.Position.AvgEntryPrice.IsZero() {
		t.Errorf("avg entry = %s, want undefined (zero) when flat", result.Position.AvgEntryPrice)
	}
	if !l.Cash().Equal(decimal.NewFromInt(10010)) {
		t.Errorf("cash = %s, want 10010", l.Cash())
	}
}

func TestApplyFill_PartialClose(t *testing.T) {
	l := New(decimal.NewFromInt(10000))

	l.ApplyFill(fill(types.SideBuy, 100, 2, 0))
	result := l.ApplyFill(fill(types.SideSell, 110, 1, 0))

	if !result.Realized.Equal(decimal.NewFromInt(10)) {
		t.Errorf("realized = %s, want 10", result.Realized)
	}
	if !result.Position.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("quantity = %s, want 1", result.Position.Quantity)
	}
	// Average entry price is unchanged by a reduction.
	if !result.Position.AvgEntryPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("avg entry = %s, want 100", result.Position.AvgEntryPrice)
	}
}

func TestApplyFill_Reversal(t *testing.T) {
	l := New(decimal.NewFromInt(10000))

	l.ApplyFill(fill(types.SideBuy, 100, 1, 0))
	result := l.ApplyFill(fill(types.SideSell, 110, 3, 0))

	// 1 closed at +10, remaining 2 short at 110.
	if !result.Realized.Equal(decimal.NewFromInt(10)) {
		t.Errorf("realized = %s, want 10", result.Realized)
	}
	if !result.Position.Quantity.Equal(decimal.NewFromInt(-2)) {
		t.Errorf("quantity = %s, want -2", result.Position.Quantity)
	}
	if !result.Position.AvgEntryPrice.Equal(decimal.NewFromInt(110)) {
		t.Errorf("avg entry = %s, want 110", result.Position.AvgEntryPrice)
	}
}

func TestApplyFill_ShortRealizes(t *testing.T) {
	l := New(decimal.NewFromInt(10000))

	l.ApplyFill(fill(types.SideSell, 100, 1, 0))
	result := l.ApplyFill(fill(types.SideBuy, 90, 1, 0))

	// Short from 100 covered at 90: +10.
	if !result.Realized.Equal(decimal.NewFromInt(10)) {
		t.Errorf("realized = %s, want 10", result.Realized)
	}
	if result.Position.IsOpen() {
		t.Error("position should be flat after cover")
	}
}

func TestApplyFill_Fees(t *testing.T) {
	l := New(decimal.NewFromInt(10000))

	l.ApplyFill(fill(types.SideBuy, 100, 1, 0.1))
	if !l.Cash().Equal(decimal.NewFromFloat(9899.9)) {
		t.Errorf("cash after buy = %s, want 9899.9", l.Cash())
	}

	l.ApplyFill(fill(types.SideSell, 110, 1, 0.11))
	if !l.Cash().Equal(decimal.NewFromFloat(10009.79)) {
		t.Errorf("cash after sell = %s, want 10009.79", l.Cash())
	}
}

func TestEquity_MatchesDecomposition(t *testing.T) {
	l := New(decimal.NewFromInt(10000))
	l.ApplyFill(fill(types.SideBuy, 100, 2, 0))

	marks := map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(105)}

	// cash 9800 + unrealized 10 + entry cost 200 = 10010
	equity := l.Equity(marks)
	want := l.Cash().Add(l.UnrealizedPnL(marks)).Add(decimal.NewFromInt(200))
	if !equity.Equal(want) {
		t.Errorf("equity = %s, want %s", equity, want)
	}
	if !equity.Equal(decimal.NewFromInt(10010)) {
		t.Errorf("equity = %s, want 10010", equity)
	}
}

func TestEquity_ShortPosition(t *testing.T) {
	l := New(decimal.NewFromInt(10000))
	l.ApplyFill(fill(types.SideSell, 100, 1, 0))

	// Cash 10100, short 1 marked at 90: equity = 10100 - 90 = 10010.
	equity := l.Equity(map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(90)})
	if !equity.Equal(decimal.NewFromInt(10010)) {
		t.Errorf("equity = %s, want 10010", equity)
	}
}

func TestOpenPositions_ExcludesFlat(t *testing.T) {
	l := New(decimal.NewFromInt(10000))
	l.ApplyFill(fill(types.SideBuy, 100, 1, 0))
	l.ApplyFill(fill(types.SideSell, 110, 1, 0))

	if got := l.OpenPositions(); len(got) != 0 {
		t.Errorf("open positions = %d, want 0", len(got))
	}

	// Realized history survives on the snapshot.
	snap := l.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot = %d positions, want 1", len(snap))
	}
	if !snap[0].RealizedPnL.Equal(decimal.NewFromInt(10)) {
		t.Errorf("realized = %s, want 10", snap[0].RealizedPnL)
	}
}

func TestRestore_Roundtrip(t *testing.T) {
	l := New(decimal.NewFromInt(10000))
	l.ApplyFill(fill(types.SideBuy, 100, 2, 0))

	restored := Restore(l.Cash(), l.Snapshot())

	if !restored.Cash().Equal(l.Cash()) {
		t.Errorf("cash = %s, want %s", restored.Cash(), l.Cash())
	}
	pos, ok := restored.Position("BTCUSDT")
	if !ok {
		t.Fatal("position missing after restore")
	}
	if !pos.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("quantity = %s, want 2", pos.Quantity)
	}
}
