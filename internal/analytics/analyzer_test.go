package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"
)

func curve(equities ...float64) []types.EquityPoint {
	points := make([]types.EquityPoint, len(equities))
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, e := range equities {
		points[i] = types.EquityPoint{
			Time:   start.Add(time.Duration(i) * 24 * time.Hour),
			Equity: decimal.NewFromFloat(e),
		}
	}
	return points
}

func closedTrade(pnl float64) types.Trade {
	return types.Trade{
		RealizedPnL: decimal.NewFromFloat(pnl),
		ClosedQty:   decimal.NewFromInt(1),
	}
}

func TestAnalyze_MaxDrawdown(t *testing.T) {
	a := NewAnalyzer(0)

	m := a.Analyze(decimal.NewFromInt(100), nil, curve(100, 120, 90, 130))

	// Peak 120 to trough 90: (120-90)/120 = 0.25, reported negative.
	if !m.MaxDrawdown.Equal(decimal.NewFromFloat(-0.25)) {
		t.Errorf("max drawdown = %s, want -0.25", m.MaxDrawdown)
	}
}

func TestAnalyze_MonotonicCurveHasNoDrawdown(t *testing.T) {
	a := NewAnalyzer(0)

	m := a.Analyze(decimal.NewFromInt(100), nil, curve(100, 110, 120, 130))

	if !m.MaxDrawdown.IsZero() {
		t.Errorf("max drawdown = %s, want 0", m.MaxDrawdown)
	}
}

func TestAnalyze_WinRateOverClosedTrades(t *testing.T) {
	a := NewAnalyzer(0)

	trades := []types.Trade{
		{}, // opening fill, no closed quantity
		closedTrade(10),
		closedTrade(-4),
		closedTrade(6),
	}
	m := a.Analyze(decimal.NewFromInt(10000), trades, curve(10000, 10012))

	if m.TotalTrades != 4 {
		t.Errorf("total trades = %d, want 4", m.TotalTrades)
	}
	if m.ClosedTrades != 3 {
		t.Errorf("closed trades = %d, want 3", m.ClosedTrades)
	}
	if m.WinningTrades != 2 {
		t.Errorf("winning trades = %d, want 2", m.WinningTrades)
	}
	// 2/3 wins.
	want := decimal.NewFromInt(2).Div(decimal.NewFromInt(3))
	if !m.WinRate.Equal(want) {
		t.Errorf("win rate = %s, want %s", m.WinRate, want)
	}
	// (10 - 4 + 6) / 3 = 4
	if !m.AvgTradeReturn.Equal(decimal.NewFromInt(4)) {
		t.Errorf("avg trade return = %s, want 4", m.AvgTradeReturn)
	}
}

func TestAnalyze_SingleWinningClose(t *testing.T) {
	a := NewAnalyzer(0)

	m := a.Analyze(decimal.NewFromInt(10000), []types.Trade{{}, closedTrade(10)}, curve(10000, 10010))

	if !m.WinRate.Equal(decimal.NewFromInt(1)) {
		t.Errorf("win rate = %s, want 1", m.WinRate)
	}
}

func TestAnalyze_TotalReturn(t *testing.T) {
	a := NewAnalyzer(0)

	m := a.Analyze(decimal.NewFromInt(10000), nil, curve(10000, 10500))

	if !m.TotalReturn.Equal(decimal.NewFromInt(500)) {
		t.Errorf("total return = %s, want 500", m.TotalReturn)
	}
	if !m.TotalReturnPercent.Equal(decimal.NewFromInt(5)) {
		t.Errorf("total return percent = %s, want 5", m.TotalReturnPercent)
	}
}

func TestAnalyze_SharpeZeroOnFlatVolatility(t *testing.T) {
	a := NewAnalyzer(0)

	// Constant 10% per bar: stdev of returns is zero.
	m := a.Analyze(decimal.NewFromInt(100), nil, curve(100, 110, 121))

	if !m.SharpeRatio.IsZero() {
		t.Errorf("sharpe = %s, want 0 when stdev is 0", m.SharpeRatio)
	}
}

func TestAnalyze_SharpeAnnualization(t *testing.T) {
	a := NewAnalyzer(252)

	// Returns 0.1 and 0: mean 0.05, population stdev 0.05, ratio exactly 1.
	m := a.Analyze(decimal.NewFromInt(100), nil, curve(100, 110, 110))

	want := decimal.NewFromFloat(math.Sqrt(252))
	if !m.SharpeRatio.Equal(want) {
		t.Errorf("sharpe = %s, want sqrt(252) = %s", m.SharpeRatio, want)
	}
}

func TestAnalyze_EmptyInputs(t *testing.T) {
	a := NewAnalyzer(0)

	m := a.Analyze(decimal.NewFromInt(10000), nil, nil)

	if m.TotalTrades != 0 || !m.WinRate.IsZero() || !m.SharpeRatio.IsZero() {
		t.Errorf("metrics over empty inputs = %+v, want zeros", m)
	}
	if !m.TotalReturn.IsZero() {
		t.Errorf("total return = %s, want 0", m.TotalReturn)
	}
}
