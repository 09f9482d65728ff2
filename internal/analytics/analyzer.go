// Package analytics computes performance metrics over a completed trade log
// and equity curve.
package analytics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"
	"github.com/marketforge/simcore/pkg/indicator"
)

// DefaultPeriodsPerYear annualizes Sharpe assuming daily bars on a trading
// calendar. Callers replaying intraday bars should pass their own value.
const DefaultPeriodsPerYear = 252

// Metrics summarizes a simulation run.
type Metrics struct {
	TotalTrades        int             `json:"total_trades"`
	ClosedTrades       int             `json:"closed_trades"`
	WinningTrades      int             `json:"winning_trades"`
	WinRate            decimal.Decimal `json:"win_rate"`
	TotalReturn        decimal.Decimal `json:"total_return"`
	TotalReturnPercent decimal.Decimal `json:"total_return_percent"`
	SharpeRatio        decimal.Decimal `json:"sharpe_ratio"`
	MaxDrawdown        decimal.Decimal `json:"max_drawdown"`
	AvgTradeReturn     decimal.Decimal `json:"avg_trade_return"`
}

// Analyzer computes metrics with a fixed annualization convention.
type Analyzer struct {
	periodsPerYear int
}

// NewAnalyzer creates an analyzer. A non-positive periodsPerYear falls back
// to the default trading-day convention.
func NewAnalyzer(periodsPerYear int) *Analyzer {
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}
	return &Analyzer{periodsPerYear: periodsPerYear}
}

// Analyze computes metrics over a completed run. A closed trade is a fill
// that reduced a position and realized P&L; opening fills count toward
// TotalTrades but never toward the win rate.
func (a *Analyzer) Analyze(initialCash decimal.Decimal, trades []types.Trade, equityCurve []types.EquityPoint) Metrics {
	m := Metrics{TotalTrades: len(trades)}

	for _, trade := range trades {
		if !trade.ClosedQty.IsPositive() {
			continue
		}
		m.ClosedTrades++
		if trade.RealizedPnL.IsPositive() {
			m.WinningTrades++
		}
		m.AvgTradeReturn = m.AvgTradeReturn.Add(trade.RealizedPnL)
	}
	if m.ClosedTrades > 0 {
		closed := decimal.NewFromInt(int64(m.ClosedTrades))
		m.WinRate = decimal.NewFromInt(int64(m.WinningTrades)).Div(closed)
		m.AvgTradeReturn = m.AvgTradeReturn.Div(closed)
	}

	finalEquity := initialCash
	if len(equityCurve) > 0 {
		finalEquity = equityCurve[len(equityCurve)-1].Equity
	}
	m.TotalReturn = finalEquity.Sub(initialCash)
	if initialCash.IsPositive() {
		m.TotalReturnPercent = m.TotalReturn.Div(initialCash).Mul(decimal.NewFromInt(100))
	}

	m.SharpeRatio = a.sharpe(equityCurve)
	m.MaxDrawdown = maxDrawdown(equityCurve)

	return m
}

// sharpe computes mean/stdev of bar-over-bar equity returns, annualized by
// sqrt(periodsPerYear). Degenerate curves yield zero rather than an error.
func (a *Analyzer) sharpe(equityCurve []types.EquityPoint) decimal.Decimal {
	returns := periodReturns(equityCurve)
	if len(returns) < 2 {
		return decimal.Zero
	}

	stdDev := indicator.StdDev(returns)
	if stdDev.IsZero() {
		return decimal.Zero
	}

	annualize := decimal.NewFromFloat(math.Sqrt(float64(a.periodsPerYear)))
	return indicator.Mean(returns).Div(stdDev).Mul(annualize)
}

// maxDrawdown returns the deepest peak-to-trough decline as a negative
// fraction of the running peak.
func maxDrawdown(equityCurve []types.EquityPoint) decimal.Decimal {
	peak := decimal.Zero
	maxDD := decimal.Zero

	for _, point := range equityCurve {
		if point.Equity.GreaterThan(peak) {
			peak = point.Equity
		}
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Sub(point.Equity).Div(peak)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}

	return maxDD.Neg()
}

func periodReturns(equityCurve []types.EquityPoint) []decimal.Decimal {
	if len(equityCurve) < 2 {
		return nil
	}

	returns := make([]decimal.Decimal, 0, len(equityCurve)-1)
	for i := 1; i < len(equityCurve); i++ {
		prev := equityCurve[i-1].Equity
		if prev.IsZero() {
			continue
		}
		returns = append(returns, equityCurve[i].Equity.Sub(prev).Div(prev))
	}
	return returns
}
