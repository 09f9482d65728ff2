package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/marketforge/simcore/internal/analytics"
	"github.com/marketforge/simcore/internal/matching"
	"github.com/marketforge/simcore/internal/strategy"
	"github.com/marketforge/simcore/internal/types"
)

// Config holds everything a driver needs to run a session.
type Config struct {
	Symbol      string
	InitialCash decimal.Decimal
	FeeRate     decimal.Decimal
	Slippage    decimal.Decimal

	// CloseOnFinish liquidates open positions at the last bar's close when a
	// backtest ends, so metrics reflect realized results.
	CloseOnFinish bool

	// MinLookback is the number of bars the strategy needs before its first
	// decision. A backtest over fewer bars fails before the replay starts.
	MinLookback int

	// FaultThreshold aborts the session once the strategy has faulted this
	// many times. Zero disables the threshold.
	FaultThreshold int

	// StrategyTimeout bounds each strategy call. Zero disables it.
	StrategyTimeout time.Duration

	// ReplayTimeout bounds an entire backtest. Zero disables it.
	ReplayTimeout time.Duration

	// PeriodsPerYear sets the Sharpe annualization convention.
	PeriodsPerYear int

	// StepsPerSecond paces paper-mode Step calls. Zero leaves them unpaced.
	StepsPerSecond float64
}

// Validate checks the configuration, reporting every violation at once.
func (c Config) Validate() error {
	var errs []error
	if c.Symbol == "" {
		errs = append(errs, fmt.Errorf("%w: symbol is required", types.ErrInvalidConfig))
	}
	if !c.InitialCash.IsPositive() {
		errs = append(errs, fmt.Errorf("%w: initial_cash must be positive", types.ErrInvalidConfig))
	}
	if err := (matching.Config{FeeRate: c.FeeRate, Slippage: c.Slippage}).Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.MinLookback < 0 {
		errs = append(errs, fmt.Errorf("%w: min_lookback must not be negative", types.ErrInvalidConfig))
	}
	if c.FaultThreshold < 0 {
		errs = append(errs, fmt.Errorf("%w: fault_threshold must not be negative", types.ErrInvalidConfig))
	}
	if c.StrategyTimeout < 0 || c.ReplayTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: timeouts must not be negative", types.ErrInvalidConfig))
	}
	if c.PeriodsPerYear < 0 {
		errs = append(errs, fmt.Errorf("%w: periods_per_year must not be negative", types.ErrInvalidConfig))
	}
	if c.StepsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("%w: steps_per_second must not be negative", types.ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// Observer receives simulation events for instrumentation. All methods are
// called with the session lock held and must not block.
type Observer interface {
	SignalsEmitted(n int)
	FillsExecuted(n int)
	OrdersRejected(n int)
	FaultsRecorded(n int)
	EquityUpdated(equity, drawdown decimal.Decimal)
	StrategyLatency(d time.Duration)
}

type nopObserver struct{}

func (nopObserver) SignalsEmitted(int)                 {}
func (nopObserver) FillsExecuted(int)                  {}
func (nopObserver) OrdersRejected(int)                 {}
func (nopObserver) FaultsRecorded(int)                 {}
func (nopObserver) EquityUpdated(_, _ decimal.Decimal) {}
func (nopObserver) StrategyLatency(time.Duration)      {}

// BacktestResult is the outcome of a completed backtest.
type BacktestResult struct {
	Trades         []types.Trade       `json:"trades"`
	FinalPositions []types.Position    `json:"final_positions"`
	EquityCurve    []types.EquityPoint `json:"equity_curve"`
	Metrics        analytics.Metrics   `json:"metrics"`
	Faults         []strategy.Fault    `json:"faults,omitempty"`
}

// PositionView is a position valued at a mark price, for paper-mode output.
type PositionView struct {
	types.Position
	MarkPrice            decimal.Decimal `json:"mark_price"`
	UnrealizedPnL        decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPercent decimal.Decimal `json:"unrealized_pnl_percent"`
}

// StepResult is the state handed back after one paper-mode bar.
type StepResult struct {
	Cash          decimal.Decimal `json:"cash"`
	Equity        decimal.Decimal `json:"equity"`
	Positions     []PositionView  `json:"positions"`
	PendingOrders []types.Order   `json:"pending_orders"`
	NewTrades     []types.Trade   `json:"new_trades"`
}

// Driver replays bars against one SimulationContext. All entry points
// serialize on the context's mutex, so a driver is safe to share but never
// runs two steps at once.
type Driver struct {
	cfg      Config
	engine   *matching.Engine
	adapter  *strategy.Adapter
	analyzer *analytics.Analyzer
	limiter  *rate.Limiter
	observer Observer
	logger   *slog.Logger
	sim      *SimulationContext

	// faultBase carries faults restored from a snapshot; the adapter only
	// counts faults from this process.
	faultBase int
	peak      decimal.Decimal
}

// NewDriver creates a driver with a fresh idle context. The decision
// procedure must already be built; a missing one is a translation failure,
// reported at session start rather than during the replay.
func NewDriver(cfg Config, strat strategy.Strategy, logger *slog.Logger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strat == nil {
		return nil, fmt.Errorf("%w: no decision procedure supplied", types.ErrTranslationFailed)
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Driver{
		cfg:      cfg,
		engine:   matching.NewEngine(matching.Config{FeeRate: cfg.FeeRate, Slippage: cfg.Slippage}),
		adapter:  strategy.NewAdapter(strat, cfg.StrategyTimeout, logger),
		analyzer: analytics.NewAnalyzer(cfg.PeriodsPerYear),
		observer: nopObserver{},
		logger:   logger,
		sim:      NewContext(cfg.Symbol, cfg.InitialCash),
	}
	if cfg.StepsPerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.StepsPerSecond), 1)
	}
	return d, nil
}

// NewDriverFromSnapshot resumes a paper session from a persisted context.
func NewDriverFromSnapshot(cfg Config, strat strategy.Strategy, snapshot []byte, logger *slog.Logger) (*Driver, error) {
	d, err := NewDriver(cfg, strat, logger)
	if err != nil {
		return nil, err
	}
	sim, err := RestoreContext(snapshot)
	if err != nil {
		return nil, err
	}
	d.sim = sim
	d.faultBase = sim.faultCount
	for _, point := range sim.equityCurve {
		if point.Equity.GreaterThan(d.peak) {
			d.peak = point.Equity
		}
	}
	return d, nil
}

// SetObserver installs an instrumentation sink. Call before the first step.
func (d *Driver) SetObserver(o Observer) {
	if o != nil {
		d.observer = o
	}
}

// Backtest replays the full bar window in one bounded synchronous call.
// Signals generated on bar t become matchable on bar t+1, never on t. On a
// timeout or fault-threshold violation the partial state is withheld and a
// structured diagnostic comes back instead.
func (d *Driver) Backtest(ctx context.Context, bars []types.Bar) (*BacktestResult, error) {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()

	switch d.sim.state {
	case StateIdle:
	case StateRunning:
		return nil, types.ErrSessionRunning
	default:
		return nil, fmt.Errorf("%w: context state is %s", types.ErrSessionClosed, d.sim.state)
	}

	if len(bars) < d.cfg.MinLookback || len(bars) == 0 {
		return nil, types.NewDiagnostic(types.ErrInsufficientData,
			fmt.Sprintf("history has %d bars, strategy lookback needs %d", len(bars), d.cfg.MinLookback))
	}

	if d.cfg.ReplayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.ReplayTimeout)
		defer cancel()
	}

	d.sim.state = StateRunning
	d.logger.Info("backtest started",
		"symbol", d.cfg.Symbol,
		"strategy", d.adapter.Name(),
		"bars", len(bars),
		"initial_cash", d.cfg.InitialCash)

	for _, bar := range bars {
		select {
		case <-ctx.Done():
			d.sim.state = StateFaulted
			index := len(d.sim.history)
			return nil, types.NewBarDiagnostic(types.ErrReplayTimeout, index, bar.Time,
				fmt.Sprintf("replay budget exceeded after %d of %d bars", index, len(bars)))
		default:
		}

		d.processBar(ctx, bar)

		if err := d.checkFaultThreshold(bar); err != nil {
			d.sim.state = StateFaulted
			return nil, err
		}
	}

	if d.cfg.CloseOnFinish {
		d.liquidate(bars[len(bars)-1])
	}
	d.sim.state = StateCompleted

	result := &BacktestResult{
		Trades:         append([]types.Trade(nil), d.sim.trades...),
		FinalPositions: d.sim.ledger.OpenPositions(),
		EquityCurve:    append([]types.EquityPoint(nil), d.sim.equityCurve...),
		Metrics:        d.analyzer.Analyze(d.sim.initialCash, d.sim.trades, d.sim.equityCurve),
		Faults:         d.adapter.Faults(),
	}
	d.logger.Info("backtest completed",
		"trades", result.Metrics.TotalTrades,
		"total_return", result.Metrics.TotalReturn,
		"max_drawdown", result.Metrics.MaxDrawdown)
	return result, nil
}

// Step advances a paper session by one bar. The context persists across
// calls; metrics are never computed here, callers ask via Metrics when they
// want them.
func (d *Driver) Step(ctx context.Context, bar types.Bar) (*StepResult, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()

	switch d.sim.state {
	case StateIdle:
		d.sim.state = StateRunning
	case StateRunning:
	default:
		return nil, fmt.Errorf("%w: context state is %s", types.ErrSessionClosed, d.sim.state)
	}

	if n := len(d.sim.history); n > 0 && !bar.Time.After(d.sim.history[n-1].Time) {
		return nil, fmt.Errorf("bar time %s is not after the previous bar %s",
			bar.Time.Format(time.RFC3339), d.sim.history[n-1].Time.Format(time.RFC3339))
	}

	fills := d.processBar(ctx, bar)

	if err := d.checkFaultThreshold(bar); err != nil {
		d.sim.state = StateFaulted
		return nil, err
	}

	marks := map[string]decimal.Decimal{d.sim.symbol: bar.Close}
	positions := d.sim.ledger.OpenPositions()
	views := make([]PositionView, 0, len(positions))
	for _, pos := range positions {
		views = append(views, newPositionView(pos, bar.Close))
	}

	return &StepResult{
		Cash:          d.sim.ledger.Cash(),
		Equity:        d.sim.ledger.Equity(marks),
		Positions:     views,
		PendingOrders: append([]types.Order(nil), d.sim.pending...),
		NewTrades:     fills,
	}, nil
}

// Metrics computes performance metrics over the current persisted state.
func (d *Driver) Metrics() analytics.Metrics {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	return d.analyzer.Analyze(d.sim.initialCash, d.sim.trades, d.sim.equityCurve)
}

// Close ends a paper session. Remaining pending orders are cancelled.
func (d *Driver) Close() error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()

	if d.sim.state == StateClosed {
		return nil
	}
	for i := range d.sim.pending {
		d.sim.pending[i].Status = types.OrderStatusCancelled
	}
	d.sim.pending = nil
	d.sim.state = StateClosed
	return nil
}

// Context exposes the session context for snapshotting.
func (d *Driver) Context() *SimulationContext {
	return d.sim
}

// Faults returns the fault log accumulated in this process.
func (d *Driver) Faults() []strategy.Fault {
	return d.adapter.Faults()
}

// processBar runs one bar: match pending orders, settle fills, record the
// equity point at the bar close, then ask the strategy for new signals.
// The caller holds the context lock.
func (d *Driver) processBar(ctx context.Context, bar types.Bar) []types.Trade {
	sim := d.sim
	index := len(sim.history)

	matched := d.engine.Match(sim.pending, bar, sim.ledger.Cash())
	for i := range matched.Fills {
		fill := &matched.Fills[i]
		applied := sim.ledger.ApplyFill(*fill)
		fill.RealizedPnL = applied.Realized
		fill.ClosedQty = applied.ClosedQty
		sim.trades = append(sim.trades, *fill)
	}
	for _, rejected := range matched.Rejected {
		d.logger.Warn("order rejected",
			"order_id", rejected.ID,
			"side", rejected.Side,
			"quantity", rejected.Quantity,
			"bar_time", bar.Time)
	}
	sim.pending = matched.Pending
	sim.history = append(sim.history, bar)

	equity := sim.ledger.Equity(map[string]decimal.Decimal{sim.symbol: bar.Close})
	sim.equityCurve = append(sim.equityCurve, types.EquityPoint{Time: bar.Time, Equity: equity})
	if equity.GreaterThan(d.peak) {
		d.peak = equity
	}

	start := time.Now()
	before := d.adapter.FaultCount()
	signals := d.adapter.Decide(ctx, index, sim.history)
	d.observer.StrategyLatency(time.Since(start))
	sim.faultCount = d.faultBase + d.adapter.FaultCount()

	for _, signal := range signals {
		sim.pending = append(sim.pending, matching.NewOrder(signal))
	}

	d.observer.SignalsEmitted(len(signals))
	d.observer.FillsExecuted(len(matched.Fills))
	d.observer.OrdersRejected(len(matched.Rejected))
	d.observer.FaultsRecorded(d.adapter.FaultCount() - before)
	d.observer.EquityUpdated(equity, drawdown(d.peak, equity))

	return matched.Fills
}

// liquidate closes every open position at the bar's close price, charging
// the configured fee, and refreshes the final equity point so the curve
// still matches cash plus position value.
func (d *Driver) liquidate(bar types.Bar) {
	sim := d.sim
	for _, pos := range sim.ledger.OpenPositions() {
		side := types.SideSell
		if pos.Quantity.IsNegative() {
			side = types.SideBuy
		}
		qty := pos.Quantity.Abs()
		trade := types.Trade{
			ID:       uuid.New().String(),
			Symbol:   pos.Symbol,
			Time:     bar.Time,
			Side:     side,
			Price:    bar.Close,
			Quantity: qty,
			Fee:      d.cfg.FeeRate.Mul(bar.Close).Mul(qty),
		}
		applied := sim.ledger.ApplyFill(trade)
		trade.RealizedPnL = applied.Realized
		trade.ClosedQty = applied.ClosedQty
		sim.trades = append(sim.trades, trade)
		d.logger.Info("position liquidated",
			"symbol", pos.Symbol,
			"quantity", pos.Quantity,
			"price", bar.Close,
			"realized_pnl", applied.Realized)
	}

	if n := len(sim.equityCurve); n > 0 {
		marks := map[string]decimal.Decimal{sim.symbol: bar.Close}
		sim.equityCurve[n-1].Equity = sim.ledger.Equity(marks)
	}
}

func (d *Driver) checkFaultThreshold(bar types.Bar) error {
	if d.cfg.FaultThreshold <= 0 || d.sim.faultCount < d.cfg.FaultThreshold {
		return nil
	}
	index := len(d.sim.history) - 1
	return types.NewBarDiagnostic(types.ErrFaultThreshold, index, bar.Time,
		fmt.Sprintf("strategy faulted %d times, threshold is %d", d.sim.faultCount, d.cfg.FaultThreshold))
}

func newPositionView(pos types.Position, mark decimal.Decimal) PositionView {
	view := PositionView{
		Position:      pos,
		MarkPrice:     mark,
		UnrealizedPnL: pos.UnrealizedPnL(mark),
	}
	basis := pos.AvgEntryPrice.Mul(pos.Quantity.Abs())
	if basis.IsPositive() {
		view.UnrealizedPnLPercent = view.UnrealizedPnL.Div(basis).Mul(decimal.NewFromInt(100))
	}
	return view
}

func drawdown(peak, equity decimal.Decimal) decimal.Decimal {
	if !peak.IsPositive() {
		return decimal.Zero
	}
	return peak.Sub(equity).Div(peak)
}
