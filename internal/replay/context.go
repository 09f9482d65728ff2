// Package replay drives a simulation bar by bar: match pending orders, settle
// fills, record equity, then ask the strategy for new signals. Backtest mode
// replays a full window in one call; paper mode advances one bar per Step.
package replay

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/ledger"
	"github.com/marketforge/simcore/internal/types"
)

// State is the lifecycle phase of a simulation context.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFaulted   State = "faulted"
	StateClosed    State = "closed"
)

// SimulationContext is the full mutable state of one session: cash and
// positions, bar history, pending orders, trade log and equity curve. It is
// owned by exactly one Driver and protected by a per-context mutex; separate
// sessions share nothing.
type SimulationContext struct {
	mu sync.Mutex

	symbol      string
	initialCash decimal.Decimal
	state       State

	ledger      *ledger.Ledger
	history     []types.Bar
	pending     []types.Order
	trades      []types.Trade
	equityCurve []types.EquityPoint
	faultCount  int
}

// NewContext creates an idle context with the given starting cash.
func NewContext(symbol string, initialCash decimal.Decimal) *SimulationContext {
	return &SimulationContext{
		symbol:      symbol,
		initialCash: initialCash,
		state:       StateIdle,
		ledger:      ledger.New(initialCash),
	}
}

// State returns the current lifecycle phase.
func (c *SimulationContext) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastBarTime returns the timestamp of the most recently processed bar.
// The second return is false when no bars have been processed yet.
func (c *SimulationContext) LastBarTime() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return time.Time{}, false
	}
	return c.history[len(c.history)-1].Time, true
}

// contextSnapshot is the persisted form of a SimulationContext.
type contextSnapshot struct {
	Symbol      string              `json:"symbol"`
	State       State               `json:"state"`
	InitialCash decimal.Decimal     `json:"initial_cash"`
	Cash        decimal.Decimal     `json:"cash"`
	Positions   []types.Position    `json:"positions"`
	History     []types.Bar         `json:"history"`
	Pending     []types.Order       `json:"pending_orders"`
	Trades      []types.Trade       `json:"trades"`
	EquityCurve []types.EquityPoint `json:"equity_curve"`
	FaultCount  int                 `json:"fault_count"`
}

// Snapshot serializes the context to JSON so a paper session can be parked
// in storage between steps.
func (c *SimulationContext) Snapshot() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := contextSnapshot{
		Symbol:      c.symbol,
		State:       c.state,
		InitialCash: c.initialCash,
		Cash:        c.ledger.Cash(),
		Positions:   c.ledger.Snapshot(),
		History:     c.history,
		Pending:     c.pending,
		Trades:      c.trades,
		EquityCurve: c.equityCurve,
		FaultCount:  c.faultCount,
	}
	return json.Marshal(snap)
}

// RestoreContext rebuilds a context from a snapshot produced by Snapshot.
func RestoreContext(data []byte) (*SimulationContext, error) {
	var snap contextSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode context snapshot: %w", err)
	}

	return &SimulationContext{
		symbol:      snap.Symbol,
		initialCash: snap.InitialCash,
		state:       snap.State,
		ledger:      ledger.Restore(snap.Cash, snap.Positions),
		history:     snap.History,
		pending:     snap.Pending,
		trades:      snap.Trades,
		equityCurve: snap.EquityCurve,
		faultCount:  snap.FaultCount,
	}, nil
}
