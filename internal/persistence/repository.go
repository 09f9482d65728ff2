// Package persistence stores simulation sessions between paper-trading
// steps. The replay driver only exposes a snapshot contract; this package
// owns the storage medium.
package persistence

import (
	"context"
	"time"

	"github.com/marketforge/simcore/internal/types"
)

// Repository defines the interface for session persistence.
type Repository interface {
	// Session operations
	SaveSession(ctx context.Context, session SessionRecord) error
	GetSession(ctx context.Context, id string) (*SessionRecord, error)
	ListSessions(ctx context.Context, limit int) ([]SessionRecord, error)

	// Trade operations
	SaveTrades(ctx context.Context, sessionID string, trades []types.Trade) error
	GetTrades(ctx context.Context, sessionID string) ([]types.Trade, error)

	// Equity curve operations
	SaveEquityPoints(ctx context.Context, sessionID string, points []types.EquityPoint) error
	GetEquityCurve(ctx context.Context, sessionID string) ([]types.EquityPoint, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// SessionRecord is a persisted simulation session. Snapshot holds the
// serialized SimulationContext so a paper session can resume exactly where
// it stopped.
type SessionRecord struct {
	ID        string
	Symbol    string
	Strategy  string
	Mode      string // backtest | paper
	State     string
	Snapshot  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}
