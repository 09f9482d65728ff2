package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at path and runs
// migrations.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return repo, nil
}

// Migrate runs database migrations.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			strategy TEXT NOT NULL,
			mode TEXT NOT NULL,
			state TEXT NOT NULL,
			snapshot BLOB,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			order_id TEXT,
			symbol TEXT NOT NULL,
			time DATETIME NOT NULL,
			side TEXT NOT NULL,
			price TEXT NOT NULL,
			quantity TEXT NOT NULL,
			fee TEXT NOT NULL DEFAULT '0',
			realized_pnl TEXT NOT NULL DEFAULT '0',
			closed_qty TEXT NOT NULL DEFAULT '0',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id, time)`,

		`CREATE TABLE IF NOT EXISTS equity_points (
			session_id TEXT NOT NULL,
			time DATETIME NOT NULL,
			equity TEXT NOT NULL,
			PRIMARY KEY (session_id, time)
		)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// SaveSession inserts or updates a session record.
func (r *SQLiteRepository) SaveSession(ctx context.Context, session SessionRecord) error {
	query := `INSERT INTO sessions (id, symbol, strategy, mode, state, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at`

	now := time.Now().UTC()
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.Symbol,
		session.Strategy,
		session.Mode,
		session.State,
		session.Snapshot,
		createdAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// GetSession loads a session by id.
func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	query := `SELECT id, symbol, strategy, mode, state, snapshot, created_at, updated_at
		FROM sessions WHERE id = ?`

	var session SessionRecord
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.Symbol,
		&session.Strategy,
		&session.Mode,
		&session.State,
		&session.Snapshot,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: session %s", types.ErrStateNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	return &session, nil
}

// ListSessions returns sessions ordered by most recent activity.
func (r *SQLiteRepository) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, symbol, strategy, mode, state, snapshot, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []SessionRecord
	for rows.Next() {
		var s SessionRecord
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Strategy, &s.Mode, &s.State, &s.Snapshot, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// SaveTrades stores the trades for a session. Re-saving the same trade id
// is a no-op, so callers can persist the full log after every step.
func (r *SQLiteRepository) SaveTrades(ctx context.Context, sessionID string, trades []types.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT OR IGNORE INTO trades
		(id, session_id, order_id, symbol, time, side, price, quantity, fee, realized_pnl, closed_qty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, trade := range trades {
		_, err := tx.ExecContext(ctx, query,
			trade.ID,
			sessionID,
			trade.OrderID,
			trade.Symbol,
			trade.Time,
			trade.Side.String(),
			trade.Price.String(),
			trade.Quantity.String(),
			trade.Fee.String(),
			trade.RealizedPnL.String(),
			trade.ClosedQty.String(),
		)
		if err != nil {
			return fmt.Errorf("insert trade %s: %w", trade.ID, err)
		}
	}

	return tx.Commit()
}

// GetTrades returns a session's trades in time order.
func (r *SQLiteRepository) GetTrades(ctx context.Context, sessionID string) ([]types.Trade, error) {
	query := `SELECT id, order_id, symbol, time, side, price, quantity, fee, realized_pnl, closed_qty
		FROM trades WHERE session_id = ? ORDER BY time, id`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var trades []types.Trade
	for rows.Next() {
		var t types.Trade
		var side, price, quantity, fee, realized, closedQty string

		if err := rows.Scan(&t.ID, &t.OrderID, &t.Symbol, &t.Time, &side, &price, &quantity, &fee, &realized, &closedQty); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		t.Side = types.SideFromString(side)
		t.Price, _ = decimal.NewFromString(price)
		t.Quantity, _ = decimal.NewFromString(quantity)
		t.Fee, _ = decimal.NewFromString(fee)
		t.RealizedPnL, _ = decimal.NewFromString(realized)
		t.ClosedQty, _ = decimal.NewFromString(closedQty)

		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// SaveEquityPoints stores equity curve points for a session. Existing
// timestamps are overwritten.
func (r *SQLiteRepository) SaveEquityPoints(ctx context.Context, sessionID string, points []types.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT OR REPLACE INTO equity_points (session_id, time, equity) VALUES (?, ?, ?)`
	for _, point := range points {
		if _, err := tx.ExecContext(ctx, query, sessionID, point.Time, point.Equity.String()); err != nil {
			return fmt.Errorf("insert equity point: %w", err)
		}
	}

	return tx.Commit()
}

// GetEquityCurve returns a session's equity curve in time order.
func (r *SQLiteRepository) GetEquityCurve(ctx context.Context, sessionID string) ([]types.EquityPoint, error) {
	query := `SELECT time, equity FROM equity_points WHERE session_id = ? ORDER BY time`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query equity curve: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var points []types.EquityPoint
	for rows.Next() {
		var p types.EquityPoint
		var equity string
		if err := rows.Scan(&p.Time, &equity); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		p.Equity, _ = decimal.NewFromString(equity)
		points = append(points, p)
	}

	return points, rows.Err()
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
