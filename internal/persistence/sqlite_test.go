package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "simcore.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSession_SaveAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	record := SessionRecord{
		ID:       "sess-1",
		Symbol:   "BTCUSDT",
		Strategy: "smacross",
		Mode:     "paper",
		State:    "running",
		Snapshot: []byte(`{"cash":"9900"}`),
	}
	if err := repo.SaveSession(ctx, record); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Strategy != "smacross" || got.State != "running" {
		t.Errorf("session = %+v, want strategy smacross state running", got)
	}
	if string(got.Snapshot) != `{"cash":"9900"}` {
		t.Errorf("snapshot = %s", got.Snapshot)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set on save")
	}
}

func TestSession_UpdateKeepsCreatedAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	record := SessionRecord{ID: "sess-1", Symbol: "X", Strategy: "s", Mode: "paper", State: "running"}
	if err := repo.SaveSession(ctx, record); err != nil {
		t.Fatal(err)
	}
	first, err := repo.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatal(err)
	}

	record.State = "closed"
	record.CreatedAt = first.CreatedAt
	if err := repo.SaveSession(ctx, record); err != nil {
		t.Fatal(err)
	}

	second, err := repo.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if second.State != "closed" {
		t.Errorf("state = %s, want closed", second.State)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed on update: %s vs %s", second.CreatedAt, first.CreatedAt)
	}
}

func TestSession_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetSession(context.Background(), "missing")
	if !errors.Is(err, types.ErrStateNotFound) {
		t.Errorf("err = %v, want ErrStateNotFound", err)
	}
}

func TestListSessions_MostRecentFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := repo.SaveSession(ctx, SessionRecord{ID: id, Symbol: "X", Strategy: "s", Mode: "paper", State: "running"}); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := repo.ListSessions(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Errorf("sessions = %d, want 2 (limit applied)", len(sessions))
	}
}

func TestTrades_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	trades := []types.Trade{
		{
			ID:       "t1",
			OrderID:  "o1",
			Symbol:   "BTCUSDT",
			Time:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			Side:     types.SideBuy,
			Price:    decimal.RequireFromString("100.5"),
			Quantity: decimal.NewFromInt(2),
			Fee:      decimal.RequireFromString("0.201"),
		},
		{
			ID:          "t2",
			OrderID:     "o2",
			Symbol:      "BTCUSDT",
			Time:        time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
			Side:        types.SideSell,
			Price:       decimal.RequireFromString("110.25"),
			Quantity:    decimal.NewFromInt(2),
			RealizedPnL: decimal.RequireFromString("19.5"),
			ClosedQty:   decimal.NewFromInt(2),
		},
	}
	if err := repo.SaveTrades(ctx, "sess-1", trades); err != nil {
		t.Fatal(err)
	}
	// Saving the same log again must not duplicate rows.
	if err := repo.SaveTrades(ctx, "sess-1", trades); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetTrades(ctx, "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("trades = %d, want 2", len(got))
	}
	if got[0].Side != types.SideBuy || !got[0].Price.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("trade 1 = %+v", got[0])
	}
	if !got[1].RealizedPnL.Equal(decimal.RequireFromString("19.5")) {
		t.Errorf("realized = %s, want 19.5", got[1].RealizedPnL)
	}
}

func TestEquityPoints_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := []types.EquityPoint{
		{Time: start, Equity: decimal.NewFromInt(10000)},
		{Time: start.Add(time.Minute), Equity: decimal.RequireFromString("10010.5")},
	}
	if err := repo.SaveEquityPoints(ctx, "sess-1", points); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetEquityCurve(ctx, "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("points = %d, want 2", len(got))
	}
	if !got[1].Equity.Equal(decimal.RequireFromString("10010.5")) {
		t.Errorf("equity = %s, want 10010.5", got[1].Equity)
	}
}
