package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campuscanteen/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// mockCanteenStore implements CanteenStore with configurable behavior.
type mockCanteenStore struct {
	toggleFn func(ctx context.Context, id uuid.UUID) (database.Canteen, error)
	statsFn  func(ctx context.Context, arg database.GetCanteenDailyStatsParams) (database.GetCanteenDailyStatsRow, error)
}

func (m *mockCanteenStore) ToggleCanteenAcceptance(ctx context.Context, id uuid.UUID) (database.Canteen, error) {
	return m.toggleFn(ctx, id)
}
func (m *mockCanteenStore) GetCanteenDailyStats(ctx context.Context, arg database.GetCanteenDailyStatsParams) (database.GetCanteenDailyStatsRow, error) {
	return m.statsFn(ctx, arg)
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestToggleAcceptance(t *testing.T) {
	canteenID := uuid.New()
	store := &mockCanteenStore{
		toggleFn: func(ctx context.Context, id uuid.UUID) (database.Canteen, error) {
			return database.Canteen{ID: id, AcceptingOrders: false}, nil
		},
	}
	svc := NewCanteenService(store, time.UTC)

	canteen, err := svc.ToggleAcceptance(context.Background(), canteenID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canteen.AcceptingOrders {
		t.Error("expected accepting_orders flipped to false")
	}
}

func TestToggleAcceptance_NotFound(t *testing.T) {
	store := &mockCanteenStore{
		toggleFn: func(ctx context.Context, id uuid.UUID) (database.Canteen, error) {
			return database.Canteen{}, pgx.ErrNoRows
		},
	}
	svc := NewCanteenService(store, time.UTC)

	_, err := svc.ToggleAcceptance(context.Background(), uuid.New())
	if !errors.Is(err, ErrCanteenNotFound) {
		t.Fatalf("expected ErrCanteenNotFound, got: %v", err)
	}
}

func TestDailyStats_WindowBounds(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	var captured database.GetCanteenDailyStatsParams
	store := &mockCanteenStore{
		statsFn: func(ctx context.Context, arg database.GetCanteenDailyStatsParams) (database.GetCanteenDailyStatsRow, error) {
			captured = arg
			return database.GetCanteenDailyStatsRow{}, nil
		},
	}
	svc := NewCanteenService(store, loc)

	// Query instant lands mid-afternoon; the window must still cover the
	// whole local calendar day.
	day := time.Date(2026, 3, 14, 15, 30, 0, 0, loc)
	if _, err := svc.DailyStats(context.Background(), uuid.New(), day); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStart := time.Date(2026, 3, 14, 0, 0, 0, 0, loc)
	if !captured.StartTime.Equal(wantStart) {
		t.Errorf("start: got %v, want %v", captured.StartTime, wantStart)
	}
	if !captured.EndTime.Equal(wantStart.AddDate(0, 0, 1)) {
		t.Errorf("end: got %v, want %v", captured.EndTime, wantStart.AddDate(0, 0, 1))
	}
}

func TestDailyStats_Math(t *testing.T) {
	store := &mockCanteenStore{
		statsFn: func(ctx context.Context, arg database.GetCanteenDailyStatsParams) (database.GetCanteenDailyStatsRow, error) {
			return database.GetCanteenDailyStatsRow{
				OrderCount:   12,
				GrossRevenue: makeNumeric("1836.00"),
				PlatformFees: makeNumeric("36.00"),
				PendingCount: 2,
			}, nil
		},
	}
	svc := NewCanteenService(store, time.UTC)

	stats, err := svc.DailyStats(context.Background(), uuid.New(), time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.OrderCount != 12 || stats.PendingCount != 2 {
		t.Errorf("counts: got %d/%d", stats.OrderCount, stats.PendingCount)
	}
	if !stats.GrossRevenue.Equal(mustDecimal("1836.00")) {
		t.Errorf("gross: got %v", stats.GrossRevenue)
	}
	// net = gross - platform fees
	if !stats.NetRevenue.Equal(mustDecimal("1800.00")) {
		t.Errorf("net: got %v", stats.NetRevenue)
	}
	if stats.Date != "2026-03-14" {
		t.Errorf("date: got %q", stats.Date)
	}
}
