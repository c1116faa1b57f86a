package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campuscanteen/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CanteenStore defines the DB methods needed by the canteen service.
// Satisfied by *database.Queries; narrow interface for testability.
type CanteenStore interface {
	ToggleCanteenAcceptance(ctx context.Context, id uuid.UUID) (database.Canteen, error)
	GetCanteenDailyStats(ctx context.Context, arg database.GetCanteenDailyStatsParams) (database.GetCanteenDailyStatsRow, error)
}

// DailyStats is one day's order summary for a canteen. Cancelled orders
// are excluded from counts and revenue but pending ones still show up in
// PendingCount.
type DailyStats struct {
	Date         string          `json:"date"`
	OrderCount   int64           `json:"order_count"`
	GrossRevenue decimal.Decimal `json:"gross_revenue"`
	PlatformFees decimal.Decimal `json:"platform_fees"`
	NetRevenue   decimal.Decimal `json:"net_revenue"`
	PendingCount int64           `json:"pending_count"`
}

// CanteenService handles canteen-level admin operations.
type CanteenService struct {
	store CanteenStore
	loc   *time.Location
}

func NewCanteenService(store CanteenStore, loc *time.Location) *CanteenService {
	return &CanteenService{store: store, loc: loc}
}

// ToggleAcceptance flips whether the canteen takes new orders.
func (s *CanteenService) ToggleAcceptance(ctx context.Context, canteenID uuid.UUID) (database.Canteen, error) {
	canteen, err := s.store.ToggleCanteenAcceptance(ctx, canteenID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Canteen{}, ErrCanteenNotFound
		}
		return database.Canteen{}, fmt.Errorf("toggle acceptance: %w", err)
	}
	return canteen, nil
}

// DailyStats aggregates the canteen's orders for the calendar day containing
// day, interpreted in the service's configured location.
func (s *CanteenService) DailyStats(ctx context.Context, canteenID uuid.UUID, day time.Time) (*DailyStats, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	row, err := s.store.GetCanteenDailyStats(ctx, database.GetCanteenDailyStatsParams{
		CanteenID: canteenID,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}

	gross := numericToDecimal(row.GrossRevenue)
	fees := numericToDecimal(row.PlatformFees)
	return &DailyStats{
		Date:         start.Format("2006-01-02"),
		OrderCount:   row.OrderCount,
		GrossRevenue: gross,
		PlatformFees: fees,
		NetRevenue:   gross.Sub(fees),
		PendingCount: row.PendingCount,
	}, nil
}
