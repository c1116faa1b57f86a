package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const canteenColumns = `id, name, description, location, image_url, accepting_orders, is_active, admin_user_id, created_at, updated_at`

func scanCanteen(row interface{ Scan(...interface{}) error }) (Canteen, error) {
	var i Canteen
	err := row.Scan(
		&i.ID, &i.Name, &i.Description, &i.Location, &i.ImageUrl,
		&i.AcceptingOrders, &i.IsActive, &i.AdminUserID, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

const listActiveCanteens = `
SELECT ` + canteenColumns + `
FROM canteens
WHERE is_active
ORDER BY name
`

func (q *Queries) ListActiveCanteens(ctx context.Context) ([]Canteen, error) {
	rows, err := q.db.Query(ctx, listActiveCanteens)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Canteen
	for rows.Next() {
		i, err := scanCanteen(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getCanteen = `
SELECT ` + canteenColumns + `
FROM canteens
WHERE id = $1
`

func (q *Queries) GetCanteen(ctx context.Context, id uuid.UUID) (Canteen, error) {
	return scanCanteen(q.db.QueryRow(ctx, getCanteen, id))
}

const getCanteenByAdmin = `
SELECT ` + canteenColumns + `
FROM canteens
WHERE admin_user_id = $1
`

func (q *Queries) GetCanteenByAdmin(ctx context.Context, adminUserID uuid.UUID) (Canteen, error) {
	return scanCanteen(q.db.QueryRow(ctx, getCanteenByAdmin, adminUserID))
}

const toggleCanteenAcceptance = `
UPDATE canteens
SET accepting_orders = NOT accepting_orders, updated_at = now()
WHERE id = $1
RETURNING ` + canteenColumns + `
`

// ToggleCanteenAcceptance flips the flag in a single statement so two
// concurrent toggles never read the same baseline.
func (q *Queries) ToggleCanteenAcceptance(ctx context.Context, id uuid.UUID) (Canteen, error) {
	return scanCanteen(q.db.QueryRow(ctx, toggleCanteenAcceptance, id))
}

const getCanteenDailyStats = `
SELECT
    COUNT(*) FILTER (WHERE status <> 'cancelled')                        AS order_count,
    COALESCE(SUM(total_amount) FILTER (WHERE status <> 'cancelled'), 0)  AS gross_revenue,
    COALESCE(SUM(platform_fee) FILTER (WHERE status <> 'cancelled'), 0)  AS platform_fees,
    COUNT(*) FILTER (WHERE status = 'pending')                           AS pending_count
FROM orders
WHERE canteen_id = $1 AND created_at >= $2 AND created_at < $3
`

type GetCanteenDailyStatsParams struct {
	CanteenID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
}

type GetCanteenDailyStatsRow struct {
	OrderCount   int64
	GrossRevenue pgtype.Numeric
	PlatformFees pgtype.Numeric
	PendingCount int64
}

func (q *Queries) GetCanteenDailyStats(ctx context.Context, arg GetCanteenDailyStatsParams) (GetCanteenDailyStatsRow, error) {
	row := q.db.QueryRow(ctx, getCanteenDailyStats, arg.CanteenID, arg.StartTime, arg.EndTime)
	var i GetCanteenDailyStatsRow
	err := row.Scan(&i.OrderCount, &i.GrossRevenue, &i.PlatformFees, &i.PendingCount)
	return i, err
}
