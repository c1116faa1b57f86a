package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Profile struct {
	ID             uuid.UUID
	Email          string
	Name           string
	Role           string
	HashedPassword string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Canteen struct {
	ID              uuid.UUID
	Name            string
	Description     pgtype.Text
	Location        pgtype.Text
	ImageUrl        pgtype.Text
	AcceptingOrders bool
	IsActive        bool
	AdminUserID     uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type MenuItem struct {
	ID                uuid.UUID
	CanteenID         uuid.UUID
	Name              string
	Description       pgtype.Text
	Category          string
	Price             pgtype.Numeric
	AvailableQuantity int32
	IsAvailable       bool
	ImageUrl          pgtype.Text
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type CartItem struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Order struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	CanteenID     uuid.UUID
	Status        string
	TotalAmount   pgtype.Numeric
	PlatformFee   pgtype.Numeric
	CanteenAmount pgtype.Numeric
	PaymentID     pgtype.Text
	PickupTime    time.Time
	Notes         pgtype.Text
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      pgtype.Numeric
	TotalPrice pgtype.Numeric
	CreatedAt  time.Time
}
