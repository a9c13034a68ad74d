package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	"github.com/angelmondragon/uniformhub-backend/pkg/types"
)

// Order captures a checked-out cart awaiting or holding payment.
type Order struct {
	ID        uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null" json:"user_id"`
	Status    enums.OrderStatus `gorm:"type:order_status;not null;default:pending" json:"status"`
	Total     decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"total"`
	Items     types.OrderLines  `gorm:"type:jsonb;not null" json:"items"`
	CreatedAt time.Time         `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	if o.Status == "" {
		o.Status = enums.OrderStatusPending
	}
	return nil
}
