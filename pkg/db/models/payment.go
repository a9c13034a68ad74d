package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
)

// Payment records the external processor outcome for an order.
type Payment struct {
	ID                uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID           uuid.UUID           `gorm:"type:uuid;not null" json:"order_id"`
	ExternalPaymentID string              `gorm:"column:external_payment_id;type:text;not null" json:"external_payment_id"`
	ExternalOrderID   string              `gorm:"column:external_order_id;type:text;not null" json:"external_order_id"`
	Amount            decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status            enums.PaymentStatus `gorm:"type:payment_status;not null" json:"status"`
	PaidAt            time.Time           `gorm:"column:paid_at;type:timestamptz;not null" json:"paid_at"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
