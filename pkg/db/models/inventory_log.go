package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryLog is an append-only stock adjustment entry.
type InventoryLog struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	Change    int       `gorm:"column:change;not null" json:"change"`
	Reason    string    `gorm:"type:text;not null" json:"reason"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (l *InventoryLog) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
