package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable uniform item.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string          `gorm:"type:text;not null" json:"name"`
	Description string          `gorm:"type:text;not null;default:''" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	ImageURL    string          `gorm:"column:image_url;type:text;not null;default:''" json:"image_url"`
	SchoolID    *uuid.UUID      `gorm:"type:uuid" json:"school_id,omitempty"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid" json:"category_id,omitempty"`
	Sizes       pq.StringArray  `gorm:"type:text[];not null;default:'{}'" json:"sizes"`
	Colors      pq.StringArray  `gorm:"type:text[];not null;default:'{}'" json:"colors"`
	InStock     bool            `gorm:"column:in_stock;not null" json:"in_stock"`
	CreatedAt   time.Time       `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Sizes == nil {
		p.Sizes = pq.StringArray{}
	}
	if p.Colors == nil {
		p.Colors = pq.StringArray{}
	}
	return nil
}
