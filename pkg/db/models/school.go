package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// School is a partner school whose uniforms are sold in the storefront.
type School struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Slug      string    `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Location  string    `gorm:"type:text;not null" json:"location"`
	LogoURL   *string   `gorm:"column:logo_url;type:text" json:"logo_url,omitempty"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (s *School) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
