package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminTodo is a back-office task owned by the admin that created it.
type AdminTodo struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	Completed   bool      `gorm:"not null;default:false" json:"completed"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (t *AdminTodo) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
