package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactQuery is a message left through the public contact form.
type ContactQuery struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Email     string    `gorm:"type:text;not null" json:"email"`
	Phone     *string   `gorm:"type:text" json:"phone,omitempty"`
	Subject   string    `gorm:"type:text;not null" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Resolved  bool      `gorm:"not null;default:false" json:"resolved"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (q *ContactQuery) BeforeCreate(*gorm.DB) error {
	ensureID(&q.ID)
	return nil
}
