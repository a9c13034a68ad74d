package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
)

// AdminNotification is a back-office notice visible to every admin.
type AdminNotification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Message   string                 `gorm:"type:text;not null" json:"message"`
	Type      enums.NotificationType `gorm:"type:notification_type;not null" json:"type"`
	Read      bool                   `gorm:"column:read;not null;default:false" json:"read"`
	Link      *string                `gorm:"type:text" json:"link,omitempty"`
	CreatedAt time.Time              `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (n *AdminNotification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}

// UserNotification is scoped to a single application user.
type UserNotification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID              `gorm:"type:uuid;not null" json:"user_id"`
	Message   string                 `gorm:"type:text;not null" json:"message"`
	Type      enums.NotificationType `gorm:"type:notification_type;not null" json:"type"`
	Read      bool                   `gorm:"column:read;not null;default:false" json:"read"`
	Link      *string                `gorm:"type:text" json:"link,omitempty"`
	CreatedAt time.Time              `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (n *UserNotification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
