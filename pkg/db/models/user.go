package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
)

// User is the application record linked to an identity-provider subject.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Subject   string         `gorm:"column:subject;not null;uniqueIndex" json:"subject"`
	Username  string         `gorm:"column:username;not null" json:"username"`
	Email     string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	ImageURL  *string        `gorm:"column:image_url" json:"image_url,omitempty"`
	Role      enums.UserRole `gorm:"type:user_role;not null;default:user" json:"role"`
	Phone     *string        `gorm:"column:phone" json:"phone,omitempty"`
	Address   *string        `gorm:"column:address" json:"address,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	if u.Role == "" {
		u.Role = enums.UserRoleUser
	}
	return nil
}

// IsAdmin reports whether the record carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == enums.UserRoleAdmin
}
