package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
)

// SizingAppointment is an in-store fitting booked by a parent.
type SizingAppointment struct {
	ID           uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       *uuid.UUID              `gorm:"type:uuid" json:"user_id,omitempty"`
	SchoolID     *uuid.UUID              `gorm:"type:uuid" json:"school_id,omitempty"`
	ParentName   string                  `gorm:"column:parent_name;type:text;not null" json:"parent_name"`
	Email        string                  `gorm:"type:text;not null" json:"email"`
	Phone        string                  `gorm:"type:text;not null" json:"phone"`
	StudentName  string                  `gorm:"column:student_name;type:text;not null" json:"student_name"`
	ScheduledFor time.Time               `gorm:"column:scheduled_for;type:timestamptz;not null" json:"scheduled_for"`
	Notes        *string                 `gorm:"type:text" json:"notes,omitempty"`
	Status       enums.AppointmentStatus `gorm:"type:appointment_status;not null;default:pending" json:"status"`
	CreatedAt    time.Time               `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (a *SizingAppointment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	if a.Status == "" {
		a.Status = enums.AppointmentStatusPending
	}
	return nil
}
