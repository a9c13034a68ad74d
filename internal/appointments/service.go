package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/internal/adminnotifications"
	"github.com/angelmondragon/uniformhub-backend/internal/notifications"
	"github.com/angelmondragon/uniformhub-backend/pkg/changefeed"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const displayLayout = "Jan 2, 2006 3:04 PM"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type noticeEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, notice adminnotifications.Notice) (*models.AdminNotification, error)
}

type userLookup interface {
	FindBySubject(ctx context.Context, subject string) (*models.User, error)
}

type schoolLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.School, error)
}

// Service books and tracks in-store sizing appointments.
type Service interface {
	// Book is open to everyone. Signed-in callers get the appointment linked
	// to their account.
	Book(ctx context.Context, input BookInput) (*models.SizingAppointment, error)
	ListMine(ctx context.Context) ([]models.SizingAppointment, error)
	AdminList(ctx context.Context, status *enums.AppointmentStatus) ([]models.SizingAppointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.AppointmentStatus) (*models.SizingAppointment, error)
}

type BookInput struct {
	SchoolID     *uuid.UUID `json:"school_id"`
	ParentName   string     `json:"parent_name" validate:"required,max=200"`
	Email        string     `json:"email" validate:"required,email"`
	Phone        string     `json:"phone" validate:"required,max=40"`
	StudentName  string     `json:"student_name" validate:"required,max=200"`
	ScheduledFor time.Time  `json:"scheduled_for" validate:"required"`
	Notes        *string    `json:"notes" validate:"omitempty,max=2000"`
}

type service struct {
	repo      Repository
	users     userLookup
	schools   schoolLookup
	inbox     notifications.Repository
	tx        txRunner
	notices   noticeEmitter
	guard     *access.Guard
	publisher changefeed.Publisher
	now       func() time.Time
}

// ServiceParams bundles the dependencies required to build an appointments service.
type ServiceParams struct {
	Repo      Repository
	Users     userLookup
	Schools   schoolLookup
	Inbox     notifications.Repository
	Tx        txRunner
	Notices   noticeEmitter
	Guard     *access.Guard
	Publisher changefeed.Publisher
	Now       func() time.Time
}

// NewService wires appointment dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "appointments repository required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user lookup required")
	}
	if params.Schools == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "school lookup required")
	}
	if params.Inbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Notices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notice emitter required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "access guard required")
	}
	if params.Publisher == nil {
		params.Publisher = changefeed.Discard{}
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:      params.Repo,
		users:     params.Users,
		schools:   params.Schools,
		inbox:     params.Inbox,
		tx:        params.Tx,
		notices:   params.Notices,
		guard:     params.Guard,
		publisher: params.Publisher,
		now:       params.Now,
	}, nil
}

func (s *service) Book(ctx context.Context, input BookInput) (*models.SizingAppointment, error) {
	return access.Run(ctx, s.guard, access.Public, func(ctx context.Context, caller access.Principal) (*models.SizingAppointment, error) {
		appointment := &models.SizingAppointment{
			SchoolID:     input.SchoolID,
			ParentName:   strings.TrimSpace(input.ParentName),
			Email:        strings.ToLower(strings.TrimSpace(input.Email)),
			Phone:        strings.TrimSpace(input.Phone),
			StudentName:  strings.TrimSpace(input.StudentName),
			ScheduledFor: input.ScheduledFor.UTC(),
			Notes:        input.Notes,
			Status:       enums.AppointmentStatusPending,
		}
		if appointment.ParentName == "" || appointment.Email == "" || appointment.Phone == "" || appointment.StudentName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent, contact and student details required")
		}
		if !appointment.ScheduledFor.After(s.now()) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "appointment must be scheduled in the future")
		}

		schoolName := ""
		if input.SchoolID != nil {
			school, err := s.schools.FindByID(ctx, *input.SchoolID)
			if err != nil {
				if db.IsNotFound(err) {
					return nil, pkgerrors.NotFound("school")
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load school")
			}
			schoolName = school.Name
		}
		if caller.Authenticated() {
			user, err := s.users.FindBySubject(ctx, caller.Subject)
			switch {
			case err == nil:
				appointment.UserID = &user.ID
			case db.IsNotFound(err):
			default:
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve caller")
			}
		}

		message := fmt.Sprintf("Sizing appointment booked for %s on %s", appointment.StudentName, appointment.ScheduledFor.Format(displayLayout))
		if schoolName != "" {
			message += " (" + schoolName + ")"
		}

		var notice *models.AdminNotification
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Create(ctx, appointment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create appointment")
			}
			created, err := s.notices.Emit(ctx, tx, adminnotifications.Info(message).WithLink("/admin/appointments/"+appointment.ID.String()))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record appointment booking")
			}
			notice = created
			return nil
		})
		if err != nil {
			return nil, err
		}

		s.publisher.Publish(ctx, changefeed.TopicAppointments, changefeed.OpCreated, appointment.ID.String(), appointment)
		s.publisher.Publish(ctx, changefeed.TopicAdminNotifications, changefeed.OpCreated, notice.ID.String(), notice)
		return appointment, nil
	})
}

func (s *service) ListMine(ctx context.Context) ([]models.SizingAppointment, error) {
	rows, err := access.Run(ctx, s.guard, access.IdentitySoft, func(ctx context.Context, caller access.Principal) ([]models.SizingAppointment, error) {
		if caller.User == nil {
			return nil, nil
		}
		rows, err := s.repo.ListByUser(ctx, caller.UserID())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list appointments")
		}
		return rows, nil
	})
	if rows == nil && err == nil {
		rows = []models.SizingAppointment{}
	}
	return rows, err
}

func (s *service) AdminList(ctx context.Context, status *enums.AppointmentStatus) ([]models.SizingAppointment, error) {
	rows, err := access.Run(ctx, s.guard, access.AdminSoft, func(ctx context.Context, _ access.Principal) ([]models.SizingAppointment, error) {
		if status != nil && !status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid appointment status")
		}
		rows, err := s.repo.List(ctx, status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list appointments")
		}
		return rows, nil
	})
	if rows == nil && err == nil {
		rows = []models.SizingAppointment{}
	}
	return rows, err
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.AppointmentStatus) (*models.SizingAppointment, error) {
	return access.Run(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) (*models.SizingAppointment, error) {
		if !status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid appointment status")
		}
		appointment, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.NotFound("appointment")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load appointment")
		}
		if appointment.Status == status {
			return appointment, nil
		}
		if appointment.Status.IsTerminal() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "appointment is already closed").
				WithDetails(map[string]any{"status": appointment.Status})
		}

		var message *models.UserNotification
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).UpdateStatus(ctx, id, status); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update appointment status")
			}
			if appointment.UserID == nil {
				return nil
			}
			message = &models.UserNotification{
				UserID:  *appointment.UserID,
				Message: fmt.Sprintf("Your sizing appointment on %s is now %s", appointment.ScheduledFor.Format(displayLayout), status),
				Type:    noticeTypeFor(status),
			}
			if err := s.inbox.WithTx(tx).Create(ctx, message); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notify parent")
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		appointment.Status = status
		s.publisher.Publish(ctx, changefeed.TopicAppointments, changefeed.OpUpdated, id.String(), appointment)
		if message != nil {
			s.publisher.Publish(ctx, changefeed.UserNotificationsTopic(message.UserID), changefeed.OpCreated, message.ID.String(), message)
		}
		return appointment, nil
	})
}

func noticeTypeFor(status enums.AppointmentStatus) enums.NotificationType {
	switch status {
	case enums.AppointmentStatusConfirmed, enums.AppointmentStatusCompleted:
		return enums.NotificationTypeSuccess
	case enums.AppointmentStatusCancelled:
		return enums.NotificationTypeWarning
	default:
		return enums.NotificationTypeInfo
	}
}
