package adminnotifications

import (
	"context"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/pkg/changefeed"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service defines the back-office notification inbox.
type Service interface {
	// GetAll is soft: non-admin callers receive an empty list.
	GetAll(ctx context.Context) ([]models.AdminNotification, error)
	Create(ctx context.Context, input CreateInput) (*models.AdminNotification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context) (int64, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// CreateInput is the admin-authored notification body.
type CreateInput struct {
	Message string                 `json:"message" validate:"required,notblank,max=1000"`
	Type    enums.NotificationType `json:"type" validate:"required"`
	Link    *string                `json:"link" validate:"omitempty,max=500"`
}

type service struct {
	repo      Repository
	guard     *access.Guard
	publisher changefeed.Publisher
}

// NewService wires admin notification dependencies.
func NewService(repo Repository, guard *access.Guard, publisher changefeed.Publisher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "admin notifications repository required")
	}
	if guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "access guard required")
	}
	if publisher == nil {
		publisher = changefeed.Discard{}
	}
	return &service{repo: repo, guard: guard, publisher: publisher}, nil
}

func (s *service) GetAll(ctx context.Context) ([]models.AdminNotification, error) {
	rows, err := access.Run(ctx, s.guard, access.AdminSoft, func(ctx context.Context, _ access.Principal) ([]models.AdminNotification, error) {
		rows, err := s.repo.List(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admin notifications")
		}
		return rows, nil
	})
	if rows == nil && err == nil {
		rows = []models.AdminNotification{}
	}
	return rows, err
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.AdminNotification, error) {
	return access.Run(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) (*models.AdminNotification, error) {
		message := strings.TrimSpace(input.Message)
		if message == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "message required")
		}
		if !input.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
		}
		notification := &models.AdminNotification{Message: message, Type: input.Type, Link: input.Link}
		if err := s.repo.Create(ctx, notification); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create admin notification")
		}
		s.publisher.Publish(ctx, changefeed.TopicAdminNotifications, changefeed.OpCreated, notification.ID.String(), notification)
		return notification, nil
	})
}

func (s *service) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return access.Do(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) error {
		found, err := s.repo.MarkRead(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark admin notification read")
		}
		if !found {
			return pkgerrors.NotFound("notification")
		}
		s.publisher.Publish(ctx, changefeed.TopicAdminNotifications, changefeed.OpUpdated, id.String(), nil)
		return nil
	})
}

func (s *service) MarkAllAsRead(ctx context.Context) (int64, error) {
	return access.Run(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) (int64, error) {
		count, err := s.repo.MarkAllRead(ctx)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark admin notifications read")
		}
		if count > 0 {
			s.publisher.Publish(ctx, changefeed.TopicAdminNotifications, changefeed.OpUpdated, "", map[string]int64{"updated": count})
		}
		return count, nil
	})
}

func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	return access.Do(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) error {
		found, err := s.repo.Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete admin notification")
		}
		if !found {
			return pkgerrors.NotFound("notification")
		}
		s.publisher.Publish(ctx, changefeed.TopicAdminNotifications, changefeed.OpDeleted, id.String(), nil)
		return nil
	})
}
