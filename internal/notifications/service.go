package notifications

import (
	"context"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/pkg/changefeed"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service defines per-user notification operations.
type Service interface {
	Add(ctx context.Context, input AddInput) (*models.UserNotification, error)
	MarkAsRead(ctx context.Context, notificationID uuid.UUID) error
	MarkAllAsRead(ctx context.Context) (int64, error)
	// GetByUser is soft: signed-out callers, callers without a user record and
	// non-admins asking for someone else's inbox all receive an empty page.
	GetByUser(ctx context.Context, params ListParams) (*ListResult, error)
}

// AddInput targets a notification at an existing user.
type AddInput struct {
	UserID  uuid.UUID              `json:"user_id" validate:"required"`
	Message string                 `json:"message" validate:"required,notblank,max=1000"`
	Type    enums.NotificationType `json:"type" validate:"required"`
	Link    *string                `json:"link" validate:"omitempty,max=500"`
}

// ListParams configures pagination for notifications. A nil UserID means the caller.
type ListParams struct {
	UserID     *uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.UserNotification `json:"items"`
	Cursor string                    `json:"cursor"`
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo      Repository
	users     userLookup
	guard     *access.Guard
	publisher changefeed.Publisher
}

// NewService wires notifications dependencies.
func NewService(repo Repository, users userLookup, guard *access.Guard, publisher changefeed.Publisher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user lookup required")
	}
	if guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "access guard required")
	}
	if publisher == nil {
		publisher = changefeed.Discard{}
	}
	return &service{repo: repo, users: users, guard: guard, publisher: publisher}, nil
}

func (s *service) Add(ctx context.Context, input AddInput) (*models.UserNotification, error) {
	return access.Run(ctx, s.guard, access.IdentityHard, func(ctx context.Context, _ access.Principal) (*models.UserNotification, error) {
		message := strings.TrimSpace(input.Message)
		if message == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "message required")
		}
		if !input.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
		}
		if _, err := s.users.FindByID(ctx, input.UserID); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.NotFound("user")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		notification := &models.UserNotification{
			UserID:  input.UserID,
			Message: message,
			Type:    input.Type,
			Link:    input.Link,
		}
		if err := s.repo.Create(ctx, notification); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
		}
		s.publisher.Publish(ctx, changefeed.UserNotificationsTopic(input.UserID), changefeed.OpCreated, notification.ID.String(), notification)
		return notification, nil
	})
}

func (s *service) MarkAsRead(ctx context.Context, notificationID uuid.UUID) error {
	return access.Do(ctx, s.guard, access.IdentityHard, func(ctx context.Context, caller access.Principal) error {
		if caller.User == nil {
			return pkgerrors.NotFound("notification")
		}
		outcome, err := s.repo.MarkRead(ctx, caller.UserID(), notificationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
		}
		if outcome == readMissing {
			return pkgerrors.NotFound("notification")
		}
		if outcome == readFlipped {
			s.publisher.Publish(ctx, changefeed.UserNotificationsTopic(caller.UserID()), changefeed.OpUpdated, notificationID.String(), map[string]any{"read": true})
		}
		return nil
	})
}

func (s *service) MarkAllAsRead(ctx context.Context) (int64, error) {
	return access.Run(ctx, s.guard, access.IdentityHard, func(ctx context.Context, caller access.Principal) (int64, error) {
		if caller.User == nil {
			return 0, nil
		}
		count, err := s.repo.MarkAllRead(ctx, caller.UserID())
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
		}
		if count > 0 {
			s.publisher.Publish(ctx, changefeed.UserNotificationsTopic(caller.UserID()), changefeed.OpUpdated, "", map[string]any{"read": true, "count": count})
		}
		return count, nil
	})
}

func (s *service) GetByUser(ctx context.Context, params ListParams) (*ListResult, error) {
	result, err := access.Run(ctx, s.guard, access.IdentitySoft, func(ctx context.Context, caller access.Principal) (*ListResult, error) {
		if caller.User == nil {
			return nil, nil
		}
		target := caller.UserID()
		if params.UserID != nil && *params.UserID != target {
			if !caller.IsAdmin() {
				return nil, nil
			}
			target = *params.UserID
		}

		query := inboxQuery{
			UserID:     target,
			Limit:      params.Limit,
			UnreadOnly: params.UnreadOnly,
		}
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
		query.Cursor = cursor

		rows, next, err := s.repo.List(ctx, query)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
		}
		return &ListResult{Items: rows, Cursor: next}, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &ListResult{}
	}
	if result.Items == nil {
		result.Items = []models.UserNotification{}
	}
	return result, nil
}
