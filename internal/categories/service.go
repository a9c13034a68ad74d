package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/internal/adminnotifications"
	"github.com/angelmondragon/uniformhub-backend/pkg/changefeed"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type noticeEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, notice adminnotifications.Notice) (*models.AdminNotification, error)
}

// Service exposes the storefront category catalog.
type Service interface {
	GetAll(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Add(ctx context.Context, input AddInput) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Category, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// AddInput creates a category; description is optional and stays absent when omitted.
type AddInput struct {
	Name        string  `json:"name" validate:"required,notblank,max=120"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// UpdateInput is a field-level patch.
type UpdateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type service struct {
	repo      Repository
	tx        txRunner
	notices   noticeEmitter
	guard     *access.Guard
	publisher changefeed.Publisher
}

// NewService wires category dependencies.
func NewService(repo Repository, tx txRunner, notices noticeEmitter, guard *access.Guard, publisher changefeed.Publisher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "categories repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if notices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notice emitter required")
	}
	if guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "access guard required")
	}
	if publisher == nil {
		publisher = changefeed.Discard{}
	}
	return &service{repo: repo, tx: tx, notices: notices, guard: guard, publisher: publisher}, nil
}

func (s *service) GetAll(ctx context.Context) ([]models.Category, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	if rows == nil {
		rows = []models.Category{}
	}
	return rows, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("category")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return category, nil
}

func (s *service) Add(ctx context.Context, input AddInput) (*models.Category, error) {
	return access.Run(ctx, s.guard, access.IdentityHard, func(ctx context.Context, _ access.Principal) (*models.Category, error) {
		name := strings.TrimSpace(input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
		}
		category := &models.Category{Name: name, Description: trimmed(input.Description)}
		if err := s.repo.Create(ctx, category); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
		}
		s.publisher.Publish(ctx, changefeed.TopicCategories, changefeed.OpCreated, category.ID.String(), category)
		return category, nil
	})
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Category, error) {
	return access.Run(ctx, s.guard, access.IdentityHard, func(ctx context.Context, _ access.Principal) (*models.Category, error) {
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
		fields := map[string]any{}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
			}
			fields["name"] = name
		}
		if input.Description != nil {
			fields["description"] = trimmed(input.Description)
		}
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
		}
		category, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.publisher.Publish(ctx, changefeed.TopicCategories, changefeed.OpUpdated, id.String(), category)
		return category, nil
	})
}

func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	return access.Do(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) error {
		category, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}

		var notice *models.AdminNotification
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			found, err := s.repo.WithTx(tx).Delete(ctx, id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
			}
			if !found {
				return pkgerrors.NotFound("category")
			}
			notice, err = s.notices.Emit(ctx, tx, adminnotifications.Info(fmt.Sprintf("Category %q was deleted", category.Name)))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record category deletion")
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.publisher.Publish(ctx, changefeed.TopicCategories, changefeed.OpDeleted, id.String(), nil)
		s.publisher.Publish(ctx, changefeed.TopicAdminNotifications, changefeed.OpCreated, notice.ID.String(), notice)
		return nil
	})
}

// trimmed drops whitespace-only optional text so it is stored as absent.
func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
