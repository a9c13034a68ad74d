package todos

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

// Service manages the back-office todo list.
type Service interface {
	Add(ctx context.Context, input AddInput) (*models.AdminTodo, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.AdminTodo, error)
	// Remove records an info admin notification alongside every successful delete.
	Remove(ctx context.Context, id uuid.UUID) error
	// GetTodosByUser lists the caller's todos; non-admins get an empty list.
	GetTodosByUser(ctx context.Context) ([]models.AdminTodo, error)
}

type AddInput struct {
	Title       string  `json:"title" validate:"required,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type UpdateInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Completed   *bool   `json:"completed"`
}

type service struct {
	repo      Repository
	tx        txRunner
	notices   noticeEmitter
	guard     *access.Guard
	publisher changefeed.Publisher
}

// NewService wires todo dependencies.
func NewService(repo Repository, tx txRunner, notices noticeEmitter, guard *access.Guard, publisher changefeed.Publisher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "todos repository required")
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

func (s *service) Add(ctx context.Context, input AddInput) (*models.AdminTodo, error) {
	return access.Run(ctx, s.guard, access.AdminHard, func(ctx context.Context, caller access.Principal) (*models.AdminTodo, error) {
		title := strings.TrimSpace(input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
		}
		todo := &models.AdminTodo{
			Title:       title,
			Description: input.Description,
			CreatedBy:   caller.UserID(),
		}
		if err := s.repo.Create(ctx, todo); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create todo")
		}
		s.publisher.Publish(ctx, changefeed.TopicTodos, changefeed.OpCreated, todo.ID.String(), todo)
		return todo, nil
	})
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.AdminTodo, error) {
	return access.Run(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) (*models.AdminTodo, error) {
		if _, err := s.find(ctx, id); err != nil {
			return nil, err
		}
		fields := map[string]any{}
		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be blank")
			}
			fields["title"] = title
		}
		if input.Description != nil {
			fields["description"] = *input.Description
		}
		if input.Completed != nil {
			fields["completed"] = *input.Completed
		}
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update todo")
		}
		todo, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		s.publisher.Publish(ctx, changefeed.TopicTodos, changefeed.OpUpdated, id.String(), todo)
		return todo, nil
	})
}

func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	return access.Do(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) error {
		todo, err := s.find(ctx, id)
		if err != nil {
			return err
		}

		var notice *models.AdminNotification
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			found, err := s.repo.WithTx(tx).Delete(ctx, id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete todo")
			}
			if !found {
				return pkgerrors.NotFound("todo")
			}
			notice, err = s.notices.Emit(ctx, tx, adminnotifications.Info(fmt.Sprintf("Todo %q was deleted", todo.Title)))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record todo deletion")
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.publisher.Publish(ctx, changefeed.TopicTodos, changefeed.OpDeleted, id.String(), nil)
		s.publisher.Publish(ctx, changefeed.TopicAdminNotifications, changefeed.OpCreated, notice.ID.String(), notice)
		return nil
	})
}

func (s *service) GetTodosByUser(ctx context.Context) ([]models.AdminTodo, error) {
	rows, err := access.Run(ctx, s.guard, access.AdminSoft, func(ctx context.Context, caller access.Principal) ([]models.AdminTodo, error) {
		rows, err := s.repo.ListByCreator(ctx, caller.UserID())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list todos")
		}
		return rows, nil
	})
	if rows == nil && err == nil {
		rows = []models.AdminTodo{}
	}
	return rows, err
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.AdminTodo, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("todo")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load todo")
	}
	return todo, nil
}
