package contact

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/internal/adminnotifications"
	"github.com/angelmondragon/uniformhub-backend/pkg/changefeed"
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

// Service handles the public contact form and its back-office queue.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.ContactQuery, error)
	AdminList(ctx context.Context, resolved *bool) ([]models.ContactQuery, error)
	Resolve(ctx context.Context, id uuid.UUID) error
}

type SubmitInput struct {
	Name    string  `json:"name" validate:"required,notblank,max=200"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   *string `json:"phone" validate:"omitempty,max=40"`
	Subject string  `json:"subject" validate:"required,notblank,max=200"`
	Message string  `json:"message" validate:"required,notblank,max=5000"`
}

type service struct {
	repo      Repository
	tx        txRunner
	notices   noticeEmitter
	guard     *access.Guard
	publisher changefeed.Publisher
}

// NewService wires contact dependencies.
func NewService(repo Repository, tx txRunner, notices noticeEmitter, guard *access.Guard, publisher changefeed.Publisher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "contact repository required")
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

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.ContactQuery, error) {
	query := &models.ContactQuery{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:   input.Phone,
		Subject: strings.TrimSpace(input.Subject),
		Message: strings.TrimSpace(input.Message),
	}
	if query.Name == "" || query.Email == "" || query.Subject == "" || query.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email, subject and message required")
	}

	var notice *models.AdminNotification
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, query); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contact query")
		}
		created, err := s.notices.Emit(ctx, tx, adminnotifications.Info(fmt.Sprintf("New message from %s: %s", query.Name, query.Subject)).
			WithLink("/admin/contact/"+query.ID.String()))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record contact query")
		}
		notice = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, changefeed.TopicContactQueries, changefeed.OpCreated, query.ID.String(), query)
	s.publisher.Publish(ctx, changefeed.TopicAdminNotifications, changefeed.OpCreated, notice.ID.String(), notice)
	return query, nil
}

func (s *service) AdminList(ctx context.Context, resolved *bool) ([]models.ContactQuery, error) {
	rows, err := access.Run(ctx, s.guard, access.AdminSoft, func(ctx context.Context, _ access.Principal) ([]models.ContactQuery, error) {
		rows, err := s.repo.List(ctx, resolved)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contact queries")
		}
		return rows, nil
	})
	if rows == nil && err == nil {
		rows = []models.ContactQuery{}
	}
	return rows, err
}

func (s *service) Resolve(ctx context.Context, id uuid.UUID) error {
	return access.Do(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) error {
		found, err := s.repo.MarkResolved(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve contact query")
		}
		if !found {
			return pkgerrors.NotFound("contact query")
		}
		s.publisher.Publish(ctx, changefeed.TopicContactQueries, changefeed.OpUpdated, id.String(), map[string]any{"resolved": true})
		return nil
	})
}
