package orders

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
	"github.com/angelmondragon/uniformhub-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type noticeEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, notice adminnotifications.Notice) (*models.AdminNotification, error)
}

type productLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service turns carts into orders.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	// ListMine is soft: callers without an identity or user record get an empty list.
	ListMine(ctx context.Context) ([]models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// CreateInput lists the lines to check out. Prices are resolved server-side.
type CreateInput struct {
	Lines []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// LineInput identifies one product variant and its quantity.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
	Size      *string   `json:"size"`
	Color     *string   `json:"color"`
}

type service struct {
	repo      Repository
	products  productLookup
	tx        txRunner
	notices   noticeEmitter
	guard     *access.Guard
	publisher changefeed.Publisher
}

// NewService wires order dependencies.
func NewService(repo Repository, products productLookup, tx txRunner, notices noticeEmitter, guard *access.Guard, publisher changefeed.Publisher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product lookup required")
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
	return &service{repo: repo, products: products, tx: tx, notices: notices, guard: guard, publisher: publisher}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	return access.Run(ctx, s.guard, access.IdentityHard, func(ctx context.Context, caller access.Principal) (*models.Order, error) {
		if caller.User == nil {
			return nil, pkgerrors.NotFound("user")
		}
		if len(input.Lines) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
		}

		lines := make(types.OrderLines, 0, len(input.Lines))
		for i, line := range input.Lines {
			if line.Quantity < 1 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
					WithDetails(map[string]any{"line": i})
			}
			product, err := s.products.FindByID(ctx, line.ProductID)
			if err != nil {
				if db.IsNotFound(err) {
					return nil, pkgerrors.NotFound("product").WithDetails(map[string]any{"product_id": line.ProductID})
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			if !product.InStock {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product out of stock").
					WithDetails(map[string]any{"product_id": product.ID})
			}
			lines = append(lines, types.OrderLine{
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  line.Quantity,
				Size:      option(line.Size),
				Color:     option(line.Color),
			})
		}

		order := &models.Order{UserID: caller.UserID(), Items: lines, Total: lines.Total()}
		var notice *models.AdminNotification
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}
			message := fmt.Sprintf("New order from %s totalling %s", caller.User.Name, order.Total.StringFixed(2))
			created, err := s.notices.Emit(ctx, tx, adminnotifications.Info(message).WithLink("/admin/orders/"+order.ID.String()))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record new order")
			}
			notice = created
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.publisher.Publish(ctx, changefeed.TopicAdminNotifications, changefeed.OpCreated, notice.ID.String(), notice)
		return order, nil
	})
}

func (s *service) ListMine(ctx context.Context) ([]models.Order, error) {
	rows, err := access.Run(ctx, s.guard, access.IdentitySoft, func(ctx context.Context, caller access.Principal) ([]models.Order, error) {
		if caller.User == nil {
			return nil, nil
		}
		rows, err := s.repo.ListByUser(ctx, caller.UserID())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
		}
		return rows, nil
	})
	if rows == nil && err == nil {
		rows = []models.Order{}
	}
	return rows, err
}

// Get returns the order when the caller owns it or is an admin. Other callers
// see NotFound so order ids cannot be probed.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return access.Run(ctx, s.guard, access.IdentityHard, func(ctx context.Context, caller access.Principal) (*models.Order, error) {
		order, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.NotFound("order")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.UserID != caller.UserID() && !caller.IsAdmin() {
			return nil, pkgerrors.NotFound("order")
		}
		return order, nil
	})
}

func option(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
