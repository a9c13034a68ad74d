package inventory

import (
	"context"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service records and reads stock adjustments.
type Service interface {
	AddInventoryLog(ctx context.Context, input AddInput) (*models.InventoryLog, error)
	GetInventoryLogsByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ListResult, error)
}

// AddInput is a single stock adjustment. Change is signed and never zero.
type AddInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Change    int       `json:"change" validate:"required"`
	Reason    string    `json:"reason" validate:"required,notblank,max=500"`
}

// ListResult is a page of adjustments plus the product's running net change.
type ListResult struct {
	Items     []models.InventoryLog `json:"items"`
	Cursor    string                `json:"cursor"`
	NetChange int64                 `json:"net_change"`
}

type productLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     Repository
	products productLookup
	guard    *access.Guard
}

// NewService wires inventory log dependencies.
func NewService(repo Repository, products productLookup, guard *access.Guard) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product lookup required")
	}
	if guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "access guard required")
	}
	return &service{repo: repo, products: products, guard: guard}, nil
}

func (s *service) AddInventoryLog(ctx context.Context, input AddInput) (*models.InventoryLog, error) {
	return access.Run(ctx, s.guard, access.IdentityHard, func(ctx context.Context, _ access.Principal) (*models.InventoryLog, error) {
		if input.Change == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "change must be non-zero")
		}
		reason := strings.TrimSpace(input.Reason)
		if reason == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
		}
		if err := s.ensureProduct(ctx, input.ProductID); err != nil {
			return nil, err
		}
		log := &models.InventoryLog{ProductID: input.ProductID, Change: input.Change, Reason: reason}
		if err := s.repo.Create(ctx, log); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory log")
		}
		return log, nil
	})
}

func (s *service) GetInventoryLogsByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ListResult, error) {
	return access.Run(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) (*ListResult, error) {
		cursor, err := params.Decode()
		if err != nil {
			return nil, err
		}
		if err := s.ensureProduct(ctx, productID); err != nil {
			return nil, err
		}
		rows, err := s.repo.ListByProduct(ctx, productID, params.Limit, cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory logs")
		}
		net, err := s.repo.NetChange(ctx, productID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum inventory logs")
		}
		page, next := pagination.Trim(rows, params.Limit, func(row models.InventoryLog) pagination.Cursor {
			return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
		})
		if page == nil {
			page = []models.InventoryLog{}
		}
		return &ListResult{Items: page, Cursor: next, NetChange: net}, nil
	})
}

func (s *service) ensureProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.NotFound("product")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return nil
}
