package products

import (
	"context"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/pkg/changefeed"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Service exposes the uniform catalog.
type Service interface {
	List(ctx context.Context, input ListInput) ([]ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Add(ctx context.Context, input AddInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ProductDTO, error)
}

// ListInput describes the storefront browse filters.
type ListInput struct {
	SchoolSlug  string
	CategoryID  *uuid.UUID
	InStockOnly bool
}

// AddInput creates a product. InStock defaults to true.
type AddInput struct {
	Name        string          `json:"name" validate:"required,notblank,max=200"`
	Description string          `json:"description" validate:"max=4000"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
	SchoolID    *uuid.UUID      `json:"school_id"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	Sizes       []string        `json:"sizes" validate:"dive,required,max=20"`
	Colors      []string        `json:"colors" validate:"dive,required,max=40"`
	InStock     *bool           `json:"in_stock"`
}

// UpdateInput is a field-level patch.
type UpdateInput struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=4000"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"image_url" validate:"omitempty,url"`
	SchoolID    *uuid.UUID       `json:"school_id"`
	CategoryID  *uuid.UUID       `json:"category_id"`
	Sizes       *[]string        `json:"sizes"`
	Colors      *[]string        `json:"colors"`
	InStock     *bool            `json:"in_stock"`
}

type schoolLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.School, error)
	FindBySlug(ctx context.Context, slug string) (*models.School, error)
	List(ctx context.Context) ([]models.School, error)
}

type categoryLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
}

type service struct {
	repo       Repository
	schools    schoolLookup
	categories categoryLookup
	guard      *access.Guard
	publisher  changefeed.Publisher
}

// NewService wires product dependencies.
func NewService(repo Repository, schools schoolLookup, categories categoryLookup, guard *access.Guard, publisher changefeed.Publisher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository required")
	}
	if schools == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "school lookup required")
	}
	if categories == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "category lookup required")
	}
	if guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "access guard required")
	}
	if publisher == nil {
		publisher = changefeed.Discard{}
	}
	return &service{repo: repo, schools: schools, categories: categories, guard: guard, publisher: publisher}, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]ProductDTO, error) {
	filter := Filter{CategoryID: input.CategoryID, InStockOnly: input.InStockOnly}
	if slug := strings.ToLower(strings.TrimSpace(input.SchoolSlug)); slug != "" {
		school, err := s.schools.FindBySlug(ctx, slug)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.NotFound("school")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load school")
		}
		filter.SchoolID = &school.ID
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	if len(rows) == 0 {
		return []ProductDTO{}, nil
	}

	schoolRows, err := s.schools.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list schools")
	}
	categoryRows, err := s.categories.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	schoolsByID := make(map[uuid.UUID]*models.School, len(schoolRows))
	for i := range schoolRows {
		schoolsByID[schoolRows[i].ID] = &schoolRows[i]
	}
	categoriesByID := make(map[uuid.UUID]*models.Category, len(categoryRows))
	for i := range categoryRows {
		categoriesByID[categoryRows[i].ID] = &categoryRows[i]
	}

	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		var school *models.School
		if rows[i].SchoolID != nil {
			school = schoolsByID[*rows[i].SchoolID]
		}
		var category *models.Category
		if rows[i].CategoryID != nil {
			category = categoriesByID[*rows[i].CategoryID]
		}
		out = append(out, *NewProductDTO(&rows[i], school, category))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withRelations(ctx, product)
}

func (s *service) Add(ctx context.Context, input AddInput) (*ProductDTO, error) {
	return access.Run(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) (*ProductDTO, error) {
		name := strings.TrimSpace(input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
		}
		if err := validatePrice(input.Price); err != nil {
			return nil, err
		}
		if err := s.ensureRelations(ctx, input.SchoolID, input.CategoryID); err != nil {
			return nil, err
		}

		inStock := true
		if input.InStock != nil {
			inStock = *input.InStock
		}
		product := &models.Product{
			Name:        name,
			Description: strings.TrimSpace(input.Description),
			Price:       input.Price.Round(2),
			ImageURL:    strings.TrimSpace(input.ImageURL),
			SchoolID:    input.SchoolID,
			CategoryID:  input.CategoryID,
			Sizes:       normalizeOptions(input.Sizes),
			Colors:      normalizeOptions(input.Colors),
			InStock:     inStock,
		}
		if err := s.repo.Create(ctx, product); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		s.publisher.Publish(ctx, changefeed.TopicProducts, changefeed.OpCreated, product.ID.String(), product)
		return s.withRelations(ctx, product)
	})
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ProductDTO, error) {
	return access.Run(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) (*ProductDTO, error) {
		if _, err := s.find(ctx, id); err != nil {
			return nil, err
		}
		if err := s.ensureRelations(ctx, input.SchoolID, input.CategoryID); err != nil {
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
			fields["description"] = strings.TrimSpace(*input.Description)
		}
		if input.Price != nil {
			if err := validatePrice(*input.Price); err != nil {
				return nil, err
			}
			fields["price"] = input.Price.Round(2)
		}
		if input.ImageURL != nil {
			fields["image_url"] = strings.TrimSpace(*input.ImageURL)
		}
		if input.SchoolID != nil {
			fields["school_id"] = *input.SchoolID
		}
		if input.CategoryID != nil {
			fields["category_id"] = *input.CategoryID
		}
		if input.Sizes != nil {
			fields["sizes"] = normalizeOptions(*input.Sizes)
		}
		if input.Colors != nil {
			fields["colors"] = normalizeOptions(*input.Colors)
		}
		if input.InStock != nil {
			fields["in_stock"] = *input.InStock
		}

		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		product, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		s.publisher.Publish(ctx, changefeed.TopicProducts, changefeed.OpUpdated, id.String(), product)
		return s.withRelations(ctx, product)
	})
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) ensureRelations(ctx context.Context, schoolID, categoryID *uuid.UUID) error {
	if schoolID != nil {
		if _, err := s.schools.FindByID(ctx, *schoolID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.NotFound("school")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load school")
		}
	}
	if categoryID != nil {
		if _, err := s.categories.FindByID(ctx, *categoryID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.NotFound("category")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
	}
	return nil
}

func (s *service) withRelations(ctx context.Context, product *models.Product) (*ProductDTO, error) {
	var school *models.School
	if product.SchoolID != nil {
		found, err := s.schools.FindByID(ctx, *product.SchoolID)
		if err != nil && !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load school")
		}
		school = found
	}
	var category *models.Category
	if product.CategoryID != nil {
		found, err := s.categories.FindByID(ctx, *product.CategoryID)
		if err != nil && !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		category = found
	}
	return NewProductDTO(product, school, category), nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	return nil
}

// normalizeOptions trims entries and drops blanks and duplicates, keeping order.
func normalizeOptions(values []string) pq.StringArray {
	out := pq.StringArray{}
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
