package products

import (
	"time"

	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDTO is the storefront product payload.
type ProductDTO struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	ImageURL    string           `json:"image_url"`
	Sizes       []string         `json:"sizes"`
	Colors      []string         `json:"colors"`
	InStock     bool             `json:"in_stock"`
	School      *SchoolSummary   `json:"school,omitempty"`
	Category    *CategorySummary `json:"category,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// SchoolSummary is the slice of a school shown alongside its products.
type SchoolSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// CategorySummary is the slice of a category shown alongside its products.
type CategorySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// NewProductDTO builds a DTO from the persisted model and optional relations.
func NewProductDTO(product *models.Product, school *models.School, category *models.Category) *ProductDTO {
	dto := &ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		ImageURL:    product.ImageURL,
		Sizes:       append([]string{}, product.Sizes...),
		Colors:      append([]string{}, product.Colors...),
		InStock:     product.InStock,
		CreatedAt:   product.CreatedAt,
	}
	if school != nil {
		dto.School = &SchoolSummary{ID: school.ID, Name: school.Name, Slug: school.Slug}
	}
	if category != nil {
		dto.Category = &CategorySummary{ID: category.ID, Name: category.Name}
	}
	return dto
}
