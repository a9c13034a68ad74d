package schools

import (
	"context"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes school persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.School, error)
	Search(ctx context.Context, term string) ([]models.School, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.School, error)
	FindBySlug(ctx context.Context, slug string) (*models.School, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository binds the schools repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) List(ctx context.Context) ([]models.School, error) {
	var rows []models.School
	err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&rows).Error
	return rows, err
}

// Search matches term case-insensitively against name, location and slug.
func (r *repositoryImpl) Search(ctx context.Context, term string) ([]models.School, error) {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	var rows []models.School
	err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(location) LIKE ? ESCAPE '\' OR LOWER(slug) LIKE ? ESCAPE '\'`, pattern, pattern, pattern).
		Order("name ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.School, error) {
	var school models.School
	if err := r.db.WithContext(ctx).First(&school, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *repositoryImpl) FindBySlug(ctx context.Context, slug string) (*models.School, error) {
	var school models.School
	if err := r.db.WithContext(ctx).First(&school, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *repositoryImpl) Create(ctx context.Context, school *models.School) error {
	return r.db.WithContext(ctx).Create(school).Error
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.School{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.School{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.School{}).Count(&count).Error
	return count, err
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
