package contact

import (
	"context"

	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes contact form persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, query *models.ContactQuery) error
	List(ctx context.Context, resolved *bool) ([]models.ContactQuery, error)
	MarkResolved(ctx context.Context, id uuid.UUID) (bool, error)
	CountUnresolved(ctx context.Context) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository binds the contact repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, query *models.ContactQuery) error {
	return r.db.WithContext(ctx).Create(query).Error
}

func (r *repositoryImpl) List(ctx context.Context, resolved *bool) ([]models.ContactQuery, error) {
	query := r.db.WithContext(ctx).Model(&models.ContactQuery{})
	if resolved != nil {
		query = query.Where("resolved = ?", *resolved)
	}
	var rows []models.ContactQuery
	err := query.Order("created_at DESC, id DESC").Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) MarkResolved(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ContactQuery{}).Where("id = ?", id).UpdateColumn("resolved", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CountUnresolved(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ContactQuery{}).Where("resolved = ?", false).Count(&count).Error
	return count, err
}
