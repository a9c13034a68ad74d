package todos

import (
	"context"

	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes admin todo persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, todo *models.AdminTodo) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AdminTodo, error)
	ListByCreator(ctx context.Context, userID uuid.UUID) ([]models.AdminTodo, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	CountOpen(ctx context.Context) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository binds the todos repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, todo *models.AdminTodo) error {
	return r.db.WithContext(ctx).Create(todo).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.AdminTodo, error) {
	var todo models.AdminTodo
	if err := r.db.WithContext(ctx).First(&todo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &todo, nil
}

func (r *repositoryImpl) ListByCreator(ctx context.Context, userID uuid.UUID) ([]models.AdminTodo, error) {
	var rows []models.AdminTodo
	err := r.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("completed ASC, created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.AdminTodo{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AdminTodo{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AdminTodo{}).Where("completed = ?", false).Count(&count).Error
	return count, err
}
