package inventory

import (
	"context"

	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes the append-only inventory log.
type Repository interface {
	Create(ctx context.Context, log *models.InventoryLog) error
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.InventoryLog, error)
	NetChange(ctx context.Context, productID uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository binds the inventory log repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, log *models.InventoryLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListByProduct returns up to LimitWithBuffer(limit) rows, newest first,
// starting at cursor inclusive.
func (r *repositoryImpl) ListByProduct(ctx context.Context, productID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.InventoryLog, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryLog{}).Where("product_id = ?", productID)
	if cursor != nil {
		query = query.Where("(created_at, id) <= (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.InventoryLog
	err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) NetChange(ctx context.Context, productID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryLog{}).
		Select("COALESCE(SUM(change), 0)").
		Where("product_id = ?", productID).
		Scan(&total).Error
	return total, err
}
