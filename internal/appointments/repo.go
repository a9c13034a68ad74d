package appointments

import (
	"context"

	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes sizing appointment persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, appointment *models.SizingAppointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SizingAppointment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.SizingAppointment, error)
	List(ctx context.Context, status *enums.AppointmentStatus) ([]models.SizingAppointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.AppointmentStatus) error
	CountByStatus(ctx context.Context, status enums.AppointmentStatus) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository binds the appointments repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, appointment *models.SizingAppointment) error {
	return r.db.WithContext(ctx).Create(appointment).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.SizingAppointment, error) {
	var appointment models.SizingAppointment
	if err := r.db.WithContext(ctx).First(&appointment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.SizingAppointment, error) {
	var rows []models.SizingAppointment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("scheduled_for DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) List(ctx context.Context, status *enums.AppointmentStatus) ([]models.SizingAppointment, error) {
	query := r.db.WithContext(ctx).Model(&models.SizingAppointment{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.SizingAppointment
	err := query.Order("scheduled_for ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.AppointmentStatus) error {
	result := r.db.WithContext(ctx).Model(&models.SizingAppointment{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) CountByStatus(ctx context.Context, status enums.AppointmentStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SizingAppointment{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
