package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/pagination"
)

// Repository persists a user's inbox.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.UserNotification) error
	List(ctx context.Context, query inboxQuery) ([]models.UserNotification, string, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (readOutcome, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type inboxQuery struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type readOutcome int

const (
	readMissing readOutcome = iota
	readAlready
	readFlipped
)

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func inboxOf(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Model(&models.UserNotification{}).Where("user_id = ?", userID)
	}
}

func unread(q *gorm.DB) *gorm.DB {
	return q.Where("read = ?", false)
}

func (r *gormRepository) Create(ctx context.Context, notification *models.UserNotification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// List pages newest first. The cursor row itself starts the next page.
func (r *gormRepository) List(ctx context.Context, query inboxQuery) ([]models.UserNotification, string, error) {
	q := r.db.WithContext(ctx).Scopes(inboxOf(query.UserID))
	if query.UnreadOnly {
		q = q.Scopes(unread)
	}
	if c := query.Cursor; c != nil {
		q = q.Where("created_at < ? OR (created_at = ? AND id <= ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}

	var rows []models.UserNotification
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(query.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}
	page, next := pagination.Trim(rows, query.Limit, func(n models.UserNotification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

// MarkRead only touches rows owned by userID, so another user's id reads as
// missing.
func (r *gormRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (readOutcome, error) {
	db := r.db.WithContext(ctx)
	res := db.Scopes(inboxOf(userID), unread).Where("id = ?", notificationID).UpdateColumn("read", true)
	if res.Error != nil {
		return readMissing, res.Error
	}
	if res.RowsAffected > 0 {
		return readFlipped, nil
	}

	var n int64
	if err := db.Scopes(inboxOf(userID)).Where("id = ?", notificationID).Count(&n).Error; err != nil {
		return readMissing, err
	}
	if n == 0 {
		return readMissing, nil
	}
	return readAlready, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Scopes(inboxOf(userID), unread).UpdateColumn("read", true)
	return res.RowsAffected, res.Error
}

// DeleteReadBefore removes read rows older than cutoff across every inbox.
func (r *gormRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&models.UserNotification{})
	return res.RowsAffected, res.Error
}
