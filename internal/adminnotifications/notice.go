package adminnotifications

import (
	"context"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	"gorm.io/gorm"
)

// Notice is a system-generated back-office notification.
type Notice struct {
	Message string
	Type    enums.NotificationType
	Link    *string
}

// Info builds an info notice.
func Info(message string) Notice {
	return Notice{Message: message, Type: enums.NotificationTypeInfo}
}

// WithLink attaches a deep link into the back office.
func (n Notice) WithLink(link string) Notice {
	n.Link = &link
	return n
}

// Emitter records notices raised as side effects of other writes.
type Emitter struct {
	repo Repository
}

func NewEmitter(repo Repository) *Emitter {
	return &Emitter{repo: repo}
}

// Emit inserts the notice inside tx so it commits or rolls back with the triggering write.
func (e *Emitter) Emit(ctx context.Context, tx *gorm.DB, notice Notice) (*models.AdminNotification, error) {
	notification := &models.AdminNotification{
		Message: strings.TrimSpace(notice.Message),
		Type:    notice.Type,
		Link:    notice.Link,
	}
	if notification.Type == "" {
		notification.Type = enums.NotificationTypeInfo
	}
	if err := e.repo.WithTx(tx).Create(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}
