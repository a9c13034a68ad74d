// Package changefeed publishes entity change events so subscribers can re-run
// their reads instead of polling.
package changefeed

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Op names the kind of write that produced an event.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

const (
	TopicCategories         = "categories"
	TopicSchools            = "schools"
	TopicProducts           = "products"
	TopicAdminNotifications = "admin_notifications"
	TopicTodos              = "todos"
	TopicAppointments       = "appointments"
	TopicContactQueries     = "contact_queries"
	topicUserNotifications  = "notifications"
)

// UserNotificationsTopic scopes notification events to a single user.
func UserNotificationsTopic(userID uuid.UUID) string {
	return topicUserNotifications + ":" + userID.String()
}

// Event is the envelope carried over the broker.
type Event struct {
	Topic      string          `json:"topic"`
	Op         Op              `json:"op"`
	ID         string          `json:"id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
