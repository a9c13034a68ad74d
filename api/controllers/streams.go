package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/uniformhub-backend/api/responses"
	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/internal/feed"
	"github.com/angelmondragon/uniformhub-backend/internal/notifications"
	"github.com/angelmondragon/uniformhub-backend/pkg/changefeed"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/pagination"
)

const streamHeartbeat = 25 * time.Second

type changeSubscriber interface {
	Subscribe(ctx context.Context, topics ...string) (<-chan changefeed.Event, error)
}

var (
	publicTopics = map[string]bool{
		changefeed.TopicCategories: true,
		changefeed.TopicSchools:    true,
		changefeed.TopicProducts:   true,
	}
	adminTopics = map[string]bool{
		changefeed.TopicAdminNotifications: true,
		changefeed.TopicTodos:              true,
		changefeed.TopicAppointments:       true,
		changefeed.TopicContactQueries:     true,
	}
)

// StreamChanges relays change events for ?topics=a,b as server-sent events.
// Catalog topics are public; back-office topics require an admin.
func StreamChanges(bus changeSubscriber, guard *access.Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topics, needsAdmin, err := parseTopics(r.URL.Query().Get("topics"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if needsAdmin {
			if _, err := guard.Authorize(r.Context(), access.AdminHard); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		events, err := bus.Subscribe(ctx, topics...)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to changes"))
			return
		}

		stream := openStream(w)
		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				if err := stream.comment("heartbeat"); err != nil {
					return
				}
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := stream.send(event.Topic, event); err != nil {
					logStreamError(ctx, logg, err)
					return
				}
			}
		}
	}
}

func parseTopics(raw string) ([]string, bool, error) {
	seen := map[string]bool{}
	topics := []string{}
	needsAdmin := false
	for _, part := range strings.Split(raw, ",") {
		topic := strings.ToLower(strings.TrimSpace(part))
		if topic == "" || seen[topic] {
			continue
		}
		switch {
		case publicTopics[topic]:
		case adminTopics[topic]:
			needsAdmin = true
		default:
			return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "unknown topic").WithDetails(map[string]any{"topic": topic})
		}
		seen[topic] = true
		topics = append(topics, topic)
	}
	if len(topics) == 0 {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "topics is required")
	}
	return topics, needsAdmin, nil
}

type feedSnapshot struct {
	Items  []feed.Item `json:"items"`
	Unread int         `json:"unread"`
}

// StreamNotifications keeps a live mirror of the caller's inbox. The feed is
// hydrated from the latest page and then follows the caller's notification
// topic; each change is pushed as a full snapshot.
func StreamNotifications(svc notifications.Service, bus changeSubscriber, guard *access.Guard, now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := guard.Authorize(r.Context(), access.IdentityHard)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if caller.User == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.NotFound("user"))
			return
		}

		// Subscribe before reading the page so nothing created in between is lost.
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		events, err := bus.Subscribe(ctx, changefeed.UserNotificationsTopic(caller.UserID()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to notifications"))
			return
		}
		page, err := svc.GetByUser(r.Context(), notifications.ListParams{Limit: pagination.MaxLimit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inbox := feed.New(feed.WithClock(now))
		for i := len(page.Items) - 1; i >= 0; i-- {
			inbox.AddAt(feedInput(page.Items[i]), page.Items[i].CreatedAt)
		}
		updates := make(chan []feed.Item, 1)
		unsubscribe := inbox.Subscribe(func(items []feed.Item) {
			select {
			case <-updates:
			default:
			}
			updates <- items
		})
		defer unsubscribe()

		stream := openStream(w)
		if err := stream.send("snapshot", feedSnapshot{Items: inbox.Items(), Unread: inbox.UnreadCount()}); err != nil {
			return
		}

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				if err := stream.comment("heartbeat"); err != nil {
					return
				}
			case items := <-updates:
				if err := stream.send("snapshot", feedSnapshot{Items: items, Unread: countUnread(items)}); err != nil {
					logStreamError(ctx, logg, err)
					return
				}
			case event, ok := <-events:
				if !ok {
					return
				}
				applyNotificationEvent(ctx, inbox, event, logg)
			}
		}
	}
}

func applyNotificationEvent(ctx context.Context, inbox *feed.Feed, event changefeed.Event, logg *logger.Logger) {
	switch event.Op {
	case changefeed.OpCreated:
		var notification models.UserNotification
		if err := json.Unmarshal(event.Payload, &notification); err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "notifications.stream_decode_failed")
			}
			return
		}
		if hasItem(inbox.Items(), notification.ID) {
			return
		}
		inbox.AddAt(feedInput(notification), notification.CreatedAt)
	case changefeed.OpUpdated:
		if event.ID == "" {
			inbox.MarkAllAsRead()
			return
		}
		if id, err := uuid.Parse(event.ID); err == nil {
			inbox.MarkAsRead(id)
		}
	case changefeed.OpDeleted:
		if id, err := uuid.Parse(event.ID); err == nil {
			inbox.Remove(id)
		}
	}
}

func feedInput(n models.UserNotification) feed.Input {
	return feed.Input{ID: n.ID, Message: n.Message, Type: n.Type, Link: n.Link, Read: n.Read}
}

func hasItem(items []feed.Item, id uuid.UUID) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}

func countUnread(items []feed.Item) int {
	count := 0
	for _, item := range items {
		if !item.Read {
			count++
		}
	}
	return count
}

type eventStream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func openStream(w http.ResponseWriter) *eventStream {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	stream := &eventStream{w: w, rc: http.NewResponseController(w)}
	_ = stream.comment("connected")
	return stream
}

func (s *eventStream) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *eventStream) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.rc.Flush()
}

func logStreamError(ctx context.Context, logg *logger.Logger, err error) {
	if logg == nil || ctx.Err() != nil {
		return
	}
	logg.Error(ctx, "stream.write_failed", err)
}
