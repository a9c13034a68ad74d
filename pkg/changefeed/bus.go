package changefeed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
)

// Publisher is the write side used by services after a successful commit.
type Publisher interface {
	Publish(ctx context.Context, topic string, op Op, id string, payload any)
}

// Bus encodes events and hands them to the broker.
type Bus struct {
	broker Broker
	logg   *logger.Logger
	now    func() time.Time
}

// NewBus wires a broker with the logger used for delivery failures.
func NewBus(broker Broker, logg *logger.Logger) *Bus {
	return &Bus{broker: broker, logg: logg, now: time.Now}
}

// Publish never fails the caller; broker errors are logged and dropped.
func (b *Bus) Publish(ctx context.Context, topic string, op Op, id string, payload any) {
	if b == nil || b.broker == nil {
		return
	}
	event := Event{Topic: topic, Op: op, ID: id, OccurredAt: b.now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			b.warn(ctx, "changefeed.encode_failed", topic, err)
			return
		}
		event.Payload = raw
	}
	body, err := json.Marshal(event)
	if err != nil {
		b.warn(ctx, "changefeed.encode_failed", topic, err)
		return
	}
	if err := b.broker.Publish(ctx, topic, body); err != nil {
		b.warn(ctx, "changefeed.publish_failed", topic, err)
	}
}

// Subscribe streams decoded events for topics until ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, topics ...string) (<-chan Event, error) {
	sub, err := b.broker.Subscribe(ctx, topics...)
	if err != nil {
		return nil, err
	}
	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		messages := sub.Messages()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal(msg.Payload, &event); err != nil {
					b.warn(ctx, "changefeed.decode_failed", msg.Topic, err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *Bus) warn(ctx context.Context, msg, topic string, err error) {
	if b.logg == nil {
		return
	}
	ctx = b.logg.WithFields(ctx, map[string]any{"topic": topic, "error": err.Error()})
	b.logg.Warn(ctx, msg)
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, string, Op, string, any) {}
