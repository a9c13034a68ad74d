package changefeed

import (
	"context"
	"sync"

	pkgredis "github.com/angelmondragon/uniformhub-backend/pkg/redis"
)

// Message is a raw payload received on a topic.
type Message struct {
	Topic   string
	Payload []byte
}

// Subscription delivers messages until closed.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}

// Broker moves encoded events between publishers and subscribers.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topics ...string) (Subscription, error)
}

// RedisBroker fans events out through Redis Pub/Sub.
type RedisBroker struct {
	client *pkgredis.Client
}

// NewRedisBroker binds the broker to a connected redis client.
func NewRedisBroker(client *pkgredis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.Publish(ctx, topic, string(payload))
}

func (b *RedisBroker) Subscribe(ctx context.Context, topics ...string) (Subscription, error) {
	sub, err := b.client.Subscribe(ctx, topics...)
	if err != nil {
		return nil, err
	}
	out := make(chan Message, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			out <- Message{Topic: b.client.TopicFromChannel(msg.Channel), Payload: []byte(msg.Payload)}
		}
	}()
	return &redisSubscription{messages: out, close: sub.Close}, nil
}

type redisSubscription struct {
	messages chan Message
	close    func() error
}

func (s *redisSubscription) Messages() <-chan Message { return s.messages }
func (s *redisSubscription) Close() error            { return s.close() }

// MemoryBroker delivers events in-process. Used by tests and single-node setups.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[*memorySubscription]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[*memorySubscription]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if _, ok := sub.topics[topic]; !ok {
			continue
		}
		select {
		case sub.messages <- Message{Topic: topic, Payload: append([]byte(nil), payload...)}:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, topics ...string) (Subscription, error) {
	sub := &memorySubscription{
		broker:   b,
		topics:   make(map[string]struct{}, len(topics)),
		messages: make(chan Message, 64),
	}
	for _, topic := range topics {
		sub.topics[topic] = struct{}{}
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub, nil
}

type memorySubscription struct {
	broker   *MemoryBroker
	topics   map[string]struct{}
	messages chan Message
	once     sync.Once
}

func (s *memorySubscription) Messages() <-chan Message { return s.messages }

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s)
		close(s.messages)
		s.broker.mu.Unlock()
	})
	return nil
}
