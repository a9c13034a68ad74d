package changefeed

import (
	"context"
	"sync"
)

// Recorded is a captured Publish call.
type Recorded struct {
	Topic   string
	Op      Op
	ID      string
	Payload any
}

// Recorder is a Publisher that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

func (r *Recorder) Publish(_ context.Context, topic string, op Op, id string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Topic: topic, Op: op, ID: id, Payload: payload})
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

// Topics lists the topic of each recorded event in order.
func (r *Recorder) Topics() []string {
	events := r.Events()
	topics := make([]string, 0, len(events))
	for _, event := range events {
		topics = append(topics, event.Topic)
	}
	return topics
}
