// Package feed keeps a caller's notifications in memory for live views.
// Every operation swaps in a freshly built slice so readers never observe a
// partially applied change.
package feed

import (
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	"github.com/google/uuid"
)

type Item struct {
	ID           uuid.UUID              `json:"id"`
	Title        string                 `json:"title,omitempty"`
	Message      string                 `json:"message"`
	Type         enums.NotificationType `json:"type"`
	Link         *string                `json:"link,omitempty"`
	Read         bool                   `json:"read"`
	CreatedAt    time.Time              `json:"created_at"`
	RelativeTime string                 `json:"relative_time"`
}

// Input describes a new entry. ID and Read are honored only by AddAt, which
// hydrates stored entries; a zero ID is replaced with a generated one.
type Input struct {
	ID      uuid.UUID
	Title   string
	Message string
	Type    enums.NotificationType
	Link    *string
	Read    bool
}

// Patch updates only the non-nil fields of an entry.
type Patch struct {
	Title   *string
	Message *string
	Type    *enums.NotificationType
	Link    *string
	Read    *bool
}

// Observer receives the snapshot produced by each operation.
type Observer func(items []Item)

type Option func(*Feed)

// WithClock overrides the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}

type Feed struct {
	mu        sync.Mutex
	items     []Item
	now       func() time.Time
	observers map[int]Observer
	nextID    int
}

func New(opts ...Option) *Feed {
	f := &Feed{items: []Item{}, now: time.Now, observers: map[int]Observer{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Add prepends a new unread entry stamped with the current time.
func (f *Feed) Add(input Input) Item {
	input.ID = uuid.New()
	input.Read = false
	return f.AddAt(input, f.now())
}

// AddAt prepends an entry created at the given instant. The relative label is
// computed once against the feed clock and never refreshed.
func (f *Feed) AddAt(input Input, at time.Time) Item {
	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	kind := input.Type
	if !kind.IsValid() {
		kind = enums.NotificationTypeInfo
	}
	item := Item{
		ID:           id,
		Title:        strings.TrimSpace(input.Title),
		Message:      strings.TrimSpace(input.Message),
		Type:         kind,
		Link:         input.Link,
		Read:         input.Read,
		CreatedAt:    at,
		RelativeTime: FormatRelative(at, f.now()),
	}
	f.apply(func(items []Item) []Item {
		next := make([]Item, 0, len(items)+1)
		next = append(next, item)
		return append(next, items...)
	})
	return item
}

// Update applies patch to the entry with id and reports whether it exists.
func (f *Feed) Update(id uuid.UUID, patch Patch) bool {
	found := false
	f.apply(func(items []Item) []Item {
		next := make([]Item, len(items))
		for i, item := range items {
			if item.ID == id {
				found = true
				item = patch.applyTo(item)
			}
			next[i] = item
		}
		return next
	})
	return found
}

// Remove drops the entry with id.
func (f *Feed) Remove(id uuid.UUID) bool {
	found := false
	f.apply(func(items []Item) []Item {
		next := make([]Item, 0, len(items))
		for _, item := range items {
			if item.ID == id {
				found = true
				continue
			}
			next = append(next, item)
		}
		return next
	})
	return found
}

func (f *Feed) MarkAsRead(id uuid.UUID) bool {
	read := true
	return f.Update(id, Patch{Read: &read})
}

func (f *Feed) MarkAllAsRead() {
	f.apply(func(items []Item) []Item {
		next := make([]Item, len(items))
		for i, item := range items {
			item.Read = true
			next[i] = item
		}
		return next
	})
}

func (f *Feed) ClearAll() {
	f.apply(func([]Item) []Item { return []Item{} })
}

// Items returns the current snapshot, newest first.
func (f *Feed) Items() []Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Item, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, item := range f.items {
		if !item.Read {
			count++
		}
	}
	return count
}

// Subscribe registers fn and returns its cancel func.
func (f *Feed) Subscribe(fn Observer) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.observers[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.observers, id)
	}
}

// apply builds the next slice from the current one. Published slices are
// never written to again, so handing them to observers is safe.
func (f *Feed) apply(fn func(items []Item) []Item) {
	f.mu.Lock()
	next := fn(f.items)
	f.items = next
	observers := make([]Observer, 0, len(f.observers))
	for _, obs := range f.observers {
		observers = append(observers, obs)
	}
	f.mu.Unlock()

	for _, obs := range observers {
		obs(next)
	}
}

func (p Patch) applyTo(item Item) Item {
	if p.Title != nil {
		item.Title = strings.TrimSpace(*p.Title)
	}
	if p.Message != nil {
		item.Message = strings.TrimSpace(*p.Message)
	}
	if p.Type != nil && p.Type.IsValid() {
		item.Type = *p.Type
	}
	if p.Link != nil {
		link := strings.TrimSpace(*p.Link)
		if link == "" {
			item.Link = nil
		} else {
			item.Link = &link
		}
	}
	if p.Read != nil {
		item.Read = *p.Read
	}
	return item
}
