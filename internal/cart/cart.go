package cart

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Observer receives a copy of the lines after every committed change.
type Observer func(items []Item)

// Cart is a single session's cart. Mutations are serialized and applied only
// after the new snapshot has been written to storage.
type Cart struct {
	mu        sync.Mutex
	storage   Storage
	logg      *logger.Logger
	metrics   *metrics.CartMetrics
	items     []Item
	observers map[int]Observer
	nextID    int
}

// New builds an empty cart over storage. Call Load to hydrate it.
func New(storage Storage, logg *logger.Logger, cartMetrics *metrics.CartMetrics) (*Cart, error) {
	if storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart storage required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Cart{storage: storage, logg: logg, metrics: cartMetrics, observers: map[int]Observer{}}, nil
}

// Load replaces in-memory state with the stored snapshot. A snapshot that
// cannot be parsed is logged and treated as an empty cart.
func (c *Cart) Load(ctx context.Context) error {
	data, err := c.storage.Load(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	items := []Item{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &items); err != nil {
			warnCtx := c.logg.WithFields(ctx, map[string]any{"error": err.Error(), "bytes": len(data)})
			c.logg.Warn(warnCtx, "cart.snapshot_unreadable")
			items = []Item{}
		}
	}

	c.mu.Lock()
	c.items = items
	snapshot := c.snapshotLocked()
	observers := c.observersLocked()
	c.mu.Unlock()

	notify(observers, snapshot)
	return nil
}

// AddToCart merges quantity into the line matching product, size and color,
// or appends a new line.
func (c *Cart) AddToCart(ctx context.Context, product Product, quantity int, size, color string) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if product.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	key := NewKey(product.ID, size, color)
	return c.mutate(ctx, "add", func(items []Item) []Item {
		for i, item := range items {
			if item.Key() == key {
				merged := item
				merged.Quantity += quantity
				items[i] = merged
				return items
			}
		}
		return append(items, Item{
			ProductID: product.ID,
			Name:      strings.TrimSpace(product.Name),
			Price:     product.Price,
			ImageURL:  product.ImageURL,
			School:    product.School,
			Category:  product.Category,
			Quantity:  quantity,
			Size:      key.Size,
			Color:     key.Color,
		})
	})
}

// RemoveFromCart drops every line for productID regardless of variant.
func (c *Cart) RemoveFromCart(ctx context.Context, productID uuid.UUID) error {
	return c.mutate(ctx, "remove", func(items []Item) []Item {
		kept := items[:0]
		for _, item := range items {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		return kept
	})
}

// RemoveLine drops the single line matching key.
func (c *Cart) RemoveLine(ctx context.Context, key Key) error {
	key = NewKey(key.ProductID, key.Size, key.Color)
	return c.mutate(ctx, "remove_line", func(items []Item) []Item {
		kept := items[:0]
		for _, item := range items {
			if item.Key() != key {
				kept = append(kept, item)
			}
		}
		return kept
	})
}

// UpdateQuantity sets every line for productID to max(1, quantity).
func (c *Cart) UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}
	return c.mutate(ctx, "update_quantity", func(items []Item) []Item {
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = quantity
			}
		}
		return items
	})
}

// ClearCart empties the cart and removes the stored snapshot.
func (c *Cart) ClearCart(ctx context.Context) error {
	return c.mutate(ctx, "clear", func([]Item) []Item {
		return []Item{}
	})
}

// Items returns a copy of the current lines.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Total is the sum of price x quantity over every line.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Count is the sum of quantities.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

// Subscribe registers fn for committed changes and returns its cancel func.
func (c *Cart) Subscribe(fn Observer) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// mutate is the single commit path. fn works on a private copy; the copy
// replaces state only once storage has accepted it.
func (c *Cart) mutate(ctx context.Context, op string, fn func(items []Item) []Item) error {
	c.mu.Lock()
	next := fn(c.snapshotLocked())
	if next == nil {
		next = []Item{}
	}
	if err := c.persist(ctx, op, next); err != nil {
		c.mu.Unlock()
		return err
	}
	c.items = next
	snapshot := c.snapshotLocked()
	observers := c.observersLocked()
	c.mu.Unlock()

	notify(observers, snapshot)
	return nil
}

func (c *Cart) persist(ctx context.Context, op string, items []Item) error {
	var err error
	if len(items) == 0 {
		err = c.storage.Delete(ctx)
	} else {
		var data []byte
		data, err = json.Marshal(items)
		if err == nil {
			err = c.storage.Save(ctx, data)
		}
	}
	c.metrics.ObservePersist(op, err)
	if err != nil {
		errCtx := c.logg.WithField(ctx, "op", op)
		c.logg.Error(errCtx, "cart.persist_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

func (c *Cart) snapshotLocked() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) observersLocked() []Observer {
	out := make([]Observer, 0, len(c.observers))
	for _, fn := range c.observers {
		out = append(out, fn)
	}
	return out
}

func notify(observers []Observer, items []Item) {
	for _, fn := range observers {
		cp := make([]Item, len(items))
		copy(cp, items)
		fn(cp)
	}
}
