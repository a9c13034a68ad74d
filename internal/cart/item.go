// Package cart holds a shopper's cart as an explicit state container whose
// every committed change is mirrored to durable session storage.
package cart

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ref names a related catalog record. Refs are never mutated once captured.
type Ref struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Product is the catalog snapshot captured when a line is added.
type Product struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url,omitempty"`
	School   *Ref            `json:"school,omitempty"`
	Category *Ref            `json:"category,omitempty"`
}

// Key identifies a cart line. Two lines with the same product but a
// different size or color are distinct.
type Key struct {
	ProductID uuid.UUID `json:"product_id"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
}

// NewKey normalizes the optional variant fields.
func NewKey(productID uuid.UUID, size, color string) Key {
	return Key{ProductID: productID, Size: strings.TrimSpace(size), Color: strings.TrimSpace(color)}
}

// Item is one cart line.
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url,omitempty"`
	School    *Ref            `json:"school,omitempty"`
	Category  *Ref            `json:"category,omitempty"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
}

// Key returns the line identity.
func (i Item) Key() Key {
	return Key{ProductID: i.ProductID, Size: i.Size, Color: i.Color}
}

// Subtotal is price x quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
