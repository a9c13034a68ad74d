package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is the immutable snapshot of a cart line captured on an order.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      *string         `json:"size,omitempty"`
	Color     *string         `json:"color,omitempty"`
}

// Subtotal returns price x quantity for the line.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderLines stores the order snapshot inside a JSONB column.
type OrderLines []OrderLine

// Total sums every line subtotal.
func (o OrderLines) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Value serializes the lines to JSON.
func (o OrderLines) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]OrderLine(o))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan decodes JSONB into the lines.
func (o *OrderLines) Scan(value interface{}) error {
	if value == nil {
		*o = OrderLines{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var lines []OrderLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return err
	}
	*o = OrderLines(lines)
	return nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
